package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
)

// ResumeStore 简历相关的对象存储操作，由 *storage.Client 实现。
type ResumeStore interface {
	DeletePrefix(ctx context.Context, prefix string) error
	GenerateDownloadURL(ctx context.Context, objectKey, filename string, duration time.Duration) (string, error)
}

// ResumeHandler 负责简历的增删改查、复制与 JSON 导入导出。
type ResumeHandler struct {
	db         *gorm.DB
	storage    ResumeStore
	scanner    Scanner
	logger     *slog.Logger
	maxResumes int
	now        func() time.Time
}

// NewResumeHandler 构造 ResumeHandler。scanner 为 nil 时导入不做病毒扫描。
func NewResumeHandler(db *gorm.DB, store ResumeStore, scanner Scanner, logger *slog.Logger, maxResumes int) *ResumeHandler {
	return &ResumeHandler{
		db:         db,
		storage:    store,
		scanner:    scanner,
		logger:     logger,
		maxResumes: maxResumes,
		now:        time.Now,
	}
}

var (
	errInvalidResumeID = errors.New("invalid resume id")
	errResumeLimit     = errors.New("resume limit reached")
)

type resumeListItem struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	TemplateID      string    `json:"templateId"`
	PreviewImageURL string    `json:"previewImageUrl,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type resumeResponse struct {
	ID uint `json:"id"`
	*resume.Document
	PreviewImageURL string `json:"previewImageUrl,omitempty"`
	PageCount       int    `json:"pageCount,omitempty"`
	ExportStatus    string `json:"exportStatus,omitempty"`
}

func newResumeResponse(record database.Resume) (resumeResponse, error) {
	doc, err := record.Document()
	if err != nil {
		return resumeResponse{}, err
	}
	return resumeResponse{
		ID:              record.ID,
		Document:        doc,
		PreviewImageURL: record.PreviewImageURL,
		PageCount:       record.PageCount,
		ExportStatus:    record.Status,
	}, nil
}

func (h *ResumeHandler) reply(c *gin.Context, status int, record database.Resume) {
	resp, err := newResumeResponse(record)
	if err != nil {
		middleware.LoggerFromContext(c).Error("decode resume failed", slog.Any("error", err))
		Internal(c, "failed to decode resume")
		return
	}
	c.JSON(status, resp)
}

// likeEscaper 让搜索词中的 LIKE 通配符按字面匹配。
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListResumes 列出用户全部简历，支持 q 按标题搜索与 sort=created|title。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	query := h.db.WithContext(c.Request.Context()).Where("user_id = ?", userID)
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		query = query.Where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(q))+"%")
	}
	switch c.DefaultQuery("sort", "created") {
	case "title":
		query = query.Order("LOWER(title) ASC").Order("id ASC")
	case "created":
		query = query.Order("created_at DESC").Order("id DESC")
	default:
		BadRequest(c, "sort must be created or title")
		return
	}

	var records []database.Resume
	if err := query.Find(&records).Error; err != nil {
		Internal(c, "failed to list resumes")
		return
	}

	items := make([]resumeListItem, 0, len(records))
	for _, r := range records {
		items = append(items, resumeListItem{
			ID:              r.ID,
			Title:           r.Title,
			TemplateID:      r.TemplateID,
			PreviewImageURL: r.PreviewImageURL,
			CreatedAt:       r.CreatedAt,
			UpdatedAt:       r.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

// CreateResume 校验并保存一份新简历。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}

	record, err := h.create(c.Request.Context(), userID, &doc)
	if err != nil {
		h.respondSaveError(c, err)
		return
	}
	h.reply(c, http.StatusCreated, *record)
}

func (h *ResumeHandler) respondSaveError(c *gin.Context, err error) {
	switch {
	case respondDocumentError(c, err):
	case errors.Is(err, errResumeLimit):
		Forbidden(c, "resume limit reached")
	default:
		middleware.LoggerFromContext(c).Error("save resume failed", slog.Any("error", err))
		Internal(c, "failed to save resume")
	}
}

// create 规范化、校验并插入，超过限额时返回 errResumeLimit。
func (h *ResumeHandler) create(ctx context.Context, userID uint, doc *resume.Document) (*database.Resume, error) {
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	if h.maxResumes > 0 {
		var count int64
		if err := h.db.WithContext(ctx).
			Model(&database.Resume{}).
			Where("user_id = ?", userID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count >= int64(h.maxResumes) {
			return nil, errResumeLimit
		}
	}

	record := database.Resume{UserID: userID}
	if err := record.SetDocument(doc); err != nil {
		return nil, err
	}
	if err := h.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	if err := h.setActiveResumeID(ctx, userID, &record.ID); err != nil {
		return nil, err
	}
	return &record, nil
}

// GetLatestResume 返回用户正在编辑或最近的简历，没有时返回空白默认简历。
func (h *ResumeHandler) GetLatestResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, err := h.findActiveOrLatestResume(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			doc := resume.New(h.now())
			doc.Language = resume.ParseLanguage(c.Query("lang"))
			doc.Title = resume.Label(doc.Language, resume.LabelUntitled)
			c.JSON(http.StatusOK, resumeResponse{Document: doc})
			return
		}
		Internal(c, "failed to query latest resume")
		return
	}

	h.reply(c, http.StatusOK, *record)
}

// GetResume 返回指定 ID 的简历并标记为当前正在编辑。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, err := h.getResumeForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	if err := h.setActiveResumeID(c.Request.Context(), userID, &record.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	h.reply(c, http.StatusOK, *record)
}

// UpdateResume 覆盖指定简历，前端自动保存也走该接口。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var doc resume.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		BadRequest(c, err.Error())
		return
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		respondDocumentError(c, err)
		return
	}

	ctx := c.Request.Context()
	record, err := h.getResumeForUser(ctx, c.Param("id"), userID)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	if err := record.SetDocument(&doc); err != nil {
		Internal(c, "failed to encode resume")
		return
	}
	if err := h.db.WithContext(ctx).Model(record).Updates(map[string]any{
		"title":       record.Title,
		"template_id": record.TemplateID,
		"language":    record.Language,
		"content":     record.Content,
	}).Error; err != nil {
		Internal(c, "failed to update resume")
		return
	}

	if err := h.db.WithContext(ctx).First(record, record.ID).Error; err != nil {
		Internal(c, "failed to reload resume")
		return
	}

	if err := h.setActiveResumeID(ctx, userID, &record.ID); err != nil {
		Internal(c, "failed to mark active resume")
		return
	}

	h.reply(c, http.StatusOK, *record)
}

// DeleteResume 删除指定简历及其导出产物，并回落到最近一份。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	record, err := h.getResumeForUser(ctx, c.Param("id"), userID)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	if err := h.db.WithContext(ctx).Delete(&database.Resume{}, record.ID).Error; err != nil {
		Internal(c, "failed to delete resume")
		return
	}

	if h.storage != nil {
		if err := h.storage.DeletePrefix(ctx, storage.ExportPrefix(userID, record.ID)); err != nil {
			middleware.LoggerFromContext(c).Warn("delete resume exports failed", slog.Any("error", err))
		}
	}

	if err := h.assignLatestResumeAsActive(ctx, userID); err != nil {
		Internal(c, "failed to update active resume")
		return
	}

	c.Status(http.StatusNoContent)
}

// DuplicateResume 复制一份简历，标题追加 "(Copy)"。
func (h *ResumeHandler) DuplicateResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	ctx := c.Request.Context()
	source, err := h.getResumeForUser(ctx, c.Param("id"), userID)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	doc, err := source.Document()
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}

	record, err := h.create(ctx, userID, doc.Duplicate(h.now()))
	if err != nil {
		h.respondSaveError(c, err)
		return
	}
	h.reply(c, http.StatusCreated, *record)
}

func (h *ResumeHandler) setActiveResumeID(ctx context.Context, userID uint, resumeID *uint) error {
	var value any
	if resumeID != nil {
		value = *resumeID
	}
	return h.db.WithContext(ctx).Model(&database.User{}).
		Where("id = ?", userID).
		Update("active_resume_id", value).Error
}

func (h *ResumeHandler) assignLatestResumeAsActive(ctx context.Context, userID uint) error {
	var latest database.Resume
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&latest).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return h.setActiveResumeID(ctx, userID, nil)
	case err != nil:
		return err
	default:
		return h.setActiveResumeID(ctx, userID, &latest.ID)
	}
}

func (h *ResumeHandler) findActiveOrLatestResume(ctx context.Context, userID uint) (*database.Resume, error) {
	var user database.User
	if err := h.db.WithContext(ctx).
		Select("id", "active_resume_id").
		First(&user, userID).Error; err != nil {
		return nil, err
	}

	if user.ActiveResumeID != nil {
		var record database.Resume
		err := h.db.WithContext(ctx).
			Where("id = ? AND user_id = ?", *user.ActiveResumeID, userID).
			First(&record).Error
		if err == nil {
			return &record, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	var latest database.Resume
	err := h.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at desc").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = h.setActiveResumeID(ctx, userID, nil)
		}
		return nil, err
	}

	if err := h.setActiveResumeID(ctx, userID, &latest.ID); err != nil {
		return nil, err
	}
	return &latest, nil
}

func (h *ResumeHandler) getResumeForUser(ctx context.Context, idParam string, userID uint) (*database.Resume, error) {
	return loadResumeForUser(ctx, h.db, idParam, userID)
}

func loadResumeForUser(ctx context.Context, db *gorm.DB, idParam string, userID uint) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(idParam, 10, 64)
	if err != nil || resumeID == 0 {
		return nil, errInvalidResumeID
	}

	var record database.Resume
	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", uint(resumeID), userID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
