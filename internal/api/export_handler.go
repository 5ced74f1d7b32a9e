package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/pdf/assemble"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

const downloadLinkTTL = 5 * time.Minute

// Exporter 由 *pdf.Exporter 实现。
type Exporter interface {
	Export(ctx context.Context, req pdf.Request) (*pdf.Artifact, error)
}

// TaskEnqueuer 由 *asynq.Client 实现。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExportGuard 由 *tasks.ExportGuard 实现。
type ExportGuard interface {
	Acquire(ctx context.Context, userID, resumeID uint) (bool, error)
	Release(ctx context.Context, userID, resumeID uint) error
}

// ExportOptions 异步导出任务参数。
type ExportOptions struct {
	MaxRetry    int
	TaskTimeout time.Duration
}

// ExportHandler 负责同步下载、异步导出与下载链接。
type ExportHandler struct {
	db       *gorm.DB
	exporter Exporter
	queue    TaskEnqueuer
	guard    ExportGuard
	storage  ResumeStore
	opts     ExportOptions
}

// NewExportHandler 构造 ExportHandler。
func NewExportHandler(db *gorm.DB, exporter Exporter, queue TaskEnqueuer, guard ExportGuard, store ResumeStore, opts ExportOptions) *ExportHandler {
	return &ExportHandler{
		db:       db,
		exporter: exporter,
		queue:    queue,
		guard:    guard,
		storage:  store,
		opts:     opts,
	}
}

// DownloadPDF 同步生成 PDF 并作为附件返回。
// 可选查询参数 template、lang、hide=skills,projects 仅影响本次导出。
func (h *ExportHandler) DownloadPDF(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	record, err := loadResumeForUser(ctx, h.db, c.Param("id"), userID)
	if err != nil {
		respondLookupError(c, err)
		return
	}
	req, err := exportRequest(c, record)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	acquired, err := h.guard.Acquire(ctx, userID, record.ID)
	if err != nil {
		logger.Error("acquire export guard failed", slog.Any("error", err))
		Internal(c, "failed to start export")
		return
	}
	if !acquired {
		Conflict(c, "export already in progress")
		return
	}
	defer func() {
		if err := h.guard.Release(context.WithoutCancel(ctx), userID, record.ID); err != nil {
			logger.Warn("release export guard failed", slog.Any("error", err))
		}
	}()

	art, err := h.exporter.Export(ctx, req)
	if err != nil {
		logger.Error("export pdf failed", slog.Any("error", err))
		code := errcode.FromExportError(err)
		status := http.StatusInternalServerError
		if code == errcode.ExportInvalid {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": "failed to export pdf", "code": code})
		return
	}

	c.Header("Content-Disposition", storage.ContentDisposition(art.Filename))
	c.Header("X-Page-Count", strconv.Itoa(art.Pages))
	c.Data(http.StatusOK, "application/pdf", art.Data)
}

// exportRequest 根据查询参数构造导出请求。
func exportRequest(c *gin.Context, record *database.Resume) (pdf.Request, error) {
	doc, err := record.Document()
	if err != nil {
		return pdf.Request{}, err
	}
	req := pdf.Request{Document: doc, TemplateID: strings.TrimSpace(c.Query("template"))}
	if lang := c.Query("lang"); lang != "" {
		req.Language = resume.ParseLanguage(lang)
	}
	if hide := c.Query("hide"); hide != "" {
		vis := doc.Visibility.Clone()
		for _, name := range strings.Split(hide, ",") {
			sec, ok := resume.ParseSection(name)
			if !ok {
				return pdf.Request{}, fmt.Errorf("unknown section %q", strings.TrimSpace(name))
			}
			vis = vis.Hide(sec)
		}
		req.Visibility = vis
	}
	return req, nil
}

// EnqueueExport 将导出任务入队并立即返回 202。
func (h *ExportHandler) EnqueueExport(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	ctx := c.Request.Context()
	logger := middleware.LoggerFromContext(c)

	record, err := loadResumeForUser(ctx, h.db, c.Param("id"), userID)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	acquired, err := h.guard.Acquire(ctx, userID, record.ID)
	if err != nil {
		logger.Error("acquire export guard failed", slog.Any("error", err))
		Internal(c, "failed to start export")
		return
	}
	if !acquired {
		Conflict(c, "export already in progress")
		return
	}

	// pending 须在入队之前写入，worker 随后写入的状态不会被覆盖
	previous := record.Status
	if err := h.setStatus(ctx, record, database.ExportStatusPending); err != nil {
		logger.Error("mark export pending failed", slog.Any("error", err))
		h.releaseGuard(ctx, logger, userID, record.ID)
		Internal(c, "failed to start export")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeExportTask(record.ID, userID, correlationID, h.opts.MaxRetry, h.opts.TaskTimeout)
	if err == nil {
		var info *asynq.TaskInfo
		info, err = h.queue.Enqueue(task)
		if err == nil {
			c.JSON(http.StatusAccepted, gin.H{
				"message":        "export request accepted",
				"task_id":        info.ID,
				"correlation_id": correlationID,
			})
			return
		}
	}

	logger.Error("enqueue export failed", slog.Any("error", err))
	if rbErr := h.setStatus(ctx, record, previous); rbErr != nil {
		logger.Warn("restore export status failed", slog.Any("error", rbErr))
	}
	h.releaseGuard(ctx, logger, userID, record.ID)
	Internal(c, "failed to enqueue export")
}

func (h *ExportHandler) setStatus(ctx context.Context, record *database.Resume, status string) error {
	return h.db.WithContext(ctx).Model(record).Update("status", status).Error
}

func (h *ExportHandler) releaseGuard(ctx context.Context, logger *slog.Logger, userID, resumeID uint) {
	if err := h.guard.Release(ctx, userID, resumeID); err != nil {
		logger.Warn("release export guard failed", slog.Any("error", err))
	}
}

// GetDownloadLink 生成最近一次导出的预签名下载链接。
func (h *ExportHandler) GetDownloadLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	record, err := loadResumeForUser(c.Request.Context(), h.db, c.Param("id"), userID)
	if err != nil {
		respondLookupError(c, err)
		return
	}

	if record.PdfUrl == "" {
		if record.Status == database.ExportStatusFailed {
			Error(c, http.StatusUnprocessableEntity, "last export failed")
			return
		}
		Conflict(c, "pdf not ready")
		return
	}

	filename := assemble.Filename(record.Title)
	signedURL, err := h.storage.GenerateDownloadURL(c.Request.Context(), record.PdfUrl, filename, downloadLinkTTL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url":        signedURL,
		"filename":   filename,
		"pages":      record.PageCount,
		"expires_in": int(downloadLinkTTL.Seconds()),
	})
}
