package api

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
)

// 导入文件大小上限。
const maxImportSize = 1 << 20

// ExportJSON 以附件形式下载简历 JSON。
func (h *ResumeHandler) ExportJSON(c *gin.Context) {
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

	doc, err := record.Document()
	if err != nil {
		Internal(c, "failed to decode resume")
		return
	}
	data, err := resume.Encode(doc)
	if err != nil {
		Internal(c, "failed to encode resume")
		return
	}

	c.Header("Content-Disposition", storage.ContentDisposition(resume.Filename(doc.Title, ".json")))
	c.Data(http.StatusOK, "application/json", data)
}

// ImportJSON 上传 JSON 文件创建新简历：先扫描病毒，再按 schema 校验。
func (h *ResumeHandler) ImportJSON(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	logger := middleware.LoggerFromContext(c)

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size > maxImportSize {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(io.LimitReader(reader, maxImportSize+1))
	reader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if len(data) > maxImportSize {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	if h.scanner != nil {
		if err := h.scanner.Scan(bytes.NewReader(data)); err != nil {
			if errors.Is(err, ErrMalicious) {
				logger.Warn("import rejected by scanner", slog.Any("error", err))
				BadRequest(c, "malicious file detected")
				return
			}
			logger.Error("scan file", slog.Any("error", err))
			Internal(c, "failed to scan file")
			return
		}
	}

	doc, err := resume.Decode(data)
	if err != nil {
		var schemaErr *resume.SchemaError
		switch {
		case errors.Is(err, resume.ErrInvalidJSON):
			BadRequest(c, "invalid JSON file")
		case errors.As(err, &schemaErr):
			Invalid(c, "resume json does not match schema", schemaErr.Problems)
		default:
			BadRequest(c, err.Error())
		}
		return
	}

	now := h.now()
	doc.CreatedAt, doc.UpdatedAt = now, now
	record, err := h.create(c.Request.Context(), userID, doc)
	if err != nil {
		h.respondSaveError(c, err)
		return
	}
	logger.Info("resume imported", slog.Uint64("resume_id", uint64(record.ID)))
	h.reply(c, http.StatusCreated, *record)
}
