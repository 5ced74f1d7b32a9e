package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/notify"
	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
)

const previewPresignTTL = 7 * 24 * time.Hour

// Exporter 由 *pdf.Exporter 实现。
type Exporter interface {
	Export(ctx context.Context, req pdf.Request) (*pdf.Artifact, error)
}

// ObjectStore 由 *storage.Client 实现。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// Guard 导出结束后释放 API 写入的防重复标记。
type Guard interface {
	Release(ctx context.Context, userID, resumeID uint) error
}

// ExportTaskHandler 负责消费简历导出任务。
type ExportTaskHandler struct {
	db        *gorm.DB
	storage   ObjectStore
	publisher notify.Publisher
	exporter  Exporter
	guard     Guard
	logger    *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(db *gorm.DB, store ObjectStore, publisher notify.Publisher, exporter Exporter, guard Guard, logger *slog.Logger) *ExportTaskHandler {
	return &ExportTaskHandler{
		db:        db,
		storage:   store,
		publisher: publisher,
		exporter:  exporter,
		guard:     guard,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ResumeExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("resume_id", uint64(payload.ResumeID)),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	log.Info("Starting resume export task...")

	var record database.Resume
	err := h.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", payload.ResumeID, payload.UserID).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			h.release(ctx, payload)
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	defer func() {
		// 任务超时后 ctx 已取消，收尾操作仍需完成。
		cleanupCtx := context.WithoutCancel(ctx)
		if retErr == nil {
			h.release(cleanupCtx, payload)
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !isFinalAsynqAttempt(ctx) {
			return
		}
		h.release(cleanupCtx, payload)

		if err := h.db.WithContext(cleanupCtx).Model(&record).Update("status", database.ExportStatusFailed).Error; err != nil {
			log.Error("mark export failed", slog.Any("error", err))
		}
		msg := notify.Message{
			Status:        notify.StatusError,
			ResumeID:      record.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.FromExportError(retErr),
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := notify.Publish(cleanupCtx, h.publisher, record.UserID, msg); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	doc, err := record.Document()
	if err != nil {
		log.Error("decode resume content failed", slog.Any("error", err))
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	art, err := h.exporter.Export(ctx, pdf.Request{Document: doc})
	if err != nil {
		log.Error("export resume failed", slog.Any("error", err))
		if errcode.FromExportError(err) == errcode.ExportInvalid {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	objectName := storage.ExportKey(record.UserID, record.ID, uuid.NewString())
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(art.Data), int64(len(art.Data)), "application/pdf"); err != nil {
		log.Error("upload pdf to minio failed", slog.Any("error", err))
		return err
	}

	previous := record.PdfUrl
	update := map[string]any{
		"pdf_url":    objectName,
		"status":     database.ExportStatusCompleted,
		"page_count": art.Pages,
	}
	if err := h.db.WithContext(ctx).Model(&record).Updates(update).Error; err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		return err
	}
	if previous != "" && previous != objectName {
		if err := h.storage.DeleteObject(ctx, previous); err != nil {
			log.Warn("delete previous export failed", slog.String("object", previous), slog.Any("error", err))
		}
	}

	if len(art.Preview) > 0 {
		if err := h.storePreview(ctx, &record, art.Preview); err != nil {
			log.Warn("store resume preview failed", slog.Any("error", err))
		}
	}

	msg := notify.Message{
		Status:        notify.StatusCompleted,
		ResumeID:      record.ID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
		Pages:         art.Pages,
		Filename:      art.Filename,
	}
	if err := notify.Publish(ctx, h.publisher, record.UserID, msg); err != nil {
		// PDF 已生成，通知失败不重试，前端可通过 download-link 轮询
		log.Error("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("Resume export task completed successfully.", slog.Int("pages", art.Pages), slog.Int("units", art.Units))
	return nil
}

func (h *ExportTaskHandler) storePreview(ctx context.Context, record *database.Resume, preview []byte) error {
	objectName := storage.PreviewKey(record.UserID, record.ID)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(preview), int64(len(preview)), "image/jpeg"); err != nil {
		return fmt.Errorf("upload preview image: %w", err)
	}

	presignedURL, err := h.storage.GeneratePresignedURL(ctx, objectName, previewPresignTTL)
	if err != nil {
		return fmt.Errorf("generate preview presigned url: %w", err)
	}

	if err := h.db.WithContext(ctx).Model(record).Updates(map[string]any{
		"preview_image_url":  presignedURL,
		"preview_object_key": objectName,
	}).Error; err != nil {
		return fmt.Errorf("update resume preview url: %w", err)
	}
	return nil
}

func (h *ExportTaskHandler) release(ctx context.Context, payload tasks.ResumeExportPayload) {
	if h.guard == nil {
		return
	}
	if err := h.guard.Release(ctx, payload.UserID, payload.ResumeID); err != nil {
		h.logger.Warn("release export guard failed", slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
