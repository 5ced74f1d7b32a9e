package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/errcode"
	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/tasks"
)

type fakeExporter struct {
	art *pdf.Artifact
	err error
	got []pdf.Request
}

func (e *fakeExporter) Export(_ context.Context, req pdf.Request) (*pdf.Artifact, error) {
	e.got = append(e.got, req)
	return e.art, e.err
}

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
	// onEnqueue 模拟任务入队后立即被 worker 处理。
	onEnqueue func()
}

func (q *fakeQueue) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if q.onEnqueue != nil {
		q.onEnqueue()
	}
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(q.tasks))}, nil
}

type fakeGuard struct {
	held     map[string]bool
	released int
}

func newFakeGuard() *fakeGuard { return &fakeGuard{held: map[string]bool{}} }

func (g *fakeGuard) key(userID, resumeID uint) string { return fmt.Sprintf("%d:%d", userID, resumeID) }

func (g *fakeGuard) Acquire(_ context.Context, userID, resumeID uint) (bool, error) {
	k := g.key(userID, resumeID)
	if g.held[k] {
		return false, nil
	}
	g.held[k] = true
	return true, nil
}

func (g *fakeGuard) Release(_ context.Context, userID, resumeID uint) error {
	delete(g.held, g.key(userID, resumeID))
	g.released++
	return nil
}

type exportFixture struct {
	db       *gorm.DB
	exporter *fakeExporter
	queue    *fakeQueue
	guard    *fakeGuard
	store    *fakeStore
	router   *gin.Engine
	user     database.User
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	f := &exportFixture{
		db: newTestDB(t),
		exporter: &fakeExporter{art: &pdf.Artifact{
			Filename: "Jane Doe.pdf",
			Data:     []byte("%PDF-1.7"),
			Pages:    2,
		}},
		queue: &fakeQueue{},
		guard: newFakeGuard(),
		store: &fakeStore{},
	}
	f.user = seedUser(t, f.db, "jane")

	h := NewExportHandler(f.db, f.exporter, f.queue, f.guard, f.store, ExportOptions{MaxRetry: 3, TaskTimeout: time.Minute})
	f.router = gin.New()
	g := f.router.Group("/v1/resumes", asUser(f.user.ID))
	g.GET("/:id/pdf", h.DownloadPDF)
	g.POST("/:id/export", h.EnqueueExport)
	g.GET("/:id/download-link", h.GetDownloadLink)
	return f
}

func TestDownloadPDF(t *testing.T) {
	f := newExportFixture(t)
	rec := seedResume(t, f.db, f.user.ID, "Jane Doe")

	w := doJSON(t, f.router, http.MethodGet, fmt.Sprintf("/v1/resumes/%d/pdf?template=modern&lang=vi&hide=skills,projects", rec.ID), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "2", w.Header().Get("X-Page-Count"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="Jane Doe.pdf"`)
	assert.Equal(t, "%PDF-1.7", w.Body.String())

	require.Len(t, f.exporter.got, 1)
	req := f.exporter.got[0]
	assert.Equal(t, "modern", req.TemplateID)
	assert.Equal(t, resume.Vietnamese, req.Language)
	assert.False(t, req.Visibility.Includes(resume.SectionSkills))
	assert.False(t, req.Visibility.Includes(resume.SectionProjects))
	assert.True(t, req.Visibility.Includes(resume.SectionExperience))

	assert.Empty(t, f.guard.held, "guard is released after the export")
}

func TestDownloadPDFUnknownSection(t *testing.T) {
	f := newExportFixture(t)
	rec := seedResume(t, f.db, f.user.ID, "Jane Doe")

	w := doJSON(t, f.router, http.MethodGet, fmt.Sprintf("/v1/resumes/%d/pdf?hide=hobbies", rec.ID), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.exporter.got)
}

func TestDownloadPDFInProgress(t *testing.T) {
	f := newExportFixture(t)
	rec := seedResume(t, f.db, f.user.ID, "Jane Doe")
	f.guard.held[f.guard.key(f.user.ID, rec.ID)] = true

	w := doJSON(t, f.router, http.MethodGet, fmt.Sprintf("/v1/resumes/%d/pdf", rec.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, f.exporter.got)
}

func TestDownloadPDFFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"measurement", &pdf.MeasurementError{Err: errors.New("boom")}, http.StatusInternalServerError, errcode.MeasureFailed},
		{"assembly", &pdf.AssemblyError{Err: errors.New("boom")}, http.StatusInternalServerError, errcode.AssemblyFailed},
		{"invalid", pdf.ErrNoUnits, http.StatusUnprocessableEntity, errcode.ExportInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newExportFixture(t)
			f.exporter.err = tc.err
			rec := seedResume(t, f.db, f.user.ID, "Jane Doe")

			w := doJSON(t, f.router, http.MethodGet, fmt.Sprintf("/v1/resumes/%d/pdf", rec.ID), nil)
			require.Equal(t, tc.status, w.Code)
			body := decodeBody[struct {
				Code int `json:"code"`
			}](t, w)
			assert.Equal(t, tc.code, body.Code)
			assert.Empty(t, f.guard.held)
		})
	}
}

func TestEnqueueExport(t *testing.T) {
	f := newExportFixture(t)
	rec := seedResume(t, f.db, f.user.ID, "Jane Doe")

	w := doJSON(t, f.router, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/export", rec.ID), nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	require.Len(t, f.queue.tasks, 1)
	assert.Equal(t, tasks.TypeResumeExport, f.queue.tasks[0].Type())
	assert.True(t, f.guard.held[f.guard.key(f.user.ID, rec.ID)], "guard stays held until the worker finishes")

	var stored database.Resume
	require.NoError(t, f.db.First(&stored, rec.ID).Error)
	assert.Equal(t, database.ExportStatusPending, stored.Status)

	w = doJSON(t, f.router, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/export", rec.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Len(t, f.queue.tasks, 1)
}

func TestEnqueueExportFailureReleasesGuard(t *testing.T) {
	f := newExportFixture(t)
	f.queue.err = errors.New("redis down")
	rec := seedResume(t, f.db, f.user.ID, "Jane Doe")

	w := doJSON(t, f.router, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/export", rec.ID), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Empty(t, f.guard.held)
}

func TestEnqueueExportMarksPendingBeforeEnqueue(t *testing.T) {
	f := newExportFixture(t)
	rec := seedResume(t, f.db, f.user.ID, "Jane Doe")

	var statusAtEnqueue string
	f.queue.onEnqueue = func() {
		var stored database.Resume
		require.NoError(t, f.db.First(&stored, rec.ID).Error)
		statusAtEnqueue = stored.Status
		// worker 抢先完成
		require.NoError(t, f.db.Model(&stored).Update("status", database.ExportStatusCompleted).Error)
	}

	w := doJSON(t, f.router, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/export", rec.ID), nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, database.ExportStatusPending, statusAtEnqueue)

	var stored database.Resume
	require.NoError(t, f.db.First(&stored, rec.ID).Error)
	assert.Equal(t, database.ExportStatusCompleted, stored.Status)
}

func TestEnqueueExportFailureRestoresStatus(t *testing.T) {
	f := newExportFixture(t)
	f.queue.err = errors.New("redis down")
	rec := seedResume(t, f.db, f.user.ID, "Jane Doe")
	require.NoError(t, f.db.Model(&rec).Update("status", database.ExportStatusCompleted).Error)

	w := doJSON(t, f.router, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/export", rec.ID), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var stored database.Resume
	require.NoError(t, f.db.First(&stored, rec.ID).Error)
	assert.Equal(t, database.ExportStatusCompleted, stored.Status)
	assert.Equal(t, 1, f.guard.released)
}

func TestGetDownloadLink(t *testing.T) {
	f := newExportFixture(t)
	rec := seedResume(t, f.db, f.user.ID, "Jane Doe")
	path := fmt.Sprintf("/v1/resumes/%d/download-link", rec.ID)

	w := doJSON(t, f.router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	require.NoError(t, f.db.Model(&rec).Update("status", database.ExportStatusFailed).Error)
	w = doJSON(t, f.router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	require.NoError(t, f.db.Model(&rec).Updates(map[string]any{
		"status":     database.ExportStatusCompleted,
		"pdf_url":    "exports/1/1/abc.pdf",
		"page_count": 2,
	}).Error)
	w = doJSON(t, f.router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody[struct {
		URL       string `json:"url"`
		Filename  string `json:"filename"`
		Pages     int    `json:"pages"`
		ExpiresIn int    `json:"expires_in"`
	}](t, w)
	assert.Equal(t, "https://storage.invalid/exports/1/1/abc.pdf", body.URL)
	assert.Equal(t, "Jane Doe.pdf", body.Filename)
	assert.Equal(t, 2, body.Pages)
	assert.Equal(t, 300, body.ExpiresIn)
	assert.Equal(t, "exports/1/1/abc.pdf", f.store.linkKey)
}
