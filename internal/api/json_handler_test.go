package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
)

type fakeScanner struct {
	err     error
	scanned int
}

func (s *fakeScanner) Scan(r io.Reader) error {
	_, _ = io.Copy(io.Discard, r)
	s.scanned++
	return s.err
}

func multipartUpload(t *testing.T, path string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "resume.json")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newImportRouter(h *ResumeHandler, userID uint) *gin.Engine {
	r := gin.New()
	r.POST("/import", asUser(userID), h.ImportJSON)
	r.GET("/:id/json", asUser(userID), h.ExportJSON)
	return r
}

func TestExportJSON(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	rec := seedResume(t, db, user.ID, "Jane: Resume")
	r := newImportRouter(NewResumeHandler(db, &fakeStore{}, nil, slog.Default(), 0), user.ID)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/%d/json", rec.ID), nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="Jane Resume.json"`)

	doc, err := resume.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Jane: Resume", doc.Title)
	assert.Equal(t, "Jane Doe", doc.PersonalInfo.Name)
}

func TestImportJSONRoundTrip(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	scanner := &fakeScanner{}
	r := newImportRouter(NewResumeHandler(db, &fakeStore{}, scanner, slog.Default(), 0), user.ID)

	data, err := resume.Encode(validDocument("Imported"))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartUpload(t, "/import", data))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, scanner.scanned)

	var count int64
	require.NoError(t, db.Model(&database.Resume{}).Where("user_id = ? AND title = ?", user.ID, "Imported").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestImportJSONRejects(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")

	cases := []struct {
		name    string
		content []byte
		scanErr error
		status  int
	}{
		{name: "not json", content: []byte("{oops"), status: http.StatusBadRequest},
		{name: "schema mismatch", content: []byte(`{"title": 42, "personalInfo": {}}`), status: http.StatusBadRequest},
		{name: "validation", content: []byte(`{"title": "x", "personalInfo": {"name": ""}}`), status: http.StatusBadRequest},
		{name: "malicious", content: []byte(`{}`), scanErr: ErrMalicious, status: http.StatusBadRequest},
		{name: "scanner down", content: []byte(`{}`), scanErr: io.ErrUnexpectedEOF, status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewResumeHandler(db, &fakeStore{}, &fakeScanner{err: tc.scanErr}, slog.Default(), 0)
			w := httptest.NewRecorder()
			newImportRouter(h, user.ID).ServeHTTP(w, multipartUpload(t, "/import", tc.content))
			assert.Equal(t, tc.status, w.Code, w.Body.String())
		})
	}

	var count int64
	require.NoError(t, db.Model(&database.Resume{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImportJSONMissingFile(t *testing.T) {
	db := newTestDB(t)
	r := newImportRouter(NewResumeHandler(db, &fakeStore{}, nil, slog.Default(), 0), 1)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/import", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
