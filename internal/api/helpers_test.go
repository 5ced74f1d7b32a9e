package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string) database.User {
	t.Helper()
	user := database.User{Username: username, PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedResume(t *testing.T, db *gorm.DB, userID uint, title string) database.Resume {
	t.Helper()
	rec := database.Resume{UserID: userID}
	require.NoError(t, rec.SetDocument(validDocument(title)))
	require.NoError(t, db.Create(&rec).Error)
	return rec
}

func validDocument(title string) *resume.Document {
	doc := resume.New(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	doc.Title = title
	doc.PersonalInfo = resume.PersonalInfo{Name: "Jane Doe", Email: "jane@example.com"}
	doc.Skills = []string{"Go", "SQL"}
	return doc
}

// asUser 模拟 AuthMiddleware 注入的用户。
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

type fakeStore struct {
	deletedPrefixes []string
	linkKey         string
	linkFilename    string
	err             error
}

func (s *fakeStore) DeletePrefix(_ context.Context, prefix string) error {
	s.deletedPrefixes = append(s.deletedPrefixes, prefix)
	return s.err
}

func (s *fakeStore) GenerateDownloadURL(_ context.Context, key, filename string, _ time.Duration) (string, error) {
	s.linkKey, s.linkFilename = key, filename
	if s.err != nil {
		return "", s.err
	}
	return "https://storage.invalid/" + key, nil
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
