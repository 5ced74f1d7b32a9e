package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"resumeBuilder/internal/database"
	"resumeBuilder/internal/resume"
	"resumeBuilder/internal/storage"
)

func newResumeRouter(t *testing.T, db *gorm.DB, store *fakeStore, userID uint, maxResumes int) *gin.Engine {
	t.Helper()
	h := NewResumeHandler(db, store, nil, slog.Default(), maxResumes)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	g := r.Group("/v1/resumes", asUser(userID))
	g.GET("", h.ListResumes)
	g.POST("", h.CreateResume)
	g.GET("/latest", h.GetLatestResume)
	g.POST("/import", h.ImportJSON)
	g.GET("/:id", h.GetResume)
	g.PUT("/:id", h.UpdateResume)
	g.DELETE("/:id", h.DeleteResume)
	g.POST("/:id/duplicate", h.DuplicateResume)
	g.GET("/:id/json", h.ExportJSON)
	return r
}

type listItem struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

func TestCreateAndGetResume(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 0)

	doc := validDocument("  Backend Engineer ")
	doc.Education = []resume.Education{{}, {Institution: "MIT"}}
	doc.TemplateID = ""

	w := doJSON(t, r, http.MethodPost, "/v1/resumes", doc)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decodeBody[resumeResponse](t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Backend Engineer", created.Title)
	assert.Equal(t, resume.DefaultTemplateID, created.TemplateID)
	assert.Len(t, created.Education, 1, "blank entries are pruned on save")

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/v1/resumes/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeBody[resumeResponse](t, w)
	assert.Equal(t, "Backend Engineer", got.Title)
	assert.Equal(t, "jane@example.com", got.PersonalInfo.Email)

	var stored database.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.NotNil(t, stored.ActiveResumeID)
	assert.Equal(t, created.ID, *stored.ActiveResumeID)
}

func TestCreateResumeValidation(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 0)

	doc := validDocument("")
	doc.PersonalInfo.Email = "not-an-email"

	w := doJSON(t, r, http.MethodPost, "/v1/resumes", doc)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeBody[struct {
		Error    string   `json:"error"`
		Problems []string `json:"problems"`
	}](t, w)
	assert.Equal(t, "validation failed", body.Error)
	assert.ElementsMatch(t, []string{"resume title is required", "valid email is required"}, body.Problems)
}

func TestCreateResumeLimit(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	seedResume(t, db, user.ID, "One")
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 1)

	w := doJSON(t, r, http.MethodPost, "/v1/resumes", validDocument("Two"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListResumesSearchAndSort(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	other := seedUser(t, db, "john")
	seedResume(t, db, user.ID, "Data Engineer")
	seedResume(t, db, user.ID, "backend engineer")
	seedResume(t, db, user.ID, "Designer")
	seedResume(t, db, other.ID, "Engineer elsewhere")
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 0)

	w := doJSON(t, r, http.MethodGet, "/v1/resumes?q=ENGINEER&sort=title", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items := decodeBody[[]listItem](t, w)
	require.Len(t, items, 2)
	assert.Equal(t, "backend engineer", items[0].Title)
	assert.Equal(t, "Data Engineer", items[1].Title)

	w = doJSON(t, r, http.MethodGet, "/v1/resumes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	items = decodeBody[[]listItem](t, w)
	require.Len(t, items, 3)
	assert.Equal(t, "Designer", items[0].Title, "newest first")

	w = doJSON(t, r, http.MethodGet, "/v1/resumes?sort=size", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListResumesSearchIsLiteral(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	seedResume(t, db, user.ID, "50% Remote")
	seedResume(t, db, user.ID, "500 Startups")
	seedResume(t, db, user.ID, "go_dev")
	seedResume(t, db, user.ID, "goxdev")
	seedResume(t, db, user.ID, `C:\Users`)
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 0)

	cases := []struct {
		q    string
		want []string
	}{
		{"50%", []string{"50% Remote"}},
		{"_", []string{"go_dev"}},
		{`\`, []string{`C:\Users`}},
		{"%", []string{"50% Remote"}},
	}
	for _, tc := range cases {
		w := doJSON(t, r, http.MethodGet, "/v1/resumes?sort=title&q="+url.QueryEscape(tc.q), nil)
		require.Equal(t, http.StatusOK, w.Code, tc.q)
		var titles []string
		for _, it := range decodeBody[[]listItem](t, w) {
			titles = append(titles, it.Title)
		}
		assert.Equal(t, tc.want, titles, tc.q)
	}
}

func TestGetResumeOfAnotherUser(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	other := seedUser(t, db, "john")
	rec := seedResume(t, db, other.ID, "Private")
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 0)

	w := doJSON(t, r, http.MethodGet, fmt.Sprintf("/v1/resumes/%d", rec.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/resumes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateResume(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	rec := seedResume(t, db, user.ID, "Old")
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 0)

	doc := validDocument("New")
	doc.TemplateID = "modern"
	doc.Language = resume.Vietnamese
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/v1/resumes/%d", rec.ID), doc)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stored database.Resume
	require.NoError(t, db.First(&stored, rec.ID).Error)
	assert.Equal(t, "New", stored.Title)
	assert.Equal(t, "modern", stored.TemplateID)
	assert.Equal(t, "vi", stored.Language)

	doc.Title = ""
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/v1/resumes/%d", rec.ID), doc)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteResumeRemovesExports(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	keep := seedResume(t, db, user.ID, "Keep")
	gone := seedResume(t, db, user.ID, "Gone")
	store := &fakeStore{}
	r := newResumeRouter(t, db, store, user.ID, 0)

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/v1/resumes/%d", gone.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{storage.ExportPrefix(user.ID, gone.ID)}, store.deletedPrefixes)

	var count int64
	require.NoError(t, db.Model(&database.Resume{}).Where("id = ?", gone.ID).Count(&count).Error)
	assert.Zero(t, count)

	var stored database.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	require.NotNil(t, stored.ActiveResumeID)
	assert.Equal(t, keep.ID, *stored.ActiveResumeID)
}

func TestDuplicateResume(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	rec := seedResume(t, db, user.ID, "Original")
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 0)

	w := doJSON(t, r, http.MethodPost, fmt.Sprintf("/v1/resumes/%d/duplicate", rec.ID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	dup := decodeBody[resumeResponse](t, w)
	assert.NotEqual(t, rec.ID, dup.ID)
	assert.Equal(t, "Original (Copy)", dup.Title)
	assert.Equal(t, []string{"Go", "SQL"}, dup.Skills)
}

func TestGetLatestResume(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "jane")
	r := newResumeRouter(t, db, &fakeStore{}, user.ID, 0)

	w := doJSON(t, r, http.MethodGet, "/v1/resumes/latest?lang=vi", nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decodeBody[resumeResponse](t, w)
	assert.Zero(t, empty.ID)
	assert.Equal(t, resume.Vietnamese, empty.Language)
	assert.Equal(t, resume.Label(resume.Vietnamese, resume.LabelUntitled), empty.Title)

	rec := seedResume(t, db, user.ID, "Mine")
	w = doJSON(t, r, http.MethodGet, "/v1/resumes/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	latest := decodeBody[resumeResponse](t, w)
	assert.Equal(t, rec.ID, latest.ID)
	assert.Equal(t, "Mine", latest.Title)
}
