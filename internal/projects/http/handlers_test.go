package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/logging"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	"github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/projects/service"
)

type stubService struct {
	filter    domain.BrowseFilter
	page      pagination.Request
	viewer    string
	viewErr   error
	created   domain.ProjectInput
	upload    string
	caption   string
	main      bool
	mainImage uuid.UUID
	featured  uuid.UUID
}

func (s *stubService) Create(_ context.Context, a access.Actor, in domain.ProjectInput) (domain.Project, error) {
	s.created = in
	v := apperr.NewValidation()
	in.Normalize(v)
	if err := v.Err(); err != nil {
		return domain.Project{}, err
	}
	return domain.Project{Title: in.Title, OwnerID: a.UserID}, nil
}

func (s *stubService) Update(_ context.Context, _ access.Actor, slug string, in domain.ProjectInput) (domain.Project, error) {
	return domain.Project{Slug: slug, Title: in.Title}, nil
}

func (s *stubService) Delete(context.Context, access.Actor, string) error { return nil }

func (s *stubService) View(_ context.Context, _ access.Actor, slug, viewer string) (domain.Detail, error) {
	s.viewer = viewer
	if s.viewErr != nil {
		return domain.Detail{}, s.viewErr
	}
	return domain.Detail{
		Project: domain.Project{Slug: slug, CoverKey: "projects/p/a.jpg"},
		Images: []domain.Image{
			{StorageKey: "projects/p/a.jpg"},
			{StorageKey: "projects/p/b.jpg", IsMain: true},
		},
	}, nil
}

func (s *stubService) Browse(_ context.Context, f domain.BrowseFilter, page pagination.Request) (service.BrowseResult, error) {
	s.filter, s.page = f, page
	return service.BrowseResult{
		Projects: pagination.NewPage([]domain.Project{{Title: "Casa"}}, page, 1),
		Filter:   f.Clean(),
	}, nil
}

func (s *stubService) ToggleFeatured(_ context.Context, _ access.Actor, id uuid.UUID) (domain.Project, error) {
	s.featured = id
	return domain.Project{ID: id, IsFeatured: true}, nil
}

func (s *stubService) UploadImage(_ context.Context, _ access.Actor, _ string, filename string, body io.Reader, caption string, main bool) (domain.Image, error) {
	b, _ := io.ReadAll(body)
	s.upload, s.caption, s.main = filename+":"+string(b), caption, main
	return domain.Image{StorageKey: "projects/p/" + filename, IsMain: main}, nil
}

func (s *stubService) SetMainImage(_ context.Context, _ access.Actor, _ string, id uuid.UUID) (domain.Image, error) {
	s.mainImage = id
	return domain.Image{ID: id, IsMain: true}, nil
}

func (s *stubService) DeleteImage(context.Context, access.Actor, string, uuid.UUID) error { return nil }

func (s *stubService) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return "https://cdn/" + key
}

func newRouter(svc Service, actor *access.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("", func(c *gin.Context) {
		if actor != nil {
			access.SetActor(c, *actor)
		}
		c.Next()
	})
	New(svc, access.NewGuard(logging.Discard())).Register(api)
	return r
}

func do(r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return rr, body
}

func TestBrowse_Query(t *testing.T) {
	svc := &stubService{}
	rr, body := do(newRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/projects?category=urban&search=lago&sort=popular&page=3", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, domain.CategoryUrban, svc.filter.Category)
	assert.Equal(t, "lago", svc.filter.Search)
	assert.Equal(t, domain.SortPopular, svc.filter.Sort)
	assert.Equal(t, pagination.New(3, service.BrowsePageSize), svc.page)

	projects := body["projects"].(map[string]any)
	assert.Equal(t, float64(1), projects["total"])
	assert.Len(t, projects["items"], 1)
}

func TestView_AnonymousViewerAndImages(t *testing.T) {
	svc := &stubService{}
	req := httptest.NewRequest(http.MethodGet, "/projects/casa", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	rr, body := do(newRouter(svc, nil), req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "anon:10.0.0.7", svc.viewer)

	p := body["project"].(map[string]any)
	assert.Equal(t, "https://cdn/projects/p/a.jpg", p["cover_url"])
	assert.Equal(t, "https://cdn/projects/p/b.jpg", p["main_image"].(map[string]any)["url"])
	assert.Len(t, p["images"], 2)

	actor := access.Actor{UserID: uuid.New(), Role: access.RoleClient}
	_, _ = do(newRouter(svc, &actor), httptest.NewRequest(http.MethodGet, "/projects/casa", nil))
	assert.Equal(t, "user:"+actor.UserID.String(), svc.viewer)
}

func TestView_UnpublishedNeedsLogin(t *testing.T) {
	svc := &stubService{viewErr: apperr.ErrAuthenticationRequired}
	rr, body := do(newRouter(svc, nil), httptest.NewRequest(http.MethodGet, "/projects/secreto", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "/login?next=%2Fprojects%2Fsecreto", body["login_url"])
}

func TestCreate_RoleAndValidation(t *testing.T) {
	client := access.Actor{UserID: uuid.New(), Role: access.RoleClient}
	rr, _ := do(newRouter(&stubService{}, &client), httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"title":"x"}`)))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr, _ = do(newRouter(&stubService{}, nil), httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"title":"x"}`)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	arch := access.Actor{UserID: uuid.New(), Role: access.RoleArchitect}
	svc := &stubService{}
	r := newRouter(svc, &arch)

	rr, body := do(r, httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"title":"","area":-1,"start_date":"2024-02-01","end_date":"2024-01-01"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	fields := body["fields"].(map[string]any)
	for _, f := range []string{"title", "description", "area", "end_date"} {
		assert.Contains(t, fields, f)
	}

	rr, _ = do(r, httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`{"title":"Casa","description":"d","clients":["`+client.UserID.String()+`"]}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, []uuid.UUID{client.UserID}, svc.created.ClientIDs)

	rr, _ = do(r, httptest.NewRequest(http.MethodPost, "/projects", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUploadImage(t *testing.T) {
	arch := access.Actor{UserID: uuid.New(), Role: access.RoleArchitect}
	svc := &stubService{}
	r := newRouter(svc, &arch)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "frente.jpg")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("jpg"))
	require.NoError(t, mw.WriteField("caption", "Frente"))
	require.NoError(t, mw.WriteField("is_main", "true"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/projects/casa/images", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr, body := do(r, req)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "frente.jpg:jpg", svc.upload)
	assert.Equal(t, "Frente", svc.caption)
	assert.True(t, svc.main)
	assert.Equal(t, "https://cdn/projects/p/frente.jpg", body["image"].(map[string]any)["url"])

	rr, _ = do(r, httptest.NewRequest(http.MethodPost, "/projects/casa/images", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestImageRoutes(t *testing.T) {
	arch := access.Actor{UserID: uuid.New(), Role: access.RoleArchitect}
	svc := &stubService{}
	r := newRouter(svc, &arch)

	id := uuid.New()
	rr, _ := do(r, httptest.NewRequest(http.MethodPatch, "/projects/casa/images/"+id.String()+"/main", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, svc.mainImage)

	rr, _ = do(r, httptest.NewRequest(http.MethodDelete, "/projects/casa/images/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestToggleFeatured_AdminOnly(t *testing.T) {
	id := uuid.New()
	arch := access.Actor{UserID: uuid.New(), Role: access.RoleArchitect}
	rr, body := do(newRouter(&stubService{}, &arch), httptest.NewRequest(http.MethodPost, "/admin/projects/"+id.String()+"/featured", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "/dashboard", body["redirect"])

	admin := access.Actor{UserID: uuid.New(), Role: access.RoleAdmin}
	svc := &stubService{}
	rr, _ = do(newRouter(svc, &admin), httptest.NewRequest(http.MethodPost, "/admin/projects/"+id.String()+"/featured", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, id, svc.featured)
}
