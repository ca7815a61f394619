package http

import (
	"context"
	"encoding/json"
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
	"github.com/vulcano-studio/vulcano-backend/internal/messaging/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/messaging/service"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
)

type stubService struct {
	sent    []domain.SendInput
	filter  string
	viewErr error
}

func (s *stubService) Send(_ context.Context, a access.Actor, in domain.SendInput) (domain.Message, error) {
	v := apperr.NewValidation()
	in = in.Normalize(v, a.UserID)
	if err := v.Err(); err != nil {
		return domain.Message{}, err
	}
	s.sent = append(s.sent, in)
	return domain.Message{SenderID: a.UserID, RecipientID: in.RecipientID, Subject: in.Subject}, nil
}

func (s *stubService) View(_ context.Context, _ access.Actor, id uuid.UUID) (domain.Message, error) {
	return domain.Message{ID: id, IsRead: true}, s.viewErr
}

func (s *stubService) MarkRead(_ context.Context, _ access.Actor, id uuid.UUID) (domain.Message, error) {
	return domain.Message{ID: id, IsRead: true}, nil
}

func (s *stubService) Delete(context.Context, access.Actor, uuid.UUID) error { return nil }

func (s *stubService) Inbox(_ context.Context, _ access.Actor, filter string, page pagination.Request) (service.InboxResult, error) {
	s.filter = filter
	return service.InboxResult{Messages: pagination.NewPage([]domain.Message{{Subject: "Hola"}}, page, 1), Unread: 3, Filter: domain.CleanFilter(filter)}, nil
}

func (s *stubService) Compose(context.Context, access.Actor) (service.ComposeOptions, error) {
	return service.ComposeOptions{Recipients: []service.Contact{{Username: "ana", Role: access.RoleArchitect}}}, nil
}

func newRouter(svc Service, actor *access.Actor, limits ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("", func(c *gin.Context) {
		if actor != nil {
			access.SetActor(c, *actor)
		}
		c.Next()
	})
	New(svc, access.NewGuard(logging.Discard())).Register(api, limits...)
	return r
}

func do(r *gin.Engine, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	var body map[string]any
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	return rr, body
}

func TestMessages_RequireLogin(t *testing.T) {
	rr, body := do(newRouter(&stubService{}, nil), httptest.NewRequest(http.MethodGet, "/messages?filter=unread", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "/login?next=%2Fmessages%3Ffilter%3Dunread", body["login_url"])
}

func TestInbox(t *testing.T) {
	actor := access.Actor{UserID: uuid.New(), Role: access.RoleClient}
	svc := &stubService{}
	rr, body := do(newRouter(svc, &actor), httptest.NewRequest(http.MethodGet, "/messages?filter=sent", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "sent", svc.filter)
	assert.Equal(t, float64(3), body["unread"])
	assert.Equal(t, "sent", body["filter"])
}

func TestSend(t *testing.T) {
	actor := access.Actor{UserID: uuid.New(), Role: access.RoleArchitect}
	svc := &stubService{}
	r := newRouter(svc, &actor)

	to := uuid.New()
	rr, _ := do(r, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"recipient":"`+to.String()+`","subject":"Hola","body":"Texto"}`)))
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Len(t, svc.sent, 1)
	assert.Equal(t, to, svc.sent[0].RecipientID)

	rr, body := do(r, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{"subject":""}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	fields := body["fields"].(map[string]any)
	assert.Contains(t, fields, "recipient")
	assert.Contains(t, fields, "subject")
	assert.Contains(t, fields, "body")
}

func TestSend_LimitRunsOnlyOnPost(t *testing.T) {
	actor := access.Actor{UserID: uuid.New(), Role: access.RoleClient}
	deny := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"ok": false})
	}
	r := newRouter(&stubService{}, &actor, deny)

	rr, _ := do(r, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr, _ = do(r, httptest.NewRequest(http.MethodGet, "/messages", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestView(t *testing.T) {
	actor := access.Actor{UserID: uuid.New(), Role: access.RoleClient}
	svc := &stubService{}
	r := newRouter(svc, &actor)

	rr, body := do(r, httptest.NewRequest(http.MethodGet, "/messages/"+uuid.NewString(), nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["message"].(map[string]any)["is_read"])

	rr, _ = do(r, httptest.NewRequest(http.MethodGet, "/messages/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	svc.viewErr = apperr.ErrPermissionDenied
	rr, body = do(r, httptest.NewRequest(http.MethodGet, "/messages/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "/dashboard", body["redirect"])
}

func TestComposeAndMarkRead(t *testing.T) {
	actor := access.Actor{UserID: uuid.New(), Role: access.RoleClient}
	r := newRouter(&stubService{}, &actor)

	rr, body := do(r, httptest.NewRequest(http.MethodGet, "/messages/compose", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, body["recipients"], 1)

	rr, _ = do(r, httptest.NewRequest(http.MethodPost, "/messages/"+uuid.NewString()+"/read", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = do(r, httptest.NewRequest(http.MethodDelete, "/messages/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
