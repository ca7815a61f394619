package http

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	"github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

// Service is implemented by *service.UserService.
type Service interface {
	Register(ctx context.Context, id domain.Identity, in domain.RegisterInput) (domain.Account, error)
	Me(ctx context.Context, actor access.Actor) (domain.Account, error)
	UpdateProfile(ctx context.Context, actor access.Actor, in domain.ProfileUpdate) (domain.Account, error)
	SetAvatar(ctx context.Context, actor access.Actor, filename string, body io.Reader) (domain.Account, error)
	AvatarURL(key string) string
	List(ctx context.Context, actor access.Actor, role access.Role, search string, page pagination.Request) (pagination.Page[domain.Account], error)
	SetRole(ctx context.Context, actor access.Actor, target uuid.UUID, role access.Role) (domain.Account, error)
	Delete(ctx context.Context, actor access.Actor, target uuid.UUID, transferTo *uuid.UUID) error
}

type Handler struct {
	svc   Service
	guard *access.Guard
}

func New(svc Service, guard *access.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

type accountView struct {
	domain.Account
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

func (h *Handler) view(a domain.Account) accountView {
	return accountView{Account: a, FullName: a.FullName(), AvatarURL: h.svc.AvatarURL(a.Profile.AvatarKey)}
}

type setRoleReq struct {
	Role string `json:"role"`
}
