package http

import (
	"context"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/messaging/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/messaging/service"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
)

// Service is implemented by *service.MessageService.
type Service interface {
	Send(ctx context.Context, actor access.Actor, in domain.SendInput) (domain.Message, error)
	View(ctx context.Context, actor access.Actor, id uuid.UUID) (domain.Message, error)
	MarkRead(ctx context.Context, actor access.Actor, id uuid.UUID) (domain.Message, error)
	Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error
	Inbox(ctx context.Context, actor access.Actor, filter string, page pagination.Request) (service.InboxResult, error)
	Compose(ctx context.Context, actor access.Actor) (service.ComposeOptions, error)
}

type Handler struct {
	svc   Service
	guard *access.Guard
}

func New(svc Service, guard *access.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}
