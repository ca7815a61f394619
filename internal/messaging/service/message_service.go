package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/messaging/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	projectsdomain "github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
	usersdomain "github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

// Repository is implemented by *repository.MessageRepository.
type Repository interface {
	Create(ctx context.Context, m domain.Message) (domain.Message, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Message, error)
	MarkRead(ctx context.Context, id, recipient uuid.UUID) (bool, error)
	ListInbox(ctx context.Context, q domain.InboxQuery) ([]domain.Message, int, error)
	CountUnread(ctx context.Context, recipient uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (usersdomain.Account, error)
	ListByRole(ctx context.Context, role access.Role) ([]usersdomain.Account, error)
}

// Projects answers the audience questions; *repository.ProjectRepository
// from the projects package implements it.
type Projects interface {
	GetByID(ctx context.Context, id uuid.UUID) (projectsdomain.Project, error)
	IsClientOfArchitect(ctx context.Context, clientID, architectID uuid.UUID) (bool, error)
	ArchitectsOfClient(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error)
	ClientsOfArchitect(ctx context.Context, architectID uuid.UUID) ([]uuid.UUID, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, f projectsdomain.ListFilter) ([]projectsdomain.Project, int, error)
	ListAssigned(ctx context.Context, clientID uuid.UUID, f projectsdomain.ListFilter) ([]projectsdomain.Project, int, error)
	ListRecent(ctx context.Context, limit int) ([]projectsdomain.Project, error)
}

type CacheInvalidator interface {
	InvalidateUsers(ctx context.Context, ids ...uuid.UUID)
}

const (
	InboxPageSize  = 20
	projectChoices = 100
)

type MessageService struct {
	repo     Repository
	users    Accounts
	projects Projects
	cache    CacheInvalidator
	guard    *access.Guard
	log      *slog.Logger
}

func NewMessageService(repo Repository, users Accounts, projects Projects, cache CacheInvalidator, guard *access.Guard, logger *slog.Logger) *MessageService {
	return &MessageService{repo: repo, users: users, projects: projects, cache: cache, guard: guard, log: logger}
}

// checkRecipient applies the audience rules of the sender's role.
func (s *MessageService) checkRecipient(ctx context.Context, v *apperr.ValidationError, actor access.Actor, recipient uuid.UUID) error {
	acc, err := s.users.GetByID(ctx, recipient)
	if errors.Is(err, usersdomain.ErrUserNotFound) {
		v.Add("recipient", "unknown user")
		return nil
	}
	if err != nil {
		return err
	}

	switch actor.Role {
	case access.RoleAdmin:
		return nil
	case access.RoleClient:
		if acc.Profile.Role == access.RoleArchitect {
			ok, err := s.projects.IsClientOfArchitect(ctx, actor.UserID, recipient)
			if err != nil || ok {
				return err
			}
		}
		v.Add("recipient", "you can only write to the architects of your projects")
	case access.RoleArchitect:
		if acc.Profile.Role == access.RoleClient {
			ok, err := s.projects.IsClientOfArchitect(ctx, recipient, actor.UserID)
			if err != nil || ok {
				return err
			}
		}
		v.Add("recipient", "you can only write to the clients of your projects")
	}
	return nil
}

// checkProject requires the tagged project to be one the sender works on.
func (s *MessageService) checkProject(ctx context.Context, v *apperr.ValidationError, actor access.Actor, id uuid.UUID) error {
	p, err := s.projects.GetByID(ctx, id)
	if errors.Is(err, projectsdomain.ErrProjectNotFound) {
		v.Add("project", "unknown project")
		return nil
	}
	if err != nil {
		return err
	}
	switch {
	case actor.IsAdmin():
	case actor.Is(access.RoleArchitect) && p.OwnerID == actor.UserID:
	case actor.Is(access.RoleClient) && p.Assigned(actor.UserID):
	default:
		v.Add("project", "not one of your projects")
	}
	return nil
}

func (s *MessageService) Send(ctx context.Context, actor access.Actor, in domain.SendInput) (domain.Message, error) {
	if err := s.guard.RequireRoles("messages.send", actor, access.AllRoles()...).Err(); err != nil {
		return domain.Message{}, err
	}

	v := apperr.NewValidation()
	in = in.Normalize(v, actor.UserID)
	if !v.Has("recipient") {
		if err := s.checkRecipient(ctx, v, actor, in.RecipientID); err != nil {
			return domain.Message{}, err
		}
	}
	if in.ProjectID != nil {
		if err := s.checkProject(ctx, v, actor, *in.ProjectID); err != nil {
			return domain.Message{}, err
		}
	}
	if err := v.Err(); err != nil {
		return domain.Message{}, err
	}

	m, err := s.repo.Create(ctx, domain.Message{
		SenderID:    actor.UserID,
		RecipientID: in.RecipientID,
		ProjectID:   in.ProjectID,
		Subject:     in.Subject,
		Body:        in.Body,
	})
	if err != nil {
		return m, err
	}
	s.cache.InvalidateUsers(ctx, actor.UserID, in.RecipientID)
	return m, nil
}

// View returns a message to one of its parties. The recipient's first view
// marks it read before the message is returned.
func (s *MessageService) View(ctx context.Context, actor access.Actor, id uuid.UUID) (domain.Message, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return m, err
	}
	if err := s.guard.RequireMessageView("messages.view", actor, id.String(), m).Err(); err != nil {
		return domain.Message{}, err
	}
	if actor.UserID != m.RecipientID || m.IsRead {
		return m, nil
	}
	return s.markRead(ctx, m)
}

func (s *MessageService) markRead(ctx context.Context, m domain.Message) (domain.Message, error) {
	changed, err := s.repo.MarkRead(ctx, m.ID, m.RecipientID)
	if err != nil {
		return m, fmt.Errorf("mark read: %w", err)
	}
	if changed {
		s.cache.InvalidateUsers(ctx, m.RecipientID)
	}
	return s.repo.GetByID(ctx, m.ID)
}

func (s *MessageService) recipientOnly(ctx context.Context, op string, actor access.Actor, id uuid.UUID) (domain.Message, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return m, err
	}
	d := s.guard.Check(op, actor, id.String(), func() bool { return actor.UserID == m.RecipientID })
	return m, d.Err()
}

func (s *MessageService) MarkRead(ctx context.Context, actor access.Actor, id uuid.UUID) (domain.Message, error) {
	m, err := s.recipientOnly(ctx, "messages.mark_read", actor, id)
	if err != nil {
		return domain.Message{}, err
	}
	if m.IsRead {
		return m, nil
	}
	return s.markRead(ctx, m)
}

func (s *MessageService) Delete(ctx context.Context, actor access.Actor, id uuid.UUID) error {
	m, err := s.recipientOnly(ctx, "messages.delete", actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.InvalidateUsers(ctx, m.RecipientID)
	return nil
}

type InboxResult struct {
	Messages pagination.Page[domain.Message] `json:"messages"`
	Unread   int                             `json:"unread"`
	Filter   string                          `json:"filter"`
}

func (s *MessageService) Inbox(ctx context.Context, actor access.Actor, filter string, page pagination.Request) (InboxResult, error) {
	if err := s.guard.RequireRoles("messages.inbox", actor, access.AllRoles()...).Err(); err != nil {
		return InboxResult{}, err
	}
	filter = domain.CleanFilter(filter)
	items, total, err := s.repo.ListInbox(ctx, domain.InboxQuery{
		UserID: actor.UserID, Filter: filter, Limit: page.Limit(), Offset: page.Offset(),
	})
	if err != nil {
		return InboxResult{}, err
	}
	unread, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return InboxResult{}, err
	}
	return InboxResult{Messages: pagination.NewPage(items, page, total), Unread: unread, Filter: filter}, nil
}

// Contact is a user the actor may write to.
type Contact struct {
	ID       uuid.UUID   `json:"id"`
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
	Role     access.Role `json:"role"`
}

type ProjectChoice struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// ComposeOptions lists who the actor may write to and which projects a
// message may be tagged with.
type ComposeOptions struct {
	Recipients []Contact       `json:"recipients"`
	Projects   []ProjectChoice `json:"projects"`
}

func contact(a usersdomain.Account) Contact {
	return Contact{ID: a.ID, Username: a.Username, FullName: a.FullName(), Role: a.Profile.Role}
}

func (s *MessageService) Compose(ctx context.Context, actor access.Actor) (ComposeOptions, error) {
	if err := s.guard.RequireRoles("messages.compose", actor, access.AllRoles()...).Err(); err != nil {
		return ComposeOptions{}, err
	}
	opts := ComposeOptions{Recipients: []Contact{}, Projects: []ProjectChoice{}}

	var (
		ids      []uuid.UUID
		projects []projectsdomain.Project
		err      error
	)
	all := projectsdomain.ListFilter{Limit: projectChoices}
	switch actor.Role {
	case access.RoleAdmin:
		for _, role := range access.AllRoles() {
			accs, err := s.users.ListByRole(ctx, role)
			if err != nil {
				return opts, err
			}
			for _, a := range accs {
				if a.ID != actor.UserID {
					opts.Recipients = append(opts.Recipients, contact(a))
				}
			}
		}
		projects, err = s.projects.ListRecent(ctx, projectChoices)
	case access.RoleArchitect:
		if ids, err = s.projects.ClientsOfArchitect(ctx, actor.UserID); err == nil {
			projects, _, err = s.projects.ListByOwner(ctx, actor.UserID, all)
		}
	case access.RoleClient:
		if ids, err = s.projects.ArchitectsOfClient(ctx, actor.UserID); err == nil {
			projects, _, err = s.projects.ListAssigned(ctx, actor.UserID, all)
		}
	}
	if err != nil {
		return opts, err
	}

	for _, id := range ids {
		a, err := s.users.GetByID(ctx, id)
		if err != nil {
			return opts, err
		}
		opts.Recipients = append(opts.Recipients, contact(a))
	}
	for _, p := range projects {
		opts.Projects = append(opts.Projects, ProjectChoice{ID: p.ID, Title: p.Title})
	}
	return opts, nil
}
