// Package dashboard assembles the landing page each role sees after login.
package dashboard

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	messagingdomain "github.com/vulcano-studio/vulcano-backend/internal/messaging/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	projectsdomain "github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/stats"
	usersdomain "github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

const (
	RecentCount      = 5
	TopCategoryCount = 5
	PortalPageSize   = 9
)

type Stats interface {
	UserStats(ctx context.Context, actor access.Actor) (stats.Stats, error)
	CategoryCounts(ctx context.Context) ([]projectsdomain.Count, error)
}

type Projects interface {
	ListRecent(ctx context.Context, limit int) ([]projectsdomain.Project, error)
	CountByStatus(ctx context.Context) ([]projectsdomain.Count, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, f projectsdomain.ListFilter) ([]projectsdomain.Project, int, error)
	ListAssigned(ctx context.Context, clientID uuid.UUID, f projectsdomain.ListFilter) ([]projectsdomain.Project, int, error)
}

type Users interface {
	ListRecent(ctx context.Context, limit int) ([]usersdomain.Account, error)
}

type Messages interface {
	ListRecent(ctx context.Context, limit int) ([]messagingdomain.Message, error)
	ListRecentFor(ctx context.Context, userID uuid.UUID, limit int) ([]messagingdomain.Message, error)
}

// Portal is the union of what the three role dashboards show. Fields that
// do not apply to the caller's role stay empty.
type Portal struct {
	Role           access.Role                              `json:"role"`
	Stats          stats.Stats                              `json:"stats"`
	RecentMessages []messagingdomain.Message                `json:"recent_messages"`
	RecentProjects []projectsdomain.Project                 `json:"recent_projects,omitempty"`
	RecentUsers    []usersdomain.Account                    `json:"recent_users,omitempty"`
	ByStatus       []projectsdomain.Count                   `json:"projects_by_status,omitempty"`
	TopCategories  []projectsdomain.Count                   `json:"top_categories,omitempty"`
	Projects       *pagination.Page[projectsdomain.Project] `json:"projects,omitempty"`
	StatusFilter   projectsdomain.Status                    `json:"status_filter,omitempty"`
}

type Service struct {
	stats    Stats
	projects Projects
	users    Users
	messages Messages
	log      *slog.Logger
}

func NewService(st Stats, projects Projects, users Users, messages Messages, logger *slog.Logger) *Service {
	return &Service{stats: st, projects: projects, users: users, messages: messages, log: logger}
}

// Portal builds the dashboard for actor. status narrows the project list of
// architects and clients; an unknown value means all statuses.
func (s *Service) Portal(ctx context.Context, actor access.Actor, status string, page pagination.Request) (Portal, error) {
	if !actor.Authenticated() {
		return Portal{}, apperr.ErrAuthenticationRequired
	}

	st, err := s.stats.UserStats(ctx, actor)
	if err != nil {
		return Portal{}, err
	}
	p := Portal{Role: actor.Role, Stats: st}

	switch actor.Role {
	case access.RoleAdmin:
		err = s.admin(ctx, &p)
	case access.RoleArchitect:
		err = s.scoped(ctx, actor, &p, projectsdomain.Status(status), page, s.projects.ListByOwner)
	case access.RoleClient:
		err = s.scoped(ctx, actor, &p, projectsdomain.Status(status), page, s.projects.ListAssigned)
	default:
		return Portal{}, apperr.ErrPermissionDenied
	}
	if err != nil {
		return Portal{}, err
	}
	if p.RecentMessages == nil {
		p.RecentMessages = []messagingdomain.Message{}
	}
	return p, nil
}

func (s *Service) admin(ctx context.Context, p *Portal) error {
	var err error
	if p.RecentProjects, err = s.projects.ListRecent(ctx, RecentCount); err != nil {
		return err
	}
	if p.RecentUsers, err = s.users.ListRecent(ctx, RecentCount); err != nil {
		return err
	}
	if p.RecentMessages, err = s.messages.ListRecent(ctx, RecentCount); err != nil {
		return err
	}
	if p.ByStatus, err = s.projects.CountByStatus(ctx); err != nil {
		return err
	}

	cats, err := s.stats.CategoryCounts(ctx)
	if err != nil {
		return err
	}
	p.TopCategories = topCounts(cats, TopCategoryCount)
	return nil
}

type scopedList func(ctx context.Context, userID uuid.UUID, f projectsdomain.ListFilter) ([]projectsdomain.Project, int, error)

func (s *Service) scoped(ctx context.Context, actor access.Actor, p *Portal, status projectsdomain.Status, page pagination.Request, list scopedList) error {
	if !status.Valid() {
		status = ""
	}
	page.Size = PortalPageSize

	items, total, err := list(ctx, actor.UserID, projectsdomain.ListFilter{
		Status: status, Limit: page.Limit(), Offset: page.Offset(),
	})
	if err != nil {
		return err
	}
	pg := pagination.NewPage(items, page, total)
	p.Projects = &pg
	p.StatusFilter = status

	p.RecentMessages, err = s.messages.ListRecentFor(ctx, actor.UserID, RecentCount)
	return err
}

// topCounts returns the n largest counts, ties broken by key.
func topCounts(in []projectsdomain.Count, n int) []projectsdomain.Count {
	out := make([]projectsdomain.Count, 0, len(in))
	for _, c := range in {
		if c.Count > 0 {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
