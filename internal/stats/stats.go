// Package stats computes the per-role dashboard figures and caches them in
// Redis together with the published category counts.
package stats

import (
	"context"
	"time"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	projectsdomain "github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
)

// Counter names. Which ones are present depends on the role.
const (
	TotalUsers         = "total_users"
	TotalProjects      = "total_projects"
	PublishedProjects  = "published_projects"
	DraftProjects      = "draft_projects"
	InProgressProjects = "in_progress_projects"
	CompletedProjects  = "completed_projects"
	AssignedProjects   = "assigned_projects"
	TotalClients       = "total_clients"
	TotalViews         = "total_views"
	NewProjectsMonth   = "new_projects_month"
	TotalMessages      = "total_messages"
	UnreadMessages     = "unread_messages"
)

type Stats struct {
	Role        access.Role    `json:"role"`
	MemberSince time.Time      `json:"member_since"`
	Counts      map[string]int `json:"counts"`
}

// Source computes statistics from the primary store.
type Source interface {
	UserStats(ctx context.Context, actor access.Actor) (Stats, error)
	CategoryCounts(ctx context.Context) ([]projectsdomain.Count, error)
}
