package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	projectsdomain "github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
)

type PostgresSource struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: db, now: time.Now}
}

// scanCounts runs a single-row query and stores each column under the
// matching name.
func (s *PostgresSource) scanCounts(ctx context.Context, into map[string]int, names []string, q string, args ...any) error {
	vals := make([]int, len(names))
	dest := make([]any, len(names))
	for i := range vals {
		dest[i] = &vals[i]
	}
	if err := s.db.QueryRow(ctx, q, args...).Scan(dest...); err != nil {
		return err
	}
	for i, n := range names {
		into[n] = vals[i]
	}
	return nil
}

func (s *PostgresSource) UserStats(ctx context.Context, actor access.Actor) (Stats, error) {
	st := Stats{Role: actor.Role, Counts: map[string]int{}}
	err := s.db.QueryRow(ctx, `SELECT date_joined FROM users WHERE id = $1;`, actor.UserID).Scan(&st.MemberSince)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, fmt.Errorf("user %s: %w", actor.UserID, apperr.ErrNotFound)
	}
	if err != nil {
		return st, err
	}

	switch actor.Role {
	case access.RoleAdmin:
		err = s.adminCounts(ctx, st.Counts, actor.UserID)
	case access.RoleArchitect:
		err = s.architectCounts(ctx, st.Counts, actor.UserID)
	case access.RoleClient:
		err = s.clientCounts(ctx, st.Counts, actor.UserID)
	default:
		err = fmt.Errorf("no statistics for role %q", actor.Role)
	}
	return st, err
}

func (s *PostgresSource) adminCounts(ctx context.Context, into map[string]int, id uuid.UUID) error {
	const q = `
SELECT
  (SELECT COUNT(*) FROM profiles),
  (SELECT COUNT(*) FROM projects),
  (SELECT COUNT(*) FROM projects WHERE is_published),
  (SELECT COUNT(*) FROM messages),
  (SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND NOT is_read);`
	return s.scanCounts(ctx, into,
		[]string{TotalUsers, TotalProjects, PublishedProjects, TotalMessages, UnreadMessages}, q, id)
}

func (s *PostgresSource) architectCounts(ctx context.Context, into map[string]int, id uuid.UUID) error {
	const q = `
SELECT
  COUNT(*),
  COUNT(*) FILTER (WHERE p.is_published),
  COUNT(*) FILTER (WHERE NOT p.is_published),
  COUNT(*) FILTER (WHERE p.status = 'in_progress'),
  COUNT(*) FILTER (WHERE p.status = 'completed'),
  (SELECT COUNT(DISTINCT pc.client_id) FROM project_clients pc JOIN projects o ON o.id = pc.project_id WHERE o.owner_id = $1),
  (SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND NOT is_read),
  COALESCE(SUM(p.views_count), 0),
  COUNT(*) FILTER (WHERE p.created_at >= $2)
FROM projects p
WHERE p.owner_id = $1;`
	names := []string{
		TotalProjects, PublishedProjects, DraftProjects, InProgressProjects, CompletedProjects,
		TotalClients, UnreadMessages, TotalViews, NewProjectsMonth,
	}
	return s.scanCounts(ctx, into, names, q, id, s.now().AddDate(0, 0, -30))
}

func (s *PostgresSource) clientCounts(ctx context.Context, into map[string]int, id uuid.UUID) error {
	const q = `
SELECT
  COUNT(p.id),
  COUNT(p.id) FILTER (WHERE p.status = 'completed'),
  COUNT(p.id) FILTER (WHERE p.status = 'in_progress'),
  (SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND NOT is_read)
FROM project_clients pc
JOIN projects p ON p.id = pc.project_id
WHERE pc.client_id = $1;`
	return s.scanCounts(ctx, into,
		[]string{AssignedProjects, CompletedProjects, InProgressProjects, UnreadMessages}, q, id)
}

// CategoryCounts counts published projects per category, largest first.
func (s *PostgresSource) CategoryCounts(ctx context.Context) ([]projectsdomain.Count, error) {
	rows, err := s.db.Query(ctx, `
SELECT category, COUNT(*) FROM projects
WHERE is_published
GROUP BY category
ORDER BY COUNT(*) DESC, category;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]projectsdomain.Count, 0, 10)
	for rows.Next() {
		var c projectsdomain.Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
