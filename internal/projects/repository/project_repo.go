package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/postgres"
)

type ProjectRepository struct {
	db *pgxpool.Pool
}

func NewProjectRepository(db *pgxpool.Pool) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectColumns = `
p.id, p.title, p.slug, p.description, p.short_description, p.category, p.status, p.location,
p.area, p.budget, p.start_date, p.end_date, p.owner_id, u.username, p.is_featured, p.is_published,
p.views_count, p.created_at, p.updated_at,
COALESCE((SELECT array_agg(pc.client_id::text ORDER BY pc.client_id) FROM project_clients pc WHERE pc.project_id = p.id), '{}'),
COALESCE((SELECT i.storage_key FROM project_images i WHERE i.project_id = p.id
          ORDER BY i.is_main DESC, i.sort_order, i.created_at LIMIT 1), '')`

const projectFrom = `
FROM projects p
JOIN users u ON u.id = p.owner_id`

func scanProject(row pgx.Row) (domain.Project, error) {
	var p domain.Project
	var category, status string
	var clients []string
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.ShortDescription, &category, &status, &p.Location,
		&p.Area, &p.Budget, &p.StartDate, &p.EndDate, &p.OwnerID, &p.OwnerUsername, &p.IsFeatured, &p.IsPublished,
		&p.ViewsCount, &p.CreatedAt, &p.UpdatedAt, &clients, &p.CoverKey,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, domain.ErrProjectNotFound
		}
		return p, err
	}
	p.Category = domain.Category(category)
	p.Status = domain.Status(status)
	p.ClientIDs = make([]uuid.UUID, 0, len(clients))
	for _, s := range clients {
		id, err := uuid.Parse(s)
		if err != nil {
			return p, fmt.Errorf("project %s client %q: %w", p.ID, s, err)
		}
		p.ClientIDs = append(p.ClientIDs, id)
	}
	return p, nil
}

func collectProjects(rows pgx.Rows) ([]domain.Project, error) {
	defer rows.Close()
	out := make([]domain.Project, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func getProject(ctx context.Context, q postgres.Querier, where string, arg any) (domain.Project, error) {
	return scanProject(q.QueryRow(ctx, "SELECT"+projectColumns+projectFrom+" WHERE "+where, arg))
}

func (r *ProjectRepository) query(ctx context.Context, where string, tail string, args ...any) ([]domain.Project, error) {
	rows, err := r.db.Query(ctx, "SELECT"+projectColumns+projectFrom+" WHERE "+where+" "+tail, args...)
	if err != nil {
		return nil, err
	}
	return collectProjects(rows)
}

// translate maps constraint violations of a project write to domain errors.
func translate(err error) error {
	if constraint, ok := postgres.UniqueViolation(err); ok {
		switch {
		case strings.Contains(constraint, "owner_title"):
			return domain.ErrDuplicateTitle
		case strings.Contains(constraint, "slug"):
			return domain.ErrSlugTaken
		}
	}
	return err
}

func setClients(ctx context.Context, tx pgx.Tx, projectID uuid.UUID, clients []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM project_clients WHERE project_id = $1;`, projectID); err != nil {
		return fmt.Errorf("clear clients: %w", err)
	}
	if len(clients) == 0 {
		return nil
	}
	const q = `
INSERT INTO project_clients (project_id, client_id)
SELECT $1, unnest($2::text[])::uuid
ON CONFLICT DO NOTHING;`
	ids := make([]string, len(clients))
	for i, id := range clients {
		ids[i] = id.String()
	}
	if _, err := tx.Exec(ctx, q, projectID, ids); err != nil {
		return fmt.Errorf("assign clients: %w", err)
	}
	return nil
}

// Create inserts the project and its client assignments in one transaction.
func (r *ProjectRepository) Create(ctx context.Context, p domain.Project) (domain.Project, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var out domain.Project
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
INSERT INTO projects (id, title, slug, description, short_description, category, status, location,
                      area, budget, start_date, end_date, owner_id, is_featured, is_published)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);`
		_, err := tx.Exec(ctx, q,
			p.ID, p.Title, p.Slug, p.Description, p.ShortDescription, string(p.Category), string(p.Status), p.Location,
			p.Area, p.Budget, p.StartDate, p.EndDate, p.OwnerID, p.IsFeatured, p.IsPublished,
		)
		if err != nil {
			return translate(err)
		}
		if err := setClients(ctx, tx, p.ID, p.ClientIDs); err != nil {
			return err
		}
		out, err = getProject(ctx, tx, "p.id = $1", p.ID)
		return err
	})
	return out, err
}

// Update rewrites the editable columns and the client set.
func (r *ProjectRepository) Update(ctx context.Context, p domain.Project) (domain.Project, error) {
	var out domain.Project
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
UPDATE projects SET
  title = $2, slug = $3, description = $4, short_description = $5, category = $6, status = $7,
  location = $8, area = $9, budget = $10, start_date = $11, end_date = $12, owner_id = $13,
  is_published = $14, updated_at = now()
WHERE id = $1;`
		tag, err := tx.Exec(ctx, q,
			p.ID, p.Title, p.Slug, p.Description, p.ShortDescription, string(p.Category), string(p.Status),
			p.Location, p.Area, p.Budget, p.StartDate, p.EndDate, p.OwnerID, p.IsPublished,
		)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrProjectNotFound
		}
		if err := setClients(ctx, tx, p.ID, p.ClientIDs); err != nil {
			return err
		}
		out, err = getProject(ctx, tx, "p.id = $1", p.ID)
		return err
	})
	return out, err
}

// Delete removes the project; images and assignments cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error) {
	return getProject(ctx, r.db, "p.id = $1", id)
}

func (r *ProjectRepository) GetBySlug(ctx context.Context, slug string) (domain.Project, error) {
	return getProject(ctx, r.db, "p.slug = $1", slug)
}

var browseOrder = map[string]string{
	domain.SortNewest:  "p.created_at DESC, p.id",
	domain.SortOldest:  "p.created_at ASC, p.id",
	domain.SortPopular: "p.views_count DESC, p.created_at DESC, p.id",
	domain.SortTitle:   "p.title ASC, p.id",
}

// ListPublished returns one page of published projects and the total match count.
func (r *ProjectRepository) ListPublished(ctx context.Context, f domain.BrowseFilter) ([]domain.Project, int, error) {
	f = f.Clean()
	where := []string{"p.is_published"}
	args := []any{}
	if f.Category != "" {
		args = append(args, string(f.Category))
		where = append(where, fmt.Sprintf("p.category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(p.title ILIKE $%d OR p.description ILIKE $%d OR p.location ILIKE $%d)", n, n, n))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM projects p WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 12
	}
	args = append(args, limit, f.Offset)
	tail := fmt.Sprintf("ORDER BY %s LIMIT $%d OFFSET $%d", browseOrder[f.Sort], len(args)-1, len(args))
	out, err := r.query(ctx, cond, tail, args...)
	return out, total, err
}

func (r *ProjectRepository) ListFeatured(ctx context.Context, limit int) ([]domain.Project, error) {
	return r.query(ctx, "p.is_published AND p.is_featured", "ORDER BY p.created_at DESC LIMIT $1", limit)
}

func (r *ProjectRepository) listScoped(ctx context.Context, scope string, userID uuid.UUID, f domain.ListFilter) ([]domain.Project, int, error) {
	args := []any{userID}
	cond := scope
	if f.Status.Valid() {
		args = append(args, string(f.Status))
		cond += fmt.Sprintf(" AND p.status = $%d", len(args))
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM projects p WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 9
	}
	args = append(args, limit, f.Offset)
	tail := fmt.Sprintf("ORDER BY p.created_at DESC, p.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	out, err := r.query(ctx, cond, tail, args...)
	return out, total, err
}

// ListByOwner returns the projects an architect owns, newest first.
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, f domain.ListFilter) ([]domain.Project, int, error) {
	return r.listScoped(ctx, "p.owner_id = $1", ownerID, f)
}

// ListAssigned returns the projects a client is assigned to, newest first.
func (r *ProjectRepository) ListAssigned(ctx context.Context, clientID uuid.UUID, f domain.ListFilter) ([]domain.Project, int, error) {
	const scope = "EXISTS (SELECT 1 FROM project_clients pc WHERE pc.project_id = p.id AND pc.client_id = $1)"
	return r.listScoped(ctx, scope, clientID, f)
}

func (r *ProjectRepository) ListRecent(ctx context.Context, limit int) ([]domain.Project, error) {
	return r.query(ctx, "TRUE", "ORDER BY p.created_at DESC LIMIT $1", limit)
}

// Related returns other published projects of the same category.
func (r *ProjectRepository) Related(ctx context.Context, p domain.Project, limit int) ([]domain.Project, error) {
	return r.query(ctx, "p.is_published AND p.category = $1 AND p.id <> $2",
		"ORDER BY p.created_at DESC LIMIT $3", string(p.Category), p.ID, limit)
}

func (r *ProjectRepository) counts(ctx context.Context, q string, args ...any) ([]domain.Count, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Count, 0, 10)
	for rows.Next() {
		var c domain.Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByCategory returns per-category counts, largest first.
func (r *ProjectRepository) CountByCategory(ctx context.Context, publishedOnly bool) ([]domain.Count, error) {
	const q = `
SELECT category, COUNT(*) FROM projects
WHERE is_published OR NOT $1
GROUP BY category
ORDER BY COUNT(*) DESC, category;`
	return r.counts(ctx, q, publishedOnly)
}

func (r *ProjectRepository) CountByStatus(ctx context.Context) ([]domain.Count, error) {
	return r.counts(ctx, `SELECT status, COUNT(*) FROM projects GROUP BY status ORDER BY status;`)
}

// IncrementViews bumps the counter and returns the new value.
func (r *ProjectRepository) IncrementViews(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `UPDATE projects SET views_count = views_count + 1 WHERE id = $1 RETURNING views_count;`, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrProjectNotFound
	}
	return n, err
}

func (r *ProjectRepository) SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (domain.Project, error) {
	tag, err := r.db.Exec(ctx, `UPDATE projects SET is_featured = $2, updated_at = now() WHERE id = $1;`, id, featured)
	if err != nil {
		return domain.Project{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Project{}, domain.ErrProjectNotFound
	}
	return r.GetByID(ctx, id)
}

// IsClientOfArchitect reports whether the client is assigned to at least one
// project the architect owns.
func (r *ProjectRepository) IsClientOfArchitect(ctx context.Context, clientID, architectID uuid.UUID) (bool, error) {
	const q = `
SELECT EXISTS (
  SELECT 1 FROM project_clients pc
  JOIN projects p ON p.id = pc.project_id
  WHERE pc.client_id = $1 AND p.owner_id = $2
);`
	var ok bool
	err := r.db.QueryRow(ctx, q, clientID, architectID).Scan(&ok)
	return ok, err
}

func (r *ProjectRepository) ids(ctx context.Context, q string, arg uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]uuid.UUID, 0, 8)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ArchitectsOfClient lists the owners of the projects a client is assigned to.
func (r *ProjectRepository) ArchitectsOfClient(ctx context.Context, clientID uuid.UUID) ([]uuid.UUID, error) {
	const q = `
SELECT DISTINCT p.owner_id FROM projects p
JOIN project_clients pc ON pc.project_id = p.id
WHERE pc.client_id = $1;`
	return r.ids(ctx, q, clientID)
}

// ClientsOfArchitect lists the clients assigned to an architect's projects.
func (r *ProjectRepository) ClientsOfArchitect(ctx context.Context, architectID uuid.UUID) ([]uuid.UUID, error) {
	const q = `
SELECT DISTINCT pc.client_id FROM project_clients pc
JOIN projects p ON p.id = pc.project_id
WHERE p.owner_id = $1;`
	return r.ids(ctx, q, architectID)
}
