package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/postgres"
	"github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const accountColumns = `
u.id, u.external_id, u.username, u.email, u.first_name, u.last_name, u.is_active, u.date_joined, u.last_login,
p.role, p.phone, p.company, p.bio, p.avatar_key, p.created_at, p.updated_at`

const accountFrom = `
FROM users u
JOIN profiles p ON p.user_id = u.id`

func scanAccount(row pgx.Row) (domain.Account, error) {
	var a domain.Account
	var role string
	err := row.Scan(
		&a.ID, &a.ExternalID, &a.Username, &a.Email, &a.FirstName, &a.LastName, &a.IsActive, &a.DateJoined, &a.LastLogin,
		&role, &a.Profile.Phone, &a.Profile.Company, &a.Profile.Bio, &a.Profile.AvatarKey, &a.Profile.CreatedAt, &a.Profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return a, domain.ErrUserNotFound
		}
		return a, err
	}
	r, err := access.ParseRole(role)
	if err != nil {
		return a, fmt.Errorf("user %s: %w", a.ID, err)
	}
	a.Profile.UserID = a.ID
	a.Profile.Role = r
	return a, nil
}

func collectAccounts(rows pgx.Rows) ([]domain.Account, error) {
	defer rows.Close()
	out := make([]domain.Account, 0, 16)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func getAccount(ctx context.Context, q postgres.Querier, where string, arg any) (domain.Account, error) {
	return scanAccount(q.QueryRow(ctx, "SELECT"+accountColumns+accountFrom+" WHERE "+where, arg))
}

// CreateWithProfile inserts the user and its profile in one transaction.
func (r *UserRepository) CreateWithProfile(ctx context.Context, in domain.NewUser) (domain.Account, error) {
	if in.ExternalID == "" {
		return domain.Account{}, fmt.Errorf("external id required")
	}
	role := in.Role
	if !role.Valid() {
		role = access.DefaultRole
	}

	var acc domain.Account
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		id := uuid.New()
		const insUser = `
INSERT INTO users (id, external_id, username, email, first_name, last_name)
VALUES ($1, $2, $3, $4, $5, $6);`
		if _, err := tx.Exec(ctx, insUser, id, in.ExternalID, in.Username, in.Email, in.FirstName, in.LastName); err != nil {
			if constraint, ok := postgres.UniqueViolation(err); ok {
				if strings.Contains(constraint, "username") {
					return domain.ErrUsernameTaken
				}
				return domain.ErrUserExists
			}
			return fmt.Errorf("insert user: %w", err)
		}

		const insProfile = `INSERT INTO profiles (user_id, role) VALUES ($1, $2);`
		if _, err := tx.Exec(ctx, insProfile, id, role.String()); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}

		var err error
		acc, err = getAccount(ctx, tx, "u.id = $1", id)
		return err
	})
	return acc, err
}

// EnsureByExternalID returns the account for the identity, creating the user
// and a default-role profile when missing. Safe under concurrent calls for
// the same identity.
func (r *UserRepository) EnsureByExternalID(ctx context.Context, in domain.NewUser) (domain.Account, bool, error) {
	if in.ExternalID == "" {
		return domain.Account{}, false, fmt.Errorf("external id required")
	}

	acc, err := getAccount(ctx, r.db, "u.external_id = $1", in.ExternalID)
	if err == nil {
		return acc, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return acc, false, err
	}

	role := in.Role
	if !role.Valid() {
		role = access.DefaultRole
	}

	base := in.Username
	created := false
	for i := 0; i < 5; i++ {
		username := base
		if i > 0 {
			username = fmt.Sprintf("%s-%s", base, uuid.NewString()[:6])
		}

		err = postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
			const insUser = `
INSERT INTO users (id, external_id, username, email, first_name, last_name)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT DO NOTHING;`
			tag, err := tx.Exec(ctx, insUser, uuid.New(), in.ExternalID, username, in.Email, in.FirstName, in.LastName)
			if err != nil {
				return fmt.Errorf("insert user: %w", err)
			}
			created = tag.RowsAffected() == 1

			var id uuid.UUID
			if err := tx.QueryRow(ctx, `SELECT id FROM users WHERE external_id = $1`, in.ExternalID).Scan(&id); err != nil {
				// the row we skipped belonged to someone else's username
				if errors.Is(err, pgx.ErrNoRows) {
					return domain.ErrUsernameTaken
				}
				return err
			}

			const insProfile = `INSERT INTO profiles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING;`
			if _, err := tx.Exec(ctx, insProfile, id, role.String()); err != nil {
				return fmt.Errorf("insert profile: %w", err)
			}

			acc, err = getAccount(ctx, tx, "u.id = $1", id)
			return err
		})
		if errors.Is(err, domain.ErrUsernameTaken) {
			continue
		}
		return acc, created, err
	}

	return domain.Account{}, false, fmt.Errorf("failed to allocate a unique username for %q", base)
}

// EnsureProfile creates the default profile for a user that lacks one.
func (r *UserRepository) EnsureProfile(ctx context.Context, userID uuid.UUID) (domain.Profile, bool, error) {
	const ins = `INSERT INTO profiles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING;`
	tag, err := r.db.Exec(ctx, ins, userID, access.DefaultRole.String())
	if err != nil {
		if _, ok := postgres.ForeignKeyViolation(err); ok {
			return domain.Profile{}, false, domain.ErrUserNotFound
		}
		return domain.Profile{}, false, err
	}
	p, err := r.GetProfile(ctx, userID)
	return p, tag.RowsAffected() == 1, err
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return getAccount(ctx, r.db, "u.id = $1", id)
}

func (r *UserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (domain.Profile, error) {
	const q = `
SELECT user_id, role, phone, company, bio, avatar_key, created_at, updated_at
FROM profiles WHERE user_id = $1;`
	var p domain.Profile
	var role string
	err := r.db.QueryRow(ctx, q, userID).Scan(&p.UserID, &role, &p.Phone, &p.Company, &p.Bio, &p.AvatarKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, domain.ErrUserNotFound
		}
		return p, err
	}
	p.Role, err = access.ParseRole(role)
	return p, err
}

func (r *UserRepository) SetRole(ctx context.Context, userID uuid.UUID, role access.Role) (domain.Account, error) {
	const q = `UPDATE profiles SET role = $2, updated_at = now() WHERE user_id = $1;`
	tag, err := r.db.Exec(ctx, q, userID, role.String())
	if err != nil {
		return domain.Account{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Account{}, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, userID)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID uuid.UUID, in domain.ProfileUpdate) (domain.Account, error) {
	var acc domain.Account
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		const qu = `
UPDATE users SET
  email = COALESCE($2, email),
  first_name = COALESCE($3, first_name),
  last_name = COALESCE($4, last_name)
WHERE id = $1;`
		tag, err := tx.Exec(ctx, qu, userID, trimPtr(in.Email), trimPtr(in.FirstName), trimPtr(in.LastName))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}

		const qp = `
UPDATE profiles SET
  phone = COALESCE($2, phone),
  company = COALESCE($3, company),
  bio = COALESCE($4, bio),
  updated_at = now()
WHERE user_id = $1;`
		if _, err := tx.Exec(ctx, qp, userID, trimPtr(in.Phone), trimPtr(in.Company), in.Bio); err != nil {
			return err
		}

		acc, err = getAccount(ctx, tx, "u.id = $1", userID)
		return err
	})
	return acc, err
}

// SetAvatar stores the new key and returns the previous one.
func (r *UserRepository) SetAvatar(ctx context.Context, userID uuid.UUID, key string) (string, error) {
	const q = `
UPDATE profiles p SET avatar_key = $2, updated_at = now()
FROM (SELECT avatar_key FROM profiles WHERE user_id = $1 FOR UPDATE) old
WHERE p.user_id = $1
RETURNING old.avatar_key;`
	var old string
	if err := r.db.QueryRow(ctx, q, userID, key).Scan(&old); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrUserNotFound
		}
		return "", err
	}
	return old, nil
}

func (r *UserRepository) TouchLogin(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1;`, userID)
	return err
}

// List returns accounts matching the filter, newest first, plus the total.
func (r *UserRepository) List(ctx context.Context, f domain.ListFilter) ([]domain.Account, int, error) {
	where := []string{"TRUE"}
	args := []any{}
	if f.Role.Valid() {
		args = append(args, f.Role.String())
		where = append(where, fmt.Sprintf("p.role = $%d", len(args)))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(u.username ILIKE $%d OR u.email ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d)", n, n, n, n))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*)"+accountFrom+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit, f.Offset)
	q := "SELECT" + accountColumns + accountFrom + cond +
		fmt.Sprintf(" ORDER BY u.date_joined DESC, u.id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectAccounts(rows)
	return out, total, err
}

func (r *UserRepository) ListRecent(ctx context.Context, limit int) ([]domain.Account, error) {
	out, _, err := r.List(ctx, domain.ListFilter{Limit: limit})
	return out, err
}

func (r *UserRepository) ListByRole(ctx context.Context, role access.Role) ([]domain.Account, error) {
	rows, err := r.db.Query(ctx, "SELECT"+accountColumns+accountFrom+" WHERE p.role = $1 ORDER BY u.username", role.String())
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (r *UserRepository) CountProfiles(ctx context.Context) (domain.RoleCounts, error) {
	rows, err := r.db.Query(ctx, `SELECT role, COUNT(*) FROM profiles GROUP BY role;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := domain.RoleCounts{}
	for rows.Next() {
		var role string
		var n int
		if err := rows.Scan(&role, &n); err != nil {
			return nil, err
		}
		if rr, err := access.ParseRole(role); err == nil {
			out[rr] = n
		}
	}
	return out, rows.Err()
}

// ListMissingProfiles returns users that have no profile row.
func (r *UserRepository) ListMissingProfiles(ctx context.Context) ([]domain.User, error) {
	const q = `
SELECT u.id, u.external_id, u.username, u.email, u.first_name, u.last_name, u.is_active, u.date_joined, u.last_login
FROM users u
LEFT JOIN profiles p ON p.user_id = u.id
WHERE p.user_id IS NULL
ORDER BY u.username;`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.ExternalID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.IsActive, &u.DateJoined, &u.LastLogin); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Delete removes a user (profile and messages cascade). When transferTo is
// set, owned projects move to that user first, in the same transaction.
// Without it a user that still owns projects cannot be removed.
func (r *UserRepository) Delete(ctx context.Context, userID uuid.UUID, transferTo *uuid.UUID) (int, error) {
	moved := 0
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		if transferTo != nil {
			const mv = `UPDATE projects SET owner_id = $2, updated_at = now() WHERE owner_id = $1;`
			tag, err := tx.Exec(ctx, mv, userID, *transferTo)
			if err != nil {
				if _, ok := postgres.UniqueViolation(err); ok {
					return fmt.Errorf("target already owns a project with the same title: %w", domain.ErrOwnsProjects)
				}
				return fmt.Errorf("transfer projects: %w", err)
			}
			moved = int(tag.RowsAffected())
		}

		tag, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1;`, userID)
		if err != nil {
			if _, ok := postgres.ForeignKeyViolation(err); ok {
				return domain.ErrOwnsProjects
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
	return moved, err
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// ProjectLinks counts the projects a user owns and is assigned to.
func (r *UserRepository) ProjectLinks(ctx context.Context, userID uuid.UUID) (owned, assigned int, err error) {
	const q = `
SELECT
  (SELECT COUNT(*) FROM projects WHERE owner_id = $1),
  (SELECT COUNT(*) FROM project_clients WHERE client_id = $1);`
	err = r.db.QueryRow(ctx, q, userID).Scan(&owned, &assigned)
	return owned, assigned, err
}
