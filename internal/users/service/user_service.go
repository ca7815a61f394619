package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/files"
	"github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

// Repository is the persistence the service needs; *repository.UserRepository
// implements it.
type Repository interface {
	CreateWithProfile(ctx context.Context, in domain.NewUser) (domain.Account, error)
	EnsureByExternalID(ctx context.Context, in domain.NewUser) (domain.Account, bool, error)
	EnsureProfile(ctx context.Context, userID uuid.UUID) (domain.Profile, bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error)
	SetRole(ctx context.Context, userID uuid.UUID, role access.Role) (domain.Account, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, in domain.ProfileUpdate) (domain.Account, error)
	SetAvatar(ctx context.Context, userID uuid.UUID, key string) (string, error)
	TouchLogin(ctx context.Context, userID uuid.UUID) error
	List(ctx context.Context, f domain.ListFilter) ([]domain.Account, int, error)
	ListByRole(ctx context.Context, role access.Role) ([]domain.Account, error)
	CountProfiles(ctx context.Context) (domain.RoleCounts, error)
	ListMissingProfiles(ctx context.Context) ([]domain.User, error)
	ProjectLinks(ctx context.Context, userID uuid.UUID) (owned, assigned int, err error)
	Delete(ctx context.Context, userID uuid.UUID, transferTo *uuid.UUID) (int, error)
}

// CacheInvalidator drops cached per-user statistics.
type CacheInvalidator interface {
	InvalidateUsers(ctx context.Context, ids ...uuid.UUID)
}

const (
	AdminPageSize = 20
	loginInterval = time.Hour
)

type UserService struct {
	repo  Repository
	files files.Store
	cache CacheInvalidator
	guard *access.Guard
	log   *slog.Logger
	now   func() time.Time
}

func NewUserService(repo Repository, store files.Store, cache CacheInvalidator, guard *access.Guard, logger *slog.Logger) *UserService {
	return &UserService{repo: repo, files: store, cache: cache, guard: guard, log: logger, now: time.Now}
}

var usernameStrip = regexp.MustCompile(`[^\w.@+-]+`)

// usernameFor derives a username from what the identity provider tells us.
func usernameFor(id domain.Identity) string {
	base := id.ExternalID
	if at := strings.Index(id.Email, "@"); at > 0 {
		base = id.Email[:at]
	}
	base = usernameStrip.ReplaceAllString(base, "")
	if base == "" {
		base = "user"
	}
	if len(base) > 140 {
		base = base[:140]
	}
	return base
}

func splitName(display string) (string, string) {
	parts := strings.Fields(display)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// Resolve maps an authenticated identity to an actor, creating the account
// with the default role on first sight.
func (s *UserService) Resolve(ctx context.Context, id domain.Identity) (access.Actor, error) {
	if strings.TrimSpace(id.ExternalID) == "" {
		return access.Anonymous(), apperr.ErrAuthenticationRequired
	}

	first, last := splitName(id.DisplayName)
	acc, created, err := s.repo.EnsureByExternalID(ctx, domain.NewUser{
		ExternalID: id.ExternalID,
		Username:   usernameFor(id),
		Email:      id.Email,
		FirstName:  first,
		LastName:   last,
		Role:       access.DefaultRole,
	})
	if err != nil {
		return access.Anonymous(), fmt.Errorf("resolve user: %w", err)
	}
	if !acc.IsActive {
		return access.Anonymous(), domain.ErrUserInactive
	}

	if created {
		s.log.Info("account created on first login", "user", acc.ID.String(), "role", acc.Profile.Role.String())
	}
	if acc.LastLogin == nil || s.now().Sub(*acc.LastLogin) > loginInterval {
		if err := s.repo.TouchLogin(ctx, acc.ID); err != nil {
			s.log.Warn("touch login failed", "user", acc.ID.String(), "err", err)
		}
	}

	return acc.Actor(), nil
}

// Register creates the account of a freshly authenticated identity with the
// role it picked.
func (s *UserService) Register(ctx context.Context, id domain.Identity, in domain.RegisterInput) (domain.Account, error) {
	if strings.TrimSpace(id.ExternalID) == "" {
		return domain.Account{}, apperr.ErrAuthenticationRequired
	}
	if in.Email == "" {
		in.Email = id.Email
	}
	role, err := in.Validate()
	if err != nil {
		return domain.Account{}, err
	}

	acc, err := s.repo.CreateWithProfile(ctx, domain.NewUser{
		ExternalID: id.ExternalID,
		Username:   strings.TrimSpace(in.Username),
		Email:      strings.TrimSpace(in.Email),
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Role:       role,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUsernameTaken) {
			return acc, apperr.Field("username", "already taken")
		}
		return acc, err
	}

	_ = s.repo.TouchLogin(ctx, acc.ID)
	s.cache.InvalidateUsers(ctx, acc.ID)
	return acc, nil
}

func (s *UserService) Me(ctx context.Context, actor access.Actor) (domain.Account, error) {
	if err := s.guard.RequireRoles("users.me", actor, access.AllRoles()...).Err(); err != nil {
		return domain.Account{}, err
	}
	return s.repo.GetByID(ctx, actor.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor access.Actor, in domain.ProfileUpdate) (domain.Account, error) {
	if err := s.guard.RequireRoles("users.update_profile", actor, access.AllRoles()...).Err(); err != nil {
		return domain.Account{}, err
	}
	if err := in.Validate(); err != nil {
		return domain.Account{}, err
	}
	return s.repo.UpdateProfile(ctx, actor.UserID, in)
}

// SetAvatar stores a new avatar image and removes the previous file.
func (s *UserService) SetAvatar(ctx context.Context, actor access.Actor, filename string, body io.Reader) (domain.Account, error) {
	if err := s.guard.RequireRoles("users.set_avatar", actor, access.AllRoles()...).Err(); err != nil {
		return domain.Account{}, err
	}
	ext, err := files.ImageExtension(filename)
	if err != nil {
		return domain.Account{}, apperr.Field("avatar", err.Error())
	}

	key := files.NewKey("avatars", actor.UserID.String(), ext)
	if err := s.files.Put(ctx, key, body, files.ContentType(ext)); err != nil {
		return domain.Account{}, fmt.Errorf("store avatar: %w", err)
	}

	old, err := s.repo.SetAvatar(ctx, actor.UserID, key)
	if err != nil {
		_ = s.files.Delete(ctx, key)
		return domain.Account{}, err
	}
	if old != "" {
		if err := s.files.Delete(ctx, old); err != nil {
			s.log.Warn("delete old avatar failed", "user", actor.ID(), "key", old, "err", err)
		}
	}
	return s.repo.GetByID(ctx, actor.UserID)
}

func (s *UserService) AvatarURL(key string) string {
	return s.files.URL(key)
}

func (s *UserService) List(ctx context.Context, actor access.Actor, role access.Role, search string, page pagination.Request) (pagination.Page[domain.Account], error) {
	if err := s.guard.RequireRoles("users.list", actor, access.RoleAdmin).Err(); err != nil {
		return pagination.Page[domain.Account]{}, err
	}
	items, total, err := s.repo.List(ctx, domain.ListFilter{Role: role, Search: search, Limit: page.Limit(), Offset: page.Offset()})
	if err != nil {
		return pagination.Page[domain.Account]{}, err
	}
	return pagination.NewPage(items, page, total), nil
}

// SetRole changes a user's role. A role change must not orphan projects: an
// owner stays an architect and an assigned client stays a client.
func (s *UserService) SetRole(ctx context.Context, actor access.Actor, target uuid.UUID, role access.Role) (domain.Account, error) {
	if err := s.guard.RequireRoles("users.set_role", actor, access.RoleAdmin).Err(); err != nil {
		return domain.Account{}, err
	}
	if !role.Valid() {
		return domain.Account{}, apperr.Field("role", "must be admin, architect or client")
	}
	if target == actor.UserID && role != access.RoleAdmin {
		return domain.Account{}, apperr.Field("role", "cannot remove your own admin role")
	}

	acc, err := s.repo.GetByID(ctx, target)
	if err != nil {
		return acc, err
	}
	if acc.Profile.Role == role {
		return acc, nil
	}

	owned, assigned, err := s.repo.ProjectLinks(ctx, target)
	if err != nil {
		return acc, err
	}
	v := apperr.NewValidation()
	if owned > 0 && role != access.RoleArchitect {
		v.Add("role", fmt.Sprintf("user owns %d project(s); transfer them before changing role", owned))
	}
	if assigned > 0 && role != access.RoleClient {
		v.Add("role", fmt.Sprintf("user is assigned to %d project(s) as a client", assigned))
	}
	if err := v.Err(); err != nil {
		return acc, err
	}

	acc, err = s.repo.SetRole(ctx, target, role)
	if err != nil {
		return acc, err
	}
	s.log.Info("role changed", "admin", actor.ID(), "user", target.String(), "role", role.String())
	s.cache.InvalidateUsers(ctx, target)
	return acc, nil
}

// Delete removes a user. Owned projects are never deleted with their owner:
// they move to transferTo, which must be another architect.
func (s *UserService) Delete(ctx context.Context, actor access.Actor, target uuid.UUID, transferTo *uuid.UUID) error {
	if err := s.guard.RequireRoles("users.delete", actor, access.RoleAdmin).Err(); err != nil {
		return err
	}
	if target == actor.UserID {
		return apperr.Field("user", "cannot delete your own account")
	}

	acc, err := s.repo.GetByID(ctx, target)
	if err != nil {
		return err
	}

	if transferTo != nil {
		if *transferTo == target {
			return apperr.Field("transfer_to", "must be a different user")
		}
		heir, err := s.repo.GetByID(ctx, *transferTo)
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperr.Field("transfer_to", "unknown user")
		}
		if err != nil {
			return err
		}
		if heir.Profile.Role != access.RoleArchitect {
			return apperr.Field("transfer_to", "must be an architect")
		}
	}

	moved, err := s.repo.Delete(ctx, target, transferTo)
	if err != nil {
		if errors.Is(err, domain.ErrOwnsProjects) && transferTo == nil {
			return apperr.Field("transfer_to", "required: user owns projects; name an architect to take them over")
		}
		return err
	}

	if acc.Profile.AvatarKey != "" {
		if err := s.files.Delete(ctx, acc.Profile.AvatarKey); err != nil {
			s.log.Warn("delete avatar failed", "user", target.String(), "err", err)
		}
	}

	s.log.Info("user deleted", "admin", actor.ID(), "user", target.String(), "projects_moved", moved)
	ids := []uuid.UUID{target}
	if transferTo != nil {
		ids = append(ids, *transferTo)
	}
	s.cache.InvalidateUsers(ctx, ids...)
	return nil
}

// VerifyReport is the outcome of a role audit.
type VerifyReport struct {
	Counts   domain.RoleCounts
	Repaired []domain.User
	ByRole   map[access.Role][]domain.Account
}

// VerifyRoles gives every user without a profile the default one and
// reports the role distribution.
func (s *UserService) VerifyRoles(ctx context.Context) (VerifyReport, error) {
	rep := VerifyReport{ByRole: map[access.Role][]domain.Account{}}

	missing, err := s.repo.ListMissingProfiles(ctx)
	if err != nil {
		return rep, fmt.Errorf("list missing profiles: %w", err)
	}
	for _, u := range missing {
		if _, created, err := s.repo.EnsureProfile(ctx, u.ID); err != nil {
			return rep, fmt.Errorf("repair %s: %w", u.Username, err)
		} else if created {
			rep.Repaired = append(rep.Repaired, u)
		}
	}

	for _, role := range access.AllRoles() {
		accs, err := s.repo.ListByRole(ctx, role)
		if err != nil {
			return rep, err
		}
		rep.ByRole[role] = accs
	}

	rep.Counts, err = s.repo.CountProfiles(ctx)
	return rep, err
}
