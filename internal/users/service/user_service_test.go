package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/logging"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/files"
	"github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]domain.Account
	noProf   map[uuid.UUID]domain.User
	owned    map[uuid.UUID]int
	assigned map[uuid.UUID]int
	touched  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: map[uuid.UUID]domain.Account{},
		noProf:   map[uuid.UUID]domain.User{},
		owned:    map[uuid.UUID]int{},
		assigned: map[uuid.UUID]int{},
	}
}

func (f *fakeRepo) add(role access.Role, username string) domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	a := domain.Account{
		User:    domain.User{ID: id, ExternalID: "ext-" + username, Username: username, IsActive: true},
		Profile: domain.Profile{UserID: id, Role: role},
	}
	f.accounts[id] = a
	return a
}

func (f *fakeRepo) byExternal(ext string) (domain.Account, bool) {
	for _, a := range f.accounts {
		if a.ExternalID == ext {
			return a, true
		}
	}
	return domain.Account{}, false
}

func (f *fakeRepo) CreateWithProfile(_ context.Context, in domain.NewUser) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byExternal(in.ExternalID); ok {
		return domain.Account{}, domain.ErrUserExists
	}
	for _, a := range f.accounts {
		if a.Username == in.Username {
			return domain.Account{}, domain.ErrUsernameTaken
		}
	}
	id := uuid.New()
	a := domain.Account{
		User:    domain.User{ID: id, ExternalID: in.ExternalID, Username: in.Username, Email: in.Email, IsActive: true},
		Profile: domain.Profile{UserID: id, Role: in.Role},
	}
	f.accounts[id] = a
	return a, nil
}

func (f *fakeRepo) EnsureByExternalID(_ context.Context, in domain.NewUser) (domain.Account, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.byExternal(in.ExternalID); ok {
		return a, false, nil
	}
	id := uuid.New()
	a := domain.Account{
		User:    domain.User{ID: id, ExternalID: in.ExternalID, Username: in.Username, Email: in.Email, IsActive: true},
		Profile: domain.Profile{UserID: id, Role: in.Role},
	}
	f.accounts[id] = a
	return a, true, nil
}

func (f *fakeRepo) EnsureProfile(_ context.Context, id uuid.UUID) (domain.Profile, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		return a.Profile, false, nil
	}
	u, ok := f.noProf[id]
	if !ok {
		return domain.Profile{}, false, domain.ErrUserNotFound
	}
	delete(f.noProf, id)
	p := domain.Profile{UserID: id, Role: access.DefaultRole}
	f.accounts[id] = domain.Account{User: u, Profile: p}
	return p, true, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return a, domain.ErrUserNotFound
	}
	return a, nil
}

func (f *fakeRepo) SetRole(_ context.Context, id uuid.UUID, role access.Role) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return a, domain.ErrUserNotFound
	}
	a.Profile.Role = role
	f.accounts[id] = a
	return a, nil
}

func (f *fakeRepo) UpdateProfile(_ context.Context, id uuid.UUID, in domain.ProfileUpdate) (domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return a, domain.ErrUserNotFound
	}
	if in.Phone != nil {
		a.Profile.Phone = *in.Phone
	}
	if in.Email != nil {
		a.Email = *in.Email
	}
	f.accounts[id] = a
	return a, nil
}

func (f *fakeRepo) SetAvatar(_ context.Context, id uuid.UUID, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return "", domain.ErrUserNotFound
	}
	old := a.Profile.AvatarKey
	a.Profile.AvatarKey = key
	f.accounts[id] = a
	return old, nil
}

func (f *fakeRepo) TouchLogin(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched++
	a := f.accounts[id]
	now := time.Now()
	a.LastLogin = &now
	f.accounts[id] = a
	return nil
}

func (f *fakeRepo) List(_ context.Context, flt domain.ListFilter) ([]domain.Account, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.Account{}
	for _, a := range f.accounts {
		if flt.Role.Valid() && a.Profile.Role != flt.Role {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeRepo) ListByRole(ctx context.Context, role access.Role) ([]domain.Account, error) {
	out, _, err := f.List(ctx, domain.ListFilter{Role: role})
	return out, err
}

func (f *fakeRepo) CountProfiles(_ context.Context) (domain.RoleCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc := domain.RoleCounts{}
	for _, a := range f.accounts {
		rc[a.Profile.Role]++
	}
	return rc, nil
}

func (f *fakeRepo) ListMissingProfiles(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.User{}
	for _, u := range f.noProf {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeRepo) ProjectLinks(_ context.Context, id uuid.UUID) (int, int, error) {
	return f.owned[id], f.assigned[id], nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID, transferTo *uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[id]; !ok {
		return 0, domain.ErrUserNotFound
	}
	moved := f.owned[id]
	if moved > 0 && transferTo == nil {
		return 0, domain.ErrOwnsProjects
	}
	if transferTo != nil {
		f.owned[*transferTo] += moved
	}
	delete(f.owned, id)
	delete(f.accounts, id)
	return moved, nil
}

type fakeCache struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (c *fakeCache) InvalidateUsers(_ context.Context, ids ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, ids...)
}

type fixture struct {
	svc   *UserService
	repo  *fakeRepo
	store *files.MemoryStore
	cache *fakeCache
}

func newFixture() fixture {
	repo := newFakeRepo()
	store := files.NewMemoryStore()
	cache := &fakeCache{}
	logger := logging.Discard()
	return fixture{
		svc:   NewUserService(repo, store, cache, access.NewGuard(logger), logger),
		repo:  repo,
		store: store,
		cache: cache,
	}
}

func TestResolve_CreatesDefaultClientOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := domain.Identity{ExternalID: "fb-1", Email: "ana.mora@example.com", DisplayName: "Ana Mora"}

	a1, err := f.svc.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, access.RoleClient, a1.Role)
	assert.Equal(t, "ana.mora", a1.Username)

	a2, err := f.svc.Resolve(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, a1.UserID, a2.UserID)
	assert.Len(t, f.repo.accounts, 1)
	assert.Equal(t, 1, f.repo.touched)
}

func TestResolve_ConcurrentFirstLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := domain.Identity{ExternalID: "fb-race"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Resolve(ctx, id)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, f.repo.accounts, 1)
}

func TestResolve_Inactive(t *testing.T) {
	f := newFixture()
	a := f.repo.add(access.RoleClient, "gone")
	a.IsActive = false
	f.repo.accounts[a.ID] = a

	_, err := f.svc.Resolve(context.Background(), domain.Identity{ExternalID: a.ExternalID})
	assert.True(t, errors.Is(err, apperr.ErrAuthenticationRequired))
}

func TestResolve_EmptyIdentity(t *testing.T) {
	f := newFixture()
	actor, err := f.svc.Resolve(context.Background(), domain.Identity{})
	assert.True(t, errors.Is(err, apperr.ErrAuthenticationRequired))
	assert.False(t, actor.Authenticated())
}

func TestRegister(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	id := domain.Identity{ExternalID: "fb-2", Email: "arq@example.com"}

	acc, err := f.svc.Register(ctx, id, domain.RegisterInput{Username: "arq", Role: "architect"})
	require.NoError(t, err)
	assert.Equal(t, access.RoleArchitect, acc.Profile.Role)
	assert.Equal(t, "arq@example.com", acc.Email)

	_, err = f.svc.Register(ctx, id, domain.RegisterInput{Username: "arq2"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = f.svc.Register(ctx, domain.Identity{ExternalID: "fb-3"}, domain.RegisterInput{Username: "arq"})
	v, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("username"))

	_, err = f.svc.Register(ctx, domain.Identity{ExternalID: "fb-4"}, domain.RegisterInput{Username: "boss", Role: "admin"})
	_, ok = apperr.IsValidation(err)
	assert.True(t, ok)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.repo.add(access.RoleClient, "cli")

	phone := "+34 600 000 000"
	acc, err := f.svc.UpdateProfile(ctx, a.Actor(), domain.ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, acc.Profile.Phone)

	bad := "not-an-email"
	_, err = f.svc.UpdateProfile(ctx, a.Actor(), domain.ProfileUpdate{Email: &bad})
	_, ok := apperr.IsValidation(err)
	assert.True(t, ok)

	_, err = f.svc.UpdateProfile(ctx, access.Anonymous(), domain.ProfileUpdate{Phone: &phone})
	assert.True(t, errors.Is(err, apperr.ErrAuthenticationRequired))
}

func TestSetAvatar_ReplacesFile(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.repo.add(access.RoleArchitect, "arq")

	acc, err := f.svc.SetAvatar(ctx, a.Actor(), "me.png", strings.NewReader("one"))
	require.NoError(t, err)
	first := acc.Profile.AvatarKey
	assert.True(t, f.store.Has(first))

	acc, err = f.svc.SetAvatar(ctx, a.Actor(), "me.webp", strings.NewReader("two"))
	require.NoError(t, err)
	assert.False(t, f.store.Has(first))
	assert.True(t, f.store.Has(acc.Profile.AvatarKey))

	_, err = f.svc.SetAvatar(ctx, a.Actor(), "me.gif", strings.NewReader("three"))
	v, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("avatar"))
}

func TestSetRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.repo.add(access.RoleAdmin, "admin")
	cli := f.repo.add(access.RoleClient, "cli")
	arq := f.repo.add(access.RoleArchitect, "arq")
	f.repo.owned[arq.ID] = 2

	_, err := f.svc.SetRole(ctx, cli.Actor(), cli.ID, access.RoleAdmin)
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))

	acc, err := f.svc.SetRole(ctx, admin.Actor(), cli.ID, access.RoleArchitect)
	require.NoError(t, err)
	assert.Equal(t, access.RoleArchitect, acc.Profile.Role)
	assert.Contains(t, f.cache.ids, cli.ID)

	_, err = f.svc.SetRole(ctx, admin.Actor(), arq.ID, access.RoleClient)
	v, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("role"))

	_, err = f.svc.SetRole(ctx, admin.Actor(), admin.ID, access.RoleClient)
	_, ok = apperr.IsValidation(err)
	assert.True(t, ok)
}

func TestDelete_OwnerNeedsTransfer(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.repo.add(access.RoleAdmin, "admin")
	arq := f.repo.add(access.RoleArchitect, "arq")
	heir := f.repo.add(access.RoleArchitect, "heir")
	cli := f.repo.add(access.RoleClient, "cli")
	f.repo.owned[arq.ID] = 3

	err := f.svc.Delete(ctx, admin.Actor(), arq.ID, nil)
	v, ok := apperr.IsValidation(err)
	require.True(t, ok)
	assert.True(t, v.Has("transfer_to"))
	assert.Contains(t, f.repo.accounts, arq.ID)

	err = f.svc.Delete(ctx, admin.Actor(), arq.ID, &cli.ID)
	v, ok = apperr.IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, []string{"must be an architect"}, v.Fields["transfer_to"])

	require.NoError(t, f.svc.Delete(ctx, admin.Actor(), arq.ID, &heir.ID))
	assert.NotContains(t, f.repo.accounts, arq.ID)
	assert.Equal(t, 3, f.repo.owned[heir.ID])
	assert.ElementsMatch(t, []uuid.UUID{arq.ID, heir.ID}, f.cache.ids)
}

func TestDelete_Guards(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.repo.add(access.RoleAdmin, "admin")
	arq := f.repo.add(access.RoleArchitect, "arq")

	assert.True(t, errors.Is(f.svc.Delete(ctx, arq.Actor(), admin.ID, nil), apperr.ErrPermissionDenied))
	assert.True(t, errors.Is(f.svc.Delete(ctx, access.Anonymous(), admin.ID, nil), apperr.ErrAuthenticationRequired))

	_, ok := apperr.IsValidation(f.svc.Delete(ctx, admin.Actor(), admin.ID, nil))
	assert.True(t, ok)

	assert.True(t, errors.Is(f.svc.Delete(ctx, admin.Actor(), uuid.New(), nil), apperr.ErrNotFound))
}

func TestList_AdminOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	admin := f.repo.add(access.RoleAdmin, "admin")
	f.repo.add(access.RoleClient, "c1")
	f.repo.add(access.RoleClient, "c2")

	page, err := f.svc.List(ctx, admin.Actor(), access.RoleClient, "", pagination.New(1, AdminPageSize))
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	cli := f.repo.add(access.RoleClient, "c3")
	_, err = f.svc.List(ctx, cli.Actor(), access.RoleUnknown, "", pagination.New(1, AdminPageSize))
	assert.True(t, errors.Is(err, apperr.ErrPermissionDenied))
}

func TestVerifyRoles_RepairsMissingProfiles(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.add(access.RoleAdmin, "admin")
	orphan := domain.User{ID: uuid.New(), Username: "orphan"}
	f.repo.noProf[orphan.ID] = orphan

	rep, err := f.svc.VerifyRoles(ctx)
	require.NoError(t, err)
	require.Len(t, rep.Repaired, 1)
	assert.Equal(t, "orphan", rep.Repaired[0].Username)
	assert.Equal(t, 1, rep.Counts[access.RoleClient])
	assert.Equal(t, 2, rep.Counts.Total())
	assert.Len(t, rep.ByRole[access.RoleClient], 1)

	rep, err = f.svc.VerifyRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, rep.Repaired)
}

func TestUsernameFor(t *testing.T) {
	assert.Equal(t, "ana.mora", usernameFor(domain.Identity{ExternalID: "x", Email: "ana.mora@example.com"}))
	assert.Equal(t, "abc123", usernameFor(domain.Identity{ExternalID: "abc/123"}))
	assert.Equal(t, "user", usernameFor(domain.Identity{ExternalID: "///"}))
}
