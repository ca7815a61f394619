package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	"github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/storage/files"
	usersdomain "github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

// Repository is implemented by *repository.ProjectRepository.
type Repository interface {
	Create(ctx context.Context, p domain.Project) (domain.Project, error)
	Update(ctx context.Context, p domain.Project) (domain.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (domain.Project, error)
	GetBySlug(ctx context.Context, slug string) (domain.Project, error)
	ListPublished(ctx context.Context, f domain.BrowseFilter) ([]domain.Project, int, error)
	ListFeatured(ctx context.Context, limit int) ([]domain.Project, error)
	Related(ctx context.Context, p domain.Project, limit int) ([]domain.Project, error)
	IncrementViews(ctx context.Context, id uuid.UUID) (int, error)
	SetFeatured(ctx context.Context, id uuid.UUID, featured bool) (domain.Project, error)

	AddImage(ctx context.Context, img domain.Image) (domain.Image, error)
	SetMainImage(ctx context.Context, projectID, imageID uuid.UUID) (domain.Image, error)
	ListImages(ctx context.Context, projectID uuid.UUID) ([]domain.Image, error)
	DeleteImage(ctx context.Context, projectID, imageID uuid.UUID) (domain.Image, error)
}

// Accounts looks up the users named as owner or clients.
type Accounts interface {
	GetByID(ctx context.Context, id uuid.UUID) (usersdomain.Account, error)
}

type ViewCounter interface {
	FirstView(ctx context.Context, projectID uuid.UUID, viewer string) (bool, error)
}

// Cache is the statistics cache the listings read from and writes invalidate.
type Cache interface {
	CategoryCounts(ctx context.Context) ([]domain.Count, error)
	InvalidateUsers(ctx context.Context, ids ...uuid.UUID)
	InvalidateCategories(ctx context.Context)
}

const (
	BrowsePageSize = 12
	FeaturedCount  = 3
	RelatedCount   = 3
	slugAttempts   = 3
)

type ProjectService struct {
	repo  Repository
	users Accounts
	views ViewCounter
	files files.Store
	cache Cache
	guard *access.Guard
	log   *slog.Logger
	now   func() time.Time
}

func NewProjectService(repo Repository, users Accounts, views ViewCounter, store files.Store, cache Cache, guard *access.Guard, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		repo:  repo,
		users: users,
		views: views,
		files: store,
		cache: cache,
		guard: guard,
		log:   logger,
		now:   time.Now,
	}
}

func (s *ProjectService) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return s.files.URL(key)
}

// checkPeople validates the owner and the assigned clients against their
// stored roles.
func (s *ProjectService) checkPeople(ctx context.Context, v *apperr.ValidationError, owner *uuid.UUID, clients []uuid.UUID) error {
	if owner != nil {
		acc, err := s.users.GetByID(ctx, *owner)
		switch {
		case errors.Is(err, usersdomain.ErrUserNotFound):
			v.Add("owner", "unknown user")
		case err != nil:
			return err
		case acc.Profile.Role != access.RoleArchitect:
			v.Add("owner", "must be an architect")
		}
	}
	for _, id := range clients {
		acc, err := s.users.GetByID(ctx, id)
		switch {
		case errors.Is(err, usersdomain.ErrUserNotFound):
			v.Add("clients", fmt.Sprintf("unknown user %s", id))
		case err != nil:
			return err
		case acc.Profile.Role != access.RoleClient:
			v.Add("clients", fmt.Sprintf("%s is not a client", acc.Username))
		}
	}
	return nil
}

// Create stores a new project. An architect always owns what they create;
// an admin must name the owning architect.
func (s *ProjectService) Create(ctx context.Context, actor access.Actor, in domain.ProjectInput) (domain.Project, error) {
	if err := s.guard.RequireRoles("projects.create", actor, access.RoleArchitect, access.RoleAdmin).Err(); err != nil {
		return domain.Project{}, err
	}

	v := apperr.NewValidation()
	f := in.Normalize(v)

	owner := actor.UserID
	if actor.IsAdmin() {
		if in.OwnerID == nil {
			v.Add("owner", "required")
		} else {
			owner = *in.OwnerID
			if err := s.checkPeople(ctx, v, &owner, nil); err != nil {
				return domain.Project{}, err
			}
		}
	}
	if err := s.checkPeople(ctx, v, nil, f.ClientIDs); err != nil {
		return domain.Project{}, err
	}
	if err := v.Err(); err != nil {
		return domain.Project{}, err
	}

	p := domain.Project{OwnerID: owner, IsPublished: true}
	f.Apply(&p)
	derived := p.Slug == ""
	if derived {
		p.Slug = domain.DeriveSlug(p.Title, s.now())
	}

	base := p.Slug
	var out domain.Project
	var err error
	for i := 0; i < slugAttempts; i++ {
		out, err = s.repo.Create(ctx, p)
		if !errors.Is(err, domain.ErrSlugTaken) || !derived {
			break
		}
		p.Slug = domain.WithRandomSuffix(base)
	}
	if err != nil {
		return domain.Project{}, writeError(err)
	}

	s.log.Info("project created", "project", out.ID.String(), "owner", owner.String(), "by", actor.ID())
	s.invalidate(ctx, out)
	return out, nil
}

func writeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrSlugTaken):
		return apperr.Field("slug", "already taken")
	case errors.Is(err, domain.ErrDuplicateTitle):
		return apperr.Field("title", "the owner already has a project with this title")
	}
	return err
}

func (s *ProjectService) invalidate(ctx context.Context, projects ...domain.Project) {
	ids := make([]uuid.UUID, 0, 4)
	for _, p := range projects {
		ids = append(ids, p.OwnerID)
		ids = append(ids, p.ClientIDs...)
	}
	s.cache.InvalidateUsers(ctx, ids...)
	s.cache.InvalidateCategories(ctx)
}

// Update replaces the editable fields. Only an admin may move the project
// to another owner.
func (s *ProjectService) Update(ctx context.Context, actor access.Actor, slug string, in domain.ProjectInput) (domain.Project, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return p, err
	}
	before := p
	if err := s.guard.RequireOwner("projects.update", actor, p.ID.String(), p).Err(); err != nil {
		return domain.Project{}, err
	}

	v := apperr.NewValidation()
	f := in.Normalize(v)
	if actor.IsAdmin() && in.OwnerID != nil && *in.OwnerID != p.OwnerID {
		if err := s.checkPeople(ctx, v, in.OwnerID, nil); err != nil {
			return domain.Project{}, err
		}
		p.OwnerID = *in.OwnerID
	}
	if err := s.checkPeople(ctx, v, nil, f.ClientIDs); err != nil {
		return domain.Project{}, err
	}
	if err := v.Err(); err != nil {
		return domain.Project{}, err
	}

	f.Apply(&p)
	out, err := s.repo.Update(ctx, p)
	if err != nil {
		return domain.Project{}, writeError(err)
	}
	s.invalidate(ctx, before, out)
	return out, nil
}

// Delete removes the project rows, then the stored image files.
func (s *ProjectService) Delete(ctx context.Context, actor access.Actor, slug string) error {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if err := s.guard.RequireOwner("projects.delete", actor, p.ID.String(), p).Err(); err != nil {
		return err
	}

	images, err := s.repo.ListImages(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return err
	}
	for _, img := range images {
		if err := s.files.Delete(ctx, img.StorageKey); err != nil {
			s.log.Warn("delete image file failed", "project", p.ID.String(), "key", img.StorageKey, "err", err)
		}
	}

	s.log.Info("project deleted", "project", p.ID.String(), "by", actor.ID(), "images", len(images))
	s.invalidate(ctx, p)
	return nil
}

// View loads the project page. The first view of a viewer within the
// tracking window increments the counter.
func (s *ProjectService) View(ctx context.Context, actor access.Actor, slug, viewer string) (domain.Detail, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return domain.Detail{}, err
	}
	if err := s.guard.RequireProjectView("projects.view", actor, p.ID.String(), p).Err(); err != nil {
		return domain.Detail{}, err
	}

	if viewer != "" {
		first, err := s.views.FirstView(ctx, p.ID, viewer)
		if err != nil {
			s.log.Warn("view tracking failed", "project", p.ID.String(), "err", err)
			first = true
		}
		if first {
			n, err := s.repo.IncrementViews(ctx, p.ID)
			if err != nil {
				return domain.Detail{}, err
			}
			p.ViewsCount = n
		}
	}

	d := domain.Detail{Project: p, CanEdit: access.CanOwn(actor, p)}
	if d.Images, err = s.repo.ListImages(ctx, p.ID); err != nil {
		return d, err
	}
	if d.Related, err = s.repo.Related(ctx, p, RelatedCount); err != nil {
		return d, err
	}
	if p.Status == domain.StatusInProgress {
		pr := domain.Progress(p.StartDate, p.EndDate, s.now())
		d.Progress = &pr
	}
	return d, nil
}

// BrowseResult is the public home listing.
type BrowseResult struct {
	Projects   pagination.Page[domain.Project] `json:"projects"`
	Featured   []domain.Project                `json:"featured"`
	Categories []domain.Count                  `json:"categories"`
	Filter     domain.BrowseFilter             `json:"filter"`
}

func (s *ProjectService) Browse(ctx context.Context, f domain.BrowseFilter, page pagination.Request) (BrowseResult, error) {
	f = f.Clean()
	f.Limit, f.Offset = page.Limit(), page.Offset()

	items, total, err := s.repo.ListPublished(ctx, f)
	if err != nil {
		return BrowseResult{}, err
	}
	featured, err := s.repo.ListFeatured(ctx, FeaturedCount)
	if err != nil {
		return BrowseResult{}, err
	}
	cats, err := s.cache.CategoryCounts(ctx)
	if err != nil {
		return BrowseResult{}, err
	}
	return BrowseResult{
		Projects:   pagination.NewPage(items, page, total),
		Featured:   featured,
		Categories: cats,
		Filter:     f,
	}, nil
}

func (s *ProjectService) ToggleFeatured(ctx context.Context, actor access.Actor, id uuid.UUID) (domain.Project, error) {
	if err := s.guard.RequireRoles("projects.toggle_featured", actor, access.RoleAdmin).Err(); err != nil {
		return domain.Project{}, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return p, err
	}
	out, err := s.repo.SetFeatured(ctx, id, !p.IsFeatured)
	if err != nil {
		return out, err
	}
	s.log.Info("project featured toggled", "project", id.String(), "featured", out.IsFeatured, "by", actor.ID())
	return out, nil
}

func (s *ProjectService) ownedBySlug(ctx context.Context, op string, actor access.Actor, slug string) (domain.Project, error) {
	p, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return p, err
	}
	return p, s.guard.RequireOwner(op, actor, p.ID.String(), p).Err()
}

// UploadImage stores the file and records it. The first image of a project
// always becomes its main image.
func (s *ProjectService) UploadImage(ctx context.Context, actor access.Actor, slug, filename string, body io.Reader, caption string, main bool) (domain.Image, error) {
	p, err := s.ownedBySlug(ctx, "projects.upload_image", actor, slug)
	if err != nil {
		return domain.Image{}, err
	}

	v := apperr.NewValidation()
	ext, err := files.ImageExtension(filename)
	if err != nil {
		v.Add("image", err.Error())
	}
	if utf8.RuneCountInString(caption) > domain.MaxCaptionLen {
		v.Add("caption", "at most 200 characters")
	}
	if err := v.Err(); err != nil {
		return domain.Image{}, err
	}

	existing, err := s.repo.ListImages(ctx, p.ID)
	if err != nil {
		return domain.Image{}, err
	}
	if len(existing) == 0 {
		main = true
	}

	key := files.NewKey("projects", p.ID.String(), ext)
	if err := s.files.Put(ctx, key, body, files.ContentType(ext)); err != nil {
		return domain.Image{}, fmt.Errorf("store image: %w", err)
	}

	img, err := s.repo.AddImage(ctx, domain.Image{
		ProjectID:  p.ID,
		StorageKey: key,
		Caption:    caption,
		IsMain:     main,
		Order:      -1,
	})
	if err != nil {
		if derr := s.files.Delete(ctx, key); derr != nil {
			s.log.Warn("cleanup of unsaved image failed", "key", key, "err", derr)
		}
		return domain.Image{}, err
	}
	return img, nil
}

func (s *ProjectService) SetMainImage(ctx context.Context, actor access.Actor, slug string, imageID uuid.UUID) (domain.Image, error) {
	p, err := s.ownedBySlug(ctx, "projects.set_main_image", actor, slug)
	if err != nil {
		return domain.Image{}, err
	}
	return s.repo.SetMainImage(ctx, p.ID, imageID)
}

// DeleteImage removes the image row and its stored file.
func (s *ProjectService) DeleteImage(ctx context.Context, actor access.Actor, slug string, imageID uuid.UUID) error {
	p, err := s.ownedBySlug(ctx, "projects.delete_image", actor, slug)
	if err != nil {
		return err
	}
	img, err := s.repo.DeleteImage(ctx, p.ID, imageID)
	if err != nil {
		return err
	}
	if err := s.files.Delete(ctx, img.StorageKey); err != nil {
		s.log.Warn("delete image file failed", "image", imageID.String(), "key", img.StorageKey, "err", err)
	}
	return nil
}
