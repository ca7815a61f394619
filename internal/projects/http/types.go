package http

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	"github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/projects/service"
)

// Service is implemented by *service.ProjectService.
type Service interface {
	Create(ctx context.Context, actor access.Actor, in domain.ProjectInput) (domain.Project, error)
	Update(ctx context.Context, actor access.Actor, slug string, in domain.ProjectInput) (domain.Project, error)
	Delete(ctx context.Context, actor access.Actor, slug string) error
	View(ctx context.Context, actor access.Actor, slug, viewer string) (domain.Detail, error)
	Browse(ctx context.Context, f domain.BrowseFilter, page pagination.Request) (service.BrowseResult, error)
	ToggleFeatured(ctx context.Context, actor access.Actor, id uuid.UUID) (domain.Project, error)
	UploadImage(ctx context.Context, actor access.Actor, slug, filename string, body io.Reader, caption string, main bool) (domain.Image, error)
	SetMainImage(ctx context.Context, actor access.Actor, slug string, imageID uuid.UUID) (domain.Image, error)
	DeleteImage(ctx context.Context, actor access.Actor, slug string, imageID uuid.UUID) error
	ImageURL(key string) string
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	svc   Service
	guard *access.Guard
}

func New(svc Service, guard *access.Guard) *Handler {
	return &Handler{svc: svc, guard: guard}
}

type projectView struct {
	domain.Project
	CoverURL string `json:"cover_url"`
}

type imageView struct {
	domain.Image
	URL string `json:"url"`
}

type detailView struct {
	projectView
	Images    []imageView   `json:"images"`
	MainImage *imageView    `json:"main_image"`
	Related   []projectView `json:"related"`
	Progress  *int          `json:"progress"`
	CanEdit   bool          `json:"can_edit"`
}

func (h *Handler) project(p domain.Project) projectView {
	return projectView{Project: p, CoverURL: h.svc.ImageURL(p.CoverKey)}
}

func (h *Handler) projects(ps []domain.Project) []projectView {
	out := make([]projectView, len(ps))
	for i, p := range ps {
		out[i] = h.project(p)
	}
	return out
}

func (h *Handler) image(img domain.Image) imageView {
	return imageView{Image: img, URL: h.svc.ImageURL(img.StorageKey)}
}

func (h *Handler) detail(d domain.Detail) detailView {
	v := detailView{
		projectView: h.project(d.Project),
		Images:      make([]imageView, len(d.Images)),
		Related:     h.projects(d.Related),
		Progress:    d.Progress,
		CanEdit:     d.CanEdit,
	}
	for i, img := range d.Images {
		v.Images[i] = h.image(img)
	}
	if m := domain.MainImage(d.Images); m != nil {
		mv := h.image(*m)
		v.MainImage = &mv
	}
	return v
}
