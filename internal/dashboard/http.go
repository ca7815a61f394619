package dashboard

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/auth"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	projectsdomain "github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
)

// Portaler is implemented by *Service.
type Portaler interface {
	Portal(ctx context.Context, actor access.Actor, status string, page pagination.Request) (Portal, error)
}

type Handler struct {
	svc      Portaler
	guard    *access.Guard
	imageURL func(key string) string
}

func NewHandler(svc Portaler, guard *access.Guard, imageURL func(key string) string) *Handler {
	return &Handler{svc: svc, guard: guard, imageURL: imageURL}
}

type projectCard struct {
	projectsdomain.Project
	CoverURL string `json:"cover_url"`
}

type portalView struct {
	Portal
	RecentProjects []projectCard                 `json:"recent_projects,omitempty"`
	Projects       *pagination.Page[projectCard] `json:"projects,omitempty"`
}

func (h *Handler) card(p projectsdomain.Project) projectCard {
	return projectCard{Project: p, CoverURL: h.imageURL(p.CoverKey)}
}

func (h *Handler) view(p Portal) portalView {
	v := portalView{Portal: p}
	if p.RecentProjects != nil {
		v.RecentProjects = make([]projectCard, len(p.RecentProjects))
		for i, pr := range p.RecentProjects {
			v.RecentProjects[i] = h.card(pr)
		}
	}
	if p.Projects != nil {
		pg := pagination.Map(*p.Projects, h.card)
		v.Projects = &pg
	}
	return v
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/dashboard", access.RequireAuthenticated(h.guard), h.portal)
}

func (h *Handler) portal(c *gin.Context) {
	p, err := h.svc.Portal(c.Request.Context(), auth.ActorFrom(c), c.Query("status"),
		pagination.FromQuery(c, PortalPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "dashboard": h.view(p)})
}
