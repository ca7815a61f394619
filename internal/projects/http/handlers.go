package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/auth"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	"github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/projects/service"
)

func (h *Handler) browse(c *gin.Context) {
	search := c.Query("q")
	if search == "" {
		search = c.Query("search")
	}
	f := domain.BrowseFilter{
		Category: domain.Category(c.Query("category")),
		Search:   search,
		Sort:     c.Query("sort"),
	}

	res, err := h.svc.Browse(c.Request.Context(), f, pagination.FromQuery(c, service.BrowsePageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"projects":   pagination.Map(res.Projects, h.project),
		"featured":   h.projects(res.Featured),
		"categories": res.Categories,
		"filter":     res.Filter,
	})
}

// viewerKey identifies a visitor for view counting.
func viewerKey(c *gin.Context) string {
	if a := auth.ActorFrom(c); a.Authenticated() {
		return "user:" + a.ID()
	}
	return "anon:" + c.ClientIP()
}

func (h *Handler) view(c *gin.Context) {
	d, err := h.svc.View(c.Request.Context(), auth.ActorFrom(c), c.Param("slug"), viewerKey(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": h.detail(d)})
}

func (h *Handler) create(c *gin.Context) {
	var req domain.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, "invalid body")
		return
	}

	p, err := h.svc.Create(c.Request.Context(), auth.ActorFrom(c), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": h.project(p)})
}

func (h *Handler) update(c *gin.Context) {
	var req domain.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, "invalid body")
		return
	}

	p, err := h.svc.Update(c.Request.Context(), auth.ActorFrom(c), c.Param("slug"), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": h.project(p)})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), auth.ActorFrom(c), c.Param("slug")); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) uploadImage(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		apperr.Respond(c, apperr.Field("image", "file required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperr.BadRequest(c, "unreadable upload")
		return
	}
	defer f.Close()

	main, _ := strconv.ParseBool(c.PostForm("is_main"))
	img, err := h.svc.UploadImage(c.Request.Context(), auth.ActorFrom(c), c.Param("slug"), fh.Filename, f, c.PostForm("caption"), main)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "image": h.image(img)})
}

func imageID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("image_id"))
	if err != nil {
		apperr.Respond(c, domain.ErrImageNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) setMainImage(c *gin.Context) {
	id, ok := imageID(c)
	if !ok {
		return
	}
	img, err := h.svc.SetMainImage(c.Request.Context(), auth.ActorFrom(c), c.Param("slug"), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "image": h.image(img)})
}

func (h *Handler) deleteImage(c *gin.Context) {
	id, ok := imageID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteImage(c.Request.Context(), auth.ActorFrom(c), c.Param("slug"), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) toggleFeatured(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, domain.ErrProjectNotFound)
		return
	}
	p, err := h.svc.ToggleFeatured(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": h.project(p)})
}
