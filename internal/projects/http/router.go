package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
)

// Register attaches project routes to the given router group. The group is
// expected to run auth.Authenticate so anonymous visitors reach the public
// listing.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/projects", h.browse)
	rg.GET("/projects/:slug", h.view)

	w := rg.Group("/projects", access.RequireArchitectOrAdmin(h.guard))
	w.POST("", h.create)
	w.PUT("/:slug", h.update)
	w.DELETE("/:slug", h.delete)
	w.POST("/:slug/images", h.uploadImage)
	w.PATCH("/:slug/images/:image_id/main", h.setMainImage)
	w.DELETE("/:slug/images/:image_id", h.deleteImage)

	admin := rg.Group("/admin/projects", access.RequireAdmin(h.guard))
	admin.POST("/:id/featured", h.toggleFeatured)
}
