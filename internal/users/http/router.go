package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
)

// RegisterSignup attaches POST /auth/register. The group must run
// auth.Identify, not auth.Authenticate.
func (h *Handler) RegisterSignup(rg *gin.RouterGroup) {
	rg.POST("/auth/register", h.register)
}

// Register attaches the profile and user-administration routes.
func (h *Handler) Register(rg *gin.RouterGroup) {
	me := rg.Group("/me", access.RequireAuthenticated(h.guard))
	me.GET("", h.me)
	me.PUT("", h.updateMe)
	me.PUT("/avatar", h.setAvatar)

	admin := rg.Group("/admin/users", access.RequireAdmin(h.guard))
	admin.GET("", h.list)
	admin.PATCH("/:id/role", h.setRole)
	admin.DELETE("/:id", h.delete)
}
