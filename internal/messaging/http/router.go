package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
)

// Register attaches the messaging routes. sendLimits run in front of
// POST /messages only.
func (h *Handler) Register(rg *gin.RouterGroup, sendLimits ...gin.HandlerFunc) {
	g := rg.Group("/messages", access.RequireAuthenticated(h.guard))
	g.GET("", h.inbox)
	g.POST("", append(sendLimits, h.send)...)
	g.GET("/compose", h.compose)
	g.GET("/:id", h.view)
	g.POST("/:id/read", h.markRead)
	g.DELETE("/:id", h.delete)
}
