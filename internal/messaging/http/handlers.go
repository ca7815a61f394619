package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/auth"
	"github.com/vulcano-studio/vulcano-backend/internal/messaging/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/messaging/service"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
)

func (h *Handler) inbox(c *gin.Context) {
	res, err := h.svc.Inbox(c.Request.Context(), auth.ActorFrom(c), c.Query("filter"), pagination.FromQuery(c, service.InboxPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": res.Messages, "unread": res.Unread, "filter": res.Filter})
}

func (h *Handler) compose(c *gin.Context) {
	opts, err := h.svc.Compose(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "recipients": opts.Recipients, "projects": opts.Projects})
}

func (h *Handler) send(c *gin.Context) {
	var req domain.SendInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, "invalid body")
		return
	}
	m, err := h.svc.Send(c.Request.Context(), auth.ActorFrom(c), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "message": m})
}

func messageID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, domain.ErrMessageNotFound)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) view(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	m, err := h.svc.View(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": m})
}

func (h *Handler) markRead(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	m, err := h.svc.MarkRead(c.Request.Context(), auth.ActorFrom(c), id)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "message": m})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := messageID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), auth.ActorFrom(c), id); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
