package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	"github.com/vulcano-studio/vulcano-backend/internal/auth"
	"github.com/vulcano-studio/vulcano-backend/internal/pagination"
	"github.com/vulcano-studio/vulcano-backend/internal/users/domain"
	"github.com/vulcano-studio/vulcano-backend/internal/users/service"
)

// register creates the account of an identity verified by the token layer.
func (h *Handler) register(c *gin.Context) {
	id, ok := auth.ExternalIdentity(c)
	if !ok {
		apperr.Respond(c, apperr.ErrAuthenticationRequired)
		return
	}

	var req domain.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, "invalid body")
		return
	}

	acc, err := h.svc.Register(c.Request.Context(), id, req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": h.view(acc)})
}

func (h *Handler) me(c *gin.Context) {
	acc, err := h.svc.Me(c.Request.Context(), auth.ActorFrom(c))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": h.view(acc)})
}

func (h *Handler) updateMe(c *gin.Context) {
	var req domain.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, "invalid body")
		return
	}

	acc, err := h.svc.UpdateProfile(c.Request.Context(), auth.ActorFrom(c), req)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": h.view(acc)})
}

func (h *Handler) setAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		apperr.Respond(c, apperr.Field("avatar", "file required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		apperr.BadRequest(c, "unreadable upload")
		return
	}
	defer f.Close()

	acc, err := h.svc.SetAvatar(c.Request.Context(), auth.ActorFrom(c), fh.Filename, f)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": h.view(acc)})
}

func (h *Handler) list(c *gin.Context) {
	var role access.Role
	if r := strings.TrimSpace(c.Query("role")); r != "" {
		parsed, err := access.ParseRole(r)
		if err != nil {
			apperr.Respond(c, apperr.Field("role", "unknown role"))
			return
		}
		role = parsed
	}

	page, err := h.svc.List(c.Request.Context(), auth.ActorFrom(c), role, c.Query("q"), pagination.FromQuery(c, service.AdminPageSize))
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": pagination.Map(page, h.view)})
}

func (h *Handler) setRole(c *gin.Context) {
	target, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, domain.ErrUserNotFound)
		return
	}

	var req setRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.BadRequest(c, "invalid body")
		return
	}
	role, err := access.ParseRole(req.Role)
	if err != nil {
		apperr.Respond(c, apperr.Field("role", "must be admin, architect or client"))
		return
	}

	acc, err := h.svc.SetRole(c.Request.Context(), auth.ActorFrom(c), target, role)
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": h.view(acc)})
}

func (h *Handler) delete(c *gin.Context) {
	target, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apperr.Respond(c, domain.ErrUserNotFound)
		return
	}

	var transferTo *uuid.UUID
	if raw := strings.TrimSpace(c.Query("transfer_to")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperr.Respond(c, apperr.Field("transfer_to", "invalid user id"))
			return
		}
		transferTo = &id
	}

	if err := h.svc.Delete(c.Request.Context(), auth.ActorFrom(c), target, transferTo); err != nil {
		apperr.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
