package access

import (
	"github.com/gin-gonic/gin"

	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
)

const CtxActor = "actor"

// ActorFrom returns the actor stored by the authentication middleware, or
// an anonymous actor when none is set.
func ActorFrom(c *gin.Context) Actor {
	if v, ok := c.Get(CtxActor); ok {
		if a, ok := v.(Actor); ok {
			return a
		}
	}
	return Anonymous()
}

func SetActor(c *gin.Context, a Actor) {
	c.Set(CtxActor, a)
}

// RequireRoles aborts the request unless the actor holds one of roles.
func RequireRoles(g *Guard, roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := c.Request.Method + " " + c.FullPath()
		if err := g.RequireRoles(op, ActorFrom(c), roles...).Err(); err != nil {
			apperr.Respond(c, err)
			return
		}
		c.Next()
	}
}

func RequireAuthenticated(g *Guard) gin.HandlerFunc {
	return RequireRoles(g, AllRoles()...)
}

func RequireAdmin(g *Guard) gin.HandlerFunc {
	return RequireRoles(g, RoleAdmin)
}

func RequireArchitectOrAdmin(g *Guard) gin.HandlerFunc {
	return RequireRoles(g, RoleArchitect, RoleAdmin)
}
