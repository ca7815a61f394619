package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	"github.com/vulcano-studio/vulcano-backend/internal/apperr"
	usersdomain "github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

// Resolver maps a verified identity to an actor.
type Resolver interface {
	Resolve(ctx context.Context, id usersdomain.Identity) (access.Actor, error)
}

// Identify verifies credentials and stores the identity without looking up
// the account. Used by registration, which must see unknown identities.
func Identify(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Identify(c.Request)
		switch {
		case errors.Is(err, ErrNoCredentials):
		case err != nil:
			apperr.Respond(c, apperr.ErrAuthenticationRequired)
			return
		default:
			c.Set(CtxIdentity, id)
		}
		c.Next()
	}
}

// Authenticate resolves the caller to an actor. A request without
// credentials proceeds as anonymous; invalid credentials are rejected.
func Authenticate(v TokenVerifier, r Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := v.Identify(c.Request)
		if errors.Is(err, ErrNoCredentials) {
			access.SetActor(c, access.Anonymous())
			c.Next()
			return
		}
		if err != nil {
			apperr.Respond(c, apperr.ErrAuthenticationRequired)
			return
		}

		actor, err := r.Resolve(c.Request.Context(), id)
		if err != nil {
			apperr.Respond(c, err)
			return
		}

		c.Set(CtxIdentity, id)
		access.SetActor(c, actor)
		c.Next()
	}
}
