package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/vulcano-studio/vulcano-backend/internal/access"
	usersdomain "github.com/vulcano-studio/vulcano-backend/internal/users/domain"
)

const CtxIdentity = "identity"

// ExternalIdentity returns the verified identity of the caller, if any.
func ExternalIdentity(c *gin.Context) (usersdomain.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return usersdomain.Identity{}, false
	}
	id, ok := v.(usersdomain.Identity)
	return id, ok && id.ExternalID != ""
}

// ActorFrom returns the resolved actor, anonymous when the request carried
// no credentials.
func ActorFrom(c *gin.Context) access.Actor {
	return access.ActorFrom(c)
}
