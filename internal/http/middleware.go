package http

import (
	"net/http"
	"strings"

	"github.com/blong711/Proxy-Manager/internal/models"
	"github.com/blong711/Proxy-Manager/internal/security"
	"github.com/gin-gonic/gin"
)

// actorKey is the gin context key holding the authenticated actor.
const actorKey = "actor"

// AuthMiddleware validates the bearer token and stores the typed actor in
// the request context. Engine calls receive the actor explicitly; nothing
// downstream re-reads the token.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, errParse := security.ParseToken(secret, token)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(actorKey, claims.Actor())
		c.Next()
	}
}

// RequireAdmin rejects non-admin actors. Must run after AuthMiddleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok || actor.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin required"})
			return
		}
		c.Next()
	}
}

// ActorFrom extracts the authenticated actor from the gin context.
func ActorFrom(c *gin.Context) (security.Actor, bool) {
	val, exists := c.Get(actorKey)
	if !exists {
		return security.Actor{}, false
	}
	actor, ok := val.(security.Actor)
	return actor, ok
}

// bearerToken strips the Bearer scheme from an Authorization header.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
