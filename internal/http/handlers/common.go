package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/blong711/Proxy-Manager/internal/security"
	"github.com/blong711/Proxy-Manager/internal/store"
	"github.com/gin-gonic/gin"
)

// ActorHandlerFunc is a gin handler that also receives the authenticated actor.
type ActorHandlerFunc func(c *gin.Context, actor security.Actor)

// parseID parses the :id path parameter.
func parseID(c *gin.Context) (uint64, bool) {
	id, errID := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errID != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// parseIntQuery parses an integer query parameter with a fallback.
func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	parsed, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return fallback
	}
	return parsed
}

// respondStoreError translates store errors into HTTP statuses. Raw driver
// or network errors never reach the client.
func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrBoundAccounts):
		c.JSON(http.StatusConflict, gin.H{"error": "proxy has bound accounts"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
