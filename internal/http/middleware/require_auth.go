package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/TylerPac/SolaceStudio/internal/modules/users"
)

const (
	ctxKeyUserID   = "auth_user_id"
	ctxKeyUsername = "auth_username"
)

// RequireAuth validates the Bearer access token and stashes the subject on
// the context for handlers downstream.
func RequireAuth(minter *users.TokenMinter) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			unauthorized(c)
			return
		}

		claims, err := minter.Parse(raw)
		if err != nil {
			unauthorized(c)
			return
		}

		c.Set(ctxKeyUserID, claims.Subject)
		c.Set(ctxKeyUsername, claims.Username)
		c.Next()
	}
}

func CurrentUserID(c *gin.Context) (string, bool) {
	if v, ok := c.Get(ctxKeyUserID); ok {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":      "authentication required",
		"request_id": GetRequestID(c),
	})
}
