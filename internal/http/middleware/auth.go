package middleware

import (
	"net/http"
	"strings"

	"parkometr/internal/auth"

	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "userID"
	userRoleKey = "userRole"
)

// Authenticate requires a valid bearer token and stores its claims on the context.
func Authenticate(tokens auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, tokens, true) {
			c.Next()
		}
	}
}

// OptionalAuthenticate lets anonymous requests through but rejects a bad token.
// A valid token's claims are stored the same way Authenticate stores them.
func OptionalAuthenticate(tokens auth.Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authenticate(c, tokens, false) {
			c.Next()
		}
	}
}

func authenticate(c *gin.Context, tokens auth.Tokens, required bool) bool {
	header := c.GetHeader("Authorization")
	if header == "" && !required {
		return true
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return false
	}
	claims, err := tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		abortJSON(c, http.StatusUnauthorized, "unauthorized", err.Error())
		return false
	}
	c.Set(userIDKey, claims.UserID)
	c.Set(userRoleKey, claims.Role)
	return true
}

// RequireRoles lets the request through only when Authenticate stored one of allowedRoles.
//
//	admin.Use(Authenticate(tokens), RequireRoles(domain.RoleAdmin))
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToUpper(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(userRoleKey)
		if role == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthorized", "no authenticated role")
			return
		}
		if _, ok := allowed[strings.ToUpper(role)]; !ok {
			abortJSON(c, http.StatusForbidden, "forbidden", "role not allowed")
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the id Authenticate stored, or 0.
func CurrentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
