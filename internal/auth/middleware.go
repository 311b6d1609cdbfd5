package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/quizbot-go/internal/ctxutil"
)

const claimsKey = "auth.claims"

// Middleware requires a valid bearer token and stores its claims.
func Middleware(i *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := i.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(ctxutil.WithAccountID(c.Request.Context(), claims.AccountID))
		c.Next()
	}
}

// RequireAdmin rejects non-admin tokens. It must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil || !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin only"})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims set by Middleware, or nil.
func ClaimsFrom(c *gin.Context) *Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}
