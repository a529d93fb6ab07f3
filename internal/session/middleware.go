package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
)

const (
	contextKeyClaims  = "session_claims"
	errorUnauthorized = "Unauthorized"
	errorForbidden    = "Forbidden"
)

// Middleware attaches verified claims to the request when a valid cookie is
// present. It never rejects a request by itself.
func (manager *Manager) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rawToken, err := ctx.Cookie(manager.cfg.CookieName)
		if err != nil || rawToken == "" {
			ctx.Next()
			return
		}
		claims, err := manager.Parse(ctx.Request.Context(), rawToken)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) && !errors.Is(err, ErrRevokedToken) {
				_ = ctx.Error(err)
			}
			ctx.Next()
			return
		}
		ctx.Set(contextKeyClaims, claims)
		ctx.Next()
	}
}

// RequireSession rejects requests without verified claims.
func RequireSession() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if _, ok := ClaimsFromContext(ctx); !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errorUnauthorized})
			return
		}
		ctx.Next()
	}
}

// RequireRole rejects sessions whose role is not listed.
func RequireRole(roles ...villa.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, ok := ClaimsFromContext(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errorUnauthorized})
			return
		}
		for _, role := range roles {
			if claims.Role == role.String() {
				ctx.Next()
				return
			}
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errorForbidden})
	}
}

// ClaimsFromContext returns the claims set by Middleware.
func ClaimsFromContext(ctx *gin.Context) (*Claims, bool) {
	value, exists := ctx.Get(contextKeyClaims)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok && claims != nil
}
