package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/williamjonathanliem/elysian-cms/internal/session"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
	"go.uber.org/zap"
)

func (handler *httpHandler) handleLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		ctx.JSON(http.StatusBadRequest, errorResponse(errorInvalidJSON))
		return
	}
	user, err := handler.service.Authenticate(ctx.Request.Context(), request.Username, request.Password)
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnauthorized)
		return
	}
	token, _, err := handler.sessions.Issue(user)
	if err != nil {
		handler.respondError(ctx, err, http.StatusInternalServerError)
		return
	}
	handler.sessions.SetCookie(ctx, token)
	ctx.JSON(http.StatusOK, gin.H{
		"ok":   true,
		"user": userPayload{ID: user.ID.Int64(), Username: user.Username, Role: user.Role.String()},
	})
}

func (handler *httpHandler) handleMe(ctx *gin.Context) {
	user, ok := handler.currentUser(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"user": userPayload{ID: user.ID.Int64(), Username: user.Username, Role: user.Role.String()},
	})
}

// currentUser reloads the account behind the session claims. It writes the
// error response itself and reports false when the account is gone.
func (handler *httpHandler) currentUser(ctx *gin.Context) (villa.User, bool) {
	claims, ok := session.ClaimsFromContext(ctx)
	if !ok {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorUnauthorized))
		return villa.User{}, false
	}
	userID, err := villa.NewUserID(claims.UserID)
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorUnauthorized))
		return villa.User{}, false
	}
	user, err := handler.service.GetUser(ctx.Request.Context(), userID)
	if err != nil {
		if villa.IsNotFound(err) {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errorUnauthorized))
			return villa.User{}, false
		}
		handler.respondError(ctx, err, http.StatusUnauthorized)
		ctx.Abort()
		return villa.User{}, false
	}
	return user, true
}

// requireStoredRole checks the role the account holds now, not the one in the
// cookie.
func (handler *httpHandler) requireStoredRole(roles ...villa.Role) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user, ok := handler.currentUser(ctx)
		if !ok {
			return
		}
		for _, role := range roles {
			if user.Role == role {
				ctx.Set(contextKeyCurrentUser, user)
				ctx.Next()
				return
			}
		}
		ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse(errorForbidden))
	}
}

func (handler *httpHandler) handleLogout(ctx *gin.Context) {
	if claims, ok := session.ClaimsFromContext(ctx); ok {
		if err := handler.sessions.Revoke(ctx.Request.Context(), claims); err != nil {
			handler.logger.Warn("session revoke failed", zap.String("request_id", requestIDFromGin(ctx)), zap.Error(err))
		}
	}
	handler.sessions.ClearCookie(ctx)
	ctx.JSON(http.StatusOK, gin.H{"ok": true})
}
