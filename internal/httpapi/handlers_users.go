package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
)

func (handler *httpHandler) handleListUsers(ctx *gin.Context) {
	users, err := handler.service.ListUsers(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	payloads := make([]userPayload, 0, len(users))
	for _, user := range users {
		payloads = append(payloads, newUserPayload(user))
	}
	ctx.JSON(http.StatusOK, payloads)
}

func (handler *httpHandler) handleCreateUser(ctx *gin.Context) {
	var request userRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err, http.StatusBadRequest, errorUserFieldsRequired)
		return
	}
	created, err := handler.service.CreateUser(ctx.Request.Context(), villa.UserInput{
		Username: request.Username,
		Password: request.Password,
		Role:     request.Role,
	})
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	ctx.JSON(http.StatusCreated, newUserPayload(created))
}

func (handler *httpHandler) handleUpdateUser(ctx *gin.Context) {
	userID, err := villa.ParseUserID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	var request userUpdateRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err, http.StatusBadRequest, "")
		return
	}
	updated, err := handler.service.UpdateUser(ctx.Request.Context(), userID, villa.UserUpdate{
		Username: request.Username,
		Password: request.Password,
		Role:     request.Role,
	})
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	ctx.JSON(http.StatusOK, newUserPayload(updated))
}

func (handler *httpHandler) handleDeleteUser(ctx *gin.Context) {
	userID, err := villa.ParseUserID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	actor, ok := ctx.Get(contextKeyCurrentUser)
	if !ok {
		ctx.JSON(http.StatusUnauthorized, errorResponse(errorUnauthorized))
		return
	}
	if err := handler.service.DeleteUser(ctx.Request.Context(), actor.(villa.User).ID, userID); err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	ctx.Status(http.StatusNoContent)
}
