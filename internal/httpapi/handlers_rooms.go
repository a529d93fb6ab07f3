package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
)

func (handler *httpHandler) handleListVillas(ctx *gin.Context) {
	villas, err := handler.service.ListVillas(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	payloads := make([]villaPayload, 0, len(villas))
	for _, item := range villas {
		payloads = append(payloads, newVillaPayload(item))
	}
	ctx.JSON(http.StatusOK, payloads)
}

func (handler *httpHandler) handleCreateVilla(ctx *gin.Context) {
	var request villaRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err, http.StatusUnprocessableEntity, "name is required")
		return
	}
	created, err := handler.service.CreateVilla(ctx.Request.Context(), villa.VillaInput{Name: request.Name, Location: request.Location})
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newVillaPayload(created))
}

func (handler *httpHandler) handleListRooms(ctx *gin.Context) {
	var status *villa.RoomStatus
	if raw := ctx.Query("status"); raw != "" {
		parsed, err := villa.ParseRoomStatus(raw)
		if err != nil {
			handler.respondError(ctx, err, http.StatusUnprocessableEntity)
			return
		}
		status = &parsed
	}
	rooms, err := handler.service.ListRooms(ctx.Request.Context(), status)
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newRoomPayloads(rooms))
}

func (handler *httpHandler) handleCreateRoom(ctx *gin.Context) {
	var request roomRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err, http.StatusUnprocessableEntity, "villaId and name are required")
		return
	}
	created, err := handler.service.CreateRoom(ctx.Request.Context(), villa.RoomInput{
		VillaID:  request.VillaID,
		Name:     request.Name,
		Capacity: request.Capacity,
		Status:   request.Status,
	})
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newRoomPayload(created))
}

func (handler *httpHandler) handleUpdateRoom(ctx *gin.Context) {
	roomID, err := villa.ParseRoomID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	var request roomUpdateRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err, http.StatusUnprocessableEntity, "")
		return
	}
	updated, err := handler.service.UpdateRoom(ctx.Request.Context(), roomID, villa.RoomUpdate{
		VillaID:  request.VillaID,
		Name:     request.Name,
		Capacity: request.Capacity,
		Status:   request.Status,
	})
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newRoomPayload(updated))
}

func (handler *httpHandler) handleDeleteRoom(ctx *gin.Context) {
	roomID, err := villa.ParseRoomID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	if err := handler.service.DeleteRoom(ctx.Request.Context(), roomID); err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (handler *httpHandler) handleMarkClean(ctx *gin.Context) {
	roomID, err := villa.ParseRoomID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	room, err := handler.service.MarkClean(ctx.Request.Context(), roomID)
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newRoomPayload(room))
}
