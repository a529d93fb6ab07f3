package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/williamjonathanliem/elysian-cms/internal/export"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
)

func (handler *httpHandler) handleListReservations(ctx *gin.Context) {
	var (
		reservations []villa.Reservation
		err          error
	)
	if rawRoomID := strings.TrimSpace(ctx.Query("roomId")); rawRoomID != "" {
		roomID, parseErr := villa.ParseRoomID(rawRoomID)
		if parseErr != nil {
			handler.respondError(ctx, parseErr, http.StatusBadRequest)
			return
		}
		reservations, err = handler.service.ListRoomReservations(ctx.Request.Context(), roomID, ctx.Query("start"), ctx.Query("end"))
	} else {
		reservations, err = handler.service.ListReservations(ctx.Request.Context(), ctx.Query("start"), ctx.Query("end"))
	}
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newReservationPayloads(reservations))
}

func (handler *httpHandler) handleGetReservation(ctx *gin.Context) {
	reservationID, err := villa.ParseReservationID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	reservation, err := handler.service.GetReservation(ctx.Request.Context(), reservationID)
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newReservationPayload(reservation))
}

func (handler *httpHandler) handleCreateReservation(ctx *gin.Context) {
	var request reservationRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err, http.StatusUnprocessableEntity, errorReservationRequired)
		return
	}
	created, err := handler.service.CreateReservation(ctx.Request.Context(), request.input())
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newReservationPayload(created))
}

func (handler *httpHandler) handleCheckIn(ctx *gin.Context) {
	handler.transitionReservation(ctx, handler.service.CheckIn)
}

func (handler *httpHandler) handleCheckOut(ctx *gin.Context) {
	handler.transitionReservation(ctx, handler.service.CheckOut)
}

func (handler *httpHandler) handleCancel(ctx *gin.Context) {
	handler.transitionReservation(ctx, handler.service.Cancel)
}

type reservationTransition func(ctx context.Context, reservationID villa.ReservationID) (villa.Reservation, error)

func (handler *httpHandler) transitionReservation(ctx *gin.Context, apply reservationTransition) {
	reservationID, err := villa.ParseReservationID(ctx.Param("id"))
	if err != nil {
		handler.respondError(ctx, err, http.StatusBadRequest)
		return
	}
	reservation, err := apply(ctx.Request.Context(), reservationID)
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newReservationPayload(reservation))
}

func (handler *httpHandler) handleCalendar(ctx *gin.Context) {
	days := 0
	if raw := strings.TrimSpace(ctx.Query("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			ctx.JSON(http.StatusUnprocessableEntity, errorResponse(errorInvalidCalendarWindow))
			return
		}
		days = parsed
	}
	calendar, err := handler.service.Calendar(ctx.Request.Context(), ctx.Query("start"), days)
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newCalendarPayload(calendar))
}

func (handler *httpHandler) handleExport(ctx *gin.Context) {
	start := ctx.Query("start")
	reservations, err := handler.service.ListReservations(ctx.Request.Context(), start, ctx.Query("end"))
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	var buffer bytes.Buffer
	if err := export.WriteReservations(&buffer, reservations, handler.service.Location()); err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	fileName := export.FileName(time.Time{})
	if strings.TrimSpace(start) != "" {
		if parsed, parseErr := villa.ParseTimestamp(start, handler.service.Location()); parseErr == nil {
			fileName = export.FileName(parsed.In(handler.service.Location()))
		}
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	ctx.Data(http.StatusOK, export.ContentType, buffer.Bytes())
}
