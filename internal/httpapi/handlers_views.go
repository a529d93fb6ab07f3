package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (handler *httpHandler) handleDashboard(ctx *gin.Context) {
	dashboard, err := handler.service.Dashboard(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, dashboardPayload{
		TotalRooms:        dashboard.TotalRooms,
		OccupiedRooms:     dashboard.OccupiedRooms,
		ReservationsToday: newReservationPayloads(dashboard.ReservationsToday),
	})
}

func (handler *httpHandler) handleHousekeeping(ctx *gin.Context) {
	items, err := handler.service.Housekeeping(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newHousekeepingPayloads(items))
}

func (handler *httpHandler) handleOverview(ctx *gin.Context) {
	overview, err := handler.service.Overview(ctx.Request.Context())
	if err != nil {
		handler.respondError(ctx, err, http.StatusUnprocessableEntity)
		return
	}
	ctx.JSON(http.StatusOK, newOverviewPayload(overview))
}
