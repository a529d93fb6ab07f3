package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
	"go.uber.org/zap"
)

const (
	errorServer                = "Server error"
	errorInvalidJSON           = "Invalid JSON body"
	errorInvalidCredentials    = "Invalid username or password"
	errorReservationRequired   = "roomId, guestName, checkIn, checkOut are required"
	errorInvalidDatetime       = "Invalid checkIn or checkOut datetime"
	errorRoomUnavailable       = "Room is not available for the selected dates"
	errorUserFieldsRequired    = "username and password are required"
	errorUsernameTaken         = "Username already exists"
	errorUnauthorized          = "Unauthorized"
	errorForbidden             = "Forbidden"
	errorInvalidTransition     = "Invalid status transition"
	errorRoomHasReservations   = "Room has reservations and cannot be deleted"
	errorSelfDeletion          = "You cannot delete your own account"
	errorNotFoundVilla         = "Villa not found"
	errorNotFoundRoom          = "Room not found"
	errorNotFoundReservation   = "Reservation not found"
	errorNotFoundUser          = "User not found"
	errorInvalidCalendarWindow = "Invalid calendar window"
)

var validationMessages = []struct {
	target  error
	message string
}{
	{target: villa.ErrInvalidTimestamp, message: errorInvalidDatetime},
	{target: villa.ErrInvalidStay, message: villa.ErrInvalidStay.Error()},
	{target: villa.ErrInvalidGuestName, message: errorReservationRequired},
	{target: villa.ErrInvalidRoomID, message: "Invalid room id"},
	{target: villa.ErrInvalidVillaID, message: "Invalid villa id"},
	{target: villa.ErrInvalidReservationID, message: "Invalid reservation id"},
	{target: villa.ErrInvalidUserID, message: "Invalid user id"},
	{target: villa.ErrInvalidUsername, message: errorUserFieldsRequired},
	{target: villa.ErrInvalidPassword, message: errorUserFieldsRequired},
	{target: villa.ErrInvalidRole, message: "Invalid role"},
	{target: villa.ErrInvalidVillaName, message: "name is required"},
	{target: villa.ErrInvalidRoomName, message: "name is required"},
	{target: villa.ErrInvalidCapacity, message: "capacity must not be negative"},
	{target: villa.ErrInvalidRoomStatus, message: "Invalid room status"},
	{target: villa.ErrInvalidReservationStatus, message: "Invalid reservation status"},
	{target: villa.ErrInvalidGuestCount, message: "numGuests must not be negative"},
	{target: villa.ErrInvalidDateRange, message: "Invalid date range"},
}

var notFoundMessages = []struct {
	target  error
	message string
}{
	{target: villa.ErrUnknownVilla, message: errorNotFoundVilla},
	{target: villa.ErrUnknownRoom, message: errorNotFoundRoom},
	{target: villa.ErrUnknownReservation, message: errorNotFoundReservation},
	{target: villa.ErrUnknownUser, message: errorNotFoundUser},
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}

// respondError maps domain errors to status codes. validationStatus is used
// for rejected input so that user endpoints can answer 400 and booking
// endpoints 422.
func (handler *httpHandler) respondError(ctx *gin.Context, err error, validationStatus int) {
	var conflictError villa.ConflictError
	switch {
	case errors.As(err, &conflictError):
		ctx.JSON(http.StatusConflict, gin.H{
			"error":    errorRoomUnavailable,
			"conflict": newConflictPayload(conflictError.Conflict),
		})
	case errors.Is(err, villa.ErrReservationConflict):
		ctx.JSON(http.StatusConflict, errorResponse(errorRoomUnavailable))
	case errors.Is(err, villa.ErrDuplicateUsername):
		ctx.JSON(http.StatusConflict, errorResponse(errorUsernameTaken))
	case errors.Is(err, villa.ErrInvalidTransition):
		ctx.JSON(http.StatusConflict, errorResponse(errorInvalidTransition))
	case errors.Is(err, villa.ErrRoomHasReservations):
		ctx.JSON(http.StatusConflict, errorResponse(errorRoomHasReservations))
	case errors.Is(err, villa.ErrSelfDeletion):
		ctx.JSON(http.StatusConflict, errorResponse(errorSelfDeletion))
	case errors.Is(err, villa.ErrInvalidCredentials):
		ctx.JSON(http.StatusUnauthorized, errorResponse(errorInvalidCredentials))
	case villa.IsNotFound(err):
		ctx.JSON(http.StatusNotFound, errorResponse(notFoundMessage(err)))
	case villa.IsValidationError(err):
		ctx.JSON(validationStatus, errorResponse(validationMessage(err)))
	default:
		handler.logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.String("request_id", requestIDFromGin(ctx)),
			zap.Error(err),
		)
		ctx.JSON(http.StatusInternalServerError, errorResponse(errorServer))
	}
}

// respondBindError answers a failed ShouldBindJSON. Malformed bodies get 400;
// tag violations get validationStatus with requiredMessage when a required
// field is missing.
func respondBindError(ctx *gin.Context, err error, validationStatus int, requiredMessage string) {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		if errors.Is(err, io.EOF) && requiredMessage != "" {
			ctx.JSON(validationStatus, errorResponse(requiredMessage))
			return
		}
		ctx.JSON(http.StatusBadRequest, errorResponse(errorInvalidJSON))
		return
	}
	for _, fieldError := range fieldErrors {
		if fieldError.Tag() == "required" && requiredMessage != "" {
			ctx.JSON(validationStatus, errorResponse(requiredMessage))
			return
		}
	}
	first := fieldErrors[0]
	ctx.JSON(validationStatus, errorResponse("Invalid "+lowerFirst(first.Field())))
}

func validationMessage(err error) string {
	for _, candidate := range validationMessages {
		if errors.Is(err, candidate.target) {
			return candidate.message
		}
	}
	return err.Error()
}

func notFoundMessage(err error) string {
	for _, candidate := range notFoundMessages {
		if errors.Is(err, candidate.target) {
			return candidate.message
		}
	}
	return "Not found"
}

func lowerFirst(value string) string {
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToLower(runes[0])
	return strings.TrimSpace(string(runes))
}
