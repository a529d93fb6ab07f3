package villa

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the villa service.
var (
	ErrUnknownVilla             = errors.New("unknown villa")
	ErrUnknownRoom              = errors.New("unknown room")
	ErrUnknownReservation       = errors.New("unknown reservation")
	ErrUnknownUser              = errors.New("unknown user")
	ErrReservationConflict      = errors.New("room is not available for the selected dates")
	ErrDuplicateUsername        = errors.New("username already exists")
	ErrInvalidTransition        = errors.New("invalid status transition")
	ErrRoomHasReservations      = errors.New("room has reservations")
	ErrSelfDeletion             = errors.New("cannot delete the signed-in account")
	ErrInvalidCredentials       = errors.New("invalid username or password")
	ErrInvalidVillaID           = errors.New("invalid villa id")
	ErrInvalidRoomID            = errors.New("invalid room id")
	ErrInvalidReservationID     = errors.New("invalid reservation id")
	ErrInvalidUserID            = errors.New("invalid user id")
	ErrInvalidVillaName         = errors.New("invalid villa name")
	ErrInvalidRoomName          = errors.New("invalid room name")
	ErrInvalidCapacity          = errors.New("invalid capacity")
	ErrInvalidRoomStatus        = errors.New("invalid room status")
	ErrInvalidGuestName         = errors.New("invalid guest name")
	ErrInvalidGuestCount        = errors.New("invalid guest count")
	ErrInvalidTimestamp         = errors.New("invalid timestamp")
	ErrInvalidStay              = errors.New("checkIn must be before checkOut")
	ErrInvalidReservationStatus = errors.New("invalid reservation status")
	ErrInvalidUsername          = errors.New("invalid username")
	ErrInvalidPassword          = errors.New("invalid password")
	ErrInvalidRole              = errors.New("invalid role")
	ErrInvalidDateRange         = errors.New("invalid date range")
	ErrInvalidServiceConfig     = errors.New("invalid service config")
)

var validationErrors = []error{
	ErrInvalidVillaID,
	ErrInvalidRoomID,
	ErrInvalidReservationID,
	ErrInvalidUserID,
	ErrInvalidVillaName,
	ErrInvalidRoomName,
	ErrInvalidCapacity,
	ErrInvalidRoomStatus,
	ErrInvalidGuestName,
	ErrInvalidGuestCount,
	ErrInvalidTimestamp,
	ErrInvalidStay,
	ErrInvalidReservationStatus,
	ErrInvalidUsername,
	ErrInvalidPassword,
	ErrInvalidRole,
	ErrInvalidDateRange,
}

// IsValidationError reports whether err stems from rejected input.
func IsValidationError(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ConflictError reports the reservation that blocks a booking.
type ConflictError struct {
	Conflict Reservation
}

// Error returns the formatted error message.
func (conflictError ConflictError) Error() string {
	return fmt.Sprintf("%v: reservation %d", ErrReservationConflict, conflictError.Conflict.ID.Int64())
}

// Unwrap returns ErrReservationConflict.
func (conflictError ConflictError) Unwrap() error {
	return ErrReservationConflict
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
