package villa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Service contains the domain logic over a Store.
type Service struct {
	store        Store
	nowFn        func() time.Time
	logger       OperationLogger
	location     *time.Location
	passwordCost int

	decoyOnce sync.Once
	decoyHash []byte
}

// NewService wires a Service.
func NewService(store Store, now func() time.Time, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{
		store:        store,
		nowFn:        now,
		location:     time.UTC,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	if service.passwordCost < bcrypt.MinCost || service.passwordCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: password cost %d out of range", ErrInvalidServiceConfig, service.passwordCost)
	}
	return service, nil
}

// Location returns the property time zone.
func (service *Service) Location() *time.Location {
	return service.location
}

// Now returns the current instant in whole UTC seconds.
func (service *Service) Now() time.Time {
	return NormalizeTime(service.nowFn())
}

// CreateReservation books a room after checking the stay against every
// non-cancelled reservation of that room. The lock, the overlap query, the
// insert and the room status update share one transaction.
func (service *Service) CreateReservation(ctx context.Context, input ReservationInput) (Reservation, error) {
	reservation, err := service.newReservation(input)
	if err != nil {
		service.logOperation(ctx, OperationLog{
			Operation: operationCreateReservation,
			RoomID:    RoomID(input.RoomID),
			Error:     err,
		})
		return Reservation{}, err
	}
	var created Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		room, err := transactionStore.LockRoom(ctx, reservation.RoomID)
		if err != nil {
			return err
		}
		conflict, found, err := transactionStore.FindOverlappingReservation(ctx, reservation.RoomID, reservation.Stay)
		if err != nil {
			return err
		}
		if found {
			return ConflictError{Conflict: conflict}
		}
		created, err = transactionStore.CreateReservation(ctx, reservation)
		if err != nil {
			return err
		}
		nextStatus := roomStatusAfterBooking(room.Status, created.Status)
		if nextStatus != room.Status {
			room, err = transactionStore.UpdateRoomStatus(ctx, room.ID, nextStatus)
			if err != nil {
				return err
			}
		}
		created.Room = &room
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCreateReservation,
		RoomID:        reservation.RoomID,
		ReservationID: created.ID,
		Subject:       reservation.GuestName,
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return created, nil
}

func (service *Service) newReservation(input ReservationInput) (Reservation, error) {
	roomID, err := NewRoomID(input.RoomID)
	if err != nil {
		return Reservation{}, err
	}
	guestName := strings.TrimSpace(input.GuestName)
	if guestName == "" {
		return Reservation{}, fmt.Errorf("%w: guestName is required", ErrInvalidGuestName)
	}
	checkIn, err := ParseTimestamp(input.CheckIn, service.location)
	if err != nil {
		return Reservation{}, fmt.Errorf("checkIn: %w", err)
	}
	checkOut, err := ParseTimestamp(input.CheckOut, service.location)
	if err != nil {
		return Reservation{}, fmt.Errorf("checkOut: %w", err)
	}
	stay, err := NewStay(checkIn, checkOut)
	if err != nil {
		return Reservation{}, err
	}
	status := ReservationStatusReserved
	if strings.TrimSpace(input.Status) != "" {
		status, err = ParseReservationStatus(input.Status)
		if err != nil {
			return Reservation{}, err
		}
	}
	if status != ReservationStatusReserved && status != ReservationStatusCheckedIn {
		return Reservation{}, fmt.Errorf("%w: a new reservation cannot start as %s", ErrInvalidReservationStatus, status)
	}
	if input.Guest.NumGuests < 0 {
		return Reservation{}, fmt.Errorf("%w: %d", ErrInvalidGuestCount, input.Guest.NumGuests)
	}
	return Reservation{
		RoomID:    roomID,
		GuestName: guestName,
		Guest:     trimGuestDetails(input.Guest),
		Stay:      stay,
		Status:    status,
		CreatedAt: service.Now(),
	}, nil
}

// CheckIn moves a reserved reservation and its room to checked_in.
func (service *Service) CheckIn(ctx context.Context, reservationID ReservationID) (Reservation, error) {
	updated, operationError := service.transition(ctx, reservationID, ReservationStatusCheckedIn, func(ctx context.Context, transactionStore Store, reservation Reservation) error {
		_, err := transactionStore.UpdateRoomStatus(ctx, reservation.RoomID, RoomStatusCheckedIn)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCheckIn,
		RoomID:        updated.RoomID,
		ReservationID: reservationID,
		Error:         operationError,
	})
	return updated, operationError
}

// CheckOut moves a checked-in reservation and its room to checked_out and
// appends one history row.
func (service *Service) CheckOut(ctx context.Context, reservationID ReservationID) (Reservation, error) {
	updated, operationError := service.transition(ctx, reservationID, ReservationStatusCheckedOut, func(ctx context.Context, transactionStore Store, reservation Reservation) error {
		if _, err := transactionStore.UpdateRoomStatus(ctx, reservation.RoomID, RoomStatusCheckedOut); err != nil {
			return err
		}
		return transactionStore.AppendHistory(ctx, ReservationHistory{
			ReservationID:    reservation.ID,
			RoomID:           reservation.RoomID,
			GuestName:        reservation.GuestName,
			Stay:             reservation.Stay,
			StatusAtCheckout: ReservationStatusCheckedOut,
			Guest:            reservation.Guest,
			RecordedAt:       service.Now(),
		})
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCheckOut,
		RoomID:        updated.RoomID,
		ReservationID: reservationID,
		Error:         operationError,
	})
	return updated, operationError
}

// Cancel moves a reserved reservation to cancelled. The room returns to
// available when it was only held by reservations that are no longer pending.
func (service *Service) Cancel(ctx context.Context, reservationID ReservationID) (Reservation, error) {
	updated, operationError := service.transition(ctx, reservationID, ReservationStatusCancelled, func(ctx context.Context, transactionStore Store, reservation Reservation) error {
		room, err := transactionStore.LockRoom(ctx, reservation.RoomID)
		if err != nil {
			return err
		}
		if room.Status != RoomStatusReserved {
			return nil
		}
		pending, err := transactionStore.CountReservations(ctx, room.ID, []ReservationStatus{ReservationStatusReserved})
		if err != nil {
			return err
		}
		if pending > 0 {
			return nil
		}
		_, err = transactionStore.UpdateRoomStatus(ctx, room.ID, RoomStatusAvailable)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCancel,
		RoomID:        updated.RoomID,
		ReservationID: reservationID,
		Error:         operationError,
	})
	return updated, operationError
}

type transitionEffect func(ctx context.Context, transactionStore Store, reservation Reservation) error

func (service *Service) transition(ctx context.Context, reservationID ReservationID, next ReservationStatus, effect transitionEffect) (Reservation, error) {
	var updated Reservation
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := transactionStore.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if !reservation.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, reservation.Status, next)
		}
		if err := transactionStore.UpdateReservationStatus(ctx, reservationID, reservation.Status, next); err != nil {
			return err
		}
		reservation.Status = next
		if err := effect(ctx, transactionStore, reservation); err != nil {
			return err
		}
		updated, err = transactionStore.GetReservation(ctx, reservationID)
		return err
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return updated, nil
}

// ListReservations returns reservations touching the closed window
// [start, end] ordered by check-in. Both bounds empty lists everything.
func (service *Service) ListReservations(ctx context.Context, start string, end string) ([]Reservation, error) {
	return service.listReservations(ctx, ReservationFilter{}, start, end)
}

// ListRoomReservations narrows ListReservations to one room.
func (service *Service) ListRoomReservations(ctx context.Context, roomID RoomID, start string, end string) ([]Reservation, error) {
	if _, err := service.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return service.listReservations(ctx, ReservationFilter{RoomID: &roomID}, start, end)
}

func (service *Service) listReservations(ctx context.Context, filter ReservationFilter, start string, end string) ([]Reservation, error) {
	trimmedStart := strings.TrimSpace(start)
	trimmedEnd := strings.TrimSpace(end)
	if trimmedStart != "" || trimmedEnd != "" {
		from, to, err := service.parseWindow(trimmedStart, trimmedEnd)
		if err != nil {
			return nil, err
		}
		filter.From = &from
		filter.To = &to
	}
	return service.store.ListReservations(ctx, filter)
}

func (service *Service) parseWindow(start string, end string) (time.Time, time.Time, error) {
	if start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start and end must be given together", ErrInvalidDateRange)
	}
	from, err := ParseTimestamp(start, service.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start: %v", ErrInvalidDateRange, err)
	}
	to, err := ParseTimestamp(end, service.location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end: %v", ErrInvalidDateRange, err)
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end before start", ErrInvalidDateRange)
	}
	return from, to, nil
}

// GetReservation loads one reservation with its room.
func (service *Service) GetReservation(ctx context.Context, reservationID ReservationID) (Reservation, error) {
	return service.store.GetReservation(ctx, reservationID)
}

// Housekeeping lists every checked_out room with its most recent checkout.
func (service *Service) Housekeeping(ctx context.Context) ([]HousekeepingItem, error) {
	status := RoomStatusCheckedOut
	rooms, err := service.store.ListRooms(ctx, &status)
	if err != nil {
		return nil, err
	}
	items := make([]HousekeepingItem, 0, len(rooms))
	for _, room := range rooms {
		item := HousekeepingItem{
			RoomID:    room.ID,
			RoomName:  room.Name,
			VillaName: room.VillaName(),
			Status:    room.Status,
		}
		history, found, err := service.store.LatestHistory(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		if found {
			lastGuest := history.GuestName
			lastCheckOut := history.Stay.CheckOut
			item.LastGuest = &lastGuest
			item.LastCheckOut = &lastCheckOut
		}
		items = append(items, item)
	}
	return items, nil
}

// Dashboard reports room totals, occupied rooms and the reservations in
// progress right now.
func (service *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	totalRooms, err := service.store.CountRooms(ctx, nil)
	if err != nil {
		return Dashboard{}, err
	}
	occupied := RoomStatusCheckedIn
	occupiedRooms, err := service.store.CountRooms(ctx, &occupied)
	if err != nil {
		return Dashboard{}, err
	}
	now := service.Now()
	current, err := service.store.ListReservations(ctx, ReservationFilter{ActiveAt: &now, ExcludeCancelled: true})
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		TotalRooms:        totalRooms,
		OccupiedRooms:     occupiedRooms,
		ReservationsToday: current,
	}, nil
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func roomStatusAfterBooking(current RoomStatus, booked ReservationStatus) RoomStatus {
	if booked == ReservationStatusCheckedIn {
		return RoomStatusCheckedIn
	}
	switch current {
	case RoomStatusCheckedIn, RoomStatusCheckedOut, RoomStatusMaintenance:
		return current
	default:
		return RoomStatusReserved
	}
}

func trimGuestDetails(details GuestDetails) GuestDetails {
	return GuestDetails{
		Nationality:    strings.TrimSpace(details.Nationality),
		PassportNumber: strings.TrimSpace(details.PassportNumber),
		NumGuests:      details.NumGuests,
		Source:         strings.TrimSpace(details.Source),
		Phone:          strings.TrimSpace(details.Phone),
		Email:          strings.TrimSpace(details.Email),
		Notes:          strings.TrimSpace(details.Notes),
		PaymentMethod:  strings.TrimSpace(details.PaymentMethod),
	}
}

// IsNotFound reports whether err refers to an unknown entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownVilla) ||
		errors.Is(err, ErrUnknownRoom) ||
		errors.Is(err, ErrUnknownReservation) ||
		errors.Is(err, ErrUnknownUser)
}

// IsConflict reports whether err is a state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrReservationConflict) ||
		errors.Is(err, ErrDuplicateUsername) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrRoomHasReservations) ||
		errors.Is(err, ErrSelfDeletion)
}
