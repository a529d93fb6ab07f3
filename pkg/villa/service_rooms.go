package villa

import (
	"context"
	"fmt"
	"strings"
)

// ListVillas returns every villa with its rooms.
func (service *Service) ListVillas(ctx context.Context) ([]Villa, error) {
	return service.store.ListVillas(ctx)
}

// CreateVilla stores a new villa.
func (service *Service) CreateVilla(ctx context.Context, input VillaInput) (Villa, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		err := fmt.Errorf("%w: name is required", ErrInvalidVillaName)
		service.logOperation(ctx, OperationLog{Operation: operationCreateVilla, Error: err})
		return Villa{}, err
	}
	created, operationError := service.store.CreateVilla(ctx, Villa{
		Name:      name,
		Location:  strings.TrimSpace(input.Location),
		CreatedAt: service.Now(),
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateVilla,
		VillaID:   created.ID,
		Subject:   name,
		Error:     operationError,
	})
	return created, operationError
}

// ListRooms returns rooms with their villa, optionally narrowed to one status.
func (service *Service) ListRooms(ctx context.Context, status *RoomStatus) ([]Room, error) {
	return service.store.ListRooms(ctx, status)
}

// CreateRoom stores a new room in an existing villa.
func (service *Service) CreateRoom(ctx context.Context, input RoomInput) (Room, error) {
	room, err := newRoom(input)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: operationCreateRoom, Error: err})
		return Room{}, err
	}
	var created Room
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		villa, err := transactionStore.GetVilla(ctx, room.VillaID)
		if err != nil {
			return err
		}
		created, err = transactionStore.CreateRoom(ctx, room)
		if err != nil {
			return err
		}
		villa.Rooms = nil
		created.Villa = &villa
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationCreateRoom,
		VillaID:   room.VillaID,
		RoomID:    created.ID,
		Subject:   room.Name,
		Error:     operationError,
	})
	if operationError != nil {
		return Room{}, operationError
	}
	return created, nil
}

func newRoom(input RoomInput) (Room, error) {
	villaID, err := NewVillaID(input.VillaID)
	if err != nil {
		return Room{}, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Room{}, fmt.Errorf("%w: name is required", ErrInvalidRoomName)
	}
	if input.Capacity < 0 {
		return Room{}, fmt.Errorf("%w: %d", ErrInvalidCapacity, input.Capacity)
	}
	status, err := ParseRoomStatus(input.Status)
	if err != nil {
		return Room{}, err
	}
	return Room{
		VillaID:  villaID,
		Name:     name,
		Capacity: input.Capacity,
		Status:   status,
	}, nil
}

// UpdateRoom applies a partial update. Moving a room to another villa requires
// that villa to exist.
func (service *Service) UpdateRoom(ctx context.Context, roomID RoomID, update RoomUpdate) (Room, error) {
	var saved Room
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		room, err := transactionStore.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if update.VillaID != nil {
			villaID, err := NewVillaID(*update.VillaID)
			if err != nil {
				return err
			}
			if _, err := transactionStore.GetVilla(ctx, villaID); err != nil {
				return err
			}
			room.VillaID = villaID
		}
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return fmt.Errorf("%w: name is required", ErrInvalidRoomName)
			}
			room.Name = name
		}
		if update.Capacity != nil {
			if *update.Capacity < 0 {
				return fmt.Errorf("%w: %d", ErrInvalidCapacity, *update.Capacity)
			}
			room.Capacity = *update.Capacity
		}
		if update.Status != nil {
			status, err := ParseRoomStatus(*update.Status)
			if err != nil {
				return err
			}
			room.Status = status
		}
		room.Villa = nil
		saved, err = transactionStore.SaveRoom(ctx, room)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationUpdateRoom,
		VillaID:   saved.VillaID,
		RoomID:    roomID,
		Error:     operationError,
	})
	if operationError != nil {
		return Room{}, operationError
	}
	return saved, nil
}

// DeleteRoom removes a room that no reservation references.
func (service *Service) DeleteRoom(ctx context.Context, roomID RoomID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.LockRoom(ctx, roomID); err != nil {
			return err
		}
		referenced, err := transactionStore.CountReservations(ctx, roomID, nil)
		if err != nil {
			return err
		}
		if referenced > 0 {
			return fmt.Errorf("%w: %d reservation(s)", ErrRoomHasReservations, referenced)
		}
		return transactionStore.DeleteRoom(ctx, roomID)
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationDeleteRoom,
		RoomID:    roomID,
		Error:     operationError,
	})
	return operationError
}

// MarkClean returns a room to available. A room with a guest in it cannot be
// marked clean.
func (service *Service) MarkClean(ctx context.Context, roomID RoomID) (Room, error) {
	var cleaned Room
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		room, err := transactionStore.LockRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if room.Status == RoomStatusCheckedIn {
			return fmt.Errorf("%w: room %d is occupied", ErrInvalidTransition, roomID.Int64())
		}
		cleaned, err = transactionStore.UpdateRoomStatus(ctx, roomID, RoomStatusAvailable)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation: operationMarkClean,
		RoomID:    roomID,
		Error:     operationError,
	})
	if operationError != nil {
		return Room{}, operationError
	}
	return cleaned, nil
}
