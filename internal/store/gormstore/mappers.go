package gormstore

import (
	"encoding/json"
	"fmt"

	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
)

func mapVilla(row Villa) (villa.Villa, error) {
	villaID, err := villa.NewVillaID(row.ID)
	if err != nil {
		return villa.Villa{}, err
	}
	mapped := villa.Villa{
		ID:        villaID,
		Name:      row.Name,
		Location:  row.Location,
		CreatedAt: villa.NormalizeTime(row.CreatedAt),
		Rooms:     make([]villa.Room, 0, len(row.Rooms)),
	}
	for _, roomRow := range row.Rooms {
		roomRow.Villa = nil
		room, err := mapRoom(roomRow)
		if err != nil {
			return villa.Villa{}, err
		}
		mapped.Rooms = append(mapped.Rooms, room)
	}
	return mapped, nil
}

func mapRoom(row Room) (villa.Room, error) {
	roomID, err := villa.NewRoomID(row.ID)
	if err != nil {
		return villa.Room{}, err
	}
	villaID, err := villa.NewVillaID(row.VillaID)
	if err != nil {
		return villa.Room{}, err
	}
	status, err := villa.ParseRoomStatus(row.Status)
	if err != nil {
		return villa.Room{}, err
	}
	room := villa.Room{
		ID:       roomID,
		VillaID:  villaID,
		Name:     row.Name,
		Capacity: row.Capacity,
		Status:   status,
	}
	if row.Villa != nil {
		row.Villa.Rooms = nil
		parent, err := mapVilla(*row.Villa)
		if err != nil {
			return villa.Room{}, err
		}
		parent.Rooms = nil
		room.Villa = &parent
	}
	return room, nil
}

func mapReservation(row Reservation) (villa.Reservation, error) {
	reservationID, err := villa.NewReservationID(row.ID)
	if err != nil {
		return villa.Reservation{}, err
	}
	roomID, err := villa.NewRoomID(row.RoomID)
	if err != nil {
		return villa.Reservation{}, err
	}
	status, err := villa.ParseReservationStatus(row.Status)
	if err != nil {
		return villa.Reservation{}, err
	}
	stay, err := villa.NewStay(row.CheckIn, row.CheckOut)
	if err != nil {
		return villa.Reservation{}, fmt.Errorf("reservation %d: %w", row.ID, err)
	}
	reservation := villa.Reservation{
		ID:        reservationID,
		RoomID:    roomID,
		GuestName: row.GuestName,
		Guest: villa.GuestDetails{
			Nationality:    row.Nationality,
			PassportNumber: row.PassportNumber,
			NumGuests:      row.NumGuests,
			Source:         row.Source,
			Phone:          row.Phone,
			Email:          row.Email,
			Notes:          row.Notes,
			PaymentMethod:  row.PaymentMethod,
		},
		Stay:      stay,
		Status:    status,
		CreatedAt: villa.NormalizeTime(row.CreatedAt),
	}
	if row.Room != nil {
		room, err := mapRoom(*row.Room)
		if err != nil {
			return villa.Reservation{}, err
		}
		reservation.Room = &room
	}
	return reservation, nil
}

func mapHistory(row ReservationHistory) (villa.ReservationHistory, error) {
	reservationID, err := villa.NewReservationID(row.ReservationID)
	if err != nil {
		return villa.ReservationHistory{}, err
	}
	roomID, err := villa.NewRoomID(row.RoomID)
	if err != nil {
		return villa.ReservationHistory{}, err
	}
	status, err := villa.ParseReservationStatus(row.StatusAtCheckout)
	if err != nil {
		return villa.ReservationHistory{}, err
	}
	stay, err := villa.NewStay(row.CheckIn, row.CheckOut)
	if err != nil {
		return villa.ReservationHistory{}, err
	}
	var guest villa.GuestDetails
	if len(row.GuestSnapshot) > 0 {
		if err := json.Unmarshal(row.GuestSnapshot, &guest); err != nil {
			return villa.ReservationHistory{}, err
		}
	}
	return villa.ReservationHistory{
		ID:               row.ID,
		ReservationID:    reservationID,
		RoomID:           roomID,
		GuestName:        row.GuestName,
		Stay:             stay,
		StatusAtCheckout: status,
		Guest:            guest,
		RecordedAt:       villa.NormalizeTime(row.RecordedAt),
	}, nil
}

func mapUser(row User) (villa.User, error) {
	userID, err := villa.NewUserID(row.ID)
	if err != nil {
		return villa.User{}, err
	}
	role, err := villa.ParseRole(row.Role)
	if err != nil {
		return villa.User{}, err
	}
	return villa.User{
		ID:           userID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		Role:         role,
		CreatedAt:    villa.NormalizeTime(row.CreatedAt),
	}, nil
}
