package httpapi

import (
	"time"

	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type villaRequest struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

type roomRequest struct {
	VillaID  int64  `json:"villaId" binding:"required,gt=0"`
	Name     string `json:"name" binding:"required"`
	Capacity int    `json:"capacity" binding:"gte=0"`
	Status   string `json:"status"`
}

type roomUpdateRequest struct {
	VillaID  *int64  `json:"villaId" binding:"omitempty,gt=0"`
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity" binding:"omitempty,gte=0"`
	Status   *string `json:"status"`
}

type reservationRequest struct {
	RoomID         int64  `json:"roomId" binding:"required"`
	GuestName      string `json:"guestName" binding:"required"`
	CheckIn        string `json:"checkIn" binding:"required"`
	CheckOut       string `json:"checkOut" binding:"required"`
	Status         string `json:"status"`
	Nationality    string `json:"nationality"`
	PassportNumber string `json:"passportNumber"`
	NumGuests      int    `json:"numGuests"`
	Source         string `json:"source"`
	Phone          string `json:"phone"`
	Email          string `json:"email" binding:"omitempty,email"`
	Notes          string `json:"notes"`
	PaymentMethod  string `json:"paymentMethod"`
}

func (request reservationRequest) input() villa.ReservationInput {
	return villa.ReservationInput{
		RoomID:    request.RoomID,
		GuestName: request.GuestName,
		CheckIn:   request.CheckIn,
		CheckOut:  request.CheckOut,
		Status:    request.Status,
		Guest: villa.GuestDetails{
			Nationality:    request.Nationality,
			PassportNumber: request.PassportNumber,
			NumGuests:      request.NumGuests,
			Source:         request.Source,
			Phone:          request.Phone,
			Email:          request.Email,
			Notes:          request.Notes,
			PaymentMethod:  request.PaymentMethod,
		},
	}
}

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type userUpdateRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type villaSummaryPayload struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Location  string     `json:"location"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type villaPayload struct {
	villaSummaryPayload
	Rooms []roomPayload `json:"rooms"`
}

type roomPayload struct {
	ID       int64         `json:"id"`
	VillaID  int64         `json:"villaId"`
	Name     string        `json:"name"`
	Capacity int           `json:"capacity"`
	Status   string        `json:"status"`
	Villa    *villaSummaryPayload `json:"villa,omitempty"`
}

type reservationPayload struct {
	ID             int64        `json:"id"`
	RoomID         int64        `json:"roomId"`
	GuestName      string       `json:"guestName"`
	Nationality    string       `json:"nationality"`
	PassportNumber string       `json:"passportNumber"`
	NumGuests      int          `json:"numGuests"`
	Source         string       `json:"source"`
	Phone          string       `json:"phone"`
	Email          string       `json:"email"`
	Notes          string       `json:"notes"`
	PaymentMethod  string       `json:"paymentMethod"`
	CheckIn        time.Time    `json:"checkIn"`
	CheckOut       time.Time    `json:"checkOut"`
	Status         string       `json:"status"`
	CreatedAt      *time.Time   `json:"createdAt,omitempty"`
	Room           *roomPayload `json:"room,omitempty"`
}

type conflictPayload struct {
	ID        int64     `json:"id"`
	GuestName string    `json:"guestName"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
	Status    string    `json:"status"`
}

type userPayload struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type housekeepingPayload struct {
	RoomID       int64      `json:"roomId"`
	RoomName     string     `json:"roomName"`
	VillaName    string     `json:"villaName"`
	Status       string     `json:"status"`
	LastGuest    *string    `json:"lastGuest"`
	LastCheckOut *time.Time `json:"lastCheckOut"`
}

type dashboardPayload struct {
	TotalRooms        int64                `json:"totalRooms"`
	OccupiedRooms     int64                `json:"occupiedRooms"`
	ReservationsToday []reservationPayload `json:"reservationsToday"`
}

type statusCountPayload struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

type roomGroupPayload struct {
	Status string        `json:"status"`
	Rooms  []roomPayload `json:"rooms"`
}

type reservationGroupPayload struct {
	Status       string               `json:"status"`
	Reservations []reservationPayload `json:"reservations"`
}

type operationsPayload struct {
	TodayCheckIn    int `json:"todayCheckIn"`
	TodayCheckOut   int `json:"todayCheckOut"`
	TomorrowCheckIn int `json:"tomorrowCheckIn"`
	NeedsCleaning   int `json:"needsCleaning"`
}

type notificationPayload struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	PostedAt    *time.Time `json:"postedAt"`
}

type overviewPayload struct {
	GeneratedAt          time.Time                 `json:"generatedAt"`
	Occupancy            []statusCountPayload      `json:"occupancy"`
	RoomsByStatus        []roomGroupPayload        `json:"roomsByStatus"`
	ReservationsByStatus []reservationGroupPayload `json:"reservationsByStatus"`
	Operations           operationsPayload         `json:"operations"`
	Notifications        []notificationPayload     `json:"notifications"`
}

type calendarBarPayload struct {
	Reservation reservationPayload `json:"reservation"`
	Offset      int                `json:"offset"`
	Span        int                `json:"span"`
}

type calendarRowPayload struct {
	Room roomPayload          `json:"room"`
	Bars []calendarBarPayload `json:"bars"`
}

type calendarPayload struct {
	Start string               `json:"start"`
	Days  []string             `json:"days"`
	Rows  []calendarRowPayload `json:"rows"`
}

func optionalTime(value time.Time) *time.Time {
	if value.IsZero() {
		return nil
	}
	return &value
}

func newVillaPayload(source villa.Villa) villaPayload {
	return villaPayload{
		villaSummaryPayload: newVillaSummaryPayload(source),
		Rooms:               newRoomPayloads(source.Rooms),
	}
}

func newVillaSummaryPayload(source villa.Villa) villaSummaryPayload {
	return villaSummaryPayload{
		ID:        source.ID.Int64(),
		Name:      source.Name,
		Location:  source.Location,
		CreatedAt: optionalTime(source.CreatedAt),
	}
}

func newRoomPayload(source villa.Room) roomPayload {
	payload := roomPayload{
		ID:       source.ID.Int64(),
		VillaID:  source.VillaID.Int64(),
		Name:     source.Name,
		Capacity: source.Capacity,
		Status:   source.Status.String(),
	}
	if source.Villa != nil {
		owner := newVillaSummaryPayload(*source.Villa)
		payload.Villa = &owner
	}
	return payload
}

func newRoomPayloads(rooms []villa.Room) []roomPayload {
	payloads := make([]roomPayload, 0, len(rooms))
	for _, room := range rooms {
		payloads = append(payloads, newRoomPayload(room))
	}
	return payloads
}

func newReservationPayload(source villa.Reservation) reservationPayload {
	payload := reservationPayload{
		ID:             source.ID.Int64(),
		RoomID:         source.RoomID.Int64(),
		GuestName:      source.GuestName,
		Nationality:    source.Guest.Nationality,
		PassportNumber: source.Guest.PassportNumber,
		NumGuests:      source.Guest.NumGuests,
		Source:         source.Guest.Source,
		Phone:          source.Guest.Phone,
		Email:          source.Guest.Email,
		Notes:          source.Guest.Notes,
		PaymentMethod:  source.Guest.PaymentMethod,
		CheckIn:        source.Stay.CheckIn,
		CheckOut:       source.Stay.CheckOut,
		Status:         source.Status.String(),
		CreatedAt:      optionalTime(source.CreatedAt),
	}
	if source.Room != nil {
		room := newRoomPayload(*source.Room)
		payload.Room = &room
	}
	return payload
}

func newReservationPayloads(reservations []villa.Reservation) []reservationPayload {
	payloads := make([]reservationPayload, 0, len(reservations))
	for _, reservation := range reservations {
		payloads = append(payloads, newReservationPayload(reservation))
	}
	return payloads
}

func newConflictPayload(source villa.Reservation) conflictPayload {
	return conflictPayload{
		ID:        source.ID.Int64(),
		GuestName: source.GuestName,
		CheckIn:   source.Stay.CheckIn,
		CheckOut:  source.Stay.CheckOut,
		Status:    source.Status.String(),
	}
}

func newUserPayload(source villa.User) userPayload {
	return userPayload{
		ID:        source.ID.Int64(),
		Username:  source.Username,
		Role:      source.Role.String(),
		CreatedAt: optionalTime(source.CreatedAt),
	}
}

func newHousekeepingPayloads(items []villa.HousekeepingItem) []housekeepingPayload {
	payloads := make([]housekeepingPayload, 0, len(items))
	for _, item := range items {
		payloads = append(payloads, housekeepingPayload{
			RoomID:       item.RoomID.Int64(),
			RoomName:     item.RoomName,
			VillaName:    item.VillaName,
			Status:       item.Status.String(),
			LastGuest:    item.LastGuest,
			LastCheckOut: item.LastCheckOut,
		})
	}
	return payloads
}

func newOverviewPayload(source villa.Overview) overviewPayload {
	payload := overviewPayload{
		GeneratedAt:          source.GeneratedAt,
		Occupancy:            make([]statusCountPayload, 0, len(source.Occupancy)),
		RoomsByStatus:        make([]roomGroupPayload, 0, len(source.RoomsByStatus)),
		ReservationsByStatus: make([]reservationGroupPayload, 0, len(source.ReservationsByStatus)),
		Operations: operationsPayload{
			TodayCheckIn:    source.Operations.TodayCheckIn,
			TodayCheckOut:   source.Operations.TodayCheckOut,
			TomorrowCheckIn: source.Operations.TomorrowCheckIn,
			NeedsCleaning:   source.Operations.NeedsCleaning,
		},
		Notifications: make([]notificationPayload, 0, len(source.Notifications)),
	}
	for _, count := range source.Occupancy {
		payload.Occupancy = append(payload.Occupancy, statusCountPayload{Status: count.Status.String(), Label: count.Label, Count: count.Count})
	}
	for _, group := range source.RoomsByStatus {
		payload.RoomsByStatus = append(payload.RoomsByStatus, roomGroupPayload{Status: group.Status.String(), Rooms: newRoomPayloads(group.Rooms)})
	}
	for _, group := range source.ReservationsByStatus {
		payload.ReservationsByStatus = append(payload.ReservationsByStatus, reservationGroupPayload{Status: group.Status.String(), Reservations: newReservationPayloads(group.Reservations)})
	}
	for _, notification := range source.Notifications {
		payload.Notifications = append(payload.Notifications, notificationPayload{
			ID:          notification.ID,
			Type:        string(notification.Type),
			Title:       notification.Title,
			Description: notification.Description,
			PostedAt:    notification.PostedAt,
		})
	}
	return payload
}

func newCalendarPayload(source villa.Calendar) calendarPayload {
	payload := calendarPayload{
		Start: source.Start.Format(dateLayout),
		Days:  make([]string, 0, len(source.Days)),
		Rows:  make([]calendarRowPayload, 0, len(source.Rows)),
	}
	for _, day := range source.Days {
		payload.Days = append(payload.Days, day.Format(dateLayout))
	}
	for _, row := range source.Rows {
		bars := make([]calendarBarPayload, 0, len(row.Bars))
		for _, bar := range row.Bars {
			bars = append(bars, calendarBarPayload{Reservation: newReservationPayload(bar.Reservation), Offset: bar.Offset, Span: bar.Span})
		}
		payload.Rows = append(payload.Rows, calendarRowPayload{Room: newRoomPayload(row.Room), Bars: bars})
	}
	return payload
}
