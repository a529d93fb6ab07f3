package villa

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VillaID identifies a villa.
type VillaID int64

// RoomID identifies a room.
type RoomID int64

// ReservationID identifies a reservation.
type ReservationID int64

// UserID identifies a staff account.
type UserID int64

// NewVillaID validates a villa id.
func NewVillaID(raw int64) (VillaID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidVillaID)
	}
	return VillaID(raw), nil
}

// ParseVillaID parses a decimal villa id.
func ParseVillaID(raw string) (VillaID, error) {
	value, err := parseID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVillaID, raw)
	}
	return NewVillaID(value)
}

// Int64 returns the raw value.
func (id VillaID) Int64() int64 { return int64(id) }

// NewRoomID validates a room id.
func NewRoomID(raw int64) (RoomID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidRoomID)
	}
	return RoomID(raw), nil
}

// ParseRoomID parses a decimal room id.
func ParseRoomID(raw string) (RoomID, error) {
	value, err := parseID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRoomID, raw)
	}
	return NewRoomID(value)
}

// Int64 returns the raw value.
func (id RoomID) Int64() int64 { return int64(id) }

// NewReservationID validates a reservation id.
func NewReservationID(raw int64) (ReservationID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidReservationID)
	}
	return ReservationID(raw), nil
}

// ParseReservationID parses a decimal reservation id.
func ParseReservationID(raw string) (ReservationID, error) {
	value, err := parseID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidReservationID, raw)
	}
	return NewReservationID(value)
}

// Int64 returns the raw value.
func (id ReservationID) Int64() int64 { return int64(id) }

// NewUserID validates a user id.
func NewUserID(raw int64) (UserID, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidUserID)
	}
	return UserID(raw), nil
}

// ParseUserID parses a decimal user id.
func ParseUserID(raw string) (UserID, error) {
	value, err := parseID(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUserID, raw)
	}
	return NewUserID(value)
}

// Int64 returns the raw value.
func (id UserID) Int64() int64 { return int64(id) }

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

// RoomStatus is the cached occupancy/cleaning state of a room.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusReserved    RoomStatus = "reserved"
	RoomStatusCheckedIn   RoomStatus = "checked_in"
	RoomStatusCheckedOut  RoomStatus = "checked_out"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// RoomStatuses lists every room status in display order.
var RoomStatuses = []RoomStatus{
	RoomStatusAvailable,
	RoomStatusReserved,
	RoomStatusCheckedIn,
	RoomStatusCheckedOut,
	RoomStatusMaintenance,
}

// ParseRoomStatus validates a room status; empty input means available.
func ParseRoomStatus(raw string) (RoomStatus, error) {
	normalized := RoomStatus(strings.ToLower(strings.TrimSpace(raw)))
	if normalized == "" {
		return RoomStatusAvailable, nil
	}
	for _, status := range RoomStatuses {
		if status == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRoomStatus, raw)
}

// String returns the stored representation.
func (status RoomStatus) String() string { return string(status) }

// Label returns the human-readable name of the status.
func (status RoomStatus) Label() string {
	switch status {
	case RoomStatusAvailable:
		return "Available"
	case RoomStatusReserved:
		return "Reserved"
	case RoomStatusCheckedIn:
		return "Checked in"
	case RoomStatusCheckedOut:
		return "Checked out"
	case RoomStatusMaintenance:
		return "Maintenance"
	default:
		return string(status)
	}
}

// ReservationStatus defines the reservation lifecycle.
type ReservationStatus string

const (
	ReservationStatusReserved   ReservationStatus = "reserved"
	ReservationStatusCheckedIn  ReservationStatus = "checked_in"
	ReservationStatusCheckedOut ReservationStatus = "checked_out"
	ReservationStatusCancelled  ReservationStatus = "cancelled"

	reservationStatusBookedAlias = "booked"
)

// ReservationStatuses lists every reservation status in display order.
var ReservationStatuses = []ReservationStatus{
	ReservationStatusReserved,
	ReservationStatusCheckedIn,
	ReservationStatusCheckedOut,
	ReservationStatusCancelled,
}

// ParseReservationStatus validates a reservation status. "booked" is accepted
// as an alias of reserved.
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == reservationStatusBookedAlias {
		return ReservationStatusReserved, nil
	}
	for _, status := range ReservationStatuses {
		if string(status) == normalized {
			return status, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidReservationStatus, raw)
}

// String returns the stored representation.
func (status ReservationStatus) String() string { return string(status) }

// CanTransitionTo reports whether the lifecycle permits moving to next.
func (status ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch status {
	case ReservationStatusReserved:
		return next == ReservationStatusCheckedIn || next == ReservationStatusCancelled
	case ReservationStatusCheckedIn:
		return next == ReservationStatusCheckedOut
	default:
		return false
	}
}

// Role is a staff role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// ParseRole validates admin, owner, frontdesk_<x> and housekeeper_<x> roles.
func ParseRole(raw string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case normalized == string(RoleAdmin), normalized == string(RoleOwner):
		return Role(normalized), nil
	case hasRoleSuffix(normalized, rolePrefixFrontdesk), hasRoleSuffix(normalized, rolePrefixHousekeeper):
		return Role(normalized), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

func hasRoleSuffix(value string, prefix string) bool {
	return strings.HasPrefix(value, prefix) && len(value) > len(prefix)
}

// String returns the stored representation.
func (role Role) String() string { return string(role) }

// Stay is a half-open interval [CheckIn, CheckOut).
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewStay normalizes both ends to whole UTC seconds and requires CheckIn < CheckOut.
func NewStay(checkIn time.Time, checkOut time.Time) (Stay, error) {
	if checkIn.IsZero() || checkOut.IsZero() {
		return Stay{}, fmt.Errorf("%w: checkIn and checkOut are required", ErrInvalidTimestamp)
	}
	stay := Stay{CheckIn: NormalizeTime(checkIn), CheckOut: NormalizeTime(checkOut)}
	if !stay.CheckIn.Before(stay.CheckOut) {
		return Stay{}, ErrInvalidStay
	}
	return stay, nil
}

// Overlaps reports whether two stays share any instant. Touching ends do not overlap.
func (stay Stay) Overlaps(other Stay) bool {
	return stay.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(stay.CheckOut)
}

// Contains reports whether instant falls inside the stay.
func (stay Stay) Contains(instant time.Time) bool {
	return !instant.Before(stay.CheckIn) && instant.Before(stay.CheckOut)
}

// NormalizeTime converts to UTC and drops sub-second precision.
func NormalizeTime(value time.Time) time.Time {
	return value.UTC().Truncate(time.Second)
}

// ParseTimestamp accepts RFC 3339 and zone-less date/time forms; the latter
// are interpreted in location.
func ParseTimestamp(raw string, location *time.Location) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	if location == nil {
		location = time.UTC
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.ParseInLocation(layout, trimmed, location)
		if err == nil {
			return NormalizeTime(parsed), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}

// Villa is a property containing rooms.
type Villa struct {
	ID        VillaID
	Name      string
	Location  string
	Rooms     []Room
	CreatedAt time.Time
}

// Room is a bookable unit inside a villa.
type Room struct {
	ID       RoomID
	VillaID  VillaID
	Name     string
	Capacity int
	Status   RoomStatus
	Villa    *Villa
}

// VillaName returns the owning villa's name when it was loaded.
func (room Room) VillaName() string {
	if room.Villa == nil {
		return ""
	}
	return room.Villa.Name
}

// GuestDetails carries the optional guest metadata of a reservation.
type GuestDetails struct {
	Nationality    string `json:"nationality,omitempty"`
	PassportNumber string `json:"passportNumber,omitempty"`
	NumGuests      int    `json:"numGuests,omitempty"`
	Source         string `json:"source,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	Notes          string `json:"notes,omitempty"`
	PaymentMethod  string `json:"paymentMethod,omitempty"`
}

// Reservation is a guest's stay in a room.
type Reservation struct {
	ID        ReservationID
	RoomID    RoomID
	GuestName string
	Guest     GuestDetails
	Stay      Stay
	Status    ReservationStatus
	CreatedAt time.Time
	Room      *Room
}

// ReservationHistory is the append-only record written at checkout.
type ReservationHistory struct {
	ID               int64
	ReservationID    ReservationID
	RoomID           RoomID
	GuestName        string
	Stay             Stay
	StatusAtCheckout ReservationStatus
	Guest            GuestDetails
	RecordedAt       time.Time
}

// User is a staff account.
type User struct {
	ID           UserID
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// VillaInput describes a new villa.
type VillaInput struct {
	Name     string
	Location string
}

// RoomInput describes a new room.
type RoomInput struct {
	VillaID  int64
	Name     string
	Capacity int
	Status   string
}

// RoomUpdate carries the fields of a partial room update; nil means unchanged.
type RoomUpdate struct {
	VillaID  *int64
	Name     *string
	Capacity *int
	Status   *string
}

// ReservationInput describes a new booking. CheckIn and CheckOut are raw
// timestamps as received from clients.
type ReservationInput struct {
	RoomID    int64
	GuestName string
	CheckIn   string
	CheckOut  string
	Status    string
	Guest     GuestDetails
}

// ReservationFilter narrows reservation listings. From/To select stays that
// touch the closed window [From, To]; ActiveAt selects stays containing that
// instant.
type ReservationFilter struct {
	From             *time.Time
	To               *time.Time
	ActiveAt         *time.Time
	RoomID           *RoomID
	ExcludeCancelled bool
}

// UserInput describes a new account.
type UserInput struct {
	Username string
	Password string
	Role     string
}

// UserUpdate carries the fields of a partial account update; nil or empty
// password means unchanged.
type UserUpdate struct {
	Username *string
	Password *string
	Role     *string
}

// HousekeepingItem is a room waiting for cleaning with its last-guest context.
type HousekeepingItem struct {
	RoomID       RoomID
	RoomName     string
	VillaName    string
	Status       RoomStatus
	LastGuest    *string
	LastCheckOut *time.Time
}

// Dashboard summarizes current occupancy.
type Dashboard struct {
	TotalRooms        int64
	OccupiedRooms     int64
	ReservationsToday []Reservation
}

// Store is the persistence contract used by Service.
// (gormstore implements this.)
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	ListVillas(ctx context.Context) ([]Villa, error)
	GetVilla(ctx context.Context, villaID VillaID) (Villa, error)
	CreateVilla(ctx context.Context, villa Villa) (Villa, error)

	ListRooms(ctx context.Context, status *RoomStatus) ([]Room, error)
	GetRoom(ctx context.Context, roomID RoomID) (Room, error)
	LockRoom(ctx context.Context, roomID RoomID) (Room, error)
	CreateRoom(ctx context.Context, room Room) (Room, error)
	SaveRoom(ctx context.Context, room Room) (Room, error)
	UpdateRoomStatus(ctx context.Context, roomID RoomID, status RoomStatus) (Room, error)
	DeleteRoom(ctx context.Context, roomID RoomID) error
	CountRooms(ctx context.Context, status *RoomStatus) (int64, error)

	FindOverlappingReservation(ctx context.Context, roomID RoomID, stay Stay) (Reservation, bool, error)
	CreateReservation(ctx context.Context, reservation Reservation) (Reservation, error)
	GetReservation(ctx context.Context, reservationID ReservationID) (Reservation, error)
	UpdateReservationStatus(ctx context.Context, reservationID ReservationID, from, to ReservationStatus) error
	ListReservations(ctx context.Context, filter ReservationFilter) ([]Reservation, error)
	CountReservations(ctx context.Context, roomID RoomID, statuses []ReservationStatus) (int64, error)

	AppendHistory(ctx context.Context, history ReservationHistory) error
	LatestHistory(ctx context.Context, roomID RoomID) (ReservationHistory, bool, error)

	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, userID UserID) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
	SaveUser(ctx context.Context, user User) (User, error)
	DeleteUser(ctx context.Context, userID UserID) error
}
