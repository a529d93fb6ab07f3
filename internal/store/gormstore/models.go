package gormstore

import (
	"time"

	"gorm.io/datatypes"
)

// Villa represents the villas table.
type Villa struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"not null"`
	Location  string    `gorm:"not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	Rooms     []Room    `gorm:"foreignKey:VillaID"`
}

func (Villa) TableName() string { return "villas" }

// Room represents the rooms table. Status is a cache of the room's
// occupancy and cleaning state.
type Room struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	VillaID  int64  `gorm:"not null;index"`
	Name     string `gorm:"not null"`
	Capacity int    `gorm:"not null;default:0"`
	Status   string `gorm:"not null;default:available;index"`
	Villa    *Villa `gorm:"foreignKey:VillaID"`
}

func (Room) TableName() string { return "rooms" }

// Reservation mirrors the reservations table.
type Reservation struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	RoomID         int64     `gorm:"not null;index:idx_reservations_room_stay,priority:1"`
	GuestName      string    `gorm:"not null"`
	CheckIn        time.Time `gorm:"not null;index:idx_reservations_room_stay,priority:2;index:idx_reservations_check_in"`
	CheckOut       time.Time `gorm:"not null;index:idx_reservations_room_stay,priority:3"`
	Status         string    `gorm:"not null;default:reserved"`
	Nationality    string    `gorm:"not null;default:''"`
	PassportNumber string    `gorm:"not null;default:''"`
	NumGuests      int       `gorm:"not null;default:0"`
	Source         string    `gorm:"not null;default:''"`
	Phone          string    `gorm:"not null;default:''"`
	Email          string    `gorm:"not null;default:''"`
	Notes          string    `gorm:"not null;default:''"`
	PaymentMethod  string    `gorm:"not null;default:''"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
	Room           *Room     `gorm:"foreignKey:RoomID"`
}

func (Reservation) TableName() string { return "reservations" }

// ReservationHistory mirrors the append-only reservation_history table.
type ReservationHistory struct {
	ID               int64          `gorm:"primaryKey;autoIncrement"`
	ReservationID    int64          `gorm:"not null;index"`
	RoomID           int64          `gorm:"not null;index:idx_history_room_check_out,priority:1"`
	GuestName        string         `gorm:"not null"`
	CheckIn          time.Time      `gorm:"not null"`
	CheckOut         time.Time      `gorm:"not null;index:idx_history_room_check_out,priority:2"`
	StatusAtCheckout string         `gorm:"not null"`
	GuestSnapshot    datatypes.JSON `gorm:"not null"`
	RecordedAt       time.Time      `gorm:"not null"`
}

func (ReservationHistory) TableName() string { return "reservation_history" }

// User mirrors the users table.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"not null;uniqueIndex:users_username_key"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"not null;default:owner"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Models lists every table in migration order.
func Models() []any {
	return []any{&Villa{}, &Room{}, &Reservation{}, &ReservationHistory{}, &User{}}
}
