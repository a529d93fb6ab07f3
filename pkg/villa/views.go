package villa

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// StatusCount is one slice of the occupancy breakdown.
type StatusCount struct {
	Status RoomStatus
	Label  string
	Count  int
}

// OccupancyBreakdown counts rooms per status in RoomStatuses order. Statuses
// with no rooms are omitted.
func OccupancyBreakdown(rooms []Room) []StatusCount {
	counts := make(map[RoomStatus]int, len(RoomStatuses))
	for _, room := range rooms {
		counts[effectiveRoomStatus(room.Status)]++
	}
	breakdown := make([]StatusCount, 0, len(RoomStatuses))
	for _, status := range RoomStatuses {
		if counts[status] == 0 {
			continue
		}
		breakdown = append(breakdown, StatusCount{Status: status, Label: status.Label(), Count: counts[status]})
	}
	return breakdown
}

// RoomGroup is a status column of rooms.
type RoomGroup struct {
	Status RoomStatus
	Rooms  []Room
}

// GroupRoomsByStatus returns one group per room status in RoomStatuses order,
// empty groups included.
func GroupRoomsByStatus(rooms []Room) []RoomGroup {
	groups := make([]RoomGroup, len(RoomStatuses))
	index := make(map[RoomStatus]int, len(RoomStatuses))
	for position, status := range RoomStatuses {
		groups[position] = RoomGroup{Status: status, Rooms: []Room{}}
		index[status] = position
	}
	for _, room := range rooms {
		position := index[effectiveRoomStatus(room.Status)]
		groups[position].Rooms = append(groups[position].Rooms, room)
	}
	return groups
}

// ReservationGroup is a status column of reservations.
type ReservationGroup struct {
	Status       ReservationStatus
	Reservations []Reservation
}

// GroupReservationsByStatus returns one group per reservation status in
// ReservationStatuses order, empty groups included. Unknown statuses are
// dropped.
func GroupReservationsByStatus(reservations []Reservation) []ReservationGroup {
	groups := make([]ReservationGroup, len(ReservationStatuses))
	index := make(map[ReservationStatus]int, len(ReservationStatuses))
	for position, status := range ReservationStatuses {
		groups[position] = ReservationGroup{Status: status, Reservations: []Reservation{}}
		index[status] = position
	}
	for _, reservation := range reservations {
		position, ok := index[reservation.Status]
		if !ok {
			continue
		}
		groups[position].Reservations = append(groups[position].Reservations, reservation)
	}
	return groups
}

func effectiveRoomStatus(status RoomStatus) RoomStatus {
	if status == "" {
		return RoomStatusAvailable
	}
	return status
}

// Calendar is a day grid of rooms and their reservation bars.
type Calendar struct {
	Start time.Time
	Days  []time.Time
	Rows  []CalendarRow
}

// CalendarRow holds the bars of one room.
type CalendarRow struct {
	Room Room
	Bars []CalendarBar
}

// CalendarBar places a reservation on the grid. Offset is the number of days
// from the window start, Span the number of day columns covered.
type CalendarBar struct {
	Reservation Reservation
	Offset      int
	Span        int
}

// CalendarLayout lays reservations out over days local dates starting at
// start. Rows are sorted by villa name then room name. Stays are clipped to
// the window; cancelled reservations and reservations of unlisted rooms are
// skipped.
func CalendarLayout(start time.Time, days int, rooms []Room, reservations []Reservation, location *time.Location) (Calendar, error) {
	if days <= 0 {
		return Calendar{}, fmt.Errorf("%w: days must be positive", ErrInvalidDateRange)
	}
	if location == nil {
		location = time.UTC
	}
	windowStart := startOfDay(start, location)
	windowEnd := windowStart.AddDate(0, 0, days)

	calendar := Calendar{Start: windowStart, Days: make([]time.Time, days), Rows: make([]CalendarRow, 0, len(rooms))}
	for offset := range calendar.Days {
		calendar.Days[offset] = windowStart.AddDate(0, 0, offset)
	}

	sortedRooms := append([]Room(nil), rooms...)
	sort.SliceStable(sortedRooms, func(left, right int) bool {
		leftVilla, rightVilla := sortedRooms[left].VillaName(), sortedRooms[right].VillaName()
		if leftVilla != rightVilla {
			return leftVilla < rightVilla
		}
		return sortedRooms[left].Name < sortedRooms[right].Name
	})
	rowIndex := make(map[RoomID]int, len(sortedRooms))
	for position, room := range sortedRooms {
		rowIndex[room.ID] = position
		calendar.Rows = append(calendar.Rows, CalendarRow{Room: room, Bars: []CalendarBar{}})
	}

	window := Stay{CheckIn: windowStart, CheckOut: windowEnd}
	for _, reservation := range reservations {
		if reservation.Status == ReservationStatusCancelled {
			continue
		}
		position, ok := rowIndex[reservation.RoomID]
		if !ok || !reservation.Stay.Overlaps(window) {
			continue
		}
		checkInDay := startOfDay(reservation.Stay.CheckIn, location)
		checkOutDay := startOfDay(reservation.Stay.CheckOut, location)
		if checkInDay.Before(windowStart) {
			checkInDay = windowStart
		}
		if checkOutDay.After(windowEnd) {
			checkOutDay = windowEnd
		}
		offset := dayDiff(windowStart, checkInDay)
		span := dayDiff(checkInDay, checkOutDay)
		if span < 1 {
			span = 1
		}
		if offset+span > days {
			span = days - offset
		}
		calendar.Rows[position].Bars = append(calendar.Rows[position].Bars, CalendarBar{
			Reservation: reservation,
			Offset:      offset,
			Span:        span,
		})
	}
	for position := range calendar.Rows {
		bars := calendar.Rows[position].Bars
		sort.SliceStable(bars, func(left, right int) bool {
			return bars[left].Offset < bars[right].Offset
		})
	}
	return calendar, nil
}

// OperationsSummary holds the day-of counters shown to front-desk staff.
type OperationsSummary struct {
	TodayCheckIn    int
	TodayCheckOut   int
	TomorrowCheckIn int
	NeedsCleaning   int
}

// SummarizeOperations counts today's and tomorrow's movements relative to now
// in location. Cancelled reservations are ignored.
func SummarizeOperations(now time.Time, location *time.Location, reservations []Reservation, housekeeping []HousekeepingItem) OperationsSummary {
	if location == nil {
		location = time.UTC
	}
	today := startOfDay(now, location)
	tomorrow := today.AddDate(0, 0, 1)
	summary := OperationsSummary{NeedsCleaning: len(housekeeping)}
	for _, reservation := range reservations {
		if reservation.Status == ReservationStatusCancelled {
			continue
		}
		checkInDay := startOfDay(reservation.Stay.CheckIn, location)
		checkOutDay := startOfDay(reservation.Stay.CheckOut, location)
		if checkInDay.Equal(today) {
			summary.TodayCheckIn++
		}
		if checkOutDay.Equal(today) {
			summary.TodayCheckOut++
		}
		if checkInDay.Equal(tomorrow) {
			summary.TomorrowCheckIn++
		}
	}
	return summary
}

// NotificationType classifies a notification.
type NotificationType string

const (
	NotificationCleaning        NotificationType = "cleaning"
	NotificationCheckInToday    NotificationType = "checkin_today"
	NotificationCheckOutToday   NotificationType = "checkout_today"
	NotificationCheckInTomorrow NotificationType = "checkin_tomorrow"
)

// Notification is a staff-facing reminder.
type Notification struct {
	ID          string
	Type        NotificationType
	Title       string
	Description string
	PostedAt    *time.Time
}

// Notifications lists cleaning reminders first, then today's check-ins,
// today's check-outs and tomorrow's check-ins.
func Notifications(now time.Time, location *time.Location, reservations []Reservation, housekeeping []HousekeepingItem) []Notification {
	if location == nil {
		location = time.UTC
	}
	today := startOfDay(now, location)
	tomorrow := today.AddDate(0, 0, 1)
	notifications := make([]Notification, 0, len(housekeeping))

	for _, item := range housekeeping {
		description := "Room was checked out and needs cleaning."
		if item.LastGuest != nil {
			description = "Last guest: " + *item.LastGuest
		}
		notifications = append(notifications, Notification{
			ID:          fmt.Sprintf("clean-%d", item.RoomID.Int64()),
			Type:        NotificationCleaning,
			Title:       fmt.Sprintf("Room needs cleaning: %s, %s", item.VillaName, item.RoomName),
			Description: description,
			PostedAt:    item.LastCheckOut,
		})
	}

	active := make([]Reservation, 0, len(reservations))
	for _, reservation := range reservations {
		if reservation.Status != ReservationStatusCancelled {
			active = append(active, reservation)
		}
	}
	for _, reservation := range active {
		if startOfDay(reservation.Stay.CheckIn, location).Equal(today) {
			notifications = append(notifications, reservationNotification(reservation, NotificationCheckInToday, "checkin-today", "Check-in today", reservation.Stay.CheckIn))
		}
	}
	for _, reservation := range active {
		if startOfDay(reservation.Stay.CheckOut, location).Equal(today) {
			notifications = append(notifications, reservationNotification(reservation, NotificationCheckOutToday, "checkout-today", "Check-out today", reservation.Stay.CheckOut))
		}
	}
	for _, reservation := range active {
		if startOfDay(reservation.Stay.CheckIn, location).Equal(tomorrow) {
			notifications = append(notifications, reservationNotification(reservation, NotificationCheckInTomorrow, "checkin-tomorrow", "Check-in tomorrow", reservation.Stay.CheckIn))
		}
	}
	return notifications
}

func reservationNotification(reservation Reservation, kind NotificationType, idPrefix string, title string, postedAt time.Time) Notification {
	description := "No room assigned"
	if reservation.Room != nil {
		description = strings.TrimSpace(fmt.Sprintf("%s, %s", reservation.Room.VillaName(), reservation.Room.Name))
	}
	posted := postedAt
	return Notification{
		ID:          fmt.Sprintf("%s-%d", idPrefix, reservation.ID.Int64()),
		Type:        kind,
		Title:       fmt.Sprintf("%s: %s", title, reservation.GuestName),
		Description: description,
		PostedAt:    &posted,
	}
}

// Overview bundles the derived dashboard views.
type Overview struct {
	GeneratedAt          time.Time
	Occupancy            []StatusCount
	RoomsByStatus        []RoomGroup
	ReservationsByStatus []ReservationGroup
	Operations           OperationsSummary
	Notifications        []Notification
}

// BuildOverview assembles every derived view from already-fetched data.
func BuildOverview(now time.Time, location *time.Location, rooms []Room, reservations []Reservation, housekeeping []HousekeepingItem) Overview {
	return Overview{
		GeneratedAt:          now,
		Occupancy:            OccupancyBreakdown(rooms),
		RoomsByStatus:        GroupRoomsByStatus(rooms),
		ReservationsByStatus: GroupReservationsByStatus(reservations),
		Operations:           SummarizeOperations(now, location, reservations, housekeeping),
		Notifications:        Notifications(now, location, reservations, housekeeping),
	}
}

// ParseDate reads a YYYY-MM-DD local date as midnight in location.
func ParseDate(raw string, location *time.Location) (time.Time, error) {
	if location == nil {
		location = time.UTC
	}
	parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateRange, raw)
	}
	return parsed, nil
}

func startOfDay(instant time.Time, location *time.Location) time.Time {
	local := instant.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)
}

// dayDiff counts calendar days between two local midnights, ignoring DST.
func dayDiff(from time.Time, to time.Time) int {
	fromDate := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDate := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDate.Sub(fromDate) / day)
}
