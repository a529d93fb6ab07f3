package villa

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"
)

// stubStore keeps everything in maps. WithTx snapshots the maps and restores
// them when fn fails.
type stubStore struct {
	mu           *sync.Mutex
	villas       map[VillaID]Villa
	rooms        map[RoomID]Room
	reservations map[ReservationID]Reservation
	history      []ReservationHistory
	users        map[UserID]User
	nextID       int64
	failWith     error
	lockedRooms  []RoomID
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		mu:           &sync.Mutex{},
		villas:       map[VillaID]Villa{},
		rooms:        map[RoomID]Room{},
		reservations: map[ReservationID]Reservation{},
		users:        map[UserID]User{},
	}
}

func (store *stubStore) allocateID() int64 {
	store.nextID++
	return store.nextID
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.failWith != nil {
		return store.failWith
	}
	snapshot := store.snapshot()
	if err := fn(ctx, store); err != nil {
		store.restore(snapshot)
		return err
	}
	return nil
}

type stubSnapshot struct {
	villas       map[VillaID]Villa
	rooms        map[RoomID]Room
	reservations map[ReservationID]Reservation
	history      []ReservationHistory
	users        map[UserID]User
	nextID       int64
}

func (store *stubStore) snapshot() stubSnapshot {
	snapshot := stubSnapshot{
		villas:       make(map[VillaID]Villa, len(store.villas)),
		rooms:        make(map[RoomID]Room, len(store.rooms)),
		reservations: make(map[ReservationID]Reservation, len(store.reservations)),
		history:      append([]ReservationHistory(nil), store.history...),
		users:        make(map[UserID]User, len(store.users)),
		nextID:       store.nextID,
	}
	for key, value := range store.villas {
		snapshot.villas[key] = value
	}
	for key, value := range store.rooms {
		snapshot.rooms[key] = value
	}
	for key, value := range store.reservations {
		snapshot.reservations[key] = value
	}
	for key, value := range store.users {
		snapshot.users[key] = value
	}
	return snapshot
}

func (store *stubStore) restore(snapshot stubSnapshot) {
	store.villas = snapshot.villas
	store.rooms = snapshot.rooms
	store.reservations = snapshot.reservations
	store.history = snapshot.history
	store.users = snapshot.users
	store.nextID = snapshot.nextID
}

func (store *stubStore) ListVillas(context.Context) ([]Villa, error) {
	villas := make([]Villa, 0, len(store.villas))
	for _, villa := range store.villas {
		for _, room := range store.rooms {
			if room.VillaID == villa.ID {
				villa.Rooms = append(villa.Rooms, room)
			}
		}
		villas = append(villas, villa)
	}
	sort.Slice(villas, func(left, right int) bool { return villas[left].ID < villas[right].ID })
	return villas, nil
}

func (store *stubStore) GetVilla(_ context.Context, villaID VillaID) (Villa, error) {
	villa, ok := store.villas[villaID]
	if !ok {
		return Villa{}, ErrUnknownVilla
	}
	return villa, nil
}

func (store *stubStore) CreateVilla(_ context.Context, villa Villa) (Villa, error) {
	villa.ID = VillaID(store.allocateID())
	store.villas[villa.ID] = villa
	return villa, nil
}

func (store *stubStore) withVilla(room Room) Room {
	if villa, ok := store.villas[room.VillaID]; ok {
		room.Villa = &villa
	}
	return room
}

func (store *stubStore) ListRooms(_ context.Context, status *RoomStatus) ([]Room, error) {
	rooms := make([]Room, 0, len(store.rooms))
	for _, room := range store.rooms {
		if status != nil && room.Status != *status {
			continue
		}
		rooms = append(rooms, store.withVilla(room))
	}
	sort.Slice(rooms, func(left, right int) bool { return rooms[left].ID < rooms[right].ID })
	return rooms, nil
}

func (store *stubStore) GetRoom(_ context.Context, roomID RoomID) (Room, error) {
	room, ok := store.rooms[roomID]
	if !ok {
		return Room{}, ErrUnknownRoom
	}
	return store.withVilla(room), nil
}

func (store *stubStore) LockRoom(ctx context.Context, roomID RoomID) (Room, error) {
	store.lockedRooms = append(store.lockedRooms, roomID)
	return store.GetRoom(ctx, roomID)
}

func (store *stubStore) CreateRoom(_ context.Context, room Room) (Room, error) {
	room.ID = RoomID(store.allocateID())
	store.rooms[room.ID] = room
	return room, nil
}

func (store *stubStore) SaveRoom(_ context.Context, room Room) (Room, error) {
	if _, ok := store.rooms[room.ID]; !ok {
		return Room{}, ErrUnknownRoom
	}
	room.Villa = nil
	store.rooms[room.ID] = room
	return store.withVilla(room), nil
}

func (store *stubStore) UpdateRoomStatus(_ context.Context, roomID RoomID, status RoomStatus) (Room, error) {
	room, ok := store.rooms[roomID]
	if !ok {
		return Room{}, ErrUnknownRoom
	}
	room.Status = status
	store.rooms[roomID] = room
	return store.withVilla(room), nil
}

func (store *stubStore) DeleteRoom(_ context.Context, roomID RoomID) error {
	if _, ok := store.rooms[roomID]; !ok {
		return ErrUnknownRoom
	}
	delete(store.rooms, roomID)
	return nil
}

func (store *stubStore) CountRooms(_ context.Context, status *RoomStatus) (int64, error) {
	var count int64
	for _, room := range store.rooms {
		if status == nil || room.Status == *status {
			count++
		}
	}
	return count, nil
}

func (store *stubStore) FindOverlappingReservation(_ context.Context, roomID RoomID, stay Stay) (Reservation, bool, error) {
	for _, reservation := range store.sortedReservations() {
		if reservation.RoomID != roomID || reservation.Status == ReservationStatusCancelled {
			continue
		}
		if reservation.Stay.Overlaps(stay) {
			return reservation, true, nil
		}
	}
	return Reservation{}, false, nil
}

func (store *stubStore) CreateReservation(_ context.Context, reservation Reservation) (Reservation, error) {
	reservation.ID = ReservationID(store.allocateID())
	store.reservations[reservation.ID] = reservation
	return reservation, nil
}

func (store *stubStore) withRoom(reservation Reservation) Reservation {
	if room, ok := store.rooms[reservation.RoomID]; ok {
		room = store.withVilla(room)
		reservation.Room = &room
	}
	return reservation
}

func (store *stubStore) GetReservation(_ context.Context, reservationID ReservationID) (Reservation, error) {
	reservation, ok := store.reservations[reservationID]
	if !ok {
		return Reservation{}, ErrUnknownReservation
	}
	return store.withRoom(reservation), nil
}

func (store *stubStore) UpdateReservationStatus(_ context.Context, reservationID ReservationID, from, to ReservationStatus) error {
	reservation, ok := store.reservations[reservationID]
	if !ok {
		return ErrUnknownReservation
	}
	if reservation.Status != from {
		return ErrInvalidTransition
	}
	reservation.Status = to
	store.reservations[reservationID] = reservation
	return nil
}

func (store *stubStore) sortedReservations() []Reservation {
	reservations := make([]Reservation, 0, len(store.reservations))
	for _, reservation := range store.reservations {
		reservations = append(reservations, reservation)
	}
	sort.Slice(reservations, func(left, right int) bool {
		if !reservations[left].Stay.CheckIn.Equal(reservations[right].Stay.CheckIn) {
			return reservations[left].Stay.CheckIn.Before(reservations[right].Stay.CheckIn)
		}
		return reservations[left].ID < reservations[right].ID
	})
	return reservations
}

func (store *stubStore) ListReservations(_ context.Context, filter ReservationFilter) ([]Reservation, error) {
	reservations := []Reservation{}
	for _, reservation := range store.sortedReservations() {
		if filter.ExcludeCancelled && reservation.Status == ReservationStatusCancelled {
			continue
		}
		if filter.RoomID != nil && reservation.RoomID != *filter.RoomID {
			continue
		}
		if filter.To != nil && reservation.Stay.CheckIn.After(*filter.To) {
			continue
		}
		if filter.From != nil && reservation.Stay.CheckOut.Before(*filter.From) {
			continue
		}
		if filter.ActiveAt != nil && !reservation.Stay.Contains(*filter.ActiveAt) {
			continue
		}
		reservations = append(reservations, store.withRoom(reservation))
	}
	return reservations, nil
}

func (store *stubStore) CountReservations(_ context.Context, roomID RoomID, statuses []ReservationStatus) (int64, error) {
	var count int64
	for _, reservation := range store.reservations {
		if reservation.RoomID != roomID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, reservation.Status) {
			continue
		}
		count++
	}
	return count, nil
}

func containsStatus(statuses []ReservationStatus, status ReservationStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func (store *stubStore) AppendHistory(_ context.Context, history ReservationHistory) error {
	history.ID = store.allocateID()
	store.history = append(store.history, history)
	return nil
}

func (store *stubStore) LatestHistory(_ context.Context, roomID RoomID) (ReservationHistory, bool, error) {
	var latest ReservationHistory
	found := false
	for _, history := range store.history {
		if history.RoomID != roomID {
			continue
		}
		if !found || history.Stay.CheckOut.After(latest.Stay.CheckOut) {
			latest = history
			found = true
		}
	}
	return latest, found, nil
}

func (store *stubStore) ListUsers(context.Context) ([]User, error) {
	users := make([]User, 0, len(store.users))
	for _, user := range store.users {
		users = append(users, user)
	}
	sort.Slice(users, func(left, right int) bool { return users[left].ID < users[right].ID })
	return users, nil
}

func (store *stubStore) GetUser(_ context.Context, userID UserID) (User, error) {
	user, ok := store.users[userID]
	if !ok {
		return User{}, ErrUnknownUser
	}
	return user, nil
}

func (store *stubStore) GetUserByUsername(_ context.Context, username string) (User, error) {
	for _, user := range store.users {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, ErrUnknownUser
}

func (store *stubStore) CreateUser(_ context.Context, user User) (User, error) {
	user.ID = UserID(store.allocateID())
	store.users[user.ID] = user
	return user, nil
}

func (store *stubStore) SaveUser(_ context.Context, user User) (User, error) {
	if _, ok := store.users[user.ID]; !ok {
		return User{}, ErrUnknownUser
	}
	store.users[user.ID] = user
	return user, nil
}

func (store *stubStore) DeleteUser(_ context.Context, userID UserID) error {
	if _, ok := store.users[userID]; !ok {
		return ErrUnknownUser
	}
	delete(store.users, userID)
	return nil
}

var errStubFailure = errors.New("stub failure")

var fixedNow = time.Date(2025, time.January, 2, 9, 30, 0, 0, time.UTC)

func mustNewService(test *testing.T, store Store, options ...ServiceOption) *Service {
	test.Helper()
	options = append([]ServiceOption{WithPasswordCost(4)}, options...)
	service, err := NewService(store, func() time.Time { return fixedNow }, options...)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	return service
}

func (store *stubStore) mustRoom(test *testing.T, name string, status RoomStatus) Room {
	test.Helper()
	villa, err := store.CreateVilla(context.Background(), Villa{Name: "Villa " + name})
	if err != nil {
		test.Fatalf("create villa: %v", err)
	}
	room, err := store.CreateRoom(context.Background(), Room{VillaID: villa.ID, Name: name, Capacity: 2, Status: status})
	if err != nil {
		test.Fatalf("create room: %v", err)
	}
	return room
}

func (store *stubStore) mustReservation(test *testing.T, reservationID ReservationID) Reservation {
	test.Helper()
	reservation, ok := store.reservations[reservationID]
	if !ok {
		test.Fatalf("reservation %d not found", reservationID)
	}
	return reservation
}

func mustTime(test *testing.T, raw string) time.Time {
	test.Helper()
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		test.Fatalf("parse %q: %v", raw, err)
	}
	return parsed
}
