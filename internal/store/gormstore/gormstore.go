package gormstore

import (
	"context"
	"encoding/json"
	"errors"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintReservationNoOverlap = "reservation_no_overlap"
	constraintUsersUsername        = "users_username_key"
	defaultSnapshotJSON            = "{}"
	pgUniqueViolationCode          = "23505"
	pgExclusionViolationCode       = "23P01"
	sqliteConstraintCode           = 19
	errorOperationStore            = "store"
	errorSubjectVilla              = "villa"
	errorSubjectRoom               = "room"
	errorSubjectReservation        = "reservation"
	errorSubjectHistory            = "history"
	errorSubjectUser               = "user"
	errorCodeCount                 = "count"
	errorCodeCreate                = "create"
	errorCodeDelete                = "delete"
	errorCodeDuplicate             = "duplicate"
	errorCodeGet                   = "get"
	errorCodeInsert                = "insert"
	errorCodeInvalid               = "invalid"
	errorCodeList                  = "list"
	errorCodeLock                  = "lock"
	errorCodeOverlap               = "overlap"
	errorCodeUpdate                = "update"
	errorCodeUpdateStatus          = "update_status"
)

// Store implements villa.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore villa.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// Ping checks that the database answers.
func (store *Store) Ping(ctx context.Context) error {
	sqlDB, err := store.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (store *Store) ListVillas(ctx context.Context) ([]villa.Villa, error) {
	var rows []Villa
	err := store.db.WithContext(ctx).
		Preload("Rooms", func(db *gorm.DB) *gorm.DB { return db.Order("name ASC, id ASC") }).
		Order("name ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectVilla, errorCodeList, err)
	}
	villas := make([]villa.Villa, 0, len(rows))
	for _, row := range rows {
		mapped, err := mapVilla(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectVilla, errorCodeInvalid, err)
		}
		villas = append(villas, mapped)
	}
	return villas, nil
}

func (store *Store) GetVilla(ctx context.Context, villaID villa.VillaID) (villa.Villa, error) {
	var row Villa
	err := store.db.WithContext(ctx).Where("id = ?", villaID.Int64()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return villa.Villa{}, wrapStoreError(errorSubjectVilla, errorCodeGet, villa.ErrUnknownVilla)
		}
		return villa.Villa{}, wrapStoreError(errorSubjectVilla, errorCodeGet, err)
	}
	mapped, err := mapVilla(row)
	if err != nil {
		return villa.Villa{}, wrapStoreError(errorSubjectVilla, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *Store) CreateVilla(ctx context.Context, input villa.Villa) (villa.Villa, error) {
	row := Villa{
		Name:      input.Name,
		Location:  input.Location,
		CreatedAt: input.CreatedAt,
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return villa.Villa{}, wrapStoreError(errorSubjectVilla, errorCodeCreate, err)
	}
	mapped, err := mapVilla(row)
	if err != nil {
		return villa.Villa{}, wrapStoreError(errorSubjectVilla, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *Store) ListRooms(ctx context.Context, status *villa.RoomStatus) ([]villa.Room, error) {
	query := store.db.WithContext(ctx).Preload("Villa").Order("id ASC")
	if status != nil {
		query = query.Where("status = ?", status.String())
	}
	var rows []Room
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectRoom, errorCodeList, err)
	}
	rooms := make([]villa.Room, 0, len(rows))
	for _, row := range rows {
		mapped, err := mapRoom(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectRoom, errorCodeInvalid, err)
		}
		rooms = append(rooms, mapped)
	}
	return rooms, nil
}

func (store *Store) GetRoom(ctx context.Context, roomID villa.RoomID) (villa.Room, error) {
	return store.takeRoom(ctx, store.db.WithContext(ctx), roomID, errorCodeGet)
}

// LockRoom loads a room with a row lock held until the transaction ends.
// SQLite has no row locks; there the single-connection pool serializes writers.
func (store *Store) LockRoom(ctx context.Context, roomID villa.RoomID) (villa.Room, error) {
	return store.takeRoom(ctx, store.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), roomID, errorCodeLock)
}

func (store *Store) takeRoom(ctx context.Context, query *gorm.DB, roomID villa.RoomID, code string) (villa.Room, error) {
	var row Room
	err := query.Where("id = ?", roomID.Int64()).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return villa.Room{}, wrapStoreError(errorSubjectRoom, code, villa.ErrUnknownRoom)
		}
		return villa.Room{}, wrapStoreError(errorSubjectRoom, code, err)
	}
	var parent Villa
	if err := store.db.WithContext(ctx).Where("id = ?", row.VillaID).Take(&parent).Error; err == nil {
		row.Villa = &parent
	}
	mapped, err := mapRoom(row)
	if err != nil {
		return villa.Room{}, wrapStoreError(errorSubjectRoom, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *Store) CreateRoom(ctx context.Context, input villa.Room) (villa.Room, error) {
	row := Room{
		VillaID:  input.VillaID.Int64(),
		Name:     input.Name,
		Capacity: input.Capacity,
		Status:   input.Status.String(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return villa.Room{}, wrapStoreError(errorSubjectRoom, errorCodeCreate, err)
	}
	return store.GetRoom(ctx, villa.RoomID(row.ID))
}

func (store *Store) SaveRoom(ctx context.Context, input villa.Room) (villa.Room, error) {
	result := store.db.WithContext(ctx).
		Model(&Room{}).
		Where("id = ?", input.ID.Int64()).
		Updates(map[string]any{
			"villa_id": input.VillaID.Int64(),
			"name":     input.Name,
			"capacity": input.Capacity,
			"status":   input.Status.String(),
		})
	if result.Error != nil {
		return villa.Room{}, wrapStoreError(errorSubjectRoom, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return villa.Room{}, wrapStoreError(errorSubjectRoom, errorCodeUpdate, villa.ErrUnknownRoom)
	}
	return store.GetRoom(ctx, input.ID)
}

func (store *Store) UpdateRoomStatus(ctx context.Context, roomID villa.RoomID, status villa.RoomStatus) (villa.Room, error) {
	result := store.db.WithContext(ctx).
		Model(&Room{}).
		Where("id = ?", roomID.Int64()).
		Update("status", status.String())
	if result.Error != nil {
		return villa.Room{}, wrapStoreError(errorSubjectRoom, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return villa.Room{}, wrapStoreError(errorSubjectRoom, errorCodeUpdateStatus, villa.ErrUnknownRoom)
	}
	return store.GetRoom(ctx, roomID)
}

func (store *Store) DeleteRoom(ctx context.Context, roomID villa.RoomID) error {
	result := store.db.WithContext(ctx).Where("id = ?", roomID.Int64()).Delete(&Room{})
	if result.Error != nil {
		if isConstraintViolation(result.Error) {
			return wrapStoreError(errorSubjectRoom, errorCodeDelete, villa.ErrRoomHasReservations)
		}
		return wrapStoreError(errorSubjectRoom, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectRoom, errorCodeDelete, villa.ErrUnknownRoom)
	}
	return nil
}

func (store *Store) CountRooms(ctx context.Context, status *villa.RoomStatus) (int64, error) {
	query := store.db.WithContext(ctx).Model(&Room{})
	if status != nil {
		query = query.Where("status = ?", status.String())
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, wrapStoreError(errorSubjectRoom, errorCodeCount, err)
	}
	return count, nil
}

// FindOverlappingReservation returns the earliest non-cancelled reservation of
// roomID whose stay intersects stay on the half-open interval.
func (store *Store) FindOverlappingReservation(ctx context.Context, roomID villa.RoomID, stay villa.Stay) (villa.Reservation, bool, error) {
	var row Reservation
	err := store.db.WithContext(ctx).
		Where("room_id = ? AND status <> ?", roomID.Int64(), villa.ReservationStatusCancelled.String()).
		Where("check_in < ? AND check_out > ?", stay.CheckOut, stay.CheckIn).
		Order("check_in ASC, id ASC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return villa.Reservation{}, false, nil
		}
		return villa.Reservation{}, false, wrapStoreError(errorSubjectReservation, errorCodeOverlap, err)
	}
	mapped, err := mapReservation(row)
	if err != nil {
		return villa.Reservation{}, false, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return mapped, true, nil
}

func (store *Store) CreateReservation(ctx context.Context, input villa.Reservation) (villa.Reservation, error) {
	row := Reservation{
		RoomID:         input.RoomID.Int64(),
		GuestName:      input.GuestName,
		CheckIn:        input.Stay.CheckIn,
		CheckOut:       input.Stay.CheckOut,
		Status:         input.Status.String(),
		Nationality:    input.Guest.Nationality,
		PassportNumber: input.Guest.PassportNumber,
		NumGuests:      input.Guest.NumGuests,
		Source:         input.Guest.Source,
		Phone:          input.Guest.Phone,
		Email:          input.Guest.Email,
		Notes:          input.Guest.Notes,
		PaymentMethod:  input.Guest.PaymentMethod,
		CreatedAt:      input.CreatedAt,
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isOverlapViolation(err) {
		return villa.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeOverlap, villa.ErrReservationConflict)
	}
	if err != nil {
		return villa.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInsert, err)
	}
	mapped, err := mapReservation(row)
	if err != nil {
		return villa.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *Store) GetReservation(ctx context.Context, reservationID villa.ReservationID) (villa.Reservation, error) {
	var row Reservation
	err := store.db.WithContext(ctx).
		Preload("Room.Villa").
		Where("id = ?", reservationID.Int64()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return villa.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, villa.ErrUnknownReservation)
		}
		return villa.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeGet, err)
	}
	mapped, err := mapReservation(row)
	if err != nil {
		return villa.Reservation{}, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *Store) UpdateReservationStatus(ctx context.Context, reservationID villa.ReservationID, from, to villa.ReservationStatus) error {
	result := store.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", reservationID.Int64(), from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectReservation, errorCodeUpdateStatus, villa.ErrInvalidTransition)
	}
	return nil
}

// ListReservations applies filter and orders by check-in ascending.
func (store *Store) ListReservations(ctx context.Context, filter villa.ReservationFilter) ([]villa.Reservation, error) {
	query := store.db.WithContext(ctx).Preload("Room.Villa").Order("check_in ASC, id ASC")
	if filter.To != nil {
		query = query.Where("check_in <= ?", *filter.To)
	}
	if filter.From != nil {
		query = query.Where("check_out >= ?", *filter.From)
	}
	if filter.ActiveAt != nil {
		query = query.Where("check_in <= ? AND check_out > ?", *filter.ActiveAt, *filter.ActiveAt)
	}
	if filter.RoomID != nil {
		query = query.Where("room_id = ?", filter.RoomID.Int64())
	}
	if filter.ExcludeCancelled {
		query = query.Where("status <> ?", villa.ReservationStatusCancelled.String())
	}
	var rows []Reservation
	if err := query.Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectReservation, errorCodeList, err)
	}
	reservations := make([]villa.Reservation, 0, len(rows))
	for _, row := range rows {
		mapped, err := mapReservation(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectReservation, errorCodeInvalid, err)
		}
		reservations = append(reservations, mapped)
	}
	return reservations, nil
}

func (store *Store) CountReservations(ctx context.Context, roomID villa.RoomID, statuses []villa.ReservationStatus) (int64, error) {
	query := store.db.WithContext(ctx).Model(&Reservation{}).Where("room_id = ?", roomID.Int64())
	if len(statuses) > 0 {
		values := make([]string, 0, len(statuses))
		for _, status := range statuses {
			values = append(values, status.String())
		}
		query = query.Where("status IN ?", values)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, wrapStoreError(errorSubjectReservation, errorCodeCount, err)
	}
	return count, nil
}

func (store *Store) AppendHistory(ctx context.Context, history villa.ReservationHistory) error {
	snapshot, err := json.Marshal(history.Guest)
	if err != nil {
		return wrapStoreError(errorSubjectHistory, errorCodeInvalid, err)
	}
	row := ReservationHistory{
		ReservationID:    history.ReservationID.Int64(),
		RoomID:           history.RoomID.Int64(),
		GuestName:        history.GuestName,
		CheckIn:          history.Stay.CheckIn,
		CheckOut:         history.Stay.CheckOut,
		StatusAtCheckout: history.StatusAtCheckout.String(),
		GuestSnapshot:    datatypesJSON(snapshot),
		RecordedAt:       history.RecordedAt,
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return wrapStoreError(errorSubjectHistory, errorCodeInsert, err)
	}
	return nil
}

// LatestHistory returns the history row with the latest check-out for roomID.
func (store *Store) LatestHistory(ctx context.Context, roomID villa.RoomID) (villa.ReservationHistory, bool, error) {
	var row ReservationHistory
	err := store.db.WithContext(ctx).
		Where("room_id = ?", roomID.Int64()).
		Order("check_out DESC, id DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return villa.ReservationHistory{}, false, nil
		}
		return villa.ReservationHistory{}, false, wrapStoreError(errorSubjectHistory, errorCodeGet, err)
	}
	mapped, err := mapHistory(row)
	if err != nil {
		return villa.ReservationHistory{}, false, wrapStoreError(errorSubjectHistory, errorCodeInvalid, err)
	}
	return mapped, true, nil
}

func (store *Store) ListUsers(ctx context.Context) ([]villa.User, error) {
	var rows []User
	if err := store.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectUser, errorCodeList, err)
	}
	users := make([]villa.User, 0, len(rows))
	for _, row := range rows {
		mapped, err := mapUser(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectUser, errorCodeInvalid, err)
		}
		users = append(users, mapped)
	}
	return users, nil
}

func (store *Store) GetUser(ctx context.Context, userID villa.UserID) (villa.User, error) {
	return store.takeUser(store.db.WithContext(ctx).Where("id = ?", userID.Int64()))
}

func (store *Store) GetUserByUsername(ctx context.Context, username string) (villa.User, error) {
	return store.takeUser(store.db.WithContext(ctx).Where("username = ?", username))
}

func (store *Store) takeUser(query *gorm.DB) (villa.User, error) {
	var row User
	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, villa.ErrUnknownUser)
		}
		return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeGet, err)
	}
	mapped, err := mapUser(row)
	if err != nil {
		return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *Store) CreateUser(ctx context.Context, input villa.User) (villa.User, error) {
	row := User{
		Username:     input.Username,
		PasswordHash: input.PasswordHash,
		Role:         input.Role.String(),
		CreatedAt:    input.CreatedAt,
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUsernameConflict(err) {
		return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeDuplicate, villa.ErrDuplicateUsername)
	}
	if err != nil {
		return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeCreate, err)
	}
	mapped, err := mapUser(row)
	if err != nil {
		return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeInvalid, err)
	}
	return mapped, nil
}

func (store *Store) SaveUser(ctx context.Context, input villa.User) (villa.User, error) {
	result := store.db.WithContext(ctx).
		Model(&User{}).
		Where("id = ?", input.ID.Int64()).
		Updates(map[string]any{
			"username":      input.Username,
			"password_hash": input.PasswordHash,
			"role":          input.Role.String(),
		})
	if isUsernameConflict(result.Error) {
		return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeDuplicate, villa.ErrDuplicateUsername)
	}
	if result.Error != nil {
		return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return villa.User{}, wrapStoreError(errorSubjectUser, errorCodeUpdate, villa.ErrUnknownUser)
	}
	return store.GetUser(ctx, input.ID)
}

func (store *Store) DeleteUser(ctx context.Context, userID villa.UserID) error {
	result := store.db.WithContext(ctx).Where("id = ?", userID.Int64()).Delete(&User{})
	if result.Error != nil {
		return wrapStoreError(errorSubjectUser, errorCodeDelete, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectUser, errorCodeDelete, villa.ErrUnknownUser)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return villa.WrapError(errorOperationStore, subject, code, err)
}

func datatypesJSON(raw []byte) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON([]byte(defaultSnapshotJSON))
	}
	return datatypes.JSON(raw)
}

func isOverlapViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgExclusionViolationCode && pgErr.ConstraintName == constraintReservationNoOverlap
	}
	return false
}

func isUsernameConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintUsersUsername
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "23"
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
