package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/williamjonathanliem/elysian-cms/internal/session"
	"github.com/williamjonathanliem/elysian-cms/internal/store/gormstore"
	"github.com/williamjonathanliem/elysian-cms/pkg/villa"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var apiNow = time.Date(2025, time.January, 2, 9, 30, 0, 0, time.UTC)

const (
	adminUsername = "admin"
	adminPassword = "admin-pass"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	router  *gin.Engine
	service *villa.Service
	admin   villa.User
}

func newTestServer(test *testing.T) *testServer {
	test.Helper()
	dsn := filepath.Join(test.TempDir(), "api.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		test.Fatalf("sqlite open failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		test.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	test.Cleanup(func() { _ = sqlDB.Close() })
	if err := gormstore.Migrate(context.Background(), db); err != nil {
		test.Fatalf("migrate: %v", err)
	}

	clock := func() time.Time { return apiNow }
	service, err := villa.NewService(gormstore.New(db), clock, villa.WithPasswordCost(4))
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	sessions, err := session.NewManager(session.Config{SigningKey: "test-secret"}, clock, nil)
	if err != nil {
		test.Fatalf("session init failed: %v", err)
	}
	admin, err := service.CreateUser(context.Background(), villa.UserInput{Username: adminUsername, Password: adminPassword, Role: "admin"})
	if err != nil {
		test.Fatalf("seed admin: %v", err)
	}

	cfg := Config{}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("config: %v", err)
	}
	router, err := NewRouter(cfg, Dependencies{Service: service, Sessions: sessions, Logger: zap.NewNop()})
	if err != nil {
		test.Fatalf("router: %v", err)
	}
	return &testServer{router: router, service: service, admin: admin}
}

func (server *testServer) do(test *testing.T, method string, path string, payload any, cookie *http.Cookie) *httptest.ResponseRecorder {
	test.Helper()
	var body *bytes.Reader
	switch typed := payload.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case string:
		body = bytes.NewReader([]byte(typed))
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			test.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, body)
	request.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, request)
	return recorder
}

func (server *testServer) login(test *testing.T, username string, password string) *http.Cookie {
	test.Helper()
	recorder := server.do(test, http.MethodPost, "/api/login", map[string]string{"username": username, "password": password}, nil)
	if recorder.Code != http.StatusOK {
		test.Fatalf("login failed: %d %s", recorder.Code, recorder.Body.String())
	}
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == "token" {
			return cookie
		}
	}
	test.Fatalf("login did not set a session cookie")
	return nil
}

func decodeObject(test *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	test.Helper()
	var decoded map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		test.Fatalf("decode %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func decodeList(test *testing.T, recorder *httptest.ResponseRecorder) []map[string]any {
	test.Helper()
	var decoded []map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		test.Fatalf("decode %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func expectError(test *testing.T, recorder *httptest.ResponseRecorder, status int, message string) map[string]any {
	test.Helper()
	if recorder.Code != status {
		test.Fatalf("expected %d, got %d (%s)", status, recorder.Code, recorder.Body.String())
	}
	decoded := decodeObject(test, recorder)
	if decoded["error"] != message {
		test.Fatalf("expected error %q, got %v", message, decoded["error"])
	}
	return decoded
}

func (server *testServer) seedRoom(test *testing.T, cookie *http.Cookie, villaName string, roomName string) int64 {
	test.Helper()
	villaRecorder := server.do(test, http.MethodPost, "/api/villas", map[string]any{"name": villaName, "location": "Bali"}, cookie)
	if villaRecorder.Code != http.StatusOK {
		test.Fatalf("create villa: %d %s", villaRecorder.Code, villaRecorder.Body.String())
	}
	villaID := int64(decodeObject(test, villaRecorder)["id"].(float64))
	roomRecorder := server.do(test, http.MethodPost, "/api/rooms", map[string]any{"villaId": villaID, "name": roomName, "capacity": 2}, cookie)
	if roomRecorder.Code != http.StatusOK {
		test.Fatalf("create room: %d %s", roomRecorder.Code, roomRecorder.Body.String())
	}
	return int64(decodeObject(test, roomRecorder)["id"].(float64))
}

func TestLoginSessionAndLogout(test *testing.T) {
	test.Parallel()
	server := newTestServer(test)

	expectError(test, server.do(test, http.MethodPost, "/api/login", map[string]string{"username": adminUsername, "password": "wrong"}, nil), http.StatusUnauthorized, errorInvalidCredentials)
	expectError(test, server.do(test, http.MethodPost, "/api/login", map[string]string{"username": "ghost", "password": "wrong"}, nil), http.StatusUnauthorized, errorInvalidCredentials)
	expectError(test, server.do(test, http.MethodPost, "/api/login", "{", nil), http.StatusBadRequest, errorInvalidJSON)
	expectError(test, server.do(test, http.MethodGet, "/api/dashboard", nil, nil), http.StatusUnauthorized, errorUnauthorized)
	expectError(test, server.do(test, http.MethodGet, "/api/auth/me", nil, nil), http.StatusUnauthorized, errorUnauthorized)

	loginRecorder := server.do(test, http.MethodPost, "/api/login", map[string]string{"username": adminUsername, "password": adminPassword}, nil)
	if loginRecorder.Code != http.StatusOK {
		test.Fatalf("login failed: %d", loginRecorder.Code)
	}
	loginBody := decodeObject(test, loginRecorder)
	user := loginBody["user"].(map[string]any)
	if loginBody["ok"] != true || user["username"] != adminUsername || user["role"] != "admin" {
		test.Fatalf("unexpected login body %v", loginBody)
	}
	if _, leaked := user["password"]; leaked {
		test.Fatalf("login body leaked a password field")
	}
	cookie := server.login(test, adminUsername, adminPassword)

	meRecorder := server.do(test, http.MethodGet, "/api/auth/me", nil, cookie)
	if meRecorder.Code != http.StatusOK {
		test.Fatalf("me failed: %d %s", meRecorder.Code, meRecorder.Body.String())
	}
	if me := decodeObject(test, meRecorder)["user"].(map[string]any); me["username"] != adminUsername {
		test.Fatalf("unexpected me body %v", me)
	}

	logoutRecorder := server.do(test, http.MethodPost, "/api/logout", nil, cookie)
	if logoutRecorder.Code != http.StatusOK || !strings.Contains(logoutRecorder.Header().Get("Set-Cookie"), "Max-Age=0") {
		test.Fatalf("expected cleared cookie, got %d %q", logoutRecorder.Code, logoutRecorder.Header().Get("Set-Cookie"))
	}
}

func TestReservationFlowOverHTTP(test *testing.T) {
	test.Parallel()
	server := newTestServer(test)
	cookie := server.login(test, adminUsername, adminPassword)
	roomID := server.seedRoom(test, cookie, "Ubud", "Garden")

	booking := map[string]any{
		"roomId":    roomID,
		"guestName": "Ada",
		"checkIn":   "2025-01-01T10:00:00Z",
		"checkOut":  "2025-01-03T10:00:00Z",
		"numGuests": 2,
	}
	created := server.do(test, http.MethodPost, "/api/reservations", booking, cookie)
	if created.Code != http.StatusOK {
		test.Fatalf("create reservation: %d %s", created.Code, created.Body.String())
	}
	reservation := decodeObject(test, created)
	reservationID := int64(reservation["id"].(float64))
	if reservation["status"] != "reserved" || reservation["room"].(map[string]any)["status"] != "reserved" {
		test.Fatalf("unexpected reservation body %v", reservation)
	}

	overlapping := map[string]any{"roomId": roomID, "guestName": "Bob", "checkIn": "2025-01-02", "checkOut": "2025-01-04"}
	conflict := expectError(test, server.do(test, http.MethodPost, "/api/reservations", overlapping, cookie), http.StatusConflict, errorRoomUnavailable)
	if details := conflict["conflict"].(map[string]any); int64(details["id"].(float64)) != reservationID || details["guestName"] != "Ada" {
		test.Fatalf("unexpected conflict details %v", details)
	}

	touching := map[string]any{"roomId": roomID, "guestName": "Cy", "checkIn": "2025-01-03T10:00:00Z", "checkOut": "2025-01-05T10:00:00Z"}
	if recorder := server.do(test, http.MethodPost, "/api/reservations", touching, cookie); recorder.Code != http.StatusOK {
		test.Fatalf("touching booking should succeed: %d %s", recorder.Code, recorder.Body.String())
	}

	expectError(test, server.do(test, http.MethodPost, "/api/reservations", map[string]any{"roomId": roomID}, cookie), http.StatusUnprocessableEntity, errorReservationRequired)
	expectError(test, server.do(test, http.MethodPost, "/api/reservations", map[string]any{"roomId": roomID, "guestName": "X", "checkIn": "soon", "checkOut": "later"}, cookie), http.StatusUnprocessableEntity, errorInvalidDatetime)
	expectError(test, server.do(test, http.MethodPost, "/api/reservations", map[string]any{"roomId": roomID, "guestName": "X", "checkIn": "2025-02-03", "checkOut": "2025-02-01"}, cookie), http.StatusUnprocessableEntity, "checkIn must be before checkOut")
	expectError(test, server.do(test, http.MethodPost, "/api/reservations", map[string]any{"roomId": 999, "guestName": "X", "checkIn": "2025-02-01", "checkOut": "2025-02-03"}, cookie), http.StatusNotFound, errorNotFoundRoom)

	listed := decodeList(test, server.do(test, http.MethodGet, "/api/reservations?start=2025-01-01&end=2025-01-02", nil, cookie))
	if len(listed) != 1 || listed[0]["guestName"] != "Ada" {
		test.Fatalf("unexpected range listing %v", listed)
	}
	expectError(test, server.do(test, http.MethodGet, "/api/reservations?start=2025-01-01", nil, cookie), http.StatusUnprocessableEntity, "Invalid date range")

	dashboard := decodeObject(test, server.do(test, http.MethodGet, "/api/dashboard", nil, cookie))
	if dashboard["totalRooms"].(float64) != 1 || dashboard["occupiedRooms"].(float64) != 0 || len(dashboard["reservationsToday"].([]any)) != 1 {
		test.Fatalf("unexpected dashboard %v", dashboard)
	}

	path := "/api/reservations/" + jsonNumber(reservationID)
	expectError(test, server.do(test, http.MethodPut, path+"/checkout", nil, cookie), http.StatusConflict, errorInvalidTransition)
	checkedIn := decodeObject(test, server.do(test, http.MethodPut, path+"/checkin", nil, cookie))
	if checkedIn["status"] != "checked_in" {
		test.Fatalf("expected checked_in, got %v", checkedIn)
	}
	dashboard = decodeObject(test, server.do(test, http.MethodGet, "/api/dashboard", nil, cookie))
	if dashboard["occupiedRooms"].(float64) != 1 {
		test.Fatalf("expected one occupied room, got %v", dashboard)
	}
	roomPath := "/api/rooms/" + jsonNumber(roomID)
	expectError(test, server.do(test, http.MethodPut, roomPath+"/clean", nil, cookie), http.StatusConflict, errorInvalidTransition)

	checkedOut := decodeObject(test, server.do(test, http.MethodPut, path+"/checkout", nil, cookie))
	if checkedOut["status"] != "checked_out" {
		test.Fatalf("expected checked_out, got %v", checkedOut)
	}
	housekeeping := decodeList(test, server.do(test, http.MethodGet, "/api/housekeeping", nil, cookie))
	if len(housekeeping) != 1 || housekeeping[0]["lastGuest"] != "Ada" || housekeeping[0]["villaName"] != "Ubud" || housekeeping[0]["status"] != "checked_out" {
		test.Fatalf("unexpected housekeeping %v", housekeeping)
	}

	cleaned := decodeObject(test, server.do(test, http.MethodPut, roomPath+"/clean", nil, cookie))
	if cleaned["status"] != "available" {
		test.Fatalf("expected available room, got %v", cleaned)
	}
	expectError(test, server.do(test, http.MethodPut, "/api/reservations/424242/checkin", nil, cookie), http.StatusNotFound, errorNotFoundReservation)
	expectError(test, server.do(test, http.MethodDelete, roomPath, nil, cookie), http.StatusConflict, errorRoomHasReservations)
}

func TestRoomEndpoints(test *testing.T) {
	test.Parallel()
	server := newTestServer(test)
	cookie := server.login(test, adminUsername, adminPassword)
	roomID := server.seedRoom(test, cookie, "Canggu", "Pool")

	emptyVilla := decodeObject(test, server.do(test, http.MethodPost, "/api/villas", map[string]any{"name": "Empty", "location": "Bali"}, cookie))
	if rooms, ok := emptyVilla["rooms"].([]any); !ok || len(rooms) != 0 {
		test.Fatalf("expected an empty rooms list on a new villa, got %v", emptyVilla)
	}
	villas := decodeList(test, server.do(test, http.MethodGet, "/api/villas", nil, cookie))
	if len(villas) != 2 || len(villas[0]["rooms"].([]any)) != 1 {
		test.Fatalf("expected villa with its room, got %v", villas)
	}
	if rooms, ok := villas[1]["rooms"].([]any); !ok || len(rooms) != 0 {
		test.Fatalf("expected rooms key on the empty villa, got %v", villas[1])
	}
	rooms := decodeList(test, server.do(test, http.MethodGet, "/api/rooms", nil, cookie))
	if len(rooms) != 1 || rooms[0]["villa"].(map[string]any)["name"] != "Canggu" {
		test.Fatalf("expected room with villa, got %v", rooms)
	}
	if _, nested := rooms[0]["villa"].(map[string]any)["rooms"]; nested {
		test.Fatalf("expected the nested villa without its rooms, got %v", rooms)
	}

	roomPath := "/api/rooms/" + jsonNumber(roomID)
	updated := decodeObject(test, server.do(test, http.MethodPut, roomPath, map[string]any{"name": "Pool Suite", "status": "maintenance"}, cookie))
	if updated["name"] != "Pool Suite" || updated["status"] != "maintenance" || updated["capacity"].(float64) != 2 {
		test.Fatalf("unexpected update %v", updated)
	}
	expectError(test, server.do(test, http.MethodPut, roomPath, map[string]any{"status": "flooded"}, cookie), http.StatusUnprocessableEntity, "Invalid room status")
	expectError(test, server.do(test, http.MethodPost, "/api/rooms", map[string]any{"villaId": 999, "name": "Ghost"}, cookie), http.StatusNotFound, errorNotFoundVilla)
	expectError(test, server.do(test, http.MethodPost, "/api/rooms", map[string]any{"name": "No villa"}, cookie), http.StatusUnprocessableEntity, "villaId and name are required")
	expectError(test, server.do(test, http.MethodPut, "/api/rooms/abc/clean", nil, cookie), http.StatusBadRequest, "Invalid room id")

	if recorder := server.do(test, http.MethodDelete, roomPath, nil, cookie); recorder.Code != http.StatusNoContent {
		test.Fatalf("expected 204, got %d %s", recorder.Code, recorder.Body.String())
	}
	expectError(test, server.do(test, http.MethodDelete, roomPath, nil, cookie), http.StatusNotFound, errorNotFoundRoom)
}

func TestUserEndpointsRequireAdmin(test *testing.T) {
	test.Parallel()
	server := newTestServer(test)
	adminCookie := server.login(test, adminUsername, adminPassword)

	created := server.do(test, http.MethodPost, "/api/users", map[string]string{"username": "owner", "password": "owner-pass"}, adminCookie)
	if created.Code != http.StatusCreated {
		test.Fatalf("create user: %d %s", created.Code, created.Body.String())
	}
	owner := decodeObject(test, created)
	if owner["role"] != "owner" || owner["createdAt"] == nil {
		test.Fatalf("unexpected user body %v", owner)
	}
	if _, leaked := owner["passwordHash"]; leaked {
		test.Fatalf("user body leaked the hash")
	}
	ownerID := int64(owner["id"].(float64))

	expectError(test, server.do(test, http.MethodPost, "/api/users", map[string]string{"username": "owner", "password": "x"}, adminCookie), http.StatusConflict, errorUsernameTaken)
	expectError(test, server.do(test, http.MethodPost, "/api/users", map[string]string{"username": "lonely"}, adminCookie), http.StatusBadRequest, errorUserFieldsRequired)
	expectError(test, server.do(test, http.MethodPost, "/api/users", nil, adminCookie), http.StatusBadRequest, errorUserFieldsRequired)

	ownerCookie := server.login(test, "owner", "owner-pass")
	expectError(test, server.do(test, http.MethodGet, "/api/users", nil, ownerCookie), http.StatusForbidden, "Forbidden")
	expectError(test, server.do(test, http.MethodGet, "/api/users", nil, nil), http.StatusUnauthorized, errorUnauthorized)

	users := decodeList(test, server.do(test, http.MethodGet, "/api/users", nil, adminCookie))
	if len(users) != 2 {
		test.Fatalf("expected two users, got %v", users)
	}

	ownerPath := "/api/users/" + jsonNumber(ownerID)
	renamed := decodeObject(test, server.do(test, http.MethodPut, ownerPath, map[string]string{"username": "owner2", "password": ""}, adminCookie))
	if renamed["username"] != "owner2" {
		test.Fatalf("unexpected update %v", renamed)
	}
	server.login(test, "owner2", "owner-pass")

	expectError(test, server.do(test, http.MethodDelete, "/api/users/"+jsonNumber(server.admin.ID.Int64()), nil, adminCookie), http.StatusConflict, errorSelfDeletion)
	if recorder := server.do(test, http.MethodDelete, ownerPath, nil, adminCookie); recorder.Code != http.StatusNoContent {
		test.Fatalf("expected 204, got %d", recorder.Code)
	}
	expectError(test, server.do(test, http.MethodDelete, ownerPath, nil, adminCookie), http.StatusNotFound, errorNotFoundUser)
}

func TestUserRoutesFollowStoredRole(test *testing.T) {
	test.Parallel()
	server := newTestServer(test)
	adminCookie := server.login(test, adminUsername, adminPassword)

	createAdmin := func(username string) string {
		recorder := server.do(test, http.MethodPost, "/api/users", map[string]string{"username": username, "password": "pw-" + username, "role": "admin"}, adminCookie)
		if recorder.Code != http.StatusCreated {
			test.Fatalf("create %s: %d %s", username, recorder.Code, recorder.Body.String())
		}
		return "/api/users/" + jsonNumber(int64(decodeObject(test, recorder)["id"].(float64)))
	}

	deletedPath := createAdmin("gone")
	deletedCookie := server.login(test, "gone", "pw-gone")
	if recorder := server.do(test, http.MethodGet, "/api/users", nil, deletedCookie); recorder.Code != http.StatusOK {
		test.Fatalf("expected admin access before deletion, got %d", recorder.Code)
	}
	if recorder := server.do(test, http.MethodDelete, deletedPath, nil, adminCookie); recorder.Code != http.StatusNoContent {
		test.Fatalf("delete: %d %s", recorder.Code, recorder.Body.String())
	}
	expectError(test, server.do(test, http.MethodGet, "/api/users", nil, deletedCookie), http.StatusUnauthorized, errorUnauthorized)
	expectError(test, server.do(test, http.MethodPost, "/api/users", map[string]string{"username": "sneaky", "password": "pw", "role": "admin"}, deletedCookie), http.StatusUnauthorized, errorUnauthorized)
	expectError(test, server.do(test, http.MethodGet, "/api/auth/me", nil, deletedCookie), http.StatusUnauthorized, errorUnauthorized)

	demotedPath := createAdmin("demoted")
	demotedCookie := server.login(test, "demoted", "pw-demoted")
	if recorder := server.do(test, http.MethodPut, demotedPath, map[string]string{"role": "owner"}, adminCookie); recorder.Code != http.StatusOK {
		test.Fatalf("demote: %d %s", recorder.Code, recorder.Body.String())
	}
	expectError(test, server.do(test, http.MethodGet, "/api/users", nil, demotedCookie), http.StatusForbidden, errorForbidden)
	expectError(test, server.do(test, http.MethodDelete, "/api/users/"+jsonNumber(server.admin.ID.Int64()), nil, demotedCookie), http.StatusForbidden, errorForbidden)

	users := decodeList(test, server.do(test, http.MethodGet, "/api/users", nil, adminCookie))
	if len(users) != 2 {
		test.Fatalf("expected admin and demoted only, got %v", users)
	}
}

func TestReservationLookupAndRoomFilter(test *testing.T) {
	test.Parallel()
	server := newTestServer(test)
	cookie := server.login(test, adminUsername, adminPassword)
	gardenID := server.seedRoom(test, cookie, "Ubud", "Garden")
	poolID := server.seedRoom(test, cookie, "Seminyak", "Pool")

	var gardenReservationID int64
	for _, booking := range []map[string]any{
		{"roomId": gardenID, "guestName": "Ada", "checkIn": "2025-01-01", "checkOut": "2025-01-03"},
		{"roomId": poolID, "guestName": "Bob", "checkIn": "2025-01-01", "checkOut": "2025-01-03"},
	} {
		recorder := server.do(test, http.MethodPost, "/api/reservations", booking, cookie)
		if recorder.Code != http.StatusOK {
			test.Fatalf("create reservation: %d %s", recorder.Code, recorder.Body.String())
		}
		if booking["roomId"] == gardenID {
			gardenReservationID = int64(decodeObject(test, recorder)["id"].(float64))
		}
	}

	fetched := decodeObject(test, server.do(test, http.MethodGet, "/api/reservations/"+jsonNumber(gardenReservationID), nil, cookie))
	if fetched["guestName"] != "Ada" || int64(fetched["roomId"].(float64)) != gardenID {
		test.Fatalf("unexpected reservation %v", fetched)
	}
	expectError(test, server.do(test, http.MethodGet, "/api/reservations/424242", nil, cookie), http.StatusNotFound, errorNotFoundReservation)
	expectError(test, server.do(test, http.MethodGet, "/api/reservations/abc", nil, cookie), http.StatusBadRequest, "Invalid reservation id")

	filtered := decodeList(test, server.do(test, http.MethodGet, "/api/reservations?roomId="+jsonNumber(poolID), nil, cookie))
	if len(filtered) != 1 || filtered[0]["guestName"] != "Bob" {
		test.Fatalf("expected only the pool booking, got %v", filtered)
	}
	windowed := decodeList(test, server.do(test, http.MethodGet, "/api/reservations?roomId="+jsonNumber(gardenID)+"&start=2025-02-01&end=2025-02-10", nil, cookie))
	if len(windowed) != 0 {
		test.Fatalf("expected no garden bookings in February, got %v", windowed)
	}
	expectError(test, server.do(test, http.MethodGet, "/api/reservations?roomId=abc", nil, cookie), http.StatusBadRequest, "Invalid room id")
	expectError(test, server.do(test, http.MethodGet, "/api/reservations?roomId=999", nil, cookie), http.StatusNotFound, errorNotFoundRoom)
}

func TestOverviewAndCalendarEndpoints(test *testing.T) {
	test.Parallel()
	server := newTestServer(test)
	cookie := server.login(test, adminUsername, adminPassword)
	roomID := server.seedRoom(test, cookie, "Ubud", "Garden")
	booking := map[string]any{"roomId": roomID, "guestName": "Ada", "checkIn": "2025-01-02T14:00:00Z", "checkOut": "2025-01-04T10:00:00Z"}
	if recorder := server.do(test, http.MethodPost, "/api/reservations", booking, cookie); recorder.Code != http.StatusOK {
		test.Fatalf("create reservation: %d %s", recorder.Code, recorder.Body.String())
	}

	overview := decodeObject(test, server.do(test, http.MethodGet, "/api/overview", nil, cookie))
	operations := overview["operations"].(map[string]any)
	if operations["todayCheckIn"].(float64) != 1 {
		test.Fatalf("expected one check-in today, got %v", operations)
	}
	if groups := overview["roomsByStatus"].([]any); len(groups) != len(villa.RoomStatuses) {
		test.Fatalf("expected one group per room status, got %d", len(groups))
	}
	notifications := overview["notifications"].([]any)
	if len(notifications) != 1 || notifications[0].(map[string]any)["type"] != "checkin_today" {
		test.Fatalf("unexpected notifications %v", notifications)
	}

	calendar := decodeObject(test, server.do(test, http.MethodGet, "/api/reservations/calendar?start=2025-01-01&days=7", nil, cookie))
	if calendar["start"] != "2025-01-01" || len(calendar["days"].([]any)) != 7 {
		test.Fatalf("unexpected calendar window %v", calendar)
	}
	rows := calendar["rows"].([]any)
	bars := rows[0].(map[string]any)["bars"].([]any)
	bar := bars[0].(map[string]any)
	if bar["offset"].(float64) != 1 || bar["span"].(float64) != 2 {
		test.Fatalf("unexpected bar %v", bar)
	}
	expectError(test, server.do(test, http.MethodGet, "/api/reservations/calendar?days=many", nil, cookie), http.StatusUnprocessableEntity, errorInvalidCalendarWindow)
	expectError(test, server.do(test, http.MethodGet, "/api/reservations/calendar?days=400", nil, cookie), http.StatusUnprocessableEntity, "Invalid date range")
}

func TestRequestIDAndHealth(test *testing.T) {
	test.Parallel()
	server := newTestServer(test)

	request := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	request.Header.Set(headerRequestID, "req-123")
	recorder := httptest.NewRecorder()
	server.router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK || recorder.Header().Get(headerRequestID) != "req-123" {
		test.Fatalf("expected echoed request id, got %d %q", recorder.Code, recorder.Header().Get(headerRequestID))
	}

	fresh := server.do(test, http.MethodGet, "/healthz", nil, nil)
	if fresh.Header().Get(headerRequestID) == "" {
		test.Fatalf("expected a generated request id")
	}
}

func TestNewRouterRejectsMissingDependencies(test *testing.T) {
	test.Parallel()
	if _, err := NewRouter(Config{}, Dependencies{}); err == nil {
		test.Fatalf("expected dependency error")
	}
}

func jsonNumber(value int64) string {
	encoded, _ := json.Marshal(value)
	return string(encoded)
}
