package villa

import "time"

const (
	operationCreateVilla       = "create_villa"
	operationCreateRoom        = "create_room"
	operationUpdateRoom        = "update_room"
	operationDeleteRoom        = "delete_room"
	operationMarkClean         = "mark_clean"
	operationCreateReservation = "create_reservation"
	operationCheckIn           = "check_in"
	operationCheckOut          = "check_out"
	operationCancel            = "cancel_reservation"
	operationCreateUser        = "create_user"
	operationUpdateUser        = "update_user"
	operationDeleteUser        = "delete_user"
	operationLogin             = "login"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	defaultRole = RoleOwner

	decoyPassword = "not-a-real-account"

	rolePrefixFrontdesk   = "frontdesk_"
	rolePrefixHousekeeper = "housekeeper_"

	dateLayout = "2006-01-02"

	day = 24 * time.Hour
)

// Accepted timestamp layouts, tried in order. Zone-less layouts are read in
// the caller's location.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	dateLayout,
}
