package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

const dialectPostgres = "postgres"

// PostgreSQL backstop for the booking check: no two non-cancelled stays of
// one room may intersect on [check_in, check_out).
var postgresOverlapStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`DO $$
BEGIN
	IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '` + constraintReservationNoOverlap + `') THEN
		ALTER TABLE reservations ADD CONSTRAINT ` + constraintReservationNoOverlap + `
			EXCLUDE USING gist (room_id WITH =, tstzrange(check_in, check_out, '[)') WITH &&)
			WHERE (status <> 'cancelled');
	END IF;
END $$`,
}

// Migrate creates or updates every table. On PostgreSQL it also installs the
// reservation_no_overlap exclusion constraint.
func Migrate(ctx context.Context, db *gorm.DB) error {
	session := db.WithContext(ctx)
	if err := session.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if db.Dialector.Name() != dialectPostgres {
		return nil
	}
	for _, statement := range postgresOverlapStatements {
		if err := session.Exec(statement).Error; err != nil {
			return fmt.Errorf("overlap constraint: %w", err)
		}
	}
	return nil
}
