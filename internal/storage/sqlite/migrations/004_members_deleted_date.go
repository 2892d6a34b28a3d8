package migrations

import (
	"database/sql"
	"fmt"
)

// MigrateMembersDeletedDate adds the deleted_date column to
// cached_members when an older store predates it.
func MigrateMembersDeletedDate(db *sql.DB) error {
	exists, err := tableExists(db, "cached_members")
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	has, err := columnExists(db, "cached_members", "deleted_date")
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	if _, err := db.Exec(`ALTER TABLE cached_members ADD COLUMN deleted_date TEXT DEFAULT ''`); err != nil {
		return fmt.Errorf("failed to add deleted_date column: %w", err)
	}
	return nil
}
