// Package migrations holds the individual store migration steps. Each
// step probes the live schema for applicability and is safe to run
// repeatedly.
package migrations

import (
	"database/sql"
	"fmt"
)

func tableExists(db *sql.DB, name string) (bool, error) {
	var found string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name = ?
	`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check for table %s: %w", name, err)
	}
	return true, nil
}

func columnExists(db *sql.DB, table, column string) (bool, error) {
	var found string
	err := db.QueryRow(
		`SELECT name FROM pragma_table_info(?) WHERE name = ?`,
		table, column).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}
	return true, nil
}

// MigrateLegacyRegistryRename renames the original cached_table_schemas
// registry to cache_table_registry. When both names exist the legacy
// table is dropped: the new one already holds the live registry.
func MigrateLegacyRegistryRename(db *sql.DB) error {
	legacy, err := tableExists(db, "cached_table_schemas")
	if err != nil {
		return err
	}
	if !legacy {
		return nil
	}
	current, err := tableExists(db, "cache_table_registry")
	if err != nil {
		return err
	}

	if current {
		if _, err := db.Exec(`DROP TABLE cached_table_schemas`); err != nil {
			return fmt.Errorf("failed to drop legacy registry: %w", err)
		}
		return nil
	}
	if _, err := db.Exec(`ALTER TABLE cached_table_schemas RENAME TO cache_table_registry`); err != nil {
		return fmt.Errorf("failed to rename legacy registry: %w", err)
	}
	return nil
}
