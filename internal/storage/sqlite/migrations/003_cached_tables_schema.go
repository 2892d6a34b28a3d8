package migrations

import (
	"database/sql"
	"fmt"
	"strings"
)

// obsoleteTableColumns mark the pre-rework cached_tables layout.
var obsoleteTableColumns = []string{
	"description", "updated", "updated_by", "deleted_date", "deleted_by", "record_count",
}

// survivors are columns carried over from the old layout when present.
var cachedTablesSurvivors = []string{
	"id", "name", "solution_id", "data", "cached_at", "expires_at",
}

// MigrateCachedTablesSchema rebuilds cached_tables when it still
// carries the obsolete metadata columns, preserving data in the
// columns both layouts share.
func MigrateCachedTablesSchema(db *sql.DB) error {
	exists, err := tableExists(db, "cached_tables")
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	obsolete := false
	for _, col := range obsoleteTableColumns {
		has, err := columnExists(db, "cached_tables", col)
		if err != nil {
			return err
		}
		if has {
			obsolete = true
			break
		}
	}
	if !obsolete {
		return nil
	}

	_, err = db.Exec(`CREATE TABLE cached_tables_new (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		solution_id TEXT NOT NULL,
		status TEXT DEFAULT '',
		hidden INTEGER DEFAULT 0,
		icon TEXT DEFAULT '',
		primary_field TEXT DEFAULT '',
		table_order INTEGER DEFAULT 0,
		permissions TEXT DEFAULT '',
		field_permissions TEXT DEFAULT '',
		record_term TEXT DEFAULT '',
		fields_count_total INTEGER DEFAULT 0,
		fields_count_linkedrecordfield INTEGER DEFAULT 0,
		data TEXT,
		cached_at TEXT NOT NULL,
		expires_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create replacement cached_tables: %w", err)
	}

	// Copy only the survivors the old table actually has.
	var cols []string
	for _, col := range cachedTablesSurvivors {
		has, err := columnExists(db, "cached_tables", col)
		if err != nil {
			return err
		}
		if has {
			cols = append(cols, col)
		}
	}
	if len(cols) > 0 {
		list := strings.Join(cols, ", ")
		copySQL := fmt.Sprintf("INSERT INTO cached_tables_new (%s) SELECT %s FROM cached_tables", list, list)
		if _, err := db.Exec(copySQL); err != nil {
			return fmt.Errorf("failed to copy cached_tables data: %w", err)
		}
	}

	if _, err := db.Exec(`DROP TABLE cached_tables`); err != nil {
		return fmt.Errorf("failed to drop old cached_tables: %w", err)
	}
	if _, err := db.Exec(`ALTER TABLE cached_tables_new RENAME TO cached_tables`); err != nil {
		return fmt.Errorf("failed to rename replacement cached_tables: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_cached_tables_solution ON cached_tables(solution_id)`); err != nil {
		return fmt.Errorf("failed to recreate cached_tables index: %w", err)
	}
	return nil
}
