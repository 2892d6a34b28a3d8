package migrations

import (
	"database/sql"
	"fmt"
	"strings"
)

// timestampRebuild describes one bookkeeping table whose timestamp
// columns may still be stored as integer epochs.
type timestampRebuild struct {
	table string
	// probe is the column whose declared type decides applicability.
	probe string
	// columns in table order; entries in timestamps are converted.
	columns    []string
	timestamps []string
	createSQL  string
	indexSQL   []string
}

var timestampRebuilds = []timestampRebuild{
	{
		table:      "cache_table_registry",
		probe:      "created_at",
		columns:    []string{"remote_table_id", "local_table_name", "field_catalog", "field_mapping", "created_at", "updated_at"},
		timestamps: []string{"created_at", "updated_at"},
		createSQL: `CREATE TABLE cache_table_registry_new (
			remote_table_id TEXT PRIMARY KEY,
			local_table_name TEXT NOT NULL,
			field_catalog TEXT NOT NULL,
			field_mapping TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
	},
	{
		table:      "cache_ttl_config",
		probe:      "updated_at",
		columns:    []string{"table_id", "ttl_seconds", "mutation_level", "notes", "updated_at"},
		timestamps: []string{"updated_at"},
		createSQL: `CREATE TABLE cache_ttl_config_new (
			table_id TEXT PRIMARY KEY,
			ttl_seconds INTEGER NOT NULL,
			mutation_level TEXT DEFAULT '',
			notes TEXT DEFAULT '',
			updated_at TEXT NOT NULL
		)`,
	},
	{
		table:      "cache_stats",
		probe:      "last_access",
		columns:    []string{"table_id", "hits", "misses", "last_access", "updated_at"},
		timestamps: []string{"last_access", "updated_at"},
		createSQL: `CREATE TABLE cache_stats_new (
			table_id TEXT PRIMARY KEY,
			hits INTEGER NOT NULL DEFAULT 0,
			misses INTEGER NOT NULL DEFAULT 0,
			last_access TEXT,
			updated_at TEXT
		)`,
	},
	{
		table:      "api_call_log",
		probe:      "called_at",
		columns:    []string{"id", "endpoint", "method", "status_code", "duration_ms", "called_at"},
		timestamps: []string{"called_at"},
		createSQL: `CREATE TABLE api_call_log_new (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			endpoint TEXT NOT NULL,
			method TEXT DEFAULT '',
			status_code INTEGER,
			duration_ms REAL,
			called_at TEXT NOT NULL
		)`,
		indexSQL: []string{
			`CREATE INDEX IF NOT EXISTS idx_api_call_log_endpoint ON api_call_log(endpoint)`,
		},
	},
	{
		table:      "api_stats_summary",
		probe:      "last_called_at",
		columns:    []string{"endpoint", "call_count", "total_duration_ms", "last_called_at"},
		timestamps: []string{"last_called_at"},
		createSQL: `CREATE TABLE api_stats_summary_new (
			endpoint TEXT PRIMARY KEY,
			call_count INTEGER NOT NULL DEFAULT 0,
			total_duration_ms REAL NOT NULL DEFAULT 0,
			last_called_at TEXT
		)`,
	},
}

// MigrateTextTimestamps rewrites any bookkeeping table still storing
// epoch-integer timestamps so all timestamps are ISO-8601 UTC text.
func MigrateTextTimestamps(db *sql.DB) error {
	for _, r := range timestampRebuilds {
		exists, err := tableExists(db, r.table)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}

		var colType string
		err = db.QueryRow(
			`SELECT type FROM pragma_table_info(?) WHERE name = ?`,
			r.table, r.probe).Scan(&colType)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to inspect %s.%s: %w", r.table, r.probe, err)
		}
		if !strings.EqualFold(colType, "INTEGER") {
			continue
		}

		if err := rebuildWithTextTimestamps(db, r); err != nil {
			return err
		}
	}
	return nil
}

func rebuildWithTextTimestamps(db *sql.DB, r timestampRebuild) error {
	if _, err := db.Exec(r.createSQL); err != nil {
		return fmt.Errorf("failed to create replacement for %s: %w", r.table, err)
	}

	converted := make([]string, len(r.columns))
	for i, col := range r.columns {
		converted[i] = col
		for _, ts := range r.timestamps {
			if col == ts {
				converted[i] = fmt.Sprintf(
					"CASE WHEN %s IS NULL THEN NULL ELSE strftime('%%Y-%%m-%%dT%%H:%%M:%%SZ', %s, 'unixepoch') END", col, col)
			}
		}
	}
	copySQL := fmt.Sprintf("INSERT INTO %s_new (%s) SELECT %s FROM %s",
		r.table, strings.Join(r.columns, ", "), strings.Join(converted, ", "), r.table)
	if _, err := db.Exec(copySQL); err != nil {
		return fmt.Errorf("failed to convert timestamps for %s: %w", r.table, err)
	}

	if _, err := db.Exec("DROP TABLE " + r.table); err != nil {
		return fmt.Errorf("failed to drop old %s: %w", r.table, err)
	}
	if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s_new RENAME TO %s", r.table, r.table)); err != nil {
		return fmt.Errorf("failed to rename replacement for %s: %w", r.table, err)
	}
	for _, idx := range r.indexSQL {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("failed to recreate index for %s: %w", r.table, err)
		}
	}
	return nil
}
