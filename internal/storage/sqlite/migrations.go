// Package sqlite - store migrations
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fieldstone/gridcache/internal/storage/sqlite/migrations"
)

// Migration represents a single store migration.
type Migration struct {
	Name string
	Func func(*sql.DB) error
}

// migrationsList is the ordered list of all migrations. They run in
// order at every open; each is idempotent and detects applicability
// by probing the live schema.
var migrationsList = []Migration{
	{"legacy_registry_rename", migrations.MigrateLegacyRegistryRename},
	{"text_timestamps", migrations.MigrateTextTimestamps},
	{"cached_tables_schema", migrations.MigrateCachedTablesSchema},
	{"members_deleted_date", migrations.MigrateMembersDeletedDate},
}

// MigrationInfo contains metadata about a migration for inspection.
type MigrationInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListMigrations returns all registered migrations with descriptions.
// All migrations are idempotent, so the list is the same whether or
// not any step still has work to do.
func ListMigrations() []MigrationInfo {
	result := make([]MigrationInfo, len(migrationsList))
	for i, m := range migrationsList {
		result[i] = MigrationInfo{
			Name:        m.Name,
			Description: getMigrationDescription(m.Name),
		}
	}
	return result
}

func getMigrationDescription(name string) string {
	descriptions := map[string]string{
		"legacy_registry_rename": "Renames the legacy cached_table_schemas table to cache_table_registry",
		"text_timestamps":        "Rewrites integer epoch timestamps in bookkeeping tables as ISO-8601 UTC text",
		"cached_tables_schema":   "Rebuilds cached_tables when obsolete metadata columns are present",
		"members_deleted_date":   "Adds the deleted_date column to cached_members",
	}
	if desc, ok := descriptions[name]; ok {
		return desc
	}
	return "Unknown migration"
}

// runMigrations executes all registered migrations in order inside an
// EXCLUSIVE transaction, so concurrent opens cannot race check-then-
// modify steps.
func runMigrations(db *sql.DB, log *slog.Logger) error {
	// Some steps rebuild tables; foreign keys must be off so the
	// rebuild does not cascade. PRAGMA foreign_keys only takes effect
	// outside a transaction.
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return fmt.Errorf("failed to disable foreign keys for migrations: %w", err)
	}
	defer func() { _, _ = db.Exec("PRAGMA foreign_keys = ON") }()

	if _, err := db.Exec("BEGIN EXCLUSIVE"); err != nil {
		return fmt.Errorf("failed to acquire exclusive lock for migrations: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = db.Exec("ROLLBACK")
		}
	}()

	for _, migration := range migrationsList {
		if err := migration.Func(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", migration.Name, err)
		}
		log.Debug("migration applied", "name", migration.Name)
	}

	if _, err := db.Exec("COMMIT"); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", err)
	}
	committed = true
	return nil
}
