package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fieldstone/gridcache/internal/schema"
	"github.com/fieldstone/gridcache/internal/types"
)

// tableEntry is one deserialised registry row.
type tableEntry struct {
	RemoteTableID  string
	LocalTableName string
	Catalog        types.FieldCatalog
	Mapping        schema.Mapping
	CreatedAt      string
	UpdatedAt      string
}

// loadEntry reads the registry row for a remote table id.
func (e *Engine) loadEntry(ctx context.Context, tableID string) (*tableEntry, error) {
	var entry tableEntry
	var catalogJSON, mappingJSON string
	err := e.db.QueryRowContext(ctx, `
		SELECT remote_table_id, local_table_name, field_catalog, field_mapping, created_at, updated_at
		FROM cache_table_registry WHERE remote_table_id = ?
	`, tableID).Scan(&entry.RemoteTableID, &entry.LocalTableName, &catalogJSON, &mappingJSON,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry for %s: %w", tableID, err)
	}
	if err := json.Unmarshal([]byte(catalogJSON), &entry.Catalog); err != nil {
		return nil, fmt.Errorf("corrupt field catalog for %s: %w", tableID, err)
	}
	if err := json.Unmarshal([]byte(mappingJSON), &entry.Mapping); err != nil {
		return nil, fmt.Errorf("corrupt field mapping for %s: %w", tableID, err)
	}
	return &entry, nil
}

func (e *Engine) saveEntry(ctx context.Context, entry *tableEntry, isNew bool) error {
	catalogJSON, err := json.Marshal(entry.Catalog)
	if err != nil {
		return fmt.Errorf("failed to serialise catalog: %w", err)
	}
	mappingJSON, err := json.Marshal(entry.Mapping)
	if err != nil {
		return fmt.Errorf("failed to serialise mapping: %w", err)
	}
	if isNew {
		_, err = e.db.ExecContext(ctx, `
			INSERT INTO cache_table_registry
				(remote_table_id, local_table_name, field_catalog, field_mapping, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, entry.RemoteTableID, entry.LocalTableName, string(catalogJSON), string(mappingJSON),
			entry.CreatedAt, entry.UpdatedAt)
	} else {
		_, err = e.db.ExecContext(ctx, `
			UPDATE cache_table_registry
			SET field_catalog = ?, field_mapping = ?, updated_at = ?
			WHERE remote_table_id = ?
		`, string(catalogJSON), string(mappingJSON), entry.UpdatedAt, entry.RemoteTableID)
	}
	if err != nil {
		return fmt.Errorf("failed to write registry for %s: %w", entry.RemoteTableID, err)
	}
	return nil
}

// localTableName builds the physical table name for a remote table.
// The human name comes from cached_tables when available so the store
// stays inspectable.
func (e *Engine) localTableName(ctx context.Context, tableID string) string {
	name := ""
	_ = e.db.QueryRowContext(ctx,
		`SELECT name FROM cached_tables WHERE id = ?`, tableID).Scan(&name)
	parts := []string{"cache_records"}
	if s := schema.SanitizeColumnName(name); name != "" && s != "field_column" {
		parts = append(parts, s)
	}
	parts = append(parts, schema.SanitizeColumnName(tableID))
	return strings.Join(parts, "_")
}

// ensureTable creates or evolves the local table for a catalog and
// returns the up-to-date registry entry. New fields become ALTER TABLE
// ADD COLUMN; removed or mutated fields keep their columns (the cache
// is rebuildable, destructive ALTERs are not).
func (e *Engine) ensureTable(ctx context.Context, tableID string, catalog types.FieldCatalog) (*tableEntry, error) {
	entry, err := e.loadEntry(ctx, tableID)
	if err != nil {
		return nil, err
	}
	now := e.timestamp(e.nowUTC())

	if entry == nil {
		entry = &tableEntry{
			RemoteTableID:  tableID,
			LocalTableName: e.localTableName(ctx, tableID),
			Catalog:        catalog,
			Mapping:        schema.BuildMapping(catalog),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := e.createTable(ctx, entry); err != nil {
			return nil, err
		}
		if err := e.saveEntry(ctx, entry, true); err != nil {
			return nil, err
		}
		return entry, nil
	}

	added := diffCatalog(entry.Catalog, catalog)
	if len(added) == 0 {
		entry.Catalog = catalog
		return entry, nil
	}

	extension := schema.ExtendMapping(entry.Mapping, added)
	for _, fc := range extension {
		for _, col := range fc.Columns {
			alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`,
				quoteIdent(entry.LocalTableName), quoteIdent(col.Name), col.SQLType)
			if _, err := e.db.ExecContext(ctx, alter); err != nil {
				return nil, fmt.Errorf("failed to add column %s to %s: %w", col.Name, entry.LocalTableName, err)
			}
			if col.Indexed {
				if err := e.createIndex(ctx, entry.LocalTableName, col.Name); err != nil {
					return nil, err
				}
			}
		}
	}

	entry.Mapping = append(entry.Mapping, extension...)
	entry.Catalog = catalog
	entry.UpdatedAt = now
	if err := e.saveEntry(ctx, entry, false); err != nil {
		return nil, err
	}
	return entry, nil
}

// diffCatalog returns the fields of next whose slugs are absent from
// prev, in catalog order.
func diffCatalog(prev, next types.FieldCatalog) []types.Field {
	known := map[string]bool{}
	for _, f := range prev {
		known[f.Slug] = true
	}
	var added []types.Field
	for _, f := range next {
		if !known[f.Slug] {
			added = append(added, f)
		}
	}
	return added
}

func (e *Engine) createTable(ctx context.Context, entry *tableEntry) error {
	var cols []string
	cols = append(cols, "id TEXT PRIMARY KEY")
	for _, fc := range entry.Mapping {
		for _, col := range fc.Columns {
			cols = append(cols, fmt.Sprintf("%s %s", quoteIdent(col.Name), col.SQLType))
		}
	}
	cols = append(cols, "cached_at TEXT NOT NULL", "expires_at TEXT NOT NULL")

	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)",
		quoteIdent(entry.LocalTableName), strings.Join(cols, ",\n    "))
	if _, err := e.db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create table %s: %w", entry.LocalTableName, err)
	}

	if err := e.createIndex(ctx, entry.LocalTableName, "expires_at"); err != nil {
		return err
	}
	for _, fc := range entry.Mapping {
		for _, col := range fc.Columns {
			if col.Indexed {
				if err := e.createIndex(ctx, entry.LocalTableName, col.Name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (e *Engine) createIndex(ctx context.Context, table, column string) error {
	name := fmt.Sprintf("idx_%s_%s", table, column)
	stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		quoteIdent(name), quoteIdent(table), quoteIdent(column))
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to create index on %s.%s: %w", table, column, err)
	}
	return nil
}

// recordTables lists every registered record table, optionally filtered
// to one solution via cached_tables.
func (e *Engine) recordTables(ctx context.Context, solutionID string) ([]tableRef, error) {
	q := `SELECT r.remote_table_id, r.local_table_name FROM cache_table_registry r`
	var args []any
	if solutionID != "" {
		q += ` JOIN cached_tables t ON t.id = r.remote_table_id WHERE t.solution_id = ?`
		args = append(args, solutionID)
	}
	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list record tables: %w", err)
	}
	defer rows.Close()

	var out []tableRef
	for rows.Next() {
		var ref tableRef
		if err := rows.Scan(&ref.RemoteTableID, &ref.LocalTableName); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

type tableRef struct {
	RemoteTableID  string
	LocalTableName string
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
