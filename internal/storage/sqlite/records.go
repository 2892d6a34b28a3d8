package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fieldstone/gridcache/internal/codec"
	"github.com/fieldstone/gridcache/internal/query"
	"github.com/fieldstone/gridcache/internal/types"
)

// BulkReplace caches a full record set for a table: the local table is
// created or evolved to match the catalog, existing rows are deleted,
// and every provided record is inserted with one shared expires_at.
// TTL precedence: explicit ttl > per-table config > default. Returns
// the number of rows inserted.
func (e *Engine) BulkReplace(ctx context.Context, tableID string, catalog types.FieldCatalog, records []types.Record, ttl time.Duration) (int, error) {
	entry, err := e.ensureTable(ctx, tableID, catalog)
	if err != nil {
		return 0, err
	}

	if ttl <= 0 {
		ttl = e.ttlFor(ctx, tableID)
	}
	now := e.nowUTC()
	cachedAt := e.timestamp(now)
	expiresAt := e.timestamp(now.Add(ttl))

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin bulk replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+quoteIdent(entry.LocalTableName)); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", entry.LocalTableName, err)
	}

	insert, cols := insertStatement(entry)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert for %s: %w", entry.LocalTableName, err)
	}
	defer stmt.Close()

	count := 0
	for _, rec := range records {
		args := recordArgs(entry, cols, rec, cachedAt, expiresAt)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("failed to insert record %s: %w", rec.ID(), err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit bulk replace: %w", err)
	}
	return count, nil
}

// CacheRecord inserts or replaces a single record by id. The local
// table must already exist.
func (e *Engine) CacheRecord(ctx context.Context, tableID string, record types.Record) error {
	entry, err := e.loadEntry(ctx, tableID)
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("%w: %s", ErrTableNotCached, tableID)
	}

	now := e.nowUTC()
	cachedAt := e.timestamp(now)
	expiresAt := e.timestamp(now.Add(e.ttlFor(ctx, tableID)))

	insert, cols := insertStatement(entry)
	insert = strings.Replace(insert, "INSERT INTO", "INSERT OR REPLACE INTO", 1)
	args := recordArgs(entry, cols, record, cachedAt, expiresAt)
	if _, err := e.db.ExecContext(ctx, insert, args...); err != nil {
		return fmt.Errorf("failed to cache record %s: %w", record.ID(), err)
	}
	return nil
}

// DeleteRecord removes a single cached record. Idempotent; deleting a
// missing record is not an error.
func (e *Engine) DeleteRecord(ctx context.Context, tableID, recordID string) error {
	entry, err := e.loadEntry(ctx, tableID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}
	_, err = e.db.ExecContext(ctx,
		"DELETE FROM "+quoteIdent(entry.LocalTableName)+" WHERE id = ?", recordID)
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", recordID, err)
	}
	return nil
}

// GetRecord returns one cached record reconstructed into its Remote
// API shape. found=false when the table or record is absent.
func (e *Engine) GetRecord(ctx context.Context, tableID, recordID string) (types.Record, bool, error) {
	entry, err := e.loadEntry(ctx, tableID)
	if err != nil {
		return nil, false, err
	}
	if entry == nil {
		return nil, false, nil
	}

	rows, err := e.Query(ctx, tableID)
	if err != nil {
		return nil, false, err
	}
	raw, err := rows.Where(map[string]any{"id": recordID}).Limit(1).Execute()
	if err != nil {
		return nil, false, err
	}
	if len(raw) == 0 {
		return nil, false, nil
	}
	return codec.Reconstruct(entry.Catalog, entry.Mapping, raw[0]), true, nil
}

// Query returns a query builder bound to the table's local schema.
func (e *Engine) Query(ctx context.Context, tableID string) (*query.Builder, error) {
	entry, err := e.loadEntry(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotCached, tableID)
	}
	return query.New(dbQuerier{e.db}, entry.LocalTableName, entry.Catalog, entry.Mapping), nil
}

// Reconstruct turns raw query rows back into Remote API record shapes.
func (e *Engine) Reconstruct(ctx context.Context, tableID string, rows []map[string]any) ([]types.Record, error) {
	entry, err := e.loadEntry(ctx, tableID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotCached, tableID)
	}
	out := make([]types.Record, len(rows))
	for i, row := range rows {
		out[i] = codec.Reconstruct(entry.Catalog, entry.Mapping, row)
	}
	return out, nil
}

// IsValid reports whether the table has at least one unexpired row.
func (e *Engine) IsValid(ctx context.Context, tableID string) (bool, error) {
	entry, err := e.loadEntry(ctx, tableID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	return e.scopeValid(ctx, entry.LocalTableName)
}

func (e *Engine) scopeValid(ctx context.Context, table string) (bool, error) {
	var n int64
	err := e.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM "+quoteIdent(table)+" WHERE expires_at > ?",
		e.timestamp(e.nowUTC())).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check validity of %s: %w", table, err)
	}
	return n > 0, nil
}

// Invalidate marks every cached row of the table expired. When the
// remote structure changed, the table-metadata row is expired too so
// the next listing refetches it.
func (e *Engine) Invalidate(ctx context.Context, tableID string, structureChanged bool) error {
	entry, err := e.loadEntry(ctx, tableID)
	if err != nil {
		return err
	}
	if entry != nil {
		if err := e.expireScope(ctx, entry.LocalTableName); err != nil {
			return err
		}
	}
	if structureChanged {
		_, err := e.db.ExecContext(ctx,
			"UPDATE cached_tables SET expires_at = ? WHERE id = ?", epochZero, tableID)
		if err != nil {
			return fmt.Errorf("failed to invalidate table metadata for %s: %w", tableID, err)
		}
	}
	return nil
}

func (e *Engine) expireScope(ctx context.Context, table string) error {
	_, err := e.db.ExecContext(ctx,
		"UPDATE "+quoteIdent(table)+" SET expires_at = ?", epochZero)
	if err != nil {
		return fmt.Errorf("failed to invalidate %s: %w", table, err)
	}
	return nil
}

// insertStatement builds the INSERT for a registry entry and returns
// the mapped column list in statement order.
func insertStatement(entry *tableEntry) (string, []string) {
	cols := []string{"id"}
	for _, fc := range entry.Mapping {
		for _, c := range fc.Columns {
			cols = append(cols, c.Name)
		}
	}
	cols = append(cols, "cached_at", "expires_at")

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(entry.LocalTableName),
		strings.Join(quoted, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "))
	return stmt, cols
}

func recordArgs(entry *tableEntry, cols []string, rec types.Record, cachedAt, expiresAt string) []any {
	values := codec.Extract(entry.Catalog, entry.Mapping, rec)
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		switch c {
		case "id":
			args = append(args, rec.ID())
		case "cached_at":
			args = append(args, cachedAt)
		case "expires_at":
			args = append(args, expiresAt)
		default:
			args = append(args, values[c])
		}
	}
	return args
}

// dbQuerier adapts *sql.DB to the query.Querier interface.
type dbQuerier struct {
	db *sql.DB
}

func (q dbQuerier) Query(query string, args ...any) (*sql.Rows, error) {
	return q.db.Query(query, args...)
}

func (q dbQuerier) QueryRow(query string, args ...any) *sql.Row {
	return q.db.QueryRow(query, args...)
}
