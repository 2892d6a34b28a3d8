package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldstone/gridcache/internal/types"
)

var ancillaryScopes = []string{
	"cached_solutions", "cached_tables", "cached_members", "cached_teams",
}

// Status reports a snapshot of every cached scope: row count, cache
// and expiry timestamps, remaining lifetime, validity. With a tableID
// only that record table is reported. Scopes whose timestamps fail to
// parse are omitted rather than failing the whole snapshot.
func (e *Engine) Status(ctx context.Context, tableID string) (types.CacheStatus, error) {
	out := types.CacheStatus{}

	if tableID != "" {
		entry, err := e.loadEntry(ctx, tableID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return out, nil
		}
		if st, ok := e.scopeStatus(ctx, entry.LocalTableName); ok {
			out[tableID] = st
		}
		return out, nil
	}

	for _, scope := range ancillaryScopes {
		if st, ok := e.scopeStatus(ctx, scope); ok {
			out[scope] = st
		}
	}
	refs, err := e.recordTables(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if st, ok := e.scopeStatus(ctx, ref.LocalTableName); ok {
			out[ref.RemoteTableID] = st
		}
	}
	return out, nil
}

func (e *Engine) scopeStatus(ctx context.Context, table string) (types.ScopeStatus, bool) {
	var count int64
	var cachedAt, expiresAt sql.NullString
	err := e.db.QueryRowContext(ctx,
		"SELECT COUNT(*), MAX(cached_at), MAX(expires_at) FROM "+quoteIdent(table)).
		Scan(&count, &cachedAt, &expiresAt)
	if err != nil {
		e.log.Warn("failed to read scope status", "table", table, "error", err)
		return types.ScopeStatus{}, false
	}
	if count == 0 {
		return types.ScopeStatus{Count: 0}, true
	}

	cached, err1 := time.Parse("2006-01-02T15:04:05Z", cachedAt.String)
	expires, err2 := time.Parse("2006-01-02T15:04:05Z", expiresAt.String)
	if err1 != nil || err2 != nil {
		// corrupt bookkeeping timestamps: omit this scope
		return types.ScopeStatus{}, false
	}

	now := e.nowUTC()
	remaining := int64(expires.Sub(now) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return types.ScopeStatus{
		Count:                count,
		CachedAt:             cached,
		ExpiresAt:            expires,
		TimeRemainingSeconds: remaining,
		IsValid:              expires.After(now),
	}, true
}

// CachedTableIDs lists the remote table ids present in the registry.
func (e *Engine) CachedTableIDs(ctx context.Context) ([]string, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT remote_table_id FROM cache_table_registry ORDER BY remote_table_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached tables: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
