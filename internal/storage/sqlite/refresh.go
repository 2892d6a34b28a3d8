package sqlite

import (
	"context"
	"fmt"
)

// RefreshOptions scope a Refresh call.
type RefreshOptions struct {
	SolutionID string
	TableID    string
}

// Refresh performs resource-keyed invalidation with the cascade the
// solution→table→records hierarchy requires:
//
//	solutions: cached_solutions, every cached_tables row, every record table
//	tables:    cached_tables rows (optionally one solution) and the
//	           record tables under them
//	records:   one record table (TableID required)
//	members, teams: that ancillary cache only
func (e *Engine) Refresh(ctx context.Context, resource string, opts RefreshOptions) error {
	switch resource {
	case "solutions":
		if err := e.expireScope(ctx, "cached_solutions"); err != nil {
			return err
		}
		if err := e.expireScope(ctx, "cached_tables"); err != nil {
			return err
		}
		return e.expireRecordTables(ctx, "")

	case "tables":
		if opts.SolutionID != "" {
			_, err := e.db.ExecContext(ctx,
				"UPDATE cached_tables SET expires_at = ? WHERE solution_id = ?",
				epochZero, opts.SolutionID)
			if err != nil {
				return fmt.Errorf("failed to invalidate tables for solution %s: %w", opts.SolutionID, err)
			}
		} else if err := e.expireScope(ctx, "cached_tables"); err != nil {
			return err
		}
		return e.expireRecordTables(ctx, opts.SolutionID)

	case "records":
		if opts.TableID == "" {
			return fmt.Errorf("refreshing records requires a table id")
		}
		return e.Invalidate(ctx, opts.TableID, false)

	case "members":
		return e.expireScope(ctx, "cached_members")

	case "teams":
		return e.expireScope(ctx, "cached_teams")
	}
	return fmt.Errorf("unknown refresh resource %q (want solutions, tables, records, members or teams)", resource)
}

func (e *Engine) expireRecordTables(ctx context.Context, solutionID string) error {
	refs, err := e.recordTables(ctx, solutionID)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if err := e.expireScope(ctx, ref.LocalTableName); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops every record table and clears all cached state. This is
// the administrative rebuild path; the cache refills from the Remote
// API afterwards.
func (e *Engine) Reset(ctx context.Context) error {
	refs, err := e.recordTables(ctx, "")
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if _, err := e.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(ref.LocalTableName)); err != nil {
			return fmt.Errorf("failed to drop %s: %w", ref.LocalTableName, err)
		}
	}
	for _, table := range []string{
		"cache_table_registry", "cache_ttl_config", "cache_stats",
		"api_call_log", "api_stats_summary",
		"cached_solutions", "cached_tables", "cached_members", "cached_teams",
	} {
		if _, err := e.db.ExecContext(ctx, "DELETE FROM "+quoteIdent(table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	e.statsMu.Lock()
	e.counters = map[string]*counter{}
	e.opsSinceFlush = 0
	e.statsMu.Unlock()
	return nil
}
