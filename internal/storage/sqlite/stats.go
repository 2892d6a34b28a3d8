package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fieldstone/gridcache/internal/types"
)

const (
	flushOpsThreshold = 100
	flushInterval     = 5 * time.Minute
)

// counter accumulates hits and misses for one table between flushes.
type counter struct {
	hits       int64
	misses     int64
	lastAccess time.Time
}

// TrackHit records a cache hit. In-memory only; flushed in batches.
func (e *Engine) TrackHit(tableID string) {
	e.track(tableID, 1, 0)
}

// TrackMiss records a cache miss.
func (e *Engine) TrackMiss(tableID string) {
	e.track(tableID, 0, 1)
}

func (e *Engine) track(tableID string, hits, misses int64) {
	e.statsMu.Lock()
	c := e.counters[tableID]
	if c == nil {
		c = &counter{}
		e.counters[tableID] = c
	}
	c.hits += hits
	c.misses += misses
	c.lastAccess = e.nowUTC()
	e.opsSinceFlush++
	shouldFlush := e.opsSinceFlush >= flushOpsThreshold || e.nowUTC().Sub(e.lastFlush) >= flushInterval
	e.statsMu.Unlock()

	if shouldFlush {
		e.flushStats()
	}
}

// flushStats persists accumulated counters additively, so stored
// values only ever increase. Failures are logged and swallowed: stats
// recording must never fail a read or write path.
func (e *Engine) flushStats() {
	e.statsMu.Lock()
	pending := e.counters
	e.counters = map[string]*counter{}
	e.opsSinceFlush = 0
	e.lastFlush = e.nowUTC()
	e.statsMu.Unlock()

	if e.db == nil {
		return
	}
	for tableID, c := range pending {
		_, err := e.db.Exec(`
			INSERT INTO cache_stats (table_id, hits, misses, last_access, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(table_id) DO UPDATE SET
				hits = hits + excluded.hits,
				misses = misses + excluded.misses,
				last_access = excluded.last_access,
				updated_at = excluded.updated_at
		`, tableID, c.hits, c.misses, e.timestamp(c.lastAccess), e.timestamp(e.nowUTC()))
		if err != nil {
			e.log.Warn("failed to flush cache stats", "table_id", tableID, "error", err)
		}
	}
}

// Performance flushes pending counters and reports hit/miss stats for
// one table, or aggregated over the whole store when tableID is empty.
func (e *Engine) Performance(ctx context.Context, tableID string) (*types.PerformanceStats, error) {
	e.flushStats()

	var q string
	var args []any
	if tableID != "" {
		q = `SELECT COALESCE(SUM(hits), 0), COALESCE(SUM(misses), 0), MAX(last_access)
		     FROM cache_stats WHERE table_id = ?`
		args = append(args, tableID)
	} else {
		q = `SELECT COALESCE(SUM(hits), 0), COALESCE(SUM(misses), 0), MAX(last_access)
		     FROM cache_stats`
	}

	var stats types.PerformanceStats
	var lastAccess sql.NullString
	if err := e.db.QueryRowContext(ctx, q, args...).Scan(&stats.Hits, &stats.Misses, &lastAccess); err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}
	stats.Total = stats.Hits + stats.Misses
	if stats.Total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(stats.Total) * 100
	}
	if lastAccess.Valid {
		if t, err := time.Parse("2006-01-02T15:04:05Z", lastAccess.String); err == nil {
			stats.LastAccess = t
		}
	}
	return &stats, nil
}

// RecordAPICall logs one Remote API call for usage statistics. Best
// effort: failures are logged and swallowed.
func (e *Engine) RecordAPICall(ctx context.Context, endpoint, method string, statusCode int, duration time.Duration) {
	ms := float64(duration) / float64(time.Millisecond)
	now := e.timestamp(e.nowUTC())

	_, err := e.db.ExecContext(ctx, `
		INSERT INTO api_call_log (endpoint, method, status_code, duration_ms, called_at)
		VALUES (?, ?, ?, ?, ?)
	`, endpoint, method, statusCode, ms, now)
	if err != nil {
		e.log.Warn("failed to record api call", "endpoint", endpoint, "error", err)
		return
	}
	_, err = e.db.ExecContext(ctx, `
		INSERT INTO api_stats_summary (endpoint, call_count, total_duration_ms, last_called_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET
			call_count = call_count + 1,
			total_duration_ms = total_duration_ms + excluded.total_duration_ms,
			last_called_at = excluded.last_called_at
	`, endpoint, ms, now)
	if err != nil {
		e.log.Warn("failed to update api stats summary", "endpoint", endpoint, "error", err)
	}
}
