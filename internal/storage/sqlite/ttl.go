package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fieldstone/gridcache/internal/types"
)

// ttlFor resolves the effective TTL for a table: per-table config when
// present, engine default otherwise.
func (e *Engine) ttlFor(ctx context.Context, tableID string) time.Duration {
	var seconds int64
	err := e.db.QueryRowContext(ctx,
		`SELECT ttl_seconds FROM cache_ttl_config WHERE table_id = ?`, tableID).Scan(&seconds)
	if err != nil || seconds <= 0 {
		return e.defaultTTL
	}
	return time.Duration(seconds) * time.Second
}

// SetTTL stores the per-table TTL configuration. A non-positive TTL is
// rejected.
func (e *Engine) SetTTL(ctx context.Context, cfg types.TTLConfig) error {
	if cfg.TTLSeconds <= 0 {
		return fmt.Errorf("invalid ttl %d: must be positive seconds", cfg.TTLSeconds)
	}
	_, err := e.db.ExecContext(ctx, `
		INSERT INTO cache_ttl_config (table_id, ttl_seconds, mutation_level, notes, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(table_id) DO UPDATE SET
			ttl_seconds = excluded.ttl_seconds,
			mutation_level = excluded.mutation_level,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, cfg.TableID, cfg.TTLSeconds, cfg.MutationLevel, cfg.Notes, e.timestamp(e.nowUTC()))
	if err != nil {
		return fmt.Errorf("failed to set ttl for %s: %w", cfg.TableID, err)
	}
	return nil
}

// GetTTL returns the stored TTL config for a table, if any.
func (e *Engine) GetTTL(ctx context.Context, tableID string) (*types.TTLConfig, error) {
	var cfg types.TTLConfig
	err := e.db.QueryRowContext(ctx, `
		SELECT table_id, ttl_seconds, mutation_level, notes
		FROM cache_ttl_config WHERE table_id = ?
	`, tableID).Scan(&cfg.TableID, &cfg.TTLSeconds, &cfg.MutationLevel, &cfg.Notes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ttl for %s: %w", tableID, err)
	}
	return &cfg, nil
}

// ttlOverridesFile is the shape of an optional ttl.toml: per-table TTLs
// keyed by remote table id.
type ttlOverridesFile struct {
	Tables map[string]ttlOverride `toml:"tables"`
}

type ttlOverride struct {
	TTLSeconds    int64  `toml:"ttl_seconds"`
	MutationLevel string `toml:"mutation_level"`
	Notes         string `toml:"notes"`
}

// LoadTTLOverrides reads a ttl.toml file and applies each entry as
// per-table configuration. Presets may be named through mutation_level
// when ttl_seconds is zero.
func (e *Engine) LoadTTLOverrides(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read ttl overrides: %w", err)
	}
	var file ttlOverridesFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse ttl overrides: %w", err)
	}

	for tableID, o := range file.Tables {
		seconds := o.TTLSeconds
		if seconds <= 0 && o.MutationLevel != "" {
			if d, ok := types.TTLPreset(o.MutationLevel); ok {
				seconds = int64(d / time.Second)
			}
		}
		if seconds <= 0 {
			return fmt.Errorf("ttl override for %s has neither ttl_seconds nor a known mutation_level", tableID)
		}
		cfg := types.TTLConfig{
			TableID:       tableID,
			TTLSeconds:    seconds,
			MutationLevel: o.MutationLevel,
			Notes:         o.Notes,
		}
		if err := e.SetTTL(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}
