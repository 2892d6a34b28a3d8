package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/fieldstone/gridcache/internal/types"
	"github.com/fieldstone/gridcache/internal/utils"
)

// Ancillary caches use pseudo table ids for per-scope TTL config.
const (
	scopeSolutions = "solutions"
	scopeTables    = "tables"
	scopeMembers   = "members"
	scopeTeams     = "teams"
)

// CacheSolutions bulk-replaces the solutions cache.
func (e *Engine) CacheSolutions(ctx context.Context, solutions []types.Solution) (int, error) {
	now := e.nowUTC()
	cachedAt := e.timestamp(now)
	expiresAt := e.timestamp(now.Add(e.ttlFor(ctx, scopeSolutions)))

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin solutions cache: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_solutions`); err != nil {
		return 0, fmt.Errorf("failed to clear cached_solutions: %w", err)
	}
	for _, s := range solutions {
		data, _ := json.Marshal(s)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cached_solutions (id, name, logo_url, data, cached_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, s.ID, s.Name, s.LogoURL, string(data), cachedAt, expiresAt)
		if err != nil {
			return 0, fmt.Errorf("failed to cache solution %s: %w", s.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(solutions), nil
}

// Solutions returns every cached solution, expired or not. Use
// ScopeValid to decide freshness.
func (e *Engine) Solutions(ctx context.Context) ([]types.Solution, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT id, name, logo_url FROM cached_solutions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}
	defer rows.Close()

	var out []types.Solution
	for rows.Next() {
		var s types.Solution
		if err := rows.Scan(&s.ID, &s.Name, &s.LogoURL); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindSolutions fuzzy-matches cached solutions by name, accent- and
// case-insensitively.
func (e *Engine) FindSolutions(ctx context.Context, query string) ([]types.Solution, error) {
	all, err := e.Solutions(ctx)
	if err != nil {
		return nil, err
	}
	var out []types.Solution
	for _, s := range all {
		if utils.FuzzyMatch(s.Name, query) {
			out = append(out, s)
		}
	}
	return out, nil
}

// CacheTables bulk-replaces table metadata. With a solutionID only that
// solution's rows are replaced.
func (e *Engine) CacheTables(ctx context.Context, solutionID string, tables []types.TableInfo) (int, error) {
	now := e.nowUTC()
	cachedAt := e.timestamp(now)
	expiresAt := e.timestamp(now.Add(e.ttlFor(ctx, scopeTables)))

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin tables cache: %w", err)
	}
	defer tx.Rollback()

	if solutionID != "" {
		_, err = tx.ExecContext(ctx, `DELETE FROM cached_tables WHERE solution_id = ?`, solutionID)
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM cached_tables`)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to clear cached_tables: %w", err)
	}

	for _, t := range tables {
		data, _ := json.Marshal(t)
		hidden := 0
		if t.Hidden {
			hidden = 1
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cached_tables
				(id, name, solution_id, status, hidden, icon, primary_field, table_order,
				 permissions, field_permissions, record_term,
				 fields_count_total, fields_count_linkedrecordfield,
				 data, cached_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, t.ID, t.Name, t.SolutionID, t.Status, hidden, t.Icon, t.PrimaryField, t.TableOrder,
			t.Permissions, t.FieldPerms, t.RecordTerm, t.FieldsTotal, t.FieldsLinked,
			string(data), cachedAt, expiresAt)
		if err != nil {
			return 0, fmt.Errorf("failed to cache table %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(tables), nil
}

// Tables returns cached table metadata, optionally scoped to one
// solution.
func (e *Engine) Tables(ctx context.Context, solutionID string) ([]types.TableInfo, error) {
	q := `SELECT id, name, solution_id, status, hidden, icon, primary_field, table_order,
	             permissions, field_permissions, record_term,
	             fields_count_total, fields_count_linkedrecordfield
	      FROM cached_tables`
	var args []any
	if solutionID != "" {
		q += ` WHERE solution_id = ?`
		args = append(args, solutionID)
	}
	q += ` ORDER BY table_order, name`

	rows, err := e.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var out []types.TableInfo
	for rows.Next() {
		var t types.TableInfo
		var hidden int
		if err := rows.Scan(&t.ID, &t.Name, &t.SolutionID, &t.Status, &hidden, &t.Icon,
			&t.PrimaryField, &t.TableOrder, &t.Permissions, &t.FieldPerms, &t.RecordTerm,
			&t.FieldsTotal, &t.FieldsLinked); err != nil {
			return nil, err
		}
		t.Hidden = hidden != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// FindTables fuzzy-matches cached tables by name.
func (e *Engine) FindTables(ctx context.Context, query, solutionID string) ([]types.TableInfo, error) {
	all, err := e.Tables(ctx, solutionID)
	if err != nil {
		return nil, err
	}
	var out []types.TableInfo
	for _, t := range all {
		if utils.FuzzyMatch(t.Name, query) {
			out = append(out, t)
		}
	}
	return out, nil
}

// CacheMembers bulk-replaces the members cache.
func (e *Engine) CacheMembers(ctx context.Context, members []types.Member) (int, error) {
	now := e.nowUTC()
	cachedAt := e.timestamp(now)
	expiresAt := e.timestamp(now.Add(e.ttlFor(ctx, scopeMembers)))

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin members cache: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_members`); err != nil {
		return 0, fmt.Errorf("failed to clear cached_members: %w", err)
	}
	for _, m := range members {
		data, _ := json.Marshal(m)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cached_members (id, email, full_name, role, status, deleted_date, data, cached_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, m.ID, m.Email, m.FullName, m.Role, m.Status, m.DeletedDate, string(data), cachedAt, expiresAt)
		if err != nil {
			return 0, fmt.Errorf("failed to cache member %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(members), nil
}

// Members returns cached members, fuzzy-filtered by name or email when
// query is non-empty.
func (e *Engine) Members(ctx context.Context, query string) ([]types.Member, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT id, email, full_name, role, status, COALESCE(deleted_date, '') FROM cached_members ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []types.Member
	for rows.Next() {
		var m types.Member
		if err := rows.Scan(&m.ID, &m.Email, &m.FullName, &m.Role, &m.Status, &m.DeletedDate); err != nil {
			return nil, err
		}
		if query == "" || utils.FuzzyMatch(m.FullName, query) || utils.FuzzyMatch(m.Email, query) {
			out = append(out, m)
		}
	}
	return out, rows.Err()
}

// CacheTeams bulk-replaces the teams cache.
func (e *Engine) CacheTeams(ctx context.Context, teams []types.Team) (int, error) {
	now := e.nowUTC()
	cachedAt := e.timestamp(now)
	expiresAt := e.timestamp(now.Add(e.ttlFor(ctx, scopeTeams)))

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin teams cache: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cached_teams`); err != nil {
		return 0, fmt.Errorf("failed to clear cached_teams: %w", err)
	}
	for _, t := range teams {
		members, _ := json.Marshal(t.Members)
		data, _ := json.Marshal(t)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cached_teams (id, name, members, data, cached_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, t.ID, t.Name, string(members), string(data), cachedAt, expiresAt)
		if err != nil {
			return 0, fmt.Errorf("failed to cache team %s: %w", t.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(teams), nil
}

// Teams returns cached teams.
func (e *Engine) Teams(ctx context.Context) ([]types.Team, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT id, name, members FROM cached_teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	defer rows.Close()

	var out []types.Team
	for rows.Next() {
		var t types.Team
		var members sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &members); err != nil {
			return nil, err
		}
		if members.Valid && members.String != "" {
			_ = json.Unmarshal([]byte(members.String), &t.Members)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ScopeValid reports TTL validity for one ancillary scope name
// (solutions, tables, members, teams).
func (e *Engine) ScopeValid(ctx context.Context, scope string) (bool, error) {
	table, ok := map[string]string{
		scopeSolutions: "cached_solutions",
		scopeTables:    "cached_tables",
		scopeMembers:   "cached_members",
		scopeTeams:     "cached_teams",
	}[scope]
	if !ok {
		return false, fmt.Errorf("unknown cache scope %q", scope)
	}
	return e.scopeValid(ctx, table)
}
