package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/fieldstone/gridcache/internal/types"
)

func setupTestDB(t *testing.T, opts ...Option) (*Engine, func()) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	e, err := New(path, opts...)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return e, func() { e.Close() }
}

func projectCatalog() types.FieldCatalog {
	return types.FieldCatalog{
		{Slug: "title", Label: "Title", FieldType: types.FieldText},
		{Slug: "budget", Label: "Budget", FieldType: types.FieldNumber},
		{Slug: "state", Label: "State", FieldType: types.FieldSingleSelect},
		{Slug: "due", Label: "Due", FieldType: types.FieldDueDate},
		{Slug: "owners", Label: "Owners", FieldType: types.FieldAssignedTo},
	}
}

func projectRecords() []types.Record {
	return []types.Record{
		{
			"id": "rec1", "title": "Roadmap", "budget": float64(1000),
			"state": "open", "owners": []any{"u1"},
			"due": map[string]any{
				"from_date": "2024-03-01T00:00:00Z", "to_date": "2024-03-10T00:00:00Z",
				"is_overdue": true, "status_is_completed": false,
			},
		},
		{
			"id": "rec2", "title": "Budget review", "budget": float64(5000),
			"state": "closed", "owners": []any{"u1", "u2"},
		},
		{"id": "rec3", "title": "Hiring", "state": "open"},
	}
}

func TestBulkReplaceAndQuery(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	n, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("inserted %d rows, want 3", n)
	}

	b, err := e.Query(ctx, "tbl1")
	if err != nil {
		t.Fatal(err)
	}
	rows, err := b.Where(map[string]any{"state": "open"}).Execute()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("open rows = %d, want 2", len(rows))
	}

	records, err := e.Reconstruct(ctx, "tbl1", rows)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if rec.ID() == "" {
			t.Error("reconstructed record lost its id")
		}
		if _, ok := rec["budget"]; !ok {
			t.Error("reconstructed record must carry every catalog field")
		}
	}
}

func TestBulkReplaceUniformExpiry(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), time.Hour); err != nil {
		t.Fatal(err)
	}
	entry, err := e.loadEntry(ctx, "tbl1")
	if err != nil {
		t.Fatal(err)
	}

	rows, err := e.db.Query("SELECT DISTINCT expires_at FROM " + quoteIdent(entry.LocalTableName))
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	count := 0
	for rows.Next() {
		count++
	}
	if count != 1 {
		t.Errorf("found %d distinct expires_at values, want 1", count)
	}
}

func TestBulkReplaceDeletesStaleRows(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), 0); err != nil {
		t.Fatal(err)
	}
	replacement := []types.Record{{"id": "rec9", "title": "Only survivor"}}
	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), replacement, 0); err != nil {
		t.Fatal(err)
	}

	b, _ := e.Query(ctx, "tbl1")
	n, err := b.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("row count after replace = %d, want 1", n)
	}
}

func TestSchemaEvolution(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), 0); err != nil {
		t.Fatal(err)
	}

	// The remote grows a field; the local table evolves in place.
	grown := append(projectCatalog(), types.Field{
		Slug: "priority", Label: "Priority", FieldType: types.FieldSingleSelect,
	})
	records := []types.Record{
		{"id": "rec1", "title": "Roadmap", "priority": "high"},
	}
	if _, err := e.BulkReplace(ctx, "tbl1", grown, records, 0); err != nil {
		t.Fatal(err)
	}

	b, err := e.Query(ctx, "tbl1")
	if err != nil {
		t.Fatal(err)
	}
	rows, err := b.Where(map[string]any{"priority": "high"}).Execute()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("priority query rows = %d, want 1", len(rows))
	}
}

func TestGetCacheDeleteRecord(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), 0); err != nil {
		t.Fatal(err)
	}

	rec, found, err := e.GetRecord(ctx, "tbl1", "rec1")
	if err != nil || !found {
		t.Fatalf("GetRecord: %v found=%v", err, found)
	}
	if rec["title"] != "Roadmap" {
		t.Errorf("title = %v", rec["title"])
	}

	// Upsert through CacheRecord.
	rec["title"] = "Roadmap v2"
	if err := e.CacheRecord(ctx, "tbl1", rec); err != nil {
		t.Fatal(err)
	}
	rec, _, _ = e.GetRecord(ctx, "tbl1", "rec1")
	if rec["title"] != "Roadmap v2" {
		t.Errorf("after upsert title = %v", rec["title"])
	}

	if err := e.DeleteRecord(ctx, "tbl1", "rec1"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := e.GetRecord(ctx, "tbl1", "rec1"); found {
		t.Error("record should be gone")
	}
	// Deleting again is a no-op.
	if err := e.DeleteRecord(ctx, "tbl1", "rec1"); err != nil {
		t.Errorf("second delete: %v", err)
	}

	// Unknown table behaves like a miss, not an error.
	if _, found, err := e.GetRecord(ctx, "nope", "rec1"); err != nil || found {
		t.Errorf("unknown table: %v found=%v", err, found)
	}
	if err := e.CacheRecord(ctx, "nope", types.Record{"id": "x"}); err == nil {
		t.Error("caching into an unknown table should fail")
	}
}

func TestTTLValidityAndInvalidate(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	e, cleanup := setupTestDB(t, withClock(func() time.Time { return now }))
	defer cleanup()
	ctx := context.Background()

	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), time.Hour); err != nil {
		t.Fatal(err)
	}

	valid, err := e.IsValid(ctx, "tbl1")
	if err != nil || !valid {
		t.Fatalf("fresh cache should be valid: %v %v", valid, err)
	}

	// The clock passes the TTL.
	now = now.Add(2 * time.Hour)
	if valid, _ := e.IsValid(ctx, "tbl1"); valid {
		t.Error("cache should expire with the clock")
	}

	// Refill, then invalidate explicitly.
	now = now.Add(time.Minute)
	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := e.Invalidate(ctx, "tbl1", false); err != nil {
		t.Fatal(err)
	}
	if valid, _ := e.IsValid(ctx, "tbl1"); valid {
		t.Error("invalidated cache should not be valid")
	}

	// Unknown tables are simply invalid.
	if valid, err := e.IsValid(ctx, "nope"); err != nil || valid {
		t.Errorf("unknown table: %v %v", valid, err)
	}
}

func TestPerTableTTLConfig(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if err := e.SetTTL(ctx, types.TTLConfig{TableID: "tbl1", TTLSeconds: 60}); err != nil {
		t.Fatal(err)
	}
	cfg, err := e.GetTTL(ctx, "tbl1")
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil || cfg.TTLSeconds != 60 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := e.ttlFor(ctx, "tbl1"); got != time.Minute {
		t.Errorf("ttlFor = %v", got)
	}
	if got := e.ttlFor(ctx, "other"); got != e.defaultTTL {
		t.Errorf("unconfigured table should use the default, got %v", got)
	}

	if err := e.SetTTL(ctx, types.TTLConfig{TableID: "tbl1", TTLSeconds: -5}); err == nil {
		t.Error("negative ttl should be rejected")
	}
	if cfg, _ := e.GetTTL(ctx, "never-set"); cfg != nil {
		t.Errorf("missing config should be nil, got %+v", cfg)
	}
}

func TestRefreshCascade(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := e.CacheSolutions(ctx, []types.Solution{{ID: "sol1", Name: "Ops"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.CacheTables(ctx, "", []types.TableInfo{
		{ID: "tbl1", Name: "Projects", SolutionID: "sol1"},
		{ID: "tbl2", Name: "Invoices", SolutionID: "sol2"},
	}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"tbl1", "tbl2"} {
		if _, err := e.BulkReplace(ctx, id, projectCatalog(), projectRecords(), 0); err != nil {
			t.Fatal(err)
		}
	}

	// Refreshing solutions expires everything underneath.
	if err := e.Refresh(ctx, "solutions", RefreshOptions{}); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"tbl1", "tbl2"} {
		if valid, _ := e.IsValid(ctx, id); valid {
			t.Errorf("%s should be expired after solutions refresh", id)
		}
	}
	if valid, _ := e.ScopeValid(ctx, "solutions"); valid {
		t.Error("solutions scope should be expired")
	}

	// Refill, then refresh one solution's tables only.
	for _, id := range []string{"tbl1", "tbl2"} {
		if _, err := e.BulkReplace(ctx, id, projectCatalog(), projectRecords(), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Refresh(ctx, "tables", RefreshOptions{SolutionID: "sol1"}); err != nil {
		t.Fatal(err)
	}
	if valid, _ := e.IsValid(ctx, "tbl1"); valid {
		t.Error("tbl1 should be expired after its solution's tables refresh")
	}
	if valid, _ := e.IsValid(ctx, "tbl2"); !valid {
		t.Error("tbl2 belongs to another solution and should stay valid")
	}

	// Refreshing records needs a table id.
	if err := e.Refresh(ctx, "records", RefreshOptions{}); err == nil {
		t.Error("records refresh without a table id should fail")
	}
	if err := e.Refresh(ctx, "nonsense", RefreshOptions{}); err == nil {
		t.Error("unknown resource should fail")
	}
}

func TestStatusSnapshot(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	e, cleanup := setupTestDB(t, withClock(func() time.Time { return now }))
	defer cleanup()
	ctx := context.Background()

	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), time.Hour); err != nil {
		t.Fatal(err)
	}

	status, err := e.Status(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	st, ok := status["tbl1"]
	if !ok {
		t.Fatalf("status missing tbl1: %v", status)
	}
	if st.Count != 3 || !st.IsValid {
		t.Errorf("tbl1 status = %+v", st)
	}
	if st.TimeRemainingSeconds <= 0 || st.TimeRemainingSeconds > 3600 {
		t.Errorf("remaining = %d", st.TimeRemainingSeconds)
	}
	if _, ok := status["cached_solutions"]; !ok {
		t.Error("status should include ancillary scopes")
	}

	single, err := e.Status(ctx, "tbl1")
	if err != nil {
		t.Fatal(err)
	}
	if len(single) != 1 {
		t.Errorf("single-table status = %v", single)
	}
}

func TestPerformanceCounters(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		e.TrackHit("tbl1")
	}
	for i := 0; i < 3; i++ {
		e.TrackMiss("tbl1")
	}
	e.TrackHit("tbl2")

	// Performance forces a flush of the in-memory counters.
	stats, err := e.Performance(ctx, "tbl1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Hits != 7 || stats.Misses != 3 || stats.Total != 10 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.HitRate != 70 {
		t.Errorf("hit rate = %v", stats.HitRate)
	}

	all, err := e.Performance(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 11 {
		t.Errorf("aggregate total = %d", all.Total)
	}

	// Counters are additive across flushes.
	e.TrackHit("tbl1")
	stats, _ = e.Performance(ctx, "tbl1")
	if stats.Hits != 8 {
		t.Errorf("hits after second flush = %d", stats.Hits)
	}
}

func TestAncillaryCachesAndFuzzyFind(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := e.CacheSolutions(ctx, []types.Solution{
		{ID: "sol1", Name: "Gestión de Proyectos"},
		{ID: "sol2", Name: "Finance"},
	}); err != nil {
		t.Fatal(err)
	}
	matches, err := e.FindSolutions(ctx, "gestion")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "sol1" {
		t.Errorf("matches = %+v", matches)
	}

	if _, err := e.CacheTables(ctx, "", []types.TableInfo{
		{ID: "tbl1", Name: "Sales Pipeline", SolutionID: "sol2"},
	}); err != nil {
		t.Fatal(err)
	}
	tables, err := e.FindTables(ctx, "pipline", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 {
		t.Errorf("tables = %+v", tables)
	}

	if _, err := e.CacheMembers(ctx, []types.Member{
		{ID: "u1", Email: "ana@example.com", FullName: "Ana García"},
		{ID: "u2", Email: "bo@example.com", FullName: "Bo Larsen"},
	}); err != nil {
		t.Fatal(err)
	}
	members, err := e.Members(ctx, "garcia")
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].ID != "u1" {
		t.Errorf("members = %+v", members)
	}

	if _, err := e.CacheTeams(ctx, []types.Team{
		{ID: "t1", Name: "Platform", Members: []string{"u1", "u2"}},
	}); err != nil {
		t.Fatal(err)
	}
	teams, err := e.Teams(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(teams) != 1 || len(teams[0].Members) != 2 {
		t.Errorf("teams = %+v", teams)
	}
}

func TestMigrationIdempotence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	e, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), 0); err != nil {
		t.Fatal(err)
	}
	first := dumpSchema(t, e)
	if err := e.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen: migrations rerun and must not change anything.
	e, err = New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	second := dumpSchema(t, e)

	if len(first) != len(second) {
		t.Fatalf("schema changed across reopen: %d vs %d objects", len(first), len(second))
	}
	for name, sql := range first {
		if second[name] != sql {
			t.Errorf("schema of %s changed across reopen", name)
		}
	}

	// Data survives.
	if _, found, err := e.GetRecord(ctx, "tbl1", "rec1"); err != nil || !found {
		t.Errorf("record lost across reopen: %v %v", found, err)
	}
}

func dumpSchema(t *testing.T, e *Engine) map[string]string {
	t.Helper()
	rows, err := e.db.Query(`SELECT name, COALESCE(sql, '') FROM sqlite_master ORDER BY name`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var name, sql string
		if err := rows.Scan(&name, &sql); err != nil {
			t.Fatal(err)
		}
		out[name] = sql
	}
	return out
}

func TestStoreLocking(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	e, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	if _, err := New(path); err == nil {
		t.Error("second open of a locked store should fail")
	}
}

func TestReset(t *testing.T) {
	e, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := e.BulkReplace(ctx, "tbl1", projectCatalog(), projectRecords(), 0); err != nil {
		t.Fatal(err)
	}
	e.TrackHit("tbl1")

	if err := e.Reset(ctx); err != nil {
		t.Fatal(err)
	}

	ids, err := e.CachedTableIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("registry not empty after reset: %v", ids)
	}
	if _, err := e.Query(ctx, "tbl1"); err == nil {
		t.Error("querying a reset table should fail")
	}
	stats, err := e.Performance(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total != 0 {
		t.Errorf("stats survived reset: %+v", stats)
	}
}
