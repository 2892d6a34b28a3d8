package sqlite

// Fixed tables of the cache store. Record tables are created
// dynamically per cached RemoteTable; cache_table_registry is the sole
// source of truth for their physical schema.
const baseSchema = `
-- Registry: one row per cached RemoteTable
CREATE TABLE IF NOT EXISTS cache_table_registry (
    remote_table_id TEXT PRIMARY KEY,
    local_table_name TEXT NOT NULL,
    field_catalog TEXT NOT NULL,
    field_mapping TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

-- Per-table TTL configuration; absence means default TTL
CREATE TABLE IF NOT EXISTS cache_ttl_config (
    table_id TEXT PRIMARY KEY,
    ttl_seconds INTEGER NOT NULL,
    mutation_level TEXT DEFAULT '',
    notes TEXT DEFAULT '',
    updated_at TEXT NOT NULL
);

-- Hit/miss counters, flushed in batches; values only ever increase
CREATE TABLE IF NOT EXISTS cache_stats (
    table_id TEXT PRIMARY KEY,
    hits INTEGER NOT NULL DEFAULT 0,
    misses INTEGER NOT NULL DEFAULT 0,
    last_access TEXT,
    updated_at TEXT
);

-- Best-effort Remote API call log
CREATE TABLE IF NOT EXISTS api_call_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    endpoint TEXT NOT NULL,
    method TEXT DEFAULT '',
    status_code INTEGER,
    duration_ms REAL,
    called_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_api_call_log_endpoint ON api_call_log(endpoint);

CREATE TABLE IF NOT EXISTS api_stats_summary (
    endpoint TEXT PRIMARY KEY,
    call_count INTEGER NOT NULL DEFAULT 0,
    total_duration_ms REAL NOT NULL DEFAULT 0,
    last_called_at TEXT
);

-- Ancillary caches: solutions contain tables contain records
CREATE TABLE IF NOT EXISTS cached_solutions (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    logo_url TEXT DEFAULT '',
    data TEXT,
    cached_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cached_tables (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    solution_id TEXT NOT NULL,
    status TEXT DEFAULT '',
    hidden INTEGER DEFAULT 0,
    icon TEXT DEFAULT '',
    primary_field TEXT DEFAULT '',
    table_order INTEGER DEFAULT 0,
    permissions TEXT DEFAULT '',
    field_permissions TEXT DEFAULT '',
    record_term TEXT DEFAULT '',
    fields_count_total INTEGER DEFAULT 0,
    fields_count_linkedrecordfield INTEGER DEFAULT 0,
    data TEXT,
    cached_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cached_tables_solution ON cached_tables(solution_id);

CREATE TABLE IF NOT EXISTS cached_members (
    id TEXT PRIMARY KEY,
    email TEXT DEFAULT '',
    full_name TEXT DEFAULT '',
    role TEXT DEFAULT '',
    status TEXT DEFAULT '',
    deleted_date TEXT DEFAULT '',
    data TEXT,
    cached_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cached_teams (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    members TEXT DEFAULT '[]',
    data TEXT,
    cached_at TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
`

// epochZero marks explicitly invalidated rows. ISO-8601 text compares
// lexicographically, so any real timestamp sorts after it.
const epochZero = "1970-01-01T00:00:00Z"
