package types

import "time"

// TTL presets. Convenience aliases for per-table TTL configuration.
const (
	TTLHighMutation = time.Hour
	TTLMedium       = 12 * time.Hour
	TTLLow          = 7 * 24 * time.Hour
	TTLVeryLow      = 30 * 24 * time.Hour

	// DefaultTTL applies when no per-table config exists.
	DefaultTTL = TTLMedium
)

// TTLPreset resolves a preset name to its duration.
func TTLPreset(name string) (time.Duration, bool) {
	switch name {
	case "high_mutation":
		return TTLHighMutation, true
	case "medium":
		return TTLMedium, true
	case "low":
		return TTLLow, true
	case "very_low":
		return TTLVeryLow, true
	}
	return 0, false
}

// TTLConfig is the per-table TTL row.
type TTLConfig struct {
	TableID       string `json:"table_id"`
	TTLSeconds    int64  `json:"ttl_seconds"`
	MutationLevel string `json:"mutation_level,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ScopeStatus describes one cached scope in a status snapshot.
type ScopeStatus struct {
	Count                int64     `json:"count"`
	CachedAt             time.Time `json:"cached_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	TimeRemainingSeconds int64     `json:"time_remaining_seconds"`
	IsValid              bool      `json:"is_valid"`
}

// CacheStatus maps scope names (ancillary caches and record tables) to
// their status. Scopes with corrupt timestamps are omitted.
type CacheStatus map[string]ScopeStatus

// PerformanceStats is the hit/miss report for one table or the whole
// store.
type PerformanceStats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Total      int64     `json:"total"`
	HitRate    float64   `json:"hit_rate"` // percent
	LastAccess time.Time `json:"last_access,omitempty"`
}

// Solution is a cached solution descriptor.
type Solution struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

// TableInfo is cached table metadata (one row of cached_tables).
type TableInfo struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	SolutionID      string `json:"solution_id"`
	Status          string `json:"status,omitempty"`
	Hidden          bool   `json:"hidden,omitempty"`
	Icon            string `json:"icon,omitempty"`
	PrimaryField    string `json:"primary_field,omitempty"`
	TableOrder      int64  `json:"table_order,omitempty"`
	Permissions     string `json:"permissions,omitempty"`
	FieldPerms      string `json:"field_permissions,omitempty"`
	RecordTerm      string `json:"record_term,omitempty"`
	FieldsTotal     int64  `json:"fields_count_total,omitempty"`
	FieldsLinked    int64  `json:"fields_count_linkedrecordfield,omitempty"`
}

// Member is a cached workspace member.
type Member struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	FullName    string `json:"full_name,omitempty"`
	Role        string `json:"role,omitempty"`
	Status      string `json:"status,omitempty"`
	DeletedDate string `json:"deleted_date,omitempty"`
}

// Team is a cached team.
type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Members []string `json:"members,omitempty"`
}
