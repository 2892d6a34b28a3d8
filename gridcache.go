// Package gridcache provides the public API of the record-caching
// engine: a local SQLite mirror of a remote workspace's records with
// per-table schemas synthesized from the remote field catalog,
// TTL-based validity, and a filter-to-SQL query layer.
//
// Most programs only need Open, the Engine methods, and the types
// aliased here; the internal packages carry the machinery.
package gridcache

import (
	"github.com/fieldstone/gridcache/internal/remote"
	"github.com/fieldstone/gridcache/internal/storage/sqlite"
	"github.com/fieldstone/gridcache/internal/types"
)

// Engine is the record cache. One Engine owns one store file.
type Engine = sqlite.Engine

// Option configures an Engine at open time.
type Option = sqlite.Option

// WithDefaultTTL overrides the default cache TTL.
var WithDefaultTTL = sqlite.WithDefaultTTL

// WithLogger sets the engine logger.
var WithLogger = sqlite.WithLogger

// Open opens (or creates) the cache store at path.
func Open(path string, opts ...Option) (*Engine, error) {
	return sqlite.New(path, opts...)
}

// ErrTableNotCached is returned when an operation needs a local table
// that has never been cached.
var ErrTableNotCached = sqlite.ErrTableNotCached

// RemoteClient is the workspace API contract the cache refreshes from.
type RemoteClient = remote.Client

// Core types.
type (
	Field            = types.Field
	FieldCatalog     = types.FieldCatalog
	FieldType        = types.FieldType
	Record           = types.Record
	Filter           = types.Filter
	FilterNode       = types.FilterNode
	Sort             = types.Sort
	Solution         = types.Solution
	TableInfo        = types.TableInfo
	Member           = types.Member
	Team             = types.Team
	TTLConfig        = types.TTLConfig
	CacheStatus      = types.CacheStatus
	ScopeStatus      = types.ScopeStatus
	PerformanceStats = types.PerformanceStats
)

// ParseFilter decodes a filter DSL document from JSON.
var ParseFilter = types.ParseFilter

// TTL presets.
const (
	TTLHighMutation = types.TTLHighMutation
	TTLMedium       = types.TTLMedium
	TTLLow          = types.TTLLow
	TTLVeryLow      = types.TTLVeryLow
	DefaultTTL      = types.DefaultTTL
)
