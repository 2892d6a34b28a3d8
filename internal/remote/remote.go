// Package remote declares the contract the caching engine consumes
// from the workspace API client. The engine never talks HTTP itself;
// a client implementation is injected where cache misses need filling.
package remote

import (
	"context"

	"github.com/fieldstone/gridcache/internal/types"
)

// RecordPage is one page of a record listing.
type RecordPage struct {
	Records []types.Record `json:"items"`
	Total   int            `json:"total"`
	Offset  int            `json:"offset"`
}

// ListOptions scope a record listing call.
type ListOptions struct {
	Limit  int
	Offset int
	// Filter is forwarded verbatim; the remote service applies it
	// server-side. Nil lists everything.
	Filter *types.Filter
}

// Client is the workspace API surface the cache layer refreshes from.
type Client interface {
	// ListSolutions returns every solution visible to the caller.
	ListSolutions(ctx context.Context) ([]types.Solution, error)
	// ListTables returns table metadata, optionally for one solution.
	ListTables(ctx context.Context, solutionID string) ([]types.TableInfo, error)
	// GetTable returns one table's metadata and field catalog.
	GetTable(ctx context.Context, tableID string) (*types.TableInfo, *types.FieldCatalog, error)
	// ListRecords pages through a table's records.
	ListRecords(ctx context.Context, tableID string, opts ListOptions) (*RecordPage, error)
	// GetRecord fetches a single record.
	GetRecord(ctx context.Context, tableID, recordID string) (types.Record, error)
	// CreateRecord writes a new record and returns it as stored.
	CreateRecord(ctx context.Context, tableID string, record types.Record) (types.Record, error)
	// UpdateRecord applies a partial update and returns the result.
	UpdateRecord(ctx context.Context, tableID, recordID string, fields map[string]any) (types.Record, error)
	// DeleteRecord removes a record.
	DeleteRecord(ctx context.Context, tableID, recordID string) error
	// ListMembers returns workspace members.
	ListMembers(ctx context.Context) ([]types.Member, error)
	// ListTeams returns workspace teams.
	ListTeams(ctx context.Context) ([]types.Team, error)
}
