package main

import (
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/config"
	"github.com/fieldstone/gridcache/internal/timeutil"
	"github.com/fieldstone/gridcache/internal/types"
)

var (
	queryFilter     string
	querySortField  string
	querySortDesc   bool
	queryLimit      int
	queryOffset     int
	querySince      string
	querySinceField string
	queryCount      bool
	queryStrict     bool
)

var queryCmd = &cobra.Command{
	Use:   "query <table-id>",
	Short: "Run a filter against a cached table",
	Long: `Query a cached record table locally. Filters use the remote filter
DSL as JSON; --since accepts natural-language dates ("2 weeks ago",
"last monday") against a date field.

Examples:
  gridcache query 64f2a1b9c3 --limit 20
  gridcache query 64f2a1b9c3 --filter '{"operator":"and","fields":[{"field":"status","comparison":"is","value":"open"}]}'
  gridcache query 64f2a1b9c3 --since "3 days ago" --since-field last_updated
  gridcache query 64f2a1b9c3 --count`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(); err != nil {
			return err
		}
		ctx := cmd.Context()
		tableID := args[0]

		b, err := store.Query(ctx, tableID)
		if err != nil {
			return err
		}

		strict := queryStrict || config.StrictFilters()
		if queryFilter != "" {
			f, err := types.ParseFilter([]byte(queryFilter))
			if err != nil {
				return fmt.Errorf("invalid filter: %w", err)
			}
			if err := b.ApplyFilter(f, strict); err != nil {
				return err
			}
		}

		if querySince != "" {
			if querySinceField == "" {
				return fmt.Errorf("--since requires --since-field")
			}
			cutoff, err := parseNaturalDate(querySince)
			if err != nil {
				return err
			}
			b.Where(map[string]any{
				querySinceField: map[string]any{
					"is_on_or_after": cutoff.UTC().Format(timeutil.StorageLayout),
				},
			})
		}

		if queryCount {
			n, err := b.Count()
			if err != nil {
				return err
			}
			if structured() {
				return emit(map[string]int64{"count": n})
			}
			fmt.Println(n)
			return nil
		}

		if querySortField != "" {
			dir := "asc"
			if querySortDesc {
				dir = "desc"
			}
			b.ApplySort([]types.Sort{{Field: querySortField, Direction: dir}})
		}
		if queryLimit > 0 {
			b.Limit(queryLimit)
		}
		if queryOffset > 0 {
			b.Offset(queryOffset)
		}

		rows, err := b.Execute()
		if err != nil {
			return err
		}
		records, err := store.Reconstruct(ctx, tableID, rows)
		if err != nil {
			return err
		}
		return emit(records)
	},
}

// parseNaturalDate resolves a natural-language date expression relative
// to now.
func parseNaturalDate(expr string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	r, err := w.Parse(expr, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date expression %q: %w", expr, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("unrecognized date expression %q", expr)
	}
	return r.Time, nil
}

func init() {
	queryCmd.Flags().StringVar(&queryFilter, "filter", "", "Filter DSL document (JSON)")
	queryCmd.Flags().StringVar(&querySortField, "sort", "", "Field slug to sort by")
	queryCmd.Flags().BoolVar(&querySortDesc, "desc", false, "Sort descending")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 0, "Maximum rows to return")
	queryCmd.Flags().IntVar(&queryOffset, "offset", 0, "Rows to skip")
	queryCmd.Flags().StringVar(&querySince, "since", "", "Natural-language lower bound date")
	queryCmd.Flags().StringVar(&querySinceField, "since-field", "", "Date field the --since bound applies to")
	queryCmd.Flags().BoolVar(&queryCount, "count", false, "Print the match count only")
	queryCmd.Flags().BoolVar(&queryStrict, "strict", false, "Fail on invalid operator/field combinations")
	rootCmd.AddCommand(queryCmd)
}
