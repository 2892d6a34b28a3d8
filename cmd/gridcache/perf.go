package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/ui"
)

var perfCmd = &cobra.Command{
	Use:   "perf [table-id]",
	Short: "Show cache hit/miss statistics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(); err != nil {
			return err
		}
		tableID := ""
		if len(args) == 1 {
			tableID = args[0]
		}
		stats, err := store.Performance(cmd.Context(), tableID)
		if err != nil {
			return err
		}
		if structured() {
			return emit(stats)
		}

		scope := "all tables"
		if tableID != "" {
			scope = tableID
		}
		fmt.Printf("Cache performance (%s)\n", scope)
		fmt.Printf("  hits:     %d\n", stats.Hits)
		fmt.Printf("  misses:   %d\n", stats.Misses)
		fmt.Printf("  hit rate: %.1f%%\n", stats.HitRate)
		if !stats.LastAccess.IsZero() {
			fmt.Printf("  last access: %s\n", ui.TableHintStyle.Render(stats.LastAccess.Format("2006-01-02 15:04:05")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(perfCmd)
}
