package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/storage/sqlite"
	"github.com/fieldstone/gridcache/internal/ui"
)

var (
	refreshSolutionID string
	refreshTableID    string
)

var refreshCmd = &cobra.Command{
	Use:   "refresh <solutions|tables|records|members|teams>",
	Short: "Invalidate a cache scope so the next read refetches",
	Long: `Mark a cache scope expired. Invalidation cascades down the
solution > table > records hierarchy: refreshing solutions expires
every table and record cache; refreshing tables expires the record
caches underneath.

Examples:
  gridcache refresh solutions
  gridcache refresh tables --solution 6421a9
  gridcache refresh records --table 64f2a1b9c3`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(); err != nil {
			return err
		}
		err := store.Refresh(cmd.Context(), args[0], sqlite.RefreshOptions{
			SolutionID: refreshSolutionID,
			TableID:    refreshTableID,
		})
		if err != nil {
			return err
		}
		if structured() {
			return emit(map[string]string{"refreshed": args[0]})
		}
		fmt.Println(ui.TableSuccessStyle.Render(fmt.Sprintf("Invalidated %s cache", args[0])))
		return nil
	},
}

func init() {
	refreshCmd.Flags().StringVar(&refreshSolutionID, "solution", "", "Limit table refresh to one solution")
	refreshCmd.Flags().StringVar(&refreshTableID, "table", "", "Record table to refresh (required for records)")
	rootCmd.AddCommand(refreshCmd)
}
