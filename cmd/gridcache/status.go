package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/config"
	"github.com/fieldstone/gridcache/internal/timeutil"
	"github.com/fieldstone/gridcache/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status [table-id]",
	Short: "Show cache contents and TTL state per scope",
	Long: `Show every cached scope with row count, cache time, expiry and
validity. Pass a table id to inspect a single record table.

Examples:
  gridcache status                 # All scopes
  gridcache status 64f2a1b9c3      # One record table
  gridcache status --format json   # Machine-readable`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(); err != nil {
			return err
		}
		tableID := ""
		if len(args) == 1 {
			tableID = args[0]
		}
		status, err := store.Status(cmd.Context(), tableID)
		if err != nil {
			return err
		}
		if structured() {
			return emit(status)
		}

		norm, err := timeutil.NewNormalizer(config.DisplayTimezone())
		if err != nil {
			return fmt.Errorf("invalid display-timezone: %w", err)
		}

		scopes := make([]string, 0, len(status))
		for scope := range status {
			scopes = append(scopes, scope)
		}
		sort.Strings(scopes)

		t := ui.NewStatusTable("Scope", "Rows", "Cached", "Expires", "Remaining", "State")
		for _, scope := range scopes {
			st := status[scope]
			if st.Count == 0 {
				t.Row(scope, "0", "-", "-", "-", ui.TableHintStyle.Render("empty"))
				continue
			}
			t.Row(scope,
				fmt.Sprintf("%d", st.Count),
				displayTime(norm, st.CachedAt),
				displayTime(norm, st.ExpiresAt),
				remaining(st.TimeRemainingSeconds),
				ui.Valid(st.IsValid),
			)
		}
		fmt.Println(t.Render())
		return nil
	},
}

func displayTime(norm timeutil.Normalizer, t time.Time) string {
	return norm.ToDisplay(t.Format(timeutil.StorageLayout))
}

func remaining(seconds int64) string {
	if seconds <= 0 {
		return "0s"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
