package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/ui"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every cached table and start over",
	Long: `Drop all record tables and clear all cached state, registry and
statistics included. The cache refills from the remote API on the next
read. Asks for confirmation unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetForce {
			if !ui.IsTerminal() {
				return fmt.Errorf("refusing to reset without --force in non-interactive mode")
			}
			confirmed := false
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title("Drop all cached data?").
					Description("Every cached table, TTL setting and statistic will be deleted.").
					Affirmative("Reset").
					Negative("Cancel").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if err := openStore(); err != nil {
			return err
		}
		if err := store.Reset(cmd.Context()); err != nil {
			return err
		}
		fmt.Println(ui.TableSuccessStyle.Render("Cache reset."))
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
