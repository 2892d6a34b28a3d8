package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/storage/sqlite"
	"github.com/fieldstone/gridcache/internal/ui"
)

var migrateRun bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "List store migrations, or apply them with --run",
	Long: `List the registered store migrations. Migrations also run
automatically every time the store is opened; --run simply opens the
store so any pending rewrites apply now.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		infos := sqlite.ListMigrations()
		if migrateRun {
			if err := openStore(); err != nil {
				return err
			}
		}
		if structured() {
			return emit(infos)
		}

		t := ui.NewStatusTable("Migration", "Description")
		for _, m := range infos {
			t.Row(m.Name, m.Description)
		}
		fmt.Println(t.Render())
		if migrateRun {
			fmt.Println(ui.TableSuccessStyle.Render("Store is up to date."))
		}
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateRun, "run", false, "Open the store, applying pending migrations")
	rootCmd.AddCommand(migrateCmd)
}
