package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/ui"
)

var findSolutionID string

var findCmd = &cobra.Command{
	Use:   "find <solutions|tables|members> <query>",
	Short: "Fuzzy-search cached metadata by name",
	Long: `Search cached solutions, tables or members. Matching is
case-insensitive, accent-insensitive and tolerates small typos.

Examples:
  gridcache find solutions projets
  gridcache find tables "sales pipline" --solution 6421a9
  gridcache find members garcia`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(); err != nil {
			return err
		}
		ctx := cmd.Context()
		kind, query := args[0], args[1]

		switch kind {
		case "solutions":
			matches, err := store.FindSolutions(ctx, query)
			if err != nil {
				return err
			}
			if structured() {
				return emit(matches)
			}
			t := ui.NewStatusTable("ID", "Name")
			for _, s := range matches {
				t.Row(s.ID, s.Name)
			}
			fmt.Println(t.Render())

		case "tables":
			matches, err := store.FindTables(ctx, query, findSolutionID)
			if err != nil {
				return err
			}
			if structured() {
				return emit(matches)
			}
			t := ui.NewStatusTable("ID", "Name", "Solution")
			for _, tbl := range matches {
				t.Row(tbl.ID, tbl.Name, tbl.SolutionID)
			}
			fmt.Println(t.Render())

		case "members":
			matches, err := store.Members(ctx, query)
			if err != nil {
				return err
			}
			if structured() {
				return emit(matches)
			}
			t := ui.NewStatusTable("ID", "Name", "Email", "Status")
			for _, m := range matches {
				t.Row(m.ID, m.FullName, m.Email, m.Status)
			}
			fmt.Println(t.Render())

		default:
			return fmt.Errorf("unknown search kind %q (want solutions, tables or members)", kind)
		}
		return nil
	},
}

func init() {
	findCmd.Flags().StringVar(&findSolutionID, "solution", "", "Limit table search to one solution")
	rootCmd.AddCommand(findCmd)
}
