package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/types"
	"github.com/fieldstone/gridcache/internal/ui"
)

var (
	ttlSeconds int64
	ttlPreset  string
	ttlNotes   string
	ttlFile    string
)

var ttlCmd = &cobra.Command{
	Use:   "ttl [table-id]",
	Short: "Show or set per-table cache TTL",
	Long: `Without flags, show the stored TTL configuration for a table.
With --seconds or --preset, store a new TTL. With --from-file, apply
every entry of a ttl.toml overrides file.

Presets: high_mutation (1h), medium (12h), low (168h), very_low (720h).

Examples:
  gridcache ttl 64f2a1b9c3
  gridcache ttl 64f2a1b9c3 --seconds 3600
  gridcache ttl 64f2a1b9c3 --preset low --notes "reference data"
  gridcache ttl --from-file ttl.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := openStore(); err != nil {
			return err
		}
		ctx := cmd.Context()

		if ttlFile != "" {
			if err := store.LoadTTLOverrides(ctx, ttlFile); err != nil {
				return err
			}
			if !structured() {
				fmt.Println(ui.TableSuccessStyle.Render("Applied TTL overrides from " + ttlFile))
			}
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("a table id is required unless --from-file is used")
		}
		tableID := args[0]

		seconds := ttlSeconds
		if seconds == 0 && ttlPreset != "" {
			d, ok := types.TTLPreset(ttlPreset)
			if !ok {
				return fmt.Errorf("unknown ttl preset %q", ttlPreset)
			}
			seconds = int64(d / time.Second)
		}

		if seconds > 0 {
			cfg := types.TTLConfig{
				TableID:       tableID,
				TTLSeconds:    seconds,
				MutationLevel: ttlPreset,
				Notes:         ttlNotes,
			}
			if err := store.SetTTL(ctx, cfg); err != nil {
				return err
			}
			if structured() {
				return emit(cfg)
			}
			fmt.Printf("TTL for %s set to %s\n", tableID, time.Duration(seconds)*time.Second)
			return nil
		}

		cfg, err := store.GetTTL(ctx, tableID)
		if err != nil {
			return err
		}
		if structured() {
			return emit(cfg)
		}
		if cfg == nil {
			fmt.Printf("%s uses the default TTL\n", tableID)
			return nil
		}
		fmt.Printf("TTL for %s: %s", tableID, time.Duration(cfg.TTLSeconds)*time.Second)
		if cfg.MutationLevel != "" {
			fmt.Printf(" (%s)", cfg.MutationLevel)
		}
		if cfg.Notes != "" {
			fmt.Printf("  %s", ui.TableHintStyle.Render(cfg.Notes))
		}
		fmt.Println()
		return nil
	},
}

func init() {
	ttlCmd.Flags().Int64Var(&ttlSeconds, "seconds", 0, "TTL in seconds")
	ttlCmd.Flags().StringVar(&ttlPreset, "preset", "", "TTL preset name")
	ttlCmd.Flags().StringVar(&ttlNotes, "notes", "", "Free-form note stored with the TTL")
	ttlCmd.Flags().StringVar(&ttlFile, "from-file", "", "Apply a ttl.toml overrides file")
	rootCmd.AddCommand(ttlCmd)
}
