package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldstone/gridcache/internal/config"
	"github.com/fieldstone/gridcache/internal/logging"
	"github.com/fieldstone/gridcache/internal/storage/sqlite"
)

var (
	// Version is overridden by ldflags at build time
	Version = "0.4.0"
	Build   = "dev"
)

var (
	storeFlag   string
	formatFlag  string
	verboseFlag bool
	store       *sqlite.Engine
)

var rootCmd = &cobra.Command{
	Use:   "gridcache",
	Short: "Local record cache for remote workspace tables",
	Long: `gridcache mirrors a remote workspace's records into a local SQLite
store. Tables get a typed local schema synthesized from the remote
field catalog; reads, filters and sorts are served locally and expire
on a per-table TTL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.Initialize()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
			store = nil
		}
	},
}

// openStore opens the engine once per invocation, for commands that
// touch the store. Flag > GRIDCACHE_STORE env > config file > default.
func openStore() error {
	if store != nil {
		return nil
	}
	path := storeFlag
	if path == "" {
		path = config.StorePath()
	}
	if err := os.MkdirAll(dirOf(path), 0o700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	log := logging.New(logging.Options{
		Level: logLevel(),
		File:  config.GetString("log.file"),
	})
	eng, err := sqlite.New(path,
		sqlite.WithDefaultTTL(config.DefaultTTL()),
		sqlite.WithLogger(log),
	)
	if err != nil {
		return err
	}
	store = eng

	if overrides := config.GetString("ttl-overrides"); overrides != "" {
		if err := store.LoadTTLOverrides(rootCmd.Context(), overrides); err != nil {
			log.Warn("failed to load ttl overrides", "path", overrides, "error", err)
		}
	}
	return nil
}

func logLevel() string {
	if verboseFlag {
		return "debug"
	}
	return config.GetString("log.level")
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if os.IsPathSeparator(path[i]) {
			if i == 0 {
				return string(path[0])
			}
			return path[:i]
		}
	}
	return "."
}

func main() {
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "Path to the cache store file")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "", "Output format: json or yaml (default human-readable)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
