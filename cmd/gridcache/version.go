package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		commit := resolveCommit()
		if structured() {
			result := map[string]string{
				"version": Version,
				"build":   Build,
			}
			if commit != "" {
				result["commit"] = commit
			}
			return emit(result)
		}
		if commit != "" {
			fmt.Printf("gridcache version %s (%s: %s)\n", Version, Build, commit)
		} else {
			fmt.Printf("gridcache version %s (%s)\n", Version, Build)
		}
		return nil
	},
}

// resolveCommit reads the vcs revision baked in by the toolchain.
func resolveCommit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 8 {
			return s.Value[:8]
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
