// Package config holds the viper-backed configuration singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton.
// Should be called once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate config.yaml with SetConfigFile.
	// Precedence: project .gridcache/config.yaml > ~/.config/gridcache/config.yaml > ~/.gridcache/config.yaml
	configFileSet := false

	// 1. Walk up from CWD so commands work from subdirectories.
	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".gridcache", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory.
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "gridcache", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory.
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".gridcache", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file.
	// E.g. GRIDCACHE_STORE, GRIDCACHE_TEST_MODE, GRIDCACHE_LOG_LEVEL.
	v.SetEnvPrefix("GRIDCACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store", "")
	v.SetDefault("default-ttl", "12h")
	v.SetDefault("display-timezone", "")
	v.SetDefault("test-mode", false)
	v.SetDefault("strict-filters", false)
	v.SetDefault("ttl-overrides", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.color", true)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Watch reloads the config file on change and invokes onChange after
// each reload. No-op when no config file was found.
func Watch(onChange func()) {
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(fsnotify.Event) {
		if onChange != nil {
			onChange()
		}
	})
	v.WatchConfig()
}

// StorePath resolves the backing store file. Test mode routes to a
// per-process temp path so test runs never touch the real cache.
func StorePath() string {
	if TestMode() {
		return filepath.Join(os.TempDir(), fmt.Sprintf("gridcache-test-%d", os.Getpid()), "cache.db")
	}
	if path := GetString("store"); path != "" {
		return path
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".gridcache", "cache.db")
	}
	return "cache.db"
}

// TestMode reports whether test-mode path routing is active.
func TestMode() bool {
	return GetBool("test-mode")
}

// DefaultTTL returns the configured default cache TTL.
func DefaultTTL() time.Duration {
	d := GetDuration("default-ttl")
	if d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// DisplayTimezone returns the timezone spec used to render stored UTC
// timestamps ("" keeps UTC; "local", an IANA name, or a fixed offset).
// GRIDCACHE_TIMEZONE is honored as a shorthand for the full key.
func DisplayTimezone() string {
	if tz := GetString("display-timezone"); tz != "" {
		return tz
	}
	return os.Getenv("GRIDCACHE_TIMEZONE")
}

// StrictFilters reports whether invalid operator/field combinations
// fail queries instead of being skipped.
func StrictFilters() bool {
	return GetBool("strict-filters")
}

// GetString retrieves a string configuration value.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool {
	if v == nil {
		return false
	}
	return v.GetBool(key)
}

// GetInt retrieves an integer configuration value.
func GetInt(key string) int {
	if v == nil {
		return 0
	}
	return v.GetInt(key)
}

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration {
	if v == nil {
		return 0
	}
	return v.GetDuration(key)
}

// Set sets a configuration value.
func Set(key string, value interface{}) {
	if v != nil {
		v.Set(key, value)
	}
}

// AllSettings returns all configuration settings as a map.
func AllSettings() map[string]interface{} {
	if v == nil {
		return map[string]interface{}{}
	}
	return v.AllSettings()
}
