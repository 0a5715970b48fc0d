// Package config assembles the client runtime configuration from defaults,
// .env files and environment variables, with CLI flags bound through viper
// taking final precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"shopfront/internal/logger"
)

// Config is the resolved runtime configuration.
type Config struct {
	// StoreBaseURL is the store-scoped REST API base URL.
	StoreBaseURL string
	// PlatformBaseURL is the platform REST API base URL.
	PlatformBaseURL string
	// StateDir holds the persisted client state (session, cart, favorites).
	StateDir string
	// RequestTimeout bounds each transport call.
	RequestTimeout time.Duration
	// CacheTTL is the staleness window for cached query results.
	CacheTTL time.Duration
	// ThemeFile points at the opaque display settings YAML, empty for none.
	ThemeFile string
}

// DefaultStateDir returns the per-user state directory, falling back to a
// relative directory when the platform config dir cannot be resolved.
func DefaultStateDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".shopfront"
	}
	return filepath.Join(base, "shopfront")
}

// Load resolves the configuration. Precedence, lowest to highest: built-in
// defaults, the config-dir .env, the working-dir .env, SHOPFRONT_* environment
// variables, and whatever the caller already bound into v (CLI flags).
func Load(v *viper.Viper) (*Config, error) {
	loadEnvFiles(envFilePaths()...)

	v.SetDefault("store_base_url", "http://localhost:8080/api")
	v.SetDefault("platform_base_url", "http://localhost:8081/api")
	v.SetDefault("state_dir", DefaultStateDir())
	v.SetDefault("request_timeout", "30s")
	v.SetDefault("cache_ttl", "5m")
	v.SetDefault("theme_file", "")

	v.SetEnvPrefix("SHOPFRONT")
	v.AutomaticEnv()

	cfg := &Config{
		StoreBaseURL:    v.GetString("store_base_url"),
		PlatformBaseURL: v.GetString("platform_base_url"),
		StateDir:        v.GetString("state_dir"),
		RequestTimeout:  v.GetDuration("request_timeout"),
		CacheTTL:        v.GetDuration("cache_ttl"),
		ThemeFile:       v.GetString("theme_file"),
	}

	if cfg.StoreBaseURL == "" {
		return nil, fmt.Errorf("store_base_url must not be empty")
	}
	if cfg.PlatformBaseURL == "" {
		return nil, fmt.Errorf("platform_base_url must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be positive, got %s", cfg.RequestTimeout)
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("cache_ttl must not be negative, got %s", cfg.CacheTTL)
	}

	return cfg, nil
}

// envFilePaths lists the .env files to consider: the working directory first
// (it wins), then the per-user config directory.
func envFilePaths() []string {
	paths := []string{".env"}
	if base, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(base, "shopfront", ".env"))
	}
	return paths
}

// loadEnvFiles loads each existing .env file into the process environment.
// godotenv never overrides variables that are already set, so earlier paths
// take precedence over later ones.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			logger.Warn("Failed to load .env file", "path", path, "error", err)
			continue
		}
		logger.Debug("Loaded .env file", "path", path)
	}
}

// LoadThemeSettings reads the opaque display settings from a YAML file. The
// schema belongs to the UI layer; the client only transports the values. An
// empty path or missing file yields an empty map.
func LoadThemeSettings(path string) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read theme file %s: %w", path, err)
	}

	settings := make(map[string]any)
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse theme file %s: %w", path, err)
	}
	return settings, nil
}
