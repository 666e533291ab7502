package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string
	JSONLog  bool

	// Browser
	NavTimeout      time.Duration
	UserAgent       string
	Proxy           string
	BrowserPoolSize int
	BrowserHeadless bool
	ChromePath      string

	// Detail-navigation rate limiting
	NavRateLimitRPS   float64
	NavRateLimitBurst int

	// Content caching
	CacheTTL          time.Duration
	CacheMaxSizeBytes int64

	// Session defaults
	MaxStallCycles int
	MaxCycles      int
}

// Load builds a Config by combining defaults, environment variables, and CLI
// flags. Caller should pass the root *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		NavTimeout:        DefaultNavTimeout,
		UserAgent:         DefaultUserAgent,
		BrowserPoolSize:   DefaultBrowserPoolSize,
		BrowserHeadless:   DefaultBrowserHeadless,
		NavRateLimitRPS:   DefaultNavRateLimitRPS,
		NavRateLimitBurst: DefaultNavRateLimitBurst,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxSizeBytes: DefaultCacheMaxSizeBytes,
		MaxStallCycles:    DefaultMaxStallCycles,
		MaxCycles:         DefaultMaxCycles,
	}

	// Override from environment variables (simple helpers)
	if v := os.Getenv("FEEDSCRAPE_USER_AGENT"); v != "" {
		cfg.UserAgent = v
	}
	if v := os.Getenv("FEEDSCRAPE_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("FEEDSCRAPE_CHROME_PATH"); v != "" {
		cfg.ChromePath = v
	}
	if v := os.Getenv("FEEDSCRAPE_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BrowserPoolSize = n
		}
	}

	// Read CLI flags if provided
	if cmd != nil {
		if f := cmd.PersistentFlags().Lookup("user-agent"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.UserAgent = s
			}
		}
		if f := cmd.PersistentFlags().Lookup("proxy"); f != nil {
			if s := f.Value.String(); s != "" {
				cfg.Proxy = s
			}
		}
		if f := cmd.PersistentFlags().Lookup("timeout"); f != nil {
			if s := f.Value.String(); s != "" {
				if d, err := time.ParseDuration(s); err == nil {
					cfg.NavTimeout = d
				}
			}
		}
		if f := cmd.PersistentFlags().Lookup("headful"); f != nil {
			if f.Value.String() == "true" {
				cfg.BrowserHeadless = false
			}
		}
		if f := cmd.PersistentFlags().Lookup("json"); f != nil {
			if f.Value.String() == "true" {
				cfg.JSONLog = true
			}
		}
		if f := cmd.PersistentFlags().Lookup("verbose"); f != nil {
			if f.Value.String() == "true" {
				cfg.LogLevel = "debug"
			}
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}
