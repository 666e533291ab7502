package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel           = "info"
	DefaultJSONLog            = false
	DefaultUserAgent          = "FeedScrape/1.0 (https://github.com/feed-harvest/scrape)"
	DefaultNavTimeout         = 30 * time.Second
	DefaultNavRateLimitRPS    = 1.0
	DefaultNavRateLimitBurst  = 3
	DefaultBrowserPoolSize    = 2
	DefaultMaxBrowserPoolSize = 8
	DefaultBrowserHeadless    = true
	DefaultCacheTTL           = 30 * time.Minute
	DefaultCacheMaxSizeBytes  = 50 * 1024 * 1024 // 50MB
	DefaultMaxStallCycles     = 3
	DefaultMaxCycles          = 200
)
