// Package app provides the core application initialization and lifecycle management.
package app

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/feed-harvest/scrape/internal/browser"
	"github.com/feed-harvest/scrape/internal/cache"
	"github.com/feed-harvest/scrape/internal/config"
	"github.com/feed-harvest/scrape/internal/ratelimit"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once at startup and shared across all CLI commands.
// Use Close() to ensure proper resource cleanup on shutdown.
type Application struct {
	Config       *config.Config
	Logger       *zerolog.Logger
	ContentCache *cache.ContentCache
	BrowserPool  *browser.Pool
	poolMu       sync.Mutex
	RateLimiter  ratelimit.Limiter
	startTime    time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// Logging is configured first so every later step can report. The browser
// pool is created lazily via EnsureBrowserPool, so commands that never touch
// a live page never start Chrome.
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logLevel := zerolog.InfoLevel
	switch cfg.LogLevel {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = os.Stderr
	} else {
		logWriter = zerolog.NewConsoleWriter()
	}

	logger := log.Output(logWriter).With().Timestamp().Logger()
	log.Logger = logger

	logger.Debug().
		Str("level", cfg.LogLevel).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	contentCache := cache.NewContentCache(cfg.CacheMaxSizeBytes, cfg.CacheTTL)
	logger.Debug().
		Int64("max_size_bytes", cfg.CacheMaxSizeBytes).
		Dur("ttl", cfg.CacheTTL).
		Msg("Content cache initialized")

	rateLimiter := ratelimit.NewDomainLimiter(cfg.NavRateLimitRPS, cfg.NavRateLimitBurst)
	logger.Debug().
		Float64("rps", cfg.NavRateLimitRPS).
		Int("burst", cfg.NavRateLimitBurst).
		Msg("Rate limiter initialized")

	app := &Application{
		Config:       cfg,
		Logger:       &logger,
		ContentCache: contentCache,
		RateLimiter:  rateLimiter,
		startTime:    time.Now(),
	}

	logger.Debug().Msg("Application initialized")
	return app, nil
}

// EnsureBrowserPool lazily creates the browser pool if it has not already
// been initialized.
func (a *Application) EnsureBrowserPool() error {
	if a == nil {
		return fmt.Errorf("application is nil")
	}

	a.poolMu.Lock()
	defer a.poolMu.Unlock()

	if a.BrowserPool != nil {
		return nil
	}

	a.Logger.Debug().Msg("Initializing browser pool on demand")
	pool, err := browser.NewPool(browser.PoolOptions{
		Size:       a.Config.BrowserPoolSize,
		Headless:   a.Config.BrowserHeadless,
		UserAgent:  a.Config.UserAgent,
		Proxy:      a.Config.Proxy,
		ChromePath: a.Config.ChromePath,
	})
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to create browser pool on demand")
		return err
	}

	a.BrowserPool = pool
	a.Logger.Info().Int("pool_size", pool.Size()).Msg("Browser pool initialized")
	return nil
}

// Close gracefully shuts down the application and all its resources.
// Any errors during shutdown are logged but do not prevent other steps.
func (a *Application) Close() error {
	a.Logger.Debug().Msg("Shutting down")

	if a.BrowserPool != nil {
		if err := a.BrowserPool.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Error closing browser pool")
		}
	}

	if a.ContentCache != nil {
		a.ContentCache.Close()
	}

	a.Logger.Debug().Dur("uptime", time.Since(a.startTime)).Msg("Shutdown complete")
	return nil
}
