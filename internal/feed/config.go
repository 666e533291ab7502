// internal/feed/config.go
package feed

import (
	"fmt"
	"time"

	"github.com/feed-harvest/scrape/internal/extract"
	"github.com/feed-harvest/scrape/internal/schema"
)

// ScrollConfig tunes the pacing of scroll cycles.
type ScrollConfig struct {
	// MinDelay and MaxDelay bound the randomized pause between scrolls.
	MinDelay time.Duration
	MaxDelay time.Duration

	// JitterFactor is the random variation applied to delays (0.3 = ±30%).
	JitterFactor float64

	// MaxStallCycles is how many consecutive cycles without new records are
	// tolerated before the session ends with ReasonNoNewContent.
	MaxStallCycles int

	// MaxSameHeight is how many cycles with an unchanged page height are
	// tolerated before aggressive scroll recovery kicks in.
	MaxSameHeight int
}

// DefaultScrollConfig mirrors the pacing a human reader produces.
func DefaultScrollConfig() ScrollConfig {
	return ScrollConfig{
		MinDelay:       500 * time.Millisecond,
		MaxDelay:       2 * time.Second,
		JitterFactor:   0.3,
		MaxStallCycles: 3,
		MaxSameHeight:  3,
	}
}

// Config describes one scraping session against one feed page.
type Config struct {
	// ContainerSelector locates the repeating item containers.
	ContainerSelector string

	// Fields maps record field names to their extraction schemas.
	Fields map[string]*schema.Field

	// KeyField names the record field used as stable per-record identity
	// for deduplication. Records missing it are skipped. Default "url".
	KeyField string

	// MaxItems stops the session after collecting this many records.
	// Zero means unbounded.
	MaxItems int

	// MaxCycles caps total collect cycles. Zero means unbounded.
	MaxCycles int

	// BackoffCeiling ends the session once the computed cooldown would
	// exceed it. Zero disables the ceiling.
	BackoffCeiling time.Duration

	// EndMarkerSelector, when it matches anything on the page, signals the
	// true end of the feed.
	EndMarkerSelector string

	// ContinueOnSeen keeps scrolling past already-seen records instead of
	// stopping at the first one.
	ContinueOnSeen bool

	// SeenKeys preloads identities observed in earlier sessions, supplied
	// by the caller's storage layer.
	SeenKeys []string

	// StopAfter ends the session once a record dated before it appears.
	// Requires DateField.
	StopAfter time.Time

	// DateField names the record field carrying an RFC 3339 timestamp,
	// consulted for the StopAfter cutoff. Default "created_at".
	DateField string

	// Navigate, when non-nil, enables per-item detail-content fetching.
	Navigate *NavigateOptions

	// OnItem, when non-nil, is called for each newly collected record.
	OnItem func(extract.Record)

	Scroll ScrollConfig
}

// NavigateOptions configures detail-page content fetching for new records.
type NavigateOptions struct {
	// ContentSelector locates the content element on the detail page.
	ContentSelector string

	// ContentTimeout bounds how long to wait for the content selector.
	ContentTimeout time.Duration

	// MinDelay and MaxDelay bound the pause between detail navigations.
	MinDelay time.Duration
	MaxDelay time.Duration
}

// DefaultNavigateOptions returns the detail-fetch defaults.
func DefaultNavigateOptions() *NavigateOptions {
	return &NavigateOptions{
		ContentSelector: "article",
		ContentTimeout:  3 * time.Second,
		MinDelay:        time.Second,
		MaxDelay:        3 * time.Second,
	}
}

func (c *Config) validate() error {
	if c.ContainerSelector == "" {
		return fmt.Errorf("container selector is required")
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("at least one field schema is required")
	}
	for name, f := range c.Fields {
		if f == nil {
			return fmt.Errorf("field %q is nil", name)
		}
		if err := f.Validate(); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	if c.Scroll.MaxStallCycles <= 0 {
		return fmt.Errorf("max stall cycles must be > 0")
	}
	return nil
}

// applyDefaults fills zero-valued knobs.
func (c *Config) applyDefaults() {
	if c.KeyField == "" {
		c.KeyField = "url"
	}
	if c.DateField == "" {
		c.DateField = "created_at"
	}
	if c.Scroll == (ScrollConfig{}) {
		c.Scroll = DefaultScrollConfig()
	}
}
