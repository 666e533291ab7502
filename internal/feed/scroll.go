// internal/feed/scroll.go
package feed

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// Scroller drives the page's viewport. Supplied by the browser layer; a nil
// scroller turns the session into a pure poll loop.
type Scroller interface {
	// ScrollBy scrolls the viewport down by the given number of pixels
	// (negative scrolls up).
	ScrollBy(ctx context.Context, pixels float64) error

	// ScrollToBottom jumps to the bottom of the document. Aggressive mode
	// skips easing and goes in one jump.
	ScrollToBottom(ctx context.Context, aggressive bool) error

	// Height reports the full document height in pixels.
	Height(ctx context.Context) (float64, error)

	// Viewport reports the viewport height in pixels.
	Viewport(ctx context.Context) (float64, error)

	// Position reports the current vertical scroll offset.
	Position(ctx context.Context) (float64, error)
}

// Pattern selects a scrolling rhythm.
type Pattern string

const (
	PatternNormal Pattern = "normal"
	PatternFast   Pattern = "fast"
	PatternSlow   Pattern = "slow"
	PatternBounce Pattern = "bounce"
)

// bottomThreshold is how close to the document end counts as "at bottom".
const bottomThreshold = 200.0

// scrollMultiplier scales the scroll distance. When consecutive cycles keep
// showing only already-seen items, the distance grows to traverse them
// faster, capped at 5x.
func scrollMultiplier(allSeen bool, allSeenStreak int) float64 {
	if !allSeen {
		return 1.0
	}
	m := 1.5 + float64(allSeenStreak)*0.5
	if m > 5.0 {
		m = 5.0
	}
	return m
}

// humanScroll advances the viewport in uneven segments with short pauses, the
// way a reader would.
func humanScroll(ctx context.Context, sc Scroller, pattern Pattern, multiplier float64) error {
	viewport, err := sc.Viewport(ctx)
	if err != nil {
		return err
	}

	var segments int
	var pause time.Duration
	switch pattern {
	case PatternFast:
		segments, pause = 2, 50*time.Millisecond
	case PatternSlow:
		segments, pause = 5, 250*time.Millisecond
	case PatternBounce:
		// Small upward nudge first, which often retriggers lazy loaders.
		if err := sc.ScrollBy(ctx, -viewport/4); err != nil {
			return err
		}
		if !sleep(ctx, 150*time.Millisecond) {
			return ctx.Err()
		}
		segments, pause = 3, 120*time.Millisecond
	default:
		segments, pause = 3, 120*time.Millisecond
	}

	total := viewport * 0.9 * multiplier
	for i := 0; i < segments; i++ {
		step := total / float64(segments)
		step *= 0.8 + rand.Float64()*0.4
		if err := sc.ScrollBy(ctx, step); err != nil {
			return err
		}
		if !sleep(ctx, jitter(pause, 0.5)) {
			return ctx.Err()
		}
	}
	return nil
}

// turboScroll traverses seen content as fast as the page allows.
func turboScroll(ctx context.Context, sc Scroller) error {
	log.Warn().Msg("Turbo scrolling to reach unseen content faster")
	if err := sc.ScrollToBottom(ctx, true); err != nil {
		return err
	}
	if !sleep(ctx, 100*time.Millisecond) {
		return ctx.Err()
	}
	if err := sc.ScrollToBottom(ctx, true); err != nil {
		return err
	}
	if !sleep(ctx, 200*time.Millisecond) {
		return ctx.Err()
	}
	return nil
}

// atBottom reports whether the viewport has reached the end of the document.
func atBottom(ctx context.Context, sc Scroller) (bool, error) {
	pos, err := sc.Position(ctx)
	if err != nil {
		return false, err
	}
	height, err := sc.Height(ctx)
	if err != nil {
		return false, err
	}
	viewport, err := sc.Viewport(ctx)
	if err != nil {
		return false, err
	}
	return height-(pos+viewport) < bottomThreshold, nil
}

// jitter applies ±factor random variation to d.
func jitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * factor
	return time.Duration(float64(d) * (1 + delta))
}

// sleep is replaceable so tests can run sessions without real cooldowns.
var sleep = sleepCtx

// sleepCtx waits for d or until the context is cancelled. Returns false on
// cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
