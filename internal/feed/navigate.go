// internal/feed/navigate.go
package feed

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/feed-harvest/scrape/internal/cache"
	"github.com/feed-harvest/scrape/internal/ratelimit"
	"github.com/feed-harvest/scrape/internal/retry"
)

// ContentFetcher retrieves the HTML of a content region on a detail page.
// Supplied by the browser layer.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url, selector string, timeout time.Duration) (string, error)
}

// Navigator fetches detail-page content for newly collected records. Fetches
// are rate limited per domain, retried on transient failure, and memoized so
// a record revisited across sessions never costs a second navigation.
type Navigator struct {
	fetcher ContentFetcher
	limiter ratelimit.Limiter
	store   *cache.ContentCache
	retry   retry.Config
	opts    NavigateOptions
}

// NewNavigator wires a navigator. limiter and store may be nil to disable
// rate limiting or memoization.
func NewNavigator(f ContentFetcher, limiter ratelimit.Limiter, store *cache.ContentCache, opts *NavigateOptions) *Navigator {
	if opts == nil {
		opts = DefaultNavigateOptions()
	}
	return &Navigator{
		fetcher: f,
		limiter: limiter,
		store:   store,
		retry:   retry.DefaultConfig(),
		opts:    *opts,
	}
}

// Content returns the markdown content for url. timedOut reports whether the
// failure (or final attempt) was a timeout, which the caller feeds into its
// backoff counter.
func (n *Navigator) Content(ctx context.Context, url string) (content string, timedOut bool, err error) {
	if n.store != nil {
		if cached, ok := n.store.Get(url); ok {
			log.Debug().Str("url", url).Msg("Detail content served from cache")
			return cached, false, nil
		}
	}

	if n.limiter != nil {
		if err := n.limiter.Wait(ctx, url); err != nil {
			return "", false, err
		}
	}

	var html string
	err = retry.Do(ctx, n.retry, func() error {
		var ferr error
		html, ferr = n.fetcher.FetchContent(ctx, url, n.opts.ContentSelector, n.opts.ContentTimeout)
		return ferr
	})
	if err != nil {
		return "", isTimeout(err), err
	}

	content = ToMarkdown(html)
	if n.store != nil {
		n.store.Set(url, content)
	}

	// Human-paced gap before the next navigation.
	sleep(ctx, n.delay())
	return content, false, nil
}

func (n *Navigator) delay() time.Duration {
	if n.opts.MaxDelay <= n.opts.MinDelay {
		return n.opts.MinDelay
	}
	spread := n.opts.MaxDelay - n.opts.MinDelay
	return n.opts.MinDelay + time.Duration(rand.Int63n(int64(spread)))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}
