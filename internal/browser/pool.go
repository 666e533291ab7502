// internal/browser/pool.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Pool manages reusable Chrome tab contexts so sessions and detail fetches
// skip the ~1.5s browser startup each time.
type Pool struct {
	size        int
	contexts    chan *TabContext
	allocCtx    context.Context
	allocCancel context.CancelFunc
	mu          sync.Mutex
	closed      bool
}

// TabContext wraps a chromedp context with its cancel function
type TabContext struct {
	Ctx    context.Context
	Cancel context.CancelFunc
}

// PoolOptions configures the browser pool
type PoolOptions struct {
	Size       int
	Headless   bool
	UserAgent  string
	Proxy      string
	ChromePath string
}

// NewPool creates a pool of pre-warmed browser tab contexts
func NewPool(opts PoolOptions) (*Pool, error) {
	if opts.Size <= 0 {
		opts.Size = 2
	}
	if opts.Size > 8 {
		opts.Size = 8 // avoid resource exhaustion
	}

	log.Debug().Int("size", opts.Size).Msg("Creating browser pool")

	chromePath := opts.ChromePath
	if chromePath == "" {
		chromePath = FindChrome()
	}

	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1920,1080"),
	}

	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if chromePath != "" {
		allocOpts = append([]chromedp.ExecAllocatorOption{chromedp.ExecPath(chromePath)}, allocOpts...)
	}
	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	pool := &Pool{
		size:        opts.Size,
		contexts:    make(chan *TabContext, opts.Size),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
	}

	for i := 0; i < opts.Size; i++ {
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)

		// Warm up the context by loading a blank page
		if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
			tabCancel()
			pool.Close()
			return nil, fmt.Errorf("failed to warm up browser context %d: %w", i, err)
		}

		pool.contexts <- &TabContext{Ctx: tabCtx, Cancel: tabCancel}
		log.Debug().Int("context_id", i).Msg("Browser context initialized")
	}

	log.Info().Int("pool_size", opts.Size).Msg("Browser pool ready")
	return pool, nil
}

// Acquire gets a tab context from the pool, blocking up to timeout when all
// are in use. Zero timeout blocks indefinitely.
func (p *Pool) Acquire(timeout time.Duration) (*TabContext, error) {
	if timeout > 0 {
		select {
		case ctx := <-p.contexts:
			return p.checkAcquired(ctx)
		case <-time.After(timeout):
			return nil, fmt.Errorf("timeout waiting for available browser context")
		}
	}

	return p.checkAcquired(<-p.contexts)
}

func (p *Pool) checkAcquired(ctx *TabContext) (*TabContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		ctx.Cancel()
		return nil, fmt.Errorf("browser pool is closed")
	}
	log.Debug().Msg("Browser context acquired from pool")
	return ctx, nil
}

// Release returns a tab context to the pool
func (p *Pool) Release(ctx *TabContext) {
	p.mu.Lock()
	if p.closed {
		ctx.Cancel()
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	// Navigate to a blank page so state never carries over between uses
	chromedp.Run(ctx.Ctx, chromedp.ActionFunc(func(c context.Context) error {
		chromedp.Navigate("about:blank").Do(c)
		return nil
	}))

	select {
	case p.contexts <- ctx:
		log.Debug().Msg("Browser context released to pool")
	default:
		ctx.Cancel()
		log.Warn().Msg("Browser pool full, discarding context")
	}
}

// Close shuts down all tab contexts and the allocator
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	close(p.contexts)
	for ctx := range p.contexts {
		ctx.Cancel()
	}
	p.allocCancel()

	log.Info().Msg("Browser pool closed")
	return nil
}

// Size returns the pool size
func (p *Pool) Size() int {
	return p.size
}

// Available returns the number of idle contexts in the pool
func (p *Pool) Available() int {
	return len(p.contexts)
}
