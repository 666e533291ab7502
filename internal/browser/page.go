// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/feed-harvest/scrape/internal/dom"
)

// LivePage implements the page capability over a rendered Chrome tab. It also
// provides scrolling and detail-content fetching for the feed controller.
type LivePage struct {
	ctx context.Context // tab context, owns the rendered document
	url string
}

// Open navigates the tab to url and waits for the body to be ready.
func Open(tab *TabContext, url string, timeout time.Duration) (*LivePage, error) {
	navCtx, cancel := context.WithTimeout(tab.Ctx, timeout)
	defer cancel()

	start := time.Now()
	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}

	log.Debug().
		Str("url", url).
		Dur("elapsed_ms", time.Since(start)).
		Msg("Page ready")

	return &LivePage{ctx: tab.Ctx, url: url}, nil
}

func (p *LivePage) QueryOne(selector string) (dom.Node, error) {
	nodes, err := p.nodes(selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &liveNode{ctx: p.ctx, node: nodes[0]}, nil
}

func (p *LivePage) QueryAll(selector string) ([]dom.Node, error) {
	nodes, err := p.nodes(selector)
	if err != nil {
		return nil, err
	}
	out := make([]dom.Node, len(nodes))
	for i, n := range nodes {
		out[i] = &liveNode{ctx: p.ctx, node: n}
	}
	return out, nil
}

func (p *LivePage) Location() string {
	var current string
	if err := chromedp.Run(p.ctx, chromedp.Location(&current)); err == nil && current != "" {
		p.url = current
	}
	return p.url
}

func (p *LivePage) nodes(selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := chromedp.Run(p.ctx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return nodes, nil
}

// ScrollBy scrolls the viewport down by the given number of pixels.
func (p *LivePage) ScrollBy(ctx context.Context, pixels float64) error {
	return p.eval(ctx, fmt.Sprintf("window.scrollBy(0, %.0f)", pixels), nil)
}

// ScrollToBottom jumps to the bottom of the document.
func (p *LivePage) ScrollToBottom(ctx context.Context, aggressive bool) error {
	js := "window.scrollTo({top: document.documentElement.scrollHeight, behavior: 'smooth'})"
	if aggressive {
		js = "window.scrollTo(0, document.documentElement.scrollHeight)"
	}
	return p.eval(ctx, js, nil)
}

// Height reports the full document height.
func (p *LivePage) Height(ctx context.Context) (float64, error) {
	var h float64
	err := p.eval(ctx, "document.documentElement.scrollHeight", &h)
	return h, err
}

// Viewport reports the viewport height.
func (p *LivePage) Viewport(ctx context.Context) (float64, error) {
	var h float64
	err := p.eval(ctx, "window.innerHeight", &h)
	return h, err
}

// Position reports the current vertical scroll offset.
func (p *LivePage) Position(ctx context.Context) (float64, error) {
	var y float64
	err := p.eval(ctx, "window.scrollY", &y)
	return y, err
}

// FetchContent opens a fresh tab in the same browser, navigates to url, and
// returns the outer HTML of the first node matching selector. The feed page's
// own tab and scroll position are left untouched.
func (p *LivePage) FetchContent(ctx context.Context, url, selector string, timeout time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tabCtx, cancel := chromedp.NewContext(p.ctx)
	defer cancel()

	runCtx, runCancel := context.WithTimeout(tabCtx, timeout)
	defer runCancel()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.OuterHTML(selector, &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("fetch content from %s: %w", url, err)
	}
	return html, nil
}

func (p *LivePage) eval(ctx context.Context, js string, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if res == nil {
		return chromedp.Run(p.ctx, chromedp.Evaluate(js, nil))
	}
	return chromedp.Run(p.ctx, chromedp.Evaluate(js, res))
}

// liveNode wraps a CDP node as a dom.Node.
type liveNode struct {
	ctx  context.Context
	node *cdp.Node
}

func (n *liveNode) QueryOne(selector string) (dom.Node, error) {
	nodes, err := n.nodes(selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &liveNode{ctx: n.ctx, node: nodes[0]}, nil
}

func (n *liveNode) QueryAll(selector string) ([]dom.Node, error) {
	nodes, err := n.nodes(selector)
	if err != nil {
		return nil, err
	}
	out := make([]dom.Node, len(nodes))
	for i, c := range nodes {
		out[i] = &liveNode{ctx: n.ctx, node: c}
	}
	return out, nil
}

// Text returns the node's visible text, derived from its outer HTML so no
// extra JS runs in the page.
func (n *liveNode) Text() (string, error) {
	html, err := n.outerHTML()
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse node html: %w", err)
	}
	return strings.TrimSpace(doc.Text()), nil
}

func (n *liveNode) Attr(name string) (string, bool, error) {
	value, ok := n.node.Attribute(name)
	return value, ok, nil
}

func (n *liveNode) nodes(selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := chromedp.Run(n.ctx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.FromNode(n.node), chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %q under node: %w", selector, err)
	}
	return nodes, nil
}

func (n *liveNode) outerHTML() (string, error) {
	var html string
	err := chromedp.Run(n.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var aerr error
		html, aerr = cdpdom.GetOuterHTML().WithBackendNodeID(n.node.BackendNodeID).Do(ctx)
		return aerr
	}))
	if err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return html, nil
}
