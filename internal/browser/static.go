// internal/browser/static.go
package browser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/feed-harvest/scrape/internal/dom"
)

// StaticPage implements dom.Page over a parsed HTML snapshot. It backs
// extraction from saved documents and serves as the in-memory DOM for tests.
type StaticPage struct {
	doc *goquery.Document
	url string
}

// ParseSnapshot parses an HTML document into a StaticPage. The url becomes
// the page's reported location.
func ParseSnapshot(src, url string) (*StaticPage, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return &StaticPage{doc: goquery.NewDocumentFromNode(root), url: url}, nil
}

func (p *StaticPage) QueryOne(selector string) (dom.Node, error) {
	sel, err := find(p.doc.Selection, selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, nil
	}
	return &staticNode{sel: sel.First()}, nil
}

func (p *StaticPage) QueryAll(selector string) ([]dom.Node, error) {
	sel, err := find(p.doc.Selection, selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]dom.Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &staticNode{sel: s})
	})
	return nodes, nil
}

func (p *StaticPage) Location() string {
	return p.url
}

// OuterHTML re-serializes the first node matching selector. Used when a
// snapshot region is handed to the markdown converter.
func (p *StaticPage) OuterHTML(selector string) (string, error) {
	sel, err := find(p.doc.Selection, selector)
	if err != nil {
		return "", err
	}
	if sel.Length() == 0 {
		return "", fmt.Errorf("no node matches %q", selector)
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, sel.Nodes[0]); err != nil {
		return "", fmt.Errorf("render node: %w", err)
	}
	return buf.String(), nil
}

// staticNode wraps a single goquery selection as a dom.Node.
type staticNode struct {
	sel *goquery.Selection
}

func (n *staticNode) QueryOne(selector string) (dom.Node, error) {
	sel, err := find(n.sel, selector)
	if err != nil {
		return nil, err
	}
	if sel.Length() == 0 {
		return nil, nil
	}
	return &staticNode{sel: sel.First()}, nil
}

func (n *staticNode) QueryAll(selector string) ([]dom.Node, error) {
	sel, err := find(n.sel, selector)
	if err != nil {
		return nil, err
	}
	nodes := make([]dom.Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, &staticNode{sel: s})
	})
	return nodes, nil
}

func (n *staticNode) Text() (string, error) {
	return strings.TrimSpace(n.sel.Text()), nil
}

func (n *staticNode) Attr(name string) (string, bool, error) {
	val, ok := n.sel.Attr(name)
	return val, ok, nil
}

// find runs a goquery lookup, converting cascadia's panic on a malformed
// selector into an error so lookups stay total.
func find(root *goquery.Selection, selector string) (sel *goquery.Selection, err error) {
	defer func() {
		if r := recover(); r != nil {
			sel = nil
			err = fmt.Errorf("invalid selector %q: %v", selector, r)
		}
	}()
	return root.Find(selector), nil
}
