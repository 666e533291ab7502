// Package dom defines the minimal page/element capability surface the
// extraction core consumes, plus safe lookup helpers over it.
//
// Both live (chromedp-backed) and static (goquery-backed) pages implement
// these interfaces, so the field-extraction engine and the scroll controller
// compile against an abstraction and can be tested against an in-memory DOM.
package dom

// Queryable is anything that can be searched by CSS selector.
type Queryable interface {
	// QueryOne returns the first node matching the selector, or nil if no
	// node matches. A non-nil error indicates the underlying DOM layer
	// failed to run the query at all.
	QueryOne(selector string) (Node, error)

	// QueryAll returns all nodes matching the selector in document order.
	// No matches is an empty slice, not an error.
	QueryAll(selector string) ([]Node, error)
}

// Node is a single DOM element.
type Node interface {
	Queryable

	// Text returns the node's visible text content.
	Text() (string, error)

	// Attr returns the named attribute's value. The boolean reports whether
	// the attribute is present on the node.
	Attr(name string) (string, bool, error)
}

// Page is a rendered document. Nested lookups happen through the Queryable
// methods; Location reports the page's current URL.
type Page interface {
	Queryable

	Location() string
}
