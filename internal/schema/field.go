// Package schema describes how structured values are derived from a DOM
// subtree. A schema is a tree of Fields; field names at one level become the
// keys of the extracted mapping.
package schema

import (
	"fmt"

	"github.com/feed-harvest/scrape/internal/dom"
)

// Kind selects a field's extraction strategy. It is fixed at construction so
// the engine can switch over it exhaustively instead of inspecting attribute
// combinations at runtime.
type Kind int

const (
	// KindLeaf extracts a single scalar string from one node.
	KindLeaf Kind = iota
	// KindList extracts an ordered sequence, one value per matching node.
	KindList
	// KindComposite extracts a nested mapping via child fields.
	KindComposite
	// KindCustom delegates extraction entirely to a callback.
	KindCustom
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindList:
		return "list"
	case KindComposite:
		return "composite"
	case KindCustom:
		return "custom"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Transform post-processes a raw extracted string. Returning ok=false drops
// the value: a leaf becomes absent, a list entry is omitted.
type Transform func(value string) (string, bool)

// ExtractFunc computes a field's value directly from the element, bypassing
// the generic rules. It is the designed escape hatch for site-specific logic
// the declarative attributes cannot express.
type ExtractFunc func(el dom.Node, f *Field) any

// Field describes how to derive one named value from a DOM subtree.
type Field struct {
	Kind Kind

	// Selector scopes the lookup under the current element. Empty means the
	// element itself (leaf/composite) or no matches (list).
	Selector string

	// Attribute, when non-empty, reads the named DOM attribute instead of
	// the node's text content. Leaf and list kinds only.
	Attribute string

	// Transform is applied after raw extraction. Leaf and list kinds only.
	Transform Transform

	// Children maps child field names to their schemas. Composite kind only.
	Children map[string]*Field

	// Custom is the full extraction override. Custom kind only.
	Custom ExtractFunc
}

// Text returns a leaf field reading the text content of the node matching
// selector (or the current element when selector is empty).
func Text(selector string) *Field {
	return &Field{Kind: KindLeaf, Selector: selector}
}

// Attr returns a leaf field reading the named attribute.
func Attr(selector, attribute string) *Field {
	return &Field{Kind: KindLeaf, Selector: selector, Attribute: attribute}
}

// List returns a field extracting the text of every node matching selector.
func List(selector string) *Field {
	return &Field{Kind: KindList, Selector: selector}
}

// ListAttr returns a field extracting the named attribute of every node
// matching selector.
func ListAttr(selector, attribute string) *Field {
	return &Field{Kind: KindList, Selector: selector, Attribute: attribute}
}

// Object returns a composite field extracting children from the node matching
// selector (or the current element when selector is empty).
func Object(selector string, children map[string]*Field) *Field {
	return &Field{Kind: KindComposite, Selector: selector, Children: children}
}

// Custom returns a field whose value is computed entirely by fn.
func Custom(fn ExtractFunc) *Field {
	return &Field{Kind: KindCustom, Custom: fn}
}

// WithTransform attaches a transform and returns the field for chaining.
func (f *Field) WithTransform(t Transform) *Field {
	f.Transform = t
	return f
}

// Validate checks that the field tree is internally consistent: each node's
// attributes match its kind, and composites have at least one child. Child
// name uniqueness per level is guaranteed by the map representation.
func (f *Field) Validate() error {
	return f.validate("")
}

func (f *Field) validate(path string) error {
	switch f.Kind {
	case KindCustom:
		if f.Custom == nil {
			return fmt.Errorf("field %q: custom kind without callback", path)
		}
	case KindComposite:
		if len(f.Children) == 0 {
			return fmt.Errorf("field %q: composite kind without children", path)
		}
		if f.Attribute != "" {
			return fmt.Errorf("field %q: composite kind cannot read an attribute", path)
		}
		for name, child := range f.Children {
			if child == nil {
				return fmt.Errorf("field %q: nil child %q", path, name)
			}
			if err := child.validate(joinKey(path, name)); err != nil {
				return err
			}
		}
	case KindList:
		if f.Selector == "" {
			return fmt.Errorf("field %q: list kind requires a selector", path)
		}
		if len(f.Children) > 0 {
			return fmt.Errorf("field %q: list kind cannot have children", path)
		}
	case KindLeaf:
		if len(f.Children) > 0 {
			return fmt.Errorf("field %q: leaf kind cannot have children", path)
		}
	default:
		return fmt.Errorf("field %q: unknown kind %d", path, int(f.Kind))
	}
	return nil
}

func joinKey(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
