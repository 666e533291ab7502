// Package extract interprets a field schema against a located DOM subtree,
// producing nested structured output. Missing nodes degrade to absent or
// empty values with a diagnostic; nothing in this package fails hard, because
// one missing optional field must not abort extraction of the rest of the
// document.
package extract

import (
	"github.com/rs/zerolog/log"

	"github.com/feed-harvest/scrape/internal/dom"
	"github.com/feed-harvest/scrape/internal/schema"
)

// Extract derives a value from el according to f. The result shape mirrors
// the field kind: nil for a missing leaf, string for a scalar, []string for a
// list, map[string]any for a composite, and whatever the callback returns for
// a custom field. parentKey is carried purely for diagnostic traceability.
func Extract(el dom.Node, f *schema.Field, parentKey string) any {
	switch f.Kind {
	case schema.KindCustom:
		return f.Custom(el, f)

	case schema.KindComposite:
		container := resolve(el, f.Selector)
		if container == nil {
			log.Debug().
				Str("parent_key", parentKey).
				Str("selector", f.Selector).
				Msg("No container found for composite field")
			return map[string]any{}
		}
		result := make(map[string]any, len(f.Children))
		for name, child := range f.Children {
			result[name] = Extract(container, child, childKey(parentKey, name))
		}
		return result

	case schema.KindList:
		nodes := dom.FindAll(el, f.Selector, parentKey)
		values := make([]string, 0, len(nodes))
		for _, n := range nodes {
			if v, ok := readValue(n, f); ok {
				values = append(values, v)
			}
		}
		return values

	default: // schema.KindLeaf
		target := resolve(el, f.Selector)
		if target == nil {
			log.Debug().
				Str("parent_key", parentKey).
				Str("selector", f.Selector).
				Msg("No element found for field")
			return nil
		}
		v, ok := readValue(target, f)
		if !ok {
			return nil
		}
		return v
	}
}

// resolve scopes the lookup: the node matching selector under el, or el
// itself when no selector is given.
func resolve(el dom.Node, selector string) dom.Node {
	if selector == "" {
		return el
	}
	node, err := el.QueryOne(selector)
	if err != nil {
		log.Error().
			Err(err).
			Str("selector", selector).
			Msg("Query failed while resolving field target")
		return nil
	}
	return node
}

// readValue reads attribute-or-text from the node and applies the field's
// transform. ok=false means the value resolved to absent.
func readValue(n dom.Node, f *schema.Field) (string, bool) {
	var value string
	if f.Attribute != "" {
		v, present, err := n.Attr(f.Attribute)
		if err != nil {
			log.Error().
				Err(err).
				Str("attribute", f.Attribute).
				Msg("Attribute read failed")
			return "", false
		}
		if !present {
			return "", false
		}
		value = v
	} else {
		v, err := n.Text()
		if err != nil {
			log.Error().Err(err).Msg("Text read failed")
			return "", false
		}
		value = v
	}
	if f.Transform != nil {
		return f.Transform(value)
	}
	return value, true
}

func childKey(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
