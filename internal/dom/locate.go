package dom

import (
	"github.com/rs/zerolog/log"
)

// FindOne looks up a single node under parent. It never propagates query
// failures: a miss or an underlying query error both return nil, with a log
// event describing which. The required flag only changes the severity of the
// miss event (error vs warning), never the return type.
func FindOne(parent Queryable, selector string, required bool, desc string) Node {
	node, err := parent.QueryOne(selector)
	if err != nil {
		log.Error().
			Err(err).
			Str("selector", selector).
			Str("target", desc).
			Msg("Query failed while locating element")
		return nil
	}
	if node != nil {
		return node
	}

	ev := log.Warn()
	if required {
		ev = log.Error()
	}
	ev.
		Str("selector", selector).
		Str("target", desc).
		Msg("Element not found")
	return nil
}

// FindAll returns every node under parent matching selector, in document
// order. Query failures are swallowed into an empty result plus a logged
// error; zero matches is a normal empty result.
func FindAll(parent Queryable, selector string, desc string) []Node {
	nodes, err := parent.QueryAll(selector)
	if err != nil {
		log.Error().
			Err(err).
			Str("selector", selector).
			Str("target", desc).
			Msg("Query failed while locating elements")
		return nil
	}
	return nodes
}

// FindNth resolves the container at position index among all matches of
// selector. The three miss cases are logged distinctly: no containers found,
// index out of range, and underlying query failure. Each returns nil.
func FindNth(parent Queryable, selector string, index int, desc string) Node {
	containers, err := parent.QueryAll(selector)
	if err != nil {
		log.Error().
			Err(err).
			Str("selector", selector).
			Int("index", index).
			Str("target", desc).
			Msg("Query failed while locating container")
		return nil
	}

	if len(containers) == 0 {
		log.Warn().
			Str("selector", selector).
			Str("target", desc).
			Msg("No containers found")
		return nil
	}

	log.Debug().
		Int("count", len(containers)).
		Str("target", desc).
		Msg("Located containers")

	if index < 0 || index >= len(containers) {
		log.Warn().
			Int("index", index).
			Int("count", len(containers)).
			Str("target", desc).
			Msg("Container index out of range")
		return nil
	}

	return containers[index]
}
