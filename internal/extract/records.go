package extract

import (
	"github.com/rs/zerolog/log"

	"github.com/feed-harvest/scrape/internal/dom"
	"github.com/feed-harvest/scrape/internal/schema"
)

// Record is one structured item extracted from a container.
type Record map[string]any

// Records extracts one Record per container matching containerSelector under
// root, applying every named field schema to each container. Containers are
// processed in document order; a container whose extraction cannot proceed is
// logged and skipped rather than aborting the pass.
func Records(root dom.Queryable, containerSelector string, fields map[string]*schema.Field) []Record {
	containers := dom.FindAll(root, containerSelector, "item container")
	records := make([]Record, 0, len(containers))
	for i, container := range containers {
		if container == nil {
			log.Warn().Int("index", i).Msg("Skipping nil container")
			continue
		}
		rec := make(Record, len(fields))
		for name, f := range fields {
			rec[name] = Extract(container, f, name)
		}
		records = append(records, rec)
	}
	return records
}

// StringField returns the named field of a record as a string when it holds a
// non-empty scalar value.
func (r Record) StringField(name string) (string, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
