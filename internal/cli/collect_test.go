package cli

import (
	"testing"

	"github.com/feed-harvest/scrape/internal/schema"
)

func TestBuildFields(t *testing.T) {
	fields, err := buildFields(
		[]string{"title=.title", "url=a.link@href"},
		[]string{"images=img@src", "tags=.tags li"},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 4 {
		t.Fatalf("fields = %d, want 4", len(fields))
	}

	if f := fields["title"]; f.Kind != schema.KindLeaf || f.Selector != ".title" || f.Attribute != "" {
		t.Errorf("title = %+v", f)
	}
	if f := fields["url"]; f.Kind != schema.KindLeaf || f.Selector != "a.link" || f.Attribute != "href" {
		t.Errorf("url = %+v", f)
	}
	if f := fields["images"]; f.Kind != schema.KindList || f.Selector != "img" || f.Attribute != "src" {
		t.Errorf("images = %+v", f)
	}
	if f := fields["tags"]; f.Kind != schema.KindList || f.Selector != ".tags li" || f.Attribute != "" {
		t.Errorf("tags = %+v", f)
	}
}

func TestBuildFieldsRejectsBadSpecs(t *testing.T) {
	bad := [][]string{
		{"noequals"},
		{"=selector"},
		{"name="},
		{""},
	}
	for _, specs := range bad {
		if _, err := buildFields(specs, nil); err == nil {
			t.Errorf("expected error for %v", specs)
		}
	}

	if _, err := buildFields([]string{"x=.a"}, []string{"x=.b"}); err == nil {
		t.Error("expected error for duplicate field name")
	}
	if _, err := buildFields(nil, nil); err == nil {
		t.Error("expected error when no fields are declared")
	}
}
