package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/feed-harvest/scrape/internal/extract"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"json": FormatJSON,
		"JSON": FormatJSON,
		"":     FormatJSON,
		"csv":  FormatCSV,
		"CSV":  FormatCSV,
	} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	records := []extract.Record{
		{"title": "one", "url": "/p/1"},
		{"title": "two", "url": "/p/2", "tags": []string{"a", "b"}},
	}

	if err := Save(records, path, FormatJSON); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	s := string(data)
	for _, want := range []string{`"title": "one"`, `"url": "/p/2"`, `"a"`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON output missing %q", want)
		}
	}
}

func TestSaveCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	records := []extract.Record{
		{"title": "one", "url": "/p/1"},
		{"title": "two", "tags": []string{"a", "b"}},
	}

	if err := Save(records, path, FormatCSV); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	// Union of field names, sorted.
	if !reflect.DeepEqual(rows[0], []string{"tags", "title", "url"}) {
		t.Errorf("header = %v", rows[0])
	}
	if !reflect.DeepEqual(rows[1], []string{"", "one", "/p/1"}) {
		t.Errorf("row 1 = %v", rows[1])
	}
	if !reflect.DeepEqual(rows[2], []string{"a; b", "two", ""}) {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"plain", "plain"},
		{[]string{"x", "y"}, "x; y"},
		{map[string]any{"k": "v"}, `{"k":"v"}`},
		{42, "42"},
	}
	for _, tt := range tests {
		if got := cell(tt.in); got != tt.want {
			t.Errorf("cell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
