// Package output writes collected records to files or stdout.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/feed-harvest/scrape/internal/extract"
)

// Format is a supported export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json", "":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported output format %q (want json or csv)", name)
}

// Save writes records to filepath in the given format. An empty filepath
// writes to stdout.
func Save(records []extract.Record, filepath string, format Format) error {
	var w io.Writer = os.Stdout
	if filepath != "" {
		file, err := os.Create(filepath)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}

	switch format {
	case FormatCSV:
		return writeCSV(w, records)
	default:
		return writeJSON(w, records)
	}
}

func writeJSON(w io.Writer, records []extract.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// writeCSV flattens records to rows. Columns are the union of all field
// names, sorted for a stable layout; list values are joined with "; ".
func writeCSV(w io.Writer, records []extract.Record) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	headerSet := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			headerSet[k] = struct{}{}
		}
	}
	headers := make([]string, 0, len(headerSet))
	for h := range headerSet {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	if err := writer.Write(headers); err != nil {
		return err
	}
	for _, rec := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = cell(rec[h])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		return strings.Join(val, "; ")
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
