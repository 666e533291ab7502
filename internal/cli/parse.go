// internal/cli/parse.go
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/feed-harvest/scrape/internal/browser"
	"github.com/feed-harvest/scrape/internal/extract"
	"github.com/feed-harvest/scrape/internal/output"
)

var (
	parseContainer string
	parseFields    []string
	parseLists     []string
	parseBaseURL   string
	parseOutFile   string
	parseOutFormat string
)

// parseCmd extracts records from an already captured HTML snapshot, with no
// browser involved. Useful for developing field schemas offline.
var parseCmd = &cobra.Command{
	Use:   "parse <file.html>",
	Short: "Extract records from a saved HTML snapshot",
	Example: `  feedscrape parse feed.html \
    --container "div.post" \
    --field title=.title \
    --field url=a@href

  # Read from stdin
  curl -s https://example.com/feed | feedscrape parse - -c "div.post" -f url=a@href`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringVarP(&parseContainer, "container", "c", "", "CSS selector for the repeating item containers (required)")
	parseCmd.Flags().StringArrayVarP(&parseFields, "field", "f", nil, "Scalar field as name=selector[@attr] (repeatable)")
	parseCmd.Flags().StringArrayVarP(&parseLists, "list", "l", nil, "List field as name=selector[@attr] (repeatable)")
	parseCmd.Flags().StringVar(&parseBaseURL, "base-url", "", "Base URL the snapshot was captured from")
	parseCmd.Flags().StringVarP(&parseOutFile, "output", "o", "", "Write records to this file instead of stdout")
	parseCmd.Flags().StringVar(&parseOutFormat, "format", "json", "Output format: json or csv")

	parseCmd.MarkFlagRequired("container")
}

func runParse(cmd *cobra.Command, args []string) error {
	fields, err := buildFields(parseFields, parseLists)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(parseOutFormat)
	if err != nil {
		return err
	}

	src, err := readSource(args[0])
	if err != nil {
		return err
	}

	page, err := browser.ParseSnapshot(src, parseBaseURL)
	if err != nil {
		return fmt.Errorf("parsing snapshot: %w", err)
	}

	records := extract.Records(page, parseContainer, fields)
	return output.Save(records, parseOutFile, format)
}

func readSource(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(path)
	return string(b), err
}
