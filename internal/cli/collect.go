// internal/cli/collect.go
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/feed-harvest/scrape/internal/browser"
	"github.com/feed-harvest/scrape/internal/extract"
	"github.com/feed-harvest/scrape/internal/feed"
	"github.com/feed-harvest/scrape/internal/output"
	"github.com/feed-harvest/scrape/internal/schema"
	urlutil "github.com/feed-harvest/scrape/internal/utils/url"
)

var (
	containerSelector string
	fieldSpecs        []string
	listSpecs         []string
	keyField          string
	maxItems          int
	endMarker         string
	continueOnSeen    bool
	contentSelector   string
	stopAfter         string
	outputFile        string
	outputFormat      string
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect <url>",
	Short: "Scroll a feed page and extract structured records",
	Long: `Opens the URL in a headless browser, repeatedly extracts records from the
item containers while scrolling, and prints the collected records as JSON.

Fields are declared as name=selector, optionally reading an attribute with
name=selector@attr. Use --list for fields that collect every match.`,
	Example: `  # Titles and links from a feed
  feedscrape collect https://example.com/feed \
    --container "div.post" \
    --field title=.title \
    --field url=a@href

  # Also collect each post's image URLs
  feedscrape collect https://example.com/feed \
    --container "div.post" \
    --field url=a@href \
    --list images=img@src \
    --max-items 50`,
	Args: cobra.ExactArgs(1),
	RunE: runCollect,
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVarP(&containerSelector, "container", "c", "", "CSS selector for the repeating item containers (required)")
	collectCmd.Flags().StringArrayVarP(&fieldSpecs, "field", "f", nil, "Scalar field as name=selector[@attr] (repeatable)")
	collectCmd.Flags().StringArrayVarP(&listSpecs, "list", "l", nil, "List field as name=selector[@attr] (repeatable)")
	collectCmd.Flags().StringVar(&keyField, "key", "url", "Field used as record identity for deduplication")
	collectCmd.Flags().IntVarP(&maxItems, "max-items", "n", 0, "Stop after collecting this many records (0 = unbounded)")
	collectCmd.Flags().StringVar(&endMarker, "end-marker", "", "CSS selector that marks the true end of the feed")
	collectCmd.Flags().BoolVar(&continueOnSeen, "continue-on-seen", true, "Keep scrolling past already seen records")
	collectCmd.Flags().StringVar(&contentSelector, "content", "", "Fetch each record's detail page and extract this selector as markdown")
	collectCmd.Flags().StringVar(&stopAfter, "stop-after", "", "Stop at records older than this RFC 3339 date")
	collectCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write records to this file instead of stdout")
	collectCmd.Flags().StringVar(&outputFormat, "format", "json", "Output format: json or csv")

	collectCmd.MarkFlagRequired("container")
}

func runCollect(cmd *cobra.Command, args []string) error {
	url := args[0]
	if err := urlutil.ValidateURL(url); err != nil {
		return err
	}

	fields, err := buildFields(fieldSpecs, listSpecs)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	a := GetApp()
	cfg := a.Config

	fcfg := feed.Config{
		ContainerSelector: containerSelector,
		Fields:            fields,
		KeyField:          keyField,
		MaxItems:          maxItems,
		MaxCycles:         cfg.MaxCycles,
		EndMarkerSelector: endMarker,
		ContinueOnSeen:    continueOnSeen,
		Scroll:            feed.DefaultScrollConfig(),
	}
	fcfg.Scroll.MaxStallCycles = cfg.MaxStallCycles

	if stopAfter != "" {
		cutoff, err := time.Parse(time.RFC3339, stopAfter)
		if err != nil {
			return fmt.Errorf("invalid --stop-after date: %w", err)
		}
		fcfg.StopAfter = cutoff
	}
	if contentSelector != "" {
		opts := feed.DefaultNavigateOptions()
		opts.ContentSelector = contentSelector
		fcfg.Navigate = opts
	}

	// Cancel the session cleanly on interrupt instead of losing everything.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.EnsureBrowserPool(); err != nil {
		return err
	}
	tab, err := a.BrowserPool.Acquire(cfg.NavTimeout)
	if err != nil {
		return err
	}
	defer a.BrowserPool.Release(tab)

	page, err := browser.Open(tab, url, cfg.NavTimeout)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions(barTotal(maxItems),
		progressbar.OptionSetDescription("collecting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
	fcfg.OnItem = func(extract.Record) {
		bar.Add(1)
	}

	session, err := feed.NewSession(page, fcfg)
	if err != nil {
		return err
	}
	session.UseScroller(page)
	if fcfg.Navigate != nil {
		session.UseNavigator(feed.NewNavigator(page, a.RateLimiter, a.ContentCache, fcfg.Navigate))
	}

	result := session.Run(ctx)
	bar.Finish()

	log.Info().
		Str("reason", string(result.Reason)).
		Int("items", len(result.Items)).
		Int("cycles", result.Cycles).
		Msg("Collection finished")

	return output.Save(result.Items, outputFile, format)
}

func barTotal(maxItems int) int {
	if maxItems > 0 {
		return maxItems
	}
	return -1 // spinner mode
}

// buildFields turns name=selector[@attr] specs into a field schema map.
func buildFields(scalars, lists []string) (map[string]*schema.Field, error) {
	fields := make(map[string]*schema.Field, len(scalars)+len(lists))

	add := func(spec string, list bool) error {
		name, rest, ok := strings.Cut(spec, "=")
		if !ok || name == "" || rest == "" {
			return fmt.Errorf("invalid field spec %q: want name=selector[@attr]", spec)
		}
		if _, dup := fields[name]; dup {
			return fmt.Errorf("duplicate field name %q", name)
		}
		selector, attr, _ := strings.Cut(rest, "@")
		switch {
		case list && attr != "":
			fields[name] = schema.ListAttr(selector, attr)
		case list:
			fields[name] = schema.List(selector)
		case attr != "":
			fields[name] = schema.Attr(selector, attr)
		default:
			fields[name] = schema.Text(selector)
		}
		return nil
	}

	for _, spec := range scalars {
		if err := add(spec, false); err != nil {
			return nil, err
		}
	}
	for _, spec := range lists {
		if err := add(spec, true); err != nil {
			return nil, err
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one --field or --list is required")
	}
	return fields, nil
}
