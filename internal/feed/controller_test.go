package feed

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/feed-harvest/scrape/internal/browser"
	"github.com/feed-harvest/scrape/internal/dom"
	"github.com/feed-harvest/scrape/internal/extract"
	"github.com/feed-harvest/scrape/internal/schema"
)

// scriptedPage serves one snapshot at a time; the fake scroller advances to
// the next snapshot, simulating a feed that loads more items as you scroll.
type scriptedPage struct {
	snapshots []string
	idx       int
}

func (p *scriptedPage) current() *browser.StaticPage {
	sp, err := browser.ParseSnapshot(p.snapshots[p.idx], "https://example.com/feed")
	if err != nil {
		panic(err)
	}
	return sp
}

func (p *scriptedPage) QueryOne(sel string) (dom.Node, error) { return p.current().QueryOne(sel) }

func (p *scriptedPage) QueryAll(sel string) ([]dom.Node, error) { return p.current().QueryAll(sel) }

func (p *scriptedPage) Location() string { return "https://example.com/feed" }

func (p *scriptedPage) advance() {
	if p.idx < len(p.snapshots)-1 {
		p.idx++
	}
}

type fakeScroller struct {
	page    *scriptedPage
	scrolls int
}

func (s *fakeScroller) ScrollBy(ctx context.Context, pixels float64) error {
	s.scrolls++
	s.page.advance()
	return nil
}

func (s *fakeScroller) ScrollToBottom(ctx context.Context, aggressive bool) error {
	s.scrolls++
	s.page.advance()
	return nil
}

func (s *fakeScroller) Height(ctx context.Context) (float64, error) {
	return 2000 + float64(s.page.idx)*1000, nil
}

func (s *fakeScroller) Viewport(ctx context.Context) (float64, error) { return 800, nil }
func (s *fakeScroller) Position(ctx context.Context) (float64, error) { return 0, nil }

// fastSleep replaces the package sleep with a recorder so sessions finish
// instantly. The recorded durations are the backoff and pacing waits.
func fastSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	old := sleep
	sleep = func(ctx context.Context, d time.Duration) bool {
		waits = append(waits, d)
		return ctx.Err() == nil
	}
	t.Cleanup(func() { sleep = old })
	return &waits
}

func feedSnapshot(urls ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i, u := range urls {
		fmt.Fprintf(&b, `<div class="post"><a class="link" href="%s">post %d</a></div>`, u, i)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func feedConfig() Config {
	return Config{
		ContainerSelector: "div.post",
		Fields: map[string]*schema.Field{
			"url": schema.Attr("a.link", "href"),
		},
		ContinueOnSeen: true,
	}
}

func urls(items []extract.Record) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		u, _ := it.StringField("url")
		out = append(out, u)
	}
	return out
}

func TestRunMaxItems(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{
		feedSnapshot("/p/1", "/p/2", "/p/3", "/p/4"),
	}}

	cfg := feedConfig()
	cfg.MaxItems = 3
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if res.Reason != ReasonMaxItems {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonMaxItems)
	}
	if len(res.Items) != 3 {
		t.Errorf("items = %d, want 3", len(res.Items))
	}
	got := urls(res.Items)
	want := []string{"/p/1", "/p/2", "/p/3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("item %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunStallBudget(t *testing.T) {
	waits := fastSleep(t)
	page := &scriptedPage{snapshots: []string{feedSnapshot()}}

	cfg := feedConfig()
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if res.Reason != ReasonNoNewContent {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonNoNewContent)
	}
	if res.Cycles != 3 {
		t.Errorf("cycles = %d, want 3", res.Cycles)
	}
	// Three stalled cycles produce exactly two backoff waits: the budget
	// check fires before the third wait would start.
	if res.Waits != 2 {
		t.Errorf("waits = %d, want 2", res.Waits)
	}
	if len(*waits) != 2 {
		t.Fatalf("recorded %d waits, want 2", len(*waits))
	}
	if (*waits)[0] != 500*time.Millisecond {
		t.Errorf("first cooldown = %v, want 500ms", (*waits)[0])
	}
	if (*waits)[1] != 5*time.Second {
		t.Errorf("second cooldown = %v, want 5s", (*waits)[1])
	}
}

func TestRunScrollRevealsMoreItems(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{
		feedSnapshot("/p/1", "/p/2"),
		feedSnapshot("/p/1", "/p/2", "/p/3", "/p/4"),
	}}
	sc := &fakeScroller{page: page}

	cfg := feedConfig()
	cfg.MaxItems = 4
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.UseScroller(sc)

	res := s.Run(context.Background())
	if res.Reason != ReasonMaxItems {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonMaxItems)
	}
	if len(res.Items) != 4 {
		t.Errorf("items = %d, want 4", len(res.Items))
	}
	if sc.scrolls == 0 {
		t.Error("scroller was never used")
	}
}

func TestRunDedupesAcrossCycles(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{
		feedSnapshot("/p/1", "/p/2"),
		feedSnapshot("/p/1", "/p/2", "/p/3"),
	}}
	sc := &fakeScroller{page: page}

	cfg := feedConfig()
	cfg.MaxItems = 3
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.UseScroller(sc)

	res := s.Run(context.Background())
	if len(res.Items) != 3 {
		t.Fatalf("items = %d, want 3 (no duplicates)", len(res.Items))
	}
	if res.Skipped != 2 {
		t.Errorf("skipped = %d, want 2", res.Skipped)
	}
}

func TestRunPreloadedSeenKeys(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{
		feedSnapshot("https://example.com/p/1", "https://example.com/p/2"),
	}}

	cfg := feedConfig()
	cfg.MaxItems = 2
	// Equivalent forms of the first URL must collide after normalization.
	cfg.SeenKeys = []string{"http://www.Example.com/p/1/"}
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if len(res.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(res.Items))
	}
	if got := urls(res.Items)[0]; got != "https://example.com/p/2" {
		t.Errorf("collected %q, want the unseen record", got)
	}
}

func TestRunStopsOnSeenWhenConfigured(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{
		feedSnapshot("/p/1", "/p/2"),
	}}

	cfg := feedConfig()
	cfg.ContinueOnSeen = false
	cfg.SeenKeys = []string{"/p/1"}
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if res.Reason != ReasonSeenContent {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonSeenContent)
	}
	if len(res.Items) != 0 {
		t.Errorf("items = %d, want 0", len(res.Items))
	}
}

func TestRunEndMarker(t *testing.T) {
	fastSleep(t)
	html := strings.Replace(
		feedSnapshot("/p/1"),
		"</body>", `<div class="feed-end">No more posts</div></body>`, 1)
	page := &scriptedPage{snapshots: []string{html}}

	cfg := feedConfig()
	cfg.EndMarkerSelector = "div.feed-end"
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if res.Reason != ReasonPageEnd {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonPageEnd)
	}
	if len(res.Items) != 1 {
		t.Errorf("items = %d, want 1 (collected before the marker check)", len(res.Items))
	}
}

func TestRunMaxCycles(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{feedSnapshot("/p/1")}}

	cfg := feedConfig()
	cfg.MaxCycles = 1
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if res.Reason != ReasonMaxCycles {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonMaxCycles)
	}
	if res.Cycles != 1 {
		t.Errorf("cycles = %d, want 1", res.Cycles)
	}
}

func TestRunCancelled(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{feedSnapshot("/p/1")}}

	s, err := NewSession(page, feedConfig())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.Run(ctx)
	if res.Reason != ReasonCancelled {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonCancelled)
	}
	if res.Cycles != 0 {
		t.Errorf("cycles = %d, want 0", res.Cycles)
	}
}

func TestRunPersistentStallsAbortAsRateLimited(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{feedSnapshot()}}

	cfg := feedConfig()
	cfg.Scroll = DefaultScrollConfig()
	cfg.Scroll.MaxStallCycles = 10
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if res.Reason != ReasonRateLimited {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonRateLimited)
	}
	// One timeout per stalled cycle; the abort fires at twice the
	// detection threshold.
	if res.Cycles != 4 {
		t.Errorf("cycles = %d, want 4", res.Cycles)
	}
	if res.Waits != 4 {
		t.Errorf("waits = %d, want 4", res.Waits)
	}
}

func TestRunBackoffCeiling(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{feedSnapshot()}}

	cfg := feedConfig()
	cfg.Scroll = DefaultScrollConfig()
	cfg.Scroll.MaxStallCycles = 10
	cfg.BackoffCeiling = time.Second
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if res.Reason != ReasonRateLimited {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonRateLimited)
	}
	// The second stalled cycle pushes the next cooldown past the ceiling.
	if res.Cycles != 2 {
		t.Errorf("cycles = %d, want 2", res.Cycles)
	}
}

func TestRunDateCutoff(t *testing.T) {
	fastSleep(t)
	html := `<html><body>
<div class="post"><a class="link" href="/p/1">x</a><time class="date">2026-05-02T10:00:00Z</time></div>
<div class="post"><a class="link" href="/p/2">x</a><time class="date">2026-04-20T10:00:00Z</time></div>
<div class="post"><a class="link" href="/p/3">x</a><time class="date">2026-05-03T10:00:00Z</time></div>
</body></html>`
	page := &scriptedPage{snapshots: []string{html}}

	cfg := feedConfig()
	cfg.Fields["created_at"] = schema.Text("time.date")
	cfg.StopAfter = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if res.Reason != ReasonDateCutoff {
		t.Errorf("reason = %q, want %q", res.Reason, ReasonDateCutoff)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %d, want 1 (records before the old one)", len(res.Items))
	}
	if got := urls(res.Items)[0]; got != "/p/1" {
		t.Errorf("collected %q, want /p/1", got)
	}
}

func TestRunOnItemCallback(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{
		feedSnapshot("/p/1", "/p/2"),
	}}

	var calls int
	cfg := feedConfig()
	cfg.MaxItems = 2
	cfg.OnItem = func(extract.Record) { calls++ }
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	if calls != len(res.Items) || calls != 2 {
		t.Errorf("callback calls = %d, items = %d, want 2", calls, len(res.Items))
	}
}

func TestRunSkipsKeylessRecords(t *testing.T) {
	fastSleep(t)
	html := `<html><body>
<div class="post"><a class="link" href="/p/1">x</a></div>
<div class="post"><span>no link here</span></div>
<div class="post"><a class="link" href="/p/2">x</a></div>
</body></html>`
	page := &scriptedPage{snapshots: []string{html}}

	cfg := feedConfig()
	cfg.MaxItems = 2
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}

	res := s.Run(context.Background())
	got := urls(res.Items)
	if len(got) != 2 || got[0] != "/p/1" || got[1] != "/p/2" {
		t.Errorf("items = %v, want keyed records only", got)
	}
}

func TestNewSessionValidation(t *testing.T) {
	page := &scriptedPage{snapshots: []string{feedSnapshot()}}

	if _, err := NewSession(page, Config{}); err == nil {
		t.Error("expected error for empty config")
	}
	if _, err := NewSession(page, Config{ContainerSelector: "div.post"}); err == nil {
		t.Error("expected error for missing fields")
	}

	cfg := feedConfig()
	s, err := NewSession(page, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s.cfg.KeyField != "url" {
		t.Errorf("default key field = %q, want url", s.cfg.KeyField)
	}
	if s.cfg.Scroll.MaxStallCycles != DefaultScrollConfig().MaxStallCycles {
		t.Error("scroll defaults not applied")
	}
}
