package feed

import (
	"context"
	"testing"
	"time"
)

func TestScrollMultiplier(t *testing.T) {
	tests := []struct {
		allSeen bool
		streak  int
		want    float64
	}{
		{false, 0, 1.0},
		{false, 9, 1.0},
		{true, 0, 1.5},
		{true, 1, 2.0},
		{true, 3, 3.0},
		{true, 7, 5.0},
		{true, 100, 5.0},
	}
	for _, tt := range tests {
		if got := scrollMultiplier(tt.allSeen, tt.streak); got != tt.want {
			t.Errorf("scrollMultiplier(%v, %d) = %v, want %v", tt.allSeen, tt.streak, got, tt.want)
		}
	}
}

func TestJitterBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 200; i++ {
		got := jitter(base, 0.3)
		if got < 700*time.Millisecond || got > 1300*time.Millisecond {
			t.Fatalf("jitter out of bounds: %v", got)
		}
	}
	if got := jitter(base, 0); got != base {
		t.Errorf("zero factor should return input, got %v", got)
	}
}

func TestAtBottom(t *testing.T) {
	page := &scriptedPage{snapshots: []string{feedSnapshot()}}
	sc := &fakeScroller{page: page}

	// height 2000, viewport 800, position 0: 1200 left, not at bottom.
	bottom, err := atBottom(context.Background(), sc)
	if err != nil {
		t.Fatal(err)
	}
	if bottom {
		t.Error("should not be at bottom with 1200px remaining")
	}
}

func TestHumanScrollPatterns(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{feedSnapshot()}}

	for _, pattern := range []Pattern{PatternNormal, PatternFast, PatternSlow, PatternBounce} {
		sc := &fakeScroller{page: page}
		if err := humanScroll(context.Background(), sc, pattern, 1.0); err != nil {
			t.Errorf("humanScroll(%s): %v", pattern, err)
		}
		if sc.scrolls == 0 {
			t.Errorf("humanScroll(%s) never scrolled", pattern)
		}
	}
}

func TestTurboScroll(t *testing.T) {
	fastSleep(t)
	page := &scriptedPage{snapshots: []string{feedSnapshot()}}
	sc := &fakeScroller{page: page}

	if err := turboScroll(context.Background(), sc); err != nil {
		t.Fatal(err)
	}
	if sc.scrolls != 2 {
		t.Errorf("turbo scrolls = %d, want 2 bottom jumps", sc.scrolls)
	}
}

func TestSleepCtx(t *testing.T) {
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("uncancelled sleep should return true")
	}
	if !sleepCtx(context.Background(), 0) {
		t.Error("zero duration should return true")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Minute) {
		t.Error("cancelled sleep should return false")
	}
	if sleepCtx(ctx, 0) {
		t.Error("zero duration on cancelled context should return false")
	}
}
