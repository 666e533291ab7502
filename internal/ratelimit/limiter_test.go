package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestAllowWithinBurst(t *testing.T) {
	dl := NewDomainLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !dl.Allow("https://example.com/p") {
			t.Fatalf("request %d within burst should be allowed", i)
		}
	}
	if dl.Allow("https://example.com/p") {
		t.Error("request beyond burst should be denied")
	}
}

func TestDomainsAreIndependent(t *testing.T) {
	dl := NewDomainLimiter(1, 1)

	if !dl.Allow("https://a.example.com/x") {
		t.Fatal("first request to a should pass")
	}
	if dl.Allow("https://a.example.com/y") {
		t.Error("second request to a should be throttled")
	}
	if !dl.Allow("https://b.example.com/x") {
		t.Error("b's bucket should be untouched by a's traffic")
	}
}

func TestWaitCancellation(t *testing.T) {
	dl := NewDomainLimiter(0.001, 1)
	dl.Allow("https://example.com/") // drain the bucket

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := dl.Wait(ctx, "https://example.com/"); err == nil {
		t.Error("Wait should fail once the context expires")
	}
}

func TestInvalidURLPasses(t *testing.T) {
	dl := NewDomainLimiter(1, 1)

	// Unparseable targets aren't throttled; they fail downstream instead.
	if !dl.Allow("://not-a-url") {
		t.Error("hostless target should pass through")
	}
	if err := dl.Wait(context.Background(), "://not-a-url"); err != nil {
		t.Errorf("Wait on hostless target: %v", err)
	}
}

func TestSetLimit(t *testing.T) {
	dl := NewDomainLimiter(1, 1)
	dl.Allow("https://example.com/") // drain

	dl.SetLimit("example.com", 100, 10)
	if !dl.Allow("https://example.com/") {
		t.Error("raised limit should admit the request")
	}
}

func TestDefaults(t *testing.T) {
	dl := NewDomainLimiter(0, 0)
	if dl.perHost != 1 || dl.burst != 3 {
		t.Errorf("defaults = %v rps, %d burst", dl.perHost, dl.burst)
	}
}
