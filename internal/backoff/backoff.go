// Package backoff tracks consecutive timeouts during a scraping session and
// computes how long to pause before the next attempt. Repeated stalls on a
// feed usually mean the site is throttling us, so the cooldown escalates
// sharply once a threshold is crossed, up to a hard ceiling.
package backoff

import (
	"math"
	"time"
)

const (
	// TimeoutThreshold is the number of consecutive timeouts that triggers
	// rate-limit detection and the exponential cooldown branch.
	TimeoutThreshold = 2

	// initialCooldown is the cooldown when the threshold is first reached.
	initialCooldown = 5000 * time.Millisecond

	// maxCooldown caps the cooldown regardless of how many timeouts accrue,
	// so a single session never stalls indefinitely.
	maxCooldown = 30000 * time.Millisecond

	// factor doubles the cooldown with each timeout past the threshold.
	factor = 2.0
)

// Adjust returns the updated consecutive-timeout counter.
//
// A fresh timeout always increments, regardless of the success flag. On
// success with a counter above the threshold, the aggressive flag decays by
// two, floored at one, so a long failure history is never fully cleared in a
// single step. Plain success decays by one; success from zero stays at zero.
// Failure without a fresh timeout leaves the counter unchanged.
func Adjust(counter int, success, timeoutOccurred, aggressive bool) int {
	if timeoutOccurred {
		return counter + 1
	}
	switch {
	case success && counter > TimeoutThreshold && aggressive:
		return max(1, counter-2)
	case success && counter > 0:
		return counter - 1
	case success:
		return 0
	}
	return counter
}

// Cooldown returns the wait before the next attempt for the given
// consecutive-timeout count. Below the threshold the wait grows linearly from
// half a second; at or above it, exponentially up to the ceiling.
func Cooldown(counter int) time.Duration {
	if counter < TimeoutThreshold {
		return time.Duration((0.5 + float64(counter-1)*0.5) * float64(time.Second))
	}
	cooldown := float64(initialCooldown) * math.Pow(factor, float64(counter-TimeoutThreshold))
	return time.Duration(math.Min(cooldown, float64(maxCooldown)))
}
