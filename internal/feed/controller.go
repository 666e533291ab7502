// Package feed orchestrates repeated locate → extract → detect-progress →
// backoff cycles against a lazily loading feed page until a termination
// condition is met.
package feed

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/feed-harvest/scrape/internal/backoff"
	"github.com/feed-harvest/scrape/internal/dom"
	"github.com/feed-harvest/scrape/internal/extract"
	urlutil "github.com/feed-harvest/scrape/internal/utils/url"
)

// Reason explains why a session ended. Exhaustion is a normal termination,
// not an error.
type Reason string

const (
	ReasonMaxItems     Reason = "max items collected"
	ReasonNoNewContent Reason = "no new content"
	ReasonRateLimited  Reason = "rate limited"
	ReasonPageEnd      Reason = "end of feed"
	ReasonMaxCycles    Reason = "cycle budget exhausted"
	ReasonCancelled    Reason = "cancelled"
	ReasonDateCutoff   Reason = "date cutoff reached"
	ReasonSeenContent  Reason = "previously seen content reached"
)

// Result is what one completed session produced.
type Result struct {
	Items   []extract.Record
	Reason  Reason
	Cycles  int
	Waits   int
	Skipped int
}

// Session owns the state for one scraping run against one page: the
// consecutive-timeout counter, the seen-record set, and scroll bookkeeping.
// Sessions are single-threaded and must not be shared; create one per page.
type Session struct {
	page dom.Page
	cfg  Config
	lg   zerolog.Logger

	scroller Scroller
	nav      *Navigator

	seen     map[string]struct{}
	timeouts int

	stalls         int
	cycleSkipped   int
	allSeenStreak  int
	sameHeight     int
	lastHeight     float64
	turbo          bool
	dateCutoffHit  bool
	seenContentHit bool
}

// NewSession builds a session over page. The config is validated up front;
// everything after that degrades rather than fails.
func NewSession(page dom.Page, cfg Config) (*Session, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(cfg.SeenKeys))
	for _, k := range cfg.SeenKeys {
		seen[normalizeKey(k)] = struct{}{}
	}

	return &Session{
		page: page,
		cfg:  cfg,
		lg:   log.With().Str("session", newSessionID()).Str("page", page.Location()).Logger(),
		seen: seen,
	}, nil
}

// UseScroller attaches the scrolling capability.
func (s *Session) UseScroller(sc Scroller) *Session {
	s.scroller = sc
	return s
}

// UseNavigator attaches detail-content fetching for new records.
func (s *Session) UseNavigator(n *Navigator) *Session {
	s.nav = n
	return s
}

// Run drives collect cycles until a termination condition and returns every
// record collected along the way. Page trouble inside a cycle is logged and
// treated as a soft timeout; records from earlier cycles are never lost.
func (s *Session) Run(ctx context.Context) *Result {
	res := &Result{}

	for {
		if ctx.Err() != nil {
			return s.finish(res, ReasonCancelled)
		}
		if s.cfg.MaxCycles > 0 && res.Cycles >= s.cfg.MaxCycles {
			return s.finish(res, ReasonMaxCycles)
		}
		if s.timeouts >= 2*backoff.TimeoutThreshold {
			s.lg.Error().Int("consecutive_timeouts", s.timeouts).
				Msg("Persistent rate limiting detected, aborting session")
			return s.finish(res, ReasonRateLimited)
		}
		if s.cfg.BackoffCeiling > 0 && backoff.Cooldown(s.timeouts) > s.cfg.BackoffCeiling {
			return s.finish(res, ReasonRateLimited)
		}
		if s.timeouts > 0 {
			s.lg.Warn().Int("consecutive_timeouts", s.timeouts).Msg("Operating with timeout history")
		}

		res.Cycles++
		newItems, total := s.collect(ctx, res)

		if s.seenContentHit {
			return s.finish(res, ReasonSeenContent)
		}
		if s.dateCutoffHit {
			return s.finish(res, ReasonDateCutoff)
		}
		if s.cfg.MaxItems > 0 && len(res.Items) >= s.cfg.MaxItems {
			return s.finish(res, ReasonMaxItems)
		}
		if s.cfg.EndMarkerSelector != "" {
			if marker := dom.FindAll(s.page, s.cfg.EndMarkerSelector, "end marker"); len(marker) > 0 {
				return s.finish(res, ReasonPageEnd)
			}
		}

		allSeen := total > 0 && newItems == 0 && s.cycleSkipped > 0 && s.cycleSkipped == total
		if allSeen {
			s.allSeenStreak++
		} else {
			s.allSeenStreak = 0
		}

		if newItems > 0 {
			s.stalls = 0
			if s.turbo {
				s.lg.Info().Msg("Found unseen content, leaving turbo mode")
				s.turbo = false
			}
			// A full page of new items means the throttling fear was
			// unfounded, so decay the counter faster.
			aggressive := newItems == total
			s.timeouts = backoff.Adjust(s.timeouts, true, false, aggressive)
		} else {
			s.stalls++
			s.timeouts = backoff.Adjust(s.timeouts, false, true, false)
			s.lg.Debug().
				Int("stalls", s.stalls).
				Int("consecutive_timeouts", s.timeouts).
				Msg("Cycle produced no new records")

			if s.stalls >= s.cfg.Scroll.MaxStallCycles {
				return s.finish(res, ReasonNoNewContent)
			}

			wait := backoff.Cooldown(s.timeouts)
			res.Waits++
			s.lg.Info().Dur("cooldown", wait).Msg("Backing off before next cycle")
			if !sleep(ctx, wait) {
				return s.finish(res, ReasonCancelled)
			}
		}

		if err := s.scrollStep(ctx); err != nil {
			if ctx.Err() != nil {
				return s.finish(res, ReasonCancelled)
			}
			// Scroll trouble is a page interaction failure: log it and let
			// the timeout counter absorb it, same as a soft timeout.
			s.lg.Warn().Err(err).Msg("Scroll failed, treating as soft timeout")
			s.timeouts = backoff.Adjust(s.timeouts, false, true, false)
		}
	}
}

// collect runs one extraction pass, appending unseen records to res. Returns
// the number of new records and the number of containers processed.
func (s *Session) collect(ctx context.Context, res *Result) (newItems, total int) {
	s.cycleSkipped = 0
	records := extract.Records(s.page, s.cfg.ContainerSelector, s.cfg.Fields)
	total = len(records)

	for _, rec := range records {
		if s.cfg.MaxItems > 0 && len(res.Items) >= s.cfg.MaxItems {
			break
		}

		if s.pastDateCutoff(rec) {
			s.dateCutoffHit = true
			break
		}

		key, ok := rec.StringField(s.cfg.KeyField)
		if !ok {
			continue
		}
		key = normalizeKey(key)

		if _, dup := s.seen[key]; dup {
			s.cycleSkipped++
			res.Skipped++
			if !s.cfg.ContinueOnSeen {
				s.lg.Warn().Str("key", key).Msg("Hit previously seen record, stopping")
				s.seenContentHit = true
				return newItems, total
			}
			continue
		}

		if s.turbo {
			s.lg.Info().Msg("Unseen record while in turbo mode, resuming normal pace")
			s.turbo = false
		}

		s.seen[key] = struct{}{}

		if s.nav != nil && s.cfg.Navigate != nil && !s.turbo {
			s.attachContent(ctx, rec)
		}

		res.Items = append(res.Items, rec)
		newItems++
		if s.cfg.OnItem != nil {
			s.cfg.OnItem(rec)
		}
	}

	if s.cycleSkipped > 0 {
		s.lg.Debug().Int("skipped", s.cycleSkipped).Msg("Skipped already seen records")
	}
	return newItems, total
}

// attachContent fetches and attaches detail-page content for a new record,
// feeding fetch timeouts into the session's timeout counter.
func (s *Session) attachContent(ctx context.Context, rec extract.Record) {
	rawURL, ok := rec.StringField(s.cfg.KeyField)
	if !ok {
		return
	}
	absolute := urlutil.ResolveURL(s.page.Location(), rawURL)

	content, timedOut, err := s.nav.Content(ctx, absolute)
	if timedOut {
		s.timeouts = backoff.Adjust(s.timeouts, false, true, false)
	} else if err == nil && s.timeouts > 0 {
		s.timeouts = backoff.Adjust(s.timeouts, true, false, s.timeouts > backoff.TimeoutThreshold)
	}
	if err != nil {
		s.lg.Warn().Err(err).Str("url", absolute).Msg("Detail content fetch failed")
		return
	}
	rec["content"] = content
}

// pastDateCutoff reports whether rec is older than the configured cutoff.
func (s *Session) pastDateCutoff(rec extract.Record) bool {
	if s.cfg.StopAfter.IsZero() {
		return false
	}
	raw, ok := rec.StringField(s.cfg.DateField)
	if !ok {
		return false
	}
	ts, err := parseTimestamp(raw)
	if err != nil {
		s.lg.Warn().Err(err).Str("value", raw).Msg("Unparseable record date")
		return false
	}
	if ts.Before(s.cfg.StopAfter) {
		s.lg.Warn().
			Time("record", ts).
			Time("cutoff", s.cfg.StopAfter).
			Msg("Record older than cutoff")
		return true
	}
	return false
}

// scrollStep advances the page between cycles using the adaptive strategy:
// turbo jumps over seen content, bottom jumps recover from a frozen height,
// everything else is a human-paced scroll.
func (s *Session) scrollStep(ctx context.Context) error {
	if s.scroller == nil {
		return nil
	}

	height, err := s.scroller.Height(ctx)
	if err != nil {
		return err
	}
	if height == s.lastHeight {
		s.sameHeight++
	} else {
		s.sameHeight = 0
	}
	s.lastHeight = height

	if !s.turbo && s.allSeenStreak >= 5 {
		s.lg.Warn().Int("all_seen_streak", s.allSeenStreak).Msg("Entering turbo mode")
		s.turbo = true
	}
	if s.turbo {
		return turboScroll(ctx, s.scroller)
	}

	if s.sameHeight >= s.cfg.Scroll.MaxSameHeight {
		s.lg.Debug().Msg("Height frozen, jumping to bottom of page")
		s.sameHeight = 0
		if err := s.scroller.ScrollToBottom(ctx, false); err != nil {
			return err
		}
		if bottom, err := atBottom(ctx, s.scroller); err == nil && bottom {
			s.lg.Debug().Msg("Reached bottom of page, waiting for new content")
			sleep(ctx, jitter(time.Second, s.cfg.Scroll.JitterFactor))
		}
		return nil
	}

	mult := scrollMultiplier(s.allSeenStreak > 0, s.allSeenStreak)
	pattern := PatternNormal
	if s.allSeenStreak > 1 {
		pattern = PatternFast
	}
	if err := humanScroll(ctx, s.scroller, pattern, mult); err != nil {
		return err
	}

	delay := s.cfg.Scroll.MinDelay +
		time.Duration(float64(s.cfg.Scroll.MaxDelay-s.cfg.Scroll.MinDelay)*0.5)
	sleep(ctx, jitter(delay, s.cfg.Scroll.JitterFactor))
	return nil
}

func (s *Session) finish(res *Result, reason Reason) *Result {
	res.Reason = reason
	s.lg.Info().
		Str("reason", string(reason)).
		Int("items", len(res.Items)).
		Int("cycles", res.Cycles).
		Int("waits", res.Waits).
		Int("skipped", res.Skipped).
		Msg("Session finished")
	return res
}

func normalizeKey(key string) string {
	if n, ok := urlutil.Normalize(key); ok {
		return n
	}
	return key
}

func parseTimestamp(raw string) (time.Time, error) {
	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	var err error
	for _, layout := range layouts {
		var ts time.Time
		ts, err = time.Parse(layout, raw)
		if err == nil {
			return ts, nil
		}
	}
	return time.Time{}, err
}

func newSessionID() string {
	b := make([]byte, 4)
	rand.Read(b)
	return hex.EncodeToString(b)
}
