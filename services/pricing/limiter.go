package pricing

import (
	"sync"
	"time"
)

const (
	// The rolling window carries a small buffer beyond one minute so a
	// client retrying exactly on the minute boundary still gets held back.
	quoteWindow        = 65 * time.Second
	maxQuotesPerWindow = 3
	maxTrackedSessions = 256
)

// quoteLimiter enforces a sliding-window cap on quote requests per booking
// session. It is a plain bounded map keyed by session ID.
type quoteLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func newQuoteLimiter() *quoteLimiter {
	return &quoteLimiter{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one admission for the session if the window has room.
// When denied it returns the remaining wait until the oldest admission
// expires.
func (l *quoteLimiter) Allow(sessionID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	kept := l.windows[sessionID][:0]
	for _, t := range l.windows[sessionID] {
		if now.Sub(t) < quoteWindow {
			kept = append(kept, t)
		}
	}

	if len(kept) >= maxQuotesPerWindow {
		l.windows[sessionID] = kept
		wait := quoteWindow - now.Sub(kept[0])
		return false, wait
	}

	l.windows[sessionID] = append(kept, now)
	if len(l.windows) > maxTrackedSessions {
		l.pruneLocked(now)
	}
	return true, 0
}

// pruneLocked drops sessions whose admissions have all expired.
func (l *quoteLimiter) pruneLocked(now time.Time) {
	for id, times := range l.windows {
		expired := true
		for _, t := range times {
			if now.Sub(t) < quoteWindow {
				expired = false
				break
			}
		}
		if expired {
			delete(l.windows, id)
		}
	}
}
