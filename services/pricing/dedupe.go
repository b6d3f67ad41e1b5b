package pricing

import (
	"fmt"
	"sync"
	"time"

	"transfera/models"
)

const (
	dedupeTTL        = 60 * time.Second
	dedupeMaxEntries = 32
)

// dedupeCache is a short-lived bounded cache of quote responses keyed by the
// stable request fingerprint. It collapses identical back-to-back requests
// without any network round trip.
type dedupeCache struct {
	mu      sync.Mutex
	entries map[string]dedupeEntry
	order   []string
	now     func() time.Time
}

type dedupeEntry struct {
	resp *models.QuoteResponse
	at   time.Time
}

func newDedupeCache() *dedupeCache {
	return &dedupeCache{
		entries: make(map[string]dedupeEntry),
		now:     time.Now,
	}
}

// fingerprint keys a quote request by everything that affects the price:
// both coordinate pairs, pickup time, and trip type. Correlation and session
// identifiers are deliberately excluded.
func fingerprint(req models.QuoteRequest) string {
	return fmt.Sprintf("%.6f,%.6f|%.6f,%.6f|%s|%s",
		req.PickupLat, req.PickupLng, req.DropoffLat, req.DropoffLng,
		req.PickupTime, req.TripType)
}

func (c *dedupeCache) Get(key string) (*models.QuoteResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.at) > dedupeTTL {
		return nil, false
	}
	// Every caller gets its own copy; sessions mutate their quotes in place.
	return e.resp.Clone(), true
}

func (c *dedupeCache) Put(key string, resp *models.QuoteResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = dedupeEntry{resp: resp.Clone(), at: c.now()}
	for len(c.order) > dedupeMaxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}
