package ingest

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

// Cache holds the merged marker set for the persistence-free fast path.
// It is shared across requests, so access is mutex-guarded; the clock is
// injected so TTL behavior is testable with frozen time.
type Cache struct {
	mu        sync.Mutex
	ttl       time.Duration
	clock     clockwork.Clock
	markers   []domain.Marker
	fetchedAt time.Time
}

// NewCache creates a marker cache with the given TTL.
func NewCache(ttl time.Duration, clock clockwork.Clock) *Cache {
	return &Cache{ttl: ttl, clock: clock}
}

// Get returns the cached markers if they are fresh.
func (c *Cache) Get() ([]domain.Marker, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fetchedAt.IsZero() || c.clock.Now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.markers, true
}

// Set replaces the cached markers and restarts the TTL.
func (c *Cache) Set(markers []domain.Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markers = markers
	c.fetchedAt = c.clock.Now()
}

// Invalidate drops the cached markers. Called after every ingestion run so
// the fast path never serves data older than storage.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markers = nil
	c.fetchedAt = time.Time{}
}
