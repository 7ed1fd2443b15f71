package ingest

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

func TestCache(t *testing.T) {
	t.Run("empty cache misses", func(t *testing.T) {
		c := NewCache(time.Minute, clockwork.NewFakeClock())

		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("fresh entry hits", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		c := NewCache(time.Minute, clock)
		c.Set([]domain.Marker{marker("m-1", domain.HazardFlood)})

		clock.Advance(59 * time.Second)

		markers, ok := c.Get()
		require.True(t, ok)
		assert.Len(t, markers, 1)
	})

	t.Run("entry expires at exactly the ttl", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		c := NewCache(time.Minute, clock)
		c.Set([]domain.Marker{marker("m-1", domain.HazardFlood)})

		clock.Advance(time.Minute)

		_, ok := c.Get()
		assert.False(t, ok)
	})

	t.Run("set restarts the ttl", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		c := NewCache(time.Minute, clock)
		c.Set([]domain.Marker{marker("m-1", domain.HazardFlood)})

		clock.Advance(50 * time.Second)
		c.Set([]domain.Marker{marker("m-2", domain.HazardFlood)})
		clock.Advance(50 * time.Second)

		markers, ok := c.Get()
		require.True(t, ok)
		assert.Equal(t, "m-2", markers[0].ID)
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		c := NewCache(time.Minute, clock)
		c.Set([]domain.Marker{marker("m-1", domain.HazardFlood)})

		c.Invalidate()

		_, ok := c.Get()
		assert.False(t, ok)
	})
}
