package usgs

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-atlas/internal/adapter/feed"
	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

const feedFixture = `{
	"features": [
		{
			"id": "us7000abcd",
			"properties": {"mag": 5.4, "place": "12 km NE of Ridgecrest, CA", "time": 1714137000000, "url": "https://earthquake.usgs.gov/eq/us7000abcd"},
			"geometry": {"coordinates": [-117.54, 35.71, 8.2]}
		},
		{
			"id": "us7000wxyz",
			"properties": {"mag": null, "place": "offshore", "time": 0},
			"geometry": {"coordinates": [142.1, 38.3, 30.0]}
		},
		{
			"id": "us7000nogeo",
			"properties": {"mag": 3.0, "place": "nowhere"},
			"geometry": {"coordinates": []}
		}
	]
}`

func TestFetch(t *testing.T) {
	t.Run("parses features into markers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(feedFixture)) //nolint:errcheck
		}))
		defer srv.Close()

		a := New(feed.NewClient(5*time.Second, slog.Default()), srv.URL, slog.Default())
		result, err := a.Fetch(context.Background())

		require.NoError(t, err)
		require.Len(t, result.Markers, 2, "feature without coordinates is skipped")
		assert.NotNil(t, result.Raw)

		m := result.Markers[0]
		assert.Equal(t, "usgs-us7000abcd", m.ID)
		assert.Equal(t, domain.HazardEarthquake, m.HazardType)
		assert.Equal(t, 35.71, m.Lat)
		assert.Equal(t, -117.54, m.Lon)
		assert.Equal(t, "12 km NE of Ridgecrest, CA", m.Title)
		assert.Equal(t, 11, m.Weight) // round(5.4*2)
		assert.Equal(t, time.UnixMilli(1714137000000).UTC(), m.UpdatedAt)
		assert.Equal(t, "USGS", m.Source.Name)
	})

	t.Run("absent magnitude gets floor severity", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(feedFixture)) //nolint:errcheck
		}))
		defer srv.Close()

		a := New(feed.NewClient(5*time.Second, slog.Default()), srv.URL, slog.Default())
		result, err := a.Fetch(context.Background())

		require.NoError(t, err)
		m := result.Markers[1]
		assert.Equal(t, minSeverity, m.Severity)
		assert.Equal(t, 1, m.Weight)
	})

	t.Run("upstream error returns error, no markers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		a := New(feed.NewClient(5*time.Second, slog.Default()), srv.URL, slog.Default())
		result, err := a.Fetch(context.Background())

		require.Error(t, err)
		assert.Empty(t, result.Markers)
		assert.Nil(t, result.Raw)
	})

	t.Run("malformed payload returns error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("{not json")) //nolint:errcheck
		}))
		defer srv.Close()

		a := New(feed.NewClient(5*time.Second, slog.Default()), srv.URL, slog.Default())
		_, err := a.Fetch(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse usgs feed")
	})
}

func TestSeverityFromMagnitude(t *testing.T) {
	t.Run("always within severity bounds", func(t *testing.T) {
		for _, mag := range []float64{math.Inf(-1), -5, 0, 0.1, 2.5, 4.9, 5.0, 6.99, 7.0, 9.5, 12, math.Inf(1), math.NaN()} {
			s := severityFromMagnitude(mag)
			assert.GreaterOrEqual(t, s, 0.0, "mag %v", mag)
			assert.LessOrEqual(t, s, 100.0, "mag %v", mag)
		}
	})

	t.Run("monotonic in magnitude", func(t *testing.T) {
		prev := severityFromMagnitude(0.1)
		for mag := 0.2; mag <= 10; mag += 0.1 {
			s := severityFromMagnitude(mag)
			assert.GreaterOrEqual(t, s, prev, "mag %.1f", mag)
			prev = s
		}
	})

	t.Run("continuous at breakpoints", func(t *testing.T) {
		for _, bp := range []float64{2.5, 5.0, 7.0} {
			below := severityFromMagnitude(bp - 1e-9)
			above := severityFromMagnitude(bp + 1e-9)
			assert.InDelta(t, below, above, 1e-6, "breakpoint %.1f", bp)
		}
	})

	t.Run("curve anchors", func(t *testing.T) {
		assert.InDelta(t, 25, severityFromMagnitude(2.5), 1e-9)
		assert.InDelta(t, 60, severityFromMagnitude(5.0), 1e-9)
		assert.InDelta(t, 90, severityFromMagnitude(7.0), 1e-9)
		assert.Equal(t, 100.0, severityFromMagnitude(9.5))
	})

	t.Run("negative magnitude gets floor", func(t *testing.T) {
		assert.Equal(t, minSeverity, severityFromMagnitude(-1.2))
	})
}

func TestWeightFromMagnitude(t *testing.T) {
	assert.Equal(t, 1, weightFromMagnitude(0))
	assert.Equal(t, 1, weightFromMagnitude(-3))
	assert.Equal(t, 5, weightFromMagnitude(2.5))
	assert.Equal(t, 14, weightFromMagnitude(7.2))
}
