// Package usgs adapts the USGS earthquake summary GeoJSON feed into hazard
// markers.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/couchcryptid/hazard-atlas/internal/adapter/feed"
	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

const sourceName = "usgs"

// minSeverity is assigned when the feed reports no usable magnitude. A felt
// report with unknown magnitude is still worth surfacing faintly.
const minSeverity = 5.0

// Adapter fetches and normalizes the USGS earthquake feed.
type Adapter struct {
	client *feed.Client
	url    string
	logger *slog.Logger
}

// New creates a USGS adapter reading from the given summary feed URL.
func New(client *feed.Client, url string, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, url: url, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

// Fetch downloads the summary feed and converts each feature into a marker.
func (a *Adapter) Fetch(ctx context.Context) (domain.FetchResult, error) {
	body, err := a.client.Get(ctx, sourceName, a.url, nil)
	if err != nil {
		return domain.FetchResult{}, err
	}

	markers, err := parseFeed(body)
	if err != nil {
		return domain.FetchResult{}, err
	}
	return domain.FetchResult{Markers: markers, Raw: body}, nil
}

func parseFeed(body []byte) ([]domain.Marker, error) {
	var doc struct {
		Features []struct {
			ID         string `json:"id"`
			Properties struct {
				Mag   *float64 `json:"mag"`
				Place string   `json:"place"`
				Time  int64    `json:"time"` // ms since epoch
				URL   string   `json:"url"`
			} `json:"properties"`
			Geometry struct {
				Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse usgs feed: %w", err)
	}

	markers := make([]domain.Marker, 0, len(doc.Features))
	for _, f := range doc.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}

		var mag float64
		if f.Properties.Mag != nil {
			mag = *f.Properties.Mag
		}

		updatedAt := domain.Clock().Now().UTC()
		if f.Properties.Time > 0 {
			updatedAt = time.UnixMilli(f.Properties.Time).UTC()
		}

		title := f.Properties.Place
		if title == "" {
			title = fmt.Sprintf("M%.1f earthquake", mag)
		}

		markers = append(markers, domain.Marker{
			ID:         sourceName + "-" + f.ID,
			HazardType: domain.HazardEarthquake,
			Lat:        f.Geometry.Coordinates[1],
			Lon:        f.Geometry.Coordinates[0],
			Severity:   severityFromMagnitude(mag),
			Weight:     weightFromMagnitude(mag),
			Title:      title,
			UpdatedAt:  updatedAt,
			Source:     domain.Source{Name: "USGS", URL: f.Properties.URL},
		})
	}
	return markers, nil
}

// severityFromMagnitude maps moment magnitude to the 0–100 severity scale
// with a piecewise-linear curve. Breakpoints at 2.5 / 5.0 / 7.0 give the
// mid-scale (where most felt quakes land) the steepest slope while the
// extremes are compressed. Absent or negative magnitude gets the floor.
func severityFromMagnitude(mag float64) float64 {
	switch {
	case math.IsNaN(mag) || mag <= 0:
		return minSeverity
	case mag <= 2.5:
		return domain.ClampSeverity(mag * 10) // 0–25
	case mag <= 5.0:
		return domain.ClampSeverity(25 + (mag-2.5)*14) // 25–60
	case mag <= 7.0:
		return domain.ClampSeverity(60 + (mag-5.0)*15) // 60–90
	default:
		return domain.ClampSeverity(90 + (mag-7.0)*5) // 90–100
	}
}

// weightFromMagnitude derives clustering influence, round(mag×2) with a
// floor of 1.
func weightFromMagnitude(mag float64) int {
	w := int(math.Round(mag * 2))
	if w < 1 {
		return 1
	}
	return w
}
