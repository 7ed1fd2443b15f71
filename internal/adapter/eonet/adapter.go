// Package eonet adapts the NASA EONET multi-category event tracker into
// hazard markers. EONET events accumulate dated geometry samples over their
// lifetime; only the most recent sample is used.
package eonet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-atlas/internal/adapter/feed"
	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

const sourceName = "eonet"

// defaultSeverity is used when an event carries no magnitude value.
const defaultSeverity = 30.0

// categoryHazards maps EONET category ids to hazard types. Categories not
// listed here (volcanoes, sea ice, ...) fall back to HazardOther.
var categoryHazards = map[string]domain.HazardType{
	"wildfires":    domain.HazardWildfire,
	"floods":       domain.HazardFlood,
	"earthquakes":  domain.HazardEarthquake,
	"severeStorms": domain.HazardCyclone,
	"tornadoes":    domain.HazardTornado,
}

// Adapter fetches and normalizes open EONET events.
type Adapter struct {
	client *feed.Client
	url    string
	logger *slog.Logger
}

// New creates an EONET adapter reading from the given events endpoint.
func New(client *feed.Client, url string, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, url: url, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

// Fetch downloads open events and converts each into a marker positioned at
// its latest geometry sample.
func (a *Adapter) Fetch(ctx context.Context) (domain.FetchResult, error) {
	body, err := a.client.Get(ctx, sourceName, a.url, map[string]string{
		"status": "open",
	})
	if err != nil {
		return domain.FetchResult{}, err
	}

	markers, err := a.parseEvents(body)
	if err != nil {
		return domain.FetchResult{}, err
	}
	return domain.FetchResult{Markers: markers, Raw: body}, nil
}

type eventDoc struct {
	Events []event `json:"events"`
}

type event struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Categories []struct {
		ID string `json:"id"`
	} `json:"categories"`
	Sources []struct {
		URL string `json:"url"`
	} `json:"sources"`
	Geometry []geometrySample `json:"geometry"`
}

type geometrySample struct {
	Date           string          `json:"date"`
	Type           string          `json:"type"`
	Coordinates    json.RawMessage `json:"coordinates"`
	MagnitudeValue *float64        `json:"magnitudeValue"`
	MagnitudeUnit  string          `json:"magnitudeUnit"`
}

func (a *Adapter) parseEvents(body []byte) ([]domain.Marker, error) {
	var doc eventDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse eonet feed: %w", err)
	}

	markers := make([]domain.Marker, 0, len(doc.Events))
	for _, ev := range doc.Events {
		marker, ok := a.eventToMarker(ev)
		if !ok {
			continue
		}
		markers = append(markers, marker)
	}
	return markers, nil
}

func (a *Adapter) eventToMarker(ev event) (domain.Marker, bool) {
	sample, updatedAt, ok := latestSample(ev.Geometry)
	if !ok {
		return domain.Marker{}, false
	}

	lat, lon, geom, err := decodeGeometry(sample)
	if err != nil {
		a.logger.Warn("eonet geometry skipped", "event_id", ev.ID, "error", err)
		return domain.Marker{}, false
	}

	hazard := domain.HazardOther
	if len(ev.Categories) > 0 {
		if h, found := categoryHazards[ev.Categories[0].ID]; found {
			hazard = h
		}
	}

	sourceURL := ""
	if len(ev.Sources) > 0 {
		sourceURL = ev.Sources[0].URL
	}

	return domain.Marker{
		ID:         sourceName + "-" + ev.ID,
		HazardType: hazard,
		Lat:        lat,
		Lon:        lon,
		Severity:   severityForCategory(hazard, sample.MagnitudeValue),
		Weight:     1,
		Title:      ev.Title,
		UpdatedAt:  updatedAt,
		Source:     domain.Source{Name: "NASA EONET", URL: sourceURL},
		Geometry:   geom,
	}, true
}

// latestSample picks the geometry entry with the most recent date. Samples
// with unparsable dates are ignored; if none parse, the last entry wins
// since EONET appends samples chronologically.
func latestSample(samples []geometrySample) (geometrySample, time.Time, bool) {
	if len(samples) == 0 {
		return geometrySample{}, time.Time{}, false
	}

	best := -1
	var bestTime time.Time
	for i, s := range samples {
		t, err := time.Parse(time.RFC3339, s.Date)
		if err != nil {
			continue
		}
		if best == -1 || t.After(bestTime) {
			best = i
			bestTime = t.UTC()
		}
	}
	if best == -1 {
		return samples[len(samples)-1], domain.Clock().Now().UTC(), true
	}
	return samples[best], bestTime, true
}

// decodeGeometry extracts a representative coordinate (and optional polygon
// outline) from an EONET geometry sample. Points are [lon, lat]; polygons
// use their first ring, positioned at the ring centroid.
func decodeGeometry(sample geometrySample) (lat, lon float64, geom *domain.Geometry, err error) {
	switch sample.Type {
	case "Point":
		var pt []float64
		if err := json.Unmarshal(sample.Coordinates, &pt); err != nil || len(pt) < 2 {
			return 0, 0, nil, fmt.Errorf("malformed point coordinates")
		}
		return pt[1], pt[0], nil, nil

	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(sample.Coordinates, &rings); err != nil || len(rings) == 0 || len(rings[0]) == 0 {
			return 0, 0, nil, fmt.Errorf("malformed polygon coordinates")
		}
		ring := rings[0]
		var sumLat, sumLon float64
		for _, pt := range ring {
			if len(pt) < 2 {
				return 0, 0, nil, fmt.Errorf("malformed polygon vertex")
			}
			sumLon += pt[0]
			sumLat += pt[1]
		}
		n := float64(len(ring))
		return sumLat / n, sumLon / n, &domain.Geometry{Type: "Polygon", Coordinates: ring}, nil

	default:
		return 0, 0, nil, fmt.Errorf("unsupported geometry type %q", sample.Type)
	}
}

// severityForCategory maps an event magnitude to severity with a
// category-specific formula. Units differ per category (acres burned for
// wildfires, kts for storms, Mw for quakes), hence the separate scales.
// Events without a magnitude get a fixed default.
func severityForCategory(hazard domain.HazardType, magnitude *float64) float64 {
	if magnitude == nil {
		return defaultSeverity
	}
	mag := *magnitude

	var s float64
	switch hazard {
	case domain.HazardWildfire:
		s = mag / 5
	case domain.HazardEarthquake:
		s = mag * 12
	case domain.HazardCyclone, domain.HazardTornado:
		s = 40 + mag*0.3
	default:
		s = 30 + mag*0.5
	}
	return domain.ClampSeverity(s)
}
