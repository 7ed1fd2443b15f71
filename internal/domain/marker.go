package domain

import (
	"time"
)

// HazardType classifies a marker into one of the tracked hazard categories.
type HazardType string

const (
	HazardWildfire   HazardType = "wildfire"
	HazardFlood      HazardType = "flood"
	HazardEarthquake HazardType = "earthquake"
	HazardCyclone    HazardType = "cyclone"
	HazardTornado    HazardType = "tornado"
	HazardOther      HazardType = "other"
)

// ScorableHazards lists the hazard types the risk engine scores. HazardOther
// is stored and queryable but carries no scoring model.
var ScorableHazards = []HazardType{
	HazardWildfire,
	HazardFlood,
	HazardEarthquake,
	HazardCyclone,
	HazardTornado,
}

// Valid reports whether t is one of the known hazard types.
func (t HazardType) Valid() bool {
	switch t {
	case HazardWildfire, HazardFlood, HazardEarthquake, HazardCyclone, HazardTornado, HazardOther:
		return true
	}
	return false
}

// Source identifies the upstream provider a marker came from.
type Source struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// Geometry is an optional point or polygon outline attached to a marker.
// Coordinates are [lon, lat] pairs, GeoJSON order.
type Geometry struct {
	Type        string      `json:"type"` // "Point" or "Polygon"
	Coordinates [][]float64 `json:"coordinates"`
}

// Marker is the normalized hazard event record shared by all adapters.
// Severity is always within [0,100]; ids are stable per source+native id so
// re-ingesting the same upstream event overwrites rather than duplicates.
type Marker struct {
	ID         string     `json:"id"`
	HazardType HazardType `json:"hazard_type"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	Severity   float64    `json:"severity"`
	Weight     int        `json:"weight"`
	Title      string     `json:"title,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Source     Source     `json:"source"`
	Geometry   *Geometry  `json:"geometry,omitempty"`
}

// FetchResult is what a source adapter hands back to the orchestrator:
// normalized markers plus the raw payload for the archival sink. Raw is nil
// when the fetch failed or the provider returned nothing.
type FetchResult struct {
	Markers []Marker
	Raw     []byte
}

// ClampSeverity forces a severity value into the [0,100] invariant. NaN and
// negative inputs collapse to 0.
func ClampSeverity(s float64) float64 {
	if s != s || s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
