// Package risk computes composite, explainable hazard risk scores: a live
// mode driven by ingested markers and a prediction mode blending climatology,
// live pressure, and short-range weather forecasts.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-atlas/internal/domain"
	"github.com/couchcryptid/hazard-atlas/internal/observability"
)

// defaultSinceHours is the live-marker recency window, matched to the
// storage retention default.
const defaultSinceHours = 72

// Confidence labels how much supporting data backed a score.
type Confidence string

const (
	ConfidenceLow  Confidence = "LOW"
	ConfidenceMed  Confidence = "MED"
	ConfidenceHigh Confidence = "HIGH"
)

// HazardScore is one hazard type's contribution to a result.
type HazardScore struct {
	HazardType domain.HazardType `json:"hazard_type"`
	Score      int               `json:"score"`
	Drivers    []string          `json:"drivers"`
}

// Result is a composite risk assessment for a queried location. Results are
// pure computations and are never persisted.
type Result struct {
	HazardRiskScore    int           `json:"hazard_risk_score"`
	VulnerabilityScore int           `json:"vulnerability_score"`
	ImpactScore        int           `json:"impact_score"`
	Confidence         Confidence    `json:"confidence"`
	PerHazard          []HazardScore `json:"per_hazard"`
	Notes              []string      `json:"notes,omitempty"`
}

// MarkerSource supplies live markers around a point. Implemented by the
// storage layer, or by the ingestion fast path when persistence is down.
type MarkerSource interface {
	QueryNear(ctx context.Context, lat, lon, radiusKm float64, sinceHours int) ([]domain.Marker, error)
}

// Engine scores locations. forecasts may be nil, which disables weather
// adjustment in prediction mode.
type Engine struct {
	markers    MarkerSource
	forecasts  ForecastProvider
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	sinceHours int
}

// NewEngine creates a risk engine over the given marker source.
func NewEngine(markers MarkerSource, forecasts ForecastProvider, clock clockwork.Clock,
	logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		markers:    markers,
		forecasts:  forecasts,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		sinceHours: defaultSinceHours,
	}
}

type markerDist struct {
	marker domain.Marker
	dist   float64
}

// Score computes the live hazard risk at a point. A failed marker query
// degrades to zero scores with LOW confidence and an explanatory note —
// queries never hard-fail on missing upstream data.
func (e *Engine) Score(ctx context.Context, lat, lon, radiusKm float64) Result {
	e.metrics.RiskQueries.WithLabelValues("live").Inc()

	var notes []string

	// Fetch out to 2× radius: the outer ring counts toward confidence even
	// though only markers inside the radius contribute to scores.
	found, err := e.markers.QueryNear(ctx, lat, lon, 2*radiusKm, e.sinceHours)
	if err != nil {
		e.logger.Warn("marker query failed, scoring degraded", "error", err)
		notes = append(notes, "Marker data unavailable; scores reflect no live events.")
		found = nil
	}

	var inRadius []markerDist
	outerCount := len(found)
	for _, m := range found {
		d := domain.HaversineKm(lat, lon, m.Lat, m.Lon)
		if d <= radiusKm {
			inRadius = append(inRadius, markerDist{marker: m, dist: d})
		}
	}

	perHazard := make([]HazardScore, 0, len(domain.ScorableHazards))
	var nonzero []float64
	for _, hazard := range domain.ScorableHazards {
		score, drivers := liveHazardScore(inRadius, hazard, radiusKm)
		rounded := normalize(score)
		if rounded > 0 {
			nonzero = append(nonzero, float64(rounded))
		}
		perHazard = append(perHazard, HazardScore{HazardType: hazard, Score: rounded, Drivers: drivers})
	}

	hazardRisk := 0
	if len(nonzero) > 0 {
		hazardRisk = normalize(maxOf(nonzero)*0.7 + meanOf(nonzero)*0.3)
	}

	vuln, vulnNote := vulnerabilityScore(lat)
	notes = append(notes, vulnNote)

	return Result{
		HazardRiskScore:    hazardRisk,
		VulnerabilityScore: vuln,
		ImpactScore:        normalize(float64(hazardRisk)*0.6 + float64(vuln)*0.4),
		Confidence:         liveConfidence(outerCount),
		PerHazard:          perHazard,
		Notes:              notes,
	}
}

// liveHazardScore computes one hazard type's raw live score from the markers
// inside the radius. The proximity factor decays linearly from 1 at the
// center to 0 at the edge, and the maximum single contribution dominates:
// one severe nearby event outweighs many minor distant ones. A small count
// bonus rewards clustering with quickly diminishing returns.
func liveHazardScore(markers []markerDist, hazard domain.HazardType, radiusKm float64) (float64, []string) {
	var (
		maxProx  float64
		severity float64
		top      *markerDist
		sumSev   float64
		count    int
	)
	for i := range markers {
		md := markers[i]
		if md.marker.HazardType != hazard {
			continue
		}
		count++
		sumSev += md.marker.Severity

		prox := math.Max(0, 1-md.dist/radiusKm)
		contribution := md.marker.Severity * prox
		if contribution > maxProx || top == nil {
			maxProx = contribution
			severity = md.marker.Severity
			top = &markers[i]
		}
	}

	if count == 0 {
		return 0, []string{"No active events nearby"}
	}

	meanSeverity := sumSev / float64(count)
	countBonus := math.Min(20, float64(count)*3)
	score := maxProx*0.6 + meanSeverity*0.2 + countBonus

	title := top.marker.Title
	if title == "" {
		title = string(hazard) + " event"
	}
	drivers := []string{
		fmt.Sprintf("%s — severity %.0f, %.0f km away", title, severity, top.dist),
		fmt.Sprintf("%d active event(s) within %.0f km", count, radiusKm),
	}
	return score, drivers
}

// liveConfidence tiers on supporting marker volume within 2× the query radius.
func liveConfidence(markersNearby int) Confidence {
	switch {
	case markersNearby > 10:
		return ConfidenceHigh
	case markersNearby > 0:
		return ConfidenceMed
	default:
		return ConfidenceLow
	}
}

// vulnerabilityScore is a coarse population-exposure proxy by latitude band.
// It stands in for a real exposure dataset and is flagged low-confidence in
// every result that carries it.
func vulnerabilityScore(lat float64) (int, string) {
	var score int
	switch BandFor(lat) {
	case BandTropics:
		score = 70
	case BandSubtropicsNorth:
		score = 60
	case BandSubtropicsSouth:
		score = 55
	case BandTemperateNorth:
		score = 50
	case BandTemperateSouth:
		score = 45
	default:
		score = 15
	}
	return score, "Vulnerability is a latitude-band population proxy (low confidence)."
}

// normalize clamps to [0,100] and rounds to an integer score.
func normalize(v float64) int {
	return int(math.Round(domain.ClampSeverity(v)))
}

func maxOf(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func meanOf(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
