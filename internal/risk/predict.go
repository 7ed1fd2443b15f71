package risk

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

// forecastHorizonDays is the longest horizon at which a weather forecast is
// still applied. Beyond it the seasonal baseline alone is authoritative.
const forecastHorizonDays = 7

// liveBlendWeight damps how strongly current hazard pressure leaks into a
// forward-looking score.
const liveBlendWeight = 0.3

// Predict computes a forward-looking risk score for the horizon in days
// (typically 7, 30, or 90). monthOverride, when non-nil, replaces the
// current month in the seasonal lookup — useful for "what does next July
// look like" queries.
func (e *Engine) Predict(ctx context.Context, lat, lon, radiusKm float64, horizonDays int, monthOverride *time.Month) Result {
	e.metrics.RiskQueries.WithLabelValues("prediction").Inc()

	if horizonDays <= 0 {
		horizonDays = forecastHorizonDays
	}

	month := e.clock.Now().UTC().Month()
	if monthOverride != nil {
		month = *monthOverride
	}
	band := BandFor(lat)

	var notes []string

	// Live hazard pressure, damped. A read failure degrades to
	// baseline-only rather than failing the prediction.
	liveScores := make(map[domain.HazardType]float64)
	found, err := e.markers.QueryNear(ctx, lat, lon, radiusKm, e.sinceHours)
	if err != nil {
		e.logger.Warn("marker query failed, predicting from baseline only", "error", err)
		notes = append(notes, "Live marker data unavailable; prediction is climatology-only.")
		found = nil
	}
	var inRadius []markerDist
	for _, m := range found {
		d := domain.HaversineKm(lat, lon, m.Lat, m.Lon)
		if d <= radiusKm {
			inRadius = append(inRadius, markerDist{marker: m, dist: d})
		}
	}
	for _, hazard := range domain.ScorableHazards {
		score, _ := liveHazardScore(inRadius, hazard, radiusKm)
		liveScores[hazard] = score
	}

	// Weather adjustment applies only inside the forecast horizon.
	var adj Adjustment
	forecastAvailable := false
	if horizonDays <= forecastHorizonDays && e.forecasts != nil {
		forecast, err := e.forecasts.Forecast(ctx, lat, lon)
		if err != nil {
			e.metrics.ForecastRequests.WithLabelValues("error").Inc()
			e.logger.Warn("forecast fetch failed", "error", err)
			notes = append(notes, "Weather forecast unavailable; prediction omits short-range adjustment.")
		} else {
			e.metrics.ForecastRequests.WithLabelValues("success").Inc()
			adj = ComputeAdjustment(forecast)
			forecastAvailable = true
		}
	} else if horizonDays > forecastHorizonDays {
		notes = append(notes, fmt.Sprintf(
			"Forecast data only informs horizons up to %d days; this %d-day outlook rests on seasonal climatology.",
			forecastHorizonDays, horizonDays))
	}

	// Uncertainty widens with the horizon, up to +30% at 90 days.
	uncertainty := 1.0
	if horizonDays > forecastHorizonDays {
		uncertainty = 1 + float64(horizonDays-forecastHorizonDays)/90*0.3
	}

	perHazard := make([]HazardScore, 0, len(domain.ScorableHazards))
	var sum float64
	var maxNonzero float64
	for _, hazard := range domain.ScorableHazards {
		base := SeasonalBaseline(hazard, band, month)
		raw := base.Score + liveScores[hazard]*liveBlendWeight

		drivers := []string{base.Driver}
		if liveScores[hazard] > 0 {
			drivers = append(drivers, "elevated by current hazard activity nearby")
		}
		if forecastAvailable {
			if bonus := weatherBonus(hazard, adj); bonus > 0 {
				raw += bonus
				drivers = append(drivers, "forecast: "+adj.Explanation)
			}
		}

		score := normalize(raw * uncertainty)
		sum += float64(score)
		if float64(score) > maxNonzero {
			maxNonzero = float64(score)
		}
		perHazard = append(perHazard, HazardScore{HazardType: hazard, Score: score, Drivers: drivers})
	}

	// Unlike live mode, the mean divides by all five hazard types: a
	// prediction describes the whole risk landscape, not only active alarms.
	hazardRisk := 0
	if maxNonzero > 0 {
		mean := sum / float64(len(domain.ScorableHazards))
		hazardRisk = normalize(maxNonzero*0.7 + mean*0.3)
	}

	vuln, vulnNote := vulnerabilityScore(lat)
	notes = append(notes, vulnNote)

	confidence := ConfidenceLow
	if forecastAvailable {
		confidence = ConfidenceMed
	}

	return Result{
		HazardRiskScore:    hazardRisk,
		VulnerabilityScore: vuln,
		ImpactScore:        normalize(float64(hazardRisk)*0.6 + float64(vuln)*0.4),
		Confidence:         confidence,
		PerHazard:          perHazard,
		Notes:              notes,
	}
}

// weatherBonus routes forecast factors to the hazard types they load on.
func weatherBonus(hazard domain.HazardType, adj Adjustment) float64 {
	switch hazard {
	case domain.HazardWildfire:
		return adj.HeatStress*0.5 + adj.WindRisk*0.3
	case domain.HazardFlood:
		return adj.PrecipRisk * 0.6
	case domain.HazardCyclone, domain.HazardTornado:
		return adj.StormRisk*0.5 + adj.WindRisk*0.3
	default:
		return 0
	}
}
