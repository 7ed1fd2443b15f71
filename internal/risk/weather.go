package risk

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// adjustmentWindowHours bounds how far into the forecast the adjustment
// looks. Beyond ~3 days forecast skill drops off and the seasonal baseline
// is authoritative.
const adjustmentWindowHours = 72

// ForecastHour is one hour of a weather forecast in normalized units.
type ForecastHour struct {
	Time              time.Time
	TemperatureC      float64
	WindSpeedKmh      float64
	PrecipProbability float64 // percent, 0–100
	WeatherCode       int     // WMO weather interpretation code
}

// Forecast is an hourly forecast series for a point.
type Forecast struct {
	Hours []ForecastHour
}

// ForecastProvider fetches a short-range hourly forecast. A nil provider
// disables weather adjustment; prediction degrades to baseline-only with
// LOW confidence.
type ForecastProvider interface {
	Forecast(ctx context.Context, lat, lon float64) (Forecast, error)
}

// Adjustment holds the forecast-derived bonus per weather factor. Each bonus
// is independently capped, so a simultaneously hot, windy, stormy forecast
// contributes through several hazard channels but no single factor runs away.
type Adjustment struct {
	HeatStress  float64
	WindRisk    float64
	PrecipRisk  float64
	StormRisk   float64
	Explanation string
}

// ComputeAdjustment reduces the first 72 forecast hours to capped per-factor
// bonuses. Thresholds: heat above 35 °C, wind above 60 km/h, precipitation
// probability above 70%, any thunderstorm weather code. A factor below its
// threshold contributes zero and is omitted from the explanation.
func ComputeAdjustment(f Forecast) Adjustment {
	hours := f.Hours
	if len(hours) > adjustmentWindowHours {
		hours = hours[:adjustmentWindowHours]
	}

	var (
		maxTemp   = math.Inf(-1)
		maxWind   float64
		maxPrecip float64
		stormy    bool
	)
	for _, h := range hours {
		maxTemp = math.Max(maxTemp, h.TemperatureC)
		maxWind = math.Max(maxWind, h.WindSpeedKmh)
		maxPrecip = math.Max(maxPrecip, h.PrecipProbability)
		if h.WeatherCode >= 95 && h.WeatherCode <= 99 {
			stormy = true
		}
	}

	var adj Adjustment
	var parts []string

	if len(hours) > 0 && maxTemp > 35 {
		adj.HeatStress = math.Min(30, (maxTemp-35)*5)
		parts = append(parts, fmt.Sprintf("peak %.0f°C heat", maxTemp))
	}
	if maxWind > 60 {
		adj.WindRisk = math.Min(30, (maxWind-60)*0.75)
		parts = append(parts, fmt.Sprintf("winds to %.0f km/h", maxWind))
	}
	if maxPrecip > 70 {
		adj.PrecipRisk = math.Min(30, maxPrecip-70)
		parts = append(parts, fmt.Sprintf("%.0f%% precipitation probability", maxPrecip))
	}
	if stormy {
		adj.StormRisk = 15
		parts = append(parts, "thunderstorms forecast")
	}

	adj.Explanation = strings.Join(parts, ", ")
	return adj
}
