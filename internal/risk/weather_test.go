package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func hoursOf(hours ...ForecastHour) Forecast {
	return Forecast{Hours: hours}
}

func TestComputeAdjustment(t *testing.T) {
	t.Run("calm forecast contributes nothing", func(t *testing.T) {
		adj := ComputeAdjustment(hoursOf(
			ForecastHour{TemperatureC: 22, WindSpeedKmh: 15, PrecipProbability: 20, WeatherCode: 1},
		))

		assert.Zero(t, adj.HeatStress)
		assert.Zero(t, adj.WindRisk)
		assert.Zero(t, adj.PrecipRisk)
		assert.Zero(t, adj.StormRisk)
		assert.Empty(t, adj.Explanation)
	})

	t.Run("factors scale above their thresholds", func(t *testing.T) {
		adj := ComputeAdjustment(hoursOf(
			ForecastHour{TemperatureC: 39, WindSpeedKmh: 80, PrecipProbability: 85},
		))

		assert.InDelta(t, 20, adj.HeatStress, 1e-9) // (39-35)*5
		assert.InDelta(t, 15, adj.WindRisk, 1e-9)   // (80-60)*0.75
		assert.InDelta(t, 15, adj.PrecipRisk, 1e-9) // 85-70
	})

	t.Run("each factor caps at 30", func(t *testing.T) {
		adj := ComputeAdjustment(hoursOf(
			ForecastHour{TemperatureC: 55, WindSpeedKmh: 200, PrecipProbability: 100},
		))

		assert.InDelta(t, 30, adj.HeatStress, 1e-9)
		assert.InDelta(t, 30, adj.WindRisk, 1e-9)
		assert.InDelta(t, 30, adj.PrecipRisk, 1e-9)
	})

	t.Run("thunderstorm codes set a flat storm bonus", func(t *testing.T) {
		for _, code := range []int{95, 96, 99} {
			adj := ComputeAdjustment(hoursOf(ForecastHour{WeatherCode: code}))
			assert.InDelta(t, 15, adj.StormRisk, 1e-9, "code %d", code)
		}

		adj := ComputeAdjustment(hoursOf(ForecastHour{WeatherCode: 80}))
		assert.Zero(t, adj.StormRisk)
	})

	t.Run("peak across hours wins", func(t *testing.T) {
		adj := ComputeAdjustment(hoursOf(
			ForecastHour{TemperatureC: 28},
			ForecastHour{TemperatureC: 41},
			ForecastHour{TemperatureC: 33},
		))

		assert.InDelta(t, 30, adj.HeatStress, 1e-9) // (41-35)*5
	})

	t.Run("hours beyond the window are ignored", func(t *testing.T) {
		base := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
		hours := make([]ForecastHour, 0, 96)
		for i := 0; i < 96; i++ {
			h := ForecastHour{Time: base.Add(time.Duration(i) * time.Hour), TemperatureC: 20}
			if i >= adjustmentWindowHours {
				h.TemperatureC = 45 // heat wave only past the window
			}
			hours = append(hours, h)
		}

		adj := ComputeAdjustment(Forecast{Hours: hours})
		assert.Zero(t, adj.HeatStress)
	})

	t.Run("explanation names only triggered factors", func(t *testing.T) {
		adj := ComputeAdjustment(hoursOf(
			ForecastHour{TemperatureC: 38, WindSpeedKmh: 20, PrecipProbability: 30, WeatherCode: 95},
		))

		assert.Contains(t, adj.Explanation, "38°C heat")
		assert.Contains(t, adj.Explanation, "thunderstorms forecast")
		assert.NotContains(t, adj.Explanation, "km/h")
		assert.NotContains(t, adj.Explanation, "precipitation")
	})

	t.Run("empty forecast", func(t *testing.T) {
		adj := ComputeAdjustment(Forecast{})
		assert.Zero(t, adj.HeatStress)
		assert.Empty(t, adj.Explanation)
	})
}
