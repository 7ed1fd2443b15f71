// Package openmeteo implements the risk engine's forecast provider over the
// Open-Meteo forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/hazard-atlas/internal/adapter/feed"
	"github.com/couchcryptid/hazard-atlas/internal/risk"
)

const sourceName = "open-meteo"

// Client fetches hourly forecasts. It implements risk.ForecastProvider.
type Client struct {
	client *feed.Client
	url    string
	logger *slog.Logger
}

// New creates an Open-Meteo client against the given forecast endpoint.
func New(client *feed.Client, url string, logger *slog.Logger) *Client {
	return &Client{client: client, url: url, logger: logger}
}

// Forecast fetches four days of hourly temperature, wind, precipitation
// probability, and weather code for the point — enough to cover the 72-hour
// adjustment window with slack.
func (c *Client) Forecast(ctx context.Context, lat, lon float64) (risk.Forecast, error) {
	body, err := c.client.Get(ctx, sourceName, c.url, map[string]string{
		"latitude":        fmt.Sprintf("%.4f", lat),
		"longitude":       fmt.Sprintf("%.4f", lon),
		"hourly":          "temperature_2m,wind_speed_10m,precipitation_probability,weather_code",
		"wind_speed_unit": "kmh",
		"forecast_days":   "4",
		"timezone":        "UTC",
	})
	if err != nil {
		return risk.Forecast{}, err
	}

	var payload struct {
		Hourly struct {
			Time              []string  `json:"time"`
			Temperature       []float64 `json:"temperature_2m"`
			WindSpeed         []float64 `json:"wind_speed_10m"`
			PrecipProbability []float64 `json:"precipitation_probability"`
			WeatherCode       []int     `json:"weather_code"`
		} `json:"hourly"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return risk.Forecast{}, fmt.Errorf("parse open-meteo response: %w", err)
	}

	h := payload.Hourly
	n := len(h.Time)
	if len(h.Temperature) < n {
		n = len(h.Temperature)
	}
	if len(h.WindSpeed) < n {
		n = len(h.WindSpeed)
	}
	if len(h.PrecipProbability) < n {
		n = len(h.PrecipProbability)
	}
	if len(h.WeatherCode) < n {
		n = len(h.WeatherCode)
	}

	hours := make([]risk.ForecastHour, 0, n)
	for i := 0; i < n; i++ {
		t, err := time.Parse("2006-01-02T15:04", h.Time[i])
		if err != nil {
			continue
		}
		hours = append(hours, risk.ForecastHour{
			Time:              t.UTC(),
			TemperatureC:      h.Temperature[i],
			WindSpeedKmh:      h.WindSpeed[i],
			PrecipProbability: h.PrecipProbability[i],
			WeatherCode:       h.WeatherCode[i],
		})
	}
	return risk.Forecast{Hours: hours}, nil
}
