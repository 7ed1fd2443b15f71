// Command score computes a risk score for a location against the local
// marker database. Useful for spot checks without the query gateway:
//
//	score -lat 34.05 -lon -118.24 -radius 50
//	score -lat 34.05 -lon -118.24 -mode prediction -horizon 30 -month 7
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-atlas/internal/adapter/feed"
	"github.com/couchcryptid/hazard-atlas/internal/adapter/openmeteo"
	"github.com/couchcryptid/hazard-atlas/internal/config"
	"github.com/couchcryptid/hazard-atlas/internal/observability"
	"github.com/couchcryptid/hazard-atlas/internal/risk"
	"github.com/couchcryptid/hazard-atlas/internal/storage"
)

func main() {
	var (
		lat     = flag.Float64("lat", 0, "query latitude")
		lon     = flag.Float64("lon", 0, "query longitude")
		radius  = flag.Float64("radius", 50, "query radius in km")
		mode    = flag.String("mode", "live", "scoring mode: live or prediction")
		horizon = flag.Int("horizon", 7, "prediction horizon in days (7/30/90)")
		month   = flag.Int("month", 0, "month override for prediction (1-12, 0 = current)")
	)
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, "text")
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	store, err := storage.Open(cfg.DBPath, cfg.Retention(), clock, logger, metrics)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open storage:", err)
		os.Exit(1)
	}
	defer store.Close()

	forecasts := openmeteo.New(feed.NewClient(cfg.ForecastTimeout, logger), cfg.OpenMeteoURL, logger)
	engine := risk.NewEngine(store, forecasts, clock, logger, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var result risk.Result
	switch *mode {
	case "live":
		result = engine.Score(ctx, *lat, *lon, *radius)
	case "prediction":
		var override *time.Month
		if *month >= 1 && *month <= 12 {
			m := time.Month(*month)
			override = &m
		}
		result = engine.Predict(ctx, *lat, *lon, *radius, *horizon, override)
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Error("marshal result", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
