// Package firms adapts NASA FIRMS satellite fire-hotspot CSV data into
// hazard markers. Raw detections arrive per satellite pixel, thousands per
// active region, so they are grid-clustered to ~0.1° (~11 km) cells and one
// marker is emitted per cell.
package firms

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/hazard-atlas/internal/adapter/feed"
	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

const sourceName = "firms"

// Adapter fetches and clusters the FIRMS hotspot CSV.
type Adapter struct {
	client *feed.Client
	url    string
	mapKey string
	logger *slog.Logger
}

// New creates a FIRMS adapter. mapKey is the FIRMS API credential.
func New(client *feed.Client, url, mapKey string, logger *slog.Logger) *Adapter {
	return &Adapter{client: client, url: url, mapKey: mapKey, logger: logger}
}

func (a *Adapter) Name() string { return sourceName }

// Fetch downloads the hotspot CSV and emits one marker per occupied grid cell.
func (a *Adapter) Fetch(ctx context.Context) (domain.FetchResult, error) {
	body, err := a.client.Get(ctx, sourceName, a.url, map[string]string{
		"MAP_KEY": a.mapKey,
	})
	if err != nil {
		return domain.FetchResult{}, err
	}

	detections, err := ParseCSV(body)
	if err != nil {
		return domain.FetchResult{}, err
	}

	return domain.FetchResult{Markers: ClusterDetections(detections), Raw: body}, nil
}

// Detection is one satellite hotspot pixel.
type Detection struct {
	Lat        float64
	Lon        float64
	FRP        float64 // fire radiative power, MW
	Confidence ConfidenceClass
	DetectedAt time.Time
}

// ConfidenceClass is the FIRMS detection confidence level.
type ConfidenceClass int

const (
	ConfidenceLow ConfidenceClass = iota
	ConfidenceNominal
	ConfidenceHigh
)

// Multiplier scales cluster severity by detection confidence.
func (c ConfidenceClass) Multiplier() float64 {
	switch c {
	case ConfidenceLow:
		return 0.7
	case ConfidenceHigh:
		return 1.1
	default:
		return 1.0
	}
}

var requiredColumns = []string{"latitude", "longitude", "frp", "confidence", "acq_date", "acq_time"}

// ParseCSV parses the FIRMS delimited payload under a strict column contract.
// A header missing any required column, or any malformed row, fails the whole
// parse — schema drift fails closed rather than silently emitting corrupt
// markers.
func ParseCSV(body []byte) ([]Detection, error) {
	r := csv.NewReader(strings.NewReader(string(body)))
	r.FieldsPerRecord = 0 // every row must match the header width

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse firms csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parse firms csv: empty payload")
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("parse firms csv: missing column %q", name)
		}
	}

	detections := make([]Detection, 0, len(rows)-1)
	for n, row := range rows[1:] {
		d, err := parseRow(row, col)
		if err != nil {
			return nil, fmt.Errorf("parse firms csv: row %d: %w", n+2, err)
		}
		detections = append(detections, d)
	}
	return detections, nil
}

func parseRow(row []string, col map[string]int) (Detection, error) {
	lat, err := strconv.ParseFloat(row[col["latitude"]], 64)
	if err != nil {
		return Detection{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(row[col["longitude"]], 64)
	if err != nil {
		return Detection{}, fmt.Errorf("longitude: %w", err)
	}
	frp, err := strconv.ParseFloat(row[col["frp"]], 64)
	if err != nil {
		return Detection{}, fmt.Errorf("frp: %w", err)
	}
	conf, err := parseConfidence(row[col["confidence"]])
	if err != nil {
		return Detection{}, err
	}
	detectedAt, err := parseAcqTime(row[col["acq_date"]], row[col["acq_time"]])
	if err != nil {
		return Detection{}, err
	}

	return Detection{Lat: lat, Lon: lon, FRP: frp, Confidence: conf, DetectedAt: detectedAt}, nil
}

// parseConfidence accepts both encodings FIRMS uses: l/n/h letters (VIIRS)
// and 0–100 percentages (MODIS).
func parseConfidence(value string) (ConfidenceClass, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "l", "low":
		return ConfidenceLow, nil
	case "n", "nominal":
		return ConfidenceNominal, nil
	case "h", "high":
		return ConfidenceHigh, nil
	}
	pct, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return ConfidenceLow, fmt.Errorf("confidence: unrecognized value %q", value)
	}
	switch {
	case pct < 30:
		return ConfidenceLow, nil
	case pct < 80:
		return ConfidenceNominal, nil
	default:
		return ConfidenceHigh, nil
	}
}

// parseAcqTime combines acq_date ("2026-08-28") with acq_time ("HHMM",
// sometimes three digits) into a UTC timestamp.
func parseAcqTime(date, hhmm string) (time.Time, error) {
	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) == 3 {
		hhmm = "0" + hhmm
	}
	t, err := time.Parse("2006-01-02 1504", strings.TrimSpace(date)+" "+hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("acq time: %w", err)
	}
	return t.UTC(), nil
}

// cellKey buckets a coordinate by rounding to 0.1° in each axis.
type cellKey struct {
	lat10 int
	lon10 int
}

func keyFor(lat, lon float64) cellKey {
	return cellKey{lat10: int(math.Round(lat * 10)), lon10: int(math.Round(lon * 10))}
}

type cell struct {
	sumLat, sumLon float64
	sumFRP         float64
	count          int
	confidence     ConfidenceClass
	latest         time.Time
}

// ClusterDetections groups detections into 0.1° grid cells and emits one
// marker per cell: centroid is the mean coordinate, severity comes from the
// mean radiative power scaled by the highest confidence class present, and
// weight is the detection count. Marker count is therefore bounded by the
// number of occupied cells, never by raw detection volume.
func ClusterDetections(detections []Detection) []domain.Marker {
	cells := make(map[cellKey]*cell)
	for _, d := range detections {
		k := keyFor(d.Lat, d.Lon)
		c, ok := cells[k]
		if !ok {
			c = &cell{}
			cells[k] = c
		}
		c.sumLat += d.Lat
		c.sumLon += d.Lon
		c.sumFRP += d.FRP
		c.count++
		if d.Confidence > c.confidence {
			c.confidence = d.Confidence
		}
		if d.DetectedAt.After(c.latest) {
			c.latest = d.DetectedAt
		}
	}

	keys := make([]cellKey, 0, len(cells))
	for k := range cells {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lat10 != keys[j].lat10 {
			return keys[i].lat10 < keys[j].lat10
		}
		return keys[i].lon10 < keys[j].lon10
	})

	markers := make([]domain.Marker, 0, len(keys))
	for _, k := range keys {
		c := cells[k]
		n := float64(c.count)
		meanFRP := c.sumFRP / n

		updatedAt := c.latest
		if updatedAt.IsZero() {
			updatedAt = domain.Clock().Now().UTC()
		}

		markers = append(markers, domain.Marker{
			ID:         fmt.Sprintf("%s-%d:%d", sourceName, k.lat10, k.lon10),
			HazardType: domain.HazardWildfire,
			Lat:        c.sumLat / n,
			Lon:        c.sumLon / n,
			Severity:   severityFromFRP(meanFRP, c.confidence),
			Weight:     c.count,
			Title:      fmt.Sprintf("Fire hotspot cluster (%d detections)", c.count),
			UpdatedAt:  updatedAt,
			Source:     domain.Source{Name: "NASA FIRMS", URL: "https://firms.modaps.eosdis.nasa.gov"},
		})
	}
	return markers
}

// severityFromFRP maps mean fire radiative power (MW) to severity with a
// piecewise curve, then scales by the confidence multiplier. Small grass
// fires sit around a few MW; intense crown fires exceed 100 MW per pixel.
func severityFromFRP(frp float64, conf ConfidenceClass) float64 {
	var base float64
	switch {
	case math.IsNaN(frp) || frp <= 0:
		base = 20
	case frp <= 20:
		base = 20 + frp // 20–40
	case frp <= 100:
		base = 40 + (frp-20)*0.375 // 40–70
	default:
		base = 70 + (frp-100)*0.1 // 70–100, capped by clamp
	}
	return domain.ClampSeverity(base * conf.Multiplier())
}
