package firms

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

const csvHeader = "latitude,longitude,bright_ti4,acq_date,acq_time,confidence,frp\n"

func TestParseCSV(t *testing.T) {
	t.Run("valid rows", func(t *testing.T) {
		payload := csvHeader +
			"34.1234,-118.5678,330.1,2026-08-28,0130,h,45.2\n" +
			"-12.5,131.1,305.0,2026-08-28,945,n,8.0\n"

		detections, err := ParseCSV([]byte(payload))

		require.NoError(t, err)
		require.Len(t, detections, 2)
		assert.Equal(t, 34.1234, detections[0].Lat)
		assert.Equal(t, -118.5678, detections[0].Lon)
		assert.Equal(t, 45.2, detections[0].FRP)
		assert.Equal(t, ConfidenceHigh, detections[0].Confidence)
		assert.Equal(t, time.Date(2026, 8, 28, 1, 30, 0, 0, time.UTC), detections[0].DetectedAt)

		// Three-digit acq_time is zero-padded.
		assert.Equal(t, time.Date(2026, 8, 28, 9, 45, 0, 0, time.UTC), detections[1].DetectedAt)
		assert.Equal(t, ConfidenceNominal, detections[1].Confidence)
	})

	t.Run("numeric confidence encoding", func(t *testing.T) {
		payload := csvHeader +
			"10,10,300,2026-08-28,0000,25,5\n" +
			"10,10,300,2026-08-28,0000,55,5\n" +
			"10,10,300,2026-08-28,0000,90,5\n"

		detections, err := ParseCSV([]byte(payload))

		require.NoError(t, err)
		assert.Equal(t, ConfidenceLow, detections[0].Confidence)
		assert.Equal(t, ConfidenceNominal, detections[1].Confidence)
		assert.Equal(t, ConfidenceHigh, detections[2].Confidence)
	})

	t.Run("missing required column fails closed", func(t *testing.T) {
		payload := "latitude,longitude,acq_date,acq_time,confidence\n" +
			"34.1,-118.5,2026-08-28,0130,h\n"

		_, err := ParseCSV([]byte(payload))

		require.Error(t, err)
		assert.Contains(t, err.Error(), `missing column "frp"`)
	})

	t.Run("malformed row fails closed", func(t *testing.T) {
		payload := csvHeader +
			"34.1,-118.5,330.1,2026-08-28,0130,h,45.2\n" +
			"not-a-number,-118.5,330.1,2026-08-28,0130,h,45.2\n"

		_, err := ParseCSV([]byte(payload))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "row 3")
	})

	t.Run("ragged row fails closed", func(t *testing.T) {
		payload := csvHeader + "34.1,-118.5,330.1\n"

		_, err := ParseCSV([]byte(payload))
		require.Error(t, err)
	})

	t.Run("empty payload fails closed", func(t *testing.T) {
		_, err := ParseCSV([]byte(""))
		require.Error(t, err)
	})
}

func TestClusterDetections(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	t.Run("one marker per occupied cell", func(t *testing.T) {
		// 40 detections across exactly two 0.1° cells.
		var detections []Detection
		for i := 0; i < 20; i++ {
			detections = append(detections,
				Detection{Lat: 34.02 + float64(i)*0.001, Lon: -118.01, FRP: 10, Confidence: ConfidenceNominal, DetectedAt: base},
				Detection{Lat: 36.51 + float64(i)*0.001, Lon: -120.99, FRP: 50, Confidence: ConfidenceNominal, DetectedAt: base},
			)
		}

		markers := ClusterDetections(detections)

		require.Len(t, markers, 2)
		for _, m := range markers {
			assert.Equal(t, domain.HazardWildfire, m.HazardType)
			assert.Equal(t, 20, m.Weight)
		}
	})

	t.Run("marker count bounded by distinct cells", func(t *testing.T) {
		var detections []Detection
		cells := make(map[cellKey]struct{})
		for i := 0; i < 500; i++ {
			d := Detection{
				Lat:        -30 + float64(i%37)*0.05,
				Lon:        150 + float64(i%23)*0.07,
				FRP:        float64(i % 90),
				Confidence: ConfidenceNominal,
				DetectedAt: base,
			}
			detections = append(detections, d)
			cells[keyFor(d.Lat, d.Lon)] = struct{}{}
		}

		markers := ClusterDetections(detections)
		assert.LessOrEqual(t, len(markers), len(cells))
	})

	t.Run("centroid lies within its cell", func(t *testing.T) {
		detections := []Detection{
			{Lat: 34.04, Lon: -118.04, FRP: 10, Confidence: ConfidenceNominal, DetectedAt: base},
			{Lat: 33.96, Lon: -117.96, FRP: 20, Confidence: ConfidenceNominal, DetectedAt: base},
		}

		markers := ClusterDetections(detections)

		require.Len(t, markers, 1)
		m := markers[0]
		// Both detections round into cell (340, -1180); the centroid must too.
		assert.Equal(t, keyFor(34.04, -118.04), keyFor(m.Lat, m.Lon))
		assert.InDelta(t, 34.0, m.Lat, 0.05)
		assert.InDelta(t, -118.0, m.Lon, 0.05)
	})

	t.Run("severity uses mean power and best confidence", func(t *testing.T) {
		detections := []Detection{
			{Lat: 10, Lon: 10, FRP: 10, Confidence: ConfidenceLow, DetectedAt: base},
			{Lat: 10, Lon: 10, FRP: 30, Confidence: ConfidenceHigh, DetectedAt: base.Add(time.Hour)},
		}

		markers := ClusterDetections(detections)

		require.Len(t, markers, 1)
		// mean FRP 20 → base 40, high confidence → ×1.1
		assert.InDelta(t, 44, markers[0].Severity, 1e-9)
		assert.Equal(t, base.Add(time.Hour), markers[0].UpdatedAt)
	})

	t.Run("stable ids per cell", func(t *testing.T) {
		detections := []Detection{{Lat: 34.04, Lon: -118.04, FRP: 5, Confidence: ConfidenceNominal, DetectedAt: base}}

		a := ClusterDetections(detections)
		b := ClusterDetections(detections)

		require.Len(t, a, 1)
		assert.Equal(t, a[0].ID, b[0].ID)
		assert.Equal(t, fmt.Sprintf("firms-%d:%d", 340, -1180), a[0].ID)
	})
}

func TestSeverityFromFRP(t *testing.T) {
	t.Run("always within severity bounds", func(t *testing.T) {
		for _, frp := range []float64{math.Inf(-1), -10, 0, 1, 20, 99, 100, 500, 5000, math.NaN()} {
			for _, conf := range []ConfidenceClass{ConfidenceLow, ConfidenceNominal, ConfidenceHigh} {
				s := severityFromFRP(frp, conf)
				assert.GreaterOrEqual(t, s, 0.0, "frp %v conf %v", frp, conf)
				assert.LessOrEqual(t, s, 100.0, "frp %v conf %v", frp, conf)
			}
		}
	})

	t.Run("confidence multipliers", func(t *testing.T) {
		nominal := severityFromFRP(50, ConfidenceNominal)
		assert.InDelta(t, nominal*0.7, severityFromFRP(50, ConfidenceLow), 1e-9)
		assert.InDelta(t, nominal*1.1, severityFromFRP(50, ConfidenceHigh), 1e-9)
	})
}
