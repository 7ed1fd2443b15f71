package risk

import (
	"math"
	"time"

	"github.com/couchcryptid/hazard-atlas/internal/domain"
)

// LatBand partitions the globe into six latitude bands for climatological
// lookups and the population-exposure proxy.
type LatBand int

const (
	BandTropics LatBand = iota // |lat| < 15
	BandSubtropicsNorth        // 15–35 N
	BandSubtropicsSouth        // 15–35 S
	BandTemperateNorth         // 35–60 N
	BandTemperateSouth         // 35–60 S
	BandPolar                  // |lat| >= 60
)

// BandFor maps a latitude to its band.
func BandFor(lat float64) LatBand {
	abs := math.Abs(lat)
	switch {
	case abs < 15:
		return BandTropics
	case abs < 35:
		if lat > 0 {
			return BandSubtropicsNorth
		}
		return BandSubtropicsSouth
	case abs < 60:
		if lat > 0 {
			return BandTemperateNorth
		}
		return BandTemperateSouth
	default:
		return BandPolar
	}
}

func (b LatBand) String() string {
	switch b {
	case BandTropics:
		return "tropics"
	case BandSubtropicsNorth:
		return "northern subtropics"
	case BandSubtropicsSouth:
		return "southern subtropics"
	case BandTemperateNorth:
		return "northern temperate"
	case BandTemperateSouth:
		return "southern temperate"
	default:
		return "polar"
	}
}

// Baseline is a climatological prior risk score with its dominant driver.
type Baseline struct {
	Score  float64
	Driver string
}

// monthlyCurve is a per-month base score, January first.
type monthlyCurve [12]float64

// Hand-authored climatology. Values encode known hemispherical seasonality —
// note the six-month phase shift between northern and southern bands for
// wildfire and cyclone season. This is fixed domain knowledge, not a fitted
// model; replacing it with real climatology is a future concern.
var seasonalTables = map[domain.HazardType]map[LatBand]monthlyCurve{
	domain.HazardWildfire: {
		//                         J   F   M   A   M   J   J   A   S   O   N   D
		BandTropics:         {30, 35, 40, 35, 25, 20, 20, 25, 30, 30, 25, 25},
		BandSubtropicsNorth: {15, 15, 20, 30, 40, 50, 55, 55, 45, 30, 20, 15},
		BandSubtropicsSouth: {55, 50, 40, 25, 15, 10, 10, 15, 25, 35, 45, 55},
		BandTemperateNorth:  {5, 5, 10, 20, 30, 45, 55, 55, 40, 20, 10, 5},
		BandTemperateSouth:  {55, 50, 35, 20, 10, 5, 5, 5, 15, 25, 40, 50},
		BandPolar:           {0, 0, 0, 0, 5, 10, 15, 10, 5, 0, 0, 0},
	},
	domain.HazardFlood: {
		BandTropics:         {35, 30, 30, 40, 50, 55, 55, 55, 50, 45, 40, 35},
		BandSubtropicsNorth: {20, 20, 25, 30, 35, 45, 50, 50, 45, 35, 25, 20},
		BandSubtropicsSouth: {50, 50, 45, 35, 25, 20, 20, 20, 25, 35, 40, 45},
		BandTemperateNorth:  {25, 30, 40, 45, 40, 30, 25, 25, 25, 30, 30, 25},
		BandTemperateSouth:  {25, 25, 30, 35, 40, 45, 45, 40, 35, 30, 25, 25},
		BandPolar:           {5, 5, 10, 20, 30, 25, 15, 10, 10, 5, 5, 5},
	},
	domain.HazardCyclone: {
		BandTropics:         {30, 25, 25, 25, 30, 35, 40, 45, 45, 40, 35, 30},
		BandSubtropicsNorth: {5, 5, 5, 10, 15, 30, 40, 55, 55, 40, 20, 10},
		BandSubtropicsSouth: {50, 55, 45, 30, 15, 5, 5, 5, 5, 15, 30, 45},
		BandTemperateNorth:  {10, 10, 5, 5, 5, 10, 15, 25, 30, 25, 15, 10},
		BandTemperateSouth:  {25, 25, 20, 15, 10, 5, 5, 5, 5, 10, 15, 20},
		BandPolar:           {0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	},
	domain.HazardTornado: {
		BandTropics:         {5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
		BandSubtropicsNorth: {10, 15, 25, 35, 35, 25, 15, 10, 10, 10, 15, 10},
		BandSubtropicsSouth: {20, 20, 15, 10, 5, 5, 5, 5, 10, 15, 20, 20},
		BandTemperateNorth:  {5, 10, 20, 40, 50, 45, 30, 20, 15, 15, 10, 5},
		BandTemperateSouth:  {25, 20, 15, 10, 5, 5, 5, 5, 10, 15, 25, 30},
		BandPolar:           {0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	},
}

// seismicBaselines is a flat per-band prior: earthquakes are tectonically,
// not climatically, driven, so there is no monthly curve. The band scores
// loosely track where plate boundaries concentrate.
var seismicBaselines = map[LatBand]float64{
	BandTropics:         30,
	BandSubtropicsNorth: 30,
	BandSubtropicsSouth: 25,
	BandTemperateNorth:  25,
	BandTemperateSouth:  20,
	BandPolar:           10,
}

var seasonalDrivers = map[domain.HazardType]string{
	domain.HazardWildfire: "fire season climatology",
	domain.HazardFlood:    "wet season climatology",
	domain.HazardCyclone:  "storm season climatology",
	domain.HazardTornado:  "convective season climatology",
}

// SeasonalBaseline looks up the climatological prior for a hazard type at a
// latitude band and month. Unknown hazard types get a zero baseline.
func SeasonalBaseline(hazard domain.HazardType, band LatBand, month time.Month) Baseline {
	if hazard == domain.HazardEarthquake {
		return Baseline{
			Score:  seismicBaselines[band],
			Driver: "tectonic baseline (" + band.String() + ")",
		}
	}

	table, ok := seasonalTables[hazard]
	if !ok {
		return Baseline{}
	}
	return Baseline{
		Score:  table[band][month-1],
		Driver: month.String() + " " + seasonalDrivers[hazard] + " (" + band.String() + ")",
	}
}
