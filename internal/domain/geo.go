package domain

import "math"

const earthRadiusKm = 6371.0

// kmPerDegreeLat is the approximate north-south span of one degree of latitude.
const kmPerDegreeLat = 111.0

// BBox is a WGS-84 bounding box. MinLon may exceed MaxLon only when the box
// crosses the antimeridian, which the storage layer does not support; callers
// clamp instead.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Contains reports whether the point lies inside the box, edges inclusive.
func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// BBoxAround builds the bounding box enclosing a radius around a point using
// the flat-earth approximation Δlat = km/111, Δlon = km/(111·cos(lat)). The
// box always contains the true circle, so it is safe as a prefilter; exact
// membership is decided with HaversineKm afterwards. Near the poles the
// longitude span is clamped to the full range.
func BBoxAround(lat, lon, radiusKm float64) BBox {
	dLat := radiusKm / kmPerDegreeLat

	cosLat := math.Cos(lat * math.Pi / 180)
	var dLon float64
	if cosLat < 1e-6 {
		dLon = 180
	} else {
		dLon = radiusKm / (kmPerDegreeLat * cosLat)
	}

	b := BBox{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLon: lon - dLon,
		MaxLon: lon + dLon,
	}
	if b.MinLat < -90 {
		b.MinLat = -90
	}
	if b.MaxLat > 90 {
		b.MaxLat = 90
	}
	if b.MinLon < -180 {
		b.MinLon = -180
	}
	if b.MaxLon > 180 {
		b.MaxLon = 180
	}
	return b
}

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
