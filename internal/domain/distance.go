package domain

import "math"

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points in
// kilometers. Accurate to well under the block level at city scale, which is
// all proximity search needs.
func HaversineKm(a, b Geo) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// BoundingBox is a degree-space rectangle used to prefilter rows before the
// exact haversine test.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BoundsAround returns a box that fully contains the circle of radiusKm around
// center. Longitude width grows with latitude; near the poles the box
// degenerates to the full longitude range.
func BoundsAround(center Geo, radiusKm float64) BoundingBox {
	dLat := radiusKm / earthRadiusKm * 180 / math.Pi

	cosLat := math.Cos(center.Lat * math.Pi / 180)
	dLon := 180.0
	if cosLat > 1e-6 {
		dLon = dLat / cosLat
	}

	return BoundingBox{
		MinLat: center.Lat - dLat,
		MaxLat: center.Lat + dLat,
		MinLon: center.Lon - dLon,
		MaxLon: center.Lon + dLon,
	}
}

// Contains reports whether g falls inside the box.
func (b BoundingBox) Contains(g Geo) bool {
	return g.Lat >= b.MinLat && g.Lat <= b.MaxLat &&
		g.Lon >= b.MinLon && g.Lon <= b.MaxLon
}
