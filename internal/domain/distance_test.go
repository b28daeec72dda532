package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	cityHall    = Geo{Lat: 37.5665, Lon: 126.9780}
	mainStation = Geo{Lat: 37.5547, Lon: 126.9707}
)

func TestHaversineKm(t *testing.T) {
	assert.Zero(t, HaversineKm(cityHall, cityHall))

	// City hall to the main rail station is roughly 1.45 km.
	d := HaversineKm(cityHall, mainStation)
	assert.InDelta(t, 1.45, d, 0.1)

	// Symmetric.
	assert.InDelta(t, d, HaversineKm(mainStation, cityHall), 1e-9)
}

func TestBoundsAround(t *testing.T) {
	box := BoundsAround(cityHall, 2)

	assert.True(t, box.Contains(cityHall))
	assert.True(t, box.Contains(mainStation))

	// ~5 km north is outside a 2 km box.
	assert.False(t, box.Contains(Geo{Lat: 37.6115, Lon: 126.9780}))

	// The box must fully contain the radius circle: points exactly radiusKm
	// due north/east still fall inside.
	north := Geo{Lat: cityHall.Lat + 2.0/earthRadiusKm*180/3.141592653589793, Lon: cityHall.Lon}
	assert.True(t, box.Contains(north))
}

func TestBoundsAround_NearPole(t *testing.T) {
	box := BoundsAround(Geo{Lat: 89.9999, Lon: 0}, 5)

	// Longitude degenerates to the full range near the pole.
	assert.True(t, box.Contains(Geo{Lat: 89.9999, Lon: 179}))
	assert.True(t, box.Contains(Geo{Lat: 89.9999, Lon: -179}))
}

func TestFacilityID_Deterministic(t *testing.T) {
	a := FacilityID(CategoryPharmacy, "REG-001")
	b := FacilityID(CategoryPharmacy, "REG-001")
	c := FacilityID(CategoryHospital, "REG-001")

	assert.Equal(t, a, b, "same row must map to the same ID")
	assert.NotEqual(t, a, c, "category is part of the identity")
	assert.Contains(t, a, "pharmacy-")
}
