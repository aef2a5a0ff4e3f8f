package geo

import (
	"math"
	"testing"
)

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestHaversineNM(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{
			name: "same point",
			lat1: 43.67, lon1: -79.62, lat2: 43.67, lon2: -79.62,
			want: 0, tolerance: 0.001,
		},
		{
			name: "one degree of latitude",
			lat1: 40.0, lon1: 0.0, lat2: 41.0, lon2: 0.0,
			want: 60.0, tolerance: 0.1,
		},
		{
			name: "larnaca to beirut",
			lat1: 34.875, lon1: 33.625, lat2: 33.821, lon2: 35.488,
			want: 110.0, tolerance: 5.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineNM(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if !almostEqual(got, tt.want, tt.tolerance) {
				t.Errorf("HaversineNM = %f, want %f +/- %f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestBearingDeg(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		tolerance              float64
	}{
		{name: "due north", lat1: 40, lon1: 10, lat2: 41, lon2: 10, want: 0, tolerance: 0.1},
		{name: "due south", lat1: 41, lon1: 10, lat2: 40, lon2: 10, want: 180, tolerance: 0.1},
		{name: "due east at equator", lat1: 0, lon1: 10, lat2: 0, lon2: 11, want: 90, tolerance: 0.1},
		{name: "due west at equator", lat1: 0, lon1: 11, lat2: 0, lon2: 10, want: 270, tolerance: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BearingDeg(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if !almostEqual(got, tt.want, tt.tolerance) {
				t.Errorf("BearingDeg = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestAngularDiffDeg(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{0, 0, 0},
		{10, 350, 20},
		{350, 10, 20},
		{90, 270, 180},
		{45, 90, 45},
	}

	for _, tt := range tests {
		if got := AngularDiffDeg(tt.a, tt.b); !almostEqual(got, tt.want, 0.001) {
			t.Errorf("AngularDiffDeg(%f, %f) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestDestinationPoint(t *testing.T) {
	// Project 60 nm due north from a known point: latitude should rise by
	// ~1 degree, longitude unchanged.
	lat, lon := DestinationPoint(40.0, 20.0, 0, 60.0)
	if !almostEqual(lat, 41.0, 0.01) {
		t.Errorf("lat = %f, want ~41.0", lat)
	}
	if !almostEqual(lon, 20.0, 0.01) {
		t.Errorf("lon = %f, want ~20.0", lon)
	}

	// Round trip: project and measure.
	dLat, dLon := DestinationPoint(34.0, 33.0, 120, 75.0)
	dist := HaversineNM(34.0, 33.0, dLat, dLon)
	if !almostEqual(dist, 75.0, 0.5) {
		t.Errorf("round trip distance = %f, want ~75.0", dist)
	}
}

func TestCellNeighbors(t *testing.T) {
	k := Cell(34.5, 33.2, 30)
	neighbors := k.Neighbors()
	if len(neighbors) != 9 {
		t.Fatalf("expected 9 neighbor cells, got %d", len(neighbors))
	}

	found := false
	for _, n := range neighbors {
		if n == k {
			found = true
		}
	}
	if !found {
		t.Error("neighbors should include the cell itself")
	}

	// Two points within one cell size of each other must land in the same
	// or adjacent cells.
	a := Cell(34.50, 33.20, 30)
	b := Cell(34.80, 33.20, 30) // ~18 nm north
	if absInt(a.Row-b.Row) > 1 || absInt(a.Col-b.Col) > 1 {
		t.Errorf("nearby points landed in non-adjacent cells: %v vs %v", a, b)
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
