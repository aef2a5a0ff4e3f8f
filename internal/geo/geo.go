package geo

import "math"

// Constants for aviation calculations
const (
	EarthRadiusNM = 3440.07 // Earth radius in nautical miles
	MetersPerNM   = 1852.0  // Meters per nautical mile
	FeetPerNM     = 6076.12 // Feet per nautical mile
)

// HaversineNM calculates the great-circle distance in nautical miles
// between two lat/lon points.
func HaversineNM(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180.0

	lat1Rad := lat1 * rad
	lon1Rad := lon1 * rad
	lat2Rad := lat2 * rad
	lon2Rad := lon2 * rad

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(dlon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusNM * c
}

// BearingDeg calculates the initial bearing in degrees from point 1 to
// point 2. Returns a value between 0 and 360 (0 = North, 90 = East).
func BearingDeg(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180.0

	lat1Rad := lat1 * rad
	lon1Rad := lon1 * rad
	lat2Rad := lat2 * rad
	lon2Rad := lon2 * rad

	y := math.Sin(lon2Rad-lon1Rad) * math.Cos(lat2Rad)
	x := math.Cos(lat1Rad)*math.Sin(lat2Rad) - math.Sin(lat1Rad)*math.Cos(lat2Rad)*math.Cos(lon2Rad-lon1Rad)
	bearing := math.Atan2(y, x) * 180.0 / math.Pi

	return math.Mod(bearing+360.0, 360.0)
}

// AngularDiffDeg returns the absolute difference between two bearings,
// normalized to 0-180 degrees.
func AngularDiffDeg(a, b float64) float64 {
	diff := math.Abs(a - b)
	diff = math.Mod(diff, 360.0)
	if diff > 180 {
		diff = 360 - diff
	}
	return diff
}

// DestinationPoint projects a point along a bearing for a given distance
// in nautical miles and returns the resulting lat/lon.
func DestinationPoint(lat, lon, bearingDeg, distNM float64) (float64, float64) {
	rad := math.Pi / 180.0
	angular := distNM / EarthRadiusNM

	latRad := lat * rad
	lonRad := lon * rad
	brgRad := bearingDeg * rad

	destLat := math.Asin(math.Sin(latRad)*math.Cos(angular) +
		math.Cos(latRad)*math.Sin(angular)*math.Cos(brgRad))
	destLon := lonRad + math.Atan2(
		math.Sin(brgRad)*math.Sin(angular)*math.Cos(latRad),
		math.Cos(angular)-math.Sin(latRad)*math.Sin(destLat))

	return destLat / rad, math.Mod(destLon/rad+540.0, 360.0) - 180.0
}

// CellKey identifies a spatial grid cell
type CellKey struct {
	Row int
	Col int
}

// Cell quantizes a position into a grid cell of roughly cellSizeNM on a
// side. One degree of latitude is 60 nm; longitude cells are not
// shrunk toward the poles, which only makes cells wider than requested
// and never drops neighbors.
func Cell(lat, lon, cellSizeNM float64) CellKey {
	sizeDeg := cellSizeNM / 60.0
	return CellKey{
		Row: int(math.Floor(lat / sizeDeg)),
		Col: int(math.Floor(lon / sizeDeg)),
	}
}

// Neighbors returns the cell and its eight adjacent cells.
func (k CellKey) Neighbors() []CellKey {
	out := make([]CellKey, 0, 9)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			out = append(out, CellKey{Row: k.Row + dr, Col: k.Col + dc})
		}
	}
	return out
}
