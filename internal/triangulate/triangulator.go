package triangulate

import (
	"fmt"
	"math"
	"sort"

	"skywatch/internal/config"
	"skywatch/internal/geo"
	"skywatch/internal/signature"
	"skywatch/internal/zones"
)

// Observation is one affected flight's position and heading at the
// moment it entered the zone, with its signature score as weight.
type Observation struct {
	FlightID   string
	Lat        float64
	Lon        float64
	HeadingDeg float64
	Score      int
}

// Source is an estimated jammer origin
type Source struct {
	Lat               float64              `json:"lat"`
	Lon               float64              `json:"lon"`
	ConfidenceRadius  float64              `json:"confidence_radius_nm"`
	ConfidenceLevel   signature.Confidence `json:"confidence_level"`
	AffectedFlightIDs []string             `json:"affected_flight_ids"`
	EstimatedPower    string               `json:"estimated_power"`
	Methodology       string               `json:"methodology"`
}

// Triangulator estimates jammer origins from zone geometry
type Triangulator struct {
	cfg config.TriangleConfig
}

// New creates a triangulator with the given thresholds.
func New(cfg config.TriangleConfig) *Triangulator {
	return &Triangulator{cfg: cfg}
}

// Triangulate estimates the source for one jamming zone from the
// affected flights' entry geometry. The estimate is the score-weighted
// centroid of the points each flight's heading line implies at its
// distance to the zone; the confidence radius shrinks as bearing spread
// and flight count grow. Returns nil when there are no observations.
func (t *Triangulator) Triangulate(zone zones.Zone, obs []Observation) *Source {
	if len(obs) == 0 {
		return nil
	}

	// Deterministic ordering regardless of caller's map iteration.
	sorted := make([]Observation, len(obs))
	copy(sorted, obs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FlightID < sorted[j].FlightID })

	var sumLat, sumLon, sumW float64
	bearings := make([]float64, 0, len(sorted))
	ids := make([]string, 0, len(sorted))

	for _, o := range sorted {
		ids = append(ids, o.FlightID)

		dist := geo.HaversineNM(o.Lat, o.Lon, zone.CentroidLat, zone.CentroidLon)
		iLat, iLon := geo.DestinationPoint(o.Lat, o.Lon, o.HeadingDeg, dist)

		w := float64(o.Score)
		if w <= 0 {
			w = 1
		}
		sumLat += iLat * w
		sumLon += iLon * w
		sumW += w

		bearings = append(bearings, geo.BearingDeg(zone.CentroidLat, zone.CentroidLon, o.Lat, o.Lon))
	}

	lat := sumLat / sumW
	lon := sumLon / sumW

	spread := bearingSpreadDeg(bearings)
	radius := t.cfg.RadiusScaleNM / ((spread/90.0 + 0.1) * float64(len(sorted)))
	radius = math.Min(math.Max(radius, t.cfg.MinRadiusNM), t.cfg.MaxRadiusNM)

	level := signature.ConfidenceLow
	switch {
	case len(sorted) >= t.cfg.MinFlightsHigh && spread >= t.cfg.MinSpreadDegHigh && radius < t.cfg.HighMaxRadiusNM:
		level = signature.ConfidenceHigh
	case len(sorted) >= t.cfg.MinFlightsMedium:
		level = signature.ConfidenceMedium
	}

	power := "LOW"
	switch {
	case zone.MeanScore >= t.cfg.PowerHighMeanScore:
		power = "HIGH"
	case zone.MeanScore >= t.cfg.PowerMedMeanScore:
		power = "MEDIUM"
	}

	return &Source{
		Lat:               lat,
		Lon:               lon,
		ConfidenceRadius:  round1(radius),
		ConfidenceLevel:   level,
		AffectedFlightIDs: ids,
		EstimatedPower:    power,
		Methodology: fmt.Sprintf(
			"score-weighted centroid of heading lines from %d affected flights; bearing spread %.1f deg; zone mean score %.1f",
			len(sorted), spread, zone.MeanScore),
	}
}

// bearingSpreadDeg measures angular diversity as the largest pairwise
// circular difference between observer bearings.
func bearingSpreadDeg(bearings []float64) float64 {
	max := 0.0
	for i := 0; i < len(bearings); i++ {
		for j := i + 1; j < len(bearings); j++ {
			if d := geo.AngularDiffDeg(bearings[i], bearings[j]); d > max {
				max = d
			}
		}
	}
	return max
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
