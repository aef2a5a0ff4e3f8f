package zones

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"skywatch/internal/config"
	"skywatch/internal/geo"
	"skywatch/internal/signature"
)

// Zone is a spatial cluster of flagged track points
type Zone struct {
	ID                 string                   `json:"id"`
	CentroidLat        float64                  `json:"centroid_lat"`
	CentroidLon        float64                  `json:"centroid_lon"`
	PointCount         int                      `json:"point_count"`
	AffectedFlightIDs  []string                 `json:"affected_flight_ids"`
	Confidence         signature.Confidence     `json:"confidence"`
	MeanScore          float64                  `json:"mean_score"`
	SignatureBreakdown map[signature.RuleID]int `json:"signature_breakdown"`
	Polygon            interface{}              `json:"polygon"` // GeoJSON geometry, presentational only

	// points retained for polygon construction and triangulation
	points []clusterPoint
}

type clusterPoint struct {
	lat, lon float64
	flightID string
	rule     signature.RuleID
}

// Points returns the member point coordinates, for triangulation.
func (z *Zone) Points() [][2]float64 {
	out := make([][2]float64, len(z.points))
	for i, p := range z.points {
		out[i] = [2]float64{p.lat, p.lon}
	}
	return out
}

// Aggregator clusters flagged points into jamming zones
type Aggregator struct {
	cfg config.ZonesConfig
}

// NewAggregator creates a zone aggregator with the given clustering radius.
func NewAggregator(cfg config.ZonesConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Aggregate greedily clusters flagged points: each point joins the
// nearest existing cluster centroid within the clustering radius, or
// starts a new cluster. Centroids are recomputed as running means on
// every insertion. Zones are returned sorted by affected-flight count
// descending. Zero flagged points yields an empty list.
func (a *Aggregator) Aggregate(flagged []signature.Flagged, scores map[string]signature.Score) []Zone {
	if len(flagged) == 0 {
		return []Zone{}
	}

	// Sort for deterministic clustering regardless of input order.
	pts := make([]signature.Flagged, len(flagged))
	copy(pts, flagged)
	sort.Slice(pts, func(i, j int) bool {
		if !pts[i].Point.Timestamp.Equal(pts[j].Point.Timestamp) {
			return pts[i].Point.Timestamp.Before(pts[j].Point.Timestamp)
		}
		if pts[i].FlightID != pts[j].FlightID {
			return pts[i].FlightID < pts[j].FlightID
		}
		return pts[i].Rule < pts[j].Rule
	})

	type cluster struct {
		lat, lon float64 // running mean centroid
		members  []clusterPoint
	}

	var clusters []*cluster
	for _, fp := range pts {
		best := -1
		bestDist := a.cfg.ClusterRadiusNM
		for i, c := range clusters {
			d := geo.HaversineNM(fp.Point.Lat, fp.Point.Lon, c.lat, c.lon)
			if d <= bestDist {
				best = i
				bestDist = d
			}
		}

		member := clusterPoint{lat: fp.Point.Lat, lon: fp.Point.Lon, flightID: fp.FlightID, rule: fp.Rule}
		if best == -1 {
			clusters = append(clusters, &cluster{lat: fp.Point.Lat, lon: fp.Point.Lon, members: []clusterPoint{member}})
			continue
		}

		c := clusters[best]
		n := float64(len(c.members))
		c.lat = (c.lat*n + fp.Point.Lat) / (n + 1)
		c.lon = (c.lon*n + fp.Point.Lon) / (n + 1)
		c.members = append(c.members, member)
	}

	zones := make([]Zone, 0, len(clusters))
	for _, c := range clusters {
		z := Zone{
			CentroidLat:        c.lat,
			CentroidLon:        c.lon,
			PointCount:         len(c.members),
			SignatureBreakdown: map[signature.RuleID]int{},
			points:             c.members,
		}

		flightSet := map[string]bool{}
		for _, m := range c.members {
			flightSet[m.flightID] = true
			z.SignatureBreakdown[m.rule]++
		}
		for id := range flightSet {
			z.AffectedFlightIDs = append(z.AffectedFlightIDs, id)
		}
		sort.Strings(z.AffectedFlightIDs)

		// Zone confidence tracks the mean signature score of its flights.
		sum := 0.0
		for _, id := range z.AffectedFlightIDs {
			sum += float64(scores[id].Total)
		}
		if len(z.AffectedFlightIDs) > 0 {
			z.MeanScore = sum / float64(len(z.AffectedFlightIDs))
		}
		z.Confidence = signature.ConfidenceFor(int(z.MeanScore + 0.5))

		z.ID = zoneID(z)
		z.Polygon = polygonFor(&z, a.cfg.ClusterRadiusNM)

		zones = append(zones, z)
	}

	sort.Slice(zones, func(i, j int) bool {
		if len(zones[i].AffectedFlightIDs) != len(zones[j].AffectedFlightIDs) {
			return len(zones[i].AffectedFlightIDs) > len(zones[j].AffectedFlightIDs)
		}
		return zones[i].ID < zones[j].ID
	})

	return zones
}

// zoneID derives a stable id from the zone's membership and centroid so
// that re-running an unchanged window yields identical output.
func zoneID(z Zone) string {
	seed := fmt.Sprintf("zone:%.3f:%.3f:%s", z.CentroidLat, z.CentroidLon, strings.Join(z.AffectedFlightIDs, ","))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
