package zones

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"skywatch/internal/geo"
)

// polygonFor builds the presentational GeoJSON geometry for a zone: the
// convex hull of its member points when there are at least three distinct
// positions, otherwise a buffered ring around the centroid. Not part of
// the analytic contract.
func polygonFor(z *Zone, radiusNM float64) interface{} {
	distinct := distinctPositions(z.points)

	var ring orb.Ring
	if len(distinct) >= 3 {
		ring = convexHull(distinct)
	} else {
		ring = bufferRing(z.CentroidLat, z.CentroidLon, radiusNM/5)
	}

	return geojson.NewGeometry(orb.Polygon{ring})
}

func distinctPositions(points []clusterPoint) []orb.Point {
	seen := map[orb.Point]bool{}
	var out []orb.Point
	for _, p := range points {
		// orb points are lon/lat ordered
		pt := orb.Point{p.lon, p.lat}
		if !seen[pt] {
			seen[pt] = true
			out = append(out, pt)
		}
	}
	return out
}

// convexHull computes the hull with the Andrew monotone chain and closes
// the ring.
func convexHull(points []orb.Point) orb.Ring {
	pts := make([]orb.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})

	cross := func(o, a, b orb.Point) float64 {
		return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
	}

	var lower []orb.Point
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []orb.Point
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		// Collinear input degrades to a sliver; fall back to the raw
		// sorted points closed into a ring.
		hull = pts
	}

	ring := orb.Ring(hull)
	ring = append(ring, ring[0])
	return ring
}

// bufferRing approximates a circle of the given radius as a 12-sided ring.
func bufferRing(lat, lon, radiusNM float64) orb.Ring {
	const sides = 12
	ring := make(orb.Ring, 0, sides+1)
	for i := 0; i < sides; i++ {
		brg := float64(i) * (360.0 / sides)
		dLat, dLon := geo.DestinationPoint(lat, lon, brg, radiusNM)
		ring = append(ring, orb.Point{dLon, dLat})
	}
	ring = append(ring, ring[0])
	return ring
}
