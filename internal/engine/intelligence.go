package engine

import (
	"context"
	"sort"

	"skywatch/internal/classify"
	"skywatch/internal/geo"
	"skywatch/internal/proximity"
	"skywatch/internal/signature"
	"skywatch/internal/temporal"
	"skywatch/internal/threat"
	"skywatch/internal/track"
	"skywatch/internal/triangulate"
	"skywatch/internal/zones"
)

// MilitaryPattern is one military flight's activity summary.
type MilitaryPattern struct {
	FlightID    string     `json:"flight_id"`
	Callsign    string     `json:"callsign"`
	Country     string     `json:"country"`
	Role        track.Role `json:"role"`
	TrackPoints int        `json:"track_points"`
}

// RouteCount aggregates military flights per origin/destination pair.
type RouteCount struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Flights     int    `json:"flights"`
}

// CountryCount aggregates military flights per classified country.
type CountryCount struct {
	Country string `json:"country"`
	Flights int    `json:"flights"`
}

// RegionCount aggregates military flights per destination region.
type RegionCount struct {
	Region  string `json:"region"`
	Flights int    `json:"flights"`
}

// MilitaryFlight pairs a military flight's track with its classification.
type MilitaryFlight struct {
	Flight         *track.Flight           `json:"flight"`
	Classification classify.Classification `json:"classification"`
}

// AirlineEfficiency is a per-airline speed summary.
type AirlineEfficiency struct {
	Airline    string  `json:"airline"`
	Flights    int     `json:"flights"`
	AvgSpeedKt float64 `json:"avg_speed_kt"`
}

// AirlineActivity is a per-airline flight count.
type AirlineActivity struct {
	Airline string `json:"airline"`
	Flights int    `json:"flights"`
}

// IntelligenceResult is the full intelligence batch payload.
type IntelligenceResult struct {
	Window                    WindowInfo           `json:"window"`
	GPSJamming                []zones.Zone         `json:"gps_jamming"`
	GPSJammingClusters        int                  `json:"gps_jamming_clusters"`
	GPSJammingTemporal        temporal.Pattern     `json:"gps_jamming_temporal"`
	GPSJammingZones           int                  `json:"gps_jamming_zones"`
	MilitaryPatterns          []MilitaryPattern    `json:"military_patterns"`
	PatternClusters           int                  `json:"pattern_clusters"`
	MilitaryRoutes            []RouteCount         `json:"military_routes"`
	MilitaryByCountry         []CountryCount       `json:"military_by_country"`
	MilitaryByDestination     []RegionCount        `json:"military_by_destination"`
	MilitaryFlightsWithTracks []MilitaryFlight     `json:"military_flights_with_tracks"`
	BilateralProximity        []proximity.Event    `json:"bilateral_proximity"`
	ThreatAssessment          threat.Assessment    `json:"threat_assessment"`
	JammingTriangulation      []triangulate.Source `json:"jamming_triangulation"`
	SignalLossZones           []zones.Zone         `json:"signal_loss_zones"`
	AirlineEfficiency         []AirlineEfficiency  `json:"airline_efficiency"`
	AirlineActivity           []AirlineActivity    `json:"airline_activity"`
	SkippedFlights            int                  `json:"skipped_flights"`
}

// IntelligenceJSON serves the intelligence batch through the window
// cache and single-flight deduplication.
func (e *Engine) IntelligenceJSON(ctx context.Context, w track.Window) ([]byte, error) {
	return e.cachedJSON(ctx, "intelligence", w, func() (interface{}, error) {
		return e.Intelligence(ctx, w)
	})
}

// Intelligence computes the full intelligence batch for one window.
func (e *Engine) Intelligence(ctx context.Context, w track.Window) (*IntelligenceResult, error) {
	snap, err := e.snapshot(ctx, w)
	if err != nil {
		return nil, err
	}

	jammingZones := e.zones.Aggregate(snap.flagged, snap.scores)
	pattern := temporal.Analyze(snap.flaggedTimes())

	sources := []triangulate.Source{}
	for i := range jammingZones {
		z := &jammingZones[i]
		if src := e.triangle.Triangulate(*z, e.observationsFor(z, snap)); src != nil {
			sources = append(sources, *src)
		}
	}

	targets := militaryTargets(snap)
	events := e.prox.Detect(targets)

	militaryPatterns := []MilitaryPattern{}
	militaryFlights := []MilitaryFlight{}
	conflictFlights := 0
	for _, f := range snap.flights {
		cls := classify.Classify(f)
		if cls.ConflictZone {
			conflictFlights++
		}
		if !f.Military {
			continue
		}
		militaryPatterns = append(militaryPatterns, MilitaryPattern{
			FlightID:    f.ID,
			Callsign:    f.Callsign,
			Country:     cls.Country,
			Role:        cls.Role,
			TrackPoints: len(f.Points),
		})
		militaryFlights = append(militaryFlights, MilitaryFlight{Flight: f, Classification: cls})
	}
	sort.Slice(militaryPatterns, func(i, j int) bool { return militaryPatterns[i].FlightID < militaryPatterns[j].FlightID })
	sort.Slice(militaryFlights, func(i, j int) bool { return militaryFlights[i].Flight.ID < militaryFlights[j].Flight.ID })

	patternClusters := clusterCount(targets, e.cfg.Zones.ClusterRadiusNM)

	assessment := threat.Combine(threat.Inputs{
		Zones:           jammingZones,
		ProximityEvents: events,
		TotalFlights:    len(snap.flights),
		MilitaryFlights: len(militaryFlights),
		PatternClusters: patternClusters,
		ConflictFlights: conflictFlights,
	})

	highConfidenceZones := 0
	for _, z := range jammingZones {
		if z.Confidence == signature.ConfidenceHigh || z.Confidence == signature.ConfidenceMedium {
			highConfidenceZones++
		}
	}

	return &IntelligenceResult{
		Window:                    windowInfo(w),
		GPSJamming:                jammingZones,
		GPSJammingClusters:        len(jammingZones),
		GPSJammingTemporal:        pattern,
		GPSJammingZones:           highConfidenceZones,
		MilitaryPatterns:          militaryPatterns,
		PatternClusters:           patternClusters,
		MilitaryRoutes:            militaryRoutes(militaryFlights),
		MilitaryByCountry:         militaryByCountry(militaryFlights),
		MilitaryByDestination:     militaryByDestination(militaryFlights),
		MilitaryFlightsWithTracks: militaryFlights,
		BilateralProximity:        events,
		ThreatAssessment:          assessment,
		JammingTriangulation:      sources,
		SignalLossZones:           e.zones.Aggregate(snap.flaggedByRule(signature.RuleSignalLossGap), snap.scores),
		AirlineEfficiency:         airlineEfficiency(snap.flights),
		AirlineActivity:           airlineActivity(snap.flights),
		SkippedFlights:            snap.skipped,
	}, nil
}

// clusterCount greedily clusters military last positions and counts
// groups of two or more flights operating together.
func clusterCount(targets []proximity.Target, radiusNM float64) int {
	type cluster struct {
		lat, lon float64
		members  int
	}
	var clusters []*cluster
	for _, tgt := range targets {
		last, ok := tgt.Flight.LastPoint()
		if !ok {
			continue
		}
		best := -1
		bestDist := radiusNM
		for i, c := range clusters {
			if d := geo.HaversineNM(last.Lat, last.Lon, c.lat, c.lon); d <= bestDist {
				best = i
				bestDist = d
			}
		}
		if best == -1 {
			clusters = append(clusters, &cluster{lat: last.Lat, lon: last.Lon, members: 1})
			continue
		}
		c := clusters[best]
		n := float64(c.members)
		c.lat = (c.lat*n + last.Lat) / (n + 1)
		c.lon = (c.lon*n + last.Lon) / (n + 1)
		c.members++
	}

	count := 0
	for _, c := range clusters {
		if c.members >= 2 {
			count++
		}
	}
	return count
}

func militaryRoutes(flights []MilitaryFlight) []RouteCount {
	counts := map[[2]string]int{}
	for _, mf := range flights {
		counts[[2]string{mf.Flight.Origin, mf.Flight.Destination}]++
	}
	out := make([]RouteCount, 0, len(counts))
	for route, n := range counts {
		out = append(out, RouteCount{Origin: route[0], Destination: route[1], Flights: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flights != out[j].Flights {
			return out[i].Flights > out[j].Flights
		}
		if out[i].Origin != out[j].Origin {
			return out[i].Origin < out[j].Origin
		}
		return out[i].Destination < out[j].Destination
	})
	return out
}

func militaryByCountry(flights []MilitaryFlight) []CountryCount {
	counts := map[string]int{}
	for _, mf := range flights {
		counts[mf.Classification.Country]++
	}
	out := make([]CountryCount, 0, len(counts))
	for country, n := range counts {
		out = append(out, CountryCount{Country: country, Flights: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flights != out[j].Flights {
			return out[i].Flights > out[j].Flights
		}
		return out[i].Country < out[j].Country
	})
	return out
}

func militaryByDestination(flights []MilitaryFlight) []RegionCount {
	counts := map[string]int{}
	for _, mf := range flights {
		if mf.Classification.DestinationRegion == "" {
			continue
		}
		counts[mf.Classification.DestinationRegion]++
	}
	out := make([]RegionCount, 0, len(counts))
	for region, n := range counts {
		out = append(out, RegionCount{Region: region, Flights: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flights != out[j].Flights {
			return out[i].Flights > out[j].Flights
		}
		return out[i].Region < out[j].Region
	})
	return out
}

func airlineEfficiency(flights []*track.Flight) []AirlineEfficiency {
	type agg struct {
		flights  int
		speedSum float64
		points   int
	}
	byAirline := map[string]*agg{}
	for _, f := range flights {
		if f.Airline == "" {
			continue
		}
		a := byAirline[f.Airline]
		if a == nil {
			a = &agg{}
			byAirline[f.Airline] = a
		}
		a.flights++
		for _, p := range f.Points {
			a.speedSum += p.SpeedKt
			a.points++
		}
	}

	out := make([]AirlineEfficiency, 0, len(byAirline))
	for airline, a := range byAirline {
		avg := 0.0
		if a.points > 0 {
			avg = a.speedSum / float64(a.points)
		}
		out = append(out, AirlineEfficiency{
			Airline:    airline,
			Flights:    a.flights,
			AvgSpeedKt: roundTenth(avg),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flights != out[j].Flights {
			return out[i].Flights > out[j].Flights
		}
		return out[i].Airline < out[j].Airline
	})
	return out
}

func airlineActivity(flights []*track.Flight) []AirlineActivity {
	counts := map[string]int{}
	for _, f := range flights {
		if f.Airline != "" {
			counts[f.Airline]++
		}
	}
	out := make([]AirlineActivity, 0, len(counts))
	for airline, n := range counts {
		out = append(out, AirlineActivity{Airline: airline, Flights: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flights != out[j].Flights {
			return out[i].Flights > out[j].Flights
		}
		return out[i].Airline < out[j].Airline
	})
	return out
}

func roundTenth(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
