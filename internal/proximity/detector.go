package proximity

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"skywatch/internal/config"
	"skywatch/internal/geo"
	"skywatch/internal/track"
)

// Target is a classified military flight entering proximity detection
type Target struct {
	Flight  *track.Flight
	Country string
}

// Event is a close approach between military flights of different
// nationalities. Symmetric: (A,B) and (B,A) are the same event.
type Event struct {
	ID              string    `json:"id"`
	FlightID1       string    `json:"flight_id_1"`
	FlightID2       string    `json:"flight_id_2"`
	Country1        string    `json:"country_1"`
	Country2        string    `json:"country_2"`
	MinDistanceNM   float64   `json:"min_distance_nm"`
	AltSeparationFt float64   `json:"alt_separation_ft"`
	Timestamp       time.Time `json:"timestamp"`
	SeverityScore   int       `json:"severity_score"`
	SeverityLevel   string    `json:"severity_level"`
}

// Detector finds bilateral close approaches using a time-bucketed
// spatial grid to bound the pairwise stage.
type Detector struct {
	cfg config.ProximityConfig
}

// NewDetector creates a proximity detector.
func NewDetector(cfg config.ProximityConfig) *Detector {
	return &Detector{cfg: cfg}
}

type sample struct {
	flightIdx int
	point     track.Point
}

// Detect finds every pair of differing-country flights that came within
// the proximity threshold at near-simultaneous timestamps. Pairwise
// comparison is restricted to samples in the same or adjacent grid
// cells, with a per-cell cap, so the stage stays time-bounded.
func (d *Detector) Detect(targets []Target) []Event {
	if len(targets) < 2 {
		return []Event{}
	}

	alignment := d.cfg.AlignmentWindow()
	if alignment <= 0 {
		alignment = time.Minute
	}

	type encounter struct {
		dist   float64
		altSep float64
		ts     time.Time
	}
	best := map[[2]int]*encounter{}

	// Bucket samples by alignment slot, then grid within each slot. The
	// per-cell cap bounds distinct flights, so a chatty flight cannot
	// crowd others out of the comparison.
	type cellBucket struct {
		samples []sample
		flights map[int]bool
	}
	slots := map[int64]map[geo.CellKey]*cellBucket{}
	for idx, tgt := range targets {
		for _, p := range tgt.Flight.Points {
			slot := p.Timestamp.Unix() / int64(alignment.Seconds())
			cell := geo.Cell(p.Lat, p.Lon, d.cfg.CellSizeNM)
			if slots[slot] == nil {
				slots[slot] = map[geo.CellKey]*cellBucket{}
			}
			bucket := slots[slot][cell]
			if bucket == nil {
				bucket = &cellBucket{flights: map[int]bool{}}
				slots[slot][cell] = bucket
			}
			if !bucket.flights[idx] {
				if d.cfg.MaxFlightsPerCell > 0 && len(bucket.flights) >= d.cfg.MaxFlightsPerCell {
					continue
				}
				bucket.flights[idx] = true
			}
			bucket.samples = append(bucket.samples, sample{flightIdx: idx, point: p})
		}
	}

	for _, cells := range slots {
		for cell, bucket := range cells {
			// Gather this cell plus neighbors; compare each local sample
			// against the combined set, skipping same-country pairs.
			var neighborhood []sample
			for _, nk := range cell.Neighbors() {
				if nb := cells[nk]; nb != nil {
					neighborhood = append(neighborhood, nb.samples...)
				}
			}

			for _, a := range bucket.samples {
				for _, b := range neighborhood {
					if a.flightIdx >= b.flightIdx {
						continue
					}
					ta, tb := targets[a.flightIdx], targets[b.flightIdx]
					if ta.Country == tb.Country {
						continue
					}
					// Prune cross-slot drift before the exact distance.
					dt := a.point.Timestamp.Sub(b.point.Timestamp)
					if dt < 0 {
						dt = -dt
					}
					if dt > alignment {
						continue
					}

					dist := geo.HaversineNM(a.point.Lat, a.point.Lon, b.point.Lat, b.point.Lon)
					if dist > d.cfg.ThresholdNM {
						continue
					}

					key := [2]int{a.flightIdx, b.flightIdx}
					altSep := math.Abs(a.point.AltFt - b.point.AltFt)
					cur, ok := best[key]
					if !ok || dist < cur.dist || (dist == cur.dist && a.point.Timestamp.Before(cur.ts)) {
						best[key] = &encounter{dist: dist, altSep: altSep, ts: a.point.Timestamp}
					}
				}
			}
		}
	}

	events := make([]Event, 0, len(best))
	for key, enc := range best {
		ta, tb := targets[key[0]], targets[key[1]]
		id1, c1 := ta.Flight.ID, ta.Country
		id2, c2 := tb.Flight.ID, tb.Country
		// Canonical pair ordering keeps output stable.
		if id2 < id1 {
			id1, id2 = id2, id1
			c1, c2 = c2, c1
		}

		score := d.severity(enc.dist, enc.altSep)
		events = append(events, Event{
			ID:              eventID(id1, id2, enc.ts),
			FlightID1:       id1,
			FlightID2:       id2,
			Country1:        c1,
			Country2:        c2,
			MinDistanceNM:   math.Round(enc.dist*100) / 100,
			AltSeparationFt: enc.altSep,
			Timestamp:       enc.ts,
			SeverityScore:   score,
			SeverityLevel:   severityLevel(score),
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].SeverityScore != events[j].SeverityScore {
			return events[i].SeverityScore > events[j].SeverityScore
		}
		if events[i].FlightID1 != events[j].FlightID1 {
			return events[i].FlightID1 < events[j].FlightID1
		}
		return events[i].FlightID2 < events[j].FlightID2
	})

	return events
}

// severity bases the score on the distance band and raises it when
// vertical separation is also small.
func (d *Detector) severity(distNM, altSepFt float64) int {
	var base int
	switch {
	case distNM < 10:
		base = 80
	case distNM < 25:
		base = 55
	default:
		base = 30
	}
	if altSepFt < d.cfg.CloseAltSepFt {
		base += 15
	}
	if base > 100 {
		base = 100
	}
	return base
}

func severityLevel(score int) string {
	switch {
	case score >= 60:
		return "HIGH"
	case score >= 35:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// eventID derives a stable id from the unordered pair and encounter time.
func eventID(id1, id2 string, ts time.Time) string {
	seed := fmt.Sprintf("proximity:%s:%s:%d", id1, id2, ts.Unix())
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
