package threat

import (
	"fmt"
	"time"

	"skywatch/internal/classify"
	"skywatch/internal/geo"
	"skywatch/internal/proximity"
	"skywatch/internal/signature"
	"skywatch/internal/track"
)

// IntentReport scores how consistent one flight's behavior and routing
// are with hostile or provocative activity.
type IntentReport struct {
	IntentScore         int      `json:"intent_score"`
	RiskLevel           string   `json:"risk_level"`
	Factors             []string `json:"factors"`
	Recommendation      string   `json:"recommendation"`
	Confidence          string   `json:"confidence"`
	TrackPointsAnalyzed int      `json:"track_points_analyzed"`
}

// Loitering thresholds: a track confined to a small radius for long
// enough reads as station-keeping rather than transit.
const (
	loiterRadiusNM  = 20.0
	loiterMinDwell  = 30 * time.Minute
	loiterMinPoints = 5
)

var roleWeights = map[track.Role]int{
	track.RoleISR:       20,
	track.RoleFighter:   15,
	track.RoleTanker:    10,
	track.RoleTransport: 5,
	track.RoleOther:     5,
	track.RoleCivilian:  0,
}

// ScoreIntent combines interference evidence, routing, role, proximity
// involvement, and loitering into a single intent score for one flight.
func ScoreIntent(f *track.Flight, score signature.Score, cls classify.Classification, events []proximity.Event) (*IntentReport, error) {
	if len(f.Points) < 2 {
		return nil, &track.InsufficientDataError{
			FlightID: f.ID,
			Points:   len(f.Points),
			Required: 2,
		}
	}

	total := 0
	factors := []string{}

	if score.Total > 0 {
		pts := score.Total * 30 / 100
		total += pts
		factors = append(factors, fmt.Sprintf("interference signature score %d (+%d)", score.Total, pts))
	}
	if cls.ConflictZone {
		total += 25
		factors = append(factors, "routed through a conflict region (+25)")
	}
	if cls.EasternOrigin {
		total += 10
		factors = append(factors, "eastern origin (+10)")
	}
	if w := roleWeights[cls.Role]; w > 0 {
		total += w
		factors = append(factors, fmt.Sprintf("%s role (+%d)", cls.Role, w))
	}
	if involvedInProximity(f.ID, events) {
		total += 15
		factors = append(factors, "involved in a bilateral proximity event (+15)")
	}
	if isLoitering(f.Points) {
		total += 10
		factors = append(factors, "loitering within a confined area (+10)")
	}

	total = clamp(total)
	level := LevelFor(total)

	return &IntentReport{
		IntentScore:         total,
		RiskLevel:           level,
		Factors:             factors,
		Recommendation:      intentRecommendation(level),
		Confidence:          intentConfidence(len(f.Points)),
		TrackPointsAnalyzed: len(f.Points),
	}, nil
}

func involvedInProximity(flightID string, events []proximity.Event) bool {
	for _, e := range events {
		if e.FlightID1 == flightID || e.FlightID2 == flightID {
			return true
		}
	}
	return false
}

// isLoitering reports whether the track stays within a small radius of
// its own centroid for at least the dwell time.
func isLoitering(points []track.Point) bool {
	if len(points) < loiterMinPoints {
		return false
	}
	dwell := points[len(points)-1].Timestamp.Sub(points[0].Timestamp)
	if dwell < loiterMinDwell {
		return false
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Lat
		sumLon += p.Lon
	}
	cLat := sumLat / float64(len(points))
	cLon := sumLon / float64(len(points))

	for _, p := range points {
		if geo.HaversineNM(p.Lat, p.Lon, cLat, cLon) > loiterRadiusNM {
			return false
		}
	}
	return true
}

func intentConfidence(points int) string {
	switch {
	case points >= 20:
		return "HIGH"
	case points >= 5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func intentRecommendation(level string) string {
	switch level {
	case "CRITICAL", "HIGH":
		return "Flag for immediate analyst review and continuous tracking"
	case "ELEVATED":
		return "Add to the watch list and re-evaluate on the next window"
	case "MODERATE":
		return "Monitor passively; no action required"
	default:
		return "No concerning behavior detected"
	}
}
