package dna

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"skywatch/internal/config"
	"skywatch/internal/geo"
	"skywatch/internal/signature"
	"skywatch/internal/track"
)

// Search methods, reported in the output so consumers can explain
// where the matches came from.
const (
	MethodRuleBased      = "rule_based"
	MethodAttributeBased = "attribute_based"
)

// FlightInfo summarizes the query flight for the report header.
type FlightInfo struct {
	FlightID     string               `json:"flight_id"`
	Callsign     string               `json:"callsign"`
	Airline      string               `json:"airline,omitempty"`
	Country      string               `json:"country"`
	AircraftType string               `json:"aircraft_type"`
	Origin       string               `json:"origin,omitempty"`
	Destination  string               `json:"destination,omitempty"`
	TrackPoints  int                  `json:"track_points"`
	TotalScore   int                  `json:"total_score"`
	Confidence   signature.Confidence `json:"confidence"`
}

// Match is one historically similar flight with the evidence behind
// the similarity score.
type Match struct {
	FlightID      string   `json:"flight_id"`
	Callsign      string   `json:"callsign"`
	Score         int      `json:"score"`
	SharedRules   []string `json:"shared_rules"`
	MatchReasons  []string `json:"match_reasons"`
	ClosestPassNM *float64 `json:"closest_pass_nm"`
}

// Report is the full anomaly similarity result for one query flight.
type Report struct {
	FlightInfo        FlightInfo `json:"flight_info"`
	RiskAssessment    string     `json:"risk_assessment"`
	SearchMethod      string     `json:"search_method"`
	MatchingCriteria  []string   `json:"matching_criteria"`
	SimilarFlights    []Match    `json:"similar_flights"`
	Insights          []string   `json:"insights"`
	AnomaliesDetected []string   `json:"anomalies_detected"`
}

// Matcher finds historically similar flights for a query flight. Rule
// overlap is preferred; attribute overlap is the fallback when the
// query flight triggered nothing.
type Matcher struct {
	cfg      config.DNAConfig
	store    track.Store
	detector *signature.Detector
}

// NewMatcher creates a similarity matcher over the given track store.
func NewMatcher(cfg config.DNAConfig, store track.Store, detector *signature.Detector) *Matcher {
	return &Matcher{cfg: cfg, store: store, detector: detector}
}

// Match builds the similarity report for one flight id. The lookback
// window is anchored at the query flight's last recorded point, so the
// same store snapshot always yields the same report.
func (m *Matcher) Match(ctx context.Context, flightID string) (*Report, error) {
	query, err := m.store.FlightByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if len(query.Points) < 2 {
		return nil, &track.InsufficientDataError{
			FlightID: flightID,
			Points:   len(query.Points),
			Required: 2,
		}
	}

	queryScore := m.detector.Detect(query)
	last, _ := query.LastPoint()
	since := last.Timestamp.Add(-time.Duration(m.cfg.LookbackDays) * 24 * time.Hour)

	candidates, err := m.store.FlightsSince(ctx, since)
	if err != nil {
		return nil, err
	}

	report := &Report{
		FlightInfo: FlightInfo{
			FlightID:     query.ID,
			Callsign:     query.Callsign,
			Airline:      query.Airline,
			Country:      query.Country,
			AircraftType: query.AircraftType,
			Origin:       query.Origin,
			Destination:  query.Destination,
			TrackPoints:  len(query.Points),
			TotalScore:   queryScore.Total,
			Confidence:   queryScore.Confidence,
		},
		RiskAssessment:    riskAssessment(queryScore),
		MatchingCriteria:  []string{},
		SimilarFlights:    []Match{},
		Insights:          []string{},
		AnomaliesDetected: []string{},
	}
	for _, rule := range queryScore.TriggeredRules() {
		report.AnomaliesDetected = append(report.AnomaliesDetected, string(rule))
	}

	var matches []Match
	if len(queryScore.TriggeredRules()) > 0 {
		report.SearchMethod = MethodRuleBased
		report.MatchingCriteria = []string{
			fmt.Sprintf("shared signature rules within %.0f nm", m.cfg.SpatialThresholdNM),
			fmt.Sprintf("%d day lookback", m.cfg.LookbackDays),
			fmt.Sprintf("time of day within %d h", m.cfg.TimeOfDayWindowHrs),
		}
		matches = m.ruleMatches(query, queryScore, candidates)
	} else {
		report.SearchMethod = MethodAttributeBased
		report.MatchingCriteria = []string{
			"shared airline", "shared origin/destination",
			fmt.Sprintf("time of day within %d h", m.cfg.TimeOfDayWindowHrs),
			"shared aircraft type",
		}
		matches = m.attributeMatches(query, candidates)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].FlightID < matches[j].FlightID
	})
	if m.cfg.MaxResults > 0 && len(matches) > m.cfg.MaxResults {
		matches = matches[:m.cfg.MaxResults]
	}
	report.SimilarFlights = matches
	report.Insights = insights(report.SearchMethod, queryScore, matches)

	return report, nil
}

// ruleMatches scores candidates by signature rule overlap plus spatial
// proximity of the flagged points.
func (m *Matcher) ruleMatches(query *track.Flight, queryScore signature.Score, candidates []*track.Flight) []Match {
	var out []Match
	queryRules := map[signature.RuleID]bool{}
	for _, r := range queryScore.TriggeredRules() {
		queryRules[r] = true
	}

	for _, cand := range candidates {
		if cand.ID == query.ID || !cand.Valid() || len(cand.Points) < 2 {
			continue
		}
		candScore := m.detector.Detect(cand)

		var shared []string
		for _, r := range candScore.TriggeredRules() {
			if queryRules[r] {
				shared = append(shared, string(r))
			}
		}
		if len(shared) == 0 {
			continue
		}

		closest := m.closestFlaggedNM(queryScore.Flagged, candScore.Flagged)
		if closest > m.cfg.SpatialThresholdNM {
			continue
		}

		score := len(shared) * 25
		score += int((1 - closest/m.cfg.SpatialThresholdNM) * 20)
		reasons := []string{
			fmt.Sprintf("%d shared signature rule(s)", len(shared)),
			fmt.Sprintf("flagged points %.1f nm apart", closest),
		}
		if m.sameTimeOfDay(queryScore.Flagged, candScore.Flagged) {
			score += 10
			reasons = append(reasons, "anomalies at a similar time of day")
		}
		if score > 100 {
			score = 100
		}

		nm := math.Round(closest*10) / 10
		out = append(out, Match{
			FlightID:      cand.ID,
			Callsign:      cand.Callsign,
			Score:         score,
			SharedRules:   shared,
			MatchReasons:  reasons,
			ClosestPassNM: &nm,
		})
	}
	return out
}

// attributeMatches scores candidates by weighted metadata overlap when
// the query flight triggered no signature rules.
func (m *Matcher) attributeMatches(query *track.Flight, candidates []*track.Flight) []Match {
	var out []Match
	for _, cand := range candidates {
		if cand.ID == query.ID || !cand.Valid() || len(cand.Points) == 0 {
			continue
		}

		score := 0
		var reasons []string
		if query.Airline != "" && cand.Airline == query.Airline {
			score += 30
			reasons = append(reasons, fmt.Sprintf("same airline %s", cand.Airline))
		}
		if query.Origin != "" && cand.Origin == query.Origin {
			score += 20
			reasons = append(reasons, fmt.Sprintf("same origin %s", cand.Origin))
		}
		if query.Destination != "" && cand.Destination == query.Destination {
			score += 20
			reasons = append(reasons, fmt.Sprintf("same destination %s", cand.Destination))
		}
		if m.similarDeparture(query, cand) {
			score += 15
			reasons = append(reasons, "similar time of day")
		}
		if query.AircraftType != "" && cand.AircraftType == query.AircraftType {
			score += 15
			reasons = append(reasons, fmt.Sprintf("same aircraft type %s", cand.AircraftType))
		}

		if score < m.cfg.MinAttributeScore {
			continue
		}
		out = append(out, Match{
			FlightID:      cand.ID,
			Callsign:      cand.Callsign,
			Score:         score,
			SharedRules:   []string{},
			MatchReasons:  reasons,
			ClosestPassNM: nil,
		})
	}
	return out
}

// closestFlaggedNM finds the minimum distance between any flagged point
// of the query and any flagged point of the candidate.
func (m *Matcher) closestFlaggedNM(query, cand []signature.Flagged) float64 {
	min := math.MaxFloat64
	for _, q := range query {
		for _, c := range cand {
			if d := geo.HaversineNM(q.Point.Lat, q.Point.Lon, c.Point.Lat, c.Point.Lon); d < min {
				min = d
			}
		}
	}
	return min
}

// sameTimeOfDay reports whether any query/candidate flagged point pair
// occurred within the configured time-of-day window, on a 24h circle.
func (m *Matcher) sameTimeOfDay(query, cand []signature.Flagged) bool {
	window := float64(m.cfg.TimeOfDayWindowHrs)
	for _, q := range query {
		for _, c := range cand {
			if hourDiff(q.Point.Timestamp, c.Point.Timestamp) <= window {
				return true
			}
		}
	}
	return false
}

// similarDeparture compares the first-point time of day of two flights.
func (m *Matcher) similarDeparture(a, b *track.Flight) bool {
	if len(a.Points) == 0 || len(b.Points) == 0 {
		return false
	}
	return hourDiff(a.Points[0].Timestamp, b.Points[0].Timestamp) <= float64(m.cfg.TimeOfDayWindowHrs)
}

// hourDiff is the circular hour-of-day distance between two instants.
func hourDiff(a, b time.Time) float64 {
	ha := float64(a.UTC().Hour()) + float64(a.UTC().Minute())/60
	hb := float64(b.UTC().Hour()) + float64(b.UTC().Minute())/60
	d := math.Abs(ha - hb)
	if d > 12 {
		d = 24 - d
	}
	return d
}

func riskAssessment(s signature.Score) string {
	switch s.Confidence {
	case signature.ConfidenceHigh:
		return fmt.Sprintf("HIGH RISK: strong interference signature (score %d)", s.Total)
	case signature.ConfidenceMedium:
		return fmt.Sprintf("ELEVATED RISK: moderate interference signature (score %d)", s.Total)
	case signature.ConfidenceLow:
		return fmt.Sprintf("LOW RISK: weak interference signature (score %d)", s.Total)
	default:
		return "MINIMAL RISK: no significant interference signature"
	}
}

func insights(method string, queryScore signature.Score, matches []Match) []string {
	out := []string{}
	if method == MethodRuleBased {
		out = append(out, fmt.Sprintf("query flight triggered %d signature rule(s)",
			len(queryScore.TriggeredRules())))
	} else {
		out = append(out, "no signature rules triggered; matched on flight attributes")
	}
	switch {
	case len(matches) == 0:
		out = append(out, "no historically similar flights found in the lookback window")
	case matches[0].Score >= 75:
		out = append(out, fmt.Sprintf("%d similar flight(s); strongest match %s scores %d, a recurring pattern is likely",
			len(matches), matches[0].FlightID, matches[0].Score))
	default:
		out = append(out, fmt.Sprintf("%d similar flight(s); strongest match %s scores %d",
			len(matches), matches[0].FlightID, matches[0].Score))
	}
	return out
}
