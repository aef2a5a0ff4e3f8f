package threat

import (
	"fmt"
	"math"
	"sort"

	"skywatch/internal/proximity"
	"skywatch/internal/zones"
)

// Component weights. The four weights sum to 1.
const (
	WeightGPS      = 0.30
	WeightMilitary = 0.25
	WeightPatterns = 0.20
	WeightConflict = 0.25
)

// Component names used as keys in the assessment output.
const (
	ComponentGPS      = "gps_jamming"
	ComponentMilitary = "military_activity"
	ComponentPatterns = "unusual_patterns"
	ComponentConflict = "conflict_zone_activity"
)

// Inputs carries the upstream analysis outputs the combiner merges.
type Inputs struct {
	Zones           []zones.Zone
	ProximityEvents []proximity.Event
	TotalFlights    int
	MilitaryFlights int
	PatternClusters int
	ConflictFlights int
}

// Component is one scored threat dimension with the raw numbers that
// produced the score.
type Component struct {
	Score      int                `json:"score"`
	RawMetrics map[string]float64 `json:"raw_metrics"`
}

// Assessment is the combined window-level threat picture.
type Assessment struct {
	OverallScore    int                  `json:"overall_score"`
	Level           string               `json:"level"`
	Components      map[string]Component `json:"components"`
	TopConcerns     []string             `json:"top_concerns"`
	Recommendations []string             `json:"recommendations"`
}

// Combine merges the four threat dimensions into one weighted score.
// Stateless; the assessment is a pure function of the inputs.
func Combine(in Inputs) Assessment {
	comps := map[string]Component{
		ComponentGPS:      gpsComponent(in.Zones),
		ComponentMilitary: militaryComponent(in),
		ComponentPatterns: patternsComponent(in.PatternClusters),
		ComponentConflict: conflictComponent(in),
	}

	weighted := WeightGPS*float64(comps[ComponentGPS].Score) +
		WeightMilitary*float64(comps[ComponentMilitary].Score) +
		WeightPatterns*float64(comps[ComponentPatterns].Score) +
		WeightConflict*float64(comps[ComponentConflict].Score)
	overall := int(math.Round(weighted))

	return Assessment{
		OverallScore:    overall,
		Level:           LevelFor(overall),
		Components:      comps,
		TopConcerns:     topConcerns(comps),
		Recommendations: recommendations(comps, overall),
	}
}

// LevelFor maps an overall score to its threat level.
func LevelFor(score int) string {
	switch {
	case score >= 80:
		return "CRITICAL"
	case score >= 60:
		return "HIGH"
	case score >= 40:
		return "ELEVATED"
	case score >= 20:
		return "MODERATE"
	default:
		return "LOW"
	}
}

// gpsComponent scores jamming activity from the strongest zone's mean
// score plus a small increment per additional zone.
func gpsComponent(zs []zones.Zone) Component {
	maxMean := 0.0
	for _, z := range zs {
		if z.MeanScore > maxMean {
			maxMean = z.MeanScore
		}
	}
	score := int(maxMean)
	if len(zs) > 1 {
		score += 5 * (len(zs) - 1)
	}
	return Component{
		Score: clamp(score),
		RawMetrics: map[string]float64{
			"zone_count":     float64(len(zs)),
			"max_mean_score": maxMean,
		},
	}
}

// militaryComponent scores military presence from the military share of
// traffic and any bilateral proximity events.
func militaryComponent(in Inputs) Component {
	share := 0.0
	if in.TotalFlights > 0 {
		share = float64(in.MilitaryFlights) / float64(in.TotalFlights)
	}
	score := int(share*200) + 15*len(in.ProximityEvents)
	return Component{
		Score: clamp(score),
		RawMetrics: map[string]float64{
			"military_flights": float64(in.MilitaryFlights),
			"total_flights":    float64(in.TotalFlights),
			"proximity_events": float64(len(in.ProximityEvents)),
		},
	}
}

func patternsComponent(clusters int) Component {
	return Component{
		Score: clamp(20 * clusters),
		RawMetrics: map[string]float64{
			"pattern_clusters": float64(clusters),
		},
	}
}

func conflictComponent(in Inputs) Component {
	return Component{
		Score: clamp(20 * in.ConflictFlights),
		RawMetrics: map[string]float64{
			"conflict_zone_flights": float64(in.ConflictFlights),
		},
	}
}

// topConcerns ranks components by raw score descending, ties broken by
// name, keeping the top 4.
func topConcerns(comps map[string]Component) []string {
	names := make([]string, 0, len(comps))
	for name := range comps {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		si, sj := comps[names[i]].Score, comps[names[j]].Score
		if si != sj {
			return si > sj
		}
		return names[i] < names[j]
	})
	if len(names) > 4 {
		names = names[:4]
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, fmt.Sprintf("%s (score %d)", name, comps[name].Score))
	}
	return out
}

// recommendations emits deterministic advisory text keyed by which
// components dominate.
func recommendations(comps map[string]Component, overall int) []string {
	out := []string{}
	if comps[ComponentGPS].Score >= 60 {
		out = append(out, "Issue GPS-degraded navigation advisories for affected sectors")
	}
	if comps[ComponentMilitary].Score >= 60 {
		out = append(out, "Increase monitoring of military traffic and coordinate deconfliction")
	}
	if comps[ComponentPatterns].Score >= 60 {
		out = append(out, "Review recurring anomaly clusters for coordinated activity")
	}
	if comps[ComponentConflict].Score >= 60 {
		out = append(out, "Advise operators to reroute around active conflict regions")
	}
	if overall >= 80 {
		out = append(out, "Escalate to duty officer: critical composite threat level")
	}
	if len(out) == 0 {
		out = append(out, "Continue routine monitoring")
	}
	return out
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
