package signature

import (
	"math"
	"time"

	"skywatch/internal/config"
	"skywatch/internal/geo"
	"skywatch/internal/track"
)

// RuleID identifies one jamming/spoofing signature rule
type RuleID string

const (
	RuleAltitudeJump     RuleID = "altitude_jump"
	RuleSpoofedAltitude  RuleID = "spoofed_altitude"
	RuleImpossibleSpeed  RuleID = "impossible_speed"
	RulePositionTeleport RuleID = "position_teleport"
	RuleMLATOnly         RuleID = "mlat_only"
	RuleImpossibleTurn   RuleID = "impossible_turn_rate"
	RuleSignalLossGap    RuleID = "signal_loss_gap"
	RuleZeroSpeedAloft   RuleID = "zero_speed_airborne"
)

// ruleCaps is the ceiling each rule contributes, applied once per flight.
var ruleCaps = map[RuleID]int{
	RuleAltitudeJump:     20,
	RuleSpoofedAltitude:  15,
	RuleImpossibleSpeed:  15,
	RulePositionTeleport: 15,
	RuleMLATOnly:         8,
	RuleImpossibleTurn:   12,
	RuleSignalLossGap:    20,
	RuleZeroSpeedAloft:   5,
}

// Cap returns the point ceiling for a rule, 0 for unknown rules.
func Cap(id RuleID) int {
	return ruleCaps[id]
}

// Confidence is the categorical band derived from a numeric score
type Confidence string

const (
	ConfidenceHigh     Confidence = "HIGH"
	ConfidenceMedium   Confidence = "MEDIUM"
	ConfidenceLow      Confidence = "LOW"
	ConfidenceUnlikely Confidence = "UNLIKELY"
)

// ConfidenceFor maps a 0-100 score to its confidence band.
func ConfidenceFor(score int) Confidence {
	switch {
	case score >= 60:
		return ConfidenceHigh
	case score >= 35:
		return ConfidenceMedium
	case score >= 15:
		return ConfidenceLow
	default:
		return ConfidenceUnlikely
	}
}

// Flagged is one track point that contributed evidence to a rule.
type Flagged struct {
	FlightID string      `json:"flight_id"`
	Rule     RuleID      `json:"rule"`
	Point    track.Point `json:"point"`
}

// Score is the per-flight signature evaluation result
type Score struct {
	FlightID        string         `json:"flight_id"`
	ComponentScores map[RuleID]int `json:"component_scores"`
	Total           int            `json:"total"`
	Confidence      Confidence     `json:"confidence"`

	// Flagged lists every point that triggered a rule, for downstream
	// clustering and similarity search. Not part of the score contract.
	Flagged []Flagged `json:"-"`
}

// TriggeredRules returns the rule ids that contributed points, in a
// fixed order.
func (s *Score) TriggeredRules() []RuleID {
	order := []RuleID{
		RuleAltitudeJump, RuleSpoofedAltitude, RuleImpossibleSpeed,
		RulePositionTeleport, RuleMLATOnly, RuleImpossibleTurn,
		RuleSignalLossGap, RuleZeroSpeedAloft,
	}
	var out []RuleID
	for _, id := range order {
		if s.ComponentScores[id] > 0 {
			out = append(out, id)
		}
	}
	return out
}

// Detector scores flights against the jamming signature rule set.
// Detection is a pure function of the flight track.
type Detector struct {
	cfg config.SignatureConfig
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg config.SignatureConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect evaluates every consecutive track point pair of the flight and
// accumulates capped rule points. Flights with fewer than two points
// cannot be evaluated and score zero.
func (d *Detector) Detect(f *track.Flight) Score {
	score := Score{
		FlightID:        f.ID,
		ComponentScores: map[RuleID]int{},
		Confidence:      ConfidenceUnlikely,
	}

	if len(f.Points) < 2 {
		return score
	}

	trigger := func(rule RuleID, p track.Point) {
		score.ComponentScores[rule] = ruleCaps[rule]
		score.Flagged = append(score.Flagged, Flagged{FlightID: f.ID, Rule: rule, Point: p})
	}

	gapMin := time.Duration(d.cfg.SignalGapMinSecs) * time.Second

	for i := 1; i < len(f.Points); i++ {
		prev, cur := f.Points[i-1], f.Points[i]
		dt := cur.Timestamp.Sub(prev.Timestamp)

		if dt >= gapMin {
			trigger(RuleSignalLossGap, cur)
		}

		if dt <= 0 {
			// Duplicate or out-of-order timestamps; rate rules are
			// meaningless for this pair.
			continue
		}

		dtSec := dt.Seconds()

		if math.Abs(cur.AltFt-prev.AltFt)/dtSec > d.cfg.AltitudeJumpFtPerSec {
			trigger(RuleAltitudeJump, cur)
		}

		impliedKt := geo.HaversineNM(prev.Lat, prev.Lon, cur.Lat, cur.Lon) / (dtSec / 3600.0)
		if impliedKt > d.cfg.MaxImpliedSpeedKt {
			trigger(RulePositionTeleport, cur)
		}

		if geo.AngularDiffDeg(prev.HeadingDeg, cur.HeadingDeg)/dtSec > d.cfg.MaxTurnRateDegPerSec {
			trigger(RuleImpossibleTurn, cur)
		}
	}

	for _, p := range f.Points {
		if p.SpeedKt > d.cfg.MaxGroundSpeedKt {
			trigger(RuleImpossibleSpeed, p)
		}
		for _, fake := range d.cfg.FakeAltitudesFt {
			if math.Abs(p.AltFt-fake) <= d.cfg.FakeAltitudeEpsilonFt {
				trigger(RuleSpoofedAltitude, p)
				break
			}
		}
		if p.SpeedKt == 0 && p.AltFt > d.cfg.ZeroSpeedMinAltFt {
			trigger(RuleZeroSpeedAloft, p)
		}
	}

	if f.MLATShare() > d.cfg.MLATShareThreshold {
		// Flat contribution, no representative point: the whole track is
		// the evidence. Flag the last point so zones still see it.
		if last, ok := f.LastPoint(); ok {
			trigger(RuleMLATOnly, last)
		}
	}

	total := 0
	for _, pts := range score.ComponentScores {
		total += pts
	}
	if total > 100 {
		total = 100
	}
	score.Total = total
	score.Confidence = ConfidenceFor(total)

	return score
}
