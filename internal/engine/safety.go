package engine

import (
	"context"
	"math"

	"skywatch/internal/track"
	"skywatch/internal/weather"
	"skywatch/pkg/logger"
)

// SafetyHour correlates hourly traffic volume with flagged anomaly
// events. Counts are reported as aggregated, with no reshaping.
type SafetyHour struct {
	Hour            int     `json:"hour"`
	Flights         int     `json:"flights"`
	FlaggedEvents   int     `json:"flagged_events"`
	EventsPerFlight float64 `json:"events_per_flight"`
}

// SafetyResult is the safety batch payload.
type SafetyResult struct {
	Window                   WindowInfo      `json:"window"`
	WeatherImpact            *weather.Impact `json:"weather_impact"`
	TrafficSafetyCorrelation []SafetyHour    `json:"traffic_safety_correlation"`
	SkippedFlights           int             `json:"skipped_flights"`
}

// SafetyJSON serves the safety batch through the window cache.
func (e *Engine) SafetyJSON(ctx context.Context, w track.Window) ([]byte, error) {
	return e.cachedJSON(ctx, "safety", w, func() (interface{}, error) {
		return e.Safety(ctx, w)
	})
}

// Safety computes the safety batch for one window. Weather enrichment
// is best effort: an unreachable upstream degrades to a null
// weather_impact, never a failed batch.
func (e *Engine) Safety(ctx context.Context, w track.Window) (*SafetyResult, error) {
	snap, err := e.snapshot(ctx, w)
	if err != nil {
		return nil, err
	}

	var impact *weather.Impact
	if e.weather != nil {
		impact, err = e.weather.CurrentImpact(ctx)
		if err != nil {
			e.logger.Warn("weather enrichment unavailable", logger.Error(err))
			impact = nil
		}
	}

	return &SafetyResult{
		Window:                   windowInfo(w),
		WeatherImpact:            impact,
		TrafficSafetyCorrelation: safetyCorrelation(snap),
		SkippedFlights:           snap.skipped,
	}, nil
}

// safetyCorrelation bins flights and flagged events by UTC hour.
func safetyCorrelation(snap *windowSnapshot) []SafetyHour {
	var flights, events [24]int
	for _, f := range snap.flights {
		if len(f.Points) > 0 {
			flights[f.Points[0].Timestamp.UTC().Hour()]++
		}
	}
	for _, fp := range snap.flagged {
		events[fp.Point.Timestamp.UTC().Hour()]++
	}

	out := make([]SafetyHour, 24)
	for h := 0; h < 24; h++ {
		ratio := 0.0
		if flights[h] > 0 {
			ratio = math.Round(float64(events[h])/float64(flights[h])*100) / 100
		}
		out[h] = SafetyHour{
			Hour:            h,
			Flights:         flights[h],
			FlaggedEvents:   events[h],
			EventsPerFlight: ratio,
		}
	}
	return out
}
