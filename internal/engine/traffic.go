package engine

import (
	"context"
	"math"
	"sort"
	"time"

	"skywatch/internal/signature"
	"skywatch/internal/track"
	"skywatch/internal/zones"
)

// SeasonalComparison contrasts the window's traffic with the same
// window one year earlier.
type SeasonalComparison struct {
	CurrentFlights  int      `json:"current_flights"`
	PreviousFlights int      `json:"previous_flights"`
	ChangePct       *float64 `json:"change_pct"`
}

// HourlyTraffic is one hour-of-day traffic bin with its deviation from
// the window mean.
type HourlyTraffic struct {
	Hour         int     `json:"hour"`
	Flights      int     `json:"flights"`
	DeviationPct float64 `json:"deviation_pct"`
	Unusual      bool    `json:"unusual"`
}

// AirportCount is a per-destination flight count.
type AirportCount struct {
	Airport string `json:"airport"`
	Flights int    `json:"flights"`
}

// SignalLossEvent is one reception gap on one flight.
type SignalLossEvent struct {
	FlightID  string    `json:"flight_id"`
	Timestamp time.Time `json:"ts"`
	GapSecs   int       `json:"gap_secs"`
}

// TrafficResult is the traffic batch payload.
type TrafficResult struct {
	Window                 WindowInfo         `json:"window"`
	SeasonalYearComparison SeasonalComparison `json:"seasonal_year_comparison"`
	SpecialEventsImpact    []HourlyTraffic    `json:"special_events_impact"`
	AlternateAirports      []AirportCount     `json:"alternate_airports"`
	SignalLoss             []SignalLossEvent  `json:"signal_loss"`
	SignalLossClusters     []zones.Zone       `json:"signal_loss_clusters"`
	SkippedFlights         int                `json:"skipped_flights"`
}

// TrafficJSON serves the traffic batch through the window cache.
func (e *Engine) TrafficJSON(ctx context.Context, w track.Window) ([]byte, error) {
	return e.cachedJSON(ctx, "traffic", w, func() (interface{}, error) {
		return e.Traffic(ctx, w)
	})
}

// Traffic computes the traffic batch for one window.
func (e *Engine) Traffic(ctx context.Context, w track.Window) (*TrafficResult, error) {
	snap, err := e.snapshot(ctx, w)
	if err != nil {
		return nil, err
	}

	seasonal, err := e.seasonalComparison(ctx, w, len(snap.flights))
	if err != nil {
		return nil, err
	}

	lossEvents := e.signalLossEvents(snap)

	return &TrafficResult{
		Window:                 windowInfo(w),
		SeasonalYearComparison: seasonal,
		SpecialEventsImpact:    hourlyTraffic(snap.flights),
		AlternateAirports:      alternateAirports(snap.flights),
		SignalLoss:             lossEvents,
		SignalLossClusters:     e.zones.Aggregate(snap.flaggedByRule(signature.RuleSignalLossGap), snap.scores),
		SkippedFlights:         snap.skipped,
	}, nil
}

// seasonalComparison counts flights in the same window shifted back one
// year. A missing baseline yields a null change percentage, not NaN.
func (e *Engine) seasonalComparison(ctx context.Context, w track.Window, current int) (SeasonalComparison, error) {
	prevWindow := track.Window{
		Start: w.Start.AddDate(-1, 0, 0),
		End:   w.End.AddDate(-1, 0, 0),
	}
	prevFlights, err := e.store.FlightsInWindow(ctx, prevWindow)
	if err != nil {
		return SeasonalComparison{}, err
	}

	previous := 0
	for _, f := range prevFlights {
		if f.Valid() {
			previous++
		}
	}

	out := SeasonalComparison{CurrentFlights: current, PreviousFlights: previous}
	if previous > 0 {
		pct := math.Round(float64(current-previous)/float64(previous)*1000) / 10
		out.ChangePct = &pct
	}
	return out, nil
}

// hourlyTraffic bins flights by the UTC hour of their first point and
// flags hours that deviate strongly from the mean. The reported
// deviations are the actual aggregated counts, never reshaped.
func hourlyTraffic(flights []*track.Flight) []HourlyTraffic {
	var hours [24]int
	total := 0
	for _, f := range flights {
		if len(f.Points) == 0 {
			continue
		}
		hours[f.Points[0].Timestamp.UTC().Hour()]++
		total++
	}
	mean := float64(total) / 24.0

	out := make([]HourlyTraffic, 24)
	for h := 0; h < 24; h++ {
		dev := 0.0
		if mean > 0 {
			dev = math.Round((float64(hours[h])-mean)/mean*1000) / 10
		}
		out[h] = HourlyTraffic{
			Hour:         h,
			Flights:      hours[h],
			DeviationPct: dev,
			Unusual:      math.Abs(dev) >= 50 && hours[h] > 0,
		}
	}
	return out
}

// alternateAirports ranks destinations by flight count.
func alternateAirports(flights []*track.Flight) []AirportCount {
	counts := map[string]int{}
	for _, f := range flights {
		if f.Destination != "" {
			counts[f.Destination]++
		}
	}
	out := make([]AirportCount, 0, len(counts))
	for airport, n := range counts {
		out = append(out, AirportCount{Airport: airport, Flights: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Flights != out[j].Flights {
			return out[i].Flights > out[j].Flights
		}
		return out[i].Airport < out[j].Airport
	})
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// signalLossEvents lists every reception gap at or beyond the signal
// loss threshold, with the measured gap length.
func (e *Engine) signalLossEvents(snap *windowSnapshot) []SignalLossEvent {
	threshold := time.Duration(e.cfg.Signature.SignalGapMinSecs) * time.Second

	out := []SignalLossEvent{}
	for _, f := range snap.flights {
		for i := 1; i < len(f.Points); i++ {
			gap := f.Points[i].Timestamp.Sub(f.Points[i-1].Timestamp)
			if gap >= threshold {
				out = append(out, SignalLossEvent{
					FlightID:  f.ID,
					Timestamp: f.Points[i].Timestamp,
					GapSecs:   int(gap.Seconds()),
				})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].FlightID < out[j].FlightID
	})
	return out
}
