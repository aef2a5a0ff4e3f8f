package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"skywatch/internal/cache"
	"skywatch/internal/classify"
	"skywatch/internal/config"
	"skywatch/internal/dna"
	"skywatch/internal/geo"
	"skywatch/internal/predict"
	"skywatch/internal/proximity"
	"skywatch/internal/signature"
	"skywatch/internal/threat"
	"skywatch/internal/track"
	"skywatch/internal/triangulate"
	"skywatch/internal/weather"
	"skywatch/internal/zones"
	"skywatch/pkg/logger"
)

// Engine orchestrates the analysis pipeline: one Track Store fetch per
// window, parallel per-flight scoring, then the aggregate stages behind
// a barrier. All results are pure functions of (window, store snapshot)
// and therefore cacheable by window key.
type Engine struct {
	cfg      *config.Config
	store    track.Store
	detector *signature.Detector
	zones    *zones.Aggregator
	triangle *triangulate.Triangulator
	prox     *proximity.Detector
	matcher  *dna.Matcher
	predict  *predict.Predictor
	weather  *weather.Service
	cache    cache.Cache
	group    singleflight.Group
	logger   *logger.Logger
}

// New wires the pipeline stages together.
func New(cfg *config.Config, store track.Store, resultCache cache.Cache, weatherSvc *weather.Service, log *logger.Logger) *Engine {
	detector := signature.NewDetector(cfg.Signature)
	return &Engine{
		cfg:      cfg,
		store:    store,
		detector: detector,
		zones:    zones.NewAggregator(cfg.Zones),
		triangle: triangulate.New(cfg.Triangle),
		prox:     proximity.NewDetector(cfg.Proximity),
		matcher:  dna.NewMatcher(cfg.DNA, store, detector),
		predict:  predict.New(cfg.Predict),
		weather:  weatherSvc,
		cache:    resultCache,
		logger:   log.Named("engine"),
	}
}

// Window builds a validated analysis window from unix second bounds.
func (e *Engine) Window(startTS, endTS int64) (track.Window, error) {
	return track.NewWindow(time.Unix(startTS, 0), time.Unix(endTS, 0), e.cfg.Window.MaxSpan())
}

// WindowInfo echoes the request bounds in every batch payload.
type WindowInfo struct {
	StartTS int64 `json:"start_ts"`
	EndTS   int64 `json:"end_ts"`
}

func windowInfo(w track.Window) WindowInfo {
	return WindowInfo{StartTS: w.Start.Unix(), EndTS: w.End.Unix()}
}

// cachedJSON runs compute for a window at most once concurrently and
// caches the marshaled result by (kind, window key). Cache backend
// failures degrade to recomputation, never to request failure.
func (e *Engine) cachedJSON(ctx context.Context, kind string, w track.Window, compute func() (interface{}, error)) ([]byte, error) {
	key := kind + ":" + w.Key()

	if data, ok, err := e.cache.Get(ctx, key); err != nil {
		e.logger.Warn("cache read failed", logger.String("key", key), logger.Error(err))
	} else if ok {
		return data, nil
	}

	result, err, _ := e.group.Do(key, func() (interface{}, error) {
		out, err := compute()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s batch: %w", kind, err)
		}
		if err := e.cache.Set(ctx, key, data); err != nil {
			e.logger.Warn("cache write failed", logger.String("key", key), logger.Error(err))
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// windowSnapshot is the shared intermediate state every batch builds on:
// the window's flights, their signature scores, and skip accounting.
type windowSnapshot struct {
	window  track.Window
	flights []*track.Flight
	byID    map[string]*track.Flight
	scores  map[string]signature.Score
	flagged []signature.Flagged
	skipped int
}

// snapshot fetches the window's flights once and fans per-flight
// scoring out across the worker pool. Malformed flights are skipped and
// counted, never fatal.
func (e *Engine) snapshot(ctx context.Context, w track.Window) (*windowSnapshot, error) {
	flights, err := e.store.FlightsInWindow(ctx, w)
	if err != nil {
		return nil, fmt.Errorf("failed to load window flights: %w", err)
	}

	snap := &windowSnapshot{
		window: w,
		byID:   map[string]*track.Flight{},
		scores: map[string]signature.Score{},
	}
	for _, f := range flights {
		if !f.Valid() {
			snap.skipped++
			e.logger.Warn("skipping malformed flight record", logger.String("flight_id", f.ID))
			continue
		}
		snap.flights = append(snap.flights, f)
		snap.byID[f.ID] = f
	}

	results := make([]signature.Score, len(snap.flights))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Window.Workers)
	for i, f := range snap.flights {
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.detector.Detect(f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range results {
		snap.scores[s.FlightID] = s
		snap.flagged = append(snap.flagged, s.Flagged...)
	}
	return snap, nil
}

// flaggedTimes extracts event timestamps for temporal bucketing.
func (s *windowSnapshot) flaggedTimes() []time.Time {
	out := make([]time.Time, 0, len(s.flagged))
	for _, fp := range s.flagged {
		out = append(out, fp.Point.Timestamp)
	}
	return out
}

// flaggedByRule filters flagged points down to one rule.
func (s *windowSnapshot) flaggedByRule(rule signature.RuleID) []signature.Flagged {
	var out []signature.Flagged
	for _, fp := range s.flagged {
		if fp.Rule == rule {
			out = append(out, fp)
		}
	}
	return out
}

// observationsFor reconstructs each affected flight's position and
// heading when it entered the zone, for triangulation.
func (e *Engine) observationsFor(z *zones.Zone, snap *windowSnapshot) []triangulate.Observation {
	radius := e.cfg.Zones.ClusterRadiusNM
	obs := make([]triangulate.Observation, 0, len(z.AffectedFlightIDs))
	for _, id := range z.AffectedFlightIDs {
		f, ok := snap.byID[id]
		if !ok {
			continue
		}
		for _, p := range f.Points {
			if geo.HaversineNM(p.Lat, p.Lon, z.CentroidLat, z.CentroidLon) <= radius {
				obs = append(obs, triangulate.Observation{
					FlightID:   id,
					Lat:        p.Lat,
					Lon:        p.Lon,
					HeadingDeg: p.HeadingDeg,
					Score:      snap.scores[id].Total,
				})
				break
			}
		}
	}
	return obs
}

// AnomalyDNA runs the similarity search for one flight.
func (e *Engine) AnomalyDNA(ctx context.Context, flightID string) (*dna.Report, error) {
	return e.matcher.Match(ctx, flightID)
}

// Trajectory predicts a flight's path and tests it against the jamming
// zones active during the flight's own track span.
func (e *Engine) Trajectory(ctx context.Context, flightID string) (*predict.Prediction, error) {
	f, err := e.store.FlightByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if len(f.Points) < e.cfg.Predict.MinPoints {
		return nil, &track.InsufficientDataError{
			FlightID: flightID,
			Points:   len(f.Points),
			Required: e.cfg.Predict.MinPoints,
		}
	}

	zs, err := e.zonesAround(ctx, f)
	if err != nil {
		return nil, err
	}
	return e.predict.Predict(f, zs)
}

// HostileIntent scores one flight's behavior against hostile-activity
// indicators, using the proximity events of its own track span.
func (e *Engine) HostileIntent(ctx context.Context, flightID string) (*threat.IntentReport, error) {
	f, err := e.store.FlightByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if len(f.Points) < 2 {
		return nil, &track.InsufficientDataError{FlightID: flightID, Points: len(f.Points), Required: 2}
	}

	snap, err := e.snapshotAround(ctx, f)
	if err != nil {
		return nil, err
	}

	cls := classify.Classify(f)
	events := e.prox.Detect(militaryTargets(snap))
	return threat.ScoreIntent(f, e.detector.Detect(f), cls, events)
}

// spanWindow builds a window covering one flight's own track.
func (e *Engine) spanWindow(f *track.Flight) (track.Window, error) {
	start := f.Points[0].Timestamp
	end := f.Points[len(f.Points)-1].Timestamp.Add(time.Second)
	return track.NewWindow(start, end, 0)
}

func (e *Engine) snapshotAround(ctx context.Context, f *track.Flight) (*windowSnapshot, error) {
	w, err := e.spanWindow(f)
	if err != nil {
		return nil, err
	}
	return e.snapshot(ctx, w)
}

// zonesAround computes the jamming zones active during the flight's span.
func (e *Engine) zonesAround(ctx context.Context, f *track.Flight) ([]zones.Zone, error) {
	snap, err := e.snapshotAround(ctx, f)
	if err != nil {
		return nil, err
	}
	return e.zones.Aggregate(snap.flagged, snap.scores), nil
}

// militaryTargets classifies the snapshot's military flights for the
// proximity stage, in deterministic order.
func militaryTargets(snap *windowSnapshot) []proximity.Target {
	var targets []proximity.Target
	for _, f := range snap.flights {
		if !f.Military {
			continue
		}
		cls := classify.Classify(f)
		targets = append(targets, proximity.Target{Flight: f, Country: cls.Country})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Flight.ID < targets[j].Flight.ID })
	return targets
}
