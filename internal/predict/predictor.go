package predict

import (
	"math"
	"time"

	"skywatch/internal/config"
	"skywatch/internal/geo"
	"skywatch/internal/track"
	"skywatch/internal/zones"
)

// PredictedPoint is one extrapolated future position.
type PredictedPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	AltFt     float64 `json:"alt_ft"`
	OffsetMin int     `json:"offset_min"`
}

// ZoneDistance names a jamming zone and the predicted path's closest
// approach to it.
type ZoneDistance struct {
	ZoneID     string  `json:"zone_id"`
	DistanceNM float64 `json:"distance_nm"`
}

// Prediction is the dead-reckoned path for one flight with jamming zone
// breach warnings.
type Prediction struct {
	FlightID             string           `json:"flight_id"`
	PredictedPath        []PredictedPoint `json:"predicted_path"`
	BreachWarning        bool             `json:"breach_warning"`
	BreachZone           *string          `json:"breach_zone"`
	BreachSeverity       *string          `json:"breach_severity"`
	PredictionConfidence string           `json:"prediction_confidence"`
	ClosestZone          *ZoneDistance    `json:"closest_zone"`
}

// minBreachRadiusNM floors the effective zone radius so single-point
// zones still produce warnings.
const minBreachRadiusNM = 10.0

// Predictor extrapolates flight positions by dead reckoning from the
// last recorded points.
type Predictor struct {
	cfg config.PredictConfig
}

// New creates a predictor.
func New(cfg config.PredictConfig) *Predictor {
	return &Predictor{cfg: cfg}
}

// Predict dead-reckons the flight forward in fixed steps and tests each
// predicted position against the supplied jamming zones. Heading is a
// circular mean of the last few samples to damp jitter; vertical rate
// comes from the last two points.
func (p *Predictor) Predict(f *track.Flight, zs []zones.Zone) (*Prediction, error) {
	// Dead reckoning needs at least two points for the rate terms, no
	// matter how low min_points is configured.
	required := p.cfg.MinPoints
	if required < 2 {
		required = 2
	}
	if len(f.Points) < required {
		return nil, &track.InsufficientDataError{
			FlightID: f.ID,
			Points:   len(f.Points),
			Required: required,
		}
	}

	last := f.Points[len(f.Points)-1]
	prev := f.Points[len(f.Points)-2]

	heading := p.meanHeading(f.Points)
	speed := last.SpeedKt
	if speed == 0 {
		if dt := last.Timestamp.Sub(prev.Timestamp).Seconds(); dt > 0 {
			speed = geo.HaversineNM(prev.Lat, prev.Lon, last.Lat, last.Lon) / (dt / 3600.0)
		}
	}

	verticalFtMin := 0.0
	if dt := last.Timestamp.Sub(prev.Timestamp).Minutes(); dt > 0 {
		verticalFtMin = (last.AltFt - prev.AltFt) / dt
	}

	pred := &Prediction{
		FlightID:             f.ID,
		PredictedPath:        make([]PredictedPoint, 0, p.cfg.Steps),
		PredictionConfidence: p.confidence(f.Points),
	}

	var closest *ZoneDistance
	for step := 1; step <= p.cfg.Steps; step++ {
		minutes := float64(step * p.cfg.StepMinutes)
		distNM := speed * minutes / 60.0
		lat, lon := geo.DestinationPoint(last.Lat, last.Lon, heading, distNM)
		alt := math.Max(0, last.AltFt+verticalFtMin*minutes)

		pp := PredictedPoint{
			Lat:       math.Round(lat*1e5) / 1e5,
			Lon:       math.Round(lon*1e5) / 1e5,
			AltFt:     math.Round(alt),
			OffsetMin: step * p.cfg.StepMinutes,
		}
		pred.PredictedPath = append(pred.PredictedPath, pp)

		for i := range zs {
			z := &zs[i]
			d := geo.HaversineNM(lat, lon, z.CentroidLat, z.CentroidLon)
			if closest == nil || d < closest.DistanceNM {
				closest = &ZoneDistance{ZoneID: z.ID, DistanceNM: math.Round(d*10) / 10}
			}
			if !pred.BreachWarning && d <= zoneRadiusNM(z) {
				pred.BreachWarning = true
				id := z.ID
				sev := breachSeverity(z.MeanScore)
				pred.BreachZone = &id
				pred.BreachSeverity = &sev
			}
		}
	}
	pred.ClosestZone = closest

	return pred, nil
}

// meanHeading is the circular mean of the most recent headings.
func (p *Predictor) meanHeading(points []track.Point) float64 {
	depth := p.cfg.HeadingDepth
	if depth < 1 {
		depth = 1
	}
	if depth > len(points) {
		depth = len(points)
	}

	var sinSum, cosSum float64
	for _, pt := range points[len(points)-depth:] {
		rad := pt.HeadingDeg * math.Pi / 180
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}
	deg := math.Atan2(sinSum, cosSum) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// confidence grades the prediction by track density and freshness of
// the final samples.
func (p *Predictor) confidence(points []track.Point) string {
	last := points[len(points)-1]
	prev := points[len(points)-2]
	gap := last.Timestamp.Sub(prev.Timestamp)

	if gap > time.Duration(p.cfg.MaxTrackAge)*time.Second {
		return "LOW"
	}
	switch {
	case len(points) >= 10 && gap <= time.Minute:
		return "HIGH"
	case len(points) >= 5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// zoneRadiusNM is the zone's effective breach radius: the farthest
// member point from the centroid, floored for tiny zones.
func zoneRadiusNM(z *zones.Zone) float64 {
	r := minBreachRadiusNM
	for _, p := range z.Points() {
		if d := geo.HaversineNM(z.CentroidLat, z.CentroidLon, p[0], p[1]); d > r {
			r = d
		}
	}
	return r
}

func breachSeverity(meanScore float64) string {
	switch {
	case meanScore >= 60:
		return "HIGH"
	case meanScore >= 35:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
