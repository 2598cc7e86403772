package metrics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/briangreenhill/ridestats/internal/training"
)

// ErrInvalidNormalization is returned when a max value is zero, negative or not finite
var ErrInvalidNormalization = errors.New("invalid normalization reference")

// Epsilon floors derived maxima so a degenerate collection still normalizes
const Epsilon = 1e-6

// Weights blend the four normalized components into one intensity
type Weights struct {
	Distance  float64 `json:"distance"`
	Speed     float64 `json:"speed"`
	HeartRate float64 `json:"heart_rate"`
	Elevation float64 `json:"elevation"`
}

// DefaultWeights favour volume and pace over heart rate and climbing
var DefaultWeights = Weights{
	Distance:  0.3,
	Speed:     0.3,
	HeartRate: 0.2,
	Elevation: 0.2,
}

// Validate checks every weight is in [0,1] and the total is 1
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"distance":   w.Distance,
		"speed":      w.Speed,
		"heart_rate": w.HeartRate,
		"elevation":  w.Elevation,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("weight %s out of range: %v", name, v)
		}
	}
	sum := w.Distance + w.Speed + w.HeartRate + w.Elevation
	if math.Abs(sum-1) > 1e-9 {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
}

// MaxValues is the reference each component is normalized against
type MaxValues struct {
	Distance  float64 `json:"maxDistance"`
	Speed     float64 `json:"maxSpeed"`
	HeartRate float64 `json:"maxHR"`
	Elevation float64 `json:"maxElevation"`
}

// MaxValuesOf takes componentwise maxima over ts, floored at Epsilon
func MaxValuesOf(ts []training.Training) MaxValues {
	m := MaxValues{Distance: Epsilon, Speed: Epsilon, HeartRate: Epsilon, Elevation: Epsilon}
	for _, t := range ts {
		m.Distance = math.Max(m.Distance, t.DistanceKm)
		m.Elevation = math.Max(m.Elevation, t.ElevationGainM)
		if v, ok := t.AvgSpeedKmh.Get(); ok {
			m.Speed = math.Max(m.Speed, v)
		}
		if v, ok := t.AvgHeartRate.Get(); ok {
			m.HeartRate = math.Max(m.HeartRate, float64(v))
		}
	}
	return m
}

// LoadResult is the scored intensity of one ride with its per-component breakdown.
// Contributions are rounded separately so they may not add up to Intensity exactly.
type LoadResult struct {
	Date                  time.Time `json:"date"`
	Intensity             int       `json:"intensity"`
	DistanceContribution  int       `json:"distanceContribution"`
	SpeedContribution     int       `json:"speedContribution"`
	HeartRateContribution int       `json:"heartRateContribution"`
	ElevationContribution int       `json:"elevationContribution"`
}

// Scorer computes training load. The zero value is not usable, use NewScorer or DefaultScorer.
type Scorer struct {
	Weights Weights
	// NeutralHeartRate is the heart-rate score given to rides recorded without a sensor
	NeutralHeartRate float64
}

// DefaultScorer uses DefaultWeights and scores missing heart rate as 0.5
func DefaultScorer() Scorer {
	return Scorer{Weights: DefaultWeights, NeutralHeartRate: 0.5}
}

func NewScorer(w Weights, neutralHeartRate float64) (Scorer, error) {
	if err := w.Validate(); err != nil {
		return Scorer{}, err
	}
	if neutralHeartRate < 0 || neutralHeartRate > 1 || math.IsNaN(neutralHeartRate) {
		return Scorer{}, fmt.Errorf("neutral heart rate score out of range: %v", neutralHeartRate)
	}
	return Scorer{Weights: w, NeutralHeartRate: neutralHeartRate}, nil
}

// HeartRateScore normalizes avg heart rate, or returns neutral when the ride has none
func HeartRateScore(hr training.Optional[int], maxHR, neutral float64) (float64, error) {
	v, ok := hr.Get()
	if !ok {
		return neutral, nil
	}
	return normalize(float64(v), maxHR)
}

// Score rates t against max
func (s Scorer) Score(t training.Training, max MaxValues) (LoadResult, error) {
	distance, err := normalize(t.DistanceKm, max.Distance)
	if err != nil {
		return LoadResult{}, fmt.Errorf("distance: %w", err)
	}
	elevation, err := normalize(t.ElevationGainM, max.Elevation)
	if err != nil {
		return LoadResult{}, fmt.Errorf("elevation: %w", err)
	}
	var speed float64
	if v, ok := t.AvgSpeedKmh.Get(); ok {
		if speed, err = normalize(v, max.Speed); err != nil {
			return LoadResult{}, fmt.Errorf("speed: %w", err)
		}
	}
	hr, err := HeartRateScore(t.AvgHeartRate, max.HeartRate, s.NeutralHeartRate)
	if err != nil {
		return LoadResult{}, fmt.Errorf("heart rate: %w", err)
	}

	w := s.Weights
	sum := distance*w.Distance + speed*w.Speed + hr*w.HeartRate + elevation*w.Elevation
	return LoadResult{
		Date:                  t.Date,
		Intensity:             percent(sum),
		DistanceContribution:  percent(distance * w.Distance),
		SpeedContribution:     percent(speed * w.Speed),
		HeartRateContribution: percent(hr * w.HeartRate),
		ElevationContribution: percent(elevation * w.Elevation),
	}, nil
}

// normalize returns v/max clamped to [0,1]
func normalize(v, max float64) (float64, error) {
	if max <= 0 || math.IsNaN(max) || math.IsInf(max, 0) {
		return 0, fmt.Errorf("%w: max %v", ErrInvalidNormalization, max)
	}
	if math.IsNaN(v) {
		return 0, nil
	}
	return math.Min(math.Max(v/max, 0), 1), nil
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
