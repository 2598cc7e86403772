// Package metrics turns training collections into chart series and load scores.
package metrics

import (
	"errors"
	"math"

	"github.com/briangreenhill/ridestats/internal/training"
)

// ErrZeroDistance is returned when a per-km metric is asked for a ride with no distance
var ErrZeroDistance = errors.New("training has zero distance")

// ElevationPerKm returns elevation gain per kilometre rounded to two decimals
func ElevationPerKm(t training.Training) (float64, error) {
	if t.DistanceKm <= 0 || math.IsNaN(t.DistanceKm) {
		return 0, ErrZeroDistance
	}
	return round2(t.ElevationGainM / t.DistanceKm), nil
}

// AverageSpeedKmh derives speed from distance and moving time.
// Used when neither Strava nor the FIT summary supplied one.
func AverageSpeedKmh(distanceKm float64, movingTime string) (training.Optional[float64], error) {
	minutes, err := training.Minutes(movingTime, training.Exact)
	if err != nil {
		return training.None[float64](), err
	}
	if minutes <= 0 || distanceKm < 0 {
		return training.None[float64](), nil
	}
	return training.Some(round2(distanceKm / (minutes / 60))), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
