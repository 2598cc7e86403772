package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/briangreenhill/ridestats/internal/training"
)

// HeartRatePoint is one ride's zone minutes for the heart-rate chart
type HeartRatePoint struct {
	Date         time.Time `json:"date"`
	AvgHeartRate int       `json:"avgHeartRate"`
	Zone1        int       `json:"zone_1"`
	Zone2        int       `json:"zone_2"`
	Zone3        int       `json:"zone_3"`
	Zone4        int       `json:"zone_4"`
	Zone5        int       `json:"zone_5"`
}

type ElevationPoint struct {
	Date      time.Time `json:"date"`
	Elevation float64   `json:"elevation"`
}

type SpeedPoint struct {
	Date        time.Time `json:"date"`
	AvgSpeedKmh float64   `json:"avgSpeed"`
	MaxSpeedKmh *float64  `json:"maxSpeed"`
}

type DistancePoint struct {
	Date       time.Time `json:"date"`
	DistanceKm float64   `json:"distance"`
	Minutes    float64   `json:"minutes"`
}

// sortedByDate returns a date-ordered copy; the caller's slice is left alone
func sortedByDate(ts []training.Training) []training.Training {
	out := make([]training.Training, len(ts))
	copy(out, ts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// HeartRateMetricsOverTime emits one point per ride that carries zone data.
// Zone values are whole minutes, seconds are truncated.
func HeartRateMetricsOverTime(ts []training.Training) ([]HeartRatePoint, error) {
	points := make([]HeartRatePoint, 0, len(ts))
	for _, t := range sortedByDate(ts) {
		zones, ok := t.HeartRateZones.Get()
		if !ok {
			continue
		}
		var mins [5]int
		for i, z := range zones.All() {
			m, err := training.Minutes(z, training.Truncate)
			if err != nil {
				return nil, fmt.Errorf("training %s zone %d: %w", t.ID, i+1, err)
			}
			mins[i] = int(m)
		}
		points = append(points, HeartRatePoint{
			Date:         t.Date,
			AvgHeartRate: t.AvgHeartRate.Or(0),
			Zone1:        mins[0],
			Zone2:        mins[1],
			Zone3:        mins[2],
			Zone4:        mins[3],
			Zone5:        mins[4],
		})
	}
	return points, nil
}

// ElevationPerKmMetricsOverTime skips rides with zero distance
func ElevationPerKmMetricsOverTime(ts []training.Training) []ElevationPoint {
	points := make([]ElevationPoint, 0, len(ts))
	for _, t := range sortedByDate(ts) {
		e, err := ElevationPerKm(t)
		if err != nil {
			continue
		}
		points = append(points, ElevationPoint{Date: t.Date, Elevation: e})
	}
	return points
}

func SpeedMetricsOverTime(ts []training.Training) []SpeedPoint {
	points := make([]SpeedPoint, 0, len(ts))
	for _, t := range sortedByDate(ts) {
		avg, ok := t.AvgSpeedKmh.Get()
		if !ok {
			continue
		}
		p := SpeedPoint{Date: t.Date, AvgSpeedKmh: avg}
		if m, ok := t.MaxSpeedKmh.Get(); ok {
			p.MaxSpeedKmh = &m
		}
		points = append(points, p)
	}
	return points
}

// DistanceMetricsOverTime reports distance and moving minutes per ride.
// Rides with an unreadable moving time report zero minutes.
func DistanceMetricsOverTime(ts []training.Training) []DistancePoint {
	points := make([]DistancePoint, 0, len(ts))
	for _, t := range sortedByDate(ts) {
		m, err := training.Minutes(t.MovingTime, training.Exact)
		if err != nil {
			m = 0
		}
		points = append(points, DistancePoint{Date: t.Date, DistanceKm: t.DistanceKm, Minutes: round2(m)})
	}
	return points
}

// TrainingLoadOverTime scores every ride against the maxima of the same collection
func TrainingLoadOverTime(ts []training.Training, s Scorer) ([]LoadResult, error) {
	if len(ts) == 0 {
		return []LoadResult{}, nil
	}
	max := MaxValuesOf(ts)
	results := make([]LoadResult, 0, len(ts))
	for _, t := range sortedByDate(ts) {
		r, err := s.Score(t, max)
		if err != nil {
			return nil, fmt.Errorf("training %s: %w", t.ID, err)
		}
		results = append(results, r)
	}
	return results, nil
}
