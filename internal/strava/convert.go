package strava

import (
	"math"
	"time"

	"github.com/briangreenhill/ridestats/internal/metrics"
	"github.com/briangreenhill/ridestats/internal/training"
)

var rideTypes = map[string]bool{
	"Ride":              true,
	"VirtualRide":       true,
	"GravelRide":        true,
	"MountainBikeRide":  true,
	"EBikeRide":         true,
	"EMountainBikeRide": true,
}

// IsRide reports whether the activity is a cycling sport type
func IsRide(a Activity) bool {
	return rideTypes[a.SportType]
}

// Rides keeps the cycling activities
func Rides(activities []Activity) []Activity {
	out := make([]Activity, 0, len(activities))
	for _, a := range activities {
		if IsRide(a) {
			out = append(out, a)
		}
	}
	return out
}

// ToTraining maps an activity onto a training. The result has no ID or tags.
func ToTraining(a Activity) training.Training {
	t := training.Training{
		StravaID:       training.Some(a.ID),
		Name:           a.Name,
		Date:           a.StartDate.UTC(),
		DistanceKm:     a.Distance / 1000,
		MovingTime:     training.FormatDuration(time.Duration(a.MovingTime) * time.Second),
		ElevationGainM: a.TotalElevationGain,
	}

	if a.AverageSpeed > 0 {
		t.AvgSpeedKmh = training.Some(kmh(a.AverageSpeed))
	} else if s, err := metrics.AverageSpeedKmh(t.DistanceKm, t.MovingTime); err == nil {
		t.AvgSpeedKmh = s
	}
	if a.MaxSpeed > 0 {
		t.MaxSpeedKmh = training.Some(kmh(a.MaxSpeed))
	}

	if a.HasHeartrate {
		if a.AverageHeartrate != nil {
			t.AvgHeartRate = training.Some(int(math.Round(*a.AverageHeartrate)))
		}
		if a.MaxHeartrate != nil {
			t.MaxHeartRate = training.Some(int(math.Round(*a.MaxHeartrate)))
		}
	}
	return t
}

func kmh(mps float64) float64 {
	return math.Round(mps*3.6*100) / 100
}
