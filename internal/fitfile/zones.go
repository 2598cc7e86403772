package fitfile

import (
	"errors"
	"time"

	"github.com/briangreenhill/ridestats/internal/training"
)

// ErrNoMaxHeartRate is returned when zones are requested without a max heart rate
var ErrNoMaxHeartRate = errors.New("max heart rate is required for zones")

// MaxSampleGap caps the time a single sample can account for, so pauses
// in recording are not credited to the zone of the last sample.
const MaxSampleGap = 10 * time.Second

// ComputeZones calculates time spent in each heart rate zone
func ComputeZones(points []TrackPoint, maxHR int) (training.HeartRateZones, error) {
	if maxHR <= 0 {
		return training.HeartRateZones{}, ErrNoMaxHeartRate
	}
	// Z1 <60%, Z2 60-70%, Z3 70-80%, Z4 80-90%, Z5 >=90%
	cuts := []float64{0.60, 0.70, 0.80, 0.90}

	var z [5]time.Duration
	for i := 0; i+1 < len(points); i++ {
		hr, ok := points[i].HeartRate.Get()
		if !ok || hr <= 0 {
			continue
		}
		dt := points[i+1].Time.Sub(points[i].Time)
		if dt <= 0 {
			continue
		}
		if dt > MaxSampleGap {
			dt = MaxSampleGap
		}
		r := float64(hr) / float64(maxHR)
		switch {
		case r < cuts[0]:
			z[0] += dt
		case r < cuts[1]:
			z[1] += dt
		case r < cuts[2]:
			z[2] += dt
		case r < cuts[3]:
			z[3] += dt
		default:
			z[4] += dt
		}
	}

	var s [5]string
	for i, d := range z {
		s[i] = training.FormatDuration(d)
	}
	return training.NewHeartRateZones(s)
}
