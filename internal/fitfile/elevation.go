package fitfile

import "math"

// Elevation is climbing and descending over a run of samples, in metres
type Elevation struct {
	Gain float64 `json:"gain"`
	Loss float64 `json:"loss"`
	Net  float64 `json:"net"`
}

// LapElevation sums altitude changes between consecutive samples.
// Samples without altitude are skipped.
func LapElevation(points []TrackPoint) Elevation {
	gain, loss := 0.0, 0.0
	prev, started := 0.0, false
	for _, p := range points {
		alt, ok := p.AltitudeM.Get()
		if !ok {
			continue
		}
		if started {
			diff := alt - prev
			if diff > 0 {
				gain += diff
			} else {
				loss -= diff
			}
		}
		prev, started = alt, true
	}
	return Elevation{Gain: round1(gain), Loss: round1(loss), Net: round1(gain - loss)}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
