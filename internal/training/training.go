// Package training holds the ride model shared by storage, import and metrics code.
package training

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Training is one completed ride
type Training struct {
	ID             uuid.UUID                `json:"id"`
	StravaID       Optional[int64]          `json:"strava_id"`
	Name           string                   `json:"name"`
	Date           time.Time                `json:"date"`
	DistanceKm     float64                  `json:"distance_km"`
	MovingTime     string                   `json:"moving_time"`
	AvgSpeedKmh    Optional[float64]        `json:"avg_speed_kmh"`
	MaxSpeedKmh    Optional[float64]        `json:"max_speed_kmh"`
	AvgHeartRate   Optional[int]            `json:"avg_heart_rate_bpm"`
	MaxHeartRate   Optional[int]            `json:"max_heart_rate_bpm"`
	ElevationGainM float64                  `json:"elevation_gain_m"`
	HeartRateZones Optional[HeartRateZones] `json:"heart_rate_zones"`
	FitProcessed   bool                     `json:"fit_processed"`
	Notes          string                   `json:"notes"`
	Tags           []Tag                    `json:"tags"`
}

// Tag labels trainings for grouping and filtering
type Tag struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Color string    `json:"color"`
}

// HeartRateZones is time spent in each of the five intensity bands.
// Values are only built through NewHeartRateZones so partial data cannot exist.
type HeartRateZones struct {
	Zone1 string `json:"zone_1"`
	Zone2 string `json:"zone_2"`
	Zone3 string `json:"zone_3"`
	Zone4 string `json:"zone_4"`
	Zone5 string `json:"zone_5"`
}

// NewHeartRateZones validates five "H:MM:SS" strings
func NewHeartRateZones(zones [5]string) (HeartRateZones, error) {
	for i, z := range zones {
		if _, err := ParseDuration(z); err != nil {
			return HeartRateZones{}, fmt.Errorf("zone %d: %w", i+1, err)
		}
	}
	return HeartRateZones{
		Zone1: zones[0],
		Zone2: zones[1],
		Zone3: zones[2],
		Zone4: zones[3],
		Zone5: zones[4],
	}, nil
}

// All returns the zones in order
func (z HeartRateZones) All() [5]string {
	return [5]string{z.Zone1, z.Zone2, z.Zone3, z.Zone4, z.Zone5}
}
