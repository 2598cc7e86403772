package strava

import "time"

// Activity is the summary representation returned by /athlete/activities
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Distance           float64   `json:"distance"`    // meters
	MovingTime         int64     `json:"moving_time"` // sec
	ElapsedTime        int64     `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageSpeed       float64   `json:"average_speed"` // m/s
	MaxSpeed           float64   `json:"max_speed"`
	HasHeartrate       bool      `json:"has_heartrate"`
	AverageHeartrate   *float64  `json:"average_heartrate,omitempty"`
	MaxHeartrate       *float64  `json:"max_heartrate,omitempty"`
	Trainer            bool      `json:"trainer"`
}

type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
}
