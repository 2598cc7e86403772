package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/briangreenhill/ridestats/internal/metrics"
)

// Profile is the optional TOML scoring profile. Unset keys keep defaults.
//
//	[weights]
//	distance = 0.3
//	speed = 0.3
//	heart_rate = 0.2
//	elevation = 0.2
//
//	[scoring]
//	neutral_heart_rate = 0.5
//	epoch = 2020-01-01T00:00:00Z
type Profile struct {
	Weights WeightsConfig `toml:"weights"`
	Scoring ScoringConfig `toml:"scoring"`
}

type WeightsConfig struct {
	Distance  *float64 `toml:"distance"`
	Speed     *float64 `toml:"speed"`
	HeartRate *float64 `toml:"heart_rate"`
	Elevation *float64 `toml:"elevation"`
}

type ScoringConfig struct {
	NeutralHeartRate *float64   `toml:"neutral_heart_rate"`
	Epoch            *time.Time `toml:"epoch"`
}

// LoadProfile reads a TOML profile from path. Missing file is not an error.
func LoadProfile(path string) (Profile, error) {
	if path == "" {
		return Profile{}, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Profile{}, nil
		}
		return Profile{}, fmt.Errorf("failed to stat profile: %w", err)
	}
	var p Profile
	if _, err := toml.DecodeFile(path, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p, nil
}

// Scorer applies the profile over metrics.DefaultScorer and validates the result
func (p Profile) Scorer() (metrics.Scorer, error) {
	s := metrics.DefaultScorer()
	w := s.Weights
	setFloat(&w.Distance, p.Weights.Distance)
	setFloat(&w.Speed, p.Weights.Speed)
	setFloat(&w.HeartRate, p.Weights.HeartRate)
	setFloat(&w.Elevation, p.Weights.Elevation)
	neutral := s.NeutralHeartRate
	setFloat(&neutral, p.Scoring.NeutralHeartRate)

	scorer, err := metrics.NewScorer(w, neutral)
	if err != nil {
		return metrics.Scorer{}, fmt.Errorf("scoring profile: %w", err)
	}
	return scorer, nil
}

// Filters applies the profile epoch over metrics.DefaultFilters
func (p Profile) Filters() metrics.Filters {
	f := metrics.DefaultFilters()
	if p.Scoring.Epoch != nil {
		f.Epoch = p.Scoring.Epoch.UTC()
	}
	return f
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
