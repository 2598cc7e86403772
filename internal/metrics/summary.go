package metrics

import (
	"time"

	"github.com/briangreenhill/ridestats/internal/training"
)

// Totals sums a collection of rides for the dashboard header
type Totals struct {
	Count      int     `json:"totalTrainings"`
	DistanceKm float64 `json:"totalDistance"`
	ElevationM float64 `json:"totalElevation"`
	Minutes    int     `json:"totalMinutes"`
	TotalTime  string  `json:"totalTime"`
}

// WeekPoint is the distance ridden in the week starting on WeekStart (a Monday, UTC)
type WeekPoint struct {
	WeekStart  time.Time `json:"weekStart"`
	DistanceKm float64   `json:"distance"`
	Rides      int       `json:"rides"`
}

// Summarize totals distance, climbing and moving time. Unreadable moving
// times add nothing to Minutes.
func Summarize(ts []training.Training) Totals {
	var s Totals
	for _, t := range ts {
		s.Count++
		s.DistanceKm += t.DistanceKm
		s.ElevationM += t.ElevationGainM
		if m, err := training.TimeToMinutes(t.MovingTime); err == nil {
			s.Minutes += m
		}
	}
	s.DistanceKm = round2(s.DistanceKm)
	s.ElevationM = round2(s.ElevationM)
	s.TotalTime = training.FormatMinutes(s.Minutes)
	return s
}

// WeeklyDistance buckets rides into the last n weeks ending with the week of now.
// Weeks without rides are reported with zero distance.
func WeeklyDistance(ts []training.Training, n int, now time.Time) []WeekPoint {
	if n <= 0 {
		return []WeekPoint{}
	}
	current := weekStart(now)
	first := current.AddDate(0, 0, -7*(n-1))
	weeks := make([]WeekPoint, n)
	for i := range weeks {
		weeks[i].WeekStart = first.AddDate(0, 0, 7*i)
	}
	for _, t := range ts {
		ws := weekStart(t.Date)
		if ws.Before(first) || ws.After(current) {
			continue
		}
		i := int(ws.Sub(first).Hours() / (24 * 7))
		weeks[i].DistanceKm += t.DistanceKm
		weeks[i].Rides++
	}
	for i := range weeks {
		weeks[i].DistanceKm = round2(weeks[i].DistanceKm)
	}
	return weeks
}

// Recent returns up to n rides, newest first
func Recent(ts []training.Training, n int) []training.Training {
	if n <= 0 {
		return []training.Training{}
	}
	sorted := sortedByDate(ts)
	out := make([]training.Training, 0, n)
	for i := len(sorted) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, sorted[i])
	}
	return out
}

func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	return time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, time.UTC)
}
