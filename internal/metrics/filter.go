package metrics

import (
	"time"

	"github.com/google/uuid"

	"github.com/briangreenhill/ridestats/internal/training"
)

// Predicate selects trainings
type Predicate func(training.Training) bool

// All matches when every predicate does; with none it matches everything
func All(ps ...Predicate) Predicate {
	return func(t training.Training) bool {
		for _, p := range ps {
			if !p(t) {
				return false
			}
		}
		return true
	}
}

// Filter returns a new slice of the trainings matching p
func Filter(ts []training.Training, p Predicate) []training.Training {
	out := make([]training.Training, 0, len(ts))
	for _, t := range ts {
		if p(t) {
			out = append(out, t)
		}
	}
	return out
}

// InDateRange matches dates strictly between start and end.
// Rides exactly on either bound are excluded.
func InDateRange(start, end time.Time) Predicate {
	return func(t training.Training) bool {
		return t.Date.After(start) && t.Date.Before(end)
	}
}

// Filters holds the bounds used for "all past trainings" queries
type Filters struct {
	Epoch time.Time
	Now   func() time.Time
}

func DefaultFilters() Filters {
	return Filters{
		Epoch: time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC),
		Now:   time.Now,
	}
}

// PastTrainings matches rides between the epoch and anchor, or now when anchor is nil
func (f Filters) PastTrainings(anchor *time.Time) Predicate {
	var end time.Time
	if anchor != nil {
		end = *anchor
	} else if f.Now != nil {
		end = f.Now()
	} else {
		end = time.Now()
	}
	return InDateRange(f.Epoch, end)
}

func HasFitData(t training.Training) bool {
	return t.FitProcessed
}

func HasHeartRate(t training.Training) bool {
	return t.AvgHeartRate.Valid
}

func HasSpeed(t training.Training) bool {
	return t.AvgSpeedKmh.Valid
}

// HasTag matches rides labelled with the given tag
func HasTag(id uuid.UUID) Predicate {
	return func(t training.Training) bool {
		for _, tag := range t.Tags {
			if tag.ID == id {
				return true
			}
		}
		return false
	}
}
