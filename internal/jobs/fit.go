package jobs

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/fitfile"
	"github.com/briangreenhill/ridestats/internal/training"
)

// ProcessFit decodes the stored FIT file of a training and writes its track,
// laps and zones. It returns the number of track points stored.
func (h *Handler) ProcessFit(ctx context.Context, trainingID uuid.UUID) (int, error) {
	ff, err := h.store.GetFitFile(ctx, trainingID)
	if err != nil {
		return 0, fmt.Errorf("get fit file: %w", err)
	}
	ride, err := fitfile.Decode(bytes.NewReader(ff.Data))
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tr, err := h.store.GetTrainingByID(ctx, trainingID)
	if err != nil {
		return 0, fmt.Errorf("get training: %w", err)
	}
	user, err := h.store.GetUser(ctx, tr.UserID)
	if err != nil {
		return 0, fmt.Errorf("get user: %w", err)
	}

	zones := training.None[training.HeartRateZones]()
	if maxHR := zoneMaxHeartRate(user, ride.Summary); maxHR > 0 && hasHeartRate(ride.Points) {
		z, err := fitfile.ComputeZones(ride.Points, maxHR)
		if err != nil {
			return 0, fmt.Errorf("compute zones: %w", err)
		}
		zones = training.Some(z)
	}

	err = h.store.ExecTx(ctx, func(q db.Querier) error {
		if err := q.DeleteTrackPoints(ctx, trainingID); err != nil {
			return fmt.Errorf("delete track points: %w", err)
		}
		if _, err := q.CopyTrackPoints(ctx, db.NewTrackPoints(trainingID, ride.Points)); err != nil {
			return fmt.Errorf("copy track points: %w", err)
		}
		if err := q.DeleteLaps(ctx, trainingID); err != nil {
			return fmt.Errorf("delete laps: %w", err)
		}
		if _, err := q.CopyLaps(ctx, db.NewLaps(trainingID, ride.Laps)); err != nil {
			return fmt.Errorf("copy laps: %w", err)
		}
		if err := q.SetTrainingFitData(ctx, db.NewSetTrainingFitDataParams(trainingID, ride.Summary, zones)); err != nil {
			return fmt.Errorf("set fit data: %w", err)
		}
		return q.MarkFitFileProcessed(ctx, trainingID)
	})
	if err != nil {
		return 0, err
	}
	return len(ride.Points), nil
}

// zoneMaxHeartRate prefers the user's configured max over the ride's peak
func zoneMaxHeartRate(u db.User, s fitfile.Summary) int {
	if u.MaxHr.Valid && u.MaxHr.Int32 > 0 {
		return int(u.MaxHr.Int32)
	}
	return s.MaxHeartRate.Or(0)
}

func hasHeartRate(points []fitfile.TrackPoint) bool {
	for _, p := range points {
		if hr, ok := p.HeartRate.Get(); ok && hr > 0 {
			return true
		}
	}
	return false
}
