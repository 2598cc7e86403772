package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const storeFitFile = `-- name: StoreFitFile :exec
INSERT INTO fit_files (training_id, data)
VALUES ($1, $2)
ON CONFLICT (training_id) DO UPDATE
SET data = EXCLUDED.data, uploaded_at = now(), processed_at = NULL
`

type StoreFitFileParams struct {
	TrainingID uuid.UUID `json:"training_id"`
	Data       []byte    `json:"data"`
}

func (q *Queries) StoreFitFile(ctx context.Context, arg StoreFitFileParams) error {
	_, err := q.db.Exec(ctx, storeFitFile, arg.TrainingID, arg.Data)
	return err
}

const getFitFile = `-- name: GetFitFile :one
SELECT training_id, data, uploaded_at, processed_at FROM fit_files
WHERE training_id = $1
`

func (q *Queries) GetFitFile(ctx context.Context, trainingID uuid.UUID) (FitFile, error) {
	row := q.db.QueryRow(ctx, getFitFile, trainingID)
	var i FitFile
	err := row.Scan(
		&i.TrainingID,
		&i.Data,
		&i.UploadedAt,
		&i.ProcessedAt,
	)
	return i, err
}

const markFitFileProcessed = `-- name: MarkFitFileProcessed :exec
UPDATE fit_files SET processed_at = now()
WHERE training_id = $1
`

func (q *Queries) MarkFitFileProcessed(ctx context.Context, trainingID uuid.UUID) error {
	_, err := q.db.Exec(ctx, markFitFileProcessed, trainingID)
	return err
}

const deleteTrackPoints = `-- name: DeleteTrackPoints :exec
DELETE FROM track_points WHERE training_id = $1
`

func (q *Queries) DeleteTrackPoints(ctx context.Context, trainingID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteTrackPoints, trainingID)
	return err
}

// CopyTrackPoints bulk inserts with COPY
func (q *Queries) CopyTrackPoints(ctx context.Context, arg []TrackPoint) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"track_points"},
		[]string{"training_id", "seq", "offset_s", "recorded_at", "lat", "lng", "altitude_m", "speed_mps", "heart_rate", "cadence", "power", "distance_m"},
		pgx.CopyFromSlice(len(arg), func(i int) ([]interface{}, error) {
			p := arg[i]
			return []interface{}{
				p.TrainingID,
				p.Seq,
				p.OffsetS,
				p.RecordedAt,
				p.Lat,
				p.Lng,
				p.AltitudeM,
				p.SpeedMps,
				p.HeartRate,
				p.Cadence,
				p.Power,
				p.DistanceM,
			}, nil
		}),
	)
}

const listTrackPoints = `-- name: ListTrackPoints :many
SELECT training_id, seq, offset_s, recorded_at, lat, lng, altitude_m, speed_mps, heart_rate, cadence, power, distance_m
FROM track_points
WHERE training_id = $1
ORDER BY seq
`

func (q *Queries) ListTrackPoints(ctx context.Context, trainingID uuid.UUID) ([]TrackPoint, error) {
	rows, err := q.db.Query(ctx, listTrackPoints, trainingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TrackPoint
	for rows.Next() {
		var i TrackPoint
		if err := rows.Scan(
			&i.TrainingID,
			&i.Seq,
			&i.OffsetS,
			&i.RecordedAt,
			&i.Lat,
			&i.Lng,
			&i.AltitudeM,
			&i.SpeedMps,
			&i.HeartRate,
			&i.Cadence,
			&i.Power,
			&i.DistanceM,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteLaps = `-- name: DeleteLaps :exec
DELETE FROM laps WHERE training_id = $1
`

func (q *Queries) DeleteLaps(ctx context.Context, trainingID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteLaps, trainingID)
	return err
}

// CopyLaps bulk inserts with COPY
func (q *Queries) CopyLaps(ctx context.Context, arg []Lap) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"laps"},
		[]string{"training_id", "lap_index", "start_offset_s", "duration_s", "distance_m", "avg_heart_rate", "max_heart_rate", "avg_speed_mps", "elevation_gain_m", "elevation_loss_m"},
		pgx.CopyFromSlice(len(arg), func(i int) ([]interface{}, error) {
			l := arg[i]
			return []interface{}{
				l.TrainingID,
				l.LapIndex,
				l.StartOffsetS,
				l.DurationS,
				l.DistanceM,
				l.AvgHeartRate,
				l.MaxHeartRate,
				l.AvgSpeedMps,
				l.ElevationGainM,
				l.ElevationLossM,
			}, nil
		}),
	)
}

const listLaps = `-- name: ListLaps :many
SELECT training_id, lap_index, start_offset_s, duration_s, distance_m, avg_heart_rate, max_heart_rate, avg_speed_mps, elevation_gain_m, elevation_loss_m
FROM laps
WHERE training_id = $1
ORDER BY lap_index
`

func (q *Queries) ListLaps(ctx context.Context, trainingID uuid.UUID) ([]Lap, error) {
	rows, err := q.db.Query(ctx, listLaps, trainingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Lap
	for rows.Next() {
		var i Lap
		if err := rows.Scan(
			&i.TrainingID,
			&i.LapIndex,
			&i.StartOffsetS,
			&i.DurationS,
			&i.DistanceM,
			&i.AvgHeartRate,
			&i.MaxHeartRate,
			&i.AvgSpeedMps,
			&i.ElevationGainM,
			&i.ElevationLossM,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
