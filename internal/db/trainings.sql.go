package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const trainingColumns = `id, user_id, strava_id, name, date, distance_km, moving_time, avg_speed_kmh, max_speed_kmh, avg_heart_rate, max_heart_rate, elevation_gain_m, hr_zone_1, hr_zone_2, hr_zone_3, hr_zone_4, hr_zone_5, fit_processed, notes, created_at, updated_at`

func scanTraining(row pgx.Row) (Training, error) {
	var i Training
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.StravaID,
		&i.Name,
		&i.Date,
		&i.DistanceKm,
		&i.MovingTime,
		&i.AvgSpeedKmh,
		&i.MaxSpeedKmh,
		&i.AvgHeartRate,
		&i.MaxHeartRate,
		&i.ElevationGainM,
		&i.HrZone1,
		&i.HrZone2,
		&i.HrZone3,
		&i.HrZone4,
		&i.HrZone5,
		&i.FitProcessed,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createTraining = `-- name: CreateTraining :one
INSERT INTO trainings (
    user_id, strava_id, name, date, distance_km, moving_time,
    avg_speed_kmh, max_speed_kmh, avg_heart_rate, max_heart_rate,
    elevation_gain_m, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + trainingColumns

type CreateTrainingParams struct {
	UserID         uuid.UUID          `json:"user_id"`
	StravaID       pgtype.Int8        `json:"strava_id"`
	Name           string             `json:"name"`
	Date           pgtype.Timestamptz `json:"date"`
	DistanceKm     float64            `json:"distance_km"`
	MovingTime     string             `json:"moving_time"`
	AvgSpeedKmh    pgtype.Float8      `json:"avg_speed_kmh"`
	MaxSpeedKmh    pgtype.Float8      `json:"max_speed_kmh"`
	AvgHeartRate   pgtype.Int4        `json:"avg_heart_rate"`
	MaxHeartRate   pgtype.Int4        `json:"max_heart_rate"`
	ElevationGainM float64            `json:"elevation_gain_m"`
	Notes          string             `json:"notes"`
}

func (q *Queries) CreateTraining(ctx context.Context, arg CreateTrainingParams) (Training, error) {
	row := q.db.QueryRow(ctx, createTraining,
		arg.UserID,
		arg.StravaID,
		arg.Name,
		arg.Date,
		arg.DistanceKm,
		arg.MovingTime,
		arg.AvgSpeedKmh,
		arg.MaxSpeedKmh,
		arg.AvgHeartRate,
		arg.MaxHeartRate,
		arg.ElevationGainM,
		arg.Notes,
	)
	return scanTraining(row)
}

const upsertStravaTraining = `-- name: UpsertStravaTraining :one
INSERT INTO trainings (
    user_id, strava_id, name, date, distance_km, moving_time,
    avg_speed_kmh, max_speed_kmh, avg_heart_rate, max_heart_rate, elevation_gain_m
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (user_id, strava_id) DO UPDATE
SET name = EXCLUDED.name,
    date = EXCLUDED.date,
    distance_km = EXCLUDED.distance_km,
    moving_time = EXCLUDED.moving_time,
    avg_speed_kmh = EXCLUDED.avg_speed_kmh,
    max_speed_kmh = EXCLUDED.max_speed_kmh,
    avg_heart_rate = EXCLUDED.avg_heart_rate,
    max_heart_rate = EXCLUDED.max_heart_rate,
    elevation_gain_m = EXCLUDED.elevation_gain_m,
    updated_at = now()
RETURNING id
`

type UpsertStravaTrainingParams struct {
	UserID         uuid.UUID          `json:"user_id"`
	StravaID       int64              `json:"strava_id"`
	Name           string             `json:"name"`
	Date           pgtype.Timestamptz `json:"date"`
	DistanceKm     float64            `json:"distance_km"`
	MovingTime     string             `json:"moving_time"`
	AvgSpeedKmh    pgtype.Float8      `json:"avg_speed_kmh"`
	MaxSpeedKmh    pgtype.Float8      `json:"max_speed_kmh"`
	AvgHeartRate   pgtype.Int4        `json:"avg_heart_rate"`
	MaxHeartRate   pgtype.Int4        `json:"max_heart_rate"`
	ElevationGainM float64            `json:"elevation_gain_m"`
}

func (q *Queries) UpsertStravaTraining(ctx context.Context, arg UpsertStravaTrainingParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, upsertStravaTraining,
		arg.UserID,
		arg.StravaID,
		arg.Name,
		arg.Date,
		arg.DistanceKm,
		arg.MovingTime,
		arg.AvgSpeedKmh,
		arg.MaxSpeedKmh,
		arg.AvgHeartRate,
		arg.MaxHeartRate,
		arg.ElevationGainM,
	)
	var id uuid.UUID
	err := row.Scan(&id)
	return id, err
}

const getTraining = `-- name: GetTraining :one
SELECT ` + trainingColumns + ` FROM trainings
WHERE id = $1 AND user_id = $2
`

type GetTrainingParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) GetTraining(ctx context.Context, arg GetTrainingParams) (Training, error) {
	return scanTraining(q.db.QueryRow(ctx, getTraining, arg.ID, arg.UserID))
}

const getTrainingByID = `-- name: GetTrainingByID :one
SELECT ` + trainingColumns + ` FROM trainings
WHERE id = $1
`

// GetTrainingByID skips the ownership check; background jobs only.
func (q *Queries) GetTrainingByID(ctx context.Context, id uuid.UUID) (Training, error) {
	return scanTraining(q.db.QueryRow(ctx, getTrainingByID, id))
}

const listTrainingsByUser = `-- name: ListTrainingsByUser :many
SELECT ` + trainingColumns + ` FROM trainings
WHERE user_id = $1
ORDER BY date ASC, id ASC
`

func (q *Queries) ListTrainingsByUser(ctx context.Context, userID uuid.UUID) ([]Training, error) {
	rows, err := q.db.Query(ctx, listTrainingsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Training
	for rows.Next() {
		i, err := scanTraining(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTrainingDetails = `-- name: UpdateTrainingDetails :one
UPDATE trainings
SET name = $3, notes = $4, updated_at = now()
WHERE id = $1 AND user_id = $2
RETURNING ` + trainingColumns

type UpdateTrainingDetailsParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Notes  string    `json:"notes"`
}

func (q *Queries) UpdateTrainingDetails(ctx context.Context, arg UpdateTrainingDetailsParams) (Training, error) {
	return scanTraining(q.db.QueryRow(ctx, updateTrainingDetails, arg.ID, arg.UserID, arg.Name, arg.Notes))
}

const setTrainingFitData = `-- name: SetTrainingFitData :exec
UPDATE trainings
SET hr_zone_1 = $2,
    hr_zone_2 = $3,
    hr_zone_3 = $4,
    hr_zone_4 = $5,
    hr_zone_5 = $6,
    avg_speed_kmh = COALESCE(avg_speed_kmh, $7),
    max_speed_kmh = COALESCE(max_speed_kmh, $8),
    avg_heart_rate = COALESCE(avg_heart_rate, $9),
    max_heart_rate = COALESCE(max_heart_rate, $10),
    distance_km = CASE WHEN distance_km > 0 THEN distance_km ELSE $11 END,
    elevation_gain_m = CASE WHEN elevation_gain_m > 0 THEN elevation_gain_m ELSE $12 END,
    moving_time = CASE WHEN moving_time <> '0:00:00' THEN moving_time ELSE $13 END,
    fit_processed = true,
    updated_at = now()
WHERE id = $1
`

// SetTrainingFitDataParams carries FIT derived values. Summary fields only
// fill columns the training does not already have.
type SetTrainingFitDataParams struct {
	ID             uuid.UUID     `json:"id"`
	HrZone1        pgtype.Text   `json:"hr_zone_1"`
	HrZone2        pgtype.Text   `json:"hr_zone_2"`
	HrZone3        pgtype.Text   `json:"hr_zone_3"`
	HrZone4        pgtype.Text   `json:"hr_zone_4"`
	HrZone5        pgtype.Text   `json:"hr_zone_5"`
	AvgSpeedKmh    pgtype.Float8 `json:"avg_speed_kmh"`
	MaxSpeedKmh    pgtype.Float8 `json:"max_speed_kmh"`
	AvgHeartRate   pgtype.Int4   `json:"avg_heart_rate"`
	MaxHeartRate   pgtype.Int4   `json:"max_heart_rate"`
	DistanceKm     float64       `json:"distance_km"`
	ElevationGainM float64       `json:"elevation_gain_m"`
	MovingTime     string        `json:"moving_time"`
}

func (q *Queries) SetTrainingFitData(ctx context.Context, arg SetTrainingFitDataParams) error {
	_, err := q.db.Exec(ctx, setTrainingFitData,
		arg.ID,
		arg.HrZone1,
		arg.HrZone2,
		arg.HrZone3,
		arg.HrZone4,
		arg.HrZone5,
		arg.AvgSpeedKmh,
		arg.MaxSpeedKmh,
		arg.AvgHeartRate,
		arg.MaxHeartRate,
		arg.DistanceKm,
		arg.ElevationGainM,
		arg.MovingTime,
	)
	return err
}

const deleteTraining = `-- name: DeleteTraining :execrows
DELETE FROM trainings
WHERE id = $1 AND user_id = $2
`

type DeleteTrainingParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) DeleteTraining(ctx context.Context, arg DeleteTrainingParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteTraining, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
