package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID           uuid.UUID          `json:"id"`
	Email        string             `json:"email"`
	PasswordHash string             `json:"-"`
	Name         string             `json:"name"`
	MaxHr        pgtype.Int4        `json:"max_hr"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type StravaAccount struct {
	UserID       uuid.UUID          `json:"user_id"`
	AthleteID    int64              `json:"athlete_id"`
	AccessToken  string             `json:"-"`
	RefreshToken string             `json:"-"`
	TokenExpiry  pgtype.Timestamptz `json:"token_expiry"`
	LastSync     pgtype.Timestamptz `json:"last_sync"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type Training struct {
	ID             uuid.UUID          `json:"id"`
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
	HrZone1        pgtype.Text        `json:"hr_zone_1"`
	HrZone2        pgtype.Text        `json:"hr_zone_2"`
	HrZone3        pgtype.Text        `json:"hr_zone_3"`
	HrZone4        pgtype.Text        `json:"hr_zone_4"`
	HrZone5        pgtype.Text        `json:"hr_zone_5"`
	FitProcessed   bool               `json:"fit_processed"`
	Notes          string             `json:"notes"`
	CreatedAt      pgtype.Timestamptz `json:"created_at"`
	UpdatedAt      pgtype.Timestamptz `json:"updated_at"`
}

type Tag struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	Name      string             `json:"name"`
	Color     string             `json:"color"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type FitFile struct {
	TrainingID  uuid.UUID          `json:"training_id"`
	Data        []byte             `json:"-"`
	UploadedAt  pgtype.Timestamptz `json:"uploaded_at"`
	ProcessedAt pgtype.Timestamptz `json:"processed_at"`
}

type TrackPoint struct {
	TrainingID uuid.UUID          `json:"training_id"`
	Seq        int32              `json:"seq"`
	OffsetS    int32              `json:"offset_s"`
	RecordedAt pgtype.Timestamptz `json:"recorded_at"`
	Lat        pgtype.Float8      `json:"lat"`
	Lng        pgtype.Float8      `json:"lng"`
	AltitudeM  pgtype.Float8      `json:"altitude_m"`
	SpeedMps   pgtype.Float8      `json:"speed_mps"`
	HeartRate  pgtype.Int4        `json:"heart_rate"`
	Cadence    pgtype.Int4        `json:"cadence"`
	Power      pgtype.Int4        `json:"power"`
	DistanceM  pgtype.Float8      `json:"distance_m"`
}

type Lap struct {
	TrainingID     uuid.UUID     `json:"training_id"`
	LapIndex       int32         `json:"lap_index"`
	StartOffsetS   int32         `json:"start_offset_s"`
	DurationS      int32         `json:"duration_s"`
	DistanceM      float64       `json:"distance_m"`
	AvgHeartRate   pgtype.Int4   `json:"avg_heart_rate"`
	MaxHeartRate   pgtype.Int4   `json:"max_heart_rate"`
	AvgSpeedMps    pgtype.Float8 `json:"avg_speed_mps"`
	ElevationGainM float64       `json:"elevation_gain_m"`
	ElevationLossM float64       `json:"elevation_loss_m"`
}
