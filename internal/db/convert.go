package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/briangreenhill/ridestats/internal/fitfile"
	"github.com/briangreenhill/ridestats/internal/training"
)

// ToTraining maps a row onto the model used by the metrics pipeline.
// Zones are only set when all five columns hold well-formed durations.
func ToTraining(row Training, tags []Tag) training.Training {
	t := training.Training{
		ID:             row.ID,
		StravaID:       optInt8(row.StravaID),
		Name:           row.Name,
		Date:           row.Date.Time.UTC(),
		DistanceKm:     row.DistanceKm,
		MovingTime:     row.MovingTime,
		AvgSpeedKmh:    optFloat8(row.AvgSpeedKmh),
		MaxSpeedKmh:    optFloat8(row.MaxSpeedKmh),
		AvgHeartRate:   optInt4(row.AvgHeartRate),
		MaxHeartRate:   optInt4(row.MaxHeartRate),
		ElevationGainM: row.ElevationGainM,
		FitProcessed:   row.FitProcessed,
		Notes:          row.Notes,
		Tags:           make([]training.Tag, 0, len(tags)),
	}
	if row.HrZone1.Valid && row.HrZone2.Valid && row.HrZone3.Valid && row.HrZone4.Valid && row.HrZone5.Valid {
		z, err := training.NewHeartRateZones([5]string{
			row.HrZone1.String, row.HrZone2.String, row.HrZone3.String, row.HrZone4.String, row.HrZone5.String,
		})
		if err == nil {
			t.HeartRateZones = training.Some(z)
		}
	}
	for _, tag := range tags {
		t.Tags = append(t.Tags, ToTag(tag))
	}
	return t
}

func ToTag(tag Tag) training.Tag {
	return training.Tag{ID: tag.ID, Name: tag.Name, Color: tag.Color}
}

// ToTrainings joins rows with their tags, keeping row order
func ToTrainings(rows []Training, tags []ListTrainingTagsByUserRow) []training.Training {
	byTraining := make(map[uuid.UUID][]Tag, len(tags))
	for _, tt := range tags {
		byTraining[tt.TrainingID] = append(byTraining[tt.TrainingID], tt.Tag)
	}
	out := make([]training.Training, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToTraining(r, byTraining[r.ID]))
	}
	return out
}

// NewCreateTrainingParams prepares a manually entered or imported training for insert
func NewCreateTrainingParams(userID uuid.UUID, t training.Training) CreateTrainingParams {
	return CreateTrainingParams{
		UserID:         userID,
		StravaID:       Int8(t.StravaID),
		Name:           t.Name,
		Date:           Timestamptz(t.Date),
		DistanceKm:     t.DistanceKm,
		MovingTime:     t.MovingTime,
		AvgSpeedKmh:    Float8(t.AvgSpeedKmh),
		MaxSpeedKmh:    Float8(t.MaxSpeedKmh),
		AvgHeartRate:   Int4(t.AvgHeartRate),
		MaxHeartRate:   Int4(t.MaxHeartRate),
		ElevationGainM: t.ElevationGainM,
		Notes:          t.Notes,
	}
}

// NewUpsertStravaTrainingParams requires t.StravaID to be set
func NewUpsertStravaTrainingParams(userID uuid.UUID, t training.Training) UpsertStravaTrainingParams {
	return UpsertStravaTrainingParams{
		UserID:         userID,
		StravaID:       t.StravaID.Value,
		Name:           t.Name,
		Date:           Timestamptz(t.Date),
		DistanceKm:     t.DistanceKm,
		MovingTime:     t.MovingTime,
		AvgSpeedKmh:    Float8(t.AvgSpeedKmh),
		MaxSpeedKmh:    Float8(t.MaxSpeedKmh),
		AvgHeartRate:   Int4(t.AvgHeartRate),
		MaxHeartRate:   Int4(t.MaxHeartRate),
		ElevationGainM: t.ElevationGainM,
	}
}

// NewSetTrainingFitDataParams builds the update for a decoded ride. Zones are
// written only when zones is present.
func NewSetTrainingFitDataParams(id uuid.UUID, s fitfile.Summary, zones training.Optional[training.HeartRateZones]) SetTrainingFitDataParams {
	p := SetTrainingFitDataParams{
		ID:             id,
		AvgSpeedKmh:    Float8(s.AvgSpeedKmh),
		MaxSpeedKmh:    Float8(s.MaxSpeedKmh),
		AvgHeartRate:   Int4(s.AvgHeartRate),
		MaxHeartRate:   Int4(s.MaxHeartRate),
		DistanceKm:     s.DistanceKm,
		ElevationGainM: s.ElevationGainM,
		MovingTime:     training.FormatDuration(s.MovingTime),
	}
	if z, ok := zones.Get(); ok {
		p.HrZone1 = pgtype.Text{String: z.Zone1, Valid: true}
		p.HrZone2 = pgtype.Text{String: z.Zone2, Valid: true}
		p.HrZone3 = pgtype.Text{String: z.Zone3, Valid: true}
		p.HrZone4 = pgtype.Text{String: z.Zone4, Valid: true}
		p.HrZone5 = pgtype.Text{String: z.Zone5, Valid: true}
	}
	return p
}

func NewTrackPoints(trainingID uuid.UUID, points []fitfile.TrackPoint) []TrackPoint {
	out := make([]TrackPoint, len(points))
	for i, p := range points {
		out[i] = TrackPoint{
			TrainingID: trainingID,
			Seq:        int32(i),
			OffsetS:    int32(p.OffsetS),
			RecordedAt: Timestamptz(p.Time),
			Lat:        Float8(p.Lat),
			Lng:        Float8(p.Lng),
			AltitudeM:  Float8(p.AltitudeM),
			SpeedMps:   Float8(p.SpeedMps),
			HeartRate:  Int4(p.HeartRate),
			Cadence:    Int4(p.Cadence),
			Power:      Int4(p.Power),
			DistanceM:  Float8(p.DistanceM),
		}
	}
	return out
}

func ToTrackPoints(rows []TrackPoint) []fitfile.TrackPoint {
	out := make([]fitfile.TrackPoint, len(rows))
	for i, r := range rows {
		out[i] = fitfile.TrackPoint{
			Time:      r.RecordedAt.Time.UTC(),
			OffsetS:   int(r.OffsetS),
			Lat:       optFloat8(r.Lat),
			Lng:       optFloat8(r.Lng),
			AltitudeM: optFloat8(r.AltitudeM),
			SpeedMps:  optFloat8(r.SpeedMps),
			HeartRate: optInt4(r.HeartRate),
			Cadence:   optInt4(r.Cadence),
			Power:     optInt4(r.Power),
			DistanceM: optFloat8(r.DistanceM),
		}
	}
	return out
}

func NewLaps(trainingID uuid.UUID, laps []fitfile.Lap) []Lap {
	out := make([]Lap, len(laps))
	for i, l := range laps {
		out[i] = Lap{
			TrainingID:     trainingID,
			LapIndex:       int32(l.Index),
			StartOffsetS:   int32(l.StartOffsetS),
			DurationS:      int32(l.DurationS),
			DistanceM:      l.DistanceM,
			AvgHeartRate:   Int4(l.AvgHeartRate),
			MaxHeartRate:   Int4(l.MaxHeartRate),
			AvgSpeedMps:    Float8(l.AvgSpeedMps),
			ElevationGainM: l.ElevationGainM,
			ElevationLossM: l.ElevationLossM,
		}
	}
	return out
}

func ToLaps(rows []Lap) []fitfile.Lap {
	out := make([]fitfile.Lap, len(rows))
	for i, r := range rows {
		out[i] = fitfile.Lap{
			Index:          int(r.LapIndex),
			StartOffsetS:   int(r.StartOffsetS),
			DurationS:      int(r.DurationS),
			DistanceM:      r.DistanceM,
			AvgHeartRate:   optInt4(r.AvgHeartRate),
			MaxHeartRate:   optInt4(r.MaxHeartRate),
			AvgSpeedMps:    optFloat8(r.AvgSpeedMps),
			ElevationGainM: r.ElevationGainM,
			ElevationLossM: r.ElevationLossM,
		}
	}
	return out
}

func Timestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}

func Float8(o training.Optional[float64]) pgtype.Float8 {
	return pgtype.Float8{Float64: o.Value, Valid: o.Valid}
}

func Int4(o training.Optional[int]) pgtype.Int4 {
	return pgtype.Int4{Int32: int32(o.Value), Valid: o.Valid}
}

func Int8(o training.Optional[int64]) pgtype.Int8 {
	return pgtype.Int8{Int64: o.Value, Valid: o.Valid}
}

func optFloat8(v pgtype.Float8) training.Optional[float64] {
	if !v.Valid {
		return training.None[float64]()
	}
	return training.Some(v.Float64)
}

func optInt4(v pgtype.Int4) training.Optional[int] {
	if !v.Valid {
		return training.None[int]()
	}
	return training.Some(int(v.Int32))
}

func optInt8(v pgtype.Int8) training.Optional[int64] {
	if !v.Valid {
		return training.None[int64]()
	}
	return training.Some(v.Int64)
}
