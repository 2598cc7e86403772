package routes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/fitfile"
	"github.com/briangreenhill/ridestats/internal/jobs"
	"github.com/briangreenhill/ridestats/internal/metrics"
	"github.com/briangreenhill/ridestats/internal/training"
)

// maxFitSize bounds uploads; a long ride with every sensor stays well below it
const maxFitSize = 32 << 20

// loadTrainings returns every training of the user with tags, in date order
func (s *Server) loadTrainings(ctx context.Context, userID uuid.UUID) ([]training.Training, error) {
	rows, err := s.Store.ListTrainingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tags, err := s.Store.ListTrainingTagsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return db.ToTrainings(rows, tags), nil
}

func (s *Server) loadTraining(ctx context.Context, userID, id uuid.UUID) (training.Training, error) {
	row, err := s.Store.GetTraining(ctx, db.GetTrainingParams{ID: id, UserID: userID})
	if err != nil {
		return training.Training{}, err
	}
	tags, err := s.Store.ListTagsForTraining(ctx, id)
	if err != nil {
		return training.Training{}, err
	}
	return db.ToTraining(row, tags), nil
}

// listPredicate builds the filter for GET /api/trainings
func (s *Server) listPredicate(r *http.Request) (metrics.Predicate, error) {
	q := r.URL.Query()
	window, err := s.dateWindow(r)
	if err != nil {
		return nil, err
	}
	ps := []metrics.Predicate{window}
	flags := []struct {
		name string
		p    metrics.Predicate
	}{
		{"fit", metrics.HasFitData},
		{"hr", metrics.HasHeartRate},
		{"speed", metrics.HasSpeed},
	}
	for _, f := range flags {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, badRequest("%s must be a boolean", f.name)
		}
		if on {
			ps = append(ps, f.p)
		}
	}
	if raw := q.Get("tag"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, badRequest("invalid tag")
		}
		ps = append(ps, metrics.HasTag(id))
	}
	return metrics.All(ps...), nil
}

// dateWindow reads from/to. Without from, every ride up to to (or now) matches.
func (s *Server) dateWindow(r *http.Request) (metrics.Predicate, error) {
	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		return nil, badRequest("invalid from: %v", err)
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		return nil, badRequest("invalid to: %v", err)
	}
	var anchor *time.Time
	if !to.IsZero() {
		anchor = &to
	}
	if from.IsZero() {
		return s.Filters.PastTrainings(anchor), nil
	}
	end := to
	if anchor == nil {
		end = s.now()
	}
	if !end.After(from) {
		return nil, badRequest("from must be before to")
	}
	return metrics.InDateRange(from, end), nil
}

func (s *Server) now() time.Time {
	if s.Filters.Now != nil {
		return s.Filters.Now()
	}
	return time.Now()
}

// parseDate accepts RFC 3339 or a plain date; a plain date means its midnight UTC
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, raw)
}

func (s *Server) handleListTrainings(w http.ResponseWriter, r *http.Request) {
	p, err := s.listPredicate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ts, err := s.loadTrainings(r.Context(), currentUser(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics.Filter(ts, p))
}

type trainingInput struct {
	Name           string                     `json:"name"`
	Date           time.Time                  `json:"date"`
	DistanceKm     float64                    `json:"distance_km"`
	MovingTime     string                     `json:"moving_time"`
	AvgSpeedKmh    training.Optional[float64] `json:"avg_speed_kmh"`
	MaxSpeedKmh    training.Optional[float64] `json:"max_speed_kmh"`
	AvgHeartRate   training.Optional[int]     `json:"avg_heart_rate_bpm"`
	MaxHeartRate   training.Optional[int]     `json:"max_heart_rate_bpm"`
	ElevationGainM float64                    `json:"elevation_gain_m"`
	Notes          string                     `json:"notes"`
}

func (in trainingInput) toTraining() (training.Training, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return training.Training{}, badRequest("name is required")
	}
	if in.Date.IsZero() {
		return training.Training{}, badRequest("date is required")
	}
	if in.DistanceKm < 0 || in.ElevationGainM < 0 {
		return training.Training{}, badRequest("distance and elevation must not be negative")
	}
	if _, err := training.ParseDuration(in.MovingTime); err != nil {
		return training.Training{}, badRequest("moving_time: %v", err)
	}
	for _, hr := range []training.Optional[int]{in.AvgHeartRate, in.MaxHeartRate} {
		if v, ok := hr.Get(); ok && (v <= 0 || v > 250) {
			return training.Training{}, badRequest("heart rate out of range: %d", v)
		}
	}
	t := training.Training{
		Name:           name,
		Date:           in.Date.UTC(),
		DistanceKm:     in.DistanceKm,
		MovingTime:     in.MovingTime,
		AvgSpeedKmh:    in.AvgSpeedKmh,
		MaxSpeedKmh:    in.MaxSpeedKmh,
		AvgHeartRate:   in.AvgHeartRate,
		MaxHeartRate:   in.MaxHeartRate,
		ElevationGainM: in.ElevationGainM,
		Notes:          in.Notes,
	}
	if !t.AvgSpeedKmh.Valid {
		speed, err := metrics.AverageSpeedKmh(t.DistanceKm, t.MovingTime)
		if err != nil {
			return training.Training{}, badRequest("moving_time: %v", err)
		}
		t.AvgSpeedKmh = speed
	}
	return t, nil
}

func (s *Server) handleCreateTraining(w http.ResponseWriter, r *http.Request) {
	var in trainingInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := in.toTraining()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	row, err := s.Store.CreateTraining(r.Context(), db.NewCreateTrainingParams(currentUser(r), t))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, db.ToTraining(row, nil))
}

func (s *Server) handleGetTraining(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.loadTraining(r.Context(), currentUser(r), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type trainingPatch struct {
	Name  *string `json:"name"`
	Notes *string `json:"notes"`
}

func (s *Server) handleUpdateTraining(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in trainingPatch
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	userID := currentUser(r)
	cur, err := s.Store.GetTraining(r.Context(), db.GetTrainingParams{ID: id, UserID: userID})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	params := db.UpdateTrainingDetailsParams{ID: id, UserID: userID, Name: cur.Name, Notes: cur.Notes}
	if in.Name != nil {
		params.Name = strings.TrimSpace(*in.Name)
		if params.Name == "" {
			s.fail(w, r, badRequest("name must not be empty"))
			return
		}
	}
	if in.Notes != nil {
		params.Notes = *in.Notes
	}
	if _, err := s.Store.UpdateTrainingDetails(r.Context(), params); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.loadTraining(r.Context(), userID, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleDeleteTraining(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.Store.DeleteTraining(r.Context(), db.DeleteTrainingParams{ID: id, UserID: currentUser(r)})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if n == 0 {
		s.fail(w, r, ErrNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUploadFit stores the raw file and leaves parsing to the worker
func (s *Server) handleUploadFit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.Store.GetTraining(r.Context(), db.GetTrainingParams{ID: id, UserID: currentUser(r)}); err != nil {
		s.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFitSize)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, badRequest("file exceeds %d bytes", maxFitSize))
			return
		}
		s.fail(w, r, badRequest("multipart field \"file\" is required"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, badRequest("read upload: %v", err))
		return
	}
	if len(data) == 0 {
		s.fail(w, r, badRequest("empty file"))
		return
	}

	if err := s.Store.StoreFitFile(r.Context(), db.StoreFitFileParams{TrainingID: id, Data: data}); err != nil {
		s.fail(w, r, err)
		return
	}
	task, err := jobs.NewProcessFitTask(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	info, err := s.Jobs.Enqueue(task)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Stringer("training", id).Int("bytes", len(data)).Str("task_id", info.ID).Msg("fit queued")
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID})
}

// trackPoints checks ownership before listing the stored samples
func (s *Server) trackPoints(r *http.Request) ([]fitfile.TrackPoint, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.GetTraining(r.Context(), db.GetTrainingParams{ID: id, UserID: currentUser(r)}); err != nil {
		return nil, err
	}
	rows, err := s.Store.ListTrackPoints(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return db.ToTrackPoints(rows), nil
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	points, err := s.trackPoints(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleTrackParquet(w http.ResponseWriter, r *http.Request) {
	points, err := s.trackPoints(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(points) == 0 {
		s.fail(w, r, ErrNotFound)
		return
	}
	var buf bytes.Buffer
	if err := fitfile.WriteParquet(&buf, points); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apache.parquet")
	w.Header().Set("Content-Disposition", `attachment; filename="track-`+chi.URLParam(r, "id")+`.parquet"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleLaps(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.Store.GetTraining(r.Context(), db.GetTrainingParams{ID: id, UserID: currentUser(r)}); err != nil {
		s.fail(w, r, err)
		return
	}
	rows, err := s.Store.ListLaps(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, db.ToLaps(rows))
}
