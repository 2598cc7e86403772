package routes

import (
	"net/http"

	"github.com/briangreenhill/ridestats/internal/metrics"
	"github.com/briangreenhill/ridestats/internal/training"
)

const (
	dashboardWeeks  = 12
	dashboardRecent = 5
)

// windowed loads the user's rides inside the from/to window
func (s *Server) windowed(r *http.Request) ([]training.Training, error) {
	p, err := s.dateWindow(r)
	if err != nil {
		return nil, err
	}
	ts, err := s.loadTrainings(r.Context(), currentUser(r))
	if err != nil {
		return nil, err
	}
	return metrics.Filter(ts, p), nil
}

func (s *Server) handleHeartRateMetrics(w http.ResponseWriter, r *http.Request) {
	ts, err := s.windowed(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	points, err := metrics.HeartRateMetricsOverTime(ts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleElevationMetrics(w http.ResponseWriter, r *http.Request) {
	ts, err := s.windowed(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics.ElevationPerKmMetricsOverTime(ts))
}

func (s *Server) handleSpeedMetrics(w http.ResponseWriter, r *http.Request) {
	ts, err := s.windowed(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics.SpeedMetricsOverTime(ts))
}

func (s *Server) handleDistanceMetrics(w http.ResponseWriter, r *http.Request) {
	ts, err := s.windowed(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics.DistanceMetricsOverTime(ts))
}

type trainingLoadResponse struct {
	Results   []metrics.LoadResult `json:"results"`
	MaxValues metrics.MaxValues    `json:"maxValues"`
}

func (s *Server) handleTrainingLoad(w http.ResponseWriter, r *http.Request) {
	ts, err := s.windowed(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	results, err := metrics.TrainingLoadOverTime(ts, s.Scorer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trainingLoadResponse{Results: results, MaxValues: metrics.MaxValuesOf(ts)})
}

type dashboardResponse struct {
	metrics.Totals
	WeeklyDistance  []metrics.WeekPoint `json:"weeklyDistance"`
	RecentTrainings []training.Training `json:"recentTrainings"`
	LastLoad        *metrics.LoadResult `json:"lastLoad"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ts, err := s.windowed(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loads, err := metrics.TrainingLoadOverTime(ts, s.Scorer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := dashboardResponse{
		Totals:          metrics.Summarize(ts),
		WeeklyDistance:  metrics.WeeklyDistance(ts, dashboardWeeks, s.now()),
		RecentTrainings: metrics.Recent(ts, dashboardRecent),
	}
	if len(loads) > 0 {
		out.LastLoad = &loads[len(loads)-1]
	}
	writeJSON(w, http.StatusOK, out)
}
