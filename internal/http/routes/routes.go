package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/oauth2"

	"github.com/briangreenhill/ridestats/internal/auth"
	"github.com/briangreenhill/ridestats/internal/config"
	"github.com/briangreenhill/ridestats/internal/db"
	appmw "github.com/briangreenhill/ridestats/internal/http/middleware"
	"github.com/briangreenhill/ridestats/internal/jobs"
	"github.com/briangreenhill/ridestats/internal/metrics"
	"github.com/briangreenhill/ridestats/internal/strava"
)

const sessionUserKey = "user_id"

var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)

type Server struct {
	Router     *chi.Mux
	Sess       *scs.SessionManager
	Store      db.Repository
	Jobs       jobs.Enqueuer
	StravaConf *oauth2.Config
	State      auth.StateSigner
	Scorer     metrics.Scorer
	Filters    metrics.Filters
	Logger     zerolog.Logger
	// StravaAPIBase overrides the API host used for athlete lookups in tests
	StravaAPIBase string
}

type ServerOptions struct {
	Sess    *scs.SessionManager
	Store   db.Repository
	Jobs    jobs.Enqueuer
	Cfg     config.Config
	Scorer  metrics.Scorer
	Filters metrics.Filters
	Logger  zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:     r,
		Sess:       opts.Sess,
		Store:      opts.Store,
		Jobs:       opts.Jobs,
		StravaConf: strava.OAuthConfig(opts.Cfg.Strava.ClientID, opts.Cfg.Strava.ClientSecret, opts.Cfg.StravaRedirectURL()),
		State:      auth.NewStateSigner(opts.Cfg.SessionSecret),
		Scorer:     opts.Scorer,
		Filters:    opts.Filters,
		Logger:     opts.Logger,
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(pub chi.Router) {
		pub.Use(s.sessionToContext)
		pub.Post("/api/auth/register", s.handleRegister)
		pub.Post("/api/auth/login", s.handleLogin)
		pub.Post("/api/auth/logout", s.handleLogout)
		pub.Get("/oauth/strava/callback", s.handleStravaCallback)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(s.sessionToContext)
		pr.Use(appmw.RequireAuth)

		pr.Get("/api/me", s.handleMe)
		pr.Get("/oauth/strava/start", s.handleStravaStart)
		pr.Post("/api/strava/sync", s.handleTriggerSync)

		pr.Route("/api/trainings", func(tr chi.Router) {
			tr.Get("/", s.handleListTrainings)
			tr.Post("/", s.handleCreateTraining)
			tr.Route("/{id}", func(one chi.Router) {
				one.Get("/", s.handleGetTraining)
				one.Patch("/", s.handleUpdateTraining)
				one.Delete("/", s.handleDeleteTraining)
				one.Post("/fit", s.handleUploadFit)
				one.Get("/track", s.handleTrack)
				one.Get("/track.parquet", s.handleTrackParquet)
				one.Get("/laps", s.handleLaps)
				one.Put("/tags/{tagID}", s.handleAttachTag)
				one.Delete("/tags/{tagID}", s.handleDetachTag)
			})
		})

		pr.Get("/api/tags", s.handleListTags)
		pr.Post("/api/tags", s.handleCreateTag)
		pr.Delete("/api/tags/{id}", s.handleDeleteTag)

		pr.Get("/api/metrics/heart-rate", s.handleHeartRateMetrics)
		pr.Get("/api/metrics/elevation-per-km", s.handleElevationMetrics)
		pr.Get("/api/metrics/speed", s.handleSpeedMetrics)
		pr.Get("/api/metrics/distance", s.handleDistanceMetrics)
		pr.Get("/api/metrics/training-load", s.handleTrainingLoad)
		pr.Get("/api/dashboard", s.handleDashboard)
	})

	return s
}

// Handler wraps the router with session loading
func (s *Server) Handler() http.Handler {
	return s.Sess.LoadAndSave(s.Router)
}

func (s *Server) sessionToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := s.Sess.GetString(r.Context(), sessionUserKey); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				r = r.WithContext(appmw.WithUserID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser is only called behind RequireAuth
func currentUser(r *http.Request) uuid.UUID {
	id, _ := appmw.UserID(r.Context())
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// fail maps err onto a status code and writes {"error": ...}
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case errors.Is(err, ErrNotFound) || db.IsNotFound(err):
		status, msg = http.StatusNotFound, "not found"
	case errors.Is(err, ErrBadRequest):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrPasswordTooShort):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()
	case errors.Is(err, ErrConflict):
		status, msg = http.StatusConflict, err.Error()
	case db.IsUniqueViolation(err):
		status, msg = http.StatusConflict, "already exists"
	}
	if status == http.StatusInternalServerError {
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid json: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest("invalid %s", name)
	}
	return id, nil
}
