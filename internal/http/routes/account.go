package routes

import (
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/oauth2"

	"github.com/briangreenhill/ridestats/internal/auth"
	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/jobs"
	"github.com/briangreenhill/ridestats/internal/strava"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userResponse struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	MaxHeartRate    *int32     `json:"max_heart_rate"`
	StravaConnected bool       `json:"strava_connected"`
	LastSync        *time.Time `json:"last_sync"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	u, err := s.Store.CreateUser(r.Context(), db.CreateUserParams{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			s.fail(w, r, ErrConflict)
			return
		}
		s.fail(w, r, err)
		return
	}

	if err := s.startSession(r, u.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(u, nil))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.Store.GetUserByEmail(r.Context(), strings.TrimSpace(in.Email))
	if err != nil {
		if db.IsNotFound(err) {
			s.fail(w, r, auth.ErrInvalidCredentials)
			return
		}
		s.fail(w, r, err)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, in.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.startSession(r, u.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u, s.stravaAccount(r, u.ID)))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sess.Destroy(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) startSession(r *http.Request, userID uuid.UUID) error {
	if err := s.Sess.RenewToken(r.Context()); err != nil {
		return err
	}
	s.Sess.Put(r.Context(), sessionUserKey, userID.String())
	return nil
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	u, err := s.Store.GetUser(r.Context(), userID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u, s.stravaAccount(r, userID)))
}

// stravaAccount returns nil when the user has not connected Strava
func (s *Server) stravaAccount(r *http.Request, userID uuid.UUID) *db.StravaAccount {
	acct, err := s.Store.GetStravaAccount(r.Context(), userID)
	if err != nil {
		if !db.IsNotFound(err) {
			hlog.FromRequest(r).Warn().Err(err).Msg("load strava account")
		}
		return nil
	}
	return &acct
}

func toUserResponse(u db.User, acct *db.StravaAccount) userResponse {
	out := userResponse{ID: u.ID, Email: u.Email, Name: u.Name}
	if u.MaxHr.Valid {
		out.MaxHeartRate = &u.MaxHr.Int32
	}
	if acct != nil {
		out.StravaConnected = true
		if acct.LastSync.Valid {
			out.LastSync = &acct.LastSync.Time
		}
	}
	return out
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", badRequest("invalid email")
	}
	return strings.ToLower(addr.Address), nil
}

func (s *Server) handleStravaStart(w http.ResponseWriter, r *http.Request) {
	state := s.State.Sign(currentUser(r), time.Now().Add(30*time.Minute))
	authURL := s.StravaConf.AuthCodeURL(
		state,
		oauth2.SetAuthURLParam("approval_prompt", "auto"),
	)
	http.Redirect(w, r, authURL, http.StatusFound)
}

func (s *Server) handleStravaCallback(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	if e := r.URL.Query().Get("error"); e != "" {
		s.fail(w, r, badRequest("strava authorization denied: %s", e))
		return
	}
	userID, err := s.State.Verify(r.URL.Query().Get("state"))
	if err != nil {
		log.Warn().Err(err).Msg("strava state rejected")
		s.fail(w, r, badRequest("invalid state"))
		return
	}

	tok, err := s.StravaConf.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("strava token exchange failed")
		s.fail(w, r, badRequest("could not exchange token"))
		return
	}

	athleteID := strava.AthleteID(tok)
	if athleteID == 0 {
		opts := []strava.Option{}
		if s.StravaAPIBase != "" {
			opts = append(opts, strava.WithBaseURL(s.StravaAPIBase))
		}
		a, err := strava.NewClient(r.Context(), oauth2.StaticTokenSource(tok), opts...).Athlete(r.Context())
		if err != nil {
			s.fail(w, r, err)
			return
		}
		athleteID = a.ID
	}

	if err := s.Store.UpsertStravaAccount(r.Context(), db.UpsertStravaAccountParams{
		UserID:       userID,
		AthleteID:    athleteID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenExpiry:  pgtype.Timestamptz{Time: tok.Expiry, Valid: true},
	}); err != nil {
		if db.IsUniqueViolation(err) {
			s.fail(w, r, ErrConflict)
			return
		}
		s.fail(w, r, err)
		return
	}
	log.Info().Stringer("user", userID).Int64("athlete", athleteID).Msg("strava connected")

	_, _ = s.enqueueSync(r, userID, time.Time{})
	writeJSON(w, http.StatusOK, map[string]any{"connected": true, "athlete_id": athleteID})
}

type syncRequest struct {
	Since *time.Time `json:"since"`
}

func (s *Server) handleTriggerSync(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	var in syncRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &in); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if s.stravaAccount(r, userID) == nil {
		s.fail(w, r, badRequest("strava is not connected"))
		return
	}
	var since time.Time
	if in.Since != nil {
		since = *in.Since
	}
	info, err := s.enqueueSync(r, userID, since)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": info})
}

// enqueueSync queues an import and returns the task id
func (s *Server) enqueueSync(r *http.Request, userID uuid.UUID, since time.Time) (string, error) {
	log := hlog.FromRequest(r)
	task, err := jobs.NewSyncStravaTask(userID, since)
	if err != nil {
		return "", err
	}
	info, err := s.Jobs.Enqueue(task)
	if err != nil {
		log.Error().Err(err).Msg("enqueue failed")
		return "", err
	}
	log.Info().Str("task_id", info.ID).Str("queue", info.Queue).Msg("enqueued sync")
	return info.ID, nil
}
