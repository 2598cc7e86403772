package routes

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/briangreenhill/ridestats/internal/db"
)

var errUnique = &pgconn.PgError{Code: "23505"}

// memStore is an in-memory db.Repository for handler tests. Queries the
// handlers never call fall through to the nil embedded Querier.
type memStore struct {
	db.Querier

	mu        sync.Mutex
	users     map[uuid.UUID]db.User
	accounts  map[uuid.UUID]db.StravaAccount
	trainings map[uuid.UUID]db.Training
	tags      map[uuid.UUID]db.Tag
	attached  map[uuid.UUID]map[uuid.UUID]bool
	fitFiles  map[uuid.UUID][]byte
	points    map[uuid.UUID][]db.TrackPoint
	laps      map[uuid.UUID][]db.Lap
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[uuid.UUID]db.User{},
		accounts:  map[uuid.UUID]db.StravaAccount{},
		trainings: map[uuid.UUID]db.Training{},
		tags:      map[uuid.UUID]db.Tag{},
		attached:  map[uuid.UUID]map[uuid.UUID]bool{},
		fitFiles:  map[uuid.UUID][]byte{},
		points:    map[uuid.UUID][]db.TrackPoint{},
		laps:      map[uuid.UUID][]db.Lap{},
	}
}

func (m *memStore) ExecTx(ctx context.Context, fn func(db.Querier) error) error {
	return fn(m)
}

func (m *memStore) CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, arg.Email) {
			return db.User{}, errUnique
		}
	}
	u := db.User{ID: uuid.New(), Email: arg.Email, PasswordHash: arg.PasswordHash, Name: arg.Name}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUser(ctx context.Context, id uuid.UUID) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (db.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return db.User{}, pgx.ErrNoRows
}

func (m *memStore) GetStravaAccount(ctx context.Context, userID uuid.UUID) (db.StravaAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return db.StravaAccount{}, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memStore) UpsertStravaAccount(ctx context.Context, arg db.UpsertStravaAccountParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[arg.UserID] = db.StravaAccount{
		UserID:       arg.UserID,
		AthleteID:    arg.AthleteID,
		AccessToken:  arg.AccessToken,
		RefreshToken: arg.RefreshToken,
		TokenExpiry:  arg.TokenExpiry,
	}
	return nil
}

func (m *memStore) CreateTraining(ctx context.Context, arg db.CreateTrainingParams) (db.Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := db.Training{
		ID:             uuid.New(),
		UserID:         arg.UserID,
		StravaID:       arg.StravaID,
		Name:           arg.Name,
		Date:           arg.Date,
		DistanceKm:     arg.DistanceKm,
		MovingTime:     arg.MovingTime,
		AvgSpeedKmh:    arg.AvgSpeedKmh,
		MaxSpeedKmh:    arg.MaxSpeedKmh,
		AvgHeartRate:   arg.AvgHeartRate,
		MaxHeartRate:   arg.MaxHeartRate,
		ElevationGainM: arg.ElevationGainM,
		Notes:          arg.Notes,
	}
	m.trainings[t.ID] = t
	return t, nil
}

func (m *memStore) GetTraining(ctx context.Context, arg db.GetTrainingParams) (db.Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainings[arg.ID]
	if !ok || t.UserID != arg.UserID {
		return db.Training{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) ListTrainingsByUser(ctx context.Context, userID uuid.UUID) ([]db.Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Training
	for _, t := range m.trainings {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Time.Before(out[j].Date.Time) })
	return out, nil
}

func (m *memStore) UpdateTrainingDetails(ctx context.Context, arg db.UpdateTrainingDetailsParams) (db.Training, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainings[arg.ID]
	if !ok || t.UserID != arg.UserID {
		return db.Training{}, pgx.ErrNoRows
	}
	t.Name, t.Notes = arg.Name, arg.Notes
	m.trainings[arg.ID] = t
	return t, nil
}

func (m *memStore) DeleteTraining(ctx context.Context, arg db.DeleteTrainingParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainings[arg.ID]
	if !ok || t.UserID != arg.UserID {
		return 0, nil
	}
	delete(m.trainings, arg.ID)
	delete(m.attached, arg.ID)
	return 1, nil
}

func (m *memStore) StoreFitFile(ctx context.Context, arg db.StoreFitFileParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fitFiles[arg.TrainingID] = arg.Data
	return nil
}

func (m *memStore) ListTrackPoints(ctx context.Context, trainingID uuid.UUID) ([]db.TrackPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.points[trainingID], nil
}

func (m *memStore) ListLaps(ctx context.Context, trainingID uuid.UUID) ([]db.Lap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.laps[trainingID], nil
}

func (m *memStore) CreateTag(ctx context.Context, arg db.CreateTagParams) (db.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.UserID == arg.UserID && strings.EqualFold(t.Name, arg.Name) {
			return db.Tag{}, errUnique
		}
	}
	t := db.Tag{ID: uuid.New(), UserID: arg.UserID, Name: arg.Name, Color: arg.Color}
	m.tags[t.ID] = t
	return t, nil
}

func (m *memStore) ListTags(ctx context.Context, userID uuid.UUID) ([]db.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Tag
	for _, t := range m.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) DeleteTag(ctx context.Context, arg db.DeleteTagParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[arg.ID]
	if !ok || t.UserID != arg.UserID {
		return 0, nil
	}
	delete(m.tags, arg.ID)
	for _, set := range m.attached {
		delete(set, arg.ID)
	}
	return 1, nil
}

func (m *memStore) AttachTag(ctx context.Context, arg db.AttachTagParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, okT := m.trainings[arg.TrainingID]
	g, okG := m.tags[arg.TagID]
	if !okT || !okG || t.UserID != arg.UserID || g.UserID != arg.UserID {
		return 0, nil
	}
	if m.attached[arg.TrainingID] == nil {
		m.attached[arg.TrainingID] = map[uuid.UUID]bool{}
	}
	if m.attached[arg.TrainingID][arg.TagID] {
		return 0, nil
	}
	m.attached[arg.TrainingID][arg.TagID] = true
	return 1, nil
}

func (m *memStore) DetachTag(ctx context.Context, arg db.DetachTagParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trainings[arg.TrainingID]
	if !ok || t.UserID != arg.UserID || !m.attached[arg.TrainingID][arg.TagID] {
		return 0, nil
	}
	delete(m.attached[arg.TrainingID], arg.TagID)
	return 1, nil
}

func (m *memStore) ListTrainingTagsByUser(ctx context.Context, userID uuid.UUID) ([]db.ListTrainingTagsByUserRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.ListTrainingTagsByUserRow
	for trainingID, set := range m.attached {
		for tagID := range set {
			if g := m.tags[tagID]; g.UserID == userID {
				out = append(out, db.ListTrainingTagsByUserRow{TrainingID: trainingID, Tag: g})
			}
		}
	}
	return out, nil
}

func (m *memStore) ListTagsForTraining(ctx context.Context, trainingID uuid.UUID) ([]db.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Tag
	for tagID := range m.attached[trainingID] {
		out = append(out, m.tags[tagID])
	}
	return out, nil
}
