package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/ridestats/internal/config"
	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/jobs"
	"github.com/briangreenhill/ridestats/internal/metrics"
)

var testNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

type recordingQueue struct {
	tasks []*asynq.Task
}

func (q *recordingQueue) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: "test"}, nil
}

type testEnv struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	store  *memStore
	queue  *recordingQueue
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newMemStore()
	e := newEnv(t, store, metrics.Filters{Epoch: time.Unix(0, 0).UTC(), Now: func() time.Time { return testNow }})
	e.store = store
	return e
}

func newEnv(t *testing.T, store db.Repository, filters metrics.Filters) *testEnv {
	t.Helper()
	queue := &recordingQueue{}
	cfg := config.Config{
		BaseURL:       "http://localhost:8080",
		SessionSecret: "0123456789abcdef0123456789abcdef",
		Strava:        config.StravaConfig{ClientID: "cid", ClientSecret: "csecret"},
	}
	s := New(ServerOptions{
		Sess:    scs.New(),
		Store:   store,
		Jobs:    queue,
		Cfg:     cfg,
		Scorer:  metrics.DefaultScorer(),
		Filters: filters,
		Logger:  zerolog.Nop(),
	})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{t: t, srv: srv, client: client, queue: queue, server: s}
}

func (e *testEnv) do(method, path string, body any) *http.Response {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(e.t, err)
	e.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) register(email string) uuid.UUID {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/auth/register", map[string]string{"email": email, "password": "s3cret-pass", "name": "Rider"})
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	return decode[userResponse](e.t, resp).ID
}

func (e *testEnv) createTraining(body map[string]any) map[string]any {
	e.t.Helper()
	resp := e.do(http.MethodPost, "/api/trainings", body)
	require.Equal(e.t, http.StatusCreated, resp.StatusCode)
	return decode[map[string]any](e.t, resp)
}

func ride(name string, date time.Time, km float64, moving string) map[string]any {
	return map[string]any{"name": name, "date": date.Format(time.RFC3339), "distance_km": km, "moving_time": moving}
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequired(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestRegisterLoginLogout(t *testing.T) {
	e := newTestEnv(t)
	id := e.register("Rider@Example.com")

	me := decode[userResponse](t, e.do(http.MethodGet, "/api/me", nil))
	assert.Equal(t, id, me.ID)
	assert.Equal(t, "rider@example.com", me.Email)
	assert.False(t, me.StravaConnected)

	resp := e.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "rider@example.com", "password": "another-pass"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.do(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/me", nil).StatusCode)

	resp = e.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "rider@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid email or password", decode[map[string]string](t, resp)["error"])

	resp = e.do(http.MethodPost, "/api/auth/login", map[string]string{"email": "rider@example.com", "password": "s3cret-pass"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/api/me", nil).StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)
	tests := []map[string]string{
		{"email": "not-an-email", "password": "long-enough"},
		{"email": "a@example.com", "password": "short"},
	}
	for _, body := range tests {
		resp := e.do(http.MethodPost, "/api/auth/register", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
	resp := e.do(http.MethodPost, "/api/auth/register", map[string]any{"email": "a@example.com", "password": "long-enough", "admin": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTrainingCRUD(t *testing.T) {
	e := newTestEnv(t)
	e.register("a@example.com")

	body := ride("Tempo", testNow.Add(-48*time.Hour), 45, "1:30:00")
	body["avg_heart_rate_bpm"] = 152
	created := e.createTraining(body)
	assert.Equal(t, 30.0, created["avg_speed_kmh"])
	assert.Equal(t, 152.0, created["avg_heart_rate_bpm"])
	assert.Nil(t, created["max_speed_kmh"])
	id := created["id"].(string)

	bad := ride("Broken", testNow, 10, "1:75:00")
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/trainings", bad).StatusCode)

	resp := e.do(http.MethodPatch, "/api/trainings/"+id, map[string]string{"notes": "windy"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	patched := decode[map[string]any](t, resp)
	assert.Equal(t, "Tempo", patched["name"])
	assert.Equal(t, "windy", patched["notes"])

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/trainings/not-a-uuid", nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/trainings/"+id, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/trainings/"+id, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/trainings/"+id, nil).StatusCode)
}

func TestTrainingsAreScopedToUser(t *testing.T) {
	e := newTestEnv(t)
	e.register("owner@example.com")
	id := e.createTraining(ride("Mine", testNow.Add(-time.Hour), 20, "0:40:00"))["id"].(string)

	e.do(http.MethodPost, "/api/auth/logout", nil)
	e.register("other@example.com")
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/trainings/"+id, nil).StatusCode)
	list := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/trainings", nil))
	assert.Empty(t, list)
}

func TestListTrainingsFilters(t *testing.T) {
	e := newTestEnv(t)
	e.register("a@example.com")

	withHR := ride("HR", time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC), 30, "1:00:00")
	withHR["avg_heart_rate_bpm"] = 140
	e.createTraining(withHR)
	e.createTraining(ride("Early", time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), 20, "0:50:00"))
	e.createTraining(ride("Future", testNow.Add(24*time.Hour), 20, "0:50:00"))

	all := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/trainings", nil))
	require.Len(t, all, 2, "rides after now are excluded")
	assert.Equal(t, "Early", all[0]["name"])

	hr := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/trainings?hr=true", nil))
	require.Len(t, hr, 1)
	assert.Equal(t, "HR", hr[0]["name"])

	ranged := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/trainings?from=2024-03-02&to=2024-03-10", nil))
	require.Len(t, ranged, 1)
	assert.Equal(t, "HR", ranged[0]["name"])

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/trainings?from=yesterday", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/trainings?fit=maybe", nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/api/trainings?from=2024-03-10&to=2024-03-02", nil).StatusCode)
}

func TestTags(t *testing.T) {
	e := newTestEnv(t)
	e.register("a@example.com")
	trainingID := e.createTraining(ride("Race", testNow.Add(-time.Hour), 80, "2:10:00"))["id"].(string)
	e.createTraining(ride("Easy", testNow.Add(-2*time.Hour), 20, "0:50:00"))

	resp := e.do(http.MethodPost, "/api/tags", map[string]string{"name": "race", "color": "#FF0000"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tag := decode[map[string]string](t, resp)
	assert.Equal(t, "#ff0000", tag["color"])

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/api/tags", map[string]string{"name": "race"}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/tags", map[string]string{"name": "x", "color": "red"}).StatusCode)

	path := "/api/trainings/" + trainingID + "/tags/" + tag["id"]
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodPut, path, nil).StatusCode)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodPut, path, nil).StatusCode, "attach is idempotent")
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/api/trainings/"+trainingID+"/tags/"+uuid.NewString(), nil).StatusCode)

	tagged := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/trainings?tag="+tag["id"], nil))
	require.Len(t, tagged, 1)
	assert.Equal(t, "Race", tagged[0]["name"])

	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, path, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, path, nil).StatusCode)

	tags := decode[[]map[string]string](t, e.do(http.MethodGet, "/api/tags", nil))
	assert.Len(t, tags, 1)
	assert.Equal(t, http.StatusNoContent, e.do(http.MethodDelete, "/api/tags/"+tag["id"], nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/api/tags/"+tag["id"], nil).StatusCode)
}

func TestMetricsEndpoints(t *testing.T) {
	e := newTestEnv(t)
	e.register("a@example.com")

	hard := ride("Hard", time.Date(2024, 3, 18, 8, 0, 0, 0, time.UTC), 100, "3:20:00")
	hard["elevation_gain_m"] = 1000
	hard["avg_heart_rate_bpm"] = 160
	e.createTraining(hard)
	e.createTraining(ride("Flat", time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC), 50, "2:00:00"))

	resp := e.do(http.MethodGet, "/api/metrics/training-load", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	load := decode[trainingLoadResponse](t, resp)
	require.Len(t, load.Results, 2)
	assert.Equal(t, 100.0, load.MaxValues.Distance)
	assert.Equal(t, 100, load.Results[1].Intensity)

	elev := decode[[]metrics.ElevationPoint](t, e.do(http.MethodGet, "/api/metrics/elevation-per-km", nil))
	require.Len(t, elev, 2)
	assert.Equal(t, 10.0, elev[1].Elevation)

	speed := decode[[]metrics.SpeedPoint](t, e.do(http.MethodGet, "/api/metrics/speed?from=2024-03-15", nil))
	require.Len(t, speed, 1)
	assert.Equal(t, 30.0, speed[0].AvgSpeedKmh)

	hr := decode[[]metrics.HeartRatePoint](t, e.do(http.MethodGet, "/api/metrics/heart-rate", nil))
	assert.Empty(t, hr, "no zones without fit data")

	dist := decode[[]metrics.DistancePoint](t, e.do(http.MethodGet, "/api/metrics/distance", nil))
	require.Len(t, dist, 2)
	assert.Equal(t, 120.0, dist[0].Minutes)

	dash := decode[dashboardResponse](t, e.do(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, 2, dash.Count)
	assert.Equal(t, 150.0, dash.DistanceKm)
	assert.Equal(t, "5h 20m", dash.TotalTime)
	require.Len(t, dash.WeeklyDistance, dashboardWeeks)
	assert.Equal(t, 100.0, dash.WeeklyDistance[dashboardWeeks-1].DistanceKm)
	require.Len(t, dash.RecentTrainings, 2)
	assert.Equal(t, "Hard", dash.RecentTrainings[0].Name)
	require.NotNil(t, dash.LastLoad)
	assert.Equal(t, 100, dash.LastLoad.Intensity)
}

func TestEmptyDashboard(t *testing.T) {
	e := newTestEnv(t)
	e.register("a@example.com")
	dash := decode[dashboardResponse](t, e.do(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, 0, dash.Count)
	assert.Equal(t, "0m", dash.TotalTime)
	assert.Nil(t, dash.LastLoad)

	load := decode[trainingLoadResponse](t, e.do(http.MethodGet, "/api/metrics/training-load", nil))
	assert.NotNil(t, load.Results)
	assert.Empty(t, load.Results)
}

func TestUploadFit(t *testing.T) {
	e := newTestEnv(t)
	e.register("a@example.com")
	id := e.createTraining(ride("Upload", testNow.Add(-time.Hour), 30, "1:00:00"))["id"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "ride.fit")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("fit-bytes"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/trainings/"+id+"/fit", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []byte("fit-bytes"), e.store.fitFiles[uuid.MustParse(id)])
	require.Len(t, e.queue.tasks, 1)
	assert.Equal(t, jobs.TaskProcessFitFile, e.queue.tasks[0].Type())
	assert.Contains(t, string(e.queue.tasks[0].Payload()), id)

	missing := e.do(http.MethodPost, "/api/trainings/"+id+"/fit", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, missing.StatusCode)
}

func TestTrackAndLaps(t *testing.T) {
	e := newTestEnv(t)
	e.register("a@example.com")
	id := uuid.MustParse(e.createTraining(ride("Tracked", testNow.Add(-time.Hour), 30, "1:00:00"))["id"].(string))

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/trainings/"+id.String()+"/track.parquet", nil).StatusCode)

	start := testNow.Add(-time.Hour)
	e.store.points[id] = []db.TrackPoint{
		{TrainingID: id, Seq: 0, RecordedAt: pgtype.Timestamptz{Time: start, Valid: true}, HeartRate: pgtype.Int4{Int32: 120, Valid: true}},
		{TrainingID: id, Seq: 1, OffsetS: 1, RecordedAt: pgtype.Timestamptz{Time: start.Add(time.Second), Valid: true}},
	}
	e.store.laps[id] = []db.Lap{{TrainingID: id, DurationS: 3600, DistanceM: 30000}}

	track := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/trainings/"+id.String()+"/track", nil))
	require.Len(t, track, 2)
	assert.Equal(t, 120.0, track[0]["heart_rate"])
	assert.Nil(t, track[1]["heart_rate"])

	resp := e.do(http.MethodGet, "/api/trainings/"+id.String()+"/track.parquet", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.apache.parquet", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(body, []byte("PAR1")))

	laps := decode[[]map[string]any](t, e.do(http.MethodGet, "/api/trainings/"+id.String()+"/laps", nil))
	require.Len(t, laps, 1)
	assert.Equal(t, 30000.0, laps[0]["distance_m"])
}

func TestStravaConnectFlow(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":21600,"athlete":{"id":4242}}`))
	}))
	defer tokenServer.Close()

	e := newTestEnv(t)
	userID := e.register("a@example.com")
	e.server.StravaConf.Endpoint.TokenURL = tokenServer.URL

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/strava/sync", nil).StatusCode, "not connected yet")

	resp := e.do(http.MethodGet, "/oauth/strava/start", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc.String(), "https://www.strava.com/oauth/authorize"))
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	resp = e.do(http.MethodGet, "/oauth/strava/callback?code=the-code&state="+url.QueryEscape(state), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	acct, ok := e.store.accounts[userID]
	require.True(t, ok)
	assert.Equal(t, int64(4242), acct.AthleteID)
	assert.Equal(t, "rt", acct.RefreshToken)
	require.Len(t, e.queue.tasks, 1)
	assert.Equal(t, jobs.TaskSyncStravaUser, e.queue.tasks[0].Type())

	me := decode[userResponse](t, e.do(http.MethodGet, "/api/me", nil))
	assert.True(t, me.StravaConnected)

	resp = e.do(http.MethodPost, "/api/strava/sync", map[string]string{"since": "2024-01-01T00:00:00Z"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, e.queue.tasks, 2)
	var p jobs.SyncStravaPayload
	require.NoError(t, json.Unmarshal(e.queue.tasks[1].Payload(), &p))
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix(), p.SinceUnix)
}

func TestStravaCallbackRejectsBadState(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(http.MethodGet, "/oauth/strava/callback?code=x&state=forged.sig", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(http.MethodGet, "/oauth/strava/callback?error=access_denied", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
