package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertrix/alertrix/internal/alert"
	"github.com/alertrix/alertrix/internal/api"
	"github.com/alertrix/alertrix/internal/api/handler"
	"github.com/alertrix/alertrix/internal/api/models"
	"github.com/alertrix/alertrix/internal/auth"
	"github.com/alertrix/alertrix/internal/scheduler"
	"github.com/alertrix/alertrix/internal/weather"
)

const testSecret = "test-secret-key-for-testing-only-0123"

type fixedWeather struct {
	snap *weather.Snapshot
	err  error
}

func (f *fixedWeather) GetCurrentWeather(_ context.Context, loc weather.Location, units weather.Units) (*weather.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.snap
	s.Location = loc
	s.Units = units
	return &s, nil
}

func (f *fixedWeather) GetCurrentWeatherByCity(_ context.Context, city string, units weather.Units) (*weather.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.snap
	s.Location = weather.Location{Lat: 52.37, Lon: 4.89, Name: city}
	s.Units = units
	return &s, nil
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []alert.Notification
}

func (d *recordingDispatcher) NotifyAsync(_ context.Context, n alert.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

type lockedRunner struct{}

func (lockedRunner) RunOnce(context.Context) (*alert.SweepResult, error) {
	return nil, scheduler.ErrSweepLocked
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testEnv struct {
	router     http.Handler
	dispatcher *recordingDispatcher
	weather    *fixedWeather
	tokens     *auth.JWTService
}

func newTestEnv(t *testing.T, mutate func(*api.RouterConfig)) *testEnv {
	t.Helper()

	wx := &fixedWeather{snap: &weather.Snapshot{Temperature: 35, Humidity: 40, WeatherCode: 1000, ObservedAt: time.Now()}}
	dispatcher := &recordingDispatcher{}
	svc := alert.NewService(alert.ServiceConfig{
		Repository: alert.NewInMemoryRepository(),
		Weather:    wx,
		Dispatcher: dispatcher,
		Logger:     zerolog.Nop(),
	})
	tokens := auth.NewJWTService(auth.JWTConfig{SigningKey: testSecret, Issuer: "alertrix", Audience: "alertrix-ops"})

	cfg := api.RouterConfig{
		Logger:  zerolog.New(io.Discard),
		Alerts:  svc,
		Weather: wx,
		Ops:     handler.OpsConfig{Version: "test", BuildTime: "2026-01-01T00:00:00Z"},
		Tokens:  tokens,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	return &testEnv{router: api.NewRouter(cfg), dispatcher: dispatcher, weather: wx, tokens: tokens}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) bearer(t *testing.T, scopes ...string) string {
	t.Helper()
	token, _, err := e.tokens.IssueToken("ops@example.com", scopes, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func heatAlert(emails ...string) map[string]any {
	return map[string]any{
		"name":     "Heat",
		"emails":   emails,
		"location": map[string]any{"lat": 52.37, "lon": 4.89, "name": "Amsterdam"},
		"condition": map[string]any{
			"parameter": "temperature",
			"operator":  ">",
			"value":     30,
		},
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestRouter_Health(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/v1/ops/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	health := decode[models.Health](t, rec)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_Ready(t *testing.T) {
	rec := newTestEnv(t, nil).do(t, http.MethodGet, "/v1/ops/ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.HealthStatusOK, decode[models.SystemStatus](t, rec).Status)

	env := newTestEnv(t, func(cfg *api.RouterConfig) { cfg.Ops.Database = failingPinger{} })
	rec = env.do(t, http.MethodGet, "/v1/ops/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	status := decode[models.SystemStatus](t, rec)
	assert.Equal(t, models.HealthStatusFail, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "database", status.Subsystems[0].Name)
	require.NotNil(t, status.Subsystems[0].Detail)
	assert.Contains(t, *status.Subsystems[0].Detail, "connection refused")
}

func TestRouter_AlertLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/v1/alerts", heatAlert(" ops@example.com "))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Alert](t, rec)
	assert.Regexp(t, `^alt_[0-9a-f]{32}$`, created.ID)
	assert.Equal(t, "/v1/alerts/"+created.ID, rec.Header().Get("Location"))
	assert.Equal(t, []string{"ops@example.com"}, created.Emails)
	assert.Equal(t, "metric", created.Units)
	assert.False(t, created.IsTriggered)

	rec = env.do(t, http.MethodGet, "/v1/alerts/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Heat", decode[models.Alert](t, rec).Name)

	rec = env.do(t, http.MethodGet, "/v1/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[models.AlertList](t, rec).Count)

	rec = env.do(t, http.MethodPut, "/v1/alerts/"+created.ID, map[string]any{"name": "Heatwave", "units": "imperial"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Alert](t, rec)
	assert.Equal(t, "Heatwave", updated.Name)
	assert.Equal(t, "imperial", updated.Units)
	assert.Equal(t, 52.37, updated.Location.Lat)

	rec = env.do(t, http.MethodGet, "/v1/alerts/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	statuses := decode[models.AlertStatusList](t, rec)
	require.Len(t, statuses.Items, 1)
	assert.Equal(t, created.ID, statuses.Items[0].ID)

	rec = env.do(t, http.MethodPost, "/v1/alerts/"+created.ID+"/restart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.Alert](t, rec).IsTriggered)

	rec = env.do(t, http.MethodDelete, "/v1/alerts/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/alerts/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouter_CreateRejectsBadInput(t *testing.T) {
	env := newTestEnv(t, nil)

	tooMany := heatAlert("a@x.io", "b@x.io", "c@x.io", "d@x.io", "e@x.io", "f@x.io")

	tests := []struct {
		name    string
		body    any
		headers []string
		status  int
		field   string
	}{
		{name: "six recipients", body: tooMany, status: http.StatusBadRequest, field: "emails"},
		{name: "unknown field", body: `{"name":"x","bogus":true}`, status: http.StatusBadRequest},
		{name: "malformed json", body: `{"name":`, status: http.StatusBadRequest},
		{name: "wrong media type", body: `name=x`, headers: []string{"Content-Type", "text/plain"}, status: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/v1/alerts", tt.body, tt.headers...)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			if tt.field != "" {
				p := decode[models.Problem](t, rec)
				require.NotEmpty(t, p.Errors)
				assert.Equal(t, tt.field, p.Errors[0].Field)
			}
		})
	}

	rec := env.do(t, http.MethodGet, "/v1/alerts", nil)
	assert.Equal(t, 0, decode[models.AlertList](t, rec).Count)
}

func TestRouter_EvaluateRequiresScopedToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/v1/alerts", heatAlert("ops@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/alerts/evaluate", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/alerts/evaluate", nil, "Authorization", env.bearer(t, auth.ScopeAlertsWrite))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/v1/alerts/evaluate", nil, "Authorization", env.bearer(t, auth.ScopeAlertsEvaluate))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[models.EvaluationResult](t, rec)
	assert.True(t, res.AlertsTriggered)
	assert.Equal(t, 1, res.Triggered)
	assert.Equal(t, 1, env.dispatcher.count())

	// Second sweep skips the triggered alert.
	rec = env.do(t, http.MethodPost, "/v1/alerts/evaluate", nil, "Authorization", env.bearer(t, auth.ScopeAlertsEvaluate))
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[models.EvaluationResult](t, rec)
	assert.False(t, res.AlertsTriggered)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, env.dispatcher.count())
}

func TestRouter_EvaluateOpenWithoutVerifier(t *testing.T) {
	env := newTestEnv(t, func(cfg *api.RouterConfig) { cfg.Tokens = nil })

	rec := env.do(t, http.MethodPost, "/v1/alerts/evaluate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.EvaluationResult](t, rec).AlertsTriggered)
}

func TestRouter_EvaluateLocked(t *testing.T) {
	env := newTestEnv(t, func(cfg *api.RouterConfig) {
		cfg.Tokens = nil
		cfg.Sweeps = lockedRunner{}
	})

	rec := env.do(t, http.MethodPost, "/v1/alerts/evaluate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_Weather(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"by city", "?city=Amsterdam", http.StatusOK},
		{"by coordinates imperial", "?lat=52.37&lon=4.89&units=imperial", http.StatusOK},
		{"nothing given", "", http.StatusBadRequest},
		{"lon missing", "?lat=52.37", http.StatusBadRequest},
		{"lat out of range", "?lat=91&lon=4.89", http.StatusBadRequest},
		{"unknown units", "?city=Amsterdam&units=kelvin", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/v1/weather"+tt.query, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodGet, "/v1/weather?city=Amsterdam", nil)
	w := decode[models.Weather](t, rec)
	assert.Equal(t, "Clear", w.Condition)
	assert.Equal(t, "Amsterdam", w.Location.Name)
	assert.Equal(t, "metric", w.Units)
}

func TestRouter_WeatherProviderDown(t *testing.T) {
	env := newTestEnv(t, nil)
	env.weather.err = weather.ErrProviderUnavailable

	rec := env.do(t, http.MethodGet, "/v1/weather?lat=1&lon=2", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
