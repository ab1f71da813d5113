package weather_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertrix/alertrix/internal/weather"
)

// mockProvider is a mock weather provider for testing.
type mockProvider struct {
	mu        sync.Mutex
	callCount int
	err       error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) GetCurrentWeather(_ context.Context, loc weather.Location, units weather.Units) (*weather.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	return &weather.Snapshot{
		Temperature: 20,
		Humidity:    65,
		Location:    loc,
		Units:       units,
		ObservedAt:  time.Now(),
	}, nil
}

func (m *mockProvider) GetCurrentWeatherByCity(_ context.Context, city string, units weather.Units) (*weather.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.err != nil {
		return nil, m.err
	}
	return &weather.Snapshot{
		Temperature: 12,
		Location:    weather.Location{Lat: 52.37, Lon: 4.89, Name: city},
		Units:       units,
	}, nil
}

func (m *mockProvider) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *mockProvider) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func newService(p weather.Provider, cacheTTL time.Duration) *weather.Service {
	return weather.NewService(weather.ServiceConfig{
		Provider: p,
		Logger:   zerolog.Nop(),
		CacheTTL: cacheTTL,
	})
}

func TestService_GetCurrentWeather(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, time.Minute)

	snap, err := svc.GetCurrentWeather(context.Background(), weather.Location{Lat: 52.37, Lon: 4.89}, weather.UnitsMetric)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, snap.Temperature, 1e-9)
	assert.Equal(t, weather.UnitsMetric, snap.Units)
}

func TestService_CachesByGridAndUnits(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, time.Minute)
	ctx := context.Background()

	_, err := svc.GetCurrentWeather(ctx, weather.Location{Lat: 52.3701, Lon: 4.8901}, weather.UnitsMetric)
	require.NoError(t, err)
	_, err = svc.GetCurrentWeather(ctx, weather.Location{Lat: 52.3702, Lon: 4.8902}, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls(), "same grid cell should hit the cache")

	_, err = svc.GetCurrentWeather(ctx, weather.Location{Lat: 52.3701, Lon: 4.8901}, weather.UnitsImperial)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls(), "units are part of the cache key")

	stats := svc.CacheStats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, "mock", stats.Provider)
}

func TestService_InvalidCoordinates(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, time.Minute)

	_, err := svc.GetCurrentWeather(context.Background(), weather.Location{Lat: 91, Lon: 0}, weather.UnitsMetric)
	assert.ErrorIs(t, err, weather.ErrInvalidCoordinates)
	assert.Zero(t, provider.calls())
}

func TestService_ProviderError(t *testing.T) {
	provider := &mockProvider{err: errors.New("boom")}
	svc := newService(provider, time.Minute)

	_, err := svc.GetCurrentWeather(context.Background(), weather.Location{Lat: 1, Lon: 1}, weather.UnitsMetric)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
}

func TestService_KeepsTypedProviderErrors(t *testing.T) {
	provider := &mockProvider{err: weather.ErrRateLimited}
	svc := newService(provider, time.Minute)

	_, err := svc.GetCurrentWeather(context.Background(), weather.Location{Lat: 1, Lon: 1}, weather.UnitsMetric)
	assert.ErrorIs(t, err, weather.ErrProviderUnavailable)
	assert.ErrorIs(t, err, weather.ErrRateLimited)
}

func TestService_StaleOnError(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, time.Millisecond)
	ctx := context.Background()
	loc := weather.Location{Lat: 10, Lon: 10}

	first, err := svc.GetCurrentWeather(ctx, loc, weather.UnitsMetric)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	provider.setError(errors.New("provider down"))

	second, err := svc.GetCurrentWeather(ctx, loc, weather.UnitsMetric)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestService_GetCurrentWeatherByCity(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, time.Minute)
	ctx := context.Background()

	snap, err := svc.GetCurrentWeatherByCity(ctx, "Amsterdam", weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, "Amsterdam", snap.Location.Name)

	_, err = svc.GetCurrentWeatherByCity(ctx, "  amsterdam ", weather.UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls())

	_, err = svc.GetCurrentWeatherByCity(ctx, " ", weather.UnitsMetric)
	assert.ErrorIs(t, err, weather.ErrLocationNotFound)
}

func TestService_InvalidateCache(t *testing.T) {
	provider := &mockProvider{}
	svc := newService(provider, time.Minute)
	ctx := context.Background()
	loc := weather.Location{Lat: 10, Lon: 10}

	_, _ = svc.GetCurrentWeather(ctx, loc, weather.UnitsMetric)
	svc.InvalidateCache()
	_, _ = svc.GetCurrentWeather(ctx, loc, weather.UnitsMetric)

	assert.Equal(t, 2, provider.calls())
}
