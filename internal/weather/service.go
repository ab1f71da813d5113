package weather

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetCurrentWeather fetches current weather for coordinates.
	GetCurrentWeather(ctx context.Context, loc Location, units Units) (*Snapshot, error)

	// GetCurrentWeatherByCity fetches current weather for a named place.
	GetCurrentWeatherByCity(ctx context.Context, city string, units Units) (*Snapshot, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a snapshot is served without asking the provider
	// (default: 2 minutes). Keep it below the sweep interval.
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.01).
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 30 minutes).
	StaleIfErrorTTL time.Duration
}

// Service fronts a Provider with a small cache so alerts sharing a location
// cost one upstream call per sweep.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration

	mu              sync.RWMutex
	cache           map[string]*cachedSnapshot
	lastCleanup     time.Time
	cleanupInterval time.Duration
	now             func() time.Time
}

type cachedSnapshot struct {
	snapshot  *Snapshot
	fetchedAt time.Time
	expiresAt time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 2 * time.Minute
	}

	cacheGridSize := cfg.CacheGridSize
	if cacheGridSize == 0 {
		cacheGridSize = 0.01 // ~1km at equator
	}

	staleIfErrorTTL := cfg.StaleIfErrorTTL
	if staleIfErrorTTL == 0 {
		staleIfErrorTTL = 30 * time.Minute
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger.With().Str("component", "weather").Logger(),
		cacheTTL:        cacheTTL,
		cacheGridSize:   cacheGridSize,
		staleIfErrorTTL: staleIfErrorTTL,
		cache:           make(map[string]*cachedSnapshot),
		cleanupInterval: 5 * time.Minute,
		now:             time.Now,
	}
}

// GetCurrentWeather returns current weather for coordinates.
func (s *Service) GetCurrentWeather(ctx context.Context, loc Location, units Units) (*Snapshot, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	if !units.Valid() {
		units = UnitsMetric
	}

	key := s.gridKey(loc.Lat, loc.Lon, units)
	return s.lookup(key, func() (*Snapshot, error) {
		s.logger.Debug().
			Float64("lat", loc.Lat).
			Float64("lon", loc.Lon).
			Str("provider", s.provider.Name()).
			Msg("fetching weather from provider")
		return s.provider.GetCurrentWeather(ctx, loc, units)
	})
}

// GetCurrentWeatherByCity returns current weather for a named place.
func (s *Service) GetCurrentWeatherByCity(ctx context.Context, city string, units Units) (*Snapshot, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, ErrLocationNotFound
	}
	if !units.Valid() {
		units = UnitsMetric
	}

	key := "city:" + strings.ToLower(city) + ":" + string(units)
	return s.lookup(key, func() (*Snapshot, error) {
		s.logger.Debug().
			Str("city", city).
			Str("provider", s.provider.Name()).
			Msg("fetching weather from provider")
		return s.provider.GetCurrentWeatherByCity(ctx, city, units)
	})
}

// Name returns the underlying provider name.
func (s *Service) Name() string {
	return s.provider.Name()
}

func (s *Service) lookup(key string, fetch func() (*Snapshot, error)) (*Snapshot, error) {
	s.mu.RLock()
	if cached, ok := s.cache[key]; ok && s.now().Before(cached.expiresAt) {
		s.mu.RUnlock()
		return cached.snapshot, nil
	}
	s.mu.RUnlock()

	snapshot, err := fetch()
	if err != nil {
		return s.staleOrError(key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.cache[key] = &cachedSnapshot{
		snapshot:  snapshot,
		fetchedAt: now,
		expiresAt: now.Add(s.cacheTTL),
	}
	s.cleanupIfNeeded(now)

	return snapshot, nil
}

func (s *Service) staleOrError(key string, err error) (*Snapshot, error) {
	s.logger.Error().Err(err).Str("key", key).Msg("failed to fetch weather")

	if errors.Is(err, ErrLocationNotFound) || errors.Is(err, ErrInvalidCoordinates) {
		return nil, err
	}

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()

	if ok && s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
		s.logger.Warn().
			Time("fetched_at", cached.fetchedAt).
			Msg("serving stale weather data due to provider error")
		return cached.snapshot, nil
	}

	if errors.Is(err, ErrProviderUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
}

// gridKey groups nearby points into grid cells to reduce API calls.
func (s *Service) gridKey(lat, lon float64, units Units) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.3f:%.3f:%s", gridLat, gridLon, units)
}

// cleanupIfNeeded drops entries too old to serve even as stale data.
// Callers must hold s.mu.
func (s *Service) cleanupIfNeeded(now time.Time) {
	if now.Sub(s.lastCleanup) < s.cleanupInterval {
		return
	}
	s.lastCleanup = now

	expired := 0
	for key, cached := range s.cache {
		if now.After(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().Int("expired_entries", expired).Msg("cleaned up expired weather cache entries")
	}
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cachedSnapshot)
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries      int
	FreshEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	fresh := 0
	for _, c := range s.cache {
		if now.Before(c.expiresAt) {
			fresh++
		}
	}

	return CacheStats{
		Entries:      len(s.cache),
		FreshEntries: fresh,
		Provider:     s.provider.Name(),
	}
}

// validateCoordinates checks if coordinates are valid.
func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
