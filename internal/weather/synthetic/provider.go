// Package synthetic generates plausible random weather without calling an
// upstream. It backs local development and demos.
package synthetic

import (
	"context"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/weather"
)

// ProviderName identifies this weather provider.
const ProviderName = "synthetic"

var weatherCodes = []int{1000, 1100, 1101, 1102, 1001, 4000, 4001, 4200, 5000, 5001, 5100, 8000}

// Config configures the synthetic provider.
type Config struct {
	// Delay simulates upstream latency (default: 500ms). Negative disables it.
	Delay time.Duration

	// Rand is the randomness source. Nil seeds from the clock.
	Rand *rand.Rand

	// Now returns the current time; it picks the season.
	Now func() time.Time

	Logger zerolog.Logger
}

// Provider returns random weather shaped by hemisphere and season.
type Provider struct {
	delay  time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Ensure Provider implements weather.Provider.
var _ weather.Provider = (*Provider)(nil)

// New creates a synthetic provider.
func New(cfg Config) *Provider {
	delay := cfg.Delay
	if delay == 0 {
		delay = 500 * time.Millisecond
	}
	if delay < 0 {
		delay = 0
	}

	rng := cfg.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Provider{delay: delay, now: now, logger: cfg.Logger, rng: rng}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return ProviderName
}

// GetCurrentWeather returns random weather for coordinates.
func (p *Provider) GetCurrentWeather(ctx context.Context, loc weather.Location, units weather.Units) (*weather.Snapshot, error) {
	if loc.Name == "" {
		loc.Name = formatCoordinates(loc)
	}
	return p.generate(ctx, loc, units)
}

// GetCurrentWeatherByCity returns random weather at random coordinates named city.
func (p *Provider) GetCurrentWeatherByCity(ctx context.Context, city string, units weather.Units) (*weather.Snapshot, error) {
	p.mu.Lock()
	loc := weather.Location{
		Lat:  p.rng.Float64()*180 - 90,
		Lon:  p.rng.Float64()*360 - 180,
		Name: city,
	}
	p.mu.Unlock()
	return p.generate(ctx, loc, units)
}

func (p *Provider) generate(ctx context.Context, loc weather.Location, units weather.Units) (*weather.Snapshot, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.rng

	base := 25.0
	if isWinter(loc.Lat, now.Month()) {
		base = 5
	}
	if units == weather.UnitsImperial {
		base = base*9/5 + 32
	}

	temperature := round1(base + r.Float64()*10 - 5)
	code := weatherCodes[r.IntN(len(weatherCodes))]
	rainy := code >= 4000 && code < 5000
	snowy := code >= 5000 && code < 6000
	stormy := code == 8000

	snap := &weather.Snapshot{
		Temperature:          temperature,
		TemperatureApparent:  round1(temperature + r.Float64()*5 - 2),
		WindSpeed:            round1(r.Float64() * 20),
		WindDirection:        float64(r.IntN(360)),
		Humidity:             float64(r.IntN(100)),
		CloudCover:           float64(r.IntN(100)),
		Visibility:           round1(r.Float64() * 10),
		PressureSurfaceLevel: float64(1000 + r.IntN(30)),
		UVIndex:              float64(r.IntN(11)),
		WeatherCode:          float64(code),
		Location:             loc,
		Units:                units,
		ObservedAt:           now.UTC(),
	}

	switch {
	case rainy:
		snap.PrecipitationType = 1
	case snowy:
		snap.PrecipitationType = 2
	case stormy:
		snap.PrecipitationType = 3
	}
	if rainy || stormy {
		snap.RainIntensity = r.Float64() * 30
	}
	if snowy {
		snap.SnowIntensity = r.Float64() * 5
	}
	if rainy || snowy || stormy {
		snap.PrecipitationProbability = float64(r.IntN(100))
	} else {
		snap.PrecipitationProbability = float64(r.IntN(30))
	}

	p.logger.Debug().
		Str("location", loc.Name).
		Float64("temperature", snap.Temperature).
		Int("weather_code", code).
		Msg("synthetic weather generated")

	return snap, nil
}

// isWinter treats November-February as northern winter and April-September
// as southern winter.
func isWinter(lat float64, month time.Month) bool {
	if lat > 0 {
		return month < time.March || month > time.October
	}
	return month >= time.April && month <= time.September
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func formatCoordinates(loc weather.Location) string {
	return strconv.FormatFloat(loc.Lat, 'f', 4, 64) + ", " + strconv.FormatFloat(loc.Lon, 'f', 4, 64)
}
