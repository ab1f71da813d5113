// Package tomorrow implements weather.Provider against the Tomorrow.io
// realtime API.
package tomorrow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/alertrix/alertrix/internal/provider/resilience"
	"github.com/alertrix/alertrix/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "tomorrow"

	// DefaultBaseURL is the Tomorrow.io v4 API base URL.
	DefaultBaseURL = "https://api.tomorrow.io/v4"
)

// ClientConfig holds configuration for the Tomorrow.io client.
type ClientConfig struct {
	// APIKey is the Tomorrow.io API key (required).
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a Tomorrow.io API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// Ensure Client implements weather.Provider.
var _ weather.Provider = (*Client)(nil)

// NewClient creates a new Tomorrow.io client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrentWeather fetches realtime weather for coordinates.
func (c *Client) GetCurrentWeather(ctx context.Context, loc weather.Location, units weather.Units) (*weather.Snapshot, error) {
	location := strconv.FormatFloat(loc.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(loc.Lon, 'f', 6, 64)
	snap, err := c.realtime(ctx, location, units)
	if err != nil {
		return nil, err
	}
	if snap.Location.Name == "" {
		snap.Location.Name = loc.Name
	}
	return snap, nil
}

// GetCurrentWeatherByCity fetches realtime weather for a place name.
func (c *Client) GetCurrentWeatherByCity(ctx context.Context, city string, units weather.Units) (*weather.Snapshot, error) {
	return c.realtime(ctx, city, units)
}

func (c *Client) realtime(ctx context.Context, location string, units weather.Units) (*weather.Snapshot, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("location", location)
	q.Set("units", string(units))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather/realtime?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", weather.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, weather.ErrUnauthorized
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, weather.ErrRateLimited
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		c.logger.Debug().Str("location", location).Int("status", resp.StatusCode).Msg("location rejected by provider")
		return nil, weather.ErrLocationNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status code: %d", weather.ErrProviderUnavailable, resp.StatusCode)
	}

	var body realtimeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", weather.ErrProviderUnavailable, err)
	}

	return body.toSnapshot(units), nil
}

// Tomorrow.io API response structures.

type realtimeResponse struct {
	Data struct {
		Time   time.Time `json:"time"`
		Values values    `json:"values"`
	} `json:"data"`
	Location struct {
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
		Name string  `json:"name"`
	} `json:"location"`
}

type values struct {
	Temperature              float64  `json:"temperature"`
	TemperatureApparent      float64  `json:"temperatureApparent"`
	TemperatureMin           *float64 `json:"temperatureMin"`
	TemperatureMax           *float64 `json:"temperatureMax"`
	WindSpeed                float64  `json:"windSpeed"`
	WindDirection            float64  `json:"windDirection"`
	Humidity                 float64  `json:"humidity"`
	PrecipitationProbability float64  `json:"precipitationProbability"`
	PrecipitationType        float64  `json:"precipitationType"`
	RainIntensity            float64  `json:"rainIntensity"`
	SnowIntensity            float64  `json:"snowIntensity"`
	CloudCover               float64  `json:"cloudCover"`
	Visibility               float64  `json:"visibility"`
	PressureSurfaceLevel     float64  `json:"pressureSurfaceLevel"`
	UVIndex                  float64  `json:"uvIndex"`
	WeatherCode              float64  `json:"weatherCode"`
}

func (r *realtimeResponse) toSnapshot(units weather.Units) *weather.Snapshot {
	v := r.Data.Values
	observedAt := r.Data.Time
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	return &weather.Snapshot{
		Temperature:              v.Temperature,
		TemperatureApparent:      v.TemperatureApparent,
		TemperatureMin:           v.TemperatureMin,
		TemperatureMax:           v.TemperatureMax,
		WindSpeed:                v.WindSpeed,
		WindDirection:            v.WindDirection,
		Humidity:                 v.Humidity,
		PrecipitationProbability: v.PrecipitationProbability,
		PrecipitationType:        v.PrecipitationType,
		RainIntensity:            v.RainIntensity,
		SnowIntensity:            v.SnowIntensity,
		CloudCover:               v.CloudCover,
		Visibility:               v.Visibility,
		PressureSurfaceLevel:     v.PressureSurfaceLevel,
		UVIndex:                  v.UVIndex,
		WeatherCode:              v.WeatherCode,
		Location: weather.Location{
			Lat:  r.Location.Lat,
			Lon:  r.Location.Lon,
			Name: r.Location.Name,
		},
		Units:      units,
		ObservedAt: observedAt,
	}
}
