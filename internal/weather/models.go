package weather

import (
	"errors"
	"time"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrUnauthorized        = errors.New("weather provider rejected credentials")
	ErrRateLimited         = errors.New("weather provider rate limit exceeded")
	ErrLocationNotFound    = errors.New("location not found")
)

// Units selects the measurement system of a snapshot.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// Valid reports whether u is a supported unit system.
func (u Units) Valid() bool {
	return u == UnitsMetric || u == UnitsImperial
}

// ParseUnits returns the unit system named by s; empty selects metric.
func ParseUnits(s string) (Units, error) {
	if s == "" {
		return UnitsMetric, nil
	}
	u := Units(s)
	if !u.Valid() {
		return "", errors.New("units must be metric or imperial")
	}
	return u, nil
}

// Location is a point on the globe with an optional display name.
type Location struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Name string  `json:"name,omitempty"`
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	return validateCoordinates(l.Lat, l.Lon)
}

// Snapshot is the current weather at a location.
// Temperatures are °C or °F, wind speed m/s or mph and visibility km or mi
// depending on Units.
type Snapshot struct {
	Temperature              float64  `json:"temperature"`
	TemperatureApparent      float64  `json:"temperatureApparent"`
	TemperatureMin           *float64 `json:"temperatureMin,omitempty"`
	TemperatureMax           *float64 `json:"temperatureMax,omitempty"`
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

	Location   Location  `json:"location"`
	Units      Units     `json:"units"`
	ObservedAt time.Time `json:"observedAt"`
}

// Parameter names one numeric metric of a Snapshot.
type Parameter string

const (
	ParamTemperature              Parameter = "temperature"
	ParamTemperatureApparent      Parameter = "temperatureApparent"
	ParamTemperatureMin           Parameter = "temperatureMin"
	ParamTemperatureMax           Parameter = "temperatureMax"
	ParamWindSpeed                Parameter = "windSpeed"
	ParamWindDirection            Parameter = "windDirection"
	ParamHumidity                 Parameter = "humidity"
	ParamPrecipitationProbability Parameter = "precipitationProbability"
	ParamPrecipitationType        Parameter = "precipitationType"
	ParamRainIntensity            Parameter = "rainIntensity"
	ParamSnowIntensity            Parameter = "snowIntensity"
	ParamCloudCover               Parameter = "cloudCover"
	ParamVisibility               Parameter = "visibility"
	ParamPressureSurfaceLevel     Parameter = "pressureSurfaceLevel"
	ParamUVIndex                  Parameter = "uvIndex"
	ParamWeatherCode              Parameter = "weatherCode"
)

// Parameters lists every supported parameter in display order.
var Parameters = []Parameter{
	ParamTemperature,
	ParamTemperatureApparent,
	ParamTemperatureMin,
	ParamTemperatureMax,
	ParamWindSpeed,
	ParamWindDirection,
	ParamHumidity,
	ParamPrecipitationProbability,
	ParamPrecipitationType,
	ParamRainIntensity,
	ParamSnowIntensity,
	ParamCloudCover,
	ParamVisibility,
	ParamPressureSurfaceLevel,
	ParamUVIndex,
	ParamWeatherCode,
}

// Valid reports whether p is one of Parameters.
func (p Parameter) Valid() bool {
	for _, known := range Parameters {
		if p == known {
			return true
		}
	}
	return false
}

// Value returns the metric named by p. The second result is false when the
// parameter is unknown or the snapshot does not carry it.
func (s *Snapshot) Value(p Parameter) (float64, bool) {
	switch p {
	case ParamTemperature:
		return s.Temperature, true
	case ParamTemperatureApparent:
		return s.TemperatureApparent, true
	case ParamTemperatureMin:
		if s.TemperatureMin == nil {
			return 0, false
		}
		return *s.TemperatureMin, true
	case ParamTemperatureMax:
		if s.TemperatureMax == nil {
			return 0, false
		}
		return *s.TemperatureMax, true
	case ParamWindSpeed:
		return s.WindSpeed, true
	case ParamWindDirection:
		return s.WindDirection, true
	case ParamHumidity:
		return s.Humidity, true
	case ParamPrecipitationProbability:
		return s.PrecipitationProbability, true
	case ParamPrecipitationType:
		return s.PrecipitationType, true
	case ParamRainIntensity:
		return s.RainIntensity, true
	case ParamSnowIntensity:
		return s.SnowIntensity, true
	case ParamCloudCover:
		return s.CloudCover, true
	case ParamVisibility:
		return s.Visibility, true
	case ParamPressureSurfaceLevel:
		return s.PressureSurfaceLevel, true
	case ParamUVIndex:
		return s.UVIndex, true
	case ParamWeatherCode:
		return s.WeatherCode, true
	default:
		return 0, false
	}
}

// Condition describes a Tomorrow.io weather code in words.
func Condition(code int) string {
	if d, ok := weatherCodes[code]; ok {
		return d
	}
	return "Unknown"
}

var weatherCodes = map[int]string{
	1000: "Clear",
	1001: "Cloudy",
	1100: "Mostly Clear",
	1101: "Partly Cloudy",
	1102: "Mostly Cloudy",
	2000: "Fog",
	2100: "Light Fog",
	4000: "Drizzle",
	4001: "Rain",
	4200: "Light Rain",
	4201: "Heavy Rain",
	5000: "Snow",
	5001: "Flurries",
	5100: "Light Snow",
	5101: "Heavy Snow",
	6000: "Freezing Drizzle",
	6001: "Freezing Rain",
	7000: "Ice Pellets",
	8000: "Thunderstorm",
}
