package models

// Weather is the response of GET /v1/weather.
type Weather struct {
	Temperature              float64      `json:"temperature"`
	TemperatureApparent      float64      `json:"temperatureApparent"`
	TemperatureMin           *float64     `json:"temperatureMin,omitempty"`
	TemperatureMax           *float64     `json:"temperatureMax,omitempty"`
	WindSpeed                float64      `json:"windSpeed"`
	WindDirection            float64      `json:"windDirection"`
	Humidity                 float64      `json:"humidity"`
	PrecipitationProbability float64      `json:"precipitationProbability"`
	PrecipitationType        float64      `json:"precipitationType"`
	RainIntensity            float64      `json:"rainIntensity"`
	SnowIntensity            float64      `json:"snowIntensity"`
	CloudCover               float64      `json:"cloudCover"`
	Visibility               float64      `json:"visibility"`
	PressureSurfaceLevel     float64      `json:"pressureSurfaceLevel"`
	UVIndex                  float64      `json:"uvIndex"`
	WeatherCode              float64      `json:"weatherCode"`
	Condition                string       `json:"condition"`
	Location                 LocationView `json:"location"`
	Units                    string       `json:"units"`
	ObservedAt               Timestamp    `json:"observedAt"`
}
