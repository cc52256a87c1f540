package main

import "time"

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// WeatherSnapshot is the immutable result of one successful current-weather
// fetch. Temperatures are stored in Celsius; conversion for display happens
// downstream in the unit helpers, never upstream.
type WeatherSnapshot struct {
	CityName    string
	CountryCode string
	Coords      Coordinates
	Temperature float64
	FeelsLike   float64
	TempMin     float64
	TempMax     float64
	Humidity    int
	Pressure    int
	WindSpeed   float64
	Visibility  int
	Sunrise     time.Time
	Sunset      time.Time
	ConditionID int
	Condition   string
	Description string
	Icon        string
	FetchedAt   time.Time
}

// ForecastEntry is a single timestamped slot of the 5-day/3-hour forecast.
type ForecastEntry struct {
	Timestamp   time.Time
	Temperature float64
	FeelsLike   float64
	TempMin     float64
	TempMax     float64
	Humidity    int
	Pressure    int
	Condition   string
	Description string
	Icon        string
}

// ForecastSnapshot is the ordered result of one successful forecast fetch.
// It is secondary data: a failed forecast fetch never invalidates a
// present WeatherSnapshot.
type ForecastSnapshot struct {
	CityName  string
	Entries   []ForecastEntry
	FetchedAt time.Time
}

// CitySuggestion is one geocoding search result. Suggestions are ephemeral
// and replaced wholesale on every new search.
type CitySuggestion struct {
	Name        string  `json:"name"`
	State       string  `json:"state,omitempty"`
	CountryCode string  `json:"country"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
}

// The ...JSON structs below are the shapes served to clients. Temperatures
// are rendered in the caller's preferred unit by the handlers.

type CurrentWeatherJSON struct {
	CityName    string  `json:"city_name"`
	CountryCode string  `json:"country_code"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Temperature int     `json:"temperature"`
	FeelsLike   int     `json:"feels_like"`
	TempMin     int     `json:"temp_min"`
	TempMax     int     `json:"temp_max"`
	Unit        string  `json:"unit"`
	Humidity    int     `json:"humidity"`
	Pressure    int     `json:"pressure_hpa"`
	WindSpeed   float64 `json:"wind_speed"`
	Visibility  int     `json:"visibility_m"`
	Sunrise     string  `json:"sunrise"`
	Sunset      string  `json:"sunset"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
	FetchedAt   string  `json:"fetched_at"`
}

type ForecastEntryJSON struct {
	Timestamp   string `json:"timestamp"`
	Temperature int    `json:"temperature"`
	TempMin     int    `json:"temp_min"`
	TempMax     int    `json:"temp_max"`
	Humidity    int    `json:"humidity"`
	Condition   string `json:"condition"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type DashboardResponse struct {
	Phase       string              `json:"phase"`
	Error       string              `json:"error,omitempty"`
	Weather     *CurrentWeatherJSON `json:"weather,omitempty"`
	Forecast    []ForecastEntryJSON `json:"forecast,omitempty"`
	Suggestions []CitySuggestion    `json:"suggestions"`
	LastFetch   string              `json:"last_fetch,omitempty"`
	KeyStatus   *KeyStatusReport    `json:"key_status,omitempty"`
}

type PreferencesResponse struct {
	Theme           string `json:"theme"`
	TemperatureUnit string `json:"temperature_unit"`
	UnitSymbol      string `json:"unit_symbol"`
	UnitLabel       string `json:"unit_label"`
}

type ConfigResponse struct {
	DevMode         bool   `json:"dev_mode"`
	RefreshInterval string `json:"refresh_interval"`
}
