package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// This file is the gateway to the OpenWeatherMap service. It owns the three
// upstream endpoints (current weather, 5-day/3-hour forecast, geocoding
// search), always requests metric units, and classifies every failure into
// an APIError whose message is what the rest of the application shows to
// the user. The gateway sits behind the WeatherService interface so the
// store can be tested against a stub.

// Classified user-facing messages. The 401 message carries the activation
// hint because new OpenWeatherMap keys can take up to two hours to go live.
const (
	msgKeyInvalid       = "API key is invalid or not activated yet. New API keys can take up to 2 hours to become active."
	msgRateLimited      = "Too many requests. Please wait a moment and try again."
	msgLocationNotFound = "Location not found. Please try a different location."
	msgFetchFailed      = "Failed to fetch weather data"
	msgConnectivity     = "Could not connect to the weather service. Please check your connection and try again."
)

// ErrorKind partitions gateway failures for callers that need more than
// the message (the API-status probe does).
type ErrorKind int

const (
	ErrKindAuth ErrorKind = iota
	ErrKindRateLimited
	ErrKindNotFound
	ErrKindUpstream
	ErrKindTransport
)

// APIError is a classified upstream failure.
type APIError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// WeatherService abstracts the upstream weather/geocoding provider.
type WeatherService interface {
	CurrentByCoordinates(ctx context.Context, coords Coordinates) (WeatherSnapshot, error)
	CurrentByCity(ctx context.Context, cityName string) (WeatherSnapshot, error)
	ForecastByCoordinates(ctx context.Context, coords Coordinates) (ForecastSnapshot, error)
	SearchCities(ctx context.Context, query string, limit int) ([]CitySuggestion, error)
}

// OWMService implements WeatherService against OpenWeatherMap.
type OWMService struct {
	apiKey     string
	weatherURL string
	geocodeURL string
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *gobreaker.CircuitBreaker
}

func NewOWMService(apiKey, weatherURL, geocodeURL string, httpClient *http.Client, logger *slog.Logger) *OWMService {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OWMService{
		apiKey:     apiKey,
		weatherURL: weatherURL,
		geocodeURL: geocodeURL,
		httpClient: httpClient,
		logger:     logger,
		breaker:    breaker,
	}
}

func (s *OWMService) CurrentByCoordinates(ctx context.Context, coords Coordinates) (WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))

	body, err := s.performRequest(ctx, "weather", s.weatherURL+"/weather", params, true)
	if err != nil {
		return WeatherSnapshot{}, err
	}
	defer body.Close()
	return ParseCurrentWeatherOWM(body)
}

func (s *OWMService) CurrentByCity(ctx context.Context, cityName string) (WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("q", cityName)

	body, err := s.performRequest(ctx, "weather", s.weatherURL+"/weather", params, true)
	if err != nil {
		return WeatherSnapshot{}, err
	}
	defer body.Close()
	return ParseCurrentWeatherOWM(body)
}

func (s *OWMService) ForecastByCoordinates(ctx context.Context, coords Coordinates) (ForecastSnapshot, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))

	body, err := s.performRequest(ctx, "forecast", s.weatherURL+"/forecast", params, true)
	if err != nil {
		return ForecastSnapshot{}, err
	}
	defer body.Close()
	return ParseForecastOWM(body)
}

func (s *OWMService) SearchCities(ctx context.Context, query string, limit int) ([]CitySuggestion, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))

	body, err := s.performRequest(ctx, "geocoding", s.geocodeURL+"/direct", params, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseCitySuggestionsOWM(body)
}

// performRequest issues one GET through the circuit breaker and returns
// the response body on 2xx. Every other outcome comes back as *APIError.
// weatherEndpoint selects the 404 classification, which only applies to
// the weather and forecast endpoints.
func (s *OWMService) performRequest(ctx context.Context, endpoint, rawURL string, params url.Values, weatherEndpoint bool) (io.ReadCloser, error) {
	reqURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s URL: %w", endpoint, err)
	}
	q := reqURL.Query()
	q.Set("appid", s.apiKey)
	if weatherEndpoint {
		q.Set("units", "metric")
	}
	for key, values := range params {
		q.Set(key, values[0])
	}
	reqURL.RawQuery = q.Encode()

	result, err := s.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
		if err != nil {
			return nil, err
		}
		return s.httpClient.Do(req)
	})
	if err != nil {
		upstreamRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			s.logger.Warn("circuit breaker rejected upstream request", "endpoint", endpoint, "error", err)
		}
		return nil, &APIError{Kind: ErrKindTransport, Message: msgConnectivity}
	}
	resp := result.(*http.Response)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		upstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return nil, classifyStatus(resp.StatusCode, resp.Body, weatherEndpoint)
	}

	upstreamRequestsTotal.WithLabelValues(endpoint, "ok").Inc()
	return resp.Body, nil
}

// classifyStatus implements the uniform status table: 401 and 429 are
// always the fixed messages, 404 counts as "location not found" on the
// weather endpoints, and anything else passes the upstream message through
// when the error body parses as structured data.
func classifyStatus(status int, body io.Reader, weatherEndpoint bool) *APIError {
	switch {
	case status == http.StatusUnauthorized:
		return &APIError{StatusCode: status, Kind: ErrKindAuth, Message: msgKeyInvalid}
	case status == http.StatusTooManyRequests:
		return &APIError{StatusCode: status, Kind: ErrKindRateLimited, Message: msgRateLimited}
	case status == http.StatusNotFound && weatherEndpoint:
		return &APIError{StatusCode: status, Kind: ErrKindNotFound, Message: msgLocationNotFound}
	}

	message := msgFetchFailed
	var errBody struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(body).Decode(&errBody); err == nil && errBody.Message != "" {
		message = errBody.Message
	}
	return &APIError{StatusCode: status, Kind: ErrKindUpstream, Message: message}
}
