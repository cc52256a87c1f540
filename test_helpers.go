package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// This file contains shared helpers for the test suite: a silent logger,
// an in-memory preference storage, a scriptable WeatherService stub and an
// in-memory history store.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStorage is an in-memory PreferenceStorage.
type memStorage struct {
	mu     sync.Mutex
	values map[string]string
	saves  int
}

func newMemStorage() *memStorage {
	return &memStorage{values: make(map[string]string)}
}

func (m *memStorage) Load(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.values[key]
	if !ok {
		return "", ErrPreferenceNotFound
	}
	return val, nil
}

func (m *memStorage) Save(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.saves++
	return nil
}

func (m *memStorage) saved(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.values[key]
	return val, ok
}

// stubWeatherService is a scriptable WeatherService. Unset funcs fail the
// call with a generic upstream error; call counts are tracked per method.
type stubWeatherService struct {
	mu            sync.Mutex
	currentCoords func(ctx context.Context, coords Coordinates) (WeatherSnapshot, error)
	currentCity   func(ctx context.Context, cityName string) (WeatherSnapshot, error)
	forecast      func(ctx context.Context, coords Coordinates) (ForecastSnapshot, error)
	search        func(ctx context.Context, query string, limit int) ([]CitySuggestion, error)

	currentCoordsCalls int
	currentCityCalls   int
	forecastCalls      int
	searchCalls        int
}

func (s *stubWeatherService) CurrentByCoordinates(ctx context.Context, coords Coordinates) (WeatherSnapshot, error) {
	s.mu.Lock()
	s.currentCoordsCalls++
	fn := s.currentCoords
	s.mu.Unlock()
	if fn == nil {
		return WeatherSnapshot{}, &APIError{StatusCode: 500, Kind: ErrKindUpstream, Message: msgFetchFailed}
	}
	return fn(ctx, coords)
}

func (s *stubWeatherService) CurrentByCity(ctx context.Context, cityName string) (WeatherSnapshot, error) {
	s.mu.Lock()
	s.currentCityCalls++
	fn := s.currentCity
	s.mu.Unlock()
	if fn == nil {
		return WeatherSnapshot{}, &APIError{StatusCode: 500, Kind: ErrKindUpstream, Message: msgFetchFailed}
	}
	return fn(ctx, cityName)
}

func (s *stubWeatherService) ForecastByCoordinates(ctx context.Context, coords Coordinates) (ForecastSnapshot, error) {
	s.mu.Lock()
	s.forecastCalls++
	fn := s.forecast
	s.mu.Unlock()
	if fn == nil {
		return ForecastSnapshot{}, &APIError{StatusCode: 500, Kind: ErrKindUpstream, Message: msgFetchFailed}
	}
	return fn(ctx, coords)
}

func (s *stubWeatherService) SearchCities(ctx context.Context, query string, limit int) ([]CitySuggestion, error) {
	s.mu.Lock()
	s.searchCalls++
	fn := s.search
	s.mu.Unlock()
	if fn == nil {
		return nil, &APIError{StatusCode: 500, Kind: ErrKindUpstream, Message: msgFetchFailed}
	}
	return fn(ctx, query, limit)
}

func (s *stubWeatherService) calls() (coords, city, forecast, search int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentCoordsCalls, s.currentCityCalls, s.forecastCalls, s.searchCalls
}

// fakeHistory is an in-memory historyStore.
type fakeHistory struct {
	mu       sync.Mutex
	entries  []LocationHistoryEntry
	records  int
	failWith error
}

func (f *fakeHistory) RecordLocation(ctx context.Context, snap WeatherSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.records++
	f.entries = append(f.entries, LocationHistoryEntry{
		CityName:    snap.CityName,
		CountryCode: snap.CountryCode,
		Latitude:    snap.Coords.Latitude,
		Longitude:   snap.Coords.Longitude,
		LastFetched: snap.FetchedAt,
	})
	return nil
}

func (f *fakeHistory) ListRecent(ctx context.Context, limit int) ([]LocationHistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > len(f.entries) {
		limit = len(f.entries)
	}
	return append([]LocationHistoryEntry(nil), f.entries[:limit]...), nil
}

func (f *fakeHistory) DeleteAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	return nil
}

// testSnapshot builds a plausible metric snapshot for a city.
func testSnapshot(city, country string, temp float64) WeatherSnapshot {
	return WeatherSnapshot{
		CityName:    city,
		CountryCode: country,
		Coords:      Coordinates{Latitude: 51.51, Longitude: -0.13},
		Temperature: temp,
		FeelsLike:   temp - 1,
		TempMin:     temp - 3,
		TempMax:     temp + 2,
		Humidity:    60,
		Pressure:    1012,
		WindSpeed:   3.4,
		Visibility:  10000,
		Sunrise:     time.Unix(1700000000, 0).UTC(),
		Sunset:      time.Unix(1700040000, 0).UTC(),
		ConditionID: 800,
		Condition:   "Clear",
		Description: "clear sky",
		Icon:        "01d",
		FetchedAt:   time.Unix(1700020000, 0).UTC(),
	}
}
