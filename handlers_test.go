package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHandlerConfig wires an apiConfig around a stub weather service with
// in-memory preferences and history, the way config() does for production.
func newHandlerConfig(t *testing.T, service WeatherService) *apiConfig {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()
	storage := newMemStorage()

	cfg := &apiConfig{
		weatherService:  service,
		history:         &fakeHistory{},
		themePref:       NewThemePreference(ctx, storage, nil, logger),
		unitPref:        NewUnitPreference(ctx, storage, logger),
		refreshInterval: 10 * time.Minute,
		devMode:         true,
		logger:          logger,
	}
	cfg.store = NewWeatherStore(service, logger, WeatherStoreOptions{History: cfg.history})
	return cfg
}

func successfulStubService() *stubWeatherService {
	return &stubWeatherService{
		currentCity: func(ctx context.Context, cityName string) (WeatherSnapshot, error) {
			return testSnapshot(cityName, "GB", 15.0), nil
		},
		currentCoords: func(ctx context.Context, coords Coordinates) (WeatherSnapshot, error) {
			snap := testSnapshot("London", "GB", 15.0)
			snap.Coords = coords
			return snap, nil
		},
		forecast: func(ctx context.Context, coords Coordinates) (ForecastSnapshot, error) {
			return ForecastSnapshot{
				CityName: "London",
				Entries:  []ForecastEntry{{Timestamp: time.Unix(1700030000, 0).UTC(), Temperature: 14.1, Condition: "Rain"}},
			}, nil
		},
		search: func(ctx context.Context, query string, limit int) ([]CitySuggestion, error) {
			return []CitySuggestion{{Name: "London", CountryCode: "GB", Latitude: 51.5073, Longitude: -0.1277}}, nil
		},
	}
}

func decodeDashboard(t *testing.T, rr *httptest.ResponseRecorder) DashboardResponse {
	t.Helper()
	var resp DashboardResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	return resp
}

func TestHandlerFetch_ByCity(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodPost, "/api/fetch", strings.NewReader(`{"city": "London"}`))
	rr := httptest.NewRecorder()
	cfg.handlerFetch(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeDashboard(t, rr)
	assert.Equal(t, "success", resp.Phase)
	require.NotNil(t, resp.Weather)
	assert.Equal(t, "London", resp.Weather.CityName)
	assert.Equal(t, 15, resp.Weather.Temperature)
	assert.Equal(t, "°C", resp.Weather.Unit)
	require.Len(t, resp.Forecast, 1)
	assert.Equal(t, 14, resp.Forecast[0].Temperature)
	assert.NotEmpty(t, resp.LastFetch)
}

func TestHandlerFetch_ByCoordinates(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodPost, "/api/fetch", strings.NewReader(`{"lat": 51.51, "lon": -0.13}`))
	rr := httptest.NewRecorder()
	cfg.handlerFetch(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeDashboard(t, rr)
	assert.Equal(t, "success", resp.Phase)
	require.NotNil(t, resp.Weather)
	assert.InDelta(t, 51.51, resp.Weather.Latitude, 0.0001)
}

func TestHandlerFetch_RejectsEmptyBody(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodPost, "/api/fetch", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()
	cfg.handlerFetch(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerFetch_RejectsWrongMethod(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodGet, "/api/fetch", nil)
	rr := httptest.NewRecorder()
	cfg.handlerFetch(rr, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

// Temperatures are converted at the rendering boundary: the same stored
// Celsius snapshot renders as Fahrenheit after the preference flips.
func TestHandlerDashboard_RespectsUnitPreference(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())
	cfg.store.FetchByCity(context.Background(), "London")

	require.NoError(t, cfg.unitPref.Set(context.Background(), string(UnitImperial)))

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rr := httptest.NewRecorder()
	cfg.handlerDashboard(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeDashboard(t, rr)
	require.NotNil(t, resp.Weather)
	assert.Equal(t, 59, resp.Weather.Temperature)
	assert.Equal(t, "°F", resp.Weather.Unit)
}

func TestHandlerDashboard_AttachesKeyStatusOnAuthError(t *testing.T) {
	service := &stubWeatherService{
		currentCity: func(ctx context.Context, cityName string) (WeatherSnapshot, error) {
			return WeatherSnapshot{}, &APIError{StatusCode: 401, Kind: ErrKindAuth, Message: msgKeyInvalid}
		},
	}
	cfg := newHandlerConfig(t, service)
	cfg.store.FetchByCity(context.Background(), "London")

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	rr := httptest.NewRecorder()
	cfg.handlerDashboard(rr, req)

	resp := decodeDashboard(t, rr)
	assert.Equal(t, "error", resp.Phase)
	assert.Equal(t, msgKeyInvalid, resp.Error)
	require.NotNil(t, resp.KeyStatus)
	assert.Equal(t, KeyStatusInvalid, resp.KeyStatus.Status)
}

func TestHandlerSearch(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=Lon", nil)
	rr := httptest.NewRecorder()
	cfg.handlerSearch(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Suggestions []CitySuggestion `json:"suggestions"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "London", resp.Suggestions[0].Name)
}

func TestHandlerLocate_WithoutLocator(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodPost, "/api/locate", nil)
	rr := httptest.NewRecorder()
	cfg.handlerLocate(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decodeDashboard(t, rr)
	assert.Equal(t, "error", resp.Phase)
	assert.Equal(t, msgGeolocationUnsupported, resp.Error)
}

func TestHandlerPreferences_Get(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodGet, "/api/preferences", nil)
	rr := httptest.NewRecorder()
	cfg.handlerPreferences(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp PreferencesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, ThemeLight, resp.Theme)
	assert.Equal(t, string(UnitMetric), resp.TemperatureUnit)
	assert.Equal(t, "°C", resp.UnitSymbol)
	assert.Equal(t, "Celsius", resp.UnitLabel)
}

func TestHandlerPreferences_Put(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	body := `{"theme": "dark", "temperature_unit": "imperial"}`
	req := httptest.NewRequest(http.MethodPut, "/api/preferences", strings.NewReader(body))
	rr := httptest.NewRecorder()
	cfg.handlerPreferences(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp PreferencesResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, ThemeDark, resp.Theme)
	assert.Equal(t, string(UnitImperial), resp.TemperatureUnit)
	assert.Equal(t, "Fahrenheit", resp.UnitLabel)
}

func TestHandlerPreferences_RejectsInvalidValues(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodPut, "/api/preferences", strings.NewReader(`{"theme": "sepia"}`))
	rr := httptest.NewRecorder()
	cfg.handlerPreferences(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, ThemeLight, cfg.themePref.Get())
}

func TestHandlerAPIStatus(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodGet, "/api/apistatus", nil)
	rr := httptest.NewRecorder()
	cfg.handlerAPIStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var report KeyStatusReport
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	assert.Equal(t, KeyStatusActive, report.Status)
}

func TestHandlerHistory(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())
	cfg.store.FetchByCity(context.Background(), "London")

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rr := httptest.NewRecorder()
	cfg.handlerHistory(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var entries []LocationHistoryEntry
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "London", entries[0].CityName)
}

func TestHandlerHistory_EmptyIsAnArray(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rr := httptest.NewRecorder()
	cfg.handlerHistory(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestHandlerConfig(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	rr := httptest.NewRecorder()
	cfg.handlerConfig(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp ConfigResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.True(t, resp.DevMode)
	assert.Equal(t, "10m0s", resp.RefreshInterval)
}

func TestHandlerReset(t *testing.T) {
	cfg := newHandlerConfig(t, successfulStubService())
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cfg.cache = NewRedisCache(client)

	require.NoError(t, cfg.cache.Set(context.Background(), "currentweather:51.51:-0.13", "payload", time.Minute))
	cfg.store.FetchByCity(context.Background(), "London")

	req := httptest.NewRequest(http.MethodPost, "/dev/reset", nil)
	rr := httptest.NewRecorder()
	cfg.handlerReset(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	entries, err := cfg.history.ListRecent(context.Background(), historyListLimit)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, err = cfg.cache.Get(context.Background(), "currentweather:51.51:-0.13")
	assert.ErrorIs(t, err, redis.Nil)
}
