package main

import (
	"encoding/json"
	"net/http"
	"time"
)

// This file contains the HTTP handlers for the dashboard API. Each handler
// validates the request method, delegates to the store or one of the
// preference/history components, and writes a JSON response. State mutation
// happens only inside the store; handlers just trigger operations and
// render the resulting view.

// renderDashboard projects the store view into the client-facing shape,
// converting temperatures into the current unit preference. When the error
// message carries authentication markers, an API-key probe result is
// attached for troubleshooting.
func (cfg *apiConfig) renderDashboard(r *http.Request) DashboardResponse {
	view := cfg.store.View()
	unit := TemperatureUnit(cfg.unitPref.Get())

	response := DashboardResponse{
		Phase:       view.Phase.String(),
		Error:       view.Err,
		Suggestions: view.Suggestions,
	}
	if !view.LastFetch.IsZero() {
		response.LastFetch = view.LastFetch.UTC().Format(time.RFC3339)
	}

	if view.Weather != nil {
		w := view.Weather
		response.Weather = &CurrentWeatherJSON{
			CityName:    w.CityName,
			CountryCode: w.CountryCode,
			Latitude:    w.Coords.Latitude,
			Longitude:   w.Coords.Longitude,
			Temperature: ConvertTemperature(w.Temperature, UnitMetric, unit),
			FeelsLike:   ConvertTemperature(w.FeelsLike, UnitMetric, unit),
			TempMin:     ConvertTemperature(w.TempMin, UnitMetric, unit),
			TempMax:     ConvertTemperature(w.TempMax, UnitMetric, unit),
			Unit:        TemperatureSymbol(unit),
			Humidity:    w.Humidity,
			Pressure:    w.Pressure,
			WindSpeed:   w.WindSpeed,
			Visibility:  w.Visibility,
			Sunrise:     w.Sunrise.UTC().Format(time.RFC3339),
			Sunset:      w.Sunset.UTC().Format(time.RFC3339),
			Condition:   w.Condition,
			Description: w.Description,
			Icon:        w.Icon,
			FetchedAt:   w.FetchedAt.UTC().Format(time.RFC3339),
		}
	}

	if view.Forecast != nil {
		response.Forecast = make([]ForecastEntryJSON, len(view.Forecast.Entries))
		for i, e := range view.Forecast.Entries {
			response.Forecast[i] = ForecastEntryJSON{
				Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
				Temperature: ConvertTemperature(e.Temperature, UnitMetric, unit),
				TempMin:     ConvertTemperature(e.TempMin, UnitMetric, unit),
				TempMax:     ConvertTemperature(e.TempMax, UnitMetric, unit),
				Humidity:    e.Humidity,
				Condition:   e.Condition,
				Description: e.Description,
				Icon:        e.Icon,
			}
		}
	}

	if view.Err != "" && shouldAutoCheckKey(view.Err) {
		report := cfg.CheckAPIKey(r.Context())
		response.KeyStatus = &report
	}

	return response
}

func (cfg *apiConfig) handlerDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}
	cfg.respondWithJSON(w, http.StatusOK, cfg.renderDashboard(r))
}

// handlerFetch triggers a fetch cycle for a city name or a coordinate pair
// and responds with the settled dashboard state.
func (cfg *apiConfig) handlerFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}

	var body struct {
		City string   `json:"city"`
		Lat  *float64 `json:"lat"`
		Lon  *float64 `json:"lon"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		cfg.respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	switch {
	case body.City != "":
		cfg.logger.Debug("fetch request", "city", body.City)
		cfg.store.FetchByCity(r.Context(), body.City)
	case body.Lat != nil && body.Lon != nil:
		cfg.logger.Debug("fetch request", "lat", *body.Lat, "lon", *body.Lon)
		cfg.store.FetchByCoordinates(r.Context(), Coordinates{Latitude: *body.Lat, Longitude: *body.Lon})
	default:
		cfg.respondWithError(w, http.StatusBadRequest, "Provide either a city or a lat/lon pair", nil)
		return
	}

	cfg.respondWithJSON(w, http.StatusOK, cfg.renderDashboard(r))
}

// handlerLocate triggers a geolocation-driven fetch cycle.
func (cfg *apiConfig) handlerLocate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}
	cfg.store.UseCurrentLocation(r.Context())
	cfg.respondWithJSON(w, http.StatusOK, cfg.renderDashboard(r))
}

// handlerSearch runs a city search and returns the suggestion list.
func (cfg *apiConfig) handlerSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}

	query := r.URL.Query().Get("q")
	cfg.store.SearchCities(r.Context(), query)

	type searchResponse struct {
		Suggestions []CitySuggestion `json:"suggestions"`
	}
	cfg.respondWithJSON(w, http.StatusOK, searchResponse{
		Suggestions: cfg.store.Suggestions(),
	})
}

func (cfg *apiConfig) preferencesResponse() PreferencesResponse {
	unit := TemperatureUnit(cfg.unitPref.Get())
	return PreferencesResponse{
		Theme:           cfg.themePref.Get(),
		TemperatureUnit: string(unit),
		UnitSymbol:      TemperatureSymbol(unit),
		UnitLabel:       UnitLabel(unit),
	}
}

// handlerPreferences reads or updates the persisted theme and unit
// preferences. Updates validate against the closed enums and write through
// to storage before responding.
func (cfg *apiConfig) handlerPreferences(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cfg.respondWithJSON(w, http.StatusOK, cfg.preferencesResponse())
	case http.MethodPut:
		var body struct {
			Theme           string `json:"theme"`
			TemperatureUnit string `json:"temperature_unit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			cfg.respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		if body.Theme != "" {
			if err := cfg.themePref.Set(r.Context(), body.Theme); err != nil {
				cfg.respondWithError(w, http.StatusBadRequest, "Invalid theme value", err)
				return
			}
		}
		if body.TemperatureUnit != "" {
			if err := cfg.unitPref.Set(r.Context(), body.TemperatureUnit); err != nil {
				cfg.respondWithError(w, http.StatusBadRequest, "Invalid temperature unit value", err)
				return
			}
		}
		cfg.respondWithJSON(w, http.StatusOK, cfg.preferencesResponse())
	default:
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
	}
}

// handlerAPIStatus runs the API-key probe on demand.
func (cfg *apiConfig) handlerAPIStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}
	cfg.respondWithJSON(w, http.StatusOK, cfg.CheckAPIKey(r.Context()))
}

// handlerHistory lists the most recently fetched locations.
func (cfg *apiConfig) handlerHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}

	entries, err := cfg.history.ListRecent(r.Context(), historyListLimit)
	if err != nil {
		cfg.respondWithError(w, http.StatusInternalServerError, "Error reading location history", err)
		return
	}
	if entries == nil {
		entries = []LocationHistoryEntry{}
	}
	cfg.respondWithJSON(w, http.StatusOK, entries)
}

// handlerConfig provides client-side applications with necessary configuration.
func (cfg *apiConfig) handlerConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}

	cfg.respondWithJSON(w, http.StatusOK, ConfigResponse{
		DevMode:         cfg.devMode,
		RefreshInterval: cfg.refreshInterval.String(),
	})
}

// handlerReset is a development-only endpoint that wipes the cache and the
// location history.
func (cfg *apiConfig) handlerReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}
	cfg.logger.Debug("reset request received")

	ctx := r.Context()
	if err := cfg.history.DeleteAll(ctx); err != nil {
		cfg.respondWithError(w, http.StatusInternalServerError, "Failed to clear location history", err)
		return
	}
	if err := cfg.cache.Flush(ctx); err != nil {
		cfg.respondWithError(w, http.StatusInternalServerError, "Failed to flush cache", err)
		return
	}

	cfg.respondWithJSON(w, http.StatusOK, map[string]string{"status": "cache and history reset"})
}
