package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// This file contains the weather data store, the state machine at the core
// of the dashboard. All shared state lives in a single storeState value and
// every mutation flows through the pure transition function over a closed
// event set. The store's operations call the gateway, classify what comes
// back, and apply the result as an event.
//
// Overlapping fetch cycles are resolved with a generation counter: every
// fetch* call starts a new generation, and a settled result carrying a
// stale generation is dropped instead of overwriting newer state. (The
// alternative, last-write-wins, is what a naive implementation does; the
// counter makes the race impossible rather than merely unlikely.)

// defaultCityName is fetched exactly once on activation, before any user
// interaction.
const defaultCityName = "Buenos Aires"

const citySearchLimit = 5

// RequestPhase tracks the primary weather+forecast fetch lifecycle.
// Transitions are linear per fetch cycle: any phase may re-enter loading,
// and loading settles into success or error.
type RequestPhase int

const (
	PhaseIdle RequestPhase = iota
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p RequestPhase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// storeState is the complete shared state of the dashboard.
type storeState struct {
	snapshot    *WeatherSnapshot
	forecast    *ForecastSnapshot
	suggestions []CitySuggestion
	position    *Coordinates
	phase       RequestPhase
	errMsg      string
	lastFetch   time.Time
}

// The closed event set. transition is the only code path that writes
// storeState.
type storeEvent interface{ isStoreEvent() }

type eventFetchStarted struct{}
type eventWeatherFetched struct{ snapshot WeatherSnapshot }
type eventForecastFetched struct{ forecast ForecastSnapshot }
type eventFetchFailed struct{ message string }
type eventErrorCleared struct{}
type eventSuggestionsReplaced struct{ suggestions []CitySuggestion }
type eventPositionFixed struct{ coords Coordinates }

func (eventFetchStarted) isStoreEvent()        {}
func (eventWeatherFetched) isStoreEvent()      {}
func (eventForecastFetched) isStoreEvent()     {}
func (eventFetchFailed) isStoreEvent()         {}
func (eventErrorCleared) isStoreEvent()        {}
func (eventSuggestionsReplaced) isStoreEvent() {}
func (eventPositionFixed) isStoreEvent()       {}

// transition applies one event to the state and returns the next state.
// It is pure: no I/O, no clock reads except the fetch timestamp carried in
// by the event's snapshot.
func transition(state storeState, event storeEvent) storeState {
	switch ev := event.(type) {
	case eventFetchStarted:
		state.phase = PhaseLoading
		state.errMsg = ""
	case eventWeatherFetched:
		snap := ev.snapshot
		state.snapshot = &snap
		state.phase = PhaseSuccess
		state.errMsg = ""
		state.lastFetch = snap.FetchedAt
	case eventForecastFetched:
		fc := ev.forecast
		state.forecast = &fc
	case eventFetchFailed:
		state.phase = PhaseError
		state.errMsg = ev.message
	case eventErrorCleared:
		state.errMsg = ""
		if state.phase == PhaseError {
			state.phase = PhaseIdle
		}
	case eventSuggestionsReplaced:
		state.suggestions = ev.suggestions
	case eventPositionFixed:
		coords := ev.coords
		state.position = &coords
	}
	return state
}

// SnapshotCache is the optional cache-aside layer consulted before the
// gateway. A nil cache means every fetch goes upstream.
type SnapshotCache interface {
	cachedSnapshot(ctx context.Context, coords Coordinates) (WeatherSnapshot, bool)
	cachedForecast(ctx context.Context, coords Coordinates) (ForecastSnapshot, bool)
	storeSnapshotInCache(ctx context.Context, snap WeatherSnapshot)
	storeForecastInCache(ctx context.Context, coords Coordinates, fc ForecastSnapshot)
}

// LocationRecorder receives every successfully fetched location.
// Recording is best-effort; failures are logged and swallowed.
type LocationRecorder interface {
	RecordLocation(ctx context.Context, snap WeatherSnapshot) error
}

// WeatherStoreOptions carries the store's optional collaborators.
type WeatherStoreOptions struct {
	Locator Geolocator
	Cache   SnapshotCache
	History LocationRecorder
}

// WeatherStore owns the dashboard state and the operations that mutate it.
type WeatherStore struct {
	mu      sync.Mutex
	state   storeState
	gen     uint64
	service WeatherService
	locator Geolocator
	cache   SnapshotCache
	history LocationRecorder
	logger  *slog.Logger
	subs    []func()
	once    sync.Once
}

func NewWeatherStore(service WeatherService, logger *slog.Logger, opts WeatherStoreOptions) *WeatherStore {
	return &WeatherStore{
		state:   storeState{phase: PhaseIdle},
		service: service,
		locator: opts.Locator,
		cache:   opts.Cache,
		history: opts.History,
		logger:  logger,
	}
}

// Activate performs the one-time default-city fetch. Safe to call more
// than once; only the first call does anything.
func (s *WeatherStore) Activate(ctx context.Context) {
	s.once.Do(func() {
		s.logger.Debug("store activation", "city", defaultCityName)
		s.FetchByCity(ctx, defaultCityName)
	})
}

// FetchByCoordinates starts a new fetch cycle for the given coordinates.
func (s *WeatherStore) FetchByCoordinates(ctx context.Context, coords Coordinates) {
	gen := s.beginFetch()
	s.runFetch(ctx, gen, func(ctx context.Context) (WeatherSnapshot, bool, error) {
		if s.cache != nil {
			if snap, ok := s.cache.cachedSnapshot(ctx, coords); ok {
				return snap, true, nil
			}
		}
		snap, err := s.service.CurrentByCoordinates(ctx, coords)
		return snap, false, err
	})
}

// FetchByCity starts a new fetch cycle resolving the location by name. The
// chained forecast fetch uses the canonical coordinates returned by the
// weather payload, not the query string.
func (s *WeatherStore) FetchByCity(ctx context.Context, cityName string) {
	gen := s.beginFetch()
	s.runFetch(ctx, gen, func(ctx context.Context) (WeatherSnapshot, bool, error) {
		snap, err := s.service.CurrentByCity(ctx, cityName)
		return snap, false, err
	})
}

// UseCurrentLocation resolves the host position and delegates to the
// coordinate fetch within the same cycle.
func (s *WeatherStore) UseCurrentLocation(ctx context.Context) {
	gen := s.beginFetch()

	if s.locator == nil {
		s.apply(gen, eventFetchFailed{message: msgGeolocationUnsupported})
		return
	}

	fixCtx, cancel := context.WithTimeout(ctx, geolocationTimeout)
	defer cancel()
	coords, err := s.locator.CurrentPosition(fixCtx)
	if err != nil {
		s.apply(gen, eventFetchFailed{message: geolocationErrorMessage(err)})
		return
	}

	s.applyAlways(eventPositionFixed{coords: coords})
	s.runFetch(ctx, gen, func(ctx context.Context) (WeatherSnapshot, bool, error) {
		if s.cache != nil {
			if snap, ok := s.cache.cachedSnapshot(ctx, coords); ok {
				return snap, true, nil
			}
		}
		snap, err := s.service.CurrentByCoordinates(ctx, coords)
		return snap, false, err
	})
}

// SearchCities replaces the suggestion list. An empty (trimmed) query
// clears it without a network call; any lookup failure clears it silently.
func (s *WeatherStore) SearchCities(ctx context.Context, query string) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		s.applyAlways(eventSuggestionsReplaced{})
		return
	}

	suggestions, err := s.service.SearchCities(ctx, trimmed, citySearchLimit)
	if err != nil {
		// City search failure is silent by design: the user sees an empty
		// suggestion list, never an error state.
		s.logger.Warn("city search failed", "query", trimmed, "error", err)
		s.applyAlways(eventSuggestionsReplaced{})
		return
	}
	s.applyAlways(eventSuggestionsReplaced{suggestions: suggestions})
}

// ClearError clears the error slot without touching other state.
func (s *WeatherStore) ClearError() {
	s.applyAlways(eventErrorCleared{})
}

// Subscribe registers a callback invoked after every applied event.
func (s *WeatherStore) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// StoreView is a copy of the store state handed to readers.
type StoreView struct {
	Phase       RequestPhase
	Err         string
	Weather     *WeatherSnapshot
	Forecast    *ForecastSnapshot
	Suggestions []CitySuggestion
	Position    *Coordinates
	LastFetch   time.Time
}

// View returns a consistent copy of the current state.
func (s *WeatherStore) View() StoreView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := StoreView{
		Phase:     s.state.phase,
		Err:       s.state.errMsg,
		LastFetch: s.state.lastFetch,
	}
	if s.state.snapshot != nil {
		snap := *s.state.snapshot
		view.Weather = &snap
	}
	if s.state.forecast != nil {
		fc := *s.state.forecast
		fc.Entries = append([]ForecastEntry(nil), s.state.forecast.Entries...)
		view.Forecast = &fc
	}
	if s.state.position != nil {
		pos := *s.state.position
		view.Position = &pos
	}
	view.Suggestions = append([]CitySuggestion(nil), s.state.suggestions...)
	return view
}

// Suggestions returns a copy of the current suggestion list.
func (s *WeatherStore) Suggestions() []CitySuggestion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CitySuggestion(nil), s.state.suggestions...)
}

// runFetch executes the primary weather fetch and, on success, chains the
// forecast fetch for the canonical coordinates. Forecast failures are
// swallowed: they are logged and leave both the request phase and any
// existing forecast untouched.
func (s *WeatherStore) runFetch(ctx context.Context, gen uint64, fetch func(context.Context) (WeatherSnapshot, bool, error)) {
	snap, fromCache, err := fetch(ctx)
	if err != nil {
		s.apply(gen, eventFetchFailed{message: classifiedMessage(err)})
		return
	}

	if !fromCache {
		if s.cache != nil {
			s.cache.storeSnapshotInCache(ctx, snap)
		}
		if s.history != nil {
			if err := s.history.RecordLocation(ctx, snap); err != nil {
				s.logger.Warn("could not record location history", "city", snap.CityName, "error", err)
			}
		}
	}
	if !s.apply(gen, eventWeatherFetched{snapshot: snap}) {
		return
	}

	s.chainForecast(ctx, gen, snap.Coords)
}

func (s *WeatherStore) chainForecast(ctx context.Context, gen uint64, coords Coordinates) {
	if s.cache != nil {
		if fc, ok := s.cache.cachedForecast(ctx, coords); ok {
			s.apply(gen, eventForecastFetched{forecast: fc})
			return
		}
	}

	fc, err := s.service.ForecastByCoordinates(ctx, coords)
	if err != nil {
		// Secondary data must never block primary data: log and keep
		// whatever forecast was already there.
		s.logger.Warn("forecast fetch failed", "lat", coords.Latitude, "lon", coords.Longitude, "error", err)
		return
	}
	if s.cache != nil {
		s.cache.storeForecastInCache(ctx, coords, fc)
	}
	s.apply(gen, eventForecastFetched{forecast: fc})
}

// beginFetch starts a new fetch generation and enters the loading phase.
func (s *WeatherStore) beginFetch() uint64 {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.state = transition(s.state, eventFetchStarted{})
	subs := append(([]func())(nil), s.subs...)
	s.mu.Unlock()
	notify(subs)
	return gen
}

// apply applies the event only if the generation is still current,
// reporting whether it was applied.
func (s *WeatherStore) apply(gen uint64, event storeEvent) bool {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		s.logger.Debug("dropping result from superseded fetch", "generation", gen)
		return false
	}
	s.state = transition(s.state, event)
	subs := append(([]func())(nil), s.subs...)
	s.mu.Unlock()
	notify(subs)
	return true
}

// applyAlways applies an event that is independent of fetch generations.
func (s *WeatherStore) applyAlways(event storeEvent) {
	s.mu.Lock()
	s.state = transition(s.state, event)
	subs := append(([]func())(nil), s.subs...)
	s.mu.Unlock()
	notify(subs)
}

func notify(subs []func()) {
	for _, fn := range subs {
		fn()
	}
}

// classifiedMessage reduces any fetch error to the single human-readable
// string exposed past the store boundary.
func classifiedMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return msgFetchFailed
}
