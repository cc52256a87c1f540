package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSearchBackend records controller calls; fetches are signalled on a
// channel because Select dispatches them asynchronously.
type fakeSearchBackend struct {
	mu          sync.Mutex
	searches    []string
	cleared     int
	suggestions []CitySuggestion
	fetched     chan Coordinates
}

func newFakeSearchBackend() *fakeSearchBackend {
	return &fakeSearchBackend{fetched: make(chan Coordinates, 4)}
}

func (b *fakeSearchBackend) SearchCities(ctx context.Context, query string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searches = append(b.searches, query)
}

func (b *fakeSearchBackend) FetchByCoordinates(ctx context.Context, coords Coordinates) {
	b.fetched <- coords
}

func (b *fakeSearchBackend) ClearError() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleared++
}

func (b *fakeSearchBackend) Suggestions() []CitySuggestion {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.suggestions
}

func (b *fakeSearchBackend) searchCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.searches...)
}

func (b *fakeSearchBackend) clearCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cleared
}

// newTestSearchController shortens the timers so the tests stay fast.
func newTestSearchController(backend SearchBackend) *SearchController {
	c := NewSearchController(backend, testLogger())
	c.debounce = 20 * time.Millisecond
	c.grace = 15 * time.Millisecond
	return c
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	require.Fail(t, "condition not met within timeout")
}

func TestSearchController_DebouncesKeystrokes(t *testing.T) {
	backend := newFakeSearchBackend()
	c := newTestSearchController(backend)

	c.Input("L")
	c.Input("Lo")
	c.Input("Lon")
	c.Input("London")

	waitFor(t, time.Second, func() bool { return len(backend.searchCalls()) > 0 })
	time.Sleep(50 * time.Millisecond)

	calls := backend.searchCalls()
	require.Len(t, calls, 1, "rapid keystrokes collapse into one search")
	assert.Equal(t, "London", calls[0])
	assert.True(t, c.IsOpen())
	assert.Equal(t, "London", c.Query())
}

func TestSearchController_BlankInputClosesAndNeverSearches(t *testing.T) {
	backend := newFakeSearchBackend()
	c := newTestSearchController(backend)

	c.Input("London")
	c.Input("   ")

	assert.False(t, c.IsOpen())
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, backend.searchCalls(), "clearing the input cancels the pending search")
}

func TestSearchController_SubmitSelectsFirstSuggestion(t *testing.T) {
	backend := newFakeSearchBackend()
	backend.suggestions = []CitySuggestion{
		{Name: "London", CountryCode: "GB", Latitude: 51.5073, Longitude: -0.1277},
		{Name: "London", CountryCode: "CA", Latitude: 42.9836, Longitude: -81.2497},
	}
	c := newTestSearchController(backend)

	c.Input("Lond")
	c.Submit()

	select {
	case coords := <-backend.fetched:
		assert.InDelta(t, 51.5073, coords.Latitude, 0.0001)
		assert.InDelta(t, -0.1277, coords.Longitude, 0.0001)
	case <-time.After(time.Second):
		t.Fatal("expected a coordinate fetch for the first suggestion")
	}

	assert.Equal(t, "London, GB", c.Query())
	assert.False(t, c.IsOpen())
	assert.Equal(t, 1, backend.clearCalls())

	// The pending debounce was cancelled by the selection.
	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, backend.searchCalls())
}

func TestSearchController_SubmitWithoutSuggestionsSearchesOnce(t *testing.T) {
	backend := newFakeSearchBackend()
	c := newTestSearchController(backend)

	c.Input("Lond")
	c.Submit()

	calls := backend.searchCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "Lond", calls[0])
	assert.False(t, c.IsOpen())

	// No second, debounced search later.
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, backend.searchCalls(), 1)
}

func TestSearchController_SubmitEmptyQueryIsNoop(t *testing.T) {
	backend := newFakeSearchBackend()
	c := newTestSearchController(backend)

	c.Submit()

	assert.False(t, c.IsOpen())
	assert.Empty(t, backend.searchCalls())
	select {
	case <-backend.fetched:
		t.Fatal("empty submit must not fetch")
	default:
	}
}

func TestSearchController_BlurClosesAfterGrace(t *testing.T) {
	backend := newFakeSearchBackend()
	c := newTestSearchController(backend)

	c.Input("London")
	require.True(t, c.IsOpen())

	c.Blur()
	assert.True(t, c.IsOpen(), "list stays open during the grace window")
	waitFor(t, time.Second, func() bool { return !c.IsOpen() })
}

func TestSearchController_FocusCancelsBlurAndReopens(t *testing.T) {
	backend := newFakeSearchBackend()
	c := newTestSearchController(backend)

	c.Input("London")
	c.Blur()
	c.Focus()

	time.Sleep(50 * time.Millisecond)
	assert.True(t, c.IsOpen(), "refocusing within the grace window keeps the list open")
}

func TestSearchController_FocusWithEmptyTextStaysClosed(t *testing.T) {
	backend := newFakeSearchBackend()
	c := newTestSearchController(backend)

	c.Focus()
	assert.False(t, c.IsOpen())
}

func TestSearchController_SelectUsesCanonicalRendering(t *testing.T) {
	backend := newFakeSearchBackend()
	c := newTestSearchController(backend)

	c.Input("par")
	c.Select(CitySuggestion{Name: "Paris", State: "Île-de-France", CountryCode: "FR", Latitude: 48.8589, Longitude: 2.32})

	assert.Equal(t, "Paris, FR", c.Query())
	assert.False(t, c.IsOpen())

	select {
	case coords := <-backend.fetched:
		assert.InDelta(t, 48.8589, coords.Latitude, 0.0001)
	case <-time.After(time.Second):
		t.Fatal("expected a coordinate fetch for the selection")
	}
}
