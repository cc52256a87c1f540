package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// This file contains the search input controller. It turns raw keystrokes
// into debounced search calls against the weather store: the timer restarts
// on every keystroke and only fires after a quiet period (classic debounce,
// not throttle). Losing focus closes the suggestion list after a short
// grace delay so a click on a suggestion is not pre-empted.

const searchDebounceDelay = 300 * time.Millisecond
const blurGraceDelay = 200 * time.Millisecond

// SearchBackend is the slice of the weather store the controller drives.
type SearchBackend interface {
	SearchCities(ctx context.Context, query string)
	FetchByCoordinates(ctx context.Context, coords Coordinates)
	ClearError()
	Suggestions() []CitySuggestion
}

// SearchController owns the raw text of the query input and the open state
// of the suggestion list.
type SearchController struct {
	mu            sync.Mutex
	backend       SearchBackend
	logger        *slog.Logger
	query         string
	open          bool
	debounce      time.Duration
	grace         time.Duration
	debounceTimer *time.Timer
	blurTimer     *time.Timer
}

func NewSearchController(backend SearchBackend, logger *slog.Logger) *SearchController {
	return &SearchController{
		backend:  backend,
		logger:   logger,
		debounce: searchDebounceDelay,
		grace:    blurGraceDelay,
	}
}

// Input records a keystroke: the raw value updates synchronously, the list
// opens when the trimmed value is non-empty, and the debounce timer
// restarts. Any keystroke before expiry cancels the pending search.
func (c *SearchController) Input(text string) {
	c.mu.Lock()
	c.query = text
	trimmed := strings.TrimSpace(text)
	c.open = trimmed != ""

	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	if trimmed != "" {
		c.debounceTimer = time.AfterFunc(c.debounce, func() {
			c.logger.Debug("debounced search", "query", trimmed)
			c.backend.SearchCities(context.Background(), trimmed)
		})
	}
	c.mu.Unlock()
}

// Submit selects the first suggestion when one is present, otherwise
// re-issues the search once synchronously. The list closes either way.
func (c *SearchController) Submit() {
	c.mu.Lock()
	trimmed := strings.TrimSpace(c.query)
	c.stopDebounceLocked()
	c.mu.Unlock()

	if trimmed == "" {
		c.closeList()
		return
	}

	if suggestions := c.backend.Suggestions(); len(suggestions) > 0 {
		c.Select(suggestions[0])
		return
	}

	c.backend.SearchCities(context.Background(), trimmed)
	c.closeList()
}

// Select accepts a suggestion: the error slot is cleared, a coordinate
// fetch starts, the input text becomes the canonical "Name, Country"
// rendering and the list closes.
func (c *SearchController) Select(city CitySuggestion) {
	c.mu.Lock()
	c.stopDebounceLocked()
	c.query = fmt.Sprintf("%s, %s", city.Name, city.CountryCode)
	c.open = false
	c.mu.Unlock()

	c.backend.ClearError()
	coords := Coordinates{Latitude: city.Latitude, Longitude: city.Longitude}
	go c.backend.FetchByCoordinates(context.Background(), coords)
}

// Blur closes the suggestion list after the grace delay.
func (c *SearchController) Blur() {
	c.mu.Lock()
	if c.blurTimer != nil {
		c.blurTimer.Stop()
	}
	c.blurTimer = time.AfterFunc(c.grace, c.closeList)
	c.mu.Unlock()
}

// Focus cancels a pending blur close and reopens the list when there is
// text to search for.
func (c *SearchController) Focus() {
	c.mu.Lock()
	if c.blurTimer != nil {
		c.blurTimer.Stop()
		c.blurTimer = nil
	}
	if strings.TrimSpace(c.query) != "" {
		c.open = true
	}
	c.mu.Unlock()
}

// Query returns the raw input text.
func (c *SearchController) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// IsOpen reports whether the suggestion list is open.
func (c *SearchController) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *SearchController) closeList() {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
}

func (c *SearchController) stopDebounceLocked() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
}
