package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
)

// This file implements the persisted user preferences (theme and
// temperature unit). Each preference is a small enumerated value with an
// in-memory copy and a durable copy that are reconciled on every change:
// mutations write through to storage before updating memory and notifying
// subscribers. Storage sits behind an interface so tests can substitute it.

const (
	themeStorageKey = "weather-app-theme"
	unitStorageKey  = "weather-app-temp-unit"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// ErrPreferenceNotFound is returned by a PreferenceStorage when no value
// has been persisted under the requested key.
var ErrPreferenceNotFound = errors.New("preference not found")

// ErrInvalidPreference is returned by Set when the value is not a member
// of the preference's enumeration.
var ErrInvalidPreference = errors.New("invalid preference value")

// PreferenceStorage is the durable slot a Preference writes through to.
type PreferenceStorage interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
}

// RedisPreferenceStorage persists preferences as plain Redis strings with
// no expiration.
type RedisPreferenceStorage struct {
	client *redis.Client
}

func NewRedisPreferenceStorage(client *redis.Client) *RedisPreferenceStorage {
	return &RedisPreferenceStorage{client: client}
}

func (s *RedisPreferenceStorage) Load(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrPreferenceNotFound
	}
	return val, err
}

func (s *RedisPreferenceStorage) Save(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Preference is one enumerated user setting. The allowed slice is the
// closed set of values; Toggle flips between the first two.
type Preference struct {
	mu      sync.Mutex
	key     string
	value   string
	allowed []string
	storage PreferenceStorage
	logger  *slog.Logger
	subs    []func(string)
}

func newPreference(ctx context.Context, key string, allowed []string, fallback string, storage PreferenceStorage, logger *slog.Logger) *Preference {
	p := &Preference{
		key:     key,
		value:   fallback,
		allowed: allowed,
		storage: storage,
		logger:  logger,
	}
	saved, err := storage.Load(ctx, key)
	switch {
	case err == nil:
		if slices.Contains(allowed, saved) {
			p.value = saved
		} else {
			logger.Warn("ignoring invalid persisted preference", "key", key, "value", saved)
		}
	case errors.Is(err, ErrPreferenceNotFound):
		// First run, keep the fallback.
	default:
		logger.Warn("could not load persisted preference", "key", key, "error", err)
	}
	return p
}

// NewThemePreference initializes the theme preference. When nothing has
// been persisted yet the ambient signal (the host's light/dark hint) is
// consulted; an empty or invalid signal falls back to light.
func NewThemePreference(ctx context.Context, storage PreferenceStorage, ambient func() string, logger *slog.Logger) *Preference {
	fallback := ThemeLight
	if ambient != nil {
		if hint := ambient(); hint == ThemeDark {
			fallback = ThemeDark
		}
	}
	return newPreference(ctx, themeStorageKey, []string{ThemeLight, ThemeDark}, fallback, storage, logger)
}

// NewUnitPreference initializes the temperature-unit preference,
// defaulting to metric.
func NewUnitPreference(ctx context.Context, storage PreferenceStorage, logger *slog.Logger) *Preference {
	allowed := []string{string(UnitMetric), string(UnitImperial)}
	return newPreference(ctx, unitStorageKey, allowed, string(UnitMetric), storage, logger)
}

// Get returns the current in-memory value.
func (p *Preference) Get() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

// Set validates the value against the enumeration, persists it, updates
// memory and notifies subscribers. On a storage error the in-memory value
// is left untouched so both copies stay reconciled.
func (p *Preference) Set(ctx context.Context, value string) error {
	if !slices.Contains(p.allowed, value) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidPreference, value, p.key)
	}
	p.mu.Lock()
	if value == p.value {
		p.mu.Unlock()
		return nil
	}
	if err := p.storage.Save(ctx, p.key, value); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("persisting %s: %w", p.key, err)
	}
	p.value = value
	subs := slices.Clone(p.subs)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(value)
	}
	return nil
}

// Toggle flips between the two enumerated values and persists the result.
func (p *Preference) Toggle(ctx context.Context) (string, error) {
	next := p.allowed[0]
	if p.Get() == p.allowed[0] {
		next = p.allowed[1]
	}
	if err := p.Set(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

// Subscribe registers a callback invoked after every successful mutation.
func (p *Preference) Subscribe(fn func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}
