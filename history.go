package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// This file contains the recent-locations history: every successfully
// fetched location is upserted into Postgres, deduplicated by normalized
// city name. The store only ever records best-effort; a history failure is
// logged by the caller and never surfaces to the user.

const historyListLimit = 10

type LocationHistoryEntry struct {
	ID          uuid.UUID `json:"id"`
	CityName    string    `json:"city_name"`
	CountryCode string    `json:"country_code"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	LastFetched time.Time `json:"last_fetched"`
}

// historyStore abstracts the history persistence so handlers and the
// scheduler can be tested against a mock.
type historyStore interface {
	RecordLocation(ctx context.Context, snap WeatherSnapshot) error
	ListRecent(ctx context.Context, limit int) ([]LocationHistoryEntry, error)
	DeleteAll(ctx context.Context) error
}

type postgresHistory struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresHistory(db *sql.DB, logger *slog.Logger) *postgresHistory {
	return &postgresHistory{db: db, logger: logger}
}

// EnsureSchema creates the history table when it does not exist yet.
func (h *postgresHistory) EnsureSchema(ctx context.Context) error {
	_, err := h.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS location_history (
			id UUID PRIMARY KEY,
			city_name TEXT NOT NULL,
			country_code TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			normalized_name TEXT NOT NULL UNIQUE,
			last_fetched TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating location_history table: %w", err)
	}
	return nil
}

func (h *postgresHistory) RecordLocation(ctx context.Context, snap WeatherSnapshot) error {
	normalized, err := normalizeCityName(snap.CityName)
	if err != nil {
		return fmt.Errorf("normalizing city name %q: %w", snap.CityName, err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO location_history (id, city_name, country_code, latitude, longitude, normalized_name, last_fetched)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (normalized_name) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			last_fetched = EXCLUDED.last_fetched`,
		uuid.New(), snap.CityName, snap.CountryCode,
		snap.Coords.Latitude, snap.Coords.Longitude,
		normalized, snap.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("recording location %q: %w", snap.CityName, err)
	}
	h.logger.Debug("recorded location", "city", snap.CityName)
	return nil
}

func (h *postgresHistory) ListRecent(ctx context.Context, limit int) ([]LocationHistoryEntry, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, city_name, country_code, latitude, longitude, last_fetched
		FROM location_history
		ORDER BY last_fetched DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing location history: %w", err)
	}
	defer rows.Close()

	var entries []LocationHistoryEntry
	for rows.Next() {
		var e LocationHistoryEntry
		if err := rows.Scan(&e.ID, &e.CityName, &e.CountryCode, &e.Latitude, &e.Longitude, &e.LastFetched); err != nil {
			return nil, fmt.Errorf("scanning location history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (h *postgresHistory) DeleteAll(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM location_history`); err != nil {
		return fmt.Errorf("clearing location history: %w", err)
	}
	return nil
}
