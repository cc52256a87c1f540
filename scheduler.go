package main

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// This file contains the refresh scheduler. It periodically re-warms the
// weather and forecast cache for recently fetched locations so the
// dashboard keeps serving fresh data without waiting on the upstream API.

// refreshConcurrency bounds how many locations are refreshed at once.
const refreshConcurrency = 3

type Scheduler struct {
	cfg         *apiConfig
	refreshChan <-chan time.Time
	stop        chan struct{}
	ticker      *time.Ticker
	refreshJobs func()
}

func NewScheduler(cfg *apiConfig, interval time.Duration) *Scheduler {
	ticker := time.NewTicker(interval)
	s := &Scheduler{
		cfg:         cfg,
		refreshChan: ticker.C,
		stop:        make(chan struct{}),
		ticker:      ticker,
	}
	s.refreshJobs = s.runRefreshJobs
	return s
}

func (s *Scheduler) Start() {
	go func() {
		for {
			select {
			case <-s.refreshChan:
				s.cfg.logger.Info("scheduler: refreshing recent locations")
				s.refreshJobs()
			case <-s.stop:
				s.cfg.logger.Info("scheduler: stopping")
				s.ticker.Stop()
				return
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
}

// runRefreshJobs re-fetches current weather and forecast for every recent
// location, with a bounded fan-out. Failures are logged per location and
// never abort the cycle.
func (s *Scheduler) runRefreshJobs() {
	ctx := context.Background()
	entries, err := s.cfg.history.ListRecent(ctx, historyListLimit)
	if err != nil {
		s.cfg.logger.Warn("scheduler: failed to list recent locations", "error", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(refreshConcurrency)
	for _, entry := range entries {
		g.Go(func() error {
			s.refreshLocation(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()
	s.cfg.logger.Info("scheduler: refresh cycle completed", "locations", len(entries))
}

func (s *Scheduler) refreshLocation(ctx context.Context, entry LocationHistoryEntry) {
	coords := Coordinates{Latitude: entry.Latitude, Longitude: entry.Longitude}

	snap, err := s.cfg.weatherService.CurrentByCoordinates(ctx, coords)
	if err != nil {
		s.cfg.logger.Warn("scheduler: current weather refresh failed", "city", entry.CityName, "error", err)
		return
	}
	s.cfg.storeSnapshotInCache(ctx, snap)

	fc, err := s.cfg.weatherService.ForecastByCoordinates(ctx, coords)
	if err != nil {
		s.cfg.logger.Warn("scheduler: forecast refresh failed", "city", entry.CityName, "error", err)
		return
	}
	s.cfg.storeForecastInCache(ctx, coords, fc)
	s.cfg.logger.Debug("scheduler: refreshed location", "city", entry.CityName)
}

// handlerRefresh is a development-only endpoint that manually triggers a
// refresh cycle and resets the ticker.
func (s *Scheduler) handlerRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.cfg.respondWithError(w, http.StatusMethodNotAllowed, "Method Not Allowed", nil)
		return
	}
	s.cfg.logger.Info("manual refresh triggered")
	s.ticker.Reset(s.cfg.refreshInterval)

	go s.refreshJobs()

	s.cfg.respondWithJSON(w, http.StatusAccepted, map[string]string{"status": "refresh triggered"})
}
