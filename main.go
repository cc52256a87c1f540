package main

import (
	"context"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config()
	cfg.logger.Debug("configuration loaded")

	// Load the default city before any user interaction.
	go cfg.store.Activate(context.Background())

	scheduler := NewScheduler(cfg, cfg.refreshInterval)
	cfg.logger.Info("starting scheduler", "interval", cfg.refreshInterval.String())
	scheduler.Start()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/dashboard", cfg.handlerDashboard)
	mux.HandleFunc("/api/fetch", cfg.handlerFetch)
	mux.HandleFunc("/api/locate", cfg.handlerLocate)
	mux.HandleFunc("/api/search", cfg.handlerSearch)
	mux.HandleFunc("/api/preferences", cfg.handlerPreferences)
	mux.HandleFunc("/api/apistatus", cfg.handlerAPIStatus)
	mux.HandleFunc("/api/history", cfg.handlerHistory)
	mux.HandleFunc("/api/config", cfg.handlerConfig)
	mux.Handle("/metrics", promhttp.Handler())

	if cfg.devMode {
		cfg.logger.Debug("development mode enabled. Registering /dev endpoints.")
		mux.HandleFunc("/dev/reset", cfg.handlerReset)
		mux.HandleFunc("/dev/refresh", scheduler.handlerRefresh)
	}

	server := &http.Server{
		Addr:    ":" + cfg.port,
		Handler: corsMiddleware(requestIDMiddleware(metricsMiddleware(mux))),
	}

	cfg.logger.Info("starting server", "port", cfg.port)
	err := server.ListenAndServe()
	if err != nil {
		cfg.logger.Error("server startup failed", "error", err)
		os.Exit(1)
	}
}
