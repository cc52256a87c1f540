package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

type apiConfig struct {
	weatherService  WeatherService
	store           *WeatherStore
	cache           Cache
	history         historyStore
	themePref       *Preference
	unitPref        *Preference
	owmWeatherURL   string
	owmGeocodeURL   string
	owmKey          string
	httpClient      *http.Client
	refreshInterval time.Duration
	port            string
	devMode         bool
	logger          *slog.Logger
}

// getRequiredEnv retrieves an environment variable by key, and fatals if it's not set.
func getRequiredEnv(key string, logger *slog.Logger) string {
	val, ok := os.LookupEnv(key)
	if !ok {
		logger.Error("environment variable must be set", "key", key)
		os.Exit(1)
	}
	return val
}

// getEnv retrieves an environment variable by key, with a fallback value.
func getEnv(key, fallback string, logger *slog.Logger) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	logger.Info("environment variable not set, using fallback", "key", key, "fallback", fallback)
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer, with a fallback value.
func getEnvAsInt(key string, fallback int, logger *slog.Logger) int {
	valStr, ok := os.LookupEnv(key)
	if !ok {
		logger.Info("environment variable not set, using fallback", "key", key, "fallback", fallback)
		return fallback
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		logger.Warn("invalid integer value for environment variable, using fallback", "key", key, "value", valStr, "error", err)
		return fallback
	}
	return val
}

func config() *apiConfig {
	devModeStr := os.Getenv("DEV_MODE")
	devMode, err := strconv.ParseBool(devModeStr)
	if err != nil {
		devMode = false
	}

	var logger *slog.Logger
	if devMode {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	ctx := context.Background()

	dbURL := getRequiredEnv("DB_URL", logger)
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Error("couldn't prepare connection to database", "error", err)
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		logger.Error("couldn't connect to database", "error", err)
		os.Exit(1)
	}
	history := NewPostgresHistory(db, logger)
	if err := history.EnsureSchema(ctx); err != nil {
		logger.Error("couldn't prepare history schema", "error", err)
		os.Exit(1)
	}

	redisURL := getRequiredEnv("REDIS_URL", logger)
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error("could not parse Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(opt)
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Error("could not connect to Redis", "error", err)
		os.Exit(1)
	}

	refreshIntervalMin := getEnvAsInt("REFRESH_INTERVAL_MIN", 10, logger)

	cfg := apiConfig{
		cache:         NewRedisCache(redisClient),
		history:       history,
		owmKey:        getRequiredEnv("OWM_KEY", logger),
		owmWeatherURL: getEnv("OWM_WEATHER_URL", "https://api.openweathermap.org/data/2.5", logger),
		owmGeocodeURL: getEnv("OWM_GEOCODE_URL", "https://api.openweathermap.org/geo/1.0", logger),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		refreshInterval: time.Duration(refreshIntervalMin) * time.Minute,
		port:            getEnv("PORT", "8080", logger),
		devMode:         devMode,
		logger:          logger,
	}

	cfg.weatherService = NewOWMService(cfg.owmKey, cfg.owmWeatherURL, cfg.owmGeocodeURL, cfg.httpClient, logger)

	prefStorage := NewRedisPreferenceStorage(redisClient)
	cfg.themePref = NewThemePreference(ctx, prefStorage, nil, logger)
	cfg.unitPref = NewUnitPreference(ctx, prefStorage, logger)

	cfg.store = NewWeatherStore(cfg.weatherService, logger, WeatherStoreOptions{
		Cache:   &cfg,
		History: history,
	})

	return &cfg
}
