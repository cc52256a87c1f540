package main

import (
	"context"
	"errors"
	"strings"
)

// This file implements the API-key diagnostic probe. It is independent of
// the weather store: it re-runs a lightweight current-weather request and
// classifies the outcome purely for user-facing troubleshooting.

const probeCityName = "London,UK"

type KeyStatus string

const (
	KeyStatusTesting     KeyStatus = "testing"
	KeyStatusActive      KeyStatus = "active"
	KeyStatusInvalid     KeyStatus = "invalid"
	KeyStatusRateLimited KeyStatus = "rate_limited"
	KeyStatusError       KeyStatus = "error"
)

type KeyStatusReport struct {
	Status     KeyStatus `json:"status"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// CheckAPIKey probes the current-weather endpoint with a fixed city and
// classifies the result.
func (cfg *apiConfig) CheckAPIKey(ctx context.Context) KeyStatusReport {
	cfg.logger.Debug("probing weather API key", "city", probeCityName)
	_, err := cfg.weatherService.CurrentByCity(ctx, probeCityName)
	if err == nil {
		return KeyStatusReport{
			Status:  KeyStatusActive,
			Message: "API key is working correctly!",
		}
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case ErrKindAuth:
			return KeyStatusReport{
				Status:     KeyStatusInvalid,
				Message:    msgKeyInvalid,
				Suggestion: "Please wait and try again later, or verify your API key at https://openweathermap.org/api_keys",
			}
		case ErrKindRateLimited:
			return KeyStatusReport{
				Status:     KeyStatusRateLimited,
				Message:    "API rate limit exceeded.",
				Suggestion: "Please wait a moment before making more requests.",
			}
		}
	}

	return KeyStatusReport{
		Status:     KeyStatusError,
		Message:    err.Error(),
		Suggestion: "Check your internet connection and try again.",
	}
}

// shouldAutoCheckKey reports whether a store error message indicates an
// authentication problem worth probing automatically.
func shouldAutoCheckKey(errMsg string) bool {
	lower := strings.ToLower(errMsg)
	return strings.Contains(lower, "api key") || strings.Contains(lower, "not activated")
}
