package main

import (
	"context"
	"errors"
	"time"
)

// Geolocation is a host capability, not a network service, so it is
// modeled as an injectable interface. A deployment without any position
// source leaves the config's geolocator nil, which the store reports with
// the fixed "not supported" message.

const geolocationTimeout = 10 * time.Second

// Fixed user-facing messages for the distinct geolocation failure modes.
const (
	msgGeolocationUnsupported = "Geolocation is not supported in this environment."
	msgLocationDenied         = "Location access denied by user."
	msgLocationUnavailable    = "Location information is unavailable."
	msgLocationTimeout        = "The request to get user location timed out."
	msgLocationGeneric        = "Unable to retrieve your location."
)

var (
	ErrPermissionDenied    = errors.New("geolocation permission denied")
	ErrPositionUnavailable = errors.New("geolocation position unavailable")
	ErrPositionTimeout     = errors.New("geolocation request timed out")
)

// Geolocator produces a one-shot position fix. Implementations should
// honor the context deadline and prefer a high-accuracy fix.
type Geolocator interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// geolocationErrorMessage maps the three distinct failure conditions to
// their fixed messages, with a generic default for anything else.
func geolocationErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return msgLocationDenied
	case errors.Is(err, ErrPositionUnavailable):
		return msgLocationUnavailable
	case errors.Is(err, ErrPositionTimeout), errors.Is(err, context.DeadlineExceeded):
		return msgLocationTimeout
	default:
		return msgLocationGeneric
	}
}
