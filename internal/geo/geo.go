// Package geo provides the geolocation capability the bridge consumes.
package geo

import (
	"context"
	"fmt"
	"time"

	"github.com/swelljoe/gotthetime/internal/weather"
)

// Code mirrors the W3C PositionError codes.
type Code int

const (
	PermissionDenied    Code = 1
	PositionUnavailable Code = 2
	Timeout             Code = 3
)

func (c Code) String() string {
	switch c {
	case PermissionDenied:
		return "PERMISSION_DENIED"
	case PositionUnavailable:
		return "POSITION_UNAVAILABLE"
	case Timeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("Code(%d)", int(c))
	}
}

// Error is a failed position acquisition.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, int(e.Code))
}

// Options control a single acquisition. Zero values disable the bound.
type Options struct {
	Timeout    time.Duration
	MaximumAge time.Duration
}

// Locator acquires the current position.
type Locator interface {
	Locate(ctx context.Context, opts Options) (weather.Coordinates, error)
}

// Static always reports the same position.
type Static weather.Coordinates

func (s Static) Locate(ctx context.Context, _ Options) (weather.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return weather.Coordinates{}, &Error{Code: Timeout, Message: err.Error()}
	}
	return weather.Coordinates(s), nil
}

// Unavailable is used when no location source is configured.
type Unavailable struct{}

func (Unavailable) Locate(context.Context, Options) (weather.Coordinates, error) {
	return weather.Coordinates{}, &Error{Code: PositionUnavailable, Message: "no location source configured"}
}
