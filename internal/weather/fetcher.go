package weather

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Source returns current conditions for a position. *Client implements it.
type Source interface {
	Current(ctx context.Context, coords Coordinates) (*Observation, error)
}

// Fetcher turns a position into the payload the watch displays. It never
// returns an error: every failure becomes the empty payload.
type Fetcher struct {
	source Source
	log    *zap.Logger
}

// NewFetcher creates a fetcher over source.
func NewFetcher(source Source, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{source: source, log: log}
}

// Fetch issues one weather request and builds the outbound payload.
func (f *Fetcher) Fetch(ctx context.Context, coords Coordinates) Payload {
	obs, err := f.source.Current(ctx, coords)
	if err != nil {
		var se *StatusError
		switch {
		case errors.As(err, &se):
			f.log.Warn("weather request failed",
				zap.Int("status", se.Code),
				zap.String("body", se.Body))
		case errors.Is(err, ErrMalformedResponse):
			f.log.Warn("weather response unusable", zap.Error(err))
		default:
			f.log.Warn("weather request error", zap.Error(err))
		}
		return Empty()
	}

	f.log.Debug("weather response", zap.String("body", obs.Raw))

	result := Result{
		Icon:             Classify(obs.ConditionCode),
		TemperatureLabel: CelsiusLabel(obs.Kelvin),
	}
	f.log.Info("weather",
		zap.String("temp", result.TemperatureLabel),
		zap.Int("icon", result.Icon),
		zap.String("city", obs.City))

	return Success(result)
}
