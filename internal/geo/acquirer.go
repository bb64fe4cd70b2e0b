package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/swelljoe/gotthetime/internal/weather"
)

type fix struct {
	coords weather.Coordinates
	at     time.Time
}

type located struct {
	coords weather.Coordinates
	err    error
}

// Acquirer wraps a Locator with the host geolocation semantics: a fix no
// older than Options.MaximumAge is reused, and an acquisition that outlives
// Options.Timeout fails with Timeout even if the source ignores its context.
type Acquirer struct {
	source Locator
	now    func() time.Time

	mu   sync.Mutex
	last *fix
}

// NewAcquirer wraps source.
func NewAcquirer(source Locator) *Acquirer {
	return &Acquirer{source: source, now: time.Now}
}

func (a *Acquirer) Locate(ctx context.Context, opts Options) (weather.Coordinates, error) {
	if c, ok := a.cached(opts.MaximumAge); ok {
		return c, nil
	}

	lctx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	ch := make(chan located, 1)
	go func() {
		c, err := a.source.Locate(lctx, opts)
		ch <- located{coords: c, err: err}
	}()

	var res located
	select {
	case res = <-ch:
	case <-lctx.Done():
		res = located{err: lctx.Err()}
	}

	if res.err != nil {
		return weather.Coordinates{}, normalize(res.err)
	}

	a.mu.Lock()
	a.last = &fix{coords: res.coords, at: a.now()}
	a.mu.Unlock()
	return res.coords, nil
}

func (a *Acquirer) cached(maxAge time.Duration) (weather.Coordinates, bool) {
	if maxAge <= 0 {
		return weather.Coordinates{}, false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil || a.now().Sub(a.last.at) > maxAge {
		return weather.Coordinates{}, false
	}
	return a.last.coords, true
}

func normalize(err error) error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: Timeout, Message: "timed out acquiring position"}
	}
	return &Error{Code: PositionUnavailable, Message: err.Error()}
}
