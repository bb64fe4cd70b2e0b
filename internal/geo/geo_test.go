package geo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swelljoe/gotthetime/internal/db"
	"github.com/swelljoe/gotthetime/internal/weather"
)

type countingLocator struct {
	calls  atomic.Int32
	coords weather.Coordinates
	err    error
}

func (c *countingLocator) Locate(ctx context.Context, _ Options) (weather.Coordinates, error) {
	c.calls.Add(1)
	return c.coords, c.err
}

// blockingLocator ignores its context entirely.
type blockingLocator struct {
	release chan struct{}
}

func (b *blockingLocator) Locate(context.Context, Options) (weather.Coordinates, error) {
	<-b.release
	return weather.Coordinates{Latitude: 1}, nil
}

func TestStatic(t *testing.T) {
	s := Static{Latitude: 37.77, Longitude: -122.41}
	c, err := s.Locate(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, weather.Coordinates{Latitude: 37.77, Longitude: -122.41}, c)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Locate(context.Background(), Options{})
	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, PositionUnavailable, ge.Code)
	assert.Contains(t, err.Error(), "(2)")
}

func TestAcquirer_ReusesFixWithinMaximumAge(t *testing.T) {
	src := &countingLocator{coords: weather.Coordinates{Latitude: 10, Longitude: 20}}
	a := NewAcquirer(src)
	now := time.Unix(1000, 0)
	a.now = func() time.Time { return now }

	opts := Options{Timeout: time.Second, MaximumAge: time.Minute}

	_, err := a.Locate(context.Background(), opts)
	require.NoError(t, err)

	now = now.Add(59 * time.Second)
	c, err := a.Locate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, src.coords, c)
	assert.Equal(t, int32(1), src.calls.Load(), "stale fix should be reused")

	now = now.Add(2 * time.Second)
	_, err = a.Locate(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load(), "expired fix should be refreshed")
}

func TestAcquirer_ZeroMaximumAgeAlwaysAcquires(t *testing.T) {
	src := &countingLocator{}
	a := NewAcquirer(src)

	for i := 0; i < 3; i++ {
		_, err := a.Locate(context.Background(), Options{})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestAcquirer_Timeout(t *testing.T) {
	src := &blockingLocator{release: make(chan struct{})}
	defer close(src.release)

	a := NewAcquirer(src)
	start := time.Now()
	_, err := a.Locate(context.Background(), Options{Timeout: 20 * time.Millisecond})

	var ge *Error
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, Timeout, ge.Code)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAcquirer_ErrorsAreNormalized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"geo error passes through", &Error{Code: PermissionDenied, Message: "denied"}, PermissionDenied},
		{"deadline", context.DeadlineExceeded, Timeout},
		{"other", errors.New("gps off"), PositionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAcquirer(&countingLocator{err: tt.err})
			_, err := a.Locate(context.Background(), Options{})
			var ge *Error
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.want, ge.Code)
		})
	}
}

func TestAcquirer_FailureIsNotCached(t *testing.T) {
	src := &countingLocator{err: errors.New("no fix")}
	a := NewAcquirer(src)
	opts := Options{MaximumAge: time.Hour}

	_, err := a.Locate(context.Background(), opts)
	require.Error(t, err)
	_, err = a.Locate(context.Background(), opts)
	require.Error(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

type fakeStore struct {
	places map[string]db.Place
	zips   map[string]db.Place
	err    error
}

func (f *fakeStore) LookupPlace(_ context.Context, name, state string) (*db.Place, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.places[name+"|"+state]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) LookupZip(_ context.Context, zip string) (*db.Place, error) {
	p, ok := f.zips[zip]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func TestGazetteer(t *testing.T) {
	store := &fakeStore{
		places: map[string]db.Place{
			"Portland|OR":  {Latitude: 45.5, Longitude: -122.6},
			"Springfield|": {Latitude: 39.7, Longitude: -89.6},
		},
		zips: map[string]db.Place{
			"94102": {Latitude: 37.77, Longitude: -122.41},
		},
	}

	tests := []struct {
		query string
		want  weather.Coordinates
		code  Code
	}{
		{query: "Portland, OR", want: weather.Coordinates{Latitude: 45.5, Longitude: -122.6}},
		{query: " Springfield ", want: weather.Coordinates{Latitude: 39.7, Longitude: -89.6}},
		{query: "94102", want: weather.Coordinates{Latitude: 37.77, Longitude: -122.41}},
		{query: "00000", code: PositionUnavailable},
		{query: "Atlantis, XX", code: PositionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, err := NewGazetteer(store, tt.query).Locate(context.Background(), Options{})
			if tt.code != 0 {
				var ge *Error
				require.ErrorAs(t, err, &ge)
				assert.Equal(t, tt.code, ge.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestGazetteer_StoreError(t *testing.T) {
	boom := errors.New("disk I/O error")
	_, err := NewGazetteer(&fakeStore{err: boom}, "Portland, OR").Locate(context.Background(), Options{})
	assert.ErrorIs(t, err, boom)
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "TIMEOUT", Timeout.String())
	assert.Equal(t, "PERMISSION_DENIED", PermissionDenied.String())
	assert.Equal(t, "Code(9)", Code(9).String())
}
