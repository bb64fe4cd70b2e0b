package geo

import (
	"context"
	"errors"
	"strings"

	"github.com/swelljoe/gotthetime/internal/db"
	"github.com/swelljoe/gotthetime/internal/weather"
)

// PlaceStore is the subset of the places database a Gazetteer needs.
type PlaceStore interface {
	LookupPlace(ctx context.Context, name, state string) (*db.Place, error)
	LookupZip(ctx context.Context, zip string) (*db.Place, error)
}

// Gazetteer resolves a configured place ("Portland, OR" or "97201")
// through the places database.
type Gazetteer struct {
	store PlaceStore
	query string
}

// NewGazetteer creates a locator for query.
func NewGazetteer(store PlaceStore, query string) *Gazetteer {
	return &Gazetteer{store: store, query: strings.TrimSpace(query)}
}

func (g *Gazetteer) Locate(ctx context.Context, _ Options) (weather.Coordinates, error) {
	var (
		p   *db.Place
		err error
	)
	if isZip(g.query) {
		p, err = g.store.LookupZip(ctx, g.query)
	} else {
		name, state := splitPlace(g.query)
		p, err = g.store.LookupPlace(ctx, name, state)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return weather.Coordinates{}, &Error{Code: PositionUnavailable, Message: "unknown place " + g.query}
		}
		return weather.Coordinates{}, err
	}
	return weather.Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}, nil
}

func isZip(s string) bool {
	if len(s) != 5 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func splitPlace(s string) (name, state string) {
	if i := strings.LastIndex(s, ","); i != -1 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return s, ""
}
