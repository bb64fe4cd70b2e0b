package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/swelljoe/gotthetime/internal/db"
)

// errSkip marks a row that is not a place (short or header-like).
var errSkip = errors.New("skip row")

type rowParser func(record []string) (db.Place, error)

type placeWriter interface {
	InsertPlaces(ctx context.Context, places []db.Place) (int, error)
}

// importRows parses a gazetteer file and writes every valid row in one batch.
func importRows(ctx context.Context, w placeWriter, r io.Reader, parse rowParser) (int, error) {
	places, err := readRows(r, parse)
	if err != nil {
		return 0, err
	}
	return w.InsertPlaces(ctx, places)
}

// readRows reads a tab separated gazetteer file, skipping its header and
// any row that fails to parse.
func readRows(r io.Reader, parse rowParser) ([]db.Place, error) {
	reader := csv.NewReader(r)
	reader.Comma = '\t'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var places []db.Place
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			log.Printf("Skipping unreadable row: %v", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		p, err := parse(record)
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			log.Printf("Skipping row %v: %v", record, err)
			continue
		}
		places = append(places, p)
	}
	return places, nil
}

// parsePlace reads a row of 2023_Gaz_place_national.txt:
// USPS(0) GEOID(1) ANSICODE(2) NAME(3) LSAD(4) FUNCSTAT(5) ALAND(6) AWATER(7)
// ALAND_SQMI(8) AWATER_SQMI(9) INTPTLAT(10) INTPTLONG(11)
func parsePlace(record []string) (db.Place, error) {
	if len(record) < 12 {
		return db.Place{}, errSkip
	}
	lat, lon, err := parseAndValidateCoordinates(strings.TrimSpace(record[10]), strings.TrimSpace(record[11]))
	if err != nil {
		return db.Place{}, err
	}
	return db.Place{
		Name:      cleanPlaceName(strings.TrimSpace(record[3])),
		State:     strings.TrimSpace(record[0]),
		Latitude:  lat,
		Longitude: lon,
	}, nil
}

// parseZCTA reads a row of 2023_Gaz_zcta_national.txt:
// GEOID(0) ALAND(1) AWATER(2) ALAND_SQMI(3) AWATER_SQMI(4) INTPTLAT(5) INTPTLONG(6)
func parseZCTA(record []string) (db.Place, error) {
	if len(record) < 7 {
		return db.Place{}, errSkip
	}
	zip := strings.TrimSpace(record[0])
	lat, lon, err := parseAndValidateCoordinates(strings.TrimSpace(record[5]), strings.TrimSpace(record[6]))
	if err != nil {
		return db.Place{}, err
	}
	return db.Place{Name: zip, Zip: zip, Latitude: lat, Longitude: lon}, nil
}

func cleanPlaceName(name string) string {
	for _, s := range []string{" city", " town", " village", " CDP", " borough"} {
		if strings.HasSuffix(name, s) {
			return strings.TrimSuffix(name, s)
		}
	}
	return name
}

func parseAndValidateCoordinates(latStr, lonStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude: %w", err)
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("latitude out of range: %f", lat)
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude: %w", err)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("longitude out of range: %f", lon)
	}

	return lat, lon, nil
}
