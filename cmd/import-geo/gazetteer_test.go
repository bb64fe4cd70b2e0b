package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swelljoe/gotthetime/internal/db"
)

func TestCleanPlaceName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Portland city", "Portland"},
		{"Brookline town", "Brookline"},
		{"Pinehurst village", "Pinehurst"},
		{"Paradise CDP", "Paradise"},
		{"Juneau city and borough", "Juneau city and"},
		{"Honolulu", "Honolulu"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanPlaceName(tt.in), tt.in)
	}
}

func TestParseAndValidateCoordinates(t *testing.T) {
	lat, lon, err := parseAndValidateCoordinates("45.5", "-122.6")
	require.NoError(t, err)
	assert.Equal(t, 45.5, lat)
	assert.Equal(t, -122.6, lon)

	for _, c := range [][2]string{{"abc", "0"}, {"0", "abc"}, {"91", "0"}, {"0", "-181"}} {
		_, _, err := parseAndValidateCoordinates(c[0], c[1])
		assert.Error(t, err, "%v", c)
	}
}

const placesTSV = "USPS\tGEOID\tANSICODE\tNAME\tLSAD\tFUNCSTAT\tALAND\tAWATER\tALAND_SQMI\tAWATER_SQMI\tINTPTLAT\tINTPTLONG\n" +
	"OR\t4159000\t02411471\tPortland city\t25\tA\t345\t18\t133.4\t7.1\t45.537\t-122.650\n" +
	"OR\t4100000\t00000000\tBroken city\t25\tA\t0\t0\t0\t0\tnorth\t-122.0\n" +
	"OR\tshort\n" +
	"WA\t5363000\t02411856\tSeattle city\t25\tA\t217\t152\t83.9\t58.7\t47.620\t-122.350\n"

const zctasTSV = "GEOID\tALAND\tAWATER\tALAND_SQMI\tAWATER_SQMI\tINTPTLAT\tINTPTLONG\n" +
	"97201\t1\t2\t3\t4\t45.508\t-122.691\n"

func TestReadRows_Places(t *testing.T) {
	places, err := readRows(strings.NewReader(placesTSV), parsePlace)
	require.NoError(t, err)
	require.Len(t, places, 2)

	assert.Equal(t, db.Place{Name: "Portland", State: "OR", Latitude: 45.537, Longitude: -122.650}, places[0])
	assert.Equal(t, "Seattle", places[1].Name)
	assert.Equal(t, "WA", places[1].State)
}

func TestReadRows_ZCTAs(t *testing.T) {
	places, err := readRows(strings.NewReader(zctasTSV), parseZCTA)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "97201", places[0].Zip)
	assert.Equal(t, "97201", places[0].Name)
}

func TestReadRows_EmptyInput(t *testing.T) {
	_, err := readRows(strings.NewReader(""), parsePlace)
	assert.Error(t, err)
}

// failingReader yields its prefix and then fails every read.
type failingReader struct {
	prefix *strings.Reader
	err    error
}

func (f *failingReader) Read(p []byte) (int, error) {
	if f.prefix.Len() > 0 {
		return f.prefix.Read(p)
	}
	return 0, f.err
}

func TestReadRows_ReadError(t *testing.T) {
	corrupt := errors.New("flate: corrupt input")
	r := &failingReader{prefix: strings.NewReader("GEOID\tALAND\tAWATER\tALAND_SQMI\tAWATER_SQMI\tINTPTLAT\tINTPTLONG\n"), err: corrupt}

	done := make(chan error, 1)
	go func() {
		_, err := readRows(r, parseZCTA)
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, corrupt)
	case <-time.After(2 * time.Second):
		t.Fatal("readRows did not return on a persistent read error")
	}
}

type capturingWriter struct {
	got []db.Place
}

func (c *capturingWriter) InsertPlaces(_ context.Context, places []db.Place) (int, error) {
	c.got = append(c.got, places...)
	return len(places), nil
}

func TestImportRows(t *testing.T) {
	w := &capturingWriter{}
	n, err := importRows(context.Background(), w, strings.NewReader(placesTSV), parsePlace)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, w.got, 2)
}

func TestImportRows_SQLite(t *testing.T) {
	database, err := db.NewDB(t.TempDir()+"/places.db", "")
	require.NoError(t, err)
	defer database.Close()

	n, err := importRows(context.Background(), database, strings.NewReader(placesTSV), parsePlace)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := database.LookupPlace(context.Background(), "portland", "OR")
	require.NoError(t, err)
	assert.InDelta(t, 45.537, p.Latitude, 1e-9)
}
