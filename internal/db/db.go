package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a lookup matches no place.
var ErrNotFound = errors.New("place not found")

// Place is a named location from the census gazetteer.
type Place struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	State     string  `json:"state"`
	Zip       string  `json:"zip,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DB wraps a database connection
type DB struct {
	*sql.DB
	driver string
}

// NewDB opens the places database. A non-empty url selects PostgreSQL,
// otherwise the SQLite file at path is used.
func NewDB(path, url string) (*DB, error) {
	if url != "" {
		return Open("postgres", url)
	}
	return Open("sqlite3", path)
}

// Open connects with an explicit driver and makes sure the schema exists.
func Open(driver, dsn string) (*DB, error) {
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify connection
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initSchema(sqlDB, driver); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{DB: sqlDB, driver: driver}, nil
}

func initSchema(db *sql.DB, driver string) error {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if driver == "postgres" {
		id = "SERIAL PRIMARY KEY"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS places (
			id ` + id + `,
			name TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT '',
			zip TEXT NOT NULL DEFAULT '',
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS places_name_idx ON places (name, state)`,
		`CREATE INDEX IF NOT EXISTS places_zip_idx ON places (zip)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (d *DB) rebind(query string) string {
	if d.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InsertPlace stores a place. Used by the gazetteer importer.
func (d *DB) InsertPlace(ctx context.Context, p Place) error {
	if d == nil || d.DB == nil {
		return errors.New("database not initialized")
	}
	_, err := d.ExecContext(ctx,
		d.rebind("INSERT INTO places (name, state, zip, latitude, longitude) VALUES (?, ?, ?, ?, ?)"),
		p.Name, p.State, p.Zip, p.Latitude, p.Longitude)
	if err != nil {
		return fmt.Errorf("insert place %q: %w", p.Name, err)
	}
	return nil
}

// InsertPlaces stores places in a single transaction and returns how many
// were written.
func (d *DB) InsertPlaces(ctx context.Context, places []Place) (int, error) {
	if d == nil || d.DB == nil {
		return 0, errors.New("database not initialized")
	}
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		d.rebind("INSERT INTO places (name, state, zip, latitude, longitude) VALUES (?, ?, ?, ?, ?)"))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, p := range places {
		if _, err := stmt.ExecContext(ctx, p.Name, p.State, p.Zip, p.Latitude, p.Longitude); err != nil {
			return 0, fmt.Errorf("insert place %q: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(places), nil
}

// LookupPlace finds a place by name, case-insensitively. An empty state
// matches any state; the first match by id wins.
func (d *DB) LookupPlace(ctx context.Context, name, state string) (*Place, error) {
	if d == nil || d.DB == nil {
		return nil, errors.New("database not initialized")
	}
	name = strings.TrimSpace(name)
	state = strings.TrimSpace(state)
	if name == "" {
		return nil, ErrNotFound
	}

	query := "SELECT id, name, state, zip, latitude, longitude FROM places WHERE LOWER(name) = LOWER(?)"
	args := []any{name}
	if state != "" {
		query += " AND UPPER(state) = UPPER(?)"
		args = append(args, state)
	}
	query += " ORDER BY id LIMIT 1"

	return d.scanOne(ctx, query, args...)
}

// LookupZip finds a ZIP code tabulation area.
func (d *DB) LookupZip(ctx context.Context, zip string) (*Place, error) {
	if d == nil || d.DB == nil {
		return nil, errors.New("database not initialized")
	}
	return d.scanOne(ctx,
		"SELECT id, name, state, zip, latitude, longitude FROM places WHERE zip = ? ORDER BY id LIMIT 1",
		strings.TrimSpace(zip))
}

func (d *DB) scanOne(ctx context.Context, query string, args ...any) (*Place, error) {
	var p Place
	err := d.QueryRowContext(ctx, d.rebind(query), args...).
		Scan(&p.ID, &p.Name, &p.State, &p.Zip, &p.Latitude, &p.Longitude)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup failed for %v: %w", args, err)
	}
	return &p, nil
}
