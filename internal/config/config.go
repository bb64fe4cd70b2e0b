// Package config loads bridge settings from .env, an optional YAML file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/swelljoe/gotthetime/internal/weather"
)

type WeatherConfig struct {
	APIURL string `yaml:"api_url"`
}

// LocationConfig selects the position source. Coordinates win over Place.
type LocationConfig struct {
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
	Place     string   `yaml:"place"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
	URL  string `yaml:"url"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type TracingConfig struct {
	ZipkinURL string `yaml:"zipkin_url"`
}

type Config struct {
	Weather  WeatherConfig  `yaml:"weather"`
	Location LocationConfig `yaml:"location"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
}

// NewConfig returns the defaults.
func NewConfig() *Config {
	return &Config{
		Weather:  WeatherConfig{APIURL: weather.DefaultEndpoint},
		Database: DatabaseConfig{Path: "gotthetime.db"},
		Logging:  LoggingConfig{Level: "INFO"},
	}
}

// HasCoordinates reports whether a fixed position is configured.
func (c *Config) HasCoordinates() bool {
	return c.Location.Latitude != nil && c.Location.Longitude != nil
}

// Load reads envFile (missing is fine), then CONFIG_FILE if set, then
// environment overrides.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := NewConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if (cfg.Location.Latitude == nil) != (cfg.Location.Longitude == nil) {
		return nil, errors.New("GEO_LATITUDE and GEO_LONGITUDE must be set together")
	}
	return cfg, nil
}

func loadEnvVars(cfg *Config) error {
	if v := os.Getenv("WEATHER_API_URL"); v != "" {
		cfg.Weather.APIURL = v
	}
	if v := os.Getenv("GEO_LATITUDE"); v != "" {
		lat, err := parseCoordinate("GEO_LATITUDE", v, 90)
		if err != nil {
			return err
		}
		cfg.Location.Latitude = &lat
	}
	if v := os.Getenv("GEO_LONGITUDE"); v != "" {
		lon, err := parseCoordinate("GEO_LONGITUDE", v, 180)
		if err != nil {
			return err
		}
		cfg.Location.Longitude = &lon
	}
	if v := os.Getenv("GEO_PLACE"); v != "" {
		cfg.Location.Place = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ZIPKIN_URL"); v != "" {
		cfg.Tracing.ZipkinURL = v
	}
	return nil
}

func parseCoordinate(key, value string, limit float64) (float64, error) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if f < -limit || f > limit {
		return 0, fmt.Errorf("%s out of range: %f", key, f)
	}
	return f, nil
}
