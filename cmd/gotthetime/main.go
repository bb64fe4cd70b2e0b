package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/swelljoe/gotthetime/internal/bridge"
	"github.com/swelljoe/gotthetime/internal/config"
	"github.com/swelljoe/gotthetime/internal/db"
	"github.com/swelljoe/gotthetime/internal/geo"
	"github.com/swelljoe/gotthetime/internal/host"
	"github.com/swelljoe/gotthetime/internal/logging"
	"github.com/swelljoe/gotthetime/internal/tracing"
	"github.com/swelljoe/gotthetime/internal/weather"
)

const version = "1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = ".env"
	}

	if err := run(ctx, envFile, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, envFile string, in io.Reader, out io.Writer) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	shutdown, err := tracing.Init(cfg.Tracing.ZipkinURL, version, logger)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	source, closeSource, err := locationSource(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	stream := host.NewStream(in, out, logger.Named("host"))
	fetcher := weather.NewFetcher(weather.NewClient(cfg.Weather.APIURL), logger.Named("weather"))
	b := bridge.New(ctx, geo.NewAcquirer(source), fetcher, stream, logger.Named("bridge"))
	b.Register(stream)

	logger.Info("listening for host events", zap.String("weather_api", cfg.Weather.APIURL))
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
	// Run may still be blocked reading input; stop new flows before draining.
	b.Close()
	b.Wait()
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// locationSource picks fixed coordinates, then a gazetteer place, and
// otherwise reports every request as position unavailable.
func locationSource(cfg *config.Config, logger *zap.Logger) (geo.Locator, func(), error) {
	noop := func() {}

	if cfg.HasCoordinates() {
		logger.Info("using fixed position",
			zap.Float64("lat", *cfg.Location.Latitude),
			zap.Float64("lon", *cfg.Location.Longitude))
		return geo.Static{Latitude: *cfg.Location.Latitude, Longitude: *cfg.Location.Longitude}, noop, nil
	}

	if cfg.Location.Place != "" {
		database, err := db.NewDB(cfg.Database.Path, cfg.Database.URL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open places database: %w", err)
		}
		logger.Info("using gazetteer position", zap.String("place", cfg.Location.Place))
		return geo.NewGazetteer(database, cfg.Location.Place), func() { database.Close() }, nil
	}

	logger.Warn("no location configured; weather requests will be answered with {}")
	return geo.Unavailable{}, noop, nil
}
