// Package bridge connects host events to the weather fetch flow.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/swelljoe/gotthetime/internal/geo"
	"github.com/swelljoe/gotthetime/internal/weather"
)

// Position options used for every request. A fix up to a minute old is
// good enough for current conditions.
var LocationOptions = geo.Options{
	Timeout:    15000 * time.Millisecond,
	MaximumAge: 60000 * time.Millisecond,
}

// Request is an inbound appmessage from the watch. Only its type is used.
type Request struct {
	Type string
}

// ConfigReturn is delivered when the configuration page closes.
type ConfigReturn struct {
	Type     string
	Response string
}

// EventSource delivers host events to registered handlers.
type EventSource interface {
	OnReady(func())
	OnRequest(func(Request))
	OnConfigReturn(func(ConfigReturn))
}

// Sender is the single path back to the watch.
type Sender interface {
	Send(ctx context.Context, p weather.Payload) error
}

// WeatherFetcher builds a payload for a position.
type WeatherFetcher interface {
	Fetch(ctx context.Context, coords weather.Coordinates) weather.Payload
}

// Bridge reacts to host events. Each request runs independently; a new
// request never cancels one in flight, so replies may arrive in any order.
type Bridge struct {
	locator geo.Locator
	fetcher WeatherFetcher
	sender  Sender
	log     *zap.Logger

	ctx    context.Context
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a bridge. ctx bounds every request flow started by events.
func New(ctx context.Context, locator geo.Locator, fetcher WeatherFetcher, sender Sender, log *zap.Logger) *Bridge {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bridge{
		locator: locator,
		fetcher: fetcher,
		sender:  sender,
		log:     log,
		ctx:     ctx,
	}
}

// Register subscribes the bridge to src.
func (b *Bridge) Register(src EventSource) {
	src.OnReady(b.handleReady)
	src.OnRequest(b.handleRequest)
	src.OnConfigReturn(b.handleConfigReturn)
}

// Close stops the bridge from starting new request flows. Flows already
// running still send their reply.
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

// Wait blocks until every request flow has sent its reply.
func (b *Bridge) Wait() {
	b.wg.Wait()
}

func (b *Bridge) handleReady() {
	b.log.Info("bridge ready")
}

func (b *Bridge) handleRequest(req Request) {
	b.log.Info("got message", zap.String("type", req.Type))
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.log.Warn("bridge closed, dropping request", zap.String("type", req.Type))
		return
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.Serve(b.ctx)
	}()
}

func (b *Bridge) handleConfigReturn(cr ConfigReturn) {
	b.log.Info("webview closed",
		zap.String("type", cr.Type),
		zap.String("response", cr.Response))
}

// Serve runs one request flow synchronously and returns the payload it sent.
func (b *Bridge) Serve(ctx context.Context) weather.Payload {
	id := uuid.NewString()
	log := b.log.With(zap.String("request_id", id))

	ctx, span := otel.Tracer("bridge").Start(ctx, "handle-request", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	span.SetAttributes(attribute.String("request_id", id))

	payload := weather.Empty()
	coords, err := b.locator.Locate(ctx, LocationOptions)
	if err != nil {
		var ge *geo.Error
		if errors.As(err, &ge) {
			log.Warn("error getting location",
				zap.String("message", ge.Message),
				zap.Int("code", int(ge.Code)))
		} else {
			log.Warn("error getting location", zap.Error(err))
		}
		span.RecordError(err)
	} else {
		payload = b.fetcher.Fetch(ctx, coords)
	}

	span.SetAttributes(attribute.Bool("empty", payload.IsEmpty()))
	// The reply goes out even when shutdown has cancelled ctx.
	if err := b.sender.Send(context.WithoutCancel(ctx), payload); err != nil {
		log.Error("send failed", zap.Error(err), zap.Stringer("payload", payload))
	}
	return payload
}
