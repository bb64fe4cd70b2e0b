// Package host speaks the companion-app messaging protocol as JSON lines:
// one inbound event per line, one outbound message dictionary per line.
package host

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/swelljoe/gotthetime/internal/bridge"
	"github.com/swelljoe/gotthetime/internal/weather"
)

// Event types emitted by the host runtime.
const (
	EventReady         = "ready"
	EventAppMessage    = "appmessage"
	EventWebviewClosed = "webviewclosed"
)

// Event is one inbound line.
type Event struct {
	Type     string `json:"type"`
	Response string `json:"response,omitempty"`
}

// Stream is both the event source and the send primitive.
type Stream struct {
	in  io.Reader
	out io.Writer
	log *zap.Logger

	wmu sync.Mutex

	onReady   func()
	onRequest func(bridge.Request)
	onConfig  func(bridge.ConfigReturn)
}

// NewStream reads events from in and writes messages to out.
func NewStream(in io.Reader, out io.Writer, log *zap.Logger) *Stream {
	if log == nil {
		log = zap.NewNop()
	}
	return &Stream{in: in, out: out, log: log}
}

func (s *Stream) OnReady(h func()) { s.onReady = h }
func (s *Stream) OnRequest(h func(bridge.Request)) { s.onRequest = h }
func (s *Stream) OnConfigReturn(h func(bridge.ConfigReturn)) { s.onConfig = h }

// Send writes the message dictionary for p as a single line. Concurrent
// sends never interleave within a line.
func (s *Stream) Send(ctx context.Context, p weather.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(p.Message())
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	data = append(data, '\n')

	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.out.Write(data); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Run dispatches events until the input ends or ctx is done.
func (s *Stream) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			s.log.Warn("skipping malformed event", zap.ByteString("line", line), zap.Error(err))
			continue
		}
		s.dispatch(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	return nil
}

func (s *Stream) dispatch(ev Event) {
	switch ev.Type {
	case EventReady:
		if s.onReady != nil {
			s.onReady()
		}
	case EventAppMessage:
		if s.onRequest != nil {
			s.onRequest(bridge.Request{Type: ev.Type})
		}
	case EventWebviewClosed:
		if s.onConfig != nil {
			s.onConfig(bridge.ConfigReturn{Type: ev.Type, Response: ev.Response})
		}
	default:
		s.log.Warn("ignoring unknown event", zap.String("type", ev.Type))
	}
}

var (
	_ bridge.EventSource = (*Stream)(nil)
	_ bridge.Sender      = (*Stream)(nil)
)
