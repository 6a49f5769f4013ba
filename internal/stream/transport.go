// Package stream implements the server-push event pipeline: a transport
// for long-lived SSE connections and the notification client consuming it.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dtroode/workdesk-client/internal/logger"
	"github.com/dtroode/workdesk-client/internal/metrics"
)

// Event is a single named server-sent event with its raw payload.
type Event struct {
	Name string
	ID   string
	Data []byte
}

// Stream is a lazy, potentially infinite, non-restartable sequence of
// events. The events channel closes on terminal failure or Close; Err
// reports the terminal error afterwards (nil on clean close).
type Stream struct {
	events chan Event
	cancel context.CancelFunc

	closeOnce sync.Once

	mu  sync.Mutex
	err error

	// lastID is touched only by the reader goroutine.
	lastID string
}

// Events returns the event channel.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Err returns the terminal stream error. Valid after Events is closed.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close tears the connection down. Safe to call multiple times.
func (s *Stream) Close() {
	s.closeOnce.Do(s.cancel)
}

func (s *Stream) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Transport wraps long-lived SSE connections. It owns the reconnection
// policy: transient network failures reconnect with exponential backoff,
// while protocol-level rejections terminate the stream. It knows nothing
// about notification semantics.
type Transport struct {
	http       *http.Client
	maxBackoff time.Duration
	logger     *logger.Logger
}

// NewTransport creates a new Transport over the given base transport.
// The internal http.Client carries no overall timeout: the connection is
// expected to stay open indefinitely between events.
func NewTransport(base http.RoundTripper, maxBackoff time.Duration, logger *logger.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		http:       &http.Client{Transport: base},
		maxBackoff: maxBackoff,
		logger:     logger,
	}
}

// Connect opens the stream at the given URL. The returned Stream stays
// alive across reconnects until a terminal failure, Close, or context
// cancellation.
func (t *Transport) Connect(ctx context.Context, url string) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		events: make(chan Event),
		cancel: cancel,
	}
	go t.run(ctx, url, s)
	return s
}

// statusError is a terminal, non-retryable rejection from the endpoint.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("stream endpoint returned status %d", e.code)
}

func (t *Transport) run(ctx context.Context, url string, s *Stream) {
	defer close(s.events)

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = t.maxBackoff
	bo.MaxElapsedTime = 0

	for {
		delivered, err := t.consume(ctx, url, s)

		if ctx.Err() != nil {
			return
		}

		var se *statusError
		if errors.As(err, &se) {
			s.setErr(err)
			return
		}

		if delivered {
			bo.Reset()
		}

		wait := bo.NextBackOff()
		t.logger.Debug("Stream: connection lost, reconnecting",
			"url", url,
			"wait", wait,
			"error", errString(err))
		metrics.StreamReconnects.Inc()

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// consume runs a single connection attempt, forwarding parsed events
// until the connection drops. It reports whether any event was delivered.
func (t *Transport) consume(ctx context.Context, url string, s *Stream) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.lastID != "" {
		req.Header.Set("Last-Event-ID", s.lastID)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to connect stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return false, &statusError{code: resp.StatusCode}
	}

	delivered := false
	var ev Event
	var data bytes.Buffer

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if line == "" {
			// Blank line dispatches the accumulated event.
			if ev.Name != "" || data.Len() > 0 {
				ev.Data = append([]byte(nil), data.Bytes()...)
				if ev.ID != "" {
					s.lastID = ev.ID
				}
				select {
				case s.events <- ev:
					delivered = true
				case <-ctx.Done():
					return delivered, ctx.Err()
				}
			}
			ev = Event{}
			data.Reset()
			continue
		}

		if strings.HasPrefix(line, ":") {
			// Comment line, typically a keepalive.
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")

		switch field {
		case "event":
			ev.Name = value
		case "data":
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(value)
		case "id":
			ev.ID = value
		}
	}

	if err := scanner.Err(); err != nil {
		return delivered, fmt.Errorf("failed to read stream: %w", err)
	}
	// Server closed the response cleanly; treat as a disconnect.
	return delivered, nil
}

func errString(err error) string {
	if err == nil {
		return "connection closed"
	}
	return err.Error()
}
