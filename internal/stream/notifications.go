package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/dtroode/workdesk-client/internal/logger"
	"github.com/dtroode/workdesk-client/internal/metrics"
	"github.com/dtroode/workdesk-client/internal/model"
)

// TokenSource is what the notification client needs from the auth session.
type TokenSource interface {
	StreamToken(ctx context.Context) (string, error)
}

// NotificationClient consumes the workflow notification stream. It builds
// the connection URL (the SSE channel cannot carry custom headers, so the
// credential travels as a query parameter), interprets the event taxonomy,
// and reconciles the local cursor against server-reported state.
type NotificationClient struct {
	transport   *Transport
	tokens      TokenSource
	baseURL     string
	path        string
	windowHours int
	logger      *logger.Logger

	mu    sync.RWMutex
	state model.CursorState

	events chan model.StreamEvent
}

// NewNotificationClient creates a new NotificationClient.
func NewNotificationClient(transport *Transport, tokens TokenSource, baseURL, path string, windowHours int, logger *logger.Logger) *NotificationClient {
	return &NotificationClient{
		transport:   transport,
		tokens:      tokens,
		baseURL:     baseURL,
		path:        path,
		windowHours: windowHours,
		logger:      logger,
		events:      make(chan model.StreamEvent, 16),
	}
}

// Events returns interpreted stream events in arrival order. Error events
// are delivered as ordinary elements; only transport-level failures end
// the sequence.
func (c *NotificationClient) Events() <-chan model.StreamEvent {
	return c.events
}

// State returns a copy of the current cursor state.
func (c *NotificationClient) State() model.CursorState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *NotificationClient) streamURL(ctx context.Context) (string, error) {
	token, err := c.tokens.StreamToken(ctx)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse base URL: %w", err)
	}
	u.Path = c.path

	q := u.Query()
	q.Set("token", token)
	q.Set("windowHours", strconv.Itoa(c.windowHours))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Run connects and applies stream events until the context is canceled or
// the stream terminates. Not restartable: the events channel closes when
// Run returns.
func (c *NotificationClient) Run(ctx context.Context) error {
	defer close(c.events)

	streamURL, err := c.streamURL(ctx)
	if err != nil {
		return fmt.Errorf("failed to build stream URL: %w", err)
	}

	s := c.transport.Connect(ctx, streamURL)
	defer s.Close()

	for ev := range s.Events() {
		if err := c.apply(ctx, ev); err != nil {
			return err
		}
	}

	if err := s.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStreamClosed, err)
	}
	return ctx.Err()
}

// apply interprets a single transport event and forwards it to the
// consumer. Events are applied strictly in arrival order, never reordered
// or coalesced.
func (c *NotificationClient) apply(ctx context.Context, ev Event) error {
	metrics.StreamEvents.WithLabelValues(ev.Name).Inc()

	var out model.StreamEvent
	switch ev.Name {
	case model.EventSnapshot:
		if err := json.Unmarshal(ev.Data, &out); err != nil {
			return fmt.Errorf("failed to decode snapshot event: %w", err)
		}
		out.Kind = model.StreamEventSnapshot
		c.applySnapshot(out)
	case model.EventChanged:
		if err := json.Unmarshal(ev.Data, &out); err != nil {
			return fmt.Errorf("failed to decode changed event: %w", err)
		}
		out.Kind = model.StreamEventChanged
		c.applyChanged(out)
	case model.EventError:
		if err := json.Unmarshal(ev.Data, &out); err != nil {
			return fmt.Errorf("failed to decode error event: %w", err)
		}
		out.Kind = model.StreamEventError
		c.logger.Info("NotificationClient: server reported stream error", "message", out.Message)
	default:
		c.logger.Debug("NotificationClient: ignoring unknown event", "event", ev.Name)
		return nil
	}

	select {
	case c.events <- out:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// applySnapshot is an authoritative full reset: the server state replaces
// local state wholesale, even when the new cursor is numerically lower.
func (c *NotificationClient) applySnapshot(ev model.StreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = model.CursorState{
		Cursor:             ev.Cursor,
		WindowHours:        ev.WindowHours,
		LastNotificationID: ev.LastNotificationID,
		LastUpdatedAt:      ev.LastUpdatedAt,
	}
}

// applyChanged advances the cursor and last-notification fields.
func (c *NotificationClient) applyChanged(ev model.StreamEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Cursor = ev.Cursor
	if ev.WindowHours > 0 {
		c.state.WindowHours = ev.WindowHours
	}
	if ev.LastNotificationID != nil {
		c.state.LastNotificationID = ev.LastNotificationID
	}
	if ev.LastUpdatedAt != nil {
		c.state.LastUpdatedAt = ev.LastUpdatedAt
	}
}
