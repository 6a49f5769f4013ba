package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/workdesk-client/internal/logger"
	"github.com/dtroode/workdesk-client/internal/model"
)

const notificationsPath = "/api/v1/notifications"

// Client is a thin typed client over the intercepted HTTP transport for
// the protected REST endpoints.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *logger.Logger
}

// NewClient creates a new REST client. The transport is expected to be an
// Interceptor-wrapped one.
func NewClient(baseURL string, transport http.RoundTripper, timeout time.Duration, logger *logger.Logger) *Client {
	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// ListNotifications fetches the current notification set.
func (c *Client) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	if err := c.get(ctx, notificationsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetNotification fetches a single notification record. This is the
// reconciliation fetch a `changed` stream event directs the consumer to.
func (c *Client) GetNotification(ctx context.Context, id int64) (model.Notification, error) {
	var out model.Notification
	if err := c.get(ctx, fmt.Sprintf("%s/%d", notificationsPath, id), &out); err != nil {
		return model.Notification{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	requestID := uuid.NewString()
	ctx = WithRequestID(ctx, requestID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return model.ErrUnauthorized
	case http.StatusNotFound:
		return model.ErrNotFound
	default:
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
