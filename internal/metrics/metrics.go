// Package metrics exposes Prometheus counters for the authenticated
// request/event pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenRefreshes counts refresh attempts by result ("ok" or "error").
	// Single-flight coalescing means this counts actual refresh calls,
	// not the number of requests waiting on them.
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workdesk_client_token_refresh_total",
		Help: "Token refresh attempts by result.",
	}, []string{"result"})

	// RequestRetries counts requests retried after a coordinated refresh.
	RequestRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workdesk_client_request_retries_total",
		Help: "API requests retried once after a 401-triggered refresh.",
	})

	// StreamReconnects counts notification stream reconnect attempts.
	StreamReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "workdesk_client_stream_reconnects_total",
		Help: "Notification stream reconnect attempts.",
	})

	// StreamEvents counts received stream events by event name.
	StreamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "workdesk_client_stream_events_total",
		Help: "Notification stream events received by name.",
	}, []string{"event"})
)
