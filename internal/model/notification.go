package model

import "time"

// Stream event names emitted by the notification stream endpoint.
const (
	EventSnapshot = "workflow_notifications_snapshot"
	EventChanged  = "workflow_notifications_changed"
	EventError    = "workflow_notifications_error"
)

// StreamEventKind tags the variant of a stream event.
type StreamEventKind string

const (
	StreamEventSnapshot StreamEventKind = "snapshot"
	StreamEventChanged  StreamEventKind = "changed"
	StreamEventError    StreamEventKind = "error"
)

// Operation tells the consumer how to reconcile a single changed record.
type Operation string

const (
	OperationCreated Operation = "created"
	OperationUpdated Operation = "updated"
	OperationDeleted Operation = "deleted"
)

// CursorState is the client's last-acknowledged position in the server's
// notification timeline. It never decreases except on a server-driven
// snapshot reset.
type CursorState struct {
	Cursor             int64
	WindowHours        int
	LastNotificationID *int64
	LastUpdatedAt      *time.Time
}

// StreamEvent is a tagged variant of the notification stream taxonomy.
// Cursor fields are meaningful for snapshot and changed kinds; Operation
// and ChangedNotificationID only for changed; Message only for error.
type StreamEvent struct {
	Kind                  StreamEventKind `json:"-"`
	Cursor                int64           `json:"cursor"`
	WindowHours           int             `json:"windowHours"`
	LastNotificationID    *int64          `json:"lastNotificationId"`
	LastUpdatedAt         *time.Time      `json:"lastUpdatedAt"`
	Operation             Operation       `json:"operation,omitempty"`
	ChangedNotificationID int64           `json:"changedNotificationId,omitempty"`
	Message               string          `json:"message,omitempty"`
}

// Notification is a single workflow notification record.
type Notification struct {
	ID         int64      `json:"id"`
	Kind       string     `json:"kind"`
	Subject    string     `json:"subject"`
	DocumentID *int64     `json:"documentId,omitempty"`
	Read       bool       `json:"read"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
}
