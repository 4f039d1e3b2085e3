package client

import (
	"context"
	"time"

	events "github.com/asaidimu/go-events"
)

// RequestEventType identifies a request lifecycle event.
type RequestEventType string

// Emitted event types. Every operation emits start first, then exactly
// one of success or failed.
const (
	RequestStart   RequestEventType = "request:start"
	RequestSuccess RequestEventType = "request:success"
	RequestFailed  RequestEventType = "request:failed"
)

// RequestEvent describes one point in a request's lifecycle.
type RequestEvent struct {
	Type      RequestEventType `json:"type"`
	Timestamp int64            `json:"timestamp"` // Unix milliseconds
	Operation string           `json:"operation"` // select, insert, upsert, update, delete
	Resource  string           `json:"resource"`
	URL       string           `json:"url,omitempty"`
	Status    int              `json:"status,omitempty"`
	Error     *string          `json:"error,omitempty"`
	Duration  *int64           `json:"duration,omitempty"` // milliseconds
}

// EventCallback receives lifecycle events for a subscription.
type EventCallback func(ctx context.Context, event RequestEvent) error

func createEvent(eventType RequestEventType, operation, resource, url string, status int, err *string, startTime time.Time) RequestEvent {
	var duration *int64
	if !startTime.IsZero() && eventType != RequestStart {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}
	return RequestEvent{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Operation: operation,
		Resource:  resource,
		URL:       url,
		Status:    status,
		Error:     err,
		Duration:  duration,
	}
}

// emitEvent is a helper method to emit events.
func (c *Client) emitEvent(event RequestEvent) {
	if c.bus != nil {
		c.bus.Emit(string(event.Type), event)
	}
}

// Subscribe registers a callback for a lifecycle event type and returns
// the unsubscribe function.
func (c *Client) Subscribe(event RequestEventType, cb EventCallback) func() {
	return c.bus.Subscribe(string(event), func(ctx context.Context, e RequestEvent) error {
		return cb(ctx, e)
	})
}

func newEventBus() (*events.TypedEventBus[RequestEvent], error) {
	return events.NewTypedEventBus[RequestEvent](events.DefaultConfig())
}
