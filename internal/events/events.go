// Package events carries permission-flow events from the API to the audit
// worker over a durable broker queue.
package events

import (
	"context"

	"github.com/dreamic/permission-tracker/internal/domain"
)

const (
	// QueueName is the durable work queue for permission events.
	QueueName = "permission.events"
	// DLQName receives events rejected as unparseable or invalid.
	DLQName = "dlq.permission.events"

	dlxExchangeName = "dreamic.dlx"
	dlqRoutingKey   = "permission.events"
)

// Publisher publishes permission events to the broker.
type Publisher interface {
	Publish(ctx context.Context, event domain.PermissionEvent) error
	Close() error
}

// EventHandler handles one consumed permission event. Returning an error
// requeues the delivery.
type EventHandler func(ctx context.Context, event domain.PermissionEvent) error

// Consumer consumes permission events until context cancellation.
type Consumer interface {
	Consume(ctx context.Context, handler EventHandler) error
	Close() error
}
