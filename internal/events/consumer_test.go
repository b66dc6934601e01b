package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
	rejected bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked = true
	a.requeued = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.rejected = true
	a.requeued = requeue
	return nil
}

func validEventBody(t *testing.T) []byte {
	t.Helper()

	payload, err := json.Marshal(domain.PermissionEvent{
		EventID:    "e-1",
		InstallID:  "install-1",
		Type:       domain.EventDenialRecorded,
		OccurredAt: time.UnixMilli(1_700_000_000_000).UTC(),
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

func TestHandleDeliveryAcksOnSuccess(t *testing.T) {
	t.Parallel()

	consumer := NewRabbitMQConsumer(&RabbitMQ{}, 1, zap.NewNop())
	ack := &fakeAcknowledger{}
	delivery := amqp.Delivery{Acknowledger: ack, Body: validEventBody(t)}

	var handled domain.PermissionEvent
	err := consumer.handleDelivery(context.Background(), delivery, func(_ context.Context, e domain.PermissionEvent) error {
		handled = e
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if !ack.acked {
		t.Fatal("successful handling should ack the delivery")
	}
	if handled.EventID != "e-1" {
		t.Fatalf("handled event id = %q, want e-1", handled.EventID)
	}
}

func TestHandleDeliveryRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	consumer := NewRabbitMQConsumer(&RabbitMQ{}, 1, zap.NewNop())
	ack := &fakeAcknowledger{}
	delivery := amqp.Delivery{Acknowledger: ack, Body: []byte("{not json")}

	err := consumer.handleDelivery(context.Background(), delivery, func(context.Context, domain.PermissionEvent) error {
		t.Fatal("handler must not run for invalid JSON")
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if !ack.rejected || ack.requeued {
		t.Fatalf("invalid JSON should be rejected without requeue, got %+v", ack)
	}
}

func TestHandleDeliveryRejectsInvalidPayload(t *testing.T) {
	t.Parallel()

	consumer := NewRabbitMQConsumer(&RabbitMQ{}, 1, zap.NewNop())
	ack := &fakeAcknowledger{}
	// Well-formed JSON that fails validation: no install id.
	delivery := amqp.Delivery{Acknowledger: ack, Body: []byte(`{"eventId":"e-1"}`)}

	err := consumer.handleDelivery(context.Background(), delivery, func(context.Context, domain.PermissionEvent) error {
		t.Fatal("handler must not run for invalid payloads")
		return nil
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if !ack.rejected || ack.requeued {
		t.Fatalf("invalid payload should be rejected without requeue, got %+v", ack)
	}
}

func TestHandleDeliveryNacksOnHandlerFailure(t *testing.T) {
	t.Parallel()

	consumer := NewRabbitMQConsumer(&RabbitMQ{}, 1, zap.NewNop())
	ack := &fakeAcknowledger{}
	delivery := amqp.Delivery{Acknowledger: ack, Body: validEventBody(t)}

	err := consumer.handleDelivery(context.Background(), delivery, func(context.Context, domain.PermissionEvent) error {
		return errors.New("database down")
	})
	if err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
	if !ack.nacked || !ack.requeued {
		t.Fatalf("handler failure should nack with requeue, got %+v", ack)
	}
}

func TestNewRabbitMQConsumerClampsPrefetch(t *testing.T) {
	t.Parallel()

	consumer := NewRabbitMQConsumer(&RabbitMQ{}, 0, nil)
	if consumer.prefetch != 1 {
		t.Fatalf("prefetch = %d, want clamped to 1", consumer.prefetch)
	}
}
