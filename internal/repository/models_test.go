package repository

import (
	"testing"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
)

func TestEventModelMapping(t *testing.T) {
	t.Parallel()

	permanent := true
	event := &domain.PermissionEvent{
		EventID:             "e-1",
		CorrelationID:       "req-123",
		InstallID:           "install-1",
		Type:                domain.EventDenialRecorded,
		Permanent:           &permanent,
		DenialCount:         2,
		RequestAttemptCount: 3,
		OccurredAt:          time.UnixMilli(1_700_000_000_000).UTC(),
	}

	model := eventModelFromDomain(event)
	if model.ID != "e-1" || model.InstallID != "install-1" {
		t.Fatalf("model = %+v", model)
	}
	if model.EventType != domain.EventDenialRecorded {
		t.Fatalf("event type = %s", model.EventType)
	}
	if model.Permanent == nil || !*model.Permanent {
		t.Fatal("permanent flag should carry over")
	}
	if model.OpenedSettings != nil {
		t.Fatal("absent optional fields should stay nil")
	}

	back := eventModelToDomain(model)
	if back.EventID != event.EventID ||
		back.CorrelationID != event.CorrelationID ||
		back.Type != event.Type ||
		back.DenialCount != event.DenialCount ||
		back.RequestAttemptCount != event.RequestAttemptCount ||
		!back.OccurredAt.Equal(event.OccurredAt) {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, event)
	}

	if eventModelFromDomain(nil) != nil {
		t.Fatal("nil event should map to nil model")
	}
	if eventModelToDomain(nil) != nil {
		t.Fatal("nil model should map to nil event")
	}
}
