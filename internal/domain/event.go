package domain

import (
	"fmt"
	"strings"
	"time"
)

// EventType classifies a permission-flow event on the audit stream.
type EventType string

const (
	EventDenialRecorded         EventType = "DENIAL_RECORDED"
	EventBlockedRequestRecorded EventType = "BLOCKED_REQUEST_RECORDED"
	EventSettingsPromptRecorded EventType = "SETTINGS_PROMPT_RECORDED"
	EventPermissionGranted      EventType = "PERMISSION_GRANTED"
)

func (t EventType) String() string { return string(t) }

func (t EventType) IsValid() bool {
	switch t {
	case EventDenialRecorded, EventBlockedRequestRecorded, EventSettingsPromptRecorded, EventPermissionGranted:
		return true
	}
	return false
}

func ParseEventTypeFromString(s string) (EventType, error) {
	t := EventType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid event type %q", ErrValidation, s)
	}
	return t, nil
}

// PermissionEvent is one permission-flow occurrence for an install. Events
// are published to the broker on every record operation and persisted by the
// audit worker.
type PermissionEvent struct {
	EventID             string    `json:"eventId"`
	CorrelationID       string    `json:"correlationId,omitempty"`
	InstallID           string    `json:"installId"`
	Type                EventType `json:"type"`
	Permanent           *bool     `json:"permanent,omitempty"`
	OpenedSettings      *bool     `json:"openedSettings,omitempty"`
	DenialCount         int       `json:"denialCount"`
	RequestAttemptCount int       `json:"requestAttemptCount"`
	OccurredAt          time.Time `json:"occurredAt"`
}

func (e PermissionEvent) Validate() error {
	if strings.TrimSpace(e.EventID) == "" {
		return fmt.Errorf("%w: event id is required", ErrValidation)
	}
	if strings.TrimSpace(e.InstallID) == "" {
		return fmt.Errorf("%w: install id is required", ErrValidation)
	}
	if !e.Type.IsValid() {
		return fmt.Errorf("%w: invalid event type %q", ErrValidation, e.Type)
	}
	if e.OccurredAt.IsZero() {
		return fmt.Errorf("%w: occurredAt is required", ErrValidation)
	}
	return nil
}
