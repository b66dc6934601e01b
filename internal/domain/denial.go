package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// NotificationDenialInfo is the per-install history of explicit
// permission-denial events and request attempts.
//
// RequestAttemptCount counts every attempt, including ones the platform
// suppressed without showing a dialog; DenialCount only counts attempts the
// user explicitly declined. RequestAttemptCount >= DenialCount always holds.
type NotificationDenialInfo struct {
	LastDenialTime         time.Time
	DenialCount            int
	IsPermanent            bool
	RequestAttemptCount    int
	LastRequestAttemptTime *time.Time
	LastRequestWasBlocked  bool
}

// denialInfoWire is the stored JSON shape. Timestamps are epoch millis; the
// optional attempt timestamp serializes as null when absent.
type denialInfoWire struct {
	LastDenialTime         int64  `json:"lastDenialTime"`
	DenialCount            int    `json:"denialCount"`
	IsPermanent            bool   `json:"isPermanent"`
	RequestAttemptCount    int    `json:"requestAttemptCount"`
	LastRequestAttemptTime *int64 `json:"lastRequestAttemptTime"`
	LastRequestWasBlocked  bool   `json:"lastRequestWasBlocked"`
}

func (i NotificationDenialInfo) MarshalJSON() ([]byte, error) {
	wire := denialInfoWire{
		LastDenialTime:        i.LastDenialTime.UnixMilli(),
		DenialCount:           i.DenialCount,
		IsPermanent:           i.IsPermanent,
		RequestAttemptCount:   i.RequestAttemptCount,
		LastRequestWasBlocked: i.LastRequestWasBlocked,
	}
	if i.LastRequestAttemptTime != nil {
		millis := i.LastRequestAttemptTime.UnixMilli()
		wire.LastRequestAttemptTime = &millis
	}
	return json.Marshal(wire)
}

func (i *NotificationDenialInfo) UnmarshalJSON(data []byte) error {
	var wire denialInfoWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*i = NotificationDenialInfo{
		LastDenialTime:        time.UnixMilli(wire.LastDenialTime).UTC(),
		DenialCount:           wire.DenialCount,
		IsPermanent:           wire.IsPermanent,
		RequestAttemptCount:   wire.RequestAttemptCount,
		LastRequestWasBlocked: wire.LastRequestWasBlocked,
	}
	if wire.LastRequestAttemptTime != nil {
		attemptTime := time.UnixMilli(*wire.LastRequestAttemptTime).UTC()
		i.LastRequestAttemptTime = &attemptTime
	}
	return nil
}

func (i NotificationDenialInfo) Validate() error {
	if i.DenialCount < 0 {
		return fmt.Errorf("%w: denial count must not be negative", ErrValidation)
	}
	if i.RequestAttemptCount < i.DenialCount {
		return fmt.Errorf("%w: request attempt count %d below denial count %d",
			ErrValidation, i.RequestAttemptCount, i.DenialCount)
	}
	return nil
}

// Equal compares field-wise, treating timestamps by instant rather than by
// location or monotonic reading.
func (i NotificationDenialInfo) Equal(other NotificationDenialInfo) bool {
	if !i.LastDenialTime.Equal(other.LastDenialTime) {
		return false
	}
	if (i.LastRequestAttemptTime == nil) != (other.LastRequestAttemptTime == nil) {
		return false
	}
	if i.LastRequestAttemptTime != nil && !i.LastRequestAttemptTime.Equal(*other.LastRequestAttemptTime) {
		return false
	}
	return i.DenialCount == other.DenialCount &&
		i.IsPermanent == other.IsPermanent &&
		i.RequestAttemptCount == other.RequestAttemptCount &&
		i.LastRequestWasBlocked == other.LastRequestWasBlocked
}
