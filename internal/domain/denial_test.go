package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNotificationDenialInfoRoundTrip(t *testing.T) {
	t.Parallel()

	attemptTime := time.UnixMilli(1_700_000_123_456).UTC()
	testCases := []struct {
		name string
		info NotificationDenialInfo
	}{
		{
			name: "all fields set",
			info: NotificationDenialInfo{
				LastDenialTime:         time.UnixMilli(1_700_000_000_000).UTC(),
				DenialCount:            3,
				IsPermanent:            true,
				RequestAttemptCount:    5,
				LastRequestAttemptTime: &attemptTime,
				LastRequestWasBlocked:  true,
			},
		},
		{
			name: "optional attempt time absent",
			info: NotificationDenialInfo{
				LastDenialTime:      time.UnixMilli(1_600_000_000_000).UTC(),
				DenialCount:         1,
				RequestAttemptCount: 1,
			},
		},
		{
			name: "zero value",
			info: NotificationDenialInfo{LastDenialTime: time.UnixMilli(0).UTC()},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			payload, err := json.Marshal(tc.info)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}

			var decoded NotificationDenialInfo
			if err := json.Unmarshal(payload, &decoded); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}

			if !decoded.Equal(tc.info) {
				t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, tc.info)
			}
		})
	}
}

func TestNotificationDenialInfoWireShape(t *testing.T) {
	t.Parallel()

	info := NotificationDenialInfo{
		LastDenialTime:      time.UnixMilli(1_700_000_000_000).UTC(),
		DenialCount:         2,
		RequestAttemptCount: 4,
	}

	payload, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	raw := string(payload)
	if !strings.Contains(raw, `"lastDenialTime":1700000000000`) {
		t.Fatalf("lastDenialTime should serialize as epoch millis, got %s", raw)
	}
	if !strings.Contains(raw, `"lastRequestAttemptTime":null`) {
		t.Fatalf("absent attempt time should serialize as null, got %s", raw)
	}
}

func TestNotificationDenialInfoValidate(t *testing.T) {
	t.Parallel()

	valid := NotificationDenialInfo{DenialCount: 2, RequestAttemptCount: 3}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	invalid := NotificationDenialInfo{DenialCount: 3, RequestAttemptCount: 2}
	if err := invalid.Validate(); err == nil {
		t.Fatal("Validate() should reject attempt count below denial count")
	}

	negative := NotificationDenialInfo{DenialCount: -1}
	if err := negative.Validate(); err == nil {
		t.Fatal("Validate() should reject negative denial count")
	}
}

func TestGoToSettingsPromptInfoRoundTrip(t *testing.T) {
	t.Parallel()

	info := GoToSettingsPromptInfo{
		LastPromptTime:            time.UnixMilli(1_700_000_555_000).UTC(),
		PromptCount:               2,
		LastActionWasOpenSettings: true,
	}

	payload, err := json.Marshal(info)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded GoToSettingsPromptInfo
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.Equal(info) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, info)
	}
}
