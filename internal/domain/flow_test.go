package domain

import (
	"testing"
	"time"
)

func TestFlowConfigAllowsRequest(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000).UTC()
	recent := now.Add(-time.Hour)
	old := now.Add(-48 * time.Hour)
	cfg := DefaultFlowConfig()

	testCases := []struct {
		name string
		info *NotificationDenialInfo
		want bool
	}{
		{name: "no history allows", info: nil, want: true},
		{
			name: "permanent denial blocks",
			info: &NotificationDenialInfo{IsPermanent: true, DenialCount: 1, RequestAttemptCount: 1},
			want: false,
		},
		{
			name: "denial cap reached blocks",
			info: &NotificationDenialInfo{DenialCount: 3, RequestAttemptCount: 3, LastRequestAttemptTime: &old},
			want: false,
		},
		{
			name: "recent attempt blocks",
			info: &NotificationDenialInfo{DenialCount: 1, RequestAttemptCount: 1, LastRequestAttemptTime: &recent},
			want: false,
		},
		{
			name: "old attempt under cap allows",
			info: &NotificationDenialInfo{DenialCount: 1, RequestAttemptCount: 2, LastRequestAttemptTime: &old},
			want: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := cfg.AllowsRequest(tc.info, now); got != tc.want {
				t.Fatalf("AllowsRequest() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFlowConfigAllowsSettingsPrompt(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000).UTC()
	cfg := DefaultFlowConfig()
	permanent := &NotificationDenialInfo{IsPermanent: true, DenialCount: 1, RequestAttemptCount: 1}

	if cfg.AllowsSettingsPrompt(nil, nil, now) {
		t.Fatal("settings prompt should require a permanent denial")
	}
	if cfg.AllowsSettingsPrompt(&NotificationDenialInfo{DenialCount: 1, RequestAttemptCount: 1}, nil, now) {
		t.Fatal("non-permanent denial should not allow settings prompt")
	}
	if !cfg.AllowsSettingsPrompt(permanent, nil, now) {
		t.Fatal("first settings prompt after permanent denial should be allowed")
	}

	capped := &GoToSettingsPromptInfo{PromptCount: 2, LastPromptTime: now.Add(-72 * time.Hour)}
	if cfg.AllowsSettingsPrompt(permanent, capped, now) {
		t.Fatal("prompt cap should block further settings prompts")
	}

	recent := &GoToSettingsPromptInfo{PromptCount: 1, LastPromptTime: now.Add(-time.Hour)}
	if cfg.AllowsSettingsPrompt(permanent, recent, now) {
		t.Fatal("recent prompt should block settings prompt within min gap")
	}

	stale := &GoToSettingsPromptInfo{PromptCount: 1, LastPromptTime: now.Add(-48 * time.Hour)}
	if !cfg.AllowsSettingsPrompt(permanent, stale, now) {
		t.Fatal("stale prompt under cap should allow settings prompt")
	}
}

func TestFlowConfigReminderIntervalDays(t *testing.T) {
	t.Parallel()

	cfg := NotificationFlowConfig{ReminderInterval: 7 * 24 * time.Hour}
	if got := cfg.ReminderIntervalDays(); got != 7 {
		t.Fatalf("ReminderIntervalDays() = %d, want 7", got)
	}

	var zero NotificationFlowConfig
	if got := zero.ReminderIntervalDays(); got != 30 {
		t.Fatalf("ReminderIntervalDays() = %d, want default 30", got)
	}
}

func TestFlowConfigZeroValuesUseDefaults(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000).UTC()
	var cfg NotificationFlowConfig

	info := &NotificationDenialInfo{DenialCount: DefaultMaxDenials, RequestAttemptCount: DefaultMaxDenials}
	if cfg.AllowsRequest(info, now) {
		t.Fatal("zero-value config should apply the default denial cap")
	}
}
