package domain

import "time"

// Flow policy defaults. A denial history past MaxDenials means the app stops
// asking; settings prompts are capped separately because they interrupt the
// user harder than the OS dialog does.
const (
	DefaultMaxDenials         = 3
	DefaultMaxSettingsPrompts = 2
	DefaultReminderInterval   = 30 * 24 * time.Hour
	DefaultMinPromptGap       = 24 * time.Hour
)

// NotificationFlowConfig is the parameter object consumed by the tracker's
// prompt decisions. Zero values fall back to the package defaults.
type NotificationFlowConfig struct {
	MaxDenials         int
	MaxSettingsPrompts int
	ReminderInterval   time.Duration
	MinPromptGap       time.Duration
}

func DefaultFlowConfig() NotificationFlowConfig {
	return NotificationFlowConfig{
		MaxDenials:         DefaultMaxDenials,
		MaxSettingsPrompts: DefaultMaxSettingsPrompts,
		ReminderInterval:   DefaultReminderInterval,
		MinPromptGap:       DefaultMinPromptGap,
	}
}

func (c NotificationFlowConfig) normalized() NotificationFlowConfig {
	defaults := DefaultFlowConfig()
	if c.MaxDenials <= 0 {
		c.MaxDenials = defaults.MaxDenials
	}
	if c.MaxSettingsPrompts <= 0 {
		c.MaxSettingsPrompts = defaults.MaxSettingsPrompts
	}
	if c.ReminderInterval <= 0 {
		c.ReminderInterval = defaults.ReminderInterval
	}
	if c.MinPromptGap <= 0 {
		c.MinPromptGap = defaults.MinPromptGap
	}
	return c
}

// ReminderIntervalDays is the configured reminder interval in whole days,
// after falling back to the default for unset configs.
func (c NotificationFlowConfig) ReminderIntervalDays() int {
	return int(c.normalized().ReminderInterval / (24 * time.Hour))
}

// AllowsRequest reports whether the OS permission dialog may be requested
// again given the recorded denial history. A nil history always allows.
func (c NotificationFlowConfig) AllowsRequest(info *NotificationDenialInfo, now time.Time) bool {
	if info == nil {
		return true
	}

	cfg := c.normalized()
	if info.IsPermanent {
		return false
	}
	if info.DenialCount >= cfg.MaxDenials {
		return false
	}
	if info.LastRequestAttemptTime != nil && now.Sub(*info.LastRequestAttemptTime) < cfg.MinPromptGap {
		return false
	}
	return true
}

// AllowsSettingsPrompt reports whether the in-app go-to-settings dialog may
// be shown. It only applies after a permanent denial.
func (c NotificationFlowConfig) AllowsSettingsPrompt(
	denial *NotificationDenialInfo,
	prompt *GoToSettingsPromptInfo,
	now time.Time,
) bool {
	if denial == nil || !denial.IsPermanent {
		return false
	}

	cfg := c.normalized()
	if prompt == nil {
		return true
	}
	if prompt.PromptCount >= cfg.MaxSettingsPrompts {
		return false
	}
	return now.Sub(prompt.LastPromptTime) >= cfg.MinPromptGap
}
