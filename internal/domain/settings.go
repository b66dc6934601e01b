package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// GoToSettingsPromptInfo is the per-install history of in-app prompts that
// redirect the user to system settings after a permanent denial.
type GoToSettingsPromptInfo struct {
	LastPromptTime            time.Time
	PromptCount               int
	LastActionWasOpenSettings bool
}

type settingsPromptWire struct {
	LastPromptTime            int64 `json:"lastPromptTime"`
	PromptCount               int   `json:"promptCount"`
	LastActionWasOpenSettings bool  `json:"lastActionWasOpenSettings"`
}

func (i GoToSettingsPromptInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(settingsPromptWire{
		LastPromptTime:            i.LastPromptTime.UnixMilli(),
		PromptCount:               i.PromptCount,
		LastActionWasOpenSettings: i.LastActionWasOpenSettings,
	})
}

func (i *GoToSettingsPromptInfo) UnmarshalJSON(data []byte) error {
	var wire settingsPromptWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*i = GoToSettingsPromptInfo{
		LastPromptTime:            time.UnixMilli(wire.LastPromptTime).UTC(),
		PromptCount:               wire.PromptCount,
		LastActionWasOpenSettings: wire.LastActionWasOpenSettings,
	}
	return nil
}

func (i GoToSettingsPromptInfo) Validate() error {
	if i.PromptCount < 0 {
		return fmt.Errorf("%w: prompt count must not be negative", ErrValidation)
	}
	return nil
}

func (i GoToSettingsPromptInfo) Equal(other GoToSettingsPromptInfo) bool {
	return i.LastPromptTime.Equal(other.LastPromptTime) &&
		i.PromptCount == other.PromptCount &&
		i.LastActionWasOpenSettings == other.LastActionWasOpenSettings
}
