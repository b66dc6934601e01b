// Package tracker decides, across app sessions, whether and how aggressively
// to re-prompt a user for notification permission. It is the single owner of
// the denial and settings-prompt records in the key-value store.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
	"github.com/dreamic/permission-tracker/internal/kvstore"
	"go.uber.org/zap"
)

// DefaultReminderIntervalDays is used when a caller asks for the periodic
// reminder decision without a specific interval.
const DefaultReminderIntervalDays = 30

// Tracker is the permission-prompt history for one install, backed by a
// (typically namespaced) key-value store view.
//
// Mutations are read-modify-write on a single key each; two concurrent
// writers for the same install can under-count by one. Permission flows are
// human-paced, so that relaxed contract is acceptable.
type Tracker struct {
	store    kvstore.Store
	logger   *zap.Logger
	now      func() time.Time
	migrated atomic.Bool
}

func New(store kvstore.Store, logger *zap.Logger) (*Tracker, error) {
	return newTracker(store, logger, time.Now)
}

func newTracker(store kvstore.Store, logger *zap.Logger, nowFn func() time.Time) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("key-value store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &Tracker{
		store:  store,
		logger: logger,
		now:    nowFn,
	}, nil
}

// GetDenialInfo returns the stored denial record, or nil when none exists.
// Corrupt stored JSON is treated as absent so a damaged local record never
// blocks the permission flow.
func (t *Tracker) GetDenialInfo(ctx context.Context) (*domain.NotificationDenialInfo, error) {
	if err := t.ensureMigrated(ctx); err != nil {
		return nil, err
	}
	return t.readDenialInfo(ctx)
}

func (t *Tracker) readDenialInfo(ctx context.Context) (*domain.NotificationDenialInfo, error) {
	raw, ok, err := t.store.GetString(ctx, keyDenialInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to read denial info: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var info domain.NotificationDenialInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		t.logger.Warn("discarding corrupt denial info record", zap.Error(err))
		return nil, nil
	}
	return &info, nil
}

func (t *Tracker) writeDenialInfo(ctx context.Context, info domain.NotificationDenialInfo) error {
	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode denial info: %w", err)
	}
	if err := t.store.SetString(ctx, keyDenialInfo, string(payload)); err != nil {
		return fmt.Errorf("failed to write denial info: %w", err)
	}
	return nil
}

// ClearDenialInfo deletes the denial record. Idempotent.
func (t *Tracker) ClearDenialInfo(ctx context.Context) error {
	if err := t.ensureMigrated(ctx); err != nil {
		return err
	}
	if err := t.store.Delete(ctx, keyDenialInfo); err != nil {
		return fmt.Errorf("failed to clear denial info: %w", err)
	}
	return nil
}

// GetSettingsPromptInfo returns the stored go-to-settings record, or nil
// when none exists. Corrupt JSON is treated as absent.
func (t *Tracker) GetSettingsPromptInfo(ctx context.Context) (*domain.GoToSettingsPromptInfo, error) {
	if err := t.ensureMigrated(ctx); err != nil {
		return nil, err
	}
	return t.readSettingsPromptInfo(ctx)
}

func (t *Tracker) readSettingsPromptInfo(ctx context.Context) (*domain.GoToSettingsPromptInfo, error) {
	raw, ok, err := t.store.GetString(ctx, keySettingsPromptInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings prompt info: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var info domain.GoToSettingsPromptInfo
	if err := json.Unmarshal([]byte(raw), &info); err != nil {
		t.logger.Warn("discarding corrupt settings prompt record", zap.Error(err))
		return nil, nil
	}
	return &info, nil
}

// ClearSettingsPromptInfo deletes the go-to-settings record. Idempotent.
func (t *Tracker) ClearSettingsPromptInfo(ctx context.Context) error {
	if err := t.ensureMigrated(ctx); err != nil {
		return err
	}
	if err := t.store.Delete(ctx, keySettingsPromptInfo); err != nil {
		return fmt.Errorf("failed to clear settings prompt info: %w", err)
	}
	return nil
}

// RecordDenial records an attempt where the OS dialog was shown and the
// user declined. permanent marks a platform "don't ask again" response.
func (t *Tracker) RecordDenial(ctx context.Context, permanent bool) (*domain.NotificationDenialInfo, error) {
	if err := t.ensureMigrated(ctx); err != nil {
		return nil, err
	}

	info, err := t.readDenialInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = &domain.NotificationDenialInfo{}
	}

	now := t.now().UTC()
	info.DenialCount++
	info.RequestAttemptCount++
	info.LastDenialTime = now
	info.IsPermanent = permanent
	info.LastRequestAttemptTime = &now
	info.LastRequestWasBlocked = false

	if err := t.writeDenialInfo(ctx, *info); err != nil {
		return nil, err
	}
	if err := t.store.SetBool(ctx, keyHasRequested, true); err != nil {
		return nil, fmt.Errorf("failed to set has-requested flag: %w", err)
	}
	return info, nil
}

// RecordBlockedRequest records an attempt the platform suppressed without
// showing a dialog. The denial count, last denial time, and permanence are
// left untouched; conflating throttled prompts with explicit denials would
// trip give-up thresholds early.
func (t *Tracker) RecordBlockedRequest(ctx context.Context) (*domain.NotificationDenialInfo, error) {
	if err := t.ensureMigrated(ctx); err != nil {
		return nil, err
	}

	info, err := t.readDenialInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = &domain.NotificationDenialInfo{}
	}

	now := t.now().UTC()
	info.RequestAttemptCount++
	info.LastRequestAttemptTime = &now
	info.LastRequestWasBlocked = true

	if err := t.writeDenialInfo(ctx, *info); err != nil {
		return nil, err
	}
	if err := t.store.SetBool(ctx, keyHasRequested, true); err != nil {
		return nil, fmt.Errorf("failed to set has-requested flag: %w", err)
	}
	return info, nil
}

// RecordSettingsPrompt records that the go-to-settings dialog was shown and
// whether the user chose to open settings or dismissed it.
func (t *Tracker) RecordSettingsPrompt(ctx context.Context, openedSettings bool) (*domain.GoToSettingsPromptInfo, error) {
	if err := t.ensureMigrated(ctx); err != nil {
		return nil, err
	}

	info, err := t.readSettingsPromptInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info == nil {
		info = &domain.GoToSettingsPromptInfo{}
	}

	info.PromptCount++
	info.LastPromptTime = t.now().UTC()
	info.LastActionWasOpenSettings = openedSettings

	payload, err := json.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings prompt info: %w", err)
	}
	if err := t.store.SetString(ctx, keySettingsPromptInfo, string(payload)); err != nil {
		return nil, fmt.Errorf("failed to write settings prompt info: %w", err)
	}
	return info, nil
}

// HasRequestedBefore reports whether any request attempt was ever recorded,
// including before a grant cleared the history.
func (t *Tracker) HasRequestedBefore(ctx context.Context) (bool, error) {
	if err := t.ensureMigrated(ctx); err != nil {
		return false, err
	}

	requested, ok, err := t.store.GetBool(ctx, keyHasRequested)
	if err != nil {
		return false, fmt.Errorf("failed to read has-requested flag: %w", err)
	}
	if !ok {
		return false, nil
	}
	return requested, nil
}

// DenialCount returns the recorded denial count, 0 when no record exists.
func (t *Tracker) DenialCount(ctx context.Context) (int, error) {
	info, err := t.GetDenialInfo(ctx)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, nil
	}
	return info.DenialCount, nil
}

// RequestAttemptCount returns the recorded attempt count, 0 when no record
// exists.
func (t *Tracker) RequestAttemptCount(ctx context.Context) (int, error) {
	info, err := t.GetDenialInfo(ctx)
	if err != nil {
		return 0, err
	}
	if info == nil {
		return 0, nil
	}
	return info.RequestAttemptCount, nil
}

// ShouldShowPeriodicReminder reports whether the periodic in-app reminder is
// due: true when none was ever shown, or when more than intervalDays have
// elapsed since the last one. Non-positive intervals fall back to the
// 30-day default.
func (t *Tracker) ShouldShowPeriodicReminder(ctx context.Context, intervalDays int) (bool, error) {
	if err := t.ensureMigrated(ctx); err != nil {
		return false, err
	}

	if intervalDays <= 0 {
		intervalDays = DefaultReminderIntervalDays
	}

	lastMillis, ok, err := t.store.GetInt64(ctx, keyLastReminderDate)
	if err != nil {
		return false, fmt.Errorf("failed to read last reminder date: %w", err)
	}
	if !ok {
		return true, nil
	}

	elapsed := t.now().UTC().Sub(time.UnixMilli(lastMillis).UTC())
	return elapsed > time.Duration(intervalDays)*24*time.Hour, nil
}

// TouchReminder sets the last periodic-reminder timestamp to now.
func (t *Tracker) TouchReminder(ctx context.Context) error {
	if err := t.ensureMigrated(ctx); err != nil {
		return err
	}
	if err := t.store.SetInt64(ctx, keyLastReminderDate, t.now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("failed to write last reminder date: %w", err)
	}
	return nil
}

// ClearIfGranted resets the denial and settings-prompt history once the
// caller has observed that permission is granted. The has-requested flag and
// last reminder date survive as historical markers.
func (t *Tracker) ClearIfGranted(ctx context.Context) error {
	if err := t.ensureMigrated(ctx); err != nil {
		return err
	}
	if err := t.store.Delete(ctx, keyDenialInfo, keySettingsPromptInfo); err != nil {
		return fmt.Errorf("failed to clear permission history: %w", err)
	}
	return nil
}

// Snapshot is the combined tracker state used by the read API.
type Snapshot struct {
	DenialInfo         *domain.NotificationDenialInfo
	SettingsPromptInfo *domain.GoToSettingsPromptInfo
	HasRequested       bool
}

// GetSnapshot reads all tracker state in one call.
func (t *Tracker) GetSnapshot(ctx context.Context) (*Snapshot, error) {
	denial, err := t.GetDenialInfo(ctx)
	if err != nil {
		return nil, err
	}
	prompt, err := t.GetSettingsPromptInfo(ctx)
	if err != nil {
		return nil, err
	}
	requested, err := t.HasRequestedBefore(ctx)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		DenialInfo:         denial,
		SettingsPromptInfo: prompt,
		HasRequested:       requested,
	}, nil
}
