package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
	"go.uber.org/zap"
)

// ensureMigrated lazily converts the legacy flat counters into the
// structured records. It runs at the top of every tracker operation and is
// a cheap flag read once migration has completed.
//
// A process killed mid-migration leaves the completion flag unset, so the
// next call runs again. Re-running must not double-count: the denial record
// and reminder date are only written when no new-format value exists yet,
// and the has-requested flag is only ever raised.
func (t *Tracker) ensureMigrated(ctx context.Context) error {
	if t.migrated.Load() {
		return nil
	}

	done, ok, err := t.store.GetBool(ctx, keyKeysMigrated)
	if err != nil {
		return fmt.Errorf("failed to read migration flag: %w", err)
	}
	if ok && done {
		t.migrated.Store(true)
		return nil
	}

	legacyRequests, hadRequests, err := t.store.GetInt64(ctx, legacyKeyRequestCount)
	if err != nil {
		return fmt.Errorf("failed to read legacy request count: %w", err)
	}
	legacyDenials, hadDenials, err := t.store.GetInt64(ctx, legacyKeyDenialCount)
	if err != nil {
		return fmt.Errorf("failed to read legacy denial count: %w", err)
	}
	legacyLastRequest, hadLastRequest, err := t.store.GetInt64(ctx, legacyKeyLastRequestTime)
	if err != nil {
		return fmt.Errorf("failed to read legacy last request time: %w", err)
	}
	legacyReminder, hadReminder, err := t.store.GetInt64(ctx, legacyKeyLastReminderDate)
	if err != nil {
		return fmt.Errorf("failed to read legacy reminder date: %w", err)
	}

	if hadRequests || hadDenials {
		if err := t.migrateDenialInfo(ctx, legacyRequests, legacyDenials, legacyLastRequest, hadLastRequest); err != nil {
			return err
		}
	}

	if hadReminder {
		if err := t.migrateReminderDate(ctx, legacyReminder); err != nil {
			return err
		}
	}

	if legacyRequests > 0 {
		if err := t.store.SetBool(ctx, keyHasRequested, true); err != nil {
			return fmt.Errorf("failed to set has-requested flag: %w", err)
		}
	}

	err = t.store.Delete(ctx,
		legacyKeyRequestCount,
		legacyKeyDenialCount,
		legacyKeyLastRequestTime,
		legacyKeyLastReminderDate,
	)
	if err != nil {
		return fmt.Errorf("failed to delete legacy keys: %w", err)
	}

	// Flag write goes last so a partial run is retried in full.
	if err := t.store.SetBool(ctx, keyKeysMigrated, true); err != nil {
		return fmt.Errorf("failed to set migration flag: %w", err)
	}

	t.migrated.Store(true)
	t.logger.Info("legacy notification keys migrated",
		zap.Int64("legacyRequestCount", legacyRequests),
		zap.Int64("legacyDenialCount", legacyDenials),
	)
	return nil
}

func (t *Tracker) migrateDenialInfo(
	ctx context.Context,
	legacyRequests, legacyDenials, legacyLastRequest int64,
	hadLastRequest bool,
) error {
	_, exists, err := t.store.GetString(ctx, keyDenialInfo)
	if err != nil {
		return fmt.Errorf("failed to check denial info during migration: %w", err)
	}
	if exists {
		// A previous partial run already wrote the record.
		return nil
	}

	info := domain.NotificationDenialInfo{
		DenialCount:         int(legacyDenials),
		RequestAttemptCount: int(max(legacyRequests, legacyDenials)),
		// The legacy schema never tracked permanence or blocked requests.
		IsPermanent:           false,
		LastRequestWasBlocked: false,
	}
	if hadLastRequest && legacyLastRequest > 0 {
		lastRequest := time.UnixMilli(legacyLastRequest).UTC()
		info.LastRequestAttemptTime = &lastRequest
		if legacyDenials > 0 {
			info.LastDenialTime = lastRequest
		}
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to encode migrated denial info: %w", err)
	}
	if err := t.store.SetString(ctx, keyDenialInfo, string(payload)); err != nil {
		return fmt.Errorf("failed to write migrated denial info: %w", err)
	}
	return nil
}

func (t *Tracker) migrateReminderDate(ctx context.Context, legacyReminder int64) error {
	_, exists, err := t.store.GetInt64(ctx, keyLastReminderDate)
	if err != nil {
		return fmt.Errorf("failed to check reminder date during migration: %w", err)
	}
	if exists {
		return nil
	}

	if err := t.store.SetInt64(ctx, keyLastReminderDate, legacyReminder); err != nil {
		return fmt.Errorf("failed to copy legacy reminder date: %w", err)
	}
	return nil
}
