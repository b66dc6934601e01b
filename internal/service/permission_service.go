package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
	"github.com/dreamic/permission-tracker/internal/events"
	"github.com/dreamic/permission-tracker/internal/kvstore"
	"github.com/dreamic/permission-tracker/internal/observability"
	"github.com/dreamic/permission-tracker/internal/tracker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	installKeyPrefix   = "install:"
	maxInstallIDLength = 64
)

// PermissionService hosts one permission tracker per app install over a
// shared key-value store and publishes audit events for every record
// operation. Event publishing is best-effort: the local record is the
// source of truth, the stream is analytics.
type PermissionService struct {
	store     kvstore.Store
	publisher events.Publisher
	metrics   *observability.Metrics
	flow      domain.NotificationFlowConfig
	logger    *zap.Logger
	now       func() time.Time
}

// PermissionState is the combined read model for one install.
type PermissionState struct {
	InstallID             string
	DenialInfo            *domain.NotificationDenialInfo
	SettingsPromptInfo    *domain.GoToSettingsPromptInfo
	HasRequested          bool
	CanRequestPermission  bool
	CanShowSettingsPrompt bool
}

func NewPermissionService(
	store kvstore.Store,
	publisher events.Publisher,
	flow domain.NotificationFlowConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*PermissionService, error) {
	if store == nil {
		return nil, fmt.Errorf("key-value store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PermissionService{
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		flow:      flow,
		logger:    logger,
		now:       time.Now,
	}, nil
}

func (s *PermissionService) trackerFor(installID string) (*tracker.Tracker, string, error) {
	installID = strings.TrimSpace(installID)
	if installID == "" {
		return nil, "", fmt.Errorf("%w: install id is required", domain.ErrValidation)
	}
	if len(installID) > maxInstallIDLength {
		return nil, "", fmt.Errorf("%w: install id exceeds %d characters", domain.ErrValidation, maxInstallIDLength)
	}
	if strings.ContainsAny(installID, ": \t\n") {
		return nil, "", fmt.Errorf("%w: install id contains invalid characters", domain.ErrValidation)
	}

	view := kvstore.Namespaced(s.store, installKeyPrefix+installID+":")
	t, err := tracker.New(view, s.logger.With(zap.String("installId", installID)))
	if err != nil {
		return nil, "", err
	}
	return t, installID, nil
}

func (s *PermissionService) RecordDenial(ctx context.Context, installID string, permanent bool) (*domain.NotificationDenialInfo, error) {
	t, installID, err := s.trackerFor(installID)
	if err != nil {
		return nil, err
	}

	info, err := t.RecordDenial(ctx, permanent)
	if err != nil {
		return nil, err
	}

	s.metrics.IncDenialRecorded(permanent)
	s.publishEvent(ctx, domain.PermissionEvent{
		InstallID:           installID,
		Type:                domain.EventDenialRecorded,
		Permanent:           &permanent,
		DenialCount:         info.DenialCount,
		RequestAttemptCount: info.RequestAttemptCount,
	})
	return info, nil
}

func (s *PermissionService) RecordBlockedRequest(ctx context.Context, installID string) (*domain.NotificationDenialInfo, error) {
	t, installID, err := s.trackerFor(installID)
	if err != nil {
		return nil, err
	}

	info, err := t.RecordBlockedRequest(ctx)
	if err != nil {
		return nil, err
	}

	s.metrics.IncBlockedRequestRecorded()
	s.publishEvent(ctx, domain.PermissionEvent{
		InstallID:           installID,
		Type:                domain.EventBlockedRequestRecorded,
		DenialCount:         info.DenialCount,
		RequestAttemptCount: info.RequestAttemptCount,
	})
	return info, nil
}

func (s *PermissionService) RecordSettingsPrompt(ctx context.Context, installID string, openedSettings bool) (*domain.GoToSettingsPromptInfo, error) {
	t, installID, err := s.trackerFor(installID)
	if err != nil {
		return nil, err
	}

	info, err := t.RecordSettingsPrompt(ctx, openedSettings)
	if err != nil {
		return nil, err
	}

	s.metrics.IncSettingsPromptRecorded(openedSettings)
	s.publishEvent(ctx, domain.PermissionEvent{
		InstallID:      installID,
		Type:           domain.EventSettingsPromptRecorded,
		OpenedSettings: &openedSettings,
	})
	return info, nil
}

// MarkGranted clears the denial and settings-prompt history after the
// client observed a grant, keeping the has-requested flag and reminder date.
func (s *PermissionService) MarkGranted(ctx context.Context, installID string) error {
	t, installID, err := s.trackerFor(installID)
	if err != nil {
		return err
	}

	if err := t.ClearIfGranted(ctx); err != nil {
		return err
	}

	s.metrics.IncAutoClear()
	s.publishEvent(ctx, domain.PermissionEvent{
		InstallID: installID,
		Type:      domain.EventPermissionGranted,
	})
	return nil
}

func (s *PermissionService) GetState(ctx context.Context, installID string) (*PermissionState, error) {
	t, installID, err := s.trackerFor(installID)
	if err != nil {
		return nil, err
	}

	snapshot, err := t.GetSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	return &PermissionState{
		InstallID:             installID,
		DenialInfo:            snapshot.DenialInfo,
		SettingsPromptInfo:    snapshot.SettingsPromptInfo,
		HasRequested:          snapshot.HasRequested,
		CanRequestPermission:  s.flow.AllowsRequest(snapshot.DenialInfo, now),
		CanShowSettingsPrompt: s.flow.AllowsSettingsPrompt(snapshot.DenialInfo, snapshot.SettingsPromptInfo, now),
	}, nil
}

func (s *PermissionService) ClearDenialInfo(ctx context.Context, installID string) error {
	t, _, err := s.trackerFor(installID)
	if err != nil {
		return err
	}
	return t.ClearDenialInfo(ctx)
}

func (s *PermissionService) ClearSettingsPromptInfo(ctx context.Context, installID string) error {
	t, _, err := s.trackerFor(installID)
	if err != nil {
		return err
	}
	return t.ClearSettingsPromptInfo(ctx)
}

// ShouldShowReminder reports whether the periodic reminder is due and which
// interval was applied. Non-positive intervals fall back to the configured
// flow interval rather than a hardcoded default.
func (s *PermissionService) ShouldShowReminder(ctx context.Context, installID string, intervalDays int) (bool, int, error) {
	t, _, err := s.trackerFor(installID)
	if err != nil {
		return false, 0, err
	}

	if intervalDays <= 0 {
		intervalDays = s.flow.ReminderIntervalDays()
	}
	due, err := t.ShouldShowPeriodicReminder(ctx, intervalDays)
	if err != nil {
		return false, 0, err
	}
	return due, intervalDays, nil
}

func (s *PermissionService) TouchReminder(ctx context.Context, installID string) error {
	t, _, err := s.trackerFor(installID)
	if err != nil {
		return err
	}
	return t.TouchReminder(ctx)
}

func (s *PermissionService) publishEvent(ctx context.Context, event domain.PermissionEvent) {
	if s.publisher == nil {
		return
	}

	event.EventID = uuid.NewString()
	event.OccurredAt = s.now().UTC()
	if correlationID, ok := observability.CorrelationIDFromContext(ctx); ok {
		event.CorrelationID = correlationID
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.metrics.IncEventPublishFailed(event.Type.String())
		s.logger.Warn("failed to publish permission event",
			zap.String("installId", event.InstallID),
			zap.String("type", event.Type.String()),
			zap.Error(err),
		)
		return
	}
	s.metrics.IncEventPublished(event.Type.String())
}
