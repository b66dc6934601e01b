package repository

import (
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
)

// PermissionEventModel is the persistence model for the permission_events
// audit table.
type PermissionEventModel struct {
	ID                  string           `gorm:"type:uuid;primaryKey"`
	CorrelationID       string           `gorm:"type:varchar(36)"`
	InstallID           string           `gorm:"type:varchar(64);not null"`
	EventType           domain.EventType `gorm:"type:varchar(40);not null"`
	Permanent           *bool
	OpenedSettings      *bool
	DenialCount         int       `gorm:"not null;default:0"`
	RequestAttemptCount int       `gorm:"not null;default:0"`
	OccurredAt          time.Time `gorm:"type:timestamptz;not null"`
	CreatedAt           time.Time
}

func (PermissionEventModel) TableName() string {
	return "permission_events"
}

func eventModelFromDomain(e *domain.PermissionEvent) *PermissionEventModel {
	if e == nil {
		return nil
	}

	return &PermissionEventModel{
		ID:                  e.EventID,
		CorrelationID:       e.CorrelationID,
		InstallID:           e.InstallID,
		EventType:           e.Type,
		Permanent:           e.Permanent,
		OpenedSettings:      e.OpenedSettings,
		DenialCount:         e.DenialCount,
		RequestAttemptCount: e.RequestAttemptCount,
		OccurredAt:          e.OccurredAt,
	}
}

func eventModelToDomain(m *PermissionEventModel) *domain.PermissionEvent {
	if m == nil {
		return nil
	}

	return &domain.PermissionEvent{
		EventID:             m.ID,
		CorrelationID:       m.CorrelationID,
		InstallID:           m.InstallID,
		Type:                m.EventType,
		Permanent:           m.Permanent,
		OpenedSettings:      m.OpenedSettings,
		DenialCount:         m.DenialCount,
		RequestAttemptCount: m.RequestAttemptCount,
		OccurredAt:          m.OccurredAt,
	}
}
