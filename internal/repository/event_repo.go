package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dreamic/permission-tracker/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ListParams struct {
	InstallID string
	Type      *domain.EventType
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

type TypeCount struct {
	EventType domain.EventType `gorm:"column:event_type"`
	Count     int64            `gorm:"column:count"`
}

// EventRepository stores and queries the permission-event audit trail.
type EventRepository interface {
	Insert(ctx context.Context, event *domain.PermissionEvent) error
	ListByInstall(ctx context.Context, params ListParams) ([]domain.PermissionEvent, int64, error)
	CountByType(ctx context.Context, installID string) ([]TypeCount, error)
}

type GormEventRepo struct {
	db *gorm.DB
}

func NewGormEventRepo(db *gorm.DB) *GormEventRepo {
	return &GormEventRepo{db: db}
}

// Insert persists an event. Redelivered events (same event id) are ignored
// so the worker's at-least-once consumption stays idempotent.
func (r *GormEventRepo) Insert(ctx context.Context, event *domain.PermissionEvent) error {
	model := eventModelFromDomain(event)
	if model == nil {
		return domain.ErrValidation
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error
}

func (r *GormEventRepo) ListByInstall(ctx context.Context, params ListParams) ([]domain.PermissionEvent, int64, error) {
	if strings.TrimSpace(params.InstallID) == "" {
		return nil, 0, errors.New("install id is required")
	}

	query := r.db.WithContext(ctx).
		Model(&PermissionEventModel{}).
		Where("install_id = ?", params.InstallID)

	if params.Type != nil {
		query = query.Where("event_type = ?", *params.Type)
	}
	if params.From != nil {
		query = query.Where("occurred_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("occurred_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []PermissionEventModel
	err := query.
		Order("occurred_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	events := make([]domain.PermissionEvent, 0, len(models))
	for i := range models {
		events = append(events, *eventModelToDomain(&models[i]))
	}
	return events, total, nil
}

func (r *GormEventRepo) CountByType(ctx context.Context, installID string) ([]TypeCount, error) {
	var counts []TypeCount
	err := r.db.WithContext(ctx).
		Model(&PermissionEventModel{}).
		Select("event_type, COUNT(*) as count").
		Where("install_id = ?", installID).
		Group("event_type").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
