package repository

import (
	"context"

	"gorm.io/gorm"

	"beamline-scheduler/backend/internal/model"
)

// LostTimeRepository 损失时间数据访问接口
type LostTimeRepository interface {
	Create(ctx context.Context, lostTime *model.LostTime) error
	GetByID(ctx context.Context, id string) (*model.LostTime, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.LostTime, error)
	Update(ctx context.Context, lostTime *model.LostTime) error
	Delete(ctx context.Context, id string) error
}

type lostTimeRepo struct {
	db *gorm.DB
}

// NewLostTimeRepo 创建 LostTimeRepository 实例
func NewLostTimeRepo(db *gorm.DB) LostTimeRepository {
	return &lostTimeRepo{db: db}
}

func (r *lostTimeRepo) Create(ctx context.Context, lostTime *model.LostTime) error {
	return r.db.WithContext(ctx).Create(lostTime).Error
}

func (r *lostTimeRepo) GetByID(ctx context.Context, id string) (*model.LostTime, error) {
	var lostTime model.LostTime
	err := r.db.WithContext(ctx).Where("lost_time_id = ?", id).First(&lostTime).Error
	if err != nil {
		return nil, err
	}
	return &lostTime, nil
}

func (r *lostTimeRepo) ListByEvent(ctx context.Context, eventID string) ([]model.LostTime, error) {
	var lostTimes []model.LostTime
	err := r.db.WithContext(ctx).
		Where("scheduled_event_id = ?", eventID).
		Order("starts_at ASC").
		Find(&lostTimes).Error
	return lostTimes, err
}

// Update 全量写入并递增版本号（行粒度 last-write-wins）
func (r *lostTimeRepo) Update(ctx context.Context, lostTime *model.LostTime) error {
	lostTime.Version++
	return r.db.WithContext(ctx).Save(lostTime).Error
}

func (r *lostTimeRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("lost_time_id = ?", id).
		Delete(&model.LostTime{}).Error
}
