package repository

import (
	"context"

	"gorm.io/gorm"

	"beamline-scheduler/backend/internal/model"
)

// EquipmentRepository 设备数据访问接口
type EquipmentRepository interface {
	Create(ctx context.Context, equipment *model.Equipment) error
	GetByID(ctx context.Context, id string) (*model.Equipment, error)
	List(ctx context.Context) ([]model.Equipment, error)
	ListAvailableForEvent(ctx context.Context, eventID string) ([]model.Equipment, error)
	Update(ctx context.Context, equipment *model.Equipment) error
	Delete(ctx context.Context, id string, deletedBy string) error
	ReplaceResponsible(ctx context.Context, equipmentID string, users []model.User) error
}

type equipmentRepo struct {
	db *gorm.DB
}

// NewEquipmentRepo 创建 EquipmentRepository 实例
func NewEquipmentRepo(db *gorm.DB) EquipmentRepository {
	return &equipmentRepo{db: db}
}

func (r *equipmentRepo) Create(ctx context.Context, equipment *model.Equipment) error {
	return r.db.WithContext(ctx).Create(equipment).Error
}

func (r *equipmentRepo) GetByID(ctx context.Context, id string) (*model.Equipment, error) {
	var equipment model.Equipment
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Responsible").
		Where("equipment_id = ?", id).
		First(&equipment).Error
	if err != nil {
		return nil, err
	}
	return &equipment, nil
}

func (r *equipmentRepo) List(ctx context.Context) ([]model.Equipment, error) {
	var equipments []model.Equipment
	err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Responsible").
		Order("name ASC").
		Find(&equipments).Error
	return equipments, err
}

// ListAvailableForEvent 列出尚未指派到某事件的设备（已指派的不重复展示）
func (r *equipmentRepo) ListAvailableForEvent(ctx context.Context, eventID string) ([]model.Equipment, error) {
	var equipments []model.Equipment
	err := r.db.WithContext(ctx).
		Where("equipment_id NOT IN (?)",
			r.db.Model(&model.EquipmentAssignment{}).
				Select("equipment_id").
				Where("scheduled_event_id = ?", eventID)).
		Order("name ASC").
		Find(&equipments).Error
	return equipments, err
}

// Update 全量写入并递增版本号
func (r *equipmentRepo) Update(ctx context.Context, equipment *model.Equipment) error {
	equipment.Version++
	return r.db.WithContext(ctx).Save(equipment).Error
}

func (r *equipmentRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Equipment{}).
		Where("equipment_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}

// ReplaceResponsible 整体替换设备责任人
func (r *equipmentRepo) ReplaceResponsible(ctx context.Context, equipmentID string, users []model.User) error {
	equipment := model.Equipment{EquipmentID: equipmentID}
	return r.db.WithContext(ctx).Model(&equipment).Association("Responsible").Replace(users)
}
