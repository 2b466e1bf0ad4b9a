package model

import "time"

// Equipment 共享设备表 — 对应 equipments
// MaintenanceStartsAt 非空且 MaintenanceEndsAt 为空时表示无限期维护中
type Equipment struct {
	EquipmentID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"equipment_id"`
	Name                string     `gorm:"type:varchar(200);not null"                     json:"name"`
	Description         string     `gorm:"type:varchar(500)"                              json:"description,omitempty"`
	Color               string     `gorm:"type:varchar(20)"                               json:"color,omitempty"`
	OwnerID             string     `gorm:"type:uuid;not null"                             json:"owner_id"`
	AutoAccept          bool       `gorm:"not null;default:false"                         json:"auto_accept"`
	MaintenanceStartsAt *time.Time `gorm:"type:timestamp"                                 json:"maintenance_starts_at,omitempty"`
	MaintenanceEndsAt   *time.Time `gorm:"type:timestamp"                                 json:"maintenance_ends_at,omitempty"`
	VersionedModel

	// 关联
	Owner       *User  `gorm:"foreignKey:OwnerID;references:UserID"                                                                      json:"owner,omitempty"`
	Responsible []User `gorm:"many2many:equipment_responsible;foreignKey:EquipmentID;joinForeignKey:EquipmentID;references:UserID;joinReferences:UserID" json:"responsible,omitempty"`
}

// TableName 指定表名
func (Equipment) TableName() string { return "equipments" }

// CanDecide 判断用户是否有权对该设备的指派做出决定
// （所有者或责任人；user_officer 的放行在路由层处理）
func (e *Equipment) CanDecide(userID string) bool {
	if e.OwnerID == userID {
		return true
	}
	for i := range e.Responsible {
		if e.Responsible[i].UserID == userID {
			return true
		}
	}
	return false
}

// UnderMaintenanceAt 判断设备在指定时刻是否处于维护窗口内
func (e *Equipment) UnderMaintenanceAt(t time.Time) bool {
	if e.MaintenanceStartsAt == nil {
		return false
	}
	if t.Before(*e.MaintenanceStartsAt) {
		return false
	}
	// 结束时间为空表示无限期维护
	return e.MaintenanceEndsAt == nil || t.Before(*e.MaintenanceEndsAt)
}
