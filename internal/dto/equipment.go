package dto

// ── 设备模块 DTO ──

// CreateEquipmentRequest 创建设备请求
type CreateEquipmentRequest struct {
	Name                string  `json:"name"        binding:"required,max=200"`
	Description         string  `json:"description" binding:"max=500"`
	Color               string  `json:"color"       binding:"max=20"`
	AutoAccept          bool    `json:"auto_accept"`
	MaintenanceStartsAt *string `json:"maintenance_starts_at"`
	MaintenanceEndsAt   *string `json:"maintenance_ends_at"` // 有开始无结束表示无限期维护
}

// UpdateEquipmentRequest 更新设备请求
type UpdateEquipmentRequest struct {
	Name                *string `json:"name"        binding:"omitempty,max=200"`
	Description         *string `json:"description" binding:"omitempty,max=500"`
	Color               *string `json:"color"       binding:"omitempty,max=20"`
	AutoAccept          *bool   `json:"auto_accept"`
	MaintenanceStartsAt *string `json:"maintenance_starts_at"`
	MaintenanceEndsAt   *string `json:"maintenance_ends_at"`
	ClearMaintenance    bool    `json:"clear_maintenance"` // true 时清空维护窗口
}

// AddResponsibleRequest 设置设备责任人请求
type AddResponsibleRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,dive,uuid"`
}

// AssignEquipmentRequest 将设备指派到预约事件请求
type AssignEquipmentRequest struct {
	EquipmentIDs []string `json:"equipment_ids" binding:"required,min=1,dive,uuid"`
}

// ConfirmAssignmentRequest 指派裁决请求
type ConfirmAssignmentRequest struct {
	Decision string `json:"decision" binding:"required,oneof=ACCEPT REJECT"`
}

// EquipmentResponse 设备响应
type EquipmentResponse struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Description         string      `json:"description,omitempty"`
	Color               string      `json:"color,omitempty"`
	AutoAccept          bool        `json:"auto_accept"`
	Owner               *UserBrief  `json:"owner,omitempty"`
	Responsible         []UserBrief `json:"responsible,omitempty"`
	MaintenanceStartsAt *string     `json:"maintenance_starts_at,omitempty"`
	MaintenanceEndsAt   *string     `json:"maintenance_ends_at,omitempty"`
	CreatedAt           string      `json:"created_at"`
	UpdatedAt           string      `json:"updated_at"`
}

// EquipmentAssignmentResponse 设备指派响应
type EquipmentAssignmentResponse struct {
	EquipmentID      string  `json:"equipment_id"`
	EquipmentName    string  `json:"equipment_name,omitempty"`
	ScheduledEventID string  `json:"scheduled_event_id"`
	Status           string  `json:"status"`
	DecidedBy        *string `json:"decided_by,omitempty"`
	DecidedAt        *string `json:"decided_at,omitempty"`
}
