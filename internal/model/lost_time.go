package model

import "time"

// LostTime 损失时间表 — 对应 lost_times
// 预约事件名义时段内因故障等原因不可用的子区间，激活后追溯录入。
// 重叠只和同一事件下的兄弟记录比对，不和预约事件本身比对。
type LostTime struct {
	LostTimeID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"lost_time_id"`
	ScheduledEventID string    `gorm:"type:uuid;not null"                             json:"scheduled_event_id"`
	StartsAt         time.Time `gorm:"type:timestamp;not null"                        json:"starts_at"`
	EndsAt           time.Time `gorm:"type:timestamp;not null"                        json:"ends_at"`
	Reason           string    `gorm:"type:varchar(500)"                              json:"reason,omitempty"`
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`

	// 关联
	Event *ScheduledEvent `gorm:"foreignKey:ScheduledEventID;references:ScheduledEventID" json:"event,omitempty"`
}

// TableName 指定表名
func (LostTime) TableName() string { return "lost_times" }

// DurationSeconds 损失时长（秒）
func (l *LostTime) DurationSeconds() int64 {
	return int64(l.EndsAt.Sub(l.StartsAt).Seconds())
}
