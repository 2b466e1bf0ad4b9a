package dto

// ── 预约事件模块 DTO ──

// CreateScheduledEventRequest 创建时段请求
// Confirmed=false 且与兄弟时段重叠时，保存被挂起等待确认
type CreateScheduledEventRequest struct {
	ProposalBookingID *string `json:"proposal_booking_id"`
	BookingType       string  `json:"booking_type" binding:"required,oneof=USER_OPERATIONS EQUIPMENT MAINTENANCE SHUTDOWN"`
	InstrumentID      *string `json:"instrument_id"`
	EquipmentID       *string `json:"equipment_id"`
	LocalContactID    *string `json:"local_contact_id"`
	Description       string  `json:"description" binding:"max=500"`
	StartsAt          string  `json:"starts_at" binding:"required"`
	EndsAt            string  `json:"ends_at"   binding:"required"`
	Confirmed         bool    `json:"confirmed"`
}

// UpdateScheduledEventRequest 编辑时段请求（提交整行目标状态）
type UpdateScheduledEventRequest struct {
	StartsAt       string  `json:"starts_at" binding:"required"`
	EndsAt         string  `json:"ends_at"   binding:"required"`
	LocalContactID *string `json:"local_contact_id"`
	Description    *string `json:"description" binding:"omitempty,max=500"`
	Confirmed      bool    `json:"confirmed"`
}

// DeleteScheduledEventsRequest 批量删除请求
type DeleteScheduledEventsRequest struct {
	IDs []string `json:"ids" binding:"required,min=1,dive,uuid"`
}

// ScheduledEventResponse 预约事件响应
// Status 为读取时刻所属预约的状态镜像
type ScheduledEventResponse struct {
	ID                string                        `json:"id"`
	ProposalBookingID *string                       `json:"proposal_booking_id,omitempty"`
	BookingType       string                        `json:"booking_type"`
	InstrumentID      *string                       `json:"instrument_id,omitempty"`
	EquipmentID       *string                       `json:"equipment_id,omitempty"`
	Status            string                        `json:"status,omitempty"`
	StartsAt          string                        `json:"starts_at"`
	EndsAt            string                        `json:"ends_at"`
	Description       string                        `json:"description,omitempty"`
	LocalContact      *UserBrief                    `json:"local_contact,omitempty"`
	Assignments       []EquipmentAssignmentResponse `json:"assignments,omitempty"`
	LostTimes         []LostTimeResponse            `json:"lost_times,omitempty"`
}

// DeleteResultItem 批量删除的逐项结果（非全有全无）
type DeleteResultItem struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
}

// OverlapConflict 重叠确认时回传的冲突行
type OverlapConflict struct {
	ID       string `json:"id"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}
