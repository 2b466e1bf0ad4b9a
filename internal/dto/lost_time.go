package dto

// ── 损失时间模块 DTO ──

// AddLostTimeRequest 录入损失时间请求
type AddLostTimeRequest struct {
	StartsAt  string `json:"starts_at" binding:"required"`
	EndsAt    string `json:"ends_at"   binding:"required"`
	Reason    string `json:"reason"    binding:"max=500"`
	Confirmed bool   `json:"confirmed"`
}

// UpdateLostTimeRequest 编辑损失时间请求
type UpdateLostTimeRequest struct {
	StartsAt  string  `json:"starts_at" binding:"required"`
	EndsAt    string  `json:"ends_at"   binding:"required"`
	Reason    *string `json:"reason"    binding:"omitempty,max=500"`
	Confirmed bool    `json:"confirmed"`
}

// LostTimeResponse 损失时间响应
type LostTimeResponse struct {
	ID               string `json:"id"`
	ScheduledEventID string `json:"scheduled_event_id"`
	StartsAt         string `json:"starts_at"`
	EndsAt           string `json:"ends_at"`
	Reason           string `json:"reason,omitempty"`
}
