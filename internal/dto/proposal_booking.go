package dto

// ── 提案预约模块 DTO ──
//
// 所有跨边界时间戳均为无时区本地文本 "YYYY-MM-DD HH:mm:ss"

// CreateProposalBookingRequest 打开 call+proposal 组合时创建预约
type CreateProposalBookingRequest struct {
	ProposalID    string `json:"proposal_id"    binding:"required"`
	CallID        string `json:"call_id"        binding:"required"`
	InstrumentID  string `json:"instrument_id"  binding:"required"`
	AllocatedTime int64  `json:"allocated_time" binding:"min=0"` // 秒
}

// EventFilterRequest 拉取聚合时的事件过滤条件
type EventFilterRequest struct {
	BookingType string `form:"booking_type"`
	StartsAfter string `form:"starts_after"` // 无时区文本，空表示不限
	EndsBefore  string `form:"ends_before"`
}

// FinalizeRequest 终结动作请求
type FinalizeRequest struct {
	Action string `json:"action" binding:"required,oneof=COMPLETE RESTART"`
}

// GoToStepRequest 向导步骤跳转请求
type GoToStepRequest struct {
	Step string `json:"step" binding:"required,oneof=BOOK_EVENTS BOOK_EQUIPMENT REVIEW FINALIZE"`
}

// ProposalBookingResponse 提案预约聚合响应
type ProposalBookingResponse struct {
	ID               string                   `json:"id"`
	ProposalID       string                   `json:"proposal_id"`
	CallID           string                   `json:"call_id"`
	InstrumentID     string                   `json:"instrument_id"`
	Status           string                   `json:"status"`
	ActiveStep       string                   `json:"active_step"`
	AllocatedTime    int64                    `json:"allocated_time"`    // 预算（秒）
	AllocatedSeconds int64                    `json:"allocated_seconds"` // 已排（秒）
	Allocatable      int64                    `json:"allocatable"`       // 剩余（秒），可为负
	ScheduledEvents  []ScheduledEventResponse `json:"scheduled_events"`
	CreatedAt        string                   `json:"created_at"`
	UpdatedAt        string                   `json:"updated_at"`
}
