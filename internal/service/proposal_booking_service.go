package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"beamline-scheduler/backend/internal/dto"
	"beamline-scheduler/backend/internal/model"
	"beamline-scheduler/backend/internal/repository"
	"beamline-scheduler/backend/pkg/interval"
	"beamline-scheduler/backend/pkg/mq"
)

// ── 提案预约模块业务错误 ──

var (
	ErrBookingNotFound = errors.New("提案预约不存在")
	ErrInvalidStep     = errors.New("无效的向导步骤")
	ErrBadEventFilter  = errors.New("事件过滤条件不合法")
)

// ProposalBookingService 提案预约工作流接口
//
// 状态迁移全部经由 model.ProposalBooking.CanTransition 判定；
// 守卫失败时返回类型化拒绝且不产生任何落库变更。
type ProposalBookingService interface {
	// Open 打开 call+proposal 组合：已存在则返回现有预约，否则创建 DRAFT
	Open(ctx context.Context, req *dto.CreateProposalBookingRequest, callerID string) (*dto.ProposalBookingResponse, error)
	Get(ctx context.Context, id string, filter *dto.EventFilterRequest) (*dto.ProposalBookingResponse, error)
	Activate(ctx context.Context, id string, callerID string) (*dto.ProposalBookingResponse, error)
	Finalize(ctx context.Context, id string, action model.FinalizeAction, callerID string) (*dto.ProposalBookingResponse, error)
	GoToStep(ctx context.Context, id string, step model.BookingStep, callerID string) (*dto.ProposalBookingResponse, error)
}

type proposalBookingService struct {
	repo      *repository.Repository
	editStore EditMarkStore
	publisher *mq.Publisher
	logger    *zap.Logger
}

// NewProposalBookingService 创建 ProposalBookingService 实例
func NewProposalBookingService(
	repo *repository.Repository,
	editStore EditMarkStore,
	publisher *mq.Publisher,
	logger *zap.Logger,
) ProposalBookingService {
	return &proposalBookingService{
		repo:      repo,
		editStore: editStore,
		publisher: publisher,
		logger:    logger,
	}
}

// ────────────────────── Open ──────────────────────

func (s *proposalBookingService) Open(ctx context.Context, req *dto.CreateProposalBookingRequest, callerID string) (*dto.ProposalBookingResponse, error) {
	existing, err := s.repo.ProposalBooking.GetByProposalCall(ctx, req.ProposalID, req.CallID, req.InstrumentID)
	if err == nil {
		return s.assemble(ctx, existing, repository.EventFilter{})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询提案预约失败", zap.Error(err))
		return nil, err
	}

	booking := &model.ProposalBooking{
		ProposalID:    req.ProposalID,
		CallID:        req.CallID,
		InstrumentID:  req.InstrumentID,
		AllocatedTime: req.AllocatedTime,
		Status:        model.BookingStatusDraft,
		ActiveStep:    model.StepBookEvents,
	}
	booking.CreatedBy = &callerID
	booking.UpdatedBy = &callerID

	if err := s.repo.ProposalBooking.Create(ctx, booking); err != nil {
		s.logger.Error("创建提案预约失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("创建提案预约",
		zap.String("booking_id", booking.ProposalBookingID),
		zap.String("proposal_id", req.ProposalID),
		zap.String("instrument_id", req.InstrumentID),
	)

	return s.assemble(ctx, booking, repository.EventFilter{})
}

// ────────────────────── Get ──────────────────────

func (s *proposalBookingService) Get(ctx context.Context, id string, filter *dto.EventFilterRequest) (*dto.ProposalBookingResponse, error) {
	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	repoFilter, err := parseEventFilter(filter)
	if err != nil {
		return nil, err
	}

	return s.assemble(ctx, booking, repoFilter)
}

// ────────────────────── Activate ──────────────────────

// Activate DRAFT → ACTIVE
// 守卫：预约下全部设备指派均为 ACCEPTED，否则返回 ErrUnacceptedEquipment 且不落库
func (s *proposalBookingService) Activate(ctx context.Context, id string, callerID string) (*dto.ProposalBookingResponse, error) {
	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ScheduledEvent.ListByBooking(ctx, id, repository.EventFilter{})
	if err != nil {
		s.logger.Error("查询预约事件失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}

	eventIDs := make([]string, 0, len(events))
	for i := range events {
		eventIDs = append(eventIDs, events[i].ScheduledEventID)
	}

	allAccepted, err := s.repo.EquipmentAssignment.AllAccepted(ctx, eventIDs)
	if err != nil {
		s.logger.Error("查询设备指派状态失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}

	guard := model.TransitionGuard{AllEquipmentAccepted: allAccepted}
	if err := booking.CanTransition(model.BookingStatusActive, guard); err != nil {
		return nil, err
	}

	booking.Status = model.BookingStatusActive
	booking.ActiveStep = model.StepFinalize
	booking.UpdatedBy = &callerID

	if err := s.repo.ProposalBooking.Update(ctx, booking); err != nil {
		s.logger.Error("激活提案预约失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("提案预约已激活", zap.String("booking_id", id))
	s.publish(ctx, mq.RouteBookingActivated, map[string]string{
		"booking_id":  id,
		"proposal_id": booking.ProposalID,
	})

	return s.assemble(ctx, booking, repository.EventFilter{})
}

// ────────────────────── Finalize ──────────────────────

// Finalize 终结动作
//   - COMPLETE: ACTIVE → COMPLETED，此后所有编辑器关闭
//   - RESTART:  ACTIVE|COMPLETED → DRAFT，步骤回到 BOOK_EVENTS；
//     已录入的事件、损失时间与设备指派全部保留（非破坏性重启）
func (s *proposalBookingService) Finalize(ctx context.Context, id string, action model.FinalizeAction, callerID string) (*dto.ProposalBookingResponse, error) {
	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	var target model.BookingStatus
	switch action {
	case model.FinalizeComplete:
		target = model.BookingStatusCompleted
	case model.FinalizeRestart:
		target = model.BookingStatusDraft
	default:
		return nil, model.ErrInvalidTransition
	}

	if err := booking.CanTransition(target, model.TransitionGuard{}); err != nil {
		return nil, err
	}

	booking.Status = target
	if action == model.FinalizeRestart {
		booking.ActiveStep = model.StepBookEvents
	}
	booking.UpdatedBy = &callerID

	if err := s.repo.ProposalBooking.Update(ctx, booking); err != nil {
		s.logger.Error("终结提案预约失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("提案预约终结动作完成",
		zap.String("booking_id", id),
		zap.String("action", string(action)),
	)
	s.publish(ctx, mq.RouteBookingFinalized, map[string]string{
		"booking_id": id,
		"action":     string(action),
	})

	return s.assemble(ctx, booking, repository.EventFilter{})
}

// ────────────────────── GoToStep ──────────────────────

// GoToStep 向导步骤跳转。
// 后退与跳转随时允许；从 BOOK_EVENTS 前进时要求无编辑中的行，
// 防止未保存的修改被悄悄丢弃。BOOK_EQUIPMENT → REVIEW 无守卫
// （未接受的设备允许进入复核，只拦截激活）。
func (s *proposalBookingService) GoToStep(ctx context.Context, id string, step model.BookingStep, callerID string) (*dto.ProposalBookingResponse, error) {
	if !model.ValidStep(step) {
		return nil, ErrInvalidStep
	}

	booking, err := s.loadBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if booking.IsForwardStep(step) && booking.ActiveStep == model.StepBookEvents && s.editStore != nil {
		editing, err := s.editStore.HasEditingRows(ctx, id)
		if err != nil {
			s.logger.Error("查询行编辑标记失败", zap.String("booking_id", id), zap.Error(err))
			return nil, err
		}
		if editing {
			return nil, model.ErrRowsStillEditing
		}
	}

	booking.ActiveStep = step
	booking.UpdatedBy = &callerID

	if err := s.repo.ProposalBooking.Update(ctx, booking); err != nil {
		s.logger.Error("更新向导步骤失败", zap.String("booking_id", id), zap.Error(err))
		return nil, err
	}

	return s.assemble(ctx, booking, repository.EventFilter{})
}

// ── 内部辅助方法 ──

func (s *proposalBookingService) loadBooking(ctx context.Context, id string) (*model.ProposalBooking, error) {
	booking, err := s.repo.ProposalBooking.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询提案预约失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return booking, nil
}

// assemble 组装聚合响应：事件列表 + 配额台账
func (s *proposalBookingService) assemble(ctx context.Context, booking *model.ProposalBooking, filter repository.EventFilter) (*dto.ProposalBookingResponse, error) {
	events, err := s.repo.ScheduledEvent.ListByBooking(ctx, booking.ProposalBookingID, filter)
	if err != nil {
		s.logger.Error("查询预约事件失败", zap.String("booking_id", booking.ProposalBookingID), zap.Error(err))
		return nil, err
	}
	booking.ScheduledEvents = events

	resp := &dto.ProposalBookingResponse{
		ID:               booking.ProposalBookingID,
		ProposalID:       booking.ProposalID,
		CallID:           booking.CallID,
		InstrumentID:     booking.InstrumentID,
		Status:           string(booking.Status),
		ActiveStep:       string(booking.ActiveStep),
		AllocatedTime:    booking.AllocatedTime,
		AllocatedSeconds: model.AllocatedSeconds(events),
		Allocatable:      booking.Allocatable(),
		ScheduledEvents:  make([]dto.ScheduledEventResponse, 0, len(events)),
		CreatedAt:        interval.FormatTzLess(booking.CreatedAt),
		UpdatedAt:        interval.FormatTzLess(booking.UpdatedAt),
	}

	// 事件状态为读取时刻所属预约状态的镜像
	for i := range events {
		resp.ScheduledEvents = append(resp.ScheduledEvents, *toScheduledEventResponse(&events[i], booking.Status))
	}

	return resp, nil
}

func (s *proposalBookingService) publish(ctx context.Context, route string, payload interface{}) {
	if err := s.publisher.Publish(ctx, route, payload); err != nil {
		// 通知失败不回滚业务变更
		s.logger.Warn("发布事件消息失败", zap.String("route", route), zap.Error(err))
	}
}

// parseEventFilter 解析事件过滤条件（类型 + 时间窗口）
func parseEventFilter(req *dto.EventFilterRequest) (repository.EventFilter, error) {
	var filter repository.EventFilter
	if req == nil {
		return filter, nil
	}

	if req.BookingType != "" {
		bt := model.BookingType(req.BookingType)
		if !model.ValidBookingType(bt) {
			return filter, ErrBadEventFilter
		}
		filter.BookingType = bt
	}
	if req.StartsAfter != "" {
		t, err := interval.ParseTzLess(req.StartsAfter)
		if err != nil {
			return filter, ErrBadEventFilter
		}
		filter.StartsAfter = &t
	}
	if req.EndsBefore != "" {
		t, err := interval.ParseTzLess(req.EndsBefore)
		if err != nil {
			return filter, ErrBadEventFilter
		}
		filter.EndsBefore = &t
	}

	return filter, nil
}
