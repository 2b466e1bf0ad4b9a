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
)

// ── 时段编辑模块业务错误 ──

var (
	ErrScheduledEventNotFound = errors.New("预约事件不存在")
	ErrBadTimestamp           = errors.New("时间戳格式不合法，应为 YYYY-MM-DD HH:mm:ss")
	ErrInvalidRange           = errors.New("结束时间必须晚于开始时间")
	ErrBookingNotDraft        = errors.New("仅 DRAFT 状态的预约可编辑时段")
	ErrOverlapBlocked         = errors.New("该时间窗口与已有事件重叠")
	ErrInvalidBookingType     = errors.New("无效的预约事件类型")
)

// OverlapError 重叠待确认。
// 不是失败态：调用方把冲突行回传给用户，确认后带 confirmed=true 重试即提交。
type OverlapError struct {
	Conflicts []dto.OverlapConflict
}

func (e *OverlapError) Error() string {
	return "存在重叠时段，需要确认后才能保存"
}

// ScheduledEventService 时段编辑器接口
//
// 行状态机 VIEW ⇄ EDITING：BeginEdit 打编辑标记（不改数据），
// 保存/撤销清除标记；向导据标记拒绝带着未保存编辑前进。
// 所有校验失败都发生在触网之前（InvalidRange 不产生任何远程调用）。
type ScheduledEventService interface {
	Create(ctx context.Context, req *dto.CreateScheduledEventRequest, callerID string) (*dto.ScheduledEventResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateScheduledEventRequest, callerID string) (*dto.ScheduledEventResponse, error)
	Delete(ctx context.Context, ids []string, callerID string) ([]dto.DeleteResultItem, error)
	BeginEdit(ctx context.Context, id string, callerID string) error
	ResetEdit(ctx context.Context, id string) (*dto.ScheduledEventResponse, error)
}

type scheduledEventService struct {
	repo      *repository.Repository
	editStore EditMarkStore
	logger    *zap.Logger
}

// NewScheduledEventService 创建 ScheduledEventService 实例
func NewScheduledEventService(repo *repository.Repository, editStore EditMarkStore, logger *zap.Logger) ScheduledEventService {
	return &scheduledEventService{repo: repo, editStore: editStore, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *scheduledEventService) Create(ctx context.Context, req *dto.CreateScheduledEventRequest, callerID string) (*dto.ScheduledEventResponse, error) {
	bookingType := model.BookingType(req.BookingType)
	if !model.ValidBookingType(bookingType) {
		return nil, ErrInvalidBookingType
	}

	// 本地校验先于任何存储调用
	span, err := parseRange(req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	var bookingStatus model.BookingStatus
	if req.ProposalBookingID != nil {
		booking, err := s.loadDraftBooking(ctx, *req.ProposalBookingID)
		if err != nil {
			return nil, err
		}
		bookingStatus = booking.Status

		// 提案上下文内：重叠是软阻断，确认后放行
		siblings, err := s.repo.ScheduledEvent.ListByBooking(ctx, booking.ProposalBookingID, repository.EventFilter{})
		if err != nil {
			s.logger.Error("查询兄弟时段失败", zap.Error(err))
			return nil, err
		}
		if err := checkOverlap(span, siblings, "", req.Confirmed); err != nil {
			return nil, err
		}
	} else if req.InstrumentID != nil {
		// 无提案上下文（维护/停机等）：与同仪器事件重叠是硬阻断
		others, err := s.repo.ScheduledEvent.ListByInstrument(ctx, *req.InstrumentID, repository.EventFilter{})
		if err != nil {
			s.logger.Error("查询仪器事件失败", zap.Error(err))
			return nil, err
		}
		if anyOverlapExcluding(span, others, "") {
			return nil, ErrOverlapBlocked
		}
	}

	event := &model.ScheduledEvent{
		ProposalBookingID: req.ProposalBookingID,
		BookingType:       bookingType,
		InstrumentID:      req.InstrumentID,
		EquipmentID:       req.EquipmentID,
		LocalContactID:    req.LocalContactID,
		Description:       req.Description,
		StartsAt:          span.StartsAt,
		EndsAt:            span.EndsAt,
	}
	event.CreatedBy = &callerID
	event.UpdatedBy = &callerID

	if err := s.repo.ScheduledEvent.Create(ctx, event); err != nil {
		s.logger.Error("创建时段失败", zap.Error(err))
		return nil, err
	}

	return toScheduledEventResponse(event, bookingStatus), nil
}

// ────────────────────── Update ──────────────────────

func (s *scheduledEventService) Update(ctx context.Context, id string, req *dto.UpdateScheduledEventRequest, callerID string) (*dto.ScheduledEventResponse, error) {
	span, err := parseRange(req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	var bookingStatus model.BookingStatus
	if event.ProposalBookingID != nil {
		booking, err := s.loadDraftBooking(ctx, *event.ProposalBookingID)
		if err != nil {
			return nil, err
		}
		bookingStatus = booking.Status

		// 与兄弟行比对时排除自身
		siblings, err := s.repo.ScheduledEvent.ListByBooking(ctx, booking.ProposalBookingID, repository.EventFilter{})
		if err != nil {
			s.logger.Error("查询兄弟时段失败", zap.Error(err))
			return nil, err
		}
		if err := checkOverlap(span, siblings, id, req.Confirmed); err != nil {
			return nil, err
		}
	}

	event.StartsAt = span.StartsAt
	event.EndsAt = span.EndsAt
	if req.LocalContactID != nil {
		event.LocalContactID = req.LocalContactID
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	event.UpdatedBy = &callerID

	if err := s.repo.ScheduledEvent.Update(ctx, event); err != nil {
		s.logger.Error("更新时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	// 保存成功即回到 VIEW 状态
	s.clearEditMark(ctx, event.ProposalBookingID, id)

	return toScheduledEventResponse(event, bookingStatus), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 批量删除；逐项提交、逐项给出结果（非全有全无）
func (s *scheduledEventService) Delete(ctx context.Context, ids []string, callerID string) ([]dto.DeleteResultItem, error) {
	results := make([]dto.DeleteResultItem, 0, len(ids))

	for _, id := range ids {
		event, err := s.loadEvent(ctx, id)
		if err != nil {
			results = append(results, dto.DeleteResultItem{ID: id, Error: err.Error()})
			continue
		}

		if event.ProposalBookingID != nil {
			if _, err := s.loadDraftBooking(ctx, *event.ProposalBookingID); err != nil {
				results = append(results, dto.DeleteResultItem{ID: id, Error: err.Error()})
				continue
			}
		}

		if err := s.repo.ScheduledEvent.Delete(ctx, id, callerID); err != nil {
			s.logger.Error("删除时段失败", zap.String("id", id), zap.Error(err))
			results = append(results, dto.DeleteResultItem{ID: id, Error: "删除失败"})
			continue
		}

		s.clearEditMark(ctx, event.ProposalBookingID, id)
		results = append(results, dto.DeleteResultItem{ID: id, Deleted: true})
	}

	return results, nil
}

// ────────────────────── BeginEdit / ResetEdit ──────────────────────

// BeginEdit 行进入 EDITING 状态；仅打标记，不改数据
func (s *scheduledEventService) BeginEdit(ctx context.Context, id string, callerID string) error {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return err
	}
	if event.ProposalBookingID == nil {
		return nil
	}
	if _, err := s.loadDraftBooking(ctx, *event.ProposalBookingID); err != nil {
		return err
	}

	if s.editStore != nil {
		if err := s.editStore.MarkRowEditing(ctx, *event.ProposalBookingID, id); err != nil {
			s.logger.Error("写入行编辑标记失败", zap.String("id", id), zap.Error(err))
			return err
		}
	}
	return nil
}

// ResetEdit 丢弃未保存的编辑，返回最近一次持久化的行
func (s *scheduledEventService) ResetEdit(ctx context.Context, id string) (*dto.ScheduledEventResponse, error) {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	s.clearEditMark(ctx, event.ProposalBookingID, id)

	var bookingStatus model.BookingStatus
	if event.ProposalBookingID != nil {
		if booking, err := s.repo.ProposalBooking.GetByID(ctx, *event.ProposalBookingID); err == nil {
			bookingStatus = booking.Status
		}
	}
	return toScheduledEventResponse(event, bookingStatus), nil
}

// ── 内部辅助方法 ──

func (s *scheduledEventService) loadEvent(ctx context.Context, id string) (*model.ScheduledEvent, error) {
	event, err := s.repo.ScheduledEvent.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduledEventNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return event, nil
}

// loadDraftBooking 加载预约并校验处于 DRAFT（时段仅在激活前可编辑）
func (s *scheduledEventService) loadDraftBooking(ctx context.Context, bookingID string) (*model.ProposalBooking, error) {
	booking, err := s.repo.ProposalBooking.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询提案预约失败", zap.String("id", bookingID), zap.Error(err))
		return nil, err
	}
	if booking.Status != model.BookingStatusDraft {
		return nil, ErrBookingNotDraft
	}
	return booking, nil
}

func (s *scheduledEventService) clearEditMark(ctx context.Context, bookingID *string, rowID string) {
	if s.editStore == nil || bookingID == nil {
		return
	}
	if err := s.editStore.ClearRowEditing(ctx, *bookingID, rowID); err != nil {
		// 标记有 TTL 兜底，清除失败只记日志
		s.logger.Warn("清除行编辑标记失败", zap.String("row_id", rowID), zap.Error(err))
	}
}

// parseRange 解析并校验时间窗口；任何失败都先于远程调用发生
func parseRange(startsAt, endsAt string) (interval.Interval, error) {
	start, err := interval.ParseTzLess(startsAt)
	if err != nil {
		return interval.Interval{}, ErrBadTimestamp
	}
	end, err := interval.ParseTzLess(endsAt)
	if err != nil {
		return interval.Interval{}, ErrBadTimestamp
	}
	if !start.Before(end) {
		return interval.Interval{}, ErrInvalidRange
	}
	return interval.Interval{StartsAt: start, EndsAt: end}, nil
}

// anyOverlapExcluding 候选窗口是否与事件集合重叠（排除 excludeID 自身）
func anyOverlapExcluding(span interval.Interval, events []model.ScheduledEvent, excludeID string) bool {
	for i := range events {
		if events[i].ScheduledEventID == excludeID {
			continue
		}
		if interval.Overlaps(span, interval.Interval{StartsAt: events[i].StartsAt, EndsAt: events[i].EndsAt}) {
			return true
		}
	}
	return false
}

// checkOverlap 软阻断：发现重叠且未确认时返回携带冲突行的 OverlapError
func checkOverlap(span interval.Interval, siblings []model.ScheduledEvent, excludeID string, confirmed bool) error {
	var conflicts []dto.OverlapConflict
	for i := range siblings {
		if siblings[i].ScheduledEventID == excludeID {
			continue
		}
		other := interval.Interval{StartsAt: siblings[i].StartsAt, EndsAt: siblings[i].EndsAt}
		if interval.Overlaps(span, other) {
			conflicts = append(conflicts, dto.OverlapConflict{
				ID:       siblings[i].ScheduledEventID,
				StartsAt: interval.FormatTzLess(siblings[i].StartsAt),
				EndsAt:   interval.FormatTzLess(siblings[i].EndsAt),
			})
		}
	}
	if len(conflicts) > 0 && !confirmed {
		return &OverlapError{Conflicts: conflicts}
	}
	return nil
}

// toScheduledEventResponse 事件 → 响应 DTO
// status 为所属预约在读取时刻的状态镜像，可为空（独立事件）
func toScheduledEventResponse(event *model.ScheduledEvent, status model.BookingStatus) *dto.ScheduledEventResponse {
	resp := &dto.ScheduledEventResponse{
		ID:                event.ScheduledEventID,
		ProposalBookingID: event.ProposalBookingID,
		BookingType:       string(event.BookingType),
		InstrumentID:      event.InstrumentID,
		EquipmentID:       event.EquipmentID,
		Status:            string(status),
		StartsAt:          interval.FormatTzLess(event.StartsAt),
		EndsAt:            interval.FormatTzLess(event.EndsAt),
		Description:       event.Description,
	}

	if event.LocalContact != nil {
		resp.LocalContact = &dto.UserBrief{ID: event.LocalContact.UserID, Name: event.LocalContact.Name}
	}
	for i := range event.Assignments {
		resp.Assignments = append(resp.Assignments, *toAssignmentResponse(&event.Assignments[i]))
	}
	for i := range event.LostTimes {
		resp.LostTimes = append(resp.LostTimes, *toLostTimeResponse(&event.LostTimes[i]))
	}

	return resp
}
