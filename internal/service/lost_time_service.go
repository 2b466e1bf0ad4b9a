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

// ── 损失时间模块业务错误 ──

var (
	ErrLostTimeNotFound  = errors.New("损失时间记录不存在")
	ErrBookingNotActive  = errors.New("仅 ACTIVE 状态的预约可录入损失时间")
	ErrEventNotInBooking = errors.New("预约事件不属于任何提案预约")
)

// LostTimeService 损失时间编辑器接口
//
// 损失时间只和同一事件下的兄弟记录比对重叠，允许超出事件名义窗口
// （故障可能跨越事件边界发生）。编辑仅在预约 ACTIVE 期间开放。
type LostTimeService interface {
	Add(ctx context.Context, eventID string, req *dto.AddLostTimeRequest, callerID string) (*dto.LostTimeResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateLostTimeRequest, callerID string) (*dto.LostTimeResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	ListByEvent(ctx context.Context, eventID string) ([]dto.LostTimeResponse, error)
}

type lostTimeService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewLostTimeService 创建 LostTimeService 实例
func NewLostTimeService(repo *repository.Repository, logger *zap.Logger) LostTimeService {
	return &lostTimeService{repo: repo, logger: logger}
}

// ────────────────────── Add ──────────────────────

func (s *lostTimeService) Add(ctx context.Context, eventID string, req *dto.AddLostTimeRequest, callerID string) (*dto.LostTimeResponse, error) {
	span, err := parseRange(req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	if err := s.requireActiveBooking(ctx, eventID); err != nil {
		return nil, err
	}

	if err := s.checkSiblingOverlap(ctx, eventID, span, "", req.Confirmed); err != nil {
		return nil, err
	}

	lostTime := &model.LostTime{
		ScheduledEventID: eventID,
		StartsAt:         span.StartsAt,
		EndsAt:           span.EndsAt,
		Reason:           req.Reason,
	}
	lostTime.CreatedBy = &callerID
	lostTime.UpdatedBy = &callerID

	if err := s.repo.LostTime.Create(ctx, lostTime); err != nil {
		s.logger.Error("录入损失时间失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	return toLostTimeResponse(lostTime), nil
}

// ────────────────────── Update ──────────────────────

func (s *lostTimeService) Update(ctx context.Context, id string, req *dto.UpdateLostTimeRequest, callerID string) (*dto.LostTimeResponse, error) {
	span, err := parseRange(req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	lostTime, err := s.loadLostTime(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.requireActiveBooking(ctx, lostTime.ScheduledEventID); err != nil {
		return nil, err
	}

	if err := s.checkSiblingOverlap(ctx, lostTime.ScheduledEventID, span, id, req.Confirmed); err != nil {
		return nil, err
	}

	lostTime.StartsAt = span.StartsAt
	lostTime.EndsAt = span.EndsAt
	if req.Reason != nil {
		lostTime.Reason = *req.Reason
	}
	lostTime.UpdatedBy = &callerID

	if err := s.repo.LostTime.Update(ctx, lostTime); err != nil {
		s.logger.Error("更新损失时间失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toLostTimeResponse(lostTime), nil
}

// ────────────────────── Delete ──────────────────────

func (s *lostTimeService) Delete(ctx context.Context, id string, callerID string) error {
	lostTime, err := s.loadLostTime(ctx, id)
	if err != nil {
		return err
	}

	if err := s.requireActiveBooking(ctx, lostTime.ScheduledEventID); err != nil {
		return err
	}

	if err := s.repo.LostTime.Delete(ctx, id); err != nil {
		s.logger.Error("删除损失时间失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ListByEvent ──────────────────────

func (s *lostTimeService) ListByEvent(ctx context.Context, eventID string) ([]dto.LostTimeResponse, error) {
	lostTimes, err := s.repo.LostTime.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询损失时间失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}

	responses := make([]dto.LostTimeResponse, 0, len(lostTimes))
	for i := range lostTimes {
		responses = append(responses, *toLostTimeResponse(&lostTimes[i]))
	}
	return responses, nil
}

// ── 内部辅助方法 ──

func (s *lostTimeService) loadLostTime(ctx context.Context, id string) (*model.LostTime, error) {
	lostTime, err := s.repo.LostTime.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLostTimeNotFound
		}
		s.logger.Error("查询损失时间失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return lostTime, nil
}

// requireActiveBooking 校验事件属于某提案预约且该预约处于 ACTIVE
func (s *lostTimeService) requireActiveBooking(ctx context.Context, eventID string) error {
	event, err := s.repo.ScheduledEvent.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrScheduledEventNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", eventID), zap.Error(err))
		return err
	}
	if event.ProposalBookingID == nil {
		return ErrEventNotInBooking
	}

	booking, err := s.repo.ProposalBooking.GetByID(ctx, *event.ProposalBookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookingNotFound
		}
		return err
	}
	if booking.Status != model.BookingStatusActive {
		return ErrBookingNotActive
	}
	return nil
}

// checkSiblingOverlap 与同事件下其他损失时间比对，软阻断待确认
func (s *lostTimeService) checkSiblingOverlap(ctx context.Context, eventID string, span interval.Interval, excludeID string, confirmed bool) error {
	siblings, err := s.repo.LostTime.ListByEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询兄弟损失时间失败", zap.String("event_id", eventID), zap.Error(err))
		return err
	}

	var conflicts []dto.OverlapConflict
	for i := range siblings {
		if siblings[i].LostTimeID == excludeID {
			continue
		}
		other := interval.Interval{StartsAt: siblings[i].StartsAt, EndsAt: siblings[i].EndsAt}
		if interval.Overlaps(span, other) {
			conflicts = append(conflicts, dto.OverlapConflict{
				ID:       siblings[i].LostTimeID,
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

// toLostTimeResponse 损失时间 → 响应 DTO
func toLostTimeResponse(lostTime *model.LostTime) *dto.LostTimeResponse {
	return &dto.LostTimeResponse{
		ID:               lostTime.LostTimeID,
		ScheduledEventID: lostTime.ScheduledEventID,
		StartsAt:         interval.FormatTzLess(lostTime.StartsAt),
		EndsAt:           interval.FormatTzLess(lostTime.EndsAt),
		Reason:           lostTime.Reason,
	}
}
