package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"beamline-scheduler/backend/internal/repository"
)

// ── ICS 模块业务错误 ──

var ErrICSNoEvents = errors.New("该仪器暂无可订阅的预约事件")

// ICSService 仪器日历订阅接口
//
// 把某台仪器的全部预约事件（用户实验、设备占用、维护、停机）导出为
// iCalendar 订阅源，供本地联系人把排期挂进自己的日历客户端。
type ICSService interface {
	// InstrumentFeed 生成某仪器的 ICS 订阅内容
	InstrumentFeed(ctx context.Context, instrumentID string) (string, error)
}

type icsService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewICSService 创建 ICSService 实例
func NewICSService(repo *repository.Repository, logger *zap.Logger) ICSService {
	return &icsService{repo: repo, logger: logger}
}

func (s *icsService) InstrumentFeed(ctx context.Context, instrumentID string) (string, error) {
	events, err := s.repo.ScheduledEvent.ListByInstrument(ctx, instrumentID, repository.EventFilter{})
	if err != nil {
		s.logger.Error("查询仪器事件失败", zap.String("instrument_id", instrumentID), zap.Error(err))
		return "", err
	}
	if len(events) == 0 {
		return "", ErrICSNoEvents
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//beamline-scheduler//CN")
	cal.SetName(fmt.Sprintf("仪器 %s 排期", instrumentID))

	now := time.Now()
	for i := range events {
		ev := &events[i]

		vevent := cal.AddEvent(ev.ScheduledEventID)
		vevent.SetDtStampTime(now)
		vevent.SetStartAt(ev.StartsAt)
		vevent.SetEndAt(ev.EndsAt)
		vevent.SetSummary(fmt.Sprintf("[%s] %s", ev.BookingType, ev.Description))
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
	}

	return cal.Serialize(), nil
}
