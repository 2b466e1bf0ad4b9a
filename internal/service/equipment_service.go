package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"beamline-scheduler/backend/internal/dto"
	"beamline-scheduler/backend/internal/model"
	"beamline-scheduler/backend/internal/repository"
	"beamline-scheduler/backend/pkg/interval"
	"beamline-scheduler/backend/pkg/mq"
)

// ── 设备模块业务错误 ──

var (
	ErrEquipmentNotFound    = errors.New("设备不存在")
	ErrAssignmentNotFound   = errors.New("设备指派不存在")
	ErrAlreadyAssigned      = errors.New("设备已指派到该预约事件")
	ErrNotPending           = errors.New("指派已被裁决，不能重复处理")
	ErrNotResponsible       = errors.New("仅设备所有者或责任人可裁决指派")
	ErrEquipmentMaintenance = errors.New("设备在该时间窗口内处于维护期")
	ErrBadMaintenanceWindow = errors.New("维护窗口开始时间缺失或区间不合法")
	ErrInvalidDecision      = errors.New("无效的裁决值")
)

// EquipmentService 设备与指派审批接口
//
// 指派子状态机：PENDING → ACCEPTED | REJECTED（终态不可再迁移）。
// auto_accept 设备在指派时直接落 ACCEPTED。
// 相同裁决重复提交视为幂等成功，相反裁决返回 ErrNotPending。
type EquipmentService interface {
	Create(ctx context.Context, req *dto.CreateEquipmentRequest, ownerID string) (*dto.EquipmentResponse, error)
	Get(ctx context.Context, id string) (*dto.EquipmentResponse, error)
	List(ctx context.Context) ([]dto.EquipmentResponse, error)
	ListAvailableForEvent(ctx context.Context, eventID string) ([]dto.EquipmentResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateEquipmentRequest, callerID string) (*dto.EquipmentResponse, error)
	SetResponsible(ctx context.Context, id string, req *dto.AddResponsibleRequest) (*dto.EquipmentResponse, error)
	Assign(ctx context.Context, eventID string, req *dto.AssignEquipmentRequest, callerID string) ([]dto.EquipmentAssignmentResponse, error)
	Confirm(ctx context.Context, equipmentID, eventID string, req *dto.ConfirmAssignmentRequest, deciderID string, deciderRole string) (*dto.EquipmentAssignmentResponse, error)
	RemoveAssignment(ctx context.Context, equipmentID, eventID string) error
	ListPendingForDecider(ctx context.Context, userID string) ([]dto.EquipmentAssignmentResponse, error)
}

type equipmentService struct {
	repo      *repository.Repository
	publisher *mq.Publisher
	logger    *zap.Logger
}

// NewEquipmentService 创建 EquipmentService 实例
func NewEquipmentService(repo *repository.Repository, publisher *mq.Publisher, logger *zap.Logger) EquipmentService {
	return &equipmentService{repo: repo, publisher: publisher, logger: logger}
}

// ────────────────────── Create / Get / List ──────────────────────

func (s *equipmentService) Create(ctx context.Context, req *dto.CreateEquipmentRequest, ownerID string) (*dto.EquipmentResponse, error) {
	maintStart, maintEnd, err := parseMaintenanceWindow(req.MaintenanceStartsAt, req.MaintenanceEndsAt)
	if err != nil {
		return nil, err
	}

	equipment := &model.Equipment{
		Name:                req.Name,
		Description:         req.Description,
		Color:               req.Color,
		OwnerID:             ownerID,
		AutoAccept:          req.AutoAccept,
		MaintenanceStartsAt: maintStart,
		MaintenanceEndsAt:   maintEnd,
	}
	equipment.CreatedBy = &ownerID
	equipment.UpdatedBy = &ownerID

	if err := s.repo.Equipment.Create(ctx, equipment); err != nil {
		s.logger.Error("创建设备失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	return toEquipmentResponse(equipment), nil
}

func (s *equipmentService) Get(ctx context.Context, id string) (*dto.EquipmentResponse, error) {
	equipment, err := s.loadEquipment(ctx, id)
	if err != nil {
		return nil, err
	}
	return toEquipmentResponse(equipment), nil
}

func (s *equipmentService) List(ctx context.Context) ([]dto.EquipmentResponse, error) {
	equipments, err := s.repo.Equipment.List(ctx)
	if err != nil {
		s.logger.Error("查询设备列表失败", zap.Error(err))
		return nil, err
	}
	return toEquipmentResponses(equipments), nil
}

func (s *equipmentService) ListAvailableForEvent(ctx context.Context, eventID string) ([]dto.EquipmentResponse, error) {
	equipments, err := s.repo.Equipment.ListAvailableForEvent(ctx, eventID)
	if err != nil {
		s.logger.Error("查询可指派设备失败", zap.String("event_id", eventID), zap.Error(err))
		return nil, err
	}
	return toEquipmentResponses(equipments), nil
}

// ────────────────────── Update ──────────────────────

func (s *equipmentService) Update(ctx context.Context, id string, req *dto.UpdateEquipmentRequest, callerID string) (*dto.EquipmentResponse, error) {
	equipment, err := s.loadEquipment(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		equipment.Name = *req.Name
	}
	if req.Description != nil {
		equipment.Description = *req.Description
	}
	if req.Color != nil {
		equipment.Color = *req.Color
	}
	if req.AutoAccept != nil {
		equipment.AutoAccept = *req.AutoAccept
	}

	if req.ClearMaintenance {
		equipment.MaintenanceStartsAt = nil
		equipment.MaintenanceEndsAt = nil
	} else if req.MaintenanceStartsAt != nil || req.MaintenanceEndsAt != nil {
		maintStart, maintEnd, err := parseMaintenanceWindow(req.MaintenanceStartsAt, req.MaintenanceEndsAt)
		if err != nil {
			return nil, err
		}
		equipment.MaintenanceStartsAt = maintStart
		equipment.MaintenanceEndsAt = maintEnd
	}

	equipment.UpdatedBy = &callerID

	if err := s.repo.Equipment.Update(ctx, equipment); err != nil {
		s.logger.Error("更新设备失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return toEquipmentResponse(equipment), nil
}

// ────────────────────── SetResponsible ──────────────────────

// SetResponsible 整体替换设备责任人名单
func (s *equipmentService) SetResponsible(ctx context.Context, id string, req *dto.AddResponsibleRequest) (*dto.EquipmentResponse, error) {
	if _, err := s.loadEquipment(ctx, id); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(req.UserIDs))
	for _, userID := range req.UserIDs {
		user, err := s.repo.User.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		users = append(users, *user)
	}

	if err := s.repo.Equipment.ReplaceResponsible(ctx, id, users); err != nil {
		s.logger.Error("设置设备责任人失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	equipment, err := s.loadEquipment(ctx, id)
	if err != nil {
		return nil, err
	}
	return toEquipmentResponse(equipment), nil
}

// ────────────────────── Assign ──────────────────────

// Assign 将一批设备指派到预约事件。
// 维护窗口与事件窗口重叠的设备拒绝指派；重复指派返回 ErrAlreadyAssigned。
func (s *equipmentService) Assign(ctx context.Context, eventID string, req *dto.AssignEquipmentRequest, callerID string) ([]dto.EquipmentAssignmentResponse, error) {
	event, err := s.repo.ScheduledEvent.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrScheduledEventNotFound
		}
		s.logger.Error("查询时段失败", zap.String("id", eventID), zap.Error(err))
		return nil, err
	}

	if event.ProposalBookingID != nil {
		booking, err := s.repo.ProposalBooking.GetByID(ctx, *event.ProposalBookingID)
		if err != nil {
			return nil, err
		}
		if booking.Status != model.BookingStatusDraft {
			return nil, ErrBookingNotDraft
		}
	}

	eventSpan := interval.Interval{StartsAt: event.StartsAt, EndsAt: event.EndsAt}
	responses := make([]dto.EquipmentAssignmentResponse, 0, len(req.EquipmentIDs))

	for _, equipmentID := range req.EquipmentIDs {
		equipment, err := s.loadEquipment(ctx, equipmentID)
		if err != nil {
			return nil, err
		}

		if maintenanceOverlaps(equipment, eventSpan) {
			return nil, ErrEquipmentMaintenance
		}

		assignment := model.NewAssignment(equipment, eventID, callerID)
		inserted, err := s.repo.EquipmentAssignment.Create(ctx, assignment)
		if err != nil {
			s.logger.Error("创建设备指派失败",
				zap.String("equipment_id", equipmentID),
				zap.String("event_id", eventID),
				zap.Error(err))
			return nil, err
		}
		if !inserted {
			return nil, ErrAlreadyAssigned
		}

		if assignment.Status == model.AssignmentPending {
			s.publish(ctx, mq.RouteAssignmentRequested, map[string]string{
				"equipment_id":       equipmentID,
				"scheduled_event_id": eventID,
				"owner_id":           equipment.OwnerID,
			})
		}

		assignment.Equipment = equipment
		responses = append(responses, *toAssignmentResponse(assignment))
	}

	return responses, nil
}

// ────────────────────── Confirm ──────────────────────

// Confirm 裁决一条 PENDING 指派。
// 相同裁决重复提交幂等返回当前终态；相反裁决返回 ErrNotPending。
// user_officer 绕过责任人校验。
func (s *equipmentService) Confirm(ctx context.Context, equipmentID, eventID string, req *dto.ConfirmAssignmentRequest, deciderID string, deciderRole string) (*dto.EquipmentAssignmentResponse, error) {
	decision := model.AssignmentDecision(req.Decision)
	if !model.ValidDecision(decision) {
		return nil, ErrInvalidDecision
	}

	assignment, err := s.repo.EquipmentAssignment.Get(ctx, equipmentID, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		s.logger.Error("查询设备指派失败",
			zap.String("equipment_id", equipmentID),
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, err
	}

	if deciderRole != model.RoleUserOfficer {
		if assignment.Equipment == nil || !assignment.Equipment.CanDecide(deciderID) {
			return nil, ErrNotResponsible
		}
	}

	if assignment.IsTerminal() {
		if assignment.Status == decision.TerminalStatus() {
			return toAssignmentResponse(assignment), nil
		}
		return nil, ErrNotPending
	}

	assignment.Decide(decision, deciderID, time.Now())
	if err := s.repo.EquipmentAssignment.Update(ctx, assignment); err != nil {
		s.logger.Error("更新设备指派失败",
			zap.String("equipment_id", equipmentID),
			zap.String("event_id", eventID),
			zap.Error(err))
		return nil, err
	}

	s.publish(ctx, mq.RouteAssignmentDecided, map[string]string{
		"equipment_id":       equipmentID,
		"scheduled_event_id": eventID,
		"status":             string(assignment.Status),
		"decided_by":         deciderID,
	})

	return toAssignmentResponse(assignment), nil
}

// ────────────────────── RemoveAssignment ──────────────────────

// RemoveAssignment 移除指派（纯关联删除，无状态迁移）
func (s *equipmentService) RemoveAssignment(ctx context.Context, equipmentID, eventID string) error {
	if _, err := s.repo.EquipmentAssignment.Get(ctx, equipmentID, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}
	if err := s.repo.EquipmentAssignment.Delete(ctx, equipmentID, eventID); err != nil {
		s.logger.Error("删除设备指派失败",
			zap.String("equipment_id", equipmentID),
			zap.String("event_id", eventID),
			zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ListPendingForDecider ──────────────────────

// ListPendingForDecider 当前用户（所有者/责任人）的待裁决收件箱
func (s *equipmentService) ListPendingForDecider(ctx context.Context, userID string) ([]dto.EquipmentAssignmentResponse, error) {
	assignments, err := s.repo.EquipmentAssignment.ListPendingForDecider(ctx, userID)
	if err != nil {
		s.logger.Error("查询待裁决指派失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	responses := make([]dto.EquipmentAssignmentResponse, 0, len(assignments))
	for i := range assignments {
		responses = append(responses, *toAssignmentResponse(&assignments[i]))
	}
	return responses, nil
}

// ── 内部辅助方法 ──

func (s *equipmentService) loadEquipment(ctx context.Context, id string) (*model.Equipment, error) {
	equipment, err := s.repo.Equipment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEquipmentNotFound
		}
		s.logger.Error("查询设备失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return equipment, nil
}

func (s *equipmentService) publish(ctx context.Context, route string, payload interface{}) {
	if err := s.publisher.Publish(ctx, route, payload); err != nil {
		// 通知尽力而为，失败不回滚业务写入
		s.logger.Warn("发布消息失败", zap.String("route", route), zap.Error(err))
	}
}

// parseMaintenanceWindow 解析维护窗口。
// 开始非空、结束为空表示无限期维护；仅有结束无开始是非法的。
func parseMaintenanceWindow(startsAt, endsAt *string) (*time.Time, *time.Time, error) {
	if startsAt == nil {
		if endsAt != nil {
			return nil, nil, ErrBadMaintenanceWindow
		}
		return nil, nil, nil
	}

	start, err := interval.ParseTzLess(*startsAt)
	if err != nil {
		return nil, nil, ErrBadTimestamp
	}
	if endsAt == nil {
		return &start, nil, nil
	}

	end, err := interval.ParseTzLess(*endsAt)
	if err != nil {
		return nil, nil, ErrBadTimestamp
	}
	if !start.Before(end) {
		return nil, nil, ErrBadMaintenanceWindow
	}
	return &start, &end, nil
}

// maintenanceOverlaps 维护窗口与事件窗口是否重叠（无限期维护视为无穷远结束）
func maintenanceOverlaps(equipment *model.Equipment, eventSpan interval.Interval) bool {
	if equipment.MaintenanceStartsAt == nil {
		return false
	}
	if equipment.MaintenanceEndsAt == nil {
		// 无限期维护：只要事件结束晚于维护开始即冲突
		return eventSpan.EndsAt.After(*equipment.MaintenanceStartsAt)
	}
	maint := interval.Interval{StartsAt: *equipment.MaintenanceStartsAt, EndsAt: *equipment.MaintenanceEndsAt}
	return interval.Overlaps(eventSpan, maint)
}

// toEquipmentResponse 设备 → 响应 DTO
func toEquipmentResponse(equipment *model.Equipment) *dto.EquipmentResponse {
	resp := &dto.EquipmentResponse{
		ID:          equipment.EquipmentID,
		Name:        equipment.Name,
		Description: equipment.Description,
		Color:       equipment.Color,
		AutoAccept:  equipment.AutoAccept,
		CreatedAt:   interval.FormatTzLess(equipment.CreatedAt),
		UpdatedAt:   interval.FormatTzLess(equipment.UpdatedAt),
	}
	if equipment.MaintenanceStartsAt != nil {
		v := interval.FormatTzLess(*equipment.MaintenanceStartsAt)
		resp.MaintenanceStartsAt = &v
	}
	if equipment.MaintenanceEndsAt != nil {
		v := interval.FormatTzLess(*equipment.MaintenanceEndsAt)
		resp.MaintenanceEndsAt = &v
	}
	if equipment.Owner != nil {
		resp.Owner = &dto.UserBrief{ID: equipment.Owner.UserID, Name: equipment.Owner.Name}
	}
	for i := range equipment.Responsible {
		resp.Responsible = append(resp.Responsible, dto.UserBrief{
			ID:   equipment.Responsible[i].UserID,
			Name: equipment.Responsible[i].Name,
		})
	}
	return resp
}

func toEquipmentResponses(equipments []model.Equipment) []dto.EquipmentResponse {
	responses := make([]dto.EquipmentResponse, 0, len(equipments))
	for i := range equipments {
		responses = append(responses, *toEquipmentResponse(&equipments[i]))
	}
	return responses
}

// toAssignmentResponse 设备指派 → 响应 DTO
func toAssignmentResponse(assignment *model.EquipmentAssignment) *dto.EquipmentAssignmentResponse {
	resp := &dto.EquipmentAssignmentResponse{
		EquipmentID:      assignment.EquipmentID,
		ScheduledEventID: assignment.ScheduledEventID,
		Status:           string(assignment.Status),
		DecidedBy:        assignment.DecidedBy,
	}
	if assignment.Equipment != nil {
		resp.EquipmentName = assignment.Equipment.Name
	}
	if assignment.DecidedAt != nil {
		v := interval.FormatTzLess(*assignment.DecidedAt)
		resp.DecidedAt = &v
	}
	return resp
}
