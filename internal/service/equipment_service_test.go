package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"beamline-scheduler/backend/internal/dto"
	"beamline-scheduler/backend/internal/model"
)

func setupTestEquipmentService() (EquipmentService, *testRepos) {
	repos := newTestRepos()
	// 测试不接消息队列，nil Publisher 发布空转
	svc := NewEquipmentService(repos.toRepository(), nil, zap.NewNop())
	return svc, repos
}

func seedUser(repos *testRepos, id, name string) *model.User {
	user := &model.User{UserID: id, Name: name, Email: id + "@facility.cn", Role: model.RoleInstrumentScientist}
	_ = repos.user.Create(context.Background(), user)
	return user
}

func seedEquipment(repos *testRepos, ownerID string, autoAccept bool) *model.Equipment {
	equipment := &model.Equipment{Name: "低温恒温器", OwnerID: ownerID, AutoAccept: autoAccept}
	_ = repos.equipment.Create(context.Background(), equipment)
	return equipment
}

// ── Assign ──

func TestAssign_ManualEquipmentPending(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	owner := seedUser(repos, "owner-1", "王工")
	equipment := seedEquipment(repos, owner.UserID, false)

	responses, err := svc.Assign(context.Background(), event.ScheduledEventID, &dto.AssignEquipmentRequest{
		EquipmentIDs: []string{equipment.EquipmentID},
	}, "user-1")
	if err != nil {
		t.Fatalf("Assign 失败: %v", err)
	}

	if len(responses) != 1 {
		t.Fatalf("期望 1 条指派，实际=%d", len(responses))
	}
	if responses[0].Status != string(model.AssignmentPending) {
		t.Errorf("手动审批设备应落 PENDING，实际=%s", responses[0].Status)
	}
}

func TestAssign_AutoAcceptImmediatelyAccepted(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	owner := seedUser(repos, "owner-1", "王工")
	equipment := seedEquipment(repos, owner.UserID, true)

	responses, err := svc.Assign(context.Background(), event.ScheduledEventID, &dto.AssignEquipmentRequest{
		EquipmentIDs: []string{equipment.EquipmentID},
	}, "user-1")
	if err != nil {
		t.Fatalf("Assign 失败: %v", err)
	}

	// auto_accept 设备对外不存在可观察的 PENDING 中间态
	if responses[0].Status != string(model.AssignmentAccepted) {
		t.Errorf("auto_accept 设备应直接 ACCEPTED，实际=%s", responses[0].Status)
	}
}

func TestAssign_DuplicateRejected(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	owner := seedUser(repos, "owner-1", "王工")
	equipment := seedEquipment(repos, owner.UserID, false)

	req := &dto.AssignEquipmentRequest{EquipmentIDs: []string{equipment.EquipmentID}}
	if _, err := svc.Assign(context.Background(), event.ScheduledEventID, req, "user-1"); err != nil {
		t.Fatalf("首次指派失败: %v", err)
	}

	_, err := svc.Assign(context.Background(), event.ScheduledEventID, req, "user-1")
	if !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("期望 ErrAlreadyAssigned，实际: %v", err)
	}
}

func TestAssign_NonDraftBookingRejected(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	booking.Status = model.BookingStatusActive
	_ = repos.booking.Update(context.Background(), booking)

	owner := seedUser(repos, "owner-1", "王工")
	equipment := seedEquipment(repos, owner.UserID, false)

	_, err := svc.Assign(context.Background(), event.ScheduledEventID, &dto.AssignEquipmentRequest{
		EquipmentIDs: []string{equipment.EquipmentID},
	}, "user-1")
	if !errors.Is(err, ErrBookingNotDraft) {
		t.Fatalf("期望 ErrBookingNotDraft，实际: %v", err)
	}
}

func TestAssign_MaintenanceOverlapRejected(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	owner := seedUser(repos, "owner-1", "王工")

	maintStart := mustTime(t, "2026-03-02 09:30:00")
	maintEnd := mustTime(t, "2026-03-02 11:00:00")
	equipment := &model.Equipment{
		Name:                "探测器",
		OwnerID:             owner.UserID,
		MaintenanceStartsAt: &maintStart,
		MaintenanceEndsAt:   &maintEnd,
	}
	_ = repos.equipment.Create(context.Background(), equipment)

	_, err := svc.Assign(context.Background(), event.ScheduledEventID, &dto.AssignEquipmentRequest{
		EquipmentIDs: []string{equipment.EquipmentID},
	}, "user-1")
	if !errors.Is(err, ErrEquipmentMaintenance) {
		t.Fatalf("期望 ErrEquipmentMaintenance，实际: %v", err)
	}
}

func TestAssign_IndefiniteMaintenanceRejected(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	owner := seedUser(repos, "owner-1", "王工")

	// 无限期维护：无结束时间，事件在维护开始之后一律冲突
	maintStart := mustTime(t, "2026-03-01 00:00:00")
	equipment := &model.Equipment{
		Name:                "探测器",
		OwnerID:             owner.UserID,
		MaintenanceStartsAt: &maintStart,
	}
	_ = repos.equipment.Create(context.Background(), equipment)

	_, err := svc.Assign(context.Background(), event.ScheduledEventID, &dto.AssignEquipmentRequest{
		EquipmentIDs: []string{equipment.EquipmentID},
	}, "user-1")
	if !errors.Is(err, ErrEquipmentMaintenance) {
		t.Fatalf("期望 ErrEquipmentMaintenance，实际: %v", err)
	}
}

// ── Confirm ──

func seedPendingAssignment(t *testing.T, svc EquipmentService, repos *testRepos) (*model.Equipment, *model.ScheduledEvent) {
	t.Helper()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	owner := seedUser(repos, "owner-1", "王工")
	equipment := seedEquipment(repos, owner.UserID, false)

	_, err := svc.Assign(context.Background(), event.ScheduledEventID, &dto.AssignEquipmentRequest{
		EquipmentIDs: []string{equipment.EquipmentID},
	}, "user-1")
	if err != nil {
		t.Fatalf("前置指派失败: %v", err)
	}
	return equipment, event
}

func TestConfirm_OwnerAccepts(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	resp, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID,
		&dto.ConfirmAssignmentRequest{Decision: string(model.DecisionAccept)}, "owner-1", model.RoleEquipmentOwner)
	if err != nil {
		t.Fatalf("Confirm 失败: %v", err)
	}

	if resp.Status != string(model.AssignmentAccepted) {
		t.Errorf("期望 ACCEPTED，实际=%s", resp.Status)
	}
	if resp.DecidedBy == nil || *resp.DecidedBy != "owner-1" {
		t.Errorf("应记录裁决人，实际=%v", resp.DecidedBy)
	}
	if resp.DecidedAt == nil {
		t.Error("应记录裁决时间")
	}
}

func TestConfirm_ResponsibleAccepts(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	responsible := seedUser(repos, "resp-1", "李工")
	if err := repos.equipment.ReplaceResponsible(context.Background(), equipment.EquipmentID, []model.User{*responsible}); err != nil {
		t.Fatalf("设置责任人失败: %v", err)
	}

	resp, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID,
		&dto.ConfirmAssignmentRequest{Decision: string(model.DecisionReject)}, "resp-1", model.RoleInstrumentScientist)
	if err != nil {
		t.Fatalf("Confirm 失败: %v", err)
	}
	if resp.Status != string(model.AssignmentRejected) {
		t.Errorf("期望 REJECTED，实际=%s", resp.Status)
	}
}

func TestConfirm_StrangerRejected(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	_, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID,
		&dto.ConfirmAssignmentRequest{Decision: string(model.DecisionAccept)}, "stranger", model.RoleInstrumentScientist)
	if !errors.Is(err, ErrNotResponsible) {
		t.Fatalf("期望 ErrNotResponsible，实际: %v", err)
	}
}

func TestConfirm_UserOfficerBypassesResponsibleCheck(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	resp, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID,
		&dto.ConfirmAssignmentRequest{Decision: string(model.DecisionAccept)}, "officer-1", model.RoleUserOfficer)
	if err != nil {
		t.Fatalf("user_officer 裁决失败: %v", err)
	}
	if resp.Status != string(model.AssignmentAccepted) {
		t.Errorf("期望 ACCEPTED，实际=%s", resp.Status)
	}
}

func TestConfirm_SameDecisionIdempotent(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	req := &dto.ConfirmAssignmentRequest{Decision: string(model.DecisionAccept)}
	if _, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID, req, "owner-1", model.RoleEquipmentOwner); err != nil {
		t.Fatalf("首次裁决失败: %v", err)
	}

	// 相同裁决重复提交：幂等返回当前终态
	resp, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID, req, "owner-1", model.RoleEquipmentOwner)
	if err != nil {
		t.Fatalf("重复裁决应幂等成功: %v", err)
	}
	if resp.Status != string(model.AssignmentAccepted) {
		t.Errorf("期望 ACCEPTED，实际=%s", resp.Status)
	}
}

func TestConfirm_OppositeDecisionRejected(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	accept := &dto.ConfirmAssignmentRequest{Decision: string(model.DecisionAccept)}
	if _, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID, accept, "owner-1", model.RoleEquipmentOwner); err != nil {
		t.Fatalf("首次裁决失败: %v", err)
	}

	reject := &dto.ConfirmAssignmentRequest{Decision: string(model.DecisionReject)}
	_, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID, reject, "owner-1", model.RoleEquipmentOwner)
	if !errors.Is(err, ErrNotPending) {
		t.Fatalf("相反裁决应返回 ErrNotPending，实际: %v", err)
	}
}

func TestConfirm_InvalidDecision(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	_, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID,
		&dto.ConfirmAssignmentRequest{Decision: "MAYBE"}, "owner-1", model.RoleEquipmentOwner)
	if !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("期望 ErrInvalidDecision，实际: %v", err)
	}
}

// ── 维护窗口解析 ──

func TestParseMaintenanceWindow_EndWithoutStartRejected(t *testing.T) {
	end := "2026-03-10 00:00:00"
	_, _, err := parseMaintenanceWindow(nil, &end)
	if !errors.Is(err, ErrBadMaintenanceWindow) {
		t.Fatalf("期望 ErrBadMaintenanceWindow，实际: %v", err)
	}
}

func TestParseMaintenanceWindow_IndefiniteAllowed(t *testing.T) {
	start := "2026-03-01 00:00:00"
	gotStart, gotEnd, err := parseMaintenanceWindow(&start, nil)
	if err != nil {
		t.Fatalf("无限期维护窗口应合法: %v", err)
	}
	if gotStart == nil || gotEnd != nil {
		t.Errorf("期望 (开始, nil)，实际=(%v, %v)", gotStart, gotEnd)
	}
}

func TestParseMaintenanceWindow_InvertedRejected(t *testing.T) {
	start := "2026-03-10 00:00:00"
	end := "2026-03-01 00:00:00"
	_, _, err := parseMaintenanceWindow(&start, &end)
	if !errors.Is(err, ErrBadMaintenanceWindow) {
		t.Fatalf("期望 ErrBadMaintenanceWindow，实际: %v", err)
	}
}

// ── ListPendingForDecider / ListAvailableForEvent ──

func TestListPendingForDecider(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	pending, err := svc.ListPendingForDecider(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListPendingForDecider 失败: %v", err)
	}
	if len(pending) != 1 || pending[0].EquipmentID != equipment.EquipmentID {
		t.Fatalf("所有者应看到 1 条待裁决，实际=%+v", pending)
	}

	// 无关用户的收件箱为空
	other, err := svc.ListPendingForDecider(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("ListPendingForDecider 失败: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("无关用户不应看到待裁决，实际=%d", len(other))
	}

	// 裁决后收件箱清空
	if _, err := svc.Confirm(context.Background(), equipment.EquipmentID, event.ScheduledEventID,
		&dto.ConfirmAssignmentRequest{Decision: string(model.DecisionAccept)}, "owner-1", model.RoleEquipmentOwner); err != nil {
		t.Fatalf("Confirm 失败: %v", err)
	}
	pending, _ = svc.ListPendingForDecider(context.Background(), "owner-1")
	if len(pending) != 0 {
		t.Errorf("裁决后收件箱应为空，实际=%d", len(pending))
	}
}

func TestListAvailableForEvent_ExcludesAssigned(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	owner := seedUser(repos, "owner-1", "王工")
	assigned := seedEquipment(repos, owner.UserID, false)
	free := &model.Equipment{Name: "样品台", OwnerID: owner.UserID}
	_ = repos.equipment.Create(context.Background(), free)

	if _, err := svc.Assign(context.Background(), event.ScheduledEventID, &dto.AssignEquipmentRequest{
		EquipmentIDs: []string{assigned.EquipmentID},
	}, "user-1"); err != nil {
		t.Fatalf("前置指派失败: %v", err)
	}

	available, err := svc.ListAvailableForEvent(context.Background(), event.ScheduledEventID)
	if err != nil {
		t.Fatalf("ListAvailableForEvent 失败: %v", err)
	}
	if len(available) != 1 || available[0].ID != free.EquipmentID {
		t.Fatalf("应只剩未指派设备，实际=%+v", available)
	}
}

// ── RemoveAssignment ──

func TestRemoveAssignment(t *testing.T) {
	svc, repos := setupTestEquipmentService()
	equipment, event := seedPendingAssignment(t, svc, repos)

	if err := svc.RemoveAssignment(context.Background(), equipment.EquipmentID, event.ScheduledEventID); err != nil {
		t.Fatalf("RemoveAssignment 失败: %v", err)
	}

	err := svc.RemoveAssignment(context.Background(), equipment.EquipmentID, event.ScheduledEventID)
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("期望 ErrAssignmentNotFound，实际: %v", err)
	}
}
