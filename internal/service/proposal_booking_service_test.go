package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"beamline-scheduler/backend/internal/dto"
	"beamline-scheduler/backend/internal/model"
	"beamline-scheduler/backend/pkg/interval"
)

// ── 测试辅助 ──

func setupTestBookingService() (ProposalBookingService, *testRepos, *fakeEditStore) {
	repos := newTestRepos()
	editStore := newFakeEditStore()
	svc := NewProposalBookingService(repos.toRepository(), editStore, nil, zap.NewNop())
	return svc, repos, editStore
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := interval.ParseTzLess(value)
	if err != nil {
		t.Fatalf("解析时间失败: %v", err)
	}
	return ts
}

func seedDraftBooking(repos *testRepos, allocated int64) *model.ProposalBooking {
	booking := &model.ProposalBooking{
		ProposalID:    "P-2026-001",
		CallID:        "CALL-1",
		InstrumentID:  "BL-31",
		AllocatedTime: allocated,
		Status:        model.BookingStatusDraft,
		ActiveStep:    model.StepBookEvents,
	}
	_ = repos.booking.Create(context.Background(), booking)
	return booking
}

func seedEvent(t *testing.T, repos *testRepos, bookingID, startsAt, endsAt string) *model.ScheduledEvent {
	t.Helper()
	event := &model.ScheduledEvent{
		ProposalBookingID: &bookingID,
		BookingType:       model.BookingTypeUserOperations,
		StartsAt:          mustTime(t, startsAt),
		EndsAt:            mustTime(t, endsAt),
	}
	_ = repos.event.Create(context.Background(), event)
	return event
}

// ── Open ──

func TestOpen_CreatesDraftAtFirstStep(t *testing.T) {
	svc, _, _ := setupTestBookingService()

	resp, err := svc.Open(context.Background(), &dto.CreateProposalBookingRequest{
		ProposalID:    "P-2026-001",
		CallID:        "CALL-1",
		InstrumentID:  "BL-31",
		AllocatedTime: 172800,
	}, "user-1")
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}

	if resp.Status != string(model.BookingStatusDraft) {
		t.Errorf("期望 Status=DRAFT，实际=%s", resp.Status)
	}
	if resp.ActiveStep != string(model.StepBookEvents) {
		t.Errorf("期望 ActiveStep=BOOK_EVENTS，实际=%s", resp.ActiveStep)
	}
	if resp.AllocatedTime != 172800 {
		t.Errorf("期望 AllocatedTime=172800，实际=%d", resp.AllocatedTime)
	}
}

func TestOpen_ReturnsExistingBooking(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 3600)

	resp, err := svc.Open(context.Background(), &dto.CreateProposalBookingRequest{
		ProposalID:   "P-2026-001",
		CallID:       "CALL-1",
		InstrumentID: "BL-31",
	}, "user-1")
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}

	if resp.ID != booking.ProposalBookingID {
		t.Errorf("期望返回已有预约 %s，实际=%s", booking.ProposalBookingID, resp.ID)
	}
	if len(repos.booking.bookings) != 1 {
		t.Errorf("不应创建新预约，实际数量=%d", len(repos.booking.bookings))
	}
}

// ── 配额台账 ──

func TestGet_AllocationLedger(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 172800) // 48h
	seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")

	resp, err := svc.Get(context.Background(), booking.ProposalBookingID, nil)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}

	if resp.AllocatedSeconds != 3600 {
		t.Errorf("期望已排 3600 秒，实际=%d", resp.AllocatedSeconds)
	}
	if resp.Allocatable != 169200 {
		t.Errorf("期望剩余 169200 秒，实际=%d", resp.Allocatable)
	}
}

func TestGet_AllocatableMayGoNegative(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 1800) // 预算半小时
	seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")

	resp, err := svc.Get(context.Background(), booking.ProposalBookingID, nil)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}

	// 台账只提示不拦截，允许为负
	if resp.Allocatable != -1800 {
		t.Errorf("期望剩余 -1800 秒，实际=%d", resp.Allocatable)
	}
}

// ── Activate ──

func TestActivate_BlockedByPendingAssignment(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")

	_, _ = repos.assignment.Create(context.Background(), &model.EquipmentAssignment{
		EquipmentID:      "equip-1",
		ScheduledEventID: event.ScheduledEventID,
		Status:           model.AssignmentPending,
	})

	_, err := svc.Activate(context.Background(), booking.ProposalBookingID, "user-1")
	if !errors.Is(err, model.ErrUnacceptedEquipment) {
		t.Fatalf("期望 ErrUnacceptedEquipment，实际: %v", err)
	}

	// 守卫失败不应产生任何落库变更
	stored, _ := repos.booking.GetByID(context.Background(), booking.ProposalBookingID)
	if stored.Status != model.BookingStatusDraft {
		t.Errorf("守卫失败后状态应仍为 DRAFT，实际=%s", stored.Status)
	}
}

func TestActivate_AllAcceptedSucceeds(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")

	_, _ = repos.assignment.Create(context.Background(), &model.EquipmentAssignment{
		EquipmentID:      "equip-1",
		ScheduledEventID: event.ScheduledEventID,
		Status:           model.AssignmentAccepted,
	})

	resp, err := svc.Activate(context.Background(), booking.ProposalBookingID, "user-1")
	if err != nil {
		t.Fatalf("Activate 失败: %v", err)
	}

	if resp.Status != string(model.BookingStatusActive) {
		t.Errorf("期望 Status=ACTIVE，实际=%s", resp.Status)
	}
	if resp.ActiveStep != string(model.StepFinalize) {
		t.Errorf("激活后步骤应为 FINALIZE，实际=%s", resp.ActiveStep)
	}
}

func TestActivate_NoAssignmentsVacuouslyAccepted(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")

	// 无任何指派时守卫空洞为真
	resp, err := svc.Activate(context.Background(), booking.ProposalBookingID, "user-1")
	if err != nil {
		t.Fatalf("Activate 失败: %v", err)
	}
	if resp.Status != string(model.BookingStatusActive) {
		t.Errorf("期望 Status=ACTIVE，实际=%s", resp.Status)
	}
}

func TestActivate_FromActiveRejected(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	booking.Status = model.BookingStatusActive
	_ = repos.booking.Update(context.Background(), booking)

	_, err := svc.Activate(context.Background(), booking.ProposalBookingID, "user-1")
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("期望 ErrInvalidTransition，实际: %v", err)
	}
}

// ── Finalize ──

func TestFinalize_Complete(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	booking.Status = model.BookingStatusActive
	_ = repos.booking.Update(context.Background(), booking)

	resp, err := svc.Finalize(context.Background(), booking.ProposalBookingID, model.FinalizeComplete, "user-1")
	if err != nil {
		t.Fatalf("Finalize 失败: %v", err)
	}
	if resp.Status != string(model.BookingStatusCompleted) {
		t.Errorf("期望 Status=COMPLETED，实际=%s", resp.Status)
	}
}

func TestFinalize_CompleteFromDraftRejected(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)

	_, err := svc.Finalize(context.Background(), booking.ProposalBookingID, model.FinalizeComplete, "user-1")
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("期望 ErrInvalidTransition，实际: %v", err)
	}
}

func TestFinalize_RestartKeepsData(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")
	_ = repos.lostTime.Create(context.Background(), &model.LostTime{
		ScheduledEventID: event.ScheduledEventID,
		StartsAt:         mustTime(t, "2026-03-02 09:00:00"),
		EndsAt:           mustTime(t, "2026-03-02 09:30:00"),
	})

	booking.Status = model.BookingStatusCompleted
	_ = repos.booking.Update(context.Background(), booking)

	resp, err := svc.Finalize(context.Background(), booking.ProposalBookingID, model.FinalizeRestart, "user-1")
	if err != nil {
		t.Fatalf("Finalize 失败: %v", err)
	}

	if resp.Status != string(model.BookingStatusDraft) {
		t.Errorf("期望重启后 Status=DRAFT，实际=%s", resp.Status)
	}
	if resp.ActiveStep != string(model.StepBookEvents) {
		t.Errorf("期望重启后步骤回到 BOOK_EVENTS，实际=%s", resp.ActiveStep)
	}

	// 非破坏性：已录入的事件与损失时间全部保留
	if len(resp.ScheduledEvents) != 1 {
		t.Fatalf("重启不应删除事件，实际数量=%d", len(resp.ScheduledEvents))
	}
	if len(repos.lostTime.items) != 1 {
		t.Errorf("重启不应删除损失时间，实际数量=%d", len(repos.lostTime.items))
	}
}

// ── GoToStep ──

func TestGoToStep_ForwardBlockedByEditingRows(t *testing.T) {
	svc, repos, editStore := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")

	_ = editStore.MarkRowEditing(context.Background(), booking.ProposalBookingID, event.ScheduledEventID)

	_, err := svc.GoToStep(context.Background(), booking.ProposalBookingID, model.StepBookEquipment, "user-1")
	if !errors.Is(err, model.ErrRowsStillEditing) {
		t.Fatalf("期望 ErrRowsStillEditing，实际: %v", err)
	}
}

func TestGoToStep_BackwardAlwaysAllowed(t *testing.T) {
	svc, repos, editStore := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	booking.ActiveStep = model.StepReview
	_ = repos.booking.Update(context.Background(), booking)

	// 有编辑中的行也允许后退
	_ = editStore.MarkRowEditing(context.Background(), booking.ProposalBookingID, "event-x")

	resp, err := svc.GoToStep(context.Background(), booking.ProposalBookingID, model.StepBookEvents, "user-1")
	if err != nil {
		t.Fatalf("GoToStep 失败: %v", err)
	}
	if resp.ActiveStep != string(model.StepBookEvents) {
		t.Errorf("期望步骤=BOOK_EVENTS，实际=%s", resp.ActiveStep)
	}
}

func TestGoToStep_ForwardAfterSaveAllowed(t *testing.T) {
	svc, repos, editStore := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)
	event := seedEvent(t, repos, booking.ProposalBookingID, "2026-03-02 09:00:00", "2026-03-02 10:00:00")

	_ = editStore.MarkRowEditing(context.Background(), booking.ProposalBookingID, event.ScheduledEventID)
	_ = editStore.ClearRowEditing(context.Background(), booking.ProposalBookingID, event.ScheduledEventID)

	resp, err := svc.GoToStep(context.Background(), booking.ProposalBookingID, model.StepBookEquipment, "user-1")
	if err != nil {
		t.Fatalf("GoToStep 失败: %v", err)
	}
	if resp.ActiveStep != string(model.StepBookEquipment) {
		t.Errorf("期望步骤=BOOK_EQUIPMENT，实际=%s", resp.ActiveStep)
	}
}

func TestGoToStep_InvalidStepRejected(t *testing.T) {
	svc, repos, _ := setupTestBookingService()
	booking := seedDraftBooking(repos, 0)

	_, err := svc.GoToStep(context.Background(), booking.ProposalBookingID, model.BookingStep("NOT_A_STEP"), "user-1")
	if !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("期望 ErrInvalidStep，实际: %v", err)
	}
}
