package service

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"beamline-scheduler/backend/internal/model"
	"beamline-scheduler/backend/internal/repository"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = "user-" + user.Email
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

// ── Mock ProposalBookingRepository ──

type mockBookingRepo struct {
	bookings map[string]*model.ProposalBooking
	seq      int
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]*model.ProposalBooking)}
}

func (m *mockBookingRepo) Create(_ context.Context, booking *model.ProposalBooking) error {
	if booking.ProposalBookingID == "" {
		m.seq++
		booking.ProposalBookingID = fmt.Sprintf("booking-%d", m.seq)
	}
	m.bookings[booking.ProposalBookingID] = booking
	return nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id string) (*model.ProposalBooking, error) {
	if b, ok := m.bookings[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) GetByProposalCall(_ context.Context, proposalID, callID, instrumentID string) (*model.ProposalBooking, error) {
	for _, b := range m.bookings {
		if b.ProposalID == proposalID && b.CallID == callID && b.InstrumentID == instrumentID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) ListByInstrument(_ context.Context, instrumentID string) ([]model.ProposalBooking, error) {
	var result []model.ProposalBooking
	for _, b := range m.bookings {
		if b.InstrumentID == instrumentID {
			result = append(result, *b)
		}
	}
	return result, nil
}

func (m *mockBookingRepo) Update(_ context.Context, booking *model.ProposalBooking) error {
	booking.Version++
	cp := *booking
	m.bookings[booking.ProposalBookingID] = &cp
	return nil
}

// ── Mock ScheduledEventRepository ──

type mockEventRepo struct {
	events map[string]*model.ScheduledEvent
	seq    int
}

func newMockEventRepo() *mockEventRepo {
	return &mockEventRepo{events: make(map[string]*model.ScheduledEvent)}
}

func (m *mockEventRepo) Create(_ context.Context, event *model.ScheduledEvent) error {
	if event.ScheduledEventID == "" {
		m.seq++
		event.ScheduledEventID = fmt.Sprintf("event-%d", m.seq)
	}
	m.events[event.ScheduledEventID] = event
	return nil
}

func (m *mockEventRepo) GetByID(_ context.Context, id string) (*model.ScheduledEvent, error) {
	if e, ok := m.events[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func matchFilter(e *model.ScheduledEvent, filter repository.EventFilter) bool {
	if filter.BookingType != "" && e.BookingType != filter.BookingType {
		return false
	}
	if filter.StartsAfter != nil && !e.EndsAt.After(*filter.StartsAfter) {
		return false
	}
	if filter.EndsBefore != nil && !e.StartsAt.Before(*filter.EndsBefore) {
		return false
	}
	return true
}

func (m *mockEventRepo) ListByBooking(_ context.Context, bookingID string, filter repository.EventFilter) ([]model.ScheduledEvent, error) {
	var result []model.ScheduledEvent
	for _, e := range m.events {
		if e.ProposalBookingID != nil && *e.ProposalBookingID == bookingID && matchFilter(e, filter) {
			result = append(result, *e)
		}
	}
	sortEvents(result)
	return result, nil
}

func (m *mockEventRepo) ListByInstrument(_ context.Context, instrumentID string, filter repository.EventFilter) ([]model.ScheduledEvent, error) {
	var result []model.ScheduledEvent
	for _, e := range m.events {
		if e.InstrumentID != nil && *e.InstrumentID == instrumentID && matchFilter(e, filter) {
			result = append(result, *e)
		}
	}
	sortEvents(result)
	return result, nil
}

func (m *mockEventRepo) ListByEquipment(_ context.Context, equipmentID string) ([]model.ScheduledEvent, error) {
	var result []model.ScheduledEvent
	for _, e := range m.events {
		if e.EquipmentID != nil && *e.EquipmentID == equipmentID {
			result = append(result, *e)
		}
	}
	sortEvents(result)
	return result, nil
}

func (m *mockEventRepo) Update(_ context.Context, event *model.ScheduledEvent) error {
	event.Version++
	cp := *event
	m.events[event.ScheduledEventID] = &cp
	return nil
}

func (m *mockEventRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.events, id)
	return nil
}

func sortEvents(events []model.ScheduledEvent) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
}

// ── Mock EquipmentRepository ──

type mockEquipmentRepo struct {
	equipments  map[string]*model.Equipment
	assignments *mockAssignmentRepo // ListAvailableForEvent 需要查指派
	seq         int
}

func newMockEquipmentRepo(assignments *mockAssignmentRepo) *mockEquipmentRepo {
	return &mockEquipmentRepo{
		equipments:  make(map[string]*model.Equipment),
		assignments: assignments,
	}
}

func (m *mockEquipmentRepo) Create(_ context.Context, equipment *model.Equipment) error {
	if equipment.EquipmentID == "" {
		m.seq++
		equipment.EquipmentID = fmt.Sprintf("equip-%d", m.seq)
	}
	m.equipments[equipment.EquipmentID] = equipment
	return nil
}

func (m *mockEquipmentRepo) GetByID(_ context.Context, id string) (*model.Equipment, error) {
	if e, ok := m.equipments[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEquipmentRepo) List(_ context.Context) ([]model.Equipment, error) {
	var result []model.Equipment
	for _, e := range m.equipments {
		result = append(result, *e)
	}
	return result, nil
}

func (m *mockEquipmentRepo) ListAvailableForEvent(_ context.Context, eventID string) ([]model.Equipment, error) {
	assigned := make(map[string]bool)
	for _, a := range m.assignments.items {
		if a.ScheduledEventID == eventID {
			assigned[a.EquipmentID] = true
		}
	}
	var result []model.Equipment
	for _, e := range m.equipments {
		if !assigned[e.EquipmentID] {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockEquipmentRepo) Update(_ context.Context, equipment *model.Equipment) error {
	equipment.Version++
	cp := *equipment
	m.equipments[equipment.EquipmentID] = &cp
	return nil
}

func (m *mockEquipmentRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.equipments, id)
	return nil
}

func (m *mockEquipmentRepo) ReplaceResponsible(_ context.Context, equipmentID string, users []model.User) error {
	e, ok := m.equipments[equipmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Responsible = users
	return nil
}

// ── Mock EquipmentAssignmentRepository ──

type mockAssignmentRepo struct {
	items      map[string]*model.EquipmentAssignment // key: equipmentID+"/"+eventID
	equipments *mockEquipmentRepo                    // Get 需要 Preload Equipment
}

func newMockAssignmentRepo() *mockAssignmentRepo {
	return &mockAssignmentRepo{items: make(map[string]*model.EquipmentAssignment)}
}

func assignmentKey(equipmentID, eventID string) string {
	return equipmentID + "/" + eventID
}

func (m *mockAssignmentRepo) Create(_ context.Context, assignment *model.EquipmentAssignment) (bool, error) {
	key := assignmentKey(assignment.EquipmentID, assignment.ScheduledEventID)
	if _, exists := m.items[key]; exists {
		return false, nil
	}
	cp := *assignment
	m.items[key] = &cp
	return true, nil
}

func (m *mockAssignmentRepo) Get(_ context.Context, equipmentID, eventID string) (*model.EquipmentAssignment, error) {
	a, ok := m.items[assignmentKey(equipmentID, eventID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	if m.equipments != nil {
		if e, ok := m.equipments.equipments[equipmentID]; ok {
			ecp := *e
			cp.Equipment = &ecp
		}
	}
	return &cp, nil
}

func (m *mockAssignmentRepo) ListByEvent(_ context.Context, eventID string) ([]model.EquipmentAssignment, error) {
	var result []model.EquipmentAssignment
	for _, a := range m.items {
		if a.ScheduledEventID == eventID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockAssignmentRepo) ListPendingForDecider(_ context.Context, userID string) ([]model.EquipmentAssignment, error) {
	var result []model.EquipmentAssignment
	for _, a := range m.items {
		if a.Status != model.AssignmentPending {
			continue
		}
		if m.equipments == nil {
			continue
		}
		e, ok := m.equipments.equipments[a.EquipmentID]
		if !ok || !e.CanDecide(userID) {
			continue
		}
		result = append(result, *a)
	}
	return result, nil
}

func (m *mockAssignmentRepo) AllAccepted(_ context.Context, eventIDs []string) (bool, error) {
	eventSet := make(map[string]bool, len(eventIDs))
	for _, id := range eventIDs {
		eventSet[id] = true
	}
	for _, a := range m.items {
		if eventSet[a.ScheduledEventID] && a.Status != model.AssignmentAccepted {
			return false, nil
		}
	}
	return true, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, assignment *model.EquipmentAssignment) error {
	key := assignmentKey(assignment.EquipmentID, assignment.ScheduledEventID)
	if _, ok := m.items[key]; !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *assignment
	m.items[key] = &cp
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, equipmentID, eventID string) error {
	delete(m.items, assignmentKey(equipmentID, eventID))
	return nil
}

// ── Mock LostTimeRepository ──

type mockLostTimeRepo struct {
	items map[string]*model.LostTime
	seq   int
}

func newMockLostTimeRepo() *mockLostTimeRepo {
	return &mockLostTimeRepo{items: make(map[string]*model.LostTime)}
}

func (m *mockLostTimeRepo) Create(_ context.Context, lostTime *model.LostTime) error {
	if lostTime.LostTimeID == "" {
		m.seq++
		lostTime.LostTimeID = fmt.Sprintf("lost-%d", m.seq)
	}
	m.items[lostTime.LostTimeID] = lostTime
	return nil
}

func (m *mockLostTimeRepo) GetByID(_ context.Context, id string) (*model.LostTime, error) {
	if l, ok := m.items[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLostTimeRepo) ListByEvent(_ context.Context, eventID string) ([]model.LostTime, error) {
	var result []model.LostTime
	for _, l := range m.items {
		if l.ScheduledEventID == eventID {
			result = append(result, *l)
		}
	}
	return result, nil
}

func (m *mockLostTimeRepo) Update(_ context.Context, lostTime *model.LostTime) error {
	lostTime.Version++
	cp := *lostTime
	m.items[lostTime.LostTimeID] = &cp
	return nil
}

func (m *mockLostTimeRepo) Delete(_ context.Context, id string) error {
	delete(m.items, id)
	return nil
}

// ── Fake EditMarkStore ──

type fakeEditStore struct {
	marks map[string]map[string]bool // bookingID → rowID 集合
}

func newFakeEditStore() *fakeEditStore {
	return &fakeEditStore{marks: make(map[string]map[string]bool)}
}

func (f *fakeEditStore) MarkRowEditing(_ context.Context, bookingID, rowID string) error {
	if f.marks[bookingID] == nil {
		f.marks[bookingID] = make(map[string]bool)
	}
	f.marks[bookingID][rowID] = true
	return nil
}

func (f *fakeEditStore) ClearRowEditing(_ context.Context, bookingID, rowID string) error {
	delete(f.marks[bookingID], rowID)
	return nil
}

func (f *fakeEditStore) HasEditingRows(_ context.Context, bookingID string) (bool, error) {
	return len(f.marks[bookingID]) > 0, nil
}

// ── 测试聚合 ──

// testRepos 聚合所有 mock repo 便于 seed 数据
type testRepos struct {
	user       *mockUserRepo
	booking    *mockBookingRepo
	event      *mockEventRepo
	equipment  *mockEquipmentRepo
	assignment *mockAssignmentRepo
	lostTime   *mockLostTimeRepo
}

func newTestRepos() *testRepos {
	assignment := newMockAssignmentRepo()
	equipment := newMockEquipmentRepo(assignment)
	assignment.equipments = equipment

	return &testRepos{
		user:       newMockUserRepo(),
		booking:    newMockBookingRepo(),
		event:      newMockEventRepo(),
		equipment:  equipment,
		assignment: assignment,
		lostTime:   newMockLostTimeRepo(),
	}
}

func (r *testRepos) toRepository() *repository.Repository {
	return &repository.Repository{
		User:                r.user,
		ProposalBooking:     r.booking,
		ScheduledEvent:      r.event,
		Equipment:           r.equipment,
		EquipmentAssignment: r.assignment,
		LostTime:            r.lostTime,
	}
}
