package repository

import (
	"context"

	"gorm.io/gorm"

	"beamline-scheduler/backend/internal/model"
)

// ProposalBookingRepository 提案预约数据访问接口
type ProposalBookingRepository interface {
	Create(ctx context.Context, booking *model.ProposalBooking) error
	GetByID(ctx context.Context, id string) (*model.ProposalBooking, error)
	GetByProposalCall(ctx context.Context, proposalID, callID, instrumentID string) (*model.ProposalBooking, error)
	ListByInstrument(ctx context.Context, instrumentID string) ([]model.ProposalBooking, error)
	Update(ctx context.Context, booking *model.ProposalBooking) error
}

type proposalBookingRepo struct {
	db *gorm.DB
}

// NewProposalBookingRepo 创建 ProposalBookingRepository 实例
func NewProposalBookingRepo(db *gorm.DB) ProposalBookingRepository {
	return &proposalBookingRepo{db: db}
}

func (r *proposalBookingRepo) Create(ctx context.Context, booking *model.ProposalBooking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *proposalBookingRepo) GetByID(ctx context.Context, id string) (*model.ProposalBooking, error) {
	var booking model.ProposalBooking
	err := r.db.WithContext(ctx).
		Where("proposal_booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *proposalBookingRepo) GetByProposalCall(ctx context.Context, proposalID, callID, instrumentID string) (*model.ProposalBooking, error) {
	var booking model.ProposalBooking
	err := r.db.WithContext(ctx).
		Where("proposal_id = ? AND call_id = ? AND instrument_id = ?", proposalID, callID, instrumentID).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *proposalBookingRepo) ListByInstrument(ctx context.Context, instrumentID string) ([]model.ProposalBooking, error) {
	var bookings []model.ProposalBooking
	err := r.db.WithContext(ctx).
		Where("instrument_id = ?", instrumentID).
		Order("created_at ASC").
		Find(&bookings).Error
	return bookings, err
}

// Update 全量写入并递增版本号（行粒度 last-write-wins）
func (r *proposalBookingRepo) Update(ctx context.Context, booking *model.ProposalBooking) error {
	booking.Version++
	return r.db.WithContext(ctx).Save(booking).Error
}
