package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"beamline-scheduler/backend/internal/dto"
	"beamline-scheduler/backend/internal/model"
	"beamline-scheduler/backend/internal/service"
	"beamline-scheduler/backend/pkg/response"
)

// ProposalBookingHandler 提案预约工作流 HTTP 处理器
type ProposalBookingHandler struct {
	bookingSvc service.ProposalBookingService
}

// NewProposalBookingHandler 创建 ProposalBookingHandler
func NewProposalBookingHandler(bookingSvc service.ProposalBookingService) *ProposalBookingHandler {
	return &ProposalBookingHandler{bookingSvc: bookingSvc}
}

// Open 打开 call+proposal 组合（已存在返回现有预约，否则创建 DRAFT）
// POST /api/v1/bookings
func (h *ProposalBookingHandler) Open(c *gin.Context) {
	var req dto.CreateProposalBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Open(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// Get 获取预约聚合（支持事件类型与时间窗口过滤）
// GET /api/v1/bookings/:id
func (h *ProposalBookingHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var filter dto.EventFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	booking, err := h.bookingSvc.Get(c.Request.Context(), id, &filter)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// Activate 激活预约（DRAFT → ACTIVE）
// POST /api/v1/bookings/:id/activate
func (h *ProposalBookingHandler) Activate(c *gin.Context) {
	id := c.Param("id")

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Activate(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// Finalize 终结动作（COMPLETE / RESTART）
// POST /api/v1/bookings/:id/finalize
func (h *ProposalBookingHandler) Finalize(c *gin.Context) {
	id := c.Param("id")

	var req dto.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.Finalize(c.Request.Context(), id, model.FinalizeAction(req.Action), callerID)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// GoToStep 向导步骤跳转
// PUT /api/v1/bookings/:id/step
func (h *ProposalBookingHandler) GoToStep(c *gin.Context) {
	id := c.Param("id")

	var req dto.GoToStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.GoToStep(c.Request.Context(), id, model.BookingStep(req.Step), callerID)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

func (h *ProposalBookingHandler) handleBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFound(c, 12101, "提案预约不存在")
	case errors.Is(err, model.ErrInvalidTransition):
		response.Conflict(c, 12102, "不允许的状态迁移")
	case errors.Is(err, model.ErrUnacceptedEquipment):
		response.Conflict(c, 12103, "所有已预订设备必须全部接受后才能激活预约")
	case errors.Is(err, model.ErrRowsStillEditing):
		response.Conflict(c, 12104, "存在编辑中的时段，请先保存或撤销")
	case errors.Is(err, service.ErrInvalidStep):
		response.BadRequest(c, 12105, "无效的向导步骤")
	case errors.Is(err, service.ErrBadEventFilter):
		response.BadRequest(c, 12106, "事件过滤条件不合法")
	default:
		response.InternalError(c)
	}
}
