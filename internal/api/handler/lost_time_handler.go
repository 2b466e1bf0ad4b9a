package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"beamline-scheduler/backend/internal/dto"
	"beamline-scheduler/backend/internal/service"
	"beamline-scheduler/backend/pkg/response"
)

// LostTimeHandler 损失时间 HTTP 处理器
type LostTimeHandler struct {
	lostTimeSvc service.LostTimeService
}

// NewLostTimeHandler 创建 LostTimeHandler
func NewLostTimeHandler(lostTimeSvc service.LostTimeService) *LostTimeHandler {
	return &LostTimeHandler{lostTimeSvc: lostTimeSvc}
}

// Add 录入损失时间
// POST /api/v1/events/:id/lost-times
func (h *LostTimeHandler) Add(c *gin.Context) {
	eventID := c.Param("id")

	var req dto.AddLostTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	lostTime, err := h.lostTimeSvc.Add(c.Request.Context(), eventID, &req, callerID)
	if err != nil {
		h.handleLostTimeError(c, err)
		return
	}

	response.Created(c, lostTime)
}

// Update 编辑损失时间
// PUT /api/v1/lost-times/:id
func (h *LostTimeHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdateLostTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	lostTime, err := h.lostTimeSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleLostTimeError(c, err)
		return
	}

	response.OK(c, lostTime)
}

// Delete 删除损失时间
// DELETE /api/v1/lost-times/:id
func (h *LostTimeHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.lostTimeSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleLostTimeError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListByEvent 查询某事件下的损失时间
// GET /api/v1/events/:id/lost-times
func (h *LostTimeHandler) ListByEvent(c *gin.Context) {
	eventID := c.Param("id")

	lostTimes, err := h.lostTimeSvc.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.handleLostTimeError(c, err)
		return
	}

	response.OK(c, gin.H{"list": lostTimes})
}

func (h *LostTimeHandler) handleLostTimeError(c *gin.Context, err error) {
	var overlapErr *service.OverlapError
	if errors.As(err, &overlapErr) {
		response.ErrorWithData(c, http.StatusConflict, 14101, "存在重叠的损失时间，需要确认后才能保存",
			gin.H{"conflicts": overlapErr.Conflicts})
		return
	}

	switch {
	case errors.Is(err, service.ErrLostTimeNotFound):
		response.NotFound(c, 14102, "损失时间记录不存在")
	case errors.Is(err, service.ErrScheduledEventNotFound):
		response.NotFound(c, 14103, "预约事件不存在")
	case errors.Is(err, service.ErrBookingNotActive):
		response.Conflict(c, 14104, "仅 ACTIVE 状态的预约可录入损失时间")
	case errors.Is(err, service.ErrEventNotInBooking):
		response.BadRequest(c, 14105, "预约事件不属于任何提案预约")
	case errors.Is(err, service.ErrBadTimestamp):
		response.BadRequest(c, 14106, "时间戳格式不合法，应为 YYYY-MM-DD HH:mm:ss")
	case errors.Is(err, service.ErrInvalidRange):
		response.BadRequest(c, 14107, "结束时间必须晚于开始时间")
	default:
		response.InternalError(c)
	}
}
