package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"beamline-scheduler/backend/internal/dto"
	"beamline-scheduler/backend/internal/service"
	"beamline-scheduler/backend/pkg/response"
)

// ScheduledEventHandler 预约事件（时段编辑器）HTTP 处理器
type ScheduledEventHandler struct {
	eventSvc service.ScheduledEventService
}

// NewScheduledEventHandler 创建 ScheduledEventHandler
func NewScheduledEventHandler(eventSvc service.ScheduledEventService) *ScheduledEventHandler {
	return &ScheduledEventHandler{eventSvc: eventSvc}
}

// Create 创建时段
// POST /api/v1/events
func (h *ScheduledEventHandler) Create(c *gin.Context) {
	var req dto.CreateScheduledEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	event, err := h.eventSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.Created(c, event)
}

// Update 保存行编辑（提交整行目标状态）
// PUT /api/v1/events/:id
func (h *ScheduledEventHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var req dto.UpdateScheduledEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	event, err := h.eventSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, event)
}

// Delete 批量删除（逐项结果，非全有全无）
// POST /api/v1/events/delete
func (h *ScheduledEventHandler) Delete(c *gin.Context) {
	var req dto.DeleteScheduledEventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	results, err := h.eventSvc.Delete(c.Request.Context(), req.IDs, callerID)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, gin.H{"results": results})
}

// BeginEdit 行进入编辑状态（仅打标记，不改数据）
// POST /api/v1/events/:id/edit
func (h *ScheduledEventHandler) BeginEdit(c *gin.Context) {
	id := c.Param("id")

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.eventSvc.BeginEdit(c.Request.Context(), id, callerID); err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, nil)
}

// ResetEdit 撤销未保存的编辑，返回最近持久化的行
// POST /api/v1/events/:id/reset
func (h *ScheduledEventHandler) ResetEdit(c *gin.Context) {
	id := c.Param("id")

	event, err := h.eventSvc.ResetEdit(c.Request.Context(), id)
	if err != nil {
		h.handleEventError(c, err)
		return
	}

	response.OK(c, event)
}

func (h *ScheduledEventHandler) handleEventError(c *gin.Context, err error) {
	var overlapErr *service.OverlapError
	if errors.As(err, &overlapErr) {
		// 重叠待确认：409 + 冲突行，前端确认后带 confirmed=true 重试
		response.ErrorWithData(c, http.StatusConflict, 13101, "存在重叠时段，需要确认后才能保存",
			gin.H{"conflicts": overlapErr.Conflicts})
		return
	}

	switch {
	case errors.Is(err, service.ErrScheduledEventNotFound):
		response.NotFound(c, 13102, "预约事件不存在")
	case errors.Is(err, service.ErrBadTimestamp):
		response.BadRequest(c, 13103, "时间戳格式不合法，应为 YYYY-MM-DD HH:mm:ss")
	case errors.Is(err, service.ErrInvalidRange):
		response.BadRequest(c, 13104, "结束时间必须晚于开始时间")
	case errors.Is(err, service.ErrBookingNotDraft):
		response.Conflict(c, 13105, "仅 DRAFT 状态的预约可编辑时段")
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFound(c, 13106, "提案预约不存在")
	case errors.Is(err, service.ErrOverlapBlocked):
		response.Conflict(c, 13107, "该时间窗口与已有事件重叠")
	case errors.Is(err, service.ErrInvalidBookingType):
		response.BadRequest(c, 13108, "无效的预约事件类型")
	default:
		response.InternalError(c)
	}
}
