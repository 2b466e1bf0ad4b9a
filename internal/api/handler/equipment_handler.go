package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"beamline-scheduler/backend/internal/dto"
	"beamline-scheduler/backend/internal/service"
	"beamline-scheduler/backend/pkg/response"
)

// EquipmentHandler 设备与指派审批 HTTP 处理器
type EquipmentHandler struct {
	equipmentSvc service.EquipmentService
}

// NewEquipmentHandler 创建 EquipmentHandler
func NewEquipmentHandler(equipmentSvc service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{equipmentSvc: equipmentSvc}
}

// Create 创建设备
// POST /api/v1/equipments
func (h *EquipmentHandler) Create(c *gin.Context) {
	var req dto.CreateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	ownerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	equipment, err := h.equipmentSvc.Create(c.Request.Context(), &req, ownerID)
	if err != nil {
		h.handleEquipmentError(c, err)
		return
	}

	response.Created(c, equipment)
}

// Get 获取设备详情
// GET /api/v1/equipments/:id
func (h *EquipmentHandler) Get(c *gin.Context) {
	equipment, err := h.equipmentSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleEquipmentError(c, err)
		return
	}
	response.OK(c, equipment)
}

// List 设备列表
// GET /api/v1/equipments
func (h *EquipmentHandler) List(c *gin.Context) {
	// event_id 给定时只返回尚未指派到该事件的设备
	var (
		equipments []dto.EquipmentResponse
		err        error
	)
	if eventID := c.Query("event_id"); eventID != "" {
		equipments, err = h.equipmentSvc.ListAvailableForEvent(c.Request.Context(), eventID)
	} else {
		equipments, err = h.equipmentSvc.List(c.Request.Context())
	}
	if err != nil {
		h.handleEquipmentError(c, err)
		return
	}
	response.OK(c, gin.H{"list": equipments})
}

// Update 更新设备（含维护窗口设置与清除）
// PUT /api/v1/equipments/:id
func (h *EquipmentHandler) Update(c *gin.Context) {
	var req dto.UpdateEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	equipment, err := h.equipmentSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleEquipmentError(c, err)
		return
	}

	response.OK(c, equipment)
}

// SetResponsible 整体替换设备责任人
// PUT /api/v1/equipments/:id/responsible
func (h *EquipmentHandler) SetResponsible(c *gin.Context) {
	var req dto.AddResponsibleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	equipment, err := h.equipmentSvc.SetResponsible(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleEquipmentError(c, err)
		return
	}

	response.OK(c, equipment)
}

// Assign 将设备指派到预约事件
// POST /api/v1/events/:id/equipments
func (h *EquipmentHandler) Assign(c *gin.Context) {
	eventID := c.Param("id")

	var req dto.AssignEquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	assignments, err := h.equipmentSvc.Assign(c.Request.Context(), eventID, &req, callerID)
	if err != nil {
		h.handleEquipmentError(c, err)
		return
	}

	response.Created(c, gin.H{"list": assignments})
}

// Confirm 裁决指派（ACCEPT / REJECT）
// PUT /api/v1/events/:event_id/equipments/:equipment_id/confirm
func (h *EquipmentHandler) Confirm(c *gin.Context) {
	eventID := c.Param("event_id")
	equipmentID := c.Param("equipment_id")

	var req dto.ConfirmAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	deciderID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	role, ok := MustGetRole(c)
	if !ok {
		return
	}

	assignment, err := h.equipmentSvc.Confirm(c.Request.Context(), equipmentID, eventID, &req, deciderID, role)
	if err != nil {
		h.handleEquipmentError(c, err)
		return
	}

	response.OK(c, assignment)
}

// RemoveAssignment 移除指派
// DELETE /api/v1/events/:event_id/equipments/:equipment_id
func (h *EquipmentHandler) RemoveAssignment(c *gin.Context) {
	eventID := c.Param("event_id")
	equipmentID := c.Param("equipment_id")

	if err := h.equipmentSvc.RemoveAssignment(c.Request.Context(), equipmentID, eventID); err != nil {
		h.handleEquipmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListPending 当前用户的待裁决收件箱
// GET /api/v1/assignments/pending
func (h *EquipmentHandler) ListPending(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	assignments, err := h.equipmentSvc.ListPendingForDecider(c.Request.Context(), userID)
	if err != nil {
		h.handleEquipmentError(c, err)
		return
	}

	response.OK(c, gin.H{"list": assignments})
}

func (h *EquipmentHandler) handleEquipmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEquipmentNotFound):
		response.NotFound(c, 15101, "设备不存在")
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 15102, "设备指派不存在")
	case errors.Is(err, service.ErrAlreadyAssigned):
		response.Conflict(c, 15103, "设备已指派到该预约事件")
	case errors.Is(err, service.ErrNotPending):
		response.Conflict(c, 15104, "指派已被裁决，不能重复处理")
	case errors.Is(err, service.ErrNotResponsible):
		response.Forbidden(c, 15105, "仅设备所有者或责任人可裁决指派")
	case errors.Is(err, service.ErrEquipmentMaintenance):
		response.Conflict(c, 15106, "设备在该时间窗口内处于维护期")
	case errors.Is(err, service.ErrBadMaintenanceWindow):
		response.BadRequest(c, 15107, "维护窗口开始时间缺失或区间不合法")
	case errors.Is(err, service.ErrInvalidDecision):
		response.BadRequest(c, 15108, "无效的裁决值")
	case errors.Is(err, service.ErrScheduledEventNotFound):
		response.NotFound(c, 15109, "预约事件不存在")
	case errors.Is(err, service.ErrBookingNotDraft):
		response.Conflict(c, 15110, "仅 DRAFT 状态的预约可调整设备指派")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 15111, "用户不存在")
	case errors.Is(err, service.ErrBadTimestamp):
		response.BadRequest(c, 15112, "时间戳格式不合法，应为 YYYY-MM-DD HH:mm:ss")
	default:
		response.InternalError(c)
	}
}
