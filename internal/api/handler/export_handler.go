package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"beamline-scheduler/backend/internal/service"
	"beamline-scheduler/backend/pkg/response"
)

// ExportHandler 报表导出与日历订阅 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
	icsSvc    service.ICSService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, icsSvc service.ICSService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, icsSvc: icsSvc}
}

// ExportBookingReport 导出某提案预约的束流时间报表
// GET /api/v1/export/bookings/:id
func (h *ExportHandler) ExportBookingReport(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportBookingReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// ExportInstrumentReport 导出仪器排期报表
// GET /api/v1/export/instruments/:id?from=...&to=...
func (h *ExportHandler) ExportInstrumentReport(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportInstrumentReport(
		c.Request.Context(), c.Param("id"), c.Query("from"), c.Query("to"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// InstrumentFeed 仪器日历订阅源
// GET /api/v1/export/instruments/:id/calendar.ics
func (h *ExportHandler) InstrumentFeed(c *gin.Context) {
	content, err := h.icsSvc.InstrumentFeed(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(content))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFound(c, 16101, "提案预约不存在")
	case errors.Is(err, service.ErrExportNoEvents):
		response.BadRequest(c, 16102, "该预约下暂无预约事件")
	case errors.Is(err, service.ErrICSNoEvents):
		response.NotFound(c, 16103, "该仪器暂无可订阅的预约事件")
	case errors.Is(err, service.ErrBadTimestamp):
		response.BadRequest(c, 16104, "时间窗口参数不合法，应为 YYYY-MM-DD HH:mm:ss")
	default:
		response.InternalError(c)
	}
}
