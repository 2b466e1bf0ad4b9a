package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"beamline-scheduler/backend/internal/model"
	"beamline-scheduler/backend/internal/repository"
	"beamline-scheduler/backend/pkg/interval"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoEvents     = errors.New("该预约下暂无预约事件")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 束流时间报表导出接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Excel 格式：表头为预约元信息（提案号 / 仪器 / 配额），明细每行一个
//     预约事件（类型、起止、名义时长、损失时长、净时长、设备接受情况）
type ExportService interface {
	// ExportBookingReport 导出某提案预约的束流时间报表
	ExportBookingReport(ctx context.Context, bookingID string) (*bytes.Buffer, string, error)
	// ExportInstrumentReport 导出某仪器在时间窗口内的排期报表；from/to 为空表示不限
	ExportInstrumentReport(ctx context.Context, instrumentID string, from, to string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportBookingReport — 导出束流时间报表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：提案号 — 束流时间报表
//   - 元信息区：征集周期 / 仪器 / 状态 / 时间配额 / 已排 / 剩余
//   - 明细表头：| 类型 | 开始 | 结束 | 名义时长(h) | 损失(h) | 净时长(h) | 设备 |
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportBookingReport(ctx context.Context, bookingID string) (*bytes.Buffer, string, error) {
	// 1. 查询预约
	booking, err := s.repo.ProposalBooking.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrBookingNotFound
		}
		s.logger.Error("查询提案预约失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 查询全部预约事件（含指派与损失时间）
	events, err := s.repo.ScheduledEvent.ListByBooking(ctx, bookingID, repository.EventFilter{})
	if err != nil {
		s.logger.Error("查询预约事件失败", zap.Error(err))
		return nil, "", err
	}
	if len(events) == 0 {
		return nil, "", ErrExportNoEvents
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "束流时间报表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	// 列宽
	f.SetColWidth(sheetName, "A", "A", 18)
	f.SetColWidth(sheetName, "B", "C", 20)
	f.SetColWidth(sheetName, "D", "F", 12)
	f.SetColWidth(sheetName, "G", "G", 30)

	// 样式
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 束流时间报表", booking.ProposalID))
	f.MergeCell(sheetName, "A1", "G1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 元信息区
	allocated := model.AllocatedSeconds(events)
	meta := [][2]string{
		{"征集周期", booking.CallID},
		{"仪器", booking.InstrumentID},
		{"状态", string(booking.Status)},
		{"时间配额(h)", hours(booking.AllocatedTime)},
		{"已排(h)", hours(allocated)},
		{"剩余(h)", hours(booking.AllocatedTime - allocated)},
	}
	row := 2
	for _, kv := range meta {
		f.SetCellValue(sheetName, cell("A", row), kv[0])
		f.SetCellValue(sheetName, cell("B", row), kv[1])
		row++
	}

	// 明细表头
	row++
	headers := []string{"类型", "开始", "结束", "名义时长(h)", "损失(h)", "净时长(h)", "设备"}
	for i, h := range headers {
		c := cell(colName(i), row)
		f.SetCellValue(sheetName, c, h)
		f.SetCellStyle(sheetName, c, c, headerStyle)
	}

	// 明细行
	row++
	for i := range events {
		ev := &events[i]
		nominal := ev.DurationSeconds()

		var lost int64
		for j := range ev.LostTimes {
			lost += ev.LostTimes[j].DurationSeconds()
		}

		equipText := ""
		for j := range ev.Assignments {
			a := &ev.Assignments[j]
			name := a.EquipmentID
			if a.Equipment != nil {
				name = a.Equipment.Name
			}
			if equipText != "" {
				equipText += ", "
			}
			equipText += fmt.Sprintf("%s(%s)", name, a.Status)
		}

		f.SetCellValue(sheetName, cell("A", row), string(ev.BookingType))
		f.SetCellValue(sheetName, cell("B", row), interval.FormatTzLess(ev.StartsAt))
		f.SetCellValue(sheetName, cell("C", row), interval.FormatTzLess(ev.EndsAt))
		f.SetCellValue(sheetName, cell("D", row), hours(nominal))
		f.SetCellValue(sheetName, cell("E", row), hours(lost))
		f.SetCellValue(sheetName, cell("F", row), hours(nominal-lost))
		f.SetCellValue(sheetName, cell("G", row), equipText)
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("束流时间报表_%s.xlsx", booking.ProposalID)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportInstrumentReport — 导出仪器排期报表
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportInstrumentReport(ctx context.Context, instrumentID string, from, to string) (*bytes.Buffer, string, error) {
	filter, err := parseWindowFilter(from, to)
	if err != nil {
		return nil, "", err
	}

	events, err := s.repo.ScheduledEvent.ListByInstrument(ctx, instrumentID, filter)
	if err != nil {
		s.logger.Error("查询仪器事件失败", zap.String("instrument_id", instrumentID), zap.Error(err))
		return nil, "", err
	}
	if len(events) == 0 {
		return nil, "", ErrExportNoEvents
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "仪器排期报表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 18)
	f.SetColWidth(sheetName, "B", "C", 20)
	f.SetColWidth(sheetName, "D", "D", 10)
	f.SetColWidth(sheetName, "E", "E", 16)
	f.SetColWidth(sheetName, "F", "F", 30)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s — 仪器排期报表", instrumentID))
	f.MergeCell(sheetName, "A1", "F1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	headers := []string{"类型", "开始", "结束", "时长(h)", "提案", "说明"}
	for i, h := range headers {
		c := cell(colName(i), 2)
		f.SetCellValue(sheetName, c, h)
		f.SetCellStyle(sheetName, c, c, headerStyle)
	}

	// 提案号按预约缓存，避免逐行重复查询
	proposals := make(map[string]string)
	row := 3
	for i := range events {
		ev := &events[i]

		proposal := ""
		if ev.ProposalBookingID != nil {
			if cached, ok := proposals[*ev.ProposalBookingID]; ok {
				proposal = cached
			} else if booking, err := s.repo.ProposalBooking.GetByID(ctx, *ev.ProposalBookingID); err == nil {
				proposal = booking.ProposalID
				proposals[*ev.ProposalBookingID] = proposal
			}
		}

		f.SetCellValue(sheetName, cell("A", row), string(ev.BookingType))
		f.SetCellValue(sheetName, cell("B", row), interval.FormatTzLess(ev.StartsAt))
		f.SetCellValue(sheetName, cell("C", row), interval.FormatTzLess(ev.EndsAt))
		f.SetCellValue(sheetName, cell("D", row), hours(ev.DurationSeconds()))
		f.SetCellValue(sheetName, cell("E", row), proposal)
		f.SetCellValue(sheetName, cell("F", row), ev.Description)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("仪器排期报表_%s.xlsx", instrumentID)
	return buf, filename, nil
}

// ── 辅助函数 ──

// parseWindowFilter 解析可选的时间窗口查询参数
func parseWindowFilter(from, to string) (repository.EventFilter, error) {
	var filter repository.EventFilter
	if from != "" {
		t, err := interval.ParseTzLess(from)
		if err != nil {
			return filter, ErrBadTimestamp
		}
		filter.StartsAfter = &t
	}
	if to != "" {
		t, err := interval.ParseTzLess(to)
		if err != nil {
			return filter, ErrBadTimestamp
		}
		filter.EndsBefore = &t
	}
	return filter, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// hours 秒 → 保留一位小数的小时字符串
func hours(seconds int64) string {
	return fmt.Sprintf("%.1f", float64(seconds)/3600)
}
