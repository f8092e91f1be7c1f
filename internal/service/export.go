package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"doctor-portal/common/caselogic"
	"doctor-portal/internal/models"
	"doctor-portal/internal/session"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	historySheet    = "Case History"
	exportPageSize  = 100
	exportMaxPages  = 50
	exportTimestamp = "2006-01-02 15:04:05"
)

// HistoryExportHeader 历史导出表头
var HistoryExportHeader = []string{
	"Case Number",
	"Patient",
	"Priority",
	"Status",
	"PMV",
	"Created At",
	"Completed At",
	"Turnaround",
	"Response Time (min)",
	"SLA at Completion",
	"Diagnosis",
	"Medications",
	"Controlled Drugs",
}

var historyColumnWidths = []float64{16, 24, 10, 12, 24, 20, 20, 12, 18, 18, 40, 40, 24}

// HistoryExporter 已完成病例导出为 xlsx
type HistoryExporter struct {
	backend   Backend
	annotator *Annotator
	logger    *zap.Logger
}

// NewHistoryExporter 创建导出器
func NewHistoryExporter(backend Backend, annotator *Annotator, logger *zap.Logger) *HistoryExporter {
	return &HistoryExporter{
		backend:   backend,
		annotator: annotator,
		logger:    logger,
	}
}

// Export 拉取全部已完成病例并生成 xlsx；超过页数上限时截断并在末行注明
func (e *HistoryExporter) Export(ctx context.Context, sess *session.Session) ([]byte, error) {
	var (
		cases []models.Case
		total int
		more  bool
	)
	for page := 1; page <= exportMaxPages; page++ {
		p, err := e.backend.CompletedCases(ctx, sess.Credentials(), page, exportPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to load case history page %d: %w", page, err)
		}
		cases = append(cases, p.Data...)
		total = p.Total
		if len(p.Data) == 0 || page >= p.TotalPages {
			more = false
			break
		}
		more = true
	}

	var note string
	if more {
		e.logger.Warn("Case history export truncated",
			zap.String("doctor_id", sess.DoctorID),
			zap.Int("max_pages", exportMaxPages),
			zap.Int("exported", len(cases)),
			zap.Int("total", total),
		)
		note = truncationNote(len(cases), total)
	}

	data, err := e.generate(cases, note)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Case history exported",
		zap.String("doctor_id", sess.DoctorID),
		zap.Int("cases", len(cases)),
		zap.Int("bytes", len(data)),
		zap.Bool("truncated", more),
	)
	return data, nil
}

func truncationNote(exported, total int) string {
	if total > exported {
		return fmt.Sprintf("Export truncated: showing the first %d of %d cases", exported, total)
	}
	return fmt.Sprintf("Export truncated: showing the first %d cases", exported)
}

// Generate 生成 xlsx 内容
func (e *HistoryExporter) Generate(cases []models.Case) ([]byte, error) {
	return e.generate(cases, "")
}

func (e *HistoryExporter) generate(cases []models.Case, note string) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo 需要文件保持打开，出错路径单独 Close

	index, err := f.NewSheet(historySheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range HistoryExportHeader {
		if err := setCellValue(f, historySheet, i+1, 1, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header %s: %w", header, err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(historySheet, col, col, historyColumnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(HistoryExportHeader), 1)
	if err := f.SetCellStyle(historySheet, "A1", last, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, c := range cases {
		row := i + 2
		for col, value := range e.historyRow(c) {
			if value == nil || value == "" {
				continue
			}
			if err := setCellValue(f, historySheet, col+1, row, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell at row %d, col %d: %w", row, col+1, err)
			}
		}
	}

	if note != "" {
		if err := setCellValue(f, historySheet, 1, len(cases)+2, note); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set truncation note: %w", err)
		}
	}

	if err := f.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *HistoryExporter) historyRow(c models.Case) []interface{} {
	var completed, turnaround string
	if c.CompletedAt != nil && c.CompletedAt.Valid() {
		completed = c.CompletedAt.UTC().Format(exportTimestamp)
		if c.CreatedAt.Valid() {
			turnaround = caselogic.WaitTime(c.CreatedAt.Time, c.CompletedAt.Time)
		}
	}
	var created string
	if c.CreatedAt.Valid() {
		created = c.CreatedAt.UTC().Format(exportTimestamp)
	}
	var responseTime interface{}
	if c.ResponseTime != nil {
		responseTime = *c.ResponseTime
	}

	var meds, controlled []string
	if c.Prescription != nil {
		for _, m := range c.Prescription.Medications {
			meds = append(meds, strings.TrimSpace(m.Name+" "+m.Dosage))
			if caselogic.ClassifyDrug(m.Name).Type == caselogic.DrugControlled {
				controlled = append(controlled, m.Name)
			}
		}
	}

	pmv := c.PMVBusinessName
	if pmv == "" {
		pmv = c.PMVName
	}

	return []interface{}{
		c.CaseNumber,
		c.PatientName,
		string(c.Priority),
		string(c.Status),
		pmv,
		created,
		completed,
		turnaround,
		responseTime,
		string(e.annotator.SLAAtCompletion(c)),
		c.Diagnosis,
		strings.Join(meds, "; "),
		strings.Join(controlled, "; "),
	}
}

// ExportFilename 下载文件名
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("case-history-%s.xlsx", now.UTC().Format("20060102-150405"))
}

func setCellValue(f *excelize.File, sheet string, col, row int, value interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
