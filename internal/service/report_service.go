package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"elderaid/internal/domain"
	"elderaid/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	sheetMedicationLogs = "Medication Logs"
	sheetSummary        = "Summary"

	deletedMedicationName = "(deleted medication)"
)

// MedicationLogHeader 服药记录表头
var MedicationLogHeader = []string{
	"Date",
	"Time",
	"Medication",
	"Dosage",
	"Scheduled Time",
	"Status",
}

// AdherenceSummaryHeader 汇总表头
var AdherenceSummaryHeader = []string{
	"Medication",
	"Dosage",
	"Taken",
	"Missed",
	"Adherence",
}

// AdherenceRow 单个药品的服药汇总
type AdherenceRow struct {
	MedicationID string
	Name         string
	Dosage       string
	Taken        int
	Missed       int
}

// Rate taken / (taken + missed)；没有记录时为 0
func (r AdherenceRow) Rate() float64 {
	total := r.Taken + r.Missed
	if total == 0 {
		return 0
	}
	return float64(r.Taken) / float64(total)
}

// ReportService 服药报表
type ReportService interface {
	// MedicationAdherence 导出 [from, to) 内的服药记录（xlsx）
	MedicationAdherence(ctx context.Context, s domain.Session, from, to time.Time) ([]byte, error)
}

type reportService struct {
	repo   repository.MedicationsRepository
	logger *zap.Logger
}

// NewReportService 创建报表服务
func NewReportService(repo repository.MedicationsRepository, logger *zap.Logger) ReportService {
	return &reportService{repo: repo, logger: logger}
}

func (svc *reportService) MedicationAdherence(ctx context.Context, s domain.Session, from, to time.Time) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, domain.Invalid("to", "must be after from")
	}

	meds, err := svc.repo.ListMedications(ctx, s)
	if err != nil {
		return nil, err
	}
	logs, err := svc.repo.ListMedicationLogs(ctx, s)
	if err != nil {
		return nil, err
	}

	inRange := make([]domain.MedicationLog, 0, len(logs))
	for _, l := range logs {
		if l.Timestamp >= from.UnixMilli() && l.Timestamp < to.UnixMilli() {
			inRange = append(inRange, l)
		}
	}
	sort.SliceStable(inRange, func(i, j int) bool { return inRange[i].Timestamp < inRange[j].Timestamp })

	svc.logger.Debug("Generating medication adherence report",
		zap.String("elder_id", s.ElderID),
		zap.Int("log_count", len(inRange)),
	)
	return generateAdherenceWorkbook(meds, inRange, from.Location())
}

// BuildAdherenceSummary 按药品汇总；已删除药品的记录归到单独一行
func BuildAdherenceSummary(meds []domain.Medication, logs []domain.MedicationLog) []AdherenceRow {
	rows := make([]AdherenceRow, 0, len(meds))
	index := make(map[string]int, len(meds))
	for _, m := range meds {
		if _, dup := index[m.ID]; dup {
			continue
		}
		index[m.ID] = len(rows)
		rows = append(rows, AdherenceRow{MedicationID: m.ID, Name: m.Name, Dosage: m.Dosage})
	}
	for _, l := range logs {
		i, ok := index[l.MedicationID]
		if !ok {
			i = len(rows)
			index[l.MedicationID] = i
			rows = append(rows, AdherenceRow{MedicationID: l.MedicationID, Name: deletedMedicationName})
		}
		switch l.Status {
		case domain.LogTaken:
			rows[i].Taken++
		case domain.LogMissed:
			rows[i].Missed++
		}
	}
	return rows
}

func generateAdherenceWorkbook(meds []domain.Medication, logs []domain.MedicationLog, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheetMedicationLogs); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	byID := make(map[string]domain.Medication, len(meds))
	for _, m := range meds {
		byID[m.ID] = m
	}

	if err := writeSheetHeader(f, sheetMedicationLogs, MedicationLogHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	for i, l := range logs {
		row := i + 2 // 第1行是表头
		ts := time.UnixMilli(l.Timestamp).In(loc)
		name, dosage := deletedMedicationName, ""
		if m, ok := byID[l.MedicationID]; ok {
			name, dosage = m.Name, m.Dosage
		}
		values := []any{ts.Format("2006-01-02"), ts.Format("15:04"), name, dosage, l.ScheduledTime, string(l.Status)}
		if err := writeSheetRow(f, sheetMedicationLogs, row, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	if err := writeSheetHeader(f, sheetSummary, AdherenceSummaryHeader, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	for i, r := range BuildAdherenceSummary(meds, logs) {
		values := []any{r.Name, r.Dosage, r.Taken, r.Missed, fmt.Sprintf("%.0f%%", r.Rate()*100)}
		if err := writeSheetRow(f, sheetSummary, i+2, values); err != nil {
			f.Close()
			return nil, err
		}
	}

	for _, sheet := range []string{sheetMedicationLogs, sheetSummary} {
		if err := f.SetColWidth(sheet, "A", "F", 18); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheetHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}
	return nil
}
