// Package report produces compliance artifacts from approval request data.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/domain/entity"
)

// Exporter renders an approval request and its audit timeline as a workbook
type Exporter struct {
	logger *zap.Logger
}

// NewExporter creates a new report exporter
func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger}
}

// WriteRequest writes one request with its timeline to w as an .xlsx workbook.
// The first sheet carries the request summary, the second the full timeline.
func (e *Exporter) WriteRequest(req *entity.ApprovalRequest, timeline []entity.TimelineEntry, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	summary := "Summary"
	if err := f.SetSheetName(f.GetSheetName(0), summary); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}

	e.setCell(f, summary, "A1", "Request ID")
	e.setCell(f, summary, "B1", req.ID)
	e.setCell(f, summary, "A2", "Organization")
	e.setCell(f, summary, "B2", req.OrgID)
	e.setCell(f, summary, "A3", "Title")
	e.setCell(f, summary, "B3", req.Title)
	e.setCell(f, summary, "A4", "Module")
	e.setCell(f, summary, "B4", req.Module)
	e.setCell(f, summary, "A5", "Amount")
	e.setCell(f, summary, "B5", fmt.Sprintf("%d %s", req.AmountMinor, req.Currency))
	e.setCell(f, summary, "A6", "Status")
	e.setCell(f, summary, "B6", req.Status)
	e.setCell(f, summary, "A7", "Rule")
	e.setCell(f, summary, "B7", req.TriggeredRuleID)
	e.setCell(f, summary, "A8", "Due")
	e.setCell(f, summary, "B8", req.DueAt.Format("2006-01-02 15:04:05"))
	e.setCell(f, summary, "A9", "Expires")
	e.setCell(f, summary, "B9", req.ExpiresAt.Format("2006-01-02 15:04:05"))

	sheet := "Timeline"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create timeline sheet: %w", err)
	}

	headers := []string{"#", "Timestamp", "Actor", "Action", "Rationale", "Severity"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		e.setCell(f, sheet, cell, h)
	}

	for i, entry := range timeline {
		row := i + 2
		values := []interface{}{
			entry.Seq,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Actor,
			entry.Action,
			entry.Rationale,
			entry.Severity,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			e.setCell(f, sheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Exported request report",
		zap.String("request_id", req.ID),
		zap.Int("timeline_entries", len(timeline)))
	return nil
}

func (e *Exporter) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		e.logger.Error("Failed to set cell",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
