package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/secmun/podium/core/member"
)

var reportHeader = []string{"Date", "Subject", "Slot", "Time", "Status"}

// ExportMonthXLSX renders the member's monthly attendance report as an Excel
// workbook: one row per session plus a trailing summary block.
func (svc *service) ExportMonthXLSX(ctx context.Context, mbr member.Member, month, year int) ([]byte, error) {
	report, err := svc.ReportMonth(ctx, mbr, month, year)
	if err != nil {
		return nil, err
	}
	summary, err := svc.SummarizeMonth(ctx, mbr, month, year)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := fmt.Sprintf("%s %d", time.Month(month).String(), year)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, errors.Wrap(err, "renaming sheet")
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	for col, h := range reportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return nil, errors.Wrapf(err, "setting cell %s", cell)
		}
	}
	end, _ := excelize.CoordinatesToCellName(len(reportHeader), 1)
	_ = f.SetCellStyle(sheet, "A1", end, bold)

	for r, row := range report.Rows {
		values := []string{
			row.Date.Format("2006-01-02"),
			row.Subject,
			row.SlotLabel,
			row.TimeRange,
			row.Status,
		}
		for c, val := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellStr(sheet, cell, val); err != nil {
				return nil, errors.Wrapf(err, "setting cell %s", cell)
			}
		}
	}

	// summary block under the rows
	base := len(report.Rows) + 3
	summaryRows := [][2]string{
		{"Total sessions", fmt.Sprintf("%d", summary.TotalSessions)},
		{"Present", fmt.Sprintf("%d", summary.Present)},
		{"Percentage", fmt.Sprintf("%d%%", summary.Percentage)},
	}
	if summary.BelowThreshold {
		summaryRows = append(summaryRows, [2]string{"Warning", fmt.Sprintf("below %d%% threshold", svc.conf.AttendanceThreshold)})
	}
	for i, sr := range summaryRows {
		labelCell, _ := excelize.CoordinatesToCellName(1, base+i)
		valueCell, _ := excelize.CoordinatesToCellName(2, base+i)
		_ = f.SetCellStr(sheet, labelCell, sr[0])
		_ = f.SetCellStr(sheet, valueCell, sr[1])
		_ = f.SetCellStyle(sheet, labelCell, labelCell, bold)
	}

	buff, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buff.Bytes(), nil
}
