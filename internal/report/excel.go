// Package report renders filtered attendance data as an Excel workbook.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"campustrack/internal/attendance"
)

// SheetName is the single worksheet title.
const SheetName = "Attendance Report"

var headers = []string{
	"S.No.", "Student Name", "Roll Number", "Session", "Campus",
	"Course", "Date", "Time", "Location", "Status",
}

// statusFills maps a status to its cell tint and font color.
var statusFills = map[string][2]string{
	"present": {"D4EDDA", "155724"},
	"late":    {"FFF3CD", "856404"},
	"absent":  {"F8D7DA", "721C24"},
}

// Filename returns the attachment name for a generated report.
func Filename(now time.Time) string {
	return "attendance_report_" + now.Format("20060102_150405") + ".xlsx"
}

// Excel renders rows into a styled workbook: title band, active filters,
// generation timestamp, one numbered data row per record, and a summary
// block. Output is deterministic apart from the embedded timestamp.
func Excel(rows []attendance.RecordRow, f attendance.Filter) (*bytes.Buffer, error) {
	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	styles, err := newStyles(wb)
	if err != nil {
		return nil, fmt.Errorf("building styles: %w", err)
	}

	if err := wb.MergeCell(SheetName, "A1", "J1"); err != nil {
		return nil, fmt.Errorf("merging title band: %w", err)
	}

	w := &sheetWriter{wb: wb}
	w.set(1, 1, "ADITYA ATTENDANCE REPORT", styles.title)

	rowNum := 3
	if desc := filterDescription(f); desc != "" {
		w.set(1, rowNum, "Filters Applied: "+desc, styles.note)
		rowNum++
	}
	rowNum++
	w.set(1, rowNum, "Generated on: "+time.Now().Format("2006-01-02 15:04:05"), styles.smallNote)

	rowNum += 2
	for col, header := range headers {
		w.set(col+1, rowNum, header, styles.header)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for i, row := range rows {
		rowNum++
		values := []any{
			i + 1, row.Name, row.RollNumber, row.Session, row.Campus,
			row.Course, row.ScanDate, row.ScanTime, row.Location, titleCase(row.Status),
		}
		for col, value := range values {
			style := styles.cell
			if col == len(values)-1 {
				if s, ok := styles.status[strings.ToLower(row.Status)]; ok {
					style = s
				}
			}
			w.set(col+1, rowNum, value, style)
			if n := len(fmt.Sprint(value)); n > widths[col] {
				widths[col] = n
			}
		}
	}

	for col, width := range widths {
		adjusted := width + 2
		if adjusted < 12 {
			adjusted = 12
		}
		if adjusted > 30 {
			adjusted = 30
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := wb.SetColWidth(SheetName, name, name, float64(adjusted)); err != nil {
			return nil, fmt.Errorf("sizing column %s: %w", name, err)
		}
	}

	rowNum += 3
	w.set(1, rowNum, "SUMMARY", styles.summaryTitle)

	total := len(rows)
	present, late := 0, 0
	for _, row := range rows {
		switch strings.ToLower(row.Status) {
		case "present":
			present++
		case "late":
			late++
		}
	}
	rate := "0%"
	if total > 0 {
		rate = fmt.Sprintf("%.1f%%", float64(present)/float64(total)*100)
	}

	summary := []struct {
		label string
		value any
	}{
		{"Total Records:", total},
		{"Present:", present},
		{"Late:", late},
		{"Attendance Rate:", rate},
	}
	for _, line := range summary {
		rowNum++
		w.set(1, rowNum, line.label, styles.summaryLabel)
		w.set(2, rowNum, line.value, 0)
	}

	if w.err != nil {
		return nil, fmt.Errorf("writing cells: %w", w.err)
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf, nil
}

type styleSet struct {
	title        int
	note         int
	smallNote    int
	header       int
	cell         int
	summaryTitle int
	summaryLabel int
	status       map[string]int
}

func newStyles(wb *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	border := []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}

	if s.title, err = wb.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 16, Bold: true, Color: "004466"},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return s, err
	}
	if s.note, err = wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true},
	}); err != nil {
		return s, err
	}
	if s.smallNote, err = wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Italic: true, Size: 10},
	}); err != nil {
		return s, err
	}
	if s.header, err = wb.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"004466"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	}); err != nil {
		return s, err
	}
	if s.cell, err = wb.NewStyle(&excelize.Style{Border: border}); err != nil {
		return s, err
	}
	if s.summaryTitle, err = wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14, Color: "004466"},
	}); err != nil {
		return s, err
	}
	if s.summaryLabel, err = wb.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	}); err != nil {
		return s, err
	}

	s.status = make(map[string]int, len(statusFills))
	for status, colors := range statusFills {
		id, err := wb.NewStyle(&excelize.Style{
			Font:   &excelize.Font{Color: colors[1]},
			Fill:   excelize.Fill{Type: "pattern", Color: []string{colors[0]}, Pattern: 1},
			Border: border,
		})
		if err != nil {
			return s, err
		}
		s.status[status] = id
	}
	return s, nil
}

// sheetWriter batches cell writes, holding on to the first failure so a
// partially written sheet is never returned as a valid report.
type sheetWriter struct {
	wb  *excelize.File
	err error
}

func (w *sheetWriter) set(col, row int, value any, style int) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.wb.SetCellValue(SheetName, cell, value); err != nil {
		w.err = err
		return
	}
	if style != 0 {
		w.err = w.wb.SetCellStyle(SheetName, cell, cell, style)
	}
}

func filterDescription(f attendance.Filter) string {
	var parts []string
	if f.Session != "" {
		parts = append(parts, "Session: "+f.Session)
	}
	if f.Campus != "" {
		parts = append(parts, "Campus: "+f.Campus)
	}
	if f.Course != "" {
		parts = append(parts, "Course: "+f.Course)
	}
	if f.DateFrom != "" {
		parts = append(parts, "From: "+f.DateFrom)
	}
	if f.DateTo != "" {
		parts = append(parts, "To: "+f.DateTo)
	}
	return strings.Join(parts, " | ")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
