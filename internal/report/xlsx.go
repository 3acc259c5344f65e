package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"classlog/internal/school"
)

const (
	sheetClasses    = "Classes"
	sheetAbsences   = "Absences"
	sheetStatistics = "Statistics"
)

// XLSX encodes the three CSV sections as worksheets.
func XLSX(r Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetClasses); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	for _, name := range []string{sheetAbsences, sheetStatistics} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("xlsx: new sheet %s: %w", name, err)
		}
	}

	classes := [][]interface{}{{"Date", "Subject", "Teacher", "Topic", "Attendance Records", "Notes"}}
	for _, cs := range r.Classes {
		classes = append(classes, []interface{}{
			cs.Date.Format(school.DateLayout), cs.SubjectName, cs.SubjectTeacher, cs.Topic, cs.AttendanceCount(), deref(cs.Notes),
		})
	}
	absences := [][]interface{}{{"Date", "Student", "Subject", "Reason", "Justified"}}
	for _, ab := range r.Absences {
		absences = append(absences, []interface{}{
			ab.Date.Format(school.DateLayout), ab.StudentName, ab.SubjectName, deref(ab.Reason), yesNo(ab.Justified),
		})
	}
	s := r.Summary
	stats := [][]interface{}{
		{"Metric", "Value"},
		{"Period", r.Range.String()},
		{"Total classes", s.TotalClasses},
		{"Total absences", s.TotalAbsences},
		{"Justified absences", s.JustifiedAbsences},
		{"Unjustified absences", s.UnjustifiedAbsences},
		{"Total attendances", s.TotalAttendances},
		{"Possible attendances", s.TotalPossibleAttendances},
		{"Attendance rate (%)", round2(s.AttendanceRate)},
		{"Subjects with classes", s.SubjectsWithClasses},
		{"Average absences per student", round2(s.AverageAbsencesPerStudent)},
		{"Students with perfect attendance", s.StudentsWithPerfectAttendance},
	}

	for sheet, rows := range map[string][][]interface{}{
		sheetClasses:    classes,
		sheetAbsences:   absences,
		sheetStatistics: stats,
	} {
		if err := writeRows(f, sheet, rows); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
