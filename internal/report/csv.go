package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"classlog/internal/school"
)

// WriteCSV writes the class log, absence log and statistics sections.
// Text fields are always double-quoted; numbers are written bare.
func WriteCSV(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)
	t := &csvTable{w: bw}

	t.title("CLASS LOG")
	t.row(q("Date"), q("Subject"), q("Teacher"), q("Topic"), q("Attendance Records"), q("Notes"))
	for _, cs := range r.Classes {
		t.row(
			q(cs.Date.Format(school.DateLayout)),
			q(cs.SubjectName),
			q(cs.SubjectTeacher),
			q(cs.Topic),
			strconv.Itoa(cs.AttendanceCount()),
			q(deref(cs.Notes)),
		)
	}
	t.blank()

	t.title("ABSENCE LOG")
	t.row(q("Date"), q("Student"), q("Subject"), q("Reason"), q("Justified"))
	for _, ab := range r.Absences {
		t.row(
			q(ab.Date.Format(school.DateLayout)),
			q(ab.StudentName),
			q(ab.SubjectName),
			q(deref(ab.Reason)),
			q(yesNo(ab.Justified)),
		)
	}
	t.blank()

	s := r.Summary
	t.title("STATISTICS")
	t.row(q("Metric"), q("Value"))
	t.row(q("Period"), q(r.Range.String()))
	t.row(q("Total classes"), strconv.Itoa(s.TotalClasses))
	t.row(q("Total absences"), strconv.Itoa(s.TotalAbsences))
	t.row(q("Justified absences"), strconv.Itoa(s.JustifiedAbsences))
	t.row(q("Unjustified absences"), strconv.Itoa(s.UnjustifiedAbsences))
	t.row(q("Total attendances"), strconv.Itoa(s.TotalAttendances))
	t.row(q("Possible attendances"), strconv.Itoa(s.TotalPossibleAttendances))
	t.row(q("Attendance rate (%)"), strconv.FormatFloat(s.AttendanceRate, 'f', 2, 64))
	t.row(q("Subjects with classes"), strconv.Itoa(s.SubjectsWithClasses))
	t.row(q("Average absences per student"), strconv.FormatFloat(s.AverageAbsencesPerStudent, 'f', 2, 64))
	t.row(q("Students with perfect attendance"), strconv.Itoa(s.StudentsWithPerfectAttendance))

	if t.err != nil {
		return t.err
	}
	return bw.Flush()
}

type csvTable struct {
	w   *bufio.Writer
	err error
}

func (t *csvTable) title(s string) { t.line(s) }
func (t *csvTable) blank()         { t.line("") }

func (t *csvTable) row(fields ...string) { t.line(strings.Join(fields, ",")) }

func (t *csvTable) line(s string) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprint(t.w, s+"\n")
}

// q quotes a text field, doubling embedded quotes.
func q(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
