package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"classlog/internal/school"
)

func sampleReport() Report {
	notes := `bring "compass"`
	reason := "flu, fever"
	cs := session("c1", "math", "Math", "2024-03-10", "Ana", "Ben")
	cs.SubjectTeacher = "Kim"
	cs.Notes = &notes
	ab := absence("Cleo", "math", "2024-03-10", true)
	ab.SubjectName = "Math"
	ab.Reason = &reason
	return Build(Daily, Range{Start: day("2024-03-10"), End: day("2024-03-10")}, Dataset{
		Students: students("Ana", "Ben", "Cleo"),
		Subjects: []school.Subject{{ID: "math", Name: "Math", Teacher: "Kim"}},
		Sessions: []school.ClassSession{cs},
		Absences: []school.Absence{ab},
	})
}

func TestWriteCSVSections(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReport()))

	sections := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n\n")
	require.Len(t, sections, 3)

	classes := strings.Split(sections[0], "\n")
	assert.Equal(t, "CLASS LOG", classes[0])
	assert.Equal(t, `"Date","Subject","Teacher","Topic","Attendance Records","Notes"`, classes[1])
	assert.Equal(t, `"2024-03-10","Math","Kim","t-c1",2,"bring ""compass"""`, classes[2])

	absences := strings.Split(sections[1], "\n")
	assert.Equal(t, "ABSENCE LOG", absences[0])
	assert.Equal(t, `"Date","Student","Subject","Reason","Justified"`, absences[1])
	assert.Equal(t, `"2024-03-10","Cleo","Math","flu, fever","Yes"`, absences[2])

	stats := strings.Split(sections[2], "\n")
	assert.Equal(t, "STATISTICS", stats[0])
	assert.Equal(t, `"Metric","Value"`, stats[1])
	assert.Contains(t, stats, `"Period","2024-03-10 to 2024-03-10"`)
	assert.Contains(t, stats, `"Attendance rate (%)",66.67`)
	assert.Contains(t, stats, `"Justified absences",1`)
}

func TestWriteCSVEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	rep := Build(Weekly, Range{Start: day("2024-03-04"), End: day("2024-03-10")}, Dataset{})
	require.NoError(t, WriteCSV(&buf, rep))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "CLASS LOG\n"))
	assert.Contains(t, out, "\n\nABSENCE LOG\n")
	assert.Contains(t, out, "\n\nSTATISTICS\n")
	assert.Contains(t, out, `"Attendance rate (%)",0.00`)
}

func TestXLSXSheets(t *testing.T) {
	raw, err := XLSX(sampleReport())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Classes", "Absences", "Statistics"}, f.GetSheetList())

	rows, err := f.GetRows("Classes")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2024-03-10", "Math", "Kim", "t-c1", "2", `bring "compass"`}, rows[1])

	rows, err = f.GetRows("Absences")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Yes", rows[1][4])

	v, err := f.GetCellValue("Statistics", "B9")
	require.NoError(t, err)
	assert.Equal(t, "66.67", v)
}

func TestEncode(t *testing.T) {
	rep := sampleReport()

	out, err := Encode(context.Background(), rep, FormatCSV, Renderer{})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("CLASS LOG")))

	_, err = Encode(context.Background(), rep, Format("pdf"), Renderer{})
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Encode(context.Background(), rep, FormatPNG, Renderer{})
	assert.ErrorIs(t, err, ErrEmptyCapture)
}

func TestFilename(t *testing.T) {
	now := day("2024-03-10").Add(14*time.Hour + 5*time.Minute + 9*time.Second)
	assert.Equal(t, "attendance-report-weekly-2024-03-10.csv", Filename(Weekly, FormatCSV, now))
	assert.Equal(t, "attendance-report-daily-2024-03-10.xlsx", Filename(Daily, FormatXLSX, now))
	assert.Equal(t, "attendance-report-monthly-20240310-140509.png", Filename(Monthly, FormatPNG, now))
}
