package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"time"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrEmptyCapture is returned when the rendered document has no pixels.
var ErrEmptyCapture = errors.New("rendered report is empty")

const (
	margin     = 24
	gap        = 12
	lineHeight = 18
	glyphWidth = 7
	headerH    = 56
	cardH      = 44
	cardCols   = 3
)

var (
	colBrand   = color.RGBA{0x1e, 0x3a, 0x8a, 0xff}
	colInk     = color.RGBA{0x11, 0x18, 0x27, 0xff}
	colMuted   = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	colCard    = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colHeadRow = color.RGBA{0xdb, 0xea, 0xfe, 0xff}
	colZebra   = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colAlert   = color.RGBA{0xb9, 0x1c, 0x1c, 0xff}
)

// Renderer lays a report out as a document of fixed logical width and rasterizes it
// to PNG at Scale times that size.
type Renderer struct {
	Width  int
	Scale  int
	Settle time.Duration
}

// Render draws the report, waits for the settle delay, then captures the PNG.
func (r Renderer) Render(ctx context.Context, rep Report) ([]byte, error) {
	if r.Width <= 0 || r.Scale <= 0 {
		return nil, ErrEmptyCapture
	}

	measure := &canvas{width: r.Width}
	layout(measure, rep)
	height := measure.y

	page := image.NewRGBA(image.Rect(0, 0, r.Width, height))
	xdraw.Draw(page, page.Bounds(), image.White, image.Point{}, xdraw.Src)
	layout(&canvas{img: page, width: r.Width}, rep)

	if r.Settle > 0 {
		timer := time.NewTimer(r.Settle)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if page.Bounds().Empty() {
		return nil, ErrEmptyCapture
	}
	out := image.NewRGBA(image.Rect(0, 0, r.Width*r.Scale, height*r.Scale))
	xdraw.NearestNeighbor.Scale(out, out.Bounds(), page, page.Bounds(), xdraw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrEmptyCapture
	}
	return buf.Bytes(), nil
}

// canvas draws when img is set and only advances y otherwise, so the same layout
// code measures and paints.
type canvas struct {
	img   *image.RGBA
	width int
	y     int
}

func (c *canvas) fill(rect image.Rectangle, col color.Color) {
	if c.img == nil {
		return
	}
	xdraw.Draw(c.img, rect, image.NewUniform(col), image.Point{}, xdraw.Src)
}

func (c *canvas) text(x, baseline int, s string, col color.Color) {
	if c.img == nil {
		return
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

type column struct {
	title string
	share int
}

func (c *canvas) table(cols []column, rows [][]string, empty string) {
	inner := c.width - 2*margin
	total := 0
	for _, col := range cols {
		total += col.share
	}
	widths := make([]int, len(cols))
	for i, col := range cols {
		widths[i] = inner * col.share / total
	}

	drawRow := func(cells []string, bg color.Color, ink color.Color) {
		if bg != nil {
			c.fill(image.Rect(margin, c.y, margin+inner, c.y+lineHeight), bg)
		}
		x := margin
		for i, cell := range cells {
			c.text(x+4, c.y+13, clip(cell, widths[i]-8), ink)
			x += widths[i]
		}
		c.y += lineHeight
	}

	titles := make([]string, len(cols))
	for i, col := range cols {
		titles[i] = col.title
	}
	drawRow(titles, colHeadRow, colInk)
	if len(rows) == 0 {
		c.text(margin+4, c.y+13, empty, colMuted)
		c.y += lineHeight
		return
	}
	for i, row := range rows {
		var bg color.Color
		if i%2 == 1 {
			bg = colZebra
		}
		drawRow(row, bg, colInk)
	}
}

func (c *canvas) heading(s string) {
	c.y += gap
	c.text(margin, c.y+13, strings.ToUpper(s), colBrand)
	c.y += lineHeight + 4
}

func layout(c *canvas, rep Report) {
	c.fill(image.Rect(0, 0, c.width, headerH), colBrand)
	c.text(margin, 24, "ATTENDANCE REPORT - "+strings.ToUpper(string(rep.Type)), color.White)
	c.text(margin, 42, "Period: "+rep.Range.String(), color.White)
	c.y = headerH + gap

	s := rep.Summary
	cards := []struct {
		label, value string
		alert        bool
	}{
		{"Classes", strconv.Itoa(s.TotalClasses), false},
		{"Attendance records", strconv.Itoa(s.TotalAttendances) + " / " + strconv.Itoa(s.TotalPossibleAttendances), false},
		{"Attendance rate", pct(s.AttendanceRate), false},
		{"Absences", strconv.Itoa(s.TotalAbsences), false},
		{"Justified", strconv.Itoa(s.JustifiedAbsences), false},
		{"Unjustified", strconv.Itoa(s.UnjustifiedAbsences), s.UnjustifiedAbsences > 0},
		{"Subjects with classes", strconv.Itoa(s.SubjectsWithClasses), false},
		{"Avg absences / student", strconv.FormatFloat(s.AverageAbsencesPerStudent, 'f', 2, 64), false},
		{"Perfect attendance", strconv.Itoa(s.StudentsWithPerfectAttendance), false},
	}
	cardW := (c.width - 2*margin - (cardCols-1)*gap) / cardCols
	for i, card := range cards {
		col := i % cardCols
		if i > 0 && col == 0 {
			c.y += cardH + gap
		}
		x := margin + col*(cardW+gap)
		c.fill(image.Rect(x, c.y, x+cardW, c.y+cardH), colCard)
		c.text(x+8, c.y+16, clip(card.label, cardW-16), colMuted)
		ink := colInk
		if card.alert {
			ink = colAlert
		}
		c.text(x+8, c.y+34, clip(card.value, cardW-16), ink)
	}
	c.y += cardH + gap

	c.heading("By subject")
	subjectRows := make([][]string, 0, len(rep.Subjects))
	for _, su := range rep.Subjects {
		subjectRows = append(subjectRows, []string{
			su.Name, su.Teacher, strconv.Itoa(su.Classes), strconv.Itoa(su.Absences),
			strconv.Itoa(su.Attendances), pct(su.AttendanceRate),
		})
	}
	c.table([]column{
		{"Subject", 4}, {"Teacher", 4}, {"Classes", 2}, {"Absences", 2}, {"Records", 2}, {"Rate", 2},
	}, subjectRows, "No subjects registered")

	c.heading("Most absences")
	studentRows := make([][]string, 0, len(rep.TopStudents))
	for _, st := range rep.TopStudents {
		studentRows = append(studentRows, []string{st.Name, strconv.Itoa(st.Absences), strconv.Itoa(st.Justified)})
	}
	c.table([]column{{"Student", 6}, {"Absences", 2}, {"Justified", 2}}, studentRows, "No students registered")

	c.y += gap
	c.text(margin, c.y+13, "Generated "+rep.GeneratedAt.Format(time.RFC1123), colMuted)
	c.y += lineHeight + margin
}

// clip shortens s to the number of glyphs that fit in px pixels.
func clip(s string, px int) string {
	n := px / glyphWidth
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}
