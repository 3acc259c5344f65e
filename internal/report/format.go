package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Format is an export encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPNG  Format = "png"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts the format case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Filename names an export. Spreadsheets carry the current date, images the full timestamp.
func Filename(t Type, f Format, now time.Time) string {
	stamp := now.Format("2006-01-02")
	if f == FormatPNG {
		stamp = now.Format("20060102-150405")
	}
	return fmt.Sprintf("attendance-report-%s-%s.%s", t, stamp, f)
}
