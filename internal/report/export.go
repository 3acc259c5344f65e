package report

import (
	"bytes"
	"context"
	"fmt"

	"classlog/internal/metrics"
)

// Encode serializes a report in the requested format.
func Encode(ctx context.Context, rep Report, f Format, r Renderer) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch f {
	case FormatCSV:
		var buf bytes.Buffer
		err = WriteCSV(&buf, rep)
		out = buf.Bytes()
	case FormatXLSX:
		out, err = XLSX(rep)
	case FormatPNG:
		out, err = r.Render(ctx, rep)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.ReportExports.WithLabelValues(string(f), result).Inc()
	return out, err
}
