package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"classlog/internal/exporter"
	"classlog/internal/report"
	"classlog/internal/school"
)

// reportRequest reads type, date, start and end from the query. The type defaults to
// daily and the reference date to today.
func (h *Handler) reportRequest(c *gin.Context) (report.Request, error) {
	t, err := report.ParseType(c.DefaultQuery("type", string(report.Daily)))
	if err != nil {
		return report.Request{}, err
	}
	req := report.Request{Type: t}
	if req.Reference, err = queryDate(c, "date"); err != nil {
		return report.Request{}, err
	}
	if req.Reference.IsZero() {
		req.Reference = school.DateOf(h.now())
	}
	if req.Start, err = queryDate(c, "start"); err != nil {
		return report.Request{}, err
	}
	if req.End, err = queryDate(c, "end"); err != nil {
		return report.Request{}, err
	}
	return req, nil
}

// Report returns the aggregated report as JSON.
func (h *Handler) Report(c *gin.Context) {
	req, err := h.reportRequest(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	rep, err := h.reports.Generate(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// Download serves the report as a file in format f.
func (h *Handler) Download(f report.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := h.reportRequest(c)
		if err != nil {
			h.fail(c, err)
			return
		}
		rep, err := h.reports.Generate(c.Request.Context(), req)
		if err != nil {
			h.fail(c, err)
			return
		}
		data, err := report.Encode(c.Request.Context(), rep, f, h.renderer)
		if err != nil {
			h.log.WithError(err).WithFields(logrus.Fields{"type": req.Type, "format": f}).Error("report export failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "report export failed"})
			return
		}
		name := report.Filename(req.Type, f, h.now())
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Data(http.StatusOK, f.ContentType(), data)
	}
}

type exportRequest struct {
	Type   string `json:"type"`
	Date   string `json:"date"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Format string `json:"format"`
}

// SubmitExport queues a background export and answers with its job status.
func (h *Handler) SubmitExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Type) == "" {
		req.Type = string(report.Daily)
	}
	t, err := report.ParseType(req.Type)
	if err != nil {
		h.fail(c, err)
		return
	}
	f, err := report.ParseFormat(req.Format)
	if err != nil {
		h.fail(c, err)
		return
	}
	job := exporter.Job{
		Type:      t,
		Reference: strings.TrimSpace(req.Date),
		Start:     strings.TrimSpace(req.Start),
		End:       strings.TrimSpace(req.End),
		Format:    f,
	}
	if job.Reference == "" && t != report.Custom {
		job.Reference = h.now().Format(school.DateLayout)
	}
	for _, d := range []string{job.Reference, job.Start, job.End} {
		if d == "" {
			continue
		}
		if _, err := school.ParseDate(d); err != nil {
			h.fail(c, badRequest("dates must be YYYY-MM-DD"))
			return
		}
	}

	st, err := h.submitter.Submit(c.Request.Context(), job)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, st)
}

// ExportStatus reports a queued export.
func (h *Handler) ExportStatus(c *gin.Context) {
	st, err := h.statuses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
