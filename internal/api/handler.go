// Package api exposes the school records and reports over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"classlog/internal/exporter"
	"classlog/internal/report"
	"classlog/internal/school"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck = func(ctx context.Context) bool

// Deps are the services the handlers call.
type Deps struct {
	School    *school.Service
	Reports   *report.Service
	Renderer  report.Renderer
	Submitter *exporter.Submitter
	Statuses  *exporter.Statuses
	Checks    map[string]HealthCheck
}

// Handler serves the HTTP API.
type Handler struct {
	school    *school.Service
	reports   *report.Service
	renderer  report.Renderer
	submitter *exporter.Submitter
	statuses  *exporter.Statuses
	checks    map[string]HealthCheck
	now       func() time.Time
	log       *logrus.Entry
}

// New creates a handler.
func New(d Deps) *Handler {
	return &Handler{
		school:    d.School,
		reports:   d.Reports,
		renderer:  d.Renderer,
		submitter: d.Submitter,
		statuses:  d.Statuses,
		checks:    d.Checks,
		now:       time.Now,
		log:       logrus.WithField("component", "api"),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.GET("/readiness", h.Readiness)

	api.GET("/students", h.ListStudents)
	api.POST("/students", h.CreateStudent)
	api.PUT("/students/:id", h.UpdateStudent)
	api.DELETE("/students/:id", h.DeleteStudent)

	api.GET("/subjects", h.ListSubjects)
	api.POST("/subjects", h.CreateSubject)
	api.PUT("/subjects/:id", h.UpdateSubject)
	api.DELETE("/subjects/:id", h.DeleteSubject)

	api.GET("/classes", h.ListClasses)
	api.POST("/classes", h.RegisterClass)
	api.GET("/classes/:id", h.GetClass)
	api.GET("/history", h.History)

	api.GET("/absences", h.ListAbsences)
	api.POST("/absences", h.CreateAbsence)
	api.DELETE("/absences/:id", h.DeleteAbsence)

	api.GET("/reports", h.Report)
	api.GET("/reports/export.csv", h.Download(report.FormatCSV))
	api.GET("/reports/export.xlsx", h.Download(report.FormatXLSX))
	api.GET("/reports/export.png", h.Download(report.FormatPNG))
	api.POST("/reports/exports", h.SubmitExport)
	api.GET("/reports/exports/:id", h.ExportStatus)
}

// Healthz reports each dependency; any failure makes the service unavailable.
func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// errBadRequest marks malformed input that never reached a service.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// fail maps domain errors to status codes. Unexpected errors are logged and hidden.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *school.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, school.ErrNotFound), errors.Is(err, exporter.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, school.ErrMissingPrerequisites):
		c.JSON(http.StatusConflict, gin.H{"error": school.ErrMissingPrerequisites.Error()})
	case errors.Is(err, errBadRequest),
		errors.Is(err, report.ErrUnknownType),
		errors.Is(err, report.ErrMissingRange),
		errors.Is(err, report.ErrUnknownFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
