package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"classlog/internal/report"
	"classlog/internal/school"
)

// Scheduler enqueues the daily PNG and CSV exports on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	submitter *Submitter
	now       func() time.Time
	log       *logrus.Entry
}

// NewScheduler parses a standard five-field cron spec.
func NewScheduler(spec string, submitter *Submitter) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		submitter: submitter,
		now:       time.Now,
		log:       logrus.WithField("component", "scheduler"),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.EnqueueDaily(context.Background()) }); err != nil {
		return nil, fmt.Errorf("parse report schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.WithField("entries", len(s.cron.Entries())).Info("report scheduler started")
}

// Stop halts the schedule and waits for a running enqueue to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// EnqueueDaily submits today's daily report as PNG and CSV.
func (s *Scheduler) EnqueueDaily(ctx context.Context) []Status {
	today := s.now().Format(school.DateLayout)
	var out []Status
	for _, f := range []report.Format{report.FormatPNG, report.FormatCSV} {
		st, err := s.submitter.Submit(ctx, Job{Type: report.Daily, Reference: today, Format: f})
		if err != nil {
			s.log.WithError(err).WithField("format", f).Error("scheduled export not queued")
			continue
		}
		out = append(out, st)
	}
	return out
}
