package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"classlog/internal/archive"
	"classlog/internal/queue"
	"classlog/internal/report"
)

// Runner generates, encodes and archives queued exports.
type Runner struct {
	reports  *report.Service
	archive  archive.Archive
	renderer report.Renderer
	statuses *Statuses
	now      func() time.Time
	log      *logrus.Entry
}

// NewRunner creates a runner.
func NewRunner(reports *report.Service, a archive.Archive, renderer report.Renderer, statuses *Statuses) *Runner {
	return &Runner{
		reports:  reports,
		archive:  a,
		renderer: renderer,
		statuses: statuses,
		now:      time.Now,
		log:      logrus.WithField("component", "exporter"),
	}
}

// Run consumes the queue until ctx is done.
func (r *Runner) Run(ctx context.Context, q queue.Queue) error {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	r.log.Info("export runner started")
	for msg := range msgs {
		if msg.Type != MessageType {
			r.log.WithField("type", msg.Type).Warn("skipping unknown message")
			continue
		}
		var job Job
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			r.log.WithError(err).Warn("skipping malformed export job")
			continue
		}
		r.Process(ctx, job)
	}
	return ctx.Err()
}

// Process runs one job and records its final status, even if ctx was cancelled midway.
// Failures are not retried.
func (r *Runner) Process(ctx context.Context, job Job) Status {
	log := r.log.WithFields(logrus.Fields{"job_id": job.ID, "type": job.Type, "format": job.Format})
	start := r.now()

	st := Status{Job: job, State: StateDone}
	loc, err := r.export(ctx, job)
	if err != nil {
		st.State = StateFailed
		st.Error = err.Error()
		log.WithError(err).Error("export failed")
	} else {
		st.Location = loc
		log.WithFields(logrus.Fields{"location": loc, "duration": r.now().Sub(start).String()}).Info("export archived")
	}
	st.UpdatedAt = r.now().UTC()
	if err := r.statuses.saveDetached(ctx, st); err != nil {
		log.WithError(err).Warn("could not save job status")
	}
	return st
}

func (r *Runner) export(ctx context.Context, job Job) (string, error) {
	req, err := job.Request()
	if err != nil {
		return "", err
	}
	rep, err := r.reports.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	data, err := report.Encode(ctx, rep, job.Format, r.renderer)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", job.Format, err)
	}
	name := report.Filename(job.Type, job.Format, r.now())
	loc, err := r.archive.Put(ctx, name, job.Format.ContentType(), data)
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	return loc, nil
}
