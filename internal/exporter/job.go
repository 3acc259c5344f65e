// Package exporter runs report exports in the background: jobs are queued by the API or the
// cron schedule, processed by the worker and archived, with their status kept in the cache.
package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"classlog/internal/cache"
	"classlog/internal/queue"
	"classlog/internal/report"
	"classlog/internal/school"
)

// MessageType tags export jobs on the queue.
const MessageType = "report.export"

// StatusTTL is how long a job status stays readable.
const StatusTTL = 24 * time.Hour

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("export job not found")

// State is the lifecycle of a job.
type State string

const (
	StateQueued State = "queued"
	StateDone   State = "done"
	StateFailed State = "failed"
)

// Job is one requested export. Dates use the YYYY-MM-DD wire layout.
type Job struct {
	ID        string        `json:"id"`
	Type      report.Type   `json:"type"`
	Reference string        `json:"reference,omitempty"`
	Start     string        `json:"start,omitempty"`
	End       string        `json:"end,omitempty"`
	Format    report.Format `json:"format"`
}

// Request turns the job back into a report request.
func (j Job) Request() (report.Request, error) {
	req := report.Request{Type: j.Type}
	var err error
	for _, f := range []struct {
		raw string
		dst *time.Time
	}{{j.Reference, &req.Reference}, {j.Start, &req.Start}, {j.End, &req.End}} {
		if f.raw == "" {
			continue
		}
		if *f.dst, err = school.ParseDate(f.raw); err != nil {
			return report.Request{}, fmt.Errorf("job %s: bad date %q: %w", j.ID, f.raw, err)
		}
	}
	return req, nil
}

// Status is what clients poll for.
type Status struct {
	Job       Job       `json:"job"`
	State     State     `json:"state"`
	Location  string    `json:"location,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Statuses keeps job statuses in the cache.
type Statuses struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewStatuses creates a status store over c.
func NewStatuses(c cache.Cache) *Statuses {
	return &Statuses{cache: c, ttl: StatusTTL}
}

func statusKey(id string) string { return "export:" + id }

// Save writes a status, replacing any earlier one for the same job.
func (s *Statuses) Save(ctx context.Context, st Status) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, statusKey(st.Job.ID), raw, s.ttl)
}

// finalSaveTimeout bounds status writes that must land after the caller has given up.
const finalSaveTimeout = 5 * time.Second

// saveDetached writes a terminal status even when ctx is already cancelled, so a job is
// never left looking queued after shutdown or a failed publish.
func (s *Statuses) saveDetached(ctx context.Context, st Status) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
	defer cancel()
	return s.Save(ctx, st)
}

// Get reads a job status.
func (s *Statuses) Get(ctx context.Context, id string) (Status, error) {
	raw, err := s.cache.Get(ctx, statusKey(id))
	if errors.Is(err, cache.ErrMiss) {
		return Status{}, ErrJobNotFound
	}
	if err != nil {
		return Status{}, fmt.Errorf("read job status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(raw, &st); err != nil {
		return Status{}, fmt.Errorf("decode job status: %w", err)
	}
	return st, nil
}

// Submitter validates jobs and puts them on the queue.
type Submitter struct {
	queue    queue.Queue
	statuses *Statuses
	now      func() time.Time
	newID    func() string
	log      *logrus.Entry
}

// NewSubmitter creates a submitter.
func NewSubmitter(q queue.Queue, statuses *Statuses) *Submitter {
	return &Submitter{
		queue:    q,
		statuses: statuses,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logrus.WithField("component", "exporter"),
	}
}

// Submit checks that the job describes a valid period and format, records it as queued and
// then publishes it. A job that cannot be published is recorded as failed. The returned
// status carries the new job id.
func (s *Submitter) Submit(ctx context.Context, job Job) (Status, error) {
	if _, err := report.ParseFormat(string(job.Format)); err != nil {
		return Status{}, err
	}
	req, err := job.Request()
	if err != nil {
		return Status{}, err
	}
	if _, err := report.Resolve(req); err != nil {
		return Status{}, err
	}

	job.ID = s.newID()
	st := Status{Job: job, State: StateQueued, UpdatedAt: s.now().UTC()}
	if err := s.statuses.Save(ctx, st); err != nil {
		return Status{}, fmt.Errorf("save job status: %w", err)
	}
	body, err := json.Marshal(job)
	if err != nil {
		return Status{}, err
	}
	if err := s.queue.Publish(ctx, queue.Message{Type: MessageType, Body: body}); err != nil {
		failed := st
		failed.State = StateFailed
		failed.Error = "enqueue failed: " + err.Error()
		failed.UpdatedAt = s.now().UTC()
		if serr := s.statuses.saveDetached(ctx, failed); serr != nil {
			s.log.WithError(serr).WithField("job_id", job.ID).Warn("could not mark unqueued job as failed")
		}
		return Status{}, fmt.Errorf("enqueue export: %w", err)
	}
	return st, nil
}
