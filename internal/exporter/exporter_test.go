package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classlog/internal/archive"
	"classlog/internal/cache"
	"classlog/internal/queue"
	"classlog/internal/report"
	"classlog/internal/school"
)

type fixture struct {
	school    *school.Service
	statuses  *Statuses
	queue     *queue.InMemory
	submitter *Submitter
	runner    *Runner
	dir       string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	c := cache.NewInMemory()
	svc := school.NewService(school.NewMemory(), c, time.Minute)
	statuses := NewStatuses(c)
	q := queue.NewInMemory(8)
	dir := t.TempDir()
	return fixture{
		school:    svc,
		statuses:  statuses,
		queue:     q,
		submitter: NewSubmitter(q, statuses),
		runner:    NewRunner(report.NewService(svc), archive.NewDir(dir), report.Renderer{Width: 320, Scale: 1}, statuses),
		dir:       dir,
	}
}

func TestSubmitValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.submitter.Submit(ctx, Job{Type: report.Daily, Reference: "2024-03-10", Format: "pdf"})
	assert.ErrorIs(t, err, report.ErrUnknownFormat)

	_, err = f.submitter.Submit(ctx, Job{Type: report.Custom, Start: "2024-03-01", Format: report.FormatCSV})
	assert.ErrorIs(t, err, report.ErrMissingRange)

	_, err = f.submitter.Submit(ctx, Job{Type: "yearly", Reference: "2024-03-10", Format: report.FormatCSV})
	assert.ErrorIs(t, err, report.ErrUnknownType)

	_, err = f.submitter.Submit(ctx, Job{Type: report.Daily, Reference: "10/03/2024", Format: report.FormatCSV})
	assert.Error(t, err)
}

func TestSubmitQueuesAndRecords(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := f.submitter.Submit(ctx, Job{Type: report.Weekly, Reference: "2024-03-10", Format: report.FormatCSV})
	require.NoError(t, err)
	assert.NotEmpty(t, st.Job.ID)
	assert.Equal(t, StateQueued, st.State)

	got, err := f.statuses.Get(ctx, st.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, got.State)

	msgs, err := f.queue.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, MessageType, msg.Type)
	var job Job
	require.NoError(t, json.Unmarshal(msg.Body, &job))
	assert.Equal(t, st.Job, job)
}

type downQueue struct{}

func (downQueue) Publish(context.Context, queue.Message) error {
	return errors.New("connection refused")
}

func (downQueue) Consume(context.Context) (<-chan queue.Message, error) {
	return nil, errors.New("connection refused")
}

func TestSubmitPublishFailureMarksJobFailed(t *testing.T) {
	statuses := NewStatuses(cache.NewInMemory())
	sub := NewSubmitter(downQueue{}, statuses)
	sub.newID = func() string { return "job-1" }

	_, err := sub.Submit(context.Background(), Job{Type: report.Daily, Reference: "2024-03-10", Format: report.FormatCSV})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	got, err := statuses.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State, "a job that never reached the queue must not stay queued")
	assert.Contains(t, got.Error, "connection refused")
}

func TestStatusesUnknownJob(t *testing.T) {
	_, err := NewStatuses(cache.NewInMemory()).Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestProcessArchivesExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.school.CreateStudent(ctx, school.StudentInput{Name: "Ana"})
	require.NoError(t, err)
	math, err := f.school.CreateSubject(ctx, school.SubjectInput{Name: "Math", Teacher: "Kim"})
	require.NoError(t, err)
	_, err = f.school.RegisterClass(ctx, school.ClassInput{SubjectID: math.ID, Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Topic: "Fractions"})
	require.NoError(t, err)

	for _, format := range []report.Format{report.FormatCSV, report.FormatXLSX, report.FormatPNG} {
		st := f.runner.Process(ctx, Job{ID: "job-" + string(format), Type: report.Daily, Reference: "2024-03-10", Format: format})
		require.Equal(t, StateDone, st.State, st.Error)
		assert.True(t, strings.HasPrefix(st.Location, f.dir))
		assert.True(t, strings.HasSuffix(st.Location, "."+string(format)))

		raw, err := os.ReadFile(st.Location)
		require.NoError(t, err)
		assert.NotEmpty(t, raw)

		saved, err := f.statuses.Get(ctx, st.Job.ID)
		require.NoError(t, err)
		assert.Equal(t, StateDone, saved.State)
	}
}

type brokenArchive struct{}

func (brokenArchive) Put(context.Context, string, string, []byte) (string, error) {
	return "", errors.New("bucket gone")
}

func TestProcessRecordsFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.archive = brokenArchive{}

	st := f.runner.Process(context.Background(), Job{ID: "j1", Type: report.Daily, Reference: "2024-03-10", Format: report.FormatCSV})
	assert.Equal(t, StateFailed, st.State)
	assert.Contains(t, st.Error, "bucket gone")

	saved, err := f.statuses.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, saved.State)
}

// ctxCache refuses writes on a done context, as a network-backed cache would.
type ctxCache struct {
	cache.Cache
}

func (c ctxCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Cache.Set(ctx, key, val, ttl)
}

func TestProcessSavesStatusAfterCancel(t *testing.T) {
	f := newFixture(t)
	statuses := NewStatuses(ctxCache{Cache: cache.NewInMemory()})
	f.runner.statuses = statuses
	f.runner.archive = brokenArchive{}

	job := Job{ID: "j2", Type: report.Daily, Reference: "2024-03-10", Format: report.FormatCSV}
	require.NoError(t, statuses.Save(context.Background(), Status{Job: job, State: StateQueued}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.runner.Process(ctx, job)

	saved, err := statuses.Get(context.Background(), "j2")
	require.NoError(t, err)
	assert.Equal(t, StateFailed, saved.State)
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	st, err := f.submitter.Submit(ctx, Job{Type: report.Monthly, Reference: "2024-03-10", Format: report.FormatCSV})
	require.NoError(t, err)
	require.NoError(t, f.queue.Publish(ctx, queue.Message{Type: "other", Body: []byte("x")}))

	done := make(chan error, 1)
	go func() { done <- f.runner.Run(ctx, f.queue) }()

	require.Eventually(t, func() bool {
		got, err := f.statuses.Get(context.Background(), st.Job.ID)
		return err == nil && got.State == StateDone
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestSchedulerEnqueuesDaily(t *testing.T) {
	f := newFixture(t)
	s, err := NewScheduler("0 18 * * 1-5", f.submitter)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 11, 18, 0, 0, 0, time.UTC) }

	out := s.EnqueueDaily(context.Background())
	require.Len(t, out, 2)
	assert.Equal(t, report.FormatPNG, out[0].Job.Format)
	assert.Equal(t, report.FormatCSV, out[1].Job.Format)
	for _, st := range out {
		assert.Equal(t, report.Daily, st.Job.Type)
		assert.Equal(t, "2024-03-11", st.Job.Reference)
	}

	_, err = NewScheduler("every tuesday", f.submitter)
	assert.Error(t, err)
}
