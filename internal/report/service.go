package report

import (
	"context"
	"fmt"
	"time"

	"classlog/internal/metrics"
	"classlog/internal/school"
)

// Source supplies the four collections a report reads in full.
type Source interface {
	ListStudents(ctx context.Context) ([]school.Student, error)
	ListSubjects(ctx context.Context) ([]school.Subject, error)
	ListClassSessions(ctx context.Context) ([]school.ClassSession, error)
	ListAbsences(ctx context.Context) ([]school.Absence, error)
}

// Service generates reports from a Source.
type Service struct {
	src Source
	now func() time.Time
}

// NewService creates a report service.
func NewService(src Source) *Service {
	return &Service{src: src, now: time.Now}
}

// Generate fetches all collections, resolves the period and aggregates.
func (s *Service) Generate(ctx context.Context, req Request) (Report, error) {
	rng, err := Resolve(req)
	if err != nil {
		return Report{}, err
	}
	var data Dataset
	if data.Students, err = s.src.ListStudents(ctx); err != nil {
		return Report{}, fmt.Errorf("load students: %w", err)
	}
	if data.Subjects, err = s.src.ListSubjects(ctx); err != nil {
		return Report{}, fmt.Errorf("load subjects: %w", err)
	}
	if data.Sessions, err = s.src.ListClassSessions(ctx); err != nil {
		return Report{}, fmt.Errorf("load class sessions: %w", err)
	}
	if data.Absences, err = s.src.ListAbsences(ctx); err != nil {
		return Report{}, fmt.Errorf("load absences: %w", err)
	}
	rep := Build(req.Type, rng, data)
	rep.GeneratedAt = s.now().UTC()
	metrics.ReportsGenerated.WithLabelValues(string(req.Type)).Inc()
	return rep, nil
}
