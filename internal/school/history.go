package school

import (
	"context"
	"time"
)

// HistoryFilter narrows the attendance history. Zero values match everything.
type HistoryFilter struct {
	SubjectID string
	StudentID string
	From      time.Time
	To        time.Time
}

// Matches reports whether the session passes the filter. Date bounds are inclusive.
func (f HistoryFilter) Matches(cs ClassSession) bool {
	if f.SubjectID != "" && cs.SubjectID != f.SubjectID {
		return false
	}
	day := DateOf(cs.Date)
	if !f.From.IsZero() && day.Before(DateOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(DateOf(f.To)) {
		return false
	}
	if f.StudentID != "" {
		for _, rec := range cs.Attendance {
			if rec.StudentID == f.StudentID {
				return true
			}
		}
		return false
	}
	return true
}

// History is the read-only browse view over the cached session list.
func (s *Service) History(ctx context.Context, f HistoryFilter) ([]ClassSession, error) {
	sessions, err := s.ListClassSessions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ClassSession, 0, len(sessions))
	for _, cs := range sessions {
		if f.Matches(cs) {
			out = append(out, cs)
		}
	}
	return out, nil
}
