package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"classlog/internal/school"
)

// Type selects how the reporting period is derived.
type Type string

const (
	Daily   Type = "daily"
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
	Custom  Type = "custom"
)

var (
	ErrUnknownType  = errors.New("unknown report type")
	ErrMissingRange = errors.New("custom reports need both start and end dates")
)

// ParseType accepts the report type case-insensitively.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case Daily, Weekly, Monthly, Custom:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Request describes the period to report on. Reference is used by daily, weekly and
// monthly reports; Start and End by custom ones.
type Request struct {
	Type      Type
	Reference time.Time
	Start     time.Time
	End       time.Time
}

// Range is a closed interval of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Resolve turns a request into the closed date range it covers.
// Custom ranges are taken as given; start after end is not rejected.
func Resolve(req Request) (Range, error) {
	ref := school.DateOf(req.Reference)
	switch req.Type {
	case Daily:
		return Range{Start: ref, End: ref}, nil
	case Weekly:
		// Monday-start week.
		offset := (int(ref.Weekday()) + 6) % 7
		start := ref.AddDate(0, 0, -offset)
		return Range{Start: start, End: start.AddDate(0, 0, 6)}, nil
	case Monthly:
		first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Range{Start: first, End: first.AddDate(0, 1, -1)}, nil
	case Custom:
		if req.Start.IsZero() || req.End.IsZero() {
			return Range{}, ErrMissingRange
		}
		return Range{Start: school.DateOf(req.Start), End: school.DateOf(req.End)}, nil
	}
	return Range{}, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
}

// Contains reports whether t falls on a day inside the range, both ends included.
func (r Range) Contains(t time.Time) bool {
	d := school.DateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// String renders the range as "start to end".
func (r Range) String() string {
	return r.Start.Format(school.DateLayout) + " to " + r.End.Format(school.DateLayout)
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}{r.Start.Format(school.DateLayout), r.End.Format(school.DateLayout)})
}
