package school

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// MissingName is shown when a joined row no longer exists.
const MissingName = "name not found"

// Student is a registered student.
type Student struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Subject is a taught subject.
type Subject struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Teacher     string    `db:"teacher" json:"teacher"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ClassSession is one logged class, embedded with its subject and attendance rows.
type ClassSession struct {
	ID             string             `db:"id" json:"id"`
	SubjectID      string             `db:"subject_id" json:"subject_id"`
	SubjectName    string             `db:"subject_name" json:"subject_name"`
	SubjectTeacher string             `db:"subject_teacher" json:"subject_teacher"`
	Date           time.Time          `db:"date" json:"date"`
	Topic          string             `db:"topic" json:"topic"`
	Notes          *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	Attendance     []AttendanceRecord `db:"-" json:"attendance"`
}

// AttendanceCount is the number of attendance rows attached to the session.
func (c ClassSession) AttendanceCount() int { return len(c.Attendance) }

// AttendanceRecord marks that a student was enrolled for a session.
// It carries no presence flag.
type AttendanceRecord struct {
	ID          string    `db:"id" json:"id"`
	SessionID   string    `db:"session_id" json:"session_id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	Notes       *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Absence is a logged absence, independent of attendance records.
type Absence struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	StudentName string    `db:"student_name" json:"student_name"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	SubjectName string    `db:"subject_name" json:"subject_name"`
	Date        time.Time `db:"date" json:"date"`
	Reason      *string   `db:"reason" json:"reason,omitempty"`
	Justified   bool      `db:"justified" json:"justified"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// StudentInput is the create/edit form for a student.
type StudentInput struct {
	Name  string  `json:"name" validate:"required"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// SubjectInput is the create/edit form for a subject.
type SubjectInput struct {
	Name        string  `json:"name" validate:"required"`
	Teacher     string  `json:"teacher" validate:"required"`
	Description *string `json:"description"`
}

// ClassInput registers a class session.
type ClassInput struct {
	SubjectID string    `json:"subject_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Topic     string    `json:"topic" validate:"required"`
	Notes     *string   `json:"notes"`
}

// AbsenceInput logs an absence.
type AbsenceInput struct {
	StudentID string    `json:"student_id" validate:"required"`
	SubjectID string    `json:"subject_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Reason    *string   `json:"reason"`
	Justified bool      `json:"justified"`
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func nameOr(name string) string {
	if name == "" {
		return MissingName
	}
	return name
}
