package school

import "context"

// Store is the data access layer over the five relations.
// Implementations assign ids and creation timestamps.
type Store interface {
	ListStudents(ctx context.Context) ([]Student, error)
	CreateStudent(ctx context.Context, st Student) (Student, error)
	UpdateStudent(ctx context.Context, st Student) (Student, error)
	DeleteStudent(ctx context.Context, id string) error

	ListSubjects(ctx context.Context) ([]Subject, error)
	CreateSubject(ctx context.Context, su Subject) (Subject, error)
	UpdateSubject(ctx context.Context, su Subject) (Subject, error)
	DeleteSubject(ctx context.Context, id string) error

	ListClassSessions(ctx context.Context) ([]ClassSession, error)
	GetClassSession(ctx context.Context, id string) (ClassSession, error)
	// RegisterClass writes the session and one attendance row per current student atomically.
	RegisterClass(ctx context.Context, cs ClassSession) (ClassSession, error)

	ListAbsences(ctx context.Context) ([]Absence, error)
	CreateAbsence(ctx context.Context, ab Absence) (Absence, error)
	DeleteAbsence(ctx context.Context, id string) error
}
