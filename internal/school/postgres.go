package school

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository persists school records in Postgres.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a repo.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ListStudents returns all students, newest first.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	students := []Student{}
	err := r.db.SelectContext(ctx, &students, `
		SELECT id, name, email, phone, created_at
		FROM students
		ORDER BY created_at DESC
	`)
	return students, err
}

// CreateStudent inserts a student.
func (r *Repository) CreateStudent(ctx context.Context, st Student) (Student, error) {
	st.ID = uuid.NewString()
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO students (id, name, email, phone)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, st.ID, st.Name, st.Email, st.Phone)
	if err := row.Scan(&st.CreatedAt); err != nil {
		return Student{}, err
	}
	return st, nil
}

// UpdateStudent replaces every editable column of the student.
func (r *Repository) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	row := r.db.QueryRowxContext(ctx, `
		UPDATE students SET name = $2, email = $3, phone = $4
		WHERE id = $1
		RETURNING created_at
	`, st.ID, st.Name, st.Email, st.Phone)
	if err := row.Scan(&st.CreatedAt); err != nil {
		return Student{}, notFound(err)
	}
	return st, nil
}

// DeleteStudent hard-deletes a student. Absences and attendance rows are left in place.
func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "students", id)
}

// ListSubjects returns all subjects ordered by name.
func (r *Repository) ListSubjects(ctx context.Context) ([]Subject, error) {
	subjects := []Subject{}
	err := r.db.SelectContext(ctx, &subjects, `
		SELECT id, name, teacher, description, created_at
		FROM subjects
		ORDER BY name
	`)
	return subjects, err
}

// CreateSubject inserts a subject.
func (r *Repository) CreateSubject(ctx context.Context, su Subject) (Subject, error) {
	su.ID = uuid.NewString()
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO subjects (id, name, teacher, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, su.ID, su.Name, su.Teacher, su.Description)
	if err := row.Scan(&su.CreatedAt); err != nil {
		return Subject{}, err
	}
	return su, nil
}

// UpdateSubject replaces every editable column of the subject.
func (r *Repository) UpdateSubject(ctx context.Context, su Subject) (Subject, error) {
	row := r.db.QueryRowxContext(ctx, `
		UPDATE subjects SET name = $2, teacher = $3, description = $4
		WHERE id = $1
		RETURNING created_at
	`, su.ID, su.Name, su.Teacher, su.Description)
	if err := row.Scan(&su.CreatedAt); err != nil {
		return Subject{}, notFound(err)
	}
	return su, nil
}

// DeleteSubject hard-deletes a subject.
func (r *Repository) DeleteSubject(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "subjects", id)
}

const sessionColumns = `
	SELECT cs.id, cs.subject_id,
		COALESCE(su.name, '') AS subject_name,
		COALESCE(su.teacher, '') AS subject_teacher,
		cs.date, cs.topic, cs.notes, cs.created_at
	FROM class_sessions cs
	LEFT JOIN subjects su ON su.id = cs.subject_id
`

const attendanceColumns = `
	SELECT ar.id, ar.session_id, ar.student_id,
		COALESCE(st.name, '') AS student_name,
		ar.notes, ar.created_at
	FROM attendance_records ar
	LEFT JOIN students st ON st.id = ar.student_id
`

// ListClassSessions returns every session with its subject and attendance rows embedded.
func (r *Repository) ListClassSessions(ctx context.Context) ([]ClassSession, error) {
	sessions := []ClassSession{}
	if err := r.db.SelectContext(ctx, &sessions, sessionColumns+` ORDER BY cs.date DESC, cs.created_at DESC`); err != nil {
		return nil, err
	}
	var records []AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, attendanceColumns+` ORDER BY ar.created_at, student_name`); err != nil {
		return nil, err
	}
	bySession := make(map[string][]AttendanceRecord, len(sessions))
	for _, rec := range records {
		rec.StudentName = nameOr(rec.StudentName)
		bySession[rec.SessionID] = append(bySession[rec.SessionID], rec)
	}
	for i := range sessions {
		fillSession(&sessions[i], bySession[sessions[i].ID])
	}
	return sessions, nil
}

// GetClassSession returns a single session by id.
func (r *Repository) GetClassSession(ctx context.Context, id string) (ClassSession, error) {
	var cs ClassSession
	if err := r.db.GetContext(ctx, &cs, sessionColumns+` WHERE cs.id = $1`, id); err != nil {
		return ClassSession{}, notFound(err)
	}
	var records []AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, attendanceColumns+` WHERE ar.session_id = $1 ORDER BY ar.created_at, student_name`, id); err != nil {
		return ClassSession{}, err
	}
	for i := range records {
		records[i].StudentName = nameOr(records[i].StudentName)
	}
	fillSession(&cs, records)
	return cs, nil
}

// RegisterClass inserts the session and its attendance placeholders in one transaction.
func (r *Repository) RegisterClass(ctx context.Context, cs ClassSession) (ClassSession, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return ClassSession{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cs.ID = uuid.NewString()
	if err := tx.QueryRowxContext(ctx, `
		INSERT INTO class_sessions (id, subject_id, date, topic, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, cs.ID, cs.SubjectID, cs.Date, cs.Topic, cs.Notes).Scan(&cs.CreatedAt); err != nil {
		return ClassSession{}, fmt.Errorf("insert session: %w", err)
	}

	var students []Student
	if err := tx.SelectContext(ctx, &students, `SELECT id, name, created_at FROM students ORDER BY created_at DESC`); err != nil {
		return ClassSession{}, fmt.Errorf("load students: %w", err)
	}
	cs.Attendance = make([]AttendanceRecord, 0, len(students))
	for _, st := range students {
		rec := AttendanceRecord{ID: uuid.NewString(), SessionID: cs.ID, StudentID: st.ID, StudentName: st.Name}
		if err := tx.QueryRowxContext(ctx, `
			INSERT INTO attendance_records (id, session_id, student_id)
			VALUES ($1, $2, $3)
			RETURNING created_at
		`, rec.ID, rec.SessionID, rec.StudentID).Scan(&rec.CreatedAt); err != nil {
			return ClassSession{}, fmt.Errorf("insert attendance: %w", err)
		}
		cs.Attendance = append(cs.Attendance, rec)
	}

	if err := tx.QueryRowxContext(ctx, `SELECT name, teacher FROM subjects WHERE id = $1`, cs.SubjectID).
		Scan(&cs.SubjectName, &cs.SubjectTeacher); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ClassSession{}, fmt.Errorf("load subject: %w", err)
	}
	cs.SubjectName = nameOr(cs.SubjectName)

	if err := tx.Commit(); err != nil {
		return ClassSession{}, fmt.Errorf("commit: %w", err)
	}
	return cs, nil
}

// ListAbsences returns every absence joined with names, newest date first.
func (r *Repository) ListAbsences(ctx context.Context) ([]Absence, error) {
	absences := []Absence{}
	if err := r.db.SelectContext(ctx, &absences, `
		SELECT ab.id, ab.student_id, COALESCE(st.name, '') AS student_name,
			ab.subject_id, COALESCE(su.name, '') AS subject_name,
			ab.date, ab.reason, ab.justified, ab.created_at
		FROM absences ab
		LEFT JOIN students st ON st.id = ab.student_id
		LEFT JOIN subjects su ON su.id = ab.subject_id
		ORDER BY ab.date DESC, ab.created_at DESC
	`); err != nil {
		return nil, err
	}
	for i := range absences {
		absences[i].StudentName = nameOr(absences[i].StudentName)
		absences[i].SubjectName = nameOr(absences[i].SubjectName)
		absences[i].Date = DateOf(absences[i].Date)
	}
	return absences, nil
}

// CreateAbsence inserts an absence and returns it joined with names, as ListAbsences does.
func (r *Repository) CreateAbsence(ctx context.Context, ab Absence) (Absence, error) {
	ab.ID = uuid.NewString()
	row := r.db.QueryRowxContext(ctx, `
		INSERT INTO absences (id, student_id, subject_id, date, reason, justified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at,
			COALESCE((SELECT name FROM students WHERE id = $2), ''),
			COALESCE((SELECT name FROM subjects WHERE id = $3), '')
	`, ab.ID, ab.StudentID, ab.SubjectID, ab.Date, ab.Reason, ab.Justified)
	if err := row.Scan(&ab.CreatedAt, &ab.StudentName, &ab.SubjectName); err != nil {
		return Absence{}, err
	}
	ab.StudentName = nameOr(ab.StudentName)
	ab.SubjectName = nameOr(ab.SubjectName)
	ab.Date = DateOf(ab.Date)
	return ab, nil
}

// DeleteAbsence hard-deletes an absence.
func (r *Repository) DeleteAbsence(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "absences", id)
}

// table is always one of the constant names above.
func (r *Repository) deleteByID(ctx context.Context, table, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func fillSession(cs *ClassSession, records []AttendanceRecord) {
	cs.SubjectName = nameOr(cs.SubjectName)
	cs.Date = DateOf(cs.Date)
	if records == nil {
		records = []AttendanceRecord{}
	}
	cs.Attendance = records
}
