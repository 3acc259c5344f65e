package school

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a mutex-guarded Store for dev/testing.
type Memory struct {
	mu         sync.RWMutex
	students   map[string]Student
	subjects   map[string]Subject
	sessions   map[string]ClassSession
	attendance map[string][]AttendanceRecord
	absences   map[string]Absence
	seq        int64
	now        func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		students:   make(map[string]Student),
		subjects:   make(map[string]Subject),
		sessions:   make(map[string]ClassSession),
		attendance: make(map[string][]AttendanceRecord),
		absences:   make(map[string]Absence),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// tick returns a strictly increasing timestamp so ordering by creation time is stable
// even when the clock does not advance between writes.
func (m *Memory) tick() time.Time {
	m.seq++
	return m.now().Add(time.Duration(m.seq) * time.Microsecond)
}

func (m *Memory) ListStudents(ctx context.Context) ([]Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.studentsByNewest(), nil
}

func (m *Memory) studentsByNewest() []Student {
	out := make([]Student, 0, len(m.students))
	for _, st := range m.students {
		out = append(out, st)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *Memory) CreateStudent(ctx context.Context, st Student) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st.ID = uuid.NewString()
	st.CreatedAt = m.tick()
	m.students[st.ID] = st
	return st, nil
}

func (m *Memory) UpdateStudent(ctx context.Context, st Student) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.students[st.ID]
	if !ok {
		return Student{}, ErrNotFound
	}
	st.CreatedAt = cur.CreatedAt
	m.students[st.ID] = st
	return st, nil
}

func (m *Memory) DeleteStudent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return ErrNotFound
	}
	delete(m.students, id)
	return nil
}

func (m *Memory) ListSubjects(ctx context.Context) ([]Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Subject, 0, len(m.subjects))
	for _, su := range m.subjects {
		out = append(out, su)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *Memory) CreateSubject(ctx context.Context, su Subject) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	su.ID = uuid.NewString()
	su.CreatedAt = m.tick()
	m.subjects[su.ID] = su
	return su, nil
}

func (m *Memory) UpdateSubject(ctx context.Context, su Subject) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.subjects[su.ID]
	if !ok {
		return Subject{}, ErrNotFound
	}
	su.CreatedAt = cur.CreatedAt
	m.subjects[su.ID] = su
	return su, nil
}

func (m *Memory) DeleteSubject(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subjects[id]; !ok {
		return ErrNotFound
	}
	delete(m.subjects, id)
	return nil
}

func (m *Memory) ListClassSessions(ctx context.Context) ([]ClassSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ClassSession, 0, len(m.sessions))
	for id := range m.sessions {
		out = append(out, m.joinSession(id))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (m *Memory) GetClassSession(ctx context.Context, id string) (ClassSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.sessions[id]; !ok {
		return ClassSession{}, ErrNotFound
	}
	return m.joinSession(id), nil
}

func (m *Memory) joinSession(id string) ClassSession {
	cs := m.sessions[id]
	su, ok := m.subjects[cs.SubjectID]
	if ok {
		cs.SubjectName, cs.SubjectTeacher = su.Name, su.Teacher
	} else {
		cs.SubjectName, cs.SubjectTeacher = "", ""
	}
	recs := make([]AttendanceRecord, len(m.attendance[id]))
	for i, rec := range m.attendance[id] {
		rec.StudentName = m.students[rec.StudentID].Name
		recs[i] = rec
	}
	fillSession(&cs, recs)
	for i := range cs.Attendance {
		cs.Attendance[i].StudentName = nameOr(cs.Attendance[i].StudentName)
	}
	return cs
}

// RegisterClass holds the write lock for the whole operation, so the session and its
// attendance rows become visible together.
func (m *Memory) RegisterClass(ctx context.Context, cs ClassSession) (ClassSession, error) {
	if err := ctx.Err(); err != nil {
		return ClassSession{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	cs.ID = uuid.NewString()
	cs.CreatedAt = m.tick()
	cs.Attendance = nil
	m.sessions[cs.ID] = cs

	students := m.studentsByNewest()
	recs := make([]AttendanceRecord, 0, len(students))
	for _, st := range students {
		recs = append(recs, AttendanceRecord{
			ID:        uuid.NewString(),
			SessionID: cs.ID,
			StudentID: st.ID,
			CreatedAt: cs.CreatedAt,
		})
	}
	m.attendance[cs.ID] = recs
	return m.joinSession(cs.ID), nil
}

func (m *Memory) ListAbsences(ctx context.Context) ([]Absence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Absence, 0, len(m.absences))
	for _, ab := range m.absences {
		ab.StudentName = nameOr(m.students[ab.StudentID].Name)
		ab.SubjectName = nameOr(m.subjects[ab.SubjectID].Name)
		out = append(out, ab)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

func (m *Memory) CreateAbsence(ctx context.Context, ab Absence) (Absence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ab.ID = uuid.NewString()
	ab.CreatedAt = m.tick()
	ab.StudentName = nameOr(m.students[ab.StudentID].Name)
	ab.SubjectName = nameOr(m.subjects[ab.SubjectID].Name)
	m.absences[ab.ID] = ab
	return ab, nil
}

func (m *Memory) DeleteAbsence(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.absences[id]; !ok {
		return ErrNotFound
	}
	delete(m.absences, id)
	return nil
}
