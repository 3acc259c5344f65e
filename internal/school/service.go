package school

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"classlog/internal/cache"
	"classlog/internal/metrics"
)

// Cached collection keys.
const (
	CollectionStudents      = "students"
	CollectionSubjects      = "subjects"
	CollectionClassSessions = "class_sessions"
	CollectionAbsences      = "absences"
)

type mutation int

const (
	studentChanged mutation = iota
	subjectChanged
	classRegistered
	absenceChanged
)

// invalidates lists the cached collections each kind of write makes stale.
// Joined names are embedded in sessions and absences, so entity edits reach them too.
var invalidates = map[mutation][]string{
	studentChanged:  {CollectionStudents, CollectionClassSessions, CollectionAbsences},
	subjectChanged:  {CollectionSubjects, CollectionClassSessions, CollectionAbsences},
	classRegistered: {CollectionClassSessions},
	absenceChanged:  {CollectionAbsences},
}

// Service owns the entity managers, the class registry, the absence manager and the
// attendance history. Reads go through the collection cache; writes go to the store and then
// invalidate what they touched.
type Service struct {
	store Store
	cache cache.Cache
	ttl   time.Duration
	log   *logrus.Entry
}

// NewService creates a service backed by a store. A nil cache disables caching.
func NewService(store Store, c cache.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, cache: c, ttl: ttl, log: logrus.WithField("component", "school")}
}

// ---------- Students ----------

// ListStudents returns all students, newest first.
func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	return readThrough(ctx, s, CollectionStudents, s.store.ListStudents)
}

// CreateStudent validates and inserts a student.
func (s *Service) CreateStudent(ctx context.Context, in StudentInput) (Student, error) {
	in.normalize()
	if err := check(in); err != nil {
		return Student{}, err
	}
	st, err := s.store.CreateStudent(ctx, Student{Name: in.Name, Email: in.Email, Phone: in.Phone})
	if err != nil {
		return Student{}, fmt.Errorf("create student: %w", err)
	}
	s.invalidate(ctx, studentChanged)
	return st, nil
}

// UpdateStudent replaces the student identified by id.
func (s *Service) UpdateStudent(ctx context.Context, id string, in StudentInput) (Student, error) {
	in.normalize()
	if err := check(in); err != nil {
		return Student{}, err
	}
	st, err := s.store.UpdateStudent(ctx, Student{ID: id, Name: in.Name, Email: in.Email, Phone: in.Phone})
	if err != nil {
		return Student{}, fmt.Errorf("update student %s: %w", id, err)
	}
	s.invalidate(ctx, studentChanged)
	return st, nil
}

// DeleteStudent removes a student. Their absences and attendance rows stay behind.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		return fmt.Errorf("delete student %s: %w", id, err)
	}
	s.invalidate(ctx, studentChanged)
	return nil
}

// ---------- Subjects ----------

// ListSubjects returns all subjects ordered by name.
func (s *Service) ListSubjects(ctx context.Context) ([]Subject, error) {
	return readThrough(ctx, s, CollectionSubjects, s.store.ListSubjects)
}

// CreateSubject validates and inserts a subject.
func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (Subject, error) {
	in.normalize()
	if err := check(in); err != nil {
		return Subject{}, err
	}
	su, err := s.store.CreateSubject(ctx, Subject{Name: in.Name, Teacher: in.Teacher, Description: in.Description})
	if err != nil {
		return Subject{}, fmt.Errorf("create subject: %w", err)
	}
	s.invalidate(ctx, subjectChanged)
	return su, nil
}

// UpdateSubject replaces the subject identified by id.
func (s *Service) UpdateSubject(ctx context.Context, id string, in SubjectInput) (Subject, error) {
	in.normalize()
	if err := check(in); err != nil {
		return Subject{}, err
	}
	su, err := s.store.UpdateSubject(ctx, Subject{ID: id, Name: in.Name, Teacher: in.Teacher, Description: in.Description})
	if err != nil {
		return Subject{}, fmt.Errorf("update subject %s: %w", id, err)
	}
	s.invalidate(ctx, subjectChanged)
	return su, nil
}

// DeleteSubject removes a subject.
func (s *Service) DeleteSubject(ctx context.Context, id string) error {
	if err := s.store.DeleteSubject(ctx, id); err != nil {
		return fmt.Errorf("delete subject %s: %w", id, err)
	}
	s.invalidate(ctx, subjectChanged)
	return nil
}

// ---------- Class registry ----------

// Readiness reports whether the class and absence forms can be used.
type Readiness struct {
	Students int  `json:"students"`
	Subjects int  `json:"subjects"`
	Ready    bool `json:"ready"`
}

// Readiness counts students and subjects for the empty-state guard.
func (s *Service) Readiness(ctx context.Context) (Readiness, error) {
	students, err := s.ListStudents(ctx)
	if err != nil {
		return Readiness{}, err
	}
	subjects, err := s.ListSubjects(ctx)
	if err != nil {
		return Readiness{}, err
	}
	return Readiness{
		Students: len(students),
		Subjects: len(subjects),
		Ready:    len(students) > 0 && len(subjects) > 0,
	}, nil
}

func (s *Service) requireReady(ctx context.Context) error {
	r, err := s.Readiness(ctx)
	if err != nil {
		return err
	}
	if !r.Ready {
		return ErrMissingPrerequisites
	}
	return nil
}

// ListClassSessions returns all sessions, newest date first.
func (s *Service) ListClassSessions(ctx context.Context) ([]ClassSession, error) {
	return readThrough(ctx, s, CollectionClassSessions, s.store.ListClassSessions)
}

// GetClassSession returns one session with its attendance rows.
func (s *Service) GetClassSession(ctx context.Context, id string) (ClassSession, error) {
	cs, err := s.store.GetClassSession(ctx, id)
	if err != nil {
		return ClassSession{}, fmt.Errorf("get class %s: %w", id, err)
	}
	return cs, nil
}

// RegisterClass logs a session and attaches one attendance row per student known now.
func (s *Service) RegisterClass(ctx context.Context, in ClassInput) (ClassSession, error) {
	in.normalize()
	if err := check(in); err != nil {
		return ClassSession{}, err
	}
	if err := s.requireReady(ctx); err != nil {
		return ClassSession{}, err
	}
	cs, err := s.store.RegisterClass(ctx, ClassSession{
		SubjectID: in.SubjectID,
		Date:      in.Date,
		Topic:     in.Topic,
		Notes:     in.Notes,
	})
	if err != nil {
		return ClassSession{}, fmt.Errorf("register class: %w", err)
	}
	s.invalidate(ctx, classRegistered)
	s.log.WithFields(logrus.Fields{"session_id": cs.ID, "attendance": cs.AttendanceCount()}).Info("class registered")
	return cs, nil
}

// ---------- Absences ----------

// ListAbsences returns all absences joined with names, newest date first.
func (s *Service) ListAbsences(ctx context.Context) ([]Absence, error) {
	return readThrough(ctx, s, CollectionAbsences, s.store.ListAbsences)
}

// CreateAbsence validates and logs an absence.
func (s *Service) CreateAbsence(ctx context.Context, in AbsenceInput) (Absence, error) {
	in.normalize()
	if err := check(in); err != nil {
		return Absence{}, err
	}
	if err := s.requireReady(ctx); err != nil {
		return Absence{}, err
	}
	ab, err := s.store.CreateAbsence(ctx, Absence{
		StudentID: in.StudentID,
		SubjectID: in.SubjectID,
		Date:      in.Date,
		Reason:    in.Reason,
		Justified: in.Justified,
	})
	if err != nil {
		return Absence{}, fmt.Errorf("create absence: %w", err)
	}
	s.invalidate(ctx, absenceChanged)
	return ab, nil
}

// DeleteAbsence removes an absence.
func (s *Service) DeleteAbsence(ctx context.Context, id string) error {
	if err := s.store.DeleteAbsence(ctx, id); err != nil {
		return fmt.Errorf("delete absence %s: %w", id, err)
	}
	s.invalidate(ctx, absenceChanged)
	return nil
}

// ---------- Cache plumbing ----------

// invalidate bumps the generations before dropping the values, so a read that loaded
// before this write can neither store nor serve its snapshot afterwards.
func (s *Service) invalidate(ctx context.Context, m mutation) {
	if s.cache == nil {
		return
	}
	keys := invalidates[m]
	if err := s.cache.Bump(ctx, keys...); err != nil {
		s.log.WithError(err).WithField("collections", keys).Warn("cache generation bump failed")
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.WithError(err).WithField("collections", keys).Warn("cache invalidation failed")
	}
}

// cachedList is the stored form of a collection, tagged with the generation it was loaded under.
type cachedList[T any] struct {
	Gen   int64 `json:"gen"`
	Items []T   `json:"items"`
}

// readThrough serves a collection from the cache, loading and storing it on a miss.
// Entries from an older generation count as misses. Cache errors are logged and never
// fail the read.
func readThrough[T any](ctx context.Context, s *Service, collection string, load func(context.Context) ([]T, error)) ([]T, error) {
	useCache := s.cache != nil
	var gen int64
	if useCache {
		var err error
		if gen, err = s.cache.Generation(ctx, collection); err != nil {
			metrics.CacheLookups.WithLabelValues(collection, "error").Inc()
			s.log.WithError(err).WithField("collection", collection).Warn("cache generation read failed")
			useCache = false
		}
	}
	if useCache {
		raw, err := s.cache.Get(ctx, collection)
		switch {
		case err == nil:
			var env cachedList[T]
			if jerr := json.Unmarshal(raw, &env); jerr != nil {
				metrics.CacheLookups.WithLabelValues(collection, "corrupt").Inc()
			} else if env.Gen != gen {
				metrics.CacheLookups.WithLabelValues(collection, "stale").Inc()
			} else {
				metrics.CacheLookups.WithLabelValues(collection, "hit").Inc()
				if env.Items == nil {
					env.Items = []T{}
				}
				return env.Items, nil
			}
		case errors.Is(err, cache.ErrMiss):
			metrics.CacheLookups.WithLabelValues(collection, "miss").Inc()
		default:
			metrics.CacheLookups.WithLabelValues(collection, "error").Inc()
			s.log.WithError(err).WithField("collection", collection).Warn("cache read failed")
		}
	}

	out, err := load(ctx)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	if out == nil {
		out = []T{}
	}
	if useCache {
		storeCollection(ctx, s, collection, gen, out)
	}
	return out, nil
}

// storeCollection writes a loaded collection back unless a write invalidated it meanwhile.
func storeCollection[T any](ctx context.Context, s *Service, collection string, gen int64, items []T) {
	now, err := s.cache.Generation(ctx, collection)
	if err != nil || now != gen {
		return
	}
	raw, err := json.Marshal(cachedList[T]{Gen: gen, Items: items})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, collection, raw, s.ttl); err != nil {
		s.log.WithError(err).WithField("collection", collection).Warn("cache write failed")
	}
}
