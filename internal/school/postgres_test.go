package school

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRepositoryAgainstPostgres runs when TEST_DATABASE_URL points at a migrated, disposable database.
func TestRepositoryAgainstPostgres(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	db, err := sqlx.Open("pgx", dsn)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx, `TRUNCATE students, subjects, class_sessions, attendance_records, absences`)
	require.NoError(t, err)

	repo := NewRepository(db)
	st, err := repo.CreateStudent(ctx, Student{Name: "Ana"})
	require.NoError(t, err)
	su, err := repo.CreateSubject(ctx, Subject{Name: "Math", Teacher: "Kim"})
	require.NoError(t, err)

	cs, err := repo.RegisterClass(ctx, ClassSession{SubjectID: su.ID, Date: day("2024-03-10"), Topic: "Sets"})
	require.NoError(t, err)
	assert.Equal(t, 1, cs.AttendanceCount())
	assert.Equal(t, "Math", cs.SubjectName)

	got, err := repo.GetClassSession(ctx, cs.ID)
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-10"), got.Date)
	require.Len(t, got.Attendance, 1)
	assert.Equal(t, "Ana", got.Attendance[0].StudentName)

	ab, err := repo.CreateAbsence(ctx, Absence{StudentID: st.ID, SubjectID: su.ID, Date: day("2024-03-10")})
	require.NoError(t, err)
	assert.Equal(t, "Ana", ab.StudentName)
	assert.Equal(t, su.Name, ab.SubjectName)
	assert.False(t, ab.CreatedAt.IsZero())
	require.NoError(t, repo.DeleteStudent(ctx, st.ID))

	absences, err := repo.ListAbsences(ctx)
	require.NoError(t, err)
	require.Len(t, absences, 1)
	assert.Equal(t, MissingName, absences[0].StudentName)

	assert.ErrorIs(t, repo.DeleteStudent(ctx, st.ID), ErrNotFound)
	_, err = repo.UpdateSubject(ctx, Subject{ID: "missing", Name: "X", Teacher: "Y"})
	assert.ErrorIs(t, err, ErrNotFound)
}
