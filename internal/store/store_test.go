package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilHandlesAreUnhealthy(t *testing.T) {
	var db *DB
	var rdb *Redis
	ctx := context.Background()
	assert.False(t, db.Healthy(ctx))
	assert.False(t, rdb.Healthy(ctx))
	assert.NoError(t, db.Close())
	assert.NoError(t, rdb.Close())
}

func TestSchemaDeclaresAllTables(t *testing.T) {
	for _, table := range []string{"students", "subjects", "class_sessions", "attendance_records", "absences"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx))
	assert.True(t, db.Healthy(ctx))
}
