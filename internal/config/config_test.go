package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("STORE_BACKEND", "")
	cfg := Load()
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 2, cfg.RenderScale)
	assert.True(t, cfg.AutoMigrate)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "MEMORY")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("RENDER_WIDTH", "640")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("APP_ENV", "production")
	cfg := Load()
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 640, cfg.RenderWidth)
	assert.False(t, cfg.AutoMigrate)
	assert.True(t, cfg.Production())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("AUTO_MIGRATE", "maybe")
	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.True(t, cfg.AutoMigrate)
}

func TestCORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "")
	assert.Equal(t, []string{"*"}, Load().CORSOrigins)

	t.Setenv("CORS_ORIGINS", "https://school.example, http://localhost:5173 ,")
	assert.Equal(t, []string{"https://school.example", "http://localhost:5173"}, Load().CORSOrigins)
}
