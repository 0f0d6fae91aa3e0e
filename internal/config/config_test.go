package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "trivia")
	t.Setenv("PG_PASSWORD", "secret")
	t.Setenv("PG_DATABASE", "trivia")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("SESSION_TOKEN_SECRET", "signing-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "trivia-engine", cfg.Name)
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 2500*time.Millisecond, cfg.Runtime.QuizCooldown)
	assert.Equal(t, 10, cfg.Runtime.DefaultQuestionCount)
	assert.Equal(t, 15*time.Second, cfg.Runtime.DefaultQuestionSeconds)
	assert.Equal(t, 12*time.Hour, cfg.Security.SessionTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.PackageTTL)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "host=db port=5432 user=trivia password=secret dbname=trivia sslmode=disable", cfg.Postgres.DSN())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("QUIZ_COOLDOWN", "1s")
	t.Setenv("MAX_SESSIONS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://play.example")

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Runtime.QuizCooldown)
	assert.Equal(t, 5, cfg.Runtime.MaxSessions)
	assert.Equal(t, []string{"https://play.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRequiresSecrets(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_TOKEN_SECRET", "")

	_, err := Load(context.Background())
	assert.Error(t, err)
}
