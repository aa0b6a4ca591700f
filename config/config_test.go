package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SUITE_PACE", "")
	t.Setenv("PHOTO_BUCKET", "")

	cfg := Load()

	assert.Equal(t, "vowline", cfg.AppName)
	assert.Equal(t, "profile-photos", cfg.PhotoBucket)
	assert.Equal(t, 500*time.Millisecond, cfg.SuitePace)
	assert.Equal(t, int64(5<<20), cfg.PhotoMaxBytes)
	assert.Equal(t, "authenticated", cfg.DBScopedRole)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SUITE_PACE", "50ms")
	t.Setenv("PHOTO_BUCKET", "photos-staging")
	t.Setenv("MAIL_SEND_ENABLED", "false")
	t.Setenv("DB_MAX_CONNS", "25")

	cfg := Load()

	assert.Equal(t, 50*time.Millisecond, cfg.SuitePace)
	assert.Equal(t, "photos-staging", cfg.PhotoBucket)
	assert.False(t, cfg.MailSendEnabled)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SUITE_PACE", "soon")
	t.Setenv("REDIS_DB", "two")
	t.Setenv("COOKIE_SECURE", "maybe")

	cfg := Load()

	assert.Equal(t, 500*time.Millisecond, cfg.SuitePace)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.False(t, cfg.CookieSecure)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DBUser: "u", DBPassword: "p", DBHost: "db", DBPort: "5433", DBName: "vows", DBSSLMode: "require"}
	assert.Equal(t, "postgres://u:p@db:5433/vows?sslmode=require", cfg.PostgresDSN())
}

func TestSplitList(t *testing.T) {
	cfg := &Config{CORSAllowedOrigins: " https://a.example , ,https://b.example"}
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins())
	assert.Empty(t, (&Config{}).ESAddrs())
}
