package confs

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "0.0.0.0:3536", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 300*time.Second, cfg.JWTTTL)
	assert.Equal(t, "memory", cfg.CacheDriver)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.DBMaxOpenConns)
	assert.Equal(t, "weather/+/+", cfg.MQTTTopic)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/w.db")
	t.Setenv("JWT_TTL", "10m")
	t.Setenv("CACHE_DRIVER", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "/tmp/w.db", cfg.SQLitePath)
	assert.Equal(t, 10*time.Minute, cfg.JWTTTL)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad app env", map[string]string{"APP_ENV": "staging"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"bad ttl", map[string]string{"JWT_TTL": "soon"}},
		{"negative ttl", map[string]string{"JWT_TTL": "-1s"}},
		{"bad cache driver", map[string]string{"CACHE_DRIVER": "memcached"}},
		{"redis without url", map[string]string{"CACHE_DRIVER": "redis"}},
		{"bad pool size", map[string]string{"DB_MAX_OPEN_CONNS": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
