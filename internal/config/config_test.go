package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	require.Equal(t, "gema-quiz.db", cfg.DatabaseURL)
	require.Equal(t, 5*time.Second, cfg.SnapshotCacheTTL)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 30, cfg.SubmitRateLimit)
}

func TestFromViperReadsEnvironment(t *testing.T) {
	t.Setenv("GEMA_APP_PORT", ":9090")
	t.Setenv("GEMA_SNAPSHOT_CACHE_TTL", "1m")
	t.Setenv("GEMA_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, time.Minute, cfg.SnapshotCacheTTL)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestFromViperRejectsInvalidTTL(t *testing.T) {
	t.Setenv("GEMA_SNAPSHOT_CACHE_TTL", "soon")

	_, err := FromViper(viper.New())
	require.Error(t, err)
}

func TestLoadWithPrefersExplicitOverrides(t *testing.T) {
	t.Setenv("GEMA_DATABASE_URL", "postgres://env/db")

	v := viper.New()
	v.Set("database.url", "override.db")

	cfg, err := LoadWith(v)
	require.NoError(t, err)
	require.Equal(t, "override.db", cfg.DatabaseURL)
}
