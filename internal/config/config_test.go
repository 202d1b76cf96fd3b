package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":3000", cfg.Addr)
	require.Equal(t, "forum.db", cfg.DBPath)
	require.Equal(t, 336*time.Hour, cfg.TokenTTL)
	require.Equal(t, 50, cfg.MaxConns)
	require.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, 5*time.Second, cfg.ReadHeaderTimeout)
	require.True(t, cfg.UsingDefaultSecret())
	require.Empty(t, cfg.CORSOrigin)
	require.Equal(t, "@every 1m", cfg.StatsSchedule)
	require.Equal(t, "@daily", cfg.OptimizeSchedule)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forum.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":4000"
db: "from-file.db"
token_ttl: 1h
log_format: json
`), 0o600))

	t.Setenv("FORUM_DB", "from-env.db")
	t.Setenv("FORUM_SECRET", "s3cret")
	t.Setenv("FORUM_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":4000", cfg.Addr)
	require.Equal(t, "from-env.db", cfg.DBPath)
	require.Equal(t, time.Hour, cfg.TokenTTL)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	require.False(t, cfg.UsingDefaultSecret())

	_, ok := cfg.Logger().Formatter.(*logrus.JSONFormatter)
	require.True(t, ok)
}

func TestPortFallback(t *testing.T) {
	t.Setenv("PORT", "8081")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8081", cfg.Addr)
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"FORUM_LOG_LEVEL":  "loud",
		"FORUM_MAX_CONNS":  "0",
		"FORUM_TOKEN_TTL":  "-1h",
		"FORUM_LOG_FORMAT": "xml",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load("")
			require.Error(t, err)
		})
	}
}

func TestMissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
