package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	return v
}

func writeUnitySettings(t *testing.T, content string) string {
	t.Helper()

	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, "ProjectSettings"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, UnitySettingsFile), []byte(content), 0o600))

	return project
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	endpoint, err := cfg.Endpoint()
	require.NoError(t, err)
	require.Equal(t, "ws://localhost:8090/McpUnity", endpoint)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelInfo, level)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("MCP_UNITY_PORT", "9100")
	t.Setenv("MCP_UNITY_REQUEST_TIMEOUT", "45s")
	t.Setenv("MCP_UNITY_LOG_LEVEL", "debug")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, 45*time.Second, cfg.RequestTimeout)

	level, err := cfg.Level()
	require.NoError(t, err)
	require.Equal(t, slog.LevelDebug, level)
}

func TestLoad_UnitySettings(t *testing.T) {
	project := writeUnitySettings(t, `{"Port": 8095, "RequestTimeoutSeconds": 30, "AutoStartServer": true}`)

	t.Run("settings replace defaults", func(t *testing.T) {
		v := newViper()
		v.Set("project_path", project)

		cfg, err := Load(v)
		require.NoError(t, err)
		require.Equal(t, 8095, cfg.Port)
		require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	})

	t.Run("explicit values win over settings", func(t *testing.T) {
		t.Setenv("MCP_UNITY_PORT", "9000")

		v := newViper()
		v.Set("project_path", project)

		cfg, err := Load(v)
		require.NoError(t, err)
		require.Equal(t, 9000, cfg.Port)
		require.Equal(t, 30*time.Second, cfg.RequestTimeout)
	})
}

func TestReadUnitySettings(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		settings, err := ReadUnitySettings(t.TempDir())
		require.NoError(t, err)
		require.Nil(t, settings)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ReadUnitySettings(writeUnitySettings(t, `{"Port":`))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "empty host", mutate: func(c *Config) { c.Host = "" }, want: "host must not be empty"},
		{name: "bad port", mutate: func(c *Config) { c.Port = 70000 }, want: "port 70000 out of range"},
		{name: "zero timeout", mutate: func(c *Config) { c.RequestTimeout = 0 }, want: "request_timeout must be positive"},
		{name: "zero handshake timeout", mutate: func(c *Config) { c.HandshakeTimeout = 0 }, want: "handshake_timeout"},
		{name: "zero sweep", mutate: func(c *Config) { c.SweepInterval = 0 }, want: "sweep_interval"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, want: `invalid log_level "loud"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}

	require.NoError(t, Default().Validate())
}
