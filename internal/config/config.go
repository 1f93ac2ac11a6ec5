// Package config provides configuration for the MCP Unity server.
//
// Values are layered with viper, lowest precedence first: built-in defaults,
// the Unity project's ProjectSettings/McpUnitySettings.json, a YAML config
// file, MCP_UNITY_* environment variables, and command-line flags.
package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dsarno/mcp-unity/internal/transport"
)

// EnvPrefix is the prefix of environment variables read by the server,
// e.g. MCP_UNITY_PORT for port.
const EnvPrefix = "MCP_UNITY"

// UnitySettingsFile is the editor plugin's settings file, relative to the
// Unity project root.
var UnitySettingsFile = filepath.Join("ProjectSettings", "McpUnitySettings.json")

// Config holds the server configuration.
type Config struct {
	// Host is the address of the Unity editor.
	Host string `mapstructure:"host"`
	// Port is the WebSocket port of the Unity editor plugin.
	Port int `mapstructure:"port"`
	// Path is the WebSocket path of the Unity editor plugin.
	Path string `mapstructure:"path"`

	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// ProjectPath is the Unity project root, used to find McpUnitySettings.json.
	ProjectPath string `mapstructure:"project_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host:             "localhost",
		Port:             8090,
		Path:             transport.DefaultPath,
		RequestTimeout:   10 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		SweepInterval:    100 * time.Millisecond,
		LogLevel:         "info",
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("host", defaults.Host)
	v.SetDefault("port", defaults.Port)
	v.SetDefault("path", defaults.Path)
	v.SetDefault("request_timeout", defaults.RequestTimeout)
	v.SetDefault("handshake_timeout", defaults.HandshakeTimeout)
	v.SetDefault("sweep_interval", defaults.SweepInterval)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("project_path", defaults.ProjectPath)
}

// BindEnv makes v read MCP_UNITY_* environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// UnitySettings is the subset of McpUnitySettings.json the server uses.
type UnitySettings struct {
	Port                  int `json:"Port"`
	RequestTimeoutSeconds int `json:"RequestTimeoutSeconds"`
}

// ReadUnitySettings reads the editor plugin settings of the project at
// projectPath. A missing file is not an error and yields nil settings.
func ReadUnitySettings(projectPath string) (*UnitySettings, error) {
	path := filepath.Join(projectPath, UnitySettingsFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read unity settings: %w", err)
	}

	var settings UnitySettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return &settings, nil
}

// Load reads the configuration from v and validates it.
//
// Unity project settings, when found, replace the built-in defaults but never
// override a value given in a config file, the environment or a flag.
func Load(v *viper.Viper) (*Config, error) {
	if projectPath := v.GetString("project_path"); projectPath != "" {
		settings, err := ReadUnitySettings(projectPath)
		if err != nil {
			return nil, err
		}

		if settings != nil {
			if settings.Port > 0 {
				v.SetDefault("port", settings.Port)
			}

			if settings.RequestTimeoutSeconds > 0 {
				v.SetDefault("request_timeout", time.Duration(settings.RequestTimeoutSeconds)*time.Second)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	var errs []error

	if c.Host == "" {
		errs = append(errs, stderrors.New("host must not be empty"))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}

	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout))
	}

	if c.HandshakeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("handshake_timeout must be positive, got %s", c.HandshakeTimeout))
	}

	if c.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("sweep_interval must be positive, got %s", c.SweepInterval))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	return stderrors.Join(errs...)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}

	return level, nil
}

// Endpoint returns the WebSocket URL of the Unity editor.
func (c *Config) Endpoint() (string, error) {
	return transport.Endpoint(c.Host, c.Port, c.Path)
}
