// Package cmd implements the mcp-unity command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dsarno/mcp-unity/internal/config"
)

// runFunc serves MCP with the loaded configuration, logging to stderr.
type runFunc func(ctx context.Context, cfg *config.Config, stderr io.Writer) error

// NewRootCommand returns the mcp-unity command, serving MCP over stdio.
func NewRootCommand() *cobra.Command {
	return newRootCommand(serveStdio)
}

func newRootCommand(run runFunc) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "mcp-unity",
		Short: "MCP server for the Unity editor",
		Long: `mcp-unity speaks the Model Context Protocol over stdio and forwards
every tool call and resource read to the Unity editor through the
MCP Unity plugin's WebSocket endpoint.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringP("config", "c", "", "config file (YAML)")
	flags.String("host", "", "Unity editor host (default localhost)")
	flags.Int("port", 0, "Unity editor WebSocket port (default 8090)")
	flags.String("path", "", "Unity editor WebSocket path (default /McpUnity)")
	flags.Duration("request-timeout", 0, "default timeout of a request to Unity (default 10s)")
	flags.Duration("handshake-timeout", 0, "timeout of the connection handshake (default 10s)")
	flags.Duration("sweep-interval", 0, "how often timed out requests are detected (default 100ms)")
	flags.String("log-level", "", "log level: debug, info, warn or error (default info)")
	flags.String("project-path", "", "Unity project root, to read ProjectSettings/McpUnitySettings.json")

	for key, flag := range map[string]string{
		"config":            "config",
		"host":              "host",
		"port":              "port",
		"path":              "path",
		"request_timeout":   "request-timeout",
		"handshake_timeout": "handshake-timeout",
		"sweep_interval":    "sweep-interval",
		"log_level":         "log-level",
		"project_path":      "project-path",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	config.SetDefaults(v)
	config.BindEnv(v)

	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Execute runs the root command with ctx and reports a failure on stderr.
func Execute(ctx context.Context) int {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "mcp-unity:", err)

		return 1
	}

	return 0
}
