package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"
)

// CLIConfig holds command-line configuration. Empty strings leave the value
// from the configuration file in place.
type CLIConfig struct {
	ConfigPath      string
	WorkspacePath   string
	WriteConfigPath string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
	ListKinds       bool
}

func parseFlags(args []string, output io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.ConfigPath, "config", getEnv("VISIONFLOW_CONFIG", ""),
		"Path to configuration file (env: VISIONFLOW_CONFIG)")
	fs.StringVar(&cfg.ConfigPath, "c", getEnv("VISIONFLOW_CONFIG", ""),
		"Path to configuration file (env: VISIONFLOW_CONFIG)")
	fs.StringVar(&cfg.WorkspacePath, "workspace", "",
		"Workspace file loaded at start and saved on exit (env: VISIONFLOW_WORKSPACE)")
	fs.StringVar(&cfg.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error (env: VISIONFLOW_LOG_LEVEL)")
	fs.StringVar(&cfg.LogFormat, "log-format", "",
		"Log format: json, text (env: VISIONFLOW_LOG_FORMAT)")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("VISIONFLOW_SHUTDOWN_TIMEOUT", 10*time.Second),
		"Graceful shutdown timeout (env: VISIONFLOW_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	fs.BoolVar(&cfg.ListKinds, "list-kinds", false, "Print the module catalog and exit")
	fs.StringVar(&cfg.WriteConfigPath, "write-config", "",
		"Write the effective configuration (.json, .yaml or .yml) and exit")

	fs.Usage = func() { printDetailedHelp(fs, output) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowHelp {
		fs.Usage()
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}
	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}
	return nil
}

func printDetailedHelp(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, `%s - dataflow engine for node-based vision and instrumentation workspaces

Usage: %s [options]

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Load a workspace and save it again on exit
  %s --workspace=./session.json

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Show the available module kinds
  %s --list-kinds

  # Write the effective configuration, env and flags applied
  %s --log-level=debug --write-config=./visionflow.yaml

  # Validate configuration only
  %s --config=/etc/visionflow/config.yaml --validate

Version: %s
Build: %s
`, appName, appName, appName, appName, appName, Version, BuildTime)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
