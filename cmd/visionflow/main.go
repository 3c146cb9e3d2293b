// Package main implements the visionflow entry point. It loads the
// configuration, registers every module kind, restores the last workspace
// and saves it again when the process is interrupted.
package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/c360/visionflow/config"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "visionflow"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run(args []string) error {
	cliCfg, err := parseFlags(args, os.Stderr)
	if stderrors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		return nil
	}

	cfg, err := loadConfiguration(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stdout)
	slog.SetDefault(logger)

	if cliCfg.Validate {
		logger.Info("Configuration is valid", "config_path", cliCfg.ConfigPath)
		return nil
	}
	if cliCfg.WriteConfigPath != "" {
		if err := cfg.SaveToFile(cliCfg.WriteConfigPath); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		logger.Info("Configuration written", "path", cliCfg.WriteConfigPath)
		return nil
	}

	logger.Info("Starting visionflow",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"workspace", cfg.Workspace.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if cliCfg.ListKinds {
		err := printKinds(os.Stdout, a.reg)
		return stderrors.Join(err, a.shutdown(ctx, cliCfg.ShutdownTimeout))
	}

	return runWithSignalHandling(ctx, a, cliCfg)
}

// loadConfiguration layers the config file over the defaults, applies
// environment and flag overrides and validates the result.
func loadConfiguration(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cliCfg.WorkspacePath != "" {
		cfg.Workspace.Path = cliCfg.WorkspacePath
	}
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runWithSignalHandling(ctx context.Context, a *app, cliCfg *CLIConfig) error {
	if err := a.start(); err != nil {
		return stderrors.Join(err, a.shutdown(ctx, cliCfg.ShutdownTimeout))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	a.logger.Info("Ready", "modules", a.reg.Len(), "kinds", len(a.reg.KindIDs()))

	sig := <-sigCh
	a.logger.Info("Received shutdown signal", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
	defer cancel()
	if err := a.shutdown(shutdownCtx, cliCfg.ShutdownTimeout); err != nil {
		a.logger.Error("Shutdown completed with errors", "error", err)
		return err
	}
	a.logger.Info("Shutdown complete")
	return nil
}
