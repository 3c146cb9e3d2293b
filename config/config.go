package config

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/c360/visionflow/errors"
	"github.com/c360/visionflow/pkg/buffer"
	"github.com/c360/visionflow/pkg/worker"
)

// Config represents the complete application configuration
type Config struct {
	Version   string          `json:"version" yaml:"version"` // Semantic version of the config file
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Workspace WorkspaceConfig `json:"workspace" yaml:"workspace"`
	Worker    WorkerConfig    `json:"worker" yaml:"worker"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Modules   ModulesConfig   `json:"modules" yaml:"modules"`
}

// LoggingConfig selects the root logger
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // json or text
}

// WorkspaceConfig locates the workspace document and the snapshot store
type WorkspaceConfig struct {
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`           // Loaded at start
	Autosave bool   `json:"autosave" yaml:"autosave"`                       // Export to Path at shutdown
	StoreDir string `json:"store_dir,omitempty" yaml:"store_dir,omitempty"` // Empty keeps snapshots in memory
}

// WorkerConfig holds defaults for worker-backed modules
type WorkerConfig struct {
	QueueSize    int           `json:"queue_size" yaml:"queue_size"`
	Overflow     string        `json:"overflow" yaml:"overflow"` // drop_new, drop_oldest or block
	BlockTimeout time.Duration `json:"block_timeout" yaml:"block_timeout"`
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
	StopTimeout  time.Duration `json:"stop_timeout" yaml:"stop_timeout"`
	Isolated     bool          `json:"isolated" yaml:"isolated"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// ModulesConfig selects the registered kinds
type ModulesConfig struct {
	Disabled []string `json:"disabled,omitempty" yaml:"disabled,omitempty"` // Kind groups, e.g. "stream"
}

// CurrentVersion is the newest config file version this build reads
const CurrentVersion = "1.0.0"

// Defaults returns the configuration every Loader starts from
func Defaults() *Config {
	wd := worker.DefaultConfig()
	return &Config{
		Version: CurrentVersion,
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Worker: WorkerConfig{
			QueueSize:    wd.QueueSize,
			Overflow:     wd.Overflow.String(),
			BlockTimeout: wd.BlockTimeout,
			PollInterval: wd.PollInterval,
			StopTimeout:  wd.StopTimeout,
		},
		Metrics: MetricsConfig{Port: 9090, Path: "/metrics"},
	}
}

// ToWorker converts the section to a worker configuration
func (w WorkerConfig) ToWorker() (worker.Config, error) {
	policy, err := buffer.ParsePolicy(w.Overflow)
	if err != nil {
		return worker.Config{}, errors.WrapInvalid(err, "Config", "ToWorker", "overflow policy")
	}
	return worker.Config{
		QueueSize:    w.QueueSize,
		Overflow:     policy,
		BlockTimeout: w.BlockTimeout,
		PollInterval: w.PollInterval,
		StopTimeout:  w.StopTimeout,
		Isolated:     w.Isolated,
	}, nil
}

// Validate checks the configuration, joining every problem found
func (c *Config) Validate() error {
	var errs []error
	if c.Version != "" {
		switch cmp, err := CompareVersions(c.Version, CurrentVersion); {
		case err != nil:
			errs = append(errs, fmt.Errorf("version: %w", err))
		case cmp > 0:
			errs = append(errs, fmt.Errorf("version %s is newer than supported %s", c.Version, CurrentVersion))
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level))
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		errs = append(errs, fmt.Errorf("logging.format %q must be json or text", c.Logging.Format))
	}

	if c.Workspace.Autosave && c.Workspace.Path == "" {
		errs = append(errs, stderrors.New("workspace.path is required when autosave is enabled"))
	}

	if c.Worker.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("worker.queue_size must be positive, got %d", c.Worker.QueueSize))
	}
	if _, err := buffer.ParsePolicy(c.Worker.Overflow); err != nil {
		errs = append(errs, fmt.Errorf("worker.overflow: %w", err))
	}
	for name, d := range map[string]time.Duration{
		"block_timeout": c.Worker.BlockTimeout,
		"poll_interval": c.Worker.PollInterval,
		"stop_timeout":  c.Worker.StopTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("worker.%s must be positive, got %s", name, d))
		}
	}

	if c.Metrics.Enabled {
		if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
			errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			errs = append(errs, fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path))
		}
	}

	for i, group := range c.Modules.Disabled {
		if strings.TrimSpace(group) == "" {
			errs = append(errs, fmt.Errorf("modules.disabled[%d] is empty", i))
		}
	}

	if err := stderrors.Join(errs...); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err), "Config", "Validate", "configuration check")
	}
	return nil
}

// CompareVersions compares two semver version strings. It returns -1, 0 or 1
// as v1 is older than, equal to or newer than v2.
func CompareVersions(v1, v2 string) (int, error) {
	major1, minor1, patch1, err := parseSemVer(v1)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v1, err)
	}
	major2, minor2, patch2, err := parseSemVer(v2)
	if err != nil {
		return 0, fmt.Errorf("invalid version '%s': %w", v2, err)
	}

	for _, pair := range [][2]int{{major1, major2}, {minor1, minor2}, {patch1, patch2}} {
		switch {
		case pair[0] > pair[1]:
			return 1, nil
		case pair[0] < pair[1]:
			return -1, nil
		}
	}
	return 0, nil
}

// parseSemVer parses "major.minor.patch" with an optional v prefix
func parseSemVer(version string) (int, int, int, error) {
	if version == "" {
		return 0, 0, 0, stderrors.New("version cannot be empty")
	}
	parts := strings.Split(strings.TrimPrefix(version, "v"), ".")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("version must be in format 'major.minor.patch', got '%s'", version)
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, 0, 0, fmt.Errorf("invalid version component '%s'", part)
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2], nil
}
