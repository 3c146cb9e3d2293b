package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/c360/visionflow/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "VISIONFLOW"

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{envPrefix: EnvPrefix}
}

// AddLayer adds a configuration file layer. Later layers win.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load merges defaults, every layer and the environment
func (l *Loader) Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range l.layers {
		layer, err := l.loadLayer(path)
		if err != nil {
			return nil, errors.Wrap(err, "Loader", "Load", "layer "+path)
		}
		if err := mergo.Merge(cfg, layer, mergo.WithOverride); err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", "merge "+path)
		}
	}

	if err := l.applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// loadLayer decodes one file. JSON is decoded by the YAML decoder so both
// formats accept duration strings.
func (l *Loader) loadLayer(path string) (*Config, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "loadLayer", "read")
	}
	if isJSON(path) {
		if err := validateJSONDepth(data); err != nil {
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrParsingFailed, err), "Loader", "loadLayer", "structure check")
		}
	}

	var layer Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&layer); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %w", errors.ErrParsingFailed, err), "Loader", "loadLayer", "decode")
	}
	return &layer, nil
}

// applyEnvOverrides applies VISIONFLOW_* variables
func (l *Loader) applyEnvOverrides(cfg *Config) error {
	var errs []error
	get := func(name string) (string, bool) {
		key := l.envPrefix + "_" + name
		val := os.Getenv(key)
		if val == "" {
			return "", false
		}
		if err := validateEnvVar(key, val); err != nil {
			errs = append(errs, err)
			return "", false
		}
		return val, true
	}

	if val, ok := get("LOG_LEVEL"); ok {
		cfg.Logging.Level = strings.ToLower(val)
	}
	if val, ok := get("LOG_FORMAT"); ok {
		cfg.Logging.Format = strings.ToLower(val)
	}
	if val, ok := get("WORKSPACE"); ok {
		cfg.Workspace.Path = val
	}
	if val, ok := get("STORE_DIR"); ok {
		cfg.Workspace.StoreDir = val
	}
	if val, ok := get("WORKER_OVERFLOW"); ok {
		cfg.Worker.Overflow = val
	}
	if val, ok := get("METRICS_PORT"); ok {
		port, err := strconv.Atoi(val)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s_METRICS_PORT: %w", l.envPrefix, err))
		} else {
			cfg.Metrics.Enabled = true
			cfg.Metrics.Port = port
		}
	}
	if val, ok := get("DISABLED_MODULES"); ok {
		cfg.Modules.Disabled = nil
		for _, group := range strings.Split(val, ",") {
			if group = strings.TrimSpace(group); group != "" {
				cfg.Modules.Disabled = append(cfg.Modules.Disabled, group)
			}
		}
	}

	if err := stderrors.Join(errs...); err != nil {
		return errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "environment")
	}
	return nil
}

// SaveToFile writes the configuration as JSON or YAML, chosen by extension.
// Both forms load back through a Loader.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "Config", "SaveToFile", "encode")
	}
	if isJSON(path) {
		// round trip through YAML so durations are written as strings
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return errors.Wrap(err, "Config", "SaveToFile", "encode")
		}
		if data, err = json.MarshalIndent(doc, "", "  "); err != nil {
			return errors.Wrap(err, "Config", "SaveToFile", "encode")
		}
	}
	return safeWriteFile(path, data)
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
