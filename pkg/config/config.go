package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/contracts/pkg/logging"
)

// Defaults.
const (
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultPluginTimeout = 10 * time.Second
	DefaultGenerateDiff  = "true"
)

// Sources of configuration values.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
)

// Config is the configuration of the verifier components.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Plugins  PluginsConfig  `yaml:"plugins" json:"plugins"`
	Verifier VerifierConfig `yaml:"verifier" json:"verifier"`

	// Sources records where each value came from, keyed by dotted field
	// name, e.g. "plugins.dir".
	Sources map[string]string `yaml:"-" json:"-"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// PluginsConfig locates plugins and bounds calls to them.
type PluginsConfig struct {
	// Dir is searched for plugin manifests. Empty means the plugin default.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
	// Timeout is a duration such as "5s".
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// VerifierConfig holds verification options.
type VerifierConfig struct {
	// GenerateDiff is "true", "false" or a body size such as "1MB".
	GenerateDiff string `yaml:"generateDiff" json:"generateDiff"`
}

// Default returns the default configuration.
func Default() *Config {
	cfg := &Config{
		Logging:  LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Plugins:  PluginsConfig{Timeout: DefaultPluginTimeout.String()},
		Verifier: VerifierConfig{GenerateDiff: DefaultGenerateDiff},
		Sources:  map[string]string{},
	}
	for _, key := range []string{"logging.level", "logging.format", "plugins.timeout", "verifier.generateDiff"} {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}

// Error is a configuration file error.
type Error struct {
	Path    string
	Line    int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return e.Path + " (line " + strconv.Itoa(e.Line) + "): " + e.Message
	}
	return e.Path + ": " + e.Message
}

// LoadFromFile reads a YAML or JSON file over the defaults. JSON is
// selected by a ".json" extension.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var file Config
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if err := json.Unmarshal(data, &file); err != nil {
			cfgErr := &Error{Path: path, Message: err.Error()}
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				cfgErr.Line = lineOf(data, syntaxErr.Offset)
			}
			return nil, cfgErr
		}
	} else if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}

	cfg := Default()
	cfg.merge(&file, SourceFile)
	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}
	return cfg, nil
}

func lineOf(data []byte, offset int64) int {
	line := 1
	for i := int64(0); i < offset && int(i) < len(data); i++ {
		if data[i] == '\n' {
			line++
		}
	}
	return line
}

// merge copies the non-empty values of src.
func (c *Config) merge(src *Config, source string) {
	set := func(key string, dst *string, v string) {
		if v != "" {
			*dst = v
			c.Sources[key] = source
		}
	}
	set("logging.level", &c.Logging.Level, src.Logging.Level)
	set("logging.format", &c.Logging.Format, src.Logging.Format)
	set("plugins.dir", &c.Plugins.Dir, src.Plugins.Dir)
	set("plugins.timeout", &c.Plugins.Timeout, src.Plugins.Timeout)
	set("verifier.generateDiff", &c.Verifier.GenerateDiff, src.Verifier.GenerateDiff)
}

// Environment variables read by ApplyEnv.
const (
	EnvLogLevel      = "CONTRACTS_LOG_LEVEL"
	EnvLogFormat     = "CONTRACTS_LOG_FORMAT"
	EnvPluginDir     = "CONTRACTS_PLUGIN_DIR"
	EnvPluginTimeout = "CONTRACTS_PLUGIN_TIMEOUT"
	EnvGenerateDiff  = "CONTRACTS_GENERATE_DIFF"
)

// ApplyEnv overrides values from CONTRACTS_* environment variables.
func (c *Config) ApplyEnv() {
	if c.Sources == nil {
		c.Sources = map[string]string{}
	}
	c.merge(&Config{
		Logging:  LoggingConfig{Level: os.Getenv(EnvLogLevel), Format: os.Getenv(EnvLogFormat)},
		Plugins:  PluginsConfig{Dir: os.Getenv(EnvPluginDir), Timeout: os.Getenv(EnvPluginTimeout)},
		Verifier: VerifierConfig{GenerateDiff: os.Getenv(EnvGenerateDiff)},
	}, SourceEnv)
}

// Validate checks the values that are parsed later.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn or error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not text or json", c.Logging.Format))
	}
	if c.Plugins.Timeout != "" {
		if d, err := time.ParseDuration(c.Plugins.Timeout); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("plugins.timeout %q is not a positive duration", c.Plugins.Timeout))
		}
	}
	switch v := strings.ToLower(strings.TrimSpace(c.Verifier.GenerateDiff)); v {
	case "", "true", "false":
	default:
		if _, err := humanize.ParseBytes(v); err != nil {
			errs = append(errs, fmt.Errorf("verifier.generateDiff %q is not a boolean or a size", c.Verifier.GenerateDiff))
		}
	}
	return errors.Join(errs...)
}

// PluginTimeout returns the plugin call timeout.
func (c *Config) PluginTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Plugins.Timeout); err == nil && d > 0 {
		return d
	}
	return DefaultPluginTimeout
}

// Logger builds the logger described by the logging section.
func (c *Config) Logger() *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(strings.ToLower(c.Logging.Level)),
		Format: logging.ParseFormat(strings.ToLower(c.Logging.Format)),
	})
}
