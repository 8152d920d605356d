// Package config loads and validates the optional .sprinter YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the project configuration file.
const FileName = ".sprinter"

// Default values used when the corresponding field is unset.
const (
	DefaultScriptsDir = ".cursor/rules/scripts"
	DefaultScript     = "run_sprint.sh"
	DefaultModel      = "llama3:latest"
	DefaultArtifact   = "last_sprint_output.txt"
	DefaultQueueFile  = "task_queue.txt"
	DefaultMaxOutput  = 3 << 20 // 3 MiB
	DefaultCacheSize  = 5
)

// History backends.
const (
	HistoryJSON   = "json"
	HistorySQLite = "sqlite"
)

// Output modes.
const (
	OutputStream   = "stream"
	OutputBuffered = "buffered"
)

// Config holds the parsed .sprinter configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int           `yaml:"version"`
	RawScriptDir string        `yaml:"scripts_dir"` // relative to the project root
	RawScript    string        `yaml:"script"`
	RawModel     string        `yaml:"model"`
	RawArtifact  string        `yaml:"artifact"`
	RawOutput    string        `yaml:"output"`  // stream or buffered
	RawTimeout   string        `yaml:"timeout"` // e.g. "10m"; empty means no timeout
	RawMaxOutput int           `yaml:"max_output"`
	Queue        QueueConfig   `yaml:"queue"`
	History      HistoryConfig `yaml:"history"`
}

// QueueConfig controls how task queue files are processed.
type QueueConfig struct {
	File          string `yaml:"file"`
	StopOnFailure bool   `yaml:"stop_on_failure"`
}

// HistoryConfig controls where run records are kept.
type HistoryConfig struct {
	Dir     string `yaml:"dir"`     // empty: $XDG_DATA_HOME/sprinter/runs
	Backend string `yaml:"backend"` // json (one file per run) or sqlite
	Cache   int    `yaml:"cache"`   // in-memory LRU capacity
}

// ScriptsDir returns the configured scripts directory resolved against root.
func (c *Config) ScriptsDir(root string) string {
	dir := c.RawScriptDir
	if dir == "" {
		dir = DefaultScriptsDir
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(root, dir)
}

// Script returns the script file name or the default.
func (c *Config) Script() string {
	if c.RawScript != "" {
		return c.RawScript
	}
	return DefaultScript
}

// Model returns the default model token.
func (c *Config) Model() string {
	if c.RawModel != "" {
		return c.RawModel
	}
	return DefaultModel
}

// Artifact returns the output artifact file name.
func (c *Config) Artifact() string {
	if c.RawArtifact != "" {
		return c.RawArtifact
	}
	return DefaultArtifact
}

// Output returns the output mode, stream unless configured otherwise.
func (c *Config) Output() string {
	if c.RawOutput != "" {
		return c.RawOutput
	}
	return OutputStream
}

// Timeout returns the configured timeout. Zero means none.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the per-stream capture limit.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// QueueFile returns the queue file path resolved against root.
func (c *Config) QueueFile(root string) string {
	f := c.Queue.File
	if f == "" {
		f = DefaultQueueFile
	}
	if filepath.IsAbs(f) {
		return f
	}
	return filepath.Join(root, f)
}

// HistoryDir returns the configured run history directory resolved against
// root, or "" when unset.
func (c *Config) HistoryDir(root string) string {
	d := c.History.Dir
	if d == "" || filepath.IsAbs(d) {
		return d
	}
	return filepath.Join(root, d)
}

// HistoryBackend returns the run store backend, json unless configured.
func (c *Config) HistoryBackend() string {
	if c.History.Backend != "" {
		return c.History.Backend
	}
	return HistoryJSON
}

// CacheSize returns the history LRU capacity.
func (c *Config) CacheSize() int {
	if c.History.Cache > 0 {
		return c.History.Cache
	}
	return DefaultCacheSize
}

// Validate reports values that cannot be interpreted.
func (c *Config) Validate() error {
	switch c.Output() {
	case OutputStream, OutputBuffered:
	default:
		return fmt.Errorf("output: unknown mode %q (want %q or %q)", c.RawOutput, OutputStream, OutputBuffered)
	}
	switch c.HistoryBackend() {
	case HistoryJSON, HistorySQLite:
	default:
		return fmt.Errorf("history.backend: unknown backend %q (want %q or %q)", c.History.Backend, HistoryJSON, HistorySQLite)
	}
	if c.RawTimeout != "" {
		if _, err := time.ParseDuration(c.RawTimeout); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
	}
	if c.RawMaxOutput < 0 {
		return fmt.Errorf("max_output: must not be negative")
	}
	return nil
}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config      *Config
	ProjectRoot string // directory holding .sprinter or .cursor; falls back to workspace
}

// Load reads the .sprinter file from the project root.
// The project root is discovered by walking upward from workspace looking
// for a .sprinter file or a .cursor directory. If no .sprinter file exists,
// a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findProjectRoot(workspace)
	if err != nil {
		root = workspace
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, ProjectRoot: root}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, ProjectRoot: root}, nil
}

// findProjectRoot walks upward from dir looking for a project marker.
func findProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return dir, nil
		}
		if fi, err := os.Stat(filepath.Join(dir, ".cursor")); err == nil && fi.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project root not found")
		}
		dir = parent
	}
}
