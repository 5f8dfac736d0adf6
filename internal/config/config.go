// Package config loads and validates the optional .gitship YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file looked up at the
// repository root.
const FileName = ".gitship"

// Default values for the ship sequence.
const (
	DefaultMessage  = "chore: commit all pending changes\n\nAutomated commit of every pending change{{if .Branch}} on {{.Branch}}{{end}}."
	DefaultRemote   = "origin"
	DefaultRef      = "HEAD"
	DefaultLogCount = 5
	DefaultLogLevel = "warn"
)

// Config holds the parsed .gitship configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int               `yaml:"version"`
	Message      string            `yaml:"message"`      // text/template; .Branch, .Date, .Workspace
	MessageFile  string            `yaml:"message_file"` // relative to the repository root
	Remote       string            `yaml:"remote"`
	Ref          string            `yaml:"ref"`
	LogCount     int               `yaml:"log_count"`
	RawTimeout   string            `yaml:"timeout"`    // e.g. "5m", "30s"; empty means no timeout
	RawMaxOutput int               `yaml:"max_output"` // bytes per stream; unset captures everything
	SkipClean    bool              `yaml:"skip_clean"`
	Author       AuthorConfig      `yaml:"author"`
	Policies     map[string]string `yaml:"policies"` // step name -> abort, warn or ignore
	Log          LogConfig         `yaml:"log"`
}

// AuthorConfig is the identity passed to git commit when the repository
// has none configured.
type AuthorConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	MaxSize    int    `yaml:"max_size"` // megabytes
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
}

// Timeout returns the configured per-command timeout, or zero when commands
// may block until they exit.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured cap on each captured stream, or
// zero when output is captured in full.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return 0
}

// RemoteName returns the push remote, falling back to origin.
func (c *Config) RemoteName() string {
	if c.Remote != "" {
		return c.Remote
	}
	return DefaultRemote
}

// PushRef returns the ref pushed to the remote, falling back to HEAD.
func (c *Config) PushRef() string {
	if c.Ref != "" {
		return c.Ref
	}
	return DefaultRef
}

// LogLines returns the number of commits shown after pushing.
func (c *Config) LogLines() int {
	if c.LogCount > 0 {
		return c.LogCount
	}
	return DefaultLogCount
}

// LogLevel returns the console log level, falling back to warn.
func (c *Config) LogLevel() string {
	if c.Log.Level != "" {
		return strings.ToLower(c.Log.Level)
	}
	return DefaultLogLevel
}

// Validate reports configuration values that cannot be honoured.
func (c *Config) Validate() error {
	if c.RawTimeout != "" {
		if _, err := time.ParseDuration(c.RawTimeout); err != nil {
			return fmt.Errorf("invalid timeout %q: %w", c.RawTimeout, err)
		}
	}
	if c.LogCount < 0 {
		return fmt.Errorf("log_count must not be negative, got %d", c.LogCount)
	}
	for step, p := range c.Policies {
		switch strings.ToLower(p) {
		case "abort", "warn", "ignore":
		default:
			return fmt.Errorf("policy for step %q must be abort, warn or ignore, got %q", step, p)
		}
	}
	return nil
}

// ReadMessage returns the commit message template: the contents of
// MessageFile when set, otherwise Message, otherwise the default.
// A relative MessageFile is resolved against root.
func (c *Config) ReadMessage(root string) (string, error) {
	if c.MessageFile != "" {
		path := c.MessageFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading message file: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
	if c.Message != "" {
		return c.Message, nil
	}
	return DefaultMessage, nil
}

// LoadResult holds the parsed config and the discovered repository root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory containing .git; falls back to workspace
}

// Load reads the .gitship file from the repository root.
// The repository root is discovered by walking upward from workspace
// looking for .git. If no .gitship file exists, a default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(workspace)
	if err != nil {
		// No .git found; use workspace as root.
		root = workspace
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, RepoRoot: root}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", FileName, err)
	}
	return &LoadResult{Config: cfg, RepoRoot: root}, nil
}

// findRepoRoot walks upward from dir looking for a directory containing .git.
func findRepoRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf(".git not found")
		}
		dir = parent
	}
}
