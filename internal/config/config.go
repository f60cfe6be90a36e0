// Package config loads, validates and saves the shotd configuration.
//
// Configuration lives in config.toml in the data directory. Missing files
// and missing keys fall back to [DefaultConfig]. Older schema versions are
// migrated in place after a .bak copy is written.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/shotd/internal/atomicfile"
	"tools.zach/dev/shotd/internal/logger"
	"tools.zach/dev/shotd/internal/migrate"
	"tools.zach/dev/shotd/internal/paths"
)

// Action kinds.
const (
	KindLog    = "log"
	KindMove   = "move"
	KindExec   = "exec"
	KindUpload = "upload"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config is the top-level configuration.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int          `toml:"version"`
	Watch   WatchConfig  `toml:"watch"`
	Action  ActionConfig `toml:"action"`
	Log     LogConfig    `toml:"log"`
	Update  UpdateConfig `toml:"update"`
}

// WatchConfig selects the directory and which files count as screenshots.
type WatchConfig struct {
	// Dir is the watched directory. Empty means the platform default.
	Dir string `toml:"dir"`
	// DebounceMS is how long a new file must stay quiet before it is reported.
	DebounceMS int `toml:"debounce_ms"`
	// Include lists base-name globs a screenshot must match. Empty accepts all.
	Include []string `toml:"include"`
	// Ignore lists base-name globs that are never reported.
	Ignore []string `toml:"ignore"`
	// ForcePolling scans the directory instead of using OS notifications.
	ForcePolling bool `toml:"force_polling"`
	// PollIntervalMS is the scan interval when polling.
	PollIntervalMS int `toml:"poll_interval_ms"`
}

// ActionConfig selects what happens to each screenshot.
type ActionConfig struct {
	// Kind is one of log, move, exec or upload.
	Kind   string       `toml:"kind"`
	Move   MoveConfig   `toml:"move"`
	Exec   ExecConfig   `toml:"exec"`
	Upload UploadConfig `toml:"upload"`
}

// MoveConfig configures the move action.
type MoveConfig struct {
	Dir         string `toml:"dir"`
	DateSubdirs bool   `toml:"date_subdirs"`
}

// ExecConfig configures the exec action.
type ExecConfig struct {
	// Command is the program and its arguments; the screenshot path is appended.
	Command        []string `toml:"command"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// UploadConfig configures the upload action.
type UploadConfig struct {
	URL            string            `toml:"url"`
	Field          string            `toml:"field"`
	Headers        map[string]string `toml:"headers,omitempty"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	RetryMax       int               `toml:"retry_max"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the log file size that triggers rotation.
	MaxSizeMB int `toml:"max_size_mb"`
	// Console is auto, always or never.
	Console string `toml:"console"`
}

// UpdateConfig controls the startup update check.
type UpdateConfig struct {
	Check bool `toml:"check"`
}

// ///////////////////////////////////////////////
// Defaults
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Watch: WatchConfig{
			DebounceMS:     500,
			Include:        []string{"*.png", "*.jpg", "*.jpeg", "*.webp", "*.gif", "*.heic"},
			Ignore:         []string{".*", "*.tmp", "*.part", "*.crdownload", "*~"},
			PollIntervalMS: 1000,
		},
		Action: ActionConfig{
			Kind: KindLog,
			Exec: ExecConfig{
				TimeoutSeconds: 30,
			},
			Upload: UploadConfig{
				Field:          "file",
				TimeoutSeconds: 30,
				RetryMax:       2,
			},
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
			Console:   string(logger.ConsoleAuto),
		},
		Update: UpdateConfig{
			Check: true,
		},
	}
}

// ExampleConfig returns the Config written to config.default.toml. It shows
// the per-action sections filled in so users can see every key.
func ExampleConfig() *Config {
	c := DefaultConfig()
	c.Watch.Dir = "~/Pictures/Screenshots"
	c.Action.Move.Dir = "~/Pictures/Screenshots/archive"
	c.Action.Exec.Command = []string{"notify-send", "New screenshot"}
	c.Action.Upload.URL = "https://example.com/upload"
	return c
}

// DefaultWatchDir returns where the OS saves screenshots by default.
func DefaultWatchDir(home string) string {
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Desktop")
	}
	return filepath.Join(home, "Pictures", "Screenshots")
}

// ///////////////////////////////////////////////
// Accessors
// ///////////////////////////////////////////////

func (w WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMS) * time.Millisecond
}

func (e ExecConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

func (u UploadConfig) Timeout() time.Duration {
	return time.Duration(u.TimeoutSeconds) * time.Second
}

// ResolveWatchDir returns the watched directory with ~ expanded, or the
// platform default when unset.
func (c *Config) ResolveWatchDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	if c.Watch.Dir == "" {
		return DefaultWatchDir(home), nil
	}
	return ExpandHome(c.Watch.Dir, home), nil
}

// ExpandHome replaces a leading ~ in p with home.
func ExpandHome(p, home string) string {
	switch {
	case p == "~":
		return home
	case strings.HasPrefix(p, "~/"), strings.HasPrefix(p, `~\`):
		return filepath.Join(home, p[2:])
	default:
		return p
	}
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing, zero or unparsable.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil || v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads dataDir/config.toml. A missing file yields DefaultConfig.
func Load(dataDir string) (*Config, error) {
	dd := paths.DataDir{Root: dataDir}
	path := dd.Config()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	migrated := migrate.Config.NeedsMigration(version)
	if migrated {
		if err := os.WriteFile(dd.ConfigBackup(), data, 0o644); err != nil {
			slog.Warn("failed to write config backup", "error", err)
		}
		data, _, err = migrate.Config.Run(data, version)
		if err != nil {
			return nil, fmt.Errorf("migrate config: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if migrated {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}
	return cfg, nil
}

// Save writes the config to path as TOML, atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// Validate checks enums, ranges, glob syntax and the settings the selected
// action kind needs.
func (c *Config) Validate() error {
	if c.Watch.DebounceMS <= 0 {
		return fmt.Errorf("watch.debounce_ms must be > 0, got %d", c.Watch.DebounceMS)
	}
	if c.Watch.PollIntervalMS <= 0 {
		return fmt.Errorf("watch.poll_interval_ms must be > 0, got %d", c.Watch.PollIntervalMS)
	}
	for _, group := range []struct {
		key      string
		patterns []string
	}{
		{"watch.include", c.Watch.Include},
		{"watch.ignore", c.Watch.Ignore},
	} {
		for _, p := range group.patterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("invalid %s pattern %q", group.key, p)
			}
		}
	}

	if err := c.Action.validate(); err != nil {
		return err
	}

	if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}
	if !logger.Console(c.Log.Console).Valid() {
		return fmt.Errorf("invalid log.console %q: must be auto, always, or never", c.Log.Console)
	}
	return nil
}

func (a ActionConfig) validate() error {
	switch a.Kind {
	case KindLog:
	case KindMove:
		if strings.TrimSpace(a.Move.Dir) == "" {
			return errors.New("action.move.dir is required for kind \"move\"")
		}
	case KindExec:
		if len(a.Exec.Command) == 0 || a.Exec.Command[0] == "" {
			return errors.New("action.exec.command is required for kind \"exec\"")
		}
	case KindUpload:
		u, err := url.Parse(a.Upload.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("action.upload.url %q must be an http or https URL", a.Upload.URL)
		}
	default:
		return fmt.Errorf("invalid action.kind %q: must be log, move, exec, or upload", a.Kind)
	}

	if a.Exec.TimeoutSeconds < 0 {
		return fmt.Errorf("action.exec.timeout_seconds must be >= 0, got %d", a.Exec.TimeoutSeconds)
	}
	if a.Upload.TimeoutSeconds < 0 {
		return fmt.Errorf("action.upload.timeout_seconds must be >= 0, got %d", a.Upload.TimeoutSeconds)
	}
	if a.Upload.RetryMax < 0 {
		return fmt.Errorf("action.upload.retry_max must be >= 0, got %d", a.Upload.RetryMax)
	}
	return nil
}
