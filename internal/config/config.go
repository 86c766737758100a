// pattern: Imperative Shell

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "gasview"

// Project sources.
const (
	SourceClasp = "clasp"
	SourceDrive = "drive"
)

// ErrClaspNotFound is returned when no clasp executable can be located.
var ErrClaspNotFound = errors.New("clasp is not installed globally (see https://github.com/google/clasp)")

type Config struct {
	Theme            string        `yaml:"theme"`
	LogLevel         string        `yaml:"log_level"`
	ClaspPath        string        `yaml:"clasp_path"`
	ClasprcPath      string        `yaml:"clasprc_path"`
	ProjectSource    string        `yaml:"project_source"`
	DownloadDir      string        `yaml:"download_dir"`
	Editor           string        `yaml:"editor"`
	PageSize         int           `yaml:"page_size"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	WatchCredentials bool          `yaml:"watch_credentials"`
}

// LookPathFunc is the function signature for looking up executables.
type LookPathFunc func(name string) (string, error)

func DefaultConfig() Config {
	return Config{
		Theme:            "mocha",
		LogLevel:         "info",
		ProjectSource:    SourceClasp,
		Editor:           "code",
		PageSize:         50,
		RequestTimeout:   30 * time.Second,
		WatchCredentials: true,
	}
}

func Load() (Config, error) {
	return LoadFrom(getConfigPath())
}

// LoadFromDir loads config.yaml from the given directory.
func LoadFromDir(dir string) (Config, error) {
	return LoadFrom(filepath.Join(dir, "config.yaml"))
}

func LoadFrom(configPath string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), err
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Theme == "" {
		c.Theme = d.Theme
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.ProjectSource == "" {
		c.ProjectSource = d.ProjectSource
	}
	if c.PageSize == 0 {
		c.PageSize = d.PageSize
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = d.RequestTimeout
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Theme {
	case "latte", "frappe", "macchiato", "mocha":
	default:
		return fmt.Errorf("unknown theme %q (want latte, frappe, macchiato or mocha)", c.Theme)
	}
	switch c.ProjectSource {
	case SourceClasp, SourceDrive:
	default:
		return fmt.Errorf("unknown project_source %q (want %q or %q)", c.ProjectSource, SourceClasp, SourceDrive)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	return nil
}

// ClaspExecutable returns the configured clasp path or looks it up on PATH.
func (c *Config) ClaspExecutable() (string, error) {
	return c.ClaspExecutableWith(exec.LookPath)
}

// ClaspExecutableWith resolves clasp using the provided lookup function.
func (c *Config) ClaspExecutableWith(lookPath LookPathFunc) (string, error) {
	name := "clasp"
	if c.ClaspPath != "" {
		name = ExpandHome(c.ClaspPath)
	}
	path, err := lookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClaspNotFound, err)
	}
	return path, nil
}

// ResolveClasprcPath returns the credentials file clasp writes on login.
func (c *Config) ResolveClasprcPath() string {
	if c.ClasprcPath != "" {
		return ExpandHome(c.ClasprcPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".clasprc.json"
	}
	return filepath.Join(home, ".clasprc.json")
}

// ResolveDownloadDir returns the default clone destination.
func (c *Config) ResolveDownloadDir() string {
	if c.DownloadDir != "" {
		return ExpandHome(c.DownloadDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// DefaultDir returns the default config/data directory.
func DefaultDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appName)
	}

	return filepath.Join(home, ".config", appName)
}

func getConfigPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}
