package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".magharvest"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the YAML configuration file shape. Every field is optional;
// zero values leave the corresponding Config field untouched so that file
// settings layer between defaults and CLI flags.
type File struct {
	// Proxy is the global outbound proxy URL.
	Proxy string `yaml:"proxy"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent"`

	// CrawlDelay overrides the inter-topic delay, e.g. "500ms".
	// Stored as a string because YAML has no native duration type.
	CrawlDelay string `yaml:"crawl_delay"`

	// PollInterval overrides the scheduler cadence, e.g. "1m".
	PollInterval string `yaml:"poll_interval"`

	// MaxConcurrentRuns overrides the in-flight run cap.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`

	// DataDir overrides the data directory.
	DataDir string `yaml:"data_dir"`
}

// Apply copies the file's set fields onto cfg. Malformed durations are
// reported rather than silently ignored.
func (f *File) Apply(cfg *Config) error {
	if f.Proxy != "" {
		cfg.ProxyURL = f.Proxy
	}
	if f.UserAgent != "" {
		cfg.UserAgent = f.UserAgent
	}
	if f.CrawlDelay != "" {
		d, err := time.ParseDuration(f.CrawlDelay)
		if err != nil {
			return fmt.Errorf("invalid crawl_delay: %w", err)
		}
		cfg.CrawlDelay = d
	}
	if f.PollInterval != "" {
		d, err := time.ParseDuration(f.PollInterval)
		if err != nil {
			return fmt.Errorf("invalid poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if f.MaxConcurrentRuns > 0 {
		cfg.MaxConcurrentRuns = f.MaxConcurrentRuns
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	return nil
}

// LoadConfigFile loads settings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound; callers decide
// whether that matters based on whether the path was explicit.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FindConfigFile searches for the configuration file in order:
// 1. The explicit path, if given
// 2. .magharvest in the current directory
// 3. .magharvest in the XDG config directory
// 4. .magharvest in the user's home directory
//
// Returns the path if found, or empty string.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	p := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(p); err == nil {
		return p
	}

	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
