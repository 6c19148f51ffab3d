package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	Backend               string   `json:"backend"`
	DBPath                string   `json:"dbPath"`
	JSONPath              string   `json:"jsonPath"`
	DefaultCategory       string   `json:"defaultCategory"`
	CullExcludeDomains    []string `json:"cullExcludeDomains"`
	CullConcurrency       int      `json:"cullConcurrency"`
	CullTimeoutSeconds    int      `json:"cullTimeoutSeconds"`
	ExtractTimeoutSeconds int      `json:"extractTimeoutSeconds"`
	LogLevel              string   `json:"logLevel"`
	LogFormat             string   `json:"logFormat"`
	HTTPAddr              string   `json:"httpAddr"`
	BrowserDirs           []string `json:"browserDirs,omitempty"`
}

// DefaultConfig returns the default configuration with data files kept
// next to the config file in dir.
func DefaultConfig(dir string) Config {
	return Config{
		Backend:               "sqlite",
		DBPath:                filepath.Join(dir, "bookmarks.db"),
		JSONPath:              filepath.Join(dir, "bookmarks.json"),
		DefaultCategory:       "Read Later",
		CullExcludeDomains:    []string{"github.com", "gitlab.com"},
		CullConcurrency:       10,
		CullTimeoutSeconds:    10,
		ExtractTimeoutSeconds: 10,
		LogLevel:              "info",
		LogFormat:             "text",
		HTTPAddr:              "127.0.0.1:8765",
	}
}

// CullTimeout returns the per-request link check timeout.
func (c Config) CullTimeout() time.Duration {
	return time.Duration(c.CullTimeoutSeconds) * time.Second
}

// ExtractTimeout returns the content extractor's HTTP timeout.
func (c Config) ExtractTimeout() time.Duration {
	return time.Duration(c.ExtractTimeoutSeconds) * time.Second
}

// Load reads config from the JSON file at path and applies environment
// overrides. The file is created with defaults if it doesn't exist.
// A .env file in the working directory is loaded first; variables already
// set in the environment take precedence over it.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	defaults := DefaultConfig(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := defaults
			// Non-fatal: return defaults even if save fails
			_ = Save(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing fields
	if config.Backend == "" {
		config.Backend = defaults.Backend
	}
	if config.DBPath == "" {
		config.DBPath = defaults.DBPath
	}
	if config.JSONPath == "" {
		config.JSONPath = defaults.JSONPath
	}
	if config.DefaultCategory == "" {
		config.DefaultCategory = defaults.DefaultCategory
	}
	if config.CullExcludeDomains == nil {
		config.CullExcludeDomains = defaults.CullExcludeDomains
	}
	if config.CullConcurrency <= 0 {
		config.CullConcurrency = defaults.CullConcurrency
	}
	if config.CullTimeoutSeconds <= 0 {
		config.CullTimeoutSeconds = defaults.CullTimeoutSeconds
	}
	if config.ExtractTimeoutSeconds <= 0 {
		config.ExtractTimeoutSeconds = defaults.ExtractTimeoutSeconds
	}
	if config.LogLevel == "" {
		config.LogLevel = defaults.LogLevel
	}
	if config.LogFormat == "" {
		config.LogFormat = defaults.LogFormat
	}
	if config.HTTPAddr == "" {
		config.HTTPAddr = defaults.HTTPAddr
	}

	return &config, nil
}

func applyEnv(c *Config) {
	c.Backend = getEnv("LINKVAULT_BACKEND", c.Backend)
	c.DBPath = getEnv("LINKVAULT_DB_PATH", c.DBPath)
	c.JSONPath = getEnv("LINKVAULT_JSON_PATH", c.JSONPath)
	c.LogLevel = getEnv("LINKVAULT_LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LINKVAULT_LOG_FORMAT", c.LogFormat)
	c.HTTPAddr = getEnv("LINKVAULT_HTTP_ADDR", c.HTTPAddr)
	c.DefaultCategory = getEnv("LINKVAULT_DEFAULT_CATEGORY", c.DefaultCategory)
	if dirs := os.Getenv("LINKVAULT_BROWSER_DIRS"); dirs != "" {
		c.BrowserDirs = filepath.SplitList(dirs)
	}
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "sqlite", "json":
	default:
		return fmt.Errorf("backend must be sqlite or json, got %q", c.Backend)
	}
	if strings.TrimSpace(c.DefaultCategory) == "" {
		return fmt.Errorf("default category must not be empty")
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Save writes config to the JSON file.
// Creates the directory if it doesn't exist.
func Save(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultFilePath returns the default config path: ~/.config/linkvault/config.json
func DefaultFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "linkvault", "config.json"), nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
