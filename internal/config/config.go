// Package config handles openchatd configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./openchatd.yaml, ~/.config/openchatd/config.yaml, /etc/openchatd/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"openchatd.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "openchatd", "config.yaml"))
	}

	paths = append(paths, "/etc/openchatd/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all openchatd configuration.
type Config struct {
	Listen   ListenConfig  `yaml:"listen"`
	Models   ModelsConfig  `yaml:"models"`
	History  HistoryConfig `yaml:"history"`
	LogLevel string        `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "127.0.0.1")
	Port    int    `yaml:"port"`    // Default: 8000
}

// ModelsConfig defines model backend settings.
type ModelsConfig struct {
	// Enabled gates the model backend integration. When false, the
	// gateway still serves all endpoints but chat responses degrade to
	// a fixed informational message.
	Enabled *bool `yaml:"enabled"`

	// OllamaURL is the base URL of the local Ollama daemon.
	// Overridden by the OLLAMA_URL environment variable.
	OllamaURL string `yaml:"ollama_url"`

	// Default is the model used when a request names none and the
	// daemon reports no installed models.
	Default string `yaml:"default"`

	// TitleBoostTimeout bounds the model call that upgrades a
	// heuristic conversation title. Zero means the built-in 2s.
	TitleBoostTimeout time.Duration `yaml:"title_boost_timeout"`
}

// HistoryConfig selects the session history store.
type HistoryConfig struct {
	// Path is the SQLite database file for durable session history.
	// Empty selects the in-memory store (history lives for the
	// process lifetime only).
	Path string `yaml:"path"`
}

// BackendEnabled reports whether the model backend integration is on.
// Unset defaults to true.
func (c *Config) BackendEnabled() bool {
	return c.Models.Enabled == nil || *c.Models.Enabled
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	cfg := &Config{
		Listen: ListenConfig{Address: "127.0.0.1", Port: 8000},
		Models: ModelsConfig{
			OllamaURL:         "http://127.0.0.1:11434",
			Default:           "llama3.1",
			TitleBoostTimeout: 2 * time.Second,
		},
	}
	cfg.applyEnv()
	return cfg
}

// applyEnv applies environment overrides that take precedence over the
// file. OLLAMA_URL is the one variable the desktop launcher exports.
func (c *Config) applyEnv() {
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		c.Models.OllamaURL = url
	}
}
