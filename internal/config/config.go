package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
)

// AgentConfig locates the external agent CLI.
type AgentConfig struct {
	// Command is an explicit path to the agent executable. Empty means
	// discover via environment and PATH.
	Command string `json:"command"`
	Model   string `json:"model"`
	// Thinking forwards the agent's extended reasoning flag.
	Thinking bool `json:"thinking"`
}

// SessionConfig holds the on-disk roots for both session backends.
type SessionConfig struct {
	// GUIRoot holds <id>.json metadata and <id>_messages.jsonl logs.
	GUIRoot string `json:"gui_root"`
	// CLIRoot is the externally produced transcript tree, keyed by a digest
	// of the working directory.
	CLIRoot string `json:"cli_root"`
	// EnvTag prefixes the digest directory for non-local execution
	// environments. Empty means local.
	EnvTag string `json:"env_tag"`
}

// SafetyConfig bounds tool execution.
type SafetyConfig struct {
	ShellTimeoutSec int `json:"shell_timeout_sec"`
}

// ServiceConfig describes one external web service endpoint.
type ServiceConfig struct {
	BaseURL       string            `json:"base_url"`
	APIKey        string            `json:"api_key"`
	CustomHeaders map[string]string `json:"custom_headers"`
}

// ServicesConfig carries the optional search and fetch services consumed by
// the web tools.
type ServicesConfig struct {
	Search *ServiceConfig `json:"search"`
	Fetch  *ServiceConfig `json:"fetch"`
}

// StorageConfig holds paths for local persistence beyond sessions.
type StorageConfig struct {
	AuditDB string `json:"audit_db"`
}

type Config struct {
	Agent    AgentConfig    `json:"agent"`
	Sessions SessionConfig  `json:"sessions"`
	Safety   SafetyConfig   `json:"safety"`
	Services ServicesConfig `json:"services"`
	Storage  StorageConfig  `json:"storage"`
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file yields defaults rather than an error. Comments and
// trailing commas are tolerated.
func Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Sessions.GUIRoot) == "" {
		cfg.Sessions.GUIRoot = filepath.Join(ShareDir(), "gui_sessions")
	}
	if strings.TrimSpace(cfg.Sessions.CLIRoot) == "" {
		cfg.Sessions.CLIRoot = filepath.Join(ShareDir(), "sessions")
	}
	if cfg.Safety.ShellTimeoutSec <= 0 {
		cfg.Safety.ShellTimeoutSec = 60
	}
	if strings.TrimSpace(cfg.Storage.AuditDB) == "" {
		cfg.Storage.AuditDB = filepath.Join(ShareDir(), "audit.db")
	}
}

// ShareDir is the application's state directory under the user's home.
func ShareDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".deskagent")
}

// DefaultPath is the default config file location.
func DefaultPath() string {
	return filepath.Join(ShareDir(), "config.jsonc")
}
