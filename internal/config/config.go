// Package config loads and persists the clipd configuration file and
// resolves effective settings from flags, environment and file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/clipd/clipd/internal/store"
)

// EnvMaxEntries overrides the configured history ceiling when set.
const EnvMaxEntries = "CLIPD_MAX_ENTRIES"

// EnvStorageDir overrides the storage directory when set.
const EnvStorageDir = "CLIPD_DIR"

// DefaultPort is the TCP port the remote-copy server listens on.
const DefaultPort = 7779

// DefaultPollIntervalMs is how often the daemon samples the clipboard.
const DefaultPollIntervalMs = 250

// Config represents the clipd configuration
type Config struct {
	MaxEntries     int    `yaml:"max_entries"`
	StorageDir     string `yaml:"storage_dir,omitempty"`
	Port           int    `yaml:"port"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	LogLevel       string `yaml:"log_level,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxEntries:     store.DefaultMaxEntries,
		Port:           DefaultPort,
		PollIntervalMs: DefaultPollIntervalMs,
	}
}

// Manager manages configuration persistence
type Manager struct {
	configPath string
}

// NewManager creates a manager for the default config path
// (~/.config/clipd/config.yaml).
func NewManager() (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".config", "clipd", "config.yaml")
	return &Manager{configPath: configPath}, nil
}

// NewManagerWithPath creates a manager with a custom config path
func NewManagerWithPath(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// Load reads the configuration from file, or returns the default if the
// file doesn't exist.
func (m *Manager) Load() (*Config, error) {
	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := m.validateAndSetDefaults(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Save writes the configuration to file
func (m *Manager) Save(config *Config) error {
	if err := m.validateAndSetDefaults(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// validateAndSetDefaults validates configuration and sets defaults for
// missing fields
func (m *Manager) validateAndSetDefaults(config *Config) error {
	if config.MaxEntries == 0 {
		config.MaxEntries = store.DefaultMaxEntries
	}
	if config.MaxEntries < 1 || config.MaxEntries > store.AbsoluteMaxEntries {
		return fmt.Errorf("max_entries must be between 1 and %d", store.AbsoluteMaxEntries)
	}
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if config.PollIntervalMs == 0 {
		config.PollIntervalMs = DefaultPollIntervalMs
	}
	if config.PollIntervalMs < 50 {
		return fmt.Errorf("poll_interval_ms must be at least 50")
	}
	return nil
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// Update modifies a specific configuration value
func (m *Manager) Update(key, value string) error {
	config, err := m.Load()
	if err != nil {
		return err
	}

	switch key {
	case "max-entries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for max-entries: %s", value)
		}
		config.MaxEntries = n
	case "storage-dir":
		config.StorageDir = value
	case "port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for port: %s", value)
		}
		config.Port = n
	case "poll-interval-ms":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for poll-interval-ms: %s", value)
		}
		config.PollIntervalMs = n
	case "log-level":
		config.LogLevel = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	return m.Save(config)
}

// Get returns the value for a specific configuration key
func (m *Manager) Get(key string) (string, error) {
	config, err := m.Load()
	if err != nil {
		return "", err
	}

	switch key {
	case "max-entries":
		return strconv.Itoa(config.MaxEntries), nil
	case "storage-dir":
		if config.StorageDir == "" {
			return "[default]", nil
		}
		return config.StorageDir, nil
	case "port":
		return strconv.Itoa(config.Port), nil
	case "poll-interval-ms":
		return strconv.Itoa(config.PollIntervalMs), nil
	case "log-level":
		if config.LogLevel == "" {
			return "[default]", nil
		}
		return config.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// List returns all configuration keys and values
func (m *Manager) List() (map[string]string, error) {
	config, err := m.Load()
	if err != nil {
		return nil, err
	}

	result := map[string]string{
		"max-entries":      strconv.Itoa(config.MaxEntries),
		"storage-dir":      config.StorageDir,
		"port":             strconv.Itoa(config.Port),
		"poll-interval-ms": strconv.Itoa(config.PollIntervalMs),
		"log-level":        config.LogLevel,
	}
	if result["storage-dir"] == "" {
		result["storage-dir"] = "[default]"
	}
	if result["log-level"] == "" {
		result["log-level"] = "[default]"
	}

	return result, nil
}

// ResolveMaxEntries resolves the effective history ceiling: explicit flag
// first, then the environment, then the config file, then the default.
// The result is always clamped to the valid range.
func ResolveMaxEntries(flagValue int, config *Config) int {
	if flagValue > 0 {
		return store.ClampMaxEntries(flagValue)
	}
	if v := os.Getenv(EnvMaxEntries); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return store.ClampMaxEntries(n)
		}
	}
	if config != nil && config.MaxEntries > 0 {
		return store.ClampMaxEntries(config.MaxEntries)
	}
	return store.DefaultMaxEntries
}

// ResolveStorageDir resolves the storage directory: explicit flag first,
// then the environment, then the config file, then ~/.clipd.
func ResolveStorageDir(flagValue string, config *Config) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(EnvStorageDir); v != "" {
		return v, nil
	}
	if config != nil && config.StorageDir != "" {
		return config.StorageDir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".clipd"), nil
}
