package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	envConfigPath        = "CHATDISPATCH_CONFIG"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"

	DefaultMaxMessageLength = 1000
	DefaultStoragePath      = "./chat_logs"
)

// Config is the root runtime configuration. It is read once at startup and
// treated as an immutable snapshot afterwards.
type Config struct {
	MaxMessageLength       int      `json:"max_message_length" yaml:"max_message_length"`
	SupportedMessageTypes  []string `json:"supported_message_types" yaml:"supported_message_types"`
	EnableMessageHistory   bool     `json:"enable_message_history" yaml:"enable_message_history"`
	StoragePath            string   `json:"storage_path" yaml:"storage_path"`
	EnableSensitiveFilter  bool     `json:"enable_sensitive_filter" yaml:"enable_sensitive_filter"`
	SensitiveWords         []string `json:"sensitive_words" yaml:"sensitive_words"`
	DispatchTimeoutSeconds int      `json:"dispatch_timeout_seconds,omitempty" yaml:"dispatch_timeout_seconds,omitempty"`

	Logging  LoggingConfig  `json:"logging,omitempty" yaml:"logging,omitempty"`
	Channels ChannelsConfig `json:"channels" yaml:"channels"`
	Gateway  GatewayConfig  `json:"gateway" yaml:"gateway"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty" yaml:"format,omitempty"`
	Level     string `json:"level,omitempty" yaml:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty" yaml:"add_source,omitempty"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Token     string   `json:"token" yaml:"token"`
	Proxy     string   `json:"proxy" yaml:"proxy"`
	AllowFrom []string `json:"allow_from" yaml:"allow_from"`
}

// GatewayConfig configures HTTP gateway bind settings.
type GatewayConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		MaxMessageLength:      DefaultMaxMessageLength,
		SupportedMessageTypes: []string{"text", "image", "location"},
		EnableMessageHistory:  true,
		StoragePath:           DefaultStoragePath,
		EnableSensitiveFilter: true,
		SensitiveWords:        []string{},
		Logging:               LoggingConfig{Format: "text", Level: "info"},
	}
}

// SupportsType reports whether msgType is in the dispatch whitelist.
func (c Config) SupportsType(msgType string) bool {
	return slices.Contains(c.SupportedMessageTypes, msgType)
}

// Validate checks option ranges.
func (c Config) Validate() error {
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("max_message_length must be greater than zero, got %d", c.MaxMessageLength)
	}
	if c.DispatchTimeoutSeconds < 0 {
		return fmt.Errorf("dispatch_timeout_seconds must not be negative, got %d", c.DispatchTimeoutSeconds)
	}
	for _, msgType := range c.SupportedMessageTypes {
		if strings.TrimSpace(msgType) == "" {
			return errors.New("supported_message_types must not contain empty entries")
		}
	}
	if c.EnableMessageHistory && strings.TrimSpace(c.StoragePath) == "" {
		return errors.New("storage_path is required when enable_message_history is set")
	}

	return nil
}

// LoadConfig resolves the config file, decodes it over the defaults and
// applies environment overrides. Without any config file the defaults are used.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadFile(configPath)
}

// LoadFile decodes path over the defaults. A missing file yields the
// defaults; unknown keys are ignored. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := decode(path, content, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// SaveFile writes the configuration, creating parent directories.
func (c Config) SaveFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var (
		content []byte
		err     error
	)
	if isYAML(path) {
		content, err = yaml.Marshal(c)
	} else {
		content, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(path, append(content, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func decode(path string, content []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(content, cfg)
	}

	return json.Unmarshal(content, cfg)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is CHATDISPATCH_CONFIG first, then cwd-local fallback paths. An
// empty result means no file was found and defaults apply.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	for _, candidate := range candidatePaths(cwd) {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}

// candidatePaths lists config.{json,yaml,yml} in dir, then in dir/config,
// then dir/config/default_config.json.
func candidatePaths(dir string) []string {
	var paths []string
	for _, base := range []string{dir, filepath.Join(dir, "config")} {
		for _, name := range []string{"config.json", "config.yaml", "config.yml"} {
			paths = append(paths, filepath.Join(base, name))
		}
	}

	return append(paths, filepath.Join(dir, "config", "default_config.json"))
}
