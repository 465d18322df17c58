package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the sahabat configuration
type Config struct {
	ChatAPIURL string `json:"chat_api_url"` // Base URL of the chat/LLM API (e.g. http://localhost:8000/api/v1)
	AuthURL    string `json:"auth_url"`     // Base URL of the hosted auth/database provider
	AnonKey    string `json:"anon_key"`     // Public API key for the auth/database provider
	LogFile    string `json:"log_file"`     // Path of the rotating log file
	OTPBypass  bool   `json:"otp_bypass"`   // Skip real OTP delivery during registration
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		ChatAPIURL: "http://localhost:8000/api/v1",
		AuthURL:    "http://localhost:54321",
		LogFile:    filepath.Join(Dir(), "sahabat.log"),
		OTPBypass:  true,
	}
}

// Load loads configuration from ~/.sahabat/config.json with environment
// overrides. A .env file in the working directory is honored if present.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if fileCfg, err := loadConfigFromFile(ConfigPath()); err == nil {
		mergeCfg(cfg, fileCfg)
	}

	// Environment takes precedence over the file
	_ = godotenv.Load()
	cfg.ChatAPIURL = getEnv("SAHABAT_CHAT_API_URL", cfg.ChatAPIURL)
	cfg.AuthURL = getEnv("SAHABAT_AUTH_URL", cfg.AuthURL)
	cfg.AnonKey = getEnv("SAHABAT_ANON_KEY", cfg.AnonKey)
	cfg.LogFile = getEnv("SAHABAT_LOG_FILE", cfg.LogFile)
	cfg.OTPBypass = getEnvAsBool("SAHABAT_OTP_BYPASS", cfg.OTPBypass)

	return cfg, nil
}

// Get retrieves a configuration value by key
func (c *Config) Get(key string) (interface{}, error) {
	switch key {
	case "chat_api_url":
		return c.ChatAPIURL, nil
	case "auth_url":
		return c.AuthURL, nil
	case "anon_key":
		return c.AnonKey, nil
	case "log_file":
		return c.LogFile, nil
	case "otp_bypass":
		return c.OTPBypass, nil
	default:
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
}

// Set updates a configuration value by key
func (c *Config) Set(key string, value string) error {
	switch key {
	case "chat_api_url":
		c.ChatAPIURL = value
	case "auth_url":
		c.AuthURL = value
	case "anon_key":
		c.AnonKey = value
	case "log_file":
		c.LogFile = value
	case "otp_bypass":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("expected 'true' or 'false' for otp_bypass, got: %s", value)
		}
		c.OTPBypass = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// Dir returns the sahabat dotdir (~/.sahabat), creating it if needed.
func Dir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	dir := filepath.Join(homeDir, ".sahabat")
	_ = os.MkdirAll(dir, 0755)
	return dir
}

// ConfigPath returns the path of the config file.
func ConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Save writes the configuration to ~/.sahabat/config.json
func Save(cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0644)
}

func loadConfigFromFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeCfg merges source config into destination config
func mergeCfg(dst, src *Config) {
	if src.ChatAPIURL != "" {
		dst.ChatAPIURL = src.ChatAPIURL
	}
	if src.AuthURL != "" {
		dst.AuthURL = src.AuthURL
	}
	if src.AnonKey != "" {
		dst.AnonKey = src.AnonKey
	}
	if src.LogFile != "" {
		dst.LogFile = src.LogFile
	}
	dst.OTPBypass = src.OTPBypass
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
