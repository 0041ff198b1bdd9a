package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP listener.
const ShutdownTimeout = 10 * time.Second

// Config holds all application configuration.
type Config struct {
	// Logging
	LogLevel string `json:"log_level"`

	// HTTP
	ListenAddr string `json:"listen_addr"`

	// Storage
	StorePath string `json:"store_path"`

	// Gateway
	Gateway GatewayConfig `json:"gateway"`

	// LLM
	LLM ModelConfig `json:"llm"`

	// Summarization schedule
	SummaryInterval     time.Duration `json:"-"`
	SummaryIntervalMins int           `json:"summary_interval_mins"`
}

// GatewayConfig holds the chat gateway connection settings.
type GatewayConfig struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// ModelConfig defines the text completion model configuration.
type ModelConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultStore := filepath.Join(homeDir, ".wadigest", "store")

	return &Config{
		LogLevel:   "INFO",
		ListenAddr: ":8080",
		StorePath:  defaultStore,
		Gateway: GatewayConfig{
			BaseURL: "http://localhost:3000",
		},
		LLM: ModelConfig{
			Model: "gpt-4o-mini",
		},
		SummaryInterval:     2 * time.Hour,
		SummaryIntervalMins: 120,
	}
}

// LoadFromFile loads configuration from a JSON file.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if file doesn't exist
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Convert minutes to duration
	if cfg.SummaryIntervalMins > 0 {
		cfg.SummaryInterval = time.Duration(cfg.SummaryIntervalMins) * time.Minute
	}

	return cfg, nil
}

// Load loads configuration from environment variables with defaults.
// If configPath is provided, loads from file first.
func Load(configPath string) *Config {
	var cfg *Config
	var err error

	if configPath != "" {
		cfg, err = LoadFromFile(configPath)
		if err != nil {
			cfg = Default()
		}
	} else {
		cfg = Default()
	}

	// Environment variable overrides
	if v := os.Getenv("WADIGEST_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WADIGEST_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("WADIGEST_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("WADIGEST_GATEWAY_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("WADIGEST_GATEWAY_USER"); v != "" {
		cfg.Gateway.Username = v
	}
	if v := os.Getenv("WADIGEST_GATEWAY_PASSWORD"); v != "" {
		cfg.Gateway.Password = v
	}
	if v := os.Getenv("WADIGEST_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("WADIGEST_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("WADIGEST_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("WADIGEST_SUMMARY_INTERVAL"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins > 0 {
			cfg.SummaryInterval = time.Duration(mins) * time.Minute
		}
	}

	return cfg
}

// EnsureStorePath creates the store directory if it doesn't exist.
func (c *Config) EnsureStorePath() error {
	return os.MkdirAll(c.StorePath, 0755)
}
