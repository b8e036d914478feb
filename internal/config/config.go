package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvFile is read from the config file's directory before env overrides apply.
const EnvFile = ".env"

// Config holds all shannon configuration.
type Config struct {
	// Client side: the TUI and `shannon generate`
	Client ClientConfig `yaml:"client"`

	// Server side: `shannon serve`
	Server ServerConfig `yaml:"server"`

	// Hosted model used by the openai/gemini backends
	LLM LLMConfig `yaml:"llm"`

	UI UIConfig `yaml:"ui"`

	Logging LoggingConfig `yaml:"logging"`
}

// ClientConfig configures the generation client.
type ClientConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Timeout       string `yaml:"timeout"`
	FailurePolicy string `yaml:"failure_policy"` // recover, stall
}

// ServerConfig configures the generation service.
type ServerConfig struct {
	Addr           string `yaml:"addr"`
	Backend        string `yaml:"backend"` // ngram, openai, gemini
	MaxConcurrent  int    `yaml:"max_concurrent"`
	MaxConnections int    `yaml:"max_connections"`
	MaxBodyBytes   int64  `yaml:"max_body_bytes"`
	RequestTimeout string `yaml:"request_timeout"`
	AllowOrigin    string `yaml:"allow_origin"`
	ByChar         bool   `yaml:"by_char"` // ngram: character tokens instead of words
}

// LLMConfig configures a hosted model.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// UIConfig configures the terminal interface.
type UIConfig struct {
	Theme         string `yaml:"theme"` // dark, light
	ToastDuration string `yaml:"toast_duration"`
	StartDir      string `yaml:"start_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Client: ClientConfig{
			Endpoint:      "http://localhost:8080",
			Timeout:       "60s",
			FailurePolicy: "recover",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			Backend:        "ngram",
			MaxConcurrent:  4,
			MaxConnections: 64,
			MaxBodyBytes:   8 << 20,
			RequestTimeout: "60s",
			AllowOrigin:    "*",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
		},
		UI: UIConfig{
			Theme:         "dark",
			ToastDuration: "2s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultStateDir is where logs and the default config live.
func DefaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "shannon")
	}
	return ".shannon"
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultStateDir(), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// A .env file beside it is loaded into the environment first; variables that
// are already set are not overwritten.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadEnvFile(filepath.Join(filepath.Dir(path), EnvFile)); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()

	return cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SHANNON_ENDPOINT"); v != "" {
		c.Client.Endpoint = v
	}
	if v := os.Getenv("SHANNON_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SHANNON_FAILURE_POLICY"); v != "" {
		c.Client.FailurePolicy = v
	}

	// GEMINI_API_KEY wins when both keys are set
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
		if c.LLM.Model == "" || c.LLM.Model == DefaultConfig().LLM.Model {
			c.LLM.Model = "gemini-2.5-flash"
		}
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetClientTimeout returns the client request timeout.
func (c *Config) GetClientTimeout() time.Duration {
	return parseDuration(c.Client.Timeout, 60*time.Second)
}

// GetRequestTimeout returns the server per-request timeout.
func (c *Config) GetRequestTimeout() time.Duration {
	return parseDuration(c.Server.RequestTimeout, 60*time.Second)
}

// GetToastDuration returns how long notifications stay visible.
func (c *Config) GetToastDuration() time.Duration {
	return parseDuration(c.UI.ToastDuration, 2*time.Second)
}

var (
	// ValidBackends lists the generation backends `serve` can run.
	ValidBackends = []string{"ngram", "openai", "gemini"}
	// ValidPolicies lists the client failure policies.
	ValidPolicies = []string{"recover", "stall"}
	// ValidThemes lists the UI themes.
	ValidThemes = []string{"dark", "light"}
)

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Client.Endpoint == "" {
		errs = append(errs, errors.New("client.endpoint is required"))
	}
	if !slices.Contains(ValidPolicies, c.Client.FailurePolicy) {
		errs = append(errs, fmt.Errorf("invalid client.failure_policy: %s (valid: %v)", c.Client.FailurePolicy, ValidPolicies))
	}
	if !slices.Contains(ValidBackends, c.Server.Backend) {
		errs = append(errs, fmt.Errorf("invalid server.backend: %s (valid: %v)", c.Server.Backend, ValidBackends))
	}
	if c.Server.MaxConcurrent < 0 {
		errs = append(errs, errors.New("server.max_concurrent must not be negative"))
	}
	if c.UI.Theme != "" && !slices.Contains(ValidThemes, c.UI.Theme) {
		errs = append(errs, fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes))
	}
	return errors.Join(errs...)
}

// ValidateBackend checks that the configured backend has what it needs.
func (c *Config) ValidateBackend() error {
	switch c.Server.Backend {
	case "openai", "gemini":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%s backend needs an API key (set llm.api_key, OPENAI_API_KEY or GEMINI_API_KEY)", c.Server.Backend)
		}
	}
	return nil
}
