// Package config loads process configuration for the comicflow binaries
// from an optional YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/spetersoncode/comicflow"
	"github.com/spetersoncode/comicflow/client"
	"github.com/spetersoncode/comicflow/retry"
	"github.com/spetersoncode/comicflow/story"
)

// Version is the supported config file version.
const Version = 1

// Config is the process configuration. Treat a loaded Config as read-only.
type Config struct {
	Version int `yaml:"version"`

	// Provider selection
	Provider    comicflow.Provider `yaml:"provider"`
	Model       string             `yaml:"model"`
	BaseURL     string             `yaml:"base_url"`
	Temperature *float64           `yaml:"temperature"`
	MaxTokens   int                `yaml:"max_tokens"`
	Timeout     time.Duration      `yaml:"timeout"`
	Retries     int                `yaml:"retries"`

	// API keys come from the environment only.
	APIKeys client.APIKeys `yaml:"-"`

	Story  story.Config `yaml:"story"`
	Server Server       `yaml:"server"`
	MQTT   MQTT         `yaml:"mqtt"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// Server configures the dev HTTP server.
type Server struct {
	Port      string        `yaml:"port"`
	ResultTTL time.Duration `yaml:"result_ttl"`
}

// MQTT configures the optional run event publisher. An empty broker disables it.
type MQTT struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Version:  Version,
		Provider: comicflow.ProviderOffline,
		Timeout:  client.DefaultTimeout,
		Retries:  3,
		Story:    story.DefaultConfig(),
		Server: Server{
			Port:      "8000",
			ResultTTL: 30 * time.Minute,
		},
		MQTT: MQTT{
			Topic:    "comicflow/runs",
			ClientID: "comicflow",
		},
		LogLevel: "info",
	}
}

// Load reads configuration. It loads a .env file if present (silent fail if
// not found), then the YAML file at path when path is not empty, then the
// COMICFLOW_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	godotenv.Load() // Load .env file if present

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	// A file without a version is read as the current version.
	if c.Version == 0 {
		c.Version = Version
	}
	if c.Version != Version {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Provider = comicflow.Provider(strings.ToLower(getEnvOrDefault("COMICFLOW_PROVIDER", string(c.Provider))))
	c.Model = getEnvOrDefault("COMICFLOW_MODEL", c.Model)
	c.BaseURL = getEnvOrDefault("COMICFLOW_BASE_URL", c.BaseURL)
	c.Timeout = getEnvDurationOrDefault("COMICFLOW_TIMEOUT", c.Timeout)
	c.Retries = getEnvIntOrDefault("COMICFLOW_RETRIES", c.Retries)
	c.LogLevel = getEnvOrDefault("COMICFLOW_LOG_LEVEL", c.LogLevel)

	c.APIKeys = client.APIKeys{
		Anthropic: os.Getenv("ANTHROPIC_API_KEY"),
		OpenAI:    os.Getenv("OPENAI_API_KEY"),
		Google:    os.Getenv("GOOGLE_API_KEY"),
	}

	c.Story.SceneCount = getEnvIntOrDefault("COMICFLOW_SCENE_COUNT", c.Story.SceneCount)
	c.Story.RevisionLimit = getEnvIntOrDefault("COMICFLOW_REVISION_LIMIT", c.Story.RevisionLimit)
	c.Story.SceneMode = story.SceneMode(getEnvOrDefault("COMICFLOW_SCENE_MODE", string(c.Story.SceneMode)))
	c.Story.Critique = getEnvBoolOrDefault("COMICFLOW_CRITIQUE", c.Story.Critique)
	c.Story.Visuals = getEnvBoolOrDefault("COMICFLOW_VISUALS", c.Story.Visuals)

	c.Server.Port = getEnvOrDefault("COMICFLOW_PORT", c.Server.Port)
	c.MQTT.Broker = getEnvOrDefault("COMICFLOW_MQTT_BROKER", c.MQTT.Broker)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if !c.Provider.Valid() {
		errs = append(errs, fmt.Errorf("unknown provider: %s (must be anthropic, openai, google, or offline)", c.Provider))
	} else if c.Provider.Remote() && c.APIKeys.For(c.Provider) == "" {
		errs = append(errs, fmt.Errorf("%s is required for %s provider", apiKeyEnv(c.Provider), c.Provider))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", c.Retries))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}
	if err := c.Story.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Pipeline returns the story pipeline configuration.
func (c *Config) Pipeline() story.Config { return c.Story }

// Client returns the Generation Port client configuration.
func (c *Config) Client() client.Config {
	rc := retry.WithRetries(c.Retries)
	return client.Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKeys:     c.APIKeys,
		BaseURL:     c.BaseURL,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
		Retry:       &rc,
	}
}

func apiKeyEnv(p comicflow.Provider) string {
	switch p {
	case comicflow.ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case comicflow.ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "GOOGLE_API_KEY"
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
