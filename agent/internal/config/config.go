package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultProduceInterval = 1 * time.Second
	DefaultConsumeInterval = 1500 * time.Millisecond
	DefaultProbeInterval   = 10 * time.Second
	DefaultAuthHeader      = "x-api-key"
)

// Config is the agent's view of config.yaml. The `server:` key is ignored.
type Config struct {
	Agent AgentConfig `yaml:"agent"`
}

// AgentConfig holds all agent-side settings.
type AgentConfig struct {
	// ServerEndpoint is the gRPC address of tidepool-server (host:port).
	ServerEndpoint string `yaml:"server_endpoint"`

	// ProduceInterval is the period between Produce calls. Zero disables the
	// producer.
	ProduceInterval time.Duration `yaml:"produce_interval"`

	// ConsumeInterval is the period between Consume calls. Zero disables the
	// consumer.
	ConsumeInterval time.Duration `yaml:"consume_interval"`

	// MetricsEndpoint is the URL of the server's /metrics. Empty disables the
	// probe.
	MetricsEndpoint string `yaml:"metrics_endpoint"`

	// ProbeInterval is how often MetricsEndpoint is scraped.
	ProbeInterval time.Duration `yaml:"probe_interval"`

	// ServerAuth configures how the agent authenticates to tidepool-server.
	ServerAuth AuthConfig `yaml:"server_auth"`
}

// AuthConfig specifies how the agent authenticates to the server.
type AuthConfig struct {
	// Mode is one of: apikey | none. It mirrors server.auth.mode.
	Mode string `yaml:"mode"`

	// Header is the gRPC metadata key carrying the API key. Default "x-api-key".
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Agent: AgentConfig{
			ProduceInterval: DefaultProduceInterval,
			ConsumeInterval: DefaultConsumeInterval,
			ProbeInterval:   DefaultProbeInterval,
			ServerAuth: AuthConfig{
				Header: DefaultAuthHeader,
			},
		},
	}
}

// validate checks required fields and enum values.
func validate(cfg *Config) error {
	a := cfg.Agent
	if a.ServerEndpoint == "" {
		return fmt.Errorf("agent.server_endpoint is required")
	}
	if a.ProduceInterval < 0 || a.ConsumeInterval < 0 {
		return fmt.Errorf("agent.produce_interval and agent.consume_interval must not be negative")
	}
	if a.MetricsEndpoint != "" && a.ProbeInterval <= 0 {
		return fmt.Errorf("agent.probe_interval must be positive when metrics_endpoint is set")
	}
	switch a.ServerAuth.Mode {
	case "apikey":
		if a.ServerAuth.KeyEnv == "" {
			return fmt.Errorf("agent.server_auth: apikey requires key_env")
		}
	case "none", "":
	default:
		return fmt.Errorf("agent.server_auth.mode %q unknown: want apikey|none", a.ServerAuth.Mode)
	}
	return nil
}
