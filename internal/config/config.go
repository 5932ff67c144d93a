package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultDataDir      = "/var/lib/logmule"
	DefaultLogLevel     = "info"
	DefaultMaxBytes     = 256 << 10
	DefaultSinkTimeout  = 10 * time.Second
	DefaultPollInterval = 15 * time.Second
	DefaultListen       = "127.0.0.1:8640"
	DefaultAuthHeader   = "X-API-Key"
)

// Config is the top-level logmule configuration. Fields map 1:1 to
// logmule.example.yaml.
type Config struct {
	// DataDir holds the local buffer database and the instance id file.
	DataDir string `yaml:"data_dir"`

	// Debug switches the dispatcher into debug mode: events are echoed
	// to the diagnostic log and never shipped or buffered.
	Debug bool `yaml:"debug"`

	// LogLevel is the process log verbosity: debug | info | warn | error.
	// Changing it in the file takes effect on reload without a restart.
	LogLevel string `yaml:"log_level"`

	Buffer BufferConfig `yaml:"buffer"`
	Sink   SinkConfig   `yaml:"sink"`
	Netmon NetmonConfig `yaml:"netmon"`
	Intake IntakeConfig `yaml:"intake"`
}

// BufferConfig bounds the local buffered log.
type BufferConfig struct {
	// MaxBytes is the serialized-size ceiling. Once the stored buffer
	// reaches it, the oldest half is dropped before the next append.
	MaxBytes int `yaml:"max_bytes"`
}

// SinkConfig describes the remote ingestion service.
type SinkConfig struct {
	// Endpoint is the base URL of the ingest API, e.g.
	// https://ingest.example.com. Single events go to /v1/logs, batches
	// to /v1/logs/batch.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds each send, single or batch.
	Timeout time.Duration `yaml:"timeout"`

	// Compress gzips batch bodies. On by default; cellular bytes are
	// the expensive kind.
	Compress *bool `yaml:"compress"`

	// Auth configures how the agent authenticates to the sink.
	Auth AuthConfig `yaml:"auth"`

	// TLS holds optional TLS dial options.
	TLS TLSConfig `yaml:"tls"`
}

// Compressed reports whether batch bodies should be gzipped.
func (s SinkConfig) Compressed() bool {
	return s.Compress == nil || *s.Compress
}

// AuthConfig specifies an outbound authentication mode.
type AuthConfig struct {
	// Mode is one of: mtls | apikey | bearer | none.
	Mode string `yaml:"mode"`

	// mTLS fields — used when Mode == "mtls".
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`

	// API key fields — used when Mode == "apikey".
	// Header is the HTTP header name to send the key in.
	Header string `yaml:"header"`
	// KeyEnv is the name of the environment variable that holds the key value.
	KeyEnv string `yaml:"key_env"`

	// Bearer token fields — used when Mode == "bearer".
	// TokenEnv is the name of the environment variable that holds the token.
	TokenEnv string `yaml:"token_env"`
}

// Key returns the API key value resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// Token returns the bearer token value resolved from the environment.
func (a AuthConfig) Token() string {
	if a.TokenEnv == "" {
		return ""
	}
	return os.Getenv(a.TokenEnv)
}

// TLSConfig holds outbound TLS options.
type TLSConfig struct {
	// InsecureSkipVerify disables TLS certificate verification.
	// Only use this for internal CAs in development environments.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// NetmonConfig selects and tunes the connectivity source.
type NetmonConfig struct {
	// Source is one of: exporter | feed.
	Source string `yaml:"source"`

	// ExporterURL is the Prometheus exposition endpoint of the link
	// exporter (router or modem manager). Required for source=exporter.
	ExporterURL string `yaml:"exporter_url"`

	// FeedURL is the WebSocket event stream of a connectivity daemon
	// (ws:// or wss://). Required for source=feed.
	FeedURL string `yaml:"feed_url"`

	// PollInterval controls exporter polling. Ignored for source=feed.
	PollInterval time.Duration `yaml:"poll_interval"`

	// ProbeTimeout bounds one exporter scrape.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// IntakeConfig configures the local HTTP API producers submit events to.
type IntakeConfig struct {
	// Listen is the bind address, host:port.
	Listen string `yaml:"listen"`

	// Auth configures inbound request authentication.
	Auth IntakeAuthConfig `yaml:"auth"`
}

// IntakeAuthConfig configures intake API authentication.
type IntakeAuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header the key is expected in.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the expected intake API key resolved from the environment.
func (a IntakeAuthConfig) Key() string {
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
		DataDir:  DefaultDataDir,
		LogLevel: DefaultLogLevel,
		Buffer: BufferConfig{
			MaxBytes: DefaultMaxBytes,
		},
		Sink: SinkConfig{
			Timeout: DefaultSinkTimeout,
			Auth:    AuthConfig{Header: DefaultAuthHeader},
		},
		Netmon: NetmonConfig{
			Source:       "exporter",
			PollInterval: DefaultPollInterval,
		},
		Intake: IntakeConfig{
			Listen: DefaultListen,
			Auth:   IntakeAuthConfig{Header: DefaultAuthHeader},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", cfg.LogLevel)
	}
	if cfg.Buffer.MaxBytes <= 0 {
		return fmt.Errorf("buffer.max_bytes must be positive")
	}
	if cfg.Sink.Endpoint == "" {
		return fmt.Errorf("sink.endpoint is required")
	}
	if cfg.Sink.Timeout <= 0 {
		return fmt.Errorf("sink.timeout must be positive")
	}
	switch cfg.Sink.Auth.Mode {
	case "mtls", "apikey", "bearer", "none", "":
	default:
		return fmt.Errorf("sink.auth: unknown mode %q", cfg.Sink.Auth.Mode)
	}
	switch cfg.Netmon.Source {
	case "exporter":
		if cfg.Netmon.ExporterURL == "" {
			return fmt.Errorf("netmon.exporter_url is required for source=exporter")
		}
		if cfg.Netmon.PollInterval <= 0 {
			return fmt.Errorf("netmon.poll_interval must be positive")
		}
	case "feed":
		if cfg.Netmon.FeedURL == "" {
			return fmt.Errorf("netmon.feed_url is required for source=feed")
		}
	default:
		return fmt.Errorf("netmon.source: unknown source %q", cfg.Netmon.Source)
	}
	if cfg.Intake.Listen == "" {
		return fmt.Errorf("intake.listen is required")
	}
	switch cfg.Intake.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("intake.auth: unknown mode %q", cfg.Intake.Auth.Mode)
	}
	return nil
}
