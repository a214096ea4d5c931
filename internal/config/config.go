// Package config provides the configuration structure for the tts-handler.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Engine kinds.
const (
	EngineCLI  = "cli"
	EngineHTTP = "http"
)

// Default values applied when the project file leaves a field empty.
const (
	DefaultMaxTextLength     = 5000
	DefaultMaxReferenceBytes = 10 << 20
	DefaultLanguage          = "en"
	DefaultFormat            = "wav"
	DefaultTimeoutSeconds    = 60
	DefaultJobSubject        = "tts.jobs"
	DefaultJobQueue          = "tts-handlers"
	DefaultAssumedSampleRate = 22050
	DefaultAssumedBitDepth   = 16
	DefaultAssumedChannels   = 1
	DefaultAssumedMP3Kbps    = 48
)

var (
	// ErrUnknownEngineKind indicates that engine.kind is neither "cli" nor "http".
	ErrUnknownEngineKind = errors.New("unknown engine kind")
	// ErrEngineBinaryEmpty indicates a CLI engine without a binary.
	ErrEngineBinaryEmpty = errors.New("engine binary cannot be empty")
	// ErrEngineURLEmpty indicates an HTTP engine without a service URL.
	ErrEngineURLEmpty = errors.New("engine service url cannot be empty")
	// ErrTimeoutNegative indicates a negative synthesis timeout.
	ErrTimeoutNegative = errors.New("timeout_seconds must be non-negative")
	// ErrFormatUnsupported indicates a default format the handler cannot emit.
	ErrFormatUnsupported = errors.New("default format must be wav or mp3")
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL           string `toml:"url"`
	JobSubject    string `toml:"job_subject"`
	JobQueue      string `toml:"job_queue"`
	ResultSubject string `toml:"result_subject"`
	VoiceBucket   string `toml:"voice_bucket"`
}

// HandlerConfig holds the request validation and resolution defaults.
type HandlerConfig struct {
	MaxTextLength     int    `toml:"max_text_length"`
	MaxReferenceBytes int    `toml:"max_reference_bytes"`
	DefaultLanguage   string `toml:"default_language"`
	DefaultFormat     string `toml:"default_format"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
}

// EngineConfig selects and configures the external synthesis engine.
type EngineConfig struct {
	Kind           string   `toml:"kind"`
	Binary         string   `toml:"binary"`
	Args           []string `toml:"args"`
	VoiceArgs      []string `toml:"voice_args"`
	ReferenceArgs  []string `toml:"reference_args"`
	ServiceURL     string   `toml:"service_url"`
	Temperature    float64  `toml:"temperature"`
	AssumedRate    int      `toml:"assumed_sample_rate"`
	AssumedBits    int      `toml:"assumed_bit_depth"`
	AssumedChans   int      `toml:"assumed_channels"`
	AssumedMP3Kbps int      `toml:"assumed_mp3_kbps"`
}

// VoicesConfig locates the persona table and the reference audio volume.
type VoicesConfig struct {
	PersonaTable        string   `toml:"persona_table"`
	Dir                 string   `toml:"dir"`
	ReferenceExtensions []string `toml:"reference_extensions"`
}

// MetricsConfig configures the Prometheus endpoint. Empty ListenAddr disables it.
type MetricsConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	StagingDir  string `toml:"staging_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS    NATSConfig    `toml:"nats"`
	Handler HandlerConfig `toml:"handler"`
	Engine  EngineConfig  `toml:"engine"`
	Voices  VoicesConfig  `toml:"voices"`
	Metrics MetricsConfig `toml:"metrics"`
	Paths   PathsConfig   `toml:"paths"`
}

// Load loads the configuration for the tts-handler.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills every empty field with its documented default.
func (c *Config) ApplyDefaults() {
	if c.NATS.JobSubject == "" {
		c.NATS.JobSubject = DefaultJobSubject
	}

	if c.NATS.JobQueue == "" {
		c.NATS.JobQueue = DefaultJobQueue
	}

	if c.Handler.MaxTextLength <= 0 {
		c.Handler.MaxTextLength = DefaultMaxTextLength
	}

	if c.Handler.MaxReferenceBytes <= 0 {
		c.Handler.MaxReferenceBytes = DefaultMaxReferenceBytes
	}

	if c.Handler.DefaultLanguage == "" {
		c.Handler.DefaultLanguage = DefaultLanguage
	}

	if c.Handler.DefaultFormat == "" {
		c.Handler.DefaultFormat = DefaultFormat
	}

	if c.Handler.TimeoutSeconds == 0 {
		c.Handler.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if c.Engine.Kind == "" {
		c.Engine.Kind = EngineCLI
	}

	if c.Engine.AssumedRate <= 0 {
		c.Engine.AssumedRate = DefaultAssumedSampleRate
	}

	if c.Engine.AssumedBits <= 0 {
		c.Engine.AssumedBits = DefaultAssumedBitDepth
	}

	if c.Engine.AssumedChans <= 0 {
		c.Engine.AssumedChans = DefaultAssumedChannels
	}

	if c.Engine.AssumedMP3Kbps <= 0 {
		c.Engine.AssumedMP3Kbps = DefaultAssumedMP3Kbps
	}

	if len(c.Voices.ReferenceExtensions) == 0 {
		c.Voices.ReferenceExtensions = []string{"wav", "mp3"}
	}
}

// Validate checks the values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Engine.Kind {
	case EngineCLI:
		if c.Engine.Binary == "" {
			return ErrEngineBinaryEmpty
		}
	case EngineHTTP:
		if c.Engine.ServiceURL == "" {
			return ErrEngineURLEmpty
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngineKind, c.Engine.Kind)
	}

	if c.Handler.TimeoutSeconds < 0 {
		return fmt.Errorf("%w: got %d", ErrTimeoutNegative, c.Handler.TimeoutSeconds)
	}

	if c.Handler.DefaultFormat != "wav" && c.Handler.DefaultFormat != "mp3" {
		return fmt.Errorf("%w: got %q", ErrFormatUnsupported, c.Handler.DefaultFormat)
	}

	return nil
}

// Timeout returns the synthesis timeout as a duration.
func (h HandlerConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}
