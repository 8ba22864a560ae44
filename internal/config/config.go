package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Transcription providers
const (
	ProviderRealtime = "realtime" // backend-issued WebSocket endpoint
	ProviderDeepgram = "deepgram" // direct Deepgram streaming
)

// Audio devices
const (
	DeviceFFmpeg = "ffmpeg"
	DeviceWAV    = "wav"
)

// Config holds all configuration for the interview client
type Config struct {
	// Backend REST API. Every view uses this one base URL.
	APIURL string `envconfig:"PREPMATE_API_URL" required:"true"`

	// Local state (credentials, schedule, unsynced results).
	// Defaults to $XDG_DATA_HOME/prepmate or ~/.local/share/prepmate when empty.
	DataDir string `envconfig:"PREPMATE_DATA_DIR" default:""`

	// Interview defaults
	DefaultTimeLimit int `envconfig:"DEFAULT_TIME_LIMIT_MINUTES" default:"45"` // used when the interview has no limit

	// Audio capture configuration
	AudioBufferSize    int     `envconfig:"AUDIO_BUFFER_SIZE" default:"4096"`     // Samples per frame sent to the channel
	AudioDevice        string  `envconfig:"AUDIO_DEVICE" default:"ffmpeg"`        // ffmpeg, wav
	AudioInputFormat   string  `envconfig:"AUDIO_INPUT_FORMAT" default:"pulse"`   // ffmpeg -f value (pulse, alsa, avfoundation, dshow)
	AudioInput         string  `envconfig:"AUDIO_INPUT" default:"default"`        // ffmpeg -i value
	AudioWAVPath       string  `envconfig:"AUDIO_WAV_PATH" default:""`            // WAV file replayed as the microphone
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"0.015"` // RMS of normalized samples
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"4"`       // Frames of silence to mark speech end

	// Transcription configuration
	TranscriptionProvider string `envconfig:"TRANSCRIPTION_PROVIDER" default:"realtime"`
	CloseGracePeriod      int    `envconfig:"TRANSCRIPTION_CLOSE_GRACE_MS" default:"100"` // wait after terminate_session before closing

	// Deepgram STT API configuration (TRANSCRIPTION_PROVIDER=deepgram)
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Attempts for idempotent GETs
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Transcript mirror (Kafka). Disabled means log-only.
	KafkaEnabled      bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers      []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopicPartial string   `envconfig:"KAFKA_TOPIC_PARTIAL" default:"interview.transcript.partial"`
	KafkaTopicFinal   string   `envconfig:"KAFKA_TOPIC_FINAL" default:"interview.transcript.final"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`      // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"true"`     // Console output; the client is interactive
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsPort    string `envconfig:"METRICS_PORT" default:"9464"`
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field requirements envconfig cannot express
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("PREPMATE_API_URL is required")
	}

	switch c.TranscriptionProvider {
	case ProviderRealtime:
	case ProviderDeepgram:
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when TRANSCRIPTION_PROVIDER=deepgram")
		}
	default:
		return fmt.Errorf("invalid TRANSCRIPTION_PROVIDER %q (must be %s or %s)",
			c.TranscriptionProvider, ProviderRealtime, ProviderDeepgram)
	}

	switch c.AudioDevice {
	case DeviceFFmpeg:
	case DeviceWAV:
		if c.AudioWAVPath == "" {
			return fmt.Errorf("AUDIO_WAV_PATH is required when AUDIO_DEVICE=wav")
		}
	default:
		return fmt.Errorf("invalid AUDIO_DEVICE %q (must be %s or %s)", c.AudioDevice, DeviceFFmpeg, DeviceWAV)
	}

	if c.AudioBufferSize <= 0 {
		return fmt.Errorf("AUDIO_BUFFER_SIZE must be positive")
	}
	if c.DefaultTimeLimit <= 0 {
		return fmt.Errorf("DEFAULT_TIME_LIMIT_MINUTES must be positive")
	}

	return nil
}

// ResolveDataDir returns the directory holding local client state.
// It respects XDG_DATA_HOME if set, otherwise falls back to ~/.local/share/prepmate
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, "prepmate"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".local", "share", "prepmate"), nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
