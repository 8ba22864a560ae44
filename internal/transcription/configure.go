package transcription

import (
	"context"
	"fmt"

	"github.com/prepmate/interview-client/internal/backend"
	"github.com/prepmate/interview-client/internal/config"
)

// ConfigSource fetches realtime connection parameters
type ConfigSource interface {
	RealtimeConfig(ctx context.Context) (*backend.RealtimeConfig, error)
}

// Configure fetches endpoint, sample rate and credential for one session.
// It must succeed before recording can start.
func Configure(ctx context.Context, source ConfigSource) (*Session, error) {
	rc, err := source.RealtimeConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigUnavailable, err)
	}
	if rc.WebsocketURL == "" {
		return nil, fmt.Errorf("%w: missing websocket_url", ErrConfigUnavailable)
	}
	if rc.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample_rate %d", ErrConfigUnavailable, rc.SampleRate)
	}

	return NewSession(rc.WebsocketURL, rc.SampleRate, rc.APIKey), nil
}

// deepgramSampleRate is what the direct Deepgram provider asks the microphone for
const deepgramSampleRate = 16000

// NewChannel returns the channel for the configured provider
func NewChannel(cfg *config.Config) (Channel, error) {
	switch cfg.TranscriptionProvider {
	case config.ProviderRealtime:
		return NewWSChannel(cfg), nil
	case config.ProviderDeepgram:
		return NewDeepgramChannel(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transcription provider %q", cfg.TranscriptionProvider)
	}
}

// ConfigureFor returns the session for the configured provider.
// The deepgram provider needs no backend round-trip.
func ConfigureFor(ctx context.Context, cfg *config.Config, source ConfigSource) (*Session, error) {
	if cfg.TranscriptionProvider == config.ProviderDeepgram {
		if cfg.DeepgramAPIKey == "" {
			return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY not set", ErrConfigUnavailable)
		}
		return NewSession("deepgram", deepgramSampleRate, cfg.DeepgramAPIKey), nil
	}
	return Configure(ctx, source)
}
