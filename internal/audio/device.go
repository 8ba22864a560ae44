package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/prepmate/interview-client/internal/config"
)

var (
	// ErrPermissionDenied is returned when the OS refuses microphone access
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrDeviceUnavailable is returned when no capture device can be opened
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// DeviceOptions describes the capture stream being requested
type DeviceOptions struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultDeviceOptions requests a mono stream with echo cancellation,
// noise suppression and auto gain enabled
func DefaultDeviceOptions(sampleRate int) DeviceOptions {
	return DeviceOptions{
		SampleRate:       sampleRate,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Stream is an open capture handle producing normalized mono samples
type Stream interface {
	// Read fills p with samples and returns how many were written
	Read(p []float32) (int, error)

	// SampleRate is the rate the stream actually delivers, which may differ from the request
	SampleRate() int

	// Close releases the device. Safe to call more than once.
	Close() error
}

// Device opens capture streams
type Device interface {
	Open(ctx context.Context, opts DeviceOptions) (Stream, error)
}

// NewDevice returns the capture device selected by configuration
func NewDevice(cfg *config.Config) (Device, error) {
	switch cfg.AudioDevice {
	case config.DeviceFFmpeg:
		return &FFmpegDevice{
			Format: cfg.AudioInputFormat,
			Input:  cfg.AudioInput,
		}, nil
	case config.DeviceWAV:
		return &WAVDevice{
			Path:     cfg.AudioWAVPath,
			Realtime: true,
		}, nil
	default:
		return nil, fmt.Errorf("unknown audio device %q", cfg.AudioDevice)
	}
}
