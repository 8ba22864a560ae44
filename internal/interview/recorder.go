package interview

import (
	"context"
	"errors"
	"sync"

	"github.com/prepmate/interview-client/internal/audio"
	"github.com/prepmate/interview-client/internal/observability"
	"github.com/prepmate/interview-client/internal/transcription"
)

// Close reasons sent to the transcription service
const (
	ReasonStopped   = "Recording stopped by user"
	ReasonUnmounted = "Component unmounting"
)

var (
	// ErrAlreadyRecording is returned by Start while a pipeline is held
	ErrAlreadyRecording = errors.New("already recording")

	// ErrRecordingCancelled is returned by Start when Stop ran before it finished
	ErrRecordingCancelled = errors.New("recording cancelled")
)

// Recorder acquires the microphone pipeline and the channel connection together
// and releases them together. A failed Start leaves nothing held.
type Recorder struct {
	device     audio.Device
	channel    transcription.Channel
	bufferSize int
	vad        *audio.VADConfig
	metrics    *observability.SessionMetrics

	mu       sync.Mutex
	pipeline *audio.Pipeline
	gen      uint64 // bumped by every Stop
	abort    context.CancelFunc
}

// RecorderConfig sizes the capture pipeline
type RecorderConfig struct {
	BufferSize int
	VAD        *audio.VADConfig
	Metrics    *observability.SessionMetrics
}

// NewRecorder creates a recorder over device and channel
func NewRecorder(device audio.Device, channel transcription.Channel, cfg RecorderConfig) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4096
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewSessionMetrics("")
	}
	return &Recorder{
		device:     device,
		channel:    channel,
		bufferSize: cfg.BufferSize,
		vad:        cfg.VAD,
		metrics:    cfg.Metrics,
	}
}

// Channel returns the transcription channel frames are sent to
func (r *Recorder) Channel() transcription.Channel {
	return r.channel
}

// Active reports whether a pipeline is held
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipeline != nil
}

// Start opens the microphone at the session sample rate, then connects the channel.
// Frames captured before the channel connects are dropped by Send.
func (r *Recorder) Start(ctx context.Context, session *transcription.Session, onSpeech func(bool), onError func(error)) error {
	r.mu.Lock()
	if r.pipeline != nil {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	gen := r.gen
	r.mu.Unlock()

	pipeline, err := audio.StartPipeline(ctx, r.device, audio.PipelineConfig{
		SampleRate: session.SampleRate,
		BufferSize: r.bufferSize,
		VAD:        r.vad,
		OnSpeech:   onSpeech,
		OnError:    onError,
	}, r.channel.Send)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		pipeline.Stop()
		return ErrRecordingCancelled
	}
	r.pipeline = pipeline
	r.mu.Unlock()
	r.metrics.RecordRecordingStart()

	openCtx, abort := context.WithCancel(ctx)
	r.mu.Lock()
	if r.gen != gen {
		r.mu.Unlock()
		abort()
		r.release()
		return ErrRecordingCancelled
	}
	r.abort = abort
	r.mu.Unlock()

	r.metrics.RecordConnectStart()
	if err := r.channel.Open(openCtx, session); err != nil {
		r.metrics.RecordConnectEnd(false)
		r.mu.Lock()
		cancelled := r.gen != gen
		if !cancelled {
			r.abort = nil
		}
		r.mu.Unlock()
		abort()
		r.release()
		if cancelled {
			return ErrRecordingCancelled
		}
		return err
	}
	r.metrics.RecordConnectEnd(true)

	r.mu.Lock()
	cancelled := r.gen != gen
	r.mu.Unlock()
	if cancelled {
		r.channel.Close(ReasonStopped)
		return ErrRecordingCancelled
	}
	return nil
}

// Stop closes the channel gracefully and releases the pipeline.
// Safe to call at any time, including while Start is in progress.
func (r *Recorder) Stop(reason string) {
	r.mu.Lock()
	r.gen++
	abort := r.abort
	r.abort = nil
	r.mu.Unlock()

	if err := r.channel.Close(reason); err != nil {
		logger := observability.WithComponent("interview")
		logger.Debug().Err(err).Msg("Channel close returned error")
	}
	// Ends a connect still in flight
	if abort != nil {
		abort()
	}
	r.release()
}

// release stops the pipeline if one is held
func (r *Recorder) release() {
	r.mu.Lock()
	pipeline := r.pipeline
	r.pipeline = nil
	r.mu.Unlock()

	if pipeline != nil {
		pipeline.Stop()
		r.metrics.RecordRecordingEnd()
	}
}
