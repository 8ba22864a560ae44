package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/prepmate/interview-client/internal/observability"
)

// readChunk is the number of samples pulled from the device per read
const readChunk = 1024

// PipelineConfig configures a capture pipeline
type PipelineConfig struct {
	SampleRate int // rate expected by the transcription channel
	BufferSize int // samples per emitted frame
	VAD        *VADConfig

	// OnSpeech is called from the capture goroutine when the speaking state flips
	OnSpeech func(speaking bool)

	// OnError is called from the capture goroutine if the device fails mid-stream.
	// It must not call Stop.
	OnError func(err error)
}

// Pipeline owns one open device stream and the goroutine that turns it into frames.
// All resources are released together by Stop.
type Pipeline struct {
	stream   Stream
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartPipeline opens the device and begins emitting fixed-size encoded frames to sink.
// If anything after the device open fails, the stream is closed before returning.
func StartPipeline(ctx context.Context, device Device, cfg PipelineConfig, sink func(Frame)) (*Pipeline, error) {
	if device == nil {
		return nil, ErrDeviceUnavailable
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	}
	if cfg.BufferSize <= 0 {
		return nil, fmt.Errorf("invalid buffer size %d", cfg.BufferSize)
	}

	stream, err := device.Open(ctx, DefaultDeviceOptions(cfg.SampleRate))
	if err != nil {
		return nil, err
	}

	if stream.SampleRate() <= 0 {
		stream.Close()
		return nil, fmt.Errorf("%w: device reported sample rate %d", ErrDeviceUnavailable, stream.SampleRate())
	}

	pctx, cancel := context.WithCancel(ctx)
	p := &Pipeline{
		stream: stream,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go p.run(pctx, cfg, sink)

	return p, nil
}

func (p *Pipeline) run(ctx context.Context, cfg PipelineConfig, sink func(Frame)) {
	defer close(p.done)

	logger := observability.WithComponent("audio")
	buffer := NewSampleBuffer(cfg.BufferSize * 4)
	vad := NewVADDetector(cfg.VAD)
	chunk := make([]float32, readChunk)
	inputRate := p.stream.SampleRate()

	for {
		n, err := p.stream.Read(chunk)
		if n > 0 {
			samples := Resample(chunk[:n], inputRate, cfg.SampleRate)
			if written := buffer.Write(samples); written < len(samples) {
				observability.RecordFrameDropped("buffer_full")
			}

			for {
				frame, ok := buffer.NextFrame(cfg.BufferSize)
				if !ok {
					break
				}

				if _, started, ended := vad.ProcessFrame(frame); (started || ended) && cfg.OnSpeech != nil {
					cfg.OnSpeech(started)
				}

				sink(EncodeFrame(frame))
			}
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, io.EOF) {
				logger.Info().Msg("Audio stream ended")
			} else {
				logger.Error().Err(err).Msg("Audio stream read failed")
			}
			if cfg.OnError != nil {
				cfg.OnError(err)
			}
			return
		}

		if ctx.Err() != nil {
			return
		}
	}
}

// Stop cancels capture, closes the device stream and waits for the capture goroutine.
// It is safe on a nil pipeline and on repeated calls.
func (p *Pipeline) Stop() {
	if p == nil {
		return
	}

	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		if p.stream != nil {
			if err := p.stream.Close(); err != nil {
				logger := observability.WithComponent("audio")
				logger.Warn().Err(err).Msg("Failed to close audio stream")
			}
		}
		if p.done != nil {
			<-p.done
		}
	})
}

// Done is closed once the capture goroutine has exited
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}
