package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeDevice hands out streams of a constant signal and tracks how many are open
type fakeDevice struct {
	rate      int
	value     float32
	openErr   error
	closeErr  error
	open      atomic.Int32
	maxOpen   atomic.Int32
	opened    atomic.Int32
	lastOpts  DeviceOptions
	optsMutex sync.Mutex
}

func (d *fakeDevice) Open(ctx context.Context, opts DeviceOptions) (Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.optsMutex.Lock()
	d.lastOpts = opts
	d.optsMutex.Unlock()

	n := d.open.Add(1)
	d.opened.Add(1)
	for {
		peak := d.maxOpen.Load()
		if n <= peak || d.maxOpen.CompareAndSwap(peak, n) {
			break
		}
	}
	return &fakeStream{device: d, closed: make(chan struct{})}, nil
}

type fakeStream struct {
	device    *fakeDevice
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *fakeStream) Read(p []float32) (int, error) {
	select {
	case <-s.closed:
		return 0, os.ErrClosed
	case <-time.After(time.Millisecond):
	}
	for i := range p {
		p[i] = s.device.value
	}
	return len(p), nil
}

func (s *fakeStream) SampleRate() int {
	return s.device.rate
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.device.open.Add(-1)
	})
	return s.device.closeErr
}

func TestPipeline_EmitsFixedFrames(t *testing.T) {
	device := &fakeDevice{rate: 16000, value: 0.5}
	frames := make(chan Frame, 16)

	p, err := StartPipeline(context.Background(), device, PipelineConfig{SampleRate: 16000, BufferSize: 4096}, func(f Frame) {
		select {
		case frames <- f:
		default:
		}
	})
	if err != nil {
		t.Fatalf("StartPipeline failed: %v", err)
	}
	defer p.Stop()

	select {
	case f := <-frames:
		if f.Samples != 4096 {
			t.Errorf("Expected 4096 samples per frame, got %d", f.Samples)
		}
		if len(f.PCM) != 8192 {
			t.Errorf("Expected 8192 PCM bytes, got %d", len(f.PCM))
		}
		if v := int16(binary.LittleEndian.Uint16(f.PCM)); v != 16383 {
			t.Errorf("Expected first sample 16383, got %d", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for a frame")
	}

	device.optsMutex.Lock()
	opts := device.lastOpts
	device.optsMutex.Unlock()
	if !opts.EchoCancellation || !opts.NoiseSuppression {
		t.Error("Expected echo cancellation and noise suppression to be requested")
	}
	if opts.Channels != 1 {
		t.Errorf("Expected mono capture, got %d channels", opts.Channels)
	}
}

func TestPipeline_StopStartNeverLeaks(t *testing.T) {
	device := &fakeDevice{rate: 16000, value: 0.1}
	cfg := PipelineConfig{SampleRate: 16000, BufferSize: 1024}
	sink := func(Frame) {}

	var p *Pipeline
	for i := 0; i < 2; i++ {
		p.Stop()

		var err error
		p, err = StartPipeline(context.Background(), device, cfg, sink)
		if err != nil {
			t.Fatalf("StartPipeline failed on iteration %d: %v", i, err)
		}
		if open := device.open.Load(); open != 1 {
			t.Errorf("Expected exactly 1 open stream on iteration %d, got %d", i, open)
		}
	}

	p.Stop()
	p.Stop()

	if open := device.open.Load(); open != 0 {
		t.Errorf("Expected 0 open streams after stop, got %d", open)
	}
	if peak := device.maxOpen.Load(); peak > 1 {
		t.Errorf("Expected at most 1 concurrent stream, got %d", peak)
	}
	if opened := device.opened.Load(); opened != 2 {
		t.Errorf("Expected 2 opens, got %d", opened)
	}
}

func TestPipeline_OpenErrors(t *testing.T) {
	for _, sentinel := range []error{ErrPermissionDenied, ErrDeviceUnavailable} {
		device := &fakeDevice{rate: 16000, openErr: sentinel}
		_, err := StartPipeline(context.Background(), device, PipelineConfig{SampleRate: 16000, BufferSize: 4096}, func(Frame) {})
		if !errors.Is(err, sentinel) {
			t.Errorf("Expected %v, got %v", sentinel, err)
		}
	}

	if _, err := StartPipeline(context.Background(), nil, PipelineConfig{SampleRate: 16000, BufferSize: 4096}, func(Frame) {}); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Expected ErrDeviceUnavailable for nil device, got %v", err)
	}
}

func TestPipeline_RollsBackPartialAcquisition(t *testing.T) {
	device := &fakeDevice{rate: 0}

	_, err := StartPipeline(context.Background(), device, PipelineConfig{SampleRate: 16000, BufferSize: 4096}, func(Frame) {})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("Expected ErrDeviceUnavailable, got %v", err)
	}
	if open := device.open.Load(); open != 0 {
		t.Errorf("Expected the stream to be closed on failure, %d still open", open)
	}
}

func TestPipeline_ContextCancelStopsCapture(t *testing.T) {
	device := &fakeDevice{rate: 16000, value: 0.1}
	ctx, cancel := context.WithCancel(context.Background())

	p, err := StartPipeline(ctx, device, PipelineConfig{SampleRate: 16000, BufferSize: 1024}, func(Frame) {})
	if err != nil {
		t.Fatalf("StartPipeline failed: %v", err)
	}

	cancel()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Expected capture goroutine to exit after cancel")
	}

	p.Stop()
	if open := device.open.Load(); open != 0 {
		t.Errorf("Expected 0 open streams, got %d", open)
	}
}

func TestPipeline_SpeechCallback(t *testing.T) {
	device := &fakeDevice{rate: 16000, value: 0.4}
	speaking := make(chan bool, 4)

	p, err := StartPipeline(context.Background(), device, PipelineConfig{
		SampleRate: 16000,
		BufferSize: 1024,
		OnSpeech: func(s bool) {
			select {
			case speaking <- s:
			default:
			}
		},
	}, func(Frame) {})
	if err != nil {
		t.Fatalf("StartPipeline failed: %v", err)
	}
	defer p.Stop()

	select {
	case s := <-speaking:
		if !s {
			t.Error("Expected speech start for a loud signal")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for speech callback")
	}
}

func TestPipeline_StopNil(t *testing.T) {
	var p *Pipeline
	p.Stop()
}

func TestPipeline_StopWithCloseError(t *testing.T) {
	device := &fakeDevice{rate: 16000, value: 0.1, closeErr: errors.New("device busy")}
	p, err := StartPipeline(context.Background(), device, PipelineConfig{SampleRate: 16000, BufferSize: 1024}, func(Frame) {})
	if err != nil {
		t.Fatalf("StartPipeline failed: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		p.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after a failing stream close")
	}
	if open := device.open.Load(); open != 0 {
		t.Errorf("Expected 0 open streams after stop, got %d", open)
	}
}
