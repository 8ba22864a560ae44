package audio

import (
	"sync"
)

// SampleBuffer is a thread-safe ring of float samples.
// Capture appends variable-sized reads; the pipeline drains fixed-size frames.
type SampleBuffer struct {
	buf   []float32
	head  int
	count int
	mu    sync.Mutex
}

// NewSampleBuffer creates a buffer holding up to capacity samples
func NewSampleBuffer(capacity int) *SampleBuffer {
	return &SampleBuffer{
		buf: make([]float32, capacity),
	}
}

// Write appends samples and returns how many fit.
// Samples beyond capacity are dropped.
func (b *SampleBuffer) Write(samples []float32) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	written := 0
	for _, s := range samples {
		if b.count == len(b.buf) {
			break
		}
		b.buf[(b.head+b.count)%len(b.buf)] = s
		b.count++
		written++
	}
	return written
}

// NextFrame removes and returns exactly size samples, or false if fewer are buffered
func (b *SampleBuffer) NextFrame(size int) ([]float32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if size <= 0 || b.count < size {
		return nil, false
	}

	frame := make([]float32, size)
	for i := range frame {
		frame[i] = b.buf[b.head]
		b.head = (b.head + 1) % len(b.buf)
	}
	b.count -= size
	return frame, true
}

// Len returns the number of buffered samples
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the buffer capacity in samples
func (b *SampleBuffer) Cap() int {
	return len(b.buf)
}

// Clear discards buffered samples
func (b *SampleBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}
