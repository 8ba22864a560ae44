package audio

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// WAVDevice replays a 16-bit PCM WAV file as if it were the microphone
type WAVDevice struct {
	Path     string
	Realtime bool // pace reads at the file's sample rate
}

// WAVFormat is the fmt chunk of a PCM WAV file
type WAVFormat struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// ReadWAVHeader validates the RIFF header and advances r to the start of the data chunk.
// It returns the format and the data chunk length in bytes.
func ReadWAVHeader(r io.Reader) (WAVFormat, uint32, error) {
	var format WAVFormat

	header := make([]byte, 12)
	if _, err := io.ReadFull(r, header); err != nil {
		return format, 0, fmt.Errorf("failed to read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return format, 0, fmt.Errorf("not a valid WAV file")
	}

	haveFormat := false
	chunk := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, chunk); err != nil {
			return format, 0, fmt.Errorf("WAV data chunk not found: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return format, 0, fmt.Errorf("failed to read fmt chunk: %w", err)
			}
			if size < 16 {
				return format, 0, fmt.Errorf("fmt chunk too short (%d bytes)", size)
			}
			format.AudioFormat = binary.LittleEndian.Uint16(body[0:2])
			format.Channels = binary.LittleEndian.Uint16(body[2:4])
			format.SampleRate = binary.LittleEndian.Uint32(body[4:8])
			format.BitsPerSample = binary.LittleEndian.Uint16(body[14:16])
			haveFormat = true
		case "data":
			if !haveFormat {
				return format, 0, fmt.Errorf("data chunk before fmt chunk")
			}
			if format.AudioFormat != 1 || format.BitsPerSample != 16 {
				return format, 0, fmt.Errorf("only 16-bit PCM supported (format=%d bits=%d)",
					format.AudioFormat, format.BitsPerSample)
			}
			if format.Channels == 0 || format.SampleRate == 0 {
				return format, 0, fmt.Errorf("invalid WAV format: channels=%d sampleRate=%d",
					format.Channels, format.SampleRate)
			}
			return format, size, nil
		default:
			// chunks are word aligned
			skip := int64(size) + int64(size%2)
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return format, 0, fmt.Errorf("failed to skip %q chunk: %w", id, err)
			}
		}
	}
}

// Open opens the WAV file. A missing file reads as an unavailable device.
func (d *WAVDevice) Open(ctx context.Context, opts DeviceOptions) (Stream, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	reader := bufio.NewReader(f)
	format, dataLen, err := ReadWAVHeader(reader)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, d.Path, err)
	}

	return &wavStream{
		file:     f,
		data:     io.LimitReader(reader, int64(dataLen)),
		format:   format,
		realtime: d.Realtime,
		closed:   make(chan struct{}),
	}, nil
}

type wavStream struct {
	file      *os.File
	data      io.Reader
	format    WAVFormat
	realtime  bool
	raw       []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *wavStream) Read(p []float32) (int, error) {
	select {
	case <-s.closed:
		return 0, os.ErrClosed
	default:
	}

	channels := int(s.format.Channels)
	need := len(p) * channels * 2
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	n, err := io.ReadFull(s.data, raw)
	n -= n % (channels * 2)

	samples, convErr := PCM16ToFloat32(raw[:n])
	if convErr != nil {
		return 0, convErr
	}
	mono := Downmix(samples, channels)
	copy(p, mono)

	if s.realtime && len(mono) > 0 {
		pace := time.Duration(len(mono)) * time.Second / time.Duration(s.format.SampleRate)
		timer := time.NewTimer(pace)
		select {
		case <-timer.C:
		case <-s.closed:
			timer.Stop()
			return len(mono), os.ErrClosed
		}
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return len(mono), err
}

func (s *wavStream) SampleRate() int {
	return int(s.format.SampleRate)
}

func (s *wavStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.file.Close()
	})
	return err
}
