package audio

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// FFmpegDevice captures the microphone by running ffmpeg and reading raw f32le from stdout
type FFmpegDevice struct {
	Format string // ffmpeg input format: pulse, alsa, avfoundation, dshow
	Input  string // ffmpeg input name, e.g. "default" or ":0"
	Binary string // defaults to "ffmpeg" on PATH
}

// ffmpegArgs builds the capture command line.
// Echo cancellation has no ffmpeg filter; noise suppression and gain control map to afftdn and dynaudnorm.
func ffmpegArgs(format, input string, opts DeviceOptions) []string {
	channels := opts.Channels
	if channels <= 0 {
		channels = 1
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-f", format, "-i", input,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(opts.SampleRate),
	}

	var filters []string
	if opts.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	if opts.AutoGainControl {
		filters = append(filters, "dynaudnorm")
	}
	if len(filters) > 0 {
		args = append(args, "-af", strings.Join(filters, ","))
	}

	return append(args, "-f", "f32le", "-")
}

// classifyFFmpegError maps ffmpeg's stderr onto the capture error taxonomy
func classifyFFmpegError(stderr string, err error) error {
	msg := strings.TrimSpace(stderr)
	if msg == "" && err != nil {
		msg = err.Error()
	}

	lower := strings.ToLower(msg)
	for _, marker := range []string{"permission denied", "access denied", "operation not permitted"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
		}
	}
	return fmt.Errorf("%w: %s", ErrDeviceUnavailable, msg)
}

// Open starts ffmpeg and waits for the first samples so device errors surface here
func (d *FFmpegDevice) Open(ctx context.Context, opts DeviceOptions) (Stream, error) {
	bin := d.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	sctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(sctx, bin, ffmpegArgs(d.Format, d.Input, opts)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("%w: ffmpeg: %v", ErrDeviceUnavailable, err)
	}

	reader := bufio.NewReaderSize(stdout, 64*1024)
	if _, err := reader.Peek(4); err != nil {
		cancel()
		waitErr := cmd.Wait()
		return nil, classifyFFmpegError(stderr.String(), errors.Join(err, waitErr))
	}

	return &ffmpegStream{
		cmd:        cmd,
		reader:     reader,
		cancel:     cancel,
		sampleRate: opts.SampleRate,
	}, nil
}

type ffmpegStream struct {
	cmd        *exec.Cmd
	reader     *bufio.Reader
	cancel     context.CancelFunc
	sampleRate int
	closeOnce  sync.Once
	raw        []byte
}

func (s *ffmpegStream) Read(p []float32) (int, error) {
	if cap(s.raw) < len(p)*4 {
		s.raw = make([]byte, len(p)*4)
	}
	raw := s.raw[:len(p)*4]

	n, err := io.ReadFull(s.reader, raw)
	n -= n % 4

	samples, decodeErr := DecodeF32LE(raw[:n])
	if decodeErr != nil {
		return 0, decodeErr
	}
	copy(p, samples)

	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return len(samples), err
}

func (s *ffmpegStream) SampleRate() int {
	return s.sampleRate
}

func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		// ffmpeg exits with a signal error once killed
		_ = s.cmd.Wait()
	})
	return nil
}
