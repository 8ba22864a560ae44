package interview

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prepmate/interview-client/internal/audio"
	"github.com/prepmate/interview-client/internal/backend"
	"github.com/prepmate/interview-client/internal/transcription"
)

// fakeDevice hands out silent streams and tracks how many are open at once
type fakeDevice struct {
	openErr error
	open    atomic.Int32
	maxOpen atomic.Int32
	opened  atomic.Int32
}

func (d *fakeDevice) Open(ctx context.Context, opts audio.DeviceOptions) (audio.Stream, error) {
	if d.openErr != nil {
		return nil, d.openErr
	}
	n := d.open.Add(1)
	d.opened.Add(1)
	for {
		peak := d.maxOpen.Load()
		if n <= peak || d.maxOpen.CompareAndSwap(peak, n) {
			break
		}
	}
	return &fakeStream{device: d, rate: opts.SampleRate, closed: make(chan struct{})}, nil
}

type fakeStream struct {
	device    *fakeDevice
	rate      int
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *fakeStream) Read(p []float32) (int, error) {
	select {
	case <-s.closed:
		return 0, os.ErrClosed
	case <-time.After(time.Millisecond):
	}
	clear(p)
	return len(p), nil
}

func (s *fakeStream) SampleRate() int {
	return s.rate
}

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.device.open.Add(-1)
	})
	return nil
}

// fakeChannel is an in-memory transcription channel
type fakeChannel struct {
	mu      sync.Mutex
	events  chan transcription.Event
	status  transcription.Status
	connID  uint64
	openErr error
	opens   int
	closes  []string
	frames  atomic.Int64

	stallNext bool          // the next Open blocks until Close
	dialing   chan struct{} // closed by Close to release a stalled Open
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{events: make(chan transcription.Event, 64)}
}

func (c *fakeChannel) Open(ctx context.Context, session *transcription.Session) error {
	c.mu.Lock()
	c.connID++
	c.opens++
	if c.openErr != nil {
		c.status = transcription.StatusError
		c.mu.Unlock()
		return c.openErr
	}
	if c.stallNext {
		c.stallNext = false
		dialing := make(chan struct{})
		c.dialing = dialing
		c.status = transcription.StatusConnecting
		c.mu.Unlock()

		select {
		case <-dialing:
		case <-ctx.Done():
		}
		return fmt.Errorf("%w: closed while connecting", transcription.ErrConnectFailed)
	}
	c.status = transcription.StatusConnected
	c.mu.Unlock()
	return nil
}

func (c *fakeChannel) Send(frame audio.Frame) {
	c.frames.Add(1)
}

func (c *fakeChannel) Events() <-chan transcription.Event {
	return c.events
}

func (c *fakeChannel) Close(reason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes = append(c.closes, reason)
	if c.dialing != nil {
		close(c.dialing)
		c.dialing = nil
	}
	if c.status != transcription.StatusError {
		c.status = transcription.StatusIdle
	}
	return nil
}

func (c *fakeChannel) Status() transcription.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *fakeChannel) ConnID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

func (c *fakeChannel) closeReasons() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.closes...)
}

// push delivers ev as if it came from the current connection
func (c *fakeChannel) push(ev transcription.Event) {
	c.mu.Lock()
	ev.ConnID = c.connID
	if ev.Kind == transcription.EventClosed {
		c.status = transcription.StatusIdle
	}
	c.mu.Unlock()
	c.events <- ev
}

type fakeSubmitter struct {
	mu   sync.Mutex
	reqs []backend.CompleteRequest
	resp *backend.CompleteResponse
	err  error
}

func (f *fakeSubmitter) CompleteInterview(ctx context.Context, req backend.CompleteRequest) (*backend.CompleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

type fakeResults struct {
	mu    sync.Mutex
	saved []Result
}

func (f *fakeResults) SaveResult(ctx context.Context, r Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, r)
	return nil
}

func testPlan(questions ...string) *Plan {
	return &Plan{
		InterviewID: "42",
		Config: backend.InterviewConfig{
			Role:          "Frontend Developer",
			Difficulty:    "Intermediate",
			QuestionCount: len(questions),
			TimeLimit:     5,
		},
		Questions: questions,
	}
}

func readyConfigure(ctx context.Context) (*transcription.Session, error) {
	return transcription.NewSession("ws://stt.test/ws", 16000, "temp-key"), nil
}

type runResult struct {
	result *Result
	err    error
}

// harness runs a Loop against fakes and records what the user would see
type harness struct {
	t         *testing.T
	loop      *Loop
	channel   *fakeChannel
	device    *fakeDevice
	submitter *fakeSubmitter
	results   *fakeResults
	ticks     chan time.Time
	cancel    context.CancelFunc
	done      chan runResult

	mu      sync.Mutex
	notices []Notice
	last    Snapshot
}

func newHarness(t *testing.T, plan *Plan, configure ConfigureFunc) *harness {
	t.Helper()
	if configure == nil {
		configure = readyConfigure
	}

	h := &harness{
		t:         t,
		channel:   newFakeChannel(),
		device:    &fakeDevice{},
		submitter: &fakeSubmitter{resp: &backend.CompleteResponse{Status: "completed"}},
		results:   &fakeResults{},
		ticks:     make(chan time.Time),
		done:      make(chan runResult, 1),
	}
	return h.withLoop(plan, configure)
}

func (h *harness) withLoop(plan *Plan, configure ConfigureFunc) *harness {
	h.loop = NewLoop(LoopConfig{
		Session:   NewSession(plan, 45),
		Recorder:  NewRecorder(h.device, h.channel, RecorderConfig{BufferSize: 256}),
		Configure: configure,
		Submitter: h.submitter,
		Results:   h.results,
		Notifier: NotifierFunc(func(n Notice) {
			h.mu.Lock()
			h.notices = append(h.notices, n)
			h.mu.Unlock()
		}),
		OnUpdate: func(s Snapshot) {
			h.mu.Lock()
			h.last = s
			h.mu.Unlock()
		},
		Ticks: h.ticks,
	})
	return h
}

func (h *harness) start() *harness {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.t.Cleanup(cancel)
	go func() {
		result, err := h.loop.Run(ctx)
		h.done <- runResult{result, err}
	}()
	return h
}

func (h *harness) send(kind CommandKind) {
	h.t.Helper()
	if !h.loop.Send(Command{Kind: kind}) {
		h.t.Fatalf("Loop exited before command %d", kind)
	}
}

func (h *harness) hasNotice(msg string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, n := range h.notices {
		if n.Message == msg {
			return true
		}
	}
	return false
}

func (h *harness) snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

func (h *harness) waitFor(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			h.t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func (h *harness) waitNotice(msg string) {
	h.t.Helper()
	h.waitFor("notice '"+msg+"'", func() bool { return h.hasNotice(msg) })
}

func (h *harness) waitSnapshot(what string, cond func(Snapshot) bool) {
	h.t.Helper()
	h.waitFor(what, func() bool { return cond(h.snapshot()) })
}

func (h *harness) startRecording() {
	h.t.Helper()
	h.waitNotice(MsgTranscriptionReady)
	h.send(CommandRecord)
	h.waitSnapshot("recording", func(s Snapshot) bool { return s.Recording })
}

func (h *harness) wait() runResult {
	h.t.Helper()
	select {
	case r := <-h.done:
		return r
	case <-time.After(2 * time.Second):
		h.t.Fatal("Timed out waiting for loop to finish")
		return runResult{}
	}
}
