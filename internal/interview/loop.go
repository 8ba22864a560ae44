package interview

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/prepmate/interview-client/internal/audio"
	"github.com/prepmate/interview-client/internal/backend"
	"github.com/prepmate/interview-client/internal/events"
	"github.com/prepmate/interview-client/internal/observability"
	"github.com/prepmate/interview-client/internal/transcription"
)

// User-facing notices
const (
	MsgTranscriptionReady  = "Voice transcription ready!"
	MsgTranscriptionFailed = "Failed to initialize voice transcription service"
	MsgNotReady            = "Transcription service not ready"
	MsgConnecting          = "Please wait, connecting to transcription service..."
	MsgRecordingStarted    = "Voice recording started!"
	MsgPermissionDenied    = "Microphone permission denied. Please allow microphone access."
	MsgStartFailed         = "Failed to start recording: "
	MsgTranscriptionError  = "Transcription error: "
	MsgInvalidCredential   = "Invalid API key. Please check your configuration."
	MsgAuthFailed          = "Authentication failed. Please refresh and try again."
	MsgConnectionLost      = "Transcription connection lost"
	MsgAudioDeviceError    = "Audio device error: "
	MsgInterviewCompleted  = "Interview completed successfully!"
	MsgSubmitFailed        = "Failed to submit interview. Please try again."
	MsgSavedLocally        = "Results saved locally. Run 'prepmate sync' to upload them later."
)

// NoticeLevel is the severity of a notice
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Notice is a transient message for the user
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier shows notices to the user
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Submitter sends completed interviews to the backend
type Submitter interface {
	CompleteInterview(ctx context.Context, req backend.CompleteRequest) (*backend.CompleteResponse, error)
}

// ResultStore keeps finished interviews locally
type ResultStore interface {
	SaveResult(ctx context.Context, r Result) error
}

// TranscriptPublisher mirrors reconciled transcript updates
type TranscriptPublisher interface {
	PublishTranscript(ctx context.Context, event events.TranscriptEvent) error
}

// ConfigureFunc negotiates the transcription session once per interview
type ConfigureFunc func(ctx context.Context) (*transcription.Session, error)

// CommandKind identifies a user command
type CommandKind int

const (
	CommandRecord CommandKind = iota // toggle the microphone
	CommandNext
	CommandSkip
	CommandEnd
	CommandType // replace the answer with Text
)

// Command is one user action
type Command struct {
	Kind CommandKind
	Text string
}

// Snapshot is the view state rendered after every change
type Snapshot struct {
	Phase      Phase
	Index      int
	Total      int
	Question   string
	Display    string
	Remaining  int
	Elapsed    int
	Recording  bool
	Connecting bool
	Speaking   bool
	Status     transcription.Status
}

// LoopConfig wires a Loop
type LoopConfig struct {
	Session   *Session
	Recorder  *Recorder
	Configure ConfigureFunc
	Submitter Submitter
	Results   ResultStore         // optional
	Publisher TranscriptPublisher // optional
	Notifier  Notifier            // optional
	OnUpdate  func(Snapshot)      // optional

	// Ticks drives the countdown; one second per tick when nil
	Ticks <-chan time.Time

	Metrics       *observability.SessionMetrics
	CorrelationID string
}

type configureOutcome struct {
	session *transcription.Session
	err     error
}

// Loop is the single goroutine that owns a Session. Timer ticks, channel
// events and user commands are applied one at a time from one select.
type Loop struct {
	session   *Session
	recorder  *Recorder
	configure ConfigureFunc
	submitter Submitter
	results   ResultStore
	publisher TranscriptPublisher
	notifier  Notifier
	onUpdate  func(Snapshot)
	ticks     <-chan time.Time
	metrics   *observability.SessionMetrics
	logger    zerolog.Logger
	corrID    string

	commands   chan Command
	configured chan configureOutcome
	started    chan error
	speech     chan bool
	deviceErr  chan error
	done       chan struct{}

	ts          *transcription.Session
	configuring bool
	configErr   error
	connecting  bool
	abandoned   bool // stop was requested while connecting
}

// NewLoop creates a loop for a running session
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.Notifier == nil {
		cfg.Notifier = NotifierFunc(func(Notice) {})
	}
	if cfg.CorrelationID == "" {
		cfg.CorrelationID = observability.NewCorrelationID()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NewSessionMetrics(cfg.Session.Plan().InterviewID)
	}

	return &Loop{
		session:    cfg.Session,
		recorder:   cfg.Recorder,
		configure:  cfg.Configure,
		submitter:  cfg.Submitter,
		results:    cfg.Results,
		publisher:  cfg.Publisher,
		notifier:   cfg.Notifier,
		onUpdate:   cfg.OnUpdate,
		ticks:      cfg.Ticks,
		metrics:    cfg.Metrics,
		logger:     observability.WithInterview(cfg.Session.Plan().InterviewID, cfg.CorrelationID),
		corrID:     cfg.CorrelationID,
		commands:   make(chan Command, 16),
		configured: make(chan configureOutcome, 1),
		started:    make(chan error, 1),
		speech:     make(chan bool, 8),
		deviceErr:  make(chan error, 1),
		done:       make(chan struct{}),
	}
}

// Send queues a command. It returns false once the loop has exited.
func (l *Loop) Send(cmd Command) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.commands <- cmd:
		return true
	case <-l.done:
		return false
	}
}

// Done is closed when Run returns
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run drives the session until it is submitted or ctx is cancelled.
// On return the channel is closed and the pipeline released.
func (l *Loop) Run(ctx context.Context) (*Result, error) {
	defer close(l.done)
	defer l.recorder.Stop(ReasonUnmounted)

	l.metrics.RecordSessionStart()
	l.logger.Info().
		Str("role", l.session.Plan().Config.Role).
		Int("questions", l.session.Total()).
		Int("remaining", l.session.Clock().Remaining).
		Msg("Interview started")

	ticks := l.ticks
	if ticks == nil {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		ticks = ticker.C
	}

	l.configuring = true
	go func() {
		ts, err := l.configure(ctx)
		l.configured <- configureOutcome{session: ts, err: err}
	}()

	channelEvents := l.recorder.Channel().Events()
	l.render()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info().Msg("Interview cancelled")
			return nil, ctx.Err()
		case <-ticks:
			l.session.Tick()
		case cmd := <-l.commands:
			l.handleCommand(ctx, cmd)
		case ev := <-channelEvents:
			l.handleEvent(ctx, ev)
		case out := <-l.configured:
			l.handleConfigured(out)
		case err := <-l.started:
			l.handleStarted(err)
		case speaking := <-l.speech:
			if l.session.recording {
				l.session.speaking = speaking
			}
		case err := <-l.deviceErr:
			l.handleDeviceError(err)
		}

		if l.session.Phase() == PhaseSubmitting {
			result := l.submit(ctx)
			l.render()
			return result, nil
		}
		l.render()
	}
}

func (l *Loop) snapshot() Snapshot {
	clock := l.session.Clock()
	status := l.recorder.Channel().Status()
	switch {
	case l.configuring:
		status = transcription.StatusInitializing
	case l.configErr != nil:
		status = transcription.StatusError
	case l.connecting && status == transcription.StatusIdle:
		status = transcription.StatusConnecting
	}
	return Snapshot{
		Phase:      l.session.Phase(),
		Index:      l.session.Index(),
		Total:      l.session.Total(),
		Question:   l.session.Question(),
		Display:    l.session.Buffer().Display(),
		Remaining:  clock.Remaining,
		Elapsed:    clock.Elapsed,
		Recording:  l.session.Recording(),
		Connecting: l.connecting,
		Speaking:   l.session.Speaking(),
		Status:     status,
	}
}

func (l *Loop) render() {
	if l.onUpdate != nil {
		l.onUpdate(l.snapshot())
	}
}

func (l *Loop) notify(level NoticeLevel, msg string) {
	l.notifier.Notify(Notice{Level: level, Message: msg})
}

func (l *Loop) handleConfigured(out configureOutcome) {
	l.configuring = false
	if out.err != nil {
		l.configErr = out.err
		l.logger.Error().Err(out.err).Msg("Failed to get realtime configuration")
		l.metrics.RecordError("config_unavailable", "transcription")
		l.notify(NoticeError, MsgTranscriptionFailed)
		return
	}
	l.ts = out.session
	l.logger.Info().Int("sample_rate", out.session.SampleRate).Msg("Transcription configured")
	l.notify(NoticeSuccess, MsgTranscriptionReady)
}

func (l *Loop) handleCommand(ctx context.Context, cmd Command) {
	if l.session.Phase() != PhaseRunning {
		return
	}

	switch cmd.Kind {
	case CommandRecord:
		if l.session.Recording() {
			l.stopRecording()
			return
		}
		l.startRecording(ctx)

	case CommandNext:
		l.stopRecording()
		if _, err := l.session.Next(); err != nil {
			l.notify(NoticeError, err.Error())
		}

	case CommandSkip:
		l.stopRecording()
		if _, err := l.session.Skip(); err != nil {
			l.notify(NoticeError, err.Error())
		}

	case CommandEnd:
		l.stopRecording()
		if err := l.session.End(); err != nil {
			l.notify(NoticeError, err.Error())
		}

	case CommandType:
		if err := l.session.Type(cmd.Text); err != nil {
			l.notify(NoticeError, err.Error())
		}
	}
}

func (l *Loop) startRecording(ctx context.Context) {
	if l.ts == nil {
		l.notify(NoticeError, MsgNotReady)
		return
	}
	if l.connecting {
		l.notify(NoticeError, MsgConnecting)
		return
	}

	l.connecting = true
	session := l.ts
	onSpeech := func(speaking bool) {
		select {
		case l.speech <- speaking:
		default:
		}
	}
	onError := func(err error) {
		select {
		case l.deviceErr <- err:
		default:
		}
	}

	go func() {
		l.started <- l.recorder.Start(ctx, session, onSpeech, onError)
	}()
}

func (l *Loop) handleStarted(err error) {
	l.connecting = false

	if l.abandoned || l.session.Phase() != PhaseRunning {
		l.abandoned = false
		l.recorder.Stop(ReasonStopped)
		return
	}

	if err != nil {
		if errors.Is(err, ErrRecordingCancelled) {
			return
		}
		l.logger.Error().Err(err).Msg("Failed to start recording")
		l.metrics.RecordError("start_failed", "recorder")
		if errors.Is(err, audio.ErrPermissionDenied) {
			l.notify(NoticeError, MsgPermissionDenied)
			return
		}
		l.notify(NoticeError, MsgStartFailed+err.Error())
		return
	}

	// The server may have closed before this result was read
	if l.recorder.Channel().Status() != transcription.StatusConnected {
		l.recorder.Stop(ReasonStopped)
		return
	}

	l.session.setRecording(true)
	l.logger.Info().Uint64("conn_id", l.recorder.Channel().ConnID()).Msg("Recording started")
	l.notify(NoticeSuccess, MsgRecordingStarted)
}

// stopRecording releases the microphone and closes the channel gracefully
func (l *Loop) stopRecording() {
	if l.connecting {
		l.abandoned = true
	}
	if !l.session.Recording() && !l.recorder.Active() && !l.connecting {
		return
	}
	l.recorder.Stop(ReasonStopped)
	l.session.setRecording(false)
	l.logger.Info().Msg("Recording stopped")
}

func (l *Loop) handleDeviceError(err error) {
	if !l.session.Recording() {
		return
	}
	l.recorder.Stop(ReasonStopped)
	l.session.setRecording(false)
	l.metrics.RecordError("device_failed", "recorder")
	l.notify(NoticeError, MsgAudioDeviceError+err.Error())
}

func (l *Loop) handleEvent(ctx context.Context, ev transcription.Event) {
	if ev.ConnID != l.recorder.Channel().ConnID() {
		l.logger.Debug().Uint64("conn_id", ev.ConnID).Str("kind", ev.Kind.String()).Msg("Dropping event from stale connection")
		return
	}

	switch ev.Kind {
	case transcription.EventPartial, transcription.EventFinal:
		if !l.session.Recording() || l.session.Phase() != PhaseRunning {
			return
		}
		buffer := l.session.Buffer()
		final := ev.Kind == transcription.EventFinal
		var applied bool
		if final {
			applied = buffer.ApplyFinal(ev.Text)
		} else {
			applied = buffer.ApplyPartial(ev.Text)
		}
		if applied {
			l.publish(ctx, final, ev.Text)
		}

	case transcription.EventError:
		l.logger.Warn().Str("error", ev.Message).Msg("Transcription service error")
		l.metrics.RecordError("service_error", "transcription")
		l.notify(NoticeError, MsgTranscriptionError+ev.Message)

	case transcription.EventClosed:
		wasRecording := l.session.Recording()
		if wasRecording || l.recorder.Active() {
			l.recorder.Stop(ReasonStopped)
		}
		l.session.setRecording(false)

		switch ev.Condition {
		case transcription.CloseInvalidCredential:
			l.notify(NoticeError, MsgInvalidCredential)
		case transcription.CloseAuthFailed:
			l.notify(NoticeError, MsgAuthFailed)
		case transcription.CloseConnectionLost:
			if wasRecording {
				l.notify(NoticeError, MsgConnectionLost)
			}
		}
	}
}

func (l *Loop) publish(ctx context.Context, final bool, text string) {
	if l.publisher == nil {
		return
	}
	typ := events.TypePartial
	if final {
		typ = events.TypeFinal
	}
	err := l.publisher.PublishTranscript(ctx, events.TranscriptEvent{
		InterviewID:   l.session.Plan().InterviewID,
		CorrelationID: l.corrID,
		QuestionIndex: l.session.Index(),
		Question:      l.session.Question(),
		Type:          typ,
		Text:          text,
		Display:       l.session.Buffer().Display(),
		Timestamp:     time.Now(),
	})
	if err != nil {
		l.logger.Debug().Err(err).Msg("Transcript mirror write failed")
	}
}

// submit stops recording, sends the answers and stores the result.
// A failed submission still finishes the session.
func (l *Loop) submit(ctx context.Context) *Result {
	l.recorder.Stop(ReasonStopped)
	l.render()

	req := l.session.CompletionRequest()
	l.logger.Info().
		Str("trigger", l.session.Trigger()).
		Int("elapsed", req.TimeElapsed).
		Int("answers", len(req.Answers)).
		Msg("Submitting interview")

	resp, err := l.submitter.CompleteInterview(ctx, req)
	if err != nil {
		l.logger.Error().Err(err).Msg("Error completing interview")
		if errors.Is(err, backend.ErrUnauthorized) {
			l.notify(NoticeError, err.Error())
		}
		l.notify(NoticeError, MsgSubmitFailed)
	} else {
		l.notify(NoticeSuccess, MsgInterviewCompleted)
	}

	result := l.session.MarkSubmitted(resp, err)
	l.metrics.RecordSubmission(result.Synced, l.session.Trigger(), result.TimeElapsed)

	if l.results != nil {
		if serr := l.results.SaveResult(context.WithoutCancel(ctx), *result); serr != nil {
			l.logger.Error().Err(serr).Msg("Failed to save result locally")
		} else if !result.Synced {
			l.notify(NoticeInfo, MsgSavedLocally)
		}
	}

	return result
}
