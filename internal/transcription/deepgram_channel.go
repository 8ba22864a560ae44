package transcription

import (
	"context"
	"fmt"
	"sync"
	"time"

	websocketv1api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket"
	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listenClient "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/rs/zerolog"

	"github.com/prepmate/interview-client/internal/audio"
	"github.com/prepmate/interview-client/internal/config"
	"github.com/prepmate/interview-client/internal/observability"
	"github.com/prepmate/interview-client/internal/resilience"
)

const providerDeepgram = "deepgram"

// deepgramCallback embeds the SDK's default handler and overrides what the channel needs
type deepgramCallback struct {
	*websocketv1api.DefaultCallbackHandler
	channel *DeepgramChannel
	connID  uint64
}

func (d *deepgramCallback) Message(mr *msginterfaces.MessageResponse) error {
	d.channel.handleMessage(d.connID, mr)
	return nil
}

func (d *deepgramCallback) Error(er *msginterfaces.ErrorResponse) error {
	d.channel.handleError(d.connID, er)
	return nil
}

func (d *deepgramCallback) Close(cr *msginterfaces.CloseResponse) error {
	d.channel.handleClose(d.connID)
	return nil
}

// DeepgramChannel streams linear16 PCM straight to Deepgram with the v3 SDK.
// Sends go through a circuit breaker so a dead socket stops costing writes.
type DeepgramChannel struct {
	config         *config.Config
	events         chan Event
	circuitBreaker *resilience.CircuitBreaker
	logger         zerolog.Logger

	mu      sync.Mutex
	session *Session
	client  *listenClient.WSCallback
	cancel  context.CancelFunc
	connID  uint64
	closing bool
}

// NewDeepgramChannel creates a Deepgram streaming channel
func NewDeepgramChannel(cfg *config.Config) *DeepgramChannel {
	return &DeepgramChannel{
		config: cfg,
		events: make(chan Event, 256),
		circuitBreaker: resilience.NewCircuitBreaker(
			providerDeepgram,
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
		),
		logger: observability.WithComponent("transcription").With().Str("provider", providerDeepgram).Logger(),
	}
}

func (d *DeepgramChannel) Events() <-chan Event {
	return d.events
}

func (d *DeepgramChannel) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return StatusIdle
	}
	return d.session.Status()
}

func (d *DeepgramChannel) ConnID() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connID
}

func (d *DeepgramChannel) setStatus(status Status) {
	if d.session != nil {
		d.session.setStatus(status)
	}
	observability.UpdateChannelStatus(providerDeepgram, status.String())
}

// Open creates the SDK client and connects
func (d *DeepgramChannel) Open(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("%w: no session configured", ErrConnectFailed)
	}

	d.mu.Lock()
	if d.session != nil {
		if st := d.session.Status(); st == StatusConnecting || st == StatusConnected {
			d.mu.Unlock()
			return ErrAlreadyOpen
		}
	}
	d.session = session
	d.connID++
	id := d.connID
	d.closing = false
	d.setStatus(StatusConnecting)
	d.mu.Unlock()

	tOptions := &interfaces.LiveTranscriptionOptions{
		Model:          d.config.DeepgramModel,
		Language:       d.config.DeepgramLanguage,
		Punctuate:      true,
		InterimResults: true,
		UtteranceEndMs: "1000",
		VadEvents:      true,
		Encoding:       "linear16",
		Channels:       1,
		SampleRate:     session.SampleRate,
	}

	callback := &deepgramCallback{
		DefaultCallbackHandler: websocketv1api.NewDefaultCallbackHandler(),
		channel:                d,
		connID:                 id,
	}

	cctx, cancel := context.WithCancel(ctx)
	client, err := listenClient.NewWSUsingCallback(cctx, session.Credential, nil, tOptions, callback)
	if err != nil {
		cancel()
		d.failOpen(id, err)
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	if !client.Connect() {
		cancel()
		d.failOpen(id, fmt.Errorf("connect returned false"))
		return fmt.Errorf("%w: deepgram connect failed", ErrConnectFailed)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connID != id {
		client.Finish()
		cancel()
		return fmt.Errorf("%w: closed while connecting", ErrConnectFailed)
	}
	d.client = client
	d.cancel = cancel
	d.setStatus(StatusConnected)
	d.circuitBreaker.Reset()

	d.logger.Info().
		Uint64("conn_id", id).
		Str("model", d.config.DeepgramModel).
		Str("language", d.config.DeepgramLanguage).
		Msg("Deepgram streaming client started")
	return nil
}

func (d *DeepgramChannel) failOpen(id uint64, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connID == id {
		d.setStatus(StatusError)
	}
	d.logger.Error().Err(err).Msg("Failed to connect to Deepgram")
}

func (d *DeepgramChannel) handleMessage(id uint64, msg *msginterfaces.MessageResponse) {
	if msg == nil || len(msg.Channel.Alternatives) == 0 {
		return
	}

	text := msg.Channel.Alternatives[0].Transcript
	if text == "" {
		return
	}

	kind := EventPartial
	if msg.IsFinal {
		kind = EventFinal
	}
	observability.RecordTranscript(msg.IsFinal)
	d.emit(Event{Kind: kind, Text: text, ConnID: id})
}

func (d *DeepgramChannel) handleError(id uint64, er *msginterfaces.ErrorResponse) {
	d.circuitBreaker.RecordResult(false)
	d.logger.Error().Str("error", fmt.Sprintf("%+v", er)).Msg("Deepgram error")
	d.emit(Event{Kind: EventError, Message: fmt.Sprintf("%+v", er), ConnID: id})
}

func (d *DeepgramChannel) handleClose(id uint64) {
	d.mu.Lock()
	if d.closing || d.connID != id {
		d.mu.Unlock()
		return
	}
	d.setStatus(StatusIdle)
	d.mu.Unlock()

	observability.RecordChannelClose(CloseConnectionLost.String())
	d.logger.Warn().Uint64("conn_id", id).Msg("Deepgram connection closed")
	d.emit(Event{Kind: EventClosed, Condition: CloseConnectionLost, Code: 1006, ConnID: id})
}

// emit never blocks the SDK's read goroutine; a full queue drops the event
func (d *DeepgramChannel) emit(ev Event) {
	select {
	case d.events <- ev:
	default:
		d.logger.Warn().Str("kind", ev.Kind.String()).Msg("Event queue full, dropping transcription event")
	}
}

// Send writes raw linear16 PCM
func (d *DeepgramChannel) Send(frame audio.Frame) {
	d.mu.Lock()
	client := d.client
	connected := d.session != nil && d.session.Status() == StatusConnected && !d.closing
	d.mu.Unlock()

	if !connected || client == nil {
		observability.RecordFrameDropped("not_connected")
		return
	}

	err := d.circuitBreaker.Call(func() error {
		_, err := client.Write(frame.PCM)
		return err
	})
	if err != nil {
		observability.RecordFrameDropped("write_error")
		d.logger.Debug().Err(err).Msg("Dropping audio frame")
		return
	}
	observability.RecordFrameSent(len(frame.PCM))
}

// Close asks Deepgram to flush and closes the stream
func (d *DeepgramChannel) Close(reason string) error {
	d.mu.Lock()
	if d.closing || d.client == nil {
		if d.session != nil && d.session.Status() != StatusError {
			d.setStatus(StatusIdle)
		}
		d.connID++
		d.closing = true
		d.mu.Unlock()
		return nil
	}
	d.closing = true
	client := d.client
	cancel := d.cancel
	d.client = nil
	d.cancel = nil
	d.setStatus(StatusIdle)
	d.mu.Unlock()

	// Finish sends CloseStream and tears the socket down
	client.Finish()
	if cancel != nil {
		cancel()
	}

	observability.RecordChannelClose("client")
	d.logger.Info().Str("reason", reason).Msg("Deepgram streaming client stopped")
	return nil
}
