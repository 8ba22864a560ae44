package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prepmate/interview-client/internal/audio"
	"github.com/prepmate/interview-client/internal/config"
	"github.com/prepmate/interview-client/internal/observability"
)

const providerRealtime = "realtime"

// Message types sent by the realtime service
const (
	messagePartialTranscript = "PartialTranscript"
	messageFinalTranscript   = "FinalTranscript"
)

// audioMessage carries one base64 PCM16 frame
type audioMessage struct {
	AudioData string `json:"audio_data"`
}

// terminateMessage asks the service to flush and end the session
type terminateMessage struct {
	TerminateSession bool `json:"terminate_session"`
}

// serverMessage is any message received from the service
type serverMessage struct {
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
	Error       string `json:"error"`
}

// wsConn is one dialed connection. A Channel replaces it on every Open.
type wsConn struct {
	id      uint64
	conn    *websocket.Conn
	done    chan struct{}
	once    sync.Once
	writeMu sync.Mutex
	closing atomic.Bool // set when this side initiated the close
}

func (w *wsConn) write(v any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *wsConn) shutdown() {
	w.once.Do(func() {
		close(w.done)
		w.conn.Close()
	})
}

// WSChannel speaks the realtime transcription protocol over gorilla/websocket
type WSChannel struct {
	dialer      websocket.Dialer
	gracePeriod time.Duration
	events      chan Event
	logger      zerolog.Logger

	mu         sync.Mutex
	session    *Session
	current    *wsConn
	connID     uint64
	dialCancel context.CancelFunc
}

// NewWSChannel creates a channel for the backend-issued realtime endpoint
func NewWSChannel(cfg *config.Config) *WSChannel {
	return &WSChannel{
		dialer: websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: 0, // a stalled connect stays in connecting until Close cancels it
			ReadBufferSize:   4096,
			WriteBufferSize:  16384,
		},
		gracePeriod: time.Duration(cfg.CloseGracePeriod) * time.Millisecond,
		events:      make(chan Event, 256),
		logger:      observability.WithComponent("transcription").With().Str("provider", providerRealtime).Logger(),
	}
}

// Events returns the ordered event queue shared by every connection of this channel
func (c *WSChannel) Events() <-chan Event {
	return c.events
}

// Status returns the state of the session last passed to Open
func (c *WSChannel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return StatusIdle
	}
	return c.session.Status()
}

// ConnID identifies the most recent connection attempt
func (c *WSChannel) ConnID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

func (c *WSChannel) setStatus(status Status) {
	if c.session != nil {
		c.session.setStatus(status)
	}
	observability.UpdateChannelStatus(providerRealtime, status.String())
}

// endpointURL appends the negotiated sample rate to the session endpoint
func endpointURL(session *Session) (string, error) {
	u, err := url.Parse(session.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", session.Endpoint, err)
	}
	q := u.Query()
	q.Set("sample_rate", strconv.Itoa(session.SampleRate))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Open dials the endpoint, authenticating with the subprotocols "token" and the credential
func (c *WSChannel) Open(ctx context.Context, session *Session) error {
	if session == nil {
		return fmt.Errorf("%w: no session configured", ErrConnectFailed)
	}

	target, err := endpointURL(session)
	if err != nil {
		session.setStatus(StatusError)
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	c.mu.Lock()
	if c.session != nil {
		if st := c.session.Status(); st == StatusConnecting || st == StatusConnected {
			c.mu.Unlock()
			return ErrAlreadyOpen
		}
	}
	if c.current != nil {
		c.current.shutdown()
		c.current = nil
	}
	c.session = session
	c.connID++
	id := c.connID
	dialCtx, cancel := context.WithCancel(ctx)
	c.dialCancel = cancel
	c.setStatus(StatusConnecting)
	c.mu.Unlock()

	c.logger.Info().Uint64("conn_id", id).Int("sample_rate", session.SampleRate).Msg("Connecting to transcription service")

	dialer := c.dialer
	dialer.Subprotocols = []string{"token", session.Credential}

	// The handshake only honours deadlines, so cancellation closes the raw socket
	var stopAbort func() bool
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		netConn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		stopAbort = context.AfterFunc(dialCtx, func() { netConn.Close() })
		return netConn, nil
	}

	conn, resp, err := dialer.DialContext(dialCtx, target, nil)
	if stopAbort != nil && !stopAbort() && err == nil {
		conn.Close()
		conn = nil
		err = dialCtx.Err()
	}
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connID != id {
		// Close ran while dialing
		if conn != nil {
			conn.Close()
		}
		return fmt.Errorf("%w: closed while connecting", ErrConnectFailed)
	}
	c.dialCancel = nil

	if err != nil {
		c.setStatus(StatusError)
		if resp != nil {
			c.logger.Error().Err(err).Int("http_status", resp.StatusCode).Msg("Transcription handshake rejected")
			return fmt.Errorf("%w: handshake status %d: %v", ErrConnectFailed, resp.StatusCode, err)
		}
		c.logger.Error().Err(err).Msg("Failed to connect to transcription service")
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	wc := &wsConn{id: id, conn: conn, done: make(chan struct{})}
	c.current = wc
	c.setStatus(StatusConnected)
	go c.readLoop(wc)

	c.logger.Info().Uint64("conn_id", id).Msg("Transcription channel connected")
	return nil
}

func (c *WSChannel) readLoop(wc *wsConn) {
	for {
		_, data, err := wc.conn.ReadMessage()
		if err != nil {
			c.handleReadError(wc, err)
			return
		}
		c.dispatch(wc, data)
	}
}

func (c *WSChannel) dispatch(wc *wsConn, data []byte) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		observability.RecordMalformedMessage()
		c.logger.Warn().Err(err).Int("bytes", len(data)).Msg("Dropping malformed transcription message")
		return
	}

	var ev Event
	switch {
	case msg.Error != "":
		ev = Event{Kind: EventError, Message: msg.Error}
	case msg.MessageType == messagePartialTranscript:
		ev = Event{Kind: EventPartial, Text: msg.Text}
	case msg.MessageType == messageFinalTranscript:
		ev = Event{Kind: EventFinal, Text: msg.Text}
	default:
		c.logger.Debug().Str("message_type", msg.MessageType).Msg("Ignoring transcription message")
		return
	}

	if ev.Kind != EventError {
		observability.RecordTranscript(ev.Kind == EventFinal)
	}
	ev.ConnID = wc.id
	c.emit(wc, ev)
}

func (c *WSChannel) emit(wc *wsConn, ev Event) {
	select {
	case c.events <- ev:
	case <-wc.done:
	}
}

// handleReadError turns a read failure into a Closed event unless this side closed first
func (c *WSChannel) handleReadError(wc *wsConn, err error) {
	if wc.closing.Load() {
		return
	}

	code := websocket.CloseAbnormalClosure
	reason := err.Error()
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = closeErr.Code
		reason = closeErr.Text
	}
	condition := ClassifyClose(code)

	c.mu.Lock()
	if c.current == wc {
		c.setStatus(StatusIdle)
	}
	c.mu.Unlock()

	observability.RecordChannelClose(condition.String())
	logEvent := c.logger.Warn()
	if condition == CloseNormal {
		logEvent = c.logger.Info()
	}
	logEvent.Int("code", code).Str("reason", reason).Str("condition", condition.String()).Msg("Transcription channel closed by server")

	c.emit(wc, Event{Kind: EventClosed, Code: code, Message: reason, Condition: condition, ConnID: wc.id})
	wc.shutdown()
}

// Send writes one frame as {audio_data}. Dropped unless connected.
func (c *WSChannel) Send(frame audio.Frame) {
	c.mu.Lock()
	wc := c.current
	connected := c.session != nil && c.session.Status() == StatusConnected
	c.mu.Unlock()

	if !connected || wc == nil || wc.closing.Load() {
		observability.RecordFrameDropped("not_connected")
		return
	}

	if err := wc.write(audioMessage{AudioData: frame.Base64()}); err != nil {
		observability.RecordFrameDropped("write_error")
		c.logger.Debug().Err(err).Msg("Dropping audio frame")
		return
	}
	observability.RecordFrameSent(len(frame.PCM))
}

// Close sends {terminate_session:true}, waits the grace period, then closes with 1000 and reason
func (c *WSChannel) Close(reason string) error {
	c.mu.Lock()
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
		c.connID++
	}
	wc := c.current
	connected := wc != nil && c.session != nil && c.session.Status() == StatusConnected && !wc.closing.Load()
	if wc != nil {
		wc.closing.Store(true)
	}
	if c.session != nil {
		c.setStatus(StatusIdle)
	}
	c.mu.Unlock()

	if wc == nil {
		return nil
	}

	var err error
	if connected {
		if werr := wc.write(terminateMessage{TerminateSession: true}); werr != nil {
			c.logger.Debug().Err(werr).Msg("Failed to send terminate_session")
		}

		if c.gracePeriod > 0 {
			timer := time.NewTimer(c.gracePeriod)
			select {
			case <-timer.C:
			case <-wc.done:
				timer.Stop()
			}
		}

		wc.writeMu.Lock()
		err = wc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
			time.Now().Add(time.Second))
		wc.writeMu.Unlock()
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}

		observability.RecordChannelClose("client")
		c.logger.Info().Uint64("conn_id", wc.id).Str("reason", reason).Msg("Transcription channel closed")
	}

	wc.shutdown()
	return err
}
