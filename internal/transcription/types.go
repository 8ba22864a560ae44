// Package transcription streams encoded audio to a speech-to-text service
// and turns its replies into one ordered queue of events.
package transcription

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/prepmate/interview-client/internal/audio"
)

var (
	// ErrConfigUnavailable means connection parameters could not be fetched
	ErrConfigUnavailable = errors.New("transcription config unavailable")

	// ErrConnectFailed means the streaming connection could not be established
	ErrConnectFailed = errors.New("transcription connect failed")

	// ErrAlreadyOpen is returned by Open while a connection is connecting or connected
	ErrAlreadyOpen = errors.New("transcription channel already open")
)

// Status is the lifecycle state of a transcription session
type Status int

const (
	StatusIdle Status = iota
	StatusInitializing
	StatusConnecting
	StatusConnected
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInitializing:
		return "initializing"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Session holds the negotiated connection parameters.
// Status is the only field that changes after Configure.
type Session struct {
	SampleRate int
	Endpoint   string
	Credential string

	mu     sync.RWMutex
	status Status
}

// NewSession creates a session in the idle state
func NewSession(endpoint string, sampleRate int, credential string) *Session {
	return &Session{
		SampleRate: sampleRate,
		Endpoint:   endpoint,
		Credential: credential,
		status:     StatusIdle,
	}
}

// Status returns the current lifecycle state
func (s *Session) Status() Status {
	if s == nil {
		return StatusIdle
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// EventKind tags an Event
type EventKind int

const (
	EventPartial EventKind = iota
	EventFinal
	EventError
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventPartial:
		return "partial"
	case EventFinal:
		return "final"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// CloseCondition classifies a remote close
type CloseCondition int

const (
	CloseNormal CloseCondition = iota
	CloseConnectionLost
	CloseInvalidCredential
	CloseAuthFailed
)

func (c CloseCondition) String() string {
	switch c {
	case CloseNormal:
		return "normal"
	case CloseConnectionLost:
		return "connection_lost"
	case CloseInvalidCredential:
		return "invalid_credential"
	case CloseAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

// Close codes sent by the realtime service
const (
	CloseCodeInvalidCredential = 4008
	CloseCodeAuthFailed        = 4001
)

// ClassifyClose maps a WebSocket close code to a CloseCondition
func ClassifyClose(code int) CloseCondition {
	switch code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway:
		return CloseNormal
	case CloseCodeInvalidCredential:
		return CloseInvalidCredential
	case CloseCodeAuthFailed:
		return CloseAuthFailed
	default:
		return CloseConnectionLost
	}
}

// Event is one message from the channel.
// ConnID identifies the connection that produced it.
type Event struct {
	Kind      EventKind
	Text      string         // Partial, Final
	Message   string         // Error, Closed (close reason)
	Code      int            // Closed
	Condition CloseCondition // Closed
	ConnID    uint64
}

// Channel is a single bidirectional streaming connection to a transcription service
type Channel interface {
	// Open dials the service: idle -> connecting -> connected.
	// Failures wrap ErrConnectFailed and leave the session in StatusError.
	Open(ctx context.Context, session *Session) error

	// Send writes one frame. Frames are dropped unless connected. Never blocks on a closed channel.
	Send(frame audio.Frame)

	// Events delivers transcript, error and remote-close events in arrival order
	Events() <-chan Event

	// Close sends a graceful termination when connected, then tears down. Idempotent.
	Close(reason string) error

	// Status returns the lifecycle state of the current session
	Status() Status

	// ConnID identifies the most recent connection attempt
	ConnID() uint64
}
