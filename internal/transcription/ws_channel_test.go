package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prepmate/interview-client/internal/audio"
	"github.com/prepmate/interview-client/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		TranscriptionProvider:      config.ProviderRealtime,
		CloseGracePeriod:           10,
		CircuitBreakerMaxFailures:  5,
		CircuitBreakerResetTimeout: 30,
		DeepgramModel:              "nova-2",
		DeepgramLanguage:           "en",
	}
}

// newRealtimeServer upgrades with the "token" subprotocol and hands the connection to handler
func newRealtimeServer(t *testing.T, handler func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{Subprotocols: []string{"token"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// drain keeps the server side open until the client goes away
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func nextEvent(t *testing.T, ch *WSChannel) Event {
	t.Helper()
	select {
	case ev := <-ch.Events():
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for event")
		return Event{}
	}
}

func TestWSChannel_OpenSendsCredentialAndSampleRate(t *testing.T) {
	type handshake struct {
		protocols  string
		sampleRate string
	}
	seen := make(chan handshake, 1)

	srv := newRealtimeServer(t, func(conn *websocket.Conn, r *http.Request) {
		seen <- handshake{
			protocols:  r.Header.Get("Sec-WebSocket-Protocol"),
			sampleRate: r.URL.Query().Get("sample_rate"),
		}
		drain(conn)
	})

	ch := NewWSChannel(testConfig())
	session := NewSession(wsURL(srv), 16000, "temp-token")
	if err := ch.Open(context.Background(), session); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer ch.Close("test done")

	h := <-seen
	if h.protocols != "token, temp-token" {
		t.Errorf("Expected subprotocols 'token, temp-token', got '%s'", h.protocols)
	}
	if h.sampleRate != "16000" {
		t.Errorf("Expected sample_rate '16000', got '%s'", h.sampleRate)
	}
	if session.Status() != StatusConnected {
		t.Errorf("Expected status connected, got %s", session.Status())
	}
	if ch.ConnID() != 1 {
		t.Errorf("Expected ConnID 1, got %d", ch.ConnID())
	}
}

func TestWSChannel_OpenTwice(t *testing.T) {
	srv := newRealtimeServer(t, func(conn *websocket.Conn, r *http.Request) { drain(conn) })

	ch := NewWSChannel(testConfig())
	session := NewSession(wsURL(srv), 16000, "k")
	if err := ch.Open(context.Background(), session); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer ch.Close("test done")

	if err := ch.Open(context.Background(), session); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("Expected ErrAlreadyOpen, got %v", err)
	}
}

func TestWSChannel_DispatchesMessagesInOrder(t *testing.T) {
	srv := newRealtimeServer(t, func(conn *websocket.Conn, r *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"message_type":"PartialTranscript","text":"hel"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"message_type":"SessionBegins"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"message_type":"FinalTranscript","text":"hello"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"rate limited"}`))
		drain(conn)
	})

	ch := NewWSChannel(testConfig())
	session := NewSession(wsURL(srv), 16000, "k")
	if err := ch.Open(context.Background(), session); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer ch.Close("test done")

	ev := nextEvent(t, ch)
	if ev.Kind != EventPartial || ev.Text != "hel" {
		t.Errorf("Expected partial 'hel', got %s '%s'", ev.Kind, ev.Text)
	}
	if ev.ConnID != ch.ConnID() {
		t.Errorf("Expected ConnID %d, got %d", ch.ConnID(), ev.ConnID)
	}

	ev = nextEvent(t, ch)
	if ev.Kind != EventFinal || ev.Text != "hello" {
		t.Errorf("Expected final 'hello', got %s '%s'", ev.Kind, ev.Text)
	}

	ev = nextEvent(t, ch)
	if ev.Kind != EventError || ev.Message != "rate limited" {
		t.Errorf("Expected error 'rate limited', got %s '%s'", ev.Kind, ev.Message)
	}

	if session.Status() != StatusConnected {
		t.Errorf("Expected in-band error to keep status connected, got %s", session.Status())
	}
}

func TestWSChannel_RemoteClose(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		condition CloseCondition
	}{
		{"invalid credential", CloseCodeInvalidCredential, CloseInvalidCredential},
		{"auth failed", CloseCodeAuthFailed, CloseAuthFailed},
		{"normal", websocket.CloseNormalClosure, CloseNormal},
		{"other", 1011, CloseConnectionLost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newRealtimeServer(t, func(conn *websocket.Conn, r *http.Request) {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(tt.code, "bye"),
					time.Now().Add(time.Second))
				drain(conn)
			})

			ch := NewWSChannel(testConfig())
			session := NewSession(wsURL(srv), 16000, "k")
			if err := ch.Open(context.Background(), session); err != nil {
				t.Fatalf("Open() failed: %v", err)
			}

			ev := nextEvent(t, ch)
			if ev.Kind != EventClosed {
				t.Fatalf("Expected closed event, got %s", ev.Kind)
			}
			if ev.Code != tt.code {
				t.Errorf("Expected code %d, got %d", tt.code, ev.Code)
			}
			if ev.Condition != tt.condition {
				t.Errorf("Expected condition %s, got %s", tt.condition, ev.Condition)
			}
			if session.Status() != StatusIdle {
				t.Errorf("Expected status idle after remote close, got %s", session.Status())
			}

			if err := ch.Close("after remote close"); err != nil {
				t.Errorf("Expected nil from Close after remote close, got %v", err)
			}
		})
	}
}

func TestWSChannel_SendDroppedWhenNotConnected(t *testing.T) {
	ch := NewWSChannel(testConfig())
	ch.Send(audio.Frame{PCM: []byte{1, 0}, Samples: 1})

	if ch.Status() != StatusIdle {
		t.Errorf("Expected status idle, got %s", ch.Status())
	}
	if err := ch.Close("never opened"); err != nil {
		t.Errorf("Expected nil from Close on unopened channel, got %v", err)
	}
}

func TestWSChannel_CloseTerminatesGracefully(t *testing.T) {
	messages := make(chan []byte, 10)
	closed := make(chan *websocket.CloseError, 1)

	srv := newRealtimeServer(t, func(conn *websocket.Conn, r *http.Request) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				var ce *websocket.CloseError
				if errors.As(err, &ce) {
					closed <- ce
				}
				return
			}
			messages <- data
		}
	})

	ch := NewWSChannel(testConfig())
	session := NewSession(wsURL(srv), 16000, "k")
	if err := ch.Open(context.Background(), session); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}

	frame := audio.Frame{PCM: []byte{1, 0, 2, 0}, Samples: 2}
	ch.Send(frame)

	if err := ch.Close("Recording stopped by user"); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	var audioMsg audioMessage
	if err := json.Unmarshal(<-messages, &audioMsg); err != nil {
		t.Fatalf("Failed to parse audio message: %v", err)
	}
	if audioMsg.AudioData != frame.Base64() {
		t.Errorf("Expected audio_data '%s', got '%s'", frame.Base64(), audioMsg.AudioData)
	}

	var term terminateMessage
	if err := json.Unmarshal(<-messages, &term); err != nil {
		t.Fatalf("Failed to parse terminate message: %v", err)
	}
	if !term.TerminateSession {
		t.Error("Expected terminate_session true")
	}

	select {
	case ce := <-closed:
		if ce.Code != websocket.CloseNormalClosure {
			t.Errorf("Expected close code 1000, got %d", ce.Code)
		}
		if ce.Text != "Recording stopped by user" {
			t.Errorf("Expected close reason 'Recording stopped by user', got '%s'", ce.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for close frame")
	}

	if session.Status() != StatusIdle {
		t.Errorf("Expected status idle after Close, got %s", session.Status())
	}

	// Self-initiated close produces no Closed event
	select {
	case ev := <-ch.Events():
		t.Errorf("Expected no event after Close, got %s", ev.Kind)
	case <-time.After(100 * time.Millisecond):
	}

	if err := ch.Close("again"); err != nil {
		t.Errorf("Expected second Close to return nil, got %v", err)
	}

	// Frames after close are dropped without blocking
	ch.Send(frame)
}

func TestWSChannel_ReopenAdvancesConnID(t *testing.T) {
	srv := newRealtimeServer(t, func(conn *websocket.Conn, r *http.Request) { drain(conn) })

	ch := NewWSChannel(testConfig())
	if err := ch.Open(context.Background(), NewSession(wsURL(srv), 16000, "k")); err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	first := ch.ConnID()
	ch.Close("stop")

	if err := ch.Open(context.Background(), NewSession(wsURL(srv), 16000, "k")); err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer ch.Close("test done")

	if ch.ConnID() <= first {
		t.Errorf("Expected ConnID to advance past %d, got %d", first, ch.ConnID())
	}
}

func TestWSChannel_ConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ch := NewWSChannel(testConfig())
	session := NewSession(wsURL(srv), 16000, "k")
	err := ch.Open(context.Background(), session)
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("Expected ErrConnectFailed, got %v", err)
	}
	if session.Status() != StatusError {
		t.Errorf("Expected status error, got %s", session.Status())
	}

	// An errored session can be opened again
	if err := ch.Open(context.Background(), session); !errors.Is(err, ErrConnectFailed) {
		t.Errorf("Expected ErrConnectFailed on retry, got %v", err)
	}
}

func TestWSChannel_InvalidEndpoint(t *testing.T) {
	ch := NewWSChannel(testConfig())
	session := NewSession("://bad", 16000, "k")
	if err := ch.Open(context.Background(), session); !errors.Is(err, ErrConnectFailed) {
		t.Errorf("Expected ErrConnectFailed, got %v", err)
	}
	if session.Status() != StatusError {
		t.Errorf("Expected status error, got %s", session.Status())
	}
}

func TestClassifyClose(t *testing.T) {
	tests := []struct {
		code int
		want CloseCondition
	}{
		{1000, CloseNormal},
		{1001, CloseNormal},
		{1006, CloseConnectionLost},
		{4008, CloseInvalidCredential},
		{4001, CloseAuthFailed},
	}
	for _, tt := range tests {
		if got := ClassifyClose(tt.code); got != tt.want {
			t.Errorf("ClassifyClose(%d): expected %s, got %s", tt.code, tt.want, got)
		}
	}
}

func TestWSChannel_CloseCancelsStalledHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer ln.Close()

	// Accept the TCP connection and never answer the upgrade
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- conn
	}()

	ch := NewWSChannel(testConfig())
	session := NewSession("ws://"+ln.Addr().String()+"/v2/realtime/ws", 16000, "k")

	opened := make(chan error, 1)
	go func() {
		opened <- ch.Open(context.Background(), session)
	}()

	select {
	case conn := <-accepted:
		defer conn.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the dial")
	}
	if ch.Status() != StatusConnecting {
		t.Errorf("Expected status connecting, got %s", ch.Status())
	}

	if err := ch.Close("stop"); err != nil {
		t.Errorf("Close() failed: %v", err)
	}

	select {
	case err := <-opened:
		if !errors.Is(err, ErrConnectFailed) {
			t.Errorf("Expected ErrConnectFailed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the stalled handshake")
	}
	if ch.Status() != StatusIdle {
		t.Errorf("Expected status idle, got %s", ch.Status())
	}
}
