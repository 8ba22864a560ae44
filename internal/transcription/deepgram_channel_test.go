package transcription

import (
	"testing"
	"time"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"

	"github.com/prepmate/interview-client/internal/audio"
)

func TestDeepgramChannel_HandleMessage(t *testing.T) {
	d := NewDeepgramChannel(testConfig())

	d.handleMessage(3, &msginterfaces.MessageResponse{
		Type: "Results",
		Channel: msginterfaces.Channel{
			Alternatives: []msginterfaces.Alternative{{Transcript: "tell me about"}},
		},
	})
	d.handleMessage(3, &msginterfaces.MessageResponse{
		Type:    "Results",
		IsFinal: true,
		Channel: msginterfaces.Channel{
			Alternatives: []msginterfaces.Alternative{{Transcript: "tell me about yourself"}},
		},
	})
	// Empty transcripts and missing alternatives are skipped
	d.handleMessage(3, &msginterfaces.MessageResponse{Type: "Results"})
	d.handleMessage(3, nil)

	ev := <-d.Events()
	if ev.Kind != EventPartial || ev.Text != "tell me about" {
		t.Errorf("Expected partial 'tell me about', got %s '%s'", ev.Kind, ev.Text)
	}
	if ev.ConnID != 3 {
		t.Errorf("Expected ConnID 3, got %d", ev.ConnID)
	}

	ev = <-d.Events()
	if ev.Kind != EventFinal || ev.Text != "tell me about yourself" {
		t.Errorf("Expected final 'tell me about yourself', got %s '%s'", ev.Kind, ev.Text)
	}

	select {
	case ev := <-d.Events():
		t.Errorf("Expected no further events, got %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeepgramChannel_HandleCloseIgnoresStaleConnection(t *testing.T) {
	d := NewDeepgramChannel(testConfig())
	d.connID = 2
	d.session = NewSession("deepgram", 16000, "k")

	d.handleClose(1)
	select {
	case ev := <-d.Events():
		t.Errorf("Expected stale close to be ignored, got %s", ev.Kind)
	default:
	}

	d.handleClose(2)
	ev := <-d.Events()
	if ev.Kind != EventClosed || ev.Condition != CloseConnectionLost {
		t.Errorf("Expected connection lost close, got %s %s", ev.Kind, ev.Condition)
	}
}

func TestDeepgramChannel_NotConnected(t *testing.T) {
	d := NewDeepgramChannel(testConfig())
	d.Send(audio.Frame{PCM: []byte{0, 0}, Samples: 1})

	if d.Status() != StatusIdle {
		t.Errorf("Expected status idle, got %s", d.Status())
	}
	if err := d.Close("Component unmounting"); err != nil {
		t.Errorf("Expected nil from Close, got %v", err)
	}
	if err := d.Close("Component unmounting"); err != nil {
		t.Errorf("Expected nil from second Close, got %v", err)
	}
}
