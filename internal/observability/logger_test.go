package observability

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestInitLogger_WritesJSON(t *testing.T) {
	initialized = false
	defer func() { initialized = false }()

	var buf bytes.Buffer
	initLogger(&buf, "debug", false)

	logger := WithComponent("transcription")
	logger.Info().Str("status", "connected").Msg("Channel open")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "transcription" {
		t.Errorf("Expected component 'transcription', got %v", entry["component"])
	}
	if entry["message"] != "Channel open" {
		t.Errorf("Expected message 'Channel open', got %v", entry["message"])
	}
}

func TestWithCorrelationID_GeneratesID(t *testing.T) {
	initialized = false
	defer func() { initialized = false }()

	var buf bytes.Buffer
	initLogger(&buf, "info", false)

	logger := WithCorrelationID("")
	logger.Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log line: %v", err)
	}
	id, _ := entry["correlation_id"].(string)
	if len(id) != 36 {
		t.Errorf("Expected generated UUID correlation ID, got %q", id)
	}
}
