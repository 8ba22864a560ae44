package interview

import "strings"

// TranscriptBuffer reconciles streamed partial and final transcripts into the answer text.
// Committed only grows from finals or typing; pending is the latest unconfirmed partial.
type TranscriptBuffer struct {
	committed string
	pending   string
}

// ApplyPartial replaces the pending text. Blank partials are ignored.
func (b *TranscriptBuffer) ApplyPartial(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	b.pending = text
	return true
}

// ApplyFinal appends text to committed and clears pending. Blank finals are ignored.
func (b *TranscriptBuffer) ApplyFinal(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if b.committed != "" && !strings.HasSuffix(b.committed, " ") && !strings.HasSuffix(b.committed, ".") {
		b.committed += " "
	}
	b.committed += text
	b.pending = ""
	return true
}

// Display is what the user sees: committed text followed by the pending partial
func (b *TranscriptBuffer) Display() string {
	if b.committed != "" && b.pending != "" {
		return b.committed + " " + b.pending
	}
	return b.committed + b.pending
}

// SetTyped replaces committed with text entered by hand
func (b *TranscriptBuffer) SetTyped(text string) {
	b.committed = text
	b.pending = ""
}

// ClearPending drops the unconfirmed partial
func (b *TranscriptBuffer) ClearPending() {
	b.pending = ""
}

// Reset empties the buffer for the next question
func (b *TranscriptBuffer) Reset() {
	b.committed = ""
	b.pending = ""
}

func (b *TranscriptBuffer) Committed() string {
	return b.committed
}

func (b *TranscriptBuffer) Pending() string {
	return b.pending
}
