// Package interview runs a live mock interview: it owns the question flow,
// the countdown, the answer buffer and the recording lifecycle.
package interview

import (
	"errors"
	"strings"
	"time"

	"github.com/prepmate/interview-client/internal/backend"
)

var (
	// ErrRecordingActive is returned when typing while the microphone is live
	ErrRecordingActive = errors.New("stop recording before typing an answer")

	// ErrNotRunning is returned for commands issued after submission began
	ErrNotRunning = errors.New("interview is no longer running")
)

// Phase of an interview session
type Phase int

const (
	PhaseRunning Phase = iota
	PhaseSubmitting
	PhaseSubmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSubmitted:
		return "submitted"
	default:
		return "unknown"
	}
}

// Submission triggers
const (
	TriggerUser  = "user"
	TriggerTimer = "timer"
)

// QuestionAnswer is one answered, skipped or scored question
type QuestionAnswer = backend.Answer

// Result is what a finished interview hands to the results view
type Result struct {
	InterviewID  string
	Role         string
	Difficulty   string
	QuestionType string
	Answers      []QuestionAnswer
	TimeElapsed  int // seconds
	OverallScore *float64
	Status       string
	Synced       bool
	Error        string
	CompletedAt  time.Time
}

// Session is the state of one mock interview. It performs no I/O;
// Loop owns it and applies side effects around each transition.
type Session struct {
	plan      *Plan
	phase     Phase
	clock     Clock
	index     int
	answers   []*QuestionAnswer
	buffer    TranscriptBuffer
	trigger   string
	recording bool
	speaking  bool
	result    *Result
}

// NewSession starts a running session for plan
func NewSession(plan *Plan, defaultTimeLimit int) *Session {
	return &Session{
		plan:    plan,
		phase:   PhaseRunning,
		clock:   NewClock(plan.Config.TimeLimit, defaultTimeLimit),
		answers: make([]*QuestionAnswer, len(plan.Questions)),
	}
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) Clock() Clock {
	return s.clock
}

func (s *Session) Index() int {
	return s.index
}

func (s *Session) Total() int {
	return len(s.plan.Questions)
}

func (s *Session) Plan() *Plan {
	return s.plan
}

// Question returns the current question text
func (s *Session) Question() string {
	if s.index < len(s.plan.Questions) {
		return s.plan.Questions[s.index]
	}
	return ""
}

func (s *Session) Buffer() *TranscriptBuffer {
	return &s.buffer
}

func (s *Session) Recording() bool {
	return s.recording
}

func (s *Session) Speaking() bool {
	return s.speaking
}

// Trigger reports what started submission
func (s *Session) Trigger() string {
	return s.trigger
}

// Result is set once the session is submitted
func (s *Session) Result() *Result {
	return s.result
}

// Answer returns the saved answer for question i, if any
func (s *Session) Answer(i int) (QuestionAnswer, bool) {
	if i < 0 || i >= len(s.answers) || s.answers[i] == nil {
		return QuestionAnswer{}, false
	}
	return *s.answers[i], true
}

func (s *Session) setRecording(on bool) {
	s.recording = on
	if !on {
		s.speaking = false
		s.buffer.ClearPending()
	}
}

// Tick advances the clock while running. When time runs out the current
// answer is saved and the session moves to submitting.
func (s *Session) Tick() bool {
	if s.phase != PhaseRunning {
		return false
	}
	if s.clock.Tick() {
		s.beginSubmitting(TriggerTimer)
		return true
	}
	return false
}

// Type replaces the answer text. Only allowed while not recording.
func (s *Session) Type(text string) error {
	if s.phase != PhaseRunning {
		return ErrNotRunning
	}
	if s.recording {
		return ErrRecordingActive
	}
	s.buffer.SetTyped(text)
	return nil
}

// saveCurrentAnswer records the committed text, or Skipped when empty.
// Pending text is never part of a saved answer.
func (s *Session) saveCurrentAnswer() {
	if s.index >= len(s.answers) {
		return
	}
	s.buffer.ClearPending()
	text := strings.TrimSpace(s.buffer.Committed())
	if text == "" {
		text = backend.SkippedAnswer
	}
	s.answers[s.index] = &QuestionAnswer{Question: s.plan.Questions[s.index], Answer: text}
}

// Next saves the current answer and advances. On the last question it
// begins submission and returns false.
func (s *Session) Next() (bool, error) {
	if s.phase != PhaseRunning {
		return false, ErrNotRunning
	}
	s.saveCurrentAnswer()
	if s.index < len(s.plan.Questions)-1 {
		s.index++
		s.buffer.Reset()
		return true, nil
	}
	s.beginSubmitting(TriggerUser)
	return false, nil
}

// Skip records Skipped for the current question, whatever was said, and advances
func (s *Session) Skip() (bool, error) {
	if s.phase != PhaseRunning {
		return false, ErrNotRunning
	}
	s.buffer.SetTyped(backend.SkippedAnswer)
	return s.Next()
}

// End saves the current answer and begins submission
func (s *Session) End() error {
	if s.phase != PhaseRunning {
		return ErrNotRunning
	}
	s.beginSubmitting(TriggerUser)
	return nil
}

func (s *Session) beginSubmitting(trigger string) {
	s.setRecording(false)
	s.saveCurrentAnswer()
	s.phase = PhaseSubmitting
	s.trigger = trigger
}

// Answers returns one entry per question; unsaved questions are Skipped
func (s *Session) Answers() []QuestionAnswer {
	out := make([]QuestionAnswer, len(s.plan.Questions))
	for i, q := range s.plan.Questions {
		if s.answers[i] != nil {
			out[i] = *s.answers[i]
			continue
		}
		out[i] = QuestionAnswer{Question: q, Answer: backend.SkippedAnswer}
	}
	return out
}

// CompletionRequest builds the body of POST /interview/complete
func (s *Session) CompletionRequest() backend.CompleteRequest {
	return backend.CompleteRequest{
		InterviewID: backend.ID(s.plan.InterviewID),
		TimeElapsed: s.clock.Elapsed,
		Answers:     s.Answers(),
	}
}

// MarkSubmitted finishes the session. A failed submission still completes,
// with the result flagged unsynced.
func (s *Session) MarkSubmitted(resp *backend.CompleteResponse, submitErr error) *Result {
	result := &Result{
		InterviewID:  s.plan.InterviewID,
		Role:         s.plan.Config.Role,
		Difficulty:   s.plan.Config.Difficulty,
		QuestionType: s.plan.Config.QuestionType,
		Answers:      s.Answers(),
		TimeElapsed:  s.clock.Elapsed,
		Synced:       submitErr == nil,
		CompletedAt:  time.Now(),
	}
	if submitErr != nil {
		result.Error = "Failed to submit to server"
	} else if resp != nil {
		result.OverallScore = resp.OverallScore
		result.Status = resp.Status
	}

	s.phase = PhaseSubmitted
	s.result = result
	return result
}
