package interview

import (
	"errors"
	"testing"

	"github.com/prepmate/interview-client/internal/backend"
)

func TestSession_TicksReachSubmitting(t *testing.T) {
	plan := testPlan("Q1")
	plan.Config.TimeLimit = 2
	s := NewSession(plan, 45)

	const n = 120
	for i := 1; i < n; i++ {
		if s.Tick() {
			t.Fatalf("Expected no expiry before tick %d, expired at %d", n, i)
		}
	}
	if !s.Tick() {
		t.Fatal("Expected expiry on the last tick")
	}

	if s.Phase() != PhaseSubmitting {
		t.Errorf("Expected phase submitting, got %s", s.Phase())
	}
	if s.Clock().Elapsed != n {
		t.Errorf("Expected elapsed %d, got %d", n, s.Clock().Elapsed)
	}
	if s.Trigger() != TriggerTimer {
		t.Errorf("Expected trigger '%s', got '%s'", TriggerTimer, s.Trigger())
	}

	// Ticks after submission do nothing
	s.Tick()
	if s.Clock().Elapsed != n {
		t.Errorf("Expected elapsed to stop at %d, got %d", n, s.Clock().Elapsed)
	}
}

func TestSession_NextSavesAnswerWithoutPending(t *testing.T) {
	s := NewSession(testPlan("Q1", "Q2"), 45)
	s.setRecording(true)
	s.Buffer().ApplyFinal("hello world")
	s.Buffer().ApplyPartial("and then")
	s.setRecording(false)

	advanced, err := s.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if !advanced {
		t.Fatal("Expected to advance to the second question")
	}

	ans, ok := s.Answer(0)
	if !ok {
		t.Fatal("Expected answer for question 0")
	}
	if ans.Answer != "hello world" {
		t.Errorf("Expected answer 'hello world', got '%s'", ans.Answer)
	}
	if ans.Question != "Q1" {
		t.Errorf("Expected question 'Q1', got '%s'", ans.Question)
	}
	if s.Buffer().Display() != "" {
		t.Errorf("Expected empty buffer for the next question, got '%s'", s.Buffer().Display())
	}
	if s.Question() != "Q2" {
		t.Errorf("Expected question 'Q2', got '%s'", s.Question())
	}
}

func TestSession_SkipRecordsSkipped(t *testing.T) {
	s := NewSession(testPlan("Q1", "Q2"), 45)

	if _, err := s.Skip(); err != nil {
		t.Fatalf("Skip() failed: %v", err)
	}
	ans, _ := s.Answer(0)
	if ans.Answer != backend.SkippedAnswer {
		t.Errorf("Expected '%s', got '%s'", backend.SkippedAnswer, ans.Answer)
	}

	// Skip overrides whatever was typed
	s.Type("half an answer")
	s.Skip()
	ans, _ = s.Answer(1)
	if ans.Answer != backend.SkippedAnswer {
		t.Errorf("Expected '%s', got '%s'", backend.SkippedAnswer, ans.Answer)
	}
	if s.Phase() != PhaseSubmitting {
		t.Errorf("Expected skip on the last question to submit, got %s", s.Phase())
	}
}

func TestSession_EmptyAnswerIsSkipped(t *testing.T) {
	s := NewSession(testPlan("Q1"), 45)
	s.Type("   ")
	s.End()

	ans, _ := s.Answer(0)
	if ans.Answer != backend.SkippedAnswer {
		t.Errorf("Expected '%s', got '%s'", backend.SkippedAnswer, ans.Answer)
	}
}

func TestSession_NextOnLastQuestionSubmits(t *testing.T) {
	s := NewSession(testPlan("Q1"), 45)
	s.Type("  my answer  ")

	advanced, err := s.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if advanced {
		t.Error("Expected no next question")
	}
	if s.Phase() != PhaseSubmitting {
		t.Errorf("Expected phase submitting, got %s", s.Phase())
	}
	ans, _ := s.Answer(0)
	if ans.Answer != "my answer" {
		t.Errorf("Expected trimmed answer 'my answer', got '%s'", ans.Answer)
	}

	if _, err := s.Next(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning after submission began, got %v", err)
	}
}

func TestSession_TypeWhileRecording(t *testing.T) {
	s := NewSession(testPlan("Q1"), 45)
	s.setRecording(true)

	if err := s.Type("typed"); !errors.Is(err, ErrRecordingActive) {
		t.Errorf("Expected ErrRecordingActive, got %v", err)
	}

	s.setRecording(false)
	if err := s.Type("typed"); err != nil {
		t.Errorf("Expected typing allowed when not recording, got %v", err)
	}
	if s.Buffer().Display() != "typed" {
		t.Errorf("Expected display 'typed', got '%s'", s.Buffer().Display())
	}
}

func TestSession_CompletionRequest(t *testing.T) {
	s := NewSession(testPlan("Q1", "Q2", "Q3"), 45)
	s.Type("first")
	s.Next()
	s.Tick()
	s.Tick()
	s.End()

	req := s.CompletionRequest()
	if req.InterviewID != "42" {
		t.Errorf("Expected interview ID '42', got '%s'", req.InterviewID)
	}
	if req.TimeElapsed != 2 {
		t.Errorf("Expected elapsed 2, got %d", req.TimeElapsed)
	}
	if len(req.Answers) != 3 {
		t.Fatalf("Expected 3 answers, got %d", len(req.Answers))
	}

	want := []string{"first", backend.SkippedAnswer, backend.SkippedAnswer}
	for i, w := range want {
		if req.Answers[i].Answer != w {
			t.Errorf("Answer %d: expected '%s', got '%s'", i, w, req.Answers[i].Answer)
		}
	}
	if req.Answers[2].Question != "Q3" {
		t.Errorf("Expected unsaved question text 'Q3', got '%s'", req.Answers[2].Question)
	}
}

func TestSession_MarkSubmitted(t *testing.T) {
	score := 82.5
	s := NewSession(testPlan("Q1"), 45)
	s.End()

	result := s.MarkSubmitted(&backend.CompleteResponse{OverallScore: &score, Status: "completed"}, nil)
	if !result.Synced {
		t.Error("Expected synced result")
	}
	if result.OverallScore == nil || *result.OverallScore != 82.5 {
		t.Errorf("Expected score 82.5, got %v", result.OverallScore)
	}
	if s.Phase() != PhaseSubmitted {
		t.Errorf("Expected phase submitted, got %s", s.Phase())
	}

	s = NewSession(testPlan("Q1"), 45)
	s.End()
	result = s.MarkSubmitted(nil, errors.New("boom"))
	if result.Synced {
		t.Error("Expected unsynced result on failure")
	}
	if result.Error == "" {
		t.Error("Expected error text on unsynced result")
	}
	if s.Phase() != PhaseSubmitted {
		t.Errorf("Expected phase submitted after failure, got %s", s.Phase())
	}
}
