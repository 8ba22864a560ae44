package backend

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/prepmate/interview-client/internal/auth"
)

// SkippedAnswer is recorded for questions left unanswered
const SkippedAnswer = "Skipped"

// ID accepts both JSON strings and numbers
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by POST /auth/login
type LoginResponse struct {
	Token string         `json:"token"`
	User  *auth.UserInfo `json:"user,omitempty"`
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// InterviewConfig is the body of POST /interview/create
type InterviewConfig struct {
	Role          string `json:"role"`
	Difficulty    string `json:"difficulty"`
	QuestionCount int    `json:"questionCount"`
	TimeLimit     int    `json:"timeLimit"` // minutes
	Language      string `json:"language"`
	QuestionType  string `json:"questionType"`
}

// CreateInterviewResponse is returned by POST /interview/create
type CreateInterviewResponse struct {
	InterviewID ID       `json:"interviewId"`
	Questions   []string `json:"questions"`
}

// Answer is one question/answer pair as exchanged with the backend
type Answer struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Score    *float64 `json:"score,omitempty"`
}

// CompleteRequest is the body of POST /interview/complete
type CompleteRequest struct {
	InterviewID ID       `json:"interviewId"`
	TimeElapsed int      `json:"timeElapsed"` // seconds
	Answers     []Answer `json:"answers"`
}

// CompleteResponse is returned by POST /interview/complete
type CompleteResponse struct {
	OverallScore *float64 `json:"overallScore"`
	Status       string   `json:"status"`
}

// InterviewSummary is one entry of GET /interview/history
type InterviewSummary struct {
	ID           ID       `json:"id"`
	Role         string   `json:"role"`
	Difficulty   string   `json:"difficulty"`
	Status       string   `json:"status"`
	OverallScore *float64 `json:"overallScore"`
	CreatedAt    string   `json:"createdAt"`
	CompletedAt  string   `json:"completedAt,omitempty"`
}

// HistoryResponse is returned by GET /interview/history
type HistoryResponse struct {
	Interviews []InterviewSummary `json:"interviews"`
	Error      string             `json:"error,omitempty"`
}

// InterviewRecord is the interview block of GET /interview/{id}/details
type InterviewRecord struct {
	Role         string   `json:"role"`
	Difficulty   string   `json:"difficulty"`
	QuestionType string   `json:"questionType"`
	OverallScore *float64 `json:"overallScore"`
	TimeElapsed  int      `json:"timeElapsed"`
	Status       string   `json:"status"`
}

// InterviewDetails is returned by GET /interview/{id}/details
type InterviewDetails struct {
	Interview InterviewRecord `json:"interview"`
	Answers   []Answer        `json:"answers"`
}

// RealtimeConfig is returned by GET /transcription/realtime-config
type RealtimeConfig struct {
	WebsocketURL string `json:"websocket_url"`
	SampleRate   int    `json:"sample_rate"`
	APIKey       string `json:"api_key"`
}

// errorBody is the backend's error envelope
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseErrorMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Error != "" {
			return eb.Error
		}
		if eb.Message != "" {
			return eb.Message
		}
	}
	if text := string(bytes.TrimSpace(body)); text != "" && len(text) < 512 {
		// plain-text bodies can arrive JSON-quoted
		if unq, err := strconv.Unquote(text); err == nil {
			return unq
		}
		return text
	}
	return "Server error: " + strconv.Itoa(status)
}
