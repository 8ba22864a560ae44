package interview

import (
	"context"
	"errors"
	"fmt"

	"github.com/prepmate/interview-client/internal/backend"
)

// Configuration defaults offered by the interview setup
const (
	DefaultDifficulty    = "Intermediate"
	DefaultQuestionCount = 5
	DefaultTimeLimit     = 10 // minutes
	DefaultLanguage      = "JavaScript"
	DefaultQuestionType  = "Behavioral Only"
)

var (
	// Roles offered by the interview setup
	Roles = []string{"Frontend Developer", "Backend Developer"}

	// Difficulties offered by the interview setup
	Difficulties = []string{"Beginner", "Intermediate", "Advanced"}

	// QuestionTypes offered by the interview setup
	QuestionTypes = []string{"Behavioral Only", "Technical Only", "Mixed"}

	// ErrRoleRequired is returned when no role was chosen
	ErrRoleRequired = errors.New("please select a role")

	// ErrNoQuestions is returned when the backend created an interview without questions
	ErrNoQuestions = errors.New("no questions available, please start a new interview")
)

// Creator creates interviews on the backend
type Creator interface {
	CreateInterview(ctx context.Context, cfg backend.InterviewConfig) (*backend.CreateInterviewResponse, error)
}

// Plan is a created interview ready to be run
type Plan struct {
	InterviewID string
	Config      backend.InterviewConfig
	Questions   []string
}

// WithDefaults fills every unset field except the role
func WithDefaults(cfg backend.InterviewConfig) backend.InterviewConfig {
	if cfg.Difficulty == "" {
		cfg.Difficulty = DefaultDifficulty
	}
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = DefaultQuestionCount
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = DefaultTimeLimit
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.QuestionType == "" {
		cfg.QuestionType = DefaultQuestionType
	}
	return cfg
}

// StartInterview creates an interview and returns its plan
func StartInterview(ctx context.Context, creator Creator, cfg backend.InterviewConfig) (*Plan, error) {
	if cfg.Role == "" {
		return nil, ErrRoleRequired
	}
	cfg = WithDefaults(cfg)

	resp, err := creator.CreateInterview(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create interview: %w", err)
	}
	if len(resp.Questions) == 0 {
		return nil, ErrNoQuestions
	}

	return &Plan{
		InterviewID: resp.InterviewID.String(),
		Config:      cfg,
		Questions:   resp.Questions,
	}, nil
}
