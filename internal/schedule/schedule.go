// Package schedule manages locally planned preparation sessions.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DateLayout is the on-disk and command-line date format
const DateLayout = "2006-01-02"

// Session types
const (
	TypeInterview  = "interview"
	TypeDiscussion = "discussion"
	TypeBehavioral = "behavioral"

	// TypeAll matches every type in Filter
	TypeAll = "all"
)

// Types lists the session types accepted by Validate
var Types = []string{TypeInterview, TypeDiscussion, TypeBehavioral}

// StatusUpcoming is the status of a newly scheduled session
const StatusUpcoming = "upcoming"

// ErrNotFound is returned when no session has the requested ID
var ErrNotFound = errors.New("scheduled session not found")

// Session is one planned preparation session
type Session struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Date         string   `json:"date"`     // YYYY-MM-DD
	Time         string   `json:"time"`     // e.g. 10:00 AM
	Duration     string   `json:"duration"` // e.g. 60 min
	Type         string   `json:"type"`
	Level        string   `json:"level"`
	Topics       []string `json:"topics"`
	Participants int      `json:"participants"`
	Status       string   `json:"status"`
}

// New assigns an ID and the upcoming status, then validates
func New(s Session) (Session, error) {
	s.ID = uuid.New().String()
	if s.Status == "" {
		s.Status = StatusUpcoming
	}
	if s.Participants <= 0 {
		s.Participants = 1
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate checks the fields a session cannot be stored without
func (s Session) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if _, err := time.Parse(DateLayout, s.Date); err != nil {
		return fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s.Date)
	}
	if !slices.Contains(Types, s.Type) {
		return fmt.Errorf("invalid type %q (must be one of %s)", s.Type, strings.Join(Types, ", "))
	}
	return nil
}

// Matches reports whether s passes the type filter and the search term.
// The term is matched case-insensitively against the title and every topic.
func (s Session) Matches(filterType, search string) bool {
	if filterType != "" && filterType != TypeAll && s.Type != filterType {
		return false
	}
	term := strings.ToLower(search)
	if strings.Contains(strings.ToLower(s.Title), term) {
		return true
	}
	for _, topic := range s.Topics {
		if strings.Contains(strings.ToLower(topic), term) {
			return true
		}
	}
	return false
}

// Filter returns the sessions matching filterType and search, in order
func Filter(sessions []Session, filterType, search string) []Session {
	var out []Session
	for _, s := range sessions {
		if s.Matches(filterType, search) {
			out = append(out, s)
		}
	}
	return out
}

// HasSessionOn reports whether any session falls on date
func HasSessionOn(sessions []Session, date time.Time) bool {
	key := date.Format(DateLayout)
	return slices.ContainsFunc(sessions, func(s Session) bool { return s.Date == key })
}
