package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prepmate/interview-client/internal/interview"
)

const resultColumns = `interview_id, role, difficulty, question_type, answers_json, time_elapsed,
	overall_score, status, synced, error, completed_at`

// SaveResult inserts or replaces a finished interview
func (s *Store) SaveResult(ctx context.Context, r interview.Result) error {
	answers, err := json.Marshal(r.Answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	completedAt := r.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	var score sql.NullFloat64
	if r.OverallScore != nil {
		score = sql.NullFloat64{Float64: *r.OverallScore, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(interview_id) DO UPDATE SET
			role = excluded.role,
			difficulty = excluded.difficulty,
			question_type = excluded.question_type,
			answers_json = excluded.answers_json,
			time_elapsed = excluded.time_elapsed,
			overall_score = excluded.overall_score,
			status = excluded.status,
			synced = excluded.synced,
			error = excluded.error,
			completed_at = excluded.completed_at
	`, r.InterviewID, r.Role, r.Difficulty, r.QuestionType, string(answers), r.TimeElapsed,
		score, r.Status, boolToInt(r.Synced), r.Error, completedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	s.logger.Debug().
		Str("interview_id", r.InterviewID).
		Bool("synced", r.Synced).
		Msg("Saved result")
	return nil
}

// GetResult returns one saved result or ErrNotFound
func (s *Store) GetResult(ctx context.Context, interviewID string) (*interview.Result, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+resultColumns+` FROM results WHERE interview_id = ?`, interviewID)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListResults returns saved results, newest first
func (s *Store) ListResults(ctx context.Context, unsyncedOnly bool) ([]interview.Result, error) {
	query := `SELECT ` + resultColumns + ` FROM results`
	if unsyncedOnly {
		query += ` WHERE synced = 0`
	}
	query += ` ORDER BY completed_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	var results []interview.Result
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}
	return results, rows.Err()
}

// MarkSynced records the backend's verdict for a resubmitted result
func (s *Store) MarkSynced(ctx context.Context, interviewID string, overallScore *float64, status string) error {
	var score sql.NullFloat64
	if overallScore != nil {
		score = sql.NullFloat64{Float64: *overallScore, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE results SET synced = 1, error = '', overall_score = ?, status = ? WHERE interview_id = ?
	`, score, status, interviewID)
	if err != nil {
		return fmt.Errorf("failed to mark result synced: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanResult(row scanner) (*interview.Result, error) {
	var (
		r           interview.Result
		answers     string
		score       sql.NullFloat64
		synced      int
		completedAt string
	)
	if err := row.Scan(&r.InterviewID, &r.Role, &r.Difficulty, &r.QuestionType, &answers, &r.TimeElapsed,
		&score, &r.Status, &synced, &r.Error, &completedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers for %s: %w", r.InterviewID, err)
	}
	if score.Valid {
		v := score.Float64
		r.OverallScore = &v
	}
	r.Synced = synced == 1
	if t, err := time.Parse(time.RFC3339, completedAt); err == nil {
		r.CompletedAt = t
	}
	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ interview.ResultStore = (*Store)(nil)
