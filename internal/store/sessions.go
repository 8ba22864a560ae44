package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prepmate/interview-client/internal/schedule"
)

// AddSession saves a scheduled session built by schedule.New
func (s *Store) AddSession(ctx context.Context, sess schedule.Session) error {
	topics, err := json.Marshal(sess.Topics)
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scheduled_sessions (id, title, date, time, duration, type, level, topics_json, participants, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.Title, sess.Date, sess.Time, sess.Duration, sess.Type, sess.Level, string(topics), sess.Participants, sess.Status)
	if err != nil {
		return fmt.Errorf("failed to save scheduled session: %w", err)
	}
	return nil
}

// ListSessions returns all scheduled sessions ordered by date
func (s *Store) ListSessions(ctx context.Context) ([]schedule.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, date, time, duration, type, level, topics_json, participants, status
		FROM scheduled_sessions ORDER BY date, time
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled sessions: %w", err)
	}
	defer rows.Close()

	var sessions []schedule.Session
	for rows.Next() {
		var sess schedule.Session
		var topics string
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.Date, &sess.Time, &sess.Duration, &sess.Type,
			&sess.Level, &topics, &sess.Participants, &sess.Status); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(topics), &sess.Topics); err != nil {
			return nil, fmt.Errorf("failed to decode topics for %s: %w", sess.ID, err)
		}
		sess.Date = dateOnly(sess.Date)
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// dateOnly reduces a scanned date to YYYY-MM-DD. The driver hands back
// date-like TEXT as a time, which database/sql formats as RFC3339.
func dateOnly(s string) string {
	if _, err := time.Parse(schedule.DateLayout, s); err == nil {
		return s
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(schedule.DateLayout)
		}
	}
	return s
}

// RemoveSession deletes a scheduled session or returns schedule.ErrNotFound
func (s *Store) RemoveSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove scheduled session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
