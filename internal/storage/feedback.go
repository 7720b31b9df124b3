package storage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RecordFeedback records a feedback event. Failures are logged, never returned.
func (s *SQLiteStorage) RecordFeedback(event FeedbackRecord) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO feedback_events (event_id, user_id, item_id, brand, category, kind, context_hash, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		event.EventID,
		event.UserID,
		event.ItemID,
		event.Brand,
		event.Category,
		event.Kind,
		event.ContextHash,
		formatTime(event.Timestamp),
	)

	if err != nil {
		log.Warn().Err(err).Int64("item", event.ItemID).Msg("failed to record feedback")
	}

	return nil
}

// GetFeedbackHistory retrieves feedback events since a given time, newest first.
func (s *SQLiteStorage) GetFeedbackHistory(since time.Time) ([]FeedbackRecord, error) {
	if !s.enabled || s.db == nil {
		return []FeedbackRecord{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		SELECT event_id, user_id, item_id, brand, category, kind, context_hash, timestamp
		FROM feedback_events
		WHERE timestamp >= ?
		ORDER BY timestamp DESC, id DESC
	`

	rows, err := s.db.Query(query, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback history: %w", err)
	}
	defer rows.Close()

	var events []FeedbackRecord
	for rows.Next() {
		var event FeedbackRecord
		var timestampStr string

		if err := rows.Scan(
			&event.EventID,
			&event.UserID,
			&event.ItemID,
			&event.Brand,
			&event.Category,
			&event.Kind,
			&event.ContextHash,
			&timestampStr,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback event: %w", err)
		}

		event.Timestamp, err = time.Parse(time.RFC3339, timestampStr)
		if err != nil {
			log.Warn().Err(err).Str("timestamp", timestampStr).Msg("failed to parse feedback timestamp")
			event.Timestamp = time.Now()
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read feedback history: %w", err)
	}

	return events, nil
}
