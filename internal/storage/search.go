package storage

import (
	"time"

	"github.com/rs/zerolog/log"
)

// RecordSearch records a ranking query for analytics.
func (s *SQLiteStorage) RecordSearch(search SearchRecord) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO search_history (search_id, query_hash, timestamp, results_count, semantic)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		search.SearchID,
		search.QueryHash,
		formatTime(search.Timestamp),
		search.ResultsCount,
		boolToInt(search.Semantic),
	)

	if err != nil {
		log.Warn().Err(err).Msg("failed to record search")
	}

	return nil
}

// CountSearches returns the number of recorded searches since a given time.
func (s *SQLiteStorage) CountSearches(since time.Time) (total, semantic int, err error) {
	if !s.enabled || s.db == nil {
		return 0, 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(semantic), 0) FROM search_history WHERE timestamp >= ?",
		formatTime(since),
	)
	err = row.Scan(&total, &semantic)
	return total, semantic, err
}

// Cleanup removes old history records based on retention policy. A
// retention of zero or less removes all history. The catalog is never
// touched.
func (s *SQLiteStorage) Cleanup(retention time.Duration) error {
	if !s.enabled || s.db == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	where, args := " WHERE timestamp < ?", []any{formatTime(time.Now().Add(-retention))}
	if retention <= 0 {
		where, args = "", nil
	}

	for _, table := range []string{"feedback_events", "search_history"} {
		if _, err := s.db.Exec("DELETE FROM "+table+where, args...); err != nil {
			log.Warn().Err(err).Str("table", table).Msg("failed to cleanup history")
		}
	}

	// Vacuum to reclaim space
	if _, err := s.db.Exec("VACUUM"); err != nil {
		log.Warn().Err(err).Msg("failed to vacuum database")
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
