package storage

import "time"

// Feedback kinds.
const (
	FeedbackLike = "like"
)

// FeedbackRecord represents one piece of explicit user feedback on an item.
type FeedbackRecord struct {
	// EventID is a unique identifier for this event (UUID).
	EventID string `json:"event_id"`

	// UserID is the preference partition the feedback was applied to.
	UserID string `json:"user_id"`

	ItemID   int64  `json:"item_id"`
	Brand    string `json:"brand"`
	Category string `json:"category"`

	// Kind is the feedback type, currently only "like".
	Kind string `json:"kind"`

	// ContextHash is the SHA256 hash of the query the item was shown for.
	ContextHash string `json:"context_hash"`

	Timestamp time.Time `json:"timestamp"`
}

// SearchRecord represents a ranking query for analytics.
type SearchRecord struct {
	// SearchID is a unique identifier for this search (UUID).
	SearchID string `json:"search_id"`

	// QueryHash is the SHA256 hash of the search query for privacy.
	QueryHash string `json:"query_hash"`

	// Timestamp is when the search was performed.
	Timestamp time.Time `json:"timestamp"`

	// ResultsCount is the number of results displayed.
	ResultsCount int `json:"results_count"`

	// Semantic is true when similarity search produced the candidates.
	Semantic bool `json:"semantic"`
}
