/*
Package learning records user feedback and ranking queries in the
background and derives interest scores from that history.

Likes and searches are queued without blocking the caller and written to
storage in batches. The scorer turns recent likes into per-brand and
per-category interest using frequency and recency decay.
*/
package learning

import (
	"time"

	"github.com/google/uuid"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/storage"
)

// Event is anything the tracker can persist.
type Event interface {
	persist(s Store) error
	kind() string
}

// FeedbackEvent is an explicit user reaction to a ranked item.
type FeedbackEvent struct {
	EventID  string
	UserID   string
	ItemID   int64
	Brand    string
	Category string

	// Kind is the feedback type, see storage.FeedbackLike.
	Kind string

	// ContextHash is the SHA256 hash of the query the item was shown for.
	ContextHash string

	Timestamp time.Time
}

// NewLikeEvent creates a like event for an item shown for query.
func NewLikeEvent(userID string, it catalog.Item, query string) FeedbackEvent {
	return FeedbackEvent{
		EventID:     uuid.NewString(),
		UserID:      userID,
		ItemID:      it.ID,
		Brand:       it.Brand,
		Category:    it.Category,
		Kind:        storage.FeedbackLike,
		ContextHash: storage.HashQuery(query),
		Timestamp:   time.Now(),
	}
}

// ToStorage converts the event to the storage model.
func (e FeedbackEvent) ToStorage() storage.FeedbackRecord {
	return storage.FeedbackRecord{
		EventID:     e.EventID,
		UserID:      e.UserID,
		ItemID:      e.ItemID,
		Brand:       e.Brand,
		Category:    e.Category,
		Kind:        e.Kind,
		ContextHash: e.ContextHash,
		Timestamp:   e.Timestamp,
	}
}

func (e FeedbackEvent) persist(s Store) error { return s.RecordFeedback(e.ToStorage()) }
func (e FeedbackEvent) kind() string          { return e.Kind }

// SearchEvent is one ranking pass.
type SearchEvent struct {
	SearchID     string
	QueryHash    string
	Timestamp    time.Time
	ResultsCount int
	Semantic     bool
}

// NewSearchEvent creates a search event with a fresh id.
func NewSearchEvent(query string, resultsCount int, semantic bool) SearchEvent {
	return SearchEvent{
		SearchID:     uuid.NewString(),
		QueryHash:    storage.HashQuery(query),
		Timestamp:    time.Now(),
		ResultsCount: resultsCount,
		Semantic:     semantic,
	}
}

// ToStorage converts the event to the storage model.
func (e SearchEvent) ToStorage() storage.SearchRecord {
	return storage.SearchRecord{
		SearchID:     e.SearchID,
		QueryHash:    e.QueryHash,
		Timestamp:    e.Timestamp,
		ResultsCount: e.ResultsCount,
		Semantic:     e.Semantic,
	}
}

func (e SearchEvent) persist(s Store) error { return s.RecordSearch(e.ToStorage()) }
func (e SearchEvent) kind() string          { return "search" }
