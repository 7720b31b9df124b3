package learning

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/metrics"
	"github.com/khanglvm/hybrid-rank/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the event queue.
	// If full, events are dropped (non-blocking).
	eventQueueSize = 1000

	// batchFlushSize is the number of events that triggers an immediate flush.
	batchFlushSize = 10

	// flushInterval is how often pending events are flushed.
	flushInterval = 50 * time.Millisecond
)

// Store is the part of storage the tracker writes to.
type Store interface {
	Init() error
	RecordFeedback(event storage.FeedbackRecord) error
	RecordSearch(search storage.SearchRecord) error
}

// Tracker records feedback and searches in the background with
// non-blocking writes.
type Tracker struct {
	storage    Store
	eventQueue chan Event
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	mu         sync.RWMutex
}

// NewTracker creates a new tracker with background processing.
func NewTracker(s Store) *Tracker {
	t := &Tracker{
		storage:    s,
		eventQueue: make(chan Event, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    s != nil,
	}

	if s != nil {
		if err := t.storage.Init(); err != nil {
			log.Warn().Err(err).Msg("learning storage initialization failed, tracking disabled")
			t.enabled = false
		}
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// Track queues an event (non-blocking). If the queue is full, the event is
// dropped and counted.
func (t *Tracker) Track(event Event) {
	if !t.isEnabled() {
		return
	}

	select {
	case t.eventQueue <- event:
	default:
		metrics.TrackerDropped.Inc()
		log.Warn().Str("kind", event.kind()).Msg("learning queue full, dropping event")
	}
}

// TrackLike records that user liked an item shown for query.
func (t *Tracker) TrackLike(userID string, it catalog.Item, query string) {
	t.Track(NewLikeEvent(userID, it, query))
}

// TrackSearch records a ranking pass.
func (t *Tracker) TrackSearch(query string, resultsCount int, semantic bool) {
	t.Track(NewSearchEvent(query, resultsCount, semantic))
}

// Stop gracefully shuts down the tracker, flushing remaining events.
// Events tracked after Stop are ignored.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		t.disable()
		close(t.stopChan)
		t.wg.Wait()
	})
}

func (t *Tracker) disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func (t *Tracker) isEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled && t.storage != nil
}

// processEvents runs in the background, batching and flushing events.
func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, batchFlushSize)

	for {
		select {
		case event := <-t.eventQueue:
			batch = append(batch, event)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = make([]Event, 0, batchFlushSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = make([]Event, 0, batchFlushSize)
			}

		case <-t.stopChan:
			// drain whatever is still queued, then exit
			for {
				select {
				case event := <-t.eventQueue:
					batch = append(batch, event)
					if len(batch) >= batchFlushSize {
						t.flush(batch)
						batch = make([]Event, 0, batchFlushSize)
					}
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes a batch of events to storage.
func (t *Tracker) flush(events []Event) {
	if len(events) == 0 {
		return
	}

	var errs []error
	for _, event := range events {
		if err := event.persist(t.storage); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn().Err(err).Int("failed", len(errs)).Msg("failed to record learning events")
	}
}

// Pending returns the number of queued events not yet written.
func (t *Tracker) Pending() int {
	return len(t.eventQueue)
}
