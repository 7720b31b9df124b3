package learning

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/khanglvm/hybrid-rank/internal/storage"
)

const (
	// frequencyWeight is the weight for frequency in the score (0.7 = 70%).
	frequencyWeight = 0.7

	// recencyWeight is the weight for recency in the score (0.3 = 30%).
	recencyWeight = 0.3

	// FrequencyWindow is the time window considered for interest (30 days).
	FrequencyWindow = 30 * 24 * time.Hour

	// recencyHalfLife is the half-life for exponential decay (7 days).
	recencyHalfLife = 7 * 24 * time.Hour

	// saturationCount is the number of likes that counts as full frequency.
	saturationCount = 20.0
)

// HistoryReader is the part of storage the scorer reads from.
type HistoryReader interface {
	GetFeedbackHistory(since time.Time) ([]storage.FeedbackRecord, error)
}

// Interest is one brand or category with its score in [0,1].
type Interest struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
	Likes int     `json:"likes"`
}

// Score calculates interest in key from like history.
// Formula: 0.7*frequency + 0.3*recency
func Score(key string, history []storage.FeedbackRecord, keyOf func(storage.FeedbackRecord) string) float64 {
	matching := filterKey(key, history, keyOf)
	if len(matching) == 0 {
		return 0.0
	}
	return frequencyWeight*calculateFrequency(matching) + recencyWeight*calculateRecency(matching)
}

// calculateFrequency counts likes inside the window, normalized to [0,1].
func calculateFrequency(history []storage.FeedbackRecord) float64 {
	windowStart := time.Now().Add(-FrequencyWindow)

	count := 0
	for _, event := range history {
		if event.Timestamp.After(windowStart) {
			count++
		}
	}

	return math.Min(float64(count)/saturationCount, 1.0)
}

// calculateRecency averages an exponential decay over the events:
// a like one half-life old weighs 0.5.
func calculateRecency(history []storage.FeedbackRecord) float64 {
	if len(history) == 0 {
		return 0.0
	}

	now := time.Now()
	weightedSum := 0.0
	for _, event := range history {
		hoursSince := math.Max(now.Sub(event.Timestamp).Hours(), 0)
		weightedSum += math.Exp(-math.Ln2 * hoursSince / recencyHalfLife.Hours())
	}

	return math.Min(weightedSum/float64(len(history)), 1.0)
}

func filterKey(key string, history []storage.FeedbackRecord, keyOf func(storage.FeedbackRecord) string) []storage.FeedbackRecord {
	var out []storage.FeedbackRecord
	for _, event := range history {
		if event.Kind == storage.FeedbackLike && strings.EqualFold(keyOf(event), key) {
			out = append(out, event)
		}
	}
	return out
}

// ByBrand keys feedback by item brand.
func ByBrand(e storage.FeedbackRecord) string { return e.Brand }

// ByCategory keys feedback by item category.
func ByCategory(e storage.FeedbackRecord) string { return e.Category }

// RankInterests scores every distinct key in history, highest first.
// Ties are broken by key so output is deterministic.
func RankInterests(history []storage.FeedbackRecord, keyOf func(storage.FeedbackRecord) string) []Interest {
	counts := make(map[string]int)
	spelling := make(map[string]string)
	for _, event := range history {
		if event.Kind != storage.FeedbackLike {
			continue
		}
		k := keyOf(event)
		if k == "" {
			continue
		}
		lower := strings.ToLower(k)
		if _, ok := spelling[lower]; !ok {
			spelling[lower] = k
		}
		counts[lower]++
	}

	interests := make([]Interest, 0, len(counts))
	for lower, n := range counts {
		key := spelling[lower]
		interests = append(interests, Interest{
			Key:   key,
			Score: Score(key, history, keyOf),
			Likes: n,
		})
	}

	sort.Slice(interests, func(i, j int) bool {
		if interests[i].Score != interests[j].Score {
			return interests[i].Score > interests[j].Score
		}
		return interests[i].Key < interests[j].Key
	})

	return interests
}

// BrandInterest loads the like history of the window and ranks brands.
func BrandInterest(r HistoryReader) ([]Interest, error) {
	history, err := r.GetFeedbackHistory(time.Now().Add(-FrequencyWindow))
	if err != nil {
		return nil, err
	}
	return RankInterests(history, ByBrand), nil
}

// CategoryInterest loads the like history of the window and ranks categories.
func CategoryInterest(r HistoryReader) ([]Interest, error) {
	history, err := r.GetFeedbackHistory(time.Now().Add(-FrequencyWindow))
	if err != nil {
		return nil, err
	}
	return RankInterests(history, ByCategory), nil
}
