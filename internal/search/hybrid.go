package search

import (
	"context"
	"math"
	"sort"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
)

// FusionConfig defines weights for fusing exact and fuzzy match scores.
type FusionConfig struct {
	ExactWeight float64
	FuzzyWeight float64
}

// DefaultFusionConfig favors exact term matches (70% exact, 30% fuzzy).
var DefaultFusionConfig = FusionConfig{
	ExactWeight: 0.7,
	FuzzyWeight: 0.3,
}

// SearchHybrid fuses exact and fuzzy results. Every result set is scaled
// by its best score first, so the fused scores are in [0,1].
func (i *Indexer) SearchHybrid(ctx context.Context, text string, limit int, config FusionConfig) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	exactResults, err := i.SearchBM25(ctx, text, limit*2)
	if err != nil {
		return nil, err
	}

	fuzzyResults, err := i.SearchFuzzy(ctx, text, limit*2)
	if err != nil {
		// Fall back to exact matches only
		return truncate(normalizeScores(exactResults), limit), nil
	}

	fusedResults := fuseScores(normalizeScores(exactResults), normalizeScores(fuzzyResults), config)

	// ties broken by id so results are deterministic
	sort.Slice(fusedResults, func(a, b int) bool {
		if fusedResults[a].Score != fusedResults[b].Score {
			return fusedResults[a].Score > fusedResults[b].Score
		}
		return fusedResults[a].Item.ID < fusedResults[b].Item.ID
	})

	return truncate(normalizeScores(fusedResults), limit), nil
}

// Search returns up to topK items ordered by fused similarity. Each item
// carries its score, rounded to two decimals, as its similarity.
func (i *Indexer) Search(ctx context.Context, text string, topK int) ([]catalog.Item, error) {
	i.mu.RLock()
	cfg := i.fusion
	i.mu.RUnlock()

	results, err := i.SearchHybrid(ctx, text, topK, cfg)
	if err != nil {
		return nil, err
	}

	items := make([]catalog.Item, len(results))
	for n, r := range results {
		items[n] = r.Item.WithSimilarity(roundScore(r.Score))
	}
	return items, nil
}

// fuseScores combines exact and fuzzy results using weighted fusion.
// An item missing from one set scores 0 there.
func fuseScores(exactResults, fuzzyResults []SearchResult, config FusionConfig) []SearchResult {
	exactMap := make(map[int64]SearchResult, len(exactResults))
	for _, result := range exactResults {
		exactMap[result.Item.ID] = result
	}

	fuzzyMap := make(map[int64]SearchResult, len(fuzzyResults))
	for _, result := range fuzzyResults {
		fuzzyMap[result.Item.ID] = result
	}

	fusedResults := make([]SearchResult, 0, len(fuzzyMap)+len(exactMap))
	for id, fuzzy := range fuzzyMap {
		exact, hasExact := exactMap[id]
		score := config.FuzzyWeight * fuzzy.Score
		if hasExact {
			score += config.ExactWeight * exact.Score
		}
		fusedResults = append(fusedResults, SearchResult{Item: fuzzy.Item, Score: score})
	}
	for id, exact := range exactMap {
		if _, seen := fuzzyMap[id]; seen {
			continue
		}
		fusedResults = append(fusedResults, SearchResult{Item: exact.Item, Score: config.ExactWeight * exact.Score})
	}

	return fusedResults
}

// normalizeScores divides every score by the best one, so the top result is
// 1.0 and the others are relative to it.
func normalizeScores(results []SearchResult) []SearchResult {
	if len(results) == 0 {
		return results
	}

	maxScore := results[0].Score
	for _, result := range results {
		if result.Score > maxScore {
			maxScore = result.Score
		}
	}

	normalized := make([]SearchResult, len(results))
	for i, result := range results {
		normalized[i] = result
		if maxScore <= 0 {
			normalized[i].Score = 0
			continue
		}
		normalized[i].Score = result.Score / maxScore
	}

	return normalized
}

// roundScore rounds to two decimals, the precision similarity is reported at.
func roundScore(s float64) float64 {
	return math.Round(s*100) / 100
}

func truncate(results []SearchResult, limit int) []SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
