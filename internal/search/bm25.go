package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
)

// SearchBM25 performs BM25 keyword search using Bleve. Scores are raw.
func (i *Indexer) SearchBM25(ctx context.Context, text string, limit int) ([]SearchResult, error) {
	return i.run(ctx, i.buildMatchQuery(text), text, limit)
}

// SearchFuzzy is SearchBM25 tolerating one edit per query term.
func (i *Indexer) SearchFuzzy(ctx context.Context, text string, limit int) ([]SearchResult, error) {
	return i.run(ctx, i.buildFuzzyQuery(text), text, limit)
}

func (i *Indexer) run(ctx context.Context, q query.Query, text string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	searchRequest := bleve.NewSearchRequestOptions(q, limit, 0, false)
	searchRequest.Fields = []string{"doc"}

	results, err := i.bleveIndex.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	return convertBleveResults(results), nil
}

// convertBleveResults decodes the stored item of every hit. Hits whose
// stored item cannot be decoded are skipped.
func convertBleveResults(results *bleve.SearchResult) []SearchResult {
	searchResults := make([]SearchResult, 0, len(results.Hits))

	for _, hit := range results.Hits {
		raw, _ := hit.Fields["doc"].(string)

		var it catalog.Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			log.Warn().Err(err).Str("doc", hit.ID).Msg("failed to decode indexed item")
			continue
		}

		searchResults = append(searchResults, SearchResult{
			Item:  it,
			Score: hit.Score,
		})
	}

	return searchResults
}

// GetAllItems returns every indexed item ordered by ID. A positive limit
// caps the count.
func (i *Indexer) GetAllItems(limit int) ([]catalog.Item, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if limit <= 0 {
		count, err := i.bleveIndex.DocCount()
		if err != nil {
			return nil, fmt.Errorf("failed to get doc count: %w", err)
		}
		if count == 0 {
			return nil, nil
		}
		limit = int(count)
	}

	searchRequest := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), limit, 0, false)
	searchRequest.Fields = []string{"doc"}
	searchRequest.SortBy([]string{"_id"})

	results, err := i.bleveIndex.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := convertBleveResults(results)
	items := make([]catalog.Item, len(hits))
	for n, h := range hits {
		items[n] = h.Item
	}
	sort.SliceStable(items, func(a, b int) bool { return items[a].ID < items[b].ID })
	return items, nil
}
