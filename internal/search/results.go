/*
Package search implements the similarity-search collaborator over the
product catalog.

Items are indexed in Bleve with an English analyzer. A query runs as an
exact BM25 match and as a typo-tolerant fuzzy match; both score sets are
fused and normalized so the best hit scores 1.0.
*/
package search

import "github.com/khanglvm/hybrid-rank/internal/catalog"

// SearchResult is a single hit with its relevance score.
type SearchResult struct {
	Item  catalog.Item `json:"item"`
	Score float64      `json:"score"`
}

// ItemDocument is an item as stored in the search index. Doc holds the
// full item as JSON and is stored but not indexed.
type ItemDocument struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Brand       string   `json:"brand"`
	Tags        []string `json:"tags"`
	Doc         string   `json:"doc"`
}

// fields returns the document in the map form the index mapping expects.
func (d ItemDocument) fields() map[string]interface{} {
	return map[string]interface{}{
		"name":        d.Name,
		"description": d.Description,
		"category":    d.Category,
		"brand":       d.Brand,
		"tags":        d.Tags,
		"doc":         d.Doc,
	}
}
