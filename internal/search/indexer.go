package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/index/scorch"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
)

// Indexer manages the search index for the catalog.
type Indexer struct {
	bleveIndex bleve.Index
	mu         sync.RWMutex
	indexPath  string
	fusion     FusionConfig
}

// NewIndexer creates a new search indexer with in-memory Bleve index.
func NewIndexer() (*Indexer, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}

	return &Indexer{
		bleveIndex: index,
		fusion:     DefaultFusionConfig,
	}, nil
}

// NewIndexerWithPath creates a new indexer with persistent disk storage.
func NewIndexerWithPath(indexPath string) (*Indexer, error) {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	// Open or create index with Scorch backend
	index, err := bleve.NewUsing(indexPath, buildIndexMapping(), scorch.Name, scorch.Name, nil)
	if err != nil {
		index, err = bleve.Open(indexPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open/create index: %w", err)
		}
	}

	return &Indexer{
		bleveIndex: index,
		indexPath:  indexPath,
		fusion:     DefaultFusionConfig,
	}, nil
}

// SetFusion replaces the exact/fuzzy fusion weights.
func (i *Indexer) SetFusion(cfg FusionConfig) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.fusion = cfg
}

// buildIndexMapping creates the Bleve index mapping.
func buildIndexMapping() mapping.IndexMapping {
	itemMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"name", "description", "category", "brand", "tags"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = en.AnalyzerName
		itemMapping.AddFieldMappingsAt(field, fm)
	}

	// Doc: stored but not indexed (for retrieval)
	docMapping := bleve.NewTextFieldMapping()
	docMapping.Index = false
	docMapping.IncludeInAll = false
	itemMapping.AddFieldMappingsAt("doc", docMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName
	indexMapping.AddDocumentMapping("_default", itemMapping)

	return indexMapping
}

// IndexItems replaces the indexed catalog with items.
func (i *Indexer) IndexItems(items []catalog.Item) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	existing, err := i.allIDs()
	if err != nil {
		return err
	}

	batch := i.bleveIndex.NewBatch()
	for _, it := range items {
		docID := strconv.FormatInt(it.ID, 10)
		delete(existing, docID)

		doc, err := newItemDocument(it)
		if err != nil {
			log.Warn().Err(err).Int64("item", it.ID).Msg("failed to encode item for indexing")
			continue
		}
		if err := batch.Index(docID, doc.fields()); err != nil {
			log.Warn().Err(err).Int64("item", it.ID).Msg("failed to index item")
		}
	}
	for docID := range existing {
		batch.Delete(docID)
	}

	if err := i.bleveIndex.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index items: %w", err)
	}

	return nil
}

// Count returns the total number of indexed items.
func (i *Indexer) Count() (uint64, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	docCount, err := i.bleveIndex.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}

	return docCount, nil
}

// Path returns the on-disk index path, empty for in-memory indexes.
func (i *Indexer) Path() string {
	return i.indexPath
}

// Close closes the index and releases resources.
func (i *Indexer) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.bleveIndex != nil {
		return i.bleveIndex.Close()
	}

	return nil
}

// allIDs returns the IDs of every indexed document. Caller holds the lock.
func (i *Indexer) allIDs() (map[string]struct{}, error) {
	count, err := i.bleveIndex.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get doc count: %w", err)
	}
	ids := make(map[string]struct{}, count)
	if count == 0 {
		return ids, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(count), 0, false)
	results, err := i.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexed items: %w", err)
	}
	for _, hit := range results.Hits {
		ids[hit.ID] = struct{}{}
	}
	return ids, nil
}

func newItemDocument(it catalog.Item) (ItemDocument, error) {
	it = it.WithoutSimilarity()
	raw, err := json.Marshal(it)
	if err != nil {
		return ItemDocument{}, err
	}
	return ItemDocument{
		Name:        it.Name,
		Description: it.Description,
		Category:    it.Category,
		Brand:       it.Brand,
		Tags:        []string(it.Tags),
		Doc:         string(raw),
	}, nil
}

// buildMatchQuery creates a match query for BM25 search.
func (i *Indexer) buildMatchQuery(searchText string) query.Query {
	return bleve.NewMatchQuery(searchText)
}

// buildFuzzyQuery creates a match query tolerating one edit per term.
func (i *Indexer) buildFuzzyQuery(searchText string) query.Query {
	q := bleve.NewMatchQuery(searchText)
	q.SetFuzziness(1)
	return q
}
