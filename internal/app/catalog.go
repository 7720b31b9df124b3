package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/search"
	"github.com/khanglvm/hybrid-rank/internal/storage"
)

// indexedCatalog serves the catalog from storage, and from the persistent
// search index while storage is unavailable. The index holds the catalog
// as of the last successful import or startup.
type indexedCatalog struct {
	store *storage.SQLiteStorage
	index *search.Indexer
}

func (c indexedCatalog) GetAll(ctx context.Context) ([]catalog.Item, error) {
	items, err := c.store.GetAll(ctx)
	if !errors.Is(err, storage.ErrUnavailable) {
		return items, err
	}

	cached, ierr := c.index.GetAllItems(0)
	if ierr != nil || len(cached) == 0 {
		return nil, err
	}
	log.Warn().Int("items", len(cached)).Str("index", c.index.Path()).Msg("storage unavailable, ranking the indexed catalog")
	return cached, nil
}
