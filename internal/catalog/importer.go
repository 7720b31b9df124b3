package catalog

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// LoadFile reads a JSON array of items (products.json) and normalizes it for
// import: unknown shipping times become DefaultShippingDays and every item is
// validated. Duplicate ids are rejected.
func LoadFile(path string) ([]Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Decode(data)
}

// Decode parses and normalizes a JSON array of items.
func Decode(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[int64]bool, len(items))
	var errs []error
	for i := range items {
		it := &items[i]
		if it.ShippingTimeDays == nil {
			days := DefaultShippingDays
			it.ShippingTimeDays = &days
		}
		if it.Tags == nil {
			it.Tags = Tags{}
		}
		// Similarity is produced by search, never imported.
		it.Similarity = nil

		if err := it.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[it.ID] {
			errs = append(errs, fmt.Errorf("duplicate item id %d", it.ID))
			continue
		}
		seen[it.ID] = true
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return items, nil
}
