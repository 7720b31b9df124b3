/*
Package catalog defines the item record being ranked and the predicate
library that rules and the scoring aggregator use to read it.

Items come from the SQLite catalog store or from a JSON import file.
Every accessor in predicates.go is total: missing fields fall back to
documented defaults instead of failing.
*/
package catalog

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
)

// DefaultShippingDays is used when an item has no known shipping lead time.
const DefaultShippingDays = 7

var validate = validator.New()

// Item is a catalog entry. It is treated as immutable within a ranking pass.
type Item struct {
	ID          int64  `json:"id" validate:"gte=0"`
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category"`
	Brand       string `json:"brand"`
	Description string `json:"description"`

	// Price is the list price before discount.
	Price float64 `json:"price" validate:"gte=0"`

	// Discount is a percentage in [0, 100].
	Discount float64 `json:"discount" validate:"gte=0,lte=100"`

	// Rating is the average customer rating in [0, 5].
	Rating float64 `json:"rating" validate:"gte=0,lte=5"`

	Reviews int `json:"reviews" validate:"gte=0"`
	Stock   int `json:"stock"`

	// ShippingTimeDays is nil when the lead time is unknown.
	ShippingTimeDays *int `json:"shipping_time_days,omitempty"`

	Tags Tags `json:"tags"`

	// Similarity is set only by the similarity-search collaborator.
	Similarity *float64 `json:"match_score,omitempty"`
}

// Validate checks the record invariants (price >= 0, discount in [0,100]).
func (it *Item) Validate() error {
	if err := validate.Struct(it); err != nil {
		return fmt.Errorf("item %d (%s): %w", it.ID, it.Name, err)
	}
	return nil
}

// WithSimilarity returns a copy of the item carrying the given similarity score.
func (it Item) WithSimilarity(score float64) Item {
	s := score
	it.Similarity = &s
	return it
}

// WithoutSimilarity returns a copy of the item with no similarity score.
func (it Item) WithoutSimilarity() Item {
	it.Similarity = nil
	return it
}

// Tags is a case-insensitive set of feature tags kept in insertion order.
//
// JSON input may be either a list of strings or a single comma-delimited
// string (the form the catalog database stores).
type Tags []string

// UnmarshalJSON accepts ["a","b"] or "a,b".
func (t *Tags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = NormalizeTags(list)
		return nil
	}

	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("tags must be a list or a comma-delimited string: %w", err)
	}
	*t = ParseTags(joined)
	return nil
}

// String joins tags with commas, the storage form.
func (t Tags) String() string {
	return strings.Join(t, ",")
}

// ParseTags splits a comma-delimited tag string into a normalized set.
func ParseTags(joined string) Tags {
	if strings.TrimSpace(joined) == "" {
		return Tags{}
	}
	return NormalizeTags(strings.Split(joined, ","))
}

// NormalizeTags trims whitespace, drops empty entries and removes
// case-insensitive duplicates, keeping the first spelling seen.
func NormalizeTags(raw []string) Tags {
	seen := make(map[string]bool, len(raw))
	tags := make(Tags, 0, len(raw))
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}
