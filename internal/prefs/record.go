// Package prefs holds the learned per-user scoring bias and its persistence.
package prefs

import (
	"errors"
	"fmt"
	"maps"
	"math"
)

const (
	// DefaultLikeIncrement is added to a brand weight on every like.
	DefaultLikeIncrement = 0.4

	// MinTuning and MaxTuning bound price sensitivity and rating weight.
	MinTuning = 0.5
	MaxTuning = 2.0

	// InflationWarnThreshold is the brand weight above which a like is
	// reported as affinity inflation.
	InflationWarnThreshold = 5.0
)

// ErrOutOfRange is returned by Tune for values outside [MinTuning, MaxTuning].
var ErrOutOfRange = errors.New("value out of range")

// ErrInvalidUser is returned for user ids outside [A-Za-z0-9_-]{1,64}.
var ErrInvalidUser = errors.New("invalid user id")

// Record is the persisted preference document. Field names are part of the
// on-disk format.
type Record struct {
	BrandWeights     map[string]float64 `json:"brand_weights"`
	CategoryWeights  map[string]float64 `json:"category_weights"`
	PriceSensitivity float64            `json:"price_sensitivity"`
	RatingWeight     float64            `json:"rating_weight"`
	BrandLoyalty     float64            `json:"brand_loyalty"`
	LoyaltyPoints    int                `json:"loyalty_points"`

	// PreferredBrandTemp seeds the user context's preferred brand.
	PreferredBrandTemp string `json:"preferred_brand_temp,omitempty"`
}

// Default returns the documented default record. It is also the reset value.
func Default() Record {
	return Record{
		BrandWeights:     map[string]float64{},
		CategoryWeights:  map[string]float64{},
		PriceSensitivity: 1.0,
		RatingWeight:     1.0,
		BrandLoyalty:     1.0,
		LoyaltyPoints:    0,
	}
}

// BrandAffinity returns the learned weight for brand, 1.0 when unseen.
func (r Record) BrandAffinity(brand string) float64 {
	if w, ok := r.BrandWeights[brand]; ok {
		return w
	}
	return 1.0
}

// Like records a positive signal for brand and returns the new weight.
// An unseen brand starts from 1.0. When limit is positive the weight is
// clamped to it; limit 0 leaves growth unbounded. A non-positive increment
// falls back to DefaultLikeIncrement.
func (r *Record) Like(brand string, increment, limit float64) float64 {
	if increment <= 0 {
		increment = DefaultLikeIncrement
	}
	if r.BrandWeights == nil {
		r.BrandWeights = map[string]float64{}
	}

	current := r.BrandAffinity(brand)
	w := current + increment
	if limit > 0 && w > limit {
		// never lower a weight learned before the limit was set
		w = math.Max(limit, current)
	}
	r.BrandWeights[brand] = w
	return w
}

// Tune sets the agent tuning knobs. Both values must lie in
// [MinTuning, MaxTuning]; on error the record is left unchanged.
func (r *Record) Tune(priceSensitivity, ratingWeight float64) error {
	if err := checkTuning("price_sensitivity", priceSensitivity); err != nil {
		return err
	}
	if err := checkTuning("rating_weight", ratingWeight); err != nil {
		return err
	}
	r.PriceSensitivity = priceSensitivity
	r.RatingWeight = ratingWeight
	return nil
}

// Clone returns a deep copy so callers can mutate maps freely.
func (r Record) Clone() Record {
	c := r
	c.BrandWeights = maps.Clone(r.BrandWeights)
	c.CategoryWeights = maps.Clone(r.CategoryWeights)
	if c.BrandWeights == nil {
		c.BrandWeights = map[string]float64{}
	}
	if c.CategoryWeights == nil {
		c.CategoryWeights = map[string]float64{}
	}
	return c
}

func checkTuning(name string, v float64) error {
	if math.IsNaN(v) || v < MinTuning || v > MaxTuning {
		return fmt.Errorf("%s %.2f not in [%.1f, %.1f]: %w", name, v, MinTuning, MaxTuning, ErrOutOfRange)
	}
	return nil
}
