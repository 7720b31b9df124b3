package query

// UserContext is the per-query state rules and the aggregator see.
// It is built fresh for every ranking pass and never persisted.
type UserContext struct {
	// Budget is nil when neither the query nor the caller set one.
	Budget *float64 `json:"budget"`

	// InterestCategory is the category the user filtered on, if any.
	InterestCategory string `json:"interest_category,omitempty"`

	MinRating      float64 `json:"min_rating"`
	PreferredBrand string  `json:"preferred_brand,omitempty"`
}

// ResolveBudget picks the effective budget: a non-zero max price slot wins,
// then a positive override, otherwise no budget.
func ResolveBudget(slots Slots, override float64) *float64 {
	if slots.MaxPrice != nil && *slots.MaxPrice != 0 {
		b := *slots.MaxPrice
		return &b
	}
	if override > 0 {
		b := override
		return &b
	}
	return nil
}
