package ranking

import (
	"fmt"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
)

// Explanation thresholds. They are independent of the scoring formula.
const (
	SimilarityExplainPct = 30  // similarity shown above this percentage
	SavingsDiscountPct   = 15  // discount shown above this percentage
	QualityRating        = 4.5 // rating shown at or above this
	FastShippingDays     = 3   // shipping shown at or below this
)

// FallbackExplanation is shown when no other explanation applies.
const FallbackExplanation = "Standard recommendation based on category match."

// ExplanationKind classifies an Explanation.
type ExplanationKind string

const (
	KindSimilarity ExplanationKind = "similarity"
	KindRule       ExplanationKind = "rule"
	KindSavings    ExplanationKind = "savings"
	KindQuality    ExplanationKind = "quality"
	KindSpeed      ExplanationKind = "speed"
)

// Explanation is one human-readable justification for a result.
type Explanation struct {
	Kind ExplanationKind `json:"kind"`
	Text string          `json:"text"`
}

// Explain lists the justifications for r in display order: similarity,
// fired rules, savings, quality, speed.
func Explain(r RankedResult) []Explanation {
	it := &r.Item
	var out []Explanation

	if it.Similarity != nil {
		pct := int(*it.Similarity * 100)
		if pct > SimilarityExplainPct {
			out = append(out, Explanation{KindSimilarity,
				fmt.Sprintf("Match %d%%: the description is semantically similar to your search", pct)})
		}
	}

	for _, reason := range r.Fired {
		out = append(out, Explanation{KindRule, reason})
	}

	if d := catalog.Discount(it); d > SavingsDiscountPct {
		out = append(out, Explanation{KindSavings, fmt.Sprintf("High discount of %g%% applied", d)})
	}
	if rating := catalog.Rating(it); rating >= QualityRating {
		out = append(out, Explanation{KindQuality, fmt.Sprintf("Excellent user rating (%g/5)", rating)})
	}
	if days := catalog.ShippingTime(it); days <= FastShippingDays {
		out = append(out, Explanation{KindSpeed, fmt.Sprintf("Fast shipping available (%d days)", days)})
	}

	return out
}

// ExplainText is Explain flattened to text, with FallbackExplanation when
// nothing applies.
func ExplainText(r RankedResult) []string {
	exps := Explain(r)
	if len(exps) == 0 {
		return []string{FallbackExplanation}
	}
	out := make([]string, len(exps))
	for i, e := range exps {
		out[i] = e.Text
	}
	return out
}
