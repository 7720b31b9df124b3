/*
Package ranking fuses the similarity signal, the rule score and the learned
preferences into one ordered, explained result list.

The Aggregator implements the scoring formula. The Engine runs a complete
ranking pass: slot parsing, candidate retrieval with fallback, aggregation
and the display cut.
*/
package ranking

import (
	"sort"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/expr"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/query"
	"github.com/khanglvm/hybrid-rank/internal/rules"
)

// Scoring constants. Penalties are flat deductions: a mismatch demotes an
// item, it never removes it.
const (
	CategoryPenalty = 30.0
	BrandPenalty    = 25.0
	BudgetPenalty   = 40.0

	// BudgetTolerance is how far over budget an item may be before the
	// budget penalty applies.
	BudgetTolerance = 1.1

	// SimilarityBoost scales the similarity score into score points.
	SimilarityBoost = 20.0

	// AffinityDamping scales how much a learned brand weight moves the score.
	AffinityDamping = 0.1
)

// Filters are hard preferences that penalize mismatching items.
// Matching is exact; empty means unset.
type Filters struct {
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
}

// RankedResult is one scored candidate.
type RankedResult struct {
	Item  catalog.Item `json:"item"`
	Score float64      `json:"score"`

	// Fired holds the explanations of the rules that fired, in rule order.
	Fired []string `json:"fired"`

	// RuleFailures counts rules that failed for this item.
	RuleFailures int `json:"rule_failures,omitempty"`
}

// Aggregator scores candidates.
type Aggregator struct {
	evaluator *rules.Evaluator
}

// NewAggregator returns an aggregator evaluating rules with ev. A nil ev
// gets a fresh evaluator.
func NewAggregator(ev *rules.Evaluator) *Aggregator {
	if ev == nil {
		ev = rules.NewEvaluator()
	}
	return &Aggregator{evaluator: ev}
}

// Score computes the result for a single item.
func (a *Aggregator) Score(it catalog.Item, user query.UserContext, filters Filters, rec prefs.Record, rs []rules.Rule) RankedResult {
	return a.score(rules.PassEnv(user, rec), it, user, filters, rec, rs)
}

// Rank scores every candidate and sorts by descending score. Equal scores
// keep candidate order. No candidate is dropped.
func (a *Aggregator) Rank(cands []catalog.Item, user query.UserContext, filters Filters, rec prefs.Record, rs []rules.Rule) []RankedResult {
	env := rules.PassEnv(user, rec)

	results := make([]RankedResult, len(cands))
	for i, it := range cands {
		results[i] = a.score(env, it, user, filters, rec, rs)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

func (a *Aggregator) score(env expr.Env, it catalog.Item, user query.UserContext, filters Filters, rec prefs.Record, rs []rules.Rule) RankedResult {
	out := a.evaluator.ApplyEnv(env, &it, rs)

	score := catalog.Rating(&it)*rec.RatingWeight + out.Weight
	score *= (1 + AffinityDamping*(rec.BrandAffinity(it.Brand)-1)) * rec.BrandLoyalty

	if filters.Category != "" && it.Category != filters.Category {
		score -= CategoryPenalty
	}
	if filters.Brand != "" && it.Brand != filters.Brand {
		score -= BrandPenalty
	}
	if user.Budget != nil && catalog.EffectivePrice(&it) > BudgetTolerance*(*user.Budget) {
		score -= BudgetPenalty
	}
	if it.Similarity != nil {
		score += *it.Similarity * SimilarityBoost
	}

	return RankedResult{
		Item:         it,
		Score:        score,
		Fired:        out.Fired,
		RuleFailures: out.Failures,
	}
}
