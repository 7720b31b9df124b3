package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/metrics"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/query"
	"github.com/khanglvm/hybrid-rank/internal/rules"
)

// Catalog lists every item that can be ranked.
type Catalog interface {
	GetAll(ctx context.Context) ([]catalog.Item, error)
}

// Searcher returns the items most similar to a query, best first, each
// carrying a similarity score in [0,1].
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]catalog.Item, error)
}

// Cleaner strips noise from a query before similarity search.
type Cleaner interface {
	Clean(query string) string
}

// SearchRecorder is told about every completed ranking pass.
type SearchRecorder interface {
	TrackSearch(query string, resultsCount int, semantic bool)
}

// ErrNoSearcher is returned by Search when the engine has no searcher.
var ErrNoSearcher = errors.New("similarity search not configured")

// Config tunes a ranking pass.
type Config struct {
	// TopK is how many similarity hits to request.
	TopK int

	// MinSimilarity drops hits at or below this score. Zero selects the
	// default; configuration only accepts values in (0, 1].
	MinSimilarity float64

	// DisplayLimit caps the number of displayed results.
	DisplayLimit int
}

// DefaultConfig returns the standard pass settings.
func DefaultConfig() Config {
	return Config{
		TopK:          15,
		MinSimilarity: 0.25,
		DisplayLimit:  10,
	}
}

// Request is one free-text ranking request.
type Request struct {
	Query string `json:"query"`

	// BudgetOverride applies when positive and the query names no price.
	BudgetOverride float64 `json:"budget_override,omitempty"`

	// Category is both the user's interest and a hard filter.
	Category string `json:"category,omitempty"`

	// Brand is a hard filter.
	Brand string `json:"brand,omitempty"`

	// MinRating hides results rated below it. Ranking is unaffected.
	MinRating float64 `json:"min_rating"`

	// Limit overrides Config.DisplayLimit when positive.
	Limit int `json:"limit,omitempty"`
}

// Response is the outcome of a ranking pass.
type Response struct {
	Query       string   `json:"query"`
	SearchQuery string   `json:"search_query,omitempty"`
	Semantic    bool     `json:"semantic"`
	Budget      *float64 `json:"budget"`

	// Ranked is the number of candidates scored before the display cut.
	Ranked int `json:"ranked"`

	Results      []RankedResult `json:"results"`
	RuleFailures int            `json:"rule_failures"`
}

// Engine runs complete ranking passes.
type Engine struct {
	cfg      Config
	catalog  Catalog
	rules    rules.Source
	searcher Searcher
	cleaner  Cleaner
	recorder SearchRecorder
	agg      *Aggregator
}

// NewEngine returns an engine ranking cat with the rules from src.
// Zero config values take their defaults.
func NewEngine(cfg Config, cat Catalog, src rules.Source) *Engine {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.MinSimilarity <= 0 {
		cfg.MinSimilarity = def.MinSimilarity
	}
	if cfg.DisplayLimit <= 0 {
		cfg.DisplayLimit = def.DisplayLimit
	}
	if src == nil {
		src = rules.StaticSource(nil)
	}
	return &Engine{
		cfg:     cfg,
		catalog: cat,
		rules:   src,
		agg:     NewAggregator(nil),
	}
}

// WithSearcher enables similarity search. c may be nil.
func (e *Engine) WithSearcher(s Searcher, c Cleaner) *Engine {
	e.searcher = s
	e.cleaner = c
	return e
}

// WithRecorder reports every pass to r.
func (e *Engine) WithRecorder(r SearchRecorder) *Engine {
	e.recorder = r
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Rank runs one pass for req against the preference record rec.
//
// Search failures, empty search results and unreadable rules degrade the
// pass; only an unavailable catalog is an error.
func (e *Engine) Rank(ctx context.Context, req Request, rec prefs.Record) (Response, error) {
	start := time.Now()
	defer func() { metrics.RankDuration.Observe(time.Since(start).Seconds()) }()

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}

	slots := query.ParseSlots(req.Query)
	user := query.UserContext{
		Budget:           query.ResolveBudget(slots, req.BudgetOverride),
		InterestCategory: req.Category,
		MinRating:        req.MinRating,
		PreferredBrand:   rec.PreferredBrandTemp,
	}
	resp := Response{Query: req.Query, Budget: user.Budget}

	cands, err := e.candidates(ctx, req.Query, &resp)
	if err != nil {
		return Response{}, err
	}

	rs, err := e.rules.Rules()
	if err != nil {
		log.Warn().Err(err).Msg("rules unavailable, ranking without rules")
		rs = nil
	}

	ranked := e.agg.Rank(cands, user, Filters{Category: req.Category, Brand: req.Brand}, rec, rs)
	resp.Ranked = len(ranked)

	limit := e.cfg.DisplayLimit
	if req.Limit > 0 {
		limit = req.Limit
	}
	resp.Results = make([]RankedResult, 0, min(limit, len(ranked)))
	for _, r := range ranked {
		resp.RuleFailures += r.RuleFailures
		if len(resp.Results) >= limit {
			continue
		}
		if catalog.Rating(&r.Item) < req.MinRating {
			continue
		}
		resp.Results = append(resp.Results, r)
	}

	source := "catalog"
	if resp.Semantic {
		source = "search"
	}
	metrics.RankPasses.WithLabelValues(source).Inc()

	if e.recorder != nil {
		e.recorder.TrackSearch(req.Query, len(resp.Results), resp.Semantic)
	}

	log.Debug().
		Str("query", req.Query).
		Bool("semantic", resp.Semantic).
		Int("ranked", resp.Ranked).
		Int("shown", len(resp.Results)).
		Dur("took", time.Since(start)).
		Msg("ranking pass")

	return resp, nil
}

// Search returns the similarity hits for q that pass the threshold.
func (e *Engine) Search(ctx context.Context, q string) ([]catalog.Item, error) {
	if e.searcher == nil {
		return nil, ErrNoSearcher
	}
	hits, err := e.searcher.Search(ctx, q, e.cfg.TopK)
	if err != nil {
		return nil, err
	}

	kept := hits[:0:0]
	for _, h := range hits {
		if h.Similarity == nil {
			continue
		}
		if roundSimilarity(*h.Similarity) > e.cfg.MinSimilarity {
			kept = append(kept, h)
		}
	}
	return kept, nil
}

// candidates picks the similarity hits when search applies and yields
// something, and the full catalog otherwise.
func (e *Engine) candidates(ctx context.Context, raw string, resp *Response) ([]catalog.Item, error) {
	if e.searcher != nil && query.ShouldSearch(raw) {
		resp.SearchQuery = query.SearchText(e.cleaner, raw)

		hits, err := e.Search(ctx, resp.SearchQuery)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("query", resp.SearchQuery).Msg("similarity search failed, using full catalog")
			metrics.SearchFallbacks.WithLabelValues("error").Inc()
		case len(hits) == 0:
			log.Debug().Str("query", resp.SearchQuery).Msg("no similar items, using full catalog")
			metrics.SearchFallbacks.WithLabelValues("empty").Inc()
		default:
			resp.Semantic = true
			return hits, nil
		}
	}

	if e.catalog == nil {
		return nil, errors.New("catalog not configured")
	}
	items, err := e.catalog.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	for i := range items {
		items[i].Similarity = nil
	}
	return items, nil
}

// roundSimilarity rounds to two decimals, the precision hits are reported at.
func roundSimilarity(s float64) float64 {
	return math.Round(s*100) / 100
}
