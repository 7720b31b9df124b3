package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/query"
	"github.com/khanglvm/hybrid-rank/internal/rules"
)

type fakeCatalog struct {
	items []catalog.Item
	err   error
	calls int
}

func (c *fakeCatalog) GetAll(context.Context) ([]catalog.Item, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	out := make([]catalog.Item, len(c.items))
	copy(out, c.items)
	return out, nil
}

type fakeSearcher struct {
	hits    []catalog.Item
	err     error
	queries []string
	topK    int
}

func (s *fakeSearcher) Search(_ context.Context, q string, topK int) ([]catalog.Item, error) {
	s.queries = append(s.queries, q)
	s.topK = topK
	return s.hits, s.err
}

type failingSource struct{}

func (failingSource) Rules() ([]rules.Rule, error) { return nil, errors.New("disk gone") }

type recorded struct {
	query    string
	results  int
	semantic bool
}

type fakeRecorder struct{ events []recorded }

func (r *fakeRecorder) TrackSearch(q string, n int, semantic bool) {
	r.events = append(r.events, recorded{q, n, semantic})
}

func sampleCatalog() []catalog.Item {
	return []catalog.Item{
		{ID: 1, Name: "Acme ProBook", Brand: "Acme", Category: "Laptops", Price: 85000, Discount: 10, Rating: 4.6, Stock: 12},
		{ID: 2, Name: "Zenith Gamer", Brand: "Zenith", Category: "Laptops", Price: 145000, Discount: 5, Rating: 4.4, Stock: 3},
		{ID: 3, Name: "Acme Tab", Brand: "Acme", Category: "Tablets", Price: 32000, Discount: 20, Rating: 3.9},
		{ID: 4, Name: "Nimbus Keyboard", Brand: "Nimbus", Category: "Accessories", Price: 4500, Rating: 4.8, Stock: 40},
	}
}

func ids(results []RankedResult) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.Item.ID
	}
	return out
}

func TestRankFullCatalogWhenNoSearcher(t *testing.T) {
	cat := &fakeCatalog{items: sampleCatalog()}
	e := NewEngine(Config{}, cat, rules.StaticSource(highRating))

	resp, err := e.Rank(context.Background(), Request{Query: "laptop under 100000"}, prefs.Default())
	require.NoError(t, err)

	assert.False(t, resp.Semantic)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, 100000.0, *resp.Budget)
	assert.Equal(t, 4, resp.Ranked)
	// Zenith: 4.4 - 40 (over budget) ranks last
	assert.Equal(t, []int64{4, 1, 3, 2}, ids(resp.Results))
}

func TestRankUsesSearchHits(t *testing.T) {
	items := sampleCatalog()
	searcher := &fakeSearcher{hits: []catalog.Item{
		items[0].WithSimilarity(0.91),
		items[1].WithSimilarity(0.26),
		items[3].WithSimilarity(0.25), // dropped: threshold is strict
		items[2].WithSimilarity(0.248), // rounds to 0.25, dropped
	}}
	cat := &fakeCatalog{items: items}
	rec := &fakeRecorder{}

	e := NewEngine(Config{}, cat, nil).WithSearcher(searcher, query.NewCleaner()).WithRecorder(rec)
	resp, err := e.Rank(context.Background(), Request{Query: "a device for coding"}, prefs.Default())
	require.NoError(t, err)

	assert.True(t, resp.Semantic)
	assert.Equal(t, "device coding", resp.SearchQuery)
	assert.Equal(t, []string{"device coding"}, searcher.queries)
	assert.Equal(t, 15, searcher.topK)
	assert.Equal(t, 0, cat.calls, "catalog is not read when search yields hits")
	assert.Equal(t, []int64{1, 2}, ids(resp.Results))
	require.NotNil(t, resp.Results[0].Item.Similarity)

	require.Len(t, rec.events, 1)
	assert.Equal(t, recorded{"a device for coding", 2, true}, rec.events[0])
}

func TestRankFallsBackToCatalog(t *testing.T) {
	cases := map[string]*fakeSearcher{
		"error": {err: errors.New("index closed")},
		"empty": {},
		"below threshold": {hits: []catalog.Item{sampleCatalog()[0].WithSimilarity(0.1)}},
	}
	for name, searcher := range cases {
		t.Run(name, func(t *testing.T) {
			cat := &fakeCatalog{items: sampleCatalog()}
			e := NewEngine(Config{}, cat, nil).WithSearcher(searcher, nil)

			resp, err := e.Rank(context.Background(), Request{Query: "gaming laptop"}, prefs.Default())
			require.NoError(t, err)
			assert.False(t, resp.Semantic)
			assert.Equal(t, 4, resp.Ranked)
			assert.Equal(t, 1, cat.calls)
			for _, r := range resp.Results {
				assert.Nil(t, r.Item.Similarity, "no similarity boost after fallback")
			}
		})
	}
}

func TestRankSkipsSearchForShortAndNumericQueries(t *testing.T) {
	for _, q := range []string{"50000", "tv", "   ", ""} {
		t.Run(fmt.Sprintf("%q", q), func(t *testing.T) {
			searcher := &fakeSearcher{}
			e := NewEngine(Config{}, &fakeCatalog{items: sampleCatalog()}, nil).WithSearcher(searcher, nil)

			resp, err := e.Rank(context.Background(), Request{Query: q}, prefs.Default())
			require.NoError(t, err)
			assert.Empty(t, searcher.queries)
			assert.False(t, resp.Semantic)
		})
	}
}

func TestRankNumericQuerySetsBudget(t *testing.T) {
	e := NewEngine(Config{}, &fakeCatalog{items: sampleCatalog()}, nil)
	resp, err := e.Rank(context.Background(), Request{Query: "50000", BudgetOverride: 1000}, prefs.Default())
	require.NoError(t, err)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, 50000.0, *resp.Budget)
}

func TestRankBudgetOverride(t *testing.T) {
	e := NewEngine(Config{}, &fakeCatalog{items: sampleCatalog()}, nil)

	resp, err := e.Rank(context.Background(), Request{Query: "laptop", BudgetOverride: 5000}, prefs.Default())
	require.NoError(t, err)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, 5000.0, *resp.Budget)

	resp, err = e.Rank(context.Background(), Request{Query: "laptop"}, prefs.Default())
	require.NoError(t, err)
	assert.Nil(t, resp.Budget)
}

func TestRankCatalogFailureIsAnError(t *testing.T) {
	e := NewEngine(Config{}, &fakeCatalog{err: errors.New("db locked")}, nil)
	_, err := e.Rank(context.Background(), Request{Query: "laptop"}, prefs.Default())
	assert.ErrorContains(t, err, "db locked")
}

func TestRankWithoutRulesWhenSourceFails(t *testing.T) {
	e := NewEngine(Config{}, &fakeCatalog{items: sampleCatalog()}, failingSource{})
	resp, err := e.Rank(context.Background(), Request{Query: "anything"}, prefs.Default())
	require.NoError(t, err)
	for _, r := range resp.Results {
		assert.Empty(t, r.Fired)
	}
}

func TestRankDisplayCut(t *testing.T) {
	e := NewEngine(Config{DisplayLimit: 2}, &fakeCatalog{items: sampleCatalog()}, nil)

	resp, err := e.Rank(context.Background(), Request{Query: "x", MinRating: 4.5}, prefs.Default())
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Ranked, "the cut happens after ranking")
	assert.Equal(t, []int64{4, 1}, ids(resp.Results))

	resp, err = e.Rank(context.Background(), Request{Query: "x", Limit: 3}, prefs.Default())
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}

func TestRankCountsRuleFailures(t *testing.T) {
	bad := rules.StaticSource{{Name: "bad", Condition: "nosuch(p)"}}
	e := NewEngine(Config{}, &fakeCatalog{items: sampleCatalog()}, bad)
	resp, err := e.Rank(context.Background(), Request{Query: "x"}, prefs.Default())
	require.NoError(t, err)
	assert.Equal(t, 4, resp.RuleFailures)
}

func TestRankHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewEngine(Config{}, &fakeCatalog{items: sampleCatalog()}, nil)
	_, err := e.Rank(ctx, Request{Query: "x"}, prefs.Default())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankAppliesPreferredBrandFromPrefs(t *testing.T) {
	src := rules.StaticSource{{
		Name:      "preferred",
		Condition: "user.preferred_brand is not None and Brand(p, user.preferred_brand)",
		Weight:    w(10),
	}}
	rec := prefs.Default()
	rec.PreferredBrandTemp = "zenith"

	e := NewEngine(Config{}, &fakeCatalog{items: sampleCatalog()}, src)
	resp, err := e.Rank(context.Background(), Request{Query: "x"}, rec)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Results[0].Item.ID)
}

func TestEngineSearchWithoutSearcher(t *testing.T) {
	e := NewEngine(Config{}, &fakeCatalog{}, nil)
	_, err := e.Search(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNoSearcher)
}

func BenchmarkRank(b *testing.B) {
	items := make([]catalog.Item, 500)
	for i := range items {
		items[i] = catalog.Item{
			ID:       int64(i + 1),
			Name:     fmt.Sprint("item ", i),
			Brand:    []string{"Acme", "Zenith", "Nimbus"}[i%3],
			Category: []string{"Laptops", "Tablets"}[i%2],
			Price:    float64(1000 + i*37),
			Discount: float64(i % 30),
			Rating:   float64(i%50) / 10,
			Stock:    i % 7,
			Tags:     catalog.Tags{"coding"},
		}
	}
	e := NewEngine(Config{}, &fakeCatalog{items: items}, rules.StaticSource(rules.DefaultRules()))
	rec := prefs.Default()
	req := Request{Query: "laptop under 20000", Category: "Laptops", MinRating: 4}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Rank(context.Background(), req, rec); err != nil {
			b.Fatal(err)
		}
	}
}
