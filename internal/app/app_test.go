package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/config"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/ranking"
	"github.com/khanglvm/hybrid-rank/internal/rules"
	"github.com/khanglvm/hybrid-rank/internal/storage"
)

func intPtr(v int) *int { return &v }

func sampleItems() []catalog.Item {
	return []catalog.Item{
		{ID: 1, Name: "Dell XPS 13", Category: "laptop", Brand: "Dell", Description: "ultrabook for coding",
			Price: 1200, Discount: 10, Rating: 4.6, Reviews: 1500, Stock: 5, ShippingTimeDays: intPtr(2), Tags: catalog.Tags{"ssd", "coding"}},
		{ID: 2, Name: "Lenovo ThinkPad", Category: "laptop", Brand: "Lenovo", Description: "business laptop keyboard",
			Price: 900, Rating: 4.3, Reviews: 800, Stock: 3, Tags: catalog.Tags{"ssd"}},
		{ID: 3, Name: "Sony WH-1000XM5", Category: "headphones", Brand: "Sony", Description: "noise cancelling headphones",
			Price: 350, Discount: 15, Rating: 4.8, Reviews: 5000, Stock: 10, ShippingTimeDays: intPtr(1), Tags: catalog.Tags{"wireless"}},
	}
}

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	cfg.Resolve()
	_, err := rules.WriteDefaults(cfg.RulesPath)
	require.NoError(t, err)
	return cfg
}

func newTestApp(t *testing.T, opts Options) *App {
	t.Helper()
	a, err := New(context.Background(), newTestConfig(t), opts)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	require.NoError(t, a.Import(context.Background(), sampleItems()))
	return a
}

func TestNewCreatesDatabase(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	assert.True(t, a.Storage.Enabled())
	_, err := os.Stat(a.Config().DatabasePath)
	assert.NoError(t, err)

	n, err := a.Index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestNewReindexesExistingCatalog(t *testing.T) {
	cfg := newTestConfig(t)
	first, err := New(context.Background(), cfg, Options{DisableTracking: true})
	require.NoError(t, err)
	require.NoError(t, first.Import(context.Background(), sampleItems()))
	require.NoError(t, first.Close())

	second, err := New(context.Background(), cfg, Options{DisableTracking: true})
	require.NoError(t, err)
	defer second.Close()

	n, err := second.Index.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
}

func TestRankAppliesConfiguredMinRating(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	resp, err := a.Rank(context.Background(), "", ranking.Request{Query: "laptop"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Item.Rating, a.Config().Ranking.MinRating)
	}

	// a negative minimum rating disables the filter
	all, err := a.Rank(context.Background(), "", ranking.Request{Query: "laptop", MinRating: -1})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(all.Results), len(resp.Results))
}

func TestLikeRaisesBrandWeight(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	res, err := a.Like(context.Background(), "alice", 3, "headphones")
	require.NoError(t, err)
	assert.Equal(t, "Sony", res.Brand)
	assert.InDelta(t, 1.4, res.BrandWeight, 1e-9)

	rec, err := a.Preferences("alice")
	require.NoError(t, err)
	assert.InDelta(t, 1.4, rec.BrandWeights["Sony"], 1e-9)

	// other users are untouched
	other, err := a.Preferences("bob")
	require.NoError(t, err)
	assert.Empty(t, other.BrandWeights)
}

func TestLikeHonorsMaxBrandWeight(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})
	a.cfg.Preferences.MaxBrandWeight = 1.5

	var last LikeResult
	for range 5 {
		var err error
		last, err = a.Like(context.Background(), "", 1, "")
		require.NoError(t, err)
	}
	assert.InDelta(t, 1.5, last.BrandWeight, 1e-9)
}

func TestLikeUnknownItem(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	_, err := a.Like(context.Background(), "", 999, "")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestLikeIsTracked(t *testing.T) {
	a := newTestApp(t, Options{})

	_, err := a.Like(context.Background(), "alice", 1, "dell laptop")
	require.NoError(t, err)

	// Stop drains the queue
	a.Tracker.Stop()

	history, err := a.Storage.GetFeedbackHistory(time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].UserID)
	assert.Equal(t, "Dell", history[0].Brand)
}

func TestTuneValidatesRange(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	rec, err := a.Tune("", 1.5, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 1.5, rec.PriceSensitivity)
	assert.Equal(t, 0.8, rec.RatingWeight)

	_, err = a.Tune("", 3, 1)
	assert.ErrorIs(t, err, prefs.ErrOutOfRange)

	// a rejected tune leaves the stored record alone
	stored, err := a.Preferences("")
	require.NoError(t, err)
	assert.Equal(t, 1.5, stored.PriceSensitivity)
}

func TestAdjustKeepsOmittedValues(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	ps := 1.7
	rec, err := a.Adjust("", &ps, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.7, rec.PriceSensitivity)
	assert.Equal(t, prefs.Default().RatingWeight, rec.RatingWeight)

	bad := 0.1
	_, err = a.Adjust("", nil, &bad)
	assert.ErrorIs(t, err, prefs.ErrOutOfRange)
}

func TestConcurrentAdjustKeepsEveryValue(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	ps, rw := 1.5, 1.8
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := a.Adjust("alice", &ps, nil)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := a.Adjust("alice", nil, &rw)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := a.Preferences("alice")
	require.NoError(t, err)
	assert.Equal(t, 1.5, rec.PriceSensitivity)
	assert.Equal(t, 1.8, rec.RatingWeight)
}

func TestResetRestoresDefaults(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	_, err := a.Like(context.Background(), "", 1, "")
	require.NoError(t, err)
	_, err = a.Tune("", 2, 2)
	require.NoError(t, err)

	rec, err := a.Reset("")
	require.NoError(t, err)
	assert.Equal(t, prefs.Default().PriceSensitivity, rec.PriceSensitivity)
	assert.Empty(t, rec.BrandWeights)
}

func TestRuleSet(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true})

	rs, issues, err := a.RuleSet()
	require.NoError(t, err)
	assert.Len(t, rs, len(rules.DefaultRules()))
	assert.Empty(t, issues)
}

func TestWatchedRulesReload(t *testing.T) {
	a := newTestApp(t, Options{DisableTracking: true, WatchRules: true})
	require.NotNil(t, a.watched)

	rs, _, err := a.RuleSet()
	require.NoError(t, err)
	assert.NotEmpty(t, rs)
}

func TestStatus(t *testing.T) {
	a := newTestApp(t, Options{})

	_, err := a.Rank(context.Background(), "", ranking.Request{Query: "noise cancelling headphones"})
	require.NoError(t, err)
	_, err = a.Like(context.Background(), "", 3, "")
	require.NoError(t, err)
	a.Tracker.Stop()

	st := a.Status(context.Background())
	assert.True(t, st.StorageEnabled)
	assert.False(t, st.Tracking, "a stopped tracker records nothing")
	assert.Zero(t, st.PendingEvents)
	assert.Equal(t, 3, st.Products)
	assert.Equal(t, uint64(3), st.Indexed)
	assert.Equal(t, len(rules.DefaultRules()), st.Rules)
	assert.Equal(t, 1, st.Searches)
	require.NotEmpty(t, st.BrandInterest)
	assert.Equal(t, "Sony", st.BrandInterest[0].Key)
	require.NotEmpty(t, st.CategoryInterest)
	assert.Equal(t, "headphones", st.CategoryInterest[0].Key)
}

func TestDegradedStorage(t *testing.T) {
	cfg := newTestConfig(t)

	// a regular file where the database directory should be
	blocker := filepath.Join(cfg.DataDir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.DatabasePath = filepath.Join(blocker, "catalog.db")

	a, err := New(context.Background(), cfg, Options{DisableTracking: true})
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Storage.Enabled())
	_, err = a.Rank(context.Background(), "", ranking.Request{Query: "laptop"})
	assert.ErrorIs(t, err, storage.ErrUnavailable)

	st := a.Status(context.Background())
	assert.False(t, st.StorageEnabled)
	assert.Zero(t, st.Products)
}

func TestDegradedStorageRanksIndexedCatalog(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Search.IndexPath = filepath.Join(cfg.DataDir, "index", "catalog.bleve")

	first, err := New(context.Background(), cfg, Options{DisableTracking: true})
	require.NoError(t, err)
	require.NoError(t, first.Import(context.Background(), sampleItems()))
	require.NoError(t, first.Close())

	blocker := filepath.Join(cfg.DataDir, "blocked")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.DatabasePath = filepath.Join(blocker, "catalog.db")

	a, err := New(context.Background(), cfg, Options{DisableTracking: true})
	require.NoError(t, err)
	defer a.Close()
	require.False(t, a.Storage.Enabled())

	// a numeric query ranks the whole catalog
	resp, err := a.Rank(context.Background(), "", ranking.Request{Query: "2000", MinRating: -1})
	require.NoError(t, err)
	assert.Len(t, resp.Results, len(sampleItems()))
}

func TestPruneHistory(t *testing.T) {
	a := newTestApp(t, Options{})

	_, err := a.Like(context.Background(), "", 2, "")
	require.NoError(t, err)
	a.Tracker.Stop()

	require.NoError(t, a.PruneHistory(HistoryRetention))
	history, err := a.Storage.GetFeedbackHistory(time.Time{})
	require.NoError(t, err)
	assert.Len(t, history, 1, "recent history is kept")

	require.NoError(t, a.PruneHistory(0))
	history, err = a.Storage.GetFeedbackHistory(time.Time{})
	require.NoError(t, err)
	assert.Empty(t, history)

	// preferences survive
	rec, err := a.Preferences("")
	require.NoError(t, err)
	assert.Contains(t, rec.BrandWeights, "Lenovo")
}
