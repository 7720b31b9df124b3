// Package app wires configuration, storage, search, rules, preferences and
// learning into one ranking service shared by the CLI and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/config"
	"github.com/khanglvm/hybrid-rank/internal/learning"
	"github.com/khanglvm/hybrid-rank/internal/metrics"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/query"
	"github.com/khanglvm/hybrid-rank/internal/ranking"
	"github.com/khanglvm/hybrid-rank/internal/rules"
	"github.com/khanglvm/hybrid-rank/internal/search"
	"github.com/khanglvm/hybrid-rank/internal/storage"
)

// HistoryRetention is how long feedback and search history is kept by
// PruneHistory on server start.
const HistoryRetention = 90 * 24 * time.Hour

// Options select optional behavior.
type Options struct {
	// WatchRules reloads the rules file when it changes on disk.
	WatchRules bool

	// DisableTracking skips the learning tracker.
	DisableTracking bool
}

// App is the ranking service.
type App struct {
	cfg *config.Config

	Storage *storage.SQLiteStorage
	Index   *search.Indexer
	Prefs   *prefs.Manager
	Rules   rules.Source
	Engine  *ranking.Engine
	Tracker *learning.Tracker

	watched *rules.WatchedSource
}

// New opens every component described by cfg. Storage failures degrade
// the service instead of failing it.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{
		cfg:   cfg,
		Prefs: prefs.NewManager(cfg.PrefsDir),
	}

	a.Storage = storage.NewStorageAt(cfg.DatabasePath)
	if err := a.Storage.Init(); err != nil {
		log.Warn().Err(err).Str("path", cfg.DatabasePath).Msg("catalog storage unavailable")
	}

	var err error
	if cfg.Search.IndexPath != "" {
		a.Index, err = search.NewIndexerWithPath(cfg.Search.IndexPath)
	} else {
		a.Index, err = search.NewIndexer()
	}
	if err != nil {
		a.Storage.Close()
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	a.Rules = rules.NewFileSource(cfg.RulesPath)
	if opts.WatchRules {
		watched, err := rules.NewWatchedSource(cfg.RulesPath)
		if err != nil {
			log.Warn().Err(err).Msg("rules hot reload disabled")
		} else {
			a.watched = watched
			a.Rules = watched
		}
	}

	a.Index.SetFusion(search.FusionConfig{
		ExactWeight: cfg.Search.ExactWeight,
		FuzzyWeight: cfg.Search.FuzzyWeight,
	})

	var cat ranking.Catalog = a.Storage
	if a.Index.Path() != "" {
		cat = indexedCatalog{store: a.Storage, index: a.Index}
	}
	a.Engine = ranking.NewEngine(ranking.Config{
		TopK:          cfg.Search.TopK,
		MinSimilarity: cfg.Search.MinSimilarity,
		DisplayLimit:  cfg.Ranking.DisplayLimit,
	}, cat, a.Rules).WithSearcher(a.Index, query.NewCleaner())

	if !opts.DisableTracking {
		a.Tracker = learning.NewTracker(a.Storage)
		a.Engine.WithRecorder(a.Tracker)
	}

	if a.Storage.Enabled() {
		if _, err := a.Reindex(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to build search index, searches will fall back to the catalog")
		}
	}

	return a, nil
}

// Config returns the resolved configuration.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Reindex rebuilds the search index from the catalog.
func (a *App) Reindex(ctx context.Context) (int, error) {
	items, err := a.Storage.GetAll(ctx)
	if err != nil {
		return 0, err
	}
	if err := a.Index.IndexItems(items); err != nil {
		return 0, err
	}
	log.Debug().Int("items", len(items)).Msg("search index rebuilt")
	return len(items), nil
}

// Import replaces the catalog with items and reindexes.
func (a *App) Import(ctx context.Context, items []catalog.Item) error {
	if err := a.Storage.ReplaceProducts(items); err != nil {
		return fmt.Errorf("failed to import catalog: %w", err)
	}
	if _, err := a.Reindex(ctx); err != nil {
		return fmt.Errorf("failed to index catalog: %w", err)
	}
	return nil
}

// Rank runs a ranking pass for user. A request without a minimum rating
// uses the configured one; pass a negative value to show everything.
func (a *App) Rank(ctx context.Context, user string, req ranking.Request) (ranking.Response, error) {
	rec, err := a.Prefs.Get(user)
	if err != nil {
		return ranking.Response{}, err
	}
	if req.MinRating == 0 {
		req.MinRating = a.cfg.Ranking.MinRating
	} else if req.MinRating < 0 {
		req.MinRating = 0
	}
	return a.Engine.Rank(ctx, req, rec)
}

// LikeResult reports the effect of a like.
type LikeResult struct {
	Item        catalog.Item `json:"item"`
	Brand       string       `json:"brand"`
	BrandWeight float64      `json:"brand_weight"`
	Preferences prefs.Record `json:"preferences"`
}

// Like raises the affinity of the liked item's brand and records the event.
// searchQuery is the search the item was shown for and may be empty.
func (a *App) Like(ctx context.Context, user string, itemID int64, searchQuery string) (LikeResult, error) {
	it, err := a.Storage.GetProduct(ctx, itemID)
	if err != nil {
		return LikeResult{}, err
	}

	var weight float64
	rec, err := a.Prefs.Update(user, func(r *prefs.Record) error {
		weight = r.Like(it.Brand, a.cfg.Preferences.LikeIncrement, a.cfg.Preferences.MaxBrandWeight)
		return nil
	})
	if err != nil {
		return LikeResult{}, fmt.Errorf("failed to save preferences: %w", err)
	}

	metrics.FeedbackEvents.WithLabelValues("like").Inc()
	if a.Tracker != nil {
		a.Tracker.TrackLike(userOrDefault(user), it, searchQuery)
	}
	if weight > prefs.InflationWarnThreshold {
		log.Warn().Str("brand", it.Brand).Float64("weight", weight).Msg("brand affinity is growing without bound, consider preferences.max_brand_weight")
	}

	return LikeResult{Item: it, Brand: it.Brand, BrandWeight: weight, Preferences: rec}, nil
}

// Tune sets the price sensitivity and rating weight.
func (a *App) Tune(user string, priceSensitivity, ratingWeight float64) (prefs.Record, error) {
	return a.Adjust(user, &priceSensitivity, &ratingWeight)
}

// Adjust sets the tuning values that are not nil and keeps the others. The
// current values are read under the same lock as the write, so concurrent
// adjustments of different values are all kept.
func (a *App) Adjust(user string, priceSensitivity, ratingWeight *float64) (prefs.Record, error) {
	rec, err := a.Prefs.Update(user, func(r *prefs.Record) error {
		ps, rw := r.PriceSensitivity, r.RatingWeight
		if priceSensitivity != nil {
			ps = *priceSensitivity
		}
		if ratingWeight != nil {
			rw = *ratingWeight
		}
		return r.Tune(ps, rw)
	})
	if err != nil {
		return prefs.Record{}, err
	}
	metrics.FeedbackEvents.WithLabelValues("tune").Inc()
	return rec, nil
}

// Reset restores the default preferences.
func (a *App) Reset(user string) (prefs.Record, error) {
	rec, err := a.Prefs.Reset(user)
	if err != nil {
		return prefs.Record{}, err
	}
	metrics.FeedbackEvents.WithLabelValues("reset").Inc()
	return rec, nil
}

// Preferences returns the current record for user.
func (a *App) Preferences(user string) (prefs.Record, error) {
	return a.Prefs.Get(user)
}

// RuleSet loads the rules and checks them.
func (a *App) RuleSet() ([]rules.Rule, []rules.Issue, error) {
	rs, err := a.Rules.Rules()
	if err != nil {
		return nil, nil, err
	}
	return rs, rules.Check(rs), nil
}

// Status summarizes the service state.
type Status struct {
	StorageEnabled   bool                `json:"storage_enabled"`
	DatabasePath     string              `json:"database_path"`
	Products         int                 `json:"products"`
	Indexed          uint64              `json:"indexed"`
	RulesPath        string              `json:"rules_path"`
	Rules            int                 `json:"rules"`
	RuleIssues       int                 `json:"rule_issues"`
	Tracking         bool                `json:"tracking"`
	PendingEvents    int                 `json:"pending_events"`
	Searches         int                 `json:"searches_30d"`
	Semantic         int                 `json:"semantic_searches_30d"`
	BrandInterest    []learning.Interest `json:"brand_interest"`
	CategoryInterest []learning.Interest `json:"category_interest"`
}

// Status collects counts from every component. Unavailable parts are
// reported as zero.
func (a *App) Status(ctx context.Context) Status {
	st := Status{
		StorageEnabled: a.Storage.Enabled(),
		DatabasePath:   a.Storage.Path(),
		RulesPath:      a.cfg.RulesPath,
	}

	if n, err := a.Storage.CountProducts(ctx); err == nil {
		st.Products = n
	}
	if n, err := a.Index.Count(); err == nil {
		st.Indexed = n
	}
	if rs, issues, err := a.RuleSet(); err == nil {
		st.Rules = len(rs)
		st.RuleIssues = len(issues)
	}

	if a.Tracker != nil {
		st.Tracking = a.Tracker.IsEnabled()
		st.PendingEvents = a.Tracker.Pending()
	}

	since := time.Now().Add(-learning.FrequencyWindow)
	if total, semantic, err := a.Storage.CountSearches(since); err == nil {
		st.Searches, st.Semantic = total, semantic
	}
	if interest, err := learning.BrandInterest(a.Storage); err == nil {
		st.BrandInterest = interest
	}
	if interest, err := learning.CategoryInterest(a.Storage); err == nil {
		st.CategoryInterest = interest
	}
	return st
}

// PruneHistory drops feedback and search history older than retention.
// A zero retention clears it. Learned preferences are kept.
func (a *App) PruneHistory(retention time.Duration) error {
	return a.Storage.Cleanup(retention)
}

// Close stops the tracker and releases every component.
func (a *App) Close() error {
	if a.Tracker != nil {
		a.Tracker.Stop()
	}

	var errs []error
	if a.watched != nil {
		errs = append(errs, a.watched.Close())
	}
	errs = append(errs, a.Index.Close(), a.Storage.Close())
	return errors.Join(errs...)
}

func userOrDefault(user string) string {
	if user == "" {
		return prefs.DefaultUser
	}
	return user
}
