package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khanglvm/hybrid-rank/internal/app"
	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/config"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/rules"
)

func testServer(t *testing.T) (*Server, *app.App) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.DataDir = t.TempDir()
	cfg.Resolve()
	_, err := rules.WriteDefaults(cfg.RulesPath)
	require.NoError(t, err)

	a, err := app.New(context.Background(), cfg, app.Options{DisableTracking: true})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	ship := 2
	require.NoError(t, a.Import(context.Background(), []catalog.Item{
		{ID: 1, Name: "Dell XPS 13", Category: "laptop", Brand: "Dell", Description: "ultrabook for coding",
			Price: 1200, Discount: 20, Rating: 4.6, Reviews: 1500, ShippingTimeDays: &ship, Tags: catalog.Tags{"ssd"}},
		{ID: 2, Name: "Lenovo ThinkPad", Category: "laptop", Brand: "Lenovo", Description: "business laptop",
			Price: 900, Rating: 4.3, Reviews: 800},
		{ID: 3, Name: "Budget Laptop", Category: "laptop", Brand: "Acer", Description: "cheap laptop",
			Price: 400, Rating: 3.2, Reviews: 40},
	}))

	s, err := New(a)
	require.NoError(t, err)
	return s, a
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s, _ := testServer(t)

	w := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
}

func TestRank(t *testing.T) {
	s, _ := testServer(t)

	w := do(t, s, http.MethodGet, "/api/rank?q=laptop+under+1500&limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[rankResponse](t, w)
	require.NotNil(t, resp.Budget)
	assert.Equal(t, 1500.0, *resp.Budget)
	require.NotEmpty(t, resp.Results)

	// the configured minimum rating hides the 3.2 item
	for _, r := range resp.Results {
		assert.GreaterOrEqual(t, r.Item.Rating, 4.0)
		assert.NotEmpty(t, r.Explanations)
	}
	for i := 1; i < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i-1].Score, resp.Results[i].Score)
	}
}

func TestRankMinRatingParam(t *testing.T) {
	s, _ := testServer(t)

	// a numeric query skips similarity search and ranks the whole catalog
	w := do(t, s, http.MethodGet, "/api/rank?q=2000&min_rating=-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[rankResponse](t, w).Results, 3)
}

func TestRankBadParams(t *testing.T) {
	s, _ := testServer(t)

	for _, target := range []string{
		"/api/rank?q=x&budget=lots",
		"/api/rank?q=x&min_rating=high",
		"/api/rank?q=x&limit=-2",
		"/api/rank?q=x&user=../etc",
	} {
		w := do(t, s, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestLike(t *testing.T) {
	s, a := testServer(t)

	w := do(t, s, http.MethodPost, "/api/items/2/like", likeRequest{User: "alice", Query: "laptop"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	res := decode[app.LikeResult](t, w)
	assert.Equal(t, "Lenovo", res.Brand)
	assert.InDelta(t, 1.4, res.BrandWeight, 1e-9)

	rec, err := a.Preferences("alice")
	require.NoError(t, err)
	assert.InDelta(t, 1.4, rec.BrandWeights["Lenovo"], 1e-9)
}

func TestLikeWithoutBody(t *testing.T) {
	s, _ := testServer(t)

	w := do(t, s, http.MethodPost, "/api/items/1/like", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLikeErrors(t *testing.T) {
	s, _ := testServer(t)

	w := do(t, s, http.MethodPost, "/api/items/999/like", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodPost, "/api/items/abc/like", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/items/1/like", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreferencesLifecycle(t *testing.T) {
	s, _ := testServer(t)

	w := do(t, s, http.MethodGet, "/api/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode[prefs.Record](t, w).PriceSensitivity)

	ps := 1.8
	w = do(t, s, http.MethodPut, "/api/preferences/tuning", tuneRequest{PriceSensitivity: &ps})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decode[prefs.Record](t, w)
	assert.Equal(t, 1.8, rec.PriceSensitivity)
	assert.Equal(t, 1.0, rec.RatingWeight, "omitted values are kept")

	bad := 2.5
	w = do(t, s, http.MethodPut, "/api/preferences/tuning", tuneRequest{RatingWeight: &bad})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodPost, "/api/preferences/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode[prefs.Record](t, w).PriceSensitivity)
}

func TestConcurrentTuningKeepsBothValues(t *testing.T) {
	s, a := testServer(t)

	ps, rw := 1.5, 1.8
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			w := do(t, s, http.MethodPut, "/api/preferences/tuning", tuneRequest{User: "bob", PriceSensitivity: &ps})
			assert.Equal(t, http.StatusOK, w.Code)
		}()
		go func() {
			defer wg.Done()
			w := do(t, s, http.MethodPut, "/api/preferences/tuning", tuneRequest{User: "bob", RatingWeight: &rw})
			assert.Equal(t, http.StatusOK, w.Code)
		}()
	}
	wg.Wait()

	rec, err := a.Preferences("bob")
	require.NoError(t, err)
	assert.Equal(t, 1.5, rec.PriceSensitivity)
	assert.Equal(t, 1.8, rec.RatingWeight)
}

func TestRules(t *testing.T) {
	s, _ := testServer(t)

	w := do(t, s, http.MethodGet, "/api/rules", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[rulesResponse](t, w)
	assert.Len(t, resp.Rules, len(rules.DefaultRules()))
	assert.Empty(t, resp.Issues)
}

func TestStatus(t *testing.T) {
	s, _ := testServer(t)

	w := do(t, s, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[app.Status](t, w).Products)
}

func TestMetrics(t *testing.T) {
	s, _ := testServer(t)

	do(t, s, http.MethodGet, "/api/rank?q=laptop", nil)

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hybrid_rank_rank_passes_total")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s, _ := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-errChan)
}
