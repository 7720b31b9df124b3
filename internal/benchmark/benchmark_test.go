package benchmark

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/khanglvm/hybrid-rank/internal/ranking"
)

type fakeRanker struct {
	calls  int
	failOn string
}

func (f *fakeRanker) Rank(_ context.Context, _ string, req ranking.Request) (ranking.Response, error) {
	f.calls++
	if req.Query == f.failOn {
		return ranking.Response{}, errors.New("boom")
	}
	return ranking.Response{
		Query:    req.Query,
		Semantic: len(req.Query) > 3,
		Results:  make([]ranking.RankedResult, 2),
	}, nil
}

func TestRun(t *testing.T) {
	r := &fakeRanker{failOn: "bad"}

	result, err := Run(context.Background(), r, []string{"laptop", "bad", "tv"}, 4)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if r.calls != 12 || result.Runs != 12 {
		t.Errorf("expected 12 runs, got calls=%d runs=%d", r.calls, result.Runs)
	}
	if result.Errors != 4 {
		t.Errorf("expected 4 errors, got %d", result.Errors)
	}
	if len(result.Queries) != 3 {
		t.Fatalf("expected 3 query results, got %d", len(result.Queries))
	}
	if !result.Queries[0].Semantic || result.Queries[2].Semantic {
		t.Errorf("unexpected semantic flags: %+v", result.Queries)
	}
	if result.Queries[1].Mean != 0 {
		t.Errorf("failed query should have no mean, got %v", result.Queries[1].Mean)
	}
	if result.P50 > result.P95 || result.P95 > result.Max {
		t.Errorf("percentiles out of order: p50=%v p95=%v max=%v", result.P50, result.P95, result.Max)
	}
}

func TestRunDefaults(t *testing.T) {
	r := &fakeRanker{}

	result, err := Run(context.Background(), r, nil, 0)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if want := len(DefaultQueries) * DefaultIterations; result.Runs != want {
		t.Errorf("expected %d runs, got %d", want, result.Runs)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, &fakeRanker{}, []string{"x"}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPercentile(t *testing.T) {
	var d []time.Duration
	for i := 1; i <= 20; i++ {
		d = append(d, time.Duration(i)*time.Millisecond)
	}

	tests := []struct {
		p    float64
		want time.Duration
	}{
		{0.50, 10 * time.Millisecond},
		{0.95, 19 * time.Millisecond},
		{1.00, 20 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := percentile(d, tt.p); got != tt.want {
			t.Errorf("percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if percentile(nil, 0.5) != 0 {
		t.Error("percentile of empty input should be 0")
	}
}

func TestFormatResult(t *testing.T) {
	result := &Result{
		Iterations: 2,
		Runs:       4,
		Errors:     2,
		Mean:       1500 * time.Microsecond,
		Queries: []QueryResult{
			{Query: "laptop", Runs: 2, Mean: time.Millisecond, Semantic: true, Results: 3},
			{Query: strings.Repeat("very long query ", 5), Runs: 2, Errors: 2},
		},
	}

	out := FormatResult(result)
	for _, want := range []string{"RANKING LATENCY BENCHMARK", "laptop", "search", "catalog", "Runs: 4 (2 failed)", "..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
