/*
Package benchmark measures ranking latency against the live catalog.

Each query is ranked a fixed number of times. The report gives latency
percentiles over all runs and, per query, whether similarity search
supplied the candidates.
*/
package benchmark

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/khanglvm/hybrid-rank/internal/ranking"
)

// DefaultQueries exercise budget parsing, search and the catalog fallback.
var DefaultQueries = []string{
	"laptop for coding under 1500",
	"wireless noise cancelling headphones",
	"gaming monitor",
	"cheap phone",
	"1000",
	"gift",
}

// DefaultIterations is the number of runs per query.
const DefaultIterations = 5

// Ranker runs one ranking pass.
type Ranker interface {
	Rank(ctx context.Context, user string, req ranking.Request) (ranking.Response, error)
}

// QueryResult summarizes the runs of one query.
type QueryResult struct {
	Query    string        `json:"query"`
	Runs     int           `json:"runs"`
	Errors   int           `json:"errors"`
	Mean     time.Duration `json:"mean_ns"`
	Semantic bool          `json:"semantic"`
	Results  int           `json:"results"`
}

// Result is the benchmark report.
type Result struct {
	Iterations int           `json:"iterations"`
	Runs       int           `json:"runs"`
	Errors     int           `json:"errors"`
	Mean       time.Duration `json:"mean_ns"`
	P50        time.Duration `json:"p50_ns"`
	P95        time.Duration `json:"p95_ns"`
	Max        time.Duration `json:"max_ns"`
	Queries    []QueryResult `json:"queries"`
}

// Run ranks every query iterations times. It stops early only when ctx is
// cancelled; failed passes are counted, not returned.
func Run(ctx context.Context, r Ranker, queries []string, iterations int) (*Result, error) {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	if len(queries) == 0 {
		queries = DefaultQueries
	}

	result := &Result{Iterations: iterations}
	var all []time.Duration

	for _, q := range queries {
		qr := QueryResult{Query: q}
		var total time.Duration

		for range iterations {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			start := time.Now()
			resp, err := r.Rank(ctx, "", ranking.Request{Query: q})
			elapsed := time.Since(start)

			qr.Runs++
			if err != nil {
				qr.Errors++
				continue
			}
			total += elapsed
			all = append(all, elapsed)
			qr.Semantic = resp.Semantic
			qr.Results = len(resp.Results)
		}

		if ok := qr.Runs - qr.Errors; ok > 0 {
			qr.Mean = total / time.Duration(ok)
		}
		result.Runs += qr.Runs
		result.Errors += qr.Errors
		result.Queries = append(result.Queries, qr)
	}

	if len(all) > 0 {
		slices.Sort(all)
		var sum time.Duration
		for _, d := range all {
			sum += d
		}
		result.Mean = sum / time.Duration(len(all))
		result.P50 = percentile(all, 0.50)
		result.P95 = percentile(all, 0.95)
		result.Max = all[len(all)-1]
	}
	return result, nil
}

// percentile uses the nearest-rank method on sorted durations.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(p*float64(len(sorted))+0.999999) - 1
	rank = max(0, min(rank, len(sorted)-1))
	return sorted[rank]
}

// FormatResult formats the benchmark result for display.
func FormatResult(result *Result) string {
	var sb strings.Builder

	sb.WriteString("RANKING LATENCY BENCHMARK\n")
	sb.WriteString("=========================\n\n")
	fmt.Fprintf(&sb, "Iterations per query: %d\n", result.Iterations)
	fmt.Fprintf(&sb, "Runs: %d (%d failed)\n\n", result.Runs, result.Errors)

	fmt.Fprintf(&sb, "%-40s %10s %8s %8s\n", "QUERY", "MEAN", "SOURCE", "RESULTS")
	for _, q := range result.Queries {
		source := "catalog"
		if q.Semantic {
			source = "search"
		}
		mean := "-"
		if q.Runs > q.Errors {
			mean = q.Mean.Round(time.Microsecond).String()
		}
		fmt.Fprintf(&sb, "%-40s %10s %8s %8d\n", truncate(q.Query, 40), mean, source, q.Results)
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Mean: %v  P50: %v  P95: %v  Max: %v\n",
		result.Mean.Round(time.Microsecond),
		result.P50.Round(time.Microsecond),
		result.P95.Round(time.Microsecond),
		result.Max.Round(time.Microsecond))

	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
