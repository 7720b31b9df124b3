package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/app"
	"github.com/khanglvm/hybrid-rank/internal/benchmark"
)

// NewBenchmarkCmd creates the 'benchmark' command for ranking latency testing.
func NewBenchmarkCmd() *cobra.Command {
	var (
		iterations int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "benchmark [query...]",
		Short: "Measure ranking latency against the catalog",
		Long: `Rank a set of queries repeatedly and report latency percentiles.

Each argument is one query. Without arguments a built-in set covering
budget parsing, similarity search and the catalog fallback is used.
Benchmark passes are not recorded in the search history.`,
		Example: `  # Built-in queries
  hybrid-rank benchmark

  # Custom queries, more iterations
  hybrid-rank benchmark "coding laptop" "4k monitor" -n 20

  # Output as JSON
  hybrid-rank benchmark --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(commandContext(cmd), app.Options{DisableTracking: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if st := a.Status(commandContext(cmd)); st.Products == 0 {
				return fmt.Errorf("catalog is empty. Run 'hybrid-rank init --products <file>' first")
			}

			result, err := benchmark.Run(commandContext(cmd), a, args, iterations)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintln(cmd.OutOrStdout(), benchmark.FormatResult(result))
			return nil
		},
	}

	cmd.Flags().IntVarP(&iterations, "iterations", "n", benchmark.DefaultIterations, "Runs per query")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
