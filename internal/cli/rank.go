package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/app"
	"github.com/khanglvm/hybrid-rank/internal/ranking"
)

type rankOptions struct {
	user       string
	budget     float64
	category   string
	brand      string
	minRating  float64
	limit      int
	explain    bool
	jsonOutput bool
}

// NewRankCmd creates the 'rank' command.
func NewRankCmd() *cobra.Command {
	var opts rankOptions

	cmd := &cobra.Command{
		Use:   "rank <query...>",
		Short: "Rank catalog items for a free-text query",
		Long: `Rank catalog items for a free-text query.

The query is matched against item descriptions with similarity search.
A price in the query ("laptop under 1500") or --budget sets the budget.
Results are scored by the rule set and your learned preferences.`,
		Example: `  # Free-text query with a budget
  hybrid-rank rank laptop for coding under 1500

  # Show why each item ranked where it did
  hybrid-rank rank wireless headphones --explain

  # Hard filters
  hybrid-rank rank gaming --category laptop --brand Asus --limit 5

  # Output as JSON
  hybrid-rank rank headphones --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				return runRank(cmd, a, strings.Join(args, " "), opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "User whose preferences apply")
	cmd.Flags().Float64VarP(&opts.budget, "budget", "b", 0, "Budget when the query names no price")
	cmd.Flags().StringVar(&opts.category, "category", "", "Preferred category")
	cmd.Flags().StringVar(&opts.brand, "brand", "", "Preferred brand")
	cmd.Flags().Float64Var(&opts.minRating, "min-rating", 0, "Hide results rated below this (default from config, negative shows all)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Number of results (default from config)")
	cmd.Flags().BoolVarP(&opts.explain, "explain", "e", false, "Show explanations")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runRank(cmd *cobra.Command, a *app.App, q string, opts rankOptions) error {
	resp, err := a.Rank(commandContext(cmd), opts.user, ranking.Request{
		Query:          q,
		BudgetOverride: opts.budget,
		Category:       opts.category,
		Brand:          opts.brand,
		MinRating:      opts.minRating,
		Limit:          opts.limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.jsonOutput {
		return printJSON(out, resp)
	}
	printRanking(out, resp, opts.explain)
	return nil
}

func printRanking(w io.Writer, resp ranking.Response, explain bool) {
	source := "full catalog"
	if resp.Semantic {
		source = fmt.Sprintf("similarity search for %q", resp.SearchQuery)
	}
	fmt.Fprintf(w, "Query: %s\n", resp.Query)
	if resp.Budget != nil {
		fmt.Fprintf(w, "Budget: %.2f\n", *resp.Budget)
	}
	fmt.Fprintf(w, "Candidates: %d from %s\n\n", resp.Ranked, source)

	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results. Try --min-rating -1 to include lower rated items.")
		return
	}

	for i, r := range resp.Results {
		it := r.Item
		fmt.Fprintf(w, "%2d. %s (%s, %s)\n", i+1, it.Name, it.Brand, it.Category)
		fmt.Fprintf(w, "    Score: %.2f  Price: %.2f", r.Score, it.Price)
		if it.Discount > 0 {
			fmt.Fprintf(w, " (-%g%%)", it.Discount)
		}
		fmt.Fprintf(w, "  Rating: %.1f (%d reviews)\n", it.Rating, it.Reviews)

		if explain {
			for _, text := range ranking.ExplainText(r) {
				fmt.Fprintf(w, "    • %s\n", text)
			}
		}
	}

	if resp.RuleFailures > 0 {
		fmt.Fprintf(w, "\n%d rule evaluations failed, run 'hybrid-rank rules check'\n", resp.RuleFailures)
	}
}
