package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/app"
	"github.com/khanglvm/hybrid-rank/internal/learning"
)

// NewStatusCmd creates the 'status' command.
func NewStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog, index, rules and learning status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				st := a.Status(commandContext(cmd))
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), st)
				}
				printStatus(cmd, st)
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func printStatus(cmd *cobra.Command, st app.Status) {
	w := cmd.OutOrStdout()

	if st.StorageEnabled {
		fmt.Fprintf(w, "✓ Catalog:   %d products (%s)\n", st.Products, st.DatabasePath)
	} else {
		fmt.Fprintf(w, "✗ Catalog:   unavailable (%s)\n", st.DatabasePath)
	}
	fmt.Fprintf(w, "  Index:     %d documents\n", st.Indexed)

	mark := "✓"
	if st.RuleIssues > 0 {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s Rules:     %d (%d with problems) from %s\n", mark, st.Rules, st.RuleIssues, st.RulesPath)
	if st.Tracking {
		fmt.Fprintf(w, "✓ Learning:  on, %d events pending\n", st.PendingEvents)
	} else {
		fmt.Fprintln(w, "  Learning:  off")
	}
	fmt.Fprintf(w, "  Searches:  %d in the last 30 days, %d matched by similarity\n", st.Searches, st.Semantic)

	printInterest(w, "Brand interest", st.BrandInterest)
	printInterest(w, "Category interest", st.CategoryInterest)
}

func printInterest(w io.Writer, title string, interest []learning.Interest) {
	if len(interest) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s:\n", title)
	for _, in := range interest[:min(5, len(interest))] {
		fmt.Fprintf(w, "    %-20s %.2f (%d likes)\n", in.Key, in.Score, in.Likes)
	}
}
