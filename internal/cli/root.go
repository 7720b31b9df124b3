package cli

import (
	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/version"
)

// NewRootCmd assembles the hybrid-rank command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hybrid-rank",
		Short: "Explainable hybrid product ranking",
		Long: `hybrid-rank ranks a product catalog for free-text queries.

Each result blends three signals:
  • Similarity  - how closely the description matches the query
  • Rules       - weighted, human-readable business rules
  • Preferences - brand affinity learned from your likes

Every result explains why it ranked where it did.`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	BindGlobalFlags(rootCmd)

	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewImportCmd())
	rootCmd.AddCommand(NewRankCmd())
	rootCmd.AddCommand(NewLikeCmd())
	rootCmd.AddCommand(NewTuneCmd())
	rootCmd.AddCommand(NewResetCmd())
	rootCmd.AddCommand(NewPrefsCmd())
	rootCmd.AddCommand(NewRulesCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewBenchmarkCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}
