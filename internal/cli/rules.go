package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/rules"
)

// NewRulesCmd creates the 'rules' command group.
func NewRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the scoring rules",
		Long: `Inspect the scoring rules in rules.json.

Each rule has a name, a condition over the item (p), the user context
(user) and the preferences (prefs), a weight and a reason shown when it
fires.`,
	}

	cmd.AddCommand(newRulesListCmd())
	cmd.AddCommand(newRulesCheckCmd())

	return cmd
}

func newRulesListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list [file]",
		Aliases: []string{"ls"},
		Short:   "List the scoring rules",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, skipped, err := loadRules(args)
			if err != nil {
				return err
			}
			for _, is := range skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: skipping record %d: %s\n", is.Index, is.Msg)
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), rs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tWEIGHT\tCONDITION")
			for _, r := range rs {
				fmt.Fprintf(tw, "%s\t%g\t%s\n", r.Name, r.EffectiveWeight(), r.Condition)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func newRulesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Check that every rule parses and uses known names",
		Example: `  # Check the configured rules
  hybrid-rank rules check

  # Check a draft before installing it
  hybrid-rank rules check ./rules.draft.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, skipped, err := loadRules(args)
			if err != nil {
				return err
			}

			for _, is := range skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ record %d is skipped: %s\n", is.Index, is.Msg)
			}
			issues := rules.Check(rs)
			for _, is := range issues {
				fmt.Fprintf(cmd.OutOrStdout(), "✗ %s\n", is.Error())
			}
			if n := len(skipped) + len(issues); n > 0 {
				return fmt.Errorf("%d problems in %d records", n, len(rs)+len(skipped))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %d rules OK\n", len(rs))
			return nil
		},
	}
}

// loadRules reads the file named in args, else the configured rules file.
// Records that cannot be used are returned separately.
func loadRules(args []string) ([]rules.Rule, []rules.Issue, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return nil, nil, err
		}
		path = cfg.RulesPath
	}
	return rules.NewFileSource(path).Load()
}
