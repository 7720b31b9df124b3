package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/app"
)

// NewLikeCmd creates the 'like' command.
func NewLikeCmd() *cobra.Command {
	var (
		user       string
		query      string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "like <item-id>",
		Short: "Like an item to boost its brand",
		Long: `Record that you liked an item. The item's brand weight grows by
preferences.like_increment, capped by preferences.max_brand_weight.`,
		Example: `  hybrid-rank like 42
  hybrid-rank like 42 --user alice --query "coding laptop"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			return withApp(cmd, func(a *app.App) error {
				res, err := a.Like(commandContext(cmd), user, id, query)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Liked %s. %s weight is now %.2f\n", res.Item.Name, res.Brand, res.BrandWeight)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User to update")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search the item was found with")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// NewTuneCmd creates the 'tune' command.
func NewTuneCmd() *cobra.Command {
	var (
		user             string
		priceSensitivity float64
		ratingWeight     float64
	)

	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Set price sensitivity and rating weight",
		Long: `Set how strongly price and rating influence your ranking.
Both values must lie in [0.5, 2.0]. Omitted values are kept.`,
		Example: `  hybrid-rank tune --price-sensitivity 1.5
  hybrid-rank tune --price-sensitivity 0.8 --rating-weight 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			price := cmd.Flags().Changed("price-sensitivity")
			rating := cmd.Flags().Changed("rating-weight")
			if !price && !rating {
				return fmt.Errorf("nothing to tune: pass --price-sensitivity or --rating-weight")
			}
			return withApp(cmd, func(a *app.App) error {
				var ps, rw *float64
				if price {
					ps = &priceSensitivity
				}
				if rating {
					rw = &ratingWeight
				}
				rec, err := a.Adjust(user, ps, rw)
				if err != nil {
					return err
				}
				printPreferences(cmd.OutOrStdout(), user, rec)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User to update")
	cmd.Flags().Float64Var(&priceSensitivity, "price-sensitivity", 1.0, "Price sensitivity in [0.5, 2.0]")
	cmd.Flags().Float64Var(&ratingWeight, "rating-weight", 1.0, "Rating weight in [0.5, 2.0]")

	return cmd
}

// NewResetCmd creates the 'reset' command.
func NewResetCmd() *cobra.Command {
	var (
		user    string
		history bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset learned preferences",
		Long: `Restore the default preferences and forget every learned brand weight.
With --history the recorded like and search history is cleared as well.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				if _, err := a.Reset(user); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ Preferences reset to defaults")

				if !history {
					return nil
				}
				if err := a.PruneHistory(0); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "✓ History cleared")
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User to reset")
	cmd.Flags().BoolVar(&history, "history", false, "Also clear like and search history")

	return cmd
}

// NewPrefsCmd creates the 'prefs' command.
func NewPrefsCmd() *cobra.Command {
	var (
		user       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"preferences"},
		Short:   "Show learned preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app.App) error {
				rec, err := a.Preferences(user)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(cmd.OutOrStdout(), rec)
				}
				printPreferences(cmd.OutOrStdout(), user, rec)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User to show")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}
