package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/app"
	"github.com/khanglvm/hybrid-rank/internal/catalog"
)

// NewImportCmd creates the 'import' command.
func NewImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <products.json>",
		Short: "Replace the product catalog from a JSON file",
		Long: `Replace the product catalog with the items in a JSON file and rebuild
the search index. The file holds an array of items; tags may be a list
or a comma-delimited string. Invalid files leave the catalog unchanged.`,
		Example: `  hybrid-rank import products.json`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := catalog.LoadFile(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app.App) error {
				if err := a.Import(commandContext(cmd), items); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported %d products\n", len(items))
				return nil
			})
		},
	}

	return cmd
}
