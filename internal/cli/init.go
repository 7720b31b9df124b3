package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/app"
	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/config"
	"github.com/khanglvm/hybrid-rank/internal/rules"
)

// NewInitCmd creates the 'init' command.
//
// init:
// 1. Writes config.yaml unless one exists (or --force)
// 2. Writes the default rules file unless one exists
// 3. Optionally imports a product catalog into the database
func NewInitCmd() *cobra.Command {
	var (
		dataDir  string
		products string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the config, default rules and catalog database",
		Long: `Set up hybrid-rank in its data directory (~/.hybrid-rank by default).

The init command will:
  1. Write config.yaml with the default settings
  2. Write rules.json with the default scoring rules
  3. Create catalog.db and import products from --products

Existing files are kept unless --force is given. Settings can be
overridden per run with environment variables (or a .env file):
` + configEnvHint(),
		Example: `  # Default setup
  hybrid-rank init

  # Import a catalog
  hybrid-rank init --products products.json

  # Use a project-local data directory
  hybrid-rank init --data-dir ./data --config ./data/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, dataDir, products, force)
		},
	}

	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "Data directory (default ~/.hybrid-rank)")
	cmd.Flags().StringVarP(&products, "products", "p", "", "JSON product catalog to import")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")

	return cmd
}

func runInit(cmd *cobra.Command, dataDir, products string, force bool) error {
	out := cmd.OutOrStdout()

	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}

	var cfg *config.Config
	if _, statErr := os.Stat(path); force || os.IsNotExist(statErr) {
		cfg = config.NewConfig()
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if err := config.Save(cfg, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote config to %s\n", path)

		// reload so environment overrides apply
		if cfg, err = config.LoadFrom(path); err != nil {
			return err
		}
	} else {
		if dataDir != "" {
			return fmt.Errorf("config %s already exists, use --force to change its data directory", path)
		}
		if cfg, err = config.LoadFrom(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "• Keeping existing config %s\n", path)
	}

	cfg.Resolve()
	created, err := rules.WriteDefaults(cfg.RulesPath)
	if err != nil {
		return fmt.Errorf("failed to write rules: %w", err)
	}
	if created {
		fmt.Fprintf(out, "✓ Wrote default rules to %s\n", cfg.RulesPath)
	} else {
		fmt.Fprintf(out, "• Keeping existing rules %s\n", cfg.RulesPath)
	}

	a, err := app.New(commandContext(cmd), cfg, app.Options{DisableTracking: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Storage.Enabled() {
		return fmt.Errorf("catalog database unavailable at %s", cfg.DatabasePath)
	}
	fmt.Fprintf(out, "✓ Catalog database at %s\n", cfg.DatabasePath)

	if products == "" {
		return nil
	}
	items, err := catalog.LoadFile(products)
	if err != nil {
		return err
	}
	if err := a.Import(commandContext(cmd), items); err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Imported %d products from %s\n", len(items), products)
	return nil
}
