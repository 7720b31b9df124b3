/*
Package cli implements the command-line interface for hybrid-rank.

Each command is implemented as a separate function that returns a *cobra.Command,
allowing for clean separation and easy testing. Commands share the global
--config and --verbose flags bound by BindGlobalFlags.
*/
package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/app"
	"github.com/khanglvm/hybrid-rank/internal/config"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
)

// Global flag values.
var (
	configPath string
	verbose    bool
)

// BindGlobalFlags registers the persistent flags and the logging setup on
// the root command.
func BindGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default ~/.hybrid-rank/config.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		SetupLogging(cmd.ErrOrStderr(), "")
		return nil
	}
}

// SetupLogging points the global zerolog logger at w and applies level.
func SetupLogging(w io.Writer, level string) {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
	setLogLevel(level)
}

// setLogLevel applies a zerolog level name. --verbose forces debug and an
// empty or unknown level means warn.
func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// loadConfig reads --config when given and the default location otherwise.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// resolvedConfigPath is where init writes the config.
func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetDefaultConfigPath()
}

// openApp loads the config and opens the service.
func openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setLogLevel(cfg.Log.Level)
	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start: %w", err)
	}
	return a, nil
}

// withApp runs fn with a service that is closed afterwards. One-shot
// commands run without hot reload.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := openApp(commandContext(cmd), app.Options{})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("shutdown incomplete")
		}
	}()
	return fn(a)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printPreferences(w io.Writer, user string, rec prefs.Record) {
	if user == "" {
		user = prefs.DefaultUser
	}
	fmt.Fprintf(w, "Preferences for %s:\n", user)
	fmt.Fprintf(w, "  Price sensitivity: %g\n", rec.PriceSensitivity)
	fmt.Fprintf(w, "  Rating weight:     %g\n", rec.RatingWeight)
	fmt.Fprintf(w, "  Brand loyalty:     %g\n", rec.BrandLoyalty)
	if rec.PreferredBrandTemp != "" {
		fmt.Fprintf(w, "  Preferred brand:   %s\n", rec.PreferredBrandTemp)
	}

	if len(rec.BrandWeights) == 0 {
		fmt.Fprintln(w, "  Brand weights:     none learned yet")
		return
	}
	brands := make([]string, 0, len(rec.BrandWeights))
	for b := range rec.BrandWeights {
		brands = append(brands, b)
	}
	sort.Slice(brands, func(i, j int) bool {
		wi, wj := rec.BrandWeights[brands[i]], rec.BrandWeights[brands[j]]
		if wi != wj {
			return wi > wj
		}
		return brands[i] < brands[j]
	})
	fmt.Fprintln(w, "  Brand weights:")
	for _, b := range brands {
		fmt.Fprintf(w, "    %-20s %.2f\n", b, rec.BrandWeights[b])
	}
}

// configEnvHint lists the environment overrides for help text.
func configEnvHint() string {
	var sb strings.Builder
	for _, k := range config.Keys {
		fmt.Fprintf(&sb, "  %s\n", config.ToEnvVarName(k))
	}
	return sb.String()
}
