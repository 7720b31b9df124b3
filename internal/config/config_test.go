package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// clearEnv unsets every override for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range Keys {
		t.Setenv(ToEnvVarName(key), "")
	}
	t.Setenv(EnvPrefix+"ENV_FILE", filepath.Join(t.TempDir(), "none.env"))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	if cfg.Search.TopK != 15 {
		t.Errorf("expected top_k 15, got %d", cfg.Search.TopK)
	}
	if cfg.Search.MinSimilarity != 0.25 {
		t.Errorf("expected min_similarity 0.25, got %f", cfg.Search.MinSimilarity)
	}
	if cfg.Search.ExactWeight != 0.7 || cfg.Search.FuzzyWeight != 0.3 {
		t.Errorf("unexpected fusion defaults: %+v", cfg.Search)
	}
	if cfg.Ranking.DisplayLimit != 10 || cfg.Ranking.MinRating != 4.0 {
		t.Errorf("unexpected ranking defaults: %+v", cfg.Ranking)
	}
	if cfg.Preferences.LikeIncrement != 0.4 || cfg.Preferences.MaxBrandWeight != 0 {
		t.Errorf("unexpected preference defaults: %+v", cfg.Preferences)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestResolve(t *testing.T) {
	cfg := NewConfig()
	cfg.DataDir = "/var/lib/hr"
	cfg.Resolve()

	if cfg.DatabasePath != "/var/lib/hr/catalog.db" {
		t.Errorf("unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.PrefsDir != "/var/lib/hr" {
		t.Errorf("unexpected prefs dir %q", cfg.PrefsDir)
	}
	if cfg.RulesPath != "/var/lib/hr/rules.json" {
		t.Errorf("unexpected rules path %q", cfg.RulesPath)
	}
	if cfg.Search.IndexPath != "" {
		t.Errorf("expected in-memory index, got %q", cfg.Search.IndexPath)
	}

	// explicit paths are kept
	cfg = NewConfig()
	cfg.RulesPath = "/etc/rules.json"
	cfg.Resolve()
	if cfg.RulesPath != "/etc/rules.json" {
		t.Errorf("explicit rules path overwritten: %q", cfg.RulesPath)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/x/y"); got != filepath.Join(home, "x", "y") {
		t.Errorf("expandHome(~/x/y) = %q", got)
	}
	if got := expandHome("/abs"); got != "/abs" {
		t.Errorf("expandHome(/abs) = %q", got)
	}
	if got := expandHome("~user/x"); got != "~user/x" {
		t.Errorf("expandHome should not touch ~user, got %q", got)
	}
}

func TestLoadFromValidConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeConfig(t, `
data_dir: `+dir+`
search:
  top_k: 5
ranking:
  min_rating: 3.5
preferences:
  max_brand_weight: 3
log:
  level: debug
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}

	if cfg.Search.TopK != 5 {
		t.Errorf("expected top_k 5, got %d", cfg.Search.TopK)
	}
	// unset keys keep their defaults
	if cfg.Search.MinSimilarity != 0.25 {
		t.Errorf("expected default min_similarity, got %f", cfg.Search.MinSimilarity)
	}
	if cfg.Ranking.MinRating != 3.5 || cfg.Ranking.DisplayLimit != 10 {
		t.Errorf("unexpected ranking config: %+v", cfg.Ranking)
	}
	if cfg.Preferences.MaxBrandWeight != 3 || cfg.Preferences.LikeIncrement != 0.4 {
		t.Errorf("unexpected preferences config: %+v", cfg.Preferences)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Log.Level)
	}
	if cfg.DatabasePath != filepath.Join(dir, "catalog.db") {
		t.Errorf("expected resolved database path, got %q", cfg.DatabasePath)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "search:\n  top_k: 5\n")

	t.Setenv("HYBRID_RANK_SEARCH_TOP_K", "30")
	t.Setenv("HYBRID_RANK_RANKING_MIN_RATING", "4.5")
	t.Setenv("HYBRID_RANK_SERVER_ADDR", "0.0.0.0:9090")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if cfg.Search.TopK != 30 {
		t.Errorf("expected env to override file top_k, got %d", cfg.Search.TopK)
	}
	if cfg.Ranking.MinRating != 4.5 {
		t.Errorf("expected env min_rating 4.5, got %f", cfg.Ranking.MinRating)
	}
	if cfg.Server.Addr != "0.0.0.0:9090" {
		t.Errorf("expected env server addr, got %q", cfg.Server.Addr)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("HYBRID_RANK_RANKING_DISPLAY_LIMIT=3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPrefix+"ENV_FILE", envFile)
	// godotenv sets the variable in the process; ensure it is cleaned up
	t.Cleanup(func() { os.Unsetenv("HYBRID_RANK_RANKING_DISPLAY_LIMIT") })
	os.Unsetenv("HYBRID_RANK_RANKING_DISPLAY_LIMIT")

	cfg, err := LoadDefaults()
	if err != nil {
		t.Fatalf("LoadDefaults failed: %v", err)
	}
	if cfg.Ranking.DisplayLimit != 3 {
		t.Errorf("expected .env display limit 3, got %d", cfg.Ranking.DisplayLimit)
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestLoadFromInvalidValues(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
search:
  top_k: 0
  min_similarity: 1.5
log:
  level: loud
`)

	_, err := LoadFrom(path)
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	for _, key := range []string{"search.top_k", "search.min_similarity", "log.level"} {
		if !strings.Contains(invalid.Message, key) {
			t.Errorf("error should name %s, got: %s", key, invalid.Message)
		}
	}
}

func TestLoadFromZeroSimilarity(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "search:\n  min_similarity: 0\n  exact_weight: 0\n")

	_, err := LoadFrom(path)
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	for _, key := range []string{"search.min_similarity", "search.exact_weight"} {
		if !strings.Contains(invalid.Message, key) {
			t.Errorf("error should name %s, got: %s", key, invalid.Message)
		}
	}
}

func TestInvalidEnvironmentOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv(ToEnvVarName("search.top_k"), "0")

	_, err := LoadDefaults()
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), "HYBRID_RANK_* environment") {
		t.Errorf("error should name the environment as the source, got: %v", err)
	}
	if invalid.Unwrap() == nil {
		t.Error("expected the validation error to be wrapped")
	}
}

func TestLoadFromMalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "search: [unclosed\n")

	_, err := LoadFrom(path)
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
	if !strings.Contains(err.Error(), ".bak") {
		t.Errorf("error should mention the backup, got: %v", err)
	}
}

func TestLoadFromWrongType(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "search:\n  top_k: lots\n")

	_, err := LoadFrom(path)
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidConfigError, got %v", err)
	}
}

func TestEnhancedErrorMessages(t *testing.T) {
	t.Run("config_not_found_has_hint", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "not-found.yaml"))
		var notFound *ConfigNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("expected ConfigNotFoundError, got %v", err)
		}
		if !strings.Contains(err.Error(), "hybrid-rank init") {
			t.Errorf("error should mention init command, got: %v", err)
		}
	})

	t.Run("permission_error_has_fix", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permission bits are not enforced")
		}
		path := writeConfig(t, "log:\n  level: info\n")
		os.Chmod(path, 0000)
		defer os.Chmod(path, 0644)

		_, err := LoadFrom(path)
		var perm *PermissionError
		if !errors.As(err, &perm) {
			t.Fatalf("expected PermissionError, got %v", err)
		}
		if perm.Op != "read" || !strings.Contains(err.Error(), "chmod") {
			t.Errorf("error should contain a fix, got: %v", err)
		}
	})
}

func TestFieldKey(t *testing.T) {
	cases := map[string]string{
		"Config.Search.TopK":                "search.top_k",
		"Config.Preferences.MaxBrandWeight": "preferences.max_brand_weight",
		"Config.DataDir":                    "data_dir",
	}
	for in, want := range cases {
		if got := fieldKey(in); got != want {
			t.Errorf("fieldKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToEnvVarName(t *testing.T) {
	if got := ToEnvVarName("search.top_k"); got != "HYBRID_RANK_SEARCH_TOP_K" {
		t.Errorf("unexpected env name %q", got)
	}
}
