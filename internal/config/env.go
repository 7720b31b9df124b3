package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "HYBRID_RANK_"

// Keys lists every configuration key in koanf (dot) form.
var Keys = []string{
	"data_dir",
	"database_path",
	"prefs_dir",
	"rules_path",
	"search.top_k",
	"search.min_similarity",
	"search.exact_weight",
	"search.fuzzy_weight",
	"search.index_path",
	"ranking.display_limit",
	"ranking.min_rating",
	"preferences.like_increment",
	"preferences.max_brand_weight",
	"server.addr",
	"log.level",
}

// ToEnvVarName converts a config key to its environment variable.
//
// Examples:
//   - "search.top_k" → "HYBRID_RANK_SEARCH_TOP_K"
//   - "data_dir" → "HYBRID_RANK_DATA_DIR"
func ToEnvVarName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

// LoadDotEnv loads variables from a .env file into the process
// environment. Variables already set win. A missing file is ignored.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnv sets every key whose environment variable is non-empty.
func applyEnv(k *koanf.Koanf) error {
	if err := LoadDotEnv(os.Getenv(EnvPrefix + "ENV_FILE")); err != nil {
		return err
	}

	for _, key := range Keys {
		val, ok := os.LookupEnv(ToEnvVarName(key))
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		if err := k.Set(key, strings.TrimSpace(val)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", ToEnvVarName(key), err)
		}
	}
	return nil
}
