/*
Package config handles loading and saving hybrid-rank configuration.

Configuration is stored in ~/.hybrid-rank/config.yaml. Values are layered:
built-in defaults, then the YAML file, then a .env file, then HYBRID_RANK_*
environment variables. The result is validated before use.

Schema:

	data_dir: ~/.hybrid-rank
	database_path: ""        # default <data_dir>/catalog.db
	prefs_dir: ""            # default <data_dir>
	rules_path: ""           # default <data_dir>/rules.json
	search:
	  top_k: 15
	  min_similarity: 0.25   # in (0, 1]
	  exact_weight: 0.7      # fusion weight of exact term matches
	  fuzzy_weight: 0.3      # fusion weight of one-edit matches
	  index_path: ""         # empty keeps the index in memory
	ranking:
	  display_limit: 10
	  min_rating: 4.0
	preferences:
	  like_increment: 0.4
	  max_brand_weight: 0    # 0 = unbounded
	server:
	  addr: 127.0.0.1:8080
	log:
	  level: info
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirName is the data directory under the user's home.
const DirName = ".hybrid-rank"

// Config represents the root configuration structure.
type Config struct {
	DataDir      string `koanf:"data_dir" yaml:"data_dir" validate:"required"`
	DatabasePath string `koanf:"database_path" yaml:"database_path"`
	PrefsDir     string `koanf:"prefs_dir" yaml:"prefs_dir"`
	RulesPath    string `koanf:"rules_path" yaml:"rules_path"`

	Search      SearchConfig      `koanf:"search" yaml:"search"`
	Ranking     RankingConfig     `koanf:"ranking" yaml:"ranking"`
	Preferences PreferencesConfig `koanf:"preferences" yaml:"preferences"`
	Server      ServerConfig      `koanf:"server" yaml:"server"`
	Log         LogConfig         `koanf:"log" yaml:"log"`
}

// SearchConfig controls the similarity-search collaborator.
type SearchConfig struct {
	TopK          int     `koanf:"top_k" yaml:"top_k" validate:"gte=1,lte=1000"`
	MinSimilarity float64 `koanf:"min_similarity" yaml:"min_similarity" validate:"gt=0,lte=1"`

	// Fusion weights of exact and fuzzy BM25 matches.
	ExactWeight float64 `koanf:"exact_weight" yaml:"exact_weight" validate:"gt=0,lte=1"`
	FuzzyWeight float64 `koanf:"fuzzy_weight" yaml:"fuzzy_weight" validate:"gte=0,lte=1"`

	// IndexPath is the on-disk Bleve index. Empty keeps it in memory.
	IndexPath string `koanf:"index_path" yaml:"index_path"`
}

// RankingConfig controls what a ranking pass displays.
type RankingConfig struct {
	DisplayLimit int     `koanf:"display_limit" yaml:"display_limit" validate:"gte=1"`
	MinRating    float64 `koanf:"min_rating" yaml:"min_rating" validate:"gte=0,lte=5"`
}

// PreferencesConfig controls how feedback moves preference weights.
type PreferencesConfig struct {
	LikeIncrement float64 `koanf:"like_increment" yaml:"like_increment" validate:"gt=0"`

	// MaxBrandWeight caps learned brand affinity. 0 means unbounded.
	MaxBrandWeight float64 `koanf:"max_brand_weight" yaml:"max_brand_weight" validate:"gte=0"`
}

// ServerConfig is the HTTP API listener.
type ServerConfig struct {
	Addr string `koanf:"addr" yaml:"addr" validate:"required,hostname_port"`
}

// LogConfig sets the zerolog level.
type LogConfig struct {
	Level string `koanf:"level" yaml:"level" validate:"oneof=debug info warn error"`
}

// NewConfig returns the built-in defaults. Derived paths stay empty until
// Resolve.
func NewConfig() *Config {
	dataDir := DirName
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, DirName)
	}

	return &Config{
		DataDir: dataDir,
		Search: SearchConfig{
			TopK:          15,
			MinSimilarity: 0.25,
			ExactWeight:   0.7,
			FuzzyWeight:   0.3,
		},
		Ranking: RankingConfig{
			DisplayLimit: 10,
			MinRating:    4.0,
		},
		Preferences: PreferencesConfig{
			LikeIncrement: 0.4,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetDefaultConfigPath returns the path to ~/.hybrid-rank/config.yaml
func GetDefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Resolve expands ~ in every path and fills derived paths from DataDir.
func (c *Config) Resolve() {
	c.DataDir = expandHome(c.DataDir)

	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "catalog.db")
	}
	if c.PrefsDir == "" {
		c.PrefsDir = c.DataDir
	}
	if c.RulesPath == "" {
		c.RulesPath = filepath.Join(c.DataDir, "rules.json")
	}

	c.DatabasePath = expandHome(c.DatabasePath)
	c.PrefsDir = expandHome(c.PrefsDir)
	c.RulesPath = expandHome(c.RulesPath)
	c.Search.IndexPath = expandHome(c.Search.IndexPath)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
