// Package rules loads weighted rule conditions and evaluates them against
// catalog items in a closed expression environment.
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/metrics"
)

// DefaultWeight applies to rules that omit a weight.
const DefaultWeight = 1.0

//go:embed default_rules.json
var defaultRulesJSON []byte

var validate = validator.New()

// Rule is a named, weighted condition with the text shown when it fires.
type Rule struct {
	Name      string `json:"name"`
	Condition string `json:"condition" validate:"required"`

	// Weight may be negative. Nil means DefaultWeight.
	Weight *float64 `json:"weight,omitempty"`

	Reason      string `json:"reason,omitempty"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON accepts the weight as a number or a numeric string.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var aux struct {
		Name        string          `json:"name"`
		Condition   string          `json:"condition"`
		Weight      json.RawMessage `json:"weight"`
		Reason      string          `json:"reason"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	w, err := parseWeight(aux.Weight)
	if err != nil {
		return err
	}
	*r = Rule{
		Name:        aux.Name,
		Condition:   aux.Condition,
		Weight:      w,
		Reason:      aux.Reason,
		Description: aux.Description,
	}
	return nil
}

func parseWeight(raw json.RawMessage) (*float64, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return nil, nil
	}

	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		text = strings.TrimSpace(s)
	}
	w, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid weight %s", string(raw))
	}
	return &w, nil
}

// EffectiveWeight returns the rule weight, DefaultWeight when unset.
func (r Rule) EffectiveWeight() float64 {
	if r.Weight == nil {
		return DefaultWeight
	}
	return *r.Weight
}

// Explanation is the text reported when the rule fires: the reason, else
// the description, else the name.
func (r Rule) Explanation() string {
	switch {
	case r.Reason != "":
		return r.Reason
	case r.Description != "":
		return r.Description
	}
	return r.Name
}

// Source supplies the ordered rule set for a ranking pass.
type Source interface {
	Rules() ([]Rule, error)
}

// StaticSource serves a fixed rule set.
type StaticSource []Rule

// Rules returns a copy of the rule set.
func (s StaticSource) Rules() ([]Rule, error) {
	out := make([]Rule, len(s))
	copy(out, s)
	return out, nil
}

// FileSource reads the rule set from a JSON file on every call.
type FileSource struct {
	path string
}

// NewFileSource returns a source reading path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the rules file path.
func (s *FileSource) Path() string {
	return s.path
}

// Rules reads and decodes the rules file. Records that cannot be used are
// skipped with a warning; the remaining rules still apply.
func (s *FileSource) Rules() ([]Rule, error) {
	rules, skipped, err := s.Load()
	if err != nil {
		return nil, err
	}
	for _, is := range skipped {
		metrics.RuleFailures.WithLabelValues(metrics.RuleInvalid).Inc()
		log.Warn().Str("path", s.path).Int("index", is.Index).Str("rule", is.Rule).Str("error", is.Msg).Msg("skipping invalid rule")
	}
	return rules, nil
}

// Load reads the rules file and returns the usable rules along with the
// records that were skipped.
func (s *FileSource) Load() ([]Rule, []Issue, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rules: %w", err)
	}
	rules, skipped, err := Decode(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return rules, skipped, nil
}

// Decode parses a JSON array of rules. Each record is decoded on its own:
// one that is malformed or has no condition is reported as an Issue and
// left out. Rules without a name are named by position. The error is for
// input that is not an array at all.
func Decode(data []byte) ([]Rule, []Issue, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("failed to parse rules: %w", err)
	}

	rules := make([]Rule, 0, len(records))
	var skipped []Issue
	for i, raw := range records {
		var r Rule
		err := json.Unmarshal(raw, &r)
		if err == nil {
			err = validate.Struct(&r)
		}
		if err != nil {
			skipped = append(skipped, Issue{Index: i, Rule: r.Name, Err: err, Msg: err.Error()})
			continue
		}
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule %d", i+1)
		}
		rules = append(rules, r)
	}
	return rules, skipped, nil
}

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	rules, skipped, err := Decode(defaultRulesJSON)
	if err == nil {
		err = JoinIssues(skipped)
	}
	if err != nil {
		panic(fmt.Sprintf("embedded rules are invalid: %v", err))
	}
	return rules
}

// WriteDefaults writes the built-in rule set to path unless a file already
// exists there. It reports whether the file was written.
func WriteDefaults(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, defaultRulesJSON, 0644); err != nil {
		return false, fmt.Errorf("failed to write rules: %w", err)
	}
	return true, nil
}
