package config

import (
	"fmt"
	"strings"
)

// PermissionError reports a config file or data directory the process
// cannot read or write.
type PermissionError struct {
	Path    string
	Op      string // "read" or "write"
	Fix     string // command that restores access
	Details string
}

func (e *PermissionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cannot %s %s: permission denied\n", e.Op, e.Path)
	if e.Details != "" {
		sb.WriteString(e.Details + "\n")
	}
	sb.WriteString("Fix: " + e.Fix)
	return sb.String()
}

// ConfigNotFoundError reports a config path that does not exist. Load
// treats a missing default file as "use the defaults"; only an explicit
// --config path surfaces this error.
type ConfigNotFoundError struct {
	Path string
	Hint string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("no hybrid-rank config at %s\n\nHint: %s", e.Path, e.Hint)
}

func newNotFoundError(path string) *ConfigNotFoundError {
	return &ConfigNotFoundError{
		Path: path,
		Hint: "Run 'hybrid-rank init' to create it with the default catalog, rules and data paths",
	}
}

// InvalidConfigError reports a config that cannot be parsed or holds values
// the ranking engine cannot use. Path is empty when the problem comes from
// the environment alone.
type InvalidConfigError struct {
	Path    string
	Message string
	Hint    string
	Err     error
}

func (e *InvalidConfigError) Error() string {
	source := e.Path
	if source == "" {
		source = EnvPrefix + "* environment"
	}
	msg := fmt.Sprintf("invalid config in %s\n", source)
	if e.Message != "" {
		msg += e.Message + "\n"
	}
	if e.Hint != "" {
		msg += "Hint: " + e.Hint
	}
	return msg
}

func (e *InvalidConfigError) Unwrap() error { return e.Err }

func newParseError(path string, err error) *InvalidConfigError {
	return &InvalidConfigError{
		Path:    path,
		Message: fmt.Sprintf("YAML parse error: %v", err),
		Hint:    fmt.Sprintf("Restore %s.bak, written before the last save, or rerun 'hybrid-rank init --force'", path),
		Err:     err,
	}
}

func newTypeError(path string, err error) *InvalidConfigError {
	return &InvalidConfigError{
		Path:    path,
		Message: err.Error(),
		Hint:    "Numbers such as search.top_k and ranking.min_rating must be unquoted; see 'hybrid-rank --help' for the schema",
		Err:     err,
	}
}

func newValidationError(path string, err error) *InvalidConfigError {
	return &InvalidConfigError{
		Path:    path,
		Message: err.Error(),
		Hint:    "Fix the listed keys, or delete them to fall back to the ranking defaults",
		Err:     err,
	}
}
