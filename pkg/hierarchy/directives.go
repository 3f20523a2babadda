package hierarchy

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultAgentPrefix marks an instrumentation directive.
	DefaultAgentPrefix = "-javaagent:"

	// AgentOptionSeparator separates the agent path from its options.
	AgentOptionSeparator = "="
)

// ErrInvalidDirective is matched by DirectiveError.
var ErrInvalidDirective = errors.New("invalid instrumentation directive")

// DirectiveError reports an instrumentation directive whose path cannot be
// turned into an artifact location. The process cannot safely start.
type DirectiveError struct {
	Directive string
	Path      string
	Cause     error
}

func (e *DirectiveError) Error() string {
	msg := fmt.Sprintf("%v %q", ErrInvalidDirective, e.Directive)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *DirectiveError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrInvalidDirective}
	}
	return []error{ErrInvalidDirective, e.Cause}
}

// ParseDirectives extracts instrumentation artifact locations from args.
// For each argument starting with prefix, the prefix is stripped, the rest is
// cut at the first option separator, and the left part becomes an absolute
// path.
func ParseDirectives(args []string, prefix string) ([]string, error) {
	var locations []string
	for _, arg := range args {
		rest, ok := strings.CutPrefix(arg, prefix)
		if !ok {
			continue
		}
		path, _, _ := strings.Cut(rest, AgentOptionSeparator)
		loc, err := ArtifactLocation(path)
		if err != nil {
			return nil, &DirectiveError{Directive: arg, Path: path, Cause: err}
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

// ArtifactLocation converts a filesystem path to a loadable artifact location.
func ArtifactLocation(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("empty path")
	}
	if strings.ContainsRune(path, 0) {
		return "", errors.New("path contains NUL byte")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return abs, nil
}
