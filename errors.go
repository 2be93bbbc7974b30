package gitversion

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/storer"
)

var (
	// ErrRepositoryNotFound is returned when no .git directory exists at or
	// above the requested path.
	ErrRepositoryNotFound = errors.New("repository not found")

	// ErrNoHead is returned for repositories without any commits.
	ErrNoHead = errors.New("repository has no HEAD commit")

	// ErrStopWalk stops WalkAncestors without reporting an error.
	ErrStopWalk = storer.ErrStop
)

// ParseError reports text that is not a valid major.minor.patch[-qualifier] version.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid version %q: %s", e.Input, e.Reason)
}

// ConfigurationError reports an invalid configuration value. It is always
// raised before the repository is opened.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
