// Package gitversion derives semantic versions from Git repository history.
package gitversion

import (
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// Qualifier modes understood by Config.Qualifier. Any other value is used
// verbatim as the qualifier.
const (
	QualifierAuto = "auto"
	QualifierHash = "hash"

	// SnapshotQualifier marks a build from a modified working tree.
	SnapshotQualifier = "SNAPSHOT"

	// ShortHashLength is the length of abbreviated commit hashes.
	ShortHashLength = 7
)

// Config configures version calculation. The zero value is not usable;
// start from DefaultConfig or LoadConfig.
type Config struct {
	// Enabled turns the calculation on or off entirely
	Enabled bool `env:"GITVERSION_ENABLED" envDefault:"true"`

	// Trigger is the sentinel the supplied version must equal for the
	// calculation to run
	Trigger string `env:"GITVERSION_TRIGGER" envDefault:"git"`

	// Pipeline selects the CI exporters to run ("auto", "none" or a name)
	Pipeline string `env:"GITVERSION_PIPELINE" envDefault:"auto"`

	// Base is the version used when no matching tag is found
	Base string `env:"GITVERSION_BASE" envDefault:"0.0.0"`

	// Qualifier is "auto", "hash" or a literal qualifier
	Qualifier string `env:"GITVERSION_QUALIFIER" envDefault:"auto"`

	// TagPattern must fully match a tag name; its last capture group holds the version
	TagPattern string `env:"GITVERSION_TAG_PATTERN" envDefault:"^v(.+)$"`

	// TagPrefix limits tag lookup to refs/tags/<TagPrefix>
	TagPrefix string `env:"GITVERSION_TAG_PREFIX"`

	MajorPattern string `env:"GITVERSION_MAJOR_PATTERN"`
	MinorPattern string `env:"GITVERSION_MINOR_PATTERN"`
	PatchPattern string `env:"GITVERSION_PATCH_PATTERN" envDefault:"^(.*)$"`

	// Override bypasses the calculation and is returned verbatim
	Override string `env:"GITVERSION_OVERRIDE"`

	// Path is where repository discovery starts
	Path string `env:"GITVERSION_PATH" envDefault:"."`

	// Logger receives diagnostics; nil uses slog.Default()
	Logger *slog.Logger

	// Now returns the build timestamp; nil uses time.Now
	Now func() time.Time
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		Trigger:      "git",
		Pipeline:     "auto",
		Base:         "0.0.0",
		Qualifier:    QualifierAuto,
		TagPattern:   "^v(.+)$",
		PatchPattern: "^(.*)$",
		Path:         ".",
	}
}

// BuildInfo is the result of a version calculation
type BuildInfo struct {
	Version         string  `json:"version" yaml:"version"`
	Timestamp       string  `json:"timestamp" yaml:"timestamp"`
	CommitHash      *string `json:"commitHash,omitempty" yaml:"commitHash,omitempty"`
	CommitTimestamp *string `json:"commitTimestamp,omitempty" yaml:"commitTimestamp,omitempty"`
}

// Hash returns the abbreviated commit hash or "" when absent.
func (b BuildInfo) Hash() string {
	if b.CommitHash == nil {
		return ""
	}
	return *b.CommitHash
}

// CommitTime returns the commit timestamp or "" when absent.
func (b BuildInfo) CommitTime() string {
	if b.CommitTimestamp == nil {
		return ""
	}
	return *b.CommitTimestamp
}

// TagReference is a tag name and the commit it ultimately points at
type TagReference struct {
	Name   string
	Commit plumbing.Hash
}

// CommitRecord holds the parts of a commit the calculation needs
type CommitRecord struct {
	Hash         plumbing.Hash
	ShortMessage string
	When         time.Time
}

// TagResolution is the outcome of ResolveBase
type TagResolution struct {
	// Base is the tag version, or the default when no tag matched
	Base Version

	// Tag is the matched tag name, empty when no tag matched
	Tag string

	// TagCommit is the commit carrying Tag
	TagCommit plumbing.Hash

	// Unreleased lists commits after the tag, newest first
	Unreleased []CommitRecord
}

// FormatTimestamp renders t as ISO-8601 with offset at second precision.
func FormatTimestamp(t time.Time) string {
	return t.Truncate(time.Second).Format(time.RFC3339)
}
