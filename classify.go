package gitversion

import (
	"fmt"
	"regexp"
)

// BumpKind is the version increment a commit implies.
type BumpKind int

const (
	BumpNone BumpKind = iota
	BumpMajor
	BumpMinor
	BumpPatch
)

func (k BumpKind) String() string {
	switch k {
	case BumpMajor:
		return "major"
	case BumpMinor:
		return "minor"
	case BumpPatch:
		return "patch"
	default:
		return "none"
	}
}

// Apply returns v incremented according to k.
func (k BumpKind) Apply(v Version) Version {
	switch k {
	case BumpMajor:
		return v.BumpMajor()
	case BumpMinor:
		return v.BumpMinor()
	case BumpPatch:
		return v.BumpPatch()
	default:
		return v
	}
}

// Rule pairs a bump kind with the pattern a commit message must match.
type Rule struct {
	Kind    BumpKind
	Pattern *regexp.Regexp
}

// Classifier evaluates its rules in order; the first match decides.
type Classifier []Rule

// NewClassifier compiles the major, minor and patch patterns. Empty major and
// minor patterns never match; an empty patch pattern matches every message.
func NewClassifier(major, minor, patch string) (Classifier, error) {
	if patch == "" {
		patch = ".*"
	}

	var rules Classifier
	for _, spec := range []struct {
		kind    BumpKind
		key     string
		pattern string
	}{
		{BumpMajor, "majorPattern", major},
		{BumpMinor, "minorPattern", minor},
		{BumpPatch, "patchPattern", patch},
	} {
		if spec.pattern == "" {
			continue
		}
		re, err := compileFullMatch(spec.pattern)
		if err != nil {
			return nil, &ConfigurationError{Key: spec.key, Err: err}
		}
		rules = append(rules, Rule{Kind: spec.kind, Pattern: re})
	}
	return rules, nil
}

// Classify returns the kind of the first rule matching message.
func (c Classifier) Classify(message string) BumpKind {
	for _, rule := range c {
		if rule.Pattern.MatchString(message) {
			return rule.Kind
		}
	}
	return BumpNone
}

// Apply bumps base once per message, in the given order. Messages must be
// oldest first: a major bump discards earlier minor and patch progress.
func (c Classifier) Apply(base Version, messages []string) Version {
	version := base
	for _, message := range messages {
		version = c.Classify(message).Apply(version)
	}
	return version
}

// compileFullMatch compiles pattern so that it must match the entire input.
func compileFullMatch(pattern string) (*regexp.Regexp, error) {
	if _, err := regexp.Compile(pattern); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(fmt.Sprintf("^(?:%s)$", pattern))
	if err != nil {
		return nil, err
	}
	return re, nil
}
