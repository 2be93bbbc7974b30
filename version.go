// Package gitversion derives semantic versions from Git repository history.
package gitversion

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"time"
)

// ResultKind classifies the outcome of Resolve
type ResultKind int

const (
	// KindResolved means the version was calculated (or overridden)
	KindResolved ResultKind = iota
	// KindSkipped means the calculation was not triggered and the supplied
	// version was passed through
	KindSkipped
	KindRepositoryNotFound
	KindConfigurationError
	// KindFailed covers every other fatal error
	KindFailed
)

func (k ResultKind) String() string {
	switch k {
	case KindResolved:
		return "resolved"
	case KindSkipped:
		return "skipped"
	case KindRepositoryNotFound:
		return "repository-not-found"
	case KindConfigurationError:
		return "configuration-error"
	default:
		return "failed"
	}
}

// Result is the outcome of Resolve. Err is set for every kind other than
// KindResolved and KindSkipped.
type Result struct {
	Kind      ResultKind
	BuildInfo BuildInfo
	Err       error
}

// OK reports whether BuildInfo holds a usable version.
func (r Result) OK() bool {
	return r.Kind == KindResolved || r.Kind == KindSkipped
}

// Resolve runs Calculate only when cfg is enabled and supplied equals
// cfg.Trigger; otherwise supplied is returned unchanged.
func Resolve(cfg Config, supplied string) Result {
	if !cfg.Enabled || supplied != cfg.Trigger {
		cfg.logger().Debug("version calculation not triggered",
			"supplied", supplied, "trigger", cfg.Trigger, "enabled", cfg.Enabled)
		return Result{
			Kind: KindSkipped,
			BuildInfo: BuildInfo{
				Version:   supplied,
				Timestamp: FormatTimestamp(cfg.now()),
			},
		}
	}

	info, err := Calculate(cfg)
	if err != nil {
		var cfgErr *ConfigurationError
		switch {
		case errors.As(err, &cfgErr):
			return Result{Kind: KindConfigurationError, Err: err}
		case errors.Is(err, ErrRepositoryNotFound):
			return Result{Kind: KindRepositoryNotFound, Err: err}
		default:
			return Result{Kind: KindFailed, Err: err}
		}
	}

	return Result{Kind: KindResolved, BuildInfo: info}
}

// Calculate determines the version of the repository containing cfg.Path.
// Configuration is validated before the repository is opened.
func Calculate(cfg Config) (info BuildInfo, err error) {
	plan, err := compileConfig(cfg)
	if err != nil {
		return BuildInfo{}, err
	}

	logger := cfg.logger()
	timestamp := FormatTimestamp(cfg.now())

	if cfg.Override != "" {
		logger.Debug("using version override", "version", cfg.Override)
		return BuildInfo{Version: cfg.Override, Timestamp: timestamp}, nil
	}

	repoPath := cfg.Path
	if repoPath == "" {
		repoPath = "."
	}

	repo, err := OpenRepository(repoPath, logger)
	if err != nil {
		return BuildInfo{}, err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing repository: %w", closeErr)
		}
	}()

	return calculate(repo, plan, logger, timestamp)
}

// CalculateRepository is Calculate against an already opened repository.
// The caller keeps ownership of repo.
func CalculateRepository(repo *Repository, cfg Config) (BuildInfo, error) {
	plan, err := compileConfig(cfg)
	if err != nil {
		return BuildInfo{}, err
	}

	timestamp := FormatTimestamp(cfg.now())
	if cfg.Override != "" {
		return BuildInfo{Version: cfg.Override, Timestamp: timestamp}, nil
	}

	return calculate(repo, plan, cfg.logger(), timestamp)
}

func calculate(repo *Repository, plan *calculationPlan, logger *slog.Logger, timestamp string) (BuildInfo, error) {
	head, err := repo.ResolveHead()
	if err != nil {
		if errors.Is(err, ErrNoHead) {
			logger.Debug("repository has no commits, using base version", "base", plan.base.String())
			return BuildInfo{Version: plan.base.String(), Timestamp: timestamp}, nil
		}
		return BuildInfo{}, err
	}

	resolution, err := ResolveBase(repo, head, TagResolverOptions{
		Pattern: plan.tagPattern,
		Prefix:  plan.tagPrefix,
		Default: plan.base,
		Logger:  logger,
	})
	if err != nil {
		return BuildInfo{}, fmt.Errorf("determining base version: %w", err)
	}

	// Unreleased commits are newest first; bumps apply oldest first
	messages := make([]string, 0, len(resolution.Unreleased))
	for _, commit := range resolution.Unreleased {
		messages = append(messages, commit.ShortMessage)
	}
	slices.Reverse(messages)

	version := plan.classifier.Apply(resolution.Base, messages)

	dirty, err := repo.IsWorkingTreeDirty()
	if err != nil {
		return BuildInfo{}, fmt.Errorf("checking if worktree is dirty: %w", err)
	}

	headCommit, err := repo.Commit(head)
	if err != nil {
		return BuildInfo{}, err
	}

	shortHash := head.String()[:ShortHashLength]
	version = applyQualifier(version, plan.qualifier, dirty, shortHash)

	logger.Debug("calculated version",
		"version", version.String(),
		"base", resolution.Base.String(),
		"dirty", dirty,
		"commit", shortHash)

	commitTimestamp := FormatTimestamp(headCommit.When.In(time.Local))
	return BuildInfo{
		Version:         version.String(),
		Timestamp:       timestamp,
		CommitHash:      &shortHash,
		CommitTimestamp: &commitTimestamp,
	}, nil
}

func applyQualifier(v Version, mode string, dirty bool, shortHash string) Version {
	switch mode {
	case QualifierAuto, "":
		if dirty {
			return v.BumpPatch().WithQualifier(SnapshotQualifier)
		}
		return v.Release()
	case QualifierHash:
		if dirty {
			return v.BumpPatch().WithQualifier(SnapshotQualifier)
		}
		return v.WithQualifier(shortHash)
	default:
		return v.WithQualifier(mode)
	}
}

type calculationPlan struct {
	base       Version
	tagPattern *regexp.Regexp
	tagPrefix  string
	classifier Classifier
	qualifier  string
}

func compileConfig(cfg Config) (*calculationPlan, error) {
	plan := &calculationPlan{
		tagPrefix: cfg.TagPrefix,
		qualifier: cfg.Qualifier,
	}

	base := cfg.Base
	if base == "" {
		base = "0.0.0"
	}
	v, err := ParseVersion(base)
	if err != nil {
		return nil, &ConfigurationError{Key: "base", Err: err}
	}
	plan.base = v

	if cfg.Override != "" {
		if _, err := ParseVersion(cfg.Override); err != nil {
			return nil, &ConfigurationError{Key: "override", Err: err}
		}
	}

	if cfg.TagPattern != "" {
		re, err := compileFullMatch(cfg.TagPattern)
		if err != nil {
			return nil, &ConfigurationError{Key: "tagPattern", Err: err}
		}
		plan.tagPattern = re
	}

	plan.classifier, err = NewClassifier(cfg.MajorPattern, cfg.MinorPattern, cfg.PatchPattern)
	if err != nil {
		return nil, err
	}

	return plan, nil
}

func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c Config) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
