package gitversion

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/go-git/go-git/v5/plumbing"
)

// tagIndex maps commits to tag names. Put overwrites an existing entry: the
// last write wins.
type tagIndex struct {
	names map[plumbing.Hash]string
}

func (t *tagIndex) Put(commit plumbing.Hash, name string) (replaced string, ok bool) {
	replaced, ok = t.names[commit]
	t.names[commit] = name
	return replaced, ok
}

func (t *tagIndex) Get(commit plumbing.Hash) (string, bool) {
	name, ok := t.names[commit]
	return name, ok
}

func (t *tagIndex) Len() int {
	return len(t.names)
}

// TagResolverOptions configures ResolveBase
type TagResolverOptions struct {
	// Pattern must match the whole tag name; its last capture group is the
	// version. A nil pattern never matches.
	Pattern *regexp.Regexp

	// Prefix limits the lookup to refs/tags/<Prefix>
	Prefix string

	// Default is the base version when no tag matches
	Default Version

	Logger *slog.Logger
}

// ResolveBase walks back from head to the closest commit carrying a tag that
// matches opts.Pattern and parses as a Version. Commits visited before that
// tag are returned as the unreleased range, newest first.
func ResolveBase(repo *Repository, head plumbing.Hash, opts TagResolverOptions) (TagResolution, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	refs, err := repo.ListTags(opts.Prefix)
	if err != nil {
		return TagResolution{}, err
	}

	idx := &tagIndex{names: make(map[plumbing.Hash]string, len(refs))}
	for _, ref := range refs {
		if previous, ok := idx.Put(ref.Commit, ref.Name); ok {
			logger.Debug("tag replaces another on the same commit",
				"commit", ref.Commit.String(), "tag", ref.Name, "replaced", previous)
		}
	}

	resolution := TagResolution{Base: opts.Default}
	err = repo.WalkAncestors(head, func(commit CommitRecord) error {
		if name, ok := idx.Get(commit.Hash); ok {
			version, err := versionFromTag(opts.Pattern, name)
			switch {
			case err == nil:
				resolution.Base = version
				resolution.Tag = name
				resolution.TagCommit = commit.Hash
				return ErrStopWalk
			case errors.Is(err, errTagNoMatch):
				logger.Debug("tag does not match pattern", "tag", name)
			default:
				logger.Debug("ignoring unparsable tag", "tag", name, "error", err)
			}
		}

		resolution.Unreleased = append(resolution.Unreleased, commit)
		return nil
	})
	if err != nil {
		return TagResolution{}, fmt.Errorf("walking ancestry: %w", err)
	}

	logger.Debug("resolved base version",
		"base", resolution.Base.String(),
		"tag", resolution.Tag,
		"taggedCommits", idx.Len(),
		"unreleased", len(resolution.Unreleased))

	return resolution, nil
}

var errTagNoMatch = errors.New("tag does not match pattern")

func versionFromTag(pattern *regexp.Regexp, name string) (Version, error) {
	if pattern == nil {
		return Version{}, errTagNoMatch
	}
	groups := pattern.FindStringSubmatch(name)
	if groups == nil {
		return Version{}, errTagNoMatch
	}
	return ParseVersion(groups[len(groups)-1])
}
