// Package gitversion derives semantic versions from Git repository history.
//
// The working tree check in this file is adapted from pulumictl
// (https://github.com/pulumi/pulumictl) which is licensed under the Apache
// License 2.0. See NOTICE file for full attribution.
package gitversion

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path"
	"slices"
	"strings"

	"github.com/blang/semver"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const tagRefPrefix = "refs/tags/"

// Repository is a read-only handle on a Git repository. Release it with Close.
type Repository struct {
	repo   *git.Repository
	logger *slog.Logger
}

// OpenRepository opens the Git repository containing path, searching parent
// directories for .git.
func OpenRepository(path string, logger *slog.Logger) (*Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w at or above %s", ErrRepositoryNotFound, path)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return NewRepository(repo, logger), nil
}

// NewRepository wraps an already opened go-git repository.
func NewRepository(repo *git.Repository, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{repo: repo, logger: logger}
}

// Close releases the underlying storage.
func (r *Repository) Close() error {
	if closer, ok := r.repo.Storer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ResolveHead returns the commit HEAD points at.
func (r *Repository) ResolveHead() (plumbing.Hash, error) {
	ref, err := r.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, ErrNoHead
		}
		return plumbing.ZeroHash, fmt.Errorf("resolving HEAD: %w", err)
	}
	return ref.Hash(), nil
}

// Commit returns the record for a single commit.
func (r *Repository) Commit(hash plumbing.Hash) (CommitRecord, error) {
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return CommitRecord{}, fmt.Errorf("getting commit object: %w", err)
	}
	return toCommitRecord(commit), nil
}

// ListTags returns the tags under refs/tags/<prefix> with prefix removed from
// their names. Annotated tags are dereferenced to the commit they point at.
// Tags whose target cannot be determined are skipped.
//
// The result is ordered by the semantic version embedded in each name, then
// by name, so that a later entry is the preferred one when several tags point
// at the same commit.
func (r *Repository) ListTags(prefix string) ([]TagReference, error) {
	tags, err := r.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	var refs []TagReference
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}

		name := strings.TrimPrefix(ref.Name().String(), tagRefPrefix)
		if !strings.HasPrefix(name, prefix) {
			return nil
		}

		commit, err := r.peelTag(ref.Hash())
		if err != nil {
			r.logger.Debug("skipping tag", "tag", name, "error", err)
			return nil
		}

		refs = append(refs, TagReference{
			Name:   strings.TrimPrefix(name, prefix),
			Commit: commit,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}

	slices.SortStableFunc(refs, compareTags)
	return refs, nil
}

// peelTag follows tag objects until it reaches a commit.
func (r *Repository) peelTag(hash plumbing.Hash) (plumbing.Hash, error) {
	for {
		obj, err := r.repo.TagObject(hash)
		switch {
		case err == nil:
			switch obj.TargetType {
			case plumbing.CommitObject:
				return obj.Target, nil
			case plumbing.TagObject:
				hash = obj.Target
				continue
			default:
				return plumbing.ZeroHash, fmt.Errorf("tag %s targets a %s", obj.Name, obj.TargetType)
			}
		case errors.Is(err, plumbing.ErrObjectNotFound):
			// Lightweight tag
			if _, err := r.repo.CommitObject(hash); err != nil {
				return plumbing.ZeroHash, fmt.Errorf("resolving %s: %w", hash, err)
			}
			return hash, nil
		default:
			return plumbing.ZeroHash, err
		}
	}
}

func compareTags(a, b TagReference) int {
	va, errA := semver.ParseTolerant(stripModuleTagPrefixes(a.Name))
	vb, errB := semver.ParseTolerant(stripModuleTagPrefixes(b.Name))
	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c
		}
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	}
	return strings.Compare(a.Name, b.Name)
}

func stripModuleTagPrefixes(tag string) string {
	_, versionComponent := path.Split(tag)
	return strings.TrimPrefix(versionComponent, "v")
}

// WalkAncestors calls fn for start and each of its ancestors, parents before
// grandparents. Commits are read lazily; returning ErrStopWalk from fn ends
// the walk early without error.
func (r *Repository) WalkAncestors(start plumbing.Hash, fn func(CommitRecord) error) error {
	commit, err := r.repo.CommitObject(start)
	if err != nil {
		return fmt.Errorf("getting commit object: %w", err)
	}

	walker := object.NewCommitPreorderIter(commit, nil, nil)
	defer walker.Close()

	return walker.ForEach(func(c *object.Commit) error {
		return fn(toCommitRecord(c))
	})
}

func toCommitRecord(c *object.Commit) CommitRecord {
	return CommitRecord{
		Hash:         c.Hash,
		ShortMessage: shortMessage(c.Message),
		When:         c.Committer.When,
	}
}

// shortMessage returns the first paragraph of a commit message on one line.
// Line breaks become single spaces; other whitespace is kept.
func shortMessage(message string) string {
	message = strings.TrimSpace(strings.ReplaceAll(message, "\r\n", "\n"))
	if i := strings.Index(message, "\n\n"); i >= 0 {
		message = message[:i]
	}
	return strings.ReplaceAll(message, "\n", " ")
}

// IsWorkingTreeDirty reports whether the index or working tree differs from
// HEAD, untracked files included. Bare repositories are never dirty.
func (r *Repository) IsWorkingTreeDirty() (bool, error) {
	workTree, err := r.repo.Worktree()
	if err != nil {
		if errors.Is(err, git.ErrIsBareRepository) {
			return false, nil
		}
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	// Fast path for filesystem storage
	if _, ok := r.repo.Storer.(*filesystem.Storage); ok {
		if gitPath, err := exec.LookPath("git"); err == nil {
			return checkDirtyWithGitCommand(gitPath, workTree.Filesystem.Root())
		}
	}

	// Fallback to go-git status check
	status, err := workTree.Status()
	if err != nil {
		return false, fmt.Errorf("getting git status: %w", err)
	}

	return !status.IsClean(), nil
}

// gitStatusArgs never take the index lock, so the check stays read-only.
var gitStatusArgs = []string{"--no-optional-locks", "status", "--porcelain", "--untracked-files=normal"}

func checkDirtyWithGitCommand(gitPath, repoPath string) (bool, error) {
	cmd := exec.Command(gitPath, gitStatusArgs...)
	cmd.Dir = repoPath
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, fmt.Errorf("git status: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return false, fmt.Errorf("git status: %w", err)
	}

	return len(strings.TrimSpace(string(output))) > 0, nil
}
