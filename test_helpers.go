package gitversion

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
}

// testRepoCreate creates a new in-memory git repository for testing
func testRepoCreate() (*git.Repository, error) {
	storage := memory.NewStorage()
	fs := memfs.New()
	return git.Init(storage, fs)
}

// testRepoFSCreate creates a new filesystem-based git repository for testing
func testRepoFSCreate(path string) (*git.Repository, error) {
	return git.PlainInit(path, false)
}

// testCommit writes a file unique to message and commits it
func testCommit(repo *git.Repository, message string) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	filename := fmt.Sprintf("file_%d.txt", countCommits(repo))

	err = writeFile(workTree.Filesystem, filename, "Content for "+message)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	_, err = workTree.Add(filename)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return workTree.Commit(message, &git.CommitOptions{Author: testSignature})
}

func countCommits(repo *git.Repository) int {
	head, err := repo.Head()
	if err != nil {
		return 0
	}
	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return 0
	}
	defer iter.Close()

	n := 0
	_ = iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	})
	return n
}

// testHistoryStep is one commit of a scripted history, optionally tagged
type testHistoryStep struct {
	Message   string
	Tags      []string
	Annotated bool
}

// testRepoHistory creates an in-memory repository from steps and returns the
// commit hashes in creation order
func testRepoHistory(steps ...testHistoryStep) (*git.Repository, []plumbing.Hash, error) {
	repo, err := testRepoCreate()
	if err != nil {
		return nil, nil, err
	}

	var hashes []plumbing.Hash
	for _, step := range steps {
		hash, err := testCommit(repo, step.Message)
		if err != nil {
			return nil, nil, err
		}
		hashes = append(hashes, hash)

		for _, tag := range step.Tags {
			var opts *git.CreateTagOptions
			if step.Annotated {
				opts = &git.CreateTagOptions{Tagger: testSignature, Message: "Release " + tag}
			}
			if _, err := repo.CreateTag(tag, hash, opts); err != nil {
				return nil, nil, err
			}
		}
	}

	return repo, hashes, nil
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}
