package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"go.uber.org/zap"

	"github.com/gomantics/reposample/domains/records"
)

// Cloner produces a repository for the given clone options
type Cloner func(ctx context.Context, opts *git.CloneOptions) (*git.Repository, error)

// CloneSource lists trees and reads blobs from in-memory shallow clones, for
// hosts or tokens where the REST API is not an option. Entry locators are
// blob hashes.
type CloneSource struct {
	l        *zap.Logger
	provider Provider
	clone    Cloner

	mu    sync.RWMutex
	repos []*git.Repository
}

// NewCloneSource creates a clone source. A nil cloner clones into memory.
func NewCloneSource(l *zap.Logger, provider Provider, cloner Cloner) *CloneSource {
	if cloner == nil {
		cloner = cloneInMemory
	}
	return &CloneSource{
		l:        l,
		provider: provider,
		clone:    cloner,
	}
}

func cloneInMemory(ctx context.Context, opts *git.CloneOptions) (*git.Repository, error) {
	return git.CloneContext(ctx, memory.NewStorage(), nil, opts)
}

// FetchTree clones repo at revision and flattens its tree. revision may be a
// branch, a tag or a commit hash; empty selects the default branch.
func (s *CloneSource) FetchTree(ctx context.Context, repo Repository, revision string) (*records.Tree, error) {
	url := s.provider.CloneURL(repo)

	s.l.Info("cloning repository",
		zap.String("provider", s.provider.Name()),
		zap.String("url", url),
		zap.String("revision", revision),
	)

	r, err := s.cloneRevision(ctx, url, revision)
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	commit, err := resolveCommit(r, revision)
	if err != nil {
		return nil, err
	}

	tree, err := flatten(r, commit)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.repos = append(s.repos, r)
	s.mu.Unlock()

	s.l.Info("repository cloned successfully",
		zap.String("commit", commit.Hash.String()),
		zap.Int("entries", len(tree.Entries)),
	)
	return tree, nil
}

func (s *CloneSource) cloneRevision(ctx context.Context, url, revision string) (*git.Repository, error) {
	opts := &git.CloneOptions{
		URL:  url,
		Auth: s.provider.Auth(),
		Tags: git.NoTags,
	}

	switch {
	case revision == "":
		opts.Depth = 1
		opts.SingleBranch = true
	case plumbing.IsHash(revision):
		// arbitrary commits are not reachable from a shallow clone
	default:
		opts.Depth = 1
		opts.SingleBranch = true
		opts.ReferenceName = plumbing.NewBranchReferenceName(revision)

		r, err := s.clone(ctx, opts)
		if err == nil {
			return r, nil
		}

		s.l.Debug("branch not found, trying tag", zap.String("revision", revision), zap.Error(err))
		opts.ReferenceName = plumbing.NewTagReferenceName(revision)
		if r, tagErr := s.clone(ctx, opts); tagErr == nil {
			return r, nil
		}
		return nil, err
	}

	return s.clone(ctx, opts)
}

func resolveCommit(r *git.Repository, revision string) (*object.Commit, error) {
	var hash plumbing.Hash
	if plumbing.IsHash(revision) {
		hash = plumbing.NewHash(revision)
	} else {
		head, err := r.Head()
		if err != nil {
			return nil, fmt.Errorf("failed to get HEAD: %w", err)
		}
		hash = head.Hash()
	}

	commit, err := r.CommitObject(hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}
	return commit, nil
}

func flatten(r *git.Repository, commit *object.Commit) (*records.Tree, error) {
	root, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	w := object.NewTreeWalker(root, true, nil)
	defer w.Close()

	tree := &records.Tree{SHA: root.Hash.String()}
	for {
		name, entry, err := w.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to walk tree: %w", err)
		}

		e := records.Entry{
			Path: name,
			Mode: fmt.Sprintf("%06o", uint32(entry.Mode)),
			SHA:  entry.Hash.String(),
		}
		switch entry.Mode {
		case filemode.Dir:
			e.Type = records.TypeTree
		case filemode.Submodule:
			e.Type = records.TypeCommit
		default:
			e.Type = records.TypeBlob
			blob, err := r.BlobObject(entry.Hash)
			if err != nil {
				return nil, fmt.Errorf("failed to read blob %s: %w", name, err)
			}
			size := blob.Size
			e.Size = &size
		}
		tree.Entries = append(tree.Entries, e)
	}

	return tree, nil
}

// Download returns the content of the blob with the given hash from any
// repository cloned so far.
func (s *CloneSource) Download(ctx context.Context, locator string) ([]byte, error) {
	if !plumbing.IsHash(locator) {
		return nil, fmt.Errorf("unsupported content locator %q", locator)
	}
	hash := plumbing.NewHash(locator)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		blob, err := r.BlobObject(hash)
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read blob %s: %w", locator, err)
		}

		rd, err := blob.Reader()
		if err != nil {
			return nil, fmt.Errorf("failed to open blob %s: %w", locator, err)
		}
		defer rd.Close()
		return io.ReadAll(rd)
	}

	return nil, fmt.Errorf("blob %s: %w", locator, plumbing.ErrObjectNotFound)
}
