// Package git provides a high-level Go wrapper for portable git
// operations. It exposes task-oriented operations for repository
// management while operating exclusively through the backend.GitBackend
// and backend.WorktreeBackend contracts, so any storage/working-directory
// implementation satisfying those two interfaces can stand in for the
// filesystem-backed default.
package git

import (
	"context"
	"fmt"

	gobilly "github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	gogitstorage "github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/backend/fsgit"
	"github.com/awesome-os/portable-git/backend/fsworktree"
	"github.com/awesome-os/portable-git/config"
	fs "github.com/awesome-os/portable-git/fsapi"
	fsb "github.com/awesome-os/portable-git/fsapi/billy"
	"github.com/awesome-os/portable-git/internal/fsbridge"
)

// Repo represents a git repository and provides high-level operations.
// It holds a backend.GitBackend for object/ref/index/config access and,
// for non-bare repositories, a backend.WorktreeBackend for
// working-directory I/O; every public operation is expressed in terms
// of those two contracts, never go-git's own Repository/Worktree types.
type Repo struct {
	git     backend.GitBackend
	wt      backend.WorktreeBackend
	cfg     *config.Service
	options Options
	remotes RemoteRegistry

	// newHandle constructs a fresh (GitBackend, WorktreeBackend) pair
	// rooted at the same storage, one per worker, for ParallelCheckout.
	// nil for bare repositories, which have no worktree to check out
	// into.
	newHandle func(workerID int) (backend.GitBackend, backend.WorktreeBackend, error)
}

// Config exposes the repository's four-scope configuration service
// (system, global, local, worktree).
func (r *Repo) Config() *config.Service { return r.cfg }

// Logger returns the structured logging sink configured via
// Options.Logger (a no-op sink if none was supplied).
func (r *Repo) Logger() Logger { return r.logger() }

func (r *Repo) logger() Logger {
	if r.options.Logger == nil {
		return nopLogger{}
	}
	return r.options.Logger
}

// scaffoldStorage bootstraps an empty gitdir the way go-git's own Init
// does (HEAD, initial refs namespace, config) by delegating one-time to
// gogit.Init: go-git owns the on-disk layout convention for a fresh
// repository, and fsgit.Backend is deliberately just a thin adapter over
// already-initialized storage, not a scaffolding tool.
func scaffoldStorage(storage *gogitstorage.Storage, worktreeFS gobilly.Filesystem) error {
	_, err := gogit.Init(storage, worktreeFS)
	return err
}

// Init creates a new git repository at the specified location.
func Init(ctx context.Context, opts *Options) (*Repo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}
	opts.applyDefaults()

	billyFS, scopedFS, dotGitFS, err := mountFilesystems(opts)
	if err != nil {
		return nil, err
	}

	storage := fsbridge.NewStorageWithDefaultCache(dotGitFS)

	var worktreeFS gobilly.Filesystem
	if !opts.Bare {
		worktreeFS = scopedFS
	}
	if err := scaffoldStorage(storage, worktreeFS); err != nil {
		return nil, WrapError(err, "failed to initialize repository")
	}

	return newRepo(storage, dotGitFS, scopedFS, billyFS, *opts)
}

// Open opens an existing git repository.
func Open(ctx context.Context, opts *Options) (*Repo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, WrapError(err, "invalid options")
	}
	opts.applyDefaults()

	billyFS, scopedFS, dotGitFS, err := mountFilesystems(opts)
	if err != nil {
		return nil, err
	}

	storage := fsbridge.NewStorageWithDefaultCache(dotGitFS)

	var worktreeFS gobilly.Filesystem
	if !opts.Bare {
		worktreeFS = scopedFS
	}
	if _, err := gogit.Open(storage, worktreeFS); err != nil {
		return nil, WrapError(err, "failed to open repository")
	}

	return newRepo(storage, dotGitFS, scopedFS, billyFS, *opts)
}

// mountFilesystems resolves opts.FS/Workdir into the billy filesystems
// the storage layer and worktree layer are rooted at.
func mountFilesystems(opts *Options) (root, scoped, dotGit gobilly.Filesystem, err error) {
	root, err = fsbridge.ToBillyFilesystem(opts.FS)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("filesystem conversion failed: %w", err)
	}

	scoped, err = root.Chroot(opts.Workdir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to chroot to workdir %q: %w", opts.Workdir, err)
	}

	if opts.Bare {
		return root, scoped, scoped, nil
	}
	dotGit, err = scoped.Chroot(".git")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to scope .git directory: %w", err)
	}
	return root, scoped, dotGit, nil
}

func newRepo(storage *gogitstorage.Storage, dotGitFS, scopedFS, _ gobilly.Filesystem, opts Options) (*Repo, error) {
	gitdir := ".git"
	if opts.Bare {
		gitdir = ""
	}
	gb := fsgit.New(storage, dotGitFS, gitdir)

	var wt backend.WorktreeBackend
	if !opts.Bare {
		wt = fsworktree.New(fsb.NewFS(scopedFS), opts.Workdir)
	}

	r := &Repo{
		git:     gb,
		wt:      wt,
		cfg:     config.New(gb),
		options: opts,
		remotes: opts.RemoteRegistry,
	}

	if !opts.Bare {
		r.newHandle = func(int) (backend.GitBackend, backend.WorktreeBackend, error) {
			s := fsbridge.NewStorageWithDefaultCache(dotGitFS)
			return fsgit.New(s, dotGitFS, gitdir), fsworktree.New(fsb.NewFS(scopedFS), opts.Workdir), nil
		}
	}

	return r, nil
}

// CurrentBranch returns the name of the currently checked out branch.
// It returns ErrResolveFailed if HEAD is detached.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target, err := r.git.ReadSymbolicRef(ctx, "HEAD")
	if err != nil {
		return "", WrapError(ErrResolveFailed, "HEAD is detached")
	}
	if !hasPrefix(target, "refs/heads/") {
		return "", WrapError(ErrResolveFailed, "HEAD is detached")
	}
	return target[len("refs/heads/"):], nil
}

// fs exposes the configured native filesystem, used by Add/Remove's
// glob expansion.
func (r *Repo) fs() fs.Filesystem { return r.options.FS }
