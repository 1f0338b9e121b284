// Package git provides a high-level, idiomatic Go facade over a
// pluggable git backend. This package offers task-oriented operations
// for common git workflows while never committing to one storage or
// transport implementation: every operation is expressed against the
// backend.GitBackend and backend.WorktreeBackend contracts, with the
// default filesystem-backed implementations living in backend/fsgit
// and backend/fsworktree.
//
// # Design Principles
//
//   - Capability contracts, not concrete types - Repo holds a
//     backend.GitBackend and backend.WorktreeBackend, never go-git's own
//     *git.Repository/*git.Worktree.
//   - Opaque object/index bytes - object content and index bytes cross
//     the backend contract raw; all structured decoding (commits, trees,
//     tags, the index format) lives in the objparse package.
//   - Testability by construction - in-memory FS, controlled side
//     effects, no network access unless Options.RemoteRegistry is set.
//   - Go idioms - accepts interfaces, returns concrete types, explicit
//     context.Context on every blocking operation.
//
// # Basic Usage
//
//	import (
//	    "context"
//	    billyfs "github.com/awesome-os/portable-git/fsapi/billy"
//	    git "github.com/awesome-os/portable-git"
//	)
//
//	// Create filesystem (can be OS-backed or in-memory)
//	fs := billyfs.NewOSFS("/path/to/repo")
//
//	// Open existing repository
//	repo, err := git.Open(context.Background(), &git.Options{
//	    FS: fs,
//	    Workdir: ".",
//	})
//
//	// Or initialize new repository
//	repo, err := git.Init(context.Background(), &git.Options{
//	    FS: fs,
//	    Workdir: ".",
//	})
//
// # Working with Branches
//
// Create and switch branches:
//
//	// Create new branch from current HEAD
//	err = repo.CreateBranch(ctx, "feature/new", "HEAD", false)
//
//	// Checkout the branch
//	err = repo.CheckoutBranch(ctx, "feature/new", false, false)
//
//	// Get current branch
//	branch, err := repo.CurrentBranch(ctx)
//
// # Making Commits
//
// Stage files and create commits:
//
//	// Stage files
//	err = repo.Add(ctx, "file1.go", "file2.go")
//
//	// Create commit
//	sha, err := repo.Commit(ctx, "feat: add new feature", git.Signature{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}, git.CommitOpts{})
//
// # Checkout
//
// Checkout switches the worktree and index to a ref's tree, optionally
// restricting the set of paths materialized via sparse-checkout
// patterns, and can fan the work out across a worker pool for large
// trees:
//
//	err = repo.Checkout(ctx, "main", git.CheckoutOpts{SparsePatterns: []string{"/src/*"}, Cone: true})
//
//	n, err := repo.ParallelCheckout(ctx, "main", git.ParallelCheckoutOpts{Workers: 4})
//
// # Stashing
//
// Record and restore uncommitted work:
//
//	oid, err := repo.StashPush(ctx, "wip")
//	err = repo.StashPop(ctx)
//
// # Synchronization
//
// Fetch, pull, and push changes. These operations require
// Options.RemoteRegistry to resolve a remote name to a RemoteBackend;
// the remote package implements both on top of go-git's transport and
// internal/auth's credential providers:
//
//	import (
//	    "github.com/awesome-os/portable-git/internal/auth"
//	    "github.com/awesome-os/portable-git/remote"
//	)
//
//	authProvider := auth.NewHTTPSTokenProvider("github_pat_...")
//	opts := &git.Options{
//	    FS:             fs,
//	    RemoteRegistry: remote.NewRegistry(repo.Config(), authProvider),
//	}
//
//	err = repo.Fetch(ctx, "origin", 0)
//	err = repo.PullFFOnly(ctx, "origin")
//	err = repo.Push(ctx, "origin", false)
//
// # Working with Tags
//
// Create and manage tags:
//
//	// Create annotated tag
//	err = repo.CreateTag(ctx, "v1.0.0", "HEAD", "Release v1.0.0", tagger)
//
//	// List tags matching pattern
//	tags, err := repo.Tags(ctx, git.TagPatternFilter("v"))
//
//	// Delete tag
//	err = repo.DeleteTag(ctx, "v1.0.0")
//
// # History and Diffs
//
// Query commit history and compute diffs:
//
//	// Get commit history with filters
//	iter, err := repo.Log(ctx, git.LogFilter{
//	    Author:   "John",
//	    MaxCount: 10,
//	})
//	defer iter.Close()
//
//	err = iter.ForEach(func(c *git.Commit) error {
//	    fmt.Printf("%s: %s\n", c.OID, c.Message)
//	    return nil
//	})
//
//	// Compute diff between revisions
//	diff, err := repo.Diff(ctx, "HEAD~1", "HEAD", git.ExtensionFilter(".go"))
//	text, err := diff.Text(ctx, repo)
//
// # Submodules
//
// Discover gitlink entries declared in .gitmodules and, when already
// cloned into the worktree, register them with the repository's
// worktree backend so its ResolvePath maps paths under a gitlink to the
// submodule's backend (file operations themselves act on the parent
// filesystem):
//
//	subs, err := repo.Submodules(ctx)
//	err = repo.LoadSubmodules(ctx)
//
// # In-Memory Operations
//
// All operations can run entirely in memory for testing:
//
//	memFS := billyfs.NewInMemoryFS()
//
//	repo, err := git.Init(ctx, &git.Options{
//	    FS:      memFS,
//	    Workdir: "/",
//	})
//
//	err = memFS.WriteFile("test.txt", []byte("content"), 0644)
//	err = repo.Add(ctx, "test.txt")
//	sha, err := repo.Commit(ctx, "test commit", sig, git.CommitOpts{})
//
// # Error Handling
//
// The package provides sentinel errors for common conditions:
//
//	err := repo.Push(ctx, "origin", false)
//	if errors.Is(err, git.ErrNotFastForward) {
//	    // Handle non-fast-forward push
//	}
//	if errors.Is(err, git.ErrRemoteNotConfigured) {
//	    // Options.RemoteRegistry was not set
//	}
//
// # Context Support
//
// All operations accept a context for timeout and cancellation:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	err = repo.Fetch(ctx, "origin", 0)
//	if err != nil {
//	    // Operation was cancelled or timed out
//	}
//
// # Thread Safety
//
// A Repo instance is NOT safe for concurrent writes. Read operations
// (Log, Diff, Branches, CurrentBranch, etc.) can be called
// concurrently. Write operations (Add, Commit, Push, Checkout, etc.)
// must be serialized, except ParallelCheckout, which owns its own
// internal fan-out and must still not overlap with other writes.
//
// # Performance Considerations
//
//   - LRU object cache in the default fsgit backend
//   - ParallelCheckout fans large trees out across a worker pool
//   - Sparse-checkout patterns limit both Checkout and ParallelCheckout
//     to the paths that actually need materializing
//
// # Limitations
//
// This package intentionally does not support:
//   - Interactive operations (rebase -i, add -i)
//   - Complex merge conflict resolution
//   - Submodule clone/update (LoadSubmodules wires already-cloned
//     submodules; it does not clone missing ones)
//   - Direct git CLI invocation
package git
