package backend

import (
	"context"
	"os"
)

// DirEntry is one entry returned by a directory listing.
type DirEntry struct {
	Name  string
	IsDir bool
	Mode  os.FileMode
}

// ResolvedPath is the result of resolving a repo-root-relative path,
// possibly into a submodule's own worktree.
type ResolvedPath struct {
	// Worktree is the backend that owns RelativePath. It is the
	// receiver itself unless SubmodulePath is non-empty.
	Worktree WorktreeBackend
	// RelativePath is p re-based onto Worktree's root.
	RelativePath string
	// SubmodulePath is the repo-root-relative path of the submodule
	// gitlink that owns p, or "" if p is not inside a submodule.
	SubmodulePath string
}

// WorktreeBackend is the working-directory I/O contract. Every path
// argument is repo-root-relative and uses forward slashes; implementations
// must apply ResolvePath once before acting so that paths inside a
// submodule are transparently redirected to the submodule's own backend.
type WorktreeBackend interface {
	// ResolvePath resolves p, redirecting into a submodule's own
	// worktree backend when p falls inside one.
	ResolvePath(ctx context.Context, p string) (ResolvedPath, error)

	// Root returns the backend's working-directory root for
	// diagnostics; it carries no semantic weight for path resolution.
	Root(ctx context.Context) (string, error)

	// Read returns file contents, or (nil, false, nil) if p does not
	// exist — absence is not an error.
	Read(ctx context.Context, p string) ([]byte, bool, error)

	// Write creates or overwrites a regular file, creating parent
	// directories as needed.
	Write(ctx context.Context, p string, content []byte, executable bool) error

	// ReadDir lists the immediate children of a directory, or (nil,
	// false, nil) if it does not exist.
	ReadDir(ctx context.Context, p string) ([]DirEntry, bool, error)

	// ReadDirDeep recursively lists every file (not directory) under p.
	ReadDirDeep(ctx context.Context, p string) ([]string, error)

	// Mkdir creates a directory, including parents.
	Mkdir(ctx context.Context, p string) error

	// Rmdir removes an empty directory; missing is not an error.
	Rmdir(ctx context.Context, p string) error

	// Remove removes a regular file or symlink; missing is not an
	// error.
	Remove(ctx context.Context, p string) error

	// Stat returns file metadata, or (nil, false, nil) if p does not
	// exist. Symlinks are followed.
	Stat(ctx context.Context, p string) (os.FileInfo, bool, error)

	// Lstat is like Stat but does not follow a symlink at p.
	Lstat(ctx context.Context, p string) (os.FileInfo, bool, error)

	// ReadLink returns a symlink's target.
	ReadLink(ctx context.Context, p string) (string, error)

	// WriteLink writes a symlink at p pointing at target. Callers must
	// fall back to Write-as-regular-file when this returns an
	// unsupported-platform error.
	WriteLink(ctx context.Context, p, target string) error

	// Symlink is an alias kept for parity with the environment contract
	// named in the specification; it behaves identically to WriteLink.
	Symlink(ctx context.Context, p, target string) error
}
