// Package fsworktree is the default WorktreeBackend, backed directly by
// an fsapi.Filesystem (see fsapi/billy for the go-billy-backed
// implementation). A Repository composes one fsworktree.Backend per
// submodule and registers them with WithSubmodules, after which
// ResolvePath reports the owning submodule backend for paths under a
// gitlink. The file operations (Read, Write, ReadDir, Remove, Stat and
// the rest) do not call ResolvePath: they always act on this Backend's
// own filesystem.
package fsworktree

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/fsapi"
)

// Submodule describes one gitlink boundary a Backend should redirect
// into, keyed by the repo-root-relative path the gitlink occupies.
type Submodule struct {
	Path    string
	Backend backend.WorktreeBackend
}

// Backend is the default WorktreeBackend.
type Backend struct {
	fs          fsapi.Filesystem
	root        string
	submodules  []Submodule // sorted by Path, longest prefix first
}

// New builds a Backend rooted at fs, with no submodules. Use
// WithSubmodules to register gitlink redirections.
func New(fs fsapi.Filesystem, root string) *Backend {
	return &Backend{fs: fs, root: root}
}

// WithSubmodules returns a copy of b with its submodule table replaced.
// Submodules are matched longest-path-first so a nested submodule takes
// precedence over an ancestor one.
func (b *Backend) WithSubmodules(subs []Submodule) *Backend {
	sorted := make([]Submodule, len(subs))
	copy(sorted, subs)
	sort.Slice(sorted, func(i, j int) bool {
		return len(sorted[i].Path) > len(sorted[j].Path)
	})
	return &Backend{fs: b.fs, root: b.root, submodules: sorted}
}

var _ backend.WorktreeBackend = (*Backend)(nil)

func clean(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if p == "." {
		return ""
	}
	return p
}

// ResolvePath implements backend.WorktreeBackend.
func (b *Backend) ResolvePath(_ context.Context, p string) (backend.ResolvedPath, error) {
	cp := clean(p)
	for _, sub := range b.submodules {
		if cp == sub.Path || strings.HasPrefix(cp, sub.Path+"/") {
			rel := strings.TrimPrefix(cp, sub.Path)
			rel = strings.TrimPrefix(rel, "/")
			return backend.ResolvedPath{
				Worktree:      sub.Backend,
				RelativePath:  rel,
				SubmodulePath: sub.Path,
			}, nil
		}
	}
	return backend.ResolvedPath{Worktree: b, RelativePath: cp}, nil
}

// Root implements backend.WorktreeBackend.
func (b *Backend) Root(context.Context) (string, error) {
	return b.root, nil
}

// Read implements backend.WorktreeBackend.
func (b *Backend) Read(_ context.Context, p string) ([]byte, bool, error) {
	data, err := b.fs.ReadFile(clean(p))
	if err != nil {
		if isNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fsworktree: read %q: %w", p, err)
	}
	return data, true, nil
}

// Write implements backend.WorktreeBackend.
func (b *Backend) Write(_ context.Context, p string, content []byte, executable bool) error {
	cp := clean(p)
	if dir := path.Dir(cp); dir != "." && dir != "" {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("fsworktree: mkdir for %q: %w", p, err)
		}
	}
	perm := os.FileMode(0o644)
	if executable {
		perm = 0o755
	}
	if err := b.fs.WriteFile(cp, content, perm); err != nil {
		return fmt.Errorf("fsworktree: write %q: %w", p, err)
	}
	return nil
}

// ReadDir implements backend.WorktreeBackend.
func (b *Backend) ReadDir(_ context.Context, p string) ([]backend.DirEntry, bool, error) {
	infos, err := b.fs.ReadDir(clean(p))
	if err != nil {
		if isNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fsworktree: readdir %q: %w", p, err)
	}
	out := make([]backend.DirEntry, 0, len(infos))
	for _, info := range infos {
		out = append(out, backend.DirEntry{
			Name:  info.Name(),
			IsDir: info.IsDir(),
			Mode:  info.Mode(),
		})
	}
	return out, true, nil
}

// ReadDirDeep implements backend.WorktreeBackend.
func (b *Backend) ReadDirDeep(_ context.Context, p string) ([]string, error) {
	root := clean(p)
	var files []string
	err := b.fs.Walk(root, func(walked string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(walked, b.root)
		rel = strings.TrimPrefix(rel, "/")
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fsworktree: walk %q: %w", p, err)
	}
	sort.Strings(files)
	return files, nil
}

// Mkdir implements backend.WorktreeBackend.
func (b *Backend) Mkdir(_ context.Context, p string) error {
	if err := b.fs.MkdirAll(clean(p), 0o755); err != nil {
		return fmt.Errorf("fsworktree: mkdir %q: %w", p, err)
	}
	return nil
}

// Rmdir implements backend.WorktreeBackend.
func (b *Backend) Rmdir(_ context.Context, p string) error {
	cp := clean(p)
	ok, err := b.fs.Exists(cp)
	if err != nil {
		return fmt.Errorf("fsworktree: rmdir %q: %w", p, err)
	}
	if !ok {
		return nil
	}
	if err := b.fs.Remove(cp); err != nil {
		return fmt.Errorf("fsworktree: rmdir %q: %w", p, err)
	}
	return nil
}

// Remove implements backend.WorktreeBackend.
func (b *Backend) Remove(_ context.Context, p string) error {
	cp := clean(p)
	ok, err := b.fs.Exists(cp)
	if err != nil {
		return fmt.Errorf("fsworktree: remove %q: %w", p, err)
	}
	if !ok {
		return nil
	}
	if err := b.fs.Remove(cp); err != nil {
		return fmt.Errorf("fsworktree: remove %q: %w", p, err)
	}
	return nil
}

// Stat implements backend.WorktreeBackend.
func (b *Backend) Stat(_ context.Context, p string) (os.FileInfo, bool, error) {
	info, err := b.fs.Stat(clean(p))
	if err != nil {
		if isNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fsworktree: stat %q: %w", p, err)
	}
	return info, true, nil
}

// Lstat implements backend.WorktreeBackend.
func (b *Backend) Lstat(_ context.Context, p string) (os.FileInfo, bool, error) {
	info, err := b.fs.Lstat(clean(p))
	if err != nil {
		if isNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("fsworktree: lstat %q: %w", p, err)
	}
	return info, true, nil
}

// ReadLink implements backend.WorktreeBackend.
func (b *Backend) ReadLink(_ context.Context, p string) (string, error) {
	target, err := b.fs.Readlink(clean(p))
	if err != nil {
		return "", fmt.Errorf("fsworktree: readlink %q: %w", p, err)
	}
	return target, nil
}

// WriteLink implements backend.WorktreeBackend.
func (b *Backend) WriteLink(_ context.Context, p, target string) error {
	cp := clean(p)
	if dir := path.Dir(cp); dir != "." && dir != "" {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("fsworktree: mkdir for symlink %q: %w", p, err)
		}
	}
	if err := b.fs.Symlink(target, cp); err != nil {
		return fmt.Errorf("fsworktree: symlink %q -> %q: %w", p, target, err)
	}
	return nil
}

// Symlink implements backend.WorktreeBackend; it is an alias for WriteLink.
func (b *Backend) Symlink(ctx context.Context, p, target string) error {
	return b.WriteLink(ctx, p, target)
}

func isNotExist(err error) bool {
	return err != nil && (os.IsNotExist(err) || strings.Contains(err.Error(), "not exist") || strings.Contains(err.Error(), "no such file"))
}
