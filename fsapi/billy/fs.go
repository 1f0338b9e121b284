package billy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	parentfs "github.com/awesome-os/portable-git/fsapi"
)

// errSymlinkUnsupported is returned when the underlying go-billy
// filesystem does not implement the optional billy.Symlink capability.
var errSymlinkUnsupported = errors.New("billy: filesystem does not support symlinks")

// FS implements the Filesystem interface using go-billy.
type FS struct {
	fs billy.Filesystem
}

// BillyFs is an alias for FS for backward compatibility.
//
//nolint:revive // public alias name kept for compatibility with older imports.
type BillyFs = FS

// Create implements Filesystem.Create.
//
//nolint:ireturn // API returns the fs.File interface by design for flexibility.
func (b *FS) Create(name string) (parentfs.File, error) {
	f, err := b.fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("billy: create %q: %w", name, err)
	}
	return &File{
		file: f,
		fs:   b,
	}, nil
}

// Exists implements Filesystem.Exists.
func (b *FS) Exists(path string) (bool, error) {
	_, err := b.fs.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, fmt.Errorf("billy: stat %q: %w", path, err)
	}
}

// MkdirAll implements Filesystem.MkdirAll.
func (b *FS) MkdirAll(path string, perm os.FileMode) error {
	if err := b.fs.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("billy: mkdirall %q: %w", path, err)
	}
	return nil
}

// Open implements Filesystem.Open.
//
//nolint:ireturn // API returns the fs.File interface by design for flexibility.
func (b *FS) Open(name string) (parentfs.File, error) {
	f, err := b.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("billy: open %q: %w", name, err)
	}
	return &File{
		file: f,
		fs:   b,
	}, nil
}

// OpenFile implements Filesystem.OpenFile.
//
//nolint:ireturn // API returns the fs.File interface by design for flexibility.
func (b *FS) OpenFile(name string, flag int, perm os.FileMode) (parentfs.File, error) {
	f, err := b.fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, fmt.Errorf("billy: openfile %q: %w", name, err)
	}
	return &File{
		file: f,
		fs:   b,
	}, nil
}

// ReadDir implements Filesystem.ReadDir.
func (b *FS) ReadDir(dirname string) ([]os.FileInfo, error) {
	list, err := b.fs.ReadDir(dirname)
	if err != nil {
		return nil, fmt.Errorf("billy: readdir %q: %w", dirname, err)
	}
	return list, nil
}

// ReadFile implements Filesystem.ReadFile.
func (b *FS) ReadFile(path string) ([]byte, error) {
	bts, err := util.ReadFile(b.fs, path)
	if err != nil {
		return nil, fmt.Errorf("billy: readfile %q: %w", path, err)
	}
	return bts, nil
}

// Remove implements Filesystem.Remove.
func (b *FS) Remove(name string) error {
	if err := b.fs.Remove(name); err != nil {
		return fmt.Errorf("billy: remove %q: %w", name, err)
	}
	return nil
}

// Stat implements Filesystem.Stat.
func (b *FS) Stat(name string) (os.FileInfo, error) {
	info, err := b.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("billy: stat %q: %w", name, err)
	}
	return info, nil
}

// Lstat implements Filesystem.Lstat. It does not follow a symlink at
// name, falling back to Stat when the underlying go-billy filesystem
// does not implement the optional billy.Symlink capability.
func (b *FS) Lstat(name string) (os.FileInfo, error) {
	symFS, ok := b.fs.(billy.Symlink)
	if !ok {
		return b.Stat(name)
	}
	info, err := symFS.Lstat(name)
	if err != nil {
		return nil, fmt.Errorf("billy: lstat %q: %w", name, err)
	}
	return info, nil
}

// TempDir implements Filesystem.TempDir.
func (b *FS) TempDir(dir, prefix string) (name string, err error) {
	name, err = util.TempDir(b.fs, dir, prefix)
	if err != nil {
		return "", fmt.Errorf("billy: tempdir dir=%q prefix=%q: %w", dir, prefix, err)
	}
	return name, nil
}

// Walk implements Filesystem.Walk.
func (b *FS) Walk(root string, walkFn filepath.WalkFunc) error {
	if err := util.Walk(b.fs, root, walkFn); err != nil {
		return fmt.Errorf("billy: walk %q: %w", root, err)
	}
	return nil
}

// WriteFile implements Filesystem.WriteFile.
func (b *FS) WriteFile(filename string, data []byte, perm os.FileMode) error {
	if err := util.WriteFile(b.fs, filename, data, perm); err != nil {
		return fmt.Errorf("billy: writefile %q: %w", filename, err)
	}
	return nil
}

// Rename implements Filesystem.Rename.
func (b *FS) Rename(oldname, newname string) error {
	if err := b.fs.Rename(oldname, newname); err != nil {
		return fmt.Errorf("billy: rename %q -> %q: %w", oldname, newname, err)
	}
	return nil
}

// RemoveAll implements Filesystem.RemoveAll. It removes path and any
// children it contains, ignoring a missing path.
func (b *FS) RemoveAll(path string) error {
	if err := util.RemoveAll(b.fs, path); err != nil {
		return fmt.Errorf("billy: removeall %q: %w", path, err)
	}
	return nil
}

// Symlink implements Filesystem.Symlink. It returns an error when the
// underlying go-billy filesystem does not support symbolic links (for
// example in-memory filesystems on some platforms); callers are expected
// to fall back to writing the link target as a regular file.
func (b *FS) Symlink(target, link string) error {
	symFS, ok := b.fs.(billy.Symlink)
	if !ok {
		return fmt.Errorf("billy: symlink %q -> %q: %w", link, target, errSymlinkUnsupported)
	}
	if err := symFS.Symlink(target, link); err != nil {
		return fmt.Errorf("billy: symlink %q -> %q: %w", link, target, err)
	}
	return nil
}

// Readlink returns the target of a symbolic link, if the underlying
// filesystem supports it.
func (b *FS) Readlink(link string) (string, error) {
	symFS, ok := b.fs.(billy.Symlink)
	if !ok {
		return "", fmt.Errorf("billy: readlink %q: %w", link, errSymlinkUnsupported)
	}
	target, err := symFS.Readlink(link)
	if err != nil {
		return "", fmt.Errorf("billy: readlink %q: %w", link, err)
	}
	return target, nil
}

// GetAbs returns path joined onto the filesystem root. Paths in this
// abstraction are always repo-root-relative, so this is a pure join
// rather than an OS absolute-path lookup.
func (b *FS) GetAbs(path string) (string, error) {
	return filepath.Join(b.Root(), path), nil
}

// Root returns the root directory the underlying go-billy filesystem is
// scoped to.
func (b *FS) Root() string {
	return b.fs.Root()
}

// Raw returns the underlying go-billy filesystem.
//
//nolint:ireturn // returning interface here is intentional to expose the adapter target.
func (b *FS) Raw() billy.Filesystem {
	return b.fs
}

// NewFS creates a new FS using the given go-billy filesystem.
func NewFS(fsys billy.Filesystem) *FS {
	return &FS{
		fs: fsys,
	}
}

// NewFs is kept for backward compatibility. Prefer NewFS.
func NewFs(fsys billy.Filesystem) *FS { return NewFS(fsys) }

// NewInMemoryFS creates a new in-memory filesystem.
func NewInMemoryFS() *FS {
	return &FS{
		fs: memfs.New(),
	}
}

// NewInMemoryFs is kept for backward compatibility. Prefer NewInMemoryFS.
func NewInMemoryFs() *FS { return NewInMemoryFS() }

// NewOSFS creates a new OS filesystem.
func NewOSFS(path string) *FS {
	return &FS{
		fs: osfs.New(path),
	}
}

// NewOsFs is kept for backward compatibility. Prefer NewOSFS.
func NewOsFs(path string) *FS { return NewOSFS(path) }
