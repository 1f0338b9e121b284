package fsapi

import (
	"os"
	"path/filepath"
)

// Filesystem is the native filesystem capability object the core consumes.
// It mirrors the environment contract of a portable Git implementation:
// every path is repo-root-relative and POSIX-normalized with forward
// slashes before it reaches an implementation.
//
// Implementations provided in this module: billy.FS (OS-backed and
// in-memory, via go-billy). Alternative implementations (blob storage,
// IndexedDB, SQL-backed) satisfy the same interface.
type Filesystem interface {
	Create(name string) (File, error)
	Open(name string) (File, error)
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
	ReadDir(dirname string) ([]os.FileInfo, error)
	Exists(path string) (bool, error)
	Stat(name string) (os.FileInfo, error)
	Lstat(name string) (os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldname, newname string) error
	Symlink(target, link string) error
	Readlink(link string) (string, error)
	GetAbs(path string) (string, error)
	TempDir(dir, prefix string) (string, error)
	Walk(root string, walkFn filepath.WalkFunc) error
}
