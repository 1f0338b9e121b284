package checkout

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/awesome-os/portable-git/backend"
)

// fakeGit is a minimal in-memory backend.GitBackend sufficient to drive
// the checkout engine's tests without any real storage.
type fakeGit struct {
	objects map[string]backend.Object
	index   []byte
}

func newFakeGit() *fakeGit {
	return &fakeGit{objects: map[string]backend.Object{}}
}

func (f *fakeGit) put(kind backend.ObjectKind, content []byte) string {
	header := fmt.Sprintf("%s %d\x00", kind.String(), len(content))
	sum := sha1.Sum(append([]byte(header), content...))
	oid := fmt.Sprintf("%x", sum)
	f.objects[oid] = backend.Object{Kind: kind, Bytes: content}
	return oid
}

func (f *fakeGit) Gitdir(context.Context) (string, error)                       { return "/repo/.git", nil }
func (f *fakeGit) ObjectFormat(context.Context) (backend.ObjectFormat, error)   { return backend.ObjectFormatSHA1, nil }
func (f *fakeGit) ReadObject(_ context.Context, oid string, form backend.ObjectForm) (backend.Object, error) {
	obj, ok := f.objects[oid]
	if !ok {
		return backend.Object{}, fmt.Errorf("fakeGit: no such object %s", oid)
	}
	return obj, nil
}
func (f *fakeGit) WriteObject(_ context.Context, kind backend.ObjectKind, content []byte) (string, error) {
	return f.put(kind, content), nil
}
func (f *fakeGit) HasObject(_ context.Context, oid string) (bool, error) {
	_, ok := f.objects[oid]
	return ok, nil
}
func (f *fakeGit) ResolveRef(context.Context, string) (string, error)        { return "", nil }
func (f *fakeGit) ExpandRef(_ context.Context, name string) (string, error)  { return name, nil }
func (f *fakeGit) ReadSymbolicRef(context.Context, string) (string, error)   { return "", nil }
func (f *fakeGit) WriteRef(context.Context, string, string) error           { return nil }
func (f *fakeGit) WriteSymbolicRef(context.Context, string, string) error   { return nil }
func (f *fakeGit) ListRefs(context.Context, string) (map[string]string, error) {
	return nil, nil
}
func (f *fakeGit) DeleteRef(context.Context, string) error { return nil }
func (f *fakeGit) AppendReflog(context.Context, string, backend.ReflogEntry) error {
	return nil
}
func (f *fakeGit) ReadIndex(context.Context) ([]byte, error) { return f.index, nil }
func (f *fakeGit) WriteIndex(_ context.Context, raw []byte) error {
	f.index = raw
	return nil
}
func (f *fakeGit) GetConfig(context.Context, backend.ConfigKey) (string, bool, error) {
	return "", false, nil
}
func (f *fakeGit) GetAllConfig(context.Context, backend.ConfigKey) ([]string, error) {
	return nil, nil
}
func (f *fakeGit) SetConfig(context.Context, backend.ConfigKey, string, backend.ConfigScope, bool) error {
	return nil
}
func (f *fakeGit) GetConfigSubsections(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeGit) GetConfigSections(context.Context) ([]string, error)            { return nil, nil }
func (f *fakeGit) ReloadConfig(context.Context) error                             { return nil }

var _ backend.GitBackend = (*fakeGit)(nil)

// fakeWorktree is a minimal in-memory backend.WorktreeBackend.
type fakeWorktree struct {
	files map[string][]byte
	dirs  map[string]bool
	links map[string]string
}

func newFakeWorktree() *fakeWorktree {
	return &fakeWorktree{files: map[string][]byte{}, dirs: map[string]bool{}, links: map[string]string{}}
}

func (w *fakeWorktree) ResolvePath(_ context.Context, p string) (backend.ResolvedPath, error) {
	return backend.ResolvedPath{Worktree: w, RelativePath: p}, nil
}
func (w *fakeWorktree) Root(context.Context) (string, error) { return "/repo", nil }
func (w *fakeWorktree) Read(_ context.Context, p string) ([]byte, bool, error) {
	b, ok := w.files[p]
	return b, ok, nil
}
func (w *fakeWorktree) Write(_ context.Context, p string, content []byte, _ bool) error {
	w.files[p] = content
	return nil
}
func (w *fakeWorktree) ReadDir(context.Context, string) ([]backend.DirEntry, bool, error) {
	return nil, false, nil
}
func (w *fakeWorktree) ReadDirDeep(context.Context, string) ([]string, error) { return nil, nil }
func (w *fakeWorktree) Mkdir(_ context.Context, p string) error {
	w.dirs[p] = true
	return nil
}
func (w *fakeWorktree) Rmdir(_ context.Context, p string) error {
	delete(w.dirs, p)
	return nil
}
func (w *fakeWorktree) Remove(_ context.Context, p string) error {
	delete(w.files, p)
	delete(w.links, p)
	return nil
}
func (w *fakeWorktree) Stat(_ context.Context, p string) (os.FileInfo, bool, error) {
	if _, ok := w.files[p]; ok {
		return fakeFileInfo{name: p}, true, nil
	}
	if _, ok := w.links[p]; ok {
		return fakeFileInfo{name: p}, true, nil
	}
	return nil, false, nil
}
func (w *fakeWorktree) Lstat(ctx context.Context, p string) (os.FileInfo, bool, error) {
	return w.Stat(ctx, p)
}
func (w *fakeWorktree) ReadLink(_ context.Context, p string) (string, error) {
	return w.links[p], nil
}
func (w *fakeWorktree) WriteLink(_ context.Context, p, target string) error {
	w.links[p] = target
	return nil
}
func (w *fakeWorktree) Symlink(ctx context.Context, p, target string) error {
	return w.WriteLink(ctx, p, target)
}

var _ backend.WorktreeBackend = (*fakeWorktree)(nil)

type fakeFileInfo struct{ name string }

func (i fakeFileInfo) Name() string       { return i.name }
func (i fakeFileInfo) Size() int64        { return 0 }
func (i fakeFileInfo) Mode() os.FileMode  { return 0o644 }
func (i fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (i fakeFileInfo) IsDir() bool        { return strings.HasSuffix(i.name, "/") }
func (i fakeFileInfo) Sys() any           { return nil }
