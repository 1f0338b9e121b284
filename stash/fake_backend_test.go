package stash

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/awesome-os/portable-git/backend"
)

// fakeGit is a minimal in-memory backend.GitBackend, extended with the
// reflogReader/reflogWriter capability interfaces so List/Apply/Drop
// exercise their full-stack path rather than the single-entry fallback.
type fakeGit struct {
	objects map[string]backend.Object
	refs    map[string]string
	index   []byte
	config  map[string]string
	reflogs map[string][]backend.ReflogEntry // newest-first, per key
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		objects: map[string]backend.Object{},
		refs:    map[string]string{},
		config:  map[string]string{},
		reflogs: map[string][]backend.ReflogEntry{},
	}
}

func (f *fakeGit) put(kind backend.ObjectKind, content []byte) string {
	header := fmt.Sprintf("%s %d\x00", kind.String(), len(content))
	sum := sha1.Sum(append([]byte(header), content...))
	oid := fmt.Sprintf("%x", sum)
	f.objects[oid] = backend.Object{Kind: kind, Bytes: content}
	return oid
}

func (f *fakeGit) Gitdir(context.Context) (string, error) { return "/repo/.git", nil }
func (f *fakeGit) ObjectFormat(context.Context) (backend.ObjectFormat, error) {
	return backend.ObjectFormatSHA1, nil
}
func (f *fakeGit) ReadObject(_ context.Context, oid string, _ backend.ObjectForm) (backend.Object, error) {
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
func (f *fakeGit) ResolveRef(_ context.Context, name string) (string, error) {
	return f.refs[name], nil
}
func (f *fakeGit) ExpandRef(_ context.Context, name string) (string, error) { return name, nil }
func (f *fakeGit) ReadSymbolicRef(context.Context, string) (string, error)  { return "", nil }
func (f *fakeGit) WriteRef(_ context.Context, name, oid string) error {
	f.refs[name] = oid
	return nil
}
func (f *fakeGit) WriteSymbolicRef(context.Context, string, string) error { return nil }
func (f *fakeGit) ListRefs(context.Context, string) (map[string]string, error) {
	return nil, nil
}
func (f *fakeGit) DeleteRef(_ context.Context, name string) error {
	delete(f.refs, name)
	return nil
}
func (f *fakeGit) AppendReflog(_ context.Context, name string, entry backend.ReflogEntry) error {
	f.reflogs[name] = append([]backend.ReflogEntry{entry}, f.reflogs[name]...)
	return nil
}
func (f *fakeGit) ReadReflog(_ context.Context, name string) ([]backend.ReflogEntry, error) {
	return append([]backend.ReflogEntry{}, f.reflogs[name]...), nil
}
func (f *fakeGit) WriteReflog(_ context.Context, name string, entries []backend.ReflogEntry) error {
	f.reflogs[name] = append([]backend.ReflogEntry{}, entries...)
	return nil
}
func (f *fakeGit) ReadIndex(context.Context) ([]byte, error) { return f.index, nil }
func (f *fakeGit) WriteIndex(_ context.Context, raw []byte) error {
	f.index = raw
	return nil
}
func (f *fakeGit) GetConfig(_ context.Context, key backend.ConfigKey) (string, bool, error) {
	v, ok := f.config[key.Section+"."+key.Name]
	return v, ok, nil
}
func (f *fakeGit) GetAllConfig(context.Context, backend.ConfigKey) ([]string, error) {
	return nil, nil
}
func (f *fakeGit) SetConfig(_ context.Context, key backend.ConfigKey, value string, _ backend.ConfigScope, _ bool) error {
	f.config[key.Section+"."+key.Name] = value
	return nil
}
func (f *fakeGit) GetConfigSubsections(context.Context, string) ([]string, error) { return nil, nil }
func (f *fakeGit) GetConfigSections(context.Context) ([]string, error)            { return nil, nil }
func (f *fakeGit) ReloadConfig(context.Context) error                             { return nil }

var (
	_ backend.GitBackend = (*fakeGit)(nil)
	_ reflogReader       = (*fakeGit)(nil)
	_ reflogWriter       = (*fakeGit)(nil)
)

type fakeWorktree struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newFakeWorktree() *fakeWorktree {
	return &fakeWorktree{files: map[string][]byte{}, dirs: map[string]bool{}}
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
	return nil
}
func (w *fakeWorktree) Stat(_ context.Context, p string) (os.FileInfo, bool, error) {
	if _, ok := w.files[p]; ok {
		return fakeFileInfo{name: p}, true, nil
	}
	return nil, false, nil
}
func (w *fakeWorktree) Lstat(ctx context.Context, p string) (os.FileInfo, bool, error) {
	return w.Stat(ctx, p)
}
func (w *fakeWorktree) ReadLink(context.Context, string) (string, error)       { return "", nil }
func (w *fakeWorktree) WriteLink(_ context.Context, p, target string) error {
	w.files[p] = []byte(target)
	return nil
}
func (w *fakeWorktree) Symlink(ctx context.Context, p, target string) error {
	return w.WriteLink(ctx, p, target)
}

var _ backend.WorktreeBackend = (*fakeWorktree)(nil)

type fakeFileInfo struct{ name string }

func (i fakeFileInfo) Name() string       { return i.name }
func (i fakeFileInfo) Size() int64        { return 7 }
func (i fakeFileInfo) Mode() os.FileMode  { return 0o644 }
func (i fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (i fakeFileInfo) IsDir() bool        { return strings.HasSuffix(i.name, "/") }
func (i fakeFileInfo) Sys() any           { return nil }
