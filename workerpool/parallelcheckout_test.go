package workerpool

import (
	"context"
	"crypto/sha1"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/objparse"
	"github.com/awesome-os/portable-git/sparse"
)

// fakeGit is a minimal in-memory backend.GitBackend; only the subset
// the coordinator and workers exercise is implemented.
type fakeGit struct {
	objects map[string]backend.Object
	index   []byte
}

func newFakeGit() *fakeGit { return &fakeGit{objects: map[string]backend.Object{}} }

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
func (f *fakeGit) ResolveRef(context.Context, string) (string, error)       { return "", nil }
func (f *fakeGit) ExpandRef(_ context.Context, name string) (string, error) { return name, nil }
func (f *fakeGit) ReadSymbolicRef(context.Context, string) (string, error)  { return "", nil }
func (f *fakeGit) WriteRef(context.Context, string, string) error          { return nil }
func (f *fakeGit) WriteSymbolicRef(context.Context, string, string) error  { return nil }
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
func (w *fakeWorktree) ReadLink(context.Context, string) (string, error) { return "", nil }
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

func buildTwoDirTree(t *testing.T, git *fakeGit) string {
	t.Helper()
	aOID := git.put(backend.ObjectBlob, []byte("a content\n"))
	bOID := git.put(backend.ObjectBlob, []byte("b content\n"))

	subA, err := objparse.EncodeTree([]objparse.TreeEntry{{Mode: "100644", Name: "file.txt", OID: aOID}})
	require.NoError(t, err)
	subAOID := git.put(backend.ObjectTree, subA)

	subB, err := objparse.EncodeTree([]objparse.TreeEntry{{Mode: "100644", Name: "file.txt", OID: bOID}})
	require.NoError(t, err)
	subBOID := git.put(backend.ObjectTree, subB)

	root, err := objparse.EncodeTree([]objparse.TreeEntry{
		{Mode: "40000", Name: "dira", OID: subAOID},
		{Mode: "40000", Name: "dirb", OID: subBOID},
	})
	require.NoError(t, err)
	return git.put(backend.ObjectTree, root)
}

func TestDiscoverTasksGroupsByDirectory(t *testing.T) {
	git := newFakeGit()
	treeOID := buildTwoDirTree(t, git)
	m := sparse.New(nil, false)

	tasks, err := DiscoverTasks(context.Background(), git, treeOID, m, false, 20)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "dira", tasks[0].DirectoryPath)
	assert.Equal(t, "dirb", tasks[1].DirectoryPath)
	assert.Equal(t, "dira/file.txt", tasks[0].Files[0].Path)
}

func TestParallelCheckoutRunMergesEntriesIntoIndex(t *testing.T) {
	coordinatorGit := newFakeGit()
	treeOID := buildTwoDirTree(t, coordinatorGit)
	m := sparse.New(nil, false)

	worktrees := map[int]*fakeWorktree{}
	pc := &ParallelCheckout{
		Pool:           New(2),
		CoordinatorGit: coordinatorGit,
		Handles: func(workerID int) (backend.GitBackend, backend.WorktreeBackend, error) {
			wt, ok := worktrees[workerID]
			if !ok {
				wt = newFakeWorktree()
				worktrees[workerID] = wt
			}
			return coordinatorGit, wt, nil
		},
	}

	entries, err := pc.Run(context.Background(), treeOID, m, false, backend.ObjectFormatSHA1)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	raw, err := coordinatorGit.ReadIndex(context.Background())
	require.NoError(t, err)
	decoded, err := objparse.DecodeIndexV2(raw, 20)
	require.NoError(t, err)
	assert.Len(t, decoded, 2)

	var sawA, sawB bool
	for _, wt := range worktrees {
		if _, ok := wt.files["dira/file.txt"]; ok {
			sawA = true
		}
		if _, ok := wt.files["dirb/file.txt"]; ok {
			sawB = true
		}
	}
	assert.True(t, sawA)
	assert.True(t, sawB)
}

func TestParallelCheckoutRunWithNoTasksIsNoop(t *testing.T) {
	coordinatorGit := newFakeGit()
	empty, err := objparse.EncodeTree(nil)
	require.NoError(t, err)
	treeOID := coordinatorGit.put(backend.ObjectTree, empty)
	m := sparse.New(nil, false)

	pc := &ParallelCheckout{
		Pool:           New(2),
		CoordinatorGit: coordinatorGit,
		Handles: func(workerID int) (backend.GitBackend, backend.WorktreeBackend, error) {
			return coordinatorGit, newFakeWorktree(), nil
		},
	}

	entries, err := pc.Run(context.Background(), treeOID, m, false, backend.ObjectFormatSHA1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
