package remote

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/backend/fsgit"
	"github.com/awesome-os/portable-git/config"
	"github.com/awesome-os/portable-git/internal/fsbridge"
)

func newMemBackend(t *testing.T) *fsgit.Backend {
	t.Helper()
	fs := memfs.New()
	storage := fsbridge.NewStorageWithDefaultCache(fs)
	_, err := gogit.Init(storage, fs)
	require.NoError(t, err)
	return fsgit.New(storage, fs, ".git")
}

type notAStorer struct{}

func (notAStorer) Gitdir(context.Context) (string, error) { return "", nil }
func (notAStorer) ObjectFormat(context.Context) (backend.ObjectFormat, error) {
	return backend.ObjectFormatSHA1, nil
}
func (notAStorer) ReadObject(context.Context, string, backend.ObjectForm) (backend.Object, error) {
	return backend.Object{}, nil
}
func (notAStorer) WriteObject(context.Context, backend.ObjectKind, []byte) (string, error) {
	return "", nil
}
func (notAStorer) HasObject(context.Context, string) (bool, error)             { return false, nil }
func (notAStorer) ResolveRef(context.Context, string) (string, error)          { return "", nil }
func (notAStorer) ExpandRef(context.Context, string) (string, error)           { return "", nil }
func (notAStorer) ReadSymbolicRef(context.Context, string) (string, error)     { return "", nil }
func (notAStorer) WriteRef(context.Context, string, string) error              { return nil }
func (notAStorer) WriteSymbolicRef(context.Context, string, string) error      { return nil }
func (notAStorer) ListRefs(context.Context, string) (map[string]string, error) { return nil, nil }
func (notAStorer) DeleteRef(context.Context, string) error                     { return nil }
func (notAStorer) AppendReflog(context.Context, string, backend.ReflogEntry) error {
	return nil
}
func (notAStorer) ReadIndex(context.Context) ([]byte, error) { return nil, nil }
func (notAStorer) WriteIndex(context.Context, []byte) error  { return nil }
func (notAStorer) GetConfig(context.Context, backend.ConfigKey) (string, bool, error) {
	return "", false, nil
}
func (notAStorer) GetAllConfig(context.Context, backend.ConfigKey) ([]string, error) {
	return nil, nil
}
func (notAStorer) SetConfig(context.Context, backend.ConfigKey, string, backend.ConfigScope, bool) error {
	return nil
}
func (notAStorer) GetConfigSubsections(context.Context, string) ([]string, error) { return nil, nil }
func (notAStorer) GetConfigSections(context.Context) ([]string, error)            { return nil, nil }
func (notAStorer) ReloadConfig(context.Context) error                              { return nil }

func TestStorageOfRejectsNonStorerBackend(t *testing.T) {
	_, err := storageOf(notAStorer{})
	require.Error(t, err)
}

func TestStorageOfAcceptsFsgitBackend(t *testing.T) {
	be := newMemBackend(t)
	storage, err := storageOf(be)
	require.NoError(t, err)
	require.NotNil(t, storage)
}

func TestBackendAuthMethodNilProvider(t *testing.T) {
	b := New(nil)
	method, err := b.authMethod("https://example.com/repo.git")
	require.NoError(t, err)
	require.Nil(t, method)
}

func TestRegistryResolveMissingRemote(t *testing.T) {
	be := newMemBackend(t)
	cfg := config.New(be)
	reg := NewRegistry(cfg, nil)

	_, _, err := reg.Resolve(context.Background(), "origin")
	require.Error(t, err)
}

func TestRegistryResolveConfiguredRemote(t *testing.T) {
	be := newMemBackend(t)
	cfg := config.New(be)
	ctx := context.Background()
	require.NoError(t, cfg.Set(ctx, backend.ConfigKey{Section: "remote", Subsection: "origin", Name: "url"},
		"https://example.com/repo.git", backend.ScopeLocal, false))

	reg := NewRegistry(cfg, nil)
	url, rb, err := reg.Resolve(ctx, "origin")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/repo.git", url)
	require.NotNil(t, rb)
}
