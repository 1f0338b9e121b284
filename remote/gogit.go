// Package remote implements git.RemoteBackend and git.RemoteRegistry on
// top of go-git's own transport and packfile machinery, so fetch/push
// reuse go-git's proven smart-HTTP and SSH clients instead of this
// module reimplementing wire-protocol negotiation. It hands go-git the
// exact storage.Storer a fsgit.Backend already reads and writes
// through the opaque backend.GitBackend contract, so objects a fetch
// downloads are immediately visible to the rest of the module without
// any re-parsing of packfiles here.
package remote

import (
	"context"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/internal/auth"
)

// storer is satisfied by GitBackend implementations that expose the
// underlying go-git storage directly (fsgit.Backend does).
type storer interface {
	Storage() *filesystem.Storage
}

const (
	tempFetchHeads = "refs/__portable_fetch__/heads/"
	tempPushRef    = "refs/__portable_push__/tmp"
)

// Backend implements git.RemoteBackend, authenticating every operation
// via a single auth.Provider (an internal/auth.CompositeAuthProvider
// wiring multiple URL patterns is the common case).
type Backend struct {
	Auth auth.Provider
}

// New builds a Backend that authenticates transport operations via
// authProvider. A nil authProvider means anonymous/unauthenticated
// transport only.
func New(authProvider auth.Provider) *Backend {
	return &Backend{Auth: authProvider}
}

func (b *Backend) authMethod(url string) (transport.AuthMethod, error) {
	if b.Auth == nil {
		return nil, nil
	}
	method, err := b.Auth.Method(url)
	if err != nil {
		return nil, fmt.Errorf("remote: resolve auth for %s: %w", url, err)
	}
	return method, nil
}

func storageOf(git backend.GitBackend) (*filesystem.Storage, error) {
	s, ok := git.(storer)
	if !ok {
		return nil, fmt.Errorf("remote: backend %T does not expose go-git storage", git)
	}
	return s.Storage(), nil
}

func openAnonymous(storage *filesystem.Storage, url string) (*gogit.Repository, *gogit.Remote, error) {
	repo, err := gogit.Open(storage, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("remote: open repository: %w", err)
	}
	rem, err := repo.CreateRemoteAnonymous(&config.RemoteConfig{Name: "anonymous", URLs: []string{url}})
	if err != nil {
		return nil, nil, fmt.Errorf("remote: create anonymous remote for %s: %w", url, err)
	}
	return repo, rem, nil
}

// Fetch implements git.RemoteBackend. It fetches refs/heads/* into a
// scratch namespace (so it never collides with the caller's own local
// branches) and refs/tags/* directly, then reports every advertised
// name it received, removing the scratch namespace afterward.
func (b *Backend) Fetch(ctx context.Context, git backend.GitBackend, url string, depth int) (map[string]string, error) {
	storage, err := storageOf(git)
	if err != nil {
		return nil, err
	}
	_, rem, err := openAnonymous(storage, url)
	if err != nil {
		return nil, err
	}
	authMethod, err := b.authMethod(url)
	if err != nil {
		return nil, err
	}

	err = rem.FetchContext(ctx, &gogit.FetchOptions{
		RefSpecs: []config.RefSpec{
			config.RefSpec("+refs/heads/*:" + tempFetchHeads + "*"),
			config.RefSpec("+refs/tags/*:refs/tags/*"),
		},
		Auth:  authMethod,
		Depth: depth,
		Tags:  gogit.AllTags,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return nil, fmt.Errorf("remote: fetch %s: %w", url, err)
	}

	advertised := map[string]string{}
	var scratch []plumbing.ReferenceName
	iter, err := storage.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("remote: iterate references: %w", err)
	}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		switch {
		case strings.HasPrefix(name, tempFetchHeads):
			branch := strings.TrimPrefix(name, tempFetchHeads)
			advertised["refs/heads/"+branch] = ref.Hash().String()
			scratch = append(scratch, ref.Name())
		case strings.HasPrefix(name, "refs/tags/"):
			advertised[name] = ref.Hash().String()
		}
		return nil
	})
	iter.Close()
	if err != nil {
		return nil, fmt.Errorf("remote: read fetched references: %w", err)
	}
	for _, name := range scratch {
		_ = storage.RemoveReference(name)
	}
	return advertised, nil
}

// Push implements git.RemoteBackend. It stages localOID under a scratch
// ref (go-git's refspecs need a ref source, not a bare hash) so the
// push can name it as the source side of the refspec, then removes the
// scratch ref once the push completes.
func (b *Backend) Push(ctx context.Context, git backend.GitBackend, url, remoteRef, localOID string, force bool) error {
	storage, err := storageOf(git)
	if err != nil {
		return err
	}

	staged := plumbing.NewHashReference(plumbing.ReferenceName(tempPushRef), plumbing.NewHash(localOID))
	if err := storage.SetReference(staged); err != nil {
		return fmt.Errorf("remote: stage push source: %w", err)
	}
	defer storage.RemoveReference(staged.Name())

	_, rem, err := openAnonymous(storage, url)
	if err != nil {
		return err
	}
	authMethod, err := b.authMethod(url)
	if err != nil {
		return err
	}

	spec := tempPushRef + ":" + remoteRef
	if force {
		spec = "+" + spec
	}
	err = rem.PushContext(ctx, &gogit.PushOptions{
		RefSpecs: []config.RefSpec{config.RefSpec(spec)},
		Auth:     authMethod,
		Force:    force,
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("remote: push %s to %s: %w", remoteRef, url, err)
	}
	return nil
}
