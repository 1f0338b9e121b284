package remote

import (
	"context"
	"fmt"

	portablegit "github.com/awesome-os/portable-git"
	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/config"
	"github.com/awesome-os/portable-git/internal/auth"
)

// Registry resolves remote.<name>.url from a configuration Service
// against a single shared auth.Provider, handing back a go-git-backed
// RemoteBackend for every configured remote. Build authProvider as a
// auth.NewCompositeAuthProvider with per-host providers added, or a
// single HTTPSAuthProvider/SSHAuthProvider when only one transport is
// ever used.
type Registry struct {
	cfg  *config.Service
	auth auth.Provider
}

// NewRegistry builds a Registry that resolves remotes from cfg and
// authenticates every transport operation via authProvider.
func NewRegistry(cfg *config.Service, authProvider auth.Provider) *Registry {
	return &Registry{cfg: cfg, auth: authProvider}
}

var _ portablegit.RemoteRegistry = (*Registry)(nil)

// Resolve implements git.RemoteRegistry.
func (reg *Registry) Resolve(ctx context.Context, name string) (string, portablegit.RemoteBackend, error) {
	url, ok, err := reg.cfg.Get(ctx, backend.ConfigKey{Section: "remote", Subsection: name, Name: "url"})
	if err != nil {
		return "", nil, fmt.Errorf("remote: read remote.%s.url: %w", name, err)
	}
	if !ok || url == "" {
		return "", nil, fmt.Errorf("remote: no url configured for remote %q", name)
	}
	return url, New(reg.auth), nil
}
