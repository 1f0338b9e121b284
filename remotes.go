package git

import (
	"context"
	"errors"
	"fmt"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/checkout"
	"github.com/awesome-os/portable-git/objparse"
)

// ErrRemoteNotConfigured is returned by Fetch/Push/Pull when no
// RemoteRegistry was supplied in Options.
var ErrRemoteNotConfigured = errors.New("remote not configured")

// RemoteBackend is the typed collaborator a network transport
// implementation satisfies to give a Repository fetch/push access
// without this package importing go-git's transport machinery
// directly. The default implementation, built on go-git's smart-HTTP
// and SSH transports plus internal/auth, lives in the sibling remote
// package.
type RemoteBackend interface {
	// Fetch downloads objects reachable from url's refs into git and
	// returns the advertised refs (name -> OID) it received, so the
	// caller can update refs/remotes/<name>/* itself. depth<=0 means an
	// unshallowed fetch.
	Fetch(ctx context.Context, git backend.GitBackend, url string, depth int) (map[string]string, error)

	// Push uploads the object closure of localOID to url and requests
	// remoteRef be updated to point at it. force allows a non-fast-forward
	// update.
	Push(ctx context.Context, git backend.GitBackend, url, remoteRef, localOID string, force bool) error
}

// RemoteRegistry resolves a configured remote name to the URL and
// RemoteBackend that can reach it. Options.RemoteRegistry supplies the
// implementation a Repository uses; this package never constructs one
// itself.
type RemoteRegistry interface {
	Resolve(ctx context.Context, name string) (url string, backend RemoteBackend, err error)
}

func (r *Repo) resolveRemote(ctx context.Context, name string) (string, RemoteBackend, error) {
	if r.remotes == nil {
		return "", nil, ErrRemoteNotConfigured
	}
	url, be, err := r.remotes.Resolve(ctx, name)
	if err != nil {
		return "", nil, fmt.Errorf("resolve remote %q: %w", name, err)
	}
	if be == nil {
		return "", nil, ErrRemoteNotConfigured
	}
	return url, be, nil
}

// Fetch downloads refs/objects from the named remote and records
// branches under refs/remotes/<name>/* and tags under refs/tags/*.
// depth<=0 means unshallowed.
func (r *Repo) Fetch(ctx context.Context, remoteName string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	url, be, err := r.resolveRemote(ctx, remoteName)
	if err != nil {
		return err
	}

	refs, err := be.Fetch(ctx, r.git, url, depth)
	if err != nil {
		return WrapErrorf(err, "fetch %q", remoteName)
	}

	for name, oid := range refs {
		local := refName(remoteName, name)
		if err := r.git.WriteRef(ctx, local, oid); err != nil {
			return WrapErrorf(err, "write %s", local)
		}
	}
	r.logger().Info("fetch complete", "remote", remoteName, "refs", len(refs))
	return nil
}

// refName maps an advertised ref (refs/heads/<b>, refs/tags/<t>) to its
// local tracking location, leaving anything already under refs/ alone
// for tags and mapping branches under refs/remotes/<name>/.
func refName(remoteName, advertised string) string {
	const headsPrefix = "refs/heads/"
	if hasPrefix(advertised, headsPrefix) {
		return "refs/remotes/" + remoteName + "/" + advertised[len(headsPrefix):]
	}
	return advertised
}

// Push uploads the current branch's tip to remoteName.
func (r *Repo) Push(ctx context.Context, remoteName string, force bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	oid, err := r.git.ResolveRef(ctx, "refs/heads/"+branch)
	if err != nil {
		return WrapErrorf(err, "resolve local branch %q", branch)
	}

	url, be, err := r.resolveRemote(ctx, remoteName)
	if err != nil {
		return err
	}

	remoteRef := "refs/heads/" + branch
	if err := be.Push(ctx, r.git, url, remoteRef, oid, force); err != nil {
		return WrapErrorf(err, "push %q to %q", branch, remoteName)
	}

	local := refName(remoteName, remoteRef)
	if err := r.git.WriteRef(ctx, local, oid); err != nil {
		return WrapErrorf(err, "update %s", local)
	}
	r.logger().Info("push complete", "remote", remoteName, "branch", branch)
	return nil
}

// PullFFOnly fetches remoteName and fast-forwards the current branch to
// the fetched tip, failing with ErrNotFastForward if the local tip is
// not an ancestor of the remote one.
func (r *Repo) PullFFOnly(ctx context.Context, remoteName string) error {
	return r.FetchAndMerge(ctx, remoteName, FastForwardOnly)
}

// FetchAndMerge fetches remoteName, then integrates the result into the
// current branch using strategy. Only FastForwardOnly is implemented;
// any other value returns an *InvalidParameterError for "strategy".
func (r *Repo) FetchAndMerge(ctx context.Context, remoteName string, strategy MergeStrategy) error {
	if strategy != FastForwardOnly {
		return &InvalidParameterError{Name: "strategy", Reason: "only FastForwardOnly is supported"}
	}
	if err := r.Fetch(ctx, remoteName, 0); err != nil {
		return err
	}

	branch, err := r.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	localRef := "refs/heads/" + branch
	remoteRef := "refs/remotes/" + remoteName + "/" + branch

	localOID, _ := r.git.ResolveRef(ctx, localRef)
	remoteOID, err := r.git.ResolveRef(ctx, remoteRef)
	if err != nil {
		return WrapErrorf(err, "resolve %s", remoteRef)
	}
	if localOID == remoteOID {
		return ErrAlreadyUpToDate
	}

	if localOID != "" {
		ancestor, err := r.isAncestor(ctx, localOID, remoteOID)
		if err != nil {
			return err
		}
		if !ancestor {
			return WrapErrorf(ErrNotFastForward, "local %s is not an ancestor of %s", localRef, remoteRef)
		}
	}

	if err := r.git.WriteRef(ctx, localRef, remoteOID); err != nil {
		return WrapErrorf(err, "fast-forward %s", localRef)
	}

	if r.wt != nil {
		if err := r.checkoutTreeOf(ctx, remoteOID, true); err != nil {
			return WrapError(err, "update worktree after fast-forward")
		}
	}
	r.logger().Info("fast-forward merge complete", "remote", remoteName, "branch", branch)
	return nil
}

// isAncestor walks commit ancestry from descendant back towards the
// root, breadth-first, looking for ancestor. It is bounded only by the
// repository's own history; a very long history walks its full depth
// in the worst case (no commit-graph acceleration is implemented).
func (r *Repo) isAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	seen := map[string]bool{}
	queue := []string{descendant}
	for len(queue) > 0 {
		oid := queue[0]
		queue = queue[1:]
		if seen[oid] {
			continue
		}
		seen[oid] = true
		if oid == ancestor {
			return true, nil
		}
		obj, err := r.git.ReadObject(ctx, oid, backend.FormContent)
		if err != nil {
			return false, fmt.Errorf("read commit %s: %w", oid, err)
		}
		c, err := objparse.DecodeCommit(obj.Bytes)
		if err != nil {
			return false, fmt.Errorf("decode commit %s: %w", oid, err)
		}
		queue = append(queue, c.Parents...)
	}
	return false, nil
}

// checkoutTreeOf updates the worktree and index to match the tree of
// commit oid, forcing overwrites when force is true.
func (r *Repo) checkoutTreeOf(ctx context.Context, oid string, force bool) error {
	obj, err := r.git.ReadObject(ctx, oid, backend.FormContent)
	if err != nil {
		return fmt.Errorf("read commit %s: %w", oid, err)
	}
	c, err := objparse.DecodeCommit(obj.Bytes)
	if err != nil {
		return fmt.Errorf("decode commit %s: %w", oid, err)
	}
	idx, err := r.readCheckoutIndex(ctx)
	if err != nil {
		return err
	}
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return err
	}
	ops, err := checkout.Analyze(ctx, r.git, r.wt, c.Tree, idx, checkout.Options{Force: force, ObjectFormat: format})
	if err != nil {
		return err
	}
	_, err = checkout.Execute(ctx, r.git, r.wt, ops, format)
	return err
}
