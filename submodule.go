package git

import (
	"context"
	"fmt"
	"strings"

	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/backend/fsworktree"
	fsb "github.com/awesome-os/portable-git/fsapi/billy"
	"github.com/awesome-os/portable-git/internal/fsbridge"
	"github.com/awesome-os/portable-git/objparse"
)

const gitlinkMode = "160000"

// SubmoduleInfo describes one gitlink entry at HEAD, cross-referenced
// with its declaration in .gitmodules.
type SubmoduleInfo struct {
	// Path is the repo-root-relative path the gitlink occupies.
	Path string
	// URL is the submodule's configured remote, from .gitmodules.
	URL string
	// Branch is the submodule's tracked branch, if .gitmodules declares
	// one ("submodule.<name>.branch").
	Branch string
	// OID is the commit the superproject's tree pins this submodule to.
	OID string
}

// Submodules lists every gitlink entry reachable from HEAD's tree,
// cross-referenced with their .gitmodules declaration. A gitlink with
// no matching .gitmodules entry is still reported, with URL/Branch left
// empty.
func (r *Repo) Submodules(ctx context.Context) ([]SubmoduleInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	decls, err := r.readGitmodules(ctx)
	if err != nil {
		return nil, err
	}

	headOID, err := r.git.ResolveRef(ctx, "HEAD")
	if err != nil || headOID == "" {
		return nil, nil
	}
	treeOID, err := r.commitTree(ctx, headOID)
	if err != nil {
		return nil, err
	}
	gitlinks, err := r.findGitlinks(ctx, treeOID, "")
	if err != nil {
		return nil, err
	}

	out := make([]SubmoduleInfo, 0, len(gitlinks))
	for path, oid := range gitlinks {
		info := SubmoduleInfo{Path: path, OID: oid}
		if d, ok := decls[path]; ok {
			info.URL = d.url
			info.Branch = d.branch
		}
		out = append(out, info)
	}
	return out, nil
}

// Submodule returns the SubmoduleInfo for a single path, or
// ErrNotFound-shaped error if path is not a gitlink at HEAD.
func (r *Repo) Submodule(ctx context.Context, path string) (SubmoduleInfo, error) {
	all, err := r.Submodules(ctx)
	if err != nil {
		return SubmoduleInfo{}, err
	}
	for _, s := range all {
		if s.Path == path {
			return s, nil
		}
	}
	return SubmoduleInfo{}, &NotFoundError{What: fmt.Sprintf("submodule %q", path)}
}

type submoduleDecl struct {
	url    string
	branch string
}

// readGitmodules parses the worktree's .gitmodules file, keyed by
// submodule path (the section's "path" value, not its subsection name).
func (r *Repo) readGitmodules(ctx context.Context) (map[string]submoduleDecl, error) {
	if err := r.requireWorktree(); err != nil {
		return nil, nil
	}
	content, ok, err := r.wt.Read(ctx, ".gitmodules")
	if err != nil {
		return nil, WrapError(err, "read .gitmodules")
	}
	if !ok {
		return nil, nil
	}

	cfg := gitconfig.New()
	if err := gitconfig.NewDecoder(strings.NewReader(string(content))).Decode(cfg); err != nil {
		return nil, WrapError(err, "parse .gitmodules")
	}

	out := map[string]submoduleDecl{}
	for _, sec := range cfg.Sections {
		if sec.Name != "submodule" {
			continue
		}
		for _, sub := range sec.Subsections {
			path := sub.Option("path")
			if path == "" {
				continue
			}
			out[path] = submoduleDecl{url: sub.Option("url"), branch: sub.Option("branch")}
		}
	}
	return out, nil
}

// findGitlinks recursively collects every gitlink (mode 160000) entry
// under the tree rooted at treeOID, keyed by repo-root-relative path.
func (r *Repo) findGitlinks(ctx context.Context, treeOID, prefix string) (map[string]string, error) {
	out := map[string]string{}
	if treeOID == "" {
		return out, nil
	}
	format, err := r.git.ObjectFormat(ctx)
	if err != nil {
		return nil, err
	}
	obj, err := r.git.ReadObject(ctx, treeOID, backend.FormContent)
	if err != nil {
		return nil, WrapErrorf(err, "read tree %s", treeOID)
	}
	entries, err := objparse.DecodeTree(obj.Bytes, oidSize(format))
	if err != nil {
		return nil, WrapErrorf(err, "decode tree %s", treeOID)
	}
	for _, e := range entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}
		switch {
		case e.Mode == gitlinkMode:
			out[full] = e.OID
		case e.IsDir():
			sub, err := r.findGitlinks(ctx, e.OID, full)
			if err != nil {
				return nil, err
			}
			for k, v := range sub {
				out[k] = v
			}
		}
	}
	return out, nil
}

// LoadSubmodules opens every initialized submodule (one whose worktree
// path already contains a .git entry) against the same underlying
// filesystem and registers it with the repository's WorktreeBackend, so
// that ResolvePath reports the submodule backend for paths under the
// gitlink. The worktree's file operations do not go through
// ResolvePath; they keep reading and writing the parent filesystem,
// where the submodule's files also live. Submodules that have not been
// cloned into the worktree are skipped, not an error.
func (r *Repo) LoadSubmodules(ctx context.Context) error {
	if err := r.requireWorktree(); err != nil {
		return err
	}
	fw, ok := r.wt.(*fsworktree.Backend)
	if !ok {
		return nil // a non-filesystem WorktreeBackend has no redirection to wire.
	}

	subs, err := r.Submodules(ctx)
	if err != nil {
		return err
	}

	var wired []fsworktree.Submodule
	for _, s := range subs {
		if _, ok, err := r.wt.ReadDir(ctx, s.Path+"/.git"); err != nil || !ok {
			continue
		}
		sub, err := r.openSubmoduleBackend(s.Path)
		if err != nil {
			r.logger().Error("skip submodule", err, "path", s.Path)
			continue
		}
		wired = append(wired, fsworktree.Submodule{Path: s.Path, Backend: sub})
	}

	if len(wired) == 0 {
		return nil
	}
	r.wt = fw.WithSubmodules(wired)
	return nil
}

func (r *Repo) openSubmoduleBackend(path string) (backend.WorktreeBackend, error) {
	root, err := fsbridge.ToBillyFilesystem(r.options.FS)
	if err != nil {
		return nil, err
	}
	scoped, err := root.Chroot(r.options.Workdir)
	if err != nil {
		return nil, err
	}
	subScoped, err := scoped.Chroot(path)
	if err != nil {
		return nil, err
	}
	return fsworktree.New(fsb.NewFS(subScoped), path), nil
}
