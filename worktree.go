package git

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/objparse"
)

const (
	modeRegular    = uint32(0o100644)
	modeExecutable = uint32(0o100755)
	modeSymlink    = uint32(0o120000)
)

// requireWorktree returns ErrBareRepository when r has no working
// directory, the precondition every worktree-mutating operation shares.
func (r *Repo) requireWorktree() error {
	if r.wt == nil {
		return ErrBareRepository
	}
	return nil
}

// Add stages paths (files or directories) into the index, hashing their
// current worktree content into blob objects. A bare "." stages every
// tracked-or-untracked file under the worktree root.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.requireWorktree(); err != nil {
		return err
	}
	if len(paths) == 0 {
		return &MissingParameterError{Name: "paths"}
	}

	files, err := r.expandPaths(ctx, paths)
	if err != nil {
		return err
	}

	entries, err := r.readIndexEntries(ctx)
	if err != nil {
		return err
	}
	byPath := indexByPath(entries)

	for _, p := range files {
		content, ok, err := r.wt.Read(ctx, p)
		if err != nil {
			return WrapErrorf(err, "read %q", p)
		}
		if !ok {
			delete(byPath, p)
			continue
		}
		mode, err := r.fileMode(ctx, p)
		if err != nil {
			return err
		}
		oid, err := r.git.WriteObject(ctx, backend.ObjectBlob, content)
		if err != nil {
			return WrapErrorf(err, "hash %q", p)
		}
		byPath[p] = objparse.IndexEntry{Path: p, OID: oid, Mode: mode}
	}

	return r.writeIndexEntries(ctx, flattenIndex(byPath))
}

// fileMode inspects p's worktree metadata to classify it as a symlink,
// executable, or plain regular file.
func (r *Repo) fileMode(ctx context.Context, p string) (uint32, error) {
	info, ok, err := r.wt.Lstat(ctx, p)
	if err != nil {
		return 0, WrapErrorf(err, "stat %q", p)
	}
	if !ok {
		return modeRegular, nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return modeSymlink, nil
	}
	if info.Mode()&0o111 != 0 {
		return modeExecutable, nil
	}
	return modeRegular, nil
}

// expandPaths resolves the paths argument (which may include "." or a
// directory) into a flat list of worktree-relative file paths.
func (r *Repo) expandPaths(ctx context.Context, paths []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range paths {
		p = strings.TrimPrefix(p, "./")
		if p == "" || p == "." {
			all, err := r.wt.ReadDirDeep(ctx, ".")
			if err != nil {
				return nil, WrapError(err, "walk worktree")
			}
			for _, f := range all {
				if f == ".git" || strings.HasPrefix(f, ".git/") {
					continue
				}
				if !seen[f] {
					seen[f] = true
					out = append(out, f)
				}
			}
			continue
		}
		if _, ok, err := r.wt.ReadDir(ctx, p); err == nil && ok {
			sub, err := r.wt.ReadDirDeep(ctx, p)
			if err != nil {
				return nil, WrapErrorf(err, "walk %q", p)
			}
			for _, f := range sub {
				if !seen[f] {
					seen[f] = true
					out = append(out, f)
				}
			}
			continue
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Remove unstages and deletes paths from both the index and the
// worktree.
func (r *Repo) Remove(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.requireWorktree(); err != nil {
		return err
	}
	if len(paths) == 0 {
		return &MissingParameterError{Name: "paths"}
	}

	entries, err := r.readIndexEntries(ctx)
	if err != nil {
		return err
	}
	byPath := indexByPath(entries)

	for _, p := range paths {
		delete(byPath, p)
		if err := r.wt.Remove(ctx, p); err != nil {
			return WrapErrorf(err, "remove %q", p)
		}
	}

	return r.writeIndexEntries(ctx, flattenIndex(byPath))
}

// Unstage resets paths in the index back to their content at HEAD,
// removing them from the index entirely if HEAD does not have them.
func (r *Repo) Unstage(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(paths) == 0 {
		return &MissingParameterError{Name: "paths"}
	}

	headFlat, err := r.headFlatTree(ctx)
	if err != nil {
		return err
	}

	entries, err := r.readIndexEntries(ctx)
	if err != nil {
		return err
	}
	byPath := indexByPath(entries)

	for _, p := range paths {
		if e, ok := headFlat[p]; ok {
			byPath[p] = e
		} else {
			delete(byPath, p)
		}
	}

	return r.writeIndexEntries(ctx, flattenIndex(byPath))
}

// Commit builds a tree from the current index (optionally updating it
// from the worktree first, when opts.All is set) and records it as a
// new commit, advancing the current branch (or HEAD, if detached) to
// point at it.
func (r *Repo) Commit(ctx context.Context, message string, sig Signature, opts CommitOpts) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if opts.LintMessage {
		if err := lintCommitMessage(message); err != nil {
			return "", err
		}
	}

	if opts.All {
		if err := r.requireWorktree(); err != nil {
			return "", err
		}
		if err := r.Add(ctx, "."); err != nil {
			return "", err
		}
	}

	entries, err := r.readIndexEntries(ctx)
	if err != nil {
		return "", err
	}
	flat := map[string]objparse.IndexEntry{}
	for _, e := range entries {
		if e.Stage != 0 {
			return "", &UnmergedPathsError{Paths: []string{e.Path}}
		}
		flat[e.Path] = e
	}

	headOID, _ := r.git.ResolveRef(ctx, "HEAD")
	var parents []string

	if opts.Amend {
		if headOID == "" {
			return "", WrapError(ErrResolveFailed, "cannot amend without a prior commit")
		}
		obj, err := r.git.ReadObject(ctx, headOID, backend.FormContent)
		if err != nil {
			return "", WrapErrorf(err, "read HEAD %s", headOID)
		}
		c, err := objparse.DecodeCommit(obj.Bytes)
		if err != nil {
			return "", WrapErrorf(err, "decode HEAD %s", headOID)
		}
		parents = c.Parents
	} else if headOID != "" {
		parents = []string{headOID}
	}

	if !opts.AllowEmpty && !opts.Amend {
		headFlat, err := r.headFlatTree(ctx)
		if err != nil {
			return "", err
		}
		if sameFlatTree(flat, headFlat) {
			return "", WrapError(ErrAlreadyUpToDate, "nothing to commit")
		}
	}

	treeOID, err := r.writeFlatTree(ctx, flat)
	if err != nil {
		return "", err
	}

	commit := objparse.Commit{
		Tree:      treeOID,
		Parents:   parents,
		Author:    objparse.Signature{Name: sig.Name, Email: sig.Email, When: sig.When.Unix(), TZOffset: sig.tzOffset()},
		Committer: objparse.Signature{Name: sig.Name, Email: sig.Email, When: sig.When.Unix(), TZOffset: sig.tzOffset()},
		Message:   message,
	}
	oid, err := r.git.WriteObject(ctx, backend.ObjectCommit, objparse.EncodeCommit(commit))
	if err != nil {
		return "", WrapError(err, "write commit")
	}

	if err := r.advanceHead(ctx, oid); err != nil {
		return "", err
	}
	r.logger().Info("commit created", "oid", oid)
	return oid, nil
}

// advanceHead points the branch HEAD refers to (or HEAD itself, when
// detached) at oid.
func (r *Repo) advanceHead(ctx context.Context, oid string) error {
	target, err := r.git.ReadSymbolicRef(ctx, "HEAD")
	if err != nil {
		return r.git.WriteRef(ctx, "HEAD", oid)
	}
	return r.git.WriteRef(ctx, target, oid)
}

func indexByPath(entries []objparse.IndexEntry) map[string]objparse.IndexEntry {
	m := make(map[string]objparse.IndexEntry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}
	return m
}

func flattenIndex(m map[string]objparse.IndexEntry) []objparse.IndexEntry {
	out := make([]objparse.IndexEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	return out
}

// headFlatTree returns HEAD's tree flattened into a path->entry map, or
// an empty map for an unborn HEAD.
func (r *Repo) headFlatTree(ctx context.Context) (map[string]objparse.IndexEntry, error) {
	headOID, err := r.git.ResolveRef(ctx, "HEAD")
	if err != nil || headOID == "" {
		return map[string]objparse.IndexEntry{}, nil
	}
	obj, err := r.git.ReadObject(ctx, headOID, backend.FormContent)
	if err != nil {
		return nil, WrapErrorf(err, "read HEAD %s", headOID)
	}
	c, err := objparse.DecodeCommit(obj.Bytes)
	if err != nil {
		return nil, WrapErrorf(err, "decode HEAD %s", headOID)
	}
	return r.flattenTreeOID(ctx, c.Tree, "")
}

// flattenTreeOID recursively flattens a tree object into a path->entry
// map of its blob/gitlink leaves.
func (r *Repo) flattenTreeOID(ctx context.Context, treeOID, prefix string) (map[string]objparse.IndexEntry, error) {
	out := map[string]objparse.IndexEntry{}
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
		if e.IsDir() {
			sub, err := r.flattenTreeOID(ctx, e.OID, full)
			if err != nil {
				return nil, err
			}
			for k, v := range sub {
				out[k] = v
			}
			continue
		}
		mode, err := parseOctalMode(e.Mode)
		if err != nil {
			return nil, err
		}
		out[full] = objparse.IndexEntry{Path: full, OID: e.OID, Mode: mode}
	}
	return out, nil
}

func parseOctalMode(mode string) (uint32, error) {
	var v uint32
	for _, c := range mode {
		if c < '0' || c > '7' {
			return 0, fmt.Errorf("invalid octal mode %q", mode)
		}
		v = v*8 + uint32(c-'0')
	}
	return v, nil
}

func sameFlatTree(a, b map[string]objparse.IndexEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for p, e := range a {
		o, ok := b[p]
		if !ok || o.OID != e.OID || o.Mode != e.Mode {
			return false
		}
	}
	return true
}

// writeFlatTree assembles a tree hierarchy from a flat path->entry map
// and writes every level bottom-up, returning the root tree's OID. An
// empty map produces the canonical empty tree.
func (r *Repo) writeFlatTree(ctx context.Context, flat map[string]objparse.IndexEntry) (string, error) {
	type node struct {
		files    map[string]objparse.IndexEntry
		children map[string]*node
	}
	root := &node{files: map[string]objparse.IndexEntry{}, children: map[string]*node{}}

	for p, e := range flat {
		parts := strings.Split(p, "/")
		cur := root
		for i := 0; i < len(parts)-1; i++ {
			child, ok := cur.children[parts[i]]
			if !ok {
				child = &node{files: map[string]objparse.IndexEntry{}, children: map[string]*node{}}
				cur.children[parts[i]] = child
			}
			cur = child
		}
		name := parts[len(parts)-1]
		e.Path = name
		cur.files[name] = e
	}

	var writeNode func(n *node) (string, error)
	writeNode = func(n *node) (string, error) {
		var entries []objparse.TreeEntry
		for name, e := range n.files {
			entries = append(entries, objparse.TreeEntry{Mode: fmt.Sprintf("%o", e.Mode), Name: name, OID: e.OID})
		}
		for name, child := range n.children {
			oid, err := writeNode(child)
			if err != nil {
				return "", err
			}
			entries = append(entries, objparse.TreeEntry{Mode: "40000", Name: name, OID: oid})
		}
		raw, err := objparse.EncodeTree(entries)
		if err != nil {
			return "", err
		}
		return r.git.WriteObject(ctx, backend.ObjectTree, raw)
	}
	return writeNode(root)
}
