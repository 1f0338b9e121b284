// Package stash implements the precondition/commit-construction
// algebra behind stash push/apply/pop/drop: recording worktree state
// and optionally a distinct staged state, on top of HEAD, as one or two
// commits, addressed by a single stack-shaped ref plus its reflog.
package stash

import (
	"context"
	"fmt"
	"strings"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/checkout"
	"github.com/awesome-os/portable-git/objparse"
)

// RefName is the single ref the stash stack lives under; entries are
// addressed through its reflog, newest first.
const RefName = "refs/stash"

// Entry is one stash stack entry, as read from the stash reflog.
type Entry struct {
	Index   int
	Commit  string
	Message string
}

// Identity is the committer identity a stash commit and its reflog
// entries are attributed to.
type Identity struct {
	Name  string
	Email string
}

func oidSizeFor(format backend.ObjectFormat) int {
	if format == backend.ObjectFormatSHA256 {
		return 32
	}
	return 20
}

// resolveIdentity reads user.name/user.email from the backend's merged
// configuration; either being empty fails MissingName, matching §4.6
// step 1.
func resolveIdentity(ctx context.Context, git backend.GitBackend) (Identity, error) {
	name, ok, err := git.GetConfig(ctx, backend.ConfigKey{Section: "user", Name: "name"})
	if err != nil {
		return Identity{}, fmt.Errorf("stash: read user.name: %w", err)
	}
	if !ok || name == "" {
		return Identity{}, &backend.MissingNameError{}
	}
	email, ok, err := git.GetConfig(ctx, backend.ConfigKey{Section: "user", Name: "email"})
	if err != nil {
		return Identity{}, fmt.Errorf("stash: read user.email: %w", err)
	}
	if !ok || email == "" {
		return Identity{}, &backend.MissingNameError{}
	}
	return Identity{Name: name, Email: email}, nil
}

// flatEntry is one path's target content for a tree being assembled.
type flatEntry struct {
	Path string
	OID  string
	Mode string
}

func decodeIndex(ctx context.Context, git backend.GitBackend, oidSize int) ([]objparse.IndexEntry, error) {
	raw, err := git.ReadIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("stash: read index: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	entries, err := objparse.DecodeIndexV2(raw, oidSize)
	if err != nil {
		return nil, fmt.Errorf("stash: decode index: %w", err)
	}
	return entries, nil
}

func unmergedPaths(entries []objparse.IndexEntry) []string {
	var paths []string
	for _, e := range entries {
		if e.Stage != 0 {
			paths = append(paths, e.Path)
		}
	}
	return paths
}

// readHeadTree resolves HEAD to its tree OID and flat path map, or
// ("", nil, nil) for an unborn HEAD (no commits yet).
func readHeadTree(ctx context.Context, git backend.GitBackend, oidSize int) (string, map[string]flatEntry, error) {
	headOID, err := git.ResolveRef(ctx, "HEAD")
	if err != nil || headOID == "" {
		return "", map[string]flatEntry{}, nil
	}
	obj, err := git.ReadObject(ctx, headOID, backend.FormContent)
	if err != nil {
		return "", nil, fmt.Errorf("stash: read HEAD commit %s: %w", headOID, err)
	}
	commit, err := objparse.DecodeCommit(obj.Bytes)
	if err != nil {
		return "", nil, fmt.Errorf("stash: decode HEAD commit %s: %w", headOID, err)
	}
	flat, err := flattenTree(ctx, git, commit.Tree, "", oidSize)
	if err != nil {
		return "", nil, err
	}
	return commit.Tree, flat, nil
}

func flattenTree(ctx context.Context, git backend.GitBackend, treeOID, prefix string, oidSize int) (map[string]flatEntry, error) {
	out := map[string]flatEntry{}
	if treeOID == "" {
		return out, nil
	}
	obj, err := git.ReadObject(ctx, treeOID, backend.FormContent)
	if err != nil {
		return nil, fmt.Errorf("stash: read tree %s: %w", treeOID, err)
	}
	entries, err := objparse.DecodeTree(obj.Bytes, oidSize)
	if err != nil {
		return nil, fmt.Errorf("stash: decode tree %s: %w", treeOID, err)
	}
	for _, e := range entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}
		if e.IsDir() {
			sub, err := flattenTree(ctx, git, e.OID, full, oidSize)
			if err != nil {
				return nil, err
			}
			for k, v := range sub {
				out[k] = v
			}
			continue
		}
		out[full] = flatEntry{Path: full, OID: e.OID, Mode: e.Mode}
	}
	return out, nil
}

// writeTree assembles a tree hierarchy from a flat path->entry map and
// writes every level bottom-up, returning the root tree's OID. An empty
// map produces the canonical empty tree.
func writeTree(ctx context.Context, git backend.GitBackend, flat map[string]flatEntry) (string, error) {
	type node struct {
		files    map[string]flatEntry
		children map[string]*node
	}
	root := &node{files: map[string]flatEntry{}, children: map[string]*node{}}

	for p, e := range flat {
		parts := strings.Split(p, "/")
		cur := root
		for i := 0; i < len(parts)-1; i++ {
			child, ok := cur.children[parts[i]]
			if !ok {
				child = &node{files: map[string]flatEntry{}, children: map[string]*node{}}
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
			entries = append(entries, objparse.TreeEntry{Mode: e.Mode, Name: name, OID: e.OID})
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
		return git.WriteObject(ctx, backend.ObjectTree, raw)
	}
	return writeNode(root)
}

// computeIndexTree builds the tree the current index describes, or
// ("", false) if it is identical to headTree (no staged changes).
func computeIndexTree(ctx context.Context, git backend.GitBackend, indexEntries []objparse.IndexEntry, headFlat map[string]flatEntry, oidSize int) (string, bool, error) {
	flat := map[string]flatEntry{}
	for _, e := range indexEntries {
		flat[e.Path] = flatEntry{Path: e.Path, OID: e.OID, Mode: fmt.Sprintf("%o", e.Mode)}
	}
	if sameContent(flat, headFlat) {
		return "", false, nil
	}
	oid, err := writeTree(ctx, git, flat)
	if err != nil {
		return "", false, err
	}
	return oid, true, nil
}

// computeWorktreeTree overlays workdir content for every tracked path
// on top of baseFlat (index, or HEAD when the index matches HEAD),
// writing any changed blobs, and returns ("", false) if nothing in the
// worktree differs from baseFlat.
func computeWorktreeTree(ctx context.Context, git backend.GitBackend, wt backend.WorktreeBackend, baseFlat map[string]flatEntry, format backend.ObjectFormat) (string, bool, error) {
	flat := map[string]flatEntry{}
	changed := false

	for p, e := range baseFlat {
		flat[p] = e
		if e.Mode == checkoutModeGitlink {
			continue
		}
		content, present, err := wt.Read(ctx, p)
		if err != nil {
			return "", false, fmt.Errorf("stash: read workdir %q: %w", p, err)
		}
		if !present {
			continue // deletions are not part of the minimal worktree_tree contract.
		}
		oid, err := git.WriteObject(ctx, backend.ObjectBlob, content)
		if err != nil {
			return "", false, fmt.Errorf("stash: hash workdir %q: %w", p, err)
		}
		if oid != e.OID {
			changed = true
			flat[p] = flatEntry{Path: p, OID: oid, Mode: e.Mode}
		}
	}

	if !changed {
		return "", false, nil
	}
	oid, err := writeTree(ctx, git, flat)
	if err != nil {
		return "", false, err
	}
	return oid, true, nil
}

const checkoutModeGitlink = "160000"

func sameContent(a, b map[string]flatEntry) bool {
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

// Push runs the full precondition/commit-construction algebra of §4.6:
// it verifies a committer identity and a fully staged index, computes
// index_tree and worktree_tree, and (unless both are None) builds the
// stash commit(s), writes the stash ref, appends a reflog entry, and
// resets the worktree/index to HEAD. branch names the current branch
// for the default message; a non-empty msg replaces the "WIP on
// <branch>" prefix, and the short HEAD OID and subject follow it either
// way.
func Push(ctx context.Context, git backend.GitBackend, wt backend.WorktreeBackend, branch, msg string, format backend.ObjectFormat, now int64, tzOffset string) (string, error) {
	oidSize := oidSizeFor(format)

	who, err := resolveIdentity(ctx, git)
	if err != nil {
		return "", err
	}

	indexEntries, err := decodeIndex(ctx, git, oidSize)
	if err != nil {
		return "", err
	}
	if paths := unmergedPaths(indexEntries); len(paths) > 0 {
		return "", &backend.UnmergedPathsError{Paths: paths}
	}

	headOID, _ := git.ResolveRef(ctx, "HEAD")
	_, headFlat, err := readHeadTree(ctx, git, oidSize)
	if err != nil {
		return "", err
	}

	indexTree, hasIndexTree, err := computeIndexTree(ctx, git, indexEntries, headFlat, oidSize)
	if err != nil {
		return "", err
	}

	base := headFlat
	if hasIndexTree {
		base = map[string]flatEntry{}
		for _, e := range indexEntries {
			base[e.Path] = flatEntry{Path: e.Path, OID: e.OID, Mode: fmt.Sprintf("%o", e.Mode)}
		}
	}
	worktreeTree, hasWorktreeTree, err := computeWorktreeTree(ctx, git, wt, base, format)
	if err != nil {
		return "", err
	}

	if !hasIndexTree && !hasWorktreeTree {
		return "", &backend.NothingToStashError{}
	}

	headMsg, headShort := "", ""
	if headOID != "" {
		if obj, err := git.ReadObject(ctx, headOID, backend.FormContent); err == nil {
			if c, err := objparse.DecodeCommit(obj.Bytes); err == nil {
				headMsg = firstLine(c.Message)
			}
		}
		headShort = shortOID(headOID)
	}

	sig := objparse.Signature{Name: who.Name, Email: who.Email, When: now, TZOffset: tzOffset}

	var indexCommitOID string
	parents := nilIfEmpty(headOID)
	if hasIndexTree {
		ic := objparse.Commit{
			Tree:      indexTree,
			Parents:   nilIfEmpty(headOID),
			Author:    sig,
			Committer: sig,
			Message:   fmt.Sprintf("index on %s: %s %s", branch, headShort, headMsg),
		}
		oid, err := git.WriteObject(ctx, backend.ObjectCommit, objparse.EncodeCommit(ic))
		if err != nil {
			return "", fmt.Errorf("stash: write index commit: %w", err)
		}
		indexCommitOID = oid
		parents = append(parents, indexCommitOID)
	}

	stashTree := worktreeTree
	if !hasWorktreeTree {
		stashTree = indexTree
	}

	stashMsg := msg
	if stashMsg == "" {
		stashMsg = fmt.Sprintf("WIP on %s: %s %s", branch, headShort, headMsg)
	} else {
		stashMsg = fmt.Sprintf("%s: %s %s", stashMsg, headShort, headMsg)
	}

	stashCommit := objparse.Commit{
		Tree:      stashTree,
		Parents:   parents,
		Author:    sig,
		Committer: sig,
		Message:   stashMsg,
	}
	stashOID, err := git.WriteObject(ctx, backend.ObjectCommit, objparse.EncodeCommit(stashCommit))
	if err != nil {
		return "", fmt.Errorf("stash: write stash commit: %w", err)
	}

	if err := pushRef(ctx, git, stashOID, who, now, tzOffset, stashMsg); err != nil {
		return "", err
	}

	if err := resetToHead(ctx, git, wt, headOID, format); err != nil {
		return "", fmt.Errorf("stash: reset to HEAD after push: %w", err)
	}

	return stashOID, nil
}

func nilIfEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func shortOID(oid string) string {
	if len(oid) > 7 {
		return oid[:7]
	}
	return oid
}

func resetToHead(ctx context.Context, git backend.GitBackend, wt backend.WorktreeBackend, headOID string, format backend.ObjectFormat) error {
	if headOID == "" {
		return nil
	}
	obj, err := git.ReadObject(ctx, headOID, backend.FormContent)
	if err != nil {
		return err
	}
	commit, err := objparse.DecodeCommit(obj.Bytes)
	if err != nil {
		return err
	}
	ops, err := checkout.Analyze(ctx, git, wt, commit.Tree, &checkout.Index{Entries: map[string]checkout.IndexEntry{}}, checkout.Options{Force: true, ObjectFormat: format})
	if err != nil {
		return err
	}
	_, err = checkout.Execute(ctx, git, wt, ops, format)
	return err
}

// pushRef writes RefName to point at stashOID and prepends an entry to
// its reflog (newest first, per §4.6's reflog format).
func pushRef(ctx context.Context, git backend.GitBackend, stashOID string, who Identity, now int64, tzOffset, msg string) error {
	old, _ := git.ResolveRef(ctx, RefName)
	if err := git.WriteRef(ctx, RefName, stashOID); err != nil {
		return fmt.Errorf("stash: write %s: %w", RefName, err)
	}
	entry := backend.ReflogEntry{
		OldOID:   old,
		NewOID:   stashOID,
		Who:      fmt.Sprintf("%s <%s>", who.Name, who.Email),
		When:     now,
		TZOffset: tzOffset,
		Message:  msg,
	}
	if err := git.AppendReflog(ctx, RefName, entry); err != nil {
		return fmt.Errorf("stash: append reflog: %w", err)
	}
	return nil
}

// List reads every stash stack entry from the reflog, newest first
// (index 0 is stash@{0}).
func List(ctx context.Context, git backend.GitBackend) ([]Entry, error) {
	lines, err := readReflog(ctx, git)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(lines))
	for i, l := range lines {
		entries[i] = Entry{Index: i, Commit: l.NewOID, Message: l.Message}
	}
	return entries, nil
}

// Apply applies the stash at index (0 = top) to the index and worktree,
// without removing it from the stack.
func Apply(ctx context.Context, git backend.GitBackend, wt backend.WorktreeBackend, index int, format backend.ObjectFormat) error {
	oidSize := oidSizeFor(format)

	indexEntries, err := decodeIndex(ctx, git, oidSize)
	if err != nil {
		return err
	}
	if paths := unmergedPaths(indexEntries); len(paths) > 0 {
		return &backend.UnmergedPathsError{Paths: paths}
	}

	entries, err := List(ctx, git)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(entries) {
		return fmt.Errorf("stash: no stash entry at index %d", index)
	}
	stashOID := entries[index].Commit

	obj, err := git.ReadObject(ctx, stashOID, backend.FormContent)
	if err != nil {
		return fmt.Errorf("stash: read stash commit %s: %w", stashOID, err)
	}
	commit, err := objparse.DecodeCommit(obj.Bytes)
	if err != nil {
		return err
	}

	if len(commit.Parents) == 2 {
		indexCommitOID := commit.Parents[1]
		icObj, err := git.ReadObject(ctx, indexCommitOID, backend.FormContent)
		if err != nil {
			return fmt.Errorf("stash: read index commit %s: %w", indexCommitOID, err)
		}
		ic, err := objparse.DecodeCommit(icObj.Bytes)
		if err != nil {
			return err
		}
		if err := applyTreeToIndex(ctx, git, ic.Tree, oidSize); err != nil {
			return err
		}
	}

	idx := &checkout.Index{Entries: map[string]checkout.IndexEntry{}}
	for _, e := range indexEntries {
		idx.Entries[e.Path] = checkout.IndexEntry{Path: e.Path, OID: e.OID, Mode: fmt.Sprintf("%o", e.Mode)}
	}
	ops, err := checkout.Analyze(ctx, git, wt, commit.Tree, idx, checkout.Options{Force: true, ObjectFormat: format})
	if err != nil {
		return err
	}
	_, err = checkout.Execute(ctx, git, wt, ops, format)
	return err
}

func applyTreeToIndex(ctx context.Context, git backend.GitBackend, treeOID string, oidSize int) error {
	flat, err := flattenTree(ctx, git, treeOID, "", oidSize)
	if err != nil {
		return err
	}
	entries := make([]objparse.IndexEntry, 0, len(flat))
	for p, e := range flat {
		mode, err := parseOctal(e.Mode)
		if err != nil {
			return err
		}
		entries = append(entries, objparse.IndexEntry{Path: p, OID: e.OID, Mode: mode})
	}
	raw, err := objparse.EncodeIndexV2(entries, oidSize)
	if err != nil {
		return err
	}
	return git.WriteIndex(ctx, raw)
}

func parseOctal(mode string) (uint32, error) {
	var v int64
	for _, c := range mode {
		if c < '0' || c > '7' {
			return 0, fmt.Errorf("invalid octal mode %q", mode)
		}
		v = v*8 + int64(c-'0')
	}
	return uint32(v), nil
}

// Pop applies the top stash entry, then drops it.
func Pop(ctx context.Context, git backend.GitBackend, wt backend.WorktreeBackend, format backend.ObjectFormat) error {
	if err := Apply(ctx, git, wt, 0, format); err != nil {
		return err
	}
	return Drop(ctx, git, 0)
}

// Drop removes the stash entry at index from the stack: the top ref
// entry is removed, the reflog is rewritten without it, and the ref is
// repointed at the new top entry (or deleted if the stack is now
// empty).
func Drop(ctx context.Context, git backend.GitBackend, index int) error {
	lines, err := readReflog(ctx, git)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(lines) {
		return fmt.Errorf("stash: no stash entry at index %d", index)
	}

	remaining := append(append([]reflogLine{}, lines[:index]...), lines[index+1:]...)
	if len(remaining) == 0 {
		if err := git.DeleteRef(ctx, RefName); err != nil {
			return fmt.Errorf("stash: delete %s: %w", RefName, err)
		}
		return writeReflog(ctx, git, nil)
	}

	if err := git.WriteRef(ctx, RefName, remaining[0].NewOID); err != nil {
		return fmt.Errorf("stash: repoint %s: %w", RefName, err)
	}
	return writeReflog(ctx, git, remaining)
}

// reflogLine mirrors backend.ReflogEntry; stash keeps its own copy
// rather than depending on how a given backend chooses to store reflogs
// so Drop's read-modify-write can work against any backend.GitBackend.
type reflogLine struct {
	OldOID   string
	NewOID   string
	Who      string
	When     int64
	TZOffset string
	Message  string
}

// readReflog reads RefName's reflog, newest first. GitBackend's minimal
// contract only requires AppendReflog; a backend that additionally
// implements reflogReader (fsgit does, over its raw logs/<name> file)
// gives List/Apply/Drop the full stack. Backends without it degrade to
// treating the current ref tip as the sole entry.
func readReflog(ctx context.Context, git backend.GitBackend) ([]reflogLine, error) {
	reader, ok := git.(reflogReader)
	if !ok {
		oid, err := git.ResolveRef(ctx, RefName)
		if err != nil || oid == "" {
			return nil, nil
		}
		return []reflogLine{{NewOID: oid}}, nil
	}
	raw, err := reader.ReadReflog(ctx, RefName)
	if err != nil {
		return nil, fmt.Errorf("stash: read reflog: %w", err)
	}
	lines := make([]reflogLine, len(raw))
	for i, e := range raw {
		lines[i] = reflogLine{OldOID: e.OldOID, NewOID: e.NewOID, Who: e.Who, When: e.When, TZOffset: e.TZOffset, Message: e.Message}
	}
	return lines, nil
}

func writeReflog(ctx context.Context, git backend.GitBackend, lines []reflogLine) error {
	writer, ok := git.(reflogWriter)
	if !ok {
		return nil
	}
	entries := make([]backend.ReflogEntry, len(lines))
	for i, l := range lines {
		entries[i] = backend.ReflogEntry{OldOID: l.OldOID, NewOID: l.NewOID, Who: l.Who, When: l.When, TZOffset: l.TZOffset, Message: l.Message}
	}
	return writer.WriteReflog(ctx, RefName, entries)
}

// reflogReader and reflogWriter are optional capability interfaces a
// GitBackend may implement to give stash full read-modify-write access
// to a ref's reflog, newest first; fsgit implements both over its raw
// logs/<name> file.
type reflogReader interface {
	ReadReflog(ctx context.Context, name string) ([]backend.ReflogEntry, error)
}
type reflogWriter interface {
	WriteReflog(ctx context.Context, name string, entries []backend.ReflogEntry) error
}
