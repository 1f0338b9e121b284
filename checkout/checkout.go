// Package checkout implements the analyze/execute checkout engine: the
// pure analyzer that reconciles a target tree with the current index and
// working directory into an operation list, and the executor that
// applies that list and rewrites the index. Both honor sparse-checkout
// patterns and filepath filters.
package checkout

import (
	"bytes"
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/awesome-os/portable-git/backend"
	"github.com/awesome-os/portable-git/objparse"
	"github.com/awesome-os/portable-git/sparse"
)

// IndexEntry mirrors one stage-0 row of the index; checkout only deals
// in fully-staged entries, never stages 1-3.
type IndexEntry struct {
	Path string
	OID  string
	Mode string
	// Stat is opaque workdir metadata (size/mtime fingerprint) the
	// executor records after writing a file so later "keep" decisions
	// can trust stat over re-hashing content.
	Stat string
}

// Index is the minimal in-memory index surface the engine needs; the
// real index codec (v2 format, SHA trailer) lives above this package and
// adapts to/from this shape around ReadIndex/WriteIndex.
type Index struct {
	Entries map[string]IndexEntry
}

func newIndex() *Index { return &Index{Entries: map[string]IndexEntry{}} }

// OpKind tags one entry of the operation list.
type OpKind int8

const (
	OpUpdate OpKind = iota
	OpKeep
	OpDelete
	OpDeleteIndex
	OpMkdir
	OpConflict
)

// Op is one emitted checkout operation.
type Op struct {
	Kind OpKind
	Path string
	OID  string
	Mode string
	Stat string
}

// Options configures analyze/execute.
type Options struct {
	// Filters restricts the operation set to paths that are a
	// prefix/suffix match of some entry.
	Filters []string
	// SparsePatterns and Cone select the sparse-checkout matcher; when
	// SparsePatterns is nil, every path matches (no sparse restriction).
	SparsePatterns []string
	Cone           bool
	// Force suppresses the conflict check, so a working-directory file
	// that differs from both the target and the index is overwritten.
	// Paths absent from the target are deleted whether or not Force is
	// set.
	Force bool
	// ObjectFormat selects the hash used to compare working-directory
	// content against a target OID.
	ObjectFormat backend.ObjectFormat
}

func (o Options) matcher() *sparse.Matcher {
	return sparse.New(o.SparsePatterns, o.Cone)
}

func matchesFilters(p string, filters []string) bool {
	if len(filters) == 0 {
		return true
	}
	for _, f := range filters {
		if strings.HasPrefix(p, f) || strings.HasSuffix(p, f) || strings.HasPrefix(f, p) {
			return true
		}
	}
	return false
}

// targetWalker builds path -> tree entry by walking the tree rooted at
// treeOID, pruning subtrees the cone matcher can statically exclude.
type targetWalker struct {
	ctx     context.Context
	git     backend.GitBackend
	m       *sparse.Matcher
	cone    bool
	oidSize int
	out     map[string]objparse.TreeEntry
}

func (w *targetWalker) walk(treeOID, prefix string) error {
	obj, err := w.git.ReadObject(w.ctx, treeOID, backend.FormContent)
	if err != nil {
		return fmt.Errorf("checkout: read tree %s: %w", treeOID, err)
	}
	entries, err := objparse.DecodeTree(obj.Bytes, w.oidSize)
	if err != nil {
		return fmt.Errorf("checkout: decode tree %s: %w", treeOID, err)
	}
	for _, e := range entries {
		full := e.Name
		if prefix != "" {
			full = prefix + "/" + e.Name
		}
		if e.IsDir() {
			if w.cone && !w.m.Match(full, true) {
				continue // statically excluded cone: never descend.
			}
			if err := w.walk(e.OID, full); err != nil {
				return err
			}
			continue
		}
		if !w.m.Match(full, false) {
			continue
		}
		w.out[full] = e
	}
	return nil
}

func oidSizeFor(format backend.ObjectFormat) int {
	if format == backend.ObjectFormatSHA256 {
		return 32
	}
	return 20
}

func hashContent(format backend.ObjectFormat, kind string, content []byte) string {
	header := fmt.Sprintf("%s %d\x00", kind, len(content))
	if format == backend.ObjectFormatSHA256 {
		sum := sha256.Sum256(append([]byte(header), content...))
		return fmt.Sprintf("%x", sum)
	}
	sum := sha1.Sum(append([]byte(header), content...))
	return fmt.Sprintf("%x", sum)
}

// Analyze is a pure function of its inputs (modulo the ODB/worktree
// reads needed to compare content) that produces the operation list; it
// never mutates index or worktree.
func Analyze(
	ctx context.Context,
	git backend.GitBackend,
	wt backend.WorktreeBackend,
	treeOID string,
	idx *Index,
	opts Options,
) ([]Op, error) {
	m := opts.matcher()
	oidSize := oidSizeFor(opts.ObjectFormat)

	tw := &targetWalker{ctx: ctx, git: git, m: m, cone: opts.Cone, oidSize: oidSize, out: map[string]objparse.TreeEntry{}}
	if err := tw.walk(treeOID, ""); err != nil {
		return nil, err
	}

	universe := map[string]struct{}{}
	for p := range tw.out {
		universe[p] = struct{}{}
	}
	for p := range idx.Entries {
		universe[p] = struct{}{}
	}

	paths := make([]string, 0, len(universe))
	for p := range universe {
		if matchesFilters(p, opts.Filters) {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)

	mkdirs := map[string]struct{}{}
	var ops []Op
	var conflicts []string

	for _, p := range paths {
		target, wantExists := tw.out[p]
		matched := wantExists && m.Match(p, false)
		idxEntry, hasIndex := idx.Entries[p]

		if matched {
			op, conflict, err := resolveUpdateOrKeep(ctx, git, wt, p, target, hasIndex, idxEntry, opts)
			if err != nil {
				return nil, err
			}
			if conflict {
				conflicts = append(conflicts, p)
				continue
			}
			ops = append(ops, op)
			if dir := path.Dir(p); dir != "." {
				mkdirs[dir] = struct{}{}
			}
			continue
		}

		if hasIndex {
			ops = append(ops, Op{Kind: OpDeleteIndex, Path: p})
		}
		_, present, err := wt.Stat(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("checkout: stat %q: %w", p, err)
		}
		if present {
			ops = append(ops, Op{Kind: OpDelete, Path: p})
		}
	}

	if len(conflicts) > 0 && !opts.Force {
		return nil, &backend.CheckoutConflictError{Paths: conflicts}
	}

	dirs := make([]string, 0, len(mkdirs))
	for d := range mkdirs {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	mkdirOps := make([]Op, 0, len(dirs))
	for _, d := range dirs {
		mkdirOps = append(mkdirOps, Op{Kind: OpMkdir, Path: d})
	}
	return append(mkdirOps, ops...), nil
}

func resolveUpdateOrKeep(
	ctx context.Context,
	git backend.GitBackend,
	wt backend.WorktreeBackend,
	p string,
	target objparse.TreeEntry,
	hasIndex bool,
	idxEntry IndexEntry,
	opts Options,
) (Op, bool, error) {
	_, present, err := wt.Stat(ctx, p)
	if err != nil {
		return Op{}, false, fmt.Errorf("checkout: stat %q: %w", p, err)
	}

	if !present {
		return Op{Kind: OpUpdate, Path: p, OID: target.OID, Mode: target.Mode}, false, nil
	}

	content, _, err := wt.Read(ctx, p)
	if err != nil {
		return Op{}, false, fmt.Errorf("checkout: read %q: %w", p, err)
	}
	workdirOID := hashContent(opts.ObjectFormat, "blob", content)

	matchesTarget := workdirOID == target.OID
	matchesIndex := hasIndex && workdirOID == idxEntry.OID

	switch {
	case matchesTarget:
		return Op{Kind: OpKeep, Path: p, OID: target.OID, Mode: target.Mode, Stat: workdirOID}, false, nil
	case !opts.Force && !matchesIndex:
		return Op{}, true, nil
	default:
		return Op{Kind: OpUpdate, Path: p, OID: target.OID, Mode: target.Mode}, false, nil
	}
}

// Execute applies ops in order: it clears idx (all surviving entries
// must be re-added by an operation), then performs the recorded
// filesystem mutations and reinserts index entries, and finally persists
// the index via git.WriteIndex. The index codec used to serialize the
// bytes lives one layer up; Execute returns the rebuilt in-memory Index.
func Execute(
	ctx context.Context,
	git backend.GitBackend,
	wt backend.WorktreeBackend,
	ops []Op,
	format backend.ObjectFormat,
) (*Index, error) {
	idx := newIndex()

	for _, op := range ops {
		switch op.Kind {
		case OpMkdir:
			if err := wt.Mkdir(ctx, op.Path); err != nil {
				return nil, fmt.Errorf("checkout: mkdir %q: %w", op.Path, err)
			}

		case OpUpdate:
			if err := applyUpdate(ctx, git, wt, op); err != nil {
				return nil, err
			}
			idx.Entries[op.Path] = IndexEntry{Path: op.Path, OID: op.OID, Mode: op.Mode}

		case OpKeep:
			idx.Entries[op.Path] = IndexEntry{Path: op.Path, OID: op.OID, Mode: op.Mode, Stat: op.Stat}

		case OpDelete:
			if err := wt.Remove(ctx, op.Path); err != nil {
				return nil, fmt.Errorf("checkout: delete %q: %w", op.Path, err)
			}

		case OpDeleteIndex:
			// No-op: the index was cleared above.

		case OpConflict:
			return nil, &backend.CheckoutConflictError{Paths: []string{op.Path}}
		}
	}

	raw, err := encodeIndex(idx, format)
	if err != nil {
		return nil, err
	}
	if err := git.WriteIndex(ctx, raw); err != nil {
		return nil, fmt.Errorf("checkout: write index: %w", err)
	}
	return idx, nil
}

func encodeIndex(idx *Index, format backend.ObjectFormat) ([]byte, error) {
	entries := make([]objparse.IndexEntry, 0, len(idx.Entries))
	for _, e := range idx.Entries {
		mode, err := modeToNumeric(e.Mode)
		if err != nil {
			return nil, fmt.Errorf("checkout: encode index %q: %w", e.Path, err)
		}
		entries = append(entries, objparse.IndexEntry{Mode: mode, OID: e.OID, Path: e.Path})
	}
	raw, err := objparse.EncodeIndexV2(entries, oidSizeFor(format))
	if err != nil {
		return nil, fmt.Errorf("checkout: encode index: %w", err)
	}
	return raw, nil
}

func modeToNumeric(mode string) (uint32, error) {
	var v int64
	for _, c := range mode {
		if c < '0' || c > '7' {
			return 0, fmt.Errorf("invalid octal mode %q", mode)
		}
		v = v*8 + int64(c-'0')
	}
	return uint32(v), nil
}

const (
	modeGitlink = "160000"
	modeSymlink = "120000"
)

func applyUpdate(ctx context.Context, git backend.GitBackend, wt backend.WorktreeBackend, op Op) error {
	switch op.Mode {
	case modeGitlink:
		return wt.Mkdir(ctx, op.Path)

	case modeSymlink:
		obj, err := git.ReadObject(ctx, op.OID, backend.FormContent)
		if err != nil {
			return fmt.Errorf("checkout: read symlink blob %q: %w", op.Path, err)
		}
		target := string(bytes.TrimSuffix(obj.Bytes, []byte("\n")))
		_ = wt.Remove(ctx, op.Path)
		if err := wt.WriteLink(ctx, op.Path, target); err != nil {
			// Symlink creation errors fall back to writing the target as
			// a regular file; the error itself is not surfaced.
			return wt.Write(ctx, op.Path, obj.Bytes, false)
		}
		return nil

	default:
		obj, err := git.ReadObject(ctx, op.OID, backend.FormContent)
		if err != nil {
			return fmt.Errorf("checkout: read blob %q: %w", op.Path, err)
		}
		executable := op.Mode == "100755"
		return wt.Write(ctx, op.Path, obj.Bytes, executable)
	}
}
