package git

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/awesome-os/portable-git/backend"
)

// ChangeKind classifies one path's difference between two trees.
type ChangeKind int8

const (
	ChangeAdd ChangeKind = iota
	ChangeDelete
	ChangeModify
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeDelete:
		return "delete"
	case ChangeModify:
		return "modify"
	default:
		return "unknown"
	}
}

// Change is one path's difference between two trees.
type Change struct {
	Path     string
	Kind     ChangeKind
	FromOID  string
	ToOID    string
	FromMode string
	ToMode   string
}

// ChangeFilter selects which changes Diff includes; nil passes everything.
type ChangeFilter func(Change) bool

// ExtensionFilter includes only paths ending in ext (e.g. ".go").
func ExtensionFilter(ext string) ChangeFilter {
	return func(c Change) bool { return strings.HasSuffix(c.Path, ext) }
}

// PathPrefixFilter includes only paths under prefix.
func PathPrefixFilter(prefix string) ChangeFilter {
	return func(c Change) bool { return strings.HasPrefix(c.Path, prefix) }
}

// DiffResult is the outcome of comparing two trees.
type DiffResult struct {
	Changes []Change
}

// Text renders a unified-style textual diff of every change, computing
// line-level content diffs for modified blobs via a Myers-diff
// implementation. Every blob is rendered as text; binary content is not
// detected, and a blob that cannot be read makes Text return an error.
func (d *DiffResult) Text(ctx context.Context, r *Repo) (string, error) {
	var buf strings.Builder
	dmp := diffmatchpatch.New()

	for _, c := range d.Changes {
		fmt.Fprintf(&buf, "diff --git a/%s b/%s\n", c.Path, c.Path)
		switch c.Kind {
		case ChangeAdd:
			fmt.Fprintf(&buf, "new file mode %s\n", c.ToMode)
			fmt.Fprintf(&buf, "--- /dev/null\n+++ b/%s\n", c.Path)
			content, err := r.blobText(ctx, c.ToOID)
			if err != nil {
				return "", err
			}
			writeAddedLines(&buf, content)
		case ChangeDelete:
			fmt.Fprintf(&buf, "deleted file mode %s\n", c.FromMode)
			fmt.Fprintf(&buf, "--- a/%s\n+++ /dev/null\n", c.Path)
			content, err := r.blobText(ctx, c.FromOID)
			if err != nil {
				return "", err
			}
			writeRemovedLines(&buf, content)
		case ChangeModify:
			fmt.Fprintf(&buf, "--- a/%s\n+++ b/%s\n", c.Path, c.Path)
			from, err := r.blobText(ctx, c.FromOID)
			if err != nil {
				return "", err
			}
			to, err := r.blobText(ctx, c.ToOID)
			if err != nil {
				return "", err
			}
			diffs := dmp.DiffMain(from, to, false)
			dmp.DiffCleanupSemantic(diffs)
			writeLineDiff(&buf, diffs)
		}
	}
	return buf.String(), nil
}

func (r *Repo) blobText(ctx context.Context, oid string) (string, error) {
	if oid == "" {
		return "", nil
	}
	obj, err := r.git.ReadObject(ctx, oid, backend.FormContent)
	if err != nil {
		return "", WrapErrorf(err, "read blob %s", oid)
	}
	return string(obj.Bytes), nil
}

func writeAddedLines(buf *strings.Builder, content string) {
	for _, line := range splitLines(content) {
		buf.WriteByte('+')
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

func writeRemovedLines(buf *strings.Builder, content string) {
	for _, line := range splitLines(content) {
		buf.WriteByte('-')
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

func writeLineDiff(buf *strings.Builder, diffs []diffmatchpatch.Diff) {
	for _, d := range diffs {
		prefix := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = '+'
		case diffmatchpatch.DiffDelete:
			prefix = '-'
		}
		for _, line := range splitLines(d.Text) {
			buf.WriteByte(prefix)
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Diff compares the trees of two revisions (ref names or OIDs),
// returning every path that differs, filtered by the supplied filters
// (a change must satisfy every filter to be included).
func (r *Repo) Diff(ctx context.Context, fromRef, toRef string, filters ...ChangeFilter) (*DiffResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fromFlat, err := r.revisionFlatTree(ctx, fromRef)
	if err != nil {
		return nil, err
	}
	toFlat, err := r.revisionFlatTree(ctx, toRef)
	if err != nil {
		return nil, err
	}

	var changes []Change
	for p, to := range toFlat {
		from, existed := fromFlat[p]
		switch {
		case !existed:
			changes = append(changes, Change{Path: p, Kind: ChangeAdd, ToOID: to.OID, ToMode: fmt.Sprintf("%o", to.Mode)})
		case from.OID != to.OID || from.Mode != to.Mode:
			changes = append(changes, Change{
				Path: p, Kind: ChangeModify,
				FromOID: from.OID, ToOID: to.OID,
				FromMode: fmt.Sprintf("%o", from.Mode), ToMode: fmt.Sprintf("%o", to.Mode),
			})
		}
	}
	for p, from := range fromFlat {
		if _, ok := toFlat[p]; !ok {
			changes = append(changes, Change{Path: p, Kind: ChangeDelete, FromOID: from.OID, FromMode: fmt.Sprintf("%o", from.Mode)})
		}
	}

	if len(filters) > 0 {
		filtered := changes[:0]
		for _, c := range changes {
			if matchesAllChangeFilters(c, filters) {
				filtered = append(filtered, c)
			}
		}
		changes = filtered
	}

	return &DiffResult{Changes: changes}, nil
}

func matchesAllChangeFilters(c Change, filters []ChangeFilter) bool {
	for _, f := range filters {
		if f != nil && !f(c) {
			return false
		}
	}
	return true
}

func (r *Repo) revisionFlatTree(ctx context.Context, rev string) (map[string]flatTreeEntry, error) {
	oid, err := r.git.ResolveRef(ctx, rev)
	if err != nil {
		return nil, WrapErrorf(ErrResolveFailed, "resolve %q", rev)
	}
	treeOID, err := r.commitTree(ctx, oid)
	if err != nil {
		return nil, err
	}
	flat, err := r.flattenTreeOID(ctx, treeOID, "")
	if err != nil {
		return nil, err
	}
	out := make(map[string]flatTreeEntry, len(flat))
	for p, e := range flat {
		out[p] = flatTreeEntry{OID: e.OID, Mode: e.Mode}
	}
	return out, nil
}

type flatTreeEntry struct {
	OID  string
	Mode uint32
}
