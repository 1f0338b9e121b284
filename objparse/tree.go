// Package objparse holds the small, independent parsers named in the
// specification for commit, tree, and tag objects, and for the
// sparse-checkout patterns file. Each format has a direct bijection with
// its binary representation, so each parser is hand-rolled against the
// standard library rather than routed through a third-party encoder:
// the format is fixed by Git's on-disk compatibility requirement, not by
// any library's opinion of how to express it.
package objparse

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
)

// TreeEntry is one row of a tree object: a name, a Git file mode (as the
// octal digits Git itself uses, e.g. "100644", "40000", "120000",
// "160000"), and the OID it points at (hex, 40 or 64 characters).
type TreeEntry struct {
	Mode string
	Name string
	OID  string
}

// IsDir reports whether mode names a subtree.
func (e TreeEntry) IsDir() bool { return e.Mode == "40000" || e.Mode == "040000" }

// DecodeTree parses a tree object's content (header already stripped) into
// its ordered entries. Git's tree format is a flat sequence of
// "<mode> <name>\0<oid-bytes>" records; the OID's raw byte width depends
// on the repository's object format, so callers tell us whether to read
// 20 or 32 raw bytes per entry.
func DecodeTree(content []byte, oidSize int) ([]TreeEntry, error) {
	var entries []TreeEntry
	for len(content) > 0 {
		sp := bytes.IndexByte(content, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("objparse: tree: missing mode separator")
		}
		mode := string(content[:sp])
		rest := content[sp+1:]

		nul := bytes.IndexByte(rest, 0)
		if nul < 0 {
			return nil, fmt.Errorf("objparse: tree: missing name terminator")
		}
		name := string(rest[:nul])
		rest = rest[nul+1:]

		if len(rest) < oidSize {
			return nil, fmt.Errorf("objparse: tree: truncated oid for %q", name)
		}
		oid := fmt.Sprintf("%x", rest[:oidSize])
		entries = append(entries, TreeEntry{Mode: mode, Name: name, OID: oid})
		content = rest[oidSize:]
	}
	return entries, nil
}

// EncodeTree serializes entries into tree object content, sorting them
// per Git's tree-entry ordering: byte-wise by name, with directory
// entries compared as if their name carried a trailing "/". Entries are
// not mutated; a sorted copy is encoded.
func EncodeTree(entries []TreeEntry) ([]byte, error) {
	sorted := make([]TreeEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return treeSortKey(sorted[i]) < treeSortKey(sorted[j])
	})

	var buf bytes.Buffer
	for _, e := range sorted {
		raw, err := hexToBytes(e.OID)
		if err != nil {
			return nil, fmt.Errorf("objparse: tree: entry %q: %w", e.Name, err)
		}
		buf.WriteString(e.Mode)
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

func treeSortKey(e TreeEntry) string {
	if e.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

func hexToBytes(hexOID string) ([]byte, error) {
	if len(hexOID)%2 != 0 {
		return nil, fmt.Errorf("odd-length oid %q", hexOID)
	}
	out := make([]byte, len(hexOID)/2)
	for i := range out {
		v, err := strconv.ParseUint(hexOID[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid oid %q: %w", hexOID, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}
