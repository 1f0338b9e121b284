// Package bundle implements the v2/v3 git-bundle wire framing: a text
// header line, a pkt-line ref advertisement terminated by a flush
// packet, and a trailing raw packfile. Framing is built on go-git's
// pktline encoder/scanner; the packfile itself is treated as an opaque
// byte stream passed through unmodified, with its header validated via
// go-git's packfile scanner so a malformed stream is rejected before the
// caller ever tries to unpack it.
package bundle

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/packfile"
	"github.com/go-git/go-git/v5/plumbing/format/pktline"
)

const (
	headerV2 = "# v2 git bundle\n"
	headerV3 = "# v3 git bundle\n"
)

// WriteBundle writes a v2 bundle to w: the header line, then one
// pkt-line per ref ("<oid> <name>\n") sorted by name for deterministic
// output, a flush packet, and finally pack's bytes verbatim.
func WriteBundle(refs map[string]string, pack io.Reader, w io.Writer) error {
	if _, err := io.WriteString(w, headerV2); err != nil {
		return fmt.Errorf("bundle: write header: %w", err)
	}

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	enc := pktline.NewEncoder(w)
	for _, name := range names {
		line := fmt.Sprintf("%s %s\n", refs[name], name)
		if err := enc.Encode([]byte(line)); err != nil {
			return fmt.Errorf("bundle: encode ref %q: %w", name, err)
		}
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("bundle: flush ref advertisement: %w", err)
	}

	if _, err := io.Copy(w, pack); err != nil {
		return fmt.Errorf("bundle: copy packfile: %w", err)
	}
	return nil
}

// ReadBundle parses a bundle from r: the header line, the ref
// advertisement up to its flush packet, and the trailing packfile. The
// returned reader holds the complete, validated pack bytes; r is
// consumed in full.
func ReadBundle(r io.Reader) (map[string]string, io.Reader, error) {
	br := bufio.NewReader(r)

	headerLine, err := br.ReadString('\n')
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: read header: %w", err)
	}
	if headerLine != headerV2 && headerLine != headerV3 {
		return nil, nil, fmt.Errorf("bundle: unrecognized header %q", strings.TrimSpace(headerLine))
	}

	refs := map[string]string{}
	scanner := pktline.NewScanner(br)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			break // flush packet: end of ref advertisement
		}
		text := strings.TrimRight(string(line), "\n")
		sp := strings.IndexByte(text, ' ')
		if sp < 0 {
			return nil, nil, fmt.Errorf("bundle: malformed ref line %q", text)
		}
		refs[text[sp+1:]] = text[:sp]
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("bundle: scan ref advertisement: %w", err)
	}

	raw, err := io.ReadAll(br)
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: read packfile: %w", err)
	}
	if len(raw) > 0 {
		if _, _, err := packfile.NewScanner(bytes.NewReader(raw)).Header(); err != nil {
			return nil, nil, fmt.Errorf("bundle: invalid packfile: %w", err)
		}
	}

	return refs, bytes.NewReader(raw), nil
}
