package objparse

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Signature is a commit or tag author/committer line: name, email, and a
// Unix timestamp with its UTC offset in Git's "+hhmm"/"-hhmm" form.
type Signature struct {
	Name     string
	Email    string
	When     int64
	TZOffset string
}

func (s Signature) encode() string {
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.When, s.TZOffset)
}

func decodeSignature(line string) (Signature, error) {
	lt := strings.IndexByte(line, '<')
	gt := strings.IndexByte(line, '>')
	if lt < 0 || gt < 0 || gt < lt {
		return Signature{}, fmt.Errorf("objparse: malformed signature %q", line)
	}
	name := strings.TrimSpace(line[:lt])
	email := line[lt+1 : gt]
	rest := strings.Fields(line[gt+1:])
	if len(rest) != 2 {
		return Signature{}, fmt.Errorf("objparse: malformed signature timestamp %q", line)
	}
	when, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return Signature{}, fmt.Errorf("objparse: malformed signature timestamp %q: %w", line, err)
	}
	return Signature{Name: name, Email: email, When: when, TZOffset: rest[1]}, nil
}

// Commit is a parsed commit object. Extra holds any header the format
// doesn't otherwise model (e.g. "gpgsig", "mergetag"), preserving order
// and exact text so re-encoding is lossless.
type Commit struct {
	Tree      string
	Parents   []string
	Author    Signature
	Committer Signature
	Extra     []HeaderLine
	Message   string
}

// HeaderLine is a preserved, not-otherwise-modeled commit/tag header.
// Continuation lines (those Git indents with a single space) are joined
// into Value with embedded newlines.
type HeaderLine struct {
	Key   string
	Value string
}

// DecodeCommit parses a commit object's content (header already stripped).
func DecodeCommit(content []byte) (Commit, error) {
	text := string(content)
	headerPart, message, found := strings.Cut(text, "\n\n")
	if !found {
		headerPart, message = text, ""
	}

	var c Commit
	lines := strings.Split(headerPart, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, " ") {
			// Continuation of the previous header; only Extra carries these.
			if n := len(c.Extra); n > 0 {
				c.Extra[n-1].Value += "\n" + strings.TrimPrefix(line, " ")
			}
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return Commit{}, fmt.Errorf("objparse: commit: malformed header %q", line)
		}
		switch key {
		case "tree":
			c.Tree = value
		case "parent":
			c.Parents = append(c.Parents, value)
		case "author":
			sig, err := decodeSignature(value)
			if err != nil {
				return Commit{}, err
			}
			c.Author = sig
		case "committer":
			sig, err := decodeSignature(value)
			if err != nil {
				return Commit{}, err
			}
			c.Committer = sig
		default:
			c.Extra = append(c.Extra, HeaderLine{Key: key, Value: value})
		}
	}
	c.Message = message
	return c, nil
}

// EncodeCommit serializes a Commit back to object content, in the header
// order Git itself writes: tree, parent(s), author, committer, any
// preserved extra headers, a blank line, then the message.
func EncodeCommit(c Commit) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree)
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p)
	}
	fmt.Fprintf(&buf, "author %s\n", c.Author.encode())
	fmt.Fprintf(&buf, "committer %s\n", c.Committer.encode())
	for _, h := range c.Extra {
		buf.WriteString(h.Key)
		buf.WriteByte(' ')
		buf.WriteString(strings.ReplaceAll(h.Value, "\n", "\n "))
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// Tag is a parsed annotated tag object.
type Tag struct {
	Object  string
	Type    string
	TagName string
	Tagger  Signature
	Extra   []HeaderLine
	Message string
}

// DecodeTag parses an annotated tag object's content.
func DecodeTag(content []byte) (Tag, error) {
	text := string(content)
	headerPart, message, found := strings.Cut(text, "\n\n")
	if !found {
		headerPart, message = text, ""
	}

	var t Tag
	for _, line := range strings.Split(headerPart, "\n") {
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, " ")
		if !ok {
			return Tag{}, fmt.Errorf("objparse: tag: malformed header %q", line)
		}
		switch key {
		case "object":
			t.Object = value
		case "type":
			t.Type = value
		case "tag":
			t.TagName = value
		case "tagger":
			sig, err := decodeSignature(value)
			if err != nil {
				return Tag{}, err
			}
			t.Tagger = sig
		default:
			t.Extra = append(t.Extra, HeaderLine{Key: key, Value: value})
		}
	}
	t.Message = message
	return t, nil
}

// EncodeTag serializes a Tag back to object content.
func EncodeTag(t Tag) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "object %s\n", t.Object)
	fmt.Fprintf(&buf, "type %s\n", t.Type)
	fmt.Fprintf(&buf, "tag %s\n", t.TagName)
	fmt.Fprintf(&buf, "tagger %s\n", t.Tagger.encode())
	for _, h := range t.Extra {
		fmt.Fprintf(&buf, "%s %s\n", h.Key, h.Value)
	}
	buf.WriteByte('\n')
	buf.WriteString(t.Message)
	return buf.Bytes()
}
