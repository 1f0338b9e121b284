// Package fsgit is the default, filesystem-backed GitBackend
// implementation. It is a thin adapter over go-git's object/ref/index
// storage machinery (github.com/go-git/go-git/v5/storage/filesystem),
// grounded in the same wrapping idiom the rest of this module uses for
// go-git: the heavy lifting (pack reading, zlib, SHA hashing) is
// go-git's; this package only exposes it through the opaque GitBackend
// contract so checkout/sparse/stash/workerpool never need to know which
// storage engine is behind it. Index bytes are read/written raw here and
// decoded elsewhere (objparse), per the opaque-bytes contract in
// backend.GitBackend; the local config file is decoded here with go-git's
// config-file codec.
package fsgit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-billy/v5"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/storage/filesystem"

	"github.com/awesome-os/portable-git/backend"
)

// errNoPath marks a lookup (gitdir, ref expansion) that found nothing.
var errNoPath = errors.New("fsgit: no such path")

// Backend is the default GitBackend, backed by a go-git filesystem
// Storage rooted at a go-billy filesystem (OS-backed or in-memory).
// The filesystem root is the gitdir itself (e.g. ".git" for a non-bare
// repository), matching internal/fsbridge.NewStorage's chroot.
type Backend struct {
	mu      sync.Mutex
	storage *filesystem.Storage
	fs      billy.Filesystem
	gitdir  string

	cfgCached *gitconfig.Config
}

// New wraps an existing go-git filesystem Storage and the go-billy
// filesystem it was chrooted to, as produced by internal/fsbridge.
func New(storage *filesystem.Storage, fs billy.Filesystem, gitdir string) *Backend {
	return &Backend{storage: storage, fs: fs, gitdir: gitdir}
}

var _ backend.GitBackend = (*Backend)(nil)

// Storage exposes the underlying go-git filesystem storage directly, for
// collaborators (the remote package's transport backend) that need to
// drive go-git's own network/pack machinery against the exact same
// object store this Backend reads and writes through the opaque
// GitBackend contract.
func (b *Backend) Storage() *filesystem.Storage {
	return b.storage
}

// Gitdir implements backend.GitBackend.
func (b *Backend) Gitdir(context.Context) (string, error) {
	if b.gitdir == "" {
		return "", fmt.Errorf("fsgit: %w: gitdir", errNoPath)
	}
	return b.gitdir, nil
}

// ObjectFormat implements backend.GitBackend. The hash algorithm is
// discovered from extensions.objectformat in local config; its absence
// means SHA-1 (Git's default before the SHA-256 transition).
func (b *Backend) ObjectFormat(ctx context.Context) (backend.ObjectFormat, error) {
	val, ok, err := b.GetConfig(ctx, backend.ConfigKey{Section: "extensions", Name: "objectformat"})
	if err != nil {
		return "", err
	}
	if ok && strings.EqualFold(val, "sha256") {
		return backend.ObjectFormatSHA256, nil
	}
	return backend.ObjectFormatSHA1, nil
}

func mapType(k backend.ObjectKind) plumbing.ObjectType {
	switch k {
	case backend.ObjectCommit:
		return plumbing.CommitObject
	case backend.ObjectTree:
		return plumbing.TreeObject
	case backend.ObjectBlob:
		return plumbing.BlobObject
	case backend.ObjectTag:
		return plumbing.TagObject
	default:
		return plumbing.InvalidObject
	}
}

func mapKind(t plumbing.ObjectType) backend.ObjectKind {
	switch t {
	case plumbing.CommitObject:
		return backend.ObjectCommit
	case plumbing.TreeObject:
		return backend.ObjectTree
	case plumbing.TagObject:
		return backend.ObjectTag
	default:
		return backend.ObjectBlob
	}
}

// ReadObject implements backend.GitBackend.
func (b *Backend) ReadObject(_ context.Context, oid string, form backend.ObjectForm) (backend.Object, error) {
	hash := plumbing.NewHash(oid)
	obj, err := b.storage.EncodedObject(plumbing.AnyObject, hash)
	if err != nil {
		return backend.Object{}, fmt.Errorf("fsgit: read object %s: %w", oid, err)
	}
	rd, err := obj.Reader()
	if err != nil {
		return backend.Object{}, fmt.Errorf("fsgit: open object reader %s: %w", oid, err)
	}
	defer rd.Close()

	content, err := io.ReadAll(rd)
	if err != nil {
		return backend.Object{}, fmt.Errorf("fsgit: read object content %s: %w", oid, err)
	}

	kind := mapKind(obj.Type())
	if form == backend.FormRaw {
		header := fmt.Sprintf("%s %d\x00", kind.String(), len(content))
		content = append([]byte(header), content...)
	}
	return backend.Object{Kind: kind, Bytes: content}, nil
}

// WriteObject implements backend.GitBackend.
func (b *Backend) WriteObject(_ context.Context, kind backend.ObjectKind, content []byte) (string, error) {
	obj := b.storage.NewEncodedObject()
	obj.SetType(mapType(kind))
	obj.SetSize(int64(len(content)))

	w, err := obj.Writer()
	if err != nil {
		return "", fmt.Errorf("fsgit: open object writer: %w", err)
	}
	if _, err := w.Write(content); err != nil {
		w.Close()
		return "", fmt.Errorf("fsgit: write object content: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("fsgit: close object writer: %w", err)
	}

	hash, err := b.storage.SetEncodedObject(obj)
	if err != nil {
		return "", fmt.Errorf("fsgit: store object: %w", err)
	}
	return hash.String(), nil
}

// HasObject implements backend.GitBackend.
func (b *Backend) HasObject(_ context.Context, oid string) (bool, error) {
	hash := plumbing.NewHash(oid)
	_, err := b.storage.EncodedObject(plumbing.AnyObject, hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("fsgit: has object %s: %w", oid, err)
	}
	return true, nil
}

// openRepo wraps the backend's storage in an ephemeral, worktree-less
// go-git Repository so revision parsing (HEAD, short hashes, ancestry
// operators like HEAD~1) can reuse go-git's own resolver instead of
// reimplementing it.
func (b *Backend) openRepo() (*gogit.Repository, error) {
	repo, err := gogit.Open(b.storage, nil)
	if err != nil {
		return nil, fmt.Errorf("fsgit: open backing repository: %w", err)
	}
	return repo, nil
}

// ResolveRef implements backend.GitBackend.
func (b *Backend) ResolveRef(_ context.Context, name string) (string, error) {
	repo, err := b.openRepo()
	if err != nil {
		return "", err
	}
	hash, err := repo.ResolveRevision(plumbing.Revision(name))
	if err != nil {
		return "", fmt.Errorf("fsgit: resolve ref %q: %w", name, err)
	}
	return hash.String(), nil
}

// ExpandRef implements backend.GitBackend.
func (b *Backend) ExpandRef(_ context.Context, name string) (string, error) {
	if strings.HasPrefix(name, "refs/") || name == "HEAD" {
		return name, nil
	}
	candidates := []string{
		"refs/heads/" + name,
		"refs/tags/" + name,
		"refs/remotes/" + name,
	}
	for _, c := range candidates {
		if _, err := b.storage.Reference(plumbing.ReferenceName(c)); err == nil {
			return c, nil
		}
	}
	return "", fmt.Errorf("fsgit: expand ref %q: %w", name, errNoPath)
}

// ReadSymbolicRef implements backend.GitBackend.
func (b *Backend) ReadSymbolicRef(_ context.Context, name string) (string, error) {
	ref, err := b.storage.Reference(plumbing.ReferenceName(name))
	if err != nil {
		return "", fmt.Errorf("fsgit: read symbolic ref %q: %w", name, err)
	}
	if ref.Type() != plumbing.SymbolicReference {
		return "", fmt.Errorf("fsgit: ref %q is not symbolic", name)
	}
	return ref.Target().String(), nil
}

// WriteRef implements backend.GitBackend.
func (b *Backend) WriteRef(_ context.Context, name, oid string) error {
	ref := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(oid))
	if err := b.storage.SetReference(ref); err != nil {
		return fmt.Errorf("fsgit: write ref %q: %w", name, err)
	}
	return nil
}

// WriteSymbolicRef implements backend.GitBackend.
func (b *Backend) WriteSymbolicRef(_ context.Context, name, target string) error {
	ref := plumbing.NewSymbolicReference(plumbing.ReferenceName(name), plumbing.ReferenceName(target))
	if err := b.storage.SetReference(ref); err != nil {
		return fmt.Errorf("fsgit: write symbolic ref %q: %w", name, err)
	}
	return nil
}

// ListRefs implements backend.GitBackend.
func (b *Backend) ListRefs(_ context.Context, prefix string) (map[string]string, error) {
	iter, err := b.storage.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("fsgit: list refs: %w", err)
	}
	defer iter.Close()

	out := make(map[string]string)
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			return nil
		}
		if ref.Type() == plumbing.HashReference {
			out[name] = ref.Hash().String()
			return nil
		}
		// Resolve a bounded chain of symbolic refs.
		target := ref
		for i := 0; i < 10 && target.Type() == plumbing.SymbolicReference; i++ {
			next, rerr := b.storage.Reference(target.Target())
			if rerr != nil {
				return nil
			}
			target = next
		}
		if target.Type() == plumbing.HashReference {
			out[name] = target.Hash().String()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fsgit: list refs: %w", err)
	}
	return out, nil
}

// DeleteRef implements backend.GitBackend.
func (b *Backend) DeleteRef(_ context.Context, name string) error {
	if err := b.storage.RemoveReference(plumbing.ReferenceName(name)); err != nil {
		return fmt.Errorf("fsgit: delete ref %q: %w", name, err)
	}
	return nil
}

// AppendReflog implements backend.GitBackend. Reflogs are a small,
// independent append-only format (spec: "<old> <new> <who> <ts> <tz>\t<msg>\n")
// that go-git's Storer interface does not expose generically, so this
// writes the log file directly through the chrooted go-billy filesystem.
func (b *Backend) AppendReflog(_ context.Context, name string, entry backend.ReflogEntry) error {
	path := "logs/" + name
	if dir := parentDir(path); dir != "" {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("fsgit: mkdir reflog dir for %q: %w", name, err)
		}
	}
	f, err := b.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("fsgit: open reflog %q: %w", name, err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s %s %s %d %s\t%s\n",
		entry.OldOID, entry.NewOID, entry.Who, entry.When, entry.TZOffset, entry.Message)
	if _, err := f.Write([]byte(line)); err != nil {
		return fmt.Errorf("fsgit: append reflog %q: %w", name, err)
	}
	return nil
}

// ReadReflog reads name's reflog file and returns its entries
// newest-first (the file itself is append-only, oldest line first, to
// match AppendReflog and real Git's on-disk convention). A missing
// reflog file reads as an empty slice.
func (b *Backend) ReadReflog(_ context.Context, name string) ([]backend.ReflogEntry, error) {
	f, err := b.fs.Open("logs/" + name)
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fsgit: read reflog %q: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("fsgit: read reflog %q: %w", name, err)
	}

	var entries []backend.ReflogEntry
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if line == "" {
			continue
		}
		e, err := parseReflogLine(line)
		if err != nil {
			return nil, fmt.Errorf("fsgit: parse reflog %q: %w", name, err)
		}
		entries = append(entries, e)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// WriteReflog replaces name's reflog file wholesale from entries given
// newest-first, writing them back out oldest-first.
func (b *Backend) WriteReflog(_ context.Context, name string, entries []backend.ReflogEntry) error {
	path := "logs/" + name
	if len(entries) == 0 {
		_ = b.fs.Remove(path)
		return nil
	}
	if dir := parentDir(path); dir != "" {
		if err := b.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("fsgit: mkdir reflog dir for %q: %w", name, err)
		}
	}
	f, err := b.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("fsgit: open reflog %q: %w", name, err)
	}
	defer f.Close()

	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		line := fmt.Sprintf("%s %s %s %d %s\t%s\n", e.OldOID, e.NewOID, e.Who, e.When, e.TZOffset, e.Message)
		if _, err := f.Write([]byte(line)); err != nil {
			return fmt.Errorf("fsgit: write reflog %q: %w", name, err)
		}
	}
	return nil
}

func parseReflogLine(line string) (backend.ReflogEntry, error) {
	tab := strings.IndexByte(line, '\t')
	if tab < 0 {
		return backend.ReflogEntry{}, fmt.Errorf("malformed reflog line %q", line)
	}
	// Who (e.g. "Name <email>") may itself contain spaces, so only the
	// first two and last two whitespace-delimited fields are fixed
	// width; everything between them is Who.
	fields := strings.Fields(line[:tab])
	if len(fields) < 5 {
		return backend.ReflogEntry{}, fmt.Errorf("malformed reflog line %q", line)
	}
	oldOID, newOID := fields[0], fields[1]
	tzOffset := fields[len(fields)-1]
	when := fields[len(fields)-2]
	who := strings.Join(fields[2:len(fields)-2], " ")

	var whenSec int64
	if _, err := fmt.Sscanf(when, "%d", &whenSec); err != nil {
		return backend.ReflogEntry{}, fmt.Errorf("malformed reflog timestamp %q: %w", when, err)
	}
	return backend.ReflogEntry{
		OldOID:   oldOID,
		NewOID:   newOID,
		Who:      who,
		When:     whenSec,
		TZOffset: tzOffset,
		Message:  line[tab+1:],
	}, nil
}

// ReadIndex implements backend.GitBackend. Bytes are opaque; decoding is
// left to the index codec used by package checkout.
func (b *Backend) ReadIndex(context.Context) ([]byte, error) {
	f, err := b.fs.Open("index")
	if err != nil {
		if isNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fsgit: read index: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("fsgit: read index: %w", err)
	}
	return data, nil
}

// WriteIndex implements backend.GitBackend.
func (b *Backend) WriteIndex(_ context.Context, raw []byte) error {
	f, err := b.fs.Create("index")
	if err != nil {
		return fmt.Errorf("fsgit: write index: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(raw); err != nil {
		return fmt.Errorf("fsgit: write index: %w", err)
	}
	return nil
}

// loadConfig decodes the local "config" file, caching the result until
// ReloadConfig is called.
func (b *Backend) loadConfig() (*gitconfig.Config, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfgCached != nil {
		return b.cfgCached, nil
	}

	cfg := gitconfig.New()
	f, err := b.fs.Open("config")
	if err != nil {
		if isNotExist(err) {
			b.cfgCached = cfg
			return cfg, nil
		}
		return nil, fmt.Errorf("fsgit: open config: %w", err)
	}
	defer f.Close()

	if err := gitconfig.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("fsgit: parse config: %w", err)
	}
	b.cfgCached = cfg
	return cfg, nil
}

func (b *Backend) saveConfig(cfg *gitconfig.Config) error {
	f, err := b.fs.Create("config")
	if err != nil {
		return fmt.Errorf("fsgit: write config: %w", err)
	}
	defer f.Close()
	if err := gitconfig.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("fsgit: marshal config: %w", err)
	}

	b.mu.Lock()
	b.cfgCached = cfg
	b.mu.Unlock()
	return nil
}

// options returns the option slice for key's section/subsection, without
// materializing a spurious subsection named "" for section-level
// (no subsection) keys.
func options(cfg *gitconfig.Config, key backend.ConfigKey) gitconfig.Options {
	s := cfg.Section(key.Section)
	if key.Subsection == "" {
		return s.Options
	}
	return s.Subsection(key.Subsection).Options
}

// GetConfig implements backend.GitBackend for the local/worktree scopes;
// system/global scope merging happens one layer up, in package config.
func (b *Backend) GetConfig(_ context.Context, key backend.ConfigKey) (string, bool, error) {
	cfg, err := b.loadConfig()
	if err != nil {
		return "", false, err
	}
	// Last-declared value wins, matching Git's own multi-valued-key
	// precedence within a single file.
	found := false
	val := ""
	for _, opt := range options(cfg, key) {
		if strings.EqualFold(opt.Key, key.Name) {
			val, found = opt.Value, true
		}
	}
	return val, found, nil
}

// GetAllConfig implements backend.GitBackend.
func (b *Backend) GetAllConfig(_ context.Context, key backend.ConfigKey) ([]string, error) {
	cfg, err := b.loadConfig()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, opt := range options(cfg, key) {
		if strings.EqualFold(opt.Key, key.Name) {
			out = append(out, opt.Value)
		}
	}
	return out, nil
}

// SetConfig implements backend.GitBackend. Scope is accepted for
// interface symmetry with package config; the filesystem backend itself
// only persists one file (local), matching this module's simplification
// that a worktree shares its repository's configuration unless a
// higher layer (package config) overrides it.
func (b *Backend) SetConfig(_ context.Context, key backend.ConfigKey, value string, _ backend.ConfigScope, appendValue bool) error {
	cfg, err := b.loadConfig()
	if err != nil {
		return err
	}
	s := cfg.Section(key.Section)
	if key.Subsection == "" {
		if appendValue {
			s.AddOption(key.Name, value)
		} else {
			s.SetOption(key.Name, value)
		}
	} else {
		sub := s.Subsection(key.Subsection)
		if appendValue {
			sub.AddOption(key.Name, value)
		} else {
			sub.SetOption(key.Name, value)
		}
	}
	return b.saveConfig(cfg)
}

// GetConfigSubsections implements backend.GitBackend.
func (b *Backend) GetConfigSubsections(_ context.Context, section string) ([]string, error) {
	cfg, err := b.loadConfig()
	if err != nil {
		return nil, err
	}
	s := cfg.Section(section)
	names := make([]string, 0, len(s.Subsections))
	for _, sub := range s.Subsections {
		names = append(names, sub.Name)
	}
	sort.Strings(names)
	return names, nil
}

// GetConfigSections implements backend.GitBackend.
func (b *Backend) GetConfigSections(_ context.Context) ([]string, error) {
	cfg, err := b.loadConfig()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cfg.Sections))
	for _, s := range cfg.Sections {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names, nil
}

// ReloadConfig implements backend.GitBackend.
func (b *Backend) ReloadConfig(context.Context) error {
	b.mu.Lock()
	b.cfgCached = nil
	b.mu.Unlock()
	return nil
}

func parentDir(path string) string {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	return os.IsNotExist(err) || strings.Contains(err.Error(), "not exist") || errors.Is(err, os.ErrNotExist)
}
