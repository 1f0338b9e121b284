// Package config implements the four-scope configuration service:
// system and global scopes are discovered via XDG base directories and
// parsed directly; local and worktree scopes are delegated to whatever
// backend.GitBackend the caller is layering this service over, since
// only the backend knows where its own config files live. Precedence,
// low to high, is system < global < local < worktree.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	gitconfig "github.com/go-git/go-git/v5/plumbing/format/config"

	"github.com/awesome-os/portable-git/backend"
)

// Service merges the system/global scopes it owns with the local/
// worktree scopes exposed by a backend.GitBackend.
type Service struct {
	git backend.GitBackend

	// systemPaths/globalPaths are tried in order; the first that
	// exists is parsed and receives writes, and when none exists a
	// write creates the first entry. Defaulted from XDG base directories by New,
	// overridable (same-package tests only) for isolation from the
	// host's real configuration.
	systemPaths []string
	globalPaths []string

	mu     sync.Mutex
	system *gitconfig.Config
	global *gitconfig.Config
}

// New returns a Service layered over git's local/worktree scopes, with
// system/global scope files located the portable way via XDG base
// directories.
func New(git backend.GitBackend) *Service {
	return &Service{
		git:         git,
		systemPaths: defaultSystemPaths(),
		globalPaths: defaultGlobalPaths(),
	}
}

func defaultSystemPaths() []string {
	paths := make([]string, 0, len(xdg.ConfigDirs)+1)
	for _, dir := range xdg.ConfigDirs {
		paths = append(paths, filepath.Join(dir, "git", "config"))
	}
	return append(paths, "/etc/gitconfig")
}

func defaultGlobalPaths() []string {
	return []string{
		filepath.Join(xdg.ConfigHome, "git", "config"),
		filepath.Join(xdg.Home, ".gitconfig"),
	}
}

// Get returns the highest-precedence value set for key across all four
// scopes, or ("", false) if unset everywhere.
func (s *Service) Get(ctx context.Context, key backend.ConfigKey) (string, bool, error) {
	if v, ok, err := s.git.GetConfig(ctx, key); err != nil {
		return "", false, err
	} else if ok {
		return v, true, nil
	}

	global, err := s.loadScope(&s.global, s.globalPaths)
	if err != nil {
		return "", false, err
	}
	if v, ok := lastValue(options(global, key), key.Name); ok {
		return v, true, nil
	}

	system, err := s.loadScope(&s.system, s.systemPaths)
	if err != nil {
		return "", false, err
	}
	if v, ok := lastValue(options(system, key), key.Name); ok {
		return v, true, nil
	}

	return "", false, nil
}

// GetAll concatenates every value set for key across system, global,
// then local/worktree (ascending precedence), preserving each scope's
// own multi-value order — the same contract as backend.GitBackend's
// GetAllConfig, extended across all four scopes.
func (s *Service) GetAll(ctx context.Context, key backend.ConfigKey) ([]string, error) {
	var out []string

	system, err := s.loadScope(&s.system, s.systemPaths)
	if err != nil {
		return nil, err
	}
	out = append(out, valuesOf(options(system, key), key.Name)...)

	global, err := s.loadScope(&s.global, s.globalPaths)
	if err != nil {
		return nil, err
	}
	out = append(out, valuesOf(options(global, key), key.Name)...)

	rest, err := s.git.GetAllConfig(ctx, key)
	if err != nil {
		return nil, err
	}
	return append(out, rest...), nil
}

// Set writes value to key in scope. Local and worktree delegate to the
// backend; system and global are persisted to the first discovered (or,
// failing that, the default) scope file.
func (s *Service) Set(ctx context.Context, key backend.ConfigKey, value string, scope backend.ConfigScope, appendValue bool) error {
	switch scope {
	case backend.ScopeLocal, backend.ScopeWorktree:
		return s.git.SetConfig(ctx, key, value, scope, appendValue)
	case backend.ScopeGlobal:
		return s.setScopeFile(&s.global, s.globalPaths, key, value, appendValue)
	case backend.ScopeSystem:
		return s.setScopeFile(&s.system, s.systemPaths, key, value, appendValue)
	default:
		return fmt.Errorf("config: unknown scope %d", scope)
	}
}

// Sections returns every distinct section name declared across all four
// scopes.
func (s *Service) Sections(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}

	system, err := s.loadScope(&s.system, s.systemPaths)
	if err != nil {
		return nil, err
	}
	global, err := s.loadScope(&s.global, s.globalPaths)
	if err != nil {
		return nil, err
	}
	for _, cfg := range []*gitconfig.Config{system, global} {
		for _, sec := range cfg.Sections {
			seen[sec.Name] = struct{}{}
		}
	}

	names, err := s.git.GetConfigSections(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		seen[n] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return out, nil
}

func (s *Service) loadScope(cached **gitconfig.Config, paths []string) (*gitconfig.Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *cached != nil {
		return *cached, nil
	}
	cfg, _, err := loadFirstExisting(paths)
	if err != nil {
		return nil, err
	}
	*cached = cfg
	return cfg, nil
}

func (s *Service) setScopeFile(cached **gitconfig.Config, paths []string, key backend.ConfigKey, value string, appendValue bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := paths[0]
	loaded, foundPath, err := loadFirstExisting(paths)
	if err != nil {
		return err
	}
	if foundPath != "" {
		path = foundPath
	}
	cfg := *cached
	if cfg == nil {
		cfg = loaded
	}

	sec := cfg.Section(key.Section)
	if key.Subsection == "" {
		if appendValue {
			sec.AddOption(key.Name, value)
		} else {
			sec.SetOption(key.Name, value)
		}
	} else {
		sub := sec.Subsection(key.Subsection)
		if appendValue {
			sub.AddOption(key.Name, value)
		} else {
			sub.SetOption(key.Name, value)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	defer f.Close()
	if err := gitconfig.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}

	*cached = cfg
	return nil
}

// loadFirstExisting parses the first path in paths that exists, also
// returning that path (empty if none existed, in which case an empty
// Config is returned so callers can still query it).
func loadFirstExisting(paths []string) (*gitconfig.Config, string, error) {
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, "", fmt.Errorf("config: open %s: %w", p, err)
		}
		defer f.Close()
		cfg := gitconfig.New()
		if err := gitconfig.NewDecoder(f).Decode(cfg); err != nil {
			return nil, "", fmt.Errorf("config: parse %s: %w", p, err)
		}
		return cfg, p, nil
	}
	return gitconfig.New(), "", nil
}

func options(cfg *gitconfig.Config, key backend.ConfigKey) gitconfig.Options {
	sec := cfg.Section(key.Section)
	if key.Subsection == "" {
		return sec.Options
	}
	return sec.Subsection(key.Subsection).Options
}

func lastValue(opts gitconfig.Options, name string) (string, bool) {
	val, found := "", false
	for _, opt := range opts {
		if strings.EqualFold(opt.Key, name) {
			val, found = opt.Value, true
		}
	}
	return val, found
}

func valuesOf(opts gitconfig.Options, name string) []string {
	var out []string
	for _, opt := range opts {
		if strings.EqualFold(opt.Key, name) {
			out = append(out, opt.Value)
		}
	}
	return out
}
