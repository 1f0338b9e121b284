// Package sparse implements the cone-mode and non-cone-mode
// sparse-checkout pattern matcher. It is deliberately independent of any
// I/O: both the checkout engine's tree walk and the worker pool's
// discovery phase share the same pure Matcher.
package sparse

import (
	"path"
	"strings"
)

// Matcher decides whether a repo-root-relative path is included under a
// sparse-checkout pattern set.
type Matcher struct {
	active bool // false when sparse-checkout is not enabled: everything matches.
	cone   bool

	// Cone mode: directory prefixes, normalized with a trailing slash,
	// split into inclusion and exclusion sets.
	coneInclude []string
	coneExclude []string
	rootStar    bool // "/*" or "*" named as an inclusion: root files included.

	// Non-cone mode: raw gitignore-style patterns in file order, each
	// tagged negated or not, preserving declaration order for override
	// semantics.
	rules []rule
}

type rule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
}

// New builds a Matcher from the patterns recorded in info/sparse-checkout
// (see objparse.DecodeSparseFile), interpreted under cone or non-cone
// semantics.
func New(patterns []string, cone bool) *Matcher {
	m := &Matcher{active: len(patterns) > 0, cone: cone}
	if cone {
		m.buildCone(patterns)
	} else {
		m.buildNonCone(patterns)
	}
	return m
}

func (m *Matcher) buildCone(patterns []string) {
	for _, p := range patterns {
		negated := strings.HasPrefix(p, "!")
		if negated {
			p = p[1:]
		}
		p = strings.TrimPrefix(p, "/")

		if p == "*" {
			m.rootStar = true
			continue
		}

		norm := p
		if !strings.HasSuffix(norm, "/") {
			norm += "/"
		}
		if negated {
			m.coneExclude = append(m.coneExclude, norm)
		} else {
			m.coneInclude = append(m.coneInclude, norm)
		}
	}
}

func (m *Matcher) buildNonCone(patterns []string) {
	for _, p := range patterns {
		negated := strings.HasPrefix(p, "!")
		if negated {
			p = p[1:]
		}
		dirOnly := strings.HasSuffix(p, "/")
		p = strings.TrimSuffix(p, "/")
		anchored := strings.Contains(p, "/")
		p = strings.TrimPrefix(p, "/")

		m.rules = append(m.rules, rule{pattern: p, negated: negated, dirOnly: dirOnly, anchored: anchored})
	}
}

// Match reports whether p (repo-root-relative, forward-slashed, no
// leading slash) is included. isDir tells the matcher whether p itself
// names a directory, which affects non-cone dirOnly patterns and cone
// mode's root-level-file exclusion.
func (m *Matcher) Match(p string, isDir bool) bool {
	if !m.active {
		return true
	}
	p = strings.TrimPrefix(p, "/")
	if m.cone {
		return m.matchCone(p, isDir)
	}
	return m.matchNonCone(p, isDir)
}

func (m *Matcher) matchCone(p string, isDir bool) bool {
	if p == "" {
		return true
	}

	// "/*"/"*" only pulls in root-level files; root-level directories
	// still need their own cone pattern (or to be a strict ancestor of
	// one) to be considered included.
	included := m.rootStar && !isDir && !strings.Contains(p, "/")
	for _, inc := range m.coneInclude {
		dir := strings.TrimSuffix(inc, "/")
		switch {
		case p == dir:
			included = true
		case strings.HasPrefix(p, inc):
			included = true
		case isDir && strings.HasPrefix(dir, p+"/"):
			// p is a strict ancestor directory of inc; must be walkable
			// so the matcher can descend into it later.
			included = true
		}
	}
	if !included {
		return false
	}
	for _, exc := range m.coneExclude {
		dir := strings.TrimSuffix(exc, "/")
		if p == dir || strings.HasPrefix(p, exc) {
			return false
		}
	}
	return true
}

func (m *Matcher) matchNonCone(p string, isDir bool) bool {
	if p == "" {
		return true
	}
	// Git's sparse-checkout convention: top-level files are always
	// included unless an explicit negative pattern names them.
	included := !strings.Contains(p, "/")

	for _, r := range m.rules {
		if r.matches(p, isDir) {
			included = !r.negated
		}
	}
	return included
}

// matches implements a gitignore-subset glob: "*" within a path segment,
// "**" spanning segments, and literal segments otherwise. Directory
// patterns (dirOnly) additionally match any path nested under them.
func (r rule) matches(p string, isDir bool) bool {
	if r.dirOnly {
		if p == r.pattern {
			return isDir
		}
		return strings.HasPrefix(p, r.pattern+"/")
	}
	if r.anchored {
		return globMatch(r.pattern, p)
	}
	// Unanchored: match against the path itself or any suffix starting
	// at a segment boundary.
	if globMatch(r.pattern, p) {
		return true
	}
	segs := strings.Split(p, "/")
	for i := 1; i < len(segs); i++ {
		if globMatch(r.pattern, strings.Join(segs[i:], "/")) {
			return true
		}
	}
	return false
}

// globMatch supports "**" (any number of segments, including zero) and
// single-segment "*"/"?" wildcards via path.Match per segment.
func globMatch(pattern, name string) bool {
	if !strings.Contains(pattern, "**") {
		ok, err := path.Match(pattern, name)
		return err == nil && ok
	}
	pParts := strings.Split(pattern, "/")
	nParts := strings.Split(name, "/")
	return matchSegments(pParts, nParts)
}

func matchSegments(pattern, name []string) bool {
	if len(pattern) == 0 {
		return len(name) == 0
	}
	if pattern[0] == "**" {
		if matchSegments(pattern[1:], name) {
			return true
		}
		if len(name) == 0 {
			return false
		}
		return matchSegments(pattern, name[1:])
	}
	if len(name) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], name[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], name[1:])
}
