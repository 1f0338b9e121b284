package sparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConeModeBasics(t *testing.T) {
	m := New([]string{"/*", "/src/", "!/src/vendor/"}, true)

	assert.True(t, m.Match("README.md", false), "root files included via /*")
	assert.True(t, m.Match("src", true), "inclusion root itself included")
	assert.True(t, m.Match("src/main.go", false), "file under included cone")
	assert.False(t, m.Match("src/vendor/dep.go", false), "excluded sub-cone")
	assert.False(t, m.Match("docs/readme.md", false), "not under any cone")
	assert.True(t, m.Match("", true), "repo root always included")
}

func TestConeModeAncestorWalkable(t *testing.T) {
	m := New([]string{"/a/b/c/"}, true)
	assert.True(t, m.Match("a", true), "strict ancestor directory must be walkable")
	assert.True(t, m.Match("a/b", true), "strict ancestor directory must be walkable")
	assert.True(t, m.Match("a/b/c", true))
	assert.True(t, m.Match("a/b/c/d.txt", false))
	assert.False(t, m.Match("a/x", true))
}

func TestNonConeTopLevelFilesDefaultIncluded(t *testing.T) {
	m := New([]string{"/src/"}, false)
	assert.True(t, m.Match("README.md", false), "top-level files included by default")
	assert.False(t, m.Match("other/file.go", false))
	assert.True(t, m.Match("src/main.go", false))
}

func TestNonConeExplicitExclusionOfTopLevelFile(t *testing.T) {
	m := New([]string{"!/README.md"}, false)
	assert.False(t, m.Match("README.md", false))
	assert.True(t, m.Match("other.txt", false))
}

func TestNonConeRecursiveDirectoryPattern(t *testing.T) {
	m := New([]string{"docs/"}, false)
	assert.True(t, m.Match("docs/guide/intro.md", false))
	assert.False(t, m.Match("nope/guide.md", false))
}

func TestNonConeDoubleStarGlob(t *testing.T) {
	m := New([]string{"**/*.go"}, false)
	assert.True(t, m.Match("a/b/c.go", false))
	assert.True(t, m.Match("c.go", false), "top-level files are included by default regardless of pattern match")
	assert.False(t, m.Match("a/b/c.txt", false), "nested path not matching any inclusion pattern is excluded")
}
