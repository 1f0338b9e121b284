package objparse

import "strings"

// SparseFile is the parsed content of info/sparse-checkout: an ordered
// list of patterns as the file declares them, comments and blank lines
// dropped. Cone-mode detection and matching live in package sparse; this
// parser only turns bytes into pattern strings.
type SparseFile struct {
	Patterns []string
}

// DecodeSparseFile parses the raw bytes of info/sparse-checkout.
func DecodeSparseFile(content []byte) SparseFile {
	var sf SparseFile
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sf.Patterns = append(sf.Patterns, line)
	}
	return sf
}

// EncodeSparseFile serializes patterns back to info/sparse-checkout's
// one-pattern-per-line format.
func EncodeSparseFile(sf SparseFile) []byte {
	if len(sf.Patterns) == 0 {
		return nil
	}
	return []byte(strings.Join(sf.Patterns, "\n") + "\n")
}
