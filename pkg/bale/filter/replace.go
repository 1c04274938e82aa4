package filter

import (
	"sort"
	"strings"
)

// ReplaceFilter substitutes literal tokens in each source's content at
// the input stage. It is compiler-class: the substitutions are part of
// the asset's meaning, so debug builds run it too.
type ReplaceFilter struct {
	pairs map[string]string
}

// NewReplace returns a replace filter over the given token map.
func NewReplace(pairs map[string]string) *ReplaceFilter {
	return &ReplaceFilter{pairs: pairs}
}

// NewReplaceFactory constructs the filter from registry options.
// Every option key is a token and its value the replacement.
func NewReplaceFactory(opts map[string]string) (Filter, error) {
	return NewReplace(opts), nil
}

// Name returns the registry identifier.
func (f *ReplaceFilter) Name() string { return "replace" }

// Fingerprint returns the configuration fingerprint.
func (f *ReplaceFilter) Fingerprint() string {
	return fingerprintOpts("replace", f.pairs)
}

// Input applies the substitutions to one source's content, in
// deterministic key order so overlapping tokens behave the same on
// every build.
func (f *ReplaceFilter) Input(content []byte, _ Source) ([]byte, error) {
	tokens := make([]string, 0, len(f.pairs))
	for token := range f.pairs {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	s := string(content)
	for _, token := range tokens {
		s = strings.ReplaceAll(s, token, f.pairs[token])
	}
	return []byte(s), nil
}
