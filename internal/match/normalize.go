package match

import (
	"strings"
	"unicode"
)

// NormalizeIdent normalizes an identifier for loose matching.
// Case is folded to lower and the separators _, - and space are dropped, so
// snake_case, kebab-case and CamelCase spellings of one name collide.
func NormalizeIdent(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if isSeparator(r) {
			continue
		}

		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// isSeparator returns true if the rune is a common separator.
func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' '
}

// Index resolves external labels (column names, parameter names) to a fixed
// set of property names.
type Index struct {
	exact      map[string]struct{}
	normalized map[string][]string
}

// NewIndex builds an Index over names.
func NewIndex(names []string) *Index {
	idx := &Index{
		exact:      make(map[string]struct{}, len(names)),
		normalized: make(map[string][]string, len(names)),
	}

	for _, n := range names {
		idx.exact[n] = struct{}{}
		key := NormalizeIdent(n)
		idx.normalized[key] = append(idx.normalized[key], n)
	}

	return idx
}

// Lookup returns the property matching label. An exact match wins; otherwise
// the normalized form must identify exactly one property.
func (idx *Index) Lookup(label string) (string, bool) {
	if _, ok := idx.exact[label]; ok {
		return label, true
	}

	candidates := idx.normalized[NormalizeIdent(label)]
	if len(candidates) != 1 {
		return "", false
	}

	return candidates[0], true
}
