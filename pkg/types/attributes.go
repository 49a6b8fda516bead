package types

import (
	"sort"
	"strings"
)

// JSONMap is a free-form JSON object column.
type JSONMap map[string]any

// AttributeSet holds a variant's name/value pairs, e.g. {"color": "black"}.
type AttributeSet map[string]string

// Fingerprint returns a canonical representation of the set, used to enforce
// uniqueness of attribute combinations within a product.
func (s AttributeSet) Fingerprint() string {
	if len(s) == 0 {
		return ""
	}
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(strings.ToLower(strings.TrimSpace(k)))
		b.WriteByte('=')
		b.WriteString(strings.ToLower(strings.TrimSpace(s[k])))
	}
	return b.String()
}
