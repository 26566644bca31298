package google

import "slices"

// EqualScopes reports whether a and b hold the same set of scopes.
// Order and duplicates are ignored.
func EqualScopes(a, b []string) bool {
	return slices.Equal(normalizeScopes(a), normalizeScopes(b))
}

func normalizeScopes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
