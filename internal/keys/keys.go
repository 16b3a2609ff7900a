package keys

import (
	"strings"
)

// Normalize produces the canonical form of a reference id (species, move or
// item). It trims, lower-cases and replaces spaces and dashes with
// underscores, so "Thunder Shock" and "thunder-shock" resolve to the same
// entry.
func Normalize(id string) string {
	s := strings.TrimSpace(id)
	s = strings.ToLower(s)
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// Join builds a composite key from parts, normalizing each one and skipping
// empty parts. Used for singleflight and cache keys ("move:tackle").
func Join(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		n := Normalize(p)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	return strings.Join(out, ":")
}
