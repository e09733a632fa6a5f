package webhook

import (
	"sort"
	"strings"
)

// stringSet accumulates unique file paths across the commits of one push.
type stringSet map[string]struct{}

func newStringSet() stringSet {
	return make(stringSet)
}

func (s stringSet) add(paths ...string) {
	for _, p := range paths {
		if p != "" {
			s[p] = struct{}{}
		}
	}
}

func (s stringSet) remove(paths ...string) {
	for _, p := range paths {
		delete(s, p)
	}
}

// values returns the members sorted, so normalized events are deterministic.
func (s stringSet) values() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func trimRefPrefix(ref string) string {
	return strings.TrimPrefix(ref, "refs/heads/")
}
