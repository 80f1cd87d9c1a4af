// Package filter selects the workspaces a dump covers.
package filter

import (
	"sort"
	"strings"

	"github.com/ALT-F4-LLC/rallydump/internal/model"
)

// ToStringSet converts a slice of strings to a set for O(1) membership checks.
// Keys are trimmed and lower-cased; blank entries are dropped.
func ToStringSet(ss []string) map[string]struct{} {
	if len(ss) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		key := normalize(s)
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Workspaces selects workspaces by name, ignoring case and surrounding
// whitespace. A zero or empty Workspaces selects everything.
type Workspaces struct {
	names   map[string]struct{}
	matched map[string]struct{}
}

// NewWorkspaces returns a selector for the given names.
func NewWorkspaces(names []string) *Workspaces {
	return &Workspaces{
		names:   ToStringSet(names),
		matched: make(map[string]struct{}),
	}
}

// Empty reports whether the selector lets every workspace through.
func (f *Workspaces) Empty() bool {
	return f == nil || len(f.names) == 0
}

// Allows reports whether ws is selected and remembers the match.
func (f *Workspaces) Allows(ws model.Workspace) bool {
	if f.Empty() {
		return true
	}
	key := normalize(ws.Name)
	if _, ok := f.names[key]; !ok {
		return false
	}
	if f.matched == nil {
		f.matched = make(map[string]struct{})
	}
	f.matched[key] = struct{}{}
	return true
}

// Unmatched returns the requested names no workspace matched so far, sorted.
func (f *Workspaces) Unmatched() []string {
	if f.Empty() {
		return nil
	}
	var out []string
	for name := range f.names {
		if _, ok := f.matched[name]; !ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
