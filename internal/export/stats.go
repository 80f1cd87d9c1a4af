package export

import (
	"sort"

	"github.com/ALT-F4-LLC/rallydump/internal/layout"
)

// Stats accumulates counters across a whole dump run. Bytes is the sum of the
// sizes Rally declares for each attachment, not the decoded byte count.
type Stats struct {
	Workspaces  int            `json:"workspaces"`
	Skipped     int            `json:"skipped_workspaces"`
	Attachments int            `json:"attachments"`
	Bytes       int64          `json:"bytes"`
	Extensions  map[string]int `json:"extensions"`
}

// ExtensionCount is one bucket of the extension histogram.
type ExtensionCount struct {
	Extension string `json:"extension"`
	Count     int    `json:"count"`
}

// NewStats returns an empty Stats ready for use.
func NewStats() *Stats {
	return &Stats{Extensions: make(map[string]int)}
}

// Add counts one exported attachment.
func (s *Stats) Add(w Written) {
	if s.Extensions == nil {
		s.Extensions = make(map[string]int)
	}
	s.Attachments++
	s.Bytes += w.DeclaredSize
	s.Extensions[layout.StatsKey(w.Extension)]++
}

// SortedExtensions returns the histogram ordered by extension.
func (s *Stats) SortedExtensions() []ExtensionCount {
	out := make([]ExtensionCount, 0, len(s.Extensions))
	for ext, n := range s.Extensions {
		out = append(out, ExtensionCount{Extension: ext, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Extension < out[j].Extension })
	return out
}
