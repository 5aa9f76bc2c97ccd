package inventory

import (
	"sort"
	"sync"
)

// ConflictIndex accumulates project-name sightings across the whole walk.
// A name can only be known to collide after every group has been visited,
// so the index lives for the run and is read once at the end.
//
// Identity is the bare project path segment, case-sensitive: "Foo" and
// "foo" in different groups do not collide.
type ConflictIndex struct {
	mu   sync.Mutex
	seen map[string][]string // project name -> owning groups, in sighting order
}

// ConflictEntry is one colliding name in the final report.
type ConflictEntry struct {
	Name   string
	Count  int
	Groups []string // one entry per sighting, in sighting order
}

// NewConflictIndex returns an empty index.
func NewConflictIndex() *ConflictIndex {
	return &ConflictIndex{seen: make(map[string][]string)}
}

// Record notes one completed project. Safe for concurrent use.
func (ci *ConflictIndex) Record(name, group string) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.seen[name] = append(ci.seen[name], group)
}

// Report returns the names sighted in more than one place, sorted by name.
func (ci *ConflictIndex) Report() []ConflictEntry {
	ci.mu.Lock()
	defer ci.mu.Unlock()

	var entries []ConflictEntry
	for name, groups := range ci.seen {
		if len(groups) < 2 {
			continue
		}
		entries = append(entries, ConflictEntry{
			Name:   name,
			Count:  len(groups),
			Groups: groups,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
