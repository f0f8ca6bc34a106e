package zag

import (
	"bytes"
	"maps"
	"slices"
)

// EntrySet maps entry names to entries.
//
// An EntrySet is immutable: Merge and Remove return a new set and leave the
// receiver untouched. The zero value is an empty set.
type EntrySet struct {
	m map[string]Entry
}

// NewEntrySet returns a set holding entries, later names overwriting earlier ones.
func NewEntrySet(entries ...Entry) EntrySet {
	return EntrySet{}.Merge(entries...)
}

// Merge returns a set equal to s with each entry inserted by name.
// An entry whose name already exists replaces the old entry entirely.
func (s EntrySet) Merge(entries ...Entry) EntrySet {
	if len(entries) == 0 {
		return s
	}
	m := make(map[string]Entry, len(s.m)+len(entries))
	maps.Copy(m, s.m)
	for _, e := range entries {
		m[e.Name] = e
	}
	return EntrySet{m: m}
}

// Remove returns a set without name. Removing an absent name returns s itself.
func (s EntrySet) Remove(name string) EntrySet {
	if _, ok := s.m[name]; !ok {
		return s
	}
	m := maps.Clone(s.m)
	delete(m, name)
	return EntrySet{m: m}
}

// Summarize returns the entry count and the sum of entry sizes.
func (s EntrySet) Summarize() (count int, totalBytes int64) {
	for _, e := range s.m {
		totalBytes += e.Size
	}
	return len(s.m), totalBytes
}

// Len returns the number of entries.
func (s EntrySet) Len() int {
	return len(s.m)
}

// Get returns the entry stored under name.
func (s EntrySet) Get(name string) (Entry, bool) {
	e, ok := s.m[name]
	return e, ok
}

// Names returns entry names in lexicographic order.
func (s EntrySet) Names() []string {
	return slices.Sorted(maps.Keys(s.m))
}

// Sorted returns the entries ordered by name.
func (s EntrySet) Sorted() []Entry {
	out := make([]Entry, 0, len(s.m))
	for _, name := range s.Names() {
		out = append(out, s.m[name])
	}
	return out
}

// Equal reports whether s and other hold the same names with identical entries.
func (s EntrySet) Equal(other EntrySet) bool {
	if len(s.m) != len(other.m) {
		return false
	}
	for name, a := range s.m {
		b, ok := other.m[name]
		if !ok {
			return false
		}
		if a.Name != b.Name || a.Size != b.Size || a.MediaType != b.MediaType ||
			a.Digest != b.Digest || !bytes.Equal(a.Payload, b.Payload) {
			return false
		}
	}
	return true
}
