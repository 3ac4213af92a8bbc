package actions

import (
	"fmt"
	"sort"
)

// Store is an immutable collection of named action sets. Smart objects and
// pawns reference sets by name.
type Store struct {
	sets  map[string]*ActionSet
	order []string
}

// NewStore builds a store. Set names must be unique.
func NewStore(sets ...*ActionSet) (*Store, error) {
	s := &Store{sets: make(map[string]*ActionSet, len(sets))}
	for _, set := range sets {
		if set.Name == "" {
			return nil, fmt.Errorf("action set without name")
		}
		if _, dup := s.sets[set.Name]; dup {
			return nil, fmt.Errorf("duplicate action set %q", set.Name)
		}
		s.sets[set.Name] = set
		s.order = append(s.order, set.Name)
	}
	return s, nil
}

// Get returns the set registered under name.
func (s *Store) Get(name string) (*ActionSet, bool) {
	if s == nil {
		return nil, false
	}
	set, ok := s.sets[name]
	return set, ok
}

// Resolve returns the sets for names in order, skipping unknown names.
func (s *Store) Resolve(names ...string) []*ActionSet {
	out := make([]*ActionSet, 0, len(names))
	for _, name := range names {
		if set, ok := s.Get(name); ok {
			out = append(out, set)
		}
	}
	return out
}

// Names returns set names in load order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Len returns the number of sets.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sets)
}

// TemplateCount returns the number of templates across all sets.
func (s *Store) TemplateCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, set := range s.sets {
		n += set.Len()
	}
	return n
}

// SortedNames returns set names in lexical order.
func (s *Store) SortedNames() []string {
	names := s.Names()
	sort.Strings(names)
	return names
}
