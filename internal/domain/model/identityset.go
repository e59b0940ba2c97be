package model

import (
	"encoding/json"
	"sort"
)

// IdentitySet is an insertion-ordered set of chat user IDs. The zero value is an
// empty set ready to use.
type IdentitySet struct {
	items []string
	index map[string]struct{}
}

// NewIdentitySet builds a set from ids, dropping duplicates and keeping first
// occurrence order.
func NewIdentitySet(ids ...string) IdentitySet {
	var s IdentitySet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was absent.
func (s *IdentitySet) Add(id string) bool {
	if s.Contains(id) {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	s.index[id] = struct{}{}
	s.items = append(s.items, id)
	return true
}

// Remove deletes id and reports whether it was present.
func (s *IdentitySet) Remove(id string) bool {
	if !s.Contains(id) {
		return false
	}
	delete(s.index, id)
	for i, item := range s.items {
		if item == id {
			s.items = append(s.items[:i:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports membership in O(1).
func (s IdentitySet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Len returns the number of members.
func (s IdentitySet) Len() int {
	return len(s.items)
}

// Items returns a copy of the members in insertion order.
func (s IdentitySet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// MarshalJSON encodes the set as a JSON array in insertion order.
func (s IdentitySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON decodes a JSON array. Legacy object encodings ({"id": true}) are
// accepted and loaded in key order.
func (s *IdentitySet) UnmarshalJSON(data []byte) error {
	*s = IdentitySet{}

	var ids []string
	if err := json.Unmarshal(data, &ids); err == nil {
		for _, id := range ids {
			s.Add(id)
		}
		return nil
	}

	var legacy map[string]json.RawMessage
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	keys := make([]string, 0, len(legacy))
	for id := range legacy {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	for _, id := range keys {
		s.Add(id)
	}
	return nil
}
