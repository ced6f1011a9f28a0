package model

import (
	"encoding/json"
	"sort"
)

// StringSet is a set of ids or keywords. It marshals to a sorted JSON array.
type StringSet map[string]struct{}

// NewStringSet creates a set holding the given values
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add inserts v and reports whether it was new
func (s StringSet) Add(v string) bool {
	if _, ok := s[v]; ok {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Has reports whether v is in the set
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IntersectionLen returns |s ∩ o|
func (s StringSet) IntersectionLen(o StringSet) int {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	n := 0
	for v := range small {
		if large.Has(v) {
			n++
		}
	}
	return n
}

// UnionLen returns |s ∪ o|
func (s StringSet) UnionLen(o StringSet) int {
	return len(s) + len(o) - s.IntersectionLen(o)
}

// Intersects reports whether s and o share at least one member
func (s StringSet) Intersects(o StringSet) bool {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	for v := range small {
		if large.Has(v) {
			return true
		}
	}
	return false
}

// MarshalJSON implements json.Marshaler
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON implements json.Unmarshaler
func (s *StringSet) UnmarshalJSON(b []byte) error {
	var values []string
	if err := json.Unmarshal(b, &values); err != nil {
		return err
	}
	*s = NewStringSet(values...)
	return nil
}
