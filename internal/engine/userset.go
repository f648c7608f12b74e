package engine

import (
	"slices"

	"github.com/samber/lo"
)

// UserSet is an unordered set of user ids.
type UserSet map[string]struct{}

func NewUserSet(ids ...string) UserSet {
	s := make(UserSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s UserSet) Add(id string)    { s[id] = struct{}{} }
func (s UserSet) Remove(id string) { delete(s, id) }

func (s UserSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s UserSet) Len() int { return len(s) }

// Set toggles membership.
func (s UserSet) Set(id string, member bool) {
	if member {
		s.Add(id)
	} else {
		s.Remove(id)
	}
}

// Intersect returns a new set with the ids present in both s and other.
func (s UserSet) Intersect(other UserSet) UserSet {
	out := make(UserSet)
	for id := range s {
		if other.Has(id) {
			out.Add(id)
		}
	}
	return out
}

// Sorted returns the ids in lexical order.
func (s UserSet) Sorted() []string {
	ids := lo.Keys(s)
	slices.Sort(ids)
	return ids
}

func (s UserSet) Clone() UserSet {
	out := make(UserSet, len(s))
	for id := range s {
		out.Add(id)
	}
	return out
}
