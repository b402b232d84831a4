package sets

import (
	"sort"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
)

type Set[T comparable] map[T]struct{}

func NewSet[T comparable](vs ...T) Set[T] {
	s := make(Set[T], len(vs))
	for _, v := range vs {
		s.Insert(v)
	}
	return s
}

func (s Set[T]) Insert(v T) {
	s[v] = struct{}{}
}

func (s Set[T]) Contains(v T) bool {
	_, exists := s[v]
	return exists
}

func (s Set[T]) Delete(v T) {
	delete(s, v)
}

func (s Set[T]) Equals(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for elt := range s {
		if !other.Contains(elt) {
			return false
		}
	}
	return true
}

// AsSlice returns the elements in unspecified order.
func (s Set[T]) AsSlice() []T {
	return maps.Keys(s)
}

// AsSortedSlice returns the elements in increasing order.
func AsSortedSlice[T constraints.Ordered](s Set[T]) []T {
	result := maps.Keys(s)
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
