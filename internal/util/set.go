package util

import (
	"cmp"
	"slices"
)

// Set holds unique values, such as the events of an allow list.
type Set[T cmp.Ordered] map[T]struct{}

func NewSet[T cmp.Ordered](elements ...T) Set[T] {
	s := make(Set[T], len(elements))
	s.Add(elements...)
	return s
}

func (s Set[T]) Add(elements ...T) {
	for _, element := range elements {
		s[element] = struct{}{}
	}
}

func (s Set[T]) Remove(elements ...T) {
	for _, element := range elements {
		delete(s, element)
	}
}

func (s Set[T]) Contains(element T) bool {
	_, ok := s[element]
	return ok
}

func (s Set[T]) Len() int {
	return len(s)
}

// ToSlice returns the elements in ascending order.
func (s Set[T]) ToSlice() []T {
	elements := make([]T, 0, len(s))
	for element := range s {
		elements = append(elements, element)
	}
	slices.Sort(elements)
	return elements
}
