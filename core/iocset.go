package core

import (
	"maps"
	"slices"
)

// IOCSet is an unordered set of indicators. Iteration order is undefined;
// use Sorted when output has to be reproducible.
type IOCSet map[string]struct{}

// NewIOCSet creates a set holding items.
func NewIOCSet(items ...string) IOCSet {
	s := make(IOCSet, len(items))
	s.AddAll(items)
	return s
}

// Add inserts ioc and reports whether it was not already present.
func (s IOCSet) Add(ioc string) bool {
	if _, ok := s[ioc]; ok {
		return false
	}
	s[ioc] = struct{}{}
	return true
}

// AddAll inserts every item and returns how many were new.
func (s IOCSet) AddAll(items []string) int {
	added := 0
	for _, ioc := range items {
		if s.Add(ioc) {
			added++
		}
	}
	return added
}

// Contains reports membership.
func (s IOCSet) Contains(ioc string) bool {
	_, ok := s[ioc]
	return ok
}

// Len returns the number of distinct indicators.
func (s IOCSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order.
func (s IOCSet) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
