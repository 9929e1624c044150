package util

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// GetKeys returns the keys of m in ascending order.
func GetKeys[A constraints.Ordered, B any](m map[A]B) []A {
	keys := make([]A, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i] < keys[j]
	})
	return keys
}

// Count builds a frequency map of values in a single pass.
func Count[A comparable](values []A) map[A]int {
	res := make(map[A]int)
	for _, v := range values {
		res[v]++
	}
	return res
}

// Unique returns values with duplicates removed, keeping first occurrence order.
func Unique[A comparable](values []A) []A {
	seen := make(map[A]struct{}, len(values))
	var res []A
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		res = append(res, v)
	}
	return res
}

// SortedEqual reports whether a and b hold the same elements once sorted.
// Neither slice is modified.
func SortedEqual[A constraints.Ordered](a, b []A) bool {
	if len(a) != len(b) {
		return false
	}
	ac := append([]A(nil), a...)
	bc := append([]A(nil), b...)
	sort.Slice(ac, func(i, j int) bool { return ac[i] < ac[j] })
	sort.Slice(bc, func(i, j int) bool { return bc[i] < bc[j] })
	for i := range ac {
		if ac[i] != bc[i] {
			return false
		}
	}
	return true
}
