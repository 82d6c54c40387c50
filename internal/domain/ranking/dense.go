// Package ranking assigns dense ranks: ties share a rank and the next
// distinct value is ranked exactly one higher.
package ranking

import (
	"cmp"
	"slices"
)

// Direction selects the sort order that ranks first.
type Direction int

// Sort directions.
const (
	Ascending Direction = iota
	Descending
)

// Dense stable-sorts items by key and assigns dense ranks through set.
// Items with equal keys keep their relative input order, so callers that
// pre-sort by an identity get a deterministic final order.
func Dense[T any, K cmp.Ordered](items []T, key func(*T) K, dir Direction, set func(*T, int)) {
	slices.SortStableFunc(items, func(a, b T) int {
		c := cmp.Compare(key(&a), key(&b))
		if dir == Descending {
			return -c
		}
		return c
	})
	AssignDense(items, func(a, b *T) bool { return key(a) == key(b) }, set)
}

// AssignDense assigns dense ranks to items that are already ordered best-first.
func AssignDense[T any](items []T, tied func(a, b *T) bool, set func(*T, int)) {
	if len(items) == 0 {
		return
	}

	rank := 1
	set(&items[0], rank)
	for i := 1; i < len(items); i++ {
		if !tied(&items[i-1], &items[i]) {
			rank++
		}
		set(&items[i], rank)
	}
}
