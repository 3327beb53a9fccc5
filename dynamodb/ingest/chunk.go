package ingest

import (
	"golang.org/x/exp/constraints"
)

func ceilDiv[T constraints.Integer](a, b T) T {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// chunk splits items into consecutive runs of at most size elements,
// preserving order. When key is not nil a run is also closed early as soon as
// an item's key is already present in it, so no run holds two items with the
// same key. Items for which key reports false are never considered
// duplicates.
func chunk[T any](items []T, size int, key func(T) (string, bool)) [][]T {
	if len(items) == 0 || size <= 0 {
		return nil
	}
	out := make([][]T, 0, ceilDiv(len(items), size))
	var (
		cur  []T
		seen map[string]bool
	)
	for _, it := range items {
		var k string
		var keyed bool
		if key != nil {
			k, keyed = key(it)
		}
		if len(cur) == size || (keyed && seen[k]) {
			out = append(out, cur)
			cur, seen = nil, nil
		}
		if cur == nil {
			cur = make([]T, 0, min(size, len(items)))
			seen = make(map[string]bool)
		}
		cur = append(cur, it)
		if keyed {
			seen[k] = true
		}
	}
	return append(out, cur)
}
