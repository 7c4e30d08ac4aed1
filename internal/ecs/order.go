package ecs

import "slices"

// SortEntities sorts ids ascending in place and returns them.
// All enumeration that feeds gameplay decisions goes through here or SortByKey.
func SortEntities(ids []Entity) []Entity {
	slices.Sort(ids)
	return ids
}

// SortByKey orders items by cmp, falling back to ascending entity id.
// cmp may be nil, in which case only ids are compared.
func SortByKey[T any](items []T, id func(T) Entity, cmp func(a, b T) int) {
	slices.SortStableFunc(items, func(a, b T) int {
		if cmp != nil {
			if c := cmp(a, b); c != 0 {
				return c
			}
		}
		ia, ib := id(a), id(b)
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	})
}

// CompareFloat is a total order helper for float keys.
func CompareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
