package application

import (
	"cmp"
	"iter"
	"slices"
)

// OrderOverdue yields overdue entries most overdue first, ties broken by PR ID.
// The input slice is not modified.
func OrderOverdue(entries []OverdueEntry) iter.Seq[OverdueEntry] {
	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b OverdueEntry) int {
		if c := cmp.Compare(b.OverdueSeconds, a.OverdueSeconds); c != 0 {
			return c
		}
		return cmp.Compare(a.PR.ID, b.PR.ID)
	})

	return func(yield func(OverdueEntry) bool) {
		for _, e := range sorted {
			if !yield(e) {
				return
			}
		}
	}
}
