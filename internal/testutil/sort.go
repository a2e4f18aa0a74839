package testutil

import (
	"time"

	"github.com/flexprice/billing/internal/types"
)

// orderedBy builds a SortFunc over a key tuple honouring the filter's order, the way
// the postgres repositories apply one direction to every ORDER BY column.
// keys returns the primary time key, the creation time and the id of an item.
func orderedBy[T any](filter types.BaseFilter, keys func(T) (time.Time, time.Time, string)) SortFunc[T] {
	asc := filter.GetOrder() == types.OrderAsc
	return func(i, j T) bool {
		pi, ci, idi := keys(i)
		pj, cj, idj := keys(j)
		if !pi.Equal(pj) {
			return pi.Before(pj) == asc
		}
		if !ci.Equal(cj) {
			return ci.Before(cj) == asc
		}
		if idi == idj {
			return false
		}
		return (idi < idj) == asc
	}
}
