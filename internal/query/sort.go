package query

import (
	"sort"

	"github.com/kasuganosora/datagrid/internal/model"
)

// Sort stably orders a copy of data by column in direction. Null values
// order last ascending, first descending (spec §4.1).
func Sort(data []model.Row, column string, direction model.SortDirection) []model.Row {
	return MultiSort(data, []model.SortKey{{Column: column, Direction: direction}})
}

// MultiSort stably orders a copy of data by the given keys in order,
// resolving ties with each subsequent key in turn (spec "secondary sort
// keys resolve ties in declared order").
func MultiSort(data []model.Row, keys []model.SortKey) []model.Row {
	out := make([]model.Row, len(data))
	copy(out, data)
	if len(keys) == 0 {
		return out
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, key := range keys {
			vi, hasI := out[i][key.Column]
			vj, hasJ := out[j][key.Column]
			if !hasI {
				vi = nil
			}
			if !hasJ {
				vj = nil
			}
			cmp := orderedCompare(vi, vj, key.Direction)
			if cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return out
}

// orderedCompare applies null-ordering semantics on top of compareValues:
// nulls sort last ascending, first descending.
func orderedCompare(a, b interface{}, dir model.SortDirection) int {
	aNil, bNil := a == nil, b == nil
	if aNil || bNil {
		switch {
		case aNil && bNil:
			return 0
		case aNil:
			if dir == model.Descending {
				return -1
			}
			return 1
		default: // bNil
			if dir == model.Descending {
				return 1
			}
			return -1
		}
	}

	cmp := compareValues(a, b)
	if dir == model.Descending {
		return -cmp
	}
	return cmp
}
