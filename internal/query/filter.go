package query

import (
	"regexp"
	"strings"

	"github.com/kasuganosora/datagrid/internal/model"
)

// MatchFilter reports whether row satisfies filter, per the operator set in
// spec §4.4. Grounded on util/filter.go's MatchFilter, generalized to the
// grid's fixed operator enum (no free-form LIKE/IN/BETWEEN string operators;
// Regex is first-class instead of reconstructed from wildcards).
func MatchFilter(row model.Row, filter model.Filter) bool {
	value, exists := row[filter.Column]

	switch filter.Operator {
	case model.OpIsNull:
		return !exists || value == nil
	case model.OpIsNotNull:
		return exists && value != nil
	}

	if !exists {
		return false
	}

	switch filter.Operator {
	case model.OpEquals:
		return compareValues(value, filter.Operand) == 0
	case model.OpNotEquals:
		return compareValues(value, filter.Operand) != 0
	case model.OpGreaterThan:
		return compareValues(value, filter.Operand) > 0
	case model.OpGreaterOrEqual:
		return compareValues(value, filter.Operand) >= 0
	case model.OpLessThan:
		return compareValues(value, filter.Operand) < 0
	case model.OpLessOrEqual:
		return compareValues(value, filter.Operand) <= 0
	case model.OpContains:
		return strings.Contains(strings.ToLower(toStringValue(value)), strings.ToLower(toStringValue(filter.Operand)))
	case model.OpStartsWith:
		return strings.HasPrefix(strings.ToLower(toStringValue(value)), strings.ToLower(toStringValue(filter.Operand)))
	case model.OpEndsWith:
		return strings.HasSuffix(strings.ToLower(toStringValue(value)), strings.ToLower(toStringValue(filter.Operand)))
	case model.OpRegex:
		pattern, ok := filter.Operand.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(toStringValue(value))
	default:
		return false
	}
}

// ApplyFilter evaluates filter over rows and returns a visibility bitmap,
// one entry per row, true where the row matches — used by the store's
// visibility bitmap update.
func ApplyFilter(rows []model.Row, filter model.Filter) []bool {
	visible := make([]bool, len(rows))
	for i, row := range rows {
		visible[i] = MatchFilter(row, filter)
	}
	return visible
}

// Filter returns the subset of data matching every filter in filters
// (AND semantics across the list — per-filter OR/AND composition via
// sub-filters is intentionally not modeled here: spec §3's Filter struct
// exposes SubFilters in the source domain model only for SQL-style logical
// grouping, which §1 scopes out of the grid's simpler single-predicate
// filter chain).
func Filter(data []model.Row, filters []model.Filter) []model.Row {
	if len(filters) == 0 {
		return append([]model.Row(nil), data...)
	}
	out := make([]model.Row, 0, len(data))
	for _, row := range data {
		matched := true
		for _, f := range filters {
			if !MatchFilter(row, f) {
				matched = false
				break
			}
		}
		if matched {
			out = append(out, row)
		}
	}
	return out
}
