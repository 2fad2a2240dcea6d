// Package query implements the pure sort/filter/search pipeline over row
// collections (spec §4.4). Grounded on the teacher's
// pkg/resource/util/{compare,filter,order,pagination}.go, generalized from
// SQL-style QueryOptions to the grid's Filter/SortKey/search-mode model.
package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// toFloat64 converts v to a float64 if it is any numeric kind, or a string
// that parses cleanly as a number. Grounded on util/compare.go's
// ConvertToFloat64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return float64(rv.Int()), true
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return float64(rv.Uint()), true
		case reflect.Float32, reflect.Float64:
			return rv.Float(), true
		}
		return 0, false
	}
}

// compareValues orders a against b for sort purposes: nulls compare as
// described by the caller (handled one level up in sort.go). When both
// sides convert to a number (any numeric kind, or a string that parses as
// a float) they compare numerically as float64, whatever their original
// types; otherwise they compare lexicographically as lower-cased strings
// (spec §4.1 "Ordering and tie-breaks for sort").
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	aFloat, aOK := toFloat64(a)
	bFloat, bOK := toFloat64(b)
	if aOK && bOK {
		switch {
		case aFloat < bFloat:
			return -1
		case aFloat > bFloat:
			return 1
		default:
			return 0
		}
	}

	aStr := strings.ToLower(toStringValue(a))
	bStr := strings.ToLower(toStringValue(b))
	switch {
	case aStr < bStr:
		return -1
	case aStr > bStr:
		return 1
	default:
		return 0
	}
}

func toStringValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
