package logic

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

/*
 * Value semantics for condition evaluation.
 *
 * Specification documents are loosely typed, so the evaluator works over
 * dynamic values with one centrally-defined truthiness function and one
 * comparison function with a documented fallback: when operand types are
 * incompatible for an ordering comparison, both sides degrade to their
 * string rendering rather than erroring. Evaluation must stay total over
 * arbitrary records; a type mismatch is never a fault.
 *
 * Numeric comparison handles float64/int/int64 mixing because YAML and
 * JSON decoders disagree about integer representation.
 */

// Truthy converts a value to a boolean using generalized falsy rules:
// nil, false, zero, empty string and empty collections are false,
// everything else is true.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return len(x) > 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map, reflect.Array:
			return rv.Len() > 0
		}
		return true
	}
}

// Length returns the generalized length of a value: rune count for
// strings, element count for collections, 0 for nil and anything with no
// defined length.
func Length(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return utf8.RuneCountInString(x)
	case []any:
		return len(x)
	case map[string]any:
		return len(x)
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map, reflect.Array, reflect.String:
			return rv.Len()
		}
		return 0
	}
}

// Compare applies a comparison operator to two evaluated operands.
// Equality is numeric-aware deep equality; ordering compares numbers when
// both sides are numeric, otherwise falls back to string comparison so
// that evaluation never faults on loosely-typed data.
func Compare(tag OpTag, a, b any) bool {
	switch tag {
	case OpEq:
		return looseEqual(a, b)
	case OpNeq:
		return !looseEqual(a, b)
	case OpLt:
		return orderOf(a, b) < 0
	case OpGt:
		return orderOf(a, b) > 0
	case OpLte:
		return orderOf(a, b) <= 0
	case OpGte:
		return orderOf(a, b) >= 0
	default:
		return false
	}
}

// looseEqual performs equality with numeric cross-type tolerance.
// Non-numeric values use deep structural equality.
func looseEqual(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	return reflect.DeepEqual(a, b)
}

// orderOf performs three-way comparison (-1/0/1). Numbers compare
// numerically, strings lexically; anything else degrades to the string
// rendering of both operands.
func orderOf(a, b any) int {
	if na, nb, ok := asNumbers(a, b); ok {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if !aok || !bok {
		as = Stringify(a)
		bs = Stringify(b)
	}
	return strings.Compare(as, bs)
}

// asNumbers attempts to convert both values to float64 for numeric
// comparison. Returns converted values and success flag.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// toFloat64 converts value to float64 if it's a numeric type.
// Handles float64, int, int64 from JSON/YAML unmarshaling.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Contains implements the in operator: substring test for string
// haystacks, membership for lists, key presence for maps. Unknown
// haystack types never match.
func Contains(needle, haystack any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, Stringify(needle))
	case []any:
		for _, elem := range h {
			if looseEqual(needle, elem) {
				return true
			}
		}
		return false
	case map[string]any:
		key, ok := needle.(string)
		if !ok {
			key = Stringify(needle)
		}
		_, present := h[key]
		return present
	default:
		return false
	}
}

// Stringify renders a value the way conflict grouping and comparison
// fallback expect: plain fmt rendering with nil as "null".
func Stringify(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}
