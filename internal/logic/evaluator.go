package logic

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Operator tree evaluation.
 *
 * Evaluate interprets a tree against an input record and is total: missing
 * data resolves to the variable's declared default, type mismatches degrade
 * per value.go, and malformed regex patterns simply fail to match. Rule
 * matching must never abort because a record is incomplete.
 *
 * Variable resolution walks a dot-separated path: mapping segments are key
 * lookups, list segments must parse as integer indices, and any miss
 * (absent key, out-of-range index, scalar with remaining path) yields the
 * default. The _len_ prefix resolves the remainder of the path and
 * substitutes the value's length, realizing the parser's len(variable)
 * rewrite without a nested call.
 */

// Evaluate interprets an operator tree against a record.
// Never fails; unresolvable data yields defaults and falsy values.
func Evaluate(n *Node, data types.Record) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case KindLiteral:
		return n.Value
	case KindVar:
		return resolveVar(n.Path, n.Default, data)
	}

	switch n.Tag {
	case OpAnd:
		for _, c := range n.Children {
			if !Truthy(Evaluate(c, data)) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range n.Children {
			if Truthy(Evaluate(c, data)) {
				return true
			}
		}
		return false
	case OpNot:
		return !Truthy(Evaluate(n.Children[0], data))
	case OpEq, OpNeq, OpLt, OpGt, OpLte, OpGte:
		left := Evaluate(n.Children[0], data)
		right := Evaluate(n.Children[1], data)
		return Compare(n.Tag, left, right)
	case OpIn:
		needle := Evaluate(n.Children[0], data)
		haystack := Evaluate(n.Children[1], data)
		return Contains(needle, haystack)
	case OpLen:
		return Length(Evaluate(n.Children[0], data))
	case OpMatches:
		return evalMatches(n.Children[0], n.Children[1], data)
	case OpIf:
		return evalIf(n.Children, data)
	default:
		// Unknown operator: inert, never truthy.
		return nil
	}
}

// resolveVar walks a dot-separated path through the record.
// Any miss returns def. A nil value at any step also returns def, so a
// declared default is authoritative over explicit nulls in the record.
func resolveVar(path string, def any, data types.Record) any {
	if path == "" {
		return data
	}

	if rest, ok := strings.CutPrefix(path, LenPrefix); ok {
		v := resolveVar(rest, nil, data)
		return Length(v)
	}

	var current any = data
	for _, part := range strings.Split(path, ".") {
		switch c := current.(type) {
		case map[string]any:
			current = c[part]
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(c) {
				return def
			}
			current = c[idx]
		default:
			// Scalar with remaining path segments.
			return def
		}
		if current == nil {
			return def
		}
	}
	return current
}

// evalMatches applies regex search semantics: an unanchored match of
// pattern anywhere in the string. Non-string operands and invalid
// patterns never match.
func evalMatches(strNode, patNode *Node, data types.Record) bool {
	s, ok1 := Evaluate(strNode, data).(string)
	pat, ok2 := Evaluate(patNode, data).(string)
	if !ok1 || !ok2 {
		return false
	}
	re, err := regexp.Compile(pat)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// evalIf walks alternating guard/value pairs and returns the first value
// whose guard is truthy; a trailing odd element is the else value.
func evalIf(children []*Node, data types.Record) any {
	i := 0
	for ; i < len(children)-1; i += 2 {
		if Truthy(Evaluate(children[i], data)) {
			return Evaluate(children[i+1], data)
		}
	}
	if i < len(children) {
		return Evaluate(children[i], data)
	}
	return nil
}
