package logic

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Condition parsing.
 *
 * Parse accepts three input shapes: a boolean literal (returned as-is), a
 * pre-built operator tree (pass-through after an arity check, so callers
 * can embed canonical trees directly), and compact infix text such as
 *
 *	len(input) == 0
 *	input.type == 'A' AND confidence < 0.7
 *
 * Precedence, low to high: OR, AND, NOT, comparison, primary. Splitting on
 * OR/AND respects parenthesis depth and word boundaries so an operator
 * keyword embedded in a longer identifier never splits. Comparison
 * operators are likewise located at depth zero only.
 *
 * Functions rewrite to canonical operators. len(variable) becomes a single
 * variable lookup with the _len_ prefix instead of a nested len call, so
 * evaluation is one path walk; contains(haystack, needle) reverses its
 * arguments to match in's (needle, haystack) order.
 *
 * Parse errors are fatal for the one condition being parsed and are never
 * silently defaulted; callers attribute them to the specific rule.
 */

// SyntaxError reports malformed condition syntax with the offending
// substring and its position in the original expression.
type SyntaxError struct {
	Expr      string
	Offending string
	Pos       int
	Msg       string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error in %q at offset %d near %q: %s", e.Expr, e.Pos, e.Offending, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return types.ErrSyntax }

// UnknownFunctionError reports a function name outside the supported set.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

func (e *UnknownFunctionError) Unwrap() error { return types.ErrUnknownFunction }

var funcCallRe = regexp.MustCompile(`^(\w+)\((.+)\)$`)

// Parse converts a condition into an operator tree.
// Accepts bool, *Node (pass-through) and infix text.
func Parse(expression any) (*Node, error) {
	switch expr := expression.(type) {
	case bool:
		return Lit(expr), nil
	case *Node:
		if err := expr.Check(); err != nil {
			return nil, err
		}
		return expr, nil
	case string:
		return parseText(expr)
	case map[string]any:
		// Decoded canonical form, e.g. a YAML/JSON condition tree.
		return fromMap(expr)
	case nil:
		return nil, types.ErrEmptyExpression
	default:
		return nil, fmt.Errorf("%w: expected string, bool or tree, got %T", types.ErrSyntax, expression)
	}
}

// fromMap converts a decoded single-key mapping like
// {"==": [{"var": "x"}, 1]} into an operator tree. Mappings that are not
// single-key operator applications are literals.
func fromMap(m map[string]any) (*Node, error) {
	if len(m) != 1 {
		return Lit(m), nil
	}
	var key string
	var args any
	for k, v := range m {
		key, args = k, v
	}

	if key == "var" {
		switch p := args.(type) {
		case string:
			return Var(p), nil
		case []any:
			if len(p) == 0 {
				return Var(""), nil
			}
			path, _ := p[0].(string)
			if len(p) > 1 {
				return VarDefault(path, p[1]), nil
			}
			return Var(path), nil
		default:
			return nil, fmt.Errorf("%w: var reference must be a path", types.ErrSyntax)
		}
	}

	tag := OpTag(key)
	if key == "!" {
		tag = OpNot
	}
	switch tag {
	case OpAnd, OpOr, OpNot, OpEq, OpNeq, OpLt, OpGt, OpLte, OpGte, OpIn, OpLen, OpMatches, OpIf:
	default:
		return Lit(m), nil
	}

	var rawArgs []any
	if list, ok := args.([]any); ok {
		rawArgs = list
	} else {
		rawArgs = []any{args}
	}
	children := make([]*Node, 0, len(rawArgs))
	for _, a := range rawArgs {
		if sub, ok := a.(map[string]any); ok {
			c, err := fromMap(sub)
			if err != nil {
				return nil, err
			}
			children = append(children, c)
			continue
		}
		children = append(children, Lit(a))
	}

	node := Op(tag, children...)
	if err := node.Check(); err != nil {
		return nil, err
	}
	return node, nil
}

func parseText(expr string) (*Node, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, types.ErrEmptyExpression
	}
	if err := checkBalance(expr); err != nil {
		return nil, err
	}
	switch strings.ToLower(expr) {
	case "true":
		return Lit(true), nil
	case "false":
		return Lit(false), nil
	}
	return parseOr(expr)
}

// checkBalance rejects unbalanced parentheses up front with a position
// hint; the recursive descent below assumes balanced input.
func checkBalance(expr string) error {
	depth := 0
	for i, ch := range expr {
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return &SyntaxError{Expr: expr, Offending: ")", Pos: i, Msg: "unmatched closing parenthesis"}
			}
		}
	}
	if depth != 0 {
		return &SyntaxError{Expr: expr, Offending: "(", Pos: strings.IndexByte(expr, '('), Msg: "unclosed parenthesis"}
	}
	return nil
}

func parseOr(expr string) (*Node, error) {
	parts := splitByKeyword(expr, "OR")
	if len(parts) > 1 {
		children := make([]*Node, 0, len(parts))
		for _, p := range parts {
			c, err := parseAnd(strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return Op(OpOr, children...), nil
	}
	return parseAnd(expr)
}

func parseAnd(expr string) (*Node, error) {
	parts := splitByKeyword(expr, "AND")
	if len(parts) > 1 {
		children := make([]*Node, 0, len(parts))
		for _, p := range parts {
			c, err := parseNot(strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			children = append(children, c)
		}
		return Op(OpAnd, children...), nil
	}
	return parseNot(expr)
}

func parseNot(expr string) (*Node, error) {
	expr = strings.TrimSpace(expr)
	if len(expr) > 4 && strings.EqualFold(expr[:4], "NOT ") {
		inner, err := parseComparison(strings.TrimSpace(expr[4:]))
		if err != nil {
			return nil, err
		}
		return Op(OpNot, inner), nil
	}
	return parseComparison(expr)
}

// comparisonOps in match order: two-character operators first so "<="
// never parses as "<" followed by stray "=".
var comparisonOps = []string{"<=", ">=", "!=", "==", "<", ">"}

func parseComparison(expr string) (*Node, error) {
	for _, op := range comparisonOps {
		idx := indexAtDepthZero(expr, op)
		if idx < 0 {
			continue
		}
		left, err := parseValue(strings.TrimSpace(expr[:idx]), expr)
		if err != nil {
			return nil, err
		}
		right, err := parseValue(strings.TrimSpace(expr[idx+len(op):]), expr)
		if err != nil {
			return nil, err
		}
		return Op(OpTag(op), left, right), nil
	}
	return parseValue(expr, expr)
}

// indexAtDepthZero finds the first occurrence of op outside parentheses,
// skipping positions where a longer operator would match (e.g. the "<"
// inside "<=").
func indexAtDepthZero(expr, op string) int {
	depth := 0
	for i := 0; i+len(op) <= len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth != 0 || expr[i:i+len(op)] != op {
			continue
		}
		// Single-char < and > must not match inside <=, >=, != or ==.
		if len(op) == 1 && i+1 < len(expr) && expr[i+1] == '=' {
			continue
		}
		return i
	}
	return -1
}

func parseValue(expr, context string) (*Node, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, &SyntaxError{Expr: context, Offending: expr, Msg: "missing operand"}
	}

	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") {
		return parseOr(expr[1 : len(expr)-1])
	}

	if len(expr) >= 2 {
		if (expr[0] == '\'' && expr[len(expr)-1] == '\'') ||
			(expr[0] == '"' && expr[len(expr)-1] == '"') {
			return Lit(expr[1 : len(expr)-1]), nil
		}
	}

	if strings.Contains(expr, ".") {
		if f, err := strconv.ParseFloat(expr, 64); err == nil {
			return Lit(f), nil
		}
	} else if n, err := strconv.Atoi(expr); err == nil {
		return Lit(n), nil
	}

	switch strings.ToLower(expr) {
	case "true":
		return Lit(true), nil
	case "false":
		return Lit(false), nil
	case "null", "none":
		return Lit(nil), nil
	}

	if m := funcCallRe.FindStringSubmatch(expr); m != nil {
		return parseFunction(m[1], m[2], context)
	}

	return Var(expr), nil
}

func parseFunction(name, args, context string) (*Node, error) {
	parsed := make([]*Node, 0, 2)
	for _, a := range splitArgs(args) {
		n, err := parseValue(strings.TrimSpace(a), context)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, n)
	}

	switch name {
	case "len":
		if len(parsed) != 1 {
			return nil, fmt.Errorf("%w: len() requires 1 argument", types.ErrWrongArity)
		}
		// Path rewrite: len(variable) becomes one prefixed lookup.
		if arg := parsed[0]; arg.Kind == KindVar {
			return Var(LenPrefix + arg.Path), nil
		}
		return Op(OpLen, parsed[0]), nil
	case "contains":
		if len(parsed) != 2 {
			return nil, fmt.Errorf("%w: contains() requires 2 arguments", types.ErrWrongArity)
		}
		// contains(haystack, needle) -> in(needle, haystack)
		return Op(OpIn, parsed[1], parsed[0]), nil
	case "is_empty":
		if len(parsed) != 1 {
			return nil, fmt.Errorf("%w: is_empty() requires 1 argument", types.ErrWrongArity)
		}
		return Op(OpNot, parsed[0]), nil
	case "is_null":
		if len(parsed) != 1 {
			return nil, fmt.Errorf("%w: is_null() requires 1 argument", types.ErrWrongArity)
		}
		return Op(OpEq, parsed[0], Lit(nil)), nil
	case "matches":
		if len(parsed) != 2 {
			return nil, fmt.Errorf("%w: matches() requires 2 arguments", types.ErrWrongArity)
		}
		return Op(OpMatches, parsed[0], parsed[1]), nil
	default:
		return nil, &UnknownFunctionError{Name: name}
	}
}

// splitByKeyword splits on a keyword operator at parenthesis depth zero,
// requiring word boundaries on both sides so identifiers containing the
// keyword (e.g. "android") are left intact. Case-insensitive.
func splitByKeyword(expr, keyword string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	kl := len(keyword)

	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case ch == '(':
			depth++
			current.WriteByte(ch)
		case ch == ')':
			depth--
			current.WriteByte(ch)
		case depth == 0 && i+kl <= len(expr) && strings.EqualFold(expr[i:i+kl], keyword):
			beforeOK := i == 0 || !isWordByte(expr[i-1])
			afterOK := i+kl >= len(expr) || !isWordByte(expr[i+kl])
			if beforeOK && afterOK {
				parts = append(parts, current.String())
				current.Reset()
				i += kl
				continue
			}
			current.WriteByte(ch)
		default:
			current.WriteByte(ch)
		}
		i++
	}
	parts = append(parts, current.String())

	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return kept
}

// splitArgs splits function arguments on commas at parenthesis depth zero.
func splitArgs(args string) []string {
	var result []string
	var current strings.Builder
	depth := 0

	for i := 0; i < len(args); i++ {
		switch ch := args[i]; ch {
		case '(':
			depth++
			current.WriteByte(ch)
		case ')':
			depth--
			current.WriteByte(ch)
		case ',':
			if depth == 0 {
				result = append(result, current.String())
				current.Reset()
			} else {
				current.WriteByte(ch)
			}
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// Validate reports whether an expression parses, with the error message
// when it does not.
func Validate(expression any) (bool, string) {
	if _, err := Parse(expression); err != nil {
		return false, err.Error()
	}
	return true, ""
}
