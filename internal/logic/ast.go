// Package logic implements the condition expression language used by
// decision rules: parser, operator tree, evaluator, rule engine, and
// static analyzer.
package logic

import (
	"fmt"

	"github.com/AiCoda/skill-spec/internal/types"
)

/*
 * Operator tree for parsed conditions.
 *
 * A Node is a tagged union over {Literal, Var, Op}. Trees are built once
 * by the parser (or handed in pre-built) and never mutated; they carry no
 * parent pointers because evaluation is always top-down and pure child
 * ownership avoids cycle risk entirely.
 *
 * Arity invariants: comparison operators and in/matches take exactly two
 * children, not/len exactly one, and/or at least one, if at least two.
 * The parser can only produce conforming trees; pass-through trees are
 * checked by Node.Check before use.
 */

// NodeKind discriminates the Node union.
type NodeKind int

const (
	KindLiteral NodeKind = iota
	KindVar
	KindOp
)

// OpTag identifies an operator node's operation.
type OpTag string

const (
	OpAnd     OpTag = "and"
	OpOr      OpTag = "or"
	OpNot     OpTag = "not"
	OpEq      OpTag = "=="
	OpNeq     OpTag = "!="
	OpLt      OpTag = "<"
	OpGt      OpTag = ">"
	OpLte     OpTag = "<="
	OpGte     OpTag = ">="
	OpIn      OpTag = "in"
	OpLen     OpTag = "len"
	OpMatches OpTag = "matches"
	OpIf      OpTag = "if"
)

// LenPrefix marks a variable path whose resolved value's length is wanted.
// The parser rewrites len(variable) into a single Var lookup with this
// prefix so evaluation stays a single path walk.
const LenPrefix = "_len_"

// Node is one node of an operator tree.
type Node struct {
	Kind NodeKind

	// Literal payload (KindLiteral). May be nil for a null literal.
	Value any

	// Variable reference (KindVar): dot-separated path plus the value
	// returned when resolution misses.
	Path    string
	Default any

	// Operator application (KindOp).
	Tag      OpTag
	Children []*Node
}

// Lit returns a literal node.
func Lit(v any) *Node {
	return &Node{Kind: KindLiteral, Value: v}
}

// Var returns a variable reference node with a nil default.
func Var(path string) *Node {
	return &Node{Kind: KindVar, Path: path}
}

// VarDefault returns a variable reference node with an explicit default.
func VarDefault(path string, def any) *Node {
	return &Node{Kind: KindVar, Path: path, Default: def}
}

// Op returns an operator node.
func Op(tag OpTag, children ...*Node) *Node {
	return &Node{Kind: KindOp, Tag: tag, Children: children}
}

// Check verifies operator arity invariants across the whole tree.
// Used for pre-built trees handed to Parse; parser output always conforms.
func (n *Node) Check() error {
	if n == nil {
		return fmt.Errorf("%w: nil node", types.ErrSyntax)
	}
	if n.Kind != KindOp {
		return nil
	}
	got := len(n.Children)
	switch n.Tag {
	case OpEq, OpNeq, OpLt, OpGt, OpLte, OpGte, OpIn, OpMatches:
		if got != 2 {
			return fmt.Errorf("%w: operator %q requires 2 operands, got %d", types.ErrWrongArity, n.Tag, got)
		}
	case OpNot, OpLen:
		if got != 1 {
			return fmt.Errorf("%w: operator %q requires 1 operand, got %d", types.ErrWrongArity, n.Tag, got)
		}
	case OpAnd, OpOr:
		if got < 1 {
			return fmt.Errorf("%w: operator %q requires at least 1 operand", types.ErrWrongArity, n.Tag)
		}
	case OpIf:
		if got < 1 {
			return fmt.Errorf("%w: operator %q requires at least 1 operand", types.ErrWrongArity, n.Tag)
		}
	default:
		return fmt.Errorf("%w: unknown operator %q", types.ErrSyntax, n.Tag)
	}
	for _, c := range n.Children {
		if err := c.Check(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the tree in a compact prefix form for diagnostics and
// condition-identity grouping.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case KindLiteral:
		if s, ok := n.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprintf("%v", n.Value)
	case KindVar:
		if n.Default != nil {
			return fmt.Sprintf("var(%s, %v)", n.Path, n.Default)
		}
		return fmt.Sprintf("var(%s)", n.Path)
	default:
		s := string(n.Tag) + "("
		for i, c := range n.Children {
			if i > 0 {
				s += ", "
			}
			s += c.String()
		}
		return s + ")"
	}
}
