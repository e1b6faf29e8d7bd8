package logic

import (
	"errors"
	"testing"

	"github.com/AiCoda/skill-spec/internal/types"
)

func TestParse_InfixComparisons(t *testing.T) {
	tests := []struct {
		name string
		expr string
		tag  OpTag
	}{
		{"equality", "status == 'active'", OpEq},
		{"inequality", "status != 'active'", OpNeq},
		{"less than", "amount < 100", OpLt},
		{"greater than", "amount > 100", OpGt},
		{"less or equal", "amount <= 100", OpLte},
		{"greater or equal", "amount >= 100", OpGte},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := Parse(tt.expr)
			if err != nil {
				t.Fatalf("Parse() error = %v, want nil", err)
			}
			if node.Kind != KindOp || node.Tag != tt.tag {
				t.Errorf("Tag = %v, want %v", node.Tag, tt.tag)
			}
			if len(node.Children) != 2 {
				t.Errorf("len(Children) = %d, want 2", len(node.Children))
			}
		})
	}
}

func TestParse_BooleanOperators(t *testing.T) {
	node, err := Parse("a == 1 AND b == 2 OR NOT c == 3")
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	// OR binds loosest
	if node.Tag != OpOr {
		t.Fatalf("root Tag = %v, want %v", node.Tag, OpOr)
	}
	if node.Children[0].Tag != OpAnd {
		t.Errorf("left Tag = %v, want %v", node.Children[0].Tag, OpAnd)
	}
	if node.Children[1].Tag != OpNot {
		t.Errorf("right Tag = %v, want %v", node.Children[1].Tag, OpNot)
	}
}

func TestParse_KeywordsCaseInsensitive(t *testing.T) {
	for _, expr := range []string{"a == 1 and b == 2", "a == 1 AND b == 2", "a == 1 And b == 2"} {
		node, err := Parse(expr)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v, want nil", expr, err)
		}
		if node.Tag != OpAnd {
			t.Errorf("Parse(%q) Tag = %v, want %v", expr, node.Tag, OpAnd)
		}
	}
}

func TestParse_ParenthesesGrouping(t *testing.T) {
	node, err := Parse("(a == 1 OR b == 2) AND c == 3")
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	if node.Tag != OpAnd {
		t.Fatalf("root Tag = %v, want %v", node.Tag, OpAnd)
	}
	if node.Children[0].Tag != OpOr {
		t.Errorf("grouped Tag = %v, want %v", node.Children[0].Tag, OpOr)
	}
}

func TestParse_ComparisonInsideParens(t *testing.T) {
	node, err := Parse("(amount > 100)")
	if err != nil {
		t.Fatalf("Parse() error = %v, want nil", err)
	}
	if node.Tag != OpGt {
		t.Errorf("Tag = %v, want %v", node.Tag, OpGt)
	}
}

func TestParse_Literals(t *testing.T) {
	tests := []struct {
		expr string
		want any
	}{
		{"'hello'", "hello"},
		{`"world"`, "world"},
		{"42", 42},
		{"3.14", 3.14},
		{"true", true},
		{"false", false},
	}

	for _, tt := range tests {
		node, err := Parse(tt.expr)
		if err != nil {
			t.Fatalf("Parse(%q) error = %v, want nil", tt.expr, err)
		}
		if node.Kind != KindLiteral {
			t.Fatalf("Parse(%q) Kind = %v, want literal", tt.expr, node.Kind)
		}
		if node.Value != tt.want {
			t.Errorf("Parse(%q) Value = %v, want %v", tt.expr, node.Value, tt.want)
		}
	}
}

func TestParse_FunctionRewrites(t *testing.T) {
	t.Run("len of variable becomes path rewrite", func(t *testing.T) {
		node, err := Parse("len(items) > 3")
		if err != nil {
			t.Fatalf("Parse() error = %v, want nil", err)
		}
		left := node.Children[0]
		if left.Kind != KindVar || left.Path != LenPrefix+"items" {
			t.Errorf("left = %v kind=%v, want var(%sitems)", left.Path, left.Kind, LenPrefix)
		}
	})

	t.Run("contains reverses arguments into in", func(t *testing.T) {
		node, err := Parse("contains(tags, 'pii')")
		if err != nil {
			t.Fatalf("Parse() error = %v, want nil", err)
		}
		if node.Tag != OpIn {
			t.Fatalf("Tag = %v, want %v", node.Tag, OpIn)
		}
		if node.Children[0].Value != "pii" {
			t.Errorf("needle = %v, want pii", node.Children[0].Value)
		}
		if node.Children[1].Path != "tags" {
			t.Errorf("haystack = %v, want tags", node.Children[1].Path)
		}
	})

	t.Run("is_null becomes equality with null", func(t *testing.T) {
		node, err := Parse("is_null(owner)")
		if err != nil {
			t.Fatalf("Parse() error = %v, want nil", err)
		}
		if node.Tag != OpEq {
			t.Fatalf("Tag = %v, want %v", node.Tag, OpEq)
		}
		if node.Children[1].Value != nil {
			t.Errorf("right Value = %v, want nil", node.Children[1].Value)
		}
	})

	t.Run("is_empty negates truthiness", func(t *testing.T) {
		node, err := Parse("is_empty(items)")
		if err != nil {
			t.Fatalf("Parse() error = %v, want nil", err)
		}
		if node.Tag != OpNot {
			t.Errorf("Tag = %v, want %v", node.Tag, OpNot)
		}
	})

	t.Run("matches builds regex op", func(t *testing.T) {
		node, err := Parse("matches(email, '^[a-z]+@')")
		if err != nil {
			t.Fatalf("Parse() error = %v, want nil", err)
		}
		if node.Tag != OpMatches {
			t.Errorf("Tag = %v, want %v", node.Tag, OpMatches)
		}
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{"empty expression", "", types.ErrEmptyExpression},
		{"whitespace only", "   ", types.ErrEmptyExpression},
		{"unbalanced open paren", "(a == 1", types.ErrSyntax},
		{"unbalanced close paren", "a == 1)", types.ErrSyntax},
		{"unknown function", "frobnicate(x)", types.ErrUnknownFunction},
		{"wrong arity for len", "len(a, b) > 1", types.ErrWrongArity},
		{"wrong arity for contains", "contains(tags)", types.ErrWrongArity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.expr)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestParse_UnknownFunctionName(t *testing.T) {
	_, err := Parse("frobnicate(x)")
	var ufe *UnknownFunctionError
	if !errors.As(err, &ufe) {
		t.Fatalf("error = %T, want *UnknownFunctionError", err)
	}
	if ufe.Name != "frobnicate" {
		t.Errorf("Name = %q, want frobnicate", ufe.Name)
	}
}

func TestParse_SyntaxErrorPosition(t *testing.T) {
	_, err := Parse("a == 1)")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("error = %T, want *SyntaxError", err)
	}
	if se.Pos != 6 {
		t.Errorf("Pos = %d, want 6", se.Pos)
	}
}

func TestParse_MapForm(t *testing.T) {
	t.Run("operator map", func(t *testing.T) {
		node, err := Parse(map[string]any{
			"==": []any{map[string]any{"var": "status"}, "active"},
		})
		if err != nil {
			t.Fatalf("Parse() error = %v, want nil", err)
		}
		if node.Tag != OpEq {
			t.Errorf("Tag = %v, want %v", node.Tag, OpEq)
		}
		if node.Children[0].Path != "status" {
			t.Errorf("Path = %q, want status", node.Children[0].Path)
		}
	})

	t.Run("var with default", func(t *testing.T) {
		node, err := Parse(map[string]any{"var": []any{"mode", "auto"}})
		if err != nil {
			t.Fatalf("Parse() error = %v, want nil", err)
		}
		if node.Kind != KindVar || node.Default != "auto" {
			t.Errorf("node = %+v, want var with default auto", node)
		}
	})

	t.Run("multi-key map is a literal", func(t *testing.T) {
		node, err := Parse(map[string]any{"a": 1, "b": 2})
		if err != nil {
			t.Fatalf("Parse() error = %v, want nil", err)
		}
		if node.Kind != KindLiteral {
			t.Errorf("Kind = %v, want literal", node.Kind)
		}
	})
}

func TestParse_BoolAndNil(t *testing.T) {
	node, err := Parse(true)
	if err != nil {
		t.Fatalf("Parse(true) error = %v, want nil", err)
	}
	if node.Value != true {
		t.Errorf("Value = %v, want true", node.Value)
	}

	if _, err := Parse(nil); !errors.Is(err, types.ErrEmptyExpression) {
		t.Errorf("Parse(nil) error = %v, want %v", err, types.ErrEmptyExpression)
	}
}

func TestValidate(t *testing.T) {
	if ok, msg := Validate("a == 1 AND b > 2"); !ok {
		t.Errorf("Validate() = false (%s), want true", msg)
	}
	if ok, msg := Validate("(a == 1"); ok || msg == "" {
		t.Errorf("Validate() = %v %q, want false with message", ok, msg)
	}
}
