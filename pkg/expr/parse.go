package expr

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// Parse reads an expression written in HCL expression syntax:
// numbers, parameter names, + - * / %, unary minus, parentheses, calls of the
// fixed function set and sum(index, from, to, body).
//
// HCL identifiers may contain '-', so "a-b" is a single (invalid) name;
// binary minus needs surrounding spaces.
func Parse(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, &SyntaxError{Source: src, Detail: "empty expression"}
	}
	parsed, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, &SyntaxError{Source: src, Detail: diags.Error()}
	}
	p := &parser{src: src}
	return p.convert(parsed)
}

// MustParse is Parse for expressions known to be valid.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	src string
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Source: p.src, Detail: fmt.Sprintf(format, args...)}
}

func (p *parser) convert(node hclsyntax.Expression) (Expr, error) {
	switch n := node.(type) {
	case *hclsyntax.LiteralValueExpr:
		return p.literal(n)
	case *hclsyntax.ScopeTraversalExpr:
		return p.variable(n)
	case *hclsyntax.ParenthesesExpr:
		return p.convert(n.Expression)
	case *hclsyntax.UnaryOpExpr:
		if n.Op != hclsyntax.OpNegate {
			return nil, p.errorf("unsupported unary operator")
		}
		x, err := p.convert(n.Val)
		if err != nil {
			return nil, err
		}
		return Neg(x), nil
	case *hclsyntax.BinaryOpExpr:
		return p.binary(n)
	case *hclsyntax.FunctionCallExpr:
		return p.call(n)
	}
	return nil, p.errorf("unsupported construct %T", node)
}

func (p *parser) literal(n *hclsyntax.LiteralValueExpr) (Expr, error) {
	if n.Val.IsNull() || n.Val.Type() != cty.Number {
		return nil, p.errorf("literal of type %s is not a number", n.Val.Type().FriendlyName())
	}
	// Prefer the source text so decimals stay exact ("0.2" is 1/5, not its binary approximation).
	start, end := n.SrcRange.Start.Byte, n.SrcRange.End.Byte
	if start >= 0 && end <= len(p.src) && start < end {
		if v, err := ParseNumber(p.src[start:end]); err == nil {
			return Num(v), nil
		}
	}
	r, _ := n.Val.AsBigFloat().Rat(nil)
	return Num(Number{r: r}), nil
}

func (p *parser) variable(n *hclsyntax.ScopeTraversalExpr) (Expr, error) {
	if len(n.Traversal) != 1 {
		return nil, p.errorf("attribute and index access are not supported")
	}
	name := n.Traversal.RootName()
	if !ValidName(name) {
		if strings.Contains(name, "-") {
			return nil, p.errorf("invalid name %q (write binary minus with spaces: a - b)", name)
		}
		return nil, p.errorf("invalid name %q", name)
	}
	return Variable(name), nil
}

func (p *parser) binary(n *hclsyntax.BinaryOpExpr) (Expr, error) {
	l, err := p.convert(n.LHS)
	if err != nil {
		return nil, err
	}
	r, err := p.convert(n.RHS)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case hclsyntax.OpAdd:
		return Add(l, r), nil
	case hclsyntax.OpSubtract:
		return Sub(l, r), nil
	case hclsyntax.OpMultiply:
		return Mul(l, r), nil
	case hclsyntax.OpDivide:
		return Div(l, r), nil
	case hclsyntax.OpModulo:
		return Mod(l, r), nil
	}
	return nil, p.errorf("unsupported binary operator")
}

func (p *parser) call(n *hclsyntax.FunctionCallExpr) (Expr, error) {
	if n.ExpandFinal {
		return nil, p.errorf("argument expansion is not supported")
	}
	if n.Name == sumFunc {
		return p.sum(n)
	}
	f, ok := LookupFunc(n.Name)
	if !ok {
		return nil, &FunctionError{Name: n.Name, Detail: "unknown function"}
	}
	args := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		x, err := p.convert(a)
		if err != nil {
			return nil, err
		}
		args[i] = x
	}
	return Fn(f, args...)
}

func (p *parser) sum(n *hclsyntax.FunctionCallExpr) (Expr, error) {
	if len(n.Args) != 4 {
		return nil, &FunctionError{Name: sumFunc, Detail: fmt.Sprintf("expected 4 arguments, got %d", len(n.Args))}
	}
	idx, ok := n.Args[0].(*hclsyntax.ScopeTraversalExpr)
	if !ok || len(idx.Traversal) != 1 || !ValidName(idx.Traversal.RootName()) {
		return nil, &FunctionError{Name: sumFunc, Detail: "first argument must be an index name"}
	}
	parts := make([]Expr, 3)
	for i, a := range n.Args[1:] {
		x, err := p.convert(a)
		if err != nil {
			return nil, err
		}
		parts[i] = x
	}
	return SumOver(idx.Traversal.RootName(), parts[0], parts[1], parts[2]), nil
}
