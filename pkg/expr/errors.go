package expr

import "fmt"

// UnboundVariableError is returned when an expression references a variable
// that has no value in the bindings.
type UnboundVariableError struct {
	Name string
	Expr Expr
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("could not evaluate <%s>: a value for variable <%s> is missing", e.Expr, e.Name)
}

// DomainError is an arithmetic fault: division by zero, a function argument
// outside its domain, or a non-finite intermediate result.
type DomainError struct {
	Op     string
	Detail string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error in %s: %s", e.Op, e.Detail)
}

// SyntaxError reports text that cannot be turned into an expression.
type SyntaxError struct {
	Source string
	Detail string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("invalid expression %q: %s", e.Source, e.Detail)
}

// FunctionError reports an unknown function or a call with the wrong number of arguments.
type FunctionError struct {
	Name   string
	Detail string
}

func (e *FunctionError) Error() string {
	return fmt.Sprintf("function %s: %s", e.Name, e.Detail)
}

// IntegrationError is returned when no closed-form antiderivative is known.
type IntegrationError struct {
	Expr     Expr
	Variable string
	Reason   string
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("cannot integrate <%s> with respect to %s: %s", e.Expr, e.Variable, e.Reason)
}

// DerivationError is returned when a derivative is undefined for the expression shape.
type DerivationError struct {
	Expr     Expr
	Variable string
	Reason   string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("cannot differentiate <%s> with respect to %s: %s", e.Expr, e.Variable, e.Reason)
}
