/*
Package expr implements the symbolic expression engine used by pulse templates.

An expression is an immutable tree over named free parameters. Trees are
built from literals, parameter names and the constructors in this package, or
parsed from text in HCL expression syntax:

	e, err := expr.Parse("amp * sin(2 * omega * t) + offset")

Evaluation uses exact rational arithmetic (Number). Functions without exact
results (sin, exp, log, ...) are computed in float64 and converted back through
the shortest decimal form, so evaluation is deterministic.

# Operations

  - Evaluate: numeric value under Bindings; fails with *UnboundVariableError or *DomainError.
  - FreeVariables: sorted names of referenced parameters.
  - Substitute / SubstituteAll: non-destructive replacement.
  - Derive / Integrate / IntegrateDefinite: symbolic calculus over one variable.
  - Key / Hash / Equal: structural identity, used by Memo.

Memo is an explicit evaluation cache; nothing in this package caches implicitly.
*/
package expr
