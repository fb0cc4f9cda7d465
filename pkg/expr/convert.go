package expr

import (
	"encoding/json"
	"fmt"
)

// From normalizes user input into an expression. It accepts an Expr, a
// Number, Go integers and floats, json.Number, and strings (parsed).
func From(v any) (Expr, error) {
	switch x := v.(type) {
	case nil:
		return nil, &SyntaxError{Source: "<nil>", Detail: "missing value"}
	case Expr:
		return x, nil
	case Number:
		return Num(x), nil
	case *Number:
		return Num(*x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint:
		return Int(int64(x)), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case float32:
		n, err := NewFloat(float64(x))
		if err != nil {
			return nil, err
		}
		return Num(n), nil
	case float64:
		n, err := NewFloat(x)
		if err != nil {
			return nil, err
		}
		return Num(n), nil
	case json.Number:
		n, err := ParseNumber(x.String())
		if err != nil {
			return nil, err
		}
		return Num(n), nil
	case string:
		return Parse(x)
	}
	return nil, &SyntaxError{Source: fmt.Sprintf("%v", v), Detail: fmt.Sprintf("unsupported value type %T", v)}
}

// MustFrom is From for literals known to be valid.
func MustFrom(v any) Expr {
	e, err := From(v)
	if err != nil {
		panic(err)
	}
	return e
}
