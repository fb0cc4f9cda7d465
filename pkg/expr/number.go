package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Number is the single numeric representation used by the engine: an exact rational.
// The zero value is 0. Numbers are immutable; every operation returns a new value.
type Number struct {
	r *big.Rat
}

// NewInt returns the Number for an integer.
func NewInt(i int64) Number {
	return Number{r: new(big.Rat).SetInt64(i)}
}

// NewRat returns a/b. It panics if b is zero, like big.Rat.SetFrac.
func NewRat(a, b int64) Number {
	return Number{r: new(big.Rat).SetFrac64(a, b)}
}

// NewFloat converts a float through its shortest decimal representation,
// so 0.2 becomes exactly 1/5.
func NewFloat(f float64) (Number, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}, &DomainError{Op: "number", Detail: fmt.Sprintf("non-finite value %v", f)}
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		return Number{}, &DomainError{Op: "number", Detail: fmt.Sprintf("cannot represent %v", f)}
	}
	return Number{r: r}, nil
}

// ParseNumber parses a decimal ("0.25", "1e-3") or fraction ("1/3") literal.
func ParseNumber(s string) (Number, error) {
	r, ok := new(big.Rat).SetString(strings.TrimSpace(s))
	if !ok {
		return Number{}, &SyntaxError{Source: s, Detail: "not a number"}
	}
	return Number{r: r}, nil
}

// MustParseNumber is ParseNumber for literals known to be valid.
func MustParseNumber(s string) Number {
	n, err := ParseNumber(s)
	if err != nil {
		panic(err)
	}
	return n
}

func (n Number) rat() *big.Rat {
	if n.r == nil {
		return new(big.Rat)
	}
	return n.r
}

// Rat returns a copy of the underlying rational.
func (n Number) Rat() *big.Rat {
	return new(big.Rat).Set(n.rat())
}

func (n Number) Add(o Number) Number { return Number{r: new(big.Rat).Add(n.rat(), o.rat())} }
func (n Number) Sub(o Number) Number { return Number{r: new(big.Rat).Sub(n.rat(), o.rat())} }
func (n Number) Mul(o Number) Number { return Number{r: new(big.Rat).Mul(n.rat(), o.rat())} }
func (n Number) Neg() Number         { return Number{r: new(big.Rat).Neg(n.rat())} }
func (n Number) Abs() Number         { return Number{r: new(big.Rat).Abs(n.rat())} }

// Quo returns n/o, failing with a DomainError when o is zero.
func (n Number) Quo(o Number) (Number, error) {
	if o.Sign() == 0 {
		return Number{}, &DomainError{Op: "/", Detail: "division by zero"}
	}
	return Number{r: new(big.Rat).Quo(n.rat(), o.rat())}, nil
}

// Mod returns n - o*floor(n/o), so the result has the sign of o.
func (n Number) Mod(o Number) (Number, error) {
	q, err := n.Quo(o)
	if err != nil {
		return Number{}, &DomainError{Op: "%", Detail: "modulo by zero"}
	}
	return n.Sub(o.Mul(q.Floor())), nil
}

func (n Number) Cmp(o Number) int { return n.rat().Cmp(o.rat()) }
func (n Number) Sign() int        { return n.rat().Sign() }
func (n Number) IsZero() bool     { return n.Sign() == 0 }
func (n Number) IsInt() bool      { return n.rat().IsInt() }

// IsOne reports whether n == 1.
func (n Number) IsOne() bool {
	r := n.rat()
	return r.IsInt() && r.Num().IsInt64() && r.Num().Int64() == 1
}

// Floor returns the greatest integer <= n.
func (n Number) Floor() Number {
	r := n.rat()
	// Denominators are always positive, so Euclidean division rounds down.
	q := new(big.Int).Div(r.Num(), r.Denom())
	return Number{r: new(big.Rat).SetInt(q)}
}

// Ceil returns the least integer >= n.
func (n Number) Ceil() Number {
	return n.Neg().Floor().Neg()
}

// Int64 returns n as an int64 when it is an integer in range.
func (n Number) Int64() (int64, bool) {
	r := n.rat()
	if !r.IsInt() || !r.Num().IsInt64() {
		return 0, false
	}
	return r.Num().Int64(), true
}

// Float64 returns the nearest float64.
func (n Number) Float64() float64 {
	f, _ := n.rat().Float64()
	return f
}

// String prints integers and terminating decimals positionally ("10", "0.2")
// and any other rational as a fraction ("1 / 3"). The output parses back to
// the same value.
func (n Number) String() string {
	r := n.rat()
	if r.IsInt() {
		return r.Num().String()
	}
	if s, ok := decimalString(r); ok {
		return s
	}
	return r.Num().String() + " / " + r.Denom().String()
}

// isDecimal reports whether String renders n without a fraction bar.
func (n Number) isDecimal() bool {
	r := n.rat()
	if r.IsInt() {
		return true
	}
	_, ok := decimalString(r)
	return ok
}

var (
	bigTwo  = big.NewInt(2)
	bigFive = big.NewInt(5)
	bigTen  = big.NewInt(10)
)

// decimalString renders r exactly when its denominator has no prime factors other than 2 and 5.
func decimalString(r *big.Rat) (string, bool) {
	den := new(big.Int).Set(r.Denom())
	twos, fives := 0, 0
	mod := new(big.Int)
	for {
		q, m := new(big.Int).QuoRem(den, bigTwo, mod)
		if m.Sign() != 0 {
			break
		}
		den, twos = q, twos+1
	}
	for {
		q, m := new(big.Int).QuoRem(den, bigFive, mod)
		if m.Sign() != 0 {
			break
		}
		den, fives = q, fives+1
	}
	if den.Cmp(big.NewInt(1)) != 0 {
		return "", false
	}
	places := max(twos, fives)
	scale := new(big.Int).Exp(bigTen, big.NewInt(int64(places)), nil)
	scaled := new(big.Int).Mul(r.Num(), scale)
	scaled.Quo(scaled, r.Denom())

	neg := scaled.Sign() < 0
	digits := new(big.Int).Abs(scaled).String()
	if len(digits) <= places {
		digits = strings.Repeat("0", places-len(digits)+1) + digits
	}
	cut := len(digits) - places
	s := digits[:cut] + "." + digits[cut:]
	if neg {
		s = "-" + s
	}
	return s, true
}

// MarshalJSON encodes the exact value as a JSON string.
func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.String())
}

// UnmarshalJSON accepts a JSON number or a string holding a number or fraction.
func (n *Number) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var num json.Number
		if err := json.Unmarshal(data, &num); err != nil {
			return fmt.Errorf("invalid number %s: %w", data, err)
		}
		s = num.String()
	}
	s = strings.ReplaceAll(s, " ", "")
	parsed, err := ParseNumber(s)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// Format renders n with a fixed number of significant digits in positional
// notation, e.g. Format(10, 15) == "10.0000000000000".
func Format(n Number, digits int) string {
	if digits < 1 {
		digits = 1
	}
	if n.IsZero() {
		if digits == 1 {
			return "0"
		}
		return "0." + strings.Repeat("0", digits-1)
	}
	f := new(big.Float).SetPrec(512).SetRat(n.rat())
	sci := f.Text('e', digits-1) // d.ddddde±XX
	neg := strings.HasPrefix(sci, "-")
	sci = strings.TrimPrefix(sci, "-")
	mant, expPart, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expPart)
	mantDigits := strings.Replace(mant, ".", "", 1)

	var out string
	switch {
	case exp < 0:
		out = "0." + strings.Repeat("0", -exp-1) + mantDigits
	case exp+1 >= len(mantDigits):
		out = mantDigits + strings.Repeat("0", exp+1-len(mantDigits))
	default:
		out = mantDigits[:exp+1] + "." + mantDigits[exp+1:]
	}
	if neg {
		out = "-" + out
	}
	return out
}
