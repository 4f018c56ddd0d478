package jsonvalue

import (
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

var (
	integerLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)$`)
	decimalLiteral = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)
)

// Int returns an Integer value.
func Int(n int64) Value {
	return Value{kind: KindInteger, s: strconv.FormatInt(n, 10)}
}

// BigInteger returns an Integer value holding n.
func BigInteger(n *big.Int) Value {
	return Value{kind: KindInteger, s: n.String()}
}

// Float returns a Decimal value using the shortest representation of f.
func Float(f float64) Value {
	return decimalFromText(strconv.FormatFloat(f, 'g', -1, 64))
}

// decimalFromText keeps a float rendering parseable as a Decimal.
func decimalFromText(s string) Value {
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return Value{kind: KindDecimal, s: s}
}

// IntegerLiteral returns an Integer value that keeps the given digits.
func IntegerLiteral(digits string) (Value, error) {
	if !integerLiteral.MatchString(digits) {
		return Null(), fmt.Errorf("invalid integer literal %q", digits)
	}
	return Value{kind: KindInteger, s: digits}, nil
}

// DecimalLiteral returns a Decimal value that keeps the given digits.
func DecimalLiteral(digits string) (Value, error) {
	if !decimalLiteral.MatchString(digits) {
		return Null(), fmt.Errorf("invalid decimal literal %q", digits)
	}
	return Value{kind: KindDecimal, s: digits}, nil
}

// Number classifies a JSON number literal as Integer or Decimal.
func Number(literal string) (Value, error) {
	if integerLiteral.MatchString(literal) {
		return Value{kind: KindInteger, s: literal}, nil
	}
	if strings.ContainsAny(literal, ".eE") && decimalLiteral.MatchString(literal) {
		return Value{kind: KindDecimal, s: literal}, nil
	}
	return Null(), fmt.Errorf("invalid number literal %q", literal)
}

// AsInt64 returns an Integer as int64 when it fits.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	n, err := strconv.ParseInt(v.s, 10, 64)
	return n, err == nil
}

// AsFloat64 returns any number as float64.
func (v Value) AsFloat64() (float64, bool) {
	if !v.IsNumber() {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}
