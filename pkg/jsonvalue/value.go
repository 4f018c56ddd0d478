package jsonvalue

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// ErrNotContainer is returned when indexing into a value that is not an
// Object or an Array.
var ErrNotContainer = errors.New("indexed lookups only work on arrays and objects")

// ErrIndexOutOfRange is returned when an array index is outside the array bounds.
var ErrIndexOutOfRange = errors.New("array index out of range")

// Kind identifies the variant held by a Value.
type Kind int

// Value variants.
const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindDecimal
	KindString
	KindArray
	KindObject
)

// String returns the type name used in mismatch descriptions.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Boolean"
	case KindInteger:
		return "Integer"
	case KindDecimal:
		return "Decimal"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindObject:
		return "Object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a JSON-like tree. The zero Value is Null.
//
// Integer and Decimal values keep the literal digits they were created from,
// so serialization reproduces them exactly. Equality compares numeric value.
type Value struct {
	kind Kind
	b    bool
	s    string // string content, or numeric literal
	arr  []Value
	obj  map[string]Value
}

// Null returns the Null value.
func Null() Value { return Value{} }

// Bool returns a Boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String returns a String value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array returns an Array holding the given values.
func Array(values ...Value) Value {
	if values == nil {
		values = []Value{}
	}
	return Value{kind: KindArray, arr: values}
}

// Object returns an Object holding the given entries. The map is used as is.
func Object(entries map[string]Value) Value {
	if entries == nil {
		entries = map[string]Value{}
	}
	return Value{kind: KindObject, obj: entries}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// Name returns the variant type name.
func (v Value) Name() string { return v.kind.String() }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsBoolean reports whether v is a Boolean.
func (v Value) IsBoolean() bool { return v.kind == KindBool }

// IsNumber reports whether v is an Integer or a Decimal.
func (v Value) IsNumber() bool { return v.kind == KindInteger || v.kind == KindDecimal }

// IsString reports whether v is a String.
func (v Value) IsString() bool { return v.kind == KindString }

// IsObject reports whether v is an Object.
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsArray reports whether v is an Array.
func (v Value) IsArray() bool { return v.kind == KindArray }

// AsString returns the string content of a String value.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBool returns the content of a Boolean value.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Literal returns the original digits of a number.
func (v Value) Literal() (string, bool) {
	if !v.IsNumber() {
		return "", false
	}
	return v.s, true
}

// BigInt returns the value of an Integer.
func (v Value) BigInt() (*big.Int, bool) {
	if v.kind != KindInteger {
		return nil, false
	}
	n, ok := new(big.Int).SetString(v.s, 10)
	return n, ok
}

// BigRat returns the exact value of any number.
func (v Value) BigRat() (*big.Rat, bool) {
	if !v.IsNumber() {
		return nil, false
	}
	return new(big.Rat).SetString(v.s)
}

// Values returns the elements of an Array, or nil.
func (v Value) Values() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Entries returns the entries of an Object, or nil.
func (v Value) Entries() map[string]Value {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Keys returns the sorted keys of an Object.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of elements of a container, or 1 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 1
	}
}

// Has reports whether an Object contains the key.
func (v Value) Has(key string) bool {
	if v.kind != KindObject {
		return false
	}
	_, ok := v.obj[key]
	return ok
}

// Get returns the entry for key. Missing keys and Null receivers yield Null.
func (v Value) Get(key string) (Value, error) {
	switch v.kind {
	case KindObject:
		return v.obj[key], nil
	case KindNull:
		return Null(), nil
	default:
		return Null(), fmt.Errorf("%w, not %s", ErrNotContainer, v.Name())
	}
}

// Index returns the element at i of an Array.
func (v Value) Index(i int) (Value, error) {
	switch v.kind {
	case KindArray:
		if i < 0 || i >= len(v.arr) {
			return Null(), fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, i, len(v.arr))
		}
		return v.arr[i], nil
	case KindNull:
		return Null(), nil
	default:
		return Null(), fmt.Errorf("%w, not %s", ErrNotContainer, v.Name())
	}
}

// Put sets an Object entry in place.
func (v *Value) Put(key string, value Value) error {
	if v.kind != KindObject {
		return fmt.Errorf("%w, not %s", ErrNotContainer, v.Name())
	}
	if v.obj == nil {
		v.obj = map[string]Value{}
	}
	v.obj[key] = value
	return nil
}

// SetIndex replaces the element at i of an Array in place.
func (v *Value) SetIndex(i int, value Value) error {
	if v.kind != KindArray {
		return fmt.Errorf("%w, not %s", ErrNotContainer, v.Name())
	}
	if i < 0 || i >= len(v.arr) {
		return fmt.Errorf("%w: %d (length %d)", ErrIndexOutOfRange, i, len(v.arr))
	}
	v.arr[i] = value
	return nil
}

// Append adds a value to the end of an Array in place.
func (v *Value) Append(values ...Value) error {
	if v.kind != KindArray {
		return fmt.Errorf("%w, not %s", ErrNotContainer, v.Name())
	}
	v.arr = append(v.arr, values...)
	return nil
}

// Copy returns a deep copy of v.
func (v Value) Copy() Value {
	switch v.kind {
	case KindArray:
		arr := make([]Value, len(v.arr))
		for i, e := range v.arr {
			arr[i] = e.Copy()
		}
		return Value{kind: KindArray, arr: arr}
	case KindObject:
		obj := make(map[string]Value, len(v.obj))
		for k, e := range v.obj {
			obj[k] = e.Copy()
		}
		return Value{kind: KindObject, obj: obj}
	default:
		return v
	}
}

// Equal compares two values structurally. Numbers compare by value within the
// same variant, arrays are order sensitive and objects are not.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindString:
		return v.s == other.s
	case KindInteger, KindDecimal:
		if v.s == other.s {
			return true
		}
		a, okA := v.BigRat()
		b, okB := other.BigRat()
		return okA && okB && a.Cmp(b) == 0
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(other.obj) {
			return false
		}
		for k, a := range v.obj {
			b, ok := other.obj[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

// Unwrap converts v to the nearest native type: nil, bool, *big.Int,
// *big.Float, string, []Value or map[string]Value.
func (v Value) Unwrap() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInteger:
		n, _ := v.BigInt()
		return n
	case KindDecimal:
		f, _, err := big.ParseFloat(v.s, 10, 0, big.ToNearestEven)
		if err != nil {
			return nil
		}
		return f
	case KindString:
		return v.s
	case KindArray:
		return v.arr
	case KindObject:
		return v.obj
	default:
		return nil
	}
}

// String returns the raw content of a String value and the serialized form
// of every other variant.
func (v Value) String() string {
	if v.kind == KindString {
		return v.s
	}
	return v.Serialize()
}

// Describe renders a value for mismatch messages: strings are quoted.
func (v Value) Describe() string {
	s := v.Serialize()
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
