package jsonvalue

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
)

// FromNative converts Go scalars, slices and maps into a Value. Supported
// inputs are nil, bool, every integer and float kind, string, json.Number,
// *big.Int, *big.Float, Value, []any, []Value, []string, map[string]any,
// map[string]Value and map[string]string.
func FromNative(in any) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null(), nil
		}
		return *t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Value{kind: KindInteger, s: strconv.FormatUint(uint64(t), 10)}, nil
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Value{kind: KindInteger, s: strconv.FormatUint(t, 10)}, nil
	case float32:
		return fromFloat(float64(t))
	case float64:
		return fromFloat(t)
	case json.Number:
		return Number(t.String())
	case *big.Int:
		return BigInteger(t), nil
	case *big.Float:
		return decimalFromText(t.Text('g', -1)), nil
	case []Value:
		return Array(t...), nil
	case []string:
		arr := make([]Value, len(t))
		for i, s := range t {
			arr[i] = String(s)
		}
		return Array(arr...), nil
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			v, err := FromNative(e)
			if err != nil {
				return Null(), fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = v
		}
		return Array(arr...), nil
	case map[string]Value:
		return Object(t), nil
	case map[string]string:
		obj := make(map[string]Value, len(t))
		for k, s := range t {
			obj[k] = String(s)
		}
		return Object(obj), nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := FromNative(e)
			if err != nil {
				return Null(), fmt.Errorf("key %q: %w", k, err)
			}
			obj[k] = v
		}
		return Object(obj), nil
	default:
		return Null(), fmt.Errorf("unsupported native type %T", in)
	}
}

// MustFromNative is like FromNative but panics on unsupported input.
// Intended for literals in tests and static tables.
func MustFromNative(in any) Value {
	v, err := FromNative(in)
	if err != nil {
		panic(err)
	}
	return v
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null(), fmt.Errorf("cannot represent %v as JSON", f)
	}
	return Float(f), nil
}

// ToNative converts v into plain Go values: nil, bool, int64 (or float64 when
// the integer overflows), float64, string, []any and map[string]any.
func (v Value) ToNative() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInteger:
		if n, ok := v.AsInt64(); ok {
			return n
		}
		f, _ := v.AsFloat64()
		return f
	case KindDecimal:
		f, _ := v.AsFloat64()
		return f
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.ToNative()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.ToNative()
		}
		return out
	default:
		return nil
	}
}

// SortedEntry is a key/value pair of an Object in key order.
type SortedEntry struct {
	Key   string
	Value Value
}

// SortedEntries returns the entries of an Object ordered by key.
func (v Value) SortedEntries() []SortedEntry {
	if v.kind != KindObject {
		return nil
	}
	out := make([]SortedEntry, 0, len(v.obj))
	for k, e := range v.obj {
		out = append(out, SortedEntry{Key: k, Value: e})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
