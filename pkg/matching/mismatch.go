package matching

import (
	"strconv"
	"strings"

	"github.com/getmockd/contracts/pkg/jsonvalue"
)

// Mismatch is a single difference between an expected and an actual value.
// The concrete types are StatusMismatch, HeaderMismatch, BodyMismatch,
// BodyTypeMismatch, MetadataMismatch, MethodMismatch, PathMismatch and
// QueryMismatch.
type Mismatch interface {
	// Type is the mismatch type name, e.g. "BodyMismatch".
	Type() string
	// Path is the location of the mismatch: a body path, a header or query
	// name or a metadata key. Status and method mismatches return "".
	Path() string
	Description() string
	// ToDocument renders the mismatch for reports.
	ToDocument() jsonvalue.Value
	isMismatch()
}

// StatusMismatch reports a response status that does not match.
type StatusMismatch struct {
	Expected int
	Actual   int
	Mismatch string
}

func (m StatusMismatch) Type() string        { return "StatusMismatch" }
func (m StatusMismatch) Path() string        { return "" }
func (m StatusMismatch) Description() string { return m.Mismatch }
func (StatusMismatch) isMismatch()           {}

func (m StatusMismatch) ToDocument() jsonvalue.Value {
	return document(m, map[string]jsonvalue.Value{
		"expected": jsonvalue.Int(int64(m.Expected)),
		"actual":   jsonvalue.Int(int64(m.Actual)),
	})
}

// HeaderMismatch reports a header that is missing or has the wrong value.
type HeaderMismatch struct {
	HeaderKey string
	Expected  string
	Actual    string
	Mismatch  string
}

func (m HeaderMismatch) Type() string        { return "HeaderMismatch" }
func (m HeaderMismatch) Path() string        { return m.HeaderKey }
func (m HeaderMismatch) Description() string { return m.Mismatch }
func (HeaderMismatch) isMismatch()           {}

func (m HeaderMismatch) ToDocument() jsonvalue.Value {
	return document(m, map[string]jsonvalue.Value{
		"key":      jsonvalue.String(m.HeaderKey),
		"expected": jsonvalue.String(m.Expected),
		"actual":   jsonvalue.String(m.Actual),
	})
}

// BodyMismatch reports a difference at a path of a body. Expected and
// Actual are Null when the value is absent on that side.
type BodyMismatch struct {
	Expected jsonvalue.Value
	Actual   jsonvalue.Value
	Mismatch string
	BodyPath string
	Diff     string
}

func (m BodyMismatch) Type() string        { return "BodyMismatch" }
func (m BodyMismatch) Path() string        { return m.BodyPath }
func (m BodyMismatch) Description() string { return m.Mismatch }
func (BodyMismatch) isMismatch()           {}

func (m BodyMismatch) ToDocument() jsonvalue.Value {
	fields := map[string]jsonvalue.Value{
		"path":     jsonvalue.String(m.BodyPath),
		"expected": m.Expected,
		"actual":   m.Actual,
	}
	if m.Diff != "" {
		fields["diff"] = jsonvalue.String(m.Diff)
	}
	return document(m, fields)
}

// BodyTypeMismatch reports a body whose content type or structure is
// incompatible with the expectation. It replaces every other body mismatch.
type BodyTypeMismatch struct {
	Expected string
	Actual   string
	Mismatch string
}

func (m BodyTypeMismatch) Type() string        { return "BodyTypeMismatch" }
func (m BodyTypeMismatch) Path() string        { return "$" }
func (m BodyTypeMismatch) Description() string { return m.Mismatch }
func (BodyTypeMismatch) isMismatch()           {}

func (m BodyTypeMismatch) ToDocument() jsonvalue.Value {
	return document(m, map[string]jsonvalue.Value{
		"expected": jsonvalue.String(m.Expected),
		"actual":   jsonvalue.String(m.Actual),
	})
}

// MetadataMismatch reports a message metadata entry that does not match.
type MetadataMismatch struct {
	Key      string
	Expected jsonvalue.Value
	Actual   jsonvalue.Value
	Mismatch string
}

func (m MetadataMismatch) Type() string        { return "MetadataMismatch" }
func (m MetadataMismatch) Path() string        { return m.Key }
func (m MetadataMismatch) Description() string { return m.Mismatch }
func (MetadataMismatch) isMismatch()           {}

func (m MetadataMismatch) ToDocument() jsonvalue.Value {
	return document(m, map[string]jsonvalue.Value{
		"key":      jsonvalue.String(m.Key),
		"expected": m.Expected,
		"actual":   m.Actual,
	})
}

// MethodMismatch reports a request method that does not match.
type MethodMismatch struct {
	Expected string
	Actual   string
	Mismatch string
}

func (m MethodMismatch) Type() string        { return "MethodMismatch" }
func (m MethodMismatch) Path() string        { return "" }
func (m MethodMismatch) Description() string { return m.Mismatch }
func (MethodMismatch) isMismatch()           {}

func (m MethodMismatch) ToDocument() jsonvalue.Value {
	return document(m, map[string]jsonvalue.Value{
		"expected": jsonvalue.String(m.Expected),
		"actual":   jsonvalue.String(m.Actual),
	})
}

// PathMismatch reports a request path that does not match.
type PathMismatch struct {
	Expected string
	Actual   string
	Mismatch string
}

func (m PathMismatch) Type() string        { return "PathMismatch" }
func (m PathMismatch) Path() string        { return "" }
func (m PathMismatch) Description() string { return m.Mismatch }
func (PathMismatch) isMismatch()           {}

func (m PathMismatch) ToDocument() jsonvalue.Value {
	return document(m, map[string]jsonvalue.Value{
		"expected": jsonvalue.String(m.Expected),
		"actual":   jsonvalue.String(m.Actual),
	})
}

// QueryMismatch reports a query parameter that is missing, unexpected or has
// the wrong value.
type QueryMismatch struct {
	Parameter string
	Expected  string
	Actual    string
	Mismatch  string
}

func (m QueryMismatch) Type() string        { return "QueryMismatch" }
func (m QueryMismatch) Path() string        { return m.Parameter }
func (m QueryMismatch) Description() string { return m.Mismatch }
func (QueryMismatch) isMismatch()           {}

func (m QueryMismatch) ToDocument() jsonvalue.Value {
	return document(m, map[string]jsonvalue.Value{
		"parameter": jsonvalue.String(m.Parameter),
		"expected":  jsonvalue.String(m.Expected),
		"actual":    jsonvalue.String(m.Actual),
	})
}

func document(m Mismatch, fields map[string]jsonvalue.Value) jsonvalue.Value {
	fields["type"] = jsonvalue.String(m.Type())
	fields["mismatch"] = jsonvalue.String(m.Description())
	return jsonvalue.Object(fields)
}

// Describe renders mismatches one per line, prefixed by their path.
func Describe(mismatches []Mismatch) string {
	var b strings.Builder
	for i, m := range mismatches {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(") ")
		if p := m.Path(); p != "" {
			b.WriteString(p)
			b.WriteString(": ")
		}
		b.WriteString(m.Description())
	}
	return b.String()
}

// ByType returns the mismatches of one type, e.g. "HeaderMismatch".
func ByType(mismatches []Mismatch, typ string) []Mismatch {
	var out []Mismatch
	for _, m := range mismatches {
		if m.Type() == typ {
			out = append(out, m)
		}
	}
	return out
}
