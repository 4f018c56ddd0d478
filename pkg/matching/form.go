package matching

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// FormMatcher compares application/x-www-form-urlencoded bodies. Each
// parameter is a list of values addressed as "$.name" and "$.name[i]".
type FormMatcher struct{}

// Name returns "form".
func (FormMatcher) Name() string { return "form" }

// MatchBody decodes both bodies and compares them parameter by parameter.
func (FormMatcher) MatchBody(_ context.Context, expected, actual contract.Body, mc *Context) ([]Mismatch, error) {
	exp, err := url.ParseQuery(strings.TrimSpace(expected.ValueAsString()))
	if err != nil {
		return nil, fmt.Errorf("expected body is not a valid form: %w", err)
	}
	act, err := url.ParseQuery(strings.TrimSpace(actual.ValueAsString()))
	if err != nil {
		return []Mismatch{BodyTypeMismatch{
			Expected: contract.ContentTypeForm,
			Actual:   actual.DetectedContentType().BaseType(),
			Mismatch: fmt.Sprintf("Failed to parse the actual body as a form: %v", err),
		}}, nil
	}
	return CompareValues(mc, matchingrules.RootPath(), formValue(exp), formValue(act)), nil
}

// formValue turns decoded form parameters into an object of string arrays.
func formValue(values url.Values) jsonvalue.Value {
	entries := make(map[string]jsonvalue.Value, len(values))
	for name, vs := range values {
		list := make([]jsonvalue.Value, len(vs))
		for i, v := range vs {
			list[i] = jsonvalue.String(v)
		}
		entries[name] = jsonvalue.Array(list...)
	}
	return jsonvalue.Object(entries)
}
