package matching

import (
	"context"
	"fmt"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// JSONMatcher compares JSON bodies path by path.
type JSONMatcher struct{}

// Name returns "json".
func (JSONMatcher) Name() string { return "json" }

// MatchBody parses both bodies and compares them from the root. An actual
// body that is not JSON is reported as a single BodyTypeMismatch.
func (JSONMatcher) MatchBody(_ context.Context, expected, actual contract.Body, mc *Context) ([]Mismatch, error) {
	exp, err := parseJSONBody(expected)
	if err != nil {
		return nil, fmt.Errorf("expected body is not valid JSON: %w", err)
	}
	act, err := parseJSONBody(actual)
	if err != nil {
		return []Mismatch{BodyTypeMismatch{
			Expected: contract.ContentTypeJSON,
			Actual:   actual.DetectedContentType().BaseType(),
			Mismatch: fmt.Sprintf("Failed to parse the actual body as JSON: %v", err),
		}}, nil
	}
	return CompareValues(mc, matchingrules.RootPath(), exp, act), nil
}

func parseJSONBody(b contract.Body) (jsonvalue.Value, error) {
	text, err := b.Text()
	if err != nil {
		return jsonvalue.Null(), err
	}
	return jsonvalue.ParseString(text)
}
