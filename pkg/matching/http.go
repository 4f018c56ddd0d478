package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// category returns the named category of rules, or nil.
func category(rules *matchingrules.MatchingRules, name string) *matchingrules.Category {
	if rules == nil {
		return nil
	}
	c, _ := rules.Category(name)
	return c
}

// namedList returns the rule list for a header, query parameter or metadata
// key. Header names are compared case-insensitively.
func namedList(c *matchingrules.Category, name string, foldCase bool) (matchingrules.RuleList, bool) {
	if c == nil {
		return matchingrules.RuleList{}, false
	}
	if list, ok := c.RuleList(name); ok && !list.IsEmpty() {
		return list, true
	}
	if !foldCase {
		return matchingrules.RuleList{}, false
	}
	for _, p := range c.Paths() {
		if strings.EqualFold(p, name) {
			if list, _ := c.RuleList(p); !list.IsEmpty() {
				return list, true
			}
		}
	}
	return matchingrules.RuleList{}, false
}

// MatchStatus compares response status codes using the status rules, or
// exact equality when there are none.
func MatchStatus(expected, actual int, rules *matchingrules.MatchingRules) []Mismatch {
	if list, ok := namedList(category(rules, matchingrules.CategoryStatus), "", false); ok {
		var mismatches []Mismatch
		for _, msg := range evaluateList(list, jsonvalue.Int(int64(expected)), jsonvalue.Int(int64(actual))) {
			mismatches = append(mismatches, StatusMismatch{Expected: expected, Actual: actual, Mismatch: msg})
		}
		return mismatches
	}
	if expected == actual {
		return nil
	}
	return []Mismatch{StatusMismatch{
		Expected: expected,
		Actual:   actual,
		Mismatch: fmt.Sprintf("expected status of %d but was %d", expected, actual),
	}}
}

// MatchMethod compares request methods case-insensitively.
func MatchMethod(expected, actual string) []Mismatch {
	if strings.EqualFold(expected, actual) {
		return nil
	}
	return []Mismatch{MethodMismatch{
		Expected: strings.ToUpper(expected),
		Actual:   strings.ToUpper(actual),
		Mismatch: fmt.Sprintf("Expected a %s request but received a %s request", strings.ToUpper(expected), strings.ToUpper(actual)),
	}}
}

// MatchPath compares request paths using the path rules, or exact equality.
func MatchPath(expected, actual string, rules *matchingrules.MatchingRules) []Mismatch {
	if list, ok := namedList(category(rules, matchingrules.CategoryPath), "", false); ok {
		var mismatches []Mismatch
		for _, msg := range evaluateList(list, jsonvalue.String(expected), jsonvalue.String(actual)) {
			mismatches = append(mismatches, PathMismatch{Expected: expected, Actual: actual, Mismatch: msg})
		}
		return mismatches
	}
	if expected == actual {
		return nil
	}
	return []Mismatch{PathMismatch{
		Expected: expected,
		Actual:   actual,
		Mismatch: fmt.Sprintf("Expected path '%s' but received '%s'", expected, actual),
	}}
}

// MatchHeaders compares the expected headers with the actual ones. Headers
// the expectation does not name are ignored.
func MatchHeaders(expected, actual map[string][]string, rules *matchingrules.MatchingRules) []Mismatch {
	headerRules := category(rules, matchingrules.CategoryHeader)
	var mismatches []Mismatch
	for _, name := range contract.HeaderNames(expected) {
		exp := expected[name]
		act, ok := contract.HeaderValues(actual, name)
		if !ok {
			mismatches = append(mismatches, HeaderMismatch{
				HeaderKey: name,
				Expected:  strings.Join(exp, ", "),
				Mismatch:  fmt.Sprintf("Expected a header '%s' but was missing", name),
			})
			continue
		}
		mismatches = append(mismatches, matchHeader(name, exp, act, headerRules)...)
	}
	return mismatches
}

func matchHeader(name string, expected, actual []string, rules *matchingrules.Category) []Mismatch {
	exp := strings.Join(expected, ", ")
	act := strings.Join(actual, ", ")
	mismatch := func(msg string) HeaderMismatch {
		return HeaderMismatch{HeaderKey: name, Expected: exp, Actual: act, Mismatch: msg}
	}

	if list, ok := namedList(rules, name, true); ok {
		var mismatches []Mismatch
		for _, msg := range evaluateList(list, jsonvalue.String(exp), jsonvalue.String(act)) {
			mismatches = append(mismatches, mismatch(fmt.Sprintf("Mismatch with header '%s': %s", name, msg)))
		}
		return mismatches
	}

	if strings.EqualFold(name, "Content-Type") {
		if contentTypesMatch(contract.ParseContentType(exp), contract.ParseContentType(act)) {
			return nil
		}
		return []Mismatch{mismatch(fmt.Sprintf("Expected header '%s' to have value '%s' but was '%s'", name, exp, act))}
	}

	if equalStrings(splitHeader(expected), splitHeader(actual)) {
		return nil
	}
	return []Mismatch{mismatch(fmt.Sprintf("Expected header '%s' to have value '%s' but was '%s'", name, exp, act))}
}

// contentTypesMatch requires the same base type and every expected
// parameter to be present with the same value.
func contentTypesMatch(expected, actual contract.ContentType) bool {
	if expected.BaseType() != actual.BaseType() {
		return false
	}
	for k, v := range expected.Params() {
		if !strings.EqualFold(actual.Param(k), v) {
			return false
		}
	}
	return true
}

// splitHeader splits comma separated header values and trims each part.
func splitHeader(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MatchQuery compares query parameters. Every expected parameter must be
// present and unexpected parameters are reported.
func MatchQuery(expected, actual map[string][]string, rules *matchingrules.MatchingRules) []Mismatch {
	queryRules := category(rules, matchingrules.CategoryQuery)
	var mismatches []Mismatch
	for _, name := range sortedKeys(expected) {
		exp := expected[name]
		act, ok := actual[name]
		if !ok {
			mismatches = append(mismatches, QueryMismatch{
				Parameter: name,
				Expected:  strings.Join(exp, ","),
				Mismatch:  fmt.Sprintf("Expected query parameter '%s' but was missing", name),
			})
			continue
		}
		mismatches = append(mismatches, matchQueryParam(name, exp, act, queryRules)...)
	}
	for _, name := range sortedKeys(actual) {
		if _, ok := expected[name]; !ok {
			mismatches = append(mismatches, QueryMismatch{
				Parameter: name,
				Actual:    strings.Join(actual[name], ","),
				Mismatch:  fmt.Sprintf("Unexpected query parameter '%s' received", name),
			})
		}
	}
	return mismatches
}

func matchQueryParam(name string, expected, actual []string, rules *matchingrules.Category) []Mismatch {
	mismatch := func(exp, act, msg string) QueryMismatch {
		return QueryMismatch{Parameter: name, Expected: exp, Actual: act, Mismatch: msg}
	}

	if list, ok := namedList(rules, name, false); ok {
		template := jsonvalue.Null()
		if len(expected) > 0 {
			template = jsonvalue.String(expected[0])
		}
		var mismatches []Mismatch
		values := make([]jsonvalue.Value, len(actual))
		for i, a := range actual {
			values[i] = jsonvalue.String(a)
		}
		for _, rule := range list.Rules {
			if rule.Type != matchingrules.TypeMin && rule.Type != matchingrules.TypeMax && rule.Type != matchingrules.TypeMinMax {
				continue
			}
			if msg := sizeFailure(rule, jsonvalue.Array(values...)); msg != "" {
				mismatches = append(mismatches, mismatch(strings.Join(expected, ","), strings.Join(actual, ","), msg))
			}
		}
		for _, v := range values {
			for _, msg := range evaluateList(list, template, v) {
				s, _ := v.AsString()
				mismatches = append(mismatches, mismatch(template.String(), s, msg))
			}
		}
		return mismatches
	}

	var mismatches []Mismatch
	for i, exp := range expected {
		if i >= len(actual) {
			break
		}
		if exp != actual[i] {
			mismatches = append(mismatches, mismatch(exp, actual[i],
				fmt.Sprintf("Expected '%s' but received '%s' for query parameter '%s'", exp, actual[i], name)))
		}
	}
	if len(expected) != len(actual) {
		mismatches = append(mismatches, mismatch(strings.Join(expected, ","), strings.Join(actual, ","),
			fmt.Sprintf("Expected query parameter '%s' with %d value(s) but received %d value(s)", name, len(expected), len(actual))))
	}
	return mismatches
}

// MatchMetadata compares message metadata over the expected keys only.
func MatchMetadata(expected, actual map[string]jsonvalue.Value, rules *matchingrules.MatchingRules) []Mismatch {
	metaRules := category(rules, matchingrules.CategoryMetadata)
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var mismatches []Mismatch
	for _, key := range keys {
		exp := expected[key]
		act, ok := actual[key]
		if !ok {
			mismatches = append(mismatches, MetadataMismatch{
				Key:      key,
				Expected: exp,
				Actual:   jsonvalue.Null(),
				Mismatch: fmt.Sprintf("Expected message metadata '%s' but was missing", key),
			})
			continue
		}
		if list, ok := namedList(metaRules, key, false); ok {
			for _, msg := range evaluateList(list, exp, act) {
				mismatches = append(mismatches, MetadataMismatch{Key: key, Expected: exp, Actual: act, Mismatch: msg})
			}
			continue
		}
		if metadataEqual(key, exp, act) {
			continue
		}
		mismatches = append(mismatches, MetadataMismatch{
			Key:      key,
			Expected: exp,
			Actual:   act,
			Mismatch: fmt.Sprintf("Expected message metadata '%s' to have value %s but was %s", key, exp.Describe(), act.Describe()),
		})
	}
	return mismatches
}

func metadataEqual(key string, expected, actual jsonvalue.Value) bool {
	if expected.Equal(actual) {
		return true
	}
	if strings.EqualFold(key, "contentType") || strings.EqualFold(key, "content-type") {
		return contract.ParseContentType(expected.String()).BaseType() == contract.ParseContentType(actual.String()).BaseType()
	}
	return expected.String() == actual.String()
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// withHeaderType fills in the content type of body from headers when the
// body has none.
func withHeaderType(body contract.Body, headers map[string][]string) contract.Body {
	if !body.ContentType.IsEmpty() {
		return body
	}
	if v, ok := contract.HeaderValues(headers, "Content-Type"); ok && len(v) > 0 {
		return body.WithContentType(v[0])
	}
	return body
}

// MatchRequest compares an actual request with the expected one. Request
// bodies may not carry keys the expectation does not have.
func (e *Engine) MatchRequest(ctx context.Context, expected, actual *contract.Request) ([]Mismatch, error) {
	var mismatches []Mismatch
	mismatches = append(mismatches, MatchMethod(expected.Method, actual.Method)...)
	mismatches = append(mismatches, MatchPath(expected.Path, actual.Path, expected.MatchingRules)...)
	mismatches = append(mismatches, MatchQuery(expected.Query, actual.Query, expected.MatchingRules)...)
	mismatches = append(mismatches, MatchHeaders(expected.Headers, actual.Headers, expected.MatchingRules)...)

	mc := e.NewContext(category(expected.MatchingRules, matchingrules.CategoryBody), false)
	body, err := e.MatchBody(ctx, withHeaderType(expected.Body, expected.Headers), withHeaderType(actual.Body, actual.Headers), mc)
	if err != nil {
		return nil, err
	}
	return append(mismatches, body...), nil
}

// MatchResponse compares an actual response with the expected one.
func (e *Engine) MatchResponse(ctx context.Context, expected, actual *contract.Response) ([]Mismatch, error) {
	var mismatches []Mismatch
	mismatches = append(mismatches, MatchStatus(expected.Status, actual.Status, expected.MatchingRules)...)
	mismatches = append(mismatches, MatchHeaders(expected.Headers, actual.Headers, expected.MatchingRules)...)

	mc := e.NewContext(category(expected.MatchingRules, matchingrules.CategoryBody), true)
	body, err := e.MatchBody(ctx, withHeaderType(expected.Body, expected.Headers), withHeaderType(actual.Body, actual.Headers), mc)
	if err != nil {
		return nil, err
	}
	return append(mismatches, body...), nil
}

// MatchMessage compares actual message contents with the expected ones.
func (e *Engine) MatchMessage(ctx context.Context, expected, actual *contract.MessageContents) ([]Mismatch, error) {
	rules := category(expected.MatchingRules, matchingrules.CategoryContent)
	if rules.IsEmpty() {
		rules = category(expected.MatchingRules, matchingrules.CategoryBody)
	}
	mc := e.NewContext(rules, true)
	mismatches, err := e.MatchBody(ctx, withMetadataType(expected), withMetadataType(actual), mc)
	if err != nil {
		return nil, err
	}
	return append(mismatches, MatchMetadata(expected.Metadata, actual.Metadata, expected.MatchingRules)...), nil
}

// withMetadataType returns the contents body, typed by the contentType
// metadata entry when the body declares no type itself.
func withMetadataType(m *contract.MessageContents) contract.Body {
	body := m.Contents
	if !body.ContentType.IsEmpty() {
		return body
	}
	for _, key := range []string{"contentType", "content-type", "Content-Type"} {
		if v, ok := m.Metadata[key]; ok && v.IsString() {
			return body.WithContentType(v.String())
		}
	}
	return body
}
