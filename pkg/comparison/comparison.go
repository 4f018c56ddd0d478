package comparison

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/logging"
	"github.com/getmockd/contracts/pkg/matching"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// ErrUnsupportedInteraction is returned when an interaction variant cannot
// be compared by the called entry point.
var ErrUnsupportedInteraction = errors.New("unsupported interaction")

// BodyComparisonResult holds body mismatches grouped by path and the diff
// of the two bodies, if one was generated.
type BodyComparisonResult struct {
	Mismatches map[string][]matching.BodyMismatch
	Diff       []string
}

// ToJSON renders the result for reporters:
//
//	{"mismatches": {"$.a": ["..."]}, "diff": "line\nline"}
func (r BodyComparisonResult) ToJSON() jsonvalue.Value {
	mismatches := make(map[string]jsonvalue.Value, len(r.Mismatches))
	for path, list := range r.Mismatches {
		descs := make([]jsonvalue.Value, len(list))
		for i, m := range list {
			descs[i] = jsonvalue.String(m.Description())
		}
		mismatches[path] = jsonvalue.Array(descs...)
	}
	return jsonvalue.Object(map[string]jsonvalue.Value{
		"mismatches": jsonvalue.Object(mismatches),
		"diff":       jsonvalue.String(strings.Join(r.Diff, "\n")),
	})
}

// BodyResult is either a body type mismatch, which stops body comparison,
// or the grouped body mismatches.
type BodyResult struct {
	TypeMismatch *matching.BodyTypeMismatch
	Comparison   BodyComparisonResult
}

// OK reports whether the bodies matched.
func (r BodyResult) OK() bool {
	return r.TypeMismatch == nil && len(r.Comparison.Mismatches) == 0
}

// ComparisonResult aggregates the outcome of comparing one interaction.
type ComparisonResult struct {
	StatusMismatch     *matching.StatusMismatch
	HeaderMismatches   map[string][]matching.HeaderMismatch
	Body               BodyResult
	MetadataMismatches map[string][]matching.MetadataMismatch
}

// OK reports whether nothing mismatched.
func (r *ComparisonResult) OK() bool {
	if r.StatusMismatch != nil || !r.Body.OK() || len(r.MetadataMismatches) > 0 {
		return false
	}
	for _, list := range r.HeaderMismatches {
		if len(list) > 0 {
			return false
		}
	}
	return true
}

// ToJSON renders the result for reporters.
func (r *ComparisonResult) ToJSON() jsonvalue.Value {
	out := map[string]jsonvalue.Value{}
	if r.StatusMismatch != nil {
		out["status"] = jsonvalue.String(r.StatusMismatch.Description())
	}
	if len(r.HeaderMismatches) > 0 {
		headers := map[string]jsonvalue.Value{}
		for name, list := range r.HeaderMismatches {
			if len(list) == 0 {
				continue
			}
			descs := make([]string, len(list))
			for i, m := range list {
				descs[i] = m.Description()
			}
			headers[name] = jsonvalue.String(strings.Join(descs, ", "))
		}
		out["headers"] = jsonvalue.Object(headers)
	}
	if r.Body.TypeMismatch != nil {
		out["body"] = jsonvalue.Object(map[string]jsonvalue.Value{
			"error": jsonvalue.String(r.Body.TypeMismatch.Description()),
		})
	} else {
		out["body"] = r.Body.Comparison.ToJSON()
	}
	if len(r.MetadataMismatches) > 0 {
		metadata := map[string]jsonvalue.Value{}
		for key, list := range r.MetadataMismatches {
			descs := make([]string, len(list))
			for i, m := range list {
				descs[i] = m.Description()
			}
			metadata[key] = jsonvalue.String(strings.Join(descs, ", "))
		}
		out["metadata"] = jsonvalue.Object(metadata)
	}
	return jsonvalue.Object(out)
}

// ResponseComparison turns the mismatches of one comparison into results.
type ResponseComparison struct {
	ExpectedHeaders   map[string][]string
	ExpectedBody      contract.Body
	IsJSONBody        bool
	ActualContentType contract.ContentType
	ActualBody        contract.Body

	Logger *slog.Logger
}

// StatusResult returns the first status mismatch, if any.
func (rc *ResponseComparison) StatusResult(mismatches []matching.Mismatch) *matching.StatusMismatch {
	for _, m := range mismatches {
		if sm, ok := m.(matching.StatusMismatch); ok {
			return &sm
		}
	}
	return nil
}

// HeaderResult groups header mismatches by header. When any header
// mismatched, every expected header has an entry, empty for those that
// matched.
func (rc *ResponseComparison) HeaderResult(mismatches []matching.Mismatch) map[string][]matching.HeaderMismatch {
	grouped := map[string][]matching.HeaderMismatch{}
	for _, m := range mismatches {
		if hm, ok := m.(matching.HeaderMismatch); ok {
			grouped[hm.HeaderKey] = append(grouped[hm.HeaderKey], hm)
		}
	}
	if len(grouped) == 0 {
		return map[string][]matching.HeaderMismatch{}
	}
	out := make(map[string][]matching.HeaderMismatch, len(rc.ExpectedHeaders))
	for name := range rc.ExpectedHeaders {
		out[name] = grouped[name]
	}
	return out
}

// BodyResult groups body mismatches by path and adds a diff when the diff
// policy of resolver allows it. A body type mismatch is returned on its own.
func (rc *ResponseComparison) BodyResult(mismatches []matching.Mismatch, resolver ValueResolver) BodyResult {
	grouped := map[string][]matching.BodyMismatch{}
	for _, m := range mismatches {
		switch bm := m.(type) {
		case matching.BodyTypeMismatch:
			return BodyResult{TypeMismatch: &bm}
		case matching.BodyMismatch:
			grouped[bm.BodyPath] = append(grouped[bm.BodyPath], bm)
		}
	}

	expected := rc.ExpectedBody.ValueAsString()
	actualBody := rc.ActualBody
	if !rc.ActualContentType.IsEmpty() {
		actualBody = actualBody.WithContentType(rc.ActualContentType.String())
	}
	actual, err := actualBody.Text()
	if err != nil {
		actual = actualBody.ValueAsString()
	}

	var diff []string
	ok, err := ShouldGenerateDiff(resolver, max(actualBody.Len(), len(expected)))
	switch {
	case err != nil:
		rc.logger().Warn("invalid value for "+GenerateDiffKey, "error", err)
	case ok:
		diff = rc.fullDiff(expected, actual)
	}
	return BodyResult{Comparison: BodyComparisonResult{Mismatches: grouped, Diff: diff}}
}

func (rc *ResponseComparison) fullDiff(expected, actual string) []string {
	if actual != "" && rc.ActualContentType.IsJSON() {
		actual = prettyJSON(actual)
	}
	if expected != "" && rc.IsJSONBody {
		expected = prettyJSON(expected)
	}
	return GenerateDiff(expected, actual)
}

func (rc *ResponseComparison) logger() *slog.Logger {
	if rc.Logger == nil {
		return logging.Nop()
	}
	return rc.Logger
}

// Comparator compares provider output against interactions. It holds no
// mutable state.
type Comparator struct {
	engine   *matching.Engine
	resolver ValueResolver
	logger   *slog.Logger
}

// Option configures a Comparator.
type Option func(*Comparator)

// WithResolver sets the resolver consulted for the diff policy.
func WithResolver(r ValueResolver) Option {
	return func(c *Comparator) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithLogger sets the comparator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Comparator) {
		if logger != nil {
			c.logger = logging.Component(logger, "comparison")
		}
	}
}

// NewComparator returns a comparator that matches through engine. A nil
// engine uses the default content matchers.
func NewComparator(engine *matching.Engine, opts ...Option) *Comparator {
	if engine == nil {
		engine = matching.NewEngine(nil)
	}
	c := &Comparator{engine: engine, resolver: defaultsResolver{}, logger: logging.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompareResponse compares an actual HTTP response with the expected one.
func (c *Comparator) CompareResponse(ctx context.Context, expected, actual *contract.Response) (*ComparisonResult, error) {
	mismatches, err := c.engine.MatchResponse(ctx, expected, actual)
	if err != nil {
		return nil, err
	}
	rc := &ResponseComparison{
		ExpectedHeaders:   expected.Headers,
		ExpectedBody:      expected.Body,
		IsJSONBody:        expected.ContentType().IsJSON(),
		ActualContentType: actual.ContentType(),
		ActualBody:        actual.Body,
		Logger:            c.logger,
	}
	return &ComparisonResult{
		StatusMismatch:   rc.StatusResult(mismatches),
		HeaderMismatches: rc.HeaderResult(mismatches),
		Body:             rc.BodyResult(mismatches, c.resolver),
	}, nil
}

// CompareMessage compares an actual message with a V3 *contract.Message or
// a V4 *contract.AsynchronousMessage. Metadata is compared only when
// metadata is not nil.
func (c *Comparator) CompareMessage(ctx context.Context, interaction contract.Interaction, actual contract.Body, metadata map[string]jsonvalue.Value) (*ComparisonResult, error) {
	contents, err := messageContents(interaction)
	if err != nil {
		return nil, err
	}
	return c.compareContents(ctx, contents, actual, metadata)
}

// CompareSynchronousMessage compares an actual reply with the first
// response of a V4 synchronous message interaction.
func (c *Comparator) CompareSynchronousMessage(ctx context.Context, interaction *contract.SynchronousMessages, actual contract.Body, metadata map[string]jsonvalue.Value) (*ComparisonResult, error) {
	contents, err := messageContents(interaction)
	if err != nil {
		return nil, err
	}
	if len(interaction.Response) > 1 {
		c.logger.Warn("only the first of multiple message responses is compared",
			"interaction", interaction.Description, "responses", len(interaction.Response))
	}
	return c.compareContents(ctx, contents, actual, metadata)
}

func (c *Comparator) compareContents(ctx context.Context, expected *contract.MessageContents, actual contract.Body, metadata map[string]jsonvalue.Value) (*ComparisonResult, error) {
	actualContents := &contract.MessageContents{Contents: actual, Metadata: metadata}
	mismatches, err := c.engine.MatchMessage(ctx, expected, actualContents)
	if err != nil {
		return nil, err
	}

	contentType := expected.ContentType()
	if contentType.IsEmpty() {
		contentType = contract.ParseContentType(contract.ContentTypeText)
	}
	rc := &ResponseComparison{
		ExpectedHeaders:   map[string][]string{"Content-Type": {contentType.String()}},
		ExpectedBody:      expected.Contents,
		IsJSONBody:        contentType.IsJSON(),
		ActualContentType: contentType,
		ActualBody:        actual,
		Logger:            c.logger,
	}

	result := &ComparisonResult{
		Body:               rc.BodyResult(mismatches, c.resolver),
		MetadataMismatches: map[string][]matching.MetadataMismatch{},
	}
	if metadata != nil {
		for _, m := range mismatches {
			if mm, ok := m.(matching.MetadataMismatch); ok {
				result.MetadataMismatches[mm.Key] = append(result.MetadataMismatches[mm.Key], mm)
			}
		}
	}
	return result, nil
}

// CompareMessageBody compares only the body of a message interaction using
// the content matcher registered for the expected content type. Without a
// matcher the bodies are compared as text.
func (c *Comparator) CompareMessageBody(ctx context.Context, interaction contract.Interaction, actual contract.Body, mc *matching.Context) ([]matching.Mismatch, error) {
	contents, err := messageContents(interaction)
	if err != nil {
		return nil, err
	}
	if mc == nil {
		mc = c.engine.NewContext(contentRules(contents.MatchingRules), true)
	}

	contentType := contents.ContentType()
	if m, ok := c.engine.Registry().Lookup(contentType.BaseType()); ok {
		expected := contents.Contents
		if expected.ContentType.IsEmpty() {
			expected = expected.WithContentType(contentType.String())
		}
		mismatches, err := m.MatchBody(ctx, expected, actual, mc)
		if err != nil {
			return nil, fmt.Errorf("%s matcher failed: %w", m.Name(), err)
		}
		return bodyOnly(mismatches), nil
	}

	expected := contents.Contents.ValueAsString()
	switch {
	case expected == "":
		return nil, nil
	case actual.IsEmpty():
		return []matching.Mismatch{matching.BodyMismatch{
			Expected: jsonvalue.String(expected),
			Actual:   jsonvalue.Null(),
			Mismatch: fmt.Sprintf("Expected body '%s' but was missing", expected),
			BodyPath: "$",
		}}, nil
	case actual.ValueAsString() != expected:
		return []matching.Mismatch{matching.BodyMismatch{
			Expected: jsonvalue.String(expected),
			Actual:   jsonvalue.String(actual.ValueAsString()),
			Mismatch: fmt.Sprintf("Actual body '%s' is not equal to the expected body '%s'", actual.ValueAsString(), expected),
			BodyPath: "$",
		}}, nil
	}
	return nil, nil
}

// messageContents returns the expected contents of a message interaction.
func messageContents(interaction contract.Interaction) (*contract.MessageContents, error) {
	switch i := interaction.(type) {
	case *contract.Message:
		return &i.MessageContents, nil
	case *contract.AsynchronousMessage:
		return i.Contents, nil
	case *contract.SynchronousMessages:
		if len(i.Response) == 0 {
			return nil, fmt.Errorf("%w: synchronous message %q has no response", ErrUnsupportedInteraction, i.Description)
		}
		return i.Response[0], nil
	case nil:
		return nil, fmt.Errorf("%w: nil interaction", ErrUnsupportedInteraction)
	}
	return nil, fmt.Errorf("%w: cannot compare a %s interaction as a message", ErrUnsupportedInteraction, interaction.Kind())
}

// contentRules returns the content category, falling back to the body
// category used by older documents.
func contentRules(rules *matchingrules.MatchingRules) *matchingrules.Category {
	if rules == nil {
		return nil
	}
	if c, ok := rules.Category(matchingrules.CategoryContent); ok && c.IsNotEmpty() {
		return c
	}
	c, _ := rules.Category(matchingrules.CategoryBody)
	return c
}

func bodyOnly(mismatches []matching.Mismatch) []matching.Mismatch {
	var out []matching.Mismatch
	for _, m := range mismatches {
		switch m.(type) {
		case matching.BodyMismatch, matching.BodyTypeMismatch:
			out = append(out, m)
		}
	}
	return out
}

// SortedPaths returns the mismatch paths of a body result in order.
func (r BodyComparisonResult) SortedPaths() []string {
	paths := make([]string, 0, len(r.Mismatches))
	for p := range r.Mismatches {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
