package matching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/logging"
	"github.com/getmockd/contracts/pkg/matchingrules"
	"github.com/getmockd/contracts/pkg/util"
)

// maxDescribedBody bounds bodies quoted in mismatch descriptions.
const maxDescribedBody = 512

// Engine matches interactions using the content matchers of a registry. It
// holds no mutable state and may be shared between goroutines.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logging.Component(logger, "matching")
		}
	}
}

// NewEngine returns an engine dispatching bodies through registry. A nil
// registry uses the default matchers.
func NewEngine(registry *Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = DefaultRegistryBuilder().Build()
	}
	e := &Engine{registry: registry, logger: logging.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the content matcher registry of the engine.
func (e *Engine) Registry() *Registry { return e.registry }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// NewContext returns a matching context for category that logs through the
// engine logger.
func (e *Engine) NewContext(category *matchingrules.Category, allowUnexpectedKeys bool) *Context {
	return NewContext(category, AllowUnexpectedKeys(allowUnexpectedKeys), WithContextLogger(e.logger))
}

// MatchBody compares two bodies. A missing or empty expected body matches
// anything. Bodies of incompatible content types produce a single
// BodyTypeMismatch. Otherwise the registered matcher for the actual content
// type compares them, falling back to text equality.
func (e *Engine) MatchBody(ctx context.Context, expected, actual contract.Body, mc *Context) ([]Mismatch, error) {
	if mc == nil {
		mc = e.NewContext(nil, true)
	}

	switch {
	case expected.IsNull():
		if actual.IsPresent() && strings.TrimSpace(actual.ValueAsString()) != "null" {
			return []Mismatch{BodyMismatch{
				Expected: jsonvalue.Null(),
				Actual:   jsonvalue.String(actual.ValueAsString()),
				Mismatch: fmt.Sprintf("Expected an empty body but received '%s'", util.TruncateBody(actual.ValueAsString(), maxDescribedBody)),
				BodyPath: "$",
			}}, nil
		}
		return nil, nil
	case !expected.IsPresent():
		return nil, nil
	case !actual.IsPresent():
		return []Mismatch{BodyMismatch{
			Expected: jsonvalue.String(expected.ValueAsString()),
			Actual:   jsonvalue.Null(),
			Mismatch: fmt.Sprintf("Expected body '%s' but was missing", util.TruncateBody(expected.ValueAsString(), maxDescribedBody)),
			BodyPath: "$",
		}}, nil
	}

	expectedType := expected.DetectedContentType()
	actualType := actual.ContentType
	if !compatibleTypes(expectedType, actualType) {
		return []Mismatch{BodyTypeMismatch{
			Expected: expectedType.BaseType(),
			Actual:   actualType.BaseType(),
			Mismatch: fmt.Sprintf("Expected a body of '%s' but the actual content type was '%s'",
				expectedType.BaseType(), actualType.BaseType()),
		}}, nil
	}

	lookupType := actualType
	if lookupType.IsEmpty() {
		lookupType = expectedType
	}
	matcher, ok := e.registry.Lookup(lookupType.BaseType())
	if !ok && lookupType.BaseType() != expectedType.BaseType() {
		matcher, ok = e.registry.Lookup(expectedType.BaseType())
	}
	if !ok {
		e.logger.Debug("no content matcher registered, comparing bodies as text", "contentType", lookupType.BaseType())
		return matchText(expected, actual, mc), nil
	}

	e.logger.Debug("matching body", "contentType", lookupType.BaseType(), "matcher", matcher.Name())
	mismatches, err := matcher.MatchBody(ctx, expected, actual, mc)
	if err != nil {
		return nil, fmt.Errorf("%s matcher failed: %w", matcher.Name(), err)
	}
	return mismatches, nil
}

// compatibleTypes reports whether an actual body of type actual may be
// compared with an expected body of type expected. Undeclared types are
// compatible with anything.
func compatibleTypes(expected, actual contract.ContentType) bool {
	if expected.IsEmpty() || actual.IsEmpty() {
		return true
	}
	switch {
	case expected.BaseType() == actual.BaseType():
		return true
	case expected.IsJSON() && actual.IsJSON():
		return true
	case expected.IsXML() && actual.IsXML():
		return true
	}
	return false
}

// matchText compares bodies as text. Rules declared for the whole body
// ("$") are applied to the text, otherwise the texts must be equal.
func matchText(expected, actual contract.Body, mc *Context) []Mismatch {
	expText, err := expected.Text()
	if err != nil {
		mc.Logger().Warn("failed to decode expected body", "error", err)
	}
	actText, err := actual.Text()
	if err != nil {
		mc.Logger().Warn("failed to decode actual body", "error", err)
	}

	root := matchingrules.RootPath()
	if resolved, ok := mc.Resolve(root); ok {
		return applyRules(mc, root, resolved, jsonvalue.String(expText), jsonvalue.String(actText))
	}
	if expText == actText {
		return nil
	}
	return []Mismatch{BodyMismatch{
		Expected: jsonvalue.String(expText),
		Actual:   jsonvalue.String(actText),
		Mismatch: fmt.Sprintf("Expected body '%s' to match '%s' using equality but did not match",
			util.TruncateBody(expText, maxDescribedBody), util.TruncateBody(actText, maxDescribedBody)),
		BodyPath: "$",
	}}
}

// TextMatcher compares bodies as text.
type TextMatcher struct{}

// Name returns "text".
func (TextMatcher) Name() string { return "text" }

// MatchBody compares the decoded texts of the bodies.
func (TextMatcher) MatchBody(_ context.Context, expected, actual contract.Body, mc *Context) ([]Mismatch, error) {
	return matchText(expected, actual, mc), nil
}
