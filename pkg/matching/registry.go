package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/getmockd/contracts/pkg/contract"
)

// ErrMatcherExists is returned when a content type is registered twice.
var ErrMatcherExists = errors.New("content matcher already registered")

// ContentMatcher compares bodies of the content types it is registered for.
// Implementations must be safe for concurrent use.
type ContentMatcher interface {
	// Name identifies the matcher in logs, e.g. "json" or "plugin:protobuf".
	Name() string
	// MatchBody compares actual against expected using the body rules of mc.
	// Differences are returned as mismatches. An error means the comparison
	// itself could not be carried out.
	MatchBody(ctx context.Context, expected, actual contract.Body, mc *Context) ([]Mismatch, error)
}

// RegistryBuilder collects content matchers during start-up. It is not safe
// for concurrent use.
type RegistryBuilder struct {
	matchers map[string]ContentMatcher
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{matchers: map[string]ContentMatcher{}}
}

// DefaultRegistryBuilder returns a builder holding the JSON, XML, form and
// plain text matchers.
func DefaultRegistryBuilder() *RegistryBuilder {
	b := NewRegistryBuilder()
	js := JSONMatcher{}
	for _, ct := range []string{contract.ContentTypeJSON, "text/json", "application/hal+json"} {
		_ = b.Register(ct, js)
	}
	x := XMLMatcher{}
	for _, ct := range []string{contract.ContentTypeXML, "text/xml"} {
		_ = b.Register(ct, x)
	}
	_ = b.Register(contract.ContentTypeForm, FormMatcher{})
	_ = b.Register(contract.ContentTypeText, TextMatcher{})
	return b
}

// Register adds m for a content type. Parameters are ignored and the base
// type is lowercased.
func (b *RegistryBuilder) Register(contentType string, m ContentMatcher) error {
	key := contract.ParseContentType(contentType).BaseType()
	if key == "" {
		return fmt.Errorf("invalid content type %q", contentType)
	}
	if existing, ok := b.matchers[key]; ok {
		return fmt.Errorf("%w: %s is handled by %s", ErrMatcherExists, key, existing.Name())
	}
	b.matchers[key] = m
	return nil
}

// Build returns an immutable registry with the matchers registered so far.
// The builder may be reused; later registrations do not affect the result.
func (b *RegistryBuilder) Build() *Registry {
	r := &Registry{matchers: make(map[string]ContentMatcher, len(b.matchers))}
	for k, m := range b.matchers {
		r.matchers[k] = m
	}
	return r
}

// Registry maps content types to matchers. It is read-only and safe for
// concurrent lookups.
type Registry struct {
	matchers map[string]ContentMatcher
}

// Lookup finds the matcher for a content type. Types with a "+json" or
// "+xml" suffix fall back to the JSON and XML matchers.
func (r *Registry) Lookup(contentType string) (ContentMatcher, bool) {
	if r == nil {
		return nil, false
	}
	ct := contract.ParseContentType(contentType)
	if m, ok := r.matchers[ct.BaseType()]; ok {
		return m, true
	}
	if base := ct.StructuredSuffixBase(); base != "" {
		m, ok := r.matchers[base]
		return m, ok
	}
	return nil, false
}

// ContentTypes returns the registered content types sorted.
func (r *Registry) ContentTypes() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.matchers))
	for k := range r.matchers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// String lists the registrations, e.g. for start-up logs.
func (r *Registry) String() string {
	parts := make([]string, 0, len(r.ContentTypes()))
	for _, ct := range r.ContentTypes() {
		parts = append(parts, ct+"="+r.matchers[ct].Name())
	}
	return strings.Join(parts, ", ")
}
