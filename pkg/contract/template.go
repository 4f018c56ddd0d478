package contract

import (
	"github.com/getmockd/contracts/pkg/generators"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

// BodySource supplies a body to SetBody.
type BodySource interface {
	ContractBody() Body
}

// ContractBody implements BodySource.
func (b Body) ContractBody() Body { return b }

// MatcherSource is a BodySource that also carries the matching rules and
// generators recorded while the body was built. Rule and generator paths are
// relative to the body root.
type MatcherSource interface {
	BodySource
	BodyMatchers() *matchingrules.Category
	BodyGenerators() map[string]generators.Generator
}

// TemplateBody is an example body annotated with matchers and generators.
type TemplateBody struct {
	example     jsonvalue.Value
	contentType string
	rules       *matchingrules.Category
	gens        map[string]generators.Generator
}

var _ MatcherSource = (*TemplateBody)(nil)

// NewTemplateBody returns a JSON template with example as its content.
func NewTemplateBody(example jsonvalue.Value) *TemplateBody {
	return &TemplateBody{
		example:     example,
		contentType: ContentTypeJSON,
		rules:       matchingrules.NewCategory(matchingrules.CategoryBody),
		gens:        map[string]generators.Generator{},
	}
}

// WithContentType overrides the application/json default.
func (t *TemplateBody) WithContentType(contentType string) *TemplateBody {
	t.contentType = contentType
	return t
}

// Match appends rules at path, e.g. "$.items[*].id".
func (t *TemplateBody) Match(path string, rules ...matchingrules.Rule) *TemplateBody {
	for _, r := range rules {
		t.rules.AddRule(path, r)
	}
	return t
}

// MatchAny adds rules at path combined with OR.
func (t *TemplateBody) MatchAny(path string, rules ...matchingrules.Rule) *TemplateBody {
	for _, r := range rules {
		t.rules.AddRuleWithLogic(path, r, matchingrules.Or)
	}
	return t
}

// Generate sets the generator at path.
func (t *TemplateBody) Generate(path string, gen generators.Generator) *TemplateBody {
	t.gens[path] = gen
	return t
}

// Example returns the example value.
func (t *TemplateBody) Example() jsonvalue.Value { return t.example }

// ContractBody implements BodySource.
func (t *TemplateBody) ContractBody() Body {
	if t.example.IsNull() {
		return NullBody()
	}
	return NewBody([]byte(t.example.Serialize()), t.contentType)
}

// BodyMatchers implements MatcherSource.
func (t *TemplateBody) BodyMatchers() *matchingrules.Category { return t.rules }

// BodyGenerators implements MatcherSource.
func (t *TemplateBody) BodyGenerators() map[string]generators.Generator { return t.gens }

// applyBodySource returns the body of src. When src is a MatcherSource its
// matchers replace the body category of rules and its generators are merged
// into gens.
func applyBodySource(src BodySource, rules *matchingrules.MatchingRules, gens *generators.Generators, category string) Body {
	if src == nil {
		return MissingBody()
	}
	if ms, ok := src.(MatcherSource); ok {
		if m := ms.BodyMatchers(); m != nil && rules != nil {
			rules.AddCategory(m.WithName(category))
		}
		if gens != nil {
			for path, gen := range ms.BodyGenerators() {
				gens.AddGenerator(category, path, gen)
			}
		}
	}
	return src.ContractBody()
}
