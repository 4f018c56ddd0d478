package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

type stubMatcher struct {
	calls      int
	mismatches []Mismatch
	err        error
}

func (s *stubMatcher) Name() string { return "stub" }

func (s *stubMatcher) MatchBody(_ context.Context, _, _ contract.Body, _ *Context) ([]Mismatch, error) {
	s.calls++
	return s.mismatches, s.err
}

func TestRegistry(t *testing.T) {
	b := DefaultRegistryBuilder()
	err := b.Register("application/json", JSONMatcher{})
	assert.ErrorIs(t, err, ErrMatcherExists)
	assert.Error(t, b.Register("", TextMatcher{}))

	reg := b.Build()
	require.NoError(t, b.Register("application/x-thing", &stubMatcher{}))

	m, ok := reg.Lookup("Application/JSON; charset=utf-8")
	require.True(t, ok)
	assert.Equal(t, "json", m.Name())

	m, ok = reg.Lookup("application/vnd.api+json")
	require.True(t, ok)
	assert.Equal(t, "json", m.Name())

	m, ok = reg.Lookup("image/svg+xml")
	require.True(t, ok)
	assert.Equal(t, "xml", m.Name())

	_, ok = reg.Lookup("application/x-thing")
	assert.False(t, ok, "registrations after Build must not leak into the registry")

	assert.Contains(t, reg.ContentTypes(), "application/x-www-form-urlencoded")
	assert.Contains(t, reg.String(), "text/plain=text")
}

func TestEngine_MatchBody_UnregisteredContentType(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()

	mismatches, err := engine.MatchBody(ctx,
		contract.NewBody([]byte("foo"), "application/x-custom"),
		contract.NewBody([]byte("bar"), "application/x-custom"), nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.IsType(t, BodyMismatch{}, mismatches[0])

	mismatches, err = engine.MatchBody(ctx,
		contract.EmptyBody(),
		contract.NewBody([]byte("bar"), "application/x-custom"), nil)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	mismatches, err = engine.MatchBody(ctx,
		contract.NewBody([]byte("foo"), "application/x-custom"),
		contract.NewBody([]byte("foo"), "application/x-custom"), nil)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestEngine_MatchBody_ShortCircuit(t *testing.T) {
	engine := NewEngine(nil)
	expected := contract.JSONBody(parse(t, `{"a":1,"b":2,"c":[1,2,3]}`))
	actual := contract.NewBody([]byte(`this is { not json`), contract.ContentTypeJSON)

	mismatches, err := engine.MatchBody(context.Background(), expected, actual, nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.IsType(t, BodyTypeMismatch{}, mismatches[0])
	assert.Empty(t, ByType(mismatches, "BodyMismatch"))
}

func TestEngine_MatchBody_IncompatibleContentType(t *testing.T) {
	engine := NewEngine(nil)
	expected := contract.JSONBody(parse(t, `{"a":1}`))
	actual := contract.NewBody([]byte(`<a>1</a>`), contract.ContentTypeXML)

	mismatches, err := engine.MatchBody(context.Background(), expected, actual, nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	tm, ok := mismatches[0].(BodyTypeMismatch)
	require.True(t, ok)
	assert.Equal(t, "application/json", tm.Expected)
	assert.Equal(t, "application/xml", tm.Actual)
}

func TestEngine_MatchBody_MissingAndNull(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()

	mismatches, err := engine.MatchBody(ctx, contract.JSONBody(parse(t, `{"a":1}`)), contract.MissingBody(), nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Contains(t, mismatches[0].Description(), "but was missing")

	mismatches, err = engine.MatchBody(ctx, contract.NullBody(), contract.NewBody([]byte("null"), contract.ContentTypeJSON), nil)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	mismatches, err = engine.MatchBody(ctx, contract.NullBody(), contract.NewBody([]byte(`{}`), contract.ContentTypeJSON), nil)
	require.NoError(t, err)
	assert.Len(t, mismatches, 1)
}

func TestEngine_MatchBody_TextRules(t *testing.T) {
	engine := NewEngine(nil)
	mc := engine.NewContext(bodyRules(func(c *matchingrules.Category) {
		c.AddRule("$", matchingrules.Regex(`hello .+`))
	}), true)

	mismatches, err := engine.MatchBody(context.Background(),
		contract.NewBody([]byte("hello world"), contract.ContentTypeText),
		contract.NewBody([]byte("hello there"), contract.ContentTypeText), mc)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	mismatches, err = engine.MatchBody(context.Background(),
		contract.NewBody([]byte("hello world"), contract.ContentTypeText),
		contract.NewBody([]byte("goodbye"), contract.ContentTypeText), mc)
	require.NoError(t, err)
	assert.Len(t, mismatches, 1)
}

func TestEngine_MatchBody_Charset(t *testing.T) {
	engine := NewEngine(nil)
	expected := contract.NewBody([]byte("café"), "text/plain; charset=utf-8")
	actual := contract.NewBody([]byte{'c', 'a', 'f', 0xe9}, "text/plain; charset=iso-8859-1")

	mismatches, err := engine.MatchBody(context.Background(), expected, actual, nil)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestEngine_MatchBody_CustomMatcher(t *testing.T) {
	stub := &stubMatcher{mismatches: []Mismatch{BodyMismatch{BodyPath: "$", Mismatch: "stubbed"}}}
	b := NewRegistryBuilder()
	require.NoError(t, b.Register("application/x-thing", stub))
	engine := NewEngine(b.Build())

	body := contract.NewBody([]byte("x"), "application/x-thing")
	mismatches, err := engine.MatchBody(context.Background(), body, body, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stub.calls)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "stubbed", mismatches[0].Description())

	boom := errors.New("boom")
	stub.err = boom
	_, err = engine.MatchBody(context.Background(), body, body, nil)
	assert.ErrorIs(t, err, boom)
}

func TestEngine_MatchResponse(t *testing.T) {
	engine := NewEngine(nil)
	expected := contract.NewResponse()
	expected.Headers["Content-Type"] = []string{"application/json"}
	expected.Body = contract.JSONBody(parse(t, `{"a":1}`))

	actual := contract.NewResponse()
	actual.Status = 404
	actual.Headers["content-type"] = []string{"application/json; charset=utf-8"}
	actual.Body = contract.NewBody([]byte(`{"a":2,"extra":true}`), "")

	mismatches, err := engine.MatchResponse(context.Background(), expected, actual)
	require.NoError(t, err)
	assert.Len(t, ByType(mismatches, "StatusMismatch"), 1)
	assert.Empty(t, ByType(mismatches, "HeaderMismatch"))
	body := ByType(mismatches, "BodyMismatch")
	require.Len(t, body, 1)
	assert.Equal(t, "$.a", body[0].Path())
}

func TestEngine_MatchRequest(t *testing.T) {
	engine := NewEngine(nil)
	expected := contract.NewRequest()
	expected.Method = "POST"
	expected.Path = "/orders"
	expected.Query = map[string][]string{"page": {"1"}}
	expected.Headers["Content-Type"] = []string{"application/json"}
	expected.Body = contract.JSONBody(parse(t, `{"item":"book"}`))

	actual := contract.NewRequest()
	actual.Method = "post"
	actual.Path = "/orders"
	actual.Query = map[string][]string{"page": {"1"}}
	actual.Headers["Content-Type"] = []string{"application/json"}
	actual.Body = contract.NewBody([]byte(`{"item":"book"}`), "")

	mismatches, err := engine.MatchRequest(context.Background(), expected, actual)
	require.NoError(t, err)
	assert.Empty(t, mismatches, Describe(mismatches))

	actual.Body = contract.NewBody([]byte(`{"item":"book","gift":true}`), "")
	mismatches, err = engine.MatchRequest(context.Background(), expected, actual)
	require.NoError(t, err)
	assert.Len(t, ByType(mismatches, "BodyMismatch"), 1)
}

func TestEngine_MatchMessage(t *testing.T) {
	engine := NewEngine(nil)
	expected := contract.NewMessageContents()
	expected.Contents = contract.JSONBody(parse(t, `{"id":1,"name":"x"}`))
	expected.Metadata["contentType"] = jsonvalue.String("application/json")
	expected.MatchingRules.AddCategoryName(matchingrules.CategoryContent).AddRule("$.id", matchingrules.IntegerRule())

	actual := contract.NewMessageContents()
	actual.Contents = contract.NewBody([]byte(`{"id":42,"name":"x","extra":1}`), "")
	actual.Metadata["contentType"] = jsonvalue.String("application/json; charset=utf-8")

	mismatches, err := engine.MatchMessage(context.Background(), expected, actual)
	require.NoError(t, err)
	assert.Empty(t, mismatches, Describe(mismatches))

	actual.Contents = contract.NewBody([]byte(`{"id":"abc","name":"x"}`), "")
	delete(actual.Metadata, "contentType")
	mismatches, err = engine.MatchMessage(context.Background(), expected, actual)
	require.NoError(t, err)
	assert.Len(t, ByType(mismatches, "BodyMismatch"), 1)
	assert.Len(t, ByType(mismatches, "MetadataMismatch"), 1)
}
