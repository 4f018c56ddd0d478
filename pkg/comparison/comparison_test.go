package comparison

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contracts/pkg/config"
	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matching"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

func jsonResponse(status int, body string) *contract.Response {
	r := contract.NewResponse()
	r.Status = status
	r.Headers["Content-Type"] = []string{contract.ContentTypeJSON}
	r.Body = contract.NewBody([]byte(body), contract.ContentTypeJSON)
	return r
}

func TestShouldGenerateDiff(t *testing.T) {
	tests := []struct {
		name    string
		value   *string
		length  int
		want    bool
		wantErr bool
	}{
		{name: "unset", length: 1 << 30, want: true},
		{name: "true", value: ptr("true"), want: true},
		{name: "upper case true", value: ptr("TRUE"), want: true},
		{name: "false", value: ptr("false"), length: 1, want: false},
		{name: "empty", value: ptr(""), length: 1, want: false},
		{name: "under threshold", value: ptr("1KB"), length: 1000, want: true},
		{name: "over threshold", value: ptr("1KB"), length: 1001, want: false},
		{name: "binary units", value: ptr("1mib"), length: 1 << 20, want: true},
		{name: "invalid", value: ptr("lots"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := config.MapResolver{}
			if tt.value != nil {
				resolver[GenerateDiffKey] = *tt.value
			}
			got, err := ShouldGenerateDiff(resolver, tt.length)
			if tt.wantErr {
				var sizeErr *SizeExpressionError
				require.ErrorAs(t, err, &sizeErr)
				assert.Equal(t, "lots", sizeErr.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func ptr(s string) *string { return &s }

func TestShouldGenerateDiff_NilResolver(t *testing.T) {
	ok, err := ShouldGenerateDiff(nil, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGenerateDiff(t *testing.T) {
	expected := jsonvalue.MustFromNative(map[string]any{"a": 1, "b": "x"}).PrettyPrint()
	actual := jsonvalue.MustFromNative(map[string]any{"a": 2, "b": "x"}).PrettyPrint()

	assert.Equal(t, []string{
		"  {",
		`-  "a": 1,`,
		`+  "a": 2,`,
		`    "b": "x"`,
		"  }",
	}, GenerateDiff(expected, actual))

	assert.Equal(t, []string{"+only"}, GenerateDiff("", "only"))
	assert.Empty(t, GenerateDiff("", ""))
}

func TestCompareResponse_Status(t *testing.T) {
	c := NewComparator(nil)

	result, err := c.CompareResponse(context.Background(), jsonResponse(200, `{"a":1}`), jsonResponse(404, `{"a":1}`))
	require.NoError(t, err)
	require.NotNil(t, result.StatusMismatch)
	assert.Equal(t, 200, result.StatusMismatch.Expected)
	assert.True(t, result.Body.OK())
	assert.Empty(t, result.HeaderMismatches)
	assert.False(t, result.OK())

	result, err = c.CompareResponse(context.Background(), jsonResponse(200, `{"a":1}`), jsonResponse(200, `{"a":1}`))
	require.NoError(t, err)
	assert.Nil(t, result.StatusMismatch)
	assert.True(t, result.OK())
}

func TestCompareResponse_Headers(t *testing.T) {
	expected := jsonResponse(200, `{}`)
	expected.Headers["X-Trace"] = []string{"abc"}
	actual := jsonResponse(200, `{}`)
	actual.Headers["X-Trace"] = []string{"xyz"}

	result, err := NewComparator(nil).CompareResponse(context.Background(), expected, actual)
	require.NoError(t, err)
	require.Len(t, result.HeaderMismatches, 2)
	assert.Len(t, result.HeaderMismatches["X-Trace"], 1)
	assert.Empty(t, result.HeaderMismatches["Content-Type"])
}

func TestCompareResponse_Body(t *testing.T) {
	expected := jsonResponse(200, `{"a":1,"b":"x","c":[1,2]}`)
	actual := jsonResponse(200, `{"a":2,"b":"x","c":[1,3],"extra":true}`)

	result, err := NewComparator(nil).CompareResponse(context.Background(), expected, actual)
	require.NoError(t, err)
	require.Nil(t, result.Body.TypeMismatch)
	assert.Equal(t, []string{"$.a", "$.c[1]"}, result.Body.Comparison.SortedPaths())
	assert.NotEmpty(t, result.Body.Comparison.Diff)
	assert.Contains(t, result.Body.Comparison.Diff, `-  "a": 1,`)
	assert.Contains(t, result.Body.Comparison.Diff, `+  "a": 2,`)

	doc := result.ToJSON()
	assert.True(t, doc.Has("body"))
	body, err := doc.Get("body")
	require.NoError(t, err)
	assert.True(t, body.Has("mismatches"))
	assert.True(t, body.Has("diff"))
}

func TestCompareResponse_Rules(t *testing.T) {
	expected := jsonResponse(200, `{"id":1,"name":"x"}`)
	expected.MatchingRules.RulesForCategory(matchingrules.CategoryBody).
		AddRule("$.id", matchingrules.IntegerRule()).
		AddRule("$.name", matchingrules.TypeMatch())

	result, err := NewComparator(nil).CompareResponse(context.Background(), expected, jsonResponse(200, `{"id":99,"name":"y"}`))
	require.NoError(t, err)
	assert.True(t, result.OK(), result.ToJSON().Serialize())
}

func TestCompareResponse_BodyTypeMismatch(t *testing.T) {
	actual := contract.NewResponse()
	actual.Headers["Content-Type"] = []string{contract.ContentTypeJSON}
	actual.Body = contract.NewBody([]byte("<html>"), contract.ContentTypeJSON)

	result, err := NewComparator(nil).CompareResponse(context.Background(), jsonResponse(200, `{"a":1}`), actual)
	require.NoError(t, err)
	require.NotNil(t, result.Body.TypeMismatch)
	assert.Empty(t, result.Body.Comparison.Mismatches)
	assert.False(t, result.OK())
}

func TestCompareResponse_DiffPolicy(t *testing.T) {
	big := `{"a":"` + strings.Repeat("x", 2000) + `"}`
	tests := []struct {
		name     string
		policy   string
		wantDiff bool
	}{
		{name: "disabled", policy: "false"},
		{name: "empty", policy: ""},
		{name: "threshold too small", policy: "1KB"},
		{name: "threshold large enough", policy: "1MB", wantDiff: true},
		{name: "invalid degrades to no diff", policy: "plenty"},
		{name: "enabled", policy: "true", wantDiff: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComparator(nil, WithResolver(config.MapResolver{GenerateDiffKey: tt.policy}))
			result, err := c.CompareResponse(context.Background(), jsonResponse(200, big), jsonResponse(200, `{"a":"y"}`))
			require.NoError(t, err)
			assert.Len(t, result.Body.Comparison.Mismatches, 1)
			if tt.wantDiff {
				assert.NotEmpty(t, result.Body.Comparison.Diff)
			} else {
				assert.Empty(t, result.Body.Comparison.Diff)
			}
		})
	}
}

func orderMessage() *contract.Message {
	m := &contract.Message{MessageContents: *contract.NewMessageContents()}
	m.Description = "an order event"
	m.Contents = contract.NewBody([]byte(`{"id":1,"status":"NEW"}`), contract.ContentTypeJSON)
	m.Metadata["contentType"] = jsonvalue.String(contract.ContentTypeJSON)
	m.Metadata["destination"] = jsonvalue.String("orders")
	return m
}

func TestCompareMessage(t *testing.T) {
	c := NewComparator(nil)
	actual := contract.NewBody([]byte(`{"id":1,"status":"PAID","extra":1}`), "")

	result, err := c.CompareMessage(context.Background(), orderMessage(), actual, map[string]jsonvalue.Value{
		"contentType": jsonvalue.String(contract.ContentTypeJSON),
		"destination": jsonvalue.String("payments"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"$.status"}, result.Body.Comparison.SortedPaths())
	require.Len(t, result.MetadataMismatches["destination"], 1)
	assert.NotContains(t, result.MetadataMismatches, "contentType")

	result, err = c.CompareMessage(context.Background(), orderMessage(), actual, nil)
	require.NoError(t, err)
	assert.Empty(t, result.MetadataMismatches)
}

func TestCompareMessage_ContentRules(t *testing.T) {
	async := &contract.AsynchronousMessage{Contents: contract.NewMessageContents()}
	async.Contents.Contents = contract.NewBody([]byte(`{"id":1}`), contract.ContentTypeJSON)
	async.Contents.MatchingRules.RulesForCategory(matchingrules.CategoryContent).AddRule("$.id", matchingrules.TypeMatch())

	result, err := NewComparator(nil).CompareMessage(context.Background(), async,
		contract.NewBody([]byte(`{"id":42}`), contract.ContentTypeJSON), nil)
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestCompareMessage_Unsupported(t *testing.T) {
	c := NewComparator(nil)
	_, err := c.CompareMessage(context.Background(), &contract.RequestResponse{}, contract.MissingBody(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedInteraction)

	_, err = c.CompareSynchronousMessage(context.Background(), &contract.SynchronousMessages{}, contract.MissingBody(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedInteraction)
}

func TestCompareSynchronousMessage(t *testing.T) {
	first := contract.NewMessageContents()
	first.Contents = contract.NewBody([]byte(`{"ok":true}`), contract.ContentTypeJSON)
	second := contract.NewMessageContents()
	second.Contents = contract.NewBody([]byte(`{"ok":false}`), contract.ContentTypeJSON)
	interaction := &contract.SynchronousMessages{Request: contract.NewMessageContents(), Response: []*contract.MessageContents{first, second}}

	result, err := NewComparator(nil).CompareSynchronousMessage(context.Background(), interaction,
		contract.NewBody([]byte(`{"ok":true}`), contract.ContentTypeJSON), nil)
	require.NoError(t, err)
	assert.True(t, result.OK())
}

func TestCompareMessageBody(t *testing.T) {
	c := NewComparator(nil)

	m := &contract.Message{MessageContents: *contract.NewMessageContents()}
	m.Contents = contract.NewBody([]byte("hello"), "application/x-thing")

	mismatches, err := c.CompareMessageBody(context.Background(), m, contract.NewBody([]byte("bye"), ""), nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "Actual body 'bye' is not equal to the expected body 'hello'", mismatches[0].Description())

	mismatches, err = c.CompareMessageBody(context.Background(), m, contract.MissingBody(), nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "Expected body 'hello' but was missing", mismatches[0].Description())

	mismatches, err = c.CompareMessageBody(context.Background(), orderMessage(),
		contract.NewBody([]byte(`{"id":2,"status":"NEW"}`), contract.ContentTypeJSON), nil)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.IsType(t, matching.BodyMismatch{}, mismatches[0])
}
