package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contracts/pkg/jsonvalue"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

func TestMatchStatus(t *testing.T) {
	mismatches := MatchStatus(200, 404, nil)
	require.Len(t, mismatches, 1)
	sm, ok := mismatches[0].(StatusMismatch)
	require.True(t, ok)
	assert.Equal(t, 200, sm.Expected)
	assert.Equal(t, 404, sm.Actual)
	assert.Equal(t, "expected status of 200 but was 404", sm.Description())

	assert.Empty(t, MatchStatus(200, 200, nil))

	rules := matchingrules.New()
	rules.AddCategoryName(matchingrules.CategoryStatus).AddRule("", matchingrules.StatusClass(matchingrules.StatusSuccess))
	assert.Empty(t, MatchStatus(200, 201, rules))
	assert.Len(t, MatchStatus(200, 500, rules), 1)
}

func TestMatchMethodAndPath(t *testing.T) {
	assert.Empty(t, MatchMethod("GET", "get"))
	assert.Len(t, MatchMethod("GET", "POST"), 1)

	assert.Empty(t, MatchPath("/a", "/a", nil))
	assert.Len(t, MatchPath("/a", "/b", nil), 1)

	rules := matchingrules.New()
	rules.AddCategoryName(matchingrules.CategoryPath).AddRule("", matchingrules.Regex(`/orders/\d+`))
	assert.Empty(t, MatchPath("/orders/1", "/orders/99", rules))
	assert.Len(t, MatchPath("/orders/1", "/orders/x", rules), 1)
}

func TestMatchHeaders(t *testing.T) {
	tests := []struct {
		name     string
		expected map[string][]string
		actual   map[string][]string
		want     int
	}{
		{
			name:     "case-insensitive names",
			expected: map[string][]string{"X-Trace": {"abc"}},
			actual:   map[string][]string{"x-trace": {"abc"}},
		},
		{
			name:     "missing",
			expected: map[string][]string{"X-Trace": {"abc"}},
			actual:   map[string][]string{},
			want:     1,
		},
		{
			name:     "comma separated values",
			expected: map[string][]string{"Accept": {"application/json, text/plain"}},
			actual:   map[string][]string{"Accept": {"application/json,text/plain"}},
		},
		{
			name:     "different values",
			expected: map[string][]string{"Accept": {"application/json"}},
			actual:   map[string][]string{"Accept": {"text/plain"}},
			want:     1,
		},
		{
			name:     "content type extra parameter",
			expected: map[string][]string{"Content-Type": {"application/json"}},
			actual:   map[string][]string{"Content-Type": {"application/json; charset=UTF-8"}},
		},
		{
			name:     "content type missing parameter",
			expected: map[string][]string{"Content-Type": {"application/json; charset=utf-8"}},
			actual:   map[string][]string{"Content-Type": {"application/json"}},
			want:     1,
		},
		{
			name:     "unexpected headers ignored",
			expected: map[string][]string{},
			actual:   map[string][]string{"X-Other": {"1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mismatches := MatchHeaders(tt.expected, tt.actual, nil)
			assert.Len(t, mismatches, tt.want, Describe(mismatches))
		})
	}
}

func TestMatchHeaders_Rules(t *testing.T) {
	rules := matchingrules.New()
	rules.AddCategoryName(matchingrules.CategoryHeader).AddRule("x-id", matchingrules.Regex(`\d+`))
	expected := map[string][]string{"X-Id": {"1"}}

	assert.Empty(t, MatchHeaders(expected, map[string][]string{"X-Id": {"42"}}, rules))

	mismatches := MatchHeaders(expected, map[string][]string{"X-Id": {"abc"}}, rules)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "X-Id", mismatches[0].Path())
}

func TestMatchQuery(t *testing.T) {
	expected := map[string][]string{"page": {"1"}, "tag": {"a", "b"}}

	assert.Empty(t, MatchQuery(expected, map[string][]string{"page": {"1"}, "tag": {"a", "b"}}, nil))

	mismatches := MatchQuery(expected, map[string][]string{"page": {"1"}, "tag": {"a", "b"}, "x": {"y"}}, nil)
	require.Len(t, mismatches, 1)
	assert.Contains(t, mismatches[0].Description(), "Unexpected query parameter 'x'")

	mismatches = MatchQuery(expected, map[string][]string{"tag": {"a", "c"}}, nil)
	assert.Len(t, mismatches, 2, Describe(mismatches))

	mismatches = MatchQuery(expected, map[string][]string{"page": {"1"}, "tag": {"a"}}, nil)
	require.Len(t, mismatches, 1)
	assert.Contains(t, mismatches[0].Description(), "with 2 value(s) but received 1 value(s)")
}

func TestMatchQuery_Rules(t *testing.T) {
	rules := matchingrules.New()
	rules.AddCategoryName(matchingrules.CategoryQuery).
		AddRule("id", matchingrules.Regex(`\d+`)).
		AddRule("id", matchingrules.MinType(2))
	expected := map[string][]string{"id": {"1"}}

	assert.Empty(t, MatchQuery(expected, map[string][]string{"id": {"10", "20"}}, rules))
	assert.Len(t, MatchQuery(expected, map[string][]string{"id": {"10"}}, rules), 1)
	assert.Len(t, MatchQuery(expected, map[string][]string{"id": {"10", "x"}}, rules), 1)
}

func TestMatchMetadata(t *testing.T) {
	expected := map[string]jsonvalue.Value{
		"contentType": jsonvalue.String("application/json"),
		"partition":   jsonvalue.Int(1),
	}

	assert.Empty(t, MatchMetadata(expected, map[string]jsonvalue.Value{
		"contentType": jsonvalue.String("application/json; charset=utf-8"),
		"partition":   jsonvalue.String("1"),
		"extra":       jsonvalue.Bool(true),
	}, nil))

	mismatches := MatchMetadata(expected, map[string]jsonvalue.Value{
		"contentType": jsonvalue.String("text/plain"),
	}, nil)
	require.Len(t, mismatches, 2)
	assert.Equal(t, []string{"contentType", "partition"}, paths(mismatches))

	rules := matchingrules.New()
	rules.AddCategoryName(matchingrules.CategoryMetadata).AddRule("partition", matchingrules.IntegerRule())
	assert.Empty(t, MatchMetadata(map[string]jsonvalue.Value{"partition": jsonvalue.Int(1)},
		map[string]jsonvalue.Value{"partition": jsonvalue.Int(7)}, rules))
}
