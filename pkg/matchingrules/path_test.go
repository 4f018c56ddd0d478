package matchingrules

import (
	"testing"

	"github.com/ohler55/ojg/jp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathWeight(t *testing.T) {
	path := IndexPath(ChildPath(RootPath(), "a"), 0)
	path = ChildPath(path, "b")

	tests := []struct {
		pattern string
		want    int
	}{
		{"$", 2},
		{"$.a", 4},
		{"$.a[0]", 8},
		{"$.a[*]", 4},
		{"$.a[0].b", 16},
		{"$.a[*].b", 8},
		{"$.*[*].b", 4},
		{"$.a[1].b", 0},
		{"$.c", 0},
		{"$.a[0].b.c", 0},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			pattern, err := ParsePattern(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, PathWeight(pattern, path))
		})
	}
}

func TestChildPath_DoesNotAlias(t *testing.T) {
	parent := make(jp.Expr, 0, 8)
	parent = append(parent, jp.Root('$'))
	a := ChildPath(parent, "a")
	b := ChildPath(parent, "b")
	assert.Equal(t, "$.a", a.String())
	assert.Equal(t, "$.b", b.String())
}

func TestPathMatcher_Resolve(t *testing.T) {
	c := NewCategory("body")
	c.AddRule("$", TypeMatch())
	c.AddRule("$.items", MinType(1))
	c.AddRule("$.items[*].id", IntegerRule())
	c.AddRule("$.items[2].id", Regex(`\d`))
	m := NewPathMatcher(c, nil)

	items := ChildPath(RootPath(), "items")

	r, ok := m.Resolve(items)
	require.True(t, ok)
	assert.Equal(t, "$.items", r.Pattern)
	assert.True(t, r.Exact)

	r, ok = m.Resolve(ChildPath(IndexPath(items, 0), "id"))
	require.True(t, ok)
	assert.Equal(t, "$.items[*].id", r.Pattern)

	r, ok = m.Resolve(ChildPath(IndexPath(items, 2), "id"))
	require.True(t, ok)
	assert.Equal(t, "$.items[2].id", r.Pattern)

	r, ok = m.Resolve(ChildPath(IndexPath(items, 0), "name"))
	require.True(t, ok)
	assert.Equal(t, "$.items", r.Pattern)
	assert.False(t, r.Exact)

	r, ok = m.Resolve(ChildPath(RootPath(), "other"))
	require.True(t, ok)
	assert.Equal(t, "$", r.Pattern)
}

func TestPathMatcher_WildcardDefined(t *testing.T) {
	c := NewCategory("body")
	c.AddRule("$.a.*", TypeMatch())
	m := NewPathMatcher(c, nil)

	assert.True(t, m.WildcardDefined(ChildPath(ChildPath(RootPath(), "a"), "x")))
	assert.False(t, m.WildcardDefined(ChildPath(RootPath(), "a")))
}

func TestPathMatcher_SkipsInvalidPatterns(t *testing.T) {
	c := NewCategory("body")
	c.AddRule("$[", TypeMatch())
	m := NewPathMatcher(c, nil)
	assert.True(t, m.IsEmpty())
}
