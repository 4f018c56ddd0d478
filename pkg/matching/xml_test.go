package matching

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/matchingrules"
)

func xmlBody(s string) contract.Body {
	return contract.NewBody([]byte(s), contract.ContentTypeXML)
}

func TestXMLMatcher(t *testing.T) {
	expected := xmlBody(`<?xml version="1.0"?><order id="1"><item>a</item><item>b</item></order>`)
	tests := []struct {
		name   string
		actual string
		want   int
	}{
		{name: "equal", actual: `<order id="1"><item>a</item><item>b</item></order>`},
		{name: "whitespace", actual: "<order id=\"1\">\n  <item>a</item>\n  <item>b</item>\n</order>"},
		{name: "text differs", actual: `<order id="1"><item>a</item><item>c</item></order>`, want: 1},
		{name: "attribute differs", actual: `<order id="2"><item>a</item><item>b</item></order>`, want: 1},
		{name: "attribute missing", actual: `<order><item>a</item><item>b</item></order>`, want: 1},
		{name: "child missing", actual: `<order id="1"><item>a</item></order>`, want: 1},
		{name: "extra child", actual: `<order id="1"><item>a</item><item>b</item><note/></order>`, want: 1},
		{name: "root differs", actual: `<invoice id="1"/>`, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mismatches, err := XMLMatcher{}.MatchBody(context.Background(), expected, xmlBody(tt.actual), NewContext(nil))
			require.NoError(t, err)
			assert.Len(t, mismatches, tt.want, Describe(mismatches))
		})
	}
}

func TestXMLMatcher_Rules(t *testing.T) {
	mc := NewContext(bodyRules(func(c *matchingrules.Category) {
		c.AddRule("$.order.item", matchingrules.MinType(1))
		c.AddRule("$.order['@id']", matchingrules.Regex(`\d+`))
	}))
	expected := xmlBody(`<order id="1"><item>a</item></order>`)

	mismatches, err := XMLMatcher{}.MatchBody(context.Background(), expected,
		xmlBody(`<order id="77"><item>x</item><item>y</item><item>z</item></order>`), mc)
	require.NoError(t, err)
	assert.Empty(t, mismatches, Describe(mismatches))

	mismatches, err = XMLMatcher{}.MatchBody(context.Background(), expected, xmlBody(`<order id="abc"/>`), mc)
	require.NoError(t, err)
	assert.Len(t, mismatches, 2, Describe(mismatches))
}

func TestXMLMatcher_InvalidActual(t *testing.T) {
	mismatches, err := XMLMatcher{}.MatchBody(context.Background(), xmlBody(`<a/>`), xmlBody(`<a><b></a>`), NewContext(nil))
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.IsType(t, BodyTypeMismatch{}, mismatches[0])

	_, err = XMLMatcher{}.MatchBody(context.Background(), xmlBody(`not xml`), xmlBody(`<a/>`), NewContext(nil))
	assert.Error(t, err)
}

func TestFormMatcher(t *testing.T) {
	form := func(s string) contract.Body { return contract.NewBody([]byte(s), contract.ContentTypeForm) }
	expected := form("a=1&b=2")

	mismatches, err := FormMatcher{}.MatchBody(context.Background(), expected, form("b=2&a=1"), NewContext(nil))
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	mismatches, err = FormMatcher{}.MatchBody(context.Background(), expected, form("a=1&b=3"), NewContext(nil))
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, "$.b[0]", mismatches[0].Path())

	mc := NewContext(bodyRules(func(c *matchingrules.Category) {
		c.AddRule("$.b[*]", matchingrules.Regex(`\d+`))
	}))
	mismatches, err = FormMatcher{}.MatchBody(context.Background(), expected, form("a=1&b=345"), mc)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}
