package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		input string
		want  Version
	}{
		{"1.0.0", V1},
		{"1.1.0", V1_1},
		{"2.0.0", V2},
		{"3.0.0", V3},
		{"4.0", V4},
		{"v3", V3},
		{"V4", V4},
		{" 2 ", V2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVersion(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	for _, in := range []string{"", "5.0", "abc"} {
		_, err := ParseVersion(in)
		assert.Error(t, err, in)
	}
}

func TestVersionOrdering(t *testing.T) {
	assert.True(t, V2.Before(V3))
	assert.True(t, V4.AtLeast(V3))
	assert.False(t, V2.AtLeast(V3))
	assert.Equal(t, "V3", V3.String())
	assert.Equal(t, "3.0.0", V3.VersionString())
}
