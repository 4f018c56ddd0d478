package javatime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"yyyy-MM-dd", "2006-01-02"},
		{"HH:mm:ss", "15:04:05"},
		{"yyyy-MM-dd'T'HH:mm:ss", "2006-01-02T15:04:05"},
		{"yyyy-MM-dd'T'HH:mm:ss.SSSXXX", "2006-01-02T15:04:05.000Z07:00"},
		{"dd MMM yy h:mm a", "02 Jan 06 3:04 PM"},
		{"EEEE, d MMMM", "Monday, 2 January"},
		{"HH 'o''clock'", "15 o'clock"},
		{"''yy", "'06"},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := Layout(tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLayout_Errors(t *testing.T) {
	_, err := Layout("yyyy-'MM")
	assert.Error(t, err)

	_, err = Layout("qqq")
	assert.Error(t, err)
}

func TestFormatAndParse(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	s, err := Format(DefaultDateTime, ts)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-09T14:05:07", s)

	parsed, err := Parse(DefaultDateTime, s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))

	_, err = Parse(DefaultDate, "2024-13-01")
	assert.Error(t, err)
}
