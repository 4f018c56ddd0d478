package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		maxSize int
		want    string
	}{
		{"fits", `{"id":1}`, 64, `{"id":1}`},
		{"at limit", "abcd", 4, "abcd"},
		{"over limit", "abcdef", 4, "abcd...(truncated)"},
		{"empty", "", 4, ""},
		{"default limit", "abc", 0, "abc"},
		{"keeps runes whole", "héllo", 2, "h...(truncated)"},
		{"multi-byte at boundary", "日本語", 6, "日本...(truncated)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TruncateBody(tt.data, tt.maxSize))
		})
	}
}

func TestTruncateBody_DefaultLimit(t *testing.T) {
	t.Parallel()

	body := strings.Repeat("x", MaxDescribedBody+1)
	got := TruncateBody(body, -1)
	assert.Len(t, got, MaxDescribedBody+len("...(truncated)"))
	assert.Equal(t, body[:MaxDescribedBody], strings.TrimSuffix(got, "...(truncated)"))
}
