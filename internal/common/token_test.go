package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidTokenFormat(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"", false},
		{"short", false},
		{"123456789", false},
		{"1234567890", true},
		{strings.Repeat("x", 64), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidTokenFormat(tt.token), "token %q", tt.token)
	}
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "abcdefghij...", MaskToken("abcdefghijklmnop"))
	assert.Equal(t, "abcde...", MaskToken("abcdefghij"))
	assert.Equal(t, "ab...", MaskToken("ab"))
	assert.Equal(t, "...", MaskToken(""))
}
