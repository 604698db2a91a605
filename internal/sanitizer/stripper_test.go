package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLStripper(t *testing.T) {
	hs := NewHTMLStripper()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain text", "deep in the money", "deep in the money"},
		{"Script tag", `<script>alert("x")</script>cheap`, "cheap"},
		{"Bold tag", "<b>urgent</b> sale", "urgent sale"},
		{"Whitespace", "  spaced  ", "spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, hs.StripHTML(tt.input))
		})
	}
}
