package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected Format
	}{
		{"https://cdn.example.com/a.jpg", FormatJPEG},
		{"https://cdn.example.com/a.JPEG", FormatJPEG},
		{"https://cdn.example.com/dir/b.png?v=2", FormatPNG},
		{"https://cdn.example.com/c.webp#frag", FormatWebP},
		{"https://cdn.example.com/d.avif", FormatAVIF},
		{"https://cdn.example.com/e.gif", FormatGIF},
		{"https://cdn.example.com/f.svg", FormatSVG},
		{"https://cdn.example.com/noext", FormatUnknown},
		{"https://cdn.example.com/g.tiff", FormatUnknown},
		{"::notaurl::", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatFromURL(tt.url))
		})
	}
}

func TestFormatIsModern(t *testing.T) {
	assert.True(t, FormatWebP.IsModern())
	assert.True(t, FormatAVIF.IsModern())
	assert.False(t, FormatPNG.IsModern())
	assert.False(t, FormatJPEG.IsModern())
	assert.False(t, FormatUnknown.IsModern())
}
