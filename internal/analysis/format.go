package analysis

import (
	"net/url"
	"path"
	"strings"
)

// FormatFromURL infers an image format from a URL's file extension.
// Query strings and fragments are ignored; unknown or missing extensions
// yield FormatUnknown.
func FormatFromURL(raw string) Format {
	parsed, err := url.Parse(raw)
	if err != nil {
		return FormatUnknown
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(parsed.Path), "."))
	switch ext {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "webp":
		return FormatWebP
	case "avif":
		return FormatAVIF
	case "gif":
		return FormatGIF
	case "svg":
		return FormatSVG
	default:
		return FormatUnknown
	}
}
