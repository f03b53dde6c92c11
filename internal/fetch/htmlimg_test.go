package fetch

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
	<link rel="preload" as="image" href="/assets/hero.avif">
	<link rel="stylesheet" href="/style.css">
</head>
<body>
	<img src="https://cdn.example.com/logo.png" alt="logo">
	<img srcset="/assets/photo-480.jpg 480w, /assets/photo-1080.jpg 1080w" src="/assets/photo.jpg">
	<picture>
		<source srcset="/assets/art.webp 1x, /assets/art@2x.webp 2x">
		<img src="/assets/art.jpg">
	</picture>
	<div style="background-image: url('/assets/bg.jpg'); color: red"></div>
	<img src="data:image/png;base64,AAAA">
	<img src="https://cdn.example.com/logo.png">
</body>
</html>`

func TestExtractImageURLs(t *testing.T) {
	base, err := url.Parse("https://example.site/page")
	require.NoError(t, err)

	urls := ExtractImageURLs([]byte(sampleHTML), base)

	assert.Equal(t, []string{
		"https://example.site/assets/hero.avif",
		"https://cdn.example.com/logo.png",
		"https://example.site/assets/photo-480.jpg",
		"https://example.site/assets/photo-1080.jpg",
		"https://example.site/assets/photo.jpg",
		"https://example.site/assets/art.webp",
		"https://example.site/assets/art@2x.webp",
		"https://example.site/assets/art.jpg",
		"https://example.site/assets/bg.jpg",
	}, urls)
}

func TestExtractImageURLs_Empty(t *testing.T) {
	urls := ExtractImageURLs([]byte("<html><body><p>no images</p></body></html>"), nil)
	assert.Empty(t, urls)
}

func TestExtractImageURLs_SkipsDataAndNonHTTP(t *testing.T) {
	htmlDoc := `<img src="data:image/gif;base64,x"><img src="ftp://old/img.png">`
	assert.Empty(t, ExtractImageURLs([]byte(htmlDoc), nil))
}

func TestParseSrcset(t *testing.T) {
	got := parseSrcset(" /a.jpg 480w, /b.jpg 2x ,/c.jpg")
	assert.Equal(t, []string{"/a.jpg", "/b.jpg", "/c.jpg"}, got)
}
