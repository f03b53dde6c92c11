package fetch

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var cssURLPattern = regexp.MustCompile(`url\(['"]?([^'")]+)['"]?\)`)

// ExtractImageURLs parses an HTML document and returns every image URL it
// references: img src and srcset, picture sources, preloaded images and
// inline background-image declarations. Relative URLs are resolved against
// base. The result is deduplicated in document order.
func ExtractImageURLs(body []byte, base *url.URL) []string {
	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	var urls []string
	seen := make(map[string]bool)
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "data:") {
			return
		}
		resolved := resolveURL(raw, base)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		urls = append(urls, resolved)
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img", "source":
				for _, attr := range n.Attr {
					switch attr.Key {
					case "src":
						add(attr.Val)
					case "srcset":
						for _, candidate := range parseSrcset(attr.Val) {
							add(candidate)
						}
					}
				}
			case "link":
				if attrValue(n, "rel") == "preload" && attrValue(n, "as") == "image" {
					add(attrValue(n, "href"))
				}
			}
			if style := attrValue(n, "style"); style != "" {
				for _, m := range cssURLPattern.FindAllStringSubmatch(style, -1) {
					add(m[1])
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			visit(child)
		}
	}
	visit(doc)

	return urls
}

// parseSrcset splits a srcset attribute into its candidate URLs, dropping
// the width/density descriptors.
func parseSrcset(srcset string) []string {
	var urls []string
	for _, candidate := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(candidate))
		if len(fields) > 0 {
			urls = append(urls, fields[0])
		}
	}
	return urls
}

func resolveURL(raw string, base *url.URL) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
