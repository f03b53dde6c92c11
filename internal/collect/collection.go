package collect

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
	"github.com/fluxbase-eu/pageweight/internal/design"
	"github.com/fluxbase-eu/pageweight/internal/fetch"
)

// defaultGuessDims stands in when a collection asset's dimensions cannot be
// measured or read from the URL.
var defaultGuessDims = analysis.Dimensions{Width: 1200, Height: 800}

// CollectionResult is the outcome of collection-origin detection.
type CollectionResult struct {
	Assets []analysis.Asset
	// DetectedNames holds lowercased names of auto-detected collections,
	// used to suppress overlapping manual estimates.
	DetectedNames map[string]bool
}

// CollectionCollector detects assets bound through the content pipeline via
// three independent strategies: the structured content API, a heuristic scan
// of component controls, and published-site diffing. Every capability is
// optional; strategies run sequentially and a failing strategy never stops
// the next one.
type CollectionCollector struct {
	content   design.ContentAPI
	scanner   design.ComponentScanner
	publisher design.PublishingAPI
	client    *fetch.Client
	measurer  design.Measurer
}

// NewCollectionCollector wires the available capabilities; any of them may
// be nil.
func NewCollectionCollector(content design.ContentAPI, scanner design.ComponentScanner, publisher design.PublishingAPI, client *fetch.Client, measurer design.Measurer) *CollectionCollector {
	return &CollectionCollector{
		content:   content,
		scanner:   scanner,
		publisher: publisher,
		client:    client,
		measurer:  measurer,
	}
}

// Collect runs all strategies. canvasURLs is the set of asset URLs already
// discovered on the canvas: a published image absent from it is presumed
// dynamically bound and classified as collection-origin.
func (c *CollectionCollector) Collect(ctx context.Context, canvasURLs map[string]bool) CollectionResult {
	result := CollectionResult{DetectedNames: make(map[string]bool)}
	seen := make(map[string]bool)

	if c.content != nil {
		if err := c.collectStructured(ctx, &result, seen); err != nil {
			log.Warn().Err(err).Msg("Structured collection enumeration failed, falling back to heuristics")
		}
	}
	if c.scanner != nil {
		if err := c.collectComponentControls(ctx, &result, seen, canvasURLs); err != nil {
			log.Warn().Err(err).Msg("Component control scan failed")
		}
	}
	if c.publisher != nil && c.client != nil {
		if err := c.collectPublishedDiff(ctx, &result, seen, canvasURLs); err != nil {
			log.Warn().Err(err).Msg("Published-site diffing failed")
		}
	}

	return result
}

// collectStructured enumerates collections, filters to asset-typed fields
// and extracts every item's asset values.
func (c *CollectionCollector) collectStructured(ctx context.Context, result *CollectionResult, seen map[string]bool) error {
	collections, err := c.content.ListCollections(ctx)
	if err != nil {
		return err
	}

	for _, col := range collections {
		result.DetectedNames[strings.ToLower(col.Name)] = true

		fields, err := c.content.ListFields(ctx, col.ID)
		if err != nil {
			log.Warn().Err(err).Str("collection", col.Name).Msg("Field enumeration failed, skipping collection")
			continue
		}
		var assetFields []design.FieldRef
		for _, f := range fields {
			if f.Kind.IsAssetField() {
				assetFields = append(assetFields, f)
			}
		}
		if len(assetFields) == 0 {
			continue
		}

		items, err := c.content.ListItems(ctx, col.ID)
		if err != nil {
			log.Warn().Err(err).Str("collection", col.Name).Msg("Item enumeration failed, skipping collection")
			continue
		}

		for _, item := range items {
			for _, field := range assetFields {
				value, err := c.content.GetFieldValue(ctx, col.ID, item.ID, field.ID)
				if err != nil || value == nil || value.URL == "" {
					continue
				}
				if seen[value.URL] {
					continue
				}
				seen[value.URL] = true

				a := analysis.Asset{
					Identity:         value.URL,
					URL:              value.URL,
					Name:             assetName(value.Alt, value.URL),
					Kind:             analysis.KindImage,
					Origin:           analysis.OriginCollection,
					Visible:          true,
					Format:           analysis.FormatFromURL(value.URL),
					SourceCollection: col.Name,
					SourceItemSlug:   item.Slug,
				}
				c.fillDimensions(ctx, &a, value)
				result.Assets = append(result.Assets, a)
			}
		}
	}
	return nil
}

// fillDimensions resolves dimensions in preference order: content API
// metadata, live measurement, URL heuristics, fixed fallback.
func (c *CollectionCollector) fillDimensions(ctx context.Context, a *analysis.Asset, value *design.FieldValue) {
	if value.Width > 0 && value.Height > 0 {
		a.Measured = &analysis.Dimensions{Width: value.Width, Height: value.Height}
		a.Declared = *a.Measured
		return
	}
	if c.measurer != nil {
		if dims, err := c.measurer.Measure(ctx, a.URL); err == nil && dims != nil {
			a.Measured = &analysis.Dimensions{Width: dims.Width, Height: dims.Height}
			a.Declared = *a.Measured
			return
		} else if err != nil {
			log.Debug().Err(err).Str("url", a.URL).Msg("Asset measurement failed, using URL heuristics")
		}
	}
	if dims, ok := GuessDimensionsFromURL(a.URL); ok {
		a.Declared = dims
		return
	}
	a.Declared = defaultGuessDims
}

// collectComponentControls scans configurable component parameters for
// embedded asset references.
func (c *CollectionCollector) collectComponentControls(ctx context.Context, result *CollectionResult, seen, canvasURLs map[string]bool) error {
	instances, err := c.scanner.ListComponentInstances(ctx)
	if err != nil {
		return err
	}

	for _, inst := range instances {
		for control, value := range inst.Controls {
			if !looksLikeImageURL(value) {
				continue
			}
			if seen[value] || canvasURLs[value] {
				continue
			}
			seen[value] = true

			a := analysis.Asset{
				Identity: value,
				URL:      value,
				Name:     inst.Name + " / " + control,
				Kind:     analysis.KindImage,
				Origin:   analysis.OriginCollection,
				Visible:  true,
				Format:   analysis.FormatFromURL(value),
				NodeID:   inst.NodeID,
			}
			if dims, ok := GuessDimensionsFromURL(value); ok {
				a.Declared = dims
			} else {
				a.Declared = defaultGuessDims
			}
			result.Assets = append(result.Assets, a)
		}
	}
	return nil
}

// collectPublishedDiff fetches the published HTML and classifies any image
// URL not present on the canvas as collection-origin: an asset reachable only
// through publishing is presumed dynamically bound. An unpublished site is
// not an error.
func (c *CollectionCollector) collectPublishedDiff(ctx context.Context, result *CollectionResult, seen, canvasURLs map[string]bool) error {
	published, err := c.publisher.PublishedURL(ctx)
	if err != nil {
		return err
	}
	if published == "" {
		log.Debug().Msg("Project not published, skipping site diffing")
		return nil
	}

	base, err := url.Parse(published)
	if err != nil {
		return err
	}
	body, err := c.client.FetchHTML(ctx, published)
	if err != nil {
		return err
	}

	for _, imageURL := range fetch.ExtractImageURLs(body, base) {
		if canvasURLs[imageURL] || seen[imageURL] {
			continue
		}
		seen[imageURL] = true

		a := analysis.Asset{
			Identity: imageURL,
			URL:      imageURL,
			Name:     assetName("", imageURL),
			Kind:     analysis.KindImage,
			Origin:   analysis.OriginCollection,
			Visible:  true,
			Format:   analysis.FormatFromURL(imageURL),
		}
		if dims, ok := GuessDimensionsFromURL(imageURL); ok {
			a.Declared = dims
		} else {
			a.Declared = defaultGuessDims
		}
		result.Assets = append(result.Assets, a)
	}
	return nil
}

var (
	dimsInPathPattern = regexp.MustCompile(`(?:^|[^0-9])(\d{2,5})x(\d{2,5})(?:[^0-9]|$)`)
	imageExtensions   = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
		".avif": true, ".gif": true, ".svg": true,
	}
)

// GuessDimensionsFromURL extracts pixel dimensions from common URL shapes:
// a WxH token in the filename, or explicit width/height query parameters.
func GuessDimensionsFromURL(raw string) (analysis.Dimensions, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return analysis.Dimensions{}, false
	}

	query := parsed.Query()
	for _, keys := range [][2]string{{"w", "h"}, {"width", "height"}} {
		w, werr := strconv.ParseFloat(query.Get(keys[0]), 64)
		h, herr := strconv.ParseFloat(query.Get(keys[1]), 64)
		if werr == nil && herr == nil && w > 0 && h > 0 {
			return analysis.Dimensions{Width: w, Height: h}, true
		}
	}

	if m := dimsInPathPattern.FindStringSubmatch(path.Base(parsed.Path)); m != nil {
		w, _ := strconv.ParseFloat(m[1], 64)
		h, _ := strconv.ParseFloat(m[2], 64)
		if w > 0 && h > 0 {
			return analysis.Dimensions{Width: w, Height: h}, true
		}
	}

	return analysis.Dimensions{}, false
}

func looksLikeImageURL(value string) bool {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return false
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	return imageExtensions[strings.ToLower(path.Ext(parsed.Path))]
}

// assetName derives a readable asset name from alt text or the URL filename.
func assetName(alt, rawURL string) string {
	if alt != "" {
		return alt
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return rawURL
	}
	return name
}
