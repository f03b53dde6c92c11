// Package collect implements the three asset sources: canvas tree traversal,
// collection enumeration with fallback heuristics, and user-declared manual
// estimates. Collectors never abort one another: every failure degrades to an
// empty contribution with a logged cause.
package collect

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
	"github.com/fluxbase-eu/pageweight/internal/apperr"
	"github.com/fluxbase-eu/pageweight/internal/design"
	"github.com/fluxbase-eu/pageweight/internal/routes"
)

const (
	// defaultBatchSize is how many nodes of a traversal level are expanded
	// per wave of bounded workers.
	defaultBatchSize = 10
	// defaultMaxDepth caps traversal so cycles and pathological trees
	// cannot hang a run.
	defaultMaxDepth = 100
	// defaultConcurrency bounds outstanding tree API calls.
	defaultConcurrency = 4
)

// CanvasResult is the outcome of one device class's tree traversal.
type CanvasResult struct {
	// Assets in traversal order, deduplicated by identity.
	Assets []analysis.Asset
	// ByPage scopes the same assets to their top-level page.
	ByPage map[string][]analysis.Asset
	// FontFamilies are the distinct families referenced by text nodes,
	// sorted.
	FontFamilies []string
}

// CanvasCollector walks the design tree per device class and extracts image,
// vector and background-image nodes.
type CanvasCollector struct {
	tree        design.TreeAPI
	batchSize   int
	maxDepth    int
	concurrency int
}

// CanvasOption customizes a CanvasCollector.
type CanvasOption func(*CanvasCollector)

// WithBatchSize overrides the traversal batch size.
func WithBatchSize(n int) CanvasOption {
	return func(c *CanvasCollector) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithMaxDepth overrides the traversal depth cap.
func WithMaxDepth(n int) CanvasOption {
	return func(c *CanvasCollector) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// WithConcurrency bounds concurrent tree API calls.
func WithConcurrency(n int) CanvasOption {
	return func(c *CanvasCollector) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// NewCanvasCollector creates a canvas collector over a design tree.
func NewCanvasCollector(tree design.TreeAPI, opts ...CanvasOption) *CanvasCollector {
	c := &CanvasCollector{
		tree:        tree,
		batchSize:   defaultBatchSize,
		maxDepth:    defaultMaxDepth,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect traverses the tree for one device class, starting from the
// non-excluded top-level pages. Breakpoint frames belonging to other device
// classes are pruned; invisible nodes are skipped with their subtrees.
func (c *CanvasCollector) Collect(ctx context.Context, dc analysis.DeviceClass, excludedRouteIDs []string) (CanvasResult, error) {
	result := CanvasResult{ByPage: make(map[string][]analysis.Asset)}

	pages, err := c.tree.ListTopLevelPages(ctx, true)
	if err != nil {
		return result, apperr.Wrap(apperr.KindAPI, "collect.Canvas", err)
	}

	excluded := make(map[string]bool, len(excludedRouteIDs))
	for _, id := range excludedRouteIDs {
		excluded[id] = true
	}

	// seen dedups the class-wide list only. ByPage keeps every asset a page
	// references, so an asset shared by two pages appears under both and
	// each page's report and recommendations account for it.
	seen := make(map[string]bool)
	fonts := make(map[string]bool)

	for _, page := range pages {
		if excluded[page.ID] {
			log.Debug().Str("page", page.Name).Str("device_class", string(dc)).Msg("Page excluded from canvas traversal")
			continue
		}
		assets, err := c.traversePage(ctx, page, dc, fonts)
		if err != nil {
			log.Warn().Err(err).Str("page", page.Name).Str("device_class", string(dc)).Msg("Page traversal failed, continuing with siblings")
			continue
		}
		if len(assets) > 0 {
			result.ByPage[page.ID] = assets
		}
		for _, a := range assets {
			if seen[a.Identity] {
				continue
			}
			seen[a.Identity] = true
			result.Assets = append(result.Assets, a)
		}
	}

	for family := range fonts {
		result.FontFamilies = append(result.FontFamilies, family)
	}
	sort.Strings(result.FontFamilies)

	return result, nil
}

// traversePage runs a batched breadth-first walk below one page. Levels are
// expanded in fixed-size batches with a bounded worker pool so a wide tree
// cannot produce unbounded outstanding API calls. Dedup is scoped to the
// page: the same identity placed twice on one page counts once.
func (c *CanvasCollector) traversePage(ctx context.Context, page design.PageRef, dc analysis.DeviceClass, fonts map[string]bool) ([]analysis.Asset, error) {
	var assets []analysis.Asset
	seen := make(map[string]bool)
	level := []string{page.ID}

	for depth := 0; depth < c.maxDepth && len(level) > 0; depth++ {
		var next []string
		for start := 0; start < len(level); start += c.batchSize {
			end := start + c.batchSize
			if end > len(level) {
				end = len(level)
			}
			batch := level[start:end]

			expansions, err := c.expandBatch(ctx, batch, dc)
			if err != nil {
				return assets, err
			}
			for _, exp := range expansions {
				for _, a := range exp.assets {
					if seen[a.Identity] {
						continue
					}
					seen[a.Identity] = true
					assets = append(assets, a)
				}
				for _, family := range exp.fonts {
					fonts[family] = true
				}
				next = append(next, exp.children...)
			}
		}
		level = next
	}

	if len(level) > 0 {
		log.Warn().Str("page", page.Name).Int("max_depth", c.maxDepth).Msg("Traversal depth cap reached, truncating")
	}
	return assets, nil
}

type nodeExpansion struct {
	assets   []analysis.Asset
	children []string
	fonts    []string
}

// expandBatch visits a batch of nodes concurrently with bounded workers,
// preserving batch order in the returned expansions.
func (c *CanvasCollector) expandBatch(ctx context.Context, batch []string, dc analysis.DeviceClass) ([]nodeExpansion, error) {
	expansions := make([]nodeExpansion, len(batch))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for i, nodeID := range batch {
		wg.Add(1)
		go func(i int, nodeID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			expansions[i] = c.expandNode(ctx, nodeID, dc)
		}(i, nodeID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, "collect.Canvas", err)
	}
	return expansions, nil
}

func (c *CanvasCollector) expandNode(ctx context.Context, nodeID string, dc analysis.DeviceClass) nodeExpansion {
	var exp nodeExpansion

	node, err := c.tree.GetNode(ctx, nodeID)
	if err != nil {
		log.Warn().Err(err).Str("node_id", nodeID).Msg("Node fetch failed, skipping subtree")
		return exp
	}
	if node == nil {
		return exp
	}

	// Pages are containers, never visible in the invisible-node sense.
	if node.Kind != design.NodePage && !node.Visible {
		return exp
	}

	// Breakpoint frames of other device classes are responsive variants;
	// their subtrees belong to a different traversal.
	if frameClass, ok := routes.DetectDeviceClassFrame(node.Name); ok && node.Kind == design.NodeFrame && frameClass != dc {
		return exp
	}

	exp.assets = extractNodeAssets(node, dc)
	exp.fonts = node.FontFamilies

	children, err := c.tree.GetChildren(ctx, nodeID)
	if err != nil {
		log.Warn().Err(err).Str("node_id", nodeID).Msg("Children fetch failed, truncating subtree")
		return exp
	}
	for _, child := range children {
		exp.children = append(exp.children, child.ID)
	}
	return exp
}

// extractNodeAssets maps one node to zero or more assets. Canvas identities
// are the asset URL when known, else a synthetic node identifier; canvas
// assets are device-class specific, so the synthetic form includes the class.
func extractNodeAssets(node *design.Node, dc analysis.DeviceClass) []analysis.Asset {
	var assets []analysis.Asset
	dims := analysis.Dimensions{Width: node.Width, Height: node.Height}

	switch node.Kind {
	case design.NodeImage:
		a := analysis.Asset{
			Name:     node.Name,
			Kind:     analysis.KindImage,
			Origin:   analysis.OriginCanvas,
			Declared: dims,
			Visible:  true,
			NodeID:   node.ID,
		}
		if node.ImageURL != "" {
			a.Identity = node.ImageURL
			a.URL = node.ImageURL
			a.Format = analysis.FormatFromURL(node.ImageURL)
		} else {
			a.Identity = syntheticIdentity(node.ID, dc)
			a.Format = analysis.FormatUnknown
		}
		assets = append(assets, a)
	case design.NodeVector:
		assets = append(assets, analysis.Asset{
			Identity:          syntheticIdentity(node.ID, dc),
			Name:              node.Name,
			Kind:              analysis.KindVector,
			Origin:            analysis.OriginCanvas,
			Declared:          dims,
			Format:            analysis.FormatSVG,
			Visible:           true,
			NodeID:            node.ID,
			ExpensiveFeatures: node.ExpensiveFeatures,
		})
	}

	if node.BackgroundImageURL != "" {
		assets = append(assets, analysis.Asset{
			Identity: node.BackgroundImageURL,
			URL:      node.BackgroundImageURL,
			Name:     node.Name,
			Kind:     analysis.KindBackgroundImage,
			Origin:   analysis.OriginCanvas,
			Declared: dims,
			Format:   analysis.FormatFromURL(node.BackgroundImageURL),
			Visible:  true,
			NodeID:   node.ID,
		})
	}

	return assets
}

func syntheticIdentity(nodeID string, dc analysis.DeviceClass) string {
	return fmt.Sprintf("node:%s:%s", nodeID, dc)
}
