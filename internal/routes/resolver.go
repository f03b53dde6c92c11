// Package routes resolves design-tree nodes to the published route that owns
// them by walking the containment hierarchy upward.
package routes

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
	"github.com/fluxbase-eu/pageweight/internal/apperr"
	"github.com/fluxbase-eu/pageweight/internal/design"
)

// maxWalkDepth bounds the upward walk so malformed hierarchies cannot loop.
const maxWalkDepth = 100

// Route is a published, navigable site path.
type Route struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Slug               string `json:"slug"`
	IsCollectionDetail bool   `json:"is_collection_detail"`
	CollectionID       string `json:"collection_id,omitempty"`
}

// Confidence grades a resolution.
type Confidence string

const (
	// ConfidenceHigh means the walk reached a route ancestor directly.
	ConfidenceHigh Confidence = "high"
	// ConfidenceMedium means the walk crossed a component or instance
	// boundary, so the attribution reflects one placement of a reusable
	// element.
	ConfidenceMedium Confidence = "medium"
)

// MissReason explains an unresolved node. A miss is a valid state, not an
// error.
type MissReason string

const (
	ReasonNodeNotFound    MissReason = "node_not_found"
	ReasonNoRouteAncestor MissReason = "no_route_ancestor"
	ReasonDepthExceeded   MissReason = "depth_exceeded"
)

// Resolution is the outcome of resolving one node.
type Resolution struct {
	Found            bool       `json:"found"`
	Route            Route      `json:"route,omitempty"`
	NodePath         string     `json:"node_path,omitempty"`
	DeviceClassFrame string     `json:"device_class_frame,omitempty"`
	Confidence       Confidence `json:"confidence,omitempty"`
	Reason           MissReason `json:"reason,omitempty"`
}

// Resolver maps nodes to routes. It is scoped to one analysis run: the route
// list is populated lazily on first use and Invalidate discards all state at
// the start of the next run. Safe for concurrent use.
type Resolver struct {
	tree design.TreeAPI

	mu           sync.Mutex
	routes       []Route
	routeByPage  map[string]Route
	routesLoaded bool
	cache        map[string]Resolution
}

// NewResolver creates a resolver bound to a design tree.
func NewResolver(tree design.TreeAPI) *Resolver {
	return &Resolver{
		tree:  tree,
		cache: make(map[string]Resolution),
	}
}

// Invalidate drops the route list and resolution cache.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = nil
	r.routeByPage = nil
	r.routesLoaded = false
	r.cache = make(map[string]Resolution)
}

// Routes returns the published routes, enumerating them on first call.
func (r *Resolver) Routes(ctx context.Context) ([]Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadRoutesLocked(ctx); err != nil {
		return nil, err
	}
	return append([]Route(nil), r.routes...), nil
}

func (r *Resolver) loadRoutesLocked(ctx context.Context) error {
	if r.routesLoaded {
		return nil
	}
	pages, err := r.tree.ListTopLevelPages(ctx, true)
	if err != nil {
		return apperr.Wrap(apperr.KindAPI, "routes.Routes", err)
	}
	r.routes = make([]Route, 0, len(pages))
	r.routeByPage = make(map[string]Route, len(pages))
	for _, p := range pages {
		route := Route{
			ID:                 p.ID,
			Name:               p.Name,
			Slug:               p.Slug,
			IsCollectionDetail: p.CollectionID != "",
			CollectionID:       p.CollectionID,
		}
		r.routes = append(r.routes, route)
		r.routeByPage[p.ID] = route
	}
	r.routesLoaded = true
	log.Debug().Int("routes", len(r.routes)).Msg("Route list populated")
	return nil
}

// Resolve walks from the node upward to the first route ancestor. The walk
// collects ancestor names into a path, records breakpoint frames separately
// (they are responsive variants of a route, not path segments) and is
// depth-bounded.
func (r *Resolver) Resolve(ctx context.Context, nodeID string) (Resolution, error) {
	r.mu.Lock()
	if cached, ok := r.cache[nodeID]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	if err := r.loadRoutesLocked(ctx); err != nil {
		r.mu.Unlock()
		return Resolution{}, err
	}
	routeByPage := r.routeByPage
	r.mu.Unlock()

	res := r.walk(ctx, nodeID, routeByPage)

	r.mu.Lock()
	r.cache[nodeID] = res
	r.mu.Unlock()
	return res, nil
}

func (r *Resolver) walk(ctx context.Context, nodeID string, routeByPage map[string]Route) Resolution {
	var pathParts []string
	var frame string
	confidence := ConfidenceHigh

	current := nodeID
	for depth := 0; depth < maxWalkDepth; depth++ {
		if route, ok := routeByPage[current]; ok {
			return Resolution{
				Found:            true,
				Route:            route,
				NodePath:         strings.Join(pathParts, " / "),
				DeviceClassFrame: frame,
				Confidence:       confidence,
			}
		}

		node, err := r.tree.GetNode(ctx, current)
		if err != nil || node == nil {
			if depth == 0 {
				return Resolution{Reason: ReasonNodeNotFound}
			}
			return Resolution{Reason: ReasonNoRouteAncestor}
		}

		if node.Kind == design.NodeComponent || node.Kind == design.NodeInstance {
			confidence = ConfidenceMedium
		}

		// The starting node names itself; only ancestors contribute to
		// the path.
		if depth > 0 && node.Name != "" {
			if dc, ok := DetectDeviceClassFrame(node.Name); ok {
				if frame == "" {
					frame = string(dc)
				}
			} else {
				pathParts = append([]string{node.Name}, pathParts...)
			}
		}

		parent, err := r.tree.GetParent(ctx, current)
		if err != nil {
			log.Warn().Err(err).Str("node_id", current).Msg("Parent lookup failed during route walk")
			return Resolution{Reason: ReasonNoRouteAncestor}
		}
		if parent == nil {
			return Resolution{Reason: ReasonNoRouteAncestor}
		}
		current = parent.ID
	}

	return Resolution{Reason: ReasonDepthExceeded}
}

// breakpointNames maps name fragments to device classes. Width tokens cover
// the common artboard presets.
var breakpointNames = []struct {
	fragment string
	class    analysis.DeviceClass
}{
	{"desktop", analysis.DeviceDesktop},
	{"1920", analysis.DeviceDesktop},
	{"1440", analysis.DeviceDesktop},
	{"1280", analysis.DeviceDesktop},
	{"1200", analysis.DeviceDesktop},
	{"tablet", analysis.DeviceTablet},
	{"ipad", analysis.DeviceTablet},
	{"1024", analysis.DeviceTablet},
	{"834", analysis.DeviceTablet},
	{"810", analysis.DeviceTablet},
	{"768", analysis.DeviceTablet},
	{"mobile", analysis.DeviceMobile},
	{"phone", analysis.DeviceMobile},
	{"414", analysis.DeviceMobile},
	{"390", analysis.DeviceMobile},
	{"375", analysis.DeviceMobile},
	{"320", analysis.DeviceMobile},
}

// DetectDeviceClassFrame reports whether a frame name follows a breakpoint
// naming pattern and which device class it denotes.
func DetectDeviceClassFrame(name string) (analysis.DeviceClass, bool) {
	lower := strings.ToLower(name)
	for _, bp := range breakpointNames {
		if strings.Contains(lower, bp.fragment) {
			return bp.class, true
		}
	}
	return "", false
}
