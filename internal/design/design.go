// Package design defines the narrow capability interfaces through which the
// pipeline reads the visual-design project: the node tree, the structured
// content collections and the publishing surface.
//
// The host plugin (or the JSON snapshot implementation in this package)
// implements these interfaces. Field presence is never assumed: the external
// tree and content APIs return loosely structured objects, so every optional
// value is an explicit pointer or zero value.
package design

import "context"

// NodeKind classifies a design-tree node.
type NodeKind string

const (
	NodePage      NodeKind = "page"
	NodeFrame     NodeKind = "frame"
	NodeImage     NodeKind = "image"
	NodeVector    NodeKind = "vector"
	NodeComponent NodeKind = "component"
	NodeInstance  NodeKind = "instance"
	NodeText      NodeKind = "text"
	NodeUnknown   NodeKind = "unknown"
)

// Dimensions is an intrinsic pixel size reported by a measurement capability.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is one design-tree node with the fields the pipeline reads.
type Node struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Kind    NodeKind `json:"kind"`
	Visible bool     `json:"visible"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`

	// ImageURL is set for image nodes; BackgroundImageURL for nodes whose
	// fill references a remote image.
	ImageURL           string `json:"image_url,omitempty"`
	BackgroundImageURL string `json:"background_image_url,omitempty"`

	// ExpensiveFeatures lists costly markup constructs on vector nodes.
	ExpensiveFeatures []string `json:"expensive_features,omitempty"`

	// FontFamilies lists font families referenced by text nodes.
	FontFamilies []string `json:"font_families,omitempty"`
}

// NodeRef is a lightweight node handle.
type NodeRef struct {
	ID string `json:"id"`
}

// PageRef identifies a top-level page. A page that is published maps to a
// route; design-only pages never do.
type PageRef struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	IsDesignPage bool   `json:"is_design_page"`

	// CollectionID is set for collection detail pages (one page rendering
	// many items).
	CollectionID string `json:"collection_id,omitempty"`
}

// TreeAPI reads the design node hierarchy.
type TreeAPI interface {
	// ListTopLevelPages enumerates top-level pages, optionally excluding
	// design-only pages that never publish.
	ListTopLevelPages(ctx context.Context, excludeDesignPages bool) ([]PageRef, error)
	// GetNode returns a node, or nil when the id is unknown.
	GetNode(ctx context.Context, id string) (*Node, error)
	// GetChildren returns direct child references in document order.
	GetChildren(ctx context.Context, id string) ([]NodeRef, error)
	// GetParent returns the containing node, or nil at the top of the tree.
	GetParent(ctx context.Context, id string) (*NodeRef, error)
}

// FieldKind classifies a collection field.
type FieldKind string

const (
	FieldImage FieldKind = "image"
	FieldFile  FieldKind = "file"
	FieldText  FieldKind = "text"
	FieldOther FieldKind = "other"
)

// IsAssetField reports whether values of this field kind reference assets.
func (k FieldKind) IsAssetField() bool {
	return k == FieldImage || k == FieldFile
}

// CollectionRef identifies a content collection.
type CollectionRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// FieldRef identifies a field within a collection.
type FieldRef struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// ItemRef identifies an item within a collection.
type ItemRef struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
}

// FieldValue is the value of an asset-typed field on one item.
type FieldValue struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
	// Width/Height are intrinsic dimensions when the content API knows
	// them, zero otherwise.
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// ContentAPI reads the structured content collections.
type ContentAPI interface {
	ListCollections(ctx context.Context) ([]CollectionRef, error)
	ListFields(ctx context.Context, collectionID string) ([]FieldRef, error)
	ListItems(ctx context.Context, collectionID string) ([]ItemRef, error)
	// GetFieldValue returns the asset value of a field on an item, or nil
	// when the item has no value for it.
	GetFieldValue(ctx context.Context, collectionID, itemID, fieldID string) (*FieldValue, error)
}

// ComponentInstance is a configurable component placement whose control
// values may embed asset references.
type ComponentInstance struct {
	NodeID   string            `json:"node_id"`
	Name     string            `json:"name"`
	Controls map[string]string `json:"controls,omitempty"`
}

// ComponentScanner enumerates component instances for the heuristic
// control-scan collection strategy. Optional capability.
type ComponentScanner interface {
	ListComponentInstances(ctx context.Context) ([]ComponentInstance, error)
}

// PublishingAPI exposes the published-site location.
type PublishingAPI interface {
	// PublishedURL returns the live site URL, or empty when the project has
	// never been published. Absence is not an error.
	PublishedURL(ctx context.Context) (string, error)
}

// Measurer resolves the intrinsic pixel dimensions of a remote asset.
// Implementations may hit the network; a nil result with nil error means the
// asset could not be decoded.
type Measurer interface {
	Measure(ctx context.Context, url string) (*Dimensions, error)
}
