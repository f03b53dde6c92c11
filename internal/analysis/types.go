// Package analysis defines the asset data model shared by the collection
// pipeline: assets, device classes, formats and per-device-class reports.
package analysis

// DeviceClass identifies a responsive variant of the design.
type DeviceClass string

const (
	DeviceDesktop DeviceClass = "desktop"
	DeviceTablet  DeviceClass = "tablet"
	DeviceMobile  DeviceClass = "mobile"
)

// DeviceClasses returns all device classes in canonical order. The order is
// load-bearing for canonical deduplication: desktop canvas assets are inserted
// first, so later classes and sources overwrite them on identity collisions.
func DeviceClasses() []DeviceClass {
	return []DeviceClass{DeviceDesktop, DeviceTablet, DeviceMobile}
}

// PixelRatio returns the device pixel density multiplier for the class.
func (dc DeviceClass) PixelRatio() float64 {
	switch dc {
	case DeviceMobile:
		return 3
	case DeviceTablet:
		return 2
	case DeviceDesktop:
		return 2
	default:
		return 1
	}
}

// AssetKind is the closed set of asset categories the pipeline understands.
type AssetKind string

const (
	KindImage           AssetKind = "image"
	KindVector          AssetKind = "vector"
	KindBackgroundImage AssetKind = "background_image"
)

// IsRaster reports whether the kind is estimated as a raster image.
func (k AssetKind) IsRaster() bool {
	return k == KindImage || k == KindBackgroundImage
}

// AssetOrigin identifies which collector discovered an asset.
type AssetOrigin string

const (
	OriginCanvas     AssetOrigin = "canvas"
	OriginCollection AssetOrigin = "collection"
	OriginManual     AssetOrigin = "manual"
)

// Format is the image format used to select a compression ratio.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatAVIF    Format = "avif"
	FormatGIF     Format = "gif"
	FormatSVG     Format = "svg"
	FormatUnknown Format = "unknown"
)

// IsModern reports whether the format is already a modern delivery format
// and therefore exempt from format-mismatch recommendations.
func (f Format) IsModern() bool {
	return f == FormatWebP || f == FormatAVIF
}

// Dimensions is a width/height pair in CSS pixels.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether both dimensions are positive and finite enough to
// estimate from.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// Area returns width times height, or zero for invalid dimensions.
func (d Dimensions) Area() float64 {
	if !d.Valid() {
		return 0
	}
	return d.Width * d.Height
}

// RouteAttribution links an asset to the published route that owns it.
type RouteAttribution struct {
	RouteID   string `json:"route_id"`
	RouteName string `json:"route_name"`
}

// Asset is one discovered network payload contributor.
//
// Identity is the asset URL when one is known, otherwise a synthetic node
// identifier. Two assets with the same identity within one device class are
// the same logical asset.
type Asset struct {
	Identity string      `json:"identity"`
	Name     string      `json:"name"`
	Kind     AssetKind   `json:"kind"`
	Origin   AssetOrigin `json:"origin"`

	// Declared are the layout dimensions from the design surface; Measured
	// are intrinsic file dimensions when a measurement capability produced
	// them. Estimation prefers Measured.
	Declared Dimensions  `json:"declared_dimensions"`
	Measured *Dimensions `json:"measured_dimensions,omitempty"`

	Format         Format `json:"format,omitempty"`
	EstimatedBytes int64  `json:"estimated_bytes"`
	Visible        bool   `json:"visible"`

	// URL is the remote asset location, empty for synthetic identities.
	URL string `json:"url,omitempty"`
	// NodeID is the originating design-tree node, used for route resolution.
	// Empty for collection and manual origin assets.
	NodeID string `json:"node_id,omitempty"`

	SourceCollection string `json:"source_collection,omitempty"`
	SourceItemSlug   string `json:"source_item_slug,omitempty"`

	// ExpensiveFeatures lists costly vector markup constructs (filters,
	// masks, clip paths, embedded raster, blur/shadow operators).
	ExpensiveFeatures []string `json:"expensive_features,omitempty"`

	Route *RouteAttribution `json:"route,omitempty"`
}

// EffectiveDimensions returns measured dimensions when present, else declared.
func (a Asset) EffectiveDimensions() Dimensions {
	if a.Measured != nil && a.Measured.Valid() {
		return *a.Measured
	}
	return a.Declared
}

// Breakdown splits a device-class total into payload categories.
type Breakdown struct {
	Images        int64 `json:"images"`
	Vectors       int64 `json:"vectors"`
	FixedOverhead int64 `json:"fixed_overhead"`
	Fonts         int64 `json:"fonts"`
}

// Sum returns the breakdown total.
func (b Breakdown) Sum() int64 {
	return b.Images + b.Vectors + b.FixedOverhead + b.Fonts
}

// DeviceClassReport is the estimated payload for one device class.
// TotalBytes always equals Breakdown.Sum().
type DeviceClassReport struct {
	DeviceClass DeviceClass `json:"device_class"`
	TotalBytes  int64       `json:"total_bytes"`
	Breakdown   Breakdown   `json:"breakdown"`
	Assets      []Asset     `json:"assets"`
}
