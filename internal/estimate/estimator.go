// Package estimate implements the calibrated byte estimator: pure functions
// mapping asset dimensions, format and device class to estimated transfer
// bytes, plus the traffic-level realistic/worst-case calibration model.
package estimate

import (
	"math"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
)

// OptimizationMode selects the compression-ratio table: Optimized assumes the
// publishing pipeline re-encodes assets to modern formats, Unoptimized assumes
// raw source files are served as-is.
type OptimizationMode string

const (
	ModeOptimized   OptimizationMode = "optimized"
	ModeUnoptimized OptimizationMode = "unoptimized"
)

const (
	// DefaultAssetBytes is returned for assets whose dimensions are missing
	// or malformed.
	DefaultAssetBytes int64 = 100 << 10

	// bytesPerPixel is uncompressed RGBA.
	bytesPerPixel = 4

	// Vector heuristic bounds.
	vectorMinBytes     int64 = 1 << 10
	vectorMaxBytes     int64 = 30 << 10
	vectorDefaultBytes int64 = 3 << 10
	vectorAreaDivisor        = 100.0

	// densityThresholdPx is the edge length below which an asset is assumed
	// to be served at 1x and scaled up by the device pixel ratio. Larger
	// assets are assumed already exported at the correct density.
	densityThresholdPx = 400.0
)

// Fixed per-report overheads, amortized for CDN caching.
const (
	OverheadMarkupBytes  int64 = 25 << 10
	OverheadStylesBytes  int64 = 45 << 10
	OverheadRuntimeBytes int64 = 130 << 10

	// FontFamilyBytes is the per-font-family weight (one subsetted family
	// with two or three cuts).
	FontFamilyBytes int64 = 20 << 10
)

// FixedOverheadBytes returns the base markup/style/runtime weight counted
// once per device-class report, independent of asset count.
func FixedOverheadBytes() int64 {
	return OverheadMarkupBytes + OverheadStylesBytes + OverheadRuntimeBytes
}

// FontBytes returns the estimated font payload for a number of families.
func FontBytes(families int) int64 {
	if families <= 0 {
		return 0
	}
	return int64(families) * FontFamilyBytes
}

// optimizedRatios models a publishing pipeline that re-encodes to modern
// formats. Derived from measuring published projects against their source
// assets.
var optimizedRatios = map[analysis.Format]float64{
	analysis.FormatAVIF:    0.06,
	analysis.FormatWebP:    0.07,
	analysis.FormatJPEG:    0.08,
	analysis.FormatPNG:     0.09,
	analysis.FormatGIF:     0.13,
	analysis.FormatUnknown: 0.10,
}

// unoptimizedRatios models raw source files served without re-encoding.
var unoptimizedRatios = map[analysis.Format]float64{
	analysis.FormatAVIF:    0.05,
	analysis.FormatWebP:    0.08,
	analysis.FormatJPEG:    0.15,
	analysis.FormatPNG:     0.40,
	analysis.FormatGIF:     0.35,
	analysis.FormatUnknown: 0.25,
}

// CompressionRatio returns the ratio of transfer bytes to uncompressed RGBA
// bytes for a format under the given mode. Unknown formats use the table's
// fallback entry.
func CompressionRatio(format analysis.Format, mode OptimizationMode) float64 {
	table := optimizedRatios
	if mode == ModeUnoptimized {
		table = unoptimizedRatios
	}
	if r, ok := table[format]; ok {
		return r
	}
	return table[analysis.FormatUnknown]
}

// EstimateBytes estimates the transfer size of a single asset for a device
// class. It is pure and total: malformed dimensions fall back to
// DefaultAssetBytes and the result is always finite and non-negative.
func EstimateBytes(a analysis.Asset, dc analysis.DeviceClass, mode OptimizationMode) int64 {
	switch a.Kind {
	case analysis.KindVector:
		return estimateVector(a)
	case analysis.KindImage, analysis.KindBackgroundImage:
		return estimateRaster(a, dc, mode)
	default:
		return DefaultAssetBytes
	}
}

// estimateVector uses a clamped linear heuristic on the on-canvas display
// area. SVG payload correlates with visual complexity far more than with
// area, so the clamp is tight.
func estimateVector(a analysis.Asset) int64 {
	area := a.Declared.Area()
	if area <= 0 || math.IsNaN(area) || math.IsInf(area, 0) {
		return vectorDefaultBytes
	}
	b := int64(area / vectorAreaDivisor)
	if b < vectorMinBytes {
		return vectorMinBytes
	}
	if b > vectorMaxBytes {
		return vectorMaxBytes
	}
	return b
}

func estimateRaster(a analysis.Asset, dc analysis.DeviceClass, mode OptimizationMode) int64 {
	dims := a.EffectiveDimensions()
	w, h := dims.Width, dims.Height
	if !dims.Valid() || math.IsNaN(w*h) || math.IsInf(w*h, 0) {
		return DefaultAssetBytes
	}

	// Small assets are assumed served at 1x and upscaled for dense
	// displays; large ones are assumed already exported at the right
	// density.
	if w < densityThresholdPx && h < densityThresholdPx {
		ratio := dc.PixelRatio()
		w *= ratio
		h *= ratio
	}

	raw := w * h * bytesPerPixel
	estimated := raw * CompressionRatio(a.Format, mode)
	if math.IsNaN(estimated) || math.IsInf(estimated, 0) || estimated < 0 {
		return DefaultAssetBytes
	}
	return int64(estimated)
}
