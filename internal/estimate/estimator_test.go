package estimate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
)

// =============================================================================
// Raster Estimation Tests
// =============================================================================

func TestEstimateBytes_RasterImage(t *testing.T) {
	t.Run("large PNG with optimization", func(t *testing.T) {
		// 2000x1500 = 12,000,000 raw RGBA bytes x 0.09 = 1,080,000
		a := analysis.Asset{
			Kind:     analysis.KindImage,
			Declared: analysis.Dimensions{Width: 2000, Height: 1500},
			Format:   analysis.FormatPNG,
		}
		got := EstimateBytes(a, analysis.DeviceDesktop, ModeOptimized)
		assert.Equal(t, int64(1_080_000), got)
	})

	t.Run("measured dimensions preferred over declared", func(t *testing.T) {
		a := analysis.Asset{
			Kind:     analysis.KindImage,
			Declared: analysis.Dimensions{Width: 400, Height: 400},
			Measured: &analysis.Dimensions{Width: 800, Height: 600},
			Format:   analysis.FormatJPEG,
		}
		want := int64(800 * 600 * 4 * 0.08)
		assert.Equal(t, want, EstimateBytes(a, analysis.DeviceDesktop, ModeOptimized))
	})

	t.Run("density multiplier only below threshold", func(t *testing.T) {
		small := analysis.Asset{
			Kind:     analysis.KindImage,
			Declared: analysis.Dimensions{Width: 100, Height: 100},
			Format:   analysis.FormatJPEG,
		}
		large := analysis.Asset{
			Kind:     analysis.KindImage,
			Declared: analysis.Dimensions{Width: 400, Height: 400},
			Format:   analysis.FormatJPEG,
		}
		// Mobile is 3x, so the small asset is scaled to 300x300.
		assert.Equal(t, int64(300*300*4*0.08), EstimateBytes(small, analysis.DeviceMobile, ModeOptimized))
		// At exactly the threshold no multiplier applies.
		assert.Equal(t, int64(400*400*4*0.08), EstimateBytes(large, analysis.DeviceMobile, ModeOptimized))
	})

	t.Run("unoptimized table used without optimization", func(t *testing.T) {
		a := analysis.Asset{
			Kind:     analysis.KindImage,
			Declared: analysis.Dimensions{Width: 1000, Height: 1000},
			Format:   analysis.FormatPNG,
		}
		want := int64(1000 * 1000 * 4 * 0.40)
		assert.Equal(t, want, EstimateBytes(a, analysis.DeviceDesktop, ModeUnoptimized))
	})

	t.Run("unknown format falls back", func(t *testing.T) {
		a := analysis.Asset{
			Kind:     analysis.KindImage,
			Declared: analysis.Dimensions{Width: 1000, Height: 1000},
			Format:   analysis.Format("tiff"),
		}
		want := int64(1000 * 1000 * 4 * 0.10)
		assert.Equal(t, want, EstimateBytes(a, analysis.DeviceDesktop, ModeOptimized))
	})
}

// =============================================================================
// Vector Estimation Tests
// =============================================================================

func TestEstimateBytes_Vector(t *testing.T) {
	tests := []struct {
		name     string
		dims     analysis.Dimensions
		expected int64
	}{
		{"small area clamps to 1 KiB", analysis.Dimensions{Width: 200, Height: 200}, 1 << 10},
		{"zero area defaults to 3 KiB", analysis.Dimensions{}, 3 << 10},
		{"mid area divides by 100", analysis.Dimensions{Width: 1000, Height: 500}, 5000},
		{"huge area clamps to 30 KiB", analysis.Dimensions{Width: 4000, Height: 4000}, 30 << 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := analysis.Asset{Kind: analysis.KindVector, Declared: tt.dims}
			assert.Equal(t, tt.expected, EstimateBytes(a, analysis.DeviceDesktop, ModeOptimized))
		})
	}
}

// =============================================================================
// Totality Tests
// =============================================================================

func TestEstimateBytes_Totality(t *testing.T) {
	malformed := []analysis.Dimensions{
		{},
		{Width: -100, Height: 50},
		{Width: math.NaN(), Height: 100},
		{Width: math.Inf(1), Height: 100},
		{Width: 100, Height: math.Inf(-1)},
	}

	for _, kind := range []analysis.AssetKind{analysis.KindImage, analysis.KindVector, analysis.KindBackgroundImage} {
		for _, dims := range malformed {
			for _, mode := range []OptimizationMode{ModeOptimized, ModeUnoptimized} {
				a := analysis.Asset{Kind: kind, Declared: dims, Format: analysis.FormatPNG}
				got := EstimateBytes(a, analysis.DeviceMobile, mode)
				assert.GreaterOrEqual(t, got, int64(0), "kind=%s dims=%+v", kind, dims)
			}
		}
	}
}

func TestEstimateBytes_MalformedFallsBackToDefault(t *testing.T) {
	a := analysis.Asset{
		Kind:     analysis.KindImage,
		Declared: analysis.Dimensions{Width: math.NaN(), Height: math.NaN()},
	}
	assert.Equal(t, DefaultAssetBytes, EstimateBytes(a, analysis.DeviceDesktop, ModeOptimized))
}

// =============================================================================
// Ratio Table Tests
// =============================================================================

func TestCompressionRatio_TablesAreTotal(t *testing.T) {
	formats := []analysis.Format{
		analysis.FormatJPEG, analysis.FormatPNG, analysis.FormatWebP,
		analysis.FormatAVIF, analysis.FormatGIF, analysis.FormatUnknown,
		analysis.Format("bmp"),
	}
	for _, mode := range []OptimizationMode{ModeOptimized, ModeUnoptimized} {
		for _, f := range formats {
			r := CompressionRatio(f, mode)
			require.Greater(t, r, 0.0, "format=%s mode=%s", f, mode)
			require.LessOrEqual(t, r, 0.40, "format=%s mode=%s", f, mode)
		}
	}
}

func TestFixedOverheads(t *testing.T) {
	assert.Equal(t, OverheadMarkupBytes+OverheadStylesBytes+OverheadRuntimeBytes, FixedOverheadBytes())
	assert.Equal(t, int64(0), FontBytes(0))
	assert.Equal(t, int64(0), FontBytes(-3))
	assert.Equal(t, 3*FontFamilyBytes, FontBytes(3))
}
