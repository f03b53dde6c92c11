package recommend

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
)

func assetWithBytes(identity, name string, kind analysis.AssetKind, format analysis.Format, bytes int64) analysis.Asset {
	return analysis.Asset{
		Identity:       identity,
		Name:           name,
		Kind:           kind,
		Format:         format,
		EstimatedBytes: bytes,
		Visible:        true,
		Declared:       analysis.Dimensions{Width: 1000, Height: 800},
	}
}

func reportWith(assets ...analysis.Asset) analysis.DeviceClassReport {
	return analysis.DeviceClassReport{DeviceClass: analysis.DeviceDesktop, Assets: assets}
}

// =============================================================================
// Rule Tests
// =============================================================================

func TestGenerate_Oversized(t *testing.T) {
	tests := []struct {
		name          string
		bytes         int64
		wantPriority  Priority
		wantSavings   int64
		wantThreshold string
	}{
		{"over 500 KiB is high", 1_080_000, PriorityHigh, 1_080_000 - 300<<10, "500 KB"},
		{"between 200 and 500 KiB is medium", 300 << 10, PriorityMedium, 150 << 10, "200 KB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := assetWithBytes("u", "Hero", analysis.KindImage, analysis.FormatWebP, tt.bytes)
			recs := Generate(reportWith(a), nil)

			require.Len(t, recs, 1)
			assert.Equal(t, KindOversized, recs[0].Kind)
			assert.Equal(t, tt.wantPriority, recs[0].Priority)
			assert.Equal(t, tt.wantSavings, recs[0].PotentialSavings)
			// The rationale names the threshold the asset crossed.
			assert.Contains(t, recs[0].Rationale, tt.wantThreshold)
		})
	}

	t.Run("under 200 KiB not flagged", func(t *testing.T) {
		a := assetWithBytes("u", "Small", analysis.KindImage, analysis.FormatWebP, 100<<10)
		assert.Empty(t, Generate(reportWith(a), nil))
	})
}

func TestGenerate_FormatMismatch(t *testing.T) {
	t.Run("large PNG flagged with 60 percent savings", func(t *testing.T) {
		a := assetWithBytes("u", "Diag", analysis.KindImage, analysis.FormatPNG, 150<<10)
		recs := Generate(reportWith(a), nil)

		require.Len(t, recs, 1)
		assert.Equal(t, KindFormatMismatch, recs[0].Kind)
		assert.Equal(t, int64(float64(150<<10)*0.60), recs[0].PotentialSavings)
		// 90 KiB savings is below the 100 KiB high bar.
		assert.Equal(t, PriorityMedium, recs[0].Priority)
	})

	t.Run("PNG with large savings is high priority", func(t *testing.T) {
		a := assetWithBytes("u", "Shot", analysis.KindImage, analysis.FormatPNG, 190<<10)
		recs := Generate(reportWith(a), nil)

		require.Len(t, recs, 1)
		require.Equal(t, KindFormatMismatch, recs[0].Kind)
		assert.Equal(t, PriorityHigh, recs[0].Priority)
	})

	t.Run("large JPEG flagged low with 30 percent savings", func(t *testing.T) {
		a := assetWithBytes("u", "Photo", analysis.KindImage, analysis.FormatJPEG, 250<<10)
		recs := Generate(reportWith(a), nil)

		// Over 200 KiB also triggers Oversized(Medium).
		require.Len(t, recs, 2)
		var mismatch *Recommendation
		for i := range recs {
			if recs[i].Kind == KindFormatMismatch {
				mismatch = &recs[i]
			}
		}
		require.NotNil(t, mismatch)
		assert.Equal(t, PriorityLow, mismatch.Priority)
		assert.Equal(t, int64(float64(250<<10)*0.30), mismatch.PotentialSavings)
	})

	t.Run("modern formats exempt", func(t *testing.T) {
		for _, f := range []analysis.Format{analysis.FormatWebP, analysis.FormatAVIF} {
			a := assetWithBytes("u", "Modern", analysis.KindImage, f, 180<<10)
			recs := Generate(reportWith(a), nil)
			for _, rec := range recs {
				assert.NotEqual(t, KindFormatMismatch, rec.Kind, "format %s", f)
			}
		}
	})
}

func TestGenerate_Compressible(t *testing.T) {
	t.Run("150-200 KiB band gets generic 25 percent", func(t *testing.T) {
		a := assetWithBytes("u", "Mid", analysis.KindImage, analysis.FormatWebP, 180<<10)
		recs := Generate(reportWith(a), nil)

		require.Len(t, recs, 1)
		assert.Equal(t, KindCompressible, recs[0].Kind)
		assert.Equal(t, int64(float64(180<<10)*0.25), recs[0].PotentialSavings)
	})

	t.Run("suppressed when already flagged", func(t *testing.T) {
		// A 180 KiB PNG hits FormatMismatch, so Compressible stays quiet.
		a := assetWithBytes("u", "Diag", analysis.KindImage, analysis.FormatPNG, 180<<10)
		recs := Generate(reportWith(a), nil)

		require.Len(t, recs, 1)
		assert.Equal(t, KindFormatMismatch, recs[0].Kind)
	})
}

func TestGenerate_Vectors(t *testing.T) {
	t.Run("small vectors ignored entirely", func(t *testing.T) {
		a := assetWithBytes("u", "Icon", analysis.KindVector, analysis.FormatSVG, 1<<10)
		assert.Empty(t, Generate(reportWith(a), nil))
	})

	t.Run("large vector flagged medium", func(t *testing.T) {
		a := assetWithBytes("u", "Illustration", analysis.KindVector, analysis.FormatSVG, 60<<10)
		recs := Generate(reportWith(a), nil)

		require.Len(t, recs, 1)
		assert.Equal(t, KindCompressible, recs[0].Kind)
		assert.Equal(t, PriorityMedium, recs[0].Priority)
		assert.Equal(t, int64(float64(60<<10)*0.20), recs[0].PotentialSavings)
	})

	t.Run("expensive features flag mid-size vectors", func(t *testing.T) {
		a := assetWithBytes("u", "Blob", analysis.KindVector, analysis.FormatSVG, 20<<10)
		a.ExpensiveFeatures = []string{"filter", "mask"}
		recs := Generate(reportWith(a), nil)

		require.Len(t, recs, 1)
		assert.Equal(t, PriorityLow, recs[0].Priority)
	})

	t.Run("large plus expensive is high", func(t *testing.T) {
		a := assetWithBytes("u", "Heavy", analysis.KindVector, analysis.FormatSVG, 80<<10)
		a.ExpensiveFeatures = []string{"embedded-raster"}
		recs := Generate(reportWith(a), nil)

		require.Len(t, recs, 1)
		assert.Equal(t, PriorityHigh, recs[0].Priority)
	})
}

// =============================================================================
// Grouping Tests
// =============================================================================

func TestGroupLargeVectors(t *testing.T) {
	var assets []analysis.Asset
	for i := 0; i < 6; i++ {
		assets = append(assets, assetWithBytes(
			fmt.Sprintf("vec-%d", i), fmt.Sprintf("Vector %d", i),
			analysis.KindVector, analysis.FormatSVG, 60<<10))
	}
	report := reportWith(assets...)
	individual := Generate(report, nil)
	require.Len(t, individual, 6)

	grouped := GroupLargeVectors(individual, assets)

	require.Len(t, grouped, 1)
	assert.Equal(t, "project:large-vectors", grouped[0].AssetIdentity)
	// 20% of 6 x 60 KiB = 72 KiB.
	assert.Equal(t, int64(float64(6*60<<10)*0.20), grouped[0].PotentialSavings)
}

func TestGroupLargeVectors_BelowThresholdKeepsIndividuals(t *testing.T) {
	var assets []analysis.Asset
	for i := 0; i < 5; i++ {
		assets = append(assets, assetWithBytes(
			fmt.Sprintf("vec-%d", i), fmt.Sprintf("Vector %d", i),
			analysis.KindVector, analysis.FormatSVG, 60<<10))
	}
	individual := Generate(reportWith(assets...), nil)
	assert.Equal(t, individual, GroupLargeVectors(individual, assets))
}

// =============================================================================
// Merge Tests
// =============================================================================

func TestMerge(t *testing.T) {
	homeAsset := assetWithBytes("https://cdn.example.com/a.png", "Shared", analysis.KindImage, analysis.FormatPNG, 150<<10)
	home := Generate(reportWith(homeAsset), &PageInfo{ID: "route-home", Name: "Home"})

	aboutAsset := homeAsset
	aboutAsset.EstimatedBytes = 180 << 10
	about := Generate(reportWith(aboutAsset), &PageInfo{ID: "route-about", Name: "About"})

	merged := Merge(home, about)

	require.Len(t, merged, 1)
	// The larger-savings variant wins.
	assert.Equal(t, int64(float64(180<<10)*0.60), merged[0].PotentialSavings)
	// Route usage is unioned across pages.
	require.Len(t, merged[0].RouteUsage, 2)
	assert.Equal(t, "route-about", merged[0].RouteUsage[0].RouteID)
	assert.Equal(t, "route-home", merged[0].RouteUsage[1].RouteID)
}

func TestMerge_TiePrefersPageAttributed(t *testing.T) {
	a := assetWithBytes("u", "Tie", analysis.KindImage, analysis.FormatPNG, 150<<10)
	project := Generate(reportWith(a), nil)
	page := Generate(reportWith(a), &PageInfo{ID: "route-1", Name: "Page"})

	merged := Merge(project, page)
	require.Len(t, merged, 1)
	require.Len(t, merged[0].RouteUsage, 1)
	assert.Equal(t, "route-1", merged[0].RouteUsage[0].RouteID)
}

// =============================================================================
// Determinism Tests
// =============================================================================

func TestGenerate_Deterministic(t *testing.T) {
	report := reportWith(
		assetWithBytes("a", "Alpha", analysis.KindImage, analysis.FormatPNG, 400<<10),
		assetWithBytes("b", "Beta", analysis.KindImage, analysis.FormatJPEG, 600<<10),
		assetWithBytes("c", "Beta", analysis.KindImage, analysis.FormatWebP, 600<<10),
		assetWithBytes("d", "Delta", analysis.KindVector, analysis.FormatSVG, 70<<10),
	)

	first := Generate(report, nil)
	second := Generate(report, nil)
	assert.Equal(t, first, second)
}

func TestSort_TotalOrder(t *testing.T) {
	recs := []Recommendation{
		{PotentialSavings: 10, Priority: PriorityLow, AssetName: "b", AssetIdentity: "2"},
		{PotentialSavings: 10, Priority: PriorityHigh, AssetName: "b", AssetIdentity: "3"},
		{PotentialSavings: 20, Priority: PriorityLow, AssetName: "a", AssetIdentity: "1"},
		{PotentialSavings: 10, Priority: PriorityHigh, AssetName: "a", AssetIdentity: "5"},
		{PotentialSavings: 10, Priority: PriorityHigh, AssetName: "a", AssetIdentity: "4"},
	}

	Sort(recs)

	assert.Equal(t, int64(20), recs[0].PotentialSavings)
	assert.Equal(t, "4", recs[1].AssetIdentity)
	assert.Equal(t, "5", recs[2].AssetIdentity)
	assert.Equal(t, "3", recs[3].AssetIdentity)
	assert.Equal(t, PriorityLow, recs[4].Priority)
}

func TestID_Stable(t *testing.T) {
	assert.Equal(t, ID(KindOversized, "https://x/y.png"), ID(KindOversized, "https://x/y.png"))
	assert.NotEqual(t, ID(KindOversized, "https://x/y.png"), ID(KindCompressible, "https://x/y.png"))
	assert.NotEqual(t, ID(KindOversized, "a"), ID(KindOversized, "b"))
}

func TestSavingsAlwaysPositive(t *testing.T) {
	// 200 KiB + 1 oversized(medium) leaves savings just above target.
	a := assetWithBytes("u", "Edge", analysis.KindImage, analysis.FormatWebP, 200<<10+1)
	recs := Generate(reportWith(a), nil)
	require.Len(t, recs, 1)
	assert.GreaterOrEqual(t, recs[0].PotentialSavings, int64(1))
}
