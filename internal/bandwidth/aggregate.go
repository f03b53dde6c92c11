// Package bandwidth folds an asset set into a per-device-class payload
// report: per-asset estimation, category totals and fixed overheads.
package bandwidth

import (
	"github.com/fluxbase-eu/pageweight/internal/analysis"
	"github.com/fluxbase-eu/pageweight/internal/estimate"
)

// Options controls aggregation.
type Options struct {
	Mode estimate.OptimizationMode
	// FontFamilies is the number of distinct font families the report
	// charges for, counted once per report regardless of asset count.
	FontFamilies int
	// SkipFixedOverhead omits the base markup/style/runtime constants.
	// Used for page-scoped reports that are later combined.
	SkipFixedOverhead bool
}

// Aggregate builds a DeviceClassReport for one device class. Invisible
// assets are skipped. The returned report always satisfies
// TotalBytes == Breakdown.Sum().
func Aggregate(assets []analysis.Asset, dc analysis.DeviceClass, opts Options) analysis.DeviceClassReport {
	report := analysis.DeviceClassReport{
		DeviceClass: dc,
		Assets:      make([]analysis.Asset, 0, len(assets)),
	}

	for _, a := range assets {
		if !a.Visible {
			continue
		}
		a.EstimatedBytes = estimate.EstimateBytes(a, dc, opts.Mode)
		if a.Kind == analysis.KindVector {
			report.Breakdown.Vectors += a.EstimatedBytes
		} else {
			report.Breakdown.Images += a.EstimatedBytes
		}
		report.Assets = append(report.Assets, a)
	}

	if !opts.SkipFixedOverhead {
		report.Breakdown.FixedOverhead = estimate.FixedOverheadBytes()
	}
	report.Breakdown.Fonts = estimate.FontBytes(opts.FontFamilies)

	report.TotalBytes = report.Breakdown.Sum()
	return report
}
