package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
	"github.com/fluxbase-eu/pageweight/internal/analyzer"
)

// renderReport prints the human-readable report: device-class totals, the
// heaviest pages and the top recommendations.
func renderReport(w io.Writer, report *analyzer.ProjectReport) {
	fmt.Fprintf(w, "Run %s (%s)\n\n", report.RunID, report.Duration.Round(time.Millisecond))

	fmt.Fprintln(w, "Estimated first-load payload per device class:")
	classTable := newTable(w)
	classTable.SetHeader([]string{"Device", "Total", "Images", "Vectors", "Fonts", "Overhead"})
	for _, rep := range report.PerClass {
		classTable.Append([]string{
			string(rep.DeviceClass),
			formatBytes(rep.TotalBytes),
			formatBytes(rep.Breakdown.Images),
			formatBytes(rep.Breakdown.Vectors),
			formatBytes(rep.Breakdown.Fonts),
			formatBytes(rep.Breakdown.FixedOverhead),
		})
	}
	classTable.Render()

	if len(report.PerPage) > 0 {
		fmt.Fprintln(w, "\nPer-page payload (desktop):")
		pageTable := newTable(w)
		pageTable.SetHeader([]string{"Page", "Slug", "Total", "Assets"})
		for _, page := range report.PerPage {
			desktop := page.PerClass[analysis.DeviceDesktop]
			pageTable.Append([]string{
				page.PageName,
				page.PageSlug,
				formatBytes(desktop.TotalBytes),
				fmt.Sprintf("%d", len(desktop.Assets)),
			})
		}
		pageTable.Render()
	}

	if report.CollectionAssetCount > 0 {
		fmt.Fprintf(w, "\nCollection content: %d assets, %s\n",
			report.CollectionAssetCount, formatBytes(report.CollectionAssetBytes))
	}

	if report.Traffic != nil {
		fmt.Fprintf(w, "\nMonthly traffic projection: %s realistic, %s worst case\n",
			formatBytes(report.Traffic.RealisticBytes), formatBytes(report.Traffic.WorstCaseBytes))
	}

	if len(report.DegradedSources) > 0 {
		fmt.Fprintf(w, "\nDegraded sources: %v\n", report.DegradedSources)
	}

	if len(report.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		recTable := newTable(w)
		recTable.SetHeader([]string{"Priority", "Kind", "Asset", "Current", "Savings", "Action"})
		for _, rec := range report.Recommendations {
			recTable.Append([]string{
				string(rec.Priority),
				string(rec.Kind),
				rec.AssetName,
				formatBytes(rec.CurrentBytes),
				formatBytes(rec.PotentialSavings),
				rec.Action,
			})
		}
		recTable.Render()
	}
}

func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	return table
}

func formatBytes(n int64) string {
	const (
		kib = 1 << 10
		mib = 1 << 20
		gib = 1 << 30
	)
	switch {
	case n >= gib:
		return fmt.Sprintf("%.2f GB", float64(n)/gib)
	case n >= mib:
		return fmt.Sprintf("%.2f MB", float64(n)/mib)
	case n >= kib:
		return fmt.Sprintf("%.1f KB", float64(n)/kib)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
