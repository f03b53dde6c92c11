// Package recommend turns device-class reports into prioritized, typed
// optimization suggestions with a deterministic total ordering.
package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
)

// Kind is the recommendation category.
type Kind string

const (
	KindOversized      Kind = "oversized"
	KindFormatMismatch Kind = "format_mismatch"
	KindCompressible   Kind = "compressible"
)

// Priority orders recommendations within equal savings.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityHigh:   0,
	PriorityMedium: 1,
	PriorityLow:    2,
}

// RouteRef names one route that uses the flagged asset.
type RouteRef struct {
	RouteID   string `json:"route_id"`
	RouteName string `json:"route_name"`
}

// Recommendation is one optimization suggestion. ID is stable across runs:
// it is derived from the kind and asset identity only.
type Recommendation struct {
	ID               string     `json:"id"`
	Kind             Kind       `json:"kind"`
	Priority         Priority   `json:"priority"`
	AssetIdentity    string     `json:"asset_identity"`
	AssetName        string     `json:"asset_name"`
	CurrentBytes     int64      `json:"current_bytes"`
	PotentialSavings int64      `json:"potential_savings"`
	Rationale        string     `json:"rationale"`
	Action           string     `json:"action"`
	RouteUsage       []RouteRef `json:"route_usage,omitempty"`
}

// Threshold constants, in bytes unless noted.
const (
	oversizedHighBytes    int64 = 500 << 10
	oversizedHighTarget   int64 = 300 << 10
	oversizedMediumBytes  int64 = 200 << 10
	oversizedMediumTarget int64 = 150 << 10

	pngMismatchMinBytes  int64 = 100 << 10
	pngHighSavingsBytes  int64 = 100 << 10
	jpegMismatchMinBytes int64 = 200 << 10

	compressibleMinBytes int64 = 150 << 10
	compressibleMaxBytes int64 = 200 << 10

	vectorIgnoreBelowBytes int64 = 10 << 10
	vectorLargeBytes       int64 = 50 << 10

	// retinaCapPx caps suggested export width at 2x of a 800px display
	// slot; anything wider rarely improves perceived quality.
	retinaCapPx = 1600

	// groupedVectorThreshold is the project-wide count above which
	// individual large-vector suggestions collapse into one grouped entry.
	groupedVectorThreshold = 5
)

// Savings ratios.
const (
	pngSavingsRatio     = 0.60
	jpegSavingsRatio    = 0.30
	genericSavingsRatio = 0.25
	vectorSavingsRatio  = 0.20
)

// PageInfo attributes generated recommendations to a page's route.
type PageInfo struct {
	ID   string
	Name string
}

// ID derives the stable recommendation identifier for a kind/identity pair.
func ID(kind Kind, assetIdentity string) string {
	sum := sha256.Sum256([]byte(assetIdentity))
	return fmt.Sprintf("%s-%s", kind, hex.EncodeToString(sum[:])[:12])
}

// Generate evaluates the threshold rules over a device-class report. It is
// pure given its inputs and returns recommendations in deterministic order.
// An asset yields at most one recommendation per kind.
func Generate(report analysis.DeviceClassReport, page *PageInfo) []Recommendation {
	var recs []Recommendation
	var usage []RouteRef
	if page != nil {
		usage = []RouteRef{{RouteID: page.ID, RouteName: page.Name}}
	}

	for _, a := range report.Assets {
		if !a.Visible {
			continue
		}
		if a.Kind == analysis.KindVector {
			if rec := vectorRecommendation(a); rec != nil {
				rec.RouteUsage = usage
				recs = append(recs, *rec)
			}
			continue
		}

		flagged := false
		if rec := oversized(a); rec != nil {
			rec.RouteUsage = usage
			recs = append(recs, *rec)
			flagged = true
		}
		if rec := formatMismatch(a); rec != nil {
			rec.RouteUsage = usage
			recs = append(recs, *rec)
			flagged = true
		}
		if !flagged {
			if rec := compressible(a); rec != nil {
				rec.RouteUsage = usage
				recs = append(recs, *rec)
			}
		}
	}

	Sort(recs)
	return recs
}

func oversized(a analysis.Asset) *Recommendation {
	b := a.EstimatedBytes
	if b <= oversizedMediumBytes {
		return nil
	}

	priority := PriorityMedium
	threshold := oversizedMediumBytes
	target := oversizedMediumTarget
	if b > oversizedHighBytes {
		priority = PriorityHigh
		threshold = oversizedHighBytes
		target = oversizedHighTarget
	}

	width := a.EffectiveDimensions().Width
	suggestedWidth := int(math.Min(math.Ceil(width*2), retinaCapPx))

	return &Recommendation{
		ID:               ID(KindOversized, a.Identity),
		Kind:             KindOversized,
		Priority:         priority,
		AssetIdentity:    a.Identity,
		AssetName:        a.Name,
		CurrentBytes:     b,
		PotentialSavings: clampSavings(b - target),
		Rationale:        fmt.Sprintf("%q weighs %d KB, crossing the %d KB mark for a single image", a.Name, b>>10, threshold>>10),
		Action:           fmt.Sprintf("Resize to at most %dpx wide and re-export targeting %d KB", suggestedWidth, target>>10),
	}
}

func formatMismatch(a analysis.Asset) *Recommendation {
	if a.Format.IsModern() {
		return nil
	}
	b := a.EstimatedBytes

	switch a.Format {
	case analysis.FormatPNG:
		if b <= pngMismatchMinBytes {
			return nil
		}
		savings := clampSavings(int64(float64(b) * pngSavingsRatio))
		priority := PriorityMedium
		if savings > pngHighSavingsBytes {
			priority = PriorityHigh
		}
		return &Recommendation{
			ID:               ID(KindFormatMismatch, a.Identity),
			Kind:             KindFormatMismatch,
			Priority:         priority,
			AssetIdentity:    a.Identity,
			AssetName:        a.Name,
			CurrentBytes:     b,
			PotentialSavings: savings,
			Rationale:        fmt.Sprintf("%q is a %d KB PNG; photographic content compresses far better as WebP or AVIF", a.Name, b>>10),
			Action:           "Convert to WebP or AVIF",
		}
	case analysis.FormatJPEG:
		if b <= jpegMismatchMinBytes {
			return nil
		}
		return &Recommendation{
			ID:               ID(KindFormatMismatch, a.Identity),
			Kind:             KindFormatMismatch,
			Priority:         PriorityLow,
			AssetIdentity:    a.Identity,
			AssetName:        a.Name,
			CurrentBytes:     b,
			PotentialSavings: clampSavings(int64(float64(b) * jpegSavingsRatio)),
			Rationale:        fmt.Sprintf("%q is a %d KB JPEG; WebP typically shaves about a third off", a.Name, b>>10),
			Action:           "Convert to WebP",
		}
	default:
		return nil
	}
}

func compressible(a analysis.Asset) *Recommendation {
	b := a.EstimatedBytes
	if b < compressibleMinBytes || b > compressibleMaxBytes {
		return nil
	}
	return &Recommendation{
		ID:               ID(KindCompressible, a.Identity),
		Kind:             KindCompressible,
		Priority:         PriorityLow,
		AssetIdentity:    a.Identity,
		AssetName:        a.Name,
		CurrentBytes:     b,
		PotentialSavings: clampSavings(int64(float64(b) * genericSavingsRatio)),
		Rationale:        fmt.Sprintf("%q sits in the %d-%d KB band where lossless recompression usually pays off", a.Name, compressibleMinBytes>>10, compressibleMaxBytes>>10),
		Action:           "Run through an image compressor at quality 80",
	}
}

func vectorRecommendation(a analysis.Asset) *Recommendation {
	b := a.EstimatedBytes
	if b < vectorIgnoreBelowBytes {
		return nil
	}
	large := b >= vectorLargeBytes
	expensive := len(a.ExpensiveFeatures) > 0
	if !large && !expensive {
		return nil
	}

	priority := PriorityLow
	switch {
	case large && expensive:
		priority = PriorityHigh
	case large:
		priority = PriorityMedium
	}

	rationale := fmt.Sprintf("%q is a %d KB vector", a.Name, b>>10)
	if expensive {
		rationale = fmt.Sprintf("%s using expensive markup (%v)", rationale, a.ExpensiveFeatures)
	}

	return &Recommendation{
		ID:               ID(KindCompressible, a.Identity),
		Kind:             KindCompressible,
		Priority:         priority,
		AssetIdentity:    a.Identity,
		AssetName:        a.Name,
		CurrentBytes:     b,
		PotentialSavings: clampSavings(int64(float64(b) * vectorSavingsRatio)),
		Rationale:        rationale,
		Action:           "Simplify paths, flatten effects and minify the SVG",
	}
}

// clampSavings enforces the PotentialSavings >= 1 invariant.
func clampSavings(v int64) int64 {
	if v < 1 {
		return 1
	}
	return v
}

// Merge deduplicates recommendations from multiple pages (and the project
// pass) by stable ID, keeping the variant with the larger PotentialSavings.
// On equal savings the page-attributed variant (non-empty RouteUsage) wins
// over a project-level one, then the variant seen first. RouteUsage lists are
// unioned across all variants of an asset regardless of which variant wins.
func Merge(groups ...[]Recommendation) []Recommendation {
	winners := make(map[string]Recommendation)
	usage := make(map[string]map[string]RouteRef)

	for _, group := range groups {
		for _, rec := range group {
			if usage[rec.ID] == nil {
				usage[rec.ID] = make(map[string]RouteRef)
			}
			for _, ref := range rec.RouteUsage {
				usage[rec.ID][ref.RouteID] = ref
			}

			current, ok := winners[rec.ID]
			if !ok || prefer(rec, current) {
				winners[rec.ID] = rec
			}
		}
	}

	merged := make([]Recommendation, 0, len(winners))
	for id, rec := range winners {
		refs := make([]RouteRef, 0, len(usage[id]))
		for _, ref := range usage[id] {
			refs = append(refs, ref)
		}
		sort.Slice(refs, func(i, j int) bool { return refs[i].RouteID < refs[j].RouteID })
		rec.RouteUsage = refs
		merged = append(merged, rec)
	}

	Sort(merged)
	return merged
}

// prefer reports whether candidate should replace current in a merge.
func prefer(candidate, current Recommendation) bool {
	if candidate.PotentialSavings != current.PotentialSavings {
		return candidate.PotentialSavings > current.PotentialSavings
	}
	return len(candidate.RouteUsage) > 0 && len(current.RouteUsage) == 0
}

// GroupLargeVectors collapses individual large-vector suggestions into one
// grouped entry when the project holds more than groupedVectorThreshold of
// them. Applied at the project level only; page-level callers keep the
// individual entries.
func GroupLargeVectors(recs []Recommendation, assets []analysis.Asset) []Recommendation {
	var large []analysis.Asset
	largeIdentities := make(map[string]bool)
	var totalBytes int64
	for _, a := range assets {
		if a.Kind == analysis.KindVector && a.Visible && a.EstimatedBytes >= vectorLargeBytes {
			large = append(large, a)
			largeIdentities[a.Identity] = true
			totalBytes += a.EstimatedBytes
		}
	}
	if len(large) <= groupedVectorThreshold {
		return recs
	}

	kept := make([]Recommendation, 0, len(recs))
	for _, rec := range recs {
		if rec.Kind == KindCompressible && largeIdentities[rec.AssetIdentity] {
			continue
		}
		kept = append(kept, rec)
	}

	grouped := Recommendation{
		ID:               ID(KindCompressible, "project:large-vectors"),
		Kind:             KindCompressible,
		Priority:         PriorityMedium,
		AssetIdentity:    "project:large-vectors",
		AssetName:        fmt.Sprintf("%d large vectors", len(large)),
		CurrentBytes:     totalBytes,
		PotentialSavings: clampSavings(int64(float64(totalBytes) * vectorSavingsRatio)),
		Rationale:        fmt.Sprintf("The project contains %d vectors of 50 KB or more totalling %d KB", len(large), totalBytes>>10),
		Action:           "Audit heavy vectors together; most shrink substantially after flattening and minification",
	}
	kept = append(kept, grouped)

	Sort(kept)
	return kept
}

// Sort orders recommendations by potential savings descending, then priority
// (high before low), then asset name, then identity. The ordering is total
// and reproducible for identical inputs.
func Sort(recs []Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.PotentialSavings != b.PotentialSavings {
			return a.PotentialSavings > b.PotentialSavings
		}
		if priorityRank[a.Priority] != priorityRank[b.Priority] {
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		}
		if a.AssetName != b.AssetName {
			return a.AssetName < b.AssetName
		}
		return a.AssetIdentity < b.AssetIdentity
	})
}
