package collect

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
)

// ManualEstimate is a user-declared approximation standing in for collection
// assets the detectors cannot see.
type ManualEstimate struct {
	ID             string          `json:"id" yaml:"id"`
	CollectionName string          `json:"collection_name" yaml:"collection_name"`
	ImageCount     int             `json:"image_count" yaml:"image_count"`
	AvgWidth       float64         `json:"avg_width" yaml:"avg_width"`
	AvgHeight      float64         `json:"avg_height" yaml:"avg_height"`
	Format         analysis.Format `json:"format" yaml:"format"`
}

// FromManualEstimates maps manual declarations to synthetic assets. Entries
// whose collection name matches an auto-detected collection are suppressed to
// avoid double counting. detectedNames keys are lowercased.
func FromManualEstimates(entries []ManualEstimate, detectedNames map[string]bool) []analysis.Asset {
	var assets []analysis.Asset
	for _, entry := range entries {
		if detectedNames[strings.ToLower(entry.CollectionName)] {
			log.Info().Str("collection", entry.CollectionName).Msg("Manual estimate suppressed: collection auto-detected")
			continue
		}
		format := entry.Format
		if format == "" {
			format = analysis.FormatUnknown
		}
		for i := 0; i < entry.ImageCount; i++ {
			assets = append(assets, analysis.Asset{
				Identity:         fmt.Sprintf("manual:%s:%d", entry.CollectionName, i),
				Name:             fmt.Sprintf("%s (manual %d/%d)", entry.CollectionName, i+1, entry.ImageCount),
				Kind:             analysis.KindImage,
				Origin:           analysis.OriginManual,
				Declared:         analysis.Dimensions{Width: entry.AvgWidth, Height: entry.AvgHeight},
				Format:           format,
				Visible:          true,
				SourceCollection: entry.CollectionName,
			})
		}
	}
	return assets
}
