package estimate

// Traffic pairs the calibrated and uncalibrated monthly bandwidth figures.
// Both are always computed together so callers can show the spread.
type Traffic struct {
	// RealisticBytes applies the empirical traffic-level factor modeling
	// caching, lazy loading and CDN effects.
	RealisticBytes int64 `json:"realistic_bytes"`
	// WorstCaseBytes is the raw per-visit payload times visits, uncached.
	WorstCaseBytes int64 `json:"worst_case_bytes"`
}

// Traffic-level calibration factors. These are distinct from the per-asset
// compression ratios: they model how much of the nominal payload a typical
// visit actually transfers.
const (
	realisticFactorOptimized   = 0.50
	realisticFactorUnoptimized = 0.70
)

// MonthlyBandwidth projects monthly transfer volume from a per-visit payload
// estimate and a visit count. Negative inputs are treated as zero.
func MonthlyBandwidth(perVisitBytes, visits int64, mode OptimizationMode) Traffic {
	if perVisitBytes < 0 {
		perVisitBytes = 0
	}
	if visits < 0 {
		visits = 0
	}

	worst := perVisitBytes * visits

	factor := realisticFactorUnoptimized
	if mode == ModeOptimized {
		factor = realisticFactorOptimized
	}

	return Traffic{
		RealisticBytes: int64(float64(worst) * factor),
		WorstCaseBytes: worst,
	}
}
