package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fluxbase-eu/pageweight/internal/analyzer"
	"github.com/fluxbase-eu/pageweight/internal/collect"
	"github.com/fluxbase-eu/pageweight/internal/config"
	"github.com/fluxbase-eu/pageweight/internal/design"
	"github.com/fluxbase-eu/pageweight/internal/estimate"
	"github.com/fluxbase-eu/pageweight/internal/fetch"
)

var (
	analyzeSnapshot      string
	analyzeManual        string
	analyzeMode          string
	analyzeVisits        int64
	analyzeExcluded      []string
	analyzePublishedSite bool
	analyzeMeasure       bool
	analyzeJSON          bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a design snapshot and print the bandwidth report",
	Long: `Analyze loads a design snapshot (exported project JSON), runs the full
collection and estimation pipeline and prints per-device-class totals,
per-page payloads and optimization recommendations.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeSnapshot, "snapshot", "", "path to the design snapshot JSON (required)")
	analyzeCmd.Flags().StringVar(&analyzeManual, "manual", "", "path to a YAML file with manual collection estimates")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "optimized", "compression assumption: optimized or unoptimized")
	analyzeCmd.Flags().Int64Var(&analyzeVisits, "visits", 0, "monthly visits for the traffic projection (0 = skip)")
	analyzeCmd.Flags().StringSliceVar(&analyzeExcluded, "exclude-route", nil, "route IDs to leave out of the analysis")
	analyzeCmd.Flags().BoolVar(&analyzePublishedSite, "published-site", false, "fetch and diff the published site")
	analyzeCmd.Flags().BoolVar(&analyzeMeasure, "measure", false, "download assets to measure intrinsic dimensions")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full report as JSON")
	_ = analyzeCmd.MarkFlagRequired("snapshot")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	mode, err := parseMode(analyzeMode)
	if err != nil {
		return err
	}

	snapshot, err := design.LoadSnapshot(analyzeSnapshot)
	if err != nil {
		return err
	}

	var manual []collect.ManualEstimate
	if analyzeManual != "" {
		manual, err = loadManualEstimates(analyzeManual)
		if err != nil {
			return err
		}
		log.Info().Int("estimates", len(manual)).Str("file", analyzeManual).Msg("Manual estimates loaded")
	}

	client := fetch.NewClient(fetch.Config{
		Timeout:           cfg.Fetch.Timeout,
		UserAgent:         cfg.Fetch.UserAgent,
		RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		MaxBodyBytes:      cfg.Fetch.MaxBodyBytes,
	})

	opts := []analyzer.Option{
		analyzer.WithContentAPI(snapshot),
		analyzer.WithComponentScanner(snapshot),
		analyzer.WithPageConcurrency(cfg.Analyzer.PageConcurrency),
		analyzer.WithCanvasOptions(
			collect.WithBatchSize(cfg.Analyzer.TraversalBatchSize),
			collect.WithMaxDepth(cfg.Analyzer.MaxTraversalDepth),
			collect.WithConcurrency(cfg.Analyzer.TraversalConcurrency),
		),
	}
	if analyzePublishedSite {
		opts = append(opts, analyzer.WithPublisher(snapshot, client))
	}
	if analyzeMeasure {
		fetch.InitVips()
		defer fetch.ShutdownVips()
		opts = append(opts, analyzer.WithMeasurer(client))
	}

	report, err := analyzer.New(snapshot, opts...).Analyze(cmd.Context(), analyzer.Request{
		ExcludedRouteIDs:     analyzeExcluded,
		ManualEstimates:      manual,
		Mode:                 mode,
		MonthlyVisits:        analyzeVisits,
		IncludePublishedSite: analyzePublishedSite,
		MeasureAssets:        analyzeMeasure,
	})
	if err != nil {
		return err
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	renderReport(os.Stdout, report)
	return nil
}

func parseMode(s string) (estimate.OptimizationMode, error) {
	switch s {
	case "optimized", "":
		return estimate.ModeOptimized, nil
	case "unoptimized":
		return estimate.ModeUnoptimized, nil
	default:
		return "", fmt.Errorf("invalid mode %q (valid: optimized, unoptimized)", s)
	}
}

func loadManualEstimates(path string) ([]collect.ManualEstimate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manual estimates: %w", err)
	}
	var entries []collect.ManualEstimate
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse manual estimates: %w", err)
	}
	return entries, nil
}
