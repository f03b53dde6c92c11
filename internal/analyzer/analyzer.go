// Package analyzer orchestrates a full project analysis: it runs the
// collectors, unifies their output, aggregates per-device-class payloads,
// attributes assets to routes and generates recommendations.
package analyzer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fluxbase-eu/pageweight/internal/analysis"
	"github.com/fluxbase-eu/pageweight/internal/apperr"
	"github.com/fluxbase-eu/pageweight/internal/bandwidth"
	"github.com/fluxbase-eu/pageweight/internal/collect"
	"github.com/fluxbase-eu/pageweight/internal/design"
	"github.com/fluxbase-eu/pageweight/internal/estimate"
	"github.com/fluxbase-eu/pageweight/internal/fetch"
	"github.com/fluxbase-eu/pageweight/internal/observability"
	"github.com/fluxbase-eu/pageweight/internal/recommend"
	"github.com/fluxbase-eu/pageweight/internal/routes"
)

const defaultPageConcurrency = 4

// Request parameterizes one analysis run.
type Request struct {
	// ExcludedRouteIDs lists top-level pages to leave out of traversal
	// and totals.
	ExcludedRouteIDs []string `json:"excluded_route_ids,omitempty"`
	// ManualEstimates declare collection content the collectors cannot see.
	ManualEstimates []collect.ManualEstimate `json:"manual_estimates,omitempty"`
	// Mode selects the compression ratio table.
	Mode estimate.OptimizationMode `json:"mode,omitempty"`
	// MonthlyVisits, when positive, adds a traffic projection to the report.
	MonthlyVisits int64 `json:"monthly_visits,omitempty"`
	// IncludePublishedSite enables the published-site diff strategy, which
	// fetches and parses the live site.
	IncludePublishedSite bool `json:"include_published_site,omitempty"`
	// MeasureAssets enables downloading collection assets with unknown
	// dimensions to measure them.
	MeasureAssets bool `json:"measure_assets,omitempty"`
}

// PageReport is the payload estimate scoped to one top-level page. Page
// reports include the fixed overhead so each page stands alone as a
// first-load estimate; font bytes are charged at project scope only.
type PageReport struct {
	PageID          string                                              `json:"page_id"`
	PageName        string                                              `json:"page_name"`
	PageSlug        string                                              `json:"page_slug"`
	PerClass        map[analysis.DeviceClass]analysis.DeviceClassReport `json:"per_class"`
	Recommendations []recommend.Recommendation                          `json:"recommendations"`
}

// ProjectReport is the full outcome of one analysis run.
type ProjectReport struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	PerClass []analysis.DeviceClassReport `json:"per_class"`
	PerPage  []PageReport                 `json:"per_page"`

	Recommendations []recommend.Recommendation `json:"recommendations"`

	// CollectionAssetCount and CollectionAssetBytes summarize the
	// collection-origin share of the canonical asset set.
	CollectionAssetCount int   `json:"collection_asset_count"`
	CollectionAssetBytes int64 `json:"collection_asset_bytes"`
	HasManualEstimates   bool  `json:"has_manual_estimates"`

	// DegradedSources names collectors that failed and were skipped.
	DegradedSources []string `json:"degraded_sources,omitempty"`

	Traffic *estimate.Traffic `json:"traffic,omitempty"`

	Duration time.Duration `json:"duration"`
}

// session holds the state scoped to a single analysis run. Starting a new
// run replaces the previous session wholesale, so stale route caches can
// never leak across runs.
type session struct {
	id     string
	routes *routes.Resolver
}

// Analyzer runs project analyses. All capabilities except the design tree
// are optional; missing ones degrade the relevant collector strategies.
type Analyzer struct {
	tree      design.TreeAPI
	content   design.ContentAPI
	scanner   design.ComponentScanner
	publisher design.PublishingAPI
	client    *fetch.Client
	measurer  design.Measurer

	metrics *observability.Metrics
	tracer  *observability.Tracer

	pageConcurrency int
	canvasOpts      []collect.CanvasOption

	mu      sync.Mutex
	current *session
}

// Option customizes an Analyzer.
type Option func(*Analyzer)

// WithContentAPI enables the structured content collector strategy.
func WithContentAPI(content design.ContentAPI) Option {
	return func(a *Analyzer) { a.content = content }
}

// WithComponentScanner enables the component-control heuristic strategy.
func WithComponentScanner(scanner design.ComponentScanner) Option {
	return func(a *Analyzer) { a.scanner = scanner }
}

// WithPublisher enables published-site diffing when a request asks for it.
func WithPublisher(publisher design.PublishingAPI, client *fetch.Client) Option {
	return func(a *Analyzer) {
		a.publisher = publisher
		a.client = client
	}
}

// WithMeasurer enables intrinsic dimension measurement of remote assets.
func WithMeasurer(m design.Measurer) Option {
	return func(a *Analyzer) { a.measurer = m }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// WithTracer attaches OpenTelemetry tracing.
func WithTracer(t *observability.Tracer) Option {
	return func(a *Analyzer) { a.tracer = t }
}

// WithPageConcurrency bounds concurrent per-page aggregation.
func WithPageConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.pageConcurrency = n
		}
	}
}

// WithCanvasOptions forwards traversal tuning to the canvas collector.
func WithCanvasOptions(opts ...collect.CanvasOption) Option {
	return func(a *Analyzer) { a.canvasOpts = opts }
}

// New creates an Analyzer bound to a design tree.
func New(tree design.TreeAPI, opts ...Option) *Analyzer {
	a := &Analyzer{
		tree:            tree,
		pageConcurrency: defaultPageConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// newSession replaces the current session with a fresh one.
func (a *Analyzer) newSession() *session {
	s := &session{
		id:     uuid.NewString(),
		routes: routes.NewResolver(a.tree),
	}
	a.mu.Lock()
	a.current = s
	a.mu.Unlock()
	return s
}

// Analyze runs the full pipeline. The only fatal conditions are a failing
// page listing and a project with zero pages; every other source failure
// degrades the run and is reported in DegradedSources.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*ProjectReport, error) {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analyzer.Analyze",
		attribute.Int("excluded_routes", len(req.ExcludedRouteIDs)),
		attribute.Bool("published_site", req.IncludePublishedSite),
	)
	defer span.End()

	if req.Mode == "" {
		req.Mode = estimate.ModeOptimized
	}

	sess := a.newSession()
	report := &ProjectReport{
		RunID:              sess.id,
		GeneratedAt:        start.UTC(),
		HasManualEstimates: len(req.ManualEstimates) > 0,
	}

	pages, err := a.tree.ListTopLevelPages(ctx, true)
	if err != nil {
		err = apperr.Wrap(apperr.KindAPI, "analyzer.Analyze", err)
		observability.RecordError(span, err)
		a.metrics.RecordAnalysis("error", time.Since(start))
		return nil, err
	}
	pages = excludePages(pages, req.ExcludedRouteIDs)
	if len(pages) == 0 {
		err = apperr.New(apperr.KindNotFound, "analyzer.Analyze", "project has no analyzable pages")
		observability.RecordError(span, err)
		a.metrics.RecordAnalysis("error", time.Since(start))
		return nil, err
	}

	log.Info().
		Str("run_id", sess.id).
		Int("pages", len(pages)).
		Str("mode", string(req.Mode)).
		Msg("Starting project analysis")

	canvasResults := a.collectCanvas(ctx, req, report)
	canvasAssets := make(map[analysis.DeviceClass][]analysis.Asset, len(canvasResults))
	canvasURLs := make(map[string]bool)
	for dc, res := range canvasResults {
		canvasAssets[dc] = res.Assets
		for _, asset := range res.Assets {
			if asset.URL != "" {
				canvasURLs[asset.URL] = true
			}
		}
	}

	collectionRes := a.collectCollections(ctx, req, canvasURLs)
	manual := collect.FromManualEstimates(req.ManualEstimates, collectionRes.DetectedNames)

	a.metrics.RecordAssets(string(analysis.OriginCollection), len(collectionRes.Assets))
	a.metrics.RecordAssets(string(analysis.OriginManual), len(manual))

	unified := analysis.Unify(canvasAssets, collectionRes.Assets, manual)
	for _, dc := range analysis.DeviceClasses() {
		a.attachRoutes(ctx, sess, unified.PerClass[dc])
	}
	a.attachRoutes(ctx, sess, unified.Canonical)

	perClass := make(map[analysis.DeviceClass]analysis.DeviceClassReport, 3)
	for _, dc := range analysis.DeviceClasses() {
		rep := bandwidth.Aggregate(unified.PerClass[dc], dc, bandwidth.Options{
			Mode:         req.Mode,
			FontFamilies: len(canvasResults[dc].FontFamilies),
		})
		perClass[dc] = rep
		report.PerClass = append(report.PerClass, rep)
	}

	report.PerPage = a.pageReports(ctx, pages, canvasResults, req.Mode)
	report.Recommendations = a.recommendations(perClass, report.PerPage)

	for _, asset := range perClass[analysis.DeviceDesktop].Assets {
		if asset.Origin == analysis.OriginCollection {
			report.CollectionAssetCount++
			report.CollectionAssetBytes += asset.EstimatedBytes
		}
	}

	if req.MonthlyVisits > 0 {
		// Per-visit payload is the mean of the three device-class totals,
		// i.e. an even device mix.
		var sum int64
		for _, rep := range report.PerClass {
			sum += rep.TotalBytes
		}
		traffic := estimate.MonthlyBandwidth(sum/int64(len(report.PerClass)), req.MonthlyVisits, req.Mode)
		report.Traffic = &traffic
	}

	report.Duration = time.Since(start)
	a.metrics.RecordAnalysis("ok", report.Duration)
	byKind := make(map[recommend.Kind]int)
	for _, rec := range report.Recommendations {
		byKind[rec.Kind]++
	}
	for kind, n := range byKind {
		a.metrics.RecordRecommendations(string(kind), n)
	}

	log.Info().
		Str("run_id", sess.id).
		Int("pages", len(report.PerPage)).
		Int("recommendations", len(report.Recommendations)).
		Strs("degraded", report.DegradedSources).
		Dur("duration", report.Duration).
		Msg("Project analysis complete")

	return report, nil
}

// collectCanvas traverses all three device classes concurrently. A failed
// traversal degrades that class to an empty asset set.
func (a *Analyzer) collectCanvas(ctx context.Context, req Request, report *ProjectReport) map[analysis.DeviceClass]collect.CanvasResult {
	ctx, span := a.tracer.Start(ctx, "analyzer.collectCanvas")
	defer span.End()

	collector := collect.NewCanvasCollector(a.tree, a.canvasOpts...)
	results := make(map[analysis.DeviceClass]collect.CanvasResult, 3)

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, dc := range analysis.DeviceClasses() {
		wg.Add(1)
		go func(dc analysis.DeviceClass) {
			defer wg.Done()
			res, err := collector.Collect(ctx, dc, req.ExcludedRouteIDs)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Str("device_class", string(dc)).Msg("Canvas traversal failed, continuing without it")
				a.metrics.RecordCollectorFailure("canvas")
				report.DegradedSources = append(report.DegradedSources, "canvas:"+string(dc))
				results[dc] = collect.CanvasResult{}
				return
			}
			a.metrics.RecordAssets(string(analysis.OriginCanvas), len(res.Assets))
			results[dc] = res
		}(dc)
	}
	wg.Wait()
	sort.Strings(report.DegradedSources)
	return results
}

// collectCollections runs the collection strategies. The publisher and the
// measurer are only handed over when the request opts in to fetching, so a
// default run never touches the network beyond the design APIs.
func (a *Analyzer) collectCollections(ctx context.Context, req Request, canvasURLs map[string]bool) collect.CollectionResult {
	ctx, span := a.tracer.Start(ctx, "analyzer.collectCollections")
	defer span.End()

	var publisher design.PublishingAPI
	var client *fetch.Client
	if req.IncludePublishedSite {
		publisher = a.publisher
		client = a.client
	}
	var measurer design.Measurer
	if req.MeasureAssets {
		measurer = a.measurer
	}
	collector := collect.NewCollectionCollector(a.content, a.scanner, publisher, client, measurer)
	return collector.Collect(ctx, canvasURLs)
}

// attachRoutes resolves route attribution for canvas assets in place.
// Unresolvable nodes keep a nil Route; a miss is not an error.
func (a *Analyzer) attachRoutes(ctx context.Context, sess *session, assets []analysis.Asset) {
	for i := range assets {
		if assets[i].NodeID == "" || assets[i].Route != nil {
			continue
		}
		res, err := sess.routes.Resolve(ctx, assets[i].NodeID)
		if err != nil {
			log.Debug().Err(err).Str("node_id", assets[i].NodeID).Msg("Route resolution failed")
			continue
		}
		if res.Found {
			assets[i].Route = &analysis.RouteAttribution{
				RouteID:   res.Route.ID,
				RouteName: res.Route.Name,
			}
		}
	}
}

// pageReports aggregates each page's canvas assets per device class.
func (a *Analyzer) pageReports(ctx context.Context, pages []design.PageRef, canvasResults map[analysis.DeviceClass]collect.CanvasResult, mode estimate.OptimizationMode) []PageReport {
	_, span := a.tracer.Start(ctx, "analyzer.pageReports", attribute.Int("pages", len(pages)))
	defer span.End()

	reports := make([]PageReport, len(pages))
	sem := make(chan struct{}, a.pageConcurrency)
	var wg sync.WaitGroup
	for i, page := range pages {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, page design.PageRef) {
			defer wg.Done()
			defer func() { <-sem }()

			pr := PageReport{
				PageID:   page.ID,
				PageName: page.Name,
				PageSlug: page.Slug,
				PerClass: make(map[analysis.DeviceClass]analysis.DeviceClassReport, 3),
			}
			info := &recommend.PageInfo{ID: page.ID, Name: page.Name}
			var groups [][]recommend.Recommendation
			for _, dc := range analysis.DeviceClasses() {
				rep := bandwidth.Aggregate(canvasResults[dc].ByPage[page.ID], dc, bandwidth.Options{Mode: mode})
				pr.PerClass[dc] = rep
				groups = append(groups, recommend.Generate(rep, info))
			}
			pr.Recommendations = recommend.Merge(groups...)
			reports[i] = pr
		}(i, page)
	}
	wg.Wait()
	return reports
}

// recommendations merges project-level and page-level findings. Page-level
// duplicates carry route usage, so the merge keeps attribution while the
// project-level pass guarantees collection and manual assets are covered.
func (a *Analyzer) recommendations(perClass map[analysis.DeviceClass]analysis.DeviceClassReport, perPage []PageReport) []recommend.Recommendation {
	groups := make([][]recommend.Recommendation, 0, 3+len(perPage))
	for _, dc := range analysis.DeviceClasses() {
		groups = append(groups, recommend.Generate(perClass[dc], nil))
	}
	for _, pr := range perPage {
		groups = append(groups, pr.Recommendations)
	}
	merged := recommend.Merge(groups...)
	merged = recommend.GroupLargeVectors(merged, unionAssets(perClass))
	recommend.Sort(merged)
	return merged
}

// unionAssets flattens the per-class asset sets into one identity-deduped
// list. Vector grouping reads it so an asset pruned from one class still
// counts toward the threshold.
func unionAssets(perClass map[analysis.DeviceClass]analysis.DeviceClassReport) []analysis.Asset {
	seen := make(map[string]bool)
	var union []analysis.Asset
	for _, dc := range analysis.DeviceClasses() {
		for _, a := range perClass[dc].Assets {
			if seen[a.Identity] {
				continue
			}
			seen[a.Identity] = true
			union = append(union, a)
		}
	}
	return union
}

func excludePages(pages []design.PageRef, excluded []string) []design.PageRef {
	if len(excluded) == 0 {
		return pages
	}
	skip := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		skip[id] = true
	}
	kept := pages[:0]
	for _, p := range pages {
		if !skip[p.ID] {
			kept = append(kept, p)
		}
	}
	return kept
}
