package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lineamap/lineamap/pkg/cache"
	"github.com/lineamap/lineamap/pkg/graph"
	"github.com/lineamap/lineamap/pkg/layout"
	"github.com/lineamap/lineamap/pkg/lineage"
	"github.com/lineamap/lineamap/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// buildArtifact is the cached form of the build stage: the serialized
// resolved graph plus the resolution diagnostics that produced it.
type buildArtifact struct {
	Graph      graph.Document   `json:"graph"`
	Resolution graph.Resolution `json:"resolution"`
}

// Execute runs the complete load → build → query → layout pipeline with
// caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	result := &Result{}

	// Stage 1: Load
	source := opts.Manifest
	if source == "" {
		source = opts.Dir
	}
	loadStart := time.Now()
	observability.Pipeline().OnLoadStart(ctx, source)
	corpus, err := r.Load(ctx, opts)
	observability.Pipeline().OnLoadComplete(ctx, source, len(corpus), time.Since(loadStart), err)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	result.Corpus = corpus
	result.CorpusHash = CorpusHash(corpus)
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.ScriptCount = len(corpus)

	r.Logger.Info("loaded corpus",
		"scripts", len(corpus),
		"duration", result.Stats.LoadTime)

	// Stage 2: Build + Resolve
	buildStart := time.Now()
	observability.Pipeline().OnBuildStart(ctx, len(corpus))
	g, resolution, buildHit, err := r.BuildWithCacheInfo(ctx, corpus, result.CorpusHash, opts)
	if err != nil {
		observability.Pipeline().OnBuildComplete(ctx, 0, 0, time.Since(buildStart), err)
		return nil, fmt.Errorf("build: %w", err)
	}
	observability.Pipeline().OnBuildComplete(ctx, g.NodeCount(), g.EdgeCount(), time.Since(buildStart), nil)
	result.Graph = g
	result.Resolution = resolution
	result.Report = graph.Validate(g)
	result.Stats.BuildTime = time.Since(buildStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()
	result.CacheInfo.BuildHit = buildHit

	r.Logger.Info("built graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"violations", resolution.Violations(),
		"duration", result.Stats.BuildTime)

	// Stage 3: Query
	queryStart := time.Now()
	sub := g
	if opts.HasFilters() {
		sub = g.Query(opts.Scripts, opts.Tables, opts.QueryMode())
	}
	result.Subgraph = sub
	result.Stats.QueryTime = time.Since(queryStart)
	result.Stats.SubgraphNodes = sub.NodeCount()
	result.Stats.SubgraphEdges = sub.EdgeCount()

	if opts.HasFilters() {
		r.Logger.Info("filtered subgraph",
			"nodes", sub.NodeCount(),
			"edges", sub.EdgeCount(),
			"mode", opts.Mode,
			"duration", result.Stats.QueryTime)
	}

	// Stage 4: Layout
	if !opts.SkipLayout {
		layoutStart := time.Now()
		observability.Pipeline().OnLayoutStart(ctx, sub.NodeCount())
		placements, layoutHit, err := r.LayoutWithCacheInfo(ctx, sub, result.CorpusHash, opts)
		observability.Pipeline().OnLayoutComplete(ctx, time.Since(layoutStart), err)
		if err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}
		result.Placements = placements
		result.Stats.LayoutTime = time.Since(layoutStart)
		result.CacheInfo.LayoutHit = layoutHit

		r.Logger.Info("computed layout",
			"placements", len(placements),
			"duration", result.Stats.LayoutTime)
	}

	return result, nil
}

// Load assembles the corpus from the configured source.
func (r *Runner) Load(ctx context.Context, opts Options) (lineage.Corpus, error) {
	if opts.Manifest != "" {
		return lineage.LoadManifest(ctx, opts.Manifest)
	}
	return lineage.LoadDir(ctx, opts.Dir)
}

// BuildWithCacheInfo builds and resolves the lineage graph with caching
// and returns cache hit info.
//
// A cache hit restores the graph from its serialized document: ownership
// is already baked into the owner sets, so queries and layout behave
// identically to a fresh build.
func (r *Runner) BuildWithCacheInfo(ctx context.Context, corpus lineage.Corpus, corpusHash string, opts Options) (*graph.Graph, graph.Resolution, bool, error) {
	cacheKey := r.Keyer.BuildKey(corpusHash)

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var artifact buildArtifact
			if err := json.Unmarshal(data, &artifact); err == nil {
				if g, err := graph.FromDocument(artifact.Graph); err == nil {
					observability.Cache().OnCacheHit(ctx, "build")
					return g, artifact.Resolution, true, nil // Cache hit
				}
			}
			// Corrupt entry - fall through to rebuild
		}
	}
	observability.Cache().OnCacheMiss(ctx, "build")

	g := graph.Build(corpus)
	resolution := graph.Resolve(g, corpus)

	// Cache the result
	if data, err := json.Marshal(buildArtifact{Graph: graph.ToDocument(g), Resolution: resolution}); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLBuild) == nil {
			observability.Cache().OnCacheSet(ctx, "build", len(data))
		}
	}

	return g, resolution, false, nil // Cache miss
}

// Build is a convenience wrapper that calls BuildWithCacheInfo and
// discards the cache hit info.
func (r *Runner) Build(ctx context.Context, corpus lineage.Corpus, opts Options) (*graph.Graph, graph.Resolution, error) {
	g, resolution, _, err := r.BuildWithCacheInfo(ctx, corpus, CorpusHash(corpus), opts)
	return g, resolution, err
}

// LayoutWithCacheInfo computes the subgraph layout with caching and
// returns cache hit info.
func (r *Runner) LayoutWithCacheInfo(ctx context.Context, sub *graph.Graph, corpusHash string, opts Options) (map[string]layout.Placement, bool, error) {
	cacheKey := r.Keyer.LayoutKey(corpusHash, opts.QueryOpts())

	// Try cache first
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var cached map[string]layout.Placement
			if err := json.Unmarshal(data, &cached); err == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return cached, true, nil // Cache hit
			}
			// If deserialization fails, fall through to recompute
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	placements := layout.Build(sub)

	// Cache the result
	if data, err := json.Marshal(placements); err == nil {
		if r.Cache.Set(ctx, cacheKey, data, cache.TTLLayout) == nil {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}

	return placements, false, nil // Cache miss
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// CorpusHash fingerprints a corpus for cache keys: scripts are serialized
// in sorted name order so equal corpora hash identically regardless of
// load order.
func CorpusHash(corpus lineage.Corpus) string {
	var buf []byte
	for _, name := range corpus.ScriptNames() {
		data, err := lineage.MarshalScript(corpus[name])
		if err != nil {
			continue
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	return cache.Hash(buf)
}
