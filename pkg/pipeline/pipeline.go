// Package pipeline provides the core lineage pipeline for lineamap.
//
// This package implements the complete load → build → query → layout
// pipeline that can be used by CLI and server components. By centralizing
// this logic, we ensure consistent behavior across all entry points and
// avoid code duplication.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Assemble the per-script record corpus from a manifest or
//     directory
//  2. Build: Construct the lineage graph and resolve ownership
//  3. Query: Compute the filtered subgraph for the requested view
//  4. Layout: Assign hierarchical levels and positions to the subgraph
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Manifest: "corpus/scripts.txt",
//	    Tables:   []string{"CUSTOMER_REPORTING"},
//	    Mode:     "impacted_by",
//	}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sub := result.Subgraph
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lineamap/lineamap/pkg/cache"
	"github.com/lineamap/lineamap/pkg/graph"
	"github.com/lineamap/lineamap/pkg/layout"
	"github.com/lineamap/lineamap/pkg/lineage"
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the lineage pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Load options: exactly one source is required.
	Manifest string `json:"manifest,omitempty"` // manifest file listing record files
	Dir      string `json:"dir,omitempty"`      // directory of record files

	// Query options
	Scripts []string `json:"scripts,omitempty"` // script filter
	Tables  []string `json:"tables,omitempty"`  // table-name filter
	Mode    string   `json:"mode,omitempty"`    // direct, impacts_by, impacted_by, both

	// Refresh bypasses the cache and rebuilds from the records.
	Refresh bool `json:"refresh,omitempty"`

	// SkipLayout leaves Result.Placements empty, for callers that only
	// need the subgraph.
	SkipLayout bool `json:"skip_layout,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`

	// mode is the parsed form of Mode.
	mode graph.Mode
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Corpus is the loaded per-script input.
	Corpus lineage.Corpus

	// CorpusHash is the content hash of the corpus, used for cache keys.
	CorpusHash string

	// Graph is the full resolved lineage graph.
	Graph *graph.Graph

	// Resolution reports ownership invariant repairs.
	Resolution graph.Resolution

	// Report is the validator's diagnostic scan of the full graph.
	Report graph.Report

	// Subgraph is the query result for the requested filters. With no
	// filters it is the full graph.
	Subgraph *graph.Graph

	// Placements is the layout of the subgraph (nil with SkipLayout).
	Placements map[string]layout.Placement

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ScriptCount   int
	NodeCount     int
	EdgeCount     int
	SubgraphNodes int
	SubgraphEdges int
	LoadTime      time.Duration
	BuildTime     time.Duration
	QueryTime     time.Duration
	LayoutTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	BuildHit  bool // Whether the build result came from cache
	LayoutHit bool // Whether the layout came from cache
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same
// effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Manifest == "" && o.Dir == "" {
		return fmt.Errorf("manifest or dir is required")
	}
	if o.Manifest != "" && o.Dir != "" {
		return fmt.Errorf("manifest and dir are mutually exclusive")
	}

	mode, err := graph.ParseMode(o.Mode)
	if err != nil {
		return err
	}
	o.mode = mode
	o.Mode = string(mode)

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}

// QueryMode returns the parsed traversal mode.
// ValidateAndSetDefaults must have been called.
func (o *Options) QueryMode() graph.Mode {
	return o.mode
}

// HasFilters reports whether the options request a filtered view.
func (o *Options) HasFilters() bool {
	return len(o.Scripts) > 0 || len(o.Tables) > 0
}

// QueryOpts returns cache key options for the query/layout stages.
func (o *Options) QueryOpts() cache.QueryOpts {
	return cache.QueryOpts{
		Scripts: o.Scripts,
		Tables:  o.Tables,
		Mode:    o.Mode,
	}
}
