// Package pkg provides the core libraries for Lineamap data lineage mapping.
//
// # Overview
//
// Lineamap turns per-script SQL lineage records into a table-level lineage
// graph: which tables each script reads and writes, which scripts own which
// tables, and how data flows between them. The pkg directory is organized
// into these areas:
//
//  1. [lineage] - Record parsing and corpus loading
//  2. [graph] - Graph construction, ownership resolution, queries, validation
//  3. [layout] - Hierarchical node placement for rendering
//  4. [pipeline] - Orchestration (load → build → query → layout) with caching
//  5. [cache] / [store] - Result caching and snapshot persistence
//  6. [render/dot] - Graphviz DOT and SVG export
//
// # Architecture
//
// The typical data flow through Lineamap:
//
//	Lineage record files (JSON, one per script)
//	         ↓
//	    [lineage] package (parse + load corpus)
//	         ↓
//	    [graph] package (build nodes/edges, resolve owners, validate)
//	         ↓
//	    [graph] queries (script/table filters, impact traversal)
//	         ↓
//	    [layout] package (levels, columns, coordinates)
//	         ↓
//	    JSON / DOT / SVG output, or the HTTP API
//
// # Quick Start
//
// Load a corpus and trace a table's upstream lineage:
//
//	import (
//	    "context"
//	    "github.com/lineamap/lineamap/pkg/graph"
//	    "github.com/lineamap/lineamap/pkg/layout"
//	    "github.com/lineamap/lineamap/pkg/lineage"
//	)
//
//	// 1. Load the corpus
//	corpus, _ := lineage.LoadDir(context.Background(), "./records")
//
//	// 2. Build and resolve the graph
//	g := graph.Build(corpus)
//	graph.Resolve(g, corpus)
//
//	// 3. Query upstream of a table
//	sub := g.Query(nil, []string{"ETL_AUDIT_LOG"}, graph.ModeImpactedBy)
//
//	// 4. Compute placements
//	placements := layout.Build(sub)
//
// # Main Packages
//
// [lineage] - Wire format for per-script lineage records and corpus loading
// from directories or manifest files.
//
// [graph] - The lineage graph itself: volatile vs global node identity,
// edge merging with operation provenance, the three-step ownership
// resolver, filter queries with impact traversal, and the validator.
//
// [layout] - Longest-path leveling with sink separation, class-ordered
// columns, and vertical centering.
//
// [pipeline] - Complete pipeline (load → build → query → layout) used by
// CLI and server. Ensures consistent behavior across all entry points.
//
// [cache] - Content-addressed result caching with file, Redis, and null
// backends.
//
// [store] - MongoDB-backed snapshot persistence for the API server.
//
// [render/dot] - Graphviz export: DOT source and rendered SVG.
//
// [observability] - Optional hooks for metrics and tracing backends.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...        # All tests
//	go test ./pkg/graph/...  # Specific package
//	go test -run Example     # Examples only
//
// [lineage]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/lineage
// [graph]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/graph
// [layout]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/layout
// [pipeline]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/cache
// [store]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/store
// [render/dot]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/render/dot
// [observability]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/observability
package pkg
