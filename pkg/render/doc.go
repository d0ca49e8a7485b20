// Package render groups the output backends for lineage graphs.
//
// # Subpackages
//
// [dot] renders a graph as Graphviz DOT source or as an SVG document.
// Volatile tables are drawn dashed, external tables grey, and layout
// levels become rank groups so the generated drawing matches the
// hierarchical placements computed by the layout package.
//
// [dot]: https://pkg.go.dev/github.com/lineamap/lineamap/pkg/render/dot
package render
