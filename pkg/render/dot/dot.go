// Package dot renders lineage graphs to Graphviz DOT and SVG for ad hoc
// inspection. The interactive frontend consumes the JSON graph and layout
// directly; this renderer exists for CLI exports and reviews.
package dot

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/lineamap/lineamap/pkg/graph"
	"github.com/lineamap/lineamap/pkg/layout"
)

// Options configures DOT rendering.
type Options struct {
	// ShowOperations includes the operation tokens on edge labels.
	ShowOperations bool

	// Placements, when non-nil, groups nodes into same-rank clusters per
	// layout level so Graphviz honors the computed hierarchy.
	Placements map[string]layout.Placement
}

// ToDOT converts a lineage graph to Graphviz DOT format. The resulting
// string can be rendered with [RenderSVG].
//
// Volatile tables are drawn with dashed outlines, external tables with a
// grey fill, so the three node kinds are distinguishable at a glance.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph lineage {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.7;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(fmtAttrs(n), ", "))
	}

	if opts.Placements != nil {
		buf.WriteString("\n")
		writeRanks(&buf, g, opts.Placements)
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		if opts.ShowOperations {
			fmt.Fprintf(&buf, "  %q -> %q [label=%q, fontsize=10];\n", e.From, e.To, strings.Join(e.Operations, "\n"))
		} else {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtAttrs(n *graph.Node) []string {
	attrs := []string{fmt.Sprintf("label=%q", n.Name)}
	switch {
	case n.IsVolatile:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	case n.External():
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return attrs
}

// writeRanks emits one same-rank group per layout level.
func writeRanks(buf *bytes.Buffer, g *graph.Graph, placements map[string]layout.Placement) {
	byLevel := make(map[int][]string)
	for _, n := range g.Nodes() {
		p, ok := placements[n.ID]
		if !ok {
			continue
		}
		byLevel[p.Level] = append(byLevel[p.Level], n.ID)
	}

	for _, level := range slices.Sorted(maps.Keys(byLevel)) {
		ids := byLevel[level]
		quoted := make([]string, len(ids))
		for i, id := range ids {
			quoted[i] = strconv.Quote(id)
		}
		fmt.Fprintf(buf, "  { rank=same; %s }\n", strings.Join(quoted, "; "))
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
