package graph

import (
	"fmt"
	"slices"
)

// Mode controls how far a table-name filter expands along the edge set.
type Mode string

const (
	// ModeDirect keeps matching tables and their one-hop neighbors in
	// either direction.
	ModeDirect Mode = "direct"

	// ModeImpactsBy follows data flow downstream (from → to) from the
	// matching tables.
	ModeImpactsBy Mode = "impacts_by"

	// ModeImpactedBy follows data flow upstream (to → from) from the
	// matching tables.
	ModeImpactedBy Mode = "impacted_by"

	// ModeBoth is the union of ModeImpactsBy and ModeImpactedBy.
	ModeBoth Mode = "both"
)

// ParseMode validates a mode string. The empty string parses as
// ModeDirect.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeDirect, nil
	case ModeDirect, ModeImpactsBy, ModeImpactedBy, ModeBoth:
		return Mode(s), nil
	}
	return "", fmt.Errorf("invalid mode: %q (must be one of: direct, impacts_by, impacted_by, both)", s)
}

// Query computes the induced subgraph selected by a script filter, a
// table-name filter, and a reachability mode.
//
// The script filter keeps nodes whose owner set intersects it. The table
// filter matches bare names against the full node set, expands the match
// per mode over the full edge set, and intersects the expansion with the
// script-filtered candidates. An empty filter imposes no restriction; with
// both filters empty the whole graph is returned.
//
// Edges survive only when both endpoints survive. Under a script filter an
// edge additionally keeps only the operation tokens contributed by the
// filtered scripts and is dropped when none remain.
//
// The receiver is never mutated; node and edge values are shared with the
// result, so the result must be treated as read-only like the Graph
// itself.
func (g *Graph) Query(scriptFilter, tableFilter []string, mode Mode) *Graph {
	candidates := make(map[string]bool, len(g.nodes))
	if len(scriptFilter) > 0 {
		for id, n := range g.nodes {
			if intersects(n.Owners, scriptFilter) {
				candidates[id] = true
			}
		}
	} else {
		for id := range g.nodes {
			candidates[id] = true
		}
	}

	keep := candidates
	if len(tableFilter) > 0 {
		matching := make(map[string]bool)
		for id, n := range g.nodes {
			if slices.Contains(tableFilter, n.Name) {
				matching[id] = true
			}
		}
		related := g.expand(matching, mode)

		keep = make(map[string]bool, len(related))
		for id := range related {
			if candidates[id] {
				keep[id] = true
			}
		}
	}

	sub := newGraph()
	for id := range keep {
		sub.addNode(g.nodes[id])
	}
	for key, e := range g.edges {
		if !keep[key.from] || !keep[key.to] {
			continue
		}
		ops := e.Operations
		if len(scriptFilter) > 0 {
			ops = filterOperations(ops, scriptFilter)
			if len(ops) == 0 {
				continue
			}
		}
		sub.addEdge(e.From, e.To, ops)
	}
	sub.finalize()
	return sub
}

// expand grows the matching set into the related set for the given mode.
// The matching set itself is always part of the result.
func (g *Graph) expand(matching map[string]bool, mode Mode) map[string]bool {
	related := make(map[string]bool, len(matching))
	for id := range matching {
		related[id] = true
	}

	switch mode {
	case ModeDirect:
		for id := range matching {
			for _, succ := range g.outgoing[id] {
				related[succ] = true
			}
			for _, pred := range g.incoming[id] {
				related[pred] = true
			}
		}
	case ModeImpactsBy:
		g.traverse(matching, related, g.outgoing)
	case ModeImpactedBy:
		g.traverse(matching, related, g.incoming)
	case ModeBoth:
		g.traverse(matching, related, g.outgoing)
		g.traverse(matching, related, g.incoming)
	}
	return related
}

// traverse runs a breadth-first walk from every node in start following the
// given adjacency, adding every visited node to out. A visited set
// guarantees termination on cyclic graphs: each node is enqueued at most
// once.
func (g *Graph) traverse(start, out map[string]bool, adjacency map[string][]string) {
	visited := make(map[string]bool, len(start))
	queue := make([]string, 0, len(start))
	for id := range start {
		visited[id] = true
		queue = append(queue, id)
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		out[curr] = true

		for _, next := range adjacency[curr] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
}

// filterOperations keeps tokens whose script component is in scripts.
// Malformed tokens fail their own lookup and are dropped.
func filterOperations(ops, scripts []string) []string {
	var kept []string
	for _, op := range ops {
		script, _, err := ParseOperation(op)
		if err != nil {
			continue
		}
		if slices.Contains(scripts, script) {
			kept = append(kept, op)
		}
	}
	return kept
}

func intersects(a, b []string) bool {
	for _, s := range a {
		if slices.Contains(b, s) {
			return true
		}
	}
	return false
}
