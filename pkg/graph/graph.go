// Package graph builds and queries the lineage graph: a directed graph of
// tables (nodes) and data flows (edges) derived from a multi-script corpus
// of lineage records.
//
// A Graph is an explicit immutable value. Build and Resolve produce it once
// per data load; Query, Validate, and the layout engine read it without
// mutation. Callers replace the whole value on reload - there is no
// incremental patching.
//
// # Node Identity
//
// Volatile tables are private to their creating script and are keyed
// "script::TABLE". Non-volatile (global) tables are keyed by bare name and
// shared across every script that defines or references them. A table that
// is referenced but never defined anywhere becomes an external global node.
package graph

import (
	"errors"
	"slices"
	"strings"

	"github.com/lineamap/lineamap/pkg/lineage"
)

var (
	// ErrUnknownEdgeEndpoint is returned when an edge references a node
	// that is not part of the node set.
	ErrUnknownEdgeEndpoint = errors.New("edge references unknown node")

	// ErrDuplicateNode is returned when two nodes share an ID.
	ErrDuplicateNode = errors.New("duplicate node ID")
)

// idSeparator joins a script name and a table name into a scoped node ID,
// and a script name and a statement index into an operation token.
const idSeparator = "::"

// Node is a table in the lineage graph.
type Node struct {
	ID         string
	Name       string // bare table name
	IsVolatile bool
	Owners     []string // scripts entitled to claim this node, sorted

	// DefinedBy is the script whose TableDefinition first defined this
	// table, or "" for external nodes that were only ever referenced.
	DefinedBy string

	// Sources and Targets are the raw relationships copied from the first
	// defining TableDefinition. External nodes have none.
	Sources []lineage.Relationship
	Targets []lineage.Relationship
}

// External reports whether the node was materialized for a table that no
// script defines (referenced only).
func (n *Node) External() bool { return n.DefinedBy == "" }

// Edge is a directed data flow between two tables. Operations holds the
// "script::opN" tokens of every SQL statement implementing the flow,
// possibly contributed by several scripts. At most one edge exists per
// ordered node pair; repeated contributions merge into Operations.
type Edge struct {
	From       string
	To         string
	Operations []string // sorted by script, then statement index
}

// SelfLoop reports whether the edge starts and ends on the same node.
// Self-loops are kept in the edge set but ignored by degree statistics.
func (e *Edge) SelfLoop() bool { return e.From == e.To }

type edgeKey struct{ from, to string }

// Graph is the immutable lineage graph value.
// The zero value is not usable; Build or FromDocument construct one.
type Graph struct {
	nodes    map[string]*Node
	edges    map[edgeKey]*Edge
	outgoing map[string][]string // from -> to IDs, insertion order
	incoming map[string][]string // to -> from IDs, insertion order
}

func newGraph() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		edges:    make(map[edgeKey]*Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// Node returns the node with the given ID, or nil and false.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge from→to, or nil and false.
func (g *Graph) Edge(from, to string) (*Edge, bool) {
	e, ok := g.edges[edgeKey{from, to}]
	return e, ok
}

// Nodes returns all nodes sorted by ID.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b *Node) int { return strings.Compare(a.ID, b.ID) })
	return nodes
}

// Edges returns all edges sorted by (From, To).
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	slices.SortFunc(edges, func(a, b *Edge) int {
		if c := strings.Compare(a.From, b.From); c != 0 {
			return c
		}
		return strings.Compare(a.To, b.To)
	})
	return edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// Successors returns the IDs of nodes this node feeds, in insertion order.
// The returned slice is a read-only view.
func (g *Graph) Successors(id string) []string { return g.outgoing[id] }

// Predecessors returns the IDs of nodes feeding this node, in insertion
// order. The returned slice is a read-only view.
func (g *Graph) Predecessors(id string) []string { return g.incoming[id] }

// InDegree returns the number of incoming edges, excluding self-loops.
func (g *Graph) InDegree(id string) int {
	n := 0
	for _, from := range g.incoming[id] {
		if from != id {
			n++
		}
	}
	return n
}

// OutDegree returns the number of outgoing edges, excluding self-loops.
func (g *Graph) OutDegree(id string) int {
	n := 0
	for _, to := range g.outgoing[id] {
		if to != id {
			n++
		}
	}
	return n
}

// TableNames returns the distinct bare table names in the graph, sorted.
func (g *Graph) TableNames() []string {
	seen := make(map[string]bool, len(g.nodes))
	for _, n := range g.nodes {
		seen[n.Name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Scripts returns the distinct script names appearing in any owner set,
// sorted.
func (g *Graph) Scripts() []string {
	seen := make(map[string]bool)
	for _, n := range g.nodes {
		for _, owner := range n.Owners {
			seen[owner] = true
		}
	}
	scripts := make([]string, 0, len(seen))
	for s := range seen {
		scripts = append(scripts, s)
	}
	slices.Sort(scripts)
	return scripts
}

// addNode inserts a node. The first definition of an ID wins; callers check
// for existence before constructing replacements.
func (g *Graph) addNode(n *Node) {
	g.nodes[n.ID] = n
}

// addEdge merges operation tokens into the edge from→to, creating it on
// first use. Tokens are deduplicated; ordering is fixed by finalize.
func (g *Graph) addEdge(from, to string, ops []string) {
	key := edgeKey{from, to}
	e, ok := g.edges[key]
	if !ok {
		e = &Edge{From: from, To: to}
		g.edges[key] = e
		g.outgoing[from] = append(g.outgoing[from], to)
		g.incoming[to] = append(g.incoming[to], from)
	}
	for _, op := range ops {
		if !slices.Contains(e.Operations, op) {
			e.Operations = append(e.Operations, op)
		}
	}
}

// finalize sorts every edge's operation tokens by script then statement
// index. Called once at the end of construction.
func (g *Graph) finalize() {
	for _, e := range g.edges {
		sortOperations(e.Operations)
	}
}
