// Package layout assigns hierarchical levels and column positions to the
// nodes of a lineage (sub)graph, for consumption by an external renderer.
//
// Levels reflect the longest path from a source table: every table sits
// below everything that feeds it, and terminal tables are pulled into one
// final level of their own. Within a level, nodes are grouped into columns
// by role (source-like, volatile, intermediate, sink-like) so that a
// reader can scan a level top to bottom and see what kind of table each
// column holds.
//
// Build is a pure function over an immutable graph snapshot; it can run
// repeatedly and concurrently as long as no rebuild is interleaved.
package layout

import (
	"math"
	"slices"
	"strings"

	"github.com/lineamap/lineamap/pkg/graph"
)

// Spacing and sizing constants. The renderer treats X/Y as abstract
// canvas units.
const (
	// LevelSpacing is the horizontal distance between consecutive levels.
	LevelSpacing = 320.0

	// ColumnSpacing is the horizontal offset between the class columns of
	// one level, and between sub-columns of one class.
	ColumnSpacing = 60.0

	// RowSpacing is the vertical distance between nodes in a column.
	RowSpacing = 90.0

	// MaxColumnNodes is the largest column the layout will produce before
	// splitting a class into sub-columns.
	MaxColumnNodes = 10
)

// Placement is the computed position of one node.
type Placement struct {
	Level  int     `json:"level" bson:"level"`
	Column int     `json:"column" bson:"column"`
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
}

// nodeClass partitions a level's nodes into display columns.
// Declaration order is both the match priority and the left-to-right
// column order within a level, except that sinks render rightmost.
type nodeClass int

const (
	classSource nodeClass = iota // zero incoming edges (self-loops ignored)
	classVolatile
	classIntermediate
	classSink // zero outgoing edges (self-loops ignored)
)

// columnOrder returns the left-to-right position of the class within its
// level: source-like, volatile, intermediate, sink-like.
func (c nodeClass) columnOrder() int {
	switch c {
	case classSource:
		return 0
	case classVolatile:
		return 1
	case classIntermediate:
		return 2
	default:
		return 3
	}
}

// classify picks the node's column class. Zero-incoming wins over
// volatility; volatility wins over zero-outgoing.
func classify(g *graph.Graph, n *graph.Node) nodeClass {
	switch {
	case g.InDegree(n.ID) == 0:
		return classSource
	case n.IsVolatile:
		return classVolatile
	case g.OutDegree(n.ID) == 0:
		return classSink
	default:
		return classIntermediate
	}
}

// Build computes a placement for every node of g.
//
// Leveling follows the longest path from the zero-indegree sources
// (self-loops ignored throughout): a node reached over several paths ends
// up one past its deepest predecessor. Nodes unreachable from any source -
// isolated nodes and pure cycles - stay at level 0. Sinks are then pulled
// out of their computed level into one new level past every non-sink, and
// level numbers are compacted to a dense 0..k-1 range.
func Build(g *graph.Graph) map[string]Placement {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return map[string]Placement{}
	}

	levels := assignLevels(g, nodes)
	separateSinks(g, nodes, levels)
	renumber(levels)

	return place(g, nodes, levels)
}

// assignLevels runs the longest-path breadth-first relaxation from all
// zero-indegree nodes. A node is re-enqueued whenever its level rises, so
// the final level reflects the longest source path, not the first one
// found. Levels are capped at len(nodes)-1, which bounds the relaxation on
// cycles reachable from a source.
func assignLevels(g *graph.Graph, nodes []*graph.Node) map[string]int {
	levels := make(map[string]int, len(nodes))
	maxLevel := len(nodes) - 1

	var queue []string
	for _, n := range nodes {
		levels[n.ID] = 0
		if g.InDegree(n.ID) == 0 {
			queue = append(queue, n.ID)
		}
	}

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, succ := range g.Successors(curr) {
			if succ == curr {
				continue
			}
			next := levels[curr] + 1
			if next > levels[succ] && next <= maxLevel {
				levels[succ] = next
				queue = append(queue, succ)
			}
		}
	}

	return levels
}

// separateSinks moves every zero-outdegree node into one shared level
// immediately past the deepest non-sink, so terminal tables always render
// downstream of everything that feeds them.
func separateSinks(g *graph.Graph, nodes []*graph.Node, levels map[string]int) {
	maxNonSink := 0
	hasSink := false
	for _, n := range nodes {
		if g.OutDegree(n.ID) == 0 {
			hasSink = true
			continue
		}
		if levels[n.ID] > maxNonSink {
			maxNonSink = levels[n.ID]
		}
	}
	if !hasSink {
		return
	}
	for _, n := range nodes {
		if g.OutDegree(n.ID) == 0 {
			levels[n.ID] = maxNonSink + 1
		}
	}
}

// renumber remaps the levels actually in use to a dense 0..k-1 sequence.
func renumber(levels map[string]int) {
	used := make(map[int]bool, len(levels))
	for _, lvl := range levels {
		used[lvl] = true
	}
	sorted := make([]int, 0, len(used))
	for lvl := range used {
		sorted = append(sorted, lvl)
	}
	slices.Sort(sorted)

	dense := make(map[int]int, len(sorted))
	for i, lvl := range sorted {
		dense[lvl] = i
	}
	for id, lvl := range levels {
		levels[id] = dense[lvl]
	}
}

// place lays out each level's classes as columns: x advances per level and
// per class, members are vertically centered with fixed row spacing, and
// oversized classes split into sub-columns of roughly equal height.
// Column indices count up per level across the class columns in display
// order, so they are unique within a level.
func place(g *graph.Graph, nodes []*graph.Node, levels map[string]int) map[string]Placement {
	byLevel := make(map[int]map[nodeClass][]*graph.Node)
	for _, n := range nodes {
		lvl := levels[n.ID]
		if byLevel[lvl] == nil {
			byLevel[lvl] = make(map[nodeClass][]*graph.Node)
		}
		class := classify(g, n)
		byLevel[lvl][class] = append(byLevel[lvl][class], n)
	}

	placements := make(map[string]Placement, len(nodes))
	for lvl, classes := range byLevel {
		columnIndex := 0
		for _, class := range []nodeClass{classSource, classVolatile, classIntermediate, classSink} {
			members := classes[class]
			if len(members) == 0 {
				continue
			}
			// Keep members alphabetical inside the column for stable
			// output.
			slices.SortFunc(members, func(a, b *graph.Node) int { return strings.Compare(a.ID, b.ID) })

			for sub, column := range splitColumns(members) {
				x := float64(lvl)*LevelSpacing +
					float64(class.columnOrder())*ColumnSpacing +
					float64(sub)*ColumnSpacing/2

				for row, n := range column {
					y := (float64(row) - float64(len(column)-1)/2) * RowSpacing
					placements[n.ID] = Placement{
						Level:  lvl,
						Column: columnIndex,
						X:      x,
						Y:      y,
					}
				}
				columnIndex++
			}
		}
	}
	return placements
}

// splitColumns slices a class into sub-columns of at most MaxColumnNodes,
// sized as evenly as possible.
func splitColumns(members []*graph.Node) [][]*graph.Node {
	count := int(math.Ceil(float64(len(members)) / MaxColumnNodes))
	if count <= 1 {
		return [][]*graph.Node{members}
	}
	size := int(math.Ceil(float64(len(members)) / float64(count)))

	columns := make([][]*graph.Node, 0, count)
	for start := 0; start < len(members); start += size {
		end := min(start+size, len(members))
		columns = append(columns, members[start:end])
	}
	return columns
}
