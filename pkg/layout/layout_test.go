package layout

import (
	"fmt"
	"testing"

	"github.com/lineamap/lineamap/pkg/graph"
	"github.com/lineamap/lineamap/pkg/lineage"
)

// chain builds a corpus where one script defines table B reading from A
// and writing to C, yielding the graph A -> B -> C.
func chain() lineage.Corpus {
	return lineage.Corpus{
		"etl": {
			Name: "etl",
			Tables: map[string]*lineage.TableDefinition{
				"B": {
					Sources: []lineage.Relationship{{TableName: "A", Operations: []int{0}}},
					Targets: []lineage.Relationship{{TableName: "C", Operations: []int{1}}},
				},
			},
		},
	}
}

func TestBuildChainLevels(t *testing.T) {
	g := graph.Build(chain())
	placements := Build(g)

	want := map[string]int{"A": 0, "B": 1, "C": 2}
	for id, level := range want {
		p, ok := placements[id]
		if !ok {
			t.Fatalf("Build() missing placement for %q", id)
		}
		if p.Level != level {
			t.Errorf("Build()[%q].Level = %d, want %d", id, p.Level, level)
		}
	}
	if len(placements) != len(want) {
		t.Errorf("Build() placed %d nodes, want %d", len(placements), len(want))
	}
}

func TestBuildLongestPathWins(t *testing.T) {
	// Diamond with a long arm: A feeds D directly and through B and C, so
	// D's level must follow the three-hop path.
	corpus := lineage.Corpus{
		"s": {
			Name: "s",
			Tables: map[string]*lineage.TableDefinition{
				"B": {Sources: []lineage.Relationship{{TableName: "A", Operations: []int{0}}}},
				"C": {Sources: []lineage.Relationship{{TableName: "B", Operations: []int{1}}}},
				"D": {Sources: []lineage.Relationship{
					{TableName: "A", Operations: []int{2}},
					{TableName: "C", Operations: []int{3}},
				}},
			},
		},
	}
	placements := Build(graph.Build(corpus))

	if got := placements["D"].Level; got != 3 {
		t.Errorf("Build()[\"D\"].Level = %d, want 3", got)
	}
}

func TestBuildSinkSeparation(t *testing.T) {
	// A -> B, A -> C, B -> D. C is a sink at natural level 1 and D at
	// natural level 2; both must land on the same dedicated final level.
	corpus := lineage.Corpus{
		"s": {
			Name: "s",
			Tables: map[string]*lineage.TableDefinition{
				"B": {
					Sources: []lineage.Relationship{{TableName: "A", Operations: []int{0}}},
					Targets: []lineage.Relationship{{TableName: "D", Operations: []int{1}}},
				},
				"C": {Sources: []lineage.Relationship{{TableName: "A", Operations: []int{2}}}},
			},
		},
	}
	placements := Build(graph.Build(corpus))

	if placements["C"].Level != placements["D"].Level {
		t.Errorf("sink levels differ: C=%d, D=%d", placements["C"].Level, placements["D"].Level)
	}
	if got, want := placements["C"].Level, placements["B"].Level+1; got != want {
		t.Errorf("sink level = %d, want %d (one past deepest non-sink)", got, want)
	}
}

func TestBuildDenseLevels(t *testing.T) {
	placements := Build(graph.Build(chain()))

	used := make(map[int]bool)
	maxLevel := 0
	for _, p := range placements {
		used[p.Level] = true
		if p.Level > maxLevel {
			maxLevel = p.Level
		}
	}
	for lvl := 0; lvl <= maxLevel; lvl++ {
		if !used[lvl] {
			t.Errorf("level %d unused, levels must be dense 0..%d", lvl, maxLevel)
		}
	}
}

func TestBuildCycleTerminates(t *testing.T) {
	// X and Y feed each other and are reachable from a source, so the
	// relaxation must stop at the level cap instead of looping.
	corpus := lineage.Corpus{
		"s": {
			Name: "s",
			Tables: map[string]*lineage.TableDefinition{
				"X": {Sources: []lineage.Relationship{
					{TableName: "SRC", Operations: []int{0}},
					{TableName: "Y", Operations: []int{1}},
				}},
				"Y": {Sources: []lineage.Relationship{{TableName: "X", Operations: []int{2}}}},
			},
		},
	}
	g := graph.Build(corpus)
	placements := Build(g)

	limit := g.NodeCount() - 1
	for id, p := range placements {
		if p.Level > limit {
			t.Errorf("Build()[%q].Level = %d, exceeds cap %d", id, p.Level, limit)
		}
	}
}

func TestBuildSelfLoopIgnored(t *testing.T) {
	// A writes to itself and also to B. The self-loop must not push A off
	// level 0 or keep it out of the source class.
	corpus := lineage.Corpus{
		"s": {
			Name: "s",
			Tables: map[string]*lineage.TableDefinition{
				"A": {Targets: []lineage.Relationship{
					{TableName: "A", Operations: []int{0}},
					{TableName: "B", Operations: []int{1}},
				}},
			},
		},
	}
	placements := Build(graph.Build(corpus))

	if got := placements["A"].Level; got != 0 {
		t.Errorf("Build()[\"A\"].Level = %d, want 0", got)
	}
}

func TestBuildVolatileColumnOrder(t *testing.T) {
	// VT is volatile and sits on level 1 next to global table G; the
	// volatile column must render left of the intermediate one.
	corpus := lineage.Corpus{
		"s": {
			Name: "s",
			Tables: map[string]*lineage.TableDefinition{
				"VT": {
					IsVolatile: true,
					Sources:    []lineage.Relationship{{TableName: "SRC", Operations: []int{0}}},
					Targets:    []lineage.Relationship{{TableName: "OUT1", Operations: []int{1}}},
				},
				"G": {
					Sources: []lineage.Relationship{{TableName: "SRC", Operations: []int{2}}},
					Targets: []lineage.Relationship{{TableName: "OUT2", Operations: []int{3}}},
				},
			},
		},
	}
	placements := Build(graph.Build(corpus))

	vt := placements["s::VT"]
	g := placements["G"]
	if vt.Level != g.Level {
		t.Fatalf("levels differ: VT=%d, G=%d", vt.Level, g.Level)
	}
	if vt.X >= g.X {
		t.Errorf("volatile column X = %v, want less than intermediate X = %v", vt.X, g.X)
	}
}

func TestBuildVerticalCentering(t *testing.T) {
	// Three sinks in one column: rows must be centered around y=0.
	corpus := lineage.Corpus{
		"s": {
			Name: "s",
			Tables: map[string]*lineage.TableDefinition{
				"B": {
					Sources: []lineage.Relationship{{TableName: "A", Operations: []int{0}}},
					Targets: []lineage.Relationship{
						{TableName: "O1", Operations: []int{1}},
						{TableName: "O2", Operations: []int{2}},
						{TableName: "O3", Operations: []int{3}},
					},
				},
			},
		},
	}
	placements := Build(graph.Build(corpus))

	var sum float64
	for _, id := range []string{"O1", "O2", "O3"} {
		sum += placements[id].Y
	}
	if sum != 0 {
		t.Errorf("sink column y sum = %v, want 0 (centered)", sum)
	}
	if got, want := placements["O3"].Y-placements["O2"].Y, float64(RowSpacing); got != want {
		t.Errorf("row spacing = %v, want %v", got, want)
	}
}

func TestBuildSubColumnSplit(t *testing.T) {
	// More sinks than MaxColumnNodes: the class must split into several
	// sub-columns with distinct column indices and x offsets.
	targets := make([]lineage.Relationship, MaxColumnNodes+5)
	for i := range targets {
		targets[i] = lineage.Relationship{TableName: fmt.Sprintf("OUT_%02d", i), Operations: []int{i}}
	}
	corpus := lineage.Corpus{
		"s": {
			Name: "s",
			Tables: map[string]*lineage.TableDefinition{
				"B": {
					Sources: []lineage.Relationship{{TableName: "A", Operations: []int{0}}},
					Targets: targets,
				},
			},
		},
	}
	placements := Build(graph.Build(corpus))

	columns := make(map[int]int)
	for i := range targets {
		p := placements[targets[i].TableName]
		columns[p.Column]++
	}
	if len(columns) < 2 {
		t.Fatalf("sink class occupies %d column(s), want at least 2", len(columns))
	}
	for col, n := range columns {
		if n > MaxColumnNodes {
			t.Errorf("column %d holds %d nodes, want at most %d", col, n, MaxColumnNodes)
		}
	}
}

func TestBuildEmptyGraph(t *testing.T) {
	placements := Build(graph.Build(nil))
	if len(placements) != 0 {
		t.Errorf("Build() on empty graph returned %d placements, want 0", len(placements))
	}
}

func TestBuildDeterministic(t *testing.T) {
	g := graph.Build(chain())
	first := Build(g)
	for i := 0; i < 5; i++ {
		if again := Build(g); fmt.Sprint(again) != fmt.Sprint(first) {
			t.Fatalf("Build() run %d differs from first run", i+1)
		}
	}
}
