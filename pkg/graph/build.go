package graph

import (
	"slices"

	"github.com/lineamap/lineamap/pkg/lineage"
)

// Build constructs the lineage graph from a corpus in two passes.
//
// Pass 1 creates the node set: one node per defined table (scoped ID for
// volatile tables, bare name for global ones) and one external node per
// table that is referenced but defined nowhere. Creating every relationship
// endpoint up front guarantees pass 2 never sees a missing node.
//
// Pass 2 creates the edge set: a source relationship on table T yields the
// edge source→T, a target relationship yields T→target, each tagged with
// "script::opN" tokens for the statement indices implementing the flow.
// A relationship without operation indices never yields an edge. Edges are
// merged per ordered pair across all contributing scripts.
//
// A nil or empty corpus, and scripts without a table map, yield an empty
// graph rather than an error. Scripts are processed in sorted name order so
// first-definition wins deterministically.
//
// Build alone leaves provisional owner sets (defining scripts only); run
// [Resolve] afterwards to compute full ownership.
func Build(corpus lineage.Corpus) *Graph {
	g := newGraph()
	if len(corpus) == 0 {
		return g
	}
	idx := buildIndex(corpus)

	// Pass 1: nodes.
	for _, script := range corpus.ScriptNames() {
		s := corpus[script]
		if s == nil || s.Tables == nil {
			continue
		}
		for _, name := range sortedTableNames(s.Tables) {
			def := s.Tables[name]
			id := nodeID(script, name, def.IsVolatile)

			if existing, ok := g.Node(id); ok {
				// Another script already defined this global table; the
				// current script co-claims it but the first definition's
				// fields stand.
				existing.Owners = appendOwner(existing.Owners, script)
			} else {
				g.addNode(&Node{
					ID:         id,
					Name:       name,
					IsVolatile: def.IsVolatile,
					Owners:     []string{script},
					DefinedBy:  script,
					Sources:    def.Sources,
					Targets:    def.Targets,
				})
			}

			for _, rel := range def.Sources {
				g.ensureEndpoint(idx, rel.TableName, script)
			}
			for _, rel := range def.Targets {
				g.ensureEndpoint(idx, rel.TableName, script)
			}
		}
	}

	// Pass 2: edges.
	for _, script := range corpus.ScriptNames() {
		s := corpus[script]
		if s == nil || s.Tables == nil {
			continue
		}
		for _, name := range sortedTableNames(s.Tables) {
			def := s.Tables[name]
			tableID := nodeID(script, name, def.IsVolatile)
			if _, ok := g.Node(tableID); !ok {
				continue
			}

			for _, rel := range def.Sources {
				if len(rel.Operations) == 0 {
					continue
				}
				sourceID := g.endpointID(idx, rel.TableName, script)
				if _, ok := g.Node(sourceID); !ok {
					continue
				}
				g.addEdge(sourceID, tableID, operationTokens(script, rel.Operations))
			}
			for _, rel := range def.Targets {
				if len(rel.Operations) == 0 {
					continue
				}
				targetID := g.endpointID(idx, rel.TableName, script)
				if _, ok := g.Node(targetID); !ok {
					continue
				}
				g.addEdge(tableID, targetID, operationTokens(script, rel.Operations))
			}
		}
	}

	g.finalize()
	return g
}

// endpointID resolves a referenced table name to its node ID: scoped if the
// resolved definition is volatile, bare name otherwise (including the
// external no-definition case).
func (g *Graph) endpointID(idx *tableIndex, name, currentScript string) string {
	script, def, ok := idx.resolve(name, currentScript)
	if !ok {
		return name
	}
	return nodeID(script, name, def.IsVolatile)
}

// ensureEndpoint materializes the node for a referenced table if it does
// not exist yet. Tables resolved to a definition get that definition's
// identity and fields; unresolved references become external global nodes
// with no owners.
func (g *Graph) ensureEndpoint(idx *tableIndex, name, currentScript string) {
	script, def, ok := idx.resolve(name, currentScript)
	if !ok {
		if _, exists := g.Node(name); !exists {
			g.addNode(&Node{ID: name, Name: name})
		}
		return
	}

	id := nodeID(script, name, def.IsVolatile)
	if _, exists := g.Node(id); exists {
		return
	}
	g.addNode(&Node{
		ID:         id,
		Name:       name,
		IsVolatile: def.IsVolatile,
		Owners:     []string{script},
		DefinedBy:  script,
		Sources:    def.Sources,
		Targets:    def.Targets,
	})
}

func sortedTableNames(tables map[string]*lineage.TableDefinition) []string {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func appendOwner(owners []string, script string) []string {
	if slices.Contains(owners, script) {
		return owners
	}
	return append(owners, script)
}
