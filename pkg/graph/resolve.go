package graph

import (
	"slices"

	"github.com/lineamap/lineamap/pkg/lineage"
)

// Resolution reports what the ownership resolver had to repair.
// Both conditions are diagnostics, never errors: the graph stays usable.
type Resolution struct {
	// MultiOwnerVolatiles lists volatile node IDs that accumulated more
	// than one owner. The resolver keeps the first contributor (scripts
	// are visited in sorted name order, so this is the lexicographically
	// first defining script) and drops the rest.
	MultiOwnerVolatiles []string `json:"multi_owner_volatiles,omitempty" bson:"multi_owner_volatiles,omitempty"`

	// OwnerlessVolatiles lists volatile node IDs that ended with no owner
	// at all. They are kept as-is.
	OwnerlessVolatiles []string `json:"ownerless_volatiles,omitempty" bson:"ownerless_volatiles,omitempty"`
}

// Violations returns the total number of ownership invariant violations.
func (r Resolution) Violations() int {
	return len(r.MultiOwnerVolatiles) + len(r.OwnerlessVolatiles)
}

// Resolve computes the complete owner set for every node and enforces the
// single-owner invariant for volatile nodes. It rewrites only the Owners
// field; everything else in the graph is untouched.
//
// Ownership is accumulated in three steps, keyed by the ownership key
// (node ID for volatile tables, bare name for global ones):
//
//  1. Every defining script owns its table.
//  2. Every script that references a table resolving to a global
//     definition co-owns that table. Referencing a volatile table never
//     grants ownership.
//  3. The propagation of step 2 is repeated over the node set itself,
//     using each node's recorded relationships and defining script. This
//     covers nodes that entered the graph through a reference before their
//     defining script was processed.
//
// Finally each node's Owners becomes the sorted distinct union of its
// key's contributors - except volatile nodes, which keep exactly their
// first contributor; extra contributors are recorded as violations.
func Resolve(g *Graph, corpus lineage.Corpus) Resolution {
	idx := buildIndex(corpus)
	owners := make(map[string][]string) // ownership key -> contributors, insertion order

	claim := func(key, script string) {
		if !slices.Contains(owners[key], script) {
			owners[key] = append(owners[key], script)
		}
	}

	// Step 1: definitions.
	for _, script := range corpus.ScriptNames() {
		s := corpus[script]
		if s == nil || s.Tables == nil {
			continue
		}
		for _, name := range sortedTableNames(s.Tables) {
			def := s.Tables[name]
			claim(ownershipKey(script, name, def.IsVolatile), script)
		}
	}

	// Step 2: references to global tables.
	for _, script := range corpus.ScriptNames() {
		s := corpus[script]
		if s == nil || s.Tables == nil {
			continue
		}
		for _, name := range sortedTableNames(s.Tables) {
			def := s.Tables[name]
			for _, rel := range def.Sources {
				claimGlobalReference(idx, claim, rel.TableName, script)
			}
			for _, rel := range def.Targets {
				claimGlobalReference(idx, claim, rel.TableName, script)
			}
		}
	}

	// Step 3: the same propagation over the node set's recorded
	// relationships.
	for _, n := range g.Nodes() {
		if n.DefinedBy == "" {
			continue
		}
		for _, rel := range n.Sources {
			claimGlobalReference(idx, claim, rel.TableName, n.DefinedBy)
		}
		for _, rel := range n.Targets {
			claimGlobalReference(idx, claim, rel.TableName, n.DefinedBy)
		}
	}

	// Finalize.
	var res Resolution
	for _, n := range g.Nodes() {
		key := ownershipKey(n.DefinedBy, n.Name, n.IsVolatile)
		contributors := owners[key]

		switch {
		case n.IsVolatile && len(contributors) > 1:
			n.Owners = []string{contributors[0]}
			res.MultiOwnerVolatiles = append(res.MultiOwnerVolatiles, n.ID)
		case n.IsVolatile && len(contributors) == 0:
			n.Owners = nil
			res.OwnerlessVolatiles = append(res.OwnerlessVolatiles, n.ID)
		default:
			sorted := slices.Clone(contributors)
			slices.Sort(sorted)
			n.Owners = slices.Compact(sorted)
		}
	}
	return res
}

// claimGlobalReference adds script as a co-owner of the referenced table if
// it resolves to a global definition anywhere in the corpus.
func claimGlobalReference(idx *tableIndex, claim func(key, script string), name, script string) {
	if _, def, ok := idx.resolve(name, script); ok && !def.IsVolatile {
		claim(name, script)
	}
}

// ownershipKey is the node ID for volatile tables and the bare name for
// global tables (external nodes included: DefinedBy is empty and the ID is
// already the bare name).
func ownershipKey(script, name string, volatile bool) string {
	if volatile {
		return nodeID(script, name, true)
	}
	return name
}
