package graph

import "slices"

// Report collects structural anomalies found in a resolved graph.
// All findings are diagnostics for operators and tests; none affect
// control flow.
type Report struct {
	// CrossScriptVolatileEdges lists edges whose endpoints are both
	// volatile nodes with no owning script in common. A volatile table
	// should never be referenced outside its owning script, so each entry
	// is a likely data-modeling defect in the source scripts.
	CrossScriptVolatileEdges []*Edge `json:"cross_script_volatile_edges,omitempty" bson:"cross_script_volatile_edges,omitempty"`

	// SelfLoops lists edges from a node to itself.
	SelfLoops []*Edge `json:"self_loops,omitempty" bson:"self_loops,omitempty"`

	// DuplicateTableNames maps bare table names that resolve to more than
	// one node ID (a global node plus volatile ones, or volatile nodes in
	// several scripts) to the sorted IDs involved. Informational.
	DuplicateTableNames map[string][]string `json:"duplicate_table_names,omitempty" bson:"duplicate_table_names,omitempty"`

	// OwnerlessVolatiles lists volatile node IDs with an empty owner set.
	OwnerlessVolatiles []string `json:"ownerless_volatiles,omitempty" bson:"ownerless_volatiles,omitempty"`

	// MultiOwnerVolatiles lists volatile node IDs that still carry more
	// than one owner. After a Resolve run this should always be empty.
	MultiOwnerVolatiles []string `json:"multi_owner_volatiles,omitempty" bson:"multi_owner_volatiles,omitempty"`
}

// Clean reports whether the validator found nothing at all.
func (r Report) Clean() bool {
	return len(r.CrossScriptVolatileEdges) == 0 &&
		len(r.SelfLoops) == 0 &&
		len(r.DuplicateTableNames) == 0 &&
		len(r.OwnerlessVolatiles) == 0 &&
		len(r.MultiOwnerVolatiles) == 0
}

// Validate scans a graph for rule violations and structural anomalies.
// It is pure and read-only; run it after Resolve for a meaningful owner
// view.
func Validate(g *Graph) Report {
	var rep Report

	for _, e := range g.Edges() {
		if e.SelfLoop() {
			rep.SelfLoops = append(rep.SelfLoops, e)
		}
		from, okF := g.Node(e.From)
		to, okT := g.Node(e.To)
		if !okF || !okT {
			continue
		}
		if from.IsVolatile && to.IsVolatile && !e.SelfLoop() && !intersects(from.Owners, to.Owners) {
			rep.CrossScriptVolatileEdges = append(rep.CrossScriptVolatileEdges, e)
		}
	}

	byName := make(map[string][]string)
	for _, n := range g.Nodes() {
		byName[n.Name] = append(byName[n.Name], n.ID)

		if n.IsVolatile {
			switch {
			case len(n.Owners) == 0:
				rep.OwnerlessVolatiles = append(rep.OwnerlessVolatiles, n.ID)
			case len(n.Owners) > 1:
				rep.MultiOwnerVolatiles = append(rep.MultiOwnerVolatiles, n.ID)
			}
		}
	}
	for name, ids := range byName {
		if len(ids) > 1 {
			slices.Sort(ids)
			if rep.DuplicateTableNames == nil {
				rep.DuplicateTableNames = make(map[string][]string)
			}
			rep.DuplicateTableNames[name] = ids
		}
	}

	return rep
}
