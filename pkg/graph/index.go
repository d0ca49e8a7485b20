package graph

import (
	"slices"

	"github.com/lineamap/lineamap/pkg/lineage"
)

// tableIndex maps a bare table name to every script that defines it.
// It is built once per rebuild and shared by the builder's two passes and
// all three resolver steps, replacing repeated linear scans over the
// corpus.
type tableIndex struct {
	byName map[string][]indexEntry
}

type indexEntry struct {
	script string
	def    *lineage.TableDefinition
}

func buildIndex(corpus lineage.Corpus) *tableIndex {
	idx := &tableIndex{byName: make(map[string][]indexEntry)}
	for _, script := range corpus.ScriptNames() {
		s := corpus[script]
		if s == nil || s.Tables == nil {
			continue
		}
		for name, def := range s.Tables {
			idx.byName[name] = append(idx.byName[name], indexEntry{script: script, def: def})
		}
	}
	// ScriptNames is sorted, so entries per name are already in script
	// order; sort defensively in case of future callers.
	for name := range idx.byName {
		slices.SortFunc(idx.byName[name], func(a, b indexEntry) int {
			if a.script < b.script {
				return -1
			}
			if a.script > b.script {
				return 1
			}
			return 0
		})
	}
	return idx
}

// resolve finds the defining script and TableDefinition for a table name.
// The referencing script's own definition wins; otherwise the
// lexicographically first defining script is used. Returns ok=false when no
// script defines the table (the caller materializes an external node).
func (idx *tableIndex) resolve(name, currentScript string) (script string, def *lineage.TableDefinition, ok bool) {
	entries := idx.byName[name]
	if len(entries) == 0 {
		return "", nil, false
	}
	for _, e := range entries {
		if e.script == currentScript {
			return e.script, e.def, true
		}
	}
	return entries[0].script, entries[0].def, true
}

// nodeID computes the graph node ID for a table defined by script:
// scoped for volatile tables, bare name for global tables.
func nodeID(script, name string, volatile bool) string {
	if volatile {
		return script + idSeparator + name
	}
	return name
}
