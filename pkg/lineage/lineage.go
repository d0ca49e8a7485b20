// Package lineage defines the input data model for lineamap: per-script
// table-relationship records extracted from BTEQ/SQL ETL scripts.
//
// Records arrive pre-parsed, one JSON document per script. A record lists
// the script's SQL statements and, for every table the script touches, the
// tables feeding it (sources) and the tables it feeds (targets), each tagged
// with the statement indices that implement the data flow.
//
// The package deliberately knows nothing about graphs - it only decodes and
// validates records. Graph construction lives in pkg/graph.
package lineage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
)

var (
	// ErrMissingScriptName is returned when a record has no script_name.
	ErrMissingScriptName = errors.New("record has no script_name")

	// ErrEmptyTableName is returned when a relationship references a table
	// with an empty name.
	ErrEmptyTableName = errors.New("relationship has empty table name")

	// ErrNegativeOperation is returned when a relationship carries a
	// negative statement index.
	ErrNegativeOperation = errors.New("operation index must not be negative")
)

// Relationship links a table to one related table, tagged with the indices
// of the SQL statements (0-based, into the owning script's statement list)
// that implement the flow. A relationship with no operation indices is a
// bare reference and never produces a graph edge.
type Relationship struct {
	TableName  string
	Operations []int
}

// TableDefinition describes one table as seen by one script.
// Volatile tables are transient and private to the script that creates
// them; non-volatile tables are shared process-wide by name.
type TableDefinition struct {
	IsVolatile bool
	Sources    []Relationship // tables feeding this one
	Targets    []Relationship // tables this one feeds
}

// ScriptLineage is the decoded record for a single ETL script.
type ScriptLineage struct {
	Name       string
	Statements []string
	Tables     map[string]*TableDefinition
	Warnings   []string // parser warnings, passed through untouched
}

// Corpus is the full multi-script input for one graph rebuild,
// keyed by script name.
type Corpus map[string]*ScriptLineage

// ScriptNames returns the corpus script names in sorted order.
// All multi-script iteration in the engine uses this order so that
// ownership tie-breaks and cross-script lookups are deterministic.
func (c Corpus) ScriptNames() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// =============================================================================
// Wire Format
// =============================================================================

// record is the JSON wire form of a per-script lineage document.
type record struct {
	ScriptName     string                 `json:"script_name"`
	BteqStatements []string               `json:"bteq_statements"`
	Tables         map[string]tableRecord `json:"tables"`
	Warnings       []string               `json:"warnings"`
}

type tableRecord struct {
	Source     []relationshipRecord `json:"source"`
	Target     []relationshipRecord `json:"target"`
	IsVolatile bool                 `json:"is_volatile"`
}

type relationshipRecord struct {
	Name      string `json:"name"`
	Operation []int  `json:"operation"`
}

// ReadScript decodes a single per-script lineage record from r.
// A record without tables is valid and decodes to an empty table map.
// Relationships are validated on construction: an empty related-table name
// or a negative operation index is a decode error, not a silent skip.
func ReadScript(r io.Reader) (*ScriptLineage, error) {
	var rec record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec.toLineage()
}

// ReadScriptFile reads and decodes the per-script record at path.
func ReadScriptFile(path string) (*ScriptLineage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := ReadScript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (rec record) toLineage() (*ScriptLineage, error) {
	if rec.ScriptName == "" {
		return nil, ErrMissingScriptName
	}

	s := &ScriptLineage{
		Name:       rec.ScriptName,
		Statements: rec.BteqStatements,
		Tables:     make(map[string]*TableDefinition, len(rec.Tables)),
		Warnings:   rec.Warnings,
	}

	for name, tr := range rec.Tables {
		if name == "" {
			return nil, fmt.Errorf("script %s: %w", rec.ScriptName, ErrEmptyTableName)
		}
		def := &TableDefinition{IsVolatile: tr.IsVolatile}
		var err error
		if def.Sources, err = toRelationships(tr.Source); err != nil {
			return nil, fmt.Errorf("script %s, table %s: %w", rec.ScriptName, name, err)
		}
		if def.Targets, err = toRelationships(tr.Target); err != nil {
			return nil, fmt.Errorf("script %s, table %s: %w", rec.ScriptName, name, err)
		}
		s.Tables[name] = def
	}

	return s, nil
}

func toRelationships(recs []relationshipRecord) ([]Relationship, error) {
	rels := make([]Relationship, 0, len(recs))
	for _, rr := range recs {
		if rr.Name == "" {
			return nil, ErrEmptyTableName
		}
		for _, op := range rr.Operation {
			if op < 0 {
				return nil, fmt.Errorf("%w: %d (table %s)", ErrNegativeOperation, op, rr.Name)
			}
		}
		rels = append(rels, Relationship{TableName: rr.Name, Operations: slices.Clone(rr.Operation)})
	}
	return rels, nil
}

// MarshalScript encodes a ScriptLineage back to its wire form.
// Used by tests and the snapshot tooling; the engine itself only reads.
func MarshalScript(s *ScriptLineage) ([]byte, error) {
	rec := record{
		ScriptName:     s.Name,
		BteqStatements: s.Statements,
		Tables:         make(map[string]tableRecord, len(s.Tables)),
		Warnings:       s.Warnings,
	}
	for name, def := range s.Tables {
		rec.Tables[name] = tableRecord{
			Source:     fromRelationships(def.Sources),
			Target:     fromRelationships(def.Targets),
			IsVolatile: def.IsVolatile,
		}
	}
	return json.MarshalIndent(rec, "", "  ")
}

func fromRelationships(rels []Relationship) []relationshipRecord {
	out := make([]relationshipRecord, len(rels))
	for i, r := range rels {
		out[i] = relationshipRecord{Name: r.TableName, Operation: slices.Clone(r.Operations)}
	}
	return out
}
