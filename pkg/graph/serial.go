package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Graph Serialization
// =============================================================================

// Document is the canonical serialization format for lineage graphs, used
// for files, API responses, caching, and the snapshot store. Nodes and
// edges are sorted for deterministic output, so the encoding of equal
// graphs is byte-identical.
//
// A Document carries exactly what the external renderer consumes: node
// identity, volatility and ownership, plus edge endpoints and operation
// tokens. The raw per-table relationships are a build-time concern and are
// not serialized.
type Document struct {
	Nodes []NodeRecord `json:"nodes" bson:"nodes"`
	Edges []EdgeRecord `json:"edges" bson:"edges"`
}

// NodeRecord is the wire form of a Node.
type NodeRecord struct {
	ID         string   `json:"id" bson:"id"`
	Name       string   `json:"name" bson:"name"`
	IsVolatile bool     `json:"is_volatile,omitempty" bson:"is_volatile,omitempty"`
	Owners     []string `json:"owners,omitempty" bson:"owners,omitempty"`
}

// EdgeRecord is the wire form of an Edge.
type EdgeRecord struct {
	From       string   `json:"from" bson:"from"`
	To         string   `json:"to" bson:"to"`
	Operations []string `json:"operations" bson:"operations"`
}

// ToDocument converts a Graph to its serialization format.
func ToDocument(g *Graph) Document {
	nodes := g.Nodes()
	edges := g.Edges()

	doc := Document{
		Nodes: make([]NodeRecord, len(nodes)),
		Edges: make([]EdgeRecord, len(edges)),
	}
	for i, n := range nodes {
		doc.Nodes[i] = NodeRecord{
			ID:         n.ID,
			Name:       n.Name,
			IsVolatile: n.IsVolatile,
			Owners:     n.Owners,
		}
	}
	for i, e := range edges {
		doc.Edges[i] = EdgeRecord{From: e.From, To: e.To, Operations: e.Operations}
	}
	return doc
}

// FromDocument rebuilds a Graph from its serialization format.
// Returns ErrDuplicateNode for repeated node IDs and
// ErrUnknownEdgeEndpoint for edges referencing missing nodes.
//
// The rebuilt graph carries no raw relationships; ownership resolution is
// already baked into the owner sets, so queries and layout work unchanged.
func FromDocument(doc Document) (*Graph, error) {
	g := newGraph()
	for _, nr := range doc.Nodes {
		if _, exists := g.Node(nr.ID); exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, nr.ID)
		}
		g.addNode(&Node{
			ID:         nr.ID,
			Name:       nr.Name,
			IsVolatile: nr.IsVolatile,
			Owners:     nr.Owners,
			DefinedBy:  firstOwner(nr.Owners),
		})
	}
	for _, er := range doc.Edges {
		_, okF := g.Node(er.From)
		_, okT := g.Node(er.To)
		if !okF || !okT {
			return nil, fmt.Errorf("%w: %s -> %s", ErrUnknownEdgeEndpoint, er.From, er.To)
		}
		g.addEdge(er.From, er.To, er.Operations)
	}
	g.finalize()
	return g, nil
}

func firstOwner(owners []string) string {
	if len(owners) == 0 {
		return ""
	}
	return owners[0]
}

// Marshal encodes a Graph as indented JSON.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes JSON bytes into a Graph.
func Unmarshal(data []byte) (*Graph, error) {
	return Read(bytes.NewReader(data))
}

// Write encodes a Graph as indented JSON to w.
func Write(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ToDocument(g)); err != nil {
		return fmt.Errorf("encode graph: %w", err)
	}
	return nil
}

// Read decodes a JSON graph from r.
func Read(r io.Reader) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return FromDocument(doc)
}

// WriteFile writes a Graph to a JSON file with 0644 permissions.
func WriteFile(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(g, f)
}

// ReadFile reads a Graph from a JSON file.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}
