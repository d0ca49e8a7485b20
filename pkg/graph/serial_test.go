package graph

import (
	"bytes"
	"errors"
	"path/filepath"
	"slices"
	"testing"
)

func TestSerializationRoundTrip(t *testing.T) {
	corpus := sampleCorpus()
	g := Build(corpus)
	Resolve(g, corpus)

	data, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	back, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}

	if back.NodeCount() != g.NodeCount() || back.EdgeCount() != g.EdgeCount() {
		t.Fatalf("round trip = %d nodes / %d edges, want %d / %d",
			back.NodeCount(), back.EdgeCount(), g.NodeCount(), g.EdgeCount())
	}
	for _, n := range g.Nodes() {
		got, ok := back.Node(n.ID)
		if !ok {
			t.Errorf("round trip missing node %q", n.ID)
			continue
		}
		if got.Name != n.Name || got.IsVolatile != n.IsVolatile || !slices.Equal(got.Owners, n.Owners) {
			t.Errorf("node %q = %+v, want %+v", n.ID, got, n)
		}
	}
	for _, e := range g.Edges() {
		got, ok := back.Edge(e.From, e.To)
		if !ok {
			t.Errorf("round trip missing edge %s -> %s", e.From, e.To)
			continue
		}
		if !slices.Equal(got.Operations, e.Operations) {
			t.Errorf("edge %s -> %s Operations = %v, want %v", e.From, e.To, got.Operations, e.Operations)
		}
	}
}

func TestMarshalDeterministic(t *testing.T) {
	corpus := sampleCorpus()
	g := Build(corpus)
	Resolve(g, corpus)

	first, err := Marshal(g)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Marshal(g)
		if err != nil {
			t.Fatalf("Marshal() run %d unexpected error: %v", i+1, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("Marshal() run %d differs from first run", i+1)
		}
	}
}

func TestFromDocumentDuplicateNode(t *testing.T) {
	doc := Document{
		Nodes: []NodeRecord{{ID: "T", Name: "T"}, {ID: "T", Name: "T"}},
	}
	if _, err := FromDocument(doc); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("FromDocument() error = %v, want ErrDuplicateNode", err)
	}
}

func TestFromDocumentUnknownEndpoint(t *testing.T) {
	doc := Document{
		Nodes: []NodeRecord{{ID: "A", Name: "A"}},
		Edges: []EdgeRecord{{From: "A", To: "MISSING", Operations: []string{"s::op0"}}},
	}
	if _, err := FromDocument(doc); !errors.Is(err, ErrUnknownEdgeEndpoint) {
		t.Errorf("FromDocument() error = %v, want ErrUnknownEdgeEndpoint", err)
	}
}

func TestWriteFileReadFile(t *testing.T) {
	corpus := sampleCorpus()
	g := Build(corpus)
	Resolve(g, corpus)

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := WriteFile(g, path); err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() unexpected error: %v", err)
	}
	if back.NodeCount() != g.NodeCount() {
		t.Errorf("ReadFile() NodeCount() = %d, want %d", back.NodeCount(), g.NodeCount())
	}
}

func TestReadRejectsMalformedJSON(t *testing.T) {
	if _, err := Unmarshal([]byte("{not json")); err == nil {
		t.Error("Unmarshal() error = nil for malformed input, want error")
	}
}
