package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lineamap/lineamap/pkg/cache"
	"github.com/lineamap/lineamap/pkg/lineage"
)

const sampleRecord = `{
  "script_name": "sample_sql",
  "tables": {
    "TEMP_CUSTOMER_DATA": {
      "is_volatile": true,
      "source": [
        {"name": "CUSTOMER_DIM", "operation": [0]},
        {"name": "ORDER_FACT", "operation": [1]}
      ],
      "target": [
        {"name": "CUSTOMER_SUMMARY", "operation": [2]},
        {"name": "CUSTOMER_REPORTING", "operation": [3]}
      ]
    },
    "CUSTOMER_REPORTING": {
      "source": [
        {"name": "SALES_REP_DIM", "operation": [4]}
      ],
      "target": [
        {"name": "ETL_AUDIT_LOG", "operation": [5]}
      ]
    }
  }
}`

func corpusDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sample_sql.json"), []byte(sampleRecord), 0o644); err != nil {
		t.Fatalf("write record: %v", err)
	}
	return dir
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"no source", Options{}, true},
		{"both sources", Options{Manifest: "m.txt", Dir: "d"}, true},
		{"bad mode", Options{Dir: "d", Mode: "sideways"}, true},
		{"dir only", Options{Dir: "d"}, false},
		{"manifest only", Options{Manifest: "m.txt"}, false},
		{"explicit mode", Options{Dir: "d", Mode: "impacts_by"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if tt.wantErr && err == nil {
				t.Error("ValidateAndSetDefaults() error = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateAndSetDefaults() unexpected error: %v", err)
			}
		})
	}
}

func TestOptionsDefaultMode(t *testing.T) {
	opts := Options{Dir: "d"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() unexpected error: %v", err)
	}
	if opts.Mode != "direct" {
		t.Errorf("default Mode = %q, want %q", opts.Mode, "direct")
	}
}

func TestExecute(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), Options{Dir: corpusDir(t)})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	if result.Stats.ScriptCount != 1 {
		t.Errorf("ScriptCount = %d, want 1", result.Stats.ScriptCount)
	}
	if result.Graph.NodeCount() == 0 {
		t.Fatal("Execute() returned empty graph")
	}
	if result.Subgraph != result.Graph {
		t.Error("unfiltered Subgraph should be the full graph")
	}
	if result.Resolution.Violations() != 0 {
		t.Errorf("Violations() = %d, want 0", result.Resolution.Violations())
	}
	if len(result.Placements) != result.Graph.NodeCount() {
		t.Errorf("Placements = %d entries, want %d", len(result.Placements), result.Graph.NodeCount())
	}
	if result.CorpusHash == "" {
		t.Error("CorpusHash is empty")
	}
}

func TestExecuteFiltered(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), Options{
		Dir:    corpusDir(t),
		Tables: []string{"ETL_AUDIT_LOG"},
		Mode:   "impacted_by",
	})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	if result.Subgraph == result.Graph {
		t.Fatal("filtered Subgraph should not be the full graph")
	}
	for _, id := range []string{"ETL_AUDIT_LOG", "CUSTOMER_REPORTING", "sample_sql::TEMP_CUSTOMER_DATA", "CUSTOMER_DIM"} {
		if _, ok := result.Subgraph.Node(id); !ok {
			t.Errorf("filtered subgraph missing node %q", id)
		}
	}
	if _, ok := result.Subgraph.Node("CUSTOMER_SUMMARY"); ok {
		t.Error("filtered subgraph contains non-upstream CUSTOMER_SUMMARY")
	}
	if len(result.Placements) != result.Subgraph.NodeCount() {
		t.Errorf("Placements cover %d nodes, want %d", len(result.Placements), result.Subgraph.NodeCount())
	}
}

func TestExecuteSkipLayout(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil, nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), Options{Dir: corpusDir(t), SkipLayout: true})
	if err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}
	if result.Placements != nil {
		t.Errorf("Placements = %d entries with SkipLayout, want nil", len(result.Placements))
	}
}

func TestExecuteCaching(t *testing.T) {
	fileCache, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	runner := NewRunner(fileCache, nil, nil)
	defer runner.Close()

	dir := corpusDir(t)
	ctx := context.Background()

	first, err := runner.Execute(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("first Execute() unexpected error: %v", err)
	}
	if first.CacheInfo.BuildHit || first.CacheInfo.LayoutHit {
		t.Error("first run should not hit the cache")
	}

	second, err := runner.Execute(ctx, Options{Dir: dir})
	if err != nil {
		t.Fatalf("second Execute() unexpected error: %v", err)
	}
	if !second.CacheInfo.BuildHit {
		t.Error("second run should hit the build cache")
	}
	if !second.CacheInfo.LayoutHit {
		t.Error("second run should hit the layout cache")
	}

	// Cached graph must match the fresh one
	if second.Graph.NodeCount() != first.Graph.NodeCount() ||
		second.Graph.EdgeCount() != first.Graph.EdgeCount() {
		t.Errorf("cached graph = %d/%d, want %d/%d",
			second.Graph.NodeCount(), second.Graph.EdgeCount(),
			first.Graph.NodeCount(), first.Graph.EdgeCount())
	}

	// Refresh bypasses the cache
	third, err := runner.Execute(ctx, Options{Dir: dir, Refresh: true})
	if err != nil {
		t.Fatalf("refresh Execute() unexpected error: %v", err)
	}
	if third.CacheInfo.BuildHit {
		t.Error("refresh run should not hit the build cache")
	}
}

func TestExecuteLoadFailure(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil, nil)
	defer runner.Close()

	if _, err := runner.Execute(context.Background(), Options{Dir: "/does/not/exist"}); err == nil {
		t.Error("Execute() error = nil for missing dir, want error")
	}
}

func TestCorpusHashDeterministic(t *testing.T) {
	build := func() lineage.Corpus {
		c := make(lineage.Corpus)
		for i := 0; i < 5; i++ {
			name := fmt.Sprintf("script_%d", i)
			c[name] = &lineage.ScriptLineage{
				Name:   name,
				Tables: map[string]*lineage.TableDefinition{"T": {}},
			}
		}
		return c
	}

	h1 := CorpusHash(build())
	h2 := CorpusHash(build())
	if h1 != h2 {
		t.Error("CorpusHash should be identical for equal corpora")
	}

	changed := build()
	changed["script_0"].Tables["EXTRA"] = &lineage.TableDefinition{}
	if CorpusHash(changed) == h1 {
		t.Error("CorpusHash should change when a script changes")
	}
}
