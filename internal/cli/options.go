package cli

import (
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lineamap/lineamap/pkg/pipeline"
)

// =============================================================================
// Shared Command Options
// =============================================================================

// runOpts holds the command-line flags shared by the pipeline commands.
type runOpts struct {
	manifest string // manifest file listing record paths
	dir      string // directory of record files
	scripts  string // comma-separated script filter
	tables   string // comma-separated table filter
	mode     string // traversal mode for table filters
	output   string // output file path (stdout if empty)
	refresh  bool   // bypass the pipeline cache
	noCache  bool   // disable caching entirely
}

// addSourceFlags registers the corpus source flags.
func (o *runOpts) addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.manifest, "manifest", "m", "", "manifest file listing lineage record paths")
	cmd.Flags().StringVarP(&o.dir, "dir", "d", "", "directory of lineage record files")
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "bypass cache")
	cmd.Flags().BoolVar(&o.noCache, "no-cache", false, "disable caching")
}

// addFilterFlags registers the query filter flags.
func (o *runOpts) addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.scripts, "scripts", "s", "", "comma-separated script names to filter by")
	cmd.Flags().StringVarP(&o.tables, "tables", "t", "", "comma-separated table names to filter by")
	cmd.Flags().StringVar(&o.mode, "mode", "direct", "traversal mode: direct, impacts_by, impacted_by, both")
}

// addOutputFlag registers the output path flag.
func (o *runOpts) addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output file (stdout if empty)")
}

// pipelineOptions converts the flags into pipeline options.
func (o *runOpts) pipelineOptions() pipeline.Options {
	return pipeline.Options{
		Manifest: o.manifest,
		Dir:      o.dir,
		Scripts:  splitList(o.scripts),
		Tables:   splitList(o.tables),
		Mode:     o.mode,
		Refresh:  o.refresh,
	}
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// =============================================================================
// Output Helpers
// =============================================================================

// nopCloser wraps an io.Writer with a no-op Close method.
// It is used to make os.Stdout compatible with io.WriteCloser.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
// Otherwise, it creates the file at path, overwriting if it exists.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}
