package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lineamap/lineamap/pkg/graph"
)

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	opts := &runOpts{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the lineage graph from a corpus of script records",
		Long: `Build assembles the full table-level lineage graph from per-script
lineage records, resolves table ownership, and writes the graph as JSON.

Examples:
  lineamap build -d ./records                 # All records in a directory
  lineamap build -m corpus.txt -o graph.json  # Manifest file, write to disk
  lineamap build -d ./records --refresh       # Bypass the result cache`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), opts)
		},
	}

	opts.addSourceFlags(cmd)
	opts.addOutputFlag(cmd)

	return cmd
}

func (c *CLI) runBuild(ctx context.Context, opts *runOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := opts.pipelineOptions()
	popts.SkipLayout = true

	spin := newSpinner(ctx, "Building lineage graph")
	spin.Start()
	result, err := runner.Execute(ctx, popts)
	if err != nil {
		spin.StopWithError("Build failed")
		return err
	}
	spin.Stop()

	printSuccess("Built lineage graph")
	printStats(result.Stats.ScriptCount, result.Graph.NodeCount(), result.Graph.EdgeCount(), result.CacheInfo.BuildHit)
	printResolution(result.Resolution)

	if err := writeGraphOutput(result.Graph, opts.output); err != nil {
		return err
	}
	if opts.output != "" {
		printNextStep("Trace a table", fmt.Sprintf("lineamap query -d %s -t <table> --mode impacted_by", sourceArg(opts)))
	}
	return nil
}

// printResolution surfaces ownership repairs as warnings.
func printResolution(res graph.Resolution) {
	for _, id := range res.MultiOwnerVolatiles {
		printWarning("volatile table %s had multiple owners; kept the first defining script", id)
	}
	for _, id := range res.OwnerlessVolatiles {
		printWarning("volatile table %s has no owning script", id)
	}
}

// writeGraphOutput serializes g as JSON to path (or stdout if empty).
func writeGraphOutput(g *graph.Graph, path string) error {
	out, err := openOutput(path)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := graph.Write(g, out); err != nil {
		return err
	}
	if path != "" {
		printFile(path)
	}
	return nil
}

// sourceArg echoes back the source flag the user passed, for next-step hints.
func sourceArg(opts *runOpts) string {
	if opts.manifest != "" {
		return opts.manifest
	}
	return opts.dir
}
