package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/lineamap/lineamap/pkg/graph"
	"github.com/lineamap/lineamap/pkg/layout"
)

// layoutDocument is the JSON shape written by the layout command: the
// filtered graph plus one placement per node.
type layoutDocument struct {
	Graph      graph.Document              `json:"graph"`
	Placements map[string]layout.Placement `json:"placements"`
}

// layoutCommand creates the layout command.
func (c *CLI) layoutCommand() *cobra.Command {
	opts := &runOpts{}

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute node placements for the lineage graph",
		Long: `Layout runs the full pipeline and assigns each table a level, column,
and canvas coordinate. Filters are applied before layout, so placements
cover exactly the filtered subgraph.

Examples:
  lineamap layout -d ./records -o layout.json
  lineamap layout -d ./records -t CUSTOMER_DIM --mode both`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), opts)
		},
	}

	opts.addSourceFlags(cmd)
	opts.addFilterFlags(cmd)
	opts.addOutputFlag(cmd)

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, opts *runOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := runner.Execute(ctx, opts.pipelineOptions())
	if err != nil {
		return err
	}

	printSuccess("Placed %d tables", len(result.Placements))
	printStats(result.Stats.ScriptCount, result.Subgraph.NodeCount(), result.Subgraph.EdgeCount(), result.CacheInfo.LayoutHit)

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(layoutDocument{
		Graph:      graph.ToDocument(result.Subgraph),
		Placements: result.Placements,
	}); err != nil {
		return err
	}
	if opts.output != "" {
		printFile(opts.output)
	}
	return nil
}
