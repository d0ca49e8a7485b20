package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	opts := &runOpts{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter the lineage graph by script or table",
		Long: `Query builds the lineage graph and extracts the subgraph matching the
given filters. Script filters keep tables owned by the named scripts;
table filters keep the named tables plus their neighborhood in the
chosen traversal mode.

Modes:
  direct       matched tables plus their one-hop neighbors (default)
  impacts_by   everything downstream of the matched tables
  impacted_by  everything upstream of the matched tables
  both         upstream and downstream closure

Examples:
  lineamap query -d ./records -t CUSTOMER_DIM --mode impacts_by
  lineamap query -d ./records -s load_orders,load_sales
  lineamap query -m corpus.txt -t ETL_AUDIT_LOG --mode impacted_by -o sub.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runQuery(cmd.Context(), opts)
		},
	}

	opts.addSourceFlags(cmd)
	opts.addFilterFlags(cmd)
	opts.addOutputFlag(cmd)

	return cmd
}

func (c *CLI) runQuery(ctx context.Context, opts *runOpts) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	popts := opts.pipelineOptions()
	popts.SkipLayout = true

	result, err := runner.Execute(ctx, popts)
	if err != nil {
		return err
	}

	sub := result.Subgraph
	printSuccess("Matched %d of %d tables", sub.NodeCount(), result.Graph.NodeCount())
	printStats(result.Stats.ScriptCount, sub.NodeCount(), sub.EdgeCount(), result.CacheInfo.BuildHit)

	return writeGraphOutput(sub, opts.output)
}
