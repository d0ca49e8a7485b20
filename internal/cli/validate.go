package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lineamap/lineamap/pkg/graph"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	opts := &runOpts{}
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Report structural and ownership anomalies in the lineage graph",
		Long: `Validate builds the lineage graph and reports anomalies: self-loops,
volatile tables referenced across scripts, duplicate table names, and
ownership violations. Findings are diagnostics; the graph stays usable.

With --strict, any finding makes the command exit non-zero, for use in
CI over a lineage corpus.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), opts, strict)
		},
	}

	opts.addSourceFlags(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any anomaly is found")

	return cmd
}

func (c *CLI) runValidate(ctx context.Context, opts *runOpts, strict bool) error {
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

	printStats(result.Stats.ScriptCount, result.Graph.NodeCount(), result.Graph.EdgeCount(), result.CacheInfo.BuildHit)
	printResolution(result.Resolution)
	printReport(result.Report)

	total := countFindings(result.Report) + result.Resolution.Violations()
	if total == 0 {
		printSuccess("No anomalies found")
		return nil
	}
	printNewline()
	printInfo("%d anomalies found", total)
	if strict {
		return fmt.Errorf("validation found %d anomalies", total)
	}
	return nil
}

// printReport prints each validator finding on its own line.
func printReport(rep graph.Report) {
	for _, e := range rep.SelfLoops {
		printWarning("self-loop on %s", e.From)
	}
	for _, e := range rep.CrossScriptVolatileEdges {
		printWarning("volatile edge %s %s %s crosses scripts", e.From, iconArrow, e.To)
	}
	for _, id := range rep.OwnerlessVolatiles {
		printWarning("volatile table %s has no owner", id)
	}
	for _, id := range rep.MultiOwnerVolatiles {
		printWarning("volatile table %s has multiple owners", id)
	}

	names := make([]string, 0, len(rep.DuplicateTableNames))
	for name := range rep.DuplicateTableNames {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printDetail("name %s resolves to %s", name, strings.Join(rep.DuplicateTableNames[name], ", "))
	}
}

func countFindings(rep graph.Report) int {
	return len(rep.SelfLoops) +
		len(rep.CrossScriptVolatileEdges) +
		len(rep.OwnerlessVolatiles) +
		len(rep.MultiOwnerVolatiles) +
		len(rep.DuplicateTableNames)
}
