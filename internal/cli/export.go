package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lineamap/lineamap/pkg/render/dot"
)

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	opts := &runOpts{}
	var format string
	var showOps bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the lineage graph as DOT or SVG",
		Long: `Export runs the pipeline and renders the filtered subgraph with
Graphviz. Volatile tables are drawn dashed, external tables grey, and
layout levels become rank groups.

Examples:
  lineamap export -d ./records -o lineage.svg
  lineamap export -d ./records --format dot --ops -o lineage.dot
  lineamap export -d ./records -t CUSTOMER_DIM --mode both -o dim.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd.Context(), opts, format, showOps)
		},
	}

	opts.addSourceFlags(cmd)
	opts.addFilterFlags(cmd)
	opts.addOutputFlag(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: dot or svg")
	cmd.Flags().BoolVar(&showOps, "ops", false, "label edges with their operation tokens")

	return cmd
}

func (c *CLI) runExport(ctx context.Context, opts *runOpts, format string, showOps bool) error {
	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := runner.Execute(ctx, opts.pipelineOptions())
	if err != nil {
		return err
	}

	source := dot.ToDOT(result.Subgraph, dot.Options{
		ShowOperations: showOps,
		Placements:     result.Placements,
	})

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	switch format {
	case "dot":
		if _, err := io.WriteString(out, source); err != nil {
			return err
		}
	case "svg":
		svg, err := dot.RenderSVG(source)
		if err != nil {
			return fmt.Errorf("render svg: %w", err)
		}
		if _, err := out.Write(svg); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (want dot or svg)", format)
	}

	printSuccess("Exported %d tables as %s", result.Subgraph.NodeCount(), format)
	if opts.output != "" {
		printFile(opts.output)
	}
	return nil
}
