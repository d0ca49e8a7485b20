package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lineamap/lineamap/pkg/graph"
	"github.com/lineamap/lineamap/pkg/store"
)

// snapshotFlags holds the flags shared by the snapshot subcommands.
type snapshotFlags struct {
	configFile string
	uri        string
	namespace  string
}

// open connects to the snapshot store, letting flags override the config
// file. The returned namespace is the one to operate on.
func (f *snapshotFlags) open(ctx context.Context) (*store.Store, string, error) {
	cfg, err := LoadConfig(f.configFile)
	if err != nil {
		return nil, "", err
	}
	uri := f.uri
	if uri == "" {
		uri = cfg.Mongo.URI
	}
	if uri == "" {
		return nil, "", fmt.Errorf("no MongoDB URI configured (set --uri or mongo.uri in the config file)")
	}
	namespace := f.namespace
	if namespace == "" {
		namespace = cfg.Mongo.Namespace
	}

	st, err := store.Open(ctx, uri)
	if err != nil {
		return nil, "", err
	}
	return st, namespace, nil
}

// snapshotCommand creates the snapshot management command.
func (c *CLI) snapshotCommand() *cobra.Command {
	flags := &snapshotFlags{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage persisted lineage graph snapshots",
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flags.uri, "uri", "", "MongoDB URI (overrides config)")
	cmd.PersistentFlags().StringVar(&flags.namespace, "namespace", "", "snapshot namespace (overrides config)")

	cmd.AddCommand(c.snapshotSaveCommand(flags))
	cmd.AddCommand(c.snapshotLoadCommand(flags))
	cmd.AddCommand(c.snapshotListCommand(flags))
	cmd.AddCommand(c.snapshotPruneCommand(flags))

	return cmd
}

// snapshotSaveCommand creates the "snapshot save" subcommand.
func (c *CLI) snapshotSaveCommand(flags *snapshotFlags) *cobra.Command {
	opts := &runOpts{}

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Build the lineage graph and persist it as a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, namespace, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

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

			snap, err := st.Save(ctx, namespace, result.Graph, result.Stats.ScriptCount)
			if err != nil {
				return err
			}
			printSuccess("Saved snapshot %s", snap.ID)
			printStats(result.Stats.ScriptCount, result.Graph.NodeCount(), result.Graph.EdgeCount(), result.CacheInfo.BuildHit)
			return nil
		},
	}

	opts.addSourceFlags(cmd)
	return cmd
}

// snapshotLoadCommand creates the "snapshot load" subcommand.
func (c *CLI) snapshotLoadCommand(flags *snapshotFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Write the latest stored snapshot's graph as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, namespace, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			snap, err := st.Latest(ctx, namespace)
			if err != nil {
				return err
			}
			g, err := graph.FromDocument(snap.Graph)
			if err != nil {
				return fmt.Errorf("snapshot %s: %w", snap.ID, err)
			}

			printSuccess("Loaded snapshot %s from %s", snap.ID, snap.CreatedAt.Format(time.RFC3339))
			return writeGraphOutput(g, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

// snapshotListCommand creates the "snapshot list" subcommand.
func (c *CLI) snapshotListCommand(flags *snapshotFlags) *cobra.Command {
	var limit int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, namespace, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			snaps, err := st.List(ctx, namespace, limit)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				printInfo("No snapshots in namespace %q", namespace)
				return nil
			}
			for _, snap := range snaps {
				printKeyValue(snap.CreatedAt.Format(time.RFC3339), fmt.Sprintf("%s (%d scripts)", snap.ID, snap.ScriptCount))
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&limit, "limit", 20, "maximum snapshots to list")
	return cmd
}

// snapshotPruneCommand creates the "snapshot prune" subcommand.
func (c *CLI) snapshotPruneCommand(flags *snapshotFlags) *cobra.Command {
	var keep int64

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, namespace, err := flags.open(ctx)
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			deleted, err := st.Prune(ctx, namespace, keep)
			if err != nil {
				return err
			}
			printSuccess("Deleted %d snapshots, kept the newest %d", deleted, keep)
			return nil
		},
	}

	cmd.Flags().Int64Var(&keep, "keep", 5, "number of snapshots to keep")
	return cmd
}
