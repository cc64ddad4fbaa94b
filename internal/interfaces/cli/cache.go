package cli

import (
	"github.com/spf13/cobra"
)

// cachePurgeResult is printed by cache purge.
type cachePurgeResult struct {
	SchemaVersion string `json:"schema_version" yaml:"schema_version"`
	Deleted       int64  `json:"deleted" yaml:"deleted"`
}

// NewCacheCmd creates the cache command group.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the Redis graph cache",
	}
	cmd.AddCommand(newCachePurgeCmd(), newCacheForgetCmd())
	return cmd
}

func newCachePurgeCmd() *cobra.Command {
	var schema string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Drop cached graphs of one schema version",
		Long: "Deletes every cached graph stamped with the given schema version\n" +
			"(default: the version of the configured featurizer).",
		Example: `  molgraph cache purge
  molgraph cache purge --schema v1+bondother`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			rt, err := newStack(cliCtx, stackOptions{cache: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			if schema == "" {
				schema = rt.service.SchemaVersion()
			}
			n, err := rt.service.Purge(ctx, schema)
			if err != nil {
				return err
			}
			return PrintResult(cmd, cachePurgeResult{SchemaVersion: schema, Deleted: n})
		},
	}
	cmd.Flags().StringVar(&schema, "schema", "", "schema version to purge (default: configured featurizer)")
	return cmd
}

func newCacheForgetCmd() *cobra.Command {
	var label float64

	cmd := &cobra.Command{
		Use:   "forget <SMILES>",
		Short: "Drop the cached graph of one molecule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			rt, err := newStack(cliCtx, stackOptions{cache: true})
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx, cancel := commandContext(cmd, cliCtx)
			defer cancel()

			var lbl *float64
			if cmd.Flags().Changed("label") {
				lbl = &label
			}
			return rt.service.Forget(ctx, args[0], lbl)
		},
	}
	cmd.Flags().Float64Var(&label, "label", 0, "label the graph was cached with")
	return cmd
}
