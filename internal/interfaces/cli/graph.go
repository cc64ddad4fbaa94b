package cli

import (
	"github.com/spf13/cobra"
)

// NewGraphCmd creates the graph command.
func NewGraphCmd() *cobra.Command {
	var label float64

	cmd := &cobra.Command{
		Use:     "graph <SMILES>",
		Short:   "Build and print the graph of one molecule",
		Example: `  molgraph graph "CC(=O)Nc1ccc(O)cc1" --label 0.42`,
		Args:    cobra.ExactArgs(1),
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
			g, err := rt.service.Featurize(ctx, args[0], lbl)
			if err != nil {
				return err
			}
			return PrintResult(cmd, g)
		},
	}
	cmd.Flags().Float64Var(&label, "label", 0, "regression target attached to the graph")
	return cmd
}
