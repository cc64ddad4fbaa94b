package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/molgraph/internal/application/featurization"
	"github.com/turtacn/molgraph/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molgraph/internal/infrastructure/storage/minio"
	"github.com/turtacn/molgraph/pkg/errors"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

type featurizeOptions struct {
	input     string
	smilesCol string
	labelCol  string
	output    string
	export    bool
	runID     string
	noCache   bool
}

// featurizeResult is written to the --output file or stdout.
type featurizeResult struct {
	Graphs  []*moltypes.MoleculeGraph `json:"graphs"`
	Skipped []moltypes.SkipEntry      `json:"skipped"`
	Dataset *minio.DatasetObject      `json:"dataset,omitempty"`
}

// NewFeaturizeCmd creates the featurize command.
func NewFeaturizeCmd() *cobra.Command {
	opts := &featurizeOptions{}

	cmd := &cobra.Command{
		Use:   "featurize",
		Short: "Featurize a CSV of SMILES into molecular graphs",
		Long: "Reads a CSV with a header line, builds one graph per row and writes\n" +
			"{graphs, skipped} as JSON. Rows that cannot be parsed are skipped and\n" +
			"reported with their row index.",
		Example: `  molgraph featurize --input data/input.csv --output graphs.json
  molgraph featurize --input - --label-col "" < smiles.csv
  molgraph featurize --input data/input.csv --export --run-id 2024-ozkan`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runFeaturize(cmd, cliCtx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.input, "input", "i", "", "input CSV file, - for stdin (required)")
	f.StringVar(&opts.smilesCol, "smiles-col", featurization.DefaultSMILESColumn, "SMILES column name")
	f.StringVar(&opts.labelCol, "label-col", featurization.DefaultLabelColumn, `label column name; "" for unlabeled graphs`)
	f.StringVar(&opts.output, "output", "", "output JSON file (default: stdout)")
	f.BoolVar(&opts.export, "export", false, "also upload the result to object storage")
	f.StringVar(&opts.runID, "run-id", "", "dataset run id for --export (default: random UUID)")
	f.BoolVar(&opts.noCache, "no-cache", false, "bypass the graph cache")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runFeaturize(cmd *cobra.Command, cliCtx *CLIContext, opts *featurizeOptions) error {
	if opts.export && !cliCtx.Config.MinIO.Enabled {
		return errors.InvalidParam("--export requires minio.enabled in the configuration")
	}

	in, closeIn, err := openInput(cmd, opts.input)
	if err != nil {
		return err
	}
	defer closeIn()

	rows, err := featurization.ReadRows(in, opts.smilesCol, opts.labelCol)
	if err != nil {
		return err
	}

	rt, err := newStack(cliCtx, stackOptions{cache: !opts.noCache, export: opts.export})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := commandContext(cmd, cliCtx)
	defer cancel()

	res, err := rt.service.FeaturizeBatch(ctx, rows)
	if err != nil {
		return err
	}
	out := featurizeResult{Graphs: res.Graphs, Skipped: res.Skipped}

	if opts.export {
		obj, err := rt.service.Export(ctx, opts.runID, res)
		if err != nil {
			return err
		}
		out.Dataset = obj
	}

	if err := writeResult(cmd, opts.output, out); err != nil {
		return err
	}

	cliCtx.Logger.Info("featurization finished",
		logging.Int("rows", len(rows)),
		logging.Int("graphs", len(res.Graphs)),
		logging.Int("skipped", len(res.Skipped)),
	)
	fmt.Fprintf(cmd.ErrOrStderr(), "featurized %d rows: %d graphs, %d skipped\n",
		len(rows), len(res.Graphs), len(res.Skipped))
	return nil
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrCodeDatasetReadFailed, "failed to open input").WithDetail(path)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeResult(cmd *cobra.Command, path string, v interface{}) error {
	w := cmd.OutOrStdout()
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create output file").WithDetail(path)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	if path == "" {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to write result")
	}
	return nil
}
