package cli

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/molgraph/internal/intelligence/molgraph"
	moltypes "github.com/turtacn/molgraph/pkg/types/molecule"
)

// schemaTable renders a FeatureSchema as one row per segment.
type schemaTable struct {
	moltypes.FeatureSchema `yaml:",inline"`
}

func (s schemaTable) TableHeaders() []string {
	return []string{"MATRIX", "SEGMENT", "OFFSET", "WIDTH", "CATEGORIES"}
}

func (s schemaTable) TableRows() [][]string {
	var rows [][]string
	add := func(matrix string, segs []moltypes.FeatureSegment) {
		for _, seg := range segs {
			rows = append(rows, []string{
				matrix,
				seg.Name,
				strconv.Itoa(seg.Offset),
				strconv.Itoa(seg.Width),
				strings.Join(seg.Categories, ","),
			})
		}
	}
	add("node", s.NodeSegments)
	add("edge", s.EdgeSegments)
	return rows
}

// NewSchemaCmd creates the schema command.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the node and edge feature layout",
		Long: "Prints the schema version, row widths and named segments of the\n" +
			"configured featurizer. Use -o yaml or -o table for other formats.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := cliCtx.Config.Featurizer.Validate(); err != nil {
				return err
			}
			return PrintResult(cmd, schemaTable{*molgraph.DescribeSchema(cliCtx.Config.Featurizer)})
		},
	}
}
